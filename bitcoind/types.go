// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bitcoind

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcharness/pkg/btcunit"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// AddressType is the address type argument accepted by the wallet RPCs.
type AddressType string

const (
	// AddressTypeLegacy is a base58 P2PKH address.
	AddressTypeLegacy AddressType = "legacy"

	// AddressTypeP2SHSegwit is a P2WPKH nested in P2SH.
	AddressTypeP2SHSegwit AddressType = "p2sh-segwit"

	// AddressTypeBech32 is a native segwit v0 address.
	AddressTypeBech32 AddressType = "bech32"

	// AddressTypeBech32m is a taproot address.
	AddressTypeBech32m AddressType = "bech32m"
)

// CreateWalletOpts are the optional arguments of createwallet.
type CreateWalletOpts struct {
	DisablePrivateKeys fn.Option[bool]
	Blank              fn.Option[bool]
	Passphrase         fn.Option[string]
	AvoidReuse         fn.Option[bool]
	Descriptors        fn.Option[bool]
	LoadOnStartup      fn.Option[bool]
}

// CreateWalletResult is the result of createwallet.
type CreateWalletResult struct {
	// Name is the name of the created wallet.
	Name string

	// Warning is set when the wallet was created with a caveat.
	Warning string
}

// LoadWalletResult is the result of loadwallet.
type LoadWalletResult struct {
	// Name is the name of the loaded wallet.
	Name string

	// Warning is set when the wallet was loaded with a caveat.
	Warning string
}

// ScanProgress describes a rescan that is in progress.
type ScanProgress struct {
	// Duration is the time elapsed since the scan started.
	Duration time.Duration

	// Progress is the completed fraction, between 0 and 1.
	Progress float64
}

// WalletInfo is the result of getwalletinfo.
type WalletInfo struct {
	Name                  string
	Version               int64
	TxCount               int64
	KeypoolOldest         fn.Option[time.Time]
	KeypoolSizeHDInternal fn.Option[int64]
	UnlockedUntil         fn.Option[int64]
	PayTxFee              fn.Option[btcutil.Amount]
	HDSeedID              fn.Option[string]
	PrivateKeysEnabled    bool
	AvoidReuse            bool
	Descriptors           fn.Option[bool]

	// Scanning is None when the wallet is idle.
	Scanning fn.Option[ScanProgress]
}

// BalanceOpts are the optional arguments of getbalance.
type BalanceOpts struct {
	MinConf          fn.Option[int32]
	IncludeWatchOnly fn.Option[bool]
	AvoidReuse       fn.Option[bool]
}

// SendOpts are the optional arguments of sendtoaddress.
type SendOpts struct {
	Comment               fn.Option[string]
	CommentTo             fn.Option[string]
	SubtractFeeFromAmount fn.Option[bool]
	Replaceable           fn.Option[bool]
	ConfTarget            fn.Option[int32]
	EstimateMode          fn.Option[string]
	AvoidReuse            fn.Option[bool]
	FeeRate               fn.Option[btcunit.SatPerVByte]
}

// ListUnspentOpts are the optional arguments of listunspent.
type ListUnspentOpts struct {
	MinConf       fn.Option[int32]
	MaxConf       fn.Option[int32]
	Addresses     fn.Option[[]btcutil.Address]
	IncludeUnsafe fn.Option[bool]
}

// Unspent is a wallet output as reported by listunspent.
type Unspent struct {
	OutPoint      wire.OutPoint
	Address       fn.Option[btcutil.Address]
	Label         string
	ScriptPubKey  []byte
	Amount        btcutil.Amount
	Confirmations int64
	RedeemScript  fn.Option[[]byte]
	WitnessScript fn.Option[[]byte]
	Spendable     bool
	Solvable      bool
	Safe          bool
	Desc          string
	Reused        fn.Option[bool]
}

// AddressInfo is the result of getaddressinfo.
type AddressInfo struct {
	Address             btcutil.Address
	ScriptPubKey        []byte
	IsMine              bool
	IsWatchOnly         bool
	Solvable            bool
	Desc                string
	IsScript            bool
	IsChange            bool
	IsWitness           bool
	WitnessVersion      fn.Option[int32]
	WitnessProgram      fn.Option[[]byte]
	PubKey              fn.Option[string]
	HDKeyPath           fn.Option[string]
	HDSeedID            fn.Option[string]
	HDMasterFingerprint fn.Option[string]
	Labels              []string
	Timestamp           fn.Option[time.Time]
}

// WalletTransaction is the result of gettransaction.
type WalletTransaction struct {
	TxID          chainhash.Hash
	Amount        btcutil.Amount
	Confirmations int64

	// Fee is only reported for transactions sent by the wallet. It is
	// negative, following the daemon.
	Fee fn.Option[btcutil.Amount]

	BlockHash   fn.Option[chainhash.Hash]
	BlockHeight fn.Option[int32]
	Time        time.Time
	Tx          *wire.MsgTx
}

// PsbtInput is an input passed to walletcreatefundedpsbt.
type PsbtInput struct {
	OutPoint wire.OutPoint
	Sequence fn.Option[uint32]
}

// Output is a single payment of a funded PSBT.
type Output struct {
	Address btcutil.Address
	Amount  btcutil.Amount
}

// FundPsbtOpts are the options object of walletcreatefundedpsbt. Absent
// members are omitted from the object.
type FundPsbtOpts struct {
	AddInputs              fn.Option[bool]
	ChangeAddress          fn.Option[btcutil.Address]
	ChangePosition         fn.Option[int32]
	ChangeType             fn.Option[AddressType]
	IncludeWatching        fn.Option[bool]
	LockUnspents           fn.Option[bool]
	FeeRate                fn.Option[btcunit.SatPerVByte]
	SubtractFeeFromOutputs fn.Option[[]int]
	Replaceable            fn.Option[bool]
	ConfTarget             fn.Option[int32]
	EstimateMode           fn.Option[string]
}

// FundedPsbt is the result of walletcreatefundedpsbt.
type FundedPsbt struct {
	// Psbt is the funded, unsigned PSBT in base64.
	Psbt string

	// Fee is the fee the funding wallet added.
	Fee btcutil.Amount

	// ChangePos is the index of the change output, -1 if none was added.
	ChangePos int32
}

// ProcessedPsbt is the result of walletprocesspsbt.
type ProcessedPsbt struct {
	Psbt     string
	Complete bool
}

// FinalizedPsbt is the result of finalizepsbt.
type FinalizedPsbt struct {
	// Psbt is set when the transaction was not extracted.
	Psbt fn.Option[string]

	// Tx is the extracted network transaction. It is only set when the
	// PSBT is complete.
	Tx fn.Option[*wire.MsgTx]

	Complete bool
}

// RawTransactionInfo is the verbose result of getrawtransaction.
type RawTransactionInfo struct {
	TxID          chainhash.Hash
	Tx            *wire.MsgTx
	BlockHash     fn.Option[chainhash.Hash]
	Confirmations fn.Option[int64]
	BlockTime     fn.Option[time.Time]
}

// BlockInfo is the result of getblock at verbosity 1.
type BlockInfo struct {
	Hash          chainhash.Hash
	Height        int32
	Confirmations int64
	Time          time.Time
	MedianTime    time.Time
	Tx            []chainhash.Hash
}

// BlockchainInfo is the result of getblockchaininfo.
type BlockchainInfo struct {
	Chain                string
	Blocks               int32
	Headers              int32
	BestBlockHash        chainhash.Hash
	MedianTime           time.Time
	InitialBlockDownload bool
}

// DescriptorInfo is the result of getdescriptorinfo.
type DescriptorInfo struct {
	Descriptor     string
	Checksum       string
	IsRange        bool
	IsSolvable     bool
	HasPrivateKeys bool
}
