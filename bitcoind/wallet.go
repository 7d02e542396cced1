// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bitcoind

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcharness/pkg/btcunit"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// balanceDummy is the deprecated first argument of getbalance. It must be
// "*" for the remaining arguments to be honored.
const balanceDummy = "*"

// RPCWalletAlreadyLoaded is the code bitcoind returns when loadwallet is
// called on a loaded wallet.
const RPCWalletAlreadyLoaded btcjson.RPCErrorCode = -35

var (
	// ErrScanningShape is returned when the scanning member of
	// getwalletinfo is neither false nor a progress object.
	ErrScanningShape = errors.New("unexpected scanning value")
)

// createWalletResult is the result of createwallet and loadwallet.
type createWalletResult struct {
	Name     *string  `json:"name" validate:"required"`
	Warning  string   `json:"warning"`
	Warnings []string `json:"warnings"`
}

// warning merges the single warning of older daemons with the warning list
// of newer ones.
func (r *createWalletResult) warning() string {
	if r.Warning != "" {
		return r.Warning
	}

	return strings.Join(r.Warnings, "; ")
}

// CreateWallet creates and loads a new wallet on the daemon. A wallet that
// already exists is reported by the daemon as an RPC error.
func (c *Client) CreateWallet(ctx context.Context, name string,
	opts CreateWalletOpts) (*CreateWalletResult, error) {

	args := []interface{}{
		name,
		optArg(opts.DisablePrivateKeys),
		optArg(opts.Blank),
		optArg(opts.Passphrase),
		optArg(opts.AvoidReuse),
		optArg(opts.Descriptors),
		optArg(opts.LoadOnStartup),
	}

	var res createWalletResult
	if err := c.nodeCall(ctx, "createwallet", args, &res); err != nil {
		return nil, err
	}

	return &CreateWalletResult{Name: *res.Name, Warning: res.warning()}, nil
}

// LoadWallet loads a wallet that exists in the daemon's wallet directory. A
// wallet file that does not exist is reported with btcjson.ErrRPCWalletNotFound
// and a loaded wallet with RPCWalletAlreadyLoaded.
func (c *Client) LoadWallet(ctx context.Context, name string,
	loadOnStartup fn.Option[bool]) (*LoadWalletResult, error) {

	args := []interface{}{name, optArg(loadOnStartup)}

	var res createWalletResult
	if err := c.nodeCall(ctx, "loadwallet", args, &res); err != nil {
		return nil, err
	}

	return &LoadWalletResult{Name: *res.Name, Warning: res.warning()}, nil
}

// ListWallets returns the names of the loaded wallets.
func (c *Client) ListWallets(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.nodeCall(ctx, "listwallets", nil, &names); err != nil {
		return nil, err
	}

	return names, nil
}

type walletInfoResult struct {
	WalletName            *string         `json:"walletname" validate:"required"`
	WalletVersion         *int64          `json:"walletversion" validate:"required"`
	TxCount               *int64          `json:"txcount" validate:"required"`
	KeypoolOldest         *int64          `json:"keypoololdest"`
	KeypoolSizeHDInternal *int64          `json:"keypoolsize_hd_internal"`
	UnlockedUntil         *int64          `json:"unlocked_until"`
	PayTxFee              *json.Number    `json:"paytxfee"`
	HDSeedID              *string         `json:"hdseedid"`
	PrivateKeysEnabled    *bool           `json:"private_keys_enabled" validate:"required"`
	AvoidReuse            *bool           `json:"avoid_reuse" validate:"required"`
	Scanning              json.RawMessage `json:"scanning" validate:"required"`
	Descriptors           *bool           `json:"descriptors"`
}

type scanProgressResult struct {
	Duration *int64   `json:"duration"`
	Progress *float64 `json:"progress"`
}

// parseScanning decodes the scanning member, which is false when the wallet
// is idle and a progress object while a rescan runs.
func parseScanning(raw json.RawMessage) (fn.Option[ScanProgress], error) {
	none := fn.None[ScanProgress]()

	var flag bool
	if err := json.Unmarshal(raw, &flag); err == nil {
		if flag {
			return none, fmt.Errorf("%w: true", ErrScanningShape)
		}

		return none, nil
	}

	var progress scanProgressResult
	if err := json.Unmarshal(raw, &progress); err != nil {
		return none, fmt.Errorf("%w: %s", ErrScanningShape, raw)
	}

	if progress.Duration == nil || progress.Progress == nil {
		return none, fmt.Errorf("%w: %s", ErrScanningShape, raw)
	}

	return fn.Some(ScanProgress{
		Duration: time.Duration(*progress.Duration) * time.Second,
		Progress: *progress.Progress,
	}), nil
}

func (r *walletInfoResult) toWalletInfo() (*WalletInfo, error) {
	scanning, err := parseScanning(r.Scanning)
	if err != nil {
		return nil, err
	}

	payTxFee, err := parseOptAmount(r.PayTxFee)
	if err != nil {
		return nil, fmt.Errorf("paytxfee: %w", err)
	}

	keypoolOldest := fn.MapOption(func(ts int64) time.Time {
		return time.Unix(ts, 0)
	})(optValue(r.KeypoolOldest))

	return &WalletInfo{
		Name:                  *r.WalletName,
		Version:               *r.WalletVersion,
		TxCount:               *r.TxCount,
		KeypoolOldest:         keypoolOldest,
		KeypoolSizeHDInternal: optValue(r.KeypoolSizeHDInternal),
		UnlockedUntil:         optValue(r.UnlockedUntil),
		PayTxFee:              payTxFee,
		HDSeedID:              optValue(r.HDSeedID),
		PrivateKeysEnabled:    *r.PrivateKeysEnabled,
		AvoidReuse:            *r.AvoidReuse,
		Descriptors:           optValue(r.Descriptors),
		Scanning:              scanning,
	}, nil
}

// GetWalletInfo returns the state of the named wallet. A wallet that is not
// loaded is reported by the daemon as an RPC error.
func (c *Client) GetWalletInfo(ctx context.Context,
	wallet string) (*WalletInfo, error) {

	const method = "getwalletinfo"

	var res walletInfoResult
	if err := c.walletCall(ctx, wallet, method, nil, &res); err != nil {
		return nil, err
	}

	info, err := res.toWalletInfo()
	if err != nil {
		return nil, decodeError(method, fn.Some(wallet), err)
	}

	return info, nil
}

// SetHDSeed sets a new HD seed on a legacy wallet. A None seed lets the
// daemon generate one.
func (c *Client) SetHDSeed(ctx context.Context, wallet string,
	newKeypool fn.Option[bool], seed fn.Option[*btcutil.WIF]) error {

	wif := fn.MapOption(func(w *btcutil.WIF) string {
		return w.String()
	})(seed)

	args := []interface{}{optArg(newKeypool), optArg(wif)}

	return c.walletCall(ctx, wallet, "sethdseed", args, nil)
}

type dumpWalletResult struct {
	Filename *string `json:"filename" validate:"required"`
}

// DumpWallet writes the wallet keys to a file on the daemon host and returns
// its absolute path.
func (c *Client) DumpWallet(ctx context.Context, wallet,
	filename string) (string, error) {

	var res dumpWalletResult
	err := c.walletCall(
		ctx, wallet, "dumpwallet", []interface{}{filename}, &res,
	)
	if err != nil {
		return "", err
	}

	return *res.Filename, nil
}

// GetNewAddress derives a new receiving address. An absent address type is
// sent as null so the daemon applies its configured default.
func (c *Client) GetNewAddress(ctx context.Context, wallet string,
	label fn.Option[string],
	addrType fn.Option[AddressType]) (btcutil.Address, error) {

	const method = "getnewaddress"

	args := []interface{}{optArg(label), optArg(addrType)}

	var encoded string
	if err := c.walletCall(ctx, wallet, method, args, &encoded); err != nil {
		return nil, err
	}

	addr, err := c.parseAddress(encoded)
	if err != nil {
		return nil, decodeError(method, fn.Some(wallet), err)
	}

	return addr, nil
}

// GetBalance returns the trusted balance of the wallet.
func (c *Client) GetBalance(ctx context.Context, wallet string,
	opts BalanceOpts) (btcutil.Amount, error) {

	const method = "getbalance"

	args := []interface{}{
		balanceDummy,
		optArg(opts.MinConf),
		optArg(opts.IncludeWatchOnly),
		optArg(opts.AvoidReuse),
	}

	var balance json.Number
	if err := c.walletCall(ctx, wallet, method, args, &balance); err != nil {
		return 0, err
	}

	amt, err := parseAmount(&balance)
	if err != nil {
		return 0, decodeError(method, fn.Some(wallet), err)
	}

	return amt, nil
}

type addressInfoResult struct {
	Address             *string  `json:"address" validate:"required"`
	ScriptPubKey        *string  `json:"scriptPubKey" validate:"required"`
	IsMine              *bool    `json:"ismine" validate:"required"`
	IsWatchOnly         *bool    `json:"iswatchonly" validate:"required"`
	Solvable            *bool    `json:"solvable" validate:"required"`
	Desc                string   `json:"desc"`
	IsScript            *bool    `json:"isscript" validate:"required"`
	IsChange            *bool    `json:"ischange" validate:"required"`
	IsWitness           *bool    `json:"iswitness" validate:"required"`
	WitnessVersion      *int32   `json:"witness_version"`
	WitnessProgram      *string  `json:"witness_program"`
	PubKey              *string  `json:"pubkey"`
	HDKeyPath           *string  `json:"hdkeypath"`
	HDSeedID            *string  `json:"hdseedid"`
	HDMasterFingerprint *string  `json:"hdmasterfingerprint"`
	Labels              []string `json:"labels"`
	Timestamp           *int64   `json:"timestamp"`
}

func (c *Client) toAddressInfo(r *addressInfoResult) (*AddressInfo, error) {
	addr, err := c.parseAddress(*r.Address)
	if err != nil {
		return nil, err
	}

	script, err := hex.DecodeString(*r.ScriptPubKey)
	if err != nil {
		return nil, fmt.Errorf("scriptPubKey: %w", err)
	}

	program, err := parseOptHex(r.WitnessProgram)
	if err != nil {
		return nil, fmt.Errorf("witness_program: %w", err)
	}

	timestamp := fn.MapOption(func(ts int64) time.Time {
		return time.Unix(ts, 0)
	})(optValue(r.Timestamp))

	return &AddressInfo{
		Address:             addr,
		ScriptPubKey:        script,
		IsMine:              *r.IsMine,
		IsWatchOnly:         *r.IsWatchOnly,
		Solvable:            *r.Solvable,
		Desc:                r.Desc,
		IsScript:            *r.IsScript,
		IsChange:            *r.IsChange,
		IsWitness:           *r.IsWitness,
		WitnessVersion:      optValue(r.WitnessVersion),
		WitnessProgram:      program,
		PubKey:              optValue(r.PubKey),
		HDKeyPath:           optValue(r.HDKeyPath),
		HDSeedID:            optValue(r.HDSeedID),
		HDMasterFingerprint: optValue(r.HDMasterFingerprint),
		Labels:              r.Labels,
		Timestamp:           timestamp,
	}, nil
}

// GetAddressInfo returns what the wallet knows about an address.
func (c *Client) GetAddressInfo(ctx context.Context, wallet string,
	addr btcutil.Address) (*AddressInfo, error) {

	const method = "getaddressinfo"

	encoded, err := c.addressArg(addr)
	if err != nil {
		return nil, encodeError(method, fn.Some(wallet), err)
	}

	var res addressInfoResult
	err = c.walletCall(ctx, wallet, method, []interface{}{encoded}, &res)
	if err != nil {
		return nil, err
	}

	info, err := c.toAddressInfo(&res)
	if err != nil {
		return nil, decodeError(method, fn.Some(wallet), err)
	}

	return info, nil
}

// feeRateArg converts an optional sat/vB rate into its wire form.
func feeRateArg(rate fn.Option[btcunit.SatPerVByte]) interface{} {
	return optArg(fn.MapOption(func(r btcunit.SatPerVByte) json.Number {
		return json.Number(r.Decimal())
	})(rate))
}

// SendToAddress pays amt to addr from the wallet and returns the txid.
func (c *Client) SendToAddress(ctx context.Context, wallet string,
	addr btcutil.Address, amt btcutil.Amount,
	opts SendOpts) (chainhash.Hash, error) {

	const method = "sendtoaddress"

	encoded, err := c.addressArg(addr)
	if err != nil {
		return chainhash.Hash{}, encodeError(method, fn.Some(wallet), err)
	}

	amount, err := amountArg(amt)
	if err != nil {
		return chainhash.Hash{}, encodeError(method, fn.Some(wallet), err)
	}

	args := []interface{}{
		encoded,
		amount,
		optArg(opts.Comment),
		optArg(opts.CommentTo),
		optArg(opts.SubtractFeeFromAmount),
		optArg(opts.Replaceable),
		optArg(opts.ConfTarget),
		optArg(opts.EstimateMode),
		optArg(opts.AvoidReuse),
		feeRateArg(opts.FeeRate),
	}

	var txid string
	if err := c.walletCall(ctx, wallet, method, args, &txid); err != nil {
		return chainhash.Hash{}, err
	}

	hash, err := parseHash(txid)
	if err != nil {
		return chainhash.Hash{}, decodeError(method, fn.Some(wallet), err)
	}

	return hash, nil
}

type unspentResult struct {
	TxID          *string      `json:"txid" validate:"required"`
	Vout          *uint32      `json:"vout" validate:"required"`
	Address       *string      `json:"address"`
	Label         string       `json:"label"`
	ScriptPubKey  *string      `json:"scriptPubKey" validate:"required"`
	Amount        *json.Number `json:"amount" validate:"required"`
	Confirmations *int64       `json:"confirmations" validate:"required"`
	RedeemScript  *string      `json:"redeemScript"`
	WitnessScript *string      `json:"witnessScript"`
	Spendable     *bool        `json:"spendable" validate:"required"`
	Solvable      *bool        `json:"solvable" validate:"required"`
	Reused        *bool        `json:"reused"`
	Desc          string       `json:"desc"`
	Safe          *bool        `json:"safe" validate:"required"`
}

func (c *Client) toUnspent(r *unspentResult) (Unspent, error) {
	hash, err := parseHash(*r.TxID)
	if err != nil {
		return Unspent{}, err
	}

	addr := fn.None[btcutil.Address]()
	if r.Address != nil {
		decoded, err := c.parseAddress(*r.Address)
		if err != nil {
			return Unspent{}, err
		}
		addr = fn.Some(decoded)
	}

	script, err := hex.DecodeString(*r.ScriptPubKey)
	if err != nil {
		return Unspent{}, fmt.Errorf("scriptPubKey: %w", err)
	}

	amount, err := parseAmount(r.Amount)
	if err != nil {
		return Unspent{}, fmt.Errorf("amount: %w", err)
	}

	redeem, err := parseOptHex(r.RedeemScript)
	if err != nil {
		return Unspent{}, fmt.Errorf("redeemScript: %w", err)
	}

	witness, err := parseOptHex(r.WitnessScript)
	if err != nil {
		return Unspent{}, fmt.Errorf("witnessScript: %w", err)
	}

	return Unspent{
		OutPoint:      *wire.NewOutPoint(&hash, *r.Vout),
		Address:       addr,
		Label:         r.Label,
		ScriptPubKey:  script,
		Amount:        amount,
		Confirmations: *r.Confirmations,
		RedeemScript:  redeem,
		WitnessScript: witness,
		Spendable:     *r.Spendable,
		Solvable:      *r.Solvable,
		Safe:          *r.Safe,
		Desc:          r.Desc,
		Reused:        optValue(r.Reused),
	}, nil
}

// ListUnspent returns the wallet outputs in the order reported by the
// daemon.
func (c *Client) ListUnspent(ctx context.Context, wallet string,
	opts ListUnspentOpts) ([]Unspent, error) {

	const method = "listunspent"

	var addresses interface{}
	if opts.Addresses.IsSome() {
		addrs := opts.Addresses.UnwrapOr(nil)
		encoded := make([]string, 0, len(addrs))
		for _, addr := range addrs {
			s, err := c.addressArg(addr)
			if err != nil {
				return nil, encodeError(method, fn.Some(wallet), err)
			}
			encoded = append(encoded, s)
		}
		addresses = encoded
	}

	args := []interface{}{
		optArg(opts.MinConf),
		optArg(opts.MaxConf),
		addresses,
		optArg(opts.IncludeUnsafe),
	}

	var res []unspentResult
	if err := c.walletCall(ctx, wallet, method, args, &res); err != nil {
		return nil, err
	}

	utxos := make([]Unspent, 0, len(res))
	for i := range res {
		utxo, err := c.toUnspent(&res[i])
		if err != nil {
			return nil, decodeError(method, fn.Some(wallet),
				fmt.Errorf("entry %d: %w", i, err))
		}
		utxos = append(utxos, utxo)
	}

	return utxos, nil
}

type walletTransactionResult struct {
	TxID          *string      `json:"txid" validate:"required"`
	Amount        *json.Number `json:"amount" validate:"required"`
	Fee           *json.Number `json:"fee"`
	Confirmations *int64       `json:"confirmations" validate:"required"`
	BlockHash     *string      `json:"blockhash"`
	BlockHeight   *int32       `json:"blockheight"`
	Time          *int64       `json:"time" validate:"required"`
	Hex           *string      `json:"hex" validate:"required"`
}

func (r *walletTransactionResult) toWalletTransaction() (*WalletTransaction,
	error) {

	txid, err := parseHash(*r.TxID)
	if err != nil {
		return nil, err
	}

	amount, err := parseAmount(r.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}

	fee, err := parseOptAmount(r.Fee)
	if err != nil {
		return nil, fmt.Errorf("fee: %w", err)
	}

	blockHash := fn.None[chainhash.Hash]()
	if r.BlockHash != nil {
		hash, err := parseHash(*r.BlockHash)
		if err != nil {
			return nil, fmt.Errorf("blockhash: %w", err)
		}
		blockHash = fn.Some(hash)
	}

	tx, err := decodeTx(*r.Hex)
	if err != nil {
		return nil, err
	}

	return &WalletTransaction{
		TxID:          txid,
		Amount:        amount,
		Confirmations: *r.Confirmations,
		Fee:           fee,
		BlockHash:     blockHash,
		BlockHeight:   optValue(r.BlockHeight),
		Time:          time.Unix(*r.Time, 0),
		Tx:            tx,
	}, nil
}

// GetTransaction returns the wallet's view of one of its transactions.
func (c *Client) GetTransaction(ctx context.Context, wallet string,
	txid chainhash.Hash,
	includeWatchOnly fn.Option[bool]) (*WalletTransaction, error) {

	const method = "gettransaction"

	args := []interface{}{txid.String(), optArg(includeWatchOnly)}

	var res walletTransactionResult
	if err := c.walletCall(ctx, wallet, method, args, &res); err != nil {
		return nil, err
	}

	tx, err := res.toWalletTransaction()
	if err != nil {
		return nil, decodeError(method, fn.Some(wallet), err)
	}

	return tx, nil
}

// decodeTx deserializes a hex encoded transaction.
func decodeTx(s string) (*wire.MsgTx, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("tx hex: %w", err)
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("tx decode: %w", err)
	}

	return tx, nil
}
