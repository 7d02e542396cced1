// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bitcoind

import (
	"context"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// DescriptorRange is the inclusive index range of a ranged descriptor.
type DescriptorRange struct {
	Begin uint32
	End   uint32
}

// DeriveAddresses derives the addresses of an output descriptor. A ranged
// descriptor needs a range.
func (c *Client) DeriveAddresses(ctx context.Context, descriptor string,
	rng fn.Option[DescriptorRange]) ([]btcutil.Address, error) {

	const method = "deriveaddresses"

	rangeArg := fn.MapOption(func(r DescriptorRange) [2]uint32 {
		return [2]uint32{r.Begin, r.End}
	})(rng)

	args := []interface{}{descriptor, optArg(rangeArg)}

	var res []string
	if err := c.nodeCall(ctx, method, args, &res); err != nil {
		return nil, err
	}

	addrs := make([]btcutil.Address, 0, len(res))
	for _, s := range res {
		addr, err := c.parseAddress(s)
		if err != nil {
			return nil, decodeError(method, fn.None[string](), err)
		}
		addrs = append(addrs, addr)
	}

	return addrs, nil
}

type descriptorInfoResult struct {
	Descriptor     *string `json:"descriptor" validate:"required"`
	Checksum       *string `json:"checksum" validate:"required"`
	IsRange        *bool   `json:"isrange" validate:"required"`
	IsSolvable     *bool   `json:"issolvable" validate:"required"`
	HasPrivateKeys *bool   `json:"hasprivatekeys" validate:"required"`
}

// GetDescriptorInfo analyses an output descriptor and returns its canonical
// form and checksum.
func (c *Client) GetDescriptorInfo(ctx context.Context,
	descriptor string) (*DescriptorInfo, error) {

	var res descriptorInfoResult
	err := c.nodeCall(
		ctx, "getdescriptorinfo", []interface{}{descriptor}, &res,
	)
	if err != nil {
		return nil, err
	}

	return &DescriptorInfo{
		Descriptor:     *res.Descriptor,
		Checksum:       *res.Checksum,
		IsRange:        *res.IsRange,
		IsSolvable:     *res.IsSolvable,
		HasPrivateKeys: *res.HasPrivateKeys,
	}, nil
}
