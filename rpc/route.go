// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"net/url"
	"strings"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// walletPathPrefix is the path segment bitcoind uses for wallet endpoints.
const walletPathPrefix = "/wallet/"

// Endpoint is the destination of a single call.
type Endpoint struct {
	// URL is the full request URL.
	URL *url.URL

	// Wallet is the wallet the call is routed to. None means the
	// node-global endpoint.
	Wallet fn.Option[string]
}

// String returns the request URL.
func (e Endpoint) String() string {
	return e.URL.String()
}

// Route derives the endpoint of a call from the base URL and the wallet it
// targets. Wallet calls go to <base>/wallet/<name> with the name path-escaped,
// node calls go to the base URL. The base URL is never modified.
func Route(base *url.URL, wallet fn.Option[string]) Endpoint {
	u := *base
	u.User = nil

	wallet.WhenSome(func(name string) {
		u.Path = strings.TrimSuffix(base.Path, "/") + walletPathPrefix +
			name
		u.RawPath = strings.TrimSuffix(base.EscapedPath(), "/") +
			walletPathPrefix + url.PathEscape(name)
	})

	return Endpoint{URL: &u, Wallet: wallet}
}
