// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// DefaultHost is the regtest RPC listener of bitcoind.
	DefaultHost = "127.0.0.1:18443"

	// defaultTimeout bounds a call when no HTTP client is configured.
	defaultTimeout = 2 * time.Minute

	// maxResponseSize caps the size of a response body. A verbose block
	// at regtest sizes is well below this.
	maxResponseSize = 32 << 20
)

var (
	// ErrMissingHost is returned when a config has no host.
	ErrMissingHost = errors.New("rpc host must be set")
)

// Config is the connection configuration shared by every call. It is not
// modified after the client is created.
type Config struct {
	// Host is the daemon RPC address, either host:port or a full URL.
	Host string

	// User is the RPC username. Basic auth is skipped when both User and
	// Pass are empty.
	User string

	// Pass is the RPC password.
	Pass string

	// HTTPClient is used for requests. When nil, a client with a default
	// timeout is used.
	HTTPClient *http.Client

	// Metrics receives per call observations when set.
	Metrics *Metrics
}

// BaseURL parses the host into the node-global endpoint URL. A host without
// a scheme is served over plain http.
func (c *Config) BaseURL() (*url.URL, error) {
	if c.Host == "" {
		return nil, ErrMissingHost
	}

	host := c.Host
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}

	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid rpc host %q: %w", c.Host, err)
	}

	return base, nil
}

// Transport delivers a request envelope to the daemon and returns the raw
// response body.
type Transport interface {
	// Send posts req to the endpoint of the given wallet, or to the
	// node-global endpoint when wallet is None. Failures with no usable
	// response wrap ErrTransport.
	Send(ctx context.Context, wallet fn.Option[string],
		req *btcjson.Request) ([]byte, error)
}

// HTTPTransport is a Transport over HTTP POST with basic auth. It holds only
// immutable configuration and is safe for concurrent use.
type HTTPTransport struct {
	base   *url.URL
	user   string
	pass   string
	client *http.Client
}

// A compile time check to ensure HTTPTransport satisfies the Transport
// interface.
var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a transport from the given config.
func NewHTTPTransport(cfg *Config) (*HTTPTransport, error) {
	base, err := cfg.BaseURL()
	if err != nil {
		return nil, err
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	return &HTTPTransport{
		base:   base,
		user:   cfg.User,
		pass:   cfg.Pass,
		client: client,
	}, nil
}

// Send posts a request envelope. The destination is recomputed from the base
// URL on every call. No retries are attempted.
//
// An HTTP error status is not a failure by itself: bitcoind reports RPC
// errors with a 4xx/5xx status and an error envelope, which is returned for
// the caller to inspect. Only a non-2xx status without a JSON object body,
// such as a 401 from a bad password, is a transport failure.
func (t *HTTPTransport) Send(ctx context.Context, wallet fn.Option[string],
	req *btcjson.Request) ([]byte, error) {

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	endpoint := Route(t.base, wallet)

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if t.user != "" || t.pass != "" {
		httpReq.SetBasicAuth(t.user, t.pass)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	if resp.StatusCode/100 != 2 && !isJSONObject(raw) {
		return nil, fmt.Errorf("%w: http status %s", ErrTransport,
			resp.Status)
	}

	return raw, nil
}

// isJSONObject returns true if raw is a well formed JSON object.
func isJSONObject(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)

	return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed)
}
