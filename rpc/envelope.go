// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// validate checks the `validate` tags of decoded results. Wire structs mark
// every field the daemon must always send as `required` on a pointer field,
// so a missing member is told apart from a zero value.
var validate = validator.New(validator.WithRequiredStructEnabled())

// nullLiteral is the JSON encoding of an absent value.
var nullLiteral = []byte("null")

// NewRequest builds a JSON-RPC 1.0 request envelope with a fresh request id.
//
// The arguments are encoded positionally in the given order. A nil argument
// is encoded as JSON null, so absent optional arguments keep their position.
// An argument that cannot be encoded fails with ErrEncoding.
func NewRequest(method string, args ...interface{}) (*btcjson.Request,
	error) {

	if method == "" {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, ErrEmptyMethod)
	}

	if args == nil {
		args = []interface{}{}
	}

	req, err := btcjson.NewRequest(
		btcjson.RpcVersion1, uuid.NewString(), method, args,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEncoding, method, err)
	}

	return req, nil
}

// ParseResponse decodes a raw response envelope into result.
//
// An error member set by the daemon is returned as a *btcjson.RPCError with
// the remote code and message untouched. A body that is not an envelope, a
// null result where a value is expected, a result that does not decode into
// result, or a result missing a required field fails with ErrDecode.
//
// A nil result discards the payload, which is used for calls whose only
// meaningful outcome is success or failure.
func ParseResponse(raw []byte, result interface{}) error {
	var resp btcjson.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("%w: malformed envelope: %w", ErrDecode, err)
	}

	if resp.Error != nil {
		return resp.Error
	}

	if result == nil {
		return nil
	}

	payload := bytes.TrimSpace(resp.Result)
	if len(payload) == 0 || bytes.Equal(payload, nullLiteral) {
		return fmt.Errorf("%w: %w", ErrDecode, ErrNullResult)
	}

	if err := json.Unmarshal(payload, result); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if err := validateResult(result); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return nil
}

// validateResult runs struct validation over a decoded result. Structs and
// slices of structs are validated, every other kind passes through.
func validateResult(result interface{}) error {
	v := reflect.ValueOf(result)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		return validate.Struct(v.Addr().Interface())

	case reflect.Slice, reflect.Array:
		for i := range v.Len() {
			elem := v.Index(i).Addr().Interface()
			if err := validateResult(elem); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
	}

	return nil
}
