// Copyright (c) 2014-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keystore_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/btcsuite/zkeystore/keystore"
)

// TestErrorCodeStringer tests the stringized output for the ErrorCode type.
func TestErrorCodeStringer(t *testing.T) {
	tests := []struct {
		in   keystore.ErrorCode
		want string
	}{
		{keystore.ErrCrypto, "ErrCrypto"},
		{keystore.ErrLocked, "ErrLocked"},
		{keystore.ErrWrongPassphrase, "ErrWrongPassphrase"},
		{keystore.ErrAlreadyEncrypted, "ErrAlreadyEncrypted"},
		{keystore.ErrNotEncrypted, "ErrNotEncrypted"},
		{keystore.ErrDatabase, "ErrDatabase"},
		{keystore.ErrCorrupt, "ErrCorrupt"},
		{keystore.ErrNoExist, "ErrNoExist"},
		{0xffff, "Unknown ErrorCode (65535)"},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		result := test.in.String()
		if result != test.want {
			t.Errorf("String #%d\ngot: %s\nwant: %s", i, result,
				test.want)
			continue
		}
	}
}

// TestError tests the error output for the Error type.
func TestError(t *testing.T) {
	cause := errors.New("bucket missing")

	tests := []struct {
		in   keystore.Error
		want string
	}{
		{
			keystore.Error{Description: "human-readable error"},
			"human-readable error",
		},
		{
			keystore.NewError(keystore.ErrDatabase, "failed to store",
				cause),
			"failed to store: bucket missing",
		},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		result := test.in.Error()
		if result != test.want {
			t.Errorf("Error #%d\ngot: %s\nwant: %s", i, result,
				test.want)
			continue
		}
	}
}

// TestIsError checks that IsError matches codes through wrapping.
func TestIsError(t *testing.T) {
	err := keystore.NewError(keystore.ErrLocked, "locked", nil)
	wrapped := fmt.Errorf("while signing: %w", err)

	if !keystore.IsError(wrapped, keystore.ErrLocked) {
		t.Fatalf("IsError did not match wrapped error")
	}
	if keystore.IsError(wrapped, keystore.ErrCrypto) {
		t.Fatalf("IsError matched the wrong code")
	}
	if keystore.IsError(errors.New("plain"), keystore.ErrLocked) {
		t.Fatalf("IsError matched a foreign error")
	}
}
