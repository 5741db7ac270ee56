// Copyright (c) 2014-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keystore

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrCrypto indicates an error with the cryptography related
	// operations such as decrypting or encrypting data.
	ErrCrypto ErrorCode = iota

	// ErrLocked indicates that an operation which requires the key store
	// to be unlocked was requested on a locked key store.
	ErrLocked

	// ErrWrongPassphrase indicates that the specified passphrase is
	// incorrect.
	ErrWrongPassphrase

	// ErrAlreadyEncrypted indicates that an attempt was made to encrypt
	// a key store which is already encrypted.
	ErrAlreadyEncrypted

	// ErrNotEncrypted indicates that an operation which only applies to
	// an encrypted key store was requested on a plaintext one.
	ErrNotEncrypted

	// ErrDatabase indicates an error with the underlying database used to
	// persist the key store.
	ErrDatabase

	// ErrCorrupt indicates that persisted key store data failed to parse.
	ErrCorrupt

	// ErrNoExist indicates that the requested persisted key store does
	// not exist.
	ErrNoExist
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrCrypto:           "ErrCrypto",
	ErrLocked:           "ErrLocked",
	ErrWrongPassphrase:  "ErrWrongPassphrase",
	ErrAlreadyEncrypted: "ErrAlreadyEncrypted",
	ErrNotEncrypted:     "ErrNotEncrypted",
	ErrDatabase:         "ErrDatabase",
	ErrCorrupt:          "ErrCorrupt",
	ErrNoExist:          "ErrNoExist",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error provides a single type for errors that can happen during key store
// operation outside of the boolean capability contract.
type Error struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying error
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error given a set of arguments.
func NewError(c ErrorCode, desc string, err error) Error {
	return Error{ErrorCode: c, Description: desc, Err: err}
}

// IsError returns whether the error is an Error with a matching error code.
func IsError(err error, code ErrorCode) bool {
	var e Error
	return errors.As(err, &e) && e.ErrorCode == code
}
