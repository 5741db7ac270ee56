// Copyright (c) 2015-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package zero clears secret key material from memory.
package zero

// Bytes sets all bytes in the passed slice to zero.  This is used to
// explicitly clear serialized spending keys once they are no longer needed.
//
// In general, prefer to use the fixed-sized zeroing functions (Bytea*)
// when the size is known.
func Bytes(b []byte) {
	clear(b)
}

// Bytea32 clears the 32-byte array by filling it with the zero value.
// Spending keys and symmetric keys of every pool are this size.
func Bytea32(b *[32]byte) {
	*b = [32]byte{}
}

// Bytea64 clears the 64-byte array by filling it with the zero value.
// This is used for PRF outputs that expand a spending key.
func Bytea64(b *[64]byte) {
	*b = [64]byte{}
}
