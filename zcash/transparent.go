// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package zcash

import (
	"bytes"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
)

// MaxScriptElementSize is the largest redeem script that may be pushed in a
// pay-to-script-hash spend.
const MaxScriptElementSize = txscript.MaxScriptElementSize

// KeyID identifies a transparent key by the hash160 of its compressed public
// key serialization.
type KeyID [20]byte

// NewKeyID returns the identity of the passed public key.
func NewKeyID(pub *btcec.PublicKey) KeyID {
	var id KeyID
	copy(id[:], btcutil.Hash160(pub.SerializeCompressed()))
	return id
}

// String returns the hex encoding of the key identity.
func (id KeyID) String() string {
	return hex.EncodeToString(id[:])
}

// Less orders key identities bytewise.
func (id KeyID) Less(other KeyID) bool {
	return bytes.Compare(id[:], other[:]) < 0
}

// ScriptID identifies a redeem script by the hash160 of its bytes.
type ScriptID [20]byte

// NewScriptID returns the identity of the passed redeem script.
func NewScriptID(script []byte) ScriptID {
	var id ScriptID
	copy(id[:], btcutil.Hash160(script))
	return id
}

// String returns the hex encoding of the script identity.
func (id ScriptID) String() string {
	return hex.EncodeToString(id[:])
}

// Less orders script identities bytewise.
func (id ScriptID) Less(other ScriptID) bool {
	return bytes.Compare(id[:], other[:]) < 0
}
