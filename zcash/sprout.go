// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package zcash

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"errors"

	"github.com/btcsuite/zkeystore/internal/zero"
	"golang.org/x/crypto/curve25519"
)

const (
	// SproutSpendingKeySize is the serialized size of a Sprout spending
	// key.  Only the low 252 bits are used.
	SproutSpendingKeySize = 32

	// SproutPaymentAddressSize is the serialized size of a Sprout payment
	// address (a_pk || pk_enc).
	SproutPaymentAddressSize = 64

	// SproutViewingKeySize is the serialized size of a Sprout viewing key
	// (a_pk || sk_enc).
	SproutViewingKeySize = 64
)

// ErrSproutKeyRange is returned when a serialized Sprout spending key has any
// of its four most significant bits set.
var ErrSproutKeyRange = errors.New("sprout spending key exceeds 252 bits")

// SproutSpendingKey is the secret a_sk granting full spend authority over a
// Sprout payment address.
type SproutSpendingKey [SproutSpendingKeySize]byte

// SproutPaymentAddress is a Sprout receiving address.
type SproutPaymentAddress struct {
	APk   [32]byte
	PkEnc [32]byte
}

// SproutViewingKey grants the ability to detect and decrypt notes sent to a
// Sprout payment address without the ability to spend them.
type SproutViewingKey struct {
	APk   [32]byte
	SkEnc [32]byte
}

// NoteDecryptor is the key agreement state needed to trial-decrypt notes
// sent to one Sprout payment address.  It is a plain value and is safe to
// copy.
type NoteDecryptor struct {
	skEnc [32]byte
	pkEnc [32]byte
}

// RandomSproutSpendingKey returns a new uniformly random Sprout spending key.
func RandomSproutSpendingKey() (SproutSpendingKey, error) {
	var sk SproutSpendingKey
	if _, err := rand.Read(sk[:]); err != nil {
		return sk, err
	}
	sk[0] &= 0x0f
	return sk, nil
}

// SproutSpendingKeyFromBytes parses a serialized Sprout spending key.
func SproutSpendingKeyFromBytes(b []byte) (SproutSpendingKey, error) {
	var sk SproutSpendingKey
	if len(b) != SproutSpendingKeySize {
		return sk, ErrInvalidLength
	}
	if b[0]&0xf0 != 0 {
		return sk, ErrSproutKeyRange
	}
	copy(sk[:], b)
	return sk, nil
}

// prfAddr is the Sprout address PRF keyed by a_sk with a one byte input.
func prfAddr(ask *SproutSpendingKey, t byte) [32]byte {
	var block [64]byte
	copy(block[:32], ask[:])
	block[0] = (block[0] & 0x0f) | 0xc0
	block[32] = t
	defer zero.Bytea64(&block)

	return sha256.Sum256(block[:])
}

// clampCurve25519 applies the X25519 scalar clamping to k.
func clampCurve25519(k *[32]byte) {
	k[0] &= 248
	k[31] &= 127
	k[31] |= 64
}

// encryptionPublicKey returns the X25519 public key for skEnc.
func encryptionPublicKey(skEnc *[32]byte) [32]byte {
	var pk [32]byte

	// X25519 with the base point only fails for an all-zero output, which
	// a clamped scalar cannot produce.
	out, err := curve25519.X25519(skEnc[:], curve25519.Basepoint)
	if err == nil {
		copy(pk[:], out)
	}
	return pk
}

// receivingKey returns the clamped encryption secret sk_enc.
func (sk SproutSpendingKey) receivingKey() [32]byte {
	skEnc := prfAddr(&sk, 1)
	clampCurve25519(&skEnc)
	return skEnc
}

// ViewingKey derives the viewing key of the spending key.
func (sk SproutSpendingKey) ViewingKey() SproutViewingKey {
	return SproutViewingKey{
		APk:   prfAddr(&sk, 0),
		SkEnc: sk.receivingKey(),
	}
}

// Address derives the payment address of the spending key.
func (sk SproutSpendingKey) Address() SproutPaymentAddress {
	return sk.ViewingKey().Address()
}

// Address derives the payment address the viewing key detects notes for.
func (vk SproutViewingKey) Address() SproutPaymentAddress {
	return SproutPaymentAddress{
		APk:   vk.APk,
		PkEnc: encryptionPublicKey(&vk.SkEnc),
	}
}

// Bytes returns the serialization a_pk || sk_enc.
func (vk SproutViewingKey) Bytes() []byte {
	b := make([]byte, 0, SproutViewingKeySize)
	b = append(b, vk.APk[:]...)
	return append(b, vk.SkEnc[:]...)
}

// SproutViewingKeyFromBytes parses a serialized Sprout viewing key.
func SproutViewingKeyFromBytes(b []byte) (SproutViewingKey, error) {
	var vk SproutViewingKey
	if len(b) != SproutViewingKeySize {
		return vk, ErrInvalidLength
	}
	copy(vk.APk[:], b[:32])
	copy(vk.SkEnc[:], b[32:])
	return vk, nil
}

// Bytes returns the serialization a_pk || pk_enc.
func (a SproutPaymentAddress) Bytes() []byte {
	b := make([]byte, 0, SproutPaymentAddressSize)
	b = append(b, a.APk[:]...)
	return append(b, a.PkEnc[:]...)
}

// Less orders Sprout addresses by their serialization.
func (a SproutPaymentAddress) Less(other SproutPaymentAddress) bool {
	if c := bytes.Compare(a.APk[:], other.APk[:]); c != 0 {
		return c < 0
	}
	return bytes.Compare(a.PkEnc[:], other.PkEnc[:]) < 0
}

// SproutPaymentAddressFromBytes parses a serialized Sprout payment address.
func SproutPaymentAddressFromBytes(b []byte) (SproutPaymentAddress, error) {
	var addr SproutPaymentAddress
	if len(b) != SproutPaymentAddressSize {
		return addr, ErrInvalidLength
	}
	copy(addr.APk[:], b[:32])
	copy(addr.PkEnc[:], b[32:])
	return addr, nil
}

// NewNoteDecryptor builds the note decryptor for the address of vk.
func NewNoteDecryptor(vk SproutViewingKey) NoteDecryptor {
	return NoteDecryptor{
		skEnc: vk.SkEnc,
		pkEnc: encryptionPublicKey(&vk.SkEnc),
	}
}

// PkEnc returns the transmission public key the decryptor answers for.
func (d NoteDecryptor) PkEnc() [32]byte {
	return d.pkEnc
}

// SharedSecret performs the key agreement with the ephemeral public key of a
// note ciphertext.
func (d NoteDecryptor) SharedSecret(epk [32]byte) ([32]byte, error) {
	var secret [32]byte
	out, err := curve25519.X25519(d.skEnc[:], epk[:])
	if err != nil {
		return secret, err
	}
	copy(secret[:], out)
	return secret, nil
}
