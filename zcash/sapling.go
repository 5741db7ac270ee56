// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package zcash

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"

	"github.com/btcsuite/zkeystore/internal/zero"
	"golang.org/x/crypto/blake2b"
)

const (
	// SaplingSpendingKeySize is the serialized size of a Sapling spending
	// key.
	SaplingSpendingKeySize = 32

	// SaplingFullViewingKeySize is the serialized size of a Sapling full
	// viewing key (ak || nk || ovk).
	SaplingFullViewingKeySize = 96

	// SaplingPaymentAddressSize is the serialized size of a Sapling
	// payment address (d || pk_d).
	SaplingPaymentAddressSize = 43

	// DiversifierSize is the size of a Sapling diversifier.
	DiversifierSize = 11

	// maxDiversifierIndex bounds the search for a valid default
	// diversifier.
	maxDiversifierIndex = 1 << 16
)

// Domain separation tags of the Sapling derivations.
var (
	tagExpandSeed  = []byte("Zcash_ExpandSeed")
	tagAk          = []byte("Zcash_SpendAuth_")
	tagNk          = []byte("Zcash_Nullifier_")
	tagIvk         = []byte("Zcashivk")
	tagDiversifier = []byte("Zcash_gd")
	tagPkD         = []byte("Zcash_pk_d")
	tagDefault     = []byte("Zcash_dk")
)

// SaplingSpendingKey is the secret seed granting full spend authority over a
// Sapling account.
type SaplingSpendingKey [SaplingSpendingKeySize]byte

// SaplingExpandedSpendingKey holds the three secrets expanded from a spending
// key.
type SaplingExpandedSpendingKey struct {
	Ask [32]byte
	Nsk [32]byte
	Ovk [32]byte
}

// SaplingFullViewingKey grants the ability to see all incoming and outgoing
// transactions of an account without the ability to spend.
type SaplingFullViewingKey struct {
	Ak  [32]byte
	Nk  [32]byte
	Ovk [32]byte
}

// SaplingIncomingViewingKey grants the ability to detect incoming notes only.
type SaplingIncomingViewingKey [32]byte

// Diversifier selects one of the many payment addresses of an incoming
// viewing key.
type Diversifier [DiversifierSize]byte

// SaplingPaymentAddress is a Sapling receiving address.
type SaplingPaymentAddress struct {
	Diversifier Diversifier
	PkD         [32]byte
}

// hashTagged returns BLAKE2b-256 over tag followed by each of parts.
func hashTagged(tag []byte, parts ...[]byte) [32]byte {
	h, _ := blake2b.New256(nil)
	h.Write(tag)
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// prfExpand is the Sapling PRF^expand over the spending key.
func prfExpand(sk *SaplingSpendingKey, t byte) [64]byte {
	h, _ := blake2b.New512(nil)
	h.Write(tagExpandSeed)
	h.Write(sk[:])
	h.Write([]byte{t})
	var out [64]byte
	copy(out[:], h.Sum(nil))
	return out
}

// RandomSaplingSpendingKey returns a new uniformly random Sapling spending
// key.
func RandomSaplingSpendingKey() (SaplingSpendingKey, error) {
	var sk SaplingSpendingKey
	_, err := rand.Read(sk[:])
	return sk, err
}

// SaplingSpendingKeyFromBytes parses a serialized Sapling spending key.
func SaplingSpendingKeyFromBytes(b []byte) (SaplingSpendingKey, error) {
	var sk SaplingSpendingKey
	if len(b) != SaplingSpendingKeySize {
		return sk, ErrInvalidLength
	}
	copy(sk[:], b)
	return sk, nil
}

// Expanded returns the expanded form of the spending key.
func (sk SaplingSpendingKey) Expanded() SaplingExpandedSpendingKey {
	var esk SaplingExpandedSpendingKey
	ask := prfExpand(&sk, 0x00)
	nsk := prfExpand(&sk, 0x01)
	ovk := prfExpand(&sk, 0x02)
	defer func() {
		zero.Bytea64(&ask)
		zero.Bytea64(&nsk)
		zero.Bytea64(&ovk)
	}()
	copy(esk.Ask[:], ask[:32])
	copy(esk.Nsk[:], nsk[:32])
	copy(esk.Ovk[:], ovk[:32])
	return esk
}

// FullViewingKey derives the full viewing key of the spending key.
func (sk SaplingSpendingKey) FullViewingKey() SaplingFullViewingKey {
	return sk.Expanded().FullViewingKey()
}

// FullViewingKey derives the full viewing key of the expanded spending key.
func (esk SaplingExpandedSpendingKey) FullViewingKey() SaplingFullViewingKey {
	return SaplingFullViewingKey{
		Ak:  hashTagged(tagAk, esk.Ask[:]),
		Nk:  hashTagged(tagNk, esk.Nsk[:]),
		Ovk: esk.Ovk,
	}
}

// DefaultDiversifier returns the first valid diversifier of the key's
// diversifier sequence.
func (sk SaplingSpendingKey) DefaultDiversifier() Diversifier {
	dkExpanded := prfExpand(&sk, 0x10)
	dk := hashTagged(tagDefault, dkExpanded[:32])
	zero.Bytea64(&dkExpanded)

	var (
		d   Diversifier
		idx [8]byte
	)
	for i := uint64(0); i < maxDiversifierIndex; i++ {
		binary.LittleEndian.PutUint64(idx[:], i)
		candidate := hashTagged(tagDefault, dk[:], idx[:])
		copy(d[:], candidate[:DiversifierSize])
		if d.IsValid() {
			return d
		}
	}

	// Every index invalid is a probability 2^-(8*65536) event.
	return d
}

// DefaultAddress derives the default payment address of the spending key.
func (sk SaplingSpendingKey) DefaultAddress() SaplingPaymentAddress {
	ivk := sk.FullViewingKey().IncomingViewingKey()
	addr, _ := ivk.Address(sk.DefaultDiversifier())
	return addr
}

// IsValid reports whether the diversifier maps to a usable base point.
// Roughly one in 256 diversifiers is rejected.
func (d Diversifier) IsValid() bool {
	gd := hashTagged(tagDiversifier, d[:])
	return gd[0] != 0
}

// IncomingViewingKey derives the incoming viewing key of the full viewing
// key.  The top five bits are cleared so the key fits the scalar field.
func (fvk SaplingFullViewingKey) IncomingViewingKey() SaplingIncomingViewingKey {
	ivk := hashTagged(tagIvk, fvk.Ak[:], fvk.Nk[:])
	ivk[31] &= 0x07
	return SaplingIncomingViewingKey(ivk)
}

// Bytes returns the serialization ak || nk || ovk.
func (fvk SaplingFullViewingKey) Bytes() []byte {
	b := make([]byte, 0, SaplingFullViewingKeySize)
	b = append(b, fvk.Ak[:]...)
	b = append(b, fvk.Nk[:]...)
	return append(b, fvk.Ovk[:]...)
}

// Less orders full viewing keys by their serialization.
func (fvk SaplingFullViewingKey) Less(other SaplingFullViewingKey) bool {
	return bytes.Compare(fvk.Bytes(), other.Bytes()) < 0
}

// SaplingFullViewingKeyFromBytes parses a serialized full viewing key.
func SaplingFullViewingKeyFromBytes(b []byte) (SaplingFullViewingKey, error) {
	var fvk SaplingFullViewingKey
	if len(b) != SaplingFullViewingKeySize {
		return fvk, ErrInvalidLength
	}
	copy(fvk.Ak[:], b[:32])
	copy(fvk.Nk[:], b[32:64])
	copy(fvk.Ovk[:], b[64:])
	return fvk, nil
}

// Address returns the payment address of the incoming viewing key for the
// diversifier d, or false when d is not valid.
func (ivk SaplingIncomingViewingKey) Address(d Diversifier) (SaplingPaymentAddress, bool) {
	if !d.IsValid() {
		return SaplingPaymentAddress{}, false
	}
	return SaplingPaymentAddress{
		Diversifier: d,
		PkD:         hashTagged(tagPkD, ivk[:], d[:]),
	}, true
}

// Bytes returns the serialization d || pk_d.
func (a SaplingPaymentAddress) Bytes() []byte {
	b := make([]byte, 0, SaplingPaymentAddressSize)
	b = append(b, a.Diversifier[:]...)
	return append(b, a.PkD[:]...)
}

// Less orders Sapling addresses by their serialization.
func (a SaplingPaymentAddress) Less(other SaplingPaymentAddress) bool {
	return bytes.Compare(a.Bytes(), other.Bytes()) < 0
}

// SaplingPaymentAddressFromBytes parses a serialized Sapling payment address.
func SaplingPaymentAddressFromBytes(b []byte) (SaplingPaymentAddress, error) {
	var addr SaplingPaymentAddress
	if len(b) != SaplingPaymentAddressSize {
		return addr, ErrInvalidLength
	}
	copy(addr.Diversifier[:], b[:DiversifierSize])
	copy(addr.PkD[:], b[DiversifierSize:])
	return addr, nil
}
