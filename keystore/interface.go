// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keystore

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/zkeystore/zcash"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// TransparentKeyStore stores transparent secp256k1 keys indexed by the
// hash160 of their public key.
type TransparentKeyStore interface {
	// AddKey adds a private key, indexing it under the identity of its
	// public key.
	AddKey(key *btcec.PrivateKey) bool

	// AddKeyPubKey adds a private key under the identity of the passed
	// public key.
	AddKeyPubKey(key *btcec.PrivateKey, pub *btcec.PublicKey) bool

	// HaveKey reports whether a private key with the given identity is
	// present.
	HaveKey(id zcash.KeyID) bool

	// GetKey returns a copy of the private key with the given identity.
	GetKey(id zcash.KeyID) (*btcec.PrivateKey, bool)

	// GetPubKey returns a copy of the public key with the given identity.
	GetPubKey(id zcash.KeyID) (*btcec.PublicKey, bool)

	// GetKeys returns a snapshot of every known key identity.
	GetKeys() []zcash.KeyID
}

// ScriptStore stores pay-to-script-hash redeem scripts and the set of
// watch-only scripts.  The two are independent: a script may be in both.
type ScriptStore interface {
	// AddCScript adds a redeem script indexed by its hash160.
	AddCScript(script []byte) bool

	// HaveCScript reports whether a redeem script with the given hash
	// is present.
	HaveCScript(id zcash.ScriptID) bool

	// GetCScript returns a copy of the redeem script with the given hash.
	GetCScript(id zcash.ScriptID) ([]byte, bool)

	// GetCScripts returns a snapshot of every redeem script hash.
	GetCScripts() []zcash.ScriptID

	// AddWatchOnly adds a script to the watch-only set.
	AddWatchOnly(script []byte) bool

	// RemoveWatchOnly removes a script from the watch-only set.
	RemoveWatchOnly(script []byte) bool

	// HaveWatchOnly reports whether the script is being watched.
	HaveWatchOnly(script []byte) bool

	// HaveAnyWatchOnly reports whether the watch-only set is non-empty.
	HaveAnyWatchOnly() bool

	// GetWatchOnly returns copies of every watched script.
	GetWatchOnly() [][]byte
}

// SproutKeyStore stores Sprout spending and viewing keys indexed by payment
// address, along with a note decryptor per address.
//
// AddSpendingKey, HaveSpendingKey and GetSpendingKey concern spend authority
// and may be intercepted by an encrypting implementation; the viewing key
// methods never are.
type SproutKeyStore interface {
	// AddSpendingKey stores a spending key under its derived address and
	// caches a note decryptor for that address.
	AddSpendingKey(sk zcash.SproutSpendingKey) bool

	// HaveSpendingKey reports whether the spending key of the address is
	// present.
	HaveSpendingKey(addr zcash.SproutPaymentAddress) bool

	// GetSpendingKey returns the spending key of the address.
	GetSpendingKey(addr zcash.SproutPaymentAddress) (zcash.SproutSpendingKey, bool)

	// GetNoteDecryptor returns the note decryptor of the address.
	GetNoteDecryptor(addr zcash.SproutPaymentAddress) (zcash.NoteDecryptor, bool)

	// GetPaymentAddresses returns every Sprout address reachable through
	// either a spending key or a viewing key, without duplicates.
	GetPaymentAddresses() []zcash.SproutPaymentAddress

	// AddSproutViewingKey adds a viewing key and its note decryptor.
	AddSproutViewingKey(vk zcash.SproutViewingKey) bool

	// RemoveSproutViewingKey removes a viewing key.  A spending key for
	// the same address is left untouched.
	RemoveSproutViewingKey(vk zcash.SproutViewingKey) bool

	// HaveSproutViewingKey reports whether a viewing key for the address
	// is present.
	HaveSproutViewingKey(addr zcash.SproutPaymentAddress) bool

	// GetSproutViewingKey returns the viewing key of the address.
	GetSproutViewingKey(addr zcash.SproutPaymentAddress) (zcash.SproutViewingKey, bool)
}

// SaplingKeyStore stores the Sapling key hierarchy:
//
//	spending key -> full viewing key -> incoming viewing key -> address
//
// Spending keys are indexed by full viewing key, full viewing keys by
// incoming viewing key and incoming viewing keys by their default address.
// Callers holding an address resolve it downwards one level at a time.
type SaplingKeyStore interface {
	// AddSaplingSpendingKey adds a spending key and its derived full
	// viewing key.  When a default address is supplied the full viewing
	// key is registered for it as by AddSaplingFullViewingKey.
	AddSaplingSpendingKey(sk zcash.SaplingSpendingKey,
		defaultAddr fn.Option[zcash.SaplingPaymentAddress]) bool

	// HaveSaplingSpendingKey reports whether the spending key of the full
	// viewing key is present.
	HaveSaplingSpendingKey(fvk zcash.SaplingFullViewingKey) bool

	// GetSaplingSpendingKey returns the spending key of the full viewing
	// key.
	GetSaplingSpendingKey(fvk zcash.SaplingFullViewingKey) (
		zcash.SaplingSpendingKey, bool)

	// AddSaplingFullViewingKey adds a full viewing key indexed by its
	// derived incoming viewing key, and, when supplied, indexes that
	// incoming viewing key by the default address.
	AddSaplingFullViewingKey(fvk zcash.SaplingFullViewingKey,
		defaultAddr fn.Option[zcash.SaplingPaymentAddress]) bool

	// HaveSaplingFullViewingKey reports whether the full viewing key of
	// the incoming viewing key is present.
	HaveSaplingFullViewingKey(ivk zcash.SaplingIncomingViewingKey) bool

	// GetSaplingFullViewingKey returns the full viewing key of the
	// incoming viewing key.
	GetSaplingFullViewingKey(ivk zcash.SaplingIncomingViewingKey) (
		zcash.SaplingFullViewingKey, bool)

	// GetSaplingFullViewingKeys returns a snapshot of every full viewing
	// key, including those without an address.
	GetSaplingFullViewingKeys() []zcash.SaplingFullViewingKey

	// HaveSaplingIncomingViewingKey reports whether the address has an
	// incoming viewing key.
	HaveSaplingIncomingViewingKey(addr zcash.SaplingPaymentAddress) bool

	// GetSaplingIncomingViewingKey returns the incoming viewing key of
	// the address.
	GetSaplingIncomingViewingKey(addr zcash.SaplingPaymentAddress) (
		zcash.SaplingIncomingViewingKey, bool)

	// GetSaplingPaymentAddresses returns every indexed Sapling address.
	GetSaplingPaymentAddresses() []zcash.SaplingPaymentAddress
}

// KeyStore is the full capability set a wallet needs from its key store.
type KeyStore interface {
	TransparentKeyStore
	ScriptStore
	SproutKeyStore
	SaplingKeyStore
}

// Compile time checks that both stores satisfy the full contract.
var (
	_ KeyStore = (*BasicStore)(nil)
	_ KeyStore = (*CryptoStore)(nil)
)
