// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keystore

import (
	"sort"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/zkeystore/zcash"
)

// keyEntry is a transparent private key together with the public key it was
// added under.
type keyEntry struct {
	privKey btcec.PrivateKey
	pubKey  btcec.PublicKey
}

// BasicStore is a concurrency safe in-memory key store keeping every key in
// plain text.
//
// Two independent guards partition the store.  keyMtx protects the
// transparent keys, redeem scripts and watch-only set; spendingKeyMtx
// protects the Sprout and Sapling pools along with the note decryptor cache.
// No method holds both at once, and derivations are computed before the
// relevant guard is taken so that only the map commit happens under it.
type BasicStore struct {
	keyMtx    sync.RWMutex
	keys      map[zcash.KeyID]keyEntry
	scripts   map[zcash.ScriptID][]byte
	watchOnly map[string]struct{}

	spendingKeyMtx             sync.RWMutex
	sproutSpendingKeys         map[zcash.SproutPaymentAddress]zcash.SproutSpendingKey
	sproutViewingKeys          map[zcash.SproutPaymentAddress]zcash.SproutViewingKey
	noteDecryptors             map[zcash.SproutPaymentAddress]zcash.NoteDecryptor
	saplingSpendingKeys        map[zcash.SaplingFullViewingKey]zcash.SaplingSpendingKey
	saplingFullViewingKeys     map[zcash.SaplingIncomingViewingKey]zcash.SaplingFullViewingKey
	saplingIncomingViewingKeys map[zcash.SaplingPaymentAddress]zcash.SaplingIncomingViewingKey
}

// NewBasicStore returns an empty key store.
func NewBasicStore() *BasicStore {
	return &BasicStore{
		keys:                       make(map[zcash.KeyID]keyEntry),
		scripts:                    make(map[zcash.ScriptID][]byte),
		watchOnly:                  make(map[string]struct{}),
		sproutSpendingKeys:         make(map[zcash.SproutPaymentAddress]zcash.SproutSpendingKey),
		sproutViewingKeys:          make(map[zcash.SproutPaymentAddress]zcash.SproutViewingKey),
		noteDecryptors:             make(map[zcash.SproutPaymentAddress]zcash.NoteDecryptor),
		saplingSpendingKeys:        make(map[zcash.SaplingFullViewingKey]zcash.SaplingSpendingKey),
		saplingFullViewingKeys:     make(map[zcash.SaplingIncomingViewingKey]zcash.SaplingFullViewingKey),
		saplingIncomingViewingKeys: make(map[zcash.SaplingPaymentAddress]zcash.SaplingIncomingViewingKey),
	}
}

// AddKey adds a private key under the identity of its public key.
//
// This is part of the TransparentKeyStore interface.
func (s *BasicStore) AddKey(key *btcec.PrivateKey) bool {
	return s.AddKeyPubKey(key, key.PubKey())
}

// AddKeyPubKey adds a private key under the identity of pub.
//
// This is part of the TransparentKeyStore interface.
func (s *BasicStore) AddKeyPubKey(key *btcec.PrivateKey,
	pub *btcec.PublicKey) bool {

	id := zcash.NewKeyID(pub)
	entry := keyEntry{privKey: *key, pubKey: *pub}

	s.keyMtx.Lock()
	s.keys[id] = entry
	s.keyMtx.Unlock()

	log.Tracef("Added transparent key %v", id)
	return true
}

// HaveKey reports whether the private key of id is present.
//
// This is part of the TransparentKeyStore interface.
func (s *BasicStore) HaveKey(id zcash.KeyID) bool {
	s.keyMtx.RLock()
	defer s.keyMtx.RUnlock()

	_, ok := s.keys[id]
	return ok
}

// GetKey returns a copy of the private key of id.
//
// This is part of the TransparentKeyStore interface.
func (s *BasicStore) GetKey(id zcash.KeyID) (*btcec.PrivateKey, bool) {
	s.keyMtx.RLock()
	entry, ok := s.keys[id]
	s.keyMtx.RUnlock()

	if !ok {
		return nil, false
	}
	return &entry.privKey, true
}

// GetPubKey returns a copy of the public key of id.
//
// This is part of the TransparentKeyStore interface.
func (s *BasicStore) GetPubKey(id zcash.KeyID) (*btcec.PublicKey, bool) {
	s.keyMtx.RLock()
	entry, ok := s.keys[id]
	s.keyMtx.RUnlock()

	if !ok {
		return nil, false
	}
	return &entry.pubKey, true
}

// GetKeys returns the sorted identities of every private key in the store.
//
// This is part of the TransparentKeyStore interface.
func (s *BasicStore) GetKeys() []zcash.KeyID {
	s.keyMtx.RLock()
	ids := make([]zcash.KeyID, 0, len(s.keys))
	for id := range s.keys {
		ids = append(ids, id)
	}
	s.keyMtx.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

// removeKey deletes the plaintext private key of id.
//
// This function MUST be called with the key lock held for writes.
func (s *BasicStore) removeKey(id zcash.KeyID) {
	delete(s.keys, id)
}

// AddCScript adds a redeem script indexed by its hash160.  Scripts larger
// than MaxScriptElementSize can never be redeemed and are rejected.
//
// This is part of the ScriptStore interface.
func (s *BasicStore) AddCScript(script []byte) bool {
	if len(script) > zcash.MaxScriptElementSize {
		log.Debugf("Rejecting redeem script of %d bytes", len(script))
		return false
	}

	id := zcash.NewScriptID(script)
	cp := append([]byte(nil), script...)

	s.keyMtx.Lock()
	s.scripts[id] = cp
	s.keyMtx.Unlock()

	log.Tracef("Added redeem script %v", id)
	return true
}

// HaveCScript reports whether the redeem script of id is present.
//
// This is part of the ScriptStore interface.
func (s *BasicStore) HaveCScript(id zcash.ScriptID) bool {
	s.keyMtx.RLock()
	defer s.keyMtx.RUnlock()

	_, ok := s.scripts[id]
	return ok
}

// GetCScript returns a copy of the redeem script of id.
//
// This is part of the ScriptStore interface.
func (s *BasicStore) GetCScript(id zcash.ScriptID) ([]byte, bool) {
	s.keyMtx.RLock()
	defer s.keyMtx.RUnlock()

	script, ok := s.scripts[id]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), script...), true
}

// GetCScripts returns the sorted hashes of every redeem script.
//
// This is part of the ScriptStore interface.
func (s *BasicStore) GetCScripts() []zcash.ScriptID {
	s.keyMtx.RLock()
	ids := make([]zcash.ScriptID, 0, len(s.scripts))
	for id := range s.scripts {
		ids = append(ids, id)
	}
	s.keyMtx.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

// AddWatchOnly adds script to the watch-only set.  Adding a script twice
// leaves a single entry.
//
// This is part of the ScriptStore interface.
func (s *BasicStore) AddWatchOnly(script []byte) bool {
	s.keyMtx.Lock()
	s.watchOnly[string(script)] = struct{}{}
	s.keyMtx.Unlock()
	return true
}

// RemoveWatchOnly removes script from the watch-only set.
//
// This is part of the ScriptStore interface.
func (s *BasicStore) RemoveWatchOnly(script []byte) bool {
	s.keyMtx.Lock()
	delete(s.watchOnly, string(script))
	s.keyMtx.Unlock()
	return true
}

// HaveWatchOnly reports whether script is being watched.
//
// This is part of the ScriptStore interface.
func (s *BasicStore) HaveWatchOnly(script []byte) bool {
	s.keyMtx.RLock()
	defer s.keyMtx.RUnlock()

	_, ok := s.watchOnly[string(script)]
	return ok
}

// HaveAnyWatchOnly reports whether any script is being watched.
//
// This is part of the ScriptStore interface.
func (s *BasicStore) HaveAnyWatchOnly() bool {
	s.keyMtx.RLock()
	defer s.keyMtx.RUnlock()

	return len(s.watchOnly) > 0
}

// GetWatchOnly returns every watched script in lexicographic order.
//
// This is part of the ScriptStore interface.
func (s *BasicStore) GetWatchOnly() [][]byte {
	s.keyMtx.RLock()
	keys := make([]string, 0, len(s.watchOnly))
	for script := range s.watchOnly {
		keys = append(keys, script)
	}
	s.keyMtx.RUnlock()

	sort.Strings(keys)
	scripts := make([][]byte, len(keys))
	for i, k := range keys {
		scripts[i] = []byte(k)
	}
	return scripts
}
