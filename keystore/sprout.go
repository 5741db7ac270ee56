// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keystore

import (
	"sort"

	"github.com/btcsuite/zkeystore/zcash"
)

// AddSpendingKey adds a Sprout spending key under its derived payment
// address and caches the note decryptor of that address.
//
// This is part of the SproutKeyStore interface.
func (s *BasicStore) AddSpendingKey(sk zcash.SproutSpendingKey) bool {
	vk := sk.ViewingKey()
	addr := vk.Address()
	dec := zcash.NewNoteDecryptor(vk)

	s.spendingKeyMtx.Lock()
	s.sproutSpendingKeys[addr] = sk
	s.noteDecryptors[addr] = dec
	s.spendingKeyMtx.Unlock()

	log.Tracef("Added Sprout spending key")
	return true
}

// HaveSpendingKey reports whether the spending key of addr is present.
//
// This is part of the SproutKeyStore interface.
func (s *BasicStore) HaveSpendingKey(addr zcash.SproutPaymentAddress) bool {
	s.spendingKeyMtx.RLock()
	defer s.spendingKeyMtx.RUnlock()

	_, ok := s.sproutSpendingKeys[addr]
	return ok
}

// GetSpendingKey returns the spending key of addr.
//
// This is part of the SproutKeyStore interface.
func (s *BasicStore) GetSpendingKey(
	addr zcash.SproutPaymentAddress) (zcash.SproutSpendingKey, bool) {

	s.spendingKeyMtx.RLock()
	defer s.spendingKeyMtx.RUnlock()

	sk, ok := s.sproutSpendingKeys[addr]
	return sk, ok
}

// GetNoteDecryptor returns the note decryptor cached for addr.
//
// This is part of the SproutKeyStore interface.
func (s *BasicStore) GetNoteDecryptor(
	addr zcash.SproutPaymentAddress) (zcash.NoteDecryptor, bool) {

	s.spendingKeyMtx.RLock()
	defer s.spendingKeyMtx.RUnlock()

	dec, ok := s.noteDecryptors[addr]
	return dec, ok
}

// GetPaymentAddresses returns the sorted union of the addresses of every
// Sprout spending key and viewing key.
//
// This is part of the SproutKeyStore interface.
func (s *BasicStore) GetPaymentAddresses() []zcash.SproutPaymentAddress {
	s.spendingKeyMtx.RLock()
	set := make(map[zcash.SproutPaymentAddress]struct{},
		len(s.sproutSpendingKeys)+len(s.sproutViewingKeys))
	s.collectSproutAddresses(set)
	s.spendingKeyMtx.RUnlock()

	return sortedSproutAddresses(set)
}

// collectSproutAddresses adds the address of every plaintext spending key and
// viewing key to set.
//
// This function MUST be called with the spending key lock held for reads.
func (s *BasicStore) collectSproutAddresses(
	set map[zcash.SproutPaymentAddress]struct{}) {

	for addr := range s.sproutSpendingKeys {
		set[addr] = struct{}{}
	}
	for addr := range s.sproutViewingKeys {
		set[addr] = struct{}{}
	}
}

// sortedSproutAddresses flattens an address set into a sorted slice.
func sortedSproutAddresses(
	set map[zcash.SproutPaymentAddress]struct{}) []zcash.SproutPaymentAddress {

	addrs := make([]zcash.SproutPaymentAddress, 0, len(set))
	for addr := range set {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Less(addrs[j]) })
	return addrs
}

// AddSproutViewingKey adds a viewing key under its payment address and
// caches the note decryptor of that address.
//
// This is part of the SproutKeyStore interface.
func (s *BasicStore) AddSproutViewingKey(vk zcash.SproutViewingKey) bool {
	addr := vk.Address()
	dec := zcash.NewNoteDecryptor(vk)

	s.spendingKeyMtx.Lock()
	s.sproutViewingKeys[addr] = vk
	s.noteDecryptors[addr] = dec
	s.spendingKeyMtx.Unlock()

	log.Tracef("Added Sprout viewing key")
	return true
}

// RemoveSproutViewingKey removes the viewing key of vk's address.  The note
// decryptor is dropped only when no spending key remains for the address.
//
// This is part of the SproutKeyStore interface.
func (s *BasicStore) RemoveSproutViewingKey(vk zcash.SproutViewingKey) bool {
	addr := vk.Address()

	s.spendingKeyMtx.Lock()
	defer s.spendingKeyMtx.Unlock()

	delete(s.sproutViewingKeys, addr)
	if _, ok := s.sproutSpendingKeys[addr]; !ok {
		delete(s.noteDecryptors, addr)
	}
	return true
}

// HaveSproutViewingKey reports whether a viewing key for addr is present.
//
// This is part of the SproutKeyStore interface.
func (s *BasicStore) HaveSproutViewingKey(addr zcash.SproutPaymentAddress) bool {
	s.spendingKeyMtx.RLock()
	defer s.spendingKeyMtx.RUnlock()

	_, ok := s.sproutViewingKeys[addr]
	return ok
}

// GetSproutViewingKey returns the viewing key of addr.
//
// This is part of the SproutKeyStore interface.
func (s *BasicStore) GetSproutViewingKey(
	addr zcash.SproutPaymentAddress) (zcash.SproutViewingKey, bool) {

	s.spendingKeyMtx.RLock()
	defer s.spendingKeyMtx.RUnlock()

	vk, ok := s.sproutViewingKeys[addr]
	return vk, ok
}
