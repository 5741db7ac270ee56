// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keystore

import (
	"sort"

	"github.com/btcsuite/zkeystore/zcash"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// saplingViewingEntry is the result of deriving everything indexed alongside
// a full viewing key.
type saplingViewingEntry struct {
	fvk         zcash.SaplingFullViewingKey
	ivk         zcash.SaplingIncomingViewingKey
	defaultAddr fn.Option[zcash.SaplingPaymentAddress]
}

// deriveSaplingViewingEntry computes the incoming viewing key of fvk.  It is
// called without any lock held.
func deriveSaplingViewingEntry(fvk zcash.SaplingFullViewingKey,
	defaultAddr fn.Option[zcash.SaplingPaymentAddress]) saplingViewingEntry {

	return saplingViewingEntry{
		fvk:         fvk,
		ivk:         fvk.IncomingViewingKey(),
		defaultAddr: defaultAddr,
	}
}

// commitSaplingViewingEntry indexes the full viewing key by its incoming
// viewing key and, when present, the incoming viewing key by the default
// address.
//
// This function MUST be called with the spending key lock held for writes.
func (s *BasicStore) commitSaplingViewingEntry(entry saplingViewingEntry) {
	s.saplingFullViewingKeys[entry.ivk] = entry.fvk

	entry.defaultAddr.WhenSome(func(addr zcash.SaplingPaymentAddress) {
		s.saplingIncomingViewingKeys[addr] = entry.ivk
	})
}

// AddSaplingSpendingKey adds a Sapling spending key indexed by its full
// viewing key.  The full viewing key is always registered; the default
// address is indexed only when supplied.
//
// This is part of the SaplingKeyStore interface.
func (s *BasicStore) AddSaplingSpendingKey(sk zcash.SaplingSpendingKey,
	defaultAddr fn.Option[zcash.SaplingPaymentAddress]) bool {

	entry := deriveSaplingViewingEntry(sk.FullViewingKey(), defaultAddr)

	s.spendingKeyMtx.Lock()
	s.commitSaplingViewingEntry(entry)
	s.saplingSpendingKeys[entry.fvk] = sk
	s.spendingKeyMtx.Unlock()

	log.Tracef("Added Sapling spending key")
	return true
}

// HaveSaplingSpendingKey reports whether the spending key of fvk is present.
//
// This is part of the SaplingKeyStore interface.
func (s *BasicStore) HaveSaplingSpendingKey(
	fvk zcash.SaplingFullViewingKey) bool {

	s.spendingKeyMtx.RLock()
	defer s.spendingKeyMtx.RUnlock()

	_, ok := s.saplingSpendingKeys[fvk]
	return ok
}

// GetSaplingSpendingKey returns the spending key of fvk.
//
// This is part of the SaplingKeyStore interface.
func (s *BasicStore) GetSaplingSpendingKey(fvk zcash.SaplingFullViewingKey) (
	zcash.SaplingSpendingKey, bool) {

	s.spendingKeyMtx.RLock()
	defer s.spendingKeyMtx.RUnlock()

	sk, ok := s.saplingSpendingKeys[fvk]
	return sk, ok
}

// AddSaplingFullViewingKey adds fvk indexed by its incoming viewing key and,
// when supplied, indexes that incoming viewing key by the default address.
// The address is taken as given; callers are expected to have derived it
// from fvk.
//
// This is part of the SaplingKeyStore interface.
func (s *BasicStore) AddSaplingFullViewingKey(fvk zcash.SaplingFullViewingKey,
	defaultAddr fn.Option[zcash.SaplingPaymentAddress]) bool {

	entry := deriveSaplingViewingEntry(fvk, defaultAddr)

	s.spendingKeyMtx.Lock()
	s.commitSaplingViewingEntry(entry)
	s.spendingKeyMtx.Unlock()

	log.Tracef("Added Sapling full viewing key")
	return true
}

// HaveSaplingFullViewingKey reports whether the full viewing key of ivk is
// present.
//
// This is part of the SaplingKeyStore interface.
func (s *BasicStore) HaveSaplingFullViewingKey(
	ivk zcash.SaplingIncomingViewingKey) bool {

	s.spendingKeyMtx.RLock()
	defer s.spendingKeyMtx.RUnlock()

	_, ok := s.saplingFullViewingKeys[ivk]
	return ok
}

// GetSaplingFullViewingKey returns the full viewing key of ivk.
//
// This is part of the SaplingKeyStore interface.
func (s *BasicStore) GetSaplingFullViewingKey(
	ivk zcash.SaplingIncomingViewingKey) (zcash.SaplingFullViewingKey, bool) {

	s.spendingKeyMtx.RLock()
	defer s.spendingKeyMtx.RUnlock()

	fvk, ok := s.saplingFullViewingKeys[ivk]
	return fvk, ok
}

// GetSaplingFullViewingKeys returns every full viewing key in the store,
// sorted by serialization.
//
// This is part of the SaplingKeyStore interface.
func (s *BasicStore) GetSaplingFullViewingKeys() []zcash.SaplingFullViewingKey {
	s.spendingKeyMtx.RLock()
	fvks := make([]zcash.SaplingFullViewingKey, 0,
		len(s.saplingFullViewingKeys))
	for _, fvk := range s.saplingFullViewingKeys {
		fvks = append(fvks, fvk)
	}
	s.spendingKeyMtx.RUnlock()

	sort.Slice(fvks, func(i, j int) bool { return fvks[i].Less(fvks[j]) })
	return fvks
}

// HaveSaplingIncomingViewingKey reports whether addr is indexed to an
// incoming viewing key.
//
// This is part of the SaplingKeyStore interface.
func (s *BasicStore) HaveSaplingIncomingViewingKey(
	addr zcash.SaplingPaymentAddress) bool {

	s.spendingKeyMtx.RLock()
	defer s.spendingKeyMtx.RUnlock()

	_, ok := s.saplingIncomingViewingKeys[addr]
	return ok
}

// GetSaplingIncomingViewingKey returns the incoming viewing key of addr.
//
// This is part of the SaplingKeyStore interface.
func (s *BasicStore) GetSaplingIncomingViewingKey(
	addr zcash.SaplingPaymentAddress) (zcash.SaplingIncomingViewingKey, bool) {

	s.spendingKeyMtx.RLock()
	defer s.spendingKeyMtx.RUnlock()

	ivk, ok := s.saplingIncomingViewingKeys[addr]
	return ivk, ok
}

// GetSaplingPaymentAddresses returns every indexed Sapling address, sorted by
// serialization.
//
// This is part of the SaplingKeyStore interface.
func (s *BasicStore) GetSaplingPaymentAddresses() []zcash.SaplingPaymentAddress {
	s.spendingKeyMtx.RLock()
	addrs := make([]zcash.SaplingPaymentAddress, 0,
		len(s.saplingIncomingViewingKeys))
	for addr := range s.saplingIncomingViewingKeys {
		addrs = append(addrs, addr)
	}
	s.spendingKeyMtx.RUnlock()

	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Less(addrs[j]) })
	return addrs
}
