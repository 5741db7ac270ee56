// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keystore

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/zkeystore/zcash"
	"github.com/davecgh/go-spew/spew"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"pgregory.net/rapid"
)

// privKeyGen draws non-zero secp256k1 private keys.
var privKeyGen = rapid.Custom(func(t *rapid.T) *btcec.PrivateKey {
	b := rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "privkey")
	b[31] |= 0x01
	priv, _ := btcec.PrivKeyFromBytes(b)
	return priv
})

// sproutKeyGen draws Sprout spending keys within the 252-bit range.
var sproutKeyGen = rapid.Custom(func(t *rapid.T) zcash.SproutSpendingKey {
	b := rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "sk")
	b[0] &= 0x0f
	sk, err := zcash.SproutSpendingKeyFromBytes(b)
	if err != nil {
		t.Fatalf("unable to parse sprout key: %v", err)
	}
	return sk
})

// saplingKeyGen draws arbitrary Sapling spending keys.
var saplingKeyGen = rapid.Custom(func(t *rapid.T) zcash.SaplingSpendingKey {
	b := rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "sk")
	sk, err := zcash.SaplingSpendingKeyFromBytes(b)
	if err != nil {
		t.Fatalf("unable to parse sapling key: %v", err)
	}
	return sk
})

func newPrivKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return priv
}

func newSproutKey(t *testing.T) zcash.SproutSpendingKey {
	t.Helper()

	sk, err := zcash.RandomSproutSpendingKey()
	require.NoError(t, err)
	return sk
}

func newSaplingKey(t *testing.T) zcash.SaplingSpendingKey {
	t.Helper()

	sk, err := zcash.RandomSaplingSpendingKey()
	require.NoError(t, err)
	return sk
}

// TestKeyRoundTrip checks that every added transparent key can be fetched
// back by the identity of its public key.
func TestKeyRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewBasicStore()
		priv := privKeyGen.Draw(t, "priv")
		pub := priv.PubKey()
		id := zcash.NewKeyID(pub)

		if !s.AddKeyPubKey(priv, pub) {
			t.Fatalf("AddKeyPubKey failed")
		}
		if !s.HaveKey(id) {
			t.Fatalf("HaveKey false after add")
		}

		got, ok := s.GetKey(id)
		if !ok || !bytes.Equal(got.Serialize(), priv.Serialize()) {
			t.Fatalf("GetKey mismatch: %v", spew.Sdump(got))
		}
		gotPub, ok := s.GetPubKey(id)
		if !ok || !gotPub.IsEqual(pub) {
			t.Fatalf("GetPubKey mismatch")
		}
	})
}

// TestKeyOverwrite checks that a second key added under the same identity
// replaces the first.
func TestKeyOverwrite(t *testing.T) {
	s := NewBasicStore()

	first := newPrivKey(t)
	second := newPrivKey(t)
	pub := first.PubKey()
	id := zcash.NewKeyID(pub)

	require.True(t, s.AddKeyPubKey(first, pub))
	require.True(t, s.AddKeyPubKey(second, pub))

	got, ok := s.GetKey(id)
	require.True(t, ok)
	require.Equal(t, second.Serialize(), got.Serialize())
	require.Len(t, s.GetKeys(), 1)
}

// TestGetKeyReturnsCopy ensures callers cannot reach the stored key.
func TestGetKeyReturnsCopy(t *testing.T) {
	s := NewBasicStore()
	priv := newPrivKey(t)
	id := zcash.NewKeyID(priv.PubKey())
	want := priv.Serialize()

	require.True(t, s.AddKey(priv))
	priv.Zero()

	got, ok := s.GetKey(id)
	require.True(t, ok)
	require.Equal(t, want, got.Serialize())
	got.Zero()

	got, ok = s.GetKey(id)
	require.True(t, ok)
	require.Equal(t, want, got.Serialize())
}

// TestMissingEntries checks lookups of unknown identities on an empty store.
func TestMissingEntries(t *testing.T) {
	s := NewBasicStore()

	require.False(t, s.HaveKey(zcash.KeyID{}))
	_, ok := s.GetKey(zcash.KeyID{})
	require.False(t, ok)
	_, ok = s.GetPubKey(zcash.KeyID{})
	require.False(t, ok)
	require.Empty(t, s.GetKeys())

	require.False(t, s.HaveCScript(zcash.ScriptID{}))
	_, ok = s.GetCScript(zcash.ScriptID{})
	require.False(t, ok)
	require.False(t, s.HaveAnyWatchOnly())

	require.False(t, s.HaveSpendingKey(zcash.SproutPaymentAddress{}))
	_, ok = s.GetNoteDecryptor(zcash.SproutPaymentAddress{})
	require.False(t, ok)
	require.Empty(t, s.GetPaymentAddresses())

	require.False(t, s.HaveSaplingSpendingKey(zcash.SaplingFullViewingKey{}))
	require.False(t, s.HaveSaplingFullViewingKey(
		zcash.SaplingIncomingViewingKey{},
	))
	require.False(t, s.HaveSaplingIncomingViewingKey(
		zcash.SaplingPaymentAddress{},
	))
	require.Empty(t, s.GetSaplingPaymentAddresses())
}

// TestCScripts covers redeem script storage and the element size limit.
func TestCScripts(t *testing.T) {
	s := NewBasicStore()

	script, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_1).
		AddData(newPrivKey(t).PubKey().SerializeCompressed()).
		AddOp(txscript.OP_1).
		AddOp(txscript.OP_CHECKMULTISIG).
		Script()
	require.NoError(t, err)

	id := zcash.NewScriptID(script)
	require.True(t, s.AddCScript(script))
	require.True(t, s.HaveCScript(id))

	got, ok := s.GetCScript(id)
	require.True(t, ok)
	require.Equal(t, script, got)

	// Mutating the returned copy must not reach the store.
	got[0] ^= 0xff
	again, _ := s.GetCScript(id)
	require.Equal(t, script, again)
	require.Equal(t, []zcash.ScriptID{id}, s.GetCScripts())

	tooBig := make([]byte, zcash.MaxScriptElementSize+1)
	require.False(t, s.AddCScript(tooBig))
	require.False(t, s.HaveCScript(zcash.NewScriptID(tooBig)))

	limit := make([]byte, zcash.MaxScriptElementSize)
	require.True(t, s.AddCScript(limit))
}

// TestWatchOnlyIdempotent checks that double insertion leaves one entry and
// removal clears the set.
func TestWatchOnlyIdempotent(t *testing.T) {
	s := NewBasicStore()
	script := []byte{txscript.OP_DUP, txscript.OP_HASH160}

	require.True(t, s.AddWatchOnly(script))
	require.True(t, s.AddWatchOnly(script))
	require.True(t, s.HaveWatchOnly(script))
	require.True(t, s.HaveAnyWatchOnly())
	require.Equal(t, [][]byte{script}, s.GetWatchOnly())

	require.True(t, s.RemoveWatchOnly(script))
	require.False(t, s.HaveWatchOnly(script))
	require.False(t, s.HaveAnyWatchOnly())
	require.Empty(t, s.GetWatchOnly())
}

// TestWatchOnlyIndependentOfScripts checks that the watch-only set and the
// redeem script map do not affect each other.
func TestWatchOnlyIndependentOfScripts(t *testing.T) {
	s := NewBasicStore()
	script := []byte{txscript.OP_TRUE}

	require.True(t, s.AddCScript(script))
	require.True(t, s.AddWatchOnly(script))
	require.True(t, s.RemoveWatchOnly(script))
	require.True(t, s.HaveCScript(zcash.NewScriptID(script)))
}

// TestSproutSpendingKey covers the indexes populated by AddSpendingKey.
func TestSproutSpendingKey(t *testing.T) {
	s := NewBasicStore()
	sk := newSproutKey(t)
	addr := sk.Address()

	require.True(t, s.AddSpendingKey(sk))
	require.True(t, s.HaveSpendingKey(addr))

	got, ok := s.GetSpendingKey(addr)
	require.True(t, ok)
	require.Equal(t, sk, got)

	dec, ok := s.GetNoteDecryptor(addr)
	require.True(t, ok)
	require.Equal(t, zcash.NewNoteDecryptor(sk.ViewingKey()), dec)

	// The viewing key map is populated only by AddSproutViewingKey.
	require.False(t, s.HaveSproutViewingKey(addr))
	require.Equal(t, []zcash.SproutPaymentAddress{addr},
		s.GetPaymentAddresses())
}

// TestSproutViewingKeyRemoval checks that removing a viewing key leaves a
// separately added spending key and its decryptor in place.
func TestSproutViewingKeyRemoval(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewBasicStore()
		sk := sproutKeyGen.Draw(t, "sk")
		vk := sk.ViewingKey()
		addr := vk.Address()

		s.AddSpendingKey(sk)
		s.AddSproutViewingKey(vk)
		if !s.RemoveSproutViewingKey(vk) {
			t.Fatalf("RemoveSproutViewingKey failed")
		}

		if s.HaveSproutViewingKey(addr) {
			t.Fatalf("viewing key still present")
		}
		if !s.HaveSpendingKey(addr) {
			t.Fatalf("spending key removed with viewing key")
		}
		if _, ok := s.GetNoteDecryptor(addr); !ok {
			t.Fatalf("decryptor removed while spending key remains")
		}
	})
}

// TestSproutViewingOnly checks a viewing key on its own, including removal
// of its decryptor.
func TestSproutViewingOnly(t *testing.T) {
	s := NewBasicStore()
	vk := newSproutKey(t).ViewingKey()
	addr := vk.Address()

	require.True(t, s.AddSproutViewingKey(vk))
	require.True(t, s.HaveSproutViewingKey(addr))
	require.False(t, s.HaveSpendingKey(addr))

	got, ok := s.GetSproutViewingKey(addr)
	require.True(t, ok)
	require.Equal(t, vk, got)

	_, ok = s.GetNoteDecryptor(addr)
	require.True(t, ok)

	require.True(t, s.RemoveSproutViewingKey(vk))
	_, ok = s.GetNoteDecryptor(addr)
	require.False(t, ok)
	require.Empty(t, s.GetPaymentAddresses())
}

// TestSproutAddressUnion checks GetPaymentAddresses over partially
// overlapping spending and viewing key sets.
func TestSproutAddressUnion(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewBasicStore()
		keys := rapid.SliceOfN(sproutKeyGen, 1, 8).Draw(t, "keys")
		spend := rapid.SliceOfN(rapid.Bool(), len(keys), len(keys)).
			Draw(t, "spend")
		view := rapid.SliceOfN(rapid.Bool(), len(keys), len(keys)).
			Draw(t, "view")

		want := make(map[zcash.SproutPaymentAddress]struct{})
		for i, sk := range keys {
			if spend[i] {
				s.AddSpendingKey(sk)
				want[sk.Address()] = struct{}{}
			}
			if view[i] {
				s.AddSproutViewingKey(sk.ViewingKey())
				want[sk.Address()] = struct{}{}
			}
		}

		got := s.GetPaymentAddresses()
		if len(got) != len(want) {
			t.Fatalf("got %d addresses, want %d", len(got),
				len(want))
		}
		for i, addr := range got {
			if _, ok := want[addr]; !ok {
				t.Fatalf("unexpected address %v", spew.Sdump(addr))
			}
			if i > 0 && !got[i-1].Less(addr) {
				t.Fatalf("addresses not sorted and unique")
			}
		}
	})
}

// TestSaplingDerivationAtomic checks that adding a spending key makes its
// full viewing key reachable from its incoming viewing key.
func TestSaplingDerivationAtomic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewBasicStore()
		sk := saplingKeyGen.Draw(t, "sk")
		fvk := sk.FullViewingKey()

		none := fn.None[zcash.SaplingPaymentAddress]()
		if !s.AddSaplingSpendingKey(sk, none) {
			t.Fatalf("AddSaplingSpendingKey failed")
		}

		gotFvk, ok := s.GetSaplingFullViewingKey(fvk.IncomingViewingKey())
		if !ok || gotFvk != fvk {
			t.Fatalf("full viewing key not indexed by ivk")
		}
		gotSk, ok := s.GetSaplingSpendingKey(fvk)
		if !ok || gotSk != sk {
			t.Fatalf("spending key not indexed by fvk")
		}
		if len(s.GetSaplingPaymentAddresses()) != 0 {
			t.Fatalf("address indexed without being supplied")
		}
	})
}

// TestSaplingScenario walks through adding one key without and one key with
// a default address.
func TestSaplingScenario(t *testing.T) {
	s := NewBasicStore()
	sk1 := newSaplingKey(t)
	sk2 := newSaplingKey(t)

	require.True(t, s.AddSaplingSpendingKey(
		sk1, fn.None[zcash.SaplingPaymentAddress](),
	))
	require.Empty(t, s.GetSaplingPaymentAddresses())

	addr2 := sk2.DefaultAddress()
	require.True(t, s.AddSaplingSpendingKey(sk2, fn.Some(addr2)))
	require.Equal(t, []zcash.SaplingPaymentAddress{addr2},
		s.GetSaplingPaymentAddresses())

	ivk, ok := s.GetSaplingIncomingViewingKey(addr2)
	require.True(t, ok)
	require.Equal(t, sk2.FullViewingKey().IncomingViewingKey(), ivk)
	require.True(t, s.HaveSaplingIncomingViewingKey(addr2))

	require.Len(t, s.GetSaplingFullViewingKeys(), 2)
}

// TestSaplingViewingOnly checks that a full viewing key can be held without
// its spending key.
func TestSaplingViewingOnly(t *testing.T) {
	s := NewBasicStore()
	sk := newSaplingKey(t)
	fvk := sk.FullViewingKey()
	ivk := fvk.IncomingViewingKey()
	addr := sk.DefaultAddress()

	require.True(t, s.AddSaplingFullViewingKey(fvk, fn.Some(addr)))
	require.True(t, s.HaveSaplingFullViewingKey(ivk))
	require.False(t, s.HaveSaplingSpendingKey(fvk))

	gotIvk, ok := s.GetSaplingIncomingViewingKey(addr)
	require.True(t, ok)
	gotFvk, ok := s.GetSaplingFullViewingKey(gotIvk)
	require.True(t, ok)
	require.Equal(t, fvk, gotFvk)
}

// TestSaplingUncheckedAddress checks that the store indexes a supplied
// default address as given, without re-deriving it from the key.
func TestSaplingUncheckedAddress(t *testing.T) {
	s := NewBasicStore()
	sk := newSaplingKey(t)
	fvk := sk.FullViewingKey()
	ivk := fvk.IncomingViewingKey()
	other := newSaplingKey(t).DefaultAddress()

	require.True(t, s.AddSaplingFullViewingKey(fvk, fn.Some(other)))
	require.True(t, s.HaveSaplingFullViewingKey(ivk))
	gotIvk, ok := s.GetSaplingIncomingViewingKey(other)
	require.True(t, ok)
	require.Equal(t, ivk, gotIvk)

	require.True(t, s.AddSaplingSpendingKey(sk, fn.Some(other)))
	require.True(t, s.HaveSaplingSpendingKey(fvk))
	require.Equal(t, []zcash.SaplingPaymentAddress{other},
		s.GetSaplingPaymentAddresses())
}

// TestConcurrentInsert checks that N writers each adding M distinct keys
// leave exactly N*M keys behind.
func TestConcurrentInsert(t *testing.T) {
	const (
		numWriters = 8
		numKeys    = 32
	)

	s := NewBasicStore()

	var g errgroup.Group
	for i := 0; i < numWriters; i++ {
		g.Go(func() error {
			for j := 0; j < numKeys; j++ {
				priv, err := btcec.NewPrivateKey()
				if err != nil {
					return err
				}
				s.AddKey(priv)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	ids := s.GetKeys()
	require.Len(t, ids, numWriters*numKeys)
	for i := 1; i < len(ids); i++ {
		require.True(t, ids[i-1].Less(ids[i]))
	}
}

// TestConcurrentPartitions runs writers and readers on both partitions at
// once.
func TestConcurrentPartitions(t *testing.T) {
	const numOps = 64

	s := NewBasicStore()

	var g errgroup.Group
	g.Go(func() error {
		for i := 0; i < numOps; i++ {
			priv, err := btcec.NewPrivateKey()
			if err != nil {
				return err
			}
			s.AddKey(priv)
			s.AddWatchOnly(priv.PubKey().SerializeCompressed())
		}
		return nil
	})
	g.Go(func() error {
		for i := 0; i < numOps; i++ {
			sk, err := zcash.RandomSproutSpendingKey()
			if err != nil {
				return err
			}
			s.AddSpendingKey(sk)
		}
		return nil
	})
	g.Go(func() error {
		for i := 0; i < numOps; i++ {
			sk, err := zcash.RandomSaplingSpendingKey()
			if err != nil {
				return err
			}
			s.AddSaplingSpendingKey(sk, fn.Some(sk.DefaultAddress()))
		}
		return nil
	})
	g.Go(func() error {
		for i := 0; i < numOps; i++ {
			for _, addr := range s.GetSaplingPaymentAddresses() {
				ivk, ok := s.GetSaplingIncomingViewingKey(addr)
				if !ok || !s.HaveSaplingFullViewingKey(ivk) {
					t.Errorf("partially visible sapling entry")
				}
			}
			for _, id := range s.GetKeys() {
				if _, ok := s.GetPubKey(id); !ok {
					t.Errorf("listed key %v missing", id)
				}
			}
		}
		return nil
	})
	require.NoError(t, g.Wait())

	require.Len(t, s.GetKeys(), numOps)
	require.Len(t, s.GetWatchOnly(), numOps)
	require.Len(t, s.GetPaymentAddresses(), numOps)
	require.Len(t, s.GetSaplingPaymentAddresses(), numOps)
}
