package zcash

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/zkeystore/netparams"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// sproutKeyGen draws Sprout spending keys within the 252-bit range.
var sproutKeyGen = rapid.Custom(func(t *rapid.T) SproutSpendingKey {
	var sk SproutSpendingKey
	copy(sk[:], rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "sk"))
	sk[0] &= 0x0f
	return sk
})

// saplingKeyGen draws arbitrary Sapling spending keys.
var saplingKeyGen = rapid.Custom(func(t *rapid.T) SaplingSpendingKey {
	var sk SaplingSpendingKey
	copy(sk[:], rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "sk"))
	return sk
})

// TestSproutDerivationConsistent checks that the address reached through the
// viewing key is the address derived directly from the spending key, and
// that the note decryptor answers for it.
func TestSproutDerivationConsistent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sk := sproutKeyGen.Draw(t, "sk")

		vk := sk.ViewingKey()
		addr := sk.Address()
		if vk.Address() != addr {
			t.Fatalf("viewing key address mismatch")
		}
		if NewNoteDecryptor(vk).PkEnc() != addr.PkEnc {
			t.Fatalf("decryptor pk_enc mismatch")
		}
	})
}

// TestSproutSharedSecret verifies both sides of the note key agreement
// reach the same secret.
func TestSproutSharedSecret(t *testing.T) {
	sk, err := RandomSproutSpendingKey()
	require.NoError(t, err)
	dec := NewNoteDecryptor(sk.ViewingKey())

	esk, err := RandomSproutSpendingKey()
	require.NoError(t, err)
	eskEnc := esk.receivingKey()
	epk := encryptionPublicKey(&eskEnc)

	recv, err := dec.SharedSecret(epk)
	require.NoError(t, err)

	pkEnc := dec.PkEnc()
	var senderKey [32]byte
	copy(senderKey[:], eskEnc[:])
	send := NewNoteDecryptor(SproutViewingKey{SkEnc: senderKey})
	sent, err := send.SharedSecret(pkEnc)
	require.NoError(t, err)
	require.Equal(t, sent, recv)
}

// TestSproutSpendingKeyRange ensures keys with any of the top four bits set
// are rejected.
func TestSproutSpendingKeyRange(t *testing.T) {
	b := make([]byte, SproutSpendingKeySize)
	b[0] = 0x10
	_, err := SproutSpendingKeyFromBytes(b)
	require.ErrorIs(t, err, ErrSproutKeyRange)

	b[0] = 0x0f
	sk, err := SproutSpendingKeyFromBytes(b)
	require.NoError(t, err)
	require.Equal(t, byte(0x0f), sk[0])

	_, err = SproutSpendingKeyFromBytes(b[:31])
	require.ErrorIs(t, err, ErrInvalidLength)
}

// TestSaplingDerivationDeterministic checks the spending key to default
// address chain is stable and internally consistent.
func TestSaplingDerivationDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sk := saplingKeyGen.Draw(t, "sk")

		fvk := sk.FullViewingKey()
		if fvk != sk.FullViewingKey() {
			t.Fatalf("fvk derivation not deterministic")
		}
		ivk := fvk.IncomingViewingKey()
		if ivk[31]&0xf8 != 0 {
			t.Fatalf("ivk exceeds 251 bits: %x", ivk)
		}

		addr := sk.DefaultAddress()
		if !addr.Diversifier.IsValid() {
			t.Fatalf("default diversifier invalid")
		}
		again, ok := ivk.Address(addr.Diversifier)
		if !ok || again != addr {
			t.Fatalf("default address not reachable from ivk")
		}
	})
}

// TestSaplingInvalidDiversifier ensures an invalid diversifier produces no
// address.
func TestSaplingInvalidDiversifier(t *testing.T) {
	var (
		d     Diversifier
		found bool
	)
	for i := 0; i < 1<<16 && !found; i++ {
		d[0], d[1] = byte(i), byte(i>>8)
		found = !d.IsValid()
	}
	require.True(t, found, "no invalid diversifier in search space")

	var ivk SaplingIncomingViewingKey
	_, ok := ivk.Address(d)
	require.False(t, ok)
}

// TestAddressEncoding exercises the string encodings of every address kind
// and their network checks.
func TestAddressEncoding(t *testing.T) {
	params := &netparams.MainNetParams

	sprout, err := RandomSproutSpendingKey()
	require.NoError(t, err)
	sproutAddr := sprout.Address()
	s := EncodeSproutAddress(sproutAddr, params)
	require.Equal(t, "zc", s[:2])
	got, err := DecodeSproutAddress(s, params)
	require.NoError(t, err)
	require.Equal(t, sproutAddr, got)
	_, err = DecodeSproutAddress(s, &netparams.TestNetParams)
	require.ErrorIs(t, err, ErrWrongNetwork)

	sapling, err := RandomSaplingSpendingKey()
	require.NoError(t, err)
	saplingAddr := sapling.DefaultAddress()
	s, err = EncodeSaplingAddress(saplingAddr, params)
	require.NoError(t, err)
	require.Equal(t, "zs1", s[:3])
	gotSapling, err := DecodeSaplingAddress(s, params)
	require.NoError(t, err)
	require.Equal(t, saplingAddr, gotSapling)
	_, err = DecodeSaplingAddress(s, &netparams.RegTestParams)
	require.ErrorIs(t, err, ErrWrongNetwork)

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	id := NewKeyID(priv.PubKey())
	s = EncodePubKeyHashAddress(id, params)
	require.Equal(t, "t1", s[:2])
	gotID, err := DecodePubKeyHashAddress(s, params)
	require.NoError(t, err)
	require.Equal(t, id, gotID)

	corrupt := []byte(s)
	if corrupt[5] == 'a' {
		corrupt[5] = 'b'
	} else {
		corrupt[5] = 'a'
	}
	_, err = DecodePubKeyHashAddress(string(corrupt), params)
	require.Error(t, err)
}
