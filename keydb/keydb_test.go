// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keydb

import (
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcwallet/walletdb"
	"github.com/btcsuite/zkeystore/keystore"
	"github.com/btcsuite/zkeystore/zcash"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

var testPassphrase = []byte("keydb test passphrase")

// setupDB creates an initialized key database in a temporary directory.
func setupDB(t *testing.T) walletdb.DB {
	t.Helper()

	db, err := CreateDB(filepath.Join(t.TempDir(), "keys.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	require.NoError(t, Init(db))
	return db
}

// testContents is what populateStore adds to a store.
type testContents struct {
	priv        *btcec.PrivateKey
	script      []byte
	watch       []byte
	sproutSK    zcash.SproutSpendingKey
	sproutVK    zcash.SproutViewingKey
	saplingSK   zcash.SaplingSpendingKey
	saplingNoSK zcash.SaplingSpendingKey
	bareFVK     zcash.SaplingFullViewingKey
}

// populateStore adds one entry of every kind to cs.
func populateStore(t *testing.T, cs *keystore.CryptoStore) *testContents {
	t.Helper()

	var (
		c   testContents
		err error
	)

	c.priv, err = btcec.NewPrivateKey()
	require.NoError(t, err)
	c.script = []byte{0x51, 0x52, 0xae}
	c.watch = []byte{0x76, 0xa9}

	c.sproutSK, err = zcash.RandomSproutSpendingKey()
	require.NoError(t, err)
	viewOnly, err := zcash.RandomSproutSpendingKey()
	require.NoError(t, err)
	c.sproutVK = viewOnly.ViewingKey()

	c.saplingSK, err = zcash.RandomSaplingSpendingKey()
	require.NoError(t, err)
	c.saplingNoSK, err = zcash.RandomSaplingSpendingKey()
	require.NoError(t, err)
	bare, err := zcash.RandomSaplingSpendingKey()
	require.NoError(t, err)
	c.bareFVK = bare.FullViewingKey()

	require.True(t, cs.AddKey(c.priv))
	require.True(t, cs.AddCScript(c.script))
	require.True(t, cs.AddWatchOnly(c.watch))
	require.True(t, cs.AddSpendingKey(c.sproutSK))
	require.True(t, cs.AddSproutViewingKey(c.sproutVK))
	require.True(t, cs.AddSaplingSpendingKey(
		c.saplingSK, fn.Some(c.saplingSK.DefaultAddress()),
	))
	require.True(t, cs.AddSaplingFullViewingKey(
		c.saplingNoSK.FullViewingKey(),
		fn.Some(c.saplingNoSK.DefaultAddress()),
	))
	require.True(t, cs.AddSaplingFullViewingKey(
		c.bareFVK, fn.None[zcash.SaplingPaymentAddress](),
	))

	return &c
}

// requireContents asserts that every entry of c is visible in cs, and that
// spending keys are retrievable only when spendable is set.
func requireContents(t *testing.T, cs *keystore.CryptoStore,
	c *testContents, spendable bool) {

	t.Helper()

	id := zcash.NewKeyID(c.priv.PubKey())
	require.True(t, cs.HaveKey(id))
	pub, ok := cs.GetPubKey(id)
	require.True(t, ok)
	require.True(t, pub.IsEqual(c.priv.PubKey()))

	script, ok := cs.GetCScript(zcash.NewScriptID(c.script))
	require.True(t, ok)
	require.Equal(t, c.script, script)
	require.True(t, cs.HaveWatchOnly(c.watch))
	require.Len(t, cs.GetWatchOnly(), 1)

	sproutAddr := c.sproutSK.Address()
	require.True(t, cs.HaveSpendingKey(sproutAddr))
	require.True(t, cs.HaveSproutViewingKey(c.sproutVK.Address()))
	require.False(t, cs.HaveSproutViewingKey(sproutAddr))
	require.Len(t, cs.GetPaymentAddresses(), 2)
	_, ok = cs.GetNoteDecryptor(sproutAddr)
	require.True(t, ok)
	_, ok = cs.GetNoteDecryptor(c.sproutVK.Address())
	require.True(t, ok)

	fvk := c.saplingSK.FullViewingKey()
	require.True(t, cs.HaveSaplingSpendingKey(fvk))
	require.False(t, cs.HaveSaplingSpendingKey(c.saplingNoSK.FullViewingKey()))
	require.Len(t, cs.GetSaplingFullViewingKeys(), 3)
	require.Len(t, cs.GetSaplingPaymentAddresses(), 2)
	require.True(t, cs.HaveSaplingFullViewingKey(
		c.bareFVK.IncomingViewingKey(),
	))

	ivk, ok := cs.GetSaplingIncomingViewingKey(c.saplingSK.DefaultAddress())
	require.True(t, ok)
	require.Equal(t, fvk.IncomingViewingKey(), ivk)

	priv, ok := cs.GetKey(id)
	require.Equal(t, spendable, ok)
	if spendable {
		require.Equal(t, c.priv.Serialize(), priv.Serialize())
	}
	sproutSK, ok := cs.GetSpendingKey(sproutAddr)
	require.Equal(t, spendable, ok)
	if spendable {
		require.Equal(t, c.sproutSK, sproutSK)
	}
	saplingSK, ok := cs.GetSaplingSpendingKey(fvk)
	require.Equal(t, spendable, ok)
	if spendable {
		require.Equal(t, c.saplingSK, saplingSK)
	}
}

// TestSaveReadPlain round trips an unencrypted store.
func TestSaveReadPlain(t *testing.T) {
	db := setupDB(t)

	cs := keystore.NewCryptoStore(nil, &keystore.FastScryptOptions)
	c := populateStore(t, cs)
	require.NoError(t, Save(db, cs))

	loaded, err := Read(db, &keystore.FastScryptOptions)
	require.NoError(t, err)
	require.False(t, loaded.IsCrypted())
	requireContents(t, loaded, c, true)
}

// TestSaveReadEncrypted round trips an encrypted store and checks that no
// plaintext spending key reaches the database.
func TestSaveReadEncrypted(t *testing.T) {
	db := setupDB(t)

	cs := keystore.NewCryptoStore(nil, &keystore.FastScryptOptions)
	c := populateStore(t, cs)
	require.NoError(t, cs.EncryptKeys(testPassphrase))
	require.NoError(t, Save(db, cs))

	err := walletdb.View(db, func(tx walletdb.ReadTx) error {
		ns := tx.ReadBucket(NamespaceKey)
		for _, name := range [][]byte{
			keysBucketName, sproutSKBucketName, saplingSKBucketName,
		} {
			k, _ := ns.NestedReadBucket(name).ReadCursor().First()
			require.Nil(t, k, "plaintext rows in %s", name)
		}
		return nil
	})
	require.NoError(t, err)

	loaded, err := Read(db, &keystore.FastScryptOptions)
	require.NoError(t, err)
	require.True(t, loaded.IsCrypted())
	require.True(t, loaded.IsLocked())
	requireContents(t, loaded, c, false)

	require.NoError(t, loaded.Unlock(testPassphrase))
	requireContents(t, loaded, c, true)
}

// TestSaveOverwrites checks that a later save replaces earlier contents.
func TestSaveOverwrites(t *testing.T) {
	db := setupDB(t)

	cs := keystore.NewCryptoStore(nil, &keystore.FastScryptOptions)
	script := []byte{0x00, 0x14}
	require.True(t, cs.AddWatchOnly(script))
	require.NoError(t, Save(db, cs))

	require.True(t, cs.RemoveWatchOnly(script))
	require.NoError(t, Save(db, cs))

	loaded, err := Read(db, &keystore.FastScryptOptions)
	require.NoError(t, err)
	require.False(t, loaded.HaveAnyWatchOnly())
}

// TestReadMissingNamespace checks the error for a database without a key
// store.
func TestReadMissingNamespace(t *testing.T) {
	db, err := CreateDB(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = Read(db, nil)
	require.True(t, keystore.IsError(err, keystore.ErrNoExist), "got %v",
		err)

	cs := keystore.NewCryptoStore(nil, nil)
	err = Save(db, cs)
	require.True(t, keystore.IsError(err, keystore.ErrNoExist), "got %v",
		err)
}

// TestReadCorruptRow checks that undecodable rows surface as corruption.
func TestReadCorruptRow(t *testing.T) {
	db := setupDB(t)

	err := walletdb.Update(db, func(tx walletdb.ReadWriteTx) error {
		ns := tx.ReadWriteBucket(NamespaceKey)
		return putRow(ns, []byte{0x01}, []byte{0xff, 0xff},
			keysBucketName)
	})
	require.NoError(t, err)

	_, err = Read(db, nil)
	require.True(t, keystore.IsError(err, keystore.ErrCorrupt), "got %v",
		err)
}

// TestReadMismatchedKeyRow checks that transparent key rows whose key pair
// does not match the row key are refused.
func TestReadMismatchedKeyRow(t *testing.T) {
	privA, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	privB, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	idA := zcash.NewKeyID(privA.PubKey())
	idB := zcash.NewKeyID(privB.PubKey())

	tests := []struct {
		name    string
		id      zcash.KeyID
		priv    *btcec.PrivateKey
		pub     *btcec.PublicKey
		crypted bool
	}{{
		name: "key pair under another id",
		id:   idB,
		priv: privA,
		pub:  privA.PubKey(),
	}, {
		name: "private key of another public key",
		id:   idB,
		priv: privA,
		pub:  privB.PubKey(),
	}, {
		name:    "crypted key under another id",
		id:      idB,
		pub:     privA.PubKey(),
		crypted: true,
	}, {
		name:    "crypted key under its own id",
		id:      idA,
		pub:     privA.PubKey(),
		crypted: true,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			db := setupDB(t)

			cs := keystore.NewCryptoStore(
				nil, &keystore.FastScryptOptions,
			)
			if test.crypted {
				require.NoError(t, cs.EncryptKeys(testPassphrase))
			}
			require.NoError(t, Save(db, cs))

			err := walletdb.Update(db, func(tx walletdb.ReadWriteTx) error {
				ns := tx.ReadWriteBucket(NamespaceKey)
				if test.crypted {
					row, err := serializeCryptedKey(
						test.pub, []byte{0x01, 0x02},
					)
					if err != nil {
						return err
					}
					return putRow(ns, test.id[:], row,
						cryptedBucketName,
						cryptedKeysBucketName)
				}

				row, err := serializeKey(test.priv, test.pub)
				if err != nil {
					return err
				}
				return putRow(ns, test.id[:], row, keysBucketName)
			})
			require.NoError(t, err)

			_, err = Read(db, &keystore.FastScryptOptions)
			if test.id == idA {
				require.NoError(t, err)
				return
			}
			require.True(t, keystore.IsError(
				err, keystore.ErrCorrupt,
			), "got %v", err)
		})
	}
}

// TestReadVersionMismatch checks that unknown versions are refused.
func TestReadVersionMismatch(t *testing.T) {
	db := setupDB(t)

	err := walletdb.Update(db, func(tx walletdb.ReadWriteTx) error {
		return putVersion(tx.ReadWriteBucket(NamespaceKey),
			LatestVersion+1)
	})
	require.NoError(t, err)

	_, err = Read(db, nil)
	require.True(t, keystore.IsError(err, keystore.ErrCorrupt), "got %v",
		err)
}

// TestStoreBasicLocked checks that a locked store cannot be written through
// the contract.
func TestStoreBasicLocked(t *testing.T) {
	db := setupDB(t)

	cs := keystore.NewCryptoStore(nil, &keystore.FastScryptOptions)
	populateStore(t, cs)
	require.NoError(t, cs.EncryptKeys(testPassphrase))
	require.NoError(t, cs.Lock())

	err := walletdb.Update(db, func(tx walletdb.ReadWriteTx) error {
		return StoreBasic(tx.ReadWriteBucket(NamespaceKey), cs)
	})
	require.True(t, keystore.IsError(err, keystore.ErrLocked), "got %v",
		err)
}

// TestSaplingAddressesRecord covers the address list encoding.
func TestSaplingAddressesRecord(t *testing.T) {
	var addrs []zcash.SaplingPaymentAddress
	for i := 0; i < 3; i++ {
		sk, err := zcash.RandomSaplingSpendingKey()
		require.NoError(t, err)
		addrs = append(addrs, sk.DefaultAddress())
	}

	row, err := serializeSaplingAddresses(addrs)
	require.NoError(t, err)
	got, err := deserializeSaplingAddresses(row)
	require.NoError(t, err)
	require.Equal(t, addrs, got)

	row, err = serializeSaplingAddresses(nil)
	require.NoError(t, err)
	got, err = deserializeSaplingAddresses(row)
	require.NoError(t, err)
	require.Empty(t, got)

	bad := []byte{0x01, 0x02, 0x03}
	row, err = serializeScript(bad)
	require.NoError(t, err)
	_, err = deserializeSaplingAddresses(row)
	require.Error(t, err)
}
