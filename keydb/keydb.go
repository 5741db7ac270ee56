// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package keydb persists key stores in a walletdb namespace.
//
// Every record is a TLV stream.  Plaintext spending keys are only ever
// written for stores that have not been encrypted; an encrypted store writes
// its ciphertexts along with the master key parameters needed to unlock it.
package keydb

import (
	"time"

	"github.com/btcsuite/btcwallet/walletdb"
	_ "github.com/btcsuite/btcwallet/walletdb/bdb" // Register bdb driver.
	"github.com/btcsuite/zkeystore/keystore"
	"github.com/btcsuite/zkeystore/zcash"
	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// DefaultDBTimeout is how long opening the database waits for the
	// file lock.
	DefaultDBTimeout = 10 * time.Second
)

// CreateDB creates a new bolt database at dbPath.
func CreateDB(dbPath string) (walletdb.DB, error) {
	db, err := walletdb.Create("bdb", dbPath, true, DefaultDBTimeout)
	if err != nil {
		return nil, maybeConvertDbError(err)
	}
	return db, nil
}

// OpenDB opens an existing bolt database at dbPath.
func OpenDB(dbPath string) (walletdb.DB, error) {
	db, err := walletdb.Open("bdb", dbPath, true, DefaultDBTimeout)
	if err != nil {
		return nil, maybeConvertDbError(err)
	}
	return db, nil
}

// Init creates the key store namespace of db.
func Init(db walletdb.DB) error {
	err := walletdb.Update(db, func(tx walletdb.ReadWriteTx) error {
		ns, err := tx.CreateTopLevelBucket(NamespaceKey)
		if err != nil {
			return err
		}
		return Create(ns)
	})
	return maybeConvertDbError(err)
}

// Save writes cs to the key store namespace of db in a single transaction.
func Save(db walletdb.DB, cs *keystore.CryptoStore) error {
	err := walletdb.Update(db, func(tx walletdb.ReadWriteTx) error {
		ns := tx.ReadWriteBucket(NamespaceKey)
		if ns == nil {
			str := "key store namespace does not exist"
			return dbError(keystore.ErrNoExist, str, nil)
		}
		return Store(ns, cs)
	})
	return maybeConvertDbError(err)
}

// Read loads the key store held in the namespace of db.
func Read(db walletdb.DB,
	scryptOpts *keystore.ScryptOptions) (*keystore.CryptoStore, error) {

	var cs *keystore.CryptoStore
	err := walletdb.View(db, func(tx walletdb.ReadTx) error {
		ns := tx.ReadBucket(NamespaceKey)
		if ns == nil {
			str := "key store namespace does not exist"
			return dbError(keystore.ErrNoExist, str, nil)
		}

		var err error
		cs, err = Load(ns, scryptOpts)
		return err
	})
	if err != nil {
		return nil, maybeConvertDbError(err)
	}
	return cs, nil
}

// Store replaces the contents of ns with a snapshot of cs.  The wrapped store
// supplies the plaintext entries and, when cs is encrypted, the crypted
// entries and master key parameters are written alongside.
func Store(ns walletdb.ReadWriteBucket, cs *keystore.CryptoStore) error {
	if err := StoreBasic(ns, cs.Base()); err != nil {
		return err
	}

	if !cs.IsCrypted() {
		return nil
	}

	err := putMasterKeys(ns, cs.MasterKeyParams(), cs.CryptoKeyEncrypted())
	if err != nil {
		return err
	}

	for id, ck := range cs.CryptedKeys() {
		row, err := serializeCryptedKey(ck.PubKey, ck.Ciphertext)
		if err != nil {
			return dbError(keystore.ErrDatabase, "failed to "+
				"serialize crypted key", err)
		}
		err = putRow(ns, id[:], row, cryptedBucketName,
			cryptedKeysBucketName)
		if err != nil {
			return err
		}
	}

	for addr, ck := range cs.CryptedSproutSpendingKeys() {
		row, err := serializeCryptedSproutKey(ck.ViewingKey, ck.Ciphertext)
		if err != nil {
			return dbError(keystore.ErrDatabase, "failed to "+
				"serialize crypted sprout key", err)
		}
		err = putRow(ns, addr.Bytes(), row, cryptedBucketName,
			cryptedSproutBucketName)
		if err != nil {
			return err
		}
	}

	for fvk, ct := range cs.CryptedSaplingSpendingKeys() {
		row, err := serializeCryptedSaplingKey(ct)
		if err != nil {
			return dbError(keystore.ErrDatabase, "failed to "+
				"serialize crypted sapling key", err)
		}
		err = putRow(ns, fvk.Bytes(), row, cryptedBucketName,
			cryptedSaplingBucketName)
		if err != nil {
			return err
		}
	}

	log.Debugf("Stored encrypted key store")
	return nil
}

// StoreBasic replaces the contents of ns with a snapshot of ks, enumerated
// through its contract.  Every listed spending key must be retrievable, so
// a locked store fails with ErrLocked.
func StoreBasic(ns walletdb.ReadWriteBucket, ks keystore.KeyStore) error {
	if err := resetSnapshot(ns); err != nil {
		return err
	}

	if err := storeTransparent(ns, ks); err != nil {
		return err
	}
	if err := storeSprout(ns, ks); err != nil {
		return err
	}
	return storeSapling(ns, ks)
}

// lockedError is returned when a listed spending key cannot be retrieved.
func lockedError(what string) error {
	str := "cannot retrieve " + what + " from a locked key store"
	return dbError(keystore.ErrLocked, str, nil)
}

// storeTransparent writes the transparent keys, scripts and watch-only set.
func storeTransparent(ns walletdb.ReadWriteBucket, ks keystore.KeyStore) error {
	ids := ks.GetKeys()
	for _, id := range ids {
		priv, ok := ks.GetKey(id)
		if !ok {
			return lockedError("transparent key")
		}
		pub, ok := ks.GetPubKey(id)
		if !ok {
			return lockedError("transparent public key")
		}

		row, err := serializeKey(priv, pub)
		priv.Zero()
		if err != nil {
			return dbError(keystore.ErrDatabase, "failed to "+
				"serialize key", err)
		}
		if err := putRow(ns, id[:], row, keysBucketName); err != nil {
			return err
		}
	}

	scriptIDs := ks.GetCScripts()
	for _, id := range scriptIDs {
		script, ok := ks.GetCScript(id)
		if !ok {
			continue
		}
		row, err := serializeScript(script)
		if err != nil {
			return dbError(keystore.ErrDatabase, "failed to "+
				"serialize script", err)
		}
		if err := putRow(ns, id[:], row, scriptsBucketName); err != nil {
			return err
		}
	}

	watched := ks.GetWatchOnly()
	for _, script := range watched {
		id := zcash.NewScriptID(script)
		row, err := serializeScript(script)
		if err != nil {
			return dbError(keystore.ErrDatabase, "failed to "+
				"serialize watch-only script", err)
		}
		if err := putRow(ns, id[:], row, watchOnlyBucketName); err != nil {
			return err
		}
	}

	log.Debugf("Stored %d transparent keys, %d scripts, %d watch-only "+
		"scripts", len(ids), len(scriptIDs), len(watched))
	return nil
}

// storeSprout writes the Sprout spending and viewing keys.
func storeSprout(ns walletdb.ReadWriteBucket, ks keystore.KeyStore) error {
	for _, addr := range ks.GetPaymentAddresses() {
		if ks.HaveSpendingKey(addr) {
			sk, ok := ks.GetSpendingKey(addr)
			if !ok {
				return lockedError("sprout spending key")
			}
			row, err := serializeSproutSpendingKey(sk)
			if err != nil {
				return dbError(keystore.ErrDatabase, "failed "+
					"to serialize sprout spending key", err)
			}
			err = putRow(ns, addr.Bytes(), row, sproutSKBucketName)
			if err != nil {
				return err
			}
		}

		if vk, ok := ks.GetSproutViewingKey(addr); ok {
			row, err := serializeSproutViewingKey(vk)
			if err != nil {
				return dbError(keystore.ErrDatabase, "failed "+
					"to serialize sprout viewing key", err)
			}
			err = putRow(ns, addr.Bytes(), row, sproutVKBucketName)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// storeSapling writes the Sapling full viewing keys with their indexed
// addresses, and the Sapling spending keys.
func storeSapling(ns walletdb.ReadWriteBucket, ks keystore.KeyStore) error {
	addrsByIvk := make(map[zcash.SaplingIncomingViewingKey][]zcash.SaplingPaymentAddress)
	for _, addr := range ks.GetSaplingPaymentAddresses() {
		ivk, ok := ks.GetSaplingIncomingViewingKey(addr)
		if !ok {
			continue
		}
		addrsByIvk[ivk] = append(addrsByIvk[ivk], addr)
	}

	for _, fvk := range ks.GetSaplingFullViewingKeys() {
		addrs := addrsByIvk[fvk.IncomingViewingKey()]
		row, err := serializeSaplingAddresses(addrs)
		if err != nil {
			return dbError(keystore.ErrDatabase, "failed to "+
				"serialize sapling addresses", err)
		}
		err = putRow(ns, fvk.Bytes(), row, saplingFVKBucketName)
		if err != nil {
			return err
		}

		if !ks.HaveSaplingSpendingKey(fvk) {
			continue
		}
		sk, ok := ks.GetSaplingSpendingKey(fvk)
		if !ok {
			return lockedError("sapling spending key")
		}
		row, err = serializeSaplingSpendingKey(sk)
		if err != nil {
			return dbError(keystore.ErrDatabase, "failed to "+
				"serialize sapling spending key", err)
		}
		err = putRow(ns, fvk.Bytes(), row, saplingSKBucketName)
		if err != nil {
			return err
		}
	}
	return nil
}

// Load reads the key store held in ns.  An encrypted store is returned
// locked.
func Load(ns walletdb.ReadBucket,
	scryptOpts *keystore.ScryptOptions) (*keystore.CryptoStore, error) {

	version, err := fetchVersion(ns)
	if err != nil {
		return nil, err
	}
	if version != LatestVersion {
		str := "unsupported key database version"
		return nil, dbError(keystore.ErrCorrupt, str, nil)
	}

	base, err := LoadBasic(ns)
	if err != nil {
		return nil, err
	}

	params, cryptoKeyEncrypted, err := fetchMasterKeys(ns)
	if err != nil {
		return nil, err
	}
	if params == nil {
		return keystore.NewCryptoStore(base, scryptOpts), nil
	}

	cs, err := keystore.RestoreCryptoStore(
		base, params, cryptoKeyEncrypted, scryptOpts,
	)
	if err != nil {
		return nil, err
	}
	if err := loadCrypted(ns, cs); err != nil {
		return nil, err
	}

	log.Debugf("Loaded encrypted key store")
	return cs, nil
}

// rejected is returned when the store refuses a persisted entry.
func rejected(what string) error {
	return dbError(keystore.ErrCorrupt, "key store rejected "+what, nil)
}

// loadCrypted adds the crypted entries of ns to cs.
func loadCrypted(ns walletdb.ReadBucket, cs *keystore.CryptoStore) error {
	err := forEachRow(ns, func(k, v []byte) error {
		pub, ct, err := deserializeCryptedKey(v)
		if err != nil {
			return err
		}
		id := zcash.NewKeyID(pub)
		if string(id[:]) != string(k) {
			return rejected("crypted key under foreign key id")
		}
		if !cs.AddCryptedKey(pub, ct) {
			return rejected("crypted key")
		}
		return nil
	}, cryptedBucketName, cryptedKeysBucketName)
	if err != nil {
		return err
	}

	err = forEachRow(ns, func(k, v []byte) error {
		vk, ct, err := deserializeCryptedSproutKey(v)
		if err != nil {
			return err
		}
		if !cs.AddCryptedSpendingKey(vk, ct) {
			return rejected("crypted sprout key")
		}
		return nil
	}, cryptedBucketName, cryptedSproutBucketName)
	if err != nil {
		return err
	}

	return forEachRow(ns, func(k, v []byte) error {
		fvk, err := zcash.SaplingFullViewingKeyFromBytes(k)
		if err != nil {
			return err
		}
		ct, err := deserializeCryptedSaplingKey(v)
		if err != nil {
			return err
		}
		none := fn.None[zcash.SaplingPaymentAddress]()
		if !cs.AddCryptedSaplingSpendingKey(fvk, none, ct) {
			return rejected("crypted sapling key")
		}
		return nil
	}, cryptedBucketName, cryptedSaplingBucketName)
}

// LoadBasic reads the plaintext entries of ns into a new BasicStore.
func LoadBasic(ns walletdb.ReadBucket) (*keystore.BasicStore, error) {
	s := keystore.NewBasicStore()

	err := forEachRow(ns, func(k, v []byte) error {
		priv, pub, err := deserializeKey(v)
		if err != nil {
			return err
		}
		defer priv.Zero()

		id := zcash.NewKeyID(pub)
		if string(id[:]) != string(k) {
			return rejected("transparent key under foreign key id")
		}
		if !priv.PubKey().IsEqual(pub) {
			return rejected("transparent key with foreign public key")
		}
		if !s.AddKeyPubKey(priv, pub) {
			return rejected("transparent key")
		}
		return nil
	}, keysBucketName)
	if err != nil {
		return nil, err
	}

	err = forEachRow(ns, func(k, v []byte) error {
		script, err := deserializeScript(v)
		if err != nil {
			return err
		}
		if !s.AddCScript(script) {
			return rejected("redeem script")
		}
		return nil
	}, scriptsBucketName)
	if err != nil {
		return nil, err
	}

	err = forEachRow(ns, func(k, v []byte) error {
		script, err := deserializeScript(v)
		if err != nil {
			return err
		}
		s.AddWatchOnly(script)
		return nil
	}, watchOnlyBucketName)
	if err != nil {
		return nil, err
	}

	if err := loadSprout(ns, s); err != nil {
		return nil, err
	}
	if err := loadSapling(ns, s); err != nil {
		return nil, err
	}

	return s, nil
}

// loadSprout reads the Sprout spending and viewing keys of ns into s.
func loadSprout(ns walletdb.ReadBucket, s *keystore.BasicStore) error {
	err := forEachRow(ns, func(k, v []byte) error {
		sk, err := deserializeSproutSpendingKey(v)
		if err != nil {
			return err
		}
		addr := sk.Address()
		if string(addr.Bytes()) != string(k) {
			return rejected("sprout spending key under foreign " +
				"address")
		}
		s.AddSpendingKey(sk)
		return nil
	}, sproutSKBucketName)
	if err != nil {
		return err
	}

	return forEachRow(ns, func(k, v []byte) error {
		vk, err := deserializeSproutViewingKey(v)
		if err != nil {
			return err
		}
		s.AddSproutViewingKey(vk)
		return nil
	}, sproutVKBucketName)
}

// loadSapling reads the Sapling full viewing keys, their addresses and the
// Sapling spending keys of ns into s.
func loadSapling(ns walletdb.ReadBucket, s *keystore.BasicStore) error {
	err := forEachRow(ns, func(k, v []byte) error {
		fvk, err := zcash.SaplingFullViewingKeyFromBytes(k)
		if err != nil {
			return err
		}
		addrs, err := deserializeSaplingAddresses(v)
		if err != nil {
			return err
		}

		if len(addrs) == 0 {
			none := fn.None[zcash.SaplingPaymentAddress]()
			if !s.AddSaplingFullViewingKey(fvk, none) {
				return rejected("sapling full viewing key")
			}
			return nil
		}
		for _, addr := range addrs {
			if !s.AddSaplingFullViewingKey(fvk, fn.Some(addr)) {
				return rejected("sapling address")
			}
		}
		return nil
	}, saplingFVKBucketName)
	if err != nil {
		return err
	}

	return forEachRow(ns, func(k, v []byte) error {
		fvk, err := zcash.SaplingFullViewingKeyFromBytes(k)
		if err != nil {
			return err
		}
		sk, err := deserializeSaplingSpendingKey(v)
		if err != nil {
			return err
		}
		if sk.FullViewingKey() != fvk {
			return rejected("sapling spending key under foreign " +
				"full viewing key")
		}

		none := fn.None[zcash.SaplingPaymentAddress]()
		if !s.AddSaplingSpendingKey(sk, none) {
			return rejected("sapling spending key")
		}
		return nil
	}, saplingSKBucketName)
}
