// Copyright (c) 2014-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keydb

import (
	"encoding/binary"

	"github.com/btcsuite/btcwallet/walletdb"
	"github.com/btcsuite/zkeystore/keystore"
)

const (
	// LatestVersion is the most recent key database version.
	LatestVersion uint32 = 1
)

var (
	// NamespaceKey is the top-level bucket holding a key store.
	NamespaceKey = []byte("zkeystore")

	keysBucketName       = []byte("keys")
	scriptsBucketName    = []byte("scripts")
	watchOnlyBucketName  = []byte("watchonly")
	sproutSKBucketName   = []byte("sproutsk")
	sproutVKBucketName   = []byte("sproutvk")
	saplingSKBucketName  = []byte("saplingsk")
	saplingFVKBucketName = []byte("saplingfvk")
	cryptedBucketName    = []byte("crypted")
	metaBucketName       = []byte("meta")

	// Nested buckets of the crypted bucket.
	cryptedKeysBucketName    = []byte("keys")
	cryptedSproutBucketName  = []byte("sprout")
	cryptedSaplingBucketName = []byte("sapling")

	// Keys of the meta bucket.
	versionKeyName         = []byte("version")
	masterKeyParamsName    = []byte("masterkeyparams")
	cryptoKeyEncryptedName = []byte("cryptokeyenc")
)

// snapshotBuckets are the buckets rewritten in full on every store.
var snapshotBuckets = [][]byte{
	keysBucketName,
	scriptsBucketName,
	watchOnlyBucketName,
	sproutSKBucketName,
	sproutVKBucketName,
	saplingSKBucketName,
	saplingFVKBucketName,
	cryptedBucketName,
}

// dbError wraps err in a keystore error with the given code.
func dbError(code keystore.ErrorCode, str string, err error) error {
	return keystore.NewError(code, str, err)
}

// maybeConvertDbError converts the passed error to a keystore Error with an
// error code of ErrDatabase if it is not already a keystore Error.
func maybeConvertDbError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(keystore.Error); ok {
		return err
	}
	return dbError(keystore.ErrDatabase, err.Error(), err)
}

// Create creates the buckets of a new key store in ns and records the
// current version.
func Create(ns walletdb.ReadWriteBucket) error {
	for _, name := range append(snapshotBuckets, metaBucketName) {
		if _, err := ns.CreateBucketIfNotExists(name); err != nil {
			str := "failed to create bucket " + string(name)
			return dbError(keystore.ErrDatabase, str, err)
		}
	}

	if err := resetCryptedBucket(ns); err != nil {
		return err
	}

	return putVersion(ns, LatestVersion)
}

// Exists returns whether ns holds a key store.
func Exists(ns walletdb.ReadBucket) bool {
	return ns.NestedReadBucket(metaBucketName) != nil
}

// resetSnapshot empties every snapshot bucket of ns.
func resetSnapshot(ns walletdb.ReadWriteBucket) error {
	for _, name := range snapshotBuckets {
		if err := ns.DeleteNestedBucket(name); err != nil &&
			err != walletdb.ErrBucketNotFound {

			str := "failed to delete bucket " + string(name)
			return dbError(keystore.ErrDatabase, str, err)
		}
		if _, err := ns.CreateBucket(name); err != nil {
			str := "failed to create bucket " + string(name)
			return dbError(keystore.ErrDatabase, str, err)
		}
	}

	return resetCryptedBucket(ns)
}

// resetCryptedBucket creates the nested buckets of the crypted bucket.
func resetCryptedBucket(ns walletdb.ReadWriteBucket) error {
	crypted := ns.NestedReadWriteBucket(cryptedBucketName)
	for _, name := range [][]byte{
		cryptedKeysBucketName,
		cryptedSproutBucketName,
		cryptedSaplingBucketName,
	} {
		if _, err := crypted.CreateBucketIfNotExists(name); err != nil {
			str := "failed to create crypted bucket " + string(name)
			return dbError(keystore.ErrDatabase, str, err)
		}
	}
	return nil
}

// fetchBucket returns the nested bucket name of ns, failing with ErrNoExist
// when it is missing.
func fetchBucket(ns walletdb.ReadBucket,
	name ...[]byte) (walletdb.ReadBucket, error) {

	bucket := ns
	for _, n := range name {
		bucket = bucket.NestedReadBucket(n)
		if bucket == nil {
			str := "bucket " + string(n) + " does not exist"
			return nil, dbError(keystore.ErrNoExist, str, nil)
		}
	}
	return bucket, nil
}

// putVersion stores the key database version.
func putVersion(ns walletdb.ReadWriteBucket, version uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], version)

	meta := ns.NestedReadWriteBucket(metaBucketName)
	if err := meta.Put(versionKeyName, buf[:]); err != nil {
		str := "failed to store version"
		return dbError(keystore.ErrDatabase, str, err)
	}
	return nil
}

// fetchVersion loads the key database version.
func fetchVersion(ns walletdb.ReadBucket) (uint32, error) {
	meta, err := fetchBucket(ns, metaBucketName)
	if err != nil {
		return 0, err
	}

	buf := meta.Get(versionKeyName)
	if len(buf) != 4 {
		str := "malformed key database version"
		return 0, dbError(keystore.ErrCorrupt, str, nil)
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// putMasterKeys stores the master key parameters and the encrypted crypto
// key of an encrypted store.
func putMasterKeys(ns walletdb.ReadWriteBucket, params,
	cryptoKeyEncrypted []byte) error {

	meta := ns.NestedReadWriteBucket(metaBucketName)
	if err := meta.Put(masterKeyParamsName, params); err != nil {
		str := "failed to store master key parameters"
		return dbError(keystore.ErrDatabase, str, err)
	}
	if err := meta.Put(cryptoKeyEncryptedName, cryptoKeyEncrypted); err != nil {
		str := "failed to store encrypted crypto key"
		return dbError(keystore.ErrDatabase, str, err)
	}
	return nil
}

// fetchMasterKeys loads the master key parameters and encrypted crypto key.
// Both are nil for an unencrypted store.
func fetchMasterKeys(ns walletdb.ReadBucket) ([]byte, []byte, error) {
	meta, err := fetchBucket(ns, metaBucketName)
	if err != nil {
		return nil, nil, err
	}

	params := meta.Get(masterKeyParamsName)
	cryptoKeyEncrypted := meta.Get(cryptoKeyEncryptedName)
	if (params == nil) != (cryptoKeyEncrypted == nil) {
		str := "incomplete master key record"
		return nil, nil, dbError(keystore.ErrCorrupt, str, nil)
	}

	// Copy out of the transaction's memory.
	return append([]byte(nil), params...),
		append([]byte(nil), cryptoKeyEncrypted...), nil
}

// putRow stores value under key in the nested bucket path of ns.
func putRow(ns walletdb.ReadWriteBucket, key, value []byte,
	path ...[]byte) error {

	bucket := ns
	for _, name := range path {
		bucket = bucket.NestedReadWriteBucket(name)
	}
	if err := bucket.Put(key, value); err != nil {
		str := "failed to store row in " + string(path[len(path)-1])
		return dbError(keystore.ErrDatabase, str, err)
	}
	return nil
}

// forEachRow calls fn for every row in the nested bucket path of ns,
// wrapping any failure of fn as corruption.
func forEachRow(ns walletdb.ReadBucket, fn func(k, v []byte) error,
	path ...[]byte) error {

	bucket, err := fetchBucket(ns, path...)
	if err != nil {
		return err
	}

	return bucket.ForEach(func(k, v []byte) error {
		if v == nil {
			return nil
		}
		if err := fn(k, v); err != nil {
			if _, ok := err.(keystore.Error); ok {
				return err
			}
			str := "malformed row in " + string(path[len(path)-1])
			return dbError(keystore.ErrCorrupt, str, err)
		}
		return nil
	})
}
