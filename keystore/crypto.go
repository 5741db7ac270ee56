// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keystore

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/zkeystore/internal/zero"
	"github.com/btcsuite/zkeystore/snacl"
	"github.com/btcsuite/zkeystore/zcash"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// ScryptOptions is used to hold the scrypt parameters needed when deriving
// the master key from a passphrase.
type ScryptOptions struct {
	N, R, P int
}

// DefaultScryptOptions is the default options used with scrypt.
var DefaultScryptOptions = ScryptOptions{
	N: 262144, // 2^18
	R: 8,
	P: 1,
}

// FastScryptOptions are scrypt options that should be used for testing
// purposes only where speed is more important than security.
var FastScryptOptions = ScryptOptions{
	N: 16,
	R: 8,
	P: 1,
}

// CryptedKey is an encrypted transparent private key along with its public
// key, which stays readable while the store is locked.
type CryptedKey struct {
	PubKey     *btcec.PublicKey
	Ciphertext []byte
}

// CryptedSproutKey is an encrypted Sprout spending key along with the viewing
// key needed to rebuild its address and note decryptor while locked.
type CryptedSproutKey struct {
	ViewingKey zcash.SproutViewingKey
	Ciphertext []byte
}

// CryptoStore wraps a BasicStore and keeps spending authority encrypted
// under a passphrase-derived master key.
//
// Only spending keys are intercepted: transparent private keys, Sprout
// spending keys and Sapling spending keys.  Viewing keys, addresses, note
// decryptors, redeem scripts and watch-only scripts are delegated to the
// wrapped store unchanged.  The crypted maps live under the wrapped store's
// guards (transparent keys under its key lock, shielded keys under its
// spending key lock) so the two-guard partition is preserved and moving a
// key between its plaintext and encrypted form is atomic to readers.
//
// Until EncryptKeys is called the store behaves exactly like the wrapped
// store.  While locked, spending key additions and retrievals report
// failure instead of blocking.
type CryptoStore struct {
	base       *BasicStore
	scryptOpts ScryptOptions

	// adminMtx serializes EncryptKeys, Lock, Unlock and ChangePassphrase.
	// It is always acquired before either guard of the base store and is
	// never acquired while holding one.
	adminMtx           sync.Mutex
	masterKey          *snacl.SecretKey
	cryptoKeyEncrypted []byte

	// cryptoKey is nil while locked.  It is only loaded, and copied out,
	// under one of the base store's guards, which lets Lock wait out every
	// in-flight copy before zeroing it.  cryptoKeyGen changes whenever
	// EncryptKeys installs a new crypto key.
	cryptoKey    atomic.Pointer[snacl.CryptoKey]
	cryptoKeyGen atomic.Uint64
	crypted      atomic.Bool

	// Guarded by base.keyMtx.
	keysCrypted bool
	cryptedKeys map[zcash.KeyID]cryptedKey

	// Guarded by base.spendingKeyMtx.
	spendingKeysCrypted bool
	cryptedSproutKeys   map[zcash.SproutPaymentAddress]CryptedSproutKey
	cryptedSaplingKeys  map[zcash.SaplingFullViewingKey][]byte
}

// cryptedKey is the in-store form of a CryptedKey.
type cryptedKey struct {
	pubKey     btcec.PublicKey
	ciphertext []byte
}

// NewCryptoStore returns an unencrypted CryptoStore wrapping base.  A nil base
// creates a new empty store and nil scrypt options select the defaults.
func NewCryptoStore(base *BasicStore, scryptOpts *ScryptOptions) *CryptoStore {
	if base == nil {
		base = NewBasicStore()
	}
	if scryptOpts == nil {
		scryptOpts = &DefaultScryptOptions
	}

	return &CryptoStore{
		base:               base,
		scryptOpts:         *scryptOpts,
		cryptedKeys:        make(map[zcash.KeyID]cryptedKey),
		cryptedSproutKeys:  make(map[zcash.SproutPaymentAddress]CryptedSproutKey),
		cryptedSaplingKeys: make(map[zcash.SaplingFullViewingKey][]byte),
	}
}

// RestoreCryptoStore returns a locked, encrypted CryptoStore around base from
// persisted master key parameters and the encrypted crypto key.  The crypted
// entries are then added with the AddCrypted methods.
func RestoreCryptoStore(base *BasicStore, masterKeyParams,
	cryptoKeyEncrypted []byte, scryptOpts *ScryptOptions) (*CryptoStore, error) {

	var masterKey snacl.SecretKey
	if err := masterKey.Unmarshal(masterKeyParams); err != nil {
		str := "failed to unmarshal master key parameters"
		return nil, NewError(ErrCorrupt, str, err)
	}

	c := NewCryptoStore(base, scryptOpts)
	c.masterKey = &masterKey
	c.cryptoKeyEncrypted = append([]byte(nil), cryptoKeyEncrypted...)
	c.keysCrypted = true
	c.spendingKeysCrypted = true
	c.crypted.Store(true)

	return c, nil
}

// Base returns the wrapped plaintext store.
func (c *CryptoStore) Base() *BasicStore {
	return c.base
}

// IsCrypted reports whether the spending keys have been encrypted.
func (c *CryptoStore) IsCrypted() bool {
	return c.crypted.Load()
}

// IsLocked reports whether the store is encrypted and currently locked.
func (c *CryptoStore) IsLocked() bool {
	return c.crypted.Load() && c.cryptoKey.Load() == nil
}

// MasterKeyParams returns the serialized, non-secret parameters of the master
// key, or nil when the store is not encrypted.
func (c *CryptoStore) MasterKeyParams() []byte {
	c.adminMtx.Lock()
	defer c.adminMtx.Unlock()

	if c.masterKey == nil {
		return nil
	}
	return c.masterKey.Marshal()
}

// CryptoKeyEncrypted returns the crypto key encrypted under the master key,
// or nil when the store is not encrypted.
func (c *CryptoStore) CryptoKeyEncrypted() []byte {
	c.adminMtx.Lock()
	defer c.adminMtx.Unlock()

	return append([]byte(nil), c.cryptoKeyEncrypted...)
}

// EncryptKeys encrypts every plaintext spending key of the wrapped store
// under a new master key derived from passphrase and removes the plaintext
// copies.  The store is left unlocked.
func (c *CryptoStore) EncryptKeys(passphrase []byte) error {
	c.adminMtx.Lock()
	defer c.adminMtx.Unlock()

	if c.crypted.Load() {
		return NewError(ErrAlreadyEncrypted, "key store is already "+
			"encrypted", nil)
	}

	masterKey, err := snacl.NewSecretKey(
		&passphrase, c.scryptOpts.N, c.scryptOpts.R, c.scryptOpts.P,
	)
	if err != nil {
		return NewError(ErrCrypto, "failed to derive master key", err)
	}
	cryptoKey, err := snacl.GenerateCryptoKey()
	if err != nil {
		return NewError(ErrCrypto, "failed to generate crypto key", err)
	}
	cryptoKeyEncrypted, err := masterKey.Encrypt(cryptoKey[:])
	if err != nil {
		return NewError(ErrCrypto, "failed to encrypt crypto key", err)
	}
	masterKey.Zero()

	c.cryptoKeyGen.Add(1)
	c.cryptoKey.Store(cryptoKey)

	moved, err := c.encryptTransparentKeys(cryptoKey)
	if err != nil {
		c.cryptoKey.Store(nil)
		c.retireCryptoKey(cryptoKey)
		return err
	}
	if err := c.encryptShieldedKeys(cryptoKey); err != nil {
		c.cryptoKey.Store(nil)
		c.restoreTransparentKeys(cryptoKey, moved)
		c.retireCryptoKey(cryptoKey)
		return err
	}

	c.masterKey = masterKey
	c.cryptoKeyEncrypted = cryptoKeyEncrypted
	c.crypted.Store(true)

	log.Infof("Encrypted key store (%d transparent keys moved)",
		len(moved))
	return nil
}

// sameKeyEntry reports whether a and b hold the same key pair.
func sameKeyEntry(a, b *keyEntry) bool {
	return a.privKey.Key.Equals(&b.privKey.Key) &&
		a.pubKey.IsEqual(&b.pubKey)
}

// sealedKey is a plaintext transparent key along with its encrypted form.
type sealedKey struct {
	entry   keyEntry
	crypted cryptedKey
}

// encryptTransparentKeys moves every plaintext transparent key into the
// crypted map and returns the moved plaintext entries.  Keys are encrypted
// with the key lock released, which is retaken only to commit them.  Keys
// added or replaced in the meantime are encrypted in another pass.  Nothing
// is moved on failure.
func (c *CryptoStore) encryptTransparentKeys(
	cryptoKey *snacl.CryptoKey) (map[zcash.KeyID]keyEntry, error) {

	sealed := make(map[zcash.KeyID]sealedKey)
	for {
		c.base.keyMtx.Lock()
		pending := make(map[zcash.KeyID]keyEntry)
		for id, entry := range c.base.keys {
			s, ok := sealed[id]
			if !ok || !sameKeyEntry(&s.entry, &entry) {
				pending[id] = entry
			}
		}

		if len(pending) == 0 {
			moved := make(map[zcash.KeyID]keyEntry, len(c.base.keys))
			for id, entry := range c.base.keys {
				moved[id] = entry
				c.cryptedKeys[id] = sealed[id].crypted
				c.base.removeKey(id)
			}
			c.keysCrypted = true
			c.base.keyMtx.Unlock()

			return moved, nil
		}
		c.base.keyMtx.Unlock()

		for id, entry := range pending {
			ct, err := encryptSecret(cryptoKey, entry.privKey.Serialize())
			if err != nil {
				return nil, err
			}
			sealed[id] = sealedKey{
				entry:   entry,
				crypted: cryptedKey{pubKey: entry.pubKey, ciphertext: ct},
			}
		}
	}
}

// restoreTransparentKeys undoes encryptTransparentKeys after a failed
// EncryptKeys.  The crypto key must already be unpublished so no new key is
// encrypted under it.  Keys that were added in encrypted form since the move
// are decrypted back with the key lock released.  One that cannot be
// decrypted is dropped.
func (c *CryptoStore) restoreTransparentKeys(cryptoKey *snacl.CryptoKey,
	moved map[zcash.KeyID]keyEntry) {

	restored := make(map[zcash.KeyID]keyEntry, len(moved))
	for id, entry := range moved {
		restored[id] = entry
	}
	dropped := make(map[zcash.KeyID]struct{})

	for {
		c.base.keyMtx.Lock()
		strays := make(map[zcash.KeyID]cryptedKey)
		for id, ck := range c.cryptedKeys {
			_, isRestored := restored[id]
			_, isDropped := dropped[id]
			if !isRestored && !isDropped {
				strays[id] = ck
			}
		}

		if len(strays) == 0 {
			clear(c.cryptedKeys)
			for id, entry := range restored {
				c.base.keys[id] = entry
			}
			c.keysCrypted = false
			c.base.keyMtx.Unlock()

			return
		}
		c.base.keyMtx.Unlock()

		for id, ck := range strays {
			priv, ok := decryptPrivKey(cryptoKey, id, &ck)
			if !ok {
				log.Errorf("Dropping undecryptable key %v", id)
				dropped[id] = struct{}{}
				continue
			}
			restored[id] = keyEntry{privKey: *priv, pubKey: ck.pubKey}
		}
	}
}

// sealedSproutKey is a plaintext Sprout spending key along with its
// encrypted form.
type sealedSproutKey struct {
	sk      zcash.SproutSpendingKey
	crypted CryptedSproutKey
}

// sealedSaplingKey is a plaintext Sapling spending key along with its
// ciphertext.
type sealedSaplingKey struct {
	sk         zcash.SaplingSpendingKey
	ciphertext []byte
}

// encryptShieldedKeys moves every plaintext Sprout and Sapling spending key
// into the crypted maps.  Keys are encrypted, and Sprout viewing keys
// derived, with the spending key lock released; it is retaken only to
// commit them.  Nothing is moved on failure.
func (c *CryptoStore) encryptShieldedKeys(cryptoKey *snacl.CryptoKey) error {
	sprout := make(map[zcash.SproutPaymentAddress]sealedSproutKey)
	sapling := make(map[zcash.SaplingFullViewingKey]sealedSaplingKey)
	for {
		c.base.spendingKeyMtx.Lock()
		pendingSprout := make(
			map[zcash.SproutPaymentAddress]zcash.SproutSpendingKey,
		)
		for addr, sk := range c.base.sproutSpendingKeys {
			if s, ok := sprout[addr]; !ok || s.sk != sk {
				pendingSprout[addr] = sk
			}
		}
		pendingSapling := make(
			map[zcash.SaplingFullViewingKey]zcash.SaplingSpendingKey,
		)
		for fvk, sk := range c.base.saplingSpendingKeys {
			if s, ok := sapling[fvk]; !ok || s.sk != sk {
				pendingSapling[fvk] = sk
			}
		}

		if len(pendingSprout) == 0 && len(pendingSapling) == 0 {
			for addr := range c.base.sproutSpendingKeys {
				c.cryptedSproutKeys[addr] = sprout[addr].crypted
				delete(c.base.sproutSpendingKeys, addr)
			}
			for fvk := range c.base.saplingSpendingKeys {
				c.cryptedSaplingKeys[fvk] = sapling[fvk].ciphertext
				delete(c.base.saplingSpendingKeys, fvk)
			}
			c.spendingKeysCrypted = true
			c.base.spendingKeyMtx.Unlock()

			return nil
		}
		c.base.spendingKeyMtx.Unlock()

		for addr, sk := range pendingSprout {
			vk := sk.ViewingKey()
			ct, err := encryptSecret(cryptoKey, append([]byte(nil), sk[:]...))
			if err != nil {
				return err
			}
			sprout[addr] = sealedSproutKey{
				sk: sk,
				crypted: CryptedSproutKey{
					ViewingKey: vk,
					Ciphertext: ct,
				},
			}
		}
		for fvk, sk := range pendingSapling {
			ct, err := encryptSecret(cryptoKey, append([]byte(nil), sk[:]...))
			if err != nil {
				return err
			}
			sapling[fvk] = sealedSaplingKey{sk: sk, ciphertext: ct}
		}
	}
}

// defaultEncryptKey encrypts secret under cryptoKey.  See encryptKey.
func defaultEncryptKey(cryptoKey *snacl.CryptoKey,
	secret []byte) ([]byte, error) {

	return cryptoKey.Encrypt(secret)
}

// defaultDecryptKey opens ciphertext under cryptoKey.  See decryptKey.
func defaultDecryptKey(cryptoKey *snacl.CryptoKey,
	ciphertext []byte) ([]byte, error) {

	return cryptoKey.Decrypt(ciphertext)
}

var (
	// encryptKey and decryptKey are used as a way to replace the key
	// encryption functions so tests can provide versions that fail or
	// observe the store for testing error paths.
	encryptKey = defaultEncryptKey
	decryptKey = defaultDecryptKey
)

// encryptSecret encrypts a serialized secret and zeroes the plaintext.
func encryptSecret(cryptoKey *snacl.CryptoKey, secret []byte) ([]byte, error) {
	ct, err := encryptKey(cryptoKey, secret)
	zero.Bytes(secret)
	if err != nil {
		return nil, NewError(ErrCrypto, "failed to encrypt key", err)
	}
	return ct, nil
}

// copyCryptoKey copies the crypto key into dst so it can be used once the
// guard is released, and returns the generation it belongs to.  It reports
// false while the store is locked.  The caller must zero dst when done.
//
// This function MUST be called with one of the base store's guards held.
func (c *CryptoStore) copyCryptoKey(dst *snacl.CryptoKey) (uint64, bool) {
	cryptoKey := c.cryptoKey.Load()
	if cryptoKey == nil {
		return 0, false
	}
	*dst = *cryptoKey
	return c.cryptoKeyGen.Load(), true
}

// retireCryptoKey zeroes a crypto key that has already been unpublished.
// Each guard is cycled first so that every operation that was copying the
// key has finished with it.
func (c *CryptoStore) retireCryptoKey(cryptoKey *snacl.CryptoKey) {
	c.base.keyMtx.Lock()
	c.base.keyMtx.Unlock()
	c.base.spendingKeyMtx.Lock()
	c.base.spendingKeyMtx.Unlock()

	cryptoKey.Zero()
}

// Lock drops the decrypted crypto key.  Spending key additions and
// retrievals fail until Unlock is called.
func (c *CryptoStore) Lock() error {
	c.adminMtx.Lock()
	defer c.adminMtx.Unlock()

	if !c.crypted.Load() {
		return NewError(ErrNotEncrypted, "cannot lock an unencrypted "+
			"key store", nil)
	}

	cryptoKey := c.cryptoKey.Swap(nil)
	if cryptoKey == nil {
		return nil
	}
	c.retireCryptoKey(cryptoKey)

	log.Info("Key store locked")
	return nil
}

// Unlock derives the master key from passphrase and decrypts the crypto key.
// The decrypted key is checked against one stored key of each kind before it
// is accepted.
func (c *CryptoStore) Unlock(passphrase []byte) error {
	c.adminMtx.Lock()
	defer c.adminMtx.Unlock()

	if !c.crypted.Load() {
		return NewError(ErrNotEncrypted, "cannot unlock an "+
			"unencrypted key store", nil)
	}

	cryptoKey, err := c.openCryptoKey(c.masterKey, passphrase)
	if err != nil {
		log.Warnf("Failed to unlock key store: %v", err)
		return err
	}

	if err := c.checkCryptoKey(cryptoKey); err != nil {
		cryptoKey.Zero()
		log.Warnf("Failed to unlock key store: %v", err)
		return err
	}

	if c.cryptoKey.Load() != nil {
		cryptoKey.Zero()
		return nil
	}
	c.cryptoKey.Store(cryptoKey)

	log.Info("Key store unlocked")
	return nil
}

// openCryptoKey derives masterKey from passphrase and uses it to decrypt the
// crypto key.  The master key is zeroed again before returning.
//
// This function MUST be called with the admin lock held.
func (c *CryptoStore) openCryptoKey(masterKey *snacl.SecretKey,
	passphrase []byte) (*snacl.CryptoKey, error) {

	defer masterKey.Zero()

	if err := masterKey.DeriveKey(&passphrase); err != nil {
		if err == snacl.ErrInvalidPassword {
			str := "invalid passphrase for master key"
			return nil, NewError(ErrWrongPassphrase, str, nil)
		}
		str := "failed to derive master key"
		return nil, NewError(ErrCrypto, str, err)
	}

	decrypted, err := masterKey.Decrypt(c.cryptoKeyEncrypted)
	if err != nil {
		str := "failed to decrypt crypto key"
		return nil, NewError(ErrCrypto, str, err)
	}
	defer zero.Bytes(decrypted)

	if len(decrypted) != snacl.KeySize {
		str := "decrypted crypto key has invalid length"
		return nil, NewError(ErrCrypto, str, nil)
	}

	var cryptoKey snacl.CryptoKey
	copy(cryptoKey[:], decrypted)
	return &cryptoKey, nil
}

// checkCryptoKey decrypts one stored key from each pool and checks it against
// its public counterpart.  The samples are copied under the guards and
// decrypted after releasing them.
func (c *CryptoStore) checkCryptoKey(cryptoKey *snacl.CryptoKey) error {
	var (
		keyID       zcash.KeyID
		key         *cryptedKey
		sproutAddr  zcash.SproutPaymentAddress
		sproutCT    []byte
		saplingFVK  zcash.SaplingFullViewingKey
		saplingCT   []byte
		haveSprout  bool
		haveSapling bool
	)

	c.base.keyMtx.RLock()
	for id, ck := range c.cryptedKeys {
		keyID, key = id, &ck
		break
	}
	c.base.keyMtx.RUnlock()

	c.base.spendingKeyMtx.RLock()
	for addr, ck := range c.cryptedSproutKeys {
		sproutAddr, sproutCT, haveSprout = addr, ck.Ciphertext, true
		break
	}
	for fvk, ct := range c.cryptedSaplingKeys {
		saplingFVK, saplingCT, haveSapling = fvk, ct, true
		break
	}
	c.base.spendingKeyMtx.RUnlock()

	mismatch := NewError(ErrCrypto, "crypto key does not decrypt "+
		"stored keys", nil)

	if key != nil {
		if _, ok := decryptPrivKey(cryptoKey, keyID, key); !ok {
			return mismatch
		}
	}
	if haveSprout {
		_, ok := decryptSproutKey(cryptoKey, sproutAddr, sproutCT)
		if !ok {
			return mismatch
		}
	}
	if haveSapling {
		_, ok := decryptSaplingKey(cryptoKey, saplingFVK, saplingCT)
		if !ok {
			return mismatch
		}
	}

	return nil
}

// ChangePassphrase re-wraps the crypto key under a master key derived from
// newPass.  The lock state is unchanged.
func (c *CryptoStore) ChangePassphrase(oldPass, newPass []byte) error {
	c.adminMtx.Lock()
	defer c.adminMtx.Unlock()

	if !c.crypted.Load() {
		return NewError(ErrNotEncrypted, "cannot change passphrase "+
			"of an unencrypted key store", nil)
	}

	cryptoKey, err := c.openCryptoKey(c.masterKey, oldPass)
	if err != nil {
		return err
	}
	defer cryptoKey.Zero()

	masterKey, err := snacl.NewSecretKey(
		&newPass, c.scryptOpts.N, c.scryptOpts.R, c.scryptOpts.P,
	)
	if err != nil {
		return NewError(ErrCrypto, "failed to derive master key", err)
	}
	defer masterKey.Zero()

	cryptoKeyEncrypted, err := masterKey.Encrypt(cryptoKey[:])
	if err != nil {
		return NewError(ErrCrypto, "failed to encrypt crypto key", err)
	}

	c.masterKey = masterKey
	c.cryptoKeyEncrypted = cryptoKeyEncrypted

	log.Info("Key store passphrase changed")
	return nil
}

// decryptPrivKey opens a crypted transparent key and checks that it belongs
// to id.
func decryptPrivKey(cryptoKey *snacl.CryptoKey, id zcash.KeyID,
	ck *cryptedKey) (*btcec.PrivateKey, bool) {

	secret, err := decryptKey(cryptoKey, ck.ciphertext)
	if err != nil {
		return nil, false
	}
	defer zero.Bytes(secret)

	if len(secret) != btcec.PrivKeyBytesLen {
		return nil, false
	}
	priv, pub := btcec.PrivKeyFromBytes(secret)
	if zcash.NewKeyID(pub) != id || !pub.IsEqual(&ck.pubKey) {
		return nil, false
	}
	return priv, true
}

// decryptSproutKey opens a crypted Sprout spending key and checks that it
// belongs to addr.
func decryptSproutKey(cryptoKey *snacl.CryptoKey,
	addr zcash.SproutPaymentAddress,
	ciphertext []byte) (zcash.SproutSpendingKey, bool) {

	secret, err := decryptKey(cryptoKey, ciphertext)
	if err != nil {
		return zcash.SproutSpendingKey{}, false
	}
	defer zero.Bytes(secret)

	sk, err := zcash.SproutSpendingKeyFromBytes(secret)
	if err != nil || sk.Address() != addr {
		return zcash.SproutSpendingKey{}, false
	}
	return sk, true
}

// decryptSaplingKey opens a crypted Sapling spending key and checks that it
// belongs to fvk.
func decryptSaplingKey(cryptoKey *snacl.CryptoKey,
	fvk zcash.SaplingFullViewingKey,
	ciphertext []byte) (zcash.SaplingSpendingKey, bool) {

	secret, err := decryptKey(cryptoKey, ciphertext)
	if err != nil {
		return zcash.SaplingSpendingKey{}, false
	}
	defer zero.Bytes(secret)

	sk, err := zcash.SaplingSpendingKeyFromBytes(secret)
	if err != nil || sk.FullViewingKey() != fvk {
		return zcash.SaplingSpendingKey{}, false
	}
	return sk, true
}

// AddKey adds a private key under the identity of its public key.
//
// This is part of the TransparentKeyStore interface.
func (c *CryptoStore) AddKey(key *btcec.PrivateKey) bool {
	return c.AddKeyPubKey(key, key.PubKey())
}

// AddKeyPubKey adds a private key under the identity of pub, encrypting it
// when the store is encrypted.  It fails while the store is locked.
//
// This is part of the TransparentKeyStore interface.
func (c *CryptoStore) AddKeyPubKey(key *btcec.PrivateKey,
	pub *btcec.PublicKey) bool {

	id := zcash.NewKeyID(pub)
	entry := keyEntry{privKey: *key, pubKey: *pub}

	for {
		c.base.keyMtx.Lock()
		if !c.keysCrypted {
			c.base.keys[id] = entry
			c.base.keyMtx.Unlock()
			return true
		}

		var cryptoKey snacl.CryptoKey
		gen, unlocked := c.copyCryptoKey(&cryptoKey)
		c.base.keyMtx.Unlock()

		if !unlocked {
			log.Debugf("Cannot add key %v: key store is locked", id)
			return false
		}
		ct, err := encryptSecret(&cryptoKey, key.Serialize())
		cryptoKey.Zero()
		if err != nil {
			log.Errorf("Unable to encrypt key %v: %v", id, err)
			return false
		}

		// Retry if the store was reverted or re-keyed by EncryptKeys
		// while the key was being encrypted.
		c.base.keyMtx.Lock()
		if c.keysCrypted && c.cryptoKeyGen.Load() == gen {
			c.cryptedKeys[id] = cryptedKey{pubKey: *pub, ciphertext: ct}
			c.base.keyMtx.Unlock()

			log.Tracef("Added crypted transparent key %v", id)
			return true
		}
		c.base.keyMtx.Unlock()
	}
}

// AddCryptedKey adds an already encrypted private key.  It fails when the
// store is not encrypted.
func (c *CryptoStore) AddCryptedKey(pub *btcec.PublicKey,
	ciphertext []byte) bool {

	id := zcash.NewKeyID(pub)

	c.base.keyMtx.Lock()
	defer c.base.keyMtx.Unlock()

	if !c.keysCrypted {
		return false
	}
	c.cryptedKeys[id] = cryptedKey{
		pubKey:     *pub,
		ciphertext: append([]byte(nil), ciphertext...),
	}
	return true
}

// HaveKey reports whether the private key of id is present in either form.
//
// This is part of the TransparentKeyStore interface.
func (c *CryptoStore) HaveKey(id zcash.KeyID) bool {
	c.base.keyMtx.RLock()
	defer c.base.keyMtx.RUnlock()

	if _, ok := c.base.keys[id]; ok {
		return true
	}
	_, ok := c.cryptedKeys[id]
	return ok
}

// GetKey returns a copy of the private key of id.  It fails for an encrypted
// key while the store is locked.
//
// This is part of the TransparentKeyStore interface.
func (c *CryptoStore) GetKey(id zcash.KeyID) (*btcec.PrivateKey, bool) {
	var cryptoKey snacl.CryptoKey
	defer cryptoKey.Zero()

	c.base.keyMtx.RLock()
	entry, plain := c.base.keys[id]
	ck, crypted := c.cryptedKeys[id]
	unlocked := false
	if !plain && crypted {
		_, unlocked = c.copyCryptoKey(&cryptoKey)
	}
	c.base.keyMtx.RUnlock()

	switch {
	case plain:
		return &entry.privKey, true
	case !unlocked:
		return nil, false
	}
	return decryptPrivKey(&cryptoKey, id, &ck)
}

// GetPubKey returns a copy of the public key of id.  Public keys of
// encrypted entries are available while locked.
//
// This is part of the TransparentKeyStore interface.
func (c *CryptoStore) GetPubKey(id zcash.KeyID) (*btcec.PublicKey, bool) {
	c.base.keyMtx.RLock()
	defer c.base.keyMtx.RUnlock()

	if entry, ok := c.base.keys[id]; ok {
		return &entry.pubKey, true
	}
	if ck, ok := c.cryptedKeys[id]; ok {
		pub := ck.pubKey
		return &pub, true
	}
	return nil, false
}

// GetKeys returns the sorted identities of every private key in either form.
//
// This is part of the TransparentKeyStore interface.
func (c *CryptoStore) GetKeys() []zcash.KeyID {
	c.base.keyMtx.RLock()
	ids := make([]zcash.KeyID, 0, len(c.base.keys)+len(c.cryptedKeys))
	for id := range c.base.keys {
		ids = append(ids, id)
	}
	for id := range c.cryptedKeys {
		ids = append(ids, id)
	}
	c.base.keyMtx.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

// CryptedKeys returns a snapshot of the encrypted transparent keys.
func (c *CryptoStore) CryptedKeys() map[zcash.KeyID]CryptedKey {
	c.base.keyMtx.RLock()
	defer c.base.keyMtx.RUnlock()

	keys := make(map[zcash.KeyID]CryptedKey, len(c.cryptedKeys))
	for id, ck := range c.cryptedKeys {
		pub := ck.pubKey
		keys[id] = CryptedKey{
			PubKey:     &pub,
			Ciphertext: append([]byte(nil), ck.ciphertext...),
		}
	}
	return keys
}

// AddCScript delegates to the wrapped store.
//
// This is part of the ScriptStore interface.
func (c *CryptoStore) AddCScript(script []byte) bool {
	return c.base.AddCScript(script)
}

// HaveCScript delegates to the wrapped store.
//
// This is part of the ScriptStore interface.
func (c *CryptoStore) HaveCScript(id zcash.ScriptID) bool {
	return c.base.HaveCScript(id)
}

// GetCScript delegates to the wrapped store.
//
// This is part of the ScriptStore interface.
func (c *CryptoStore) GetCScript(id zcash.ScriptID) ([]byte, bool) {
	return c.base.GetCScript(id)
}

// GetCScripts delegates to the wrapped store.
//
// This is part of the ScriptStore interface.
func (c *CryptoStore) GetCScripts() []zcash.ScriptID {
	return c.base.GetCScripts()
}

// AddWatchOnly delegates to the wrapped store.
//
// This is part of the ScriptStore interface.
func (c *CryptoStore) AddWatchOnly(script []byte) bool {
	return c.base.AddWatchOnly(script)
}

// RemoveWatchOnly delegates to the wrapped store.
//
// This is part of the ScriptStore interface.
func (c *CryptoStore) RemoveWatchOnly(script []byte) bool {
	return c.base.RemoveWatchOnly(script)
}

// HaveWatchOnly delegates to the wrapped store.
//
// This is part of the ScriptStore interface.
func (c *CryptoStore) HaveWatchOnly(script []byte) bool {
	return c.base.HaveWatchOnly(script)
}

// HaveAnyWatchOnly delegates to the wrapped store.
//
// This is part of the ScriptStore interface.
func (c *CryptoStore) HaveAnyWatchOnly() bool {
	return c.base.HaveAnyWatchOnly()
}

// GetWatchOnly delegates to the wrapped store.
//
// This is part of the ScriptStore interface.
func (c *CryptoStore) GetWatchOnly() [][]byte {
	return c.base.GetWatchOnly()
}

// AddSpendingKey adds a Sprout spending key, encrypting it when the store is
// encrypted.  The note decryptor is recorded in the wrapped store either way.
// It fails while the store is locked.
//
// This is part of the SproutKeyStore interface.
func (c *CryptoStore) AddSpendingKey(sk zcash.SproutSpendingKey) bool {
	vk := sk.ViewingKey()
	addr := vk.Address()
	dec := zcash.NewNoteDecryptor(vk)

	for {
		c.base.spendingKeyMtx.Lock()
		if !c.spendingKeysCrypted {
			c.base.sproutSpendingKeys[addr] = sk
			c.base.noteDecryptors[addr] = dec
			c.base.spendingKeyMtx.Unlock()
			return true
		}

		var cryptoKey snacl.CryptoKey
		gen, unlocked := c.copyCryptoKey(&cryptoKey)
		c.base.spendingKeyMtx.Unlock()

		if !unlocked {
			log.Debugf("Cannot add Sprout spending key: key store " +
				"is locked")
			return false
		}
		ct, err := encryptSecret(&cryptoKey, append([]byte(nil), sk[:]...))
		cryptoKey.Zero()
		if err != nil {
			log.Errorf("Unable to encrypt Sprout spending key: %v", err)
			return false
		}

		c.base.spendingKeyMtx.Lock()
		if c.spendingKeysCrypted && c.cryptoKeyGen.Load() == gen {
			c.cryptedSproutKeys[addr] = CryptedSproutKey{
				ViewingKey: vk,
				Ciphertext: ct,
			}
			c.base.noteDecryptors[addr] = dec
			c.base.spendingKeyMtx.Unlock()
			return true
		}
		c.base.spendingKeyMtx.Unlock()
	}
}

// AddCryptedSpendingKey adds an already encrypted Sprout spending key for the
// address of vk.  It fails when the store is not encrypted.
func (c *CryptoStore) AddCryptedSpendingKey(vk zcash.SproutViewingKey,
	ciphertext []byte) bool {

	addr := vk.Address()
	dec := zcash.NewNoteDecryptor(vk)

	c.base.spendingKeyMtx.Lock()
	defer c.base.spendingKeyMtx.Unlock()

	if !c.spendingKeysCrypted {
		return false
	}
	c.cryptedSproutKeys[addr] = CryptedSproutKey{
		ViewingKey: vk,
		Ciphertext: append([]byte(nil), ciphertext...),
	}
	c.base.noteDecryptors[addr] = dec
	return true
}

// HaveSpendingKey reports whether the Sprout spending key of addr is present
// in either form.
//
// This is part of the SproutKeyStore interface.
func (c *CryptoStore) HaveSpendingKey(addr zcash.SproutPaymentAddress) bool {
	c.base.spendingKeyMtx.RLock()
	defer c.base.spendingKeyMtx.RUnlock()

	return c.haveSproutSpendingKey(addr)
}

// haveSproutSpendingKey reports whether addr has a spending key in either
// form.
//
// This function MUST be called with the spending key lock held.
func (c *CryptoStore) haveSproutSpendingKey(
	addr zcash.SproutPaymentAddress) bool {

	if _, ok := c.base.sproutSpendingKeys[addr]; ok {
		return true
	}
	_, ok := c.cryptedSproutKeys[addr]
	return ok
}

// GetSpendingKey returns the Sprout spending key of addr.  It fails for an
// encrypted key while the store is locked.
//
// This is part of the SproutKeyStore interface.
func (c *CryptoStore) GetSpendingKey(
	addr zcash.SproutPaymentAddress) (zcash.SproutSpendingKey, bool) {

	var cryptoKey snacl.CryptoKey
	defer cryptoKey.Zero()

	c.base.spendingKeyMtx.RLock()
	sk, plain := c.base.sproutSpendingKeys[addr]
	ck, crypted := c.cryptedSproutKeys[addr]
	unlocked := false
	if !plain && crypted {
		_, unlocked = c.copyCryptoKey(&cryptoKey)
	}
	c.base.spendingKeyMtx.RUnlock()

	switch {
	case plain:
		return sk, true
	case !unlocked:
		return zcash.SproutSpendingKey{}, false
	}
	return decryptSproutKey(&cryptoKey, addr, ck.Ciphertext)
}

// CryptedSproutSpendingKeys returns a snapshot of the encrypted Sprout
// spending keys.
func (c *CryptoStore) CryptedSproutSpendingKeys() map[zcash.SproutPaymentAddress]CryptedSproutKey {
	c.base.spendingKeyMtx.RLock()
	defer c.base.spendingKeyMtx.RUnlock()

	keys := make(map[zcash.SproutPaymentAddress]CryptedSproutKey,
		len(c.cryptedSproutKeys))
	for addr, ck := range c.cryptedSproutKeys {
		keys[addr] = CryptedSproutKey{
			ViewingKey: ck.ViewingKey,
			Ciphertext: append([]byte(nil), ck.Ciphertext...),
		}
	}
	return keys
}

// GetNoteDecryptor delegates to the wrapped store.
//
// This is part of the SproutKeyStore interface.
func (c *CryptoStore) GetNoteDecryptor(
	addr zcash.SproutPaymentAddress) (zcash.NoteDecryptor, bool) {

	return c.base.GetNoteDecryptor(addr)
}

// GetPaymentAddresses returns the sorted union of the addresses of every
// Sprout spending key, in either form, and every viewing key.
//
// This is part of the SproutKeyStore interface.
func (c *CryptoStore) GetPaymentAddresses() []zcash.SproutPaymentAddress {
	c.base.spendingKeyMtx.RLock()
	set := make(map[zcash.SproutPaymentAddress]struct{})
	c.base.collectSproutAddresses(set)
	for addr := range c.cryptedSproutKeys {
		set[addr] = struct{}{}
	}
	c.base.spendingKeyMtx.RUnlock()

	return sortedSproutAddresses(set)
}

// AddSproutViewingKey delegates to the wrapped store.
//
// This is part of the SproutKeyStore interface.
func (c *CryptoStore) AddSproutViewingKey(vk zcash.SproutViewingKey) bool {
	return c.base.AddSproutViewingKey(vk)
}

// RemoveSproutViewingKey removes the viewing key of vk's address, keeping
// the note decryptor while a spending key in either form remains.
//
// This is part of the SproutKeyStore interface.
func (c *CryptoStore) RemoveSproutViewingKey(vk zcash.SproutViewingKey) bool {
	addr := vk.Address()

	c.base.spendingKeyMtx.Lock()
	defer c.base.spendingKeyMtx.Unlock()

	delete(c.base.sproutViewingKeys, addr)
	if !c.haveSproutSpendingKey(addr) {
		delete(c.base.noteDecryptors, addr)
	}
	return true
}

// HaveSproutViewingKey delegates to the wrapped store.
//
// This is part of the SproutKeyStore interface.
func (c *CryptoStore) HaveSproutViewingKey(
	addr zcash.SproutPaymentAddress) bool {

	return c.base.HaveSproutViewingKey(addr)
}

// GetSproutViewingKey delegates to the wrapped store.
//
// This is part of the SproutKeyStore interface.
func (c *CryptoStore) GetSproutViewingKey(
	addr zcash.SproutPaymentAddress) (zcash.SproutViewingKey, bool) {

	return c.base.GetSproutViewingKey(addr)
}

// AddSaplingSpendingKey adds a Sapling spending key, encrypting it when the
// store is encrypted.  Its full viewing key and default address are indexed
// in the wrapped store either way.  It fails while the store is locked.
//
// This is part of the SaplingKeyStore interface.
func (c *CryptoStore) AddSaplingSpendingKey(sk zcash.SaplingSpendingKey,
	defaultAddr fn.Option[zcash.SaplingPaymentAddress]) bool {

	entry := deriveSaplingViewingEntry(sk.FullViewingKey(), defaultAddr)

	for {
		c.base.spendingKeyMtx.Lock()
		if !c.spendingKeysCrypted {
			c.base.commitSaplingViewingEntry(entry)
			c.base.saplingSpendingKeys[entry.fvk] = sk
			c.base.spendingKeyMtx.Unlock()
			return true
		}

		var cryptoKey snacl.CryptoKey
		gen, unlocked := c.copyCryptoKey(&cryptoKey)
		c.base.spendingKeyMtx.Unlock()

		if !unlocked {
			log.Debugf("Cannot add Sapling spending key: key store " +
				"is locked")
			return false
		}
		ct, err := encryptSecret(&cryptoKey, append([]byte(nil), sk[:]...))
		cryptoKey.Zero()
		if err != nil {
			log.Errorf("Unable to encrypt Sapling spending key: %v", err)
			return false
		}

		c.base.spendingKeyMtx.Lock()
		if c.spendingKeysCrypted && c.cryptoKeyGen.Load() == gen {
			c.base.commitSaplingViewingEntry(entry)
			c.cryptedSaplingKeys[entry.fvk] = ct
			c.base.spendingKeyMtx.Unlock()
			return true
		}
		c.base.spendingKeyMtx.Unlock()
	}
}

// AddCryptedSaplingSpendingKey adds an already encrypted Sapling spending key
// for fvk, registering fvk and the default address in the wrapped store.  It
// fails when the store is not encrypted.
func (c *CryptoStore) AddCryptedSaplingSpendingKey(
	fvk zcash.SaplingFullViewingKey,
	defaultAddr fn.Option[zcash.SaplingPaymentAddress],
	ciphertext []byte) bool {

	entry := deriveSaplingViewingEntry(fvk, defaultAddr)

	c.base.spendingKeyMtx.Lock()
	defer c.base.spendingKeyMtx.Unlock()

	if !c.spendingKeysCrypted {
		return false
	}
	c.base.commitSaplingViewingEntry(entry)
	c.cryptedSaplingKeys[fvk] = append([]byte(nil), ciphertext...)
	return true
}

// HaveSaplingSpendingKey reports whether the spending key of fvk is present
// in either form.
//
// This is part of the SaplingKeyStore interface.
func (c *CryptoStore) HaveSaplingSpendingKey(
	fvk zcash.SaplingFullViewingKey) bool {

	c.base.spendingKeyMtx.RLock()
	defer c.base.spendingKeyMtx.RUnlock()

	if _, ok := c.base.saplingSpendingKeys[fvk]; ok {
		return true
	}
	_, ok := c.cryptedSaplingKeys[fvk]
	return ok
}

// GetSaplingSpendingKey returns the spending key of fvk.  It fails for an
// encrypted key while the store is locked.
//
// This is part of the SaplingKeyStore interface.
func (c *CryptoStore) GetSaplingSpendingKey(fvk zcash.SaplingFullViewingKey) (
	zcash.SaplingSpendingKey, bool) {

	var cryptoKey snacl.CryptoKey
	defer cryptoKey.Zero()

	c.base.spendingKeyMtx.RLock()
	sk, plain := c.base.saplingSpendingKeys[fvk]
	ct, crypted := c.cryptedSaplingKeys[fvk]
	unlocked := false
	if !plain && crypted {
		_, unlocked = c.copyCryptoKey(&cryptoKey)
	}
	c.base.spendingKeyMtx.RUnlock()

	switch {
	case plain:
		return sk, true
	case !unlocked:
		return zcash.SaplingSpendingKey{}, false
	}
	return decryptSaplingKey(&cryptoKey, fvk, ct)
}

// CryptedSaplingSpendingKeys returns a snapshot of the encrypted Sapling
// spending keys.
func (c *CryptoStore) CryptedSaplingSpendingKeys() map[zcash.SaplingFullViewingKey][]byte {
	c.base.spendingKeyMtx.RLock()
	defer c.base.spendingKeyMtx.RUnlock()

	keys := make(map[zcash.SaplingFullViewingKey][]byte,
		len(c.cryptedSaplingKeys))
	for fvk, ct := range c.cryptedSaplingKeys {
		keys[fvk] = append([]byte(nil), ct...)
	}
	return keys
}

// AddSaplingFullViewingKey delegates to the wrapped store.
//
// This is part of the SaplingKeyStore interface.
func (c *CryptoStore) AddSaplingFullViewingKey(fvk zcash.SaplingFullViewingKey,
	defaultAddr fn.Option[zcash.SaplingPaymentAddress]) bool {

	return c.base.AddSaplingFullViewingKey(fvk, defaultAddr)
}

// HaveSaplingFullViewingKey delegates to the wrapped store.
//
// This is part of the SaplingKeyStore interface.
func (c *CryptoStore) HaveSaplingFullViewingKey(
	ivk zcash.SaplingIncomingViewingKey) bool {

	return c.base.HaveSaplingFullViewingKey(ivk)
}

// GetSaplingFullViewingKey delegates to the wrapped store.
//
// This is part of the SaplingKeyStore interface.
func (c *CryptoStore) GetSaplingFullViewingKey(
	ivk zcash.SaplingIncomingViewingKey) (zcash.SaplingFullViewingKey, bool) {

	return c.base.GetSaplingFullViewingKey(ivk)
}

// GetSaplingFullViewingKeys delegates to the wrapped store.
//
// This is part of the SaplingKeyStore interface.
func (c *CryptoStore) GetSaplingFullViewingKeys() []zcash.SaplingFullViewingKey {
	return c.base.GetSaplingFullViewingKeys()
}

// HaveSaplingIncomingViewingKey delegates to the wrapped store.
//
// This is part of the SaplingKeyStore interface.
func (c *CryptoStore) HaveSaplingIncomingViewingKey(
	addr zcash.SaplingPaymentAddress) bool {

	return c.base.HaveSaplingIncomingViewingKey(addr)
}

// GetSaplingIncomingViewingKey delegates to the wrapped store.
//
// This is part of the SaplingKeyStore interface.
func (c *CryptoStore) GetSaplingIncomingViewingKey(
	addr zcash.SaplingPaymentAddress) (zcash.SaplingIncomingViewingKey, bool) {

	return c.base.GetSaplingIncomingViewingKey(addr)
}

// GetSaplingPaymentAddresses delegates to the wrapped store.
//
// This is part of the SaplingKeyStore interface.
func (c *CryptoStore) GetSaplingPaymentAddresses() []zcash.SaplingPaymentAddress {
	return c.base.GetSaplingPaymentAddresses()
}
