// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package keystore holds the keys of a wallet that spends from transparent
outputs and from the Sprout and Sapling shielded pools.

The capabilities are split by pool: TransparentKeyStore, ScriptStore,
SproutKeyStore and SaplingKeyStore, combined as KeyStore.  Every operation
reports success with a bool and every lookup returns a value with an ok flag;
a missing entry is an ordinary outcome rather than an error.

# Key Hierarchies

Each pool indexes its public artifacts under the secret they derive from so
that a caller holding only an address can reach everything stronger that the
store knows about:

	transparent: hash160(pubkey) -> private key
	sprout:      payment address -> spending key, viewing key, note decryptor
	sapling:     address -> ivk -> fvk -> spending key

Derivations happen once, when an entry is added, and never on lookup.

# Concurrency

BasicStore partitions its state between two read/write mutexes, one for the
transparent keys and scripts and one for the shielded pools.  No method holds
both, so work on the transparent side never waits on shielded work and the
other way around.

# Encryption

CryptoStore wraps a BasicStore and keeps spending keys encrypted under a
random crypto key, which is in turn encrypted under a master key derived
from a passphrase with scrypt.  Viewing keys, addresses and scripts stay in
the wrapped store in plain text, so a locked wallet can still detect and
display incoming funds:

	cs := keystore.NewCryptoStore(keystore.NewBasicStore(), nil)
	if err := cs.EncryptKeys(passphrase); err != nil {
		// Handle err.
	}
	cs.Lock()

	// Spending keys are unavailable until the store is unlocked.
	_, ok := cs.GetSaplingSpendingKey(fvk)

Errors from the encryption layer are of type Error and carry an ErrorCode.
*/
package keystore
