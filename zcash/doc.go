// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package zcash provides the key and address primitives consumed by the key
store: transparent key and script identities, the Sprout key hierarchy
(spending key, viewing key, payment address, note decryptor) and the Sapling
key hierarchy (spending key, full viewing key, incoming viewing key, payment
address).

Every derivation in this package is deterministic and free of side effects.
All shielded types are fixed-size values, so they may be used directly as map
keys and are copied on assignment.

The Sapling derivations use domain-separated BLAKE2b commitments in place of
the Jubjub group operations; the resulting keys are internally consistent but
are not interoperable with other Sapling implementations.
*/
package zcash
