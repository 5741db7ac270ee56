// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netparams

// Params is used to group the address encoding parameters for the various
// networks a key store may be used on.
type Params struct {
	// Name is the human-readable identifier of the network.
	Name string

	// PubKeyHashAddrID and ScriptHashAddrID are the two byte version
	// prefixes of transparent pay-to-pubkey-hash and pay-to-script-hash
	// addresses.
	PubKeyHashAddrID [2]byte
	ScriptHashAddrID [2]byte

	// SproutAddrID is the two byte version prefix of Sprout payment
	// addresses.
	SproutAddrID [2]byte

	// SaplingHRP is the bech32 human-readable part of Sapling payment
	// addresses.
	SaplingHRP string
}

// MainNetParams contains the address parameters of the main network.
var MainNetParams = Params{
	Name:             "mainnet",
	PubKeyHashAddrID: [2]byte{0x1c, 0xb8},
	ScriptHashAddrID: [2]byte{0x1c, 0xbd},
	SproutAddrID:     [2]byte{0x16, 0x9a},
	SaplingHRP:       "zs",
}

// TestNetParams contains the address parameters of the public test network.
var TestNetParams = Params{
	Name:             "testnet",
	PubKeyHashAddrID: [2]byte{0x1d, 0x25},
	ScriptHashAddrID: [2]byte{0x1c, 0xba},
	SproutAddrID:     [2]byte{0x16, 0xb6},
	SaplingHRP:       "ztestsapling",
}

// RegTestParams contains the address parameters of the regression test
// network.  Transparent and Sprout prefixes are shared with the test network.
var RegTestParams = Params{
	Name:             "regtest",
	PubKeyHashAddrID: [2]byte{0x1d, 0x25},
	ScriptHashAddrID: [2]byte{0x1c, 0xba},
	SproutAddrID:     [2]byte{0x16, 0xb6},
	SaplingHRP:       "zregtestsapling",
}

// ParamsForName returns the parameters of the named network, or false when
// the name is not known.
func ParamsForName(name string) (*Params, bool) {
	switch name {
	case MainNetParams.Name:
		return &MainNetParams, true
	case TestNetParams.Name:
		return &TestNetParams, true
	case RegTestParams.Name:
		return &RegTestParams, true
	}
	return nil, false
}
