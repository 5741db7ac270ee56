// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package zcash

import (
	"bytes"
	"errors"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/zkeystore/netparams"
)

var (
	// ErrInvalidLength is returned when a serialized key or address has
	// the wrong size.
	ErrInvalidLength = errors.New("invalid serialized length")

	// ErrChecksumMismatch is returned when a base58check string fails
	// checksum verification.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrWrongNetwork is returned when an encoded address carries a prefix
	// or human-readable part of a different network.
	ErrWrongNetwork = errors.New("address is for a different network")
)

// checkEncode encodes payload with a two byte version prefix and a four byte
// double-SHA256 checksum.
func checkEncode(version [2]byte, payload []byte) string {
	b := make([]byte, 0, len(version)+len(payload)+4)
	b = append(b, version[:]...)
	b = append(b, payload...)
	cksum := chainhash.DoubleHashB(b)
	b = append(b, cksum[:4]...)
	return base58.Encode(b)
}

// checkDecode reverses checkEncode, verifying the checksum and that the
// version matches.
func checkDecode(s string, version [2]byte) ([]byte, error) {
	decoded := base58.Decode(s)
	if len(decoded) < len(version)+4 {
		return nil, ErrInvalidLength
	}
	body, cksum := decoded[:len(decoded)-4], decoded[len(decoded)-4:]
	if !bytes.Equal(chainhash.DoubleHashB(body)[:4], cksum) {
		return nil, ErrChecksumMismatch
	}
	if !bytes.Equal(body[:2], version[:]) {
		return nil, ErrWrongNetwork
	}
	return body[2:], nil
}

// EncodePubKeyHashAddress returns the transparent P2PKH address of id.
func EncodePubKeyHashAddress(id KeyID, params *netparams.Params) string {
	return checkEncode(params.PubKeyHashAddrID, id[:])
}

// EncodeScriptHashAddress returns the transparent P2SH address of id.
func EncodeScriptHashAddress(id ScriptID, params *netparams.Params) string {
	return checkEncode(params.ScriptHashAddrID, id[:])
}

// DecodePubKeyHashAddress parses a transparent P2PKH address.
func DecodePubKeyHashAddress(s string, params *netparams.Params) (KeyID, error) {
	var id KeyID
	payload, err := checkDecode(s, params.PubKeyHashAddrID)
	if err != nil {
		return id, err
	}
	if len(payload) != len(id) {
		return id, ErrInvalidLength
	}
	copy(id[:], payload)
	return id, nil
}

// EncodeSproutAddress returns the base58check string of a Sprout address.
func EncodeSproutAddress(addr SproutPaymentAddress, params *netparams.Params) string {
	return checkEncode(params.SproutAddrID, addr.Bytes())
}

// DecodeSproutAddress parses a base58check Sprout address.
func DecodeSproutAddress(s string, params *netparams.Params) (SproutPaymentAddress, error) {
	payload, err := checkDecode(s, params.SproutAddrID)
	if err != nil {
		return SproutPaymentAddress{}, err
	}
	return SproutPaymentAddressFromBytes(payload)
}

// EncodeSaplingAddress returns the bech32 string of a Sapling address.
func EncodeSaplingAddress(addr SaplingPaymentAddress, params *netparams.Params) (string, error) {
	conv, err := bech32.ConvertBits(addr.Bytes(), 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(params.SaplingHRP, conv)
}

// DecodeSaplingAddress parses a bech32 Sapling address.
func DecodeSaplingAddress(s string, params *netparams.Params) (SaplingPaymentAddress, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return SaplingPaymentAddress{}, err
	}
	if hrp != params.SaplingHRP {
		return SaplingPaymentAddress{}, ErrWrongNetwork
	}
	conv, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return SaplingPaymentAddress{}, err
	}
	return SaplingPaymentAddressFromBytes(conv)
}
