// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keydb

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/zkeystore/internal/zero"
	"github.com/btcsuite/zkeystore/zcash"
	"github.com/lightningnetwork/lnd/tlv"
)

const (
	typeKeyPrivKey tlv.Type = 1
	typeKeyPubKey  tlv.Type = 2

	typeScript tlv.Type = 1

	typeSproutSpendingKey tlv.Type = 1
	typeSproutViewingKey  tlv.Type = 1

	typeSaplingSpendingKey tlv.Type = 1
	typeSaplingAddresses   tlv.Type = 1

	typeCryptedPubKey     tlv.Type = 1
	typeCryptedViewingKey tlv.Type = 2
	typeCryptedSecret     tlv.Type = 3
)

// encodeRecords serializes the passed records as a TLV stream.
func encodeRecords(records ...tlv.Record) ([]byte, error) {
	tlvStream, err := tlv.NewStream(records...)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tlvStream.Encode(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// decodeRecords parses tlvData into the passed records and ensures every
// record was present.
func decodeRecords(tlvData []byte, records ...tlv.Record) error {
	tlvStream, err := tlv.NewStream(records...)
	if err != nil {
		return err
	}

	parsedTypes, err := tlvStream.DecodeWithParsedTypes(
		bytes.NewReader(tlvData),
	)
	if err != nil {
		return err
	}

	for _, r := range records {
		if _, ok := parsedTypes[r.Type()]; !ok {
			return fmt.Errorf("missing record type %d", r.Type())
		}
	}

	return nil
}

// serializeKey encodes a transparent private key together with the public
// key it was added under.
func serializeKey(priv *btcec.PrivateKey, pub *btcec.PublicKey) ([]byte,
	error) {

	var privBytes [32]byte
	priv.Key.PutBytes(&privBytes)
	defer zero.Bytea32(&privBytes)

	return encodeRecords(
		tlv.MakePrimitiveRecord(typeKeyPrivKey, &privBytes),
		tlv.MakePrimitiveRecord(typeKeyPubKey, &pub),
	)
}

// deserializeKey decodes a row written by serializeKey.
func deserializeKey(tlvData []byte) (*btcec.PrivateKey, *btcec.PublicKey,
	error) {

	var (
		privBytes [32]byte
		pub       *btcec.PublicKey
	)
	err := decodeRecords(
		tlvData,
		tlv.MakePrimitiveRecord(typeKeyPrivKey, &privBytes),
		tlv.MakePrimitiveRecord(typeKeyPubKey, &pub),
	)
	if err != nil {
		return nil, nil, err
	}
	defer zero.Bytea32(&privBytes)

	priv, _ := btcec.PrivKeyFromBytes(privBytes[:])
	return priv, pub, nil
}

// serializeScript encodes a redeem script.
func serializeScript(script []byte) ([]byte, error) {
	return encodeRecords(tlv.MakePrimitiveRecord(typeScript, &script))
}

// deserializeScript decodes a row written by serializeScript.
func deserializeScript(tlvData []byte) ([]byte, error) {
	var script []byte
	err := decodeRecords(
		tlvData, tlv.MakePrimitiveRecord(typeScript, &script),
	)
	return script, err
}

// serializeSproutSpendingKey encodes a Sprout spending key.
func serializeSproutSpendingKey(sk zcash.SproutSpendingKey) ([]byte, error) {
	raw := [32]byte(sk)
	defer zero.Bytea32(&raw)

	return encodeRecords(
		tlv.MakePrimitiveRecord(typeSproutSpendingKey, &raw),
	)
}

// deserializeSproutSpendingKey decodes a row written by
// serializeSproutSpendingKey.
func deserializeSproutSpendingKey(tlvData []byte) (zcash.SproutSpendingKey,
	error) {

	var raw [32]byte
	err := decodeRecords(
		tlvData, tlv.MakePrimitiveRecord(typeSproutSpendingKey, &raw),
	)
	if err != nil {
		return zcash.SproutSpendingKey{}, err
	}
	defer zero.Bytea32(&raw)

	return zcash.SproutSpendingKeyFromBytes(raw[:])
}

// serializeSproutViewingKey encodes a Sprout viewing key.
func serializeSproutViewingKey(vk zcash.SproutViewingKey) ([]byte, error) {
	var raw [64]byte
	copy(raw[:], vk.Bytes())

	return encodeRecords(
		tlv.MakePrimitiveRecord(typeSproutViewingKey, &raw),
	)
}

// deserializeSproutViewingKey decodes a row written by
// serializeSproutViewingKey.
func deserializeSproutViewingKey(tlvData []byte) (zcash.SproutViewingKey,
	error) {

	var raw [64]byte
	err := decodeRecords(
		tlvData, tlv.MakePrimitiveRecord(typeSproutViewingKey, &raw),
	)
	if err != nil {
		return zcash.SproutViewingKey{}, err
	}

	return zcash.SproutViewingKeyFromBytes(raw[:])
}

// serializeSaplingSpendingKey encodes a Sapling spending key.
func serializeSaplingSpendingKey(sk zcash.SaplingSpendingKey) ([]byte,
	error) {

	raw := [32]byte(sk)
	defer zero.Bytea32(&raw)

	return encodeRecords(
		tlv.MakePrimitiveRecord(typeSaplingSpendingKey, &raw),
	)
}

// deserializeSaplingSpendingKey decodes a row written by
// serializeSaplingSpendingKey.
func deserializeSaplingSpendingKey(tlvData []byte) (zcash.SaplingSpendingKey,
	error) {

	var raw [32]byte
	err := decodeRecords(
		tlvData, tlv.MakePrimitiveRecord(typeSaplingSpendingKey, &raw),
	)
	if err != nil {
		return zcash.SaplingSpendingKey{}, err
	}
	defer zero.Bytea32(&raw)

	return zcash.SaplingSpendingKeyFromBytes(raw[:])
}

// serializeSaplingAddresses encodes the addresses indexed to one full viewing
// key as a concatenation of their serializations.
func serializeSaplingAddresses(addrs []zcash.SaplingPaymentAddress) ([]byte,
	error) {

	raw := make([]byte, 0, len(addrs)*zcash.SaplingPaymentAddressSize)
	for _, addr := range addrs {
		raw = append(raw, addr.Bytes()...)
	}

	return encodeRecords(
		tlv.MakePrimitiveRecord(typeSaplingAddresses, &raw),
	)
}

// deserializeSaplingAddresses decodes a row written by
// serializeSaplingAddresses.
func deserializeSaplingAddresses(
	tlvData []byte) ([]zcash.SaplingPaymentAddress, error) {

	var raw []byte
	err := decodeRecords(
		tlvData, tlv.MakePrimitiveRecord(typeSaplingAddresses, &raw),
	)
	if err != nil {
		return nil, err
	}

	const size = zcash.SaplingPaymentAddressSize
	if len(raw)%size != 0 {
		return nil, fmt.Errorf("sapling address list has invalid "+
			"length %d", len(raw))
	}

	addrs := make([]zcash.SaplingPaymentAddress, 0, len(raw)/size)
	for len(raw) > 0 {
		addr, err := zcash.SaplingPaymentAddressFromBytes(raw[:size])
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
		raw = raw[size:]
	}

	return addrs, nil
}

// serializeCryptedKey encodes an encrypted transparent key.
func serializeCryptedKey(pub *btcec.PublicKey, ciphertext []byte) ([]byte,
	error) {

	return encodeRecords(
		tlv.MakePrimitiveRecord(typeCryptedPubKey, &pub),
		tlv.MakePrimitiveRecord(typeCryptedSecret, &ciphertext),
	)
}

// deserializeCryptedKey decodes a row written by serializeCryptedKey.
func deserializeCryptedKey(tlvData []byte) (*btcec.PublicKey, []byte, error) {
	var (
		pub        *btcec.PublicKey
		ciphertext []byte
	)
	err := decodeRecords(
		tlvData,
		tlv.MakePrimitiveRecord(typeCryptedPubKey, &pub),
		tlv.MakePrimitiveRecord(typeCryptedSecret, &ciphertext),
	)
	return pub, ciphertext, err
}

// serializeCryptedSproutKey encodes an encrypted Sprout spending key with
// its viewing key.
func serializeCryptedSproutKey(vk zcash.SproutViewingKey,
	ciphertext []byte) ([]byte, error) {

	var raw [64]byte
	copy(raw[:], vk.Bytes())

	return encodeRecords(
		tlv.MakePrimitiveRecord(typeCryptedViewingKey, &raw),
		tlv.MakePrimitiveRecord(typeCryptedSecret, &ciphertext),
	)
}

// deserializeCryptedSproutKey decodes a row written by
// serializeCryptedSproutKey.
func deserializeCryptedSproutKey(tlvData []byte) (zcash.SproutViewingKey,
	[]byte, error) {

	var (
		raw        [64]byte
		ciphertext []byte
	)
	err := decodeRecords(
		tlvData,
		tlv.MakePrimitiveRecord(typeCryptedViewingKey, &raw),
		tlv.MakePrimitiveRecord(typeCryptedSecret, &ciphertext),
	)
	if err != nil {
		return zcash.SproutViewingKey{}, nil, err
	}

	vk, err := zcash.SproutViewingKeyFromBytes(raw[:])
	return vk, ciphertext, err
}

// serializeCryptedSaplingKey encodes an encrypted Sapling spending key.
func serializeCryptedSaplingKey(ciphertext []byte) ([]byte, error) {
	return encodeRecords(
		tlv.MakePrimitiveRecord(typeCryptedSecret, &ciphertext),
	)
}

// deserializeCryptedSaplingKey decodes a row written by
// serializeCryptedSaplingKey.
func deserializeCryptedSaplingKey(tlvData []byte) ([]byte, error) {
	var ciphertext []byte
	err := decodeRecords(
		tlvData, tlv.MakePrimitiveRecord(typeCryptedSecret, &ciphertext),
	)
	return ciphertext, err
}
