package bitcoin

import (
	"encoding/hex"

	"github.com/btcsuite/btcutil"
	"github.com/pkg/errors"
)

// These constants are the script opcodes used by the standard script
// templates this package emits. Only construction is modeled here; there is
// no execution semantics.
const (
	Op0           byte = 0x00
	OpData20      byte = 0x14
	OpPushData1   byte = 0x4c
	OpPushData2   byte = 0x4d
	OpPushData4   byte = 0x4e
	OpDup         byte = 0x76
	OpEqualVerify byte = 0x88
	OpHash160     byte = 0xa9
	OpCheckSig    byte = 0xac
)

// PubKeyHashLength is the fixed width of a pay-to-pubkey-hash address
// payload: RIPEMD160(SHA256(pubkey)).
const PubKeyHashLength = 20

// ErrInvalidLength is returned when a script template is given a payload of
// the wrong width.
var ErrInvalidLength = errors.New("invalid length")

// ErrInvalidAddress is returned when an address string cannot be parsed into
// the chain's fixed-width byte form.
var ErrInvalidAddress = errors.New("invalid address")

// PayToPubKeyHashScript emits the standard pay-to-pubkey-hash locking script
// template: OP_DUP OP_HASH160 <20-byte hash> OP_EQUALVERIFY OP_CHECKSIG.
func PayToPubKeyHashScript(pubKeyHash []byte) ([]byte, error) {
	if len(pubKeyHash) != PubKeyHashLength {
		return nil, errors.Wrapf(ErrInvalidLength, "pubkey hash is %d bytes, want %d",
			len(pubKeyHash), PubKeyHashLength)
	}

	script := make([]byte, 0, 25)
	script = append(script, OpDup, OpHash160, OpData20)
	script = append(script, pubKeyHash...)
	script = append(script, OpEqualVerify, OpCheckSig)
	return script, nil
}

// PayToWitnessPubKeyHashScript emits the native segwit version-0 locking
// script template: OP_0 <20-byte hash>.
func PayToWitnessPubKeyHashScript(pubKeyHash []byte) ([]byte, error) {
	if len(pubKeyHash) != PubKeyHashLength {
		return nil, errors.Wrapf(ErrInvalidLength, "pubkey hash is %d bytes, want %d",
			len(pubKeyHash), PubKeyHashLength)
	}

	script := make([]byte, 0, 22)
	script = append(script, Op0, OpData20)
	script = append(script, pubKeyHash...)
	return script, nil
}

// SignatureScript builds the canonical pay-to-pubkey-hash unlocking script:
// a push of the signature (with its sighash-type suffix already attached)
// followed by a push of the public key.
func SignatureScript(signature, pubKey []byte) []byte {
	script := appendPushData(nil, signature)
	return appendPushData(script, pubKey)
}

// appendPushData appends the minimal push of data to script.
func appendPushData(script, data []byte) []byte {
	switch {
	case len(data) <= 75:
		script = append(script, byte(len(data)))
	case len(data) <= 0xff:
		script = append(script, OpPushData1, byte(len(data)))
	case len(data) <= 0xffff:
		script = append(script, OpPushData2, byte(len(data)), byte(len(data)>>8))
	default:
		script = append(script, OpPushData4,
			byte(len(data)), byte(len(data)>>8), byte(len(data)>>16), byte(len(data)>>24))
	}
	return append(script, data...)
}

// PubKeyHash returns RIPEMD160(SHA256(pubKey)), the payload the standard
// locking script templates commit to.
func PubKeyHash(pubKey []byte) []byte {
	return btcutil.Hash160(pubKey)
}

// ParseAddress parses a human-readable address into the chain's byte form:
// the hexadecimal encoding of the 20-byte pubkey hash.
func ParseAddress(address string) ([]byte, error) {
	decoded, err := hex.DecodeString(address)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidAddress, "%q is not valid hexadecimal", address)
	}
	if len(decoded) != PubKeyHashLength {
		return nil, errors.Wrapf(ErrInvalidAddress, "decoded address is %d bytes, want %d",
			len(decoded), PubKeyHashLength)
	}
	return decoded, nil
}
