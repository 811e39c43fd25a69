// Package evm implements the transaction model of the EVM chain family: the
// per-type RLP encodings, the typed-transaction envelope and the Keccak-256
// transaction hashing.
package evm

import (
	"encoding/hex"

	"github.com/pkg/errors"
)

// AddressLength is the fixed width of an account address.
const AddressLength = 20

// StorageKeyLength is the fixed width of an access-list storage key.
const StorageKeyLength = 32

// Address is a 20-byte account address.
type Address [AddressLength]byte

// String returns the address as 0x-prefixed hexadecimal.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// AccessTuple pre-declares an address and the storage keys a transaction
// touches. Key order is signing-significant.
type AccessTuple struct {
	Address     Address
	StorageKeys [][StorageKeyLength]byte
}

// AccessList is an ordered sequence of access tuples. Order is
// signing-significant.
type AccessList []AccessTuple

// TxType discriminates the supported transaction encodings.
type TxType byte

const (
	// LegacyTxType is the original transaction format with a single gas
	// price. It carries no type-tag prefix, preserving pre-typed-envelope
	// compatibility.
	LegacyTxType TxType = 0x00

	// AccessListTxType adds an access list to the legacy fee model.
	AccessListTxType TxType = 0x01

	// DynamicFeeTxType replaces the gas price with the fee-market pair
	// (max priority fee per gas, max fee per gas).
	DynamicFeeTxType TxType = 0x02
)

// String returns a human-readable name for the transaction type.
func (t TxType) String() string {
	switch t {
	case LegacyTxType:
		return "legacy"
	case AccessListTxType:
		return "access-list"
	case DynamicFeeTxType:
		return "dynamic-fee"
	default:
		return "unknown"
	}
}

// Signature is the chain-conventional signature form the external signer
// returns. V is the recovery/parity id: 0 or 1 as produced by the signer.
// For typed transactions it is emitted as-is; for legacy transactions it is
// folded into the replay-protected value chainID*2 + 35 + V at encode time.
// R and S are big-endian scalars with leading zeros stripped by the encoder.
type Signature struct {
	V uint64
	R []byte
	S []byte
}

// ErrInvalidTransaction is returned when semantic field validation fails at
// build time: conflicting fee fields, a contract creation without input
// data, or non-monotonic fee bounds.
var ErrInvalidTransaction = errors.New("invalid transaction")

// ErrInvalidAddress is returned when an address string cannot be parsed into
// the chain's fixed-width byte form.
var ErrInvalidAddress = errors.New("invalid address")

// ErrMissingField is returned by Build when a chain-required field was never
// set on the builder.
var ErrMissingField = errors.New("missing required field")

// ParseAddress parses a human-readable address: an optional 0x prefix
// followed by exactly 40 hexadecimal characters.
func ParseAddress(address string) (Address, error) {
	stripped := address
	if len(stripped) >= 2 && (stripped[:2] == "0x" || stripped[:2] == "0X") {
		stripped = stripped[2:]
	}

	decoded, err := hex.DecodeString(stripped)
	if err != nil {
		return Address{}, errors.Wrapf(ErrInvalidAddress, "%q is not valid hexadecimal", address)
	}
	if len(decoded) != AddressLength {
		return Address{}, errors.Wrapf(ErrInvalidAddress, "decoded address is %d bytes, want %d",
			len(decoded), AddressLength)
	}

	var parsed Address
	copy(parsed[:], decoded)
	return parsed, nil
}
