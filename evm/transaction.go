package evm

import (
	"math/big"

	"github.com/signetlabs/signet-go/hashes"
	"github.com/signetlabs/signet-go/rlp"
)

// legacyReplayProtectionOffset is the constant added (together with twice
// the chain id) to the recovery id when folding it into the v field of a
// replay-protected legacy transaction.
const legacyReplayProtectionOffset = 35

// Transaction describes a transaction of the EVM chain family. Exactly one
// fee model is populated per type: GasPrice for legacy and access-list
// transactions, the (MaxPriorityFeePerGas, MaxFeePerGas) pair for fee-market
// transactions. The type tag determines which RLP field list is emitted.
//
// A Transaction is immutable once built; the signing and signed encodings
// are derived values, so recomputing them from the same fields always yields
// the same bytes.
type Transaction struct {
	Type    TxType
	ChainID uint64
	Nonce   uint64

	GasPrice             *big.Int // legacy and access-list fee model
	MaxPriorityFeePerGas *big.Int // fee-market only
	MaxFeePerGas         *big.Int // fee-market only

	GasLimit uint64

	// To is the destination address. nil means contract creation.
	To *Address

	Value      *big.Int
	Data       []byte
	AccessList AccessList
}

// BuildForSigning returns the exact byte sequence the external signer must
// hash and sign: the type-appropriate RLP field list with the signature
// fields omitted, prefixed by the one-byte type tag for typed transactions.
// Legacy transactions carry no prefix and append (chain id, 0, 0) in lieu of
// a signature, per the replay-protection convention.
func (tx *Transaction) BuildForSigning() []byte {
	stream := rlp.NewStream()
	if tx.Type != LegacyTxType {
		stream.AppendBytes([]byte{byte(tx.Type)})
	}

	stream.BeginList()
	tx.encodeFields(stream)
	if tx.Type == LegacyTxType {
		stream.AppendUint64(tx.ChainID)
		stream.AppendUint64(0)
		stream.AppendUint64(0)
	}
	stream.EndList()

	return stream.Finish()
}

// BuildWithSignature returns the broadcast-ready encoding: the same field
// list with the signature's recovery/parity, r and s appended. For legacy
// transactions the chain id is folded into the recovery id instead of being
// appended separately.
func (tx *Transaction) BuildWithSignature(signature *Signature) []byte {
	stream := rlp.NewStream()
	if tx.Type != LegacyTxType {
		stream.AppendBytes([]byte{byte(tx.Type)})
	}

	v := signature.V
	if tx.Type == LegacyTxType {
		v = tx.ChainID*2 + legacyReplayProtectionOffset + signature.V
	}

	stream.BeginList()
	tx.encodeFields(stream)
	stream.AppendUint64(v)
	stream.AppendBigInt(new(big.Int).SetBytes(signature.R))
	stream.AppendBigInt(new(big.Int).SetBytes(signature.S))
	stream.EndList()

	return stream.Finish()
}

// HashForSigning returns the Keccak-256 digest of the unsigned encoding; it
// is the value the external signer signs.
func (tx *Transaction) HashForSigning() hashes.Hash {
	return hashes.Keccak256(tx.BuildForSigning())
}

// Hash returns the Keccak-256 digest of the signed encoding, which is the
// canonical transaction id.
func (tx *Transaction) Hash(signature *Signature) hashes.Hash {
	return hashes.Keccak256(tx.BuildWithSignature(signature))
}

// encodeFields appends the signature-independent fields of the type's RLP
// field list.
func (tx *Transaction) encodeFields(stream *rlp.Stream) {
	switch tx.Type {
	case LegacyTxType:
		stream.AppendUint64(tx.Nonce)
		stream.AppendBigInt(tx.GasPrice)
		stream.AppendUint64(tx.GasLimit)
		tx.encodeTo(stream)
		stream.AppendBigInt(tx.Value)
		stream.AppendBytes(tx.Data)

	case AccessListTxType:
		stream.AppendUint64(tx.ChainID)
		stream.AppendUint64(tx.Nonce)
		stream.AppendBigInt(tx.GasPrice)
		stream.AppendUint64(tx.GasLimit)
		tx.encodeTo(stream)
		stream.AppendBigInt(tx.Value)
		stream.AppendBytes(tx.Data)
		tx.encodeAccessList(stream)

	case DynamicFeeTxType:
		stream.AppendUint64(tx.ChainID)
		stream.AppendUint64(tx.Nonce)
		stream.AppendBigInt(tx.MaxPriorityFeePerGas)
		stream.AppendBigInt(tx.MaxFeePerGas)
		stream.AppendUint64(tx.GasLimit)
		tx.encodeTo(stream)
		stream.AppendBigInt(tx.Value)
		stream.AppendBytes(tx.Data)
		tx.encodeAccessList(stream)
	}
}

// encodeTo appends the destination address, or the empty string for contract
// creation.
func (tx *Transaction) encodeTo(stream *rlp.Stream) {
	if tx.To == nil {
		stream.AppendBytes(nil)
		return
	}
	stream.AppendBytes(tx.To[:])
}

// encodeAccessList appends the access list: a list of (address, storage key
// list) pairs, order preserved exactly.
func (tx *Transaction) encodeAccessList(stream *rlp.Stream) {
	stream.BeginList()
	for _, tuple := range tx.AccessList {
		stream.BeginList()
		stream.AppendBytes(tuple.Address[:])
		stream.BeginList()
		for _, key := range tuple.StorageKeys {
			stream.AppendBytes(key[:])
		}
		stream.EndList()
		stream.EndList()
	}
	stream.EndList()
}
