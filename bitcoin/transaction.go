// Package bitcoin implements the transaction model of the UTXO chain family:
// the wire serialization (legacy and segwit layouts), transaction ids,
// sighash preimage construction and signature splicing.
package bitcoin

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/signetlabs/signet-go/hashes"
	"github.com/signetlabs/signet-go/serialization"
	"github.com/signetlabs/signet-go/util/binaryserializer"
)

const (
	// TxVersion is the current default transaction version.
	TxVersion int32 = 2

	// MaxTxInSequenceNum is the maximum sequence number a transaction input
	// can be.
	MaxTxInSequenceNum uint32 = 0xffffffff

	// witnessMarkerByte and witnessFlagByte are emitted between the version
	// and the input count when any input carries witness data.
	witnessMarkerByte byte = 0x00
	witnessFlagByte   byte = 0x01

	// maxTxSerializeSize is the maximum serialized size a transaction can
	// have under the block weight limit.
	maxTxSerializeSize = 1 << 22

	// minTxInPayload is the minimum payload size for a transaction input.
	// PreviousOutpoint.TxID + PreviousOutpoint.Index 4 bytes + varint for
	// SignatureScript length 1 byte + Sequence 4 bytes.
	minTxInPayload = 9 + hashes.HashSize

	// maxTxInPerTransaction is the maximum number of inputs a transaction
	// which fits into maxTxSerializeSize could possibly have.
	maxTxInPerTransaction = (maxTxSerializeSize / minTxInPayload) + 1

	// minTxOutPayload is the minimum payload size for a transaction output.
	// Value 8 bytes + varint for PkScript length 1 byte.
	minTxOutPayload = 9

	// maxTxOutPerTransaction is the maximum number of outputs a transaction
	// which fits into maxTxSerializeSize could possibly have.
	maxTxOutPerTransaction = (maxTxSerializeSize / minTxOutPayload) + 1

	// maxWitnessItemsPerInput is the maximum number of witness stack items
	// a single input which fits into maxTxSerializeSize could carry, each
	// item costing at least its one-byte length prefix.
	maxWitnessItemsPerInput = maxTxSerializeSize
)

// ErrIndexOutOfRange is returned when a signing or finalize operation
// references an input (or, for SigHashSingle, an output) that does not exist.
var ErrIndexOutOfRange = errors.New("index out of range")

// Outpoint defines a data type that is used to track previous transaction
// outputs. It is immutable once constructed.
type Outpoint struct {
	TxID  hashes.Hash
	Index uint32
}

// NewOutpoint returns a new transaction outpoint point with the provided
// hash and index.
func NewOutpoint(txID *hashes.Hash, index uint32) *Outpoint {
	return &Outpoint{
		TxID:  *txID,
		Index: index,
	}
}

// String returns the Outpoint in the human-readable form "txid:index".
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID, o.Index)
}

// TxIn defines a transaction input.
type TxIn struct {
	PreviousOutpoint Outpoint

	// SignatureScript is the unlocking script. It stays empty for
	// segwit-native inputs, whose unlocking data lives in Witness.
	SignatureScript []byte

	Sequence uint32

	// Witness is the ordered segwit witness stack. Empty for legacy inputs.
	Witness [][]byte
}

// NewTxIn returns a new transaction input with the provided previous outpoint
// and signature script with a default sequence of MaxTxInSequenceNum.
func NewTxIn(previousOutpoint *Outpoint, signatureScript []byte) *TxIn {
	return &TxIn{
		PreviousOutpoint: *previousOutpoint,
		SignatureScript:  signatureScript,
		Sequence:         MaxTxInSequenceNum,
	}
}

// TxOut defines a transaction output.
type TxOut struct {
	Value        uint64
	ScriptPubKey []byte
}

// NewTxOut returns a new transaction output with the provided value and
// locking script.
func NewTxOut(value uint64, scriptPubKey []byte) *TxOut {
	return &TxOut{
		Value:        value,
		ScriptPubKey: scriptPubKey,
	}
}

// Transaction describes a transaction of the UTXO chain family.
//
// Input and output order is part of the canonical encoding and therefore part
// of what gets signed; nothing here ever reorders them. A transaction is
// "segwit" if any input carries a non-empty witness, which selects the
// marker/flag serialization variant.
//
// A Transaction is effectively immutable once built except for the explicit
// finalize step, which overwrites the script or witness slot of a single
// input. Concurrent finalization of the same input index is a race: the last
// write wins. Callers that finalize different inputs from multiple goroutines
// must synchronize externally.
type Transaction struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32
}

// NewTransaction returns a new transaction with the provided version, inputs
// and outputs, preserving their order exactly.
func NewTransaction(version int32, txIn []*TxIn, txOut []*TxOut) *Transaction {
	return &Transaction{
		Version: version,
		TxIn:    txIn,
		TxOut:   txOut,
	}
}

// AddTxIn adds a transaction input to the message.
func (tx *Transaction) AddTxIn(ti *TxIn) {
	tx.TxIn = append(tx.TxIn, ti)
}

// AddTxOut adds a transaction output to the message.
func (tx *Transaction) AddTxOut(to *TxOut) {
	tx.TxOut = append(tx.TxOut, to)
}

// HasWitness reports whether any input carries a non-empty witness stack.
func (tx *Transaction) HasWitness() bool {
	for _, ti := range tx.TxIn {
		if len(ti.Witness) > 0 {
			return true
		}
	}
	return false
}

// Serialize returns the canonical wire encoding of the transaction. When any
// input carries witness data the segwit marker/flag fields and per-input
// witness stacks are emitted; otherwise the strict legacy layout is used.
func (tx *Transaction) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	err := tx.encode(&buf, tx.HasWitness())
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SerializeNoWitness returns the legacy wire encoding with witness data
// stripped, which is the encoding the transaction id commits to.
func (tx *Transaction) SerializeNoWitness() ([]byte, error) {
	var buf bytes.Buffer
	err := tx.encode(&buf, false)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TxID returns the double sha256 of the non-witness serialization. Witness
// data is excluded from the id even when present. The result is in internal
// byte order; reversal for display is the caller's concern.
func (tx *Transaction) TxID() hashes.Hash {
	writer := hashes.NewDoubleHashWriter()
	// Writes to a hash writer never fail.
	err := tx.encode(writer, false)
	if err != nil {
		panic(errors.Wrap(err, "TxID failed. this should never fail for structurally-valid transactions"))
	}
	return writer.Finalize()
}

func (tx *Transaction) encode(w io.Writer, includeWitness bool) error {
	err := binaryserializer.PutUint32(w, uint32(tx.Version))
	if err != nil {
		return err
	}

	if includeWitness {
		_, err = w.Write([]byte{witnessMarkerByte, witnessFlagByte})
		if err != nil {
			return errors.WithStack(err)
		}
	}

	err = serialization.WriteVarInt(w, uint64(len(tx.TxIn)))
	if err != nil {
		return err
	}
	for _, ti := range tx.TxIn {
		err = writeTxIn(w, ti)
		if err != nil {
			return err
		}
	}

	err = serialization.WriteVarInt(w, uint64(len(tx.TxOut)))
	if err != nil {
		return err
	}
	for _, to := range tx.TxOut {
		err = writeTxOut(w, to)
		if err != nil {
			return err
		}
	}

	if includeWitness {
		for _, ti := range tx.TxIn {
			err = writeWitness(w, ti.Witness)
			if err != nil {
				return err
			}
		}
	}

	return binaryserializer.PutUint32(w, tx.LockTime)
}

func writeOutpoint(w io.Writer, outpoint *Outpoint) error {
	_, err := w.Write(outpoint.TxID[:])
	if err != nil {
		return errors.WithStack(err)
	}
	return binaryserializer.PutUint32(w, outpoint.Index)
}

func writeTxIn(w io.Writer, ti *TxIn) error {
	err := writeOutpoint(w, &ti.PreviousOutpoint)
	if err != nil {
		return err
	}

	err = serialization.WriteVarBytes(w, ti.SignatureScript)
	if err != nil {
		return err
	}

	return binaryserializer.PutUint32(w, ti.Sequence)
}

func writeTxOut(w io.Writer, to *TxOut) error {
	err := binaryserializer.PutUint64(w, to.Value)
	if err != nil {
		return err
	}
	return serialization.WriteVarBytes(w, to.ScriptPubKey)
}

func writeWitness(w io.Writer, witness [][]byte) error {
	err := serialization.WriteVarInt(w, uint64(len(witness)))
	if err != nil {
		return err
	}
	for _, item := range witness {
		err = serialization.WriteVarBytes(w, item)
		if err != nil {
			return err
		}
	}
	return nil
}

// DeserializeTransaction decodes a transaction from its wire encoding,
// accepting both the legacy and the segwit marker/flag layouts.
func DeserializeTransaction(data []byte) (*Transaction, error) {
	r := bytes.NewReader(data)
	tx := &Transaction{}
	err := tx.decode(r)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, errors.Wrapf(serialization.ErrMalformedEncoding,
			"%d trailing bytes after the encoded transaction", r.Len())
	}
	return tx, nil
}

func (tx *Transaction) decode(r io.Reader) error {
	version, err := binaryserializer.Uint32(r)
	if err != nil {
		return errors.Wrap(serialization.ErrMalformedEncoding, err.Error())
	}
	tx.Version = int32(version)

	count, err := serialization.ReadVarInt(r)
	if err != nil {
		return err
	}

	// A zero input count is the segwit marker; the flag byte and the real
	// input count follow.
	hasWitness := false
	if count == 0 {
		flag, err := binaryserializer.Uint8(r)
		if err != nil {
			return errors.Wrap(serialization.ErrMalformedEncoding, err.Error())
		}
		if flag != witnessFlagByte {
			return errors.Wrapf(serialization.ErrMalformedEncoding,
				"witness flag %#x, expected %#x", flag, witnessFlagByte)
		}
		hasWitness = true
		count, err = serialization.ReadVarInt(r)
		if err != nil {
			return err
		}
	}

	// Prevent more input transactions than could possibly fit into the
	// maximum transaction size. It would be possible to cause memory
	// exhaustion and panics without a sane upper bound on this count.
	if count > maxTxInPerTransaction {
		return errors.Wrapf(serialization.ErrMalformedEncoding,
			"too many transaction inputs to fit into max transaction size "+
				"[count %d, max %d]", count, maxTxInPerTransaction)
	}

	tx.TxIn = make([]*TxIn, 0, count)
	for i := uint64(0); i < count; i++ {
		ti, err := readTxIn(r)
		if err != nil {
			return err
		}
		tx.TxIn = append(tx.TxIn, ti)
	}

	count, err = serialization.ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > maxTxOutPerTransaction {
		return errors.Wrapf(serialization.ErrMalformedEncoding,
			"too many transaction outputs to fit into max transaction size "+
				"[count %d, max %d]", count, maxTxOutPerTransaction)
	}
	tx.TxOut = make([]*TxOut, 0, count)
	for i := uint64(0); i < count; i++ {
		to, err := readTxOut(r)
		if err != nil {
			return err
		}
		tx.TxOut = append(tx.TxOut, to)
	}

	if hasWitness {
		sawWitnessItem := false
		for _, ti := range tx.TxIn {
			itemCount, err := serialization.ReadVarInt(r)
			if err != nil {
				return err
			}
			if itemCount > maxWitnessItemsPerInput {
				return errors.Wrapf(serialization.ErrMalformedEncoding,
					"too many witness items to fit into max transaction size "+
						"[count %d, max %d]", itemCount, maxWitnessItemsPerInput)
			}
			witness := make([][]byte, 0, itemCount)
			for i := uint64(0); i < itemCount; i++ {
				item, err := serialization.ReadVarBytes(r, "witness item")
				if err != nil {
					return err
				}
				witness = append(witness, item)
			}
			if itemCount > 0 {
				ti.Witness = witness
				sawWitnessItem = true
			}
		}
		// The marker and flag bytes are only valid when at least one input
		// actually carries witness data. Accepting an all-empty witness
		// section would make the decode and encode of the same transaction
		// disagree byte for byte.
		if !sawWitnessItem {
			return errors.Wrap(serialization.ErrMalformedEncoding,
				"witness flag set but no witness data present")
		}
	}

	lockTime, err := binaryserializer.Uint32(r)
	if err != nil {
		return errors.Wrap(serialization.ErrMalformedEncoding, err.Error())
	}
	tx.LockTime = lockTime
	return nil
}

func readTxIn(r io.Reader) (*TxIn, error) {
	ti := &TxIn{}

	_, err := io.ReadFull(r, ti.PreviousOutpoint.TxID[:])
	if err != nil {
		return nil, errors.Wrap(serialization.ErrMalformedEncoding, err.Error())
	}
	ti.PreviousOutpoint.Index, err = binaryserializer.Uint32(r)
	if err != nil {
		return nil, errors.Wrap(serialization.ErrMalformedEncoding, err.Error())
	}

	ti.SignatureScript, err = serialization.ReadVarBytes(r, "signature script")
	if err != nil {
		return nil, err
	}

	ti.Sequence, err = binaryserializer.Uint32(r)
	if err != nil {
		return nil, errors.Wrap(serialization.ErrMalformedEncoding, err.Error())
	}
	return ti, nil
}

func readTxOut(r io.Reader) (*TxOut, error) {
	to := &TxOut{}

	var err error
	to.Value, err = binaryserializer.Uint64(r)
	if err != nil {
		return nil, errors.Wrap(serialization.ErrMalformedEncoding, err.Error())
	}

	to.ScriptPubKey, err = serialization.ReadVarBytes(r, "script pub key")
	if err != nil {
		return nil, err
	}
	return to, nil
}

// FinalizeInput installs the unlocking script for one input once a signature
// is available. Other inputs are not touched. Finalizing an already-finalized
// input overwrites it; the last write wins.
func (tx *Transaction) FinalizeInput(idx int, signatureScript []byte) error {
	if idx < 0 || idx >= len(tx.TxIn) {
		return errors.Wrapf(ErrIndexOutOfRange, "input index %d, transaction has %d inputs",
			idx, len(tx.TxIn))
	}
	tx.TxIn[idx].SignatureScript = signatureScript
	return nil
}

// FinalizeWitnessInput installs the witness stack for one segwit input once a
// signature is available. The signature script is cleared, as segwit-native
// inputs keep their unlocking data in the witness.
func (tx *Transaction) FinalizeWitnessInput(idx int, witness [][]byte) error {
	if idx < 0 || idx >= len(tx.TxIn) {
		return errors.Wrapf(ErrIndexOutOfRange, "input index %d, transaction has %d inputs",
			idx, len(tx.TxIn))
	}
	tx.TxIn[idx].Witness = witness
	tx.TxIn[idx].SignatureScript = nil
	return nil
}

// FinalizeP2PKHInput builds the canonical pay-to-pubkey-hash unlocking script
// from the signature and public key and installs it on the input at idx.
func (tx *Transaction) FinalizeP2PKHInput(idx int, signature, pubKey []byte) error {
	return tx.FinalizeInput(idx, SignatureScript(signature, pubKey))
}

// FinalizeP2WPKHInput installs the two-element pay-to-witness-pubkey-hash
// witness stack (signature, then public key) on the input at idx.
func (tx *Transaction) FinalizeP2WPKHInput(idx int, signature, pubKey []byte) error {
	return tx.FinalizeWitnessInput(idx, [][]byte{signature, pubKey})
}
