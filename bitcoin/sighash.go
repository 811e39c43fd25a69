package bitcoin

import (
	"bytes"
	"math"

	"github.com/pkg/errors"

	"github.com/signetlabs/signet-go/hashes"
	"github.com/signetlabs/signet-go/serialization"
	"github.com/signetlabs/signet-go/util/binaryserializer"
)

// SigHashType represents hash type bits at the end of a signature.
type SigHashType uint32

// Hash type bits from the end of a signature.
const (
	SigHashAll          SigHashType = 0x1
	SigHashNone         SigHashType = 0x2
	SigHashSingle       SigHashType = 0x3
	SigHashAnyOneCanPay SigHashType = 0x80

	// SigHashMask defines the number of bits of the hash type which is used
	// to identify which outputs are signed.
	SigHashMask = 0x1f
)

// SignatureHashLegacy constructs the legacy sighash preimage for the input at
// idx: the serialization of a modified copy of the transaction where every
// input's unlocking script is emptied except the one being signed, which
// receives scriptCode (the script being spent, supplied by the caller), with
// outputs and other inputs filtered per hashType, followed by the hash type
// as a 4-byte little-endian suffix.
//
// SigHashSingle with idx beyond the last output is rejected rather than
// reproducing the historical one-hash consensus quirk.
func (tx *Transaction) SignatureHashLegacy(idx int, hashType SigHashType, scriptCode []byte) ([]byte, error) {
	if idx < 0 || idx >= len(tx.TxIn) {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "input index %d, transaction has %d inputs",
			idx, len(tx.TxIn))
	}

	// The SigHashSingle signature type signs only the corresponding input
	// and output (the output with the same index number as the input).
	//
	// Since transactions can have more inputs than outputs, it is improper
	// to use SigHashSingle on input indices that don't have a corresponding
	// output.
	if hashType&SigHashMask == SigHashSingle && idx >= len(tx.TxOut) {
		return nil, errors.Wrapf(ErrIndexOutOfRange,
			"sigHashSingle input index %d has no corresponding output", idx)
	}

	// Work on a shallow scratch copy so zeroed-out fields never persist into
	// the live transaction.
	txCopy := tx.shallowCopy()
	for i := range txCopy.TxIn {
		if i == idx {
			txCopy.TxIn[i].SignatureScript = scriptCode
		} else {
			txCopy.TxIn[i].SignatureScript = nil
		}
		// Witness data never participates in the legacy preimage.
		txCopy.TxIn[i].Witness = nil
	}

	switch hashType & SigHashMask {
	case SigHashNone:
		txCopy.TxOut = txCopy.TxOut[0:0] // Empty slice.
		for i := range txCopy.TxIn {
			if i != idx {
				txCopy.TxIn[i].Sequence = 0
			}
		}

	case SigHashSingle:
		// Resize output array to up to and including requested index.
		txCopy.TxOut = txCopy.TxOut[:idx+1]

		// All but the current output are replaced by the "null" output: a
		// maximum value and an empty script.
		for i := 0; i < idx; i++ {
			txCopy.TxOut[i].Value = math.MaxUint64
			txCopy.TxOut[i].ScriptPubKey = nil
		}

		// Sequence on all other inputs is 0, too.
		for i := range txCopy.TxIn {
			if i != idx {
				txCopy.TxIn[i].Sequence = 0
			}
		}

	default:
		// Consensus treats undefined hashtypes like normal SigHashAll for
		// purposes of hash generation.
		fallthrough
	case SigHashAll:
		// Nothing special here.
	}
	if hashType&SigHashAnyOneCanPay != 0 {
		txCopy.TxIn = txCopy.TxIn[idx : idx+1]
	}

	// The preimage is the serialized modified transaction with the hash type
	// appended as a 4-byte little-endian value.
	var buf bytes.Buffer
	err := txCopy.encode(&buf, false)
	if err != nil {
		return nil, err
	}
	err = binaryserializer.PutUint32(&buf, uint32(hashType))
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SignatureHashSegwit constructs the segwit (BIP143-style) sighash preimage
// for the input at idx. Unlike the legacy preimage it is built from digests
// of the prevouts, sequences and outputs rather than a modified transaction
// copy, and it commits to the value being spent, which the caller supplies
// along with scriptCode.
func (tx *Transaction) SignatureHashSegwit(idx int, hashType SigHashType, scriptCode []byte, value uint64) ([]byte, error) {
	if idx < 0 || idx >= len(tx.TxIn) {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "input index %d, transaction has %d inputs",
			idx, len(tx.TxIn))
	}

	var zeroHash hashes.Hash

	hashPrevouts := zeroHash
	if hashType&SigHashAnyOneCanPay == 0 {
		writer := hashes.NewDoubleHashWriter()
		for _, ti := range tx.TxIn {
			err := writeOutpoint(writer, &ti.PreviousOutpoint)
			if err != nil {
				return nil, err
			}
		}
		hashPrevouts = writer.Finalize()
	}

	hashSequence := zeroHash
	if hashType&SigHashAnyOneCanPay == 0 &&
		hashType&SigHashMask != SigHashSingle &&
		hashType&SigHashMask != SigHashNone {

		writer := hashes.NewDoubleHashWriter()
		for _, ti := range tx.TxIn {
			err := binaryserializer.PutUint32(writer, ti.Sequence)
			if err != nil {
				return nil, err
			}
		}
		hashSequence = writer.Finalize()
	}

	hashOutputs := zeroHash
	switch {
	case hashType&SigHashMask != SigHashSingle && hashType&SigHashMask != SigHashNone:
		writer := hashes.NewDoubleHashWriter()
		for _, to := range tx.TxOut {
			err := writeTxOut(writer, to)
			if err != nil {
				return nil, err
			}
		}
		hashOutputs = writer.Finalize()

	case hashType&SigHashMask == SigHashSingle && idx < len(tx.TxOut):
		writer := hashes.NewDoubleHashWriter()
		err := writeTxOut(writer, tx.TxOut[idx])
		if err != nil {
			return nil, err
		}
		hashOutputs = writer.Finalize()
	}

	var buf bytes.Buffer
	err := binaryserializer.PutUint32(&buf, uint32(tx.Version))
	if err != nil {
		return nil, err
	}
	buf.Write(hashPrevouts[:])
	buf.Write(hashSequence[:])
	err = writeOutpoint(&buf, &tx.TxIn[idx].PreviousOutpoint)
	if err != nil {
		return nil, err
	}
	err = serialization.WriteVarBytes(&buf, scriptCode)
	if err != nil {
		return nil, err
	}
	err = binaryserializer.PutUint64(&buf, value)
	if err != nil {
		return nil, err
	}
	err = binaryserializer.PutUint32(&buf, tx.TxIn[idx].Sequence)
	if err != nil {
		return nil, err
	}
	buf.Write(hashOutputs[:])
	err = binaryserializer.PutUint32(&buf, tx.LockTime)
	if err != nil {
		return nil, err
	}
	err = binaryserializer.PutUint32(&buf, uint32(hashType))
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CalcSignatureHashLegacy returns the double sha256 digest of the legacy
// sighash preimage, which is what the external signer conventionally signs.
func (tx *Transaction) CalcSignatureHashLegacy(idx int, hashType SigHashType, scriptCode []byte) (hashes.Hash, error) {
	preimage, err := tx.SignatureHashLegacy(idx, hashType, scriptCode)
	if err != nil {
		return hashes.Hash{}, err
	}
	return hashes.DoubleHashH(preimage), nil
}

// CalcSignatureHashSegwit returns the double sha256 digest of the segwit
// sighash preimage.
func (tx *Transaction) CalcSignatureHashSegwit(idx int, hashType SigHashType, scriptCode []byte, value uint64) (hashes.Hash, error) {
	preimage, err := tx.SignatureHashSegwit(idx, hashType, scriptCode, value)
	if err != nil {
		return hashes.Hash{}, err
	}
	return hashes.DoubleHashH(preimage), nil
}

// shallowCopy creates a shallow copy of the transaction for use when
// calculating the signature hash. It is used over a deep copy since the
// preimage construction only rewrites top-level input and output fields.
func (tx *Transaction) shallowCopy() Transaction {
	// As an additional memory optimization, use contiguous backing arrays
	// for the copied inputs and outputs and point the final slices of
	// pointers into the contiguous arrays. This avoids a lot of small
	// allocations.
	txCopy := Transaction{
		Version:  tx.Version,
		TxIn:     make([]*TxIn, len(tx.TxIn)),
		TxOut:    make([]*TxOut, len(tx.TxOut)),
		LockTime: tx.LockTime,
	}
	txIns := make([]TxIn, len(tx.TxIn))
	for i, oldTxIn := range tx.TxIn {
		txIns[i] = *oldTxIn
		txCopy.TxIn[i] = &txIns[i]
	}
	txOuts := make([]TxOut, len(tx.TxOut))
	for i, oldTxOut := range tx.TxOut {
		txOuts[i] = *oldTxOut
		txCopy.TxOut[i] = &txOuts[i]
	}
	return txCopy
}
