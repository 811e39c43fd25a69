package bitcoin

import (
	"github.com/pkg/errors"
)

// ErrMissingField is returned by Build when a chain-required field was never
// set on the builder.
var ErrMissingField = errors.New("missing required field")

// TransactionBuilder accumulates transaction fields and produces an immutable
// Transaction. Every setter records the field verbatim and returns the
// builder for chaining; nothing is reordered, coerced or fetched from
// external state. A builder has a single owner for its entire accumulation
// phase and no lifecycle beyond one Build.
type TransactionBuilder struct {
	version  *int32
	lockTime *uint32
	inputs   []*TxIn
	outputs  []*TxOut
}

// NewTransactionBuilder returns an empty builder.
func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{}
}

// Version sets the transaction version. Unset defaults to TxVersion.
func (b *TransactionBuilder) Version(version int32) *TransactionBuilder {
	b.version = &version
	return b
}

// LockTime sets the transaction locktime. Unset defaults to 0.
func (b *TransactionBuilder) LockTime(lockTime uint32) *TransactionBuilder {
	b.lockTime = &lockTime
	return b
}

// AddInput appends an input. Insertion order is preserved exactly; it is
// signing-significant.
func (b *TransactionBuilder) AddInput(input *TxIn) *TransactionBuilder {
	b.inputs = append(b.inputs, input)
	return b
}

// AddOutput appends an output. Insertion order is preserved exactly; it is
// signing-significant.
func (b *TransactionBuilder) AddOutput(output *TxOut) *TransactionBuilder {
	b.outputs = append(b.outputs, output)
	return b
}

// Build validates that all chain-required fields are present and produces
// the transaction. There is no partial-success state: either a fully valid
// transaction is produced or nothing is.
func (b *TransactionBuilder) Build() (*Transaction, error) {
	if len(b.inputs) == 0 {
		return nil, errors.Wrap(ErrMissingField, "inputs")
	}
	if len(b.outputs) == 0 {
		return nil, errors.Wrap(ErrMissingField, "outputs")
	}

	version := TxVersion
	if b.version != nil {
		version = *b.version
	}

	tx := NewTransaction(version, b.inputs, b.outputs)
	if b.lockTime != nil {
		tx.LockTime = *b.lockTime
	}
	return tx, nil
}
