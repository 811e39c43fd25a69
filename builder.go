package signet

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/signetlabs/signet-go/bitcoin"
	"github.com/signetlabs/signet-go/evm"
)

// Chain selects the transaction model a Builder and a Transaction are bound
// to. The binding happens at construction time and never changes.
type Chain int

const (
	// ChainBitcoin selects the UTXO family model.
	ChainBitcoin Chain = iota + 1

	// ChainEVM selects the EVM family model.
	ChainEVM
)

// String returns the chain tag as a human-readable string.
func (c Chain) String() string {
	switch c {
	case ChainBitcoin:
		return "bitcoin"
	case ChainEVM:
		return "evm"
	default:
		return "unknown"
	}
}

// ErrChainMismatch is returned when an operation or setter that belongs to
// one chain family is used on a Builder or Transaction bound to the other.
var ErrChainMismatch = errors.New("operation does not apply to this chain")

// ErrMissingField is returned when a capability is exercised without the
// parameters or prior steps it requires, such as serializing an EVM
// transaction that was never finalized.
var ErrMissingField = errors.New("missing required field")

// Builder is the single fluent construction entry point, parameterized by
// chain at construction. Setters record fields verbatim, with no coercion or
// unit conversion, and never touch external state. A setter belonging to the
// other chain family poisons the builder; Build reports the mismatch.
//
// A Builder has a single owner: it is not safe for concurrent use.
type Builder struct {
	chain   Chain
	evm     *evm.TransactionBuilder
	bitcoin *bitcoin.TransactionBuilder
	err     error
}

// NewBuilder returns a Builder bound to the given chain.
func NewBuilder(chain Chain) *Builder {
	b := &Builder{chain: chain}
	switch chain {
	case ChainBitcoin:
		b.bitcoin = bitcoin.NewTransactionBuilder()
	case ChainEVM:
		b.evm = evm.NewTransactionBuilder()
	default:
		b.err = errors.Wrapf(ErrChainMismatch, "unknown chain %d", chain)
	}
	return b
}

func (b *Builder) requireChain(chain Chain, setter string) bool {
	if b.err != nil {
		return false
	}
	if b.chain != chain {
		b.err = errors.Wrapf(ErrChainMismatch, "%s is a %s field, builder is bound to %s",
			setter, chain, b.chain)
		return false
	}
	return true
}

// Type sets the EVM transaction type explicitly instead of letting it be
// inferred from the populated fee fields.
func (b *Builder) Type(txType evm.TxType) *Builder {
	if b.requireChain(ChainEVM, "type") {
		b.evm.Type(txType)
	}
	return b
}

// ChainID sets the EVM replay-protection chain id.
func (b *Builder) ChainID(chainID uint64) *Builder {
	if b.requireChain(ChainEVM, "chain id") {
		b.evm.ChainID(chainID)
	}
	return b
}

// Nonce sets the EVM account nonce.
func (b *Builder) Nonce(nonce uint64) *Builder {
	if b.requireChain(ChainEVM, "nonce") {
		b.evm.Nonce(nonce)
	}
	return b
}

// GasPrice sets the legacy EVM gas price.
func (b *Builder) GasPrice(gasPrice *big.Int) *Builder {
	if b.requireChain(ChainEVM, "gas price") {
		b.evm.GasPrice(gasPrice)
	}
	return b
}

// MaxPriorityFeePerGas sets the EVM fee-market tip.
func (b *Builder) MaxPriorityFeePerGas(fee *big.Int) *Builder {
	if b.requireChain(ChainEVM, "max priority fee per gas") {
		b.evm.MaxPriorityFeePerGas(fee)
	}
	return b
}

// MaxFeePerGas sets the EVM fee-market fee cap.
func (b *Builder) MaxFeePerGas(fee *big.Int) *Builder {
	if b.requireChain(ChainEVM, "max fee per gas") {
		b.evm.MaxFeePerGas(fee)
	}
	return b
}

// GasLimit sets the EVM gas limit.
func (b *Builder) GasLimit(gasLimit uint64) *Builder {
	if b.requireChain(ChainEVM, "gas limit") {
		b.evm.GasLimit(gasLimit)
	}
	return b
}

// To sets the EVM destination address. Leaving it unset marks the
// transaction as contract creation.
func (b *Builder) To(to evm.Address) *Builder {
	if b.requireChain(ChainEVM, "to") {
		b.evm.To(to)
	}
	return b
}

// Value sets the EVM transfer amount in wei.
func (b *Builder) Value(value *big.Int) *Builder {
	if b.requireChain(ChainEVM, "value") {
		b.evm.Value(value)
	}
	return b
}

// Input sets the EVM call data or contract initialization code.
func (b *Builder) Input(data []byte) *Builder {
	if b.requireChain(ChainEVM, "input") {
		b.evm.Input(data)
	}
	return b
}

// AccessList sets the EVM access list.
func (b *Builder) AccessList(accessList evm.AccessList) *Builder {
	if b.requireChain(ChainEVM, "access list") {
		b.evm.AccessList(accessList)
	}
	return b
}

// Version sets the UTXO transaction version.
func (b *Builder) Version(version int32) *Builder {
	if b.requireChain(ChainBitcoin, "version") {
		b.bitcoin.Version(version)
	}
	return b
}

// LockTime sets the UTXO transaction locktime.
func (b *Builder) LockTime(lockTime uint32) *Builder {
	if b.requireChain(ChainBitcoin, "locktime") {
		b.bitcoin.LockTime(lockTime)
	}
	return b
}

// AddInput appends a UTXO input. Input order is preserved exactly, since it
// is part of what gets signed.
func (b *Builder) AddInput(input *bitcoin.TxIn) *Builder {
	if b.requireChain(ChainBitcoin, "input") {
		b.bitcoin.AddInput(input)
	}
	return b
}

// AddOutput appends a UTXO output. Output order is preserved exactly.
func (b *Builder) AddOutput(output *bitcoin.TxOut) *Builder {
	if b.requireChain(ChainBitcoin, "output") {
		b.bitcoin.AddOutput(output)
	}
	return b
}

// Build dispatches to the bound chain's model constructor, which performs
// all required-field validation. There is no partial-success state: either a
// fully valid transaction is produced or nothing is.
func (b *Builder) Build() (*Transaction, error) {
	if b.err != nil {
		return nil, b.err
	}

	switch b.chain {
	case ChainBitcoin:
		tx, err := b.bitcoin.Build()
		if err != nil {
			return nil, err
		}
		return &Transaction{chain: ChainBitcoin, bitcoin: tx}, nil

	case ChainEVM:
		tx, err := b.evm.Build()
		if err != nil {
			return nil, err
		}
		return &Transaction{chain: ChainEVM, evm: tx}, nil

	default:
		return nil, errors.Wrapf(ErrChainMismatch, "unknown chain %d", b.chain)
	}
}
