package evm

import (
	"math/big"

	"github.com/pkg/errors"
)

// TransactionBuilder accumulates transaction fields and produces an
// immutable Transaction. Every setter records the field verbatim and returns
// the builder for chaining; no coercion, no unit conversion and no external
// state. A builder has a single owner for its entire accumulation phase and
// no lifecycle beyond one Build.
type TransactionBuilder struct {
	txType               *TxType
	chainID              *uint64
	nonce                *uint64
	gasPrice             *big.Int
	maxPriorityFeePerGas *big.Int
	maxFeePerGas         *big.Int
	gasLimit             *uint64
	to                   *Address
	value                *big.Int
	data                 []byte
	accessList           AccessList
	hasAccessList        bool
}

// NewTransactionBuilder returns an empty builder.
func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{}
}

// Type pins the transaction type explicitly. When unset, the type is
// inferred from which fee model was populated.
func (b *TransactionBuilder) Type(txType TxType) *TransactionBuilder {
	b.txType = &txType
	return b
}

// ChainID sets the chain id used for replay protection.
func (b *TransactionBuilder) ChainID(chainID uint64) *TransactionBuilder {
	b.chainID = &chainID
	return b
}

// Nonce sets the account nonce. Unset defaults to 0.
func (b *TransactionBuilder) Nonce(nonce uint64) *TransactionBuilder {
	b.nonce = &nonce
	return b
}

// GasPrice sets the single gas price of the legacy fee model.
func (b *TransactionBuilder) GasPrice(gasPrice *big.Int) *TransactionBuilder {
	b.gasPrice = gasPrice
	return b
}

// MaxPriorityFeePerGas sets the fee-market priority fee bound.
func (b *TransactionBuilder) MaxPriorityFeePerGas(fee *big.Int) *TransactionBuilder {
	b.maxPriorityFeePerGas = fee
	return b
}

// MaxFeePerGas sets the fee-market total fee bound.
func (b *TransactionBuilder) MaxFeePerGas(fee *big.Int) *TransactionBuilder {
	b.maxFeePerGas = fee
	return b
}

// GasLimit sets the gas limit.
func (b *TransactionBuilder) GasLimit(gasLimit uint64) *TransactionBuilder {
	b.gasLimit = &gasLimit
	return b
}

// To sets the destination address. Never calling To means contract creation.
func (b *TransactionBuilder) To(to Address) *TransactionBuilder {
	b.to = &to
	return b
}

// Value sets the amount transferred, in the chain's smallest unit. Unset
// defaults to 0.
func (b *TransactionBuilder) Value(value *big.Int) *TransactionBuilder {
	b.value = value
	return b
}

// Input sets the call data. Unset defaults to empty.
func (b *TransactionBuilder) Input(data []byte) *TransactionBuilder {
	b.data = data
	return b
}

// AccessList sets the access list, order preserved exactly. Setting one (even
// empty) selects an access-list-carrying type when the type is inferred.
func (b *TransactionBuilder) AccessList(accessList AccessList) *TransactionBuilder {
	b.accessList = accessList
	b.hasAccessList = true
	return b
}

// Build validates that all chain-required fields are present and coherent
// for exactly one transaction type and produces the immutable transaction.
// There is no partial-success state: either a fully valid transaction is
// produced or nothing is.
func (b *TransactionBuilder) Build() (*Transaction, error) {
	txType, err := b.resolveType()
	if err != nil {
		return nil, err
	}

	if b.chainID == nil {
		return nil, errors.Wrap(ErrMissingField, "chain id")
	}
	if *b.chainID == 0 {
		return nil, errors.Wrap(ErrInvalidTransaction, "chain id 0 provides no replay protection")
	}
	if b.gasLimit == nil {
		return nil, errors.Wrap(ErrMissingField, "gas limit")
	}

	switch txType {
	case LegacyTxType, AccessListTxType:
		if b.gasPrice == nil {
			return nil, errors.Wrap(ErrMissingField, "gas price")
		}
		if b.maxFeePerGas != nil || b.maxPriorityFeePerGas != nil {
			return nil, errors.Wrapf(ErrInvalidTransaction,
				"fee-market fields are not valid on a %s transaction", txType)
		}

	case DynamicFeeTxType:
		if b.maxFeePerGas == nil {
			return nil, errors.Wrap(ErrMissingField, "max fee per gas")
		}
		if b.maxPriorityFeePerGas == nil {
			return nil, errors.Wrap(ErrMissingField, "max priority fee per gas")
		}
		if b.gasPrice != nil {
			return nil, errors.Wrap(ErrInvalidTransaction,
				"gas price is not valid on a dynamic-fee transaction")
		}
		if b.maxFeePerGas.Cmp(b.maxPriorityFeePerGas) < 0 {
			return nil, errors.Wrapf(ErrInvalidTransaction,
				"max fee per gas %s is below max priority fee per gas %s",
				b.maxFeePerGas, b.maxPriorityFeePerGas)
		}
	}

	if txType == LegacyTxType && b.hasAccessList {
		return nil, errors.Wrap(ErrInvalidTransaction,
			"access list is not valid on a legacy transaction")
	}

	// Contract creation must carry the initialization code.
	if b.to == nil && len(b.data) == 0 {
		return nil, errors.Wrap(ErrInvalidTransaction,
			"contract creation requires non-empty input data")
	}

	tx := &Transaction{
		Type:     txType,
		ChainID:  *b.chainID,
		GasLimit: *b.gasLimit,
		To:       b.to,
		Value:    b.value,
		Data:     b.data,
	}
	if b.nonce != nil {
		tx.Nonce = *b.nonce
	}
	if b.value == nil {
		tx.Value = new(big.Int)
	}
	switch txType {
	case LegacyTxType:
		tx.GasPrice = b.gasPrice
	case AccessListTxType:
		tx.GasPrice = b.gasPrice
		tx.AccessList = b.accessList
	case DynamicFeeTxType:
		tx.MaxPriorityFeePerGas = b.maxPriorityFeePerGas
		tx.MaxFeePerGas = b.maxFeePerGas
		tx.AccessList = b.accessList
	}
	return tx, nil
}

// resolveType returns the explicit type, or infers it from which fee model
// and access list were populated. Populating both fee models is a
// construction error, never a silent default.
func (b *TransactionBuilder) resolveType() (TxType, error) {
	if b.txType != nil {
		switch *b.txType {
		case LegacyTxType, AccessListTxType, DynamicFeeTxType:
			return *b.txType, nil
		default:
			return 0, errors.Wrapf(ErrInvalidTransaction, "unknown transaction type %#x", byte(*b.txType))
		}
	}

	hasFeeMarket := b.maxFeePerGas != nil || b.maxPriorityFeePerGas != nil
	switch {
	case hasFeeMarket && b.gasPrice != nil:
		return 0, errors.Wrap(ErrInvalidTransaction,
			"both gas price and fee-market fields are set")
	case hasFeeMarket:
		return DynamicFeeTxType, nil
	case b.gasPrice != nil && b.hasAccessList:
		return AccessListTxType, nil
	case b.gasPrice != nil:
		return LegacyTxType, nil
	default:
		return 0, errors.Wrap(ErrMissingField, "gas price")
	}
}
