package evm

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// transactionJSON is the wallet-conventional JSON shape for a fee-market
// transaction request. Numeric fields arrive as strings, either decimal or
// 0x-prefixed hexadecimal.
type transactionJSON struct {
	To                   string `json:"to"`
	Nonce                string `json:"nonce"`
	Value                string `json:"value"`
	GasLimit             string `json:"gasLimit"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas"`
	MaxFeePerGas         string `json:"maxFeePerGas"`
	ChainID              string `json:"chainId"`
	Input                string `json:"input"`
}

// FromJSON builds a fee-market transaction from its wallet-conventional JSON
// description. All the usual Build-time validation applies.
func FromJSON(data []byte) (*Transaction, error) {
	var raw transactionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(ErrInvalidTransaction, err.Error())
	}

	builder := NewTransactionBuilder().Type(DynamicFeeTxType)

	if raw.To != "" {
		to, err := ParseAddress(raw.To)
		if err != nil {
			return nil, err
		}
		builder.To(to)
	}

	nonce, err := parseUint64Field("nonce", raw.Nonce)
	if err != nil {
		return nil, err
	}
	chainID, err := parseUint64Field("chainId", raw.ChainID)
	if err != nil {
		return nil, err
	}
	gasLimit, err := parseUint64Field("gasLimit", raw.GasLimit)
	if err != nil {
		return nil, err
	}
	value, err := parseBigIntField("value", raw.Value)
	if err != nil {
		return nil, err
	}
	maxPriorityFee, err := parseBigIntField("maxPriorityFeePerGas", raw.MaxPriorityFeePerGas)
	if err != nil {
		return nil, err
	}
	maxFee, err := parseBigIntField("maxFeePerGas", raw.MaxFeePerGas)
	if err != nil {
		return nil, err
	}

	if raw.Input != "" {
		input, err := hex.DecodeString(strings.TrimPrefix(raw.Input, "0x"))
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidTransaction, "input is not valid hexadecimal: %s", err)
		}
		builder.Input(input)
	}

	return builder.
		ChainID(chainID).
		Nonce(nonce).
		GasLimit(gasLimit).
		Value(value).
		MaxPriorityFeePerGas(maxPriorityFee).
		MaxFeePerGas(maxFee).
		Build()
}

func parseUint64Field(name, value string) (uint64, error) {
	if value == "" {
		return 0, errors.Wrap(ErrMissingField, name)
	}
	if stripped, ok := strip0x(value); ok {
		parsed, err := strconv.ParseUint(stripped, 16, 64)
		if err != nil {
			return 0, errors.Wrapf(ErrInvalidTransaction, "%s: %s", name, err)
		}
		return parsed, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidTransaction, "%s: %s", name, err)
	}
	return parsed, nil
}

func parseBigIntField(name, value string) (*big.Int, error) {
	if value == "" {
		return nil, errors.Wrap(ErrMissingField, name)
	}
	base := 10
	digits := value
	if stripped, ok := strip0x(value); ok {
		base = 16
		digits = stripped
	}
	parsed, ok := new(big.Int).SetString(digits, base)
	if !ok || parsed.Sign() < 0 {
		return nil, errors.Wrapf(ErrInvalidTransaction, "%s: %q is not a valid non-negative integer", name, value)
	}
	return parsed, nil
}

func strip0x(value string) (string, bool) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return value[2:], true
	}
	return value, false
}
