package signet

import (
	"github.com/pkg/errors"

	"github.com/signetlabs/signet-go/bitcoin"
	"github.com/signetlabs/signet-go/evm"
	"github.com/signetlabs/signet-go/hashes"
)

// Transaction wraps exactly one chain model behind a single capability set:
// signing payload construction, signature splicing and final serialization.
// The wrapped model is reachable through the EVM and Bitcoin accessors when
// chain-specific operations are needed.
type Transaction struct {
	chain   Chain
	bitcoin *bitcoin.Transaction
	evm     *evm.Transaction

	// evmSignature is installed by Finalize and consumed by Serialize and
	// Hash. UTXO signatures live on the wrapped transaction's inputs instead.
	evmSignature *evm.Signature
}

// SigningParams describes which signing payload to build. The UTXO model
// signs per input, so InputIndex, HashType and ScriptCode are required
// there, plus Value for segwit spends; the EVM model has a single payload
// per transaction and ignores all fields.
type SigningParams struct {
	InputIndex int
	HashType   bitcoin.SigHashType
	ScriptCode []byte

	// Segwit selects the witness preimage, which additionally commits to the
	// spent output's value.
	Segwit bool
	Value  uint64
}

// FinalizeParams carries a signature back into the transaction. For the UTXO
// model exactly one of SignatureScript or Witness applies to the input at
// InputIndex; for the EVM model only Signature is read.
type FinalizeParams struct {
	InputIndex      int
	SignatureScript []byte
	Witness         [][]byte

	Signature *evm.Signature
}

// Chain returns the chain the transaction is bound to.
func (tx *Transaction) Chain() Chain {
	return tx.chain
}

// Bitcoin returns the wrapped UTXO model.
func (tx *Transaction) Bitcoin() (*bitcoin.Transaction, error) {
	if tx.chain != ChainBitcoin {
		return nil, errors.Wrapf(ErrChainMismatch, "transaction is bound to %s", tx.chain)
	}
	return tx.bitcoin, nil
}

// EVM returns the wrapped EVM model.
func (tx *Transaction) EVM() (*evm.Transaction, error) {
	if tx.chain != ChainEVM {
		return nil, errors.Wrapf(ErrChainMismatch, "transaction is bound to %s", tx.chain)
	}
	return tx.evm, nil
}

// BuildForSigning returns the exact bytes the external signer must process.
// For the UTXO chain this is the sighash preimage of the input selected by
// params; for the EVM chain it is the (possibly type-prefixed) RLP signing
// payload and params may be nil.
func (tx *Transaction) BuildForSigning(params *SigningParams) ([]byte, error) {
	switch tx.chain {
	case ChainBitcoin:
		if params == nil {
			return nil, errors.Wrap(ErrMissingField, "signing params")
		}
		if params.Segwit {
			return tx.bitcoin.SignatureHashSegwit(
				params.InputIndex, params.HashType, params.ScriptCode, params.Value)
		}
		return tx.bitcoin.SignatureHashLegacy(
			params.InputIndex, params.HashType, params.ScriptCode)

	case ChainEVM:
		return tx.evm.BuildForSigning(), nil

	default:
		return nil, errors.Wrapf(ErrChainMismatch, "unknown chain %d", tx.chain)
	}
}

// HashForSigning returns the digest of the signing payload, which is what
// signers conventionally sign: the double sha256 of the sighash preimage, or
// the keccak of the RLP signing payload.
func (tx *Transaction) HashForSigning(params *SigningParams) (hashes.Hash, error) {
	switch tx.chain {
	case ChainBitcoin:
		if params == nil {
			return hashes.Hash{}, errors.Wrap(ErrMissingField, "signing params")
		}
		if params.Segwit {
			return tx.bitcoin.CalcSignatureHashSegwit(
				params.InputIndex, params.HashType, params.ScriptCode, params.Value)
		}
		return tx.bitcoin.CalcSignatureHashLegacy(
			params.InputIndex, params.HashType, params.ScriptCode)

	case ChainEVM:
		return tx.evm.HashForSigning(), nil

	default:
		return hashes.Hash{}, errors.Wrapf(ErrChainMismatch, "unknown chain %d", tx.chain)
	}
}

// Finalize splices a signature into the transaction. For the UTXO chain it
// installs the unlocking script or witness stack on the addressed input; for
// the EVM chain it installs the transaction-wide signature. Finalizing the
// same slot twice overwrites, last write wins.
func (tx *Transaction) Finalize(params *FinalizeParams) error {
	if params == nil {
		return errors.Wrap(ErrMissingField, "finalize params")
	}

	switch tx.chain {
	case ChainBitcoin:
		if params.Witness != nil {
			return tx.bitcoin.FinalizeWitnessInput(params.InputIndex, params.Witness)
		}
		return tx.bitcoin.FinalizeInput(params.InputIndex, params.SignatureScript)

	case ChainEVM:
		if params.Signature == nil {
			return errors.Wrap(ErrMissingField, "signature")
		}
		tx.evmSignature = params.Signature
		return nil

	default:
		return errors.Wrapf(ErrChainMismatch, "unknown chain %d", tx.chain)
	}
}

// Serialize returns the broadcastable encoding: the wire serialization for
// the UTXO chain, or the signed RLP envelope for the EVM chain. An EVM
// transaction must be finalized first, since its encoding embeds the
// signature fields.
func (tx *Transaction) Serialize() ([]byte, error) {
	switch tx.chain {
	case ChainBitcoin:
		return tx.bitcoin.Serialize()

	case ChainEVM:
		if tx.evmSignature == nil {
			return nil, errors.Wrap(ErrMissingField, "signature")
		}
		return tx.evm.BuildWithSignature(tx.evmSignature), nil

	default:
		return nil, errors.Wrapf(ErrChainMismatch, "unknown chain %d", tx.chain)
	}
}

// Hash returns the canonical transaction id: the double sha256 of the
// witness-stripped serialization, or the keccak of the signed envelope. An
// EVM transaction must be finalized first.
func (tx *Transaction) Hash() (hashes.Hash, error) {
	switch tx.chain {
	case ChainBitcoin:
		return tx.bitcoin.TxID(), nil

	case ChainEVM:
		if tx.evmSignature == nil {
			return hashes.Hash{}, errors.Wrap(ErrMissingField, "signature")
		}
		return tx.evm.Hash(tx.evmSignature), nil

	default:
		return hashes.Hash{}, errors.Wrapf(ErrChainMismatch, "unknown chain %d", tx.chain)
	}
}
