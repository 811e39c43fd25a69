// Package signet builds unsigned and signed transactions for the two chain
// families it models: the UTXO family (legacy and segwit Bitcoin layouts) and
// the EVM family (legacy and typed RLP envelopes).
//
// The package itself is the chain-parameterized entry point: a Builder is
// bound to one chain at construction and accumulates fields verbatim, and
// Build produces a Transaction that wraps exactly one chain model behind a
// single capability set (signing payload, finalize, serialize). All
// cryptography is external: the library produces the exact bytes a signer
// must sign and positions the returned signature, nothing more.
//
// The chain-specific models live in the bitcoin and evm packages and can be
// used directly when only one chain is needed.
package signet
