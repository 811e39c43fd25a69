package signet

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/pkg/errors"

	"github.com/signetlabs/signet-go/bitcoin"
	"github.com/signetlabs/signet-go/evm"
	"github.com/signetlabs/signet-go/rlp"
)

var testPrivKeyBytes = bytes.Repeat([]byte{0x42}, 32)

// TestEndToEndBitcoin walks the full flow for a pay-to-pubkey-hash spend:
// build, produce the per-input signing digest, sign it externally, splice the
// signature back in and serialize the result.
func TestEndToEndBitcoin(t *testing.T) {
	privKey, pubKey := btcec.PrivKeyFromBytes(testPrivKeyBytes)
	compressedPubKey := pubKey.SerializeCompressed()

	spentScript, err := bitcoin.PayToPubKeyHashScript(bitcoin.PubKeyHash(compressedPubKey))
	if err != nil {
		t.Fatalf("PayToPubKeyHashScript: %v", err)
	}

	tx, err := NewBuilder(ChainBitcoin).
		AddInput(testBitcoinInput(t, "2ece6cd71fee90ff613cee8f30a52c3ecc58685acf9b817b9c467b7ff199871c", 0)).
		AddOutput(testBitcoinOutput(t, 500000000)).
		AddOutput(testBitcoinOutput(t, 100000000)).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	params := &SigningParams{
		InputIndex: 0,
		HashType:   bitcoin.SigHashAll,
		ScriptCode: spentScript,
	}
	digest, err := tx.HashForSigning(params)
	if err != nil {
		t.Fatalf("HashForSigning: %v", err)
	}

	// The external signer role: plain ECDSA over the digest, DER-serialized,
	// with the hash type byte appended per the chain convention.
	derSignature := append(ecdsa.Sign(privKey, digest[:]).Serialize(), byte(bitcoin.SigHashAll))

	err = tx.Finalize(&FinalizeParams{
		InputIndex:      0,
		SignatureScript: bitcoin.SignatureScript(derSignature, compressedPubKey),
	})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	serialized, err := tx.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	decoded, err := bitcoin.DeserializeTransaction(serialized)
	if err != nil {
		t.Fatalf("DeserializeTransaction: %v", err)
	}
	if len(decoded.TxIn[0].SignatureScript) == 0 {
		t.Fatal("finalized signature script lost in serialization")
	}

	id, err := tx.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	inner, err := tx.Bitcoin()
	if err != nil {
		t.Fatalf("Bitcoin: %v", err)
	}
	if id != inner.TxID() {
		t.Fatalf("Hash = %s, want %s", id, inner.TxID())
	}
}

// TestEndToEndBitcoinSegwit finalizes a witness input and verifies the
// transaction id is unaffected by the witness data.
func TestEndToEndBitcoinSegwit(t *testing.T) {
	privKey, pubKey := btcec.PrivKeyFromBytes(testPrivKeyBytes)
	compressedPubKey := pubKey.SerializeCompressed()

	pubKeyHash := bitcoin.PubKeyHash(compressedPubKey)
	// BIP143 defines the witness-v0 keyhash script code as the P2PKH template
	// over the same hash.
	scriptCode, err := bitcoin.PayToPubKeyHashScript(pubKeyHash)
	if err != nil {
		t.Fatalf("PayToPubKeyHashScript: %v", err)
	}

	tx, err := NewBuilder(ChainBitcoin).
		AddInput(testBitcoinInput(t, "2ece6cd71fee90ff613cee8f30a52c3ecc58685acf9b817b9c467b7ff199871c", 1)).
		AddOutput(testBitcoinOutput(t, 90000)).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	idBefore, err := tx.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	digest, err := tx.HashForSigning(&SigningParams{
		InputIndex: 0,
		HashType:   bitcoin.SigHashAll,
		ScriptCode: scriptCode,
		Segwit:     true,
		Value:      100000,
	})
	if err != nil {
		t.Fatalf("HashForSigning: %v", err)
	}
	derSignature := append(ecdsa.Sign(privKey, digest[:]).Serialize(), byte(bitcoin.SigHashAll))

	err = tx.Finalize(&FinalizeParams{
		InputIndex: 0,
		Witness:    [][]byte{derSignature, compressedPubKey},
	})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	idAfter, err := tx.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if idBefore != idAfter {
		t.Fatalf("witness finalize changed the transaction id: %s != %s", idBefore, idAfter)
	}

	serialized, err := tx.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if serialized[4] != 0x00 || serialized[5] != 0x01 {
		t.Fatalf("marker/flag bytes = %#x %#x, want 0x00 0x01", serialized[4], serialized[5])
	}
}

// TestEndToEndEVM walks the full flow for a fee-market transaction: build,
// sign the keccak digest with a recoverable signature, finalize and check
// the signed envelope decodes as a 12-element field list behind the type
// byte.
func TestEndToEndEVM(t *testing.T) {
	privKey, _ := btcec.PrivKeyFromBytes(testPrivKeyBytes)

	tx, err := NewBuilder(ChainEVM).
		ChainID(1).
		Nonce(0).
		MaxPriorityFeePerGas(big.NewInt(1000000000)).
		MaxFeePerGas(big.NewInt(20000000000)).
		GasLimit(21000).
		To(testEVMAddress(t)).
		Value(big.NewInt(10000000000000000)).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Serializing before finalize must fail: the envelope embeds the
	// signature fields.
	if _, err := tx.Serialize(); !errors.Is(err, ErrMissingField) {
		t.Fatalf("Serialize before finalize: err = %v, want ErrMissingField", err)
	}

	digest, err := tx.HashForSigning(nil)
	if err != nil {
		t.Fatalf("HashForSigning: %v", err)
	}

	// The external signer role: a compact recoverable signature, split into
	// parity, r and s. The compact form is header byte then r then s, with
	// the recovery code folded into the header.
	compact, err := ecdsa.SignCompact(privKey, digest[:], true)
	if err != nil {
		t.Fatalf("SignCompact: %v", err)
	}
	signature := &evm.Signature{
		V: uint64(compact[0]-27) & 1,
		R: compact[1:33],
		S: compact[33:65],
	}

	err = tx.Finalize(&FinalizeParams{Signature: signature})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	serialized, err := tx.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if serialized[0] != 0x02 {
		t.Fatalf("signed envelope starts with %#x, want 0x02", serialized[0])
	}

	item, err := rlp.Decode(serialized[1:])
	if err != nil {
		t.Fatalf("Decode signed envelope: %v", err)
	}
	fields, err := item.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(fields) != 12 {
		t.Fatalf("signed field list has %d elements, want 12", len(fields))
	}

	id, err := tx.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if id == digest {
		t.Fatal("transaction id equals the signing digest")
	}
}

// TestTransactionChainAccessors checks the sum-type accessors and the
// cross-chain error paths.
func TestTransactionChainAccessors(t *testing.T) {
	bitcoinTx, err := NewBuilder(ChainBitcoin).
		AddInput(testBitcoinInput(t, "0000000000000000000000000000000000000000000000000000000000000001", 0)).
		AddOutput(testBitcoinOutput(t, 1000)).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if bitcoinTx.Chain() != ChainBitcoin {
		t.Fatalf("Chain = %v, want %v", bitcoinTx.Chain(), ChainBitcoin)
	}
	if _, err := bitcoinTx.EVM(); !errors.Is(err, ErrChainMismatch) {
		t.Errorf("EVM accessor on bitcoin transaction: err = %v, want ErrChainMismatch", err)
	}
	if _, err := bitcoinTx.BuildForSigning(nil); !errors.Is(err, ErrMissingField) {
		t.Errorf("BuildForSigning with nil params: err = %v, want ErrMissingField", err)
	}

	evmTx, err := NewBuilder(ChainEVM).
		ChainID(1).
		GasPrice(big.NewInt(1)).
		GasLimit(21000).
		To(testEVMAddress(t)).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := evmTx.Bitcoin(); !errors.Is(err, ErrChainMismatch) {
		t.Errorf("Bitcoin accessor on EVM transaction: err = %v, want ErrChainMismatch", err)
	}
	if err := evmTx.Finalize(&FinalizeParams{}); !errors.Is(err, ErrMissingField) {
		t.Errorf("Finalize without signature: err = %v, want ErrMissingField", err)
	}
	if _, err := evmTx.Hash(); !errors.Is(err, ErrMissingField) {
		t.Errorf("Hash before finalize: err = %v, want ErrMissingField", err)
	}
}
