package evm

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"testing"
)

func mustAddress(t *testing.T, s string) Address {
	t.Helper()
	addr, err := ParseAddress(s)
	if err != nil {
		t.Fatalf("ParseAddress(%q): %v", s, err)
	}
	return addr
}

func hexToBytes(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("invalid hex in test source %q: %v", s, err)
	}
	return b
}

// TestDynamicFeeSigningPayload checks the byte-exact signing payload of a
// fee-market transfer: a 0.01 ether send to a known address at a 1 gwei tip
// and 20 gwei fee cap.
func TestDynamicFeeSigningPayload(t *testing.T) {
	to := mustAddress(t, "0xd8da6bf26964af9d7eed9e03e53415d37aa96045")
	tx, err := NewTransactionBuilder().
		ChainID(1).
		Nonce(0).
		MaxPriorityFeePerGas(big.NewInt(1000000000)).
		MaxFeePerGas(big.NewInt(20000000000)).
		GasLimit(21000).
		To(to).
		Value(big.NewInt(10000000000000000)).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tx.Type != DynamicFeeTxType {
		t.Fatalf("inferred type %v, want %v", tx.Type, DynamicFeeTxType)
	}

	want := "02ef0180843b9aca008504a817c80082520894" +
		"d8da6bf26964af9d7eed9e03e53415d37aa96045872386f26fc1000080c0"
	got := hex.EncodeToString(tx.BuildForSigning())
	if got != want {
		t.Fatalf("BuildForSigning:\n got %s\nwant %s", got, want)
	}
}

// TestLegacySigningPayload reproduces the published replay-protected legacy
// example: nonce 9, 20 gwei gas price, a 1 ether transfer on chain 1. Both
// the signing payload and its keccak digest are fixed by the protocol.
func TestLegacySigningPayload(t *testing.T) {
	to := mustAddress(t, "0x3535353535353535353535353535353535353535")
	tx, err := NewTransactionBuilder().
		ChainID(1).
		Nonce(9).
		GasPrice(big.NewInt(20000000000)).
		GasLimit(21000).
		To(to).
		Value(new(big.Int).Mul(big.NewInt(1000000000), big.NewInt(1000000000))).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tx.Type != LegacyTxType {
		t.Fatalf("inferred type %v, want %v", tx.Type, LegacyTxType)
	}

	wantPayload := "ec098504a817c800825208943535353535353535353535353535353535353535" +
		"880de0b6b3a764000080018080"
	payload := tx.BuildForSigning()
	if got := hex.EncodeToString(payload); got != wantPayload {
		t.Fatalf("BuildForSigning:\n got %s\nwant %s", got, wantPayload)
	}

	wantHash := "daf5a779ae972f972197303d7b574746c7ef83eadac0f2791ad23db92e4c8e53"
	h := tx.HashForSigning()
	if got := hex.EncodeToString(h[:]); got != wantHash {
		t.Fatalf("HashForSigning:\n got %s\nwant %s", got, wantHash)
	}
}

// TestLegacySignedEncoding applies the published signature for the legacy
// example above and checks the final broadcast encoding, including the
// replay-protected v value of 37.
func TestLegacySignedEncoding(t *testing.T) {
	to := mustAddress(t, "0x3535353535353535353535353535353535353535")
	tx, err := NewTransactionBuilder().
		ChainID(1).
		Nonce(9).
		GasPrice(big.NewInt(20000000000)).
		GasLimit(21000).
		To(to).
		Value(new(big.Int).Mul(big.NewInt(1000000000), big.NewInt(1000000000))).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	signature := &Signature{
		V: 0,
		R: hexToBytes(t, "28ef61340bd939bc2195fe537567866003e1a15d3c71ff63e1590620aa636276"),
		S: hexToBytes(t, "67cbe9d8997f761aecb703304b3800ccf555c9f3dc64214b297fb1966a3b6d83"),
	}

	want := "f86c098504a817c800825208943535353535353535353535353535353535353535" +
		"880de0b6b3a76400008025" +
		"a028ef61340bd939bc2195fe537567866003e1a15d3c71ff63e1590620aa636276" +
		"a067cbe9d8997f761aecb703304b3800ccf555c9f3dc64214b297fb1966a3b6d83"
	got := hex.EncodeToString(tx.BuildWithSignature(signature))
	if got != want {
		t.Fatalf("BuildWithSignature:\n got %s\nwant %s", got, want)
	}
}

// TestTypedEnvelopePrefix verifies the type-byte dispatch: typed
// transactions carry their type as the first byte of the envelope while
// legacy payloads start directly with the RLP list header.
func TestTypedEnvelopePrefix(t *testing.T) {
	to := mustAddress(t, "0xd8da6bf26964af9d7eed9e03e53415d37aa96045")

	accessListTx, err := NewTransactionBuilder().
		ChainID(1).
		GasPrice(big.NewInt(1)).
		GasLimit(21000).
		To(to).
		AccessList(AccessList{}).
		Build()
	if err != nil {
		t.Fatalf("Build access list tx: %v", err)
	}
	if accessListTx.Type != AccessListTxType {
		t.Fatalf("inferred type %v, want %v", accessListTx.Type, AccessListTxType)
	}
	if payload := accessListTx.BuildForSigning(); payload[0] != 0x01 {
		t.Fatalf("access list payload starts with %#x, want 0x01", payload[0])
	}

	dynamicTx, err := NewTransactionBuilder().
		ChainID(1).
		MaxPriorityFeePerGas(big.NewInt(1)).
		MaxFeePerGas(big.NewInt(2)).
		GasLimit(21000).
		To(to).
		Build()
	if err != nil {
		t.Fatalf("Build dynamic fee tx: %v", err)
	}
	if payload := dynamicTx.BuildForSigning(); payload[0] != 0x02 {
		t.Fatalf("dynamic fee payload starts with %#x, want 0x02", payload[0])
	}

	legacyTx, err := NewTransactionBuilder().
		ChainID(1).
		GasPrice(big.NewInt(1)).
		GasLimit(21000).
		To(to).
		Build()
	if err != nil {
		t.Fatalf("Build legacy tx: %v", err)
	}
	if payload := legacyTx.BuildForSigning(); payload[0] < 0xc0 {
		t.Fatalf("legacy payload starts with %#x, want an RLP list header", payload[0])
	}
}

// TestAccessListEncoding checks that a populated access list is encoded as a
// list of (address, storage key list) pairs inside the typed envelope.
func TestAccessListEncoding(t *testing.T) {
	to := mustAddress(t, "0xd8da6bf26964af9d7eed9e03e53415d37aa96045")
	var key [StorageKeyLength]byte
	key[31] = 0x07

	tx, err := NewTransactionBuilder().
		Type(DynamicFeeTxType).
		ChainID(1).
		MaxPriorityFeePerGas(big.NewInt(1)).
		MaxFeePerGas(big.NewInt(1)).
		GasLimit(21000).
		To(to).
		AccessList(AccessList{{
			Address:     to,
			StorageKeys: [][StorageKeyLength]byte{key},
		}}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	payload := tx.BuildForSigning()
	tuple := append(
		append([]byte{0xf8, 0x38, 0xf7, 0x94}, to[:]...),
		append([]byte{0xe1, 0xa0}, key[:]...)...)
	if !bytes.Contains(payload, tuple) {
		t.Fatalf("payload %x does not contain encoded access list %x", payload, tuple)
	}
}

// TestHashCoversSignature verifies the final transaction hash commits to the
// signature: two different signatures over the same fields must hash apart.
func TestHashCoversSignature(t *testing.T) {
	to := mustAddress(t, "0xd8da6bf26964af9d7eed9e03e53415d37aa96045")
	tx, err := NewTransactionBuilder().
		ChainID(1).
		GasPrice(big.NewInt(1)).
		GasLimit(21000).
		To(to).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	r := bytes.Repeat([]byte{0x11}, 32)
	s := bytes.Repeat([]byte{0x22}, 32)
	first := tx.Hash(&Signature{V: 0, R: r, S: s})
	second := tx.Hash(&Signature{V: 1, R: r, S: s})
	if first == second {
		t.Fatal("hashes of differently signed transactions are equal")
	}
	if signing := tx.HashForSigning(); first == signing {
		t.Fatal("signed hash equals signing hash")
	}
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		valid   bool
	}{
		{"with prefix", "0xd8da6bf26964af9d7eed9e03e53415d37aa96045", true},
		{"without prefix", "d8da6bf26964af9d7eed9e03e53415d37aa96045", true},
		{"uppercase prefix", "0Xd8da6bf26964af9d7eed9e03e53415d37aa96045", true},
		{"too short", "0xd8da6bf26964af9d7eed9e03e53415d37aa960", false},
		{"too long", "0xd8da6bf26964af9d7eed9e03e53415d37aa9604545", false},
		{"not hex", "0xzzda6bf26964af9d7eed9e03e53415d37aa96045", false},
		{"empty", "", false},
	}
	for _, test := range tests {
		addr, err := ParseAddress(test.address)
		if test.valid != (err == nil) {
			t.Errorf("ParseAddress %s: err = %v, want valid = %v", test.name, err, test.valid)
			continue
		}
		if test.valid && addr.String() != "0xd8da6bf26964af9d7eed9e03e53415d37aa96045" {
			t.Errorf("ParseAddress %s: got %s", test.name, addr)
		}
	}
}
