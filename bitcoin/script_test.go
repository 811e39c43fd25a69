package bitcoin

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
)

func TestPayToPubKeyHashScript(t *testing.T) {
	pubKeyHash := hexToBytes(t, "1d0f172a0ecb48aee1be1f2687d2963ae33f71a1")

	script, err := PayToPubKeyHashScript(pubKeyHash)
	if err != nil {
		t.Fatalf("PayToPubKeyHashScript: %v", err)
	}
	want := hexToBytes(t, "76a9141d0f172a0ecb48aee1be1f2687d2963ae33f71a188ac")
	if !bytes.Equal(script, want) {
		t.Fatalf("script = %x, want %x", script, want)
	}

	_, err = PayToPubKeyHashScript(pubKeyHash[:19])
	if !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("short hash: err = %v, want ErrInvalidLength", err)
	}
}

func TestPayToWitnessPubKeyHashScript(t *testing.T) {
	pubKeyHash := hexToBytes(t, "1d0f172a0ecb48aee1be1f2687d2963ae33f71a1")

	script, err := PayToWitnessPubKeyHashScript(pubKeyHash)
	if err != nil {
		t.Fatalf("PayToWitnessPubKeyHashScript: %v", err)
	}
	want := hexToBytes(t, "00141d0f172a0ecb48aee1be1f2687d2963ae33f71a1")
	if !bytes.Equal(script, want) {
		t.Fatalf("script = %x, want %x", script, want)
	}

	_, err = PayToWitnessPubKeyHashScript(append(pubKeyHash, 0x00))
	if !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("long hash: err = %v, want ErrInvalidLength", err)
	}
}

// TestSignatureScript checks the unlocking script layout: two direct pushes,
// signature first, then the public key.
func TestSignatureScript(t *testing.T) {
	sig := bytes.Repeat([]byte{0xab}, 71)
	pubKey := bytes.Repeat([]byte{0xcd}, 33)

	script := SignatureScript(sig, pubKey)

	var want []byte
	want = append(want, 71)
	want = append(want, sig...)
	want = append(want, 33)
	want = append(want, pubKey...)
	if !bytes.Equal(script, want) {
		t.Fatalf("script = %x, want %x", script, want)
	}
}

// TestAppendPushData covers the push opcode selection boundaries.
func TestAppendPushData(t *testing.T) {
	tests := []struct {
		name       string
		dataLen    int
		wantPrefix []byte
	}{
		{"direct push", 75, []byte{75}},
		{"pushdata1", 76, []byte{OpPushData1, 76}},
		{"pushdata1 max", 255, []byte{OpPushData1, 255}},
		{"pushdata2", 256, []byte{OpPushData2, 0x00, 0x01}},
	}
	for _, test := range tests {
		data := bytes.Repeat([]byte{0x42}, test.dataLen)
		script := appendPushData(nil, data)
		if !bytes.HasPrefix(script, test.wantPrefix) {
			t.Errorf("appendPushData %s: prefix %x, want %x",
				test.name, script[:len(test.wantPrefix)], test.wantPrefix)
			continue
		}
		if len(script) != len(test.wantPrefix)+test.dataLen {
			t.Errorf("appendPushData %s: length %d, want %d",
				test.name, len(script), len(test.wantPrefix)+test.dataLen)
		}
	}
}

func TestPubKeyHash(t *testing.T) {
	// hash160 of the generator point's compressed encoding.
	pubKey := hexToBytes(t, "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")
	want := hexToBytes(t, "751e76e8199196d454941c45d1b3a323f1433bd6")
	if got := PubKeyHash(pubKey); !bytes.Equal(got, want) {
		t.Fatalf("PubKeyHash = %x, want %x", got, want)
	}
}

func TestParseAddress(t *testing.T) {
	want := hexToBytes(t, "1d0f172a0ecb48aee1be1f2687d2963ae33f71a1")

	got, err := ParseAddress("1d0f172a0ecb48aee1be1f2687d2963ae33f71a1")
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("ParseAddress = %x, want %x", got, want)
	}

	for _, invalid := range []string{
		"",
		"1d0f172a0ecb48aee1be1f2687d2963ae33f71",
		"zz0f172a0ecb48aee1be1f2687d2963ae33f71a1",
	} {
		if _, err := ParseAddress(invalid); !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("ParseAddress(%q): err = %v, want ErrInvalidAddress", invalid, err)
		}
	}
}
