package rlp

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
)

// TestEncodeVectors checks the encoder against the reference vectors from the
// encoding's specification.
func TestEncodeVectors(t *testing.T) {
	longString := []byte("Lorem ipsum dolor sit amet, consectetur adipisicing elit")

	tests := []struct {
		name string
		got  []byte
		want []byte
	}{
		{"empty string", EncodeBytes(nil), []byte{0x80}},
		{"single byte below 0x80", EncodeBytes([]byte{0x0f}), []byte{0x0f}},
		{"single zero byte", EncodeBytes([]byte{0x00}), []byte{0x00}},
		{"single byte 0x80", EncodeBytes([]byte{0x80}), []byte{0x81, 0x80}},
		{"dog", EncodeBytes([]byte("dog")), []byte{0x83, 'd', 'o', 'g'}},
		{
			"55-byte string stays short form",
			EncodeBytes(bytes.Repeat([]byte{0x61}, 55)),
			append([]byte{0x80 + 55}, bytes.Repeat([]byte{0x61}, 55)...),
		},
		{
			"56-byte string uses length-of-length",
			EncodeBytes(bytes.Repeat([]byte{0x61}, 56)),
			append([]byte{0xb8, 56}, bytes.Repeat([]byte{0x61}, 56)...),
		},
		{
			"long string",
			EncodeBytes(longString),
			append([]byte{0xb8, byte(len(longString))}, longString...),
		},
		{"integer zero", EncodeUint64(0), []byte{0x80}},
		{"integer 15", EncodeUint64(15), []byte{0x0f}},
		{"integer 1024", EncodeUint64(1024), []byte{0x82, 0x04, 0x00}},
		{"empty list", NewStream().BeginList().EndList().Finish(), []byte{0xc0}},
		{
			"cat dog list",
			NewStream().BeginList().AppendBytes([]byte("cat")).AppendBytes([]byte("dog")).EndList().Finish(),
			[]byte{0xc8, 0x83, 'c', 'a', 't', 0x83, 'd', 'o', 'g'},
		},
		{
			"set-theoretic nesting",
			NewStream().BeginList().
				BeginList().EndList().
				BeginList().BeginList().EndList().EndList().
				BeginList().
				BeginList().EndList().
				BeginList().BeginList().EndList().EndList().
				EndList().
				EndList().Finish(),
			[]byte{0xc7, 0xc0, 0xc1, 0xc0, 0xc3, 0xc0, 0xc1, 0xc0},
		},
	}

	for _, test := range tests {
		if !bytes.Equal(test.got, test.want) {
			t.Errorf("%s:\n got: %swant: %s", test.name,
				spew.Sdump(test.got), spew.Sdump(test.want))
		}
	}
}

// TestBigIntEncoding checks minimal big-endian integer encoding, including
// values beyond uint64.
func TestBigIntEncoding(t *testing.T) {
	tests := []struct {
		in   *big.Int
		want []byte
	}{
		{nil, []byte{0x80}},
		{big.NewInt(0), []byte{0x80}},
		{big.NewInt(0x7f), []byte{0x7f}},
		{big.NewInt(0x80), []byte{0x81, 0x80}},
		{new(big.Int).SetUint64(0xffffffffffffffff), append([]byte{0x88}, bytes.Repeat([]byte{0xff}, 8)...)},
		{
			// 2^64, one byte past the uint64 range.
			new(big.Int).Lsh(big.NewInt(1), 64),
			append([]byte{0x89, 0x01}, bytes.Repeat([]byte{0x00}, 8)...),
		},
	}

	for i, test := range tests {
		got := NewStream().AppendBigInt(test.in).Finish()
		if !bytes.Equal(got, test.want) {
			t.Errorf("AppendBigInt #%d:\n got: %swant: %s", i,
				spew.Sdump(got), spew.Sdump(test.want))
		}
	}
}

// TestRoundTrip encodes values and decodes them back, checking that the
// decoded tree matches the input exactly.
func TestRoundTrip(t *testing.T) {
	strings := [][]byte{
		nil,
		{0x00},
		{0x7f},
		{0x80},
		[]byte("hello world"),
		bytes.Repeat([]byte{0xee}, 55),
		bytes.Repeat([]byte{0xee}, 56),
		bytes.Repeat([]byte{0xee}, 1024),
	}
	for i, in := range strings {
		item, err := Decode(EncodeBytes(in))
		if err != nil {
			t.Errorf("Decode #%d error: %s", i, err)
			continue
		}
		got, err := item.Bytes()
		if err != nil {
			t.Errorf("Bytes #%d error: %s", i, err)
			continue
		}
		if !bytes.Equal(got, in) {
			t.Errorf("round trip #%d:\n got: %swant: %s", i,
				spew.Sdump(got), spew.Sdump(in))
		}
	}

	uints := []uint64{0, 1, 0x7f, 0x80, 0xff, 0x100, 1 << 16, 1<<63 + 12345}
	for i, in := range uints {
		item, err := Decode(EncodeUint64(in))
		if err != nil {
			t.Errorf("Decode uint #%d error: %s", i, err)
			continue
		}
		got, err := item.Uint64()
		if err != nil {
			t.Errorf("Uint64 #%d error: %s", i, err)
			continue
		}
		if got != in {
			t.Errorf("uint round trip #%d: got %d, want %d", i, got, in)
		}
	}

	// A nested list survives the round trip.
	encoded := NewStream().BeginList().
		AppendUint64(7).
		BeginList().AppendBytes([]byte("abc")).EndList().
		AppendBytes(nil).
		EndList().Finish()
	item, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode nested list: %s", err)
	}
	children, err := item.List()
	if err != nil {
		t.Fatalf("List: %s", err)
	}
	if len(children) != 3 {
		t.Fatalf("nested list has %d children, want 3", len(children))
	}
	if v, _ := children[0].Uint64(); v != 7 {
		t.Errorf("child 0: got %d, want 7", v)
	}
	inner, err := children[1].List()
	if err != nil || len(inner) != 1 {
		t.Fatalf("child 1 is not a single-element list: %v %s", inner, err)
	}
	if s, _ := inner[0].Bytes(); !bytes.Equal(s, []byte("abc")) {
		t.Errorf("inner child: got %x, want 'abc'", s)
	}
}

// TestDecodeMalformed ensures truncated and non-canonical buffers fail with
// ErrMalformedEncoding.
func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{"empty buffer", nil},
		{"short string truncated", []byte{0x83, 'd', 'o'}},
		{"long string truncated length", []byte{0xb8}},
		{"long string truncated payload", append([]byte{0xb8, 56}, bytes.Repeat([]byte{0x61}, 20)...)},
		{"list truncated", []byte{0xc8, 0x83, 'c', 'a', 't'}},
		{"long list truncated length", []byte{0xf8}},
		{"trailing bytes", []byte{0x80, 0x00}},
		{"non-canonical single byte", []byte{0x81, 0x05}},
		{"non-canonical long form", append([]byte{0xb8, 10}, bytes.Repeat([]byte{0x61}, 10)...)},
		{"length with leading zero", append([]byte{0xb9, 0x00, 0x38}, bytes.Repeat([]byte{0x61}, 56)...)},
	}

	for _, test := range tests {
		_, err := Decode(test.in)
		if !errors.Is(err, ErrMalformedEncoding) {
			t.Errorf("%s: expected ErrMalformedEncoding, got %v", test.name, err)
		}
	}

	// Non-canonical integer payloads are rejected by the typed accessors.
	leadingZero := &Item{str: []byte{0x00, 0x01}}
	if _, err := leadingZero.Uint64(); !errors.Is(err, ErrMalformedEncoding) {
		t.Errorf("Uint64 with leading zero: expected ErrMalformedEncoding, got %v", err)
	}
	tooWide := &Item{str: bytes.Repeat([]byte{0x01}, 9)}
	if _, err := tooWide.Uint64(); !errors.Is(err, ErrMalformedEncoding) {
		t.Errorf("Uint64 too wide: expected ErrMalformedEncoding, got %v", err)
	}
}
