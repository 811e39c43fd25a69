// Package rlp implements the recursive length prefix encoding used by the
// EVM chain family for transactions and other consensus structures.
//
// Strings of a single byte below 0x80 encode as themselves; short strings
// carry a one-byte 0x80+length prefix; longer strings a 0xb7+length-of-length
// prefix followed by the big-endian length. Lists wrap the concatenation of
// their children's encodings the same way starting from 0xc0/0xf7.
package rlp

import (
	"bytes"
	"math/big"

	"github.com/pkg/errors"
)

const (
	shortStringOffset = 0x80
	longStringOffset  = 0xb7
	shortListOffset   = 0xc0
	longListOffset    = 0xf7

	// maxShortLength is the largest payload that still uses the single-byte
	// length form.
	maxShortLength = 55
)

// Stream incrementally builds an RLP encoding. Lists may nest arbitrarily:
// BeginList opens a list and EndList closes the most recently opened one,
// prefixing its accumulated content with the list header.
//
// The zero value is ready for use.
type Stream struct {
	// stack[0] is the output buffer; each BeginList pushes a scratch buffer
	// that collects the list content until the matching EndList.
	stack []*bytes.Buffer
}

// NewStream returns a Stream ready to accept appends.
func NewStream() *Stream {
	return &Stream{}
}

func (s *Stream) top() *bytes.Buffer {
	if len(s.stack) == 0 {
		s.stack = append(s.stack, &bytes.Buffer{})
	}
	return s.stack[len(s.stack)-1]
}

// AppendBytes appends the RLP string encoding of data.
func (s *Stream) AppendBytes(data []byte) *Stream {
	appendEncodedBytes(s.top(), data)
	return s
}

// AppendUint64 appends the RLP encoding of v: its minimal big-endian byte
// representation encoded as a string. Zero encodes as the empty string.
func (s *Stream) AppendUint64(v uint64) *Stream {
	return s.AppendBytes(putUint64Minimal(v))
}

// AppendBigInt appends the RLP encoding of a non-negative big integer. The
// integer's minimal big-endian representation is encoded as a string. A nil
// value is treated as zero.
func (s *Stream) AppendBigInt(v *big.Int) *Stream {
	if v == nil || v.Sign() == 0 {
		return s.AppendBytes(nil)
	}
	return s.AppendBytes(v.Bytes())
}

// BeginList opens a new list. Every append until the matching EndList
// becomes an element of this list.
func (s *Stream) BeginList() *Stream {
	// Make sure the output buffer exists before pushing the scratch one.
	s.top()
	s.stack = append(s.stack, &bytes.Buffer{})
	return s
}

// EndList closes the most recently opened list. It panics if no list is
// open, since that is a construction bug rather than a data error.
func (s *Stream) EndList() *Stream {
	if len(s.stack) < 2 {
		panic(errors.New("rlp: EndList without matching BeginList"))
	}
	content := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]

	out := s.top()
	writeHeader(out, content.Len(), shortListOffset, longListOffset)
	out.Write(content.Bytes())
	return s
}

// Finish returns the completed encoding. It panics if a list is still open.
func (s *Stream) Finish() []byte {
	if len(s.stack) > 1 {
		panic(errors.New("rlp: Finish with unclosed list"))
	}
	return s.top().Bytes()
}

// EncodeBytes returns the RLP string encoding of data.
func EncodeBytes(data []byte) []byte {
	var buf bytes.Buffer
	appendEncodedBytes(&buf, data)
	return buf.Bytes()
}

// EncodeUint64 returns the RLP encoding of v.
func EncodeUint64(v uint64) []byte {
	return EncodeBytes(putUint64Minimal(v))
}

func appendEncodedBytes(buf *bytes.Buffer, data []byte) {
	if len(data) == 1 && data[0] < shortStringOffset {
		buf.WriteByte(data[0])
		return
	}
	writeHeader(buf, len(data), shortStringOffset, longStringOffset)
	buf.Write(data)
}

func writeHeader(buf *bytes.Buffer, length int, shortOffset, longOffset byte) {
	if length <= maxShortLength {
		buf.WriteByte(shortOffset + byte(length))
		return
	}
	lengthBytes := putUint64Minimal(uint64(length))
	buf.WriteByte(longOffset + byte(len(lengthBytes)))
	buf.Write(lengthBytes)
}

// putUint64Minimal returns the big-endian representation of v with all
// leading zero bytes stripped. Zero yields an empty slice, matching the RLP
// convention that integer zero is the empty string.
func putUint64Minimal(v uint64) []byte {
	if v == 0 {
		return nil
	}
	var buf [8]byte
	n := 0
	for shift := 56; shift >= 0; shift -= 8 {
		b := byte(v >> uint(shift))
		if n == 0 && b == 0 {
			continue
		}
		buf[n] = b
		n++
	}
	return buf[:n]
}
