// Package serialization implements the variable-length primitive encodings
// shared by the UTXO-side wire formats: the compact-size unsigned integer
// and varint-prefixed byte arrays.
package serialization

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/signetlabs/signet-go/util/binaryserializer"
)

// MaxVarIntPayload is the maximum payload size for a variable length integer.
const MaxVarIntPayload = 9

// maxVarBytesLength bounds the declared length of a varint-prefixed byte
// array on decode. It protects against memory exhaustion from malformed
// buffers that declare absurd lengths.
const maxVarBytesLength = 1 << 25 // 32 MB

// ErrMalformedEncoding is returned when a buffer being decoded is truncated,
// declares more bytes than it carries, or uses a non-canonical encoding.
var ErrMalformedEncoding = errors.New("malformed encoding")

// littleEndian is a convenience variable since binary.LittleEndian is
// quite long.
var littleEndian = binary.LittleEndian

// WriteVarInt serializes val to w using a variable number of bytes depending
// on its value.
func WriteVarInt(w io.Writer, val uint64) error {
	if val < 0xfd {
		_, err := w.Write([]byte{uint8(val)})
		return errors.WithStack(err)
	}

	if val <= math.MaxUint16 {
		var buf [3]byte
		buf[0] = 0xfd
		littleEndian.PutUint16(buf[1:], uint16(val))
		_, err := w.Write(buf[:])
		return errors.WithStack(err)
	}

	if val <= math.MaxUint32 {
		var buf [5]byte
		buf[0] = 0xfe
		littleEndian.PutUint32(buf[1:], uint32(val))
		_, err := w.Write(buf[:])
		return errors.WithStack(err)
	}

	var buf [9]byte
	buf[0] = 0xff
	littleEndian.PutUint64(buf[1:], val)
	_, err := w.Write(buf[:])
	return errors.WithStack(err)
}

// ReadVarInt reads a variable length integer from r and returns it as a
// uint64. Decoding fails with ErrMalformedEncoding if the buffer is truncated
// or if the value could have been encoded using fewer bytes.
func ReadVarInt(r io.Reader) (uint64, error) {
	discriminant, err := binaryserializer.Uint8(r)
	if err != nil {
		return 0, errors.Wrap(ErrMalformedEncoding, err.Error())
	}

	var rv uint64
	switch discriminant {
	case 0xff:
		sv, err := binaryserializer.Uint64(r)
		if err != nil {
			return 0, errors.Wrap(ErrMalformedEncoding, err.Error())
		}
		rv = sv

		// The encoding is not canonical if the value could have been
		// encoded using fewer bytes.
		min := uint64(0x100000000)
		if rv < min {
			return 0, errors.Wrapf(ErrMalformedEncoding,
				"non-canonical varint %x - discriminant %x must encode a value greater than %x",
				rv, discriminant, min)
		}

	case 0xfe:
		sv, err := binaryserializer.Uint32(r)
		if err != nil {
			return 0, errors.Wrap(ErrMalformedEncoding, err.Error())
		}
		rv = uint64(sv)

		min := uint64(0x10000)
		if rv < min {
			return 0, errors.Wrapf(ErrMalformedEncoding,
				"non-canonical varint %x - discriminant %x must encode a value greater than %x",
				rv, discriminant, min)
		}

	case 0xfd:
		sv, err := binaryserializer.Uint16(r)
		if err != nil {
			return 0, errors.Wrap(ErrMalformedEncoding, err.Error())
		}
		rv = uint64(sv)

		min := uint64(0xfd)
		if rv < min {
			return 0, errors.Wrapf(ErrMalformedEncoding,
				"non-canonical varint %x - discriminant %x must encode a value greater than %x",
				rv, discriminant, min)
		}

	default:
		rv = uint64(discriminant)
	}

	return rv, nil
}

// VarIntSerializeSize returns the number of bytes it would take to serialize
// val as a variable length integer.
func VarIntSerializeSize(val uint64) int {
	// The value is small enough to be represented by itself, so it's
	// just 1 byte.
	if val < 0xfd {
		return 1
	}

	// Discriminant 1 byte plus 2 bytes for the uint16.
	if val <= math.MaxUint16 {
		return 3
	}

	// Discriminant 1 byte plus 4 bytes for the uint32.
	if val <= math.MaxUint32 {
		return 5
	}

	// Discriminant 1 byte plus 8 bytes for the uint64.
	return 9
}

// WriteVarBytes serializes a variable length byte array to w as a varint
// containing the number of bytes, followed by the bytes themselves.
func WriteVarBytes(w io.Writer, data []byte) error {
	err := WriteVarInt(w, uint64(len(data)))
	if err != nil {
		return err
	}

	_, err = w.Write(data)
	return errors.WithStack(err)
}

// ReadVarBytes reads a variable length byte array. A byte array is encoded
// as a varint containing the length of the array followed by the bytes
// themselves. The fieldName parameter is only used for the error message so
// it provides more context in the error.
func ReadVarBytes(r io.Reader, fieldName string) ([]byte, error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}

	if count > maxVarBytesLength {
		return nil, errors.Wrapf(ErrMalformedEncoding,
			"%s is larger than the max allowed size [count %d, max %d]",
			fieldName, count, maxVarBytesLength)
	}

	b := make([]byte, count)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, errors.Wrapf(ErrMalformedEncoding,
			"%s declares %d bytes but the buffer is shorter: %s", fieldName, count, err)
	}
	return b, nil
}

// SerializedVarBytes returns the serialization of data as a varint-prefixed
// byte array.
func SerializedVarBytes(data []byte) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, VarIntSerializeSize(uint64(len(data)))+len(data)))
	// Writes to a bytes.Buffer never fail.
	_ = WriteVarBytes(buf, data)
	return buf.Bytes()
}
