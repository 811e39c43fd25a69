package rlp

import (
	"math/big"

	"github.com/pkg/errors"
)

// ErrMalformedEncoding is returned when a buffer being decoded is truncated,
// declares more bytes than it carries, or uses a non-canonical encoding.
var ErrMalformedEncoding = errors.New("malformed RLP encoding")

// Item is a decoded RLP value: either a string (byte payload) or a list of
// child items.
type Item struct {
	str    []byte
	list   []*Item
	isList bool
}

// IsList reports whether the item is a list.
func (i *Item) IsList() bool {
	return i.isList
}

// Bytes returns the string payload of the item.
func (i *Item) Bytes() ([]byte, error) {
	if i.isList {
		return nil, errors.Wrap(ErrMalformedEncoding, "expected a string item, got a list")
	}
	return i.str, nil
}

// Uint64 interprets the item as a canonically encoded unsigned integer.
func (i *Item) Uint64() (uint64, error) {
	payload, err := i.Bytes()
	if err != nil {
		return 0, err
	}
	if len(payload) > 8 {
		return 0, errors.Wrapf(ErrMalformedEncoding,
			"integer payload of %d bytes overflows uint64", len(payload))
	}
	if len(payload) > 0 && payload[0] == 0 {
		return 0, errors.Wrap(ErrMalformedEncoding, "integer encoded with leading zero bytes")
	}
	var v uint64
	for _, b := range payload {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// BigInt interprets the item as a canonically encoded non-negative integer.
func (i *Item) BigInt() (*big.Int, error) {
	payload, err := i.Bytes()
	if err != nil {
		return nil, err
	}
	if len(payload) > 0 && payload[0] == 0 {
		return nil, errors.Wrap(ErrMalformedEncoding, "integer encoded with leading zero bytes")
	}
	return new(big.Int).SetBytes(payload), nil
}

// List returns the children of a list item.
func (i *Item) List() ([]*Item, error) {
	if !i.isList {
		return nil, errors.Wrap(ErrMalformedEncoding, "expected a list item, got a string")
	}
	return i.list, nil
}

// Decode decodes a single RLP item that must span the entire buffer.
func Decode(data []byte) (*Item, error) {
	item, consumed, err := DecodeItem(data)
	if err != nil {
		return nil, err
	}
	if consumed != len(data) {
		return nil, errors.Wrapf(ErrMalformedEncoding,
			"%d trailing bytes after the encoded item", len(data)-consumed)
	}
	return item, nil
}

// DecodeItem decodes the RLP item at the start of data and returns it along
// with the number of bytes consumed.
func DecodeItem(data []byte) (*Item, int, error) {
	if len(data) == 0 {
		return nil, 0, errors.Wrap(ErrMalformedEncoding, "empty buffer")
	}

	prefix := data[0]
	switch {
	case prefix < shortStringOffset:
		// A single byte encodes itself.
		return &Item{str: data[:1]}, 1, nil

	case prefix <= longStringOffset:
		length := int(prefix - shortStringOffset)
		payload, consumed, err := readPayload(data[1:], length)
		if err != nil {
			return nil, 0, err
		}
		if length == 1 && payload[0] < shortStringOffset {
			return nil, 0, errors.Wrapf(ErrMalformedEncoding,
				"single byte %#x below 0x80 must encode itself", payload[0])
		}
		return &Item{str: payload}, 1 + consumed, nil

	case prefix < shortListOffset:
		length, headerSize, err := readLongLength(data, prefix-longStringOffset)
		if err != nil {
			return nil, 0, err
		}
		payload, consumed, err := readPayload(data[headerSize:], length)
		if err != nil {
			return nil, 0, err
		}
		return &Item{str: payload}, headerSize + consumed, nil

	case prefix <= longListOffset:
		length := int(prefix - shortListOffset)
		return decodeListPayload(data, 1, length)

	default:
		length, headerSize, err := readLongLength(data, prefix-longListOffset)
		if err != nil {
			return nil, 0, err
		}
		return decodeListPayload(data, headerSize, length)
	}
}

func decodeListPayload(data []byte, headerSize, length int) (*Item, int, error) {
	payload, _, err := readPayload(data[headerSize:], length)
	if err != nil {
		return nil, 0, err
	}

	item := &Item{isList: true, list: []*Item{}}
	for offset := 0; offset < len(payload); {
		child, consumed, err := DecodeItem(payload[offset:])
		if err != nil {
			return nil, 0, err
		}
		item.list = append(item.list, child)
		offset += consumed
	}
	return item, headerSize + length, nil
}

// readLongLength reads the big-endian length that follows a long-form prefix.
// lengthOfLength is the number of length bytes the prefix declares.
func readLongLength(data []byte, lengthOfLength byte) (length int, headerSize int, err error) {
	if lengthOfLength == 0 || lengthOfLength > 8 {
		return 0, 0, errors.Wrapf(ErrMalformedEncoding,
			"invalid length-of-length %d", lengthOfLength)
	}
	if len(data) < 1+int(lengthOfLength) {
		return 0, 0, errors.Wrap(ErrMalformedEncoding, "truncated length prefix")
	}

	lengthBytes := data[1 : 1+lengthOfLength]
	if lengthBytes[0] == 0 {
		return 0, 0, errors.Wrap(ErrMalformedEncoding, "length encoded with leading zero bytes")
	}
	var v uint64
	for _, b := range lengthBytes {
		v = v<<8 | uint64(b)
	}
	if v <= maxShortLength {
		return 0, 0, errors.Wrapf(ErrMalformedEncoding,
			"length %d must use the single-byte form", v)
	}
	if v > uint64(int(^uint(0)>>1)) {
		return 0, 0, errors.Wrapf(ErrMalformedEncoding, "length %d overflows", v)
	}
	return int(v), 1 + int(lengthOfLength), nil
}

func readPayload(data []byte, length int) ([]byte, int, error) {
	if len(data) < length {
		return nil, 0, errors.Wrapf(ErrMalformedEncoding,
			"prefix declares %d bytes but only %d remain", length, len(data))
	}
	return data[:length], length, nil
}
