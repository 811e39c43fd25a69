package binaryserializer

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// maxItems is the number of buffers to keep in the free
// list to use for binary serialization and deserialization.
const maxItems = 1024

// binaryFreeList provides a free list of buffers to use for serializing and
// deserializing primitive integer values to and from io.Readers and
// io.Writers. Each buffer has a cap of 8 (thus it supports up to a uint64),
// which greatly reduces the number of allocations on hot decode paths.
var binaryFreeList = make(chan []byte, maxItems)

// borrow returns a byte slice from the free list with a length of size. A new
// buffer is allocated if there are not any available on the free list.
func borrow(size int) []byte {
	var buf []byte
	select {
	case buf = <-binaryFreeList:
	default:
		buf = make([]byte, 8)
	}
	return buf[:size]
}

// giveBack puts the provided byte slice back on the free list. The buffer
// MUST have been obtained via borrow and therefore have a cap of 8.
func giveBack(buf []byte) {
	select {
	case binaryFreeList <- buf:
	default:
		// Let it go to the garbage collector.
	}
}

// read fills a borrowed buffer of the requested size from r. The caller is
// responsible for returning the buffer to the free list.
func read(r io.Reader, size int) ([]byte, error) {
	buf := borrow(size)
	if _, err := io.ReadFull(r, buf); err != nil {
		giveBack(buf)
		return nil, errors.WithStack(err)
	}
	return buf, nil
}

// Uint8 reads a single byte from the provided reader and returns it as a
// uint8.
func Uint8(r io.Reader) (uint8, error) {
	buf, err := read(r, 1)
	if err != nil {
		return 0, err
	}
	rv := buf[0]
	giveBack(buf)
	return rv, nil
}

// Uint16 reads two bytes from the provided reader, interprets them as a
// little endian number and returns the resulting uint16.
func Uint16(r io.Reader) (uint16, error) {
	buf, err := read(r, 2)
	if err != nil {
		return 0, err
	}
	rv := binary.LittleEndian.Uint16(buf)
	giveBack(buf)
	return rv, nil
}

// Uint32 reads four bytes from the provided reader, interprets them as a
// little endian number and returns the resulting uint32.
func Uint32(r io.Reader) (uint32, error) {
	buf, err := read(r, 4)
	if err != nil {
		return 0, err
	}
	rv := binary.LittleEndian.Uint32(buf)
	giveBack(buf)
	return rv, nil
}

// Uint64 reads eight bytes from the provided reader, interprets them as a
// little endian number and returns the resulting uint64.
func Uint64(r io.Reader) (uint64, error) {
	buf, err := read(r, 8)
	if err != nil {
		return 0, err
	}
	rv := binary.LittleEndian.Uint64(buf)
	giveBack(buf)
	return rv, nil
}

// PutUint8 writes the provided uint8 to the given writer.
func PutUint8(w io.Writer, val uint8) error {
	_, err := w.Write([]byte{val})
	return errors.WithStack(err)
}

// PutUint16 serializes the provided uint16 as little endian and writes the
// resulting two bytes to the given writer.
func PutUint16(w io.Writer, val uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], val)
	_, err := w.Write(buf[:])
	return errors.WithStack(err)
}

// PutUint32 serializes the provided uint32 as little endian and writes the
// resulting four bytes to the given writer.
func PutUint32(w io.Writer, val uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], val)
	_, err := w.Write(buf[:])
	return errors.WithStack(err)
}

// PutUint64 serializes the provided uint64 as little endian and writes the
// resulting eight bytes to the given writer.
func PutUint64(w io.Writer, val uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], val)
	_, err := w.Write(buf[:])
	return errors.WithStack(err)
}
