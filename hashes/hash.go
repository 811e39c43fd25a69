// Package hashes provides the digest primitives used for transaction ids and
// signing payloads: double sha256 for the UTXO chain family and Keccak-256
// for the EVM family.
package hashes

import (
	"encoding/hex"

	"github.com/pkg/errors"
)

// HashSize of array used to store hashes. See Hash.
const HashSize = 32

// MaxHashStringSize is the maximum length of a Hash hash string.
const MaxHashStringSize = HashSize * 2

// Hash is used in several of the messages and common structures. It
// typically represents the double sha256 of data.
type Hash [HashSize]byte

// String returns the Hash as the hexadecimal string of the byte-reversed
// hash. The reversal is a display convention only; the wire and signing
// encodings always use the internal byte order.
func (hash Hash) String() string {
	for i := 0; i < HashSize/2; i++ {
		hash[i], hash[HashSize-1-i] = hash[HashSize-1-i], hash[i]
	}
	return hex.EncodeToString(hash[:])
}

// CloneBytes returns a copy of the bytes which represent the hash as a byte
// slice.
func (hash *Hash) CloneBytes() []byte {
	newHash := make([]byte, HashSize)
	copy(newHash, hash[:])
	return newHash
}

// SetBytes sets the bytes which represent the hash. An error is returned if
// the number of bytes passed in is not HashSize.
func (hash *Hash) SetBytes(newHash []byte) error {
	if len(newHash) != HashSize {
		return errors.Errorf("invalid hash length of %d, want %d",
			len(newHash), HashSize)
	}
	copy(hash[:], newHash)
	return nil
}

// FromBytes creates a Hash from the given byte slice.
func FromBytes(hashBytes []byte) (*Hash, error) {
	var hash Hash
	err := hash.SetBytes(hashBytes)
	if err != nil {
		return nil, err
	}
	return &hash, nil
}

// FromString creates a Hash from a hash string. The string should be the
// hexadecimal string of a byte-reversed hash, but any missing characters
// result in zero padding at the end of the Hash.
func FromString(src string) (*Hash, error) {
	if len(src) > MaxHashStringSize {
		return nil, errors.Errorf("max hash string length is %d bytes",
			MaxHashStringSize)
	}

	// Hex decoder expects the hash to be a multiple of two. When not, pad
	// with a leading zero.
	var srcBytes []byte
	if len(src)%2 == 0 {
		srcBytes = []byte(src)
	} else {
		srcBytes = make([]byte, 1+len(src))
		srcBytes[0] = '0'
		copy(srcBytes[1:], src)
	}

	var reversedHash Hash
	_, err := hex.Decode(reversedHash[HashSize-hex.DecodedLen(len(srcBytes)):], srcBytes)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Reverse copy from the temporary hash to destination. Because the
	// temporary was zeroed, the written result will be correctly padded.
	var hash Hash
	for i, b := range reversedHash[:HashSize/2] {
		hash[i], hash[HashSize-1-i] = reversedHash[HashSize-1-i], b
	}
	return &hash, nil
}
