package hashes

import (
	"crypto/sha256"
	"hash"

	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// DoubleHashB calculates sha256(sha256(b)) and returns the resulting bytes.
func DoubleHashB(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:]
}

// DoubleHashH calculates sha256(sha256(b)) and returns the resulting bytes
// as a Hash.
func DoubleHashH(b []byte) Hash {
	first := sha256.Sum256(b)
	return Hash(sha256.Sum256(first[:]))
}

// Keccak256 calculates the legacy Keccak-256 digest of b and returns the
// resulting bytes as a Hash. This is the pre-standardization variant used by
// the EVM chain family, not NIST SHA3-256.
func Keccak256(b []byte) Hash {
	h := sha3.NewLegacyKeccak256()
	// Write on a sha3 state never returns an error, per the hash.Hash
	// interface contract.
	_, err := h.Write(b)
	if err != nil {
		panic(errors.Wrap(err, "keccak state write failed. this should never happen"))
	}
	var sum Hash
	copy(sum[:], h.Sum(nil))
	return sum
}

// DoubleHashWriter is used to incrementally double hash data without
// concatenating all of the data to a single buffer. It exposes an io.Writer
// api and a Finalize function to get the resulting hash.
// DoubleHashWriter.Write(slice).Finalize == DoubleHashH(slice)
type DoubleHashWriter struct {
	inner hash.Hash
}

// NewDoubleHashWriter returns a new DoubleHashWriter.
func NewDoubleHashWriter() *DoubleHashWriter {
	return &DoubleHashWriter{sha256.New()}
}

// Write will always return (len(p), nil).
func (h *DoubleHashWriter) Write(p []byte) (n int, err error) {
	return h.inner.Write(p)
}

// Finalize returns the resulting double hash.
func (h *DoubleHashWriter) Finalize() Hash {
	firstHashInTheSum := h.inner.Sum(nil)
	return sha256.Sum256(firstHashInTheSum)
}
