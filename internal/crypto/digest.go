package crypto

import (
	"encoding/binary"
	"hash"
	"math"

	"golang.org/x/crypto/blake2b"
)

// Digest accumulates a BLAKE2b-256 hash over typed fields.
type Digest struct {
	h   hash.Hash
	buf [8]byte
}

// NewDigest returns an empty digest.
func NewDigest() *Digest {
	h, err := blake2b.New256(nil)
	if err != nil {
		// Only a key longer than 64 bytes makes New256 fail.
		panic(err)
	}
	return &Digest{h: h}
}

// Int adds a signed integer.
func (d *Digest) Int(v int64) *Digest {
	binary.LittleEndian.PutUint64(d.buf[:], uint64(v))
	d.h.Write(d.buf[:])
	return d
}

// Float adds a float by its IEEE-754 bits.
func (d *Digest) Float(v float64) *Digest {
	binary.LittleEndian.PutUint64(d.buf[:], math.Float64bits(v))
	d.h.Write(d.buf[:])
	return d
}

// String adds a length-prefixed string.
func (d *Digest) String(s string) *Digest {
	d.Int(int64(len(s)))
	d.h.Write([]byte(s))
	return d
}

// Sum returns the 32-byte digest.
func (d *Digest) Sum() []byte { return d.h.Sum(nil) }
