package lens

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// deriveKey implements spec §4.7's key derivation: a 16-byte BLAKE2b digest
// over seed, a single 0x1F separator byte, and the canonical bytes of the
// input value, truncated to its first eight bytes read as a big-endian
// uint64.
func deriveKey(seed string, canonical []byte) uint64 {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(seed))
	h.Write([]byte{0x1F})
	h.Write(canonical)
	digest := h.Sum(nil)
	return binary.BigEndian.Uint64(digest[:8])
}

// lcg is the conformance-note algorithm referenced by spec §4.7: a 64-bit
// linear congruential generator seeded by the derived key, using the
// constants from Knuth's MMIX. Every implementation of this compiler must
// use exactly this generator and the backward Fisher-Yates loop in
// lensShuffle for choose/shuffle results to agree bit-for-bit.
type lcg struct {
	state uint64
}

const (
	lcgMultiplier = 6364136223846793005
	lcgIncrement  = 1442695040888963407
)

func newLCG(seed uint64) *lcg {
	return &lcg{state: seed}
}

func (g *lcg) next() uint64 {
	g.state = g.state*lcgMultiplier + lcgIncrement
	return g.state
}
