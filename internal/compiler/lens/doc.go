// Conformance note for choose/shuffle (spec §4.7).
//
// Key derivation: BLAKE2b-16(seed || 0x1F || canonical-bytes(input)),
// first 8 bytes read as a big-endian uint64.
//
// Generator: a 64-bit LCG with Knuth's MMIX constants
// (multiplier 6364136223846793005, increment 1442695040888963407),
// seeded with the derived key. Each call to next() advances the state and
// returns it.
//
// choose(xs, seed): a single draw, next() % len(xs). This is NOT required
// to equal shuffle(xs, seed)[0] — they consume the generator differently
// and are independent draws from the same key.
//
// shuffle(xs, seed): backward Fisher-Yates. For i from len(xs)-1 down to 1,
// swap xs[i] with xs[j] where j = next() % (i+1).
//
// Any reimplementation of this compiler must reproduce this exact key
// derivation and generator to satisfy spec §8's seed-determinism property
// across implementations.
package lens
