// Package structidx builds the structural index: the ascending list of byte
// offsets where a JSON-shaped structural character ({ } [ ] : , ") occurs in
// an input document. It is Stage 1 of a two-pass, simdjson-style pipeline:
// the scan never inspects string interiors or number syntax, it only
// records where the delimiters are.
package structidx

import (
	"encoding/binary"
	"math/bits"

	"github.com/klauspost/cpuid/v2"
)

// Index is the ordered sequence of structural byte offsets for one input.
type Index struct {
	Positions []uint32
	Len       uint32
}

// blockSize is the batch unit for the wide-host path: four 16-byte lanes
// per block. The feature probe runs once at package init and only picks
// between this block-batched path and a byte-at-a-time scan — it never
// changes the set of positions produced.
const blockSize = 64

var wideSIMDHost = cpuid.CPU.Supports(cpuid.AVX2) || cpuid.CPU.Supports(cpuid.SSE2)

// Build scans input and populates idx with the ascending positions of every
// structural byte. Reuses idx's backing array when there's enough capacity.
func Build(input []byte, idx *Index) {
	idx.Positions = idx.Positions[:0]
	idx.Len = uint32(len(input))

	if len(input) == 0 {
		return
	}

	pos := 0
	n := len(input)

	// Hosts without wide SIMD-friendly word support (per cpuid) scan
	// scalar from the start; the block-batched path below is a throughput
	// optimization only, never a behavioral difference.
	if !wideSIMDHost {
		scanScalar(input, idx)
		return
	}

	blocks := n / blockSize

	for i := 0; i < blocks; i++ {
		base := pos
		// Four 16-byte lanes per 64-byte block; each lane is read as two
		// 8-byte words whose 8-bit masks fill 16 bits of one 64-bit mask
		// per block, so the bit-extraction loop below runs once per block.
		var combined uint64
		for lane := 0; lane < 4; lane++ {
			laneOff := base + lane*16
			m0 := structuralMask(binary.LittleEndian.Uint64(input[laneOff:]))
			m1 := structuralMask(binary.LittleEndian.Uint64(input[laneOff+8:]))
			combined |= (m0 | (m1 << 8)) << uint(lane*16)
		}
		if combined != 0 {
			extractPositions(&idx.Positions, combined, uint32(base))
		}
		pos += blockSize
	}

	// Scalar tail (< 64 bytes).
	for ; pos < n; pos++ {
		if isStructural(input[pos]) {
			idx.Positions = append(idx.Positions, uint32(pos))
		}
	}
}

// scanScalar is the portable fallback for hosts cpuid reports no
// SIMD-friendly word support for. Same output as the batched path, one
// byte at a time.
func scanScalar(input []byte, idx *Index) {
	for pos, b := range input {
		if isStructural(b) {
			idx.Positions = append(idx.Positions, uint32(pos))
		}
	}
}

// structuralMask returns an 8-bit mask (one bit per byte of w, lowest byte
// in bit 0) of which bytes in the little-endian 8-byte word w are structural
// characters.
func structuralMask(w uint64) uint64 {
	var mask uint64
	for i := 0; i < 8; i++ {
		b := byte(w >> (uint(i) * 8))
		if isStructural(b) {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

func isStructural(b byte) bool {
	switch b {
	case '{', '}', '[', ']', ':', ',', '"':
		return true
	default:
		return false
	}
}

// extractPositions appends base+bitPosition for every set bit in mask,
// ascending, clearing the lowest set bit each iteration.
func extractPositions(out *[]uint32, mask uint64, base uint32) {
	for mask != 0 {
		bitPos := bits.TrailingZeros64(mask)
		*out = append(*out, base+uint32(bitPos))
		mask &= mask - 1
	}
}
