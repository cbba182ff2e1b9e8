// Package diffengine joins two token streams by PathId and classifies each
// leaf as Added, Removed, or Modified. The join trades string-level fidelity
// for throughput: PathId collisions are treated as equality, matching the
// accepted false-positive model described for the identity hash itself.
package diffengine

import (
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/nmxmxh/siliconpath/pathhash"
	"github.com/nmxmxh/siliconpath/token"
)

// Op classifies a DiffEntry.
type Op uint8

const (
	Added Op = iota
	Removed
	Modified
)

// DiffEntry is one leaf-level change. Added has no left value, Removed has
// no right value, Modified has both.
type DiffEntry struct {
	Op       Op
	PathID   pathhash.PathId
	LeftOff  uint32
	LeftLen  uint32
	HasLeft  bool
	RightOff uint32
	RightLen uint32
	HasRight bool
}

// bloomFalsePositiveRate bounds the filter's false-positive rate; a filter
// hit always still falls through to the real map lookup (only a definite
// miss skips it), so this only trades memory for skip-rate, never
// correctness.
const bloomFalsePositiveRate = 0.01

// Compute joins left and right Value tokens by PathId and returns the
// classified entries, sorted ascending by PathId so two independent runs on
// the same input produce byte-identical output regardless of map iteration
// order.
func Compute(left, right []token.CompactToken) []DiffEntry {
	leftValues := valueTokensOnly(left)
	rightValues := valueTokensOnly(right)

	// Last writer wins on duplicate path_id: repeated keys or reused
	// positional paths simply overwrite their prior map entry.
	leftByPath := make(map[pathhash.PathId]token.CompactToken, len(leftValues))
	leftFilter := bloom.NewWithEstimates(uint(len(leftValues))+1, bloomFalsePositiveRate)
	for _, lt := range leftValues {
		leftByPath[lt.PathID] = lt
		leftFilter.Add(pathIDBytes(lt.PathID))
	}

	rightPaths := make(map[pathhash.PathId]struct{}, len(rightValues))
	for _, rt := range rightValues {
		rightPaths[rt.PathID] = struct{}{}
	}

	diffs := make([]DiffEntry, 0, len(leftValues)+len(rightValues))

	for _, rt := range rightValues {
		key := pathIDBytes(rt.PathID)
		if !leftFilter.Test(key) {
			diffs = append(diffs, DiffEntry{
				Op:       Added,
				PathID:   rt.PathID,
				RightOff: rt.RawOffset,
				RightLen: rt.RawLen,
				HasRight: true,
			})
			continue
		}
		lt, ok := leftByPath[rt.PathID]
		if !ok {
			diffs = append(diffs, DiffEntry{
				Op:       Added,
				PathID:   rt.PathID,
				RightOff: rt.RawOffset,
				RightLen: rt.RawLen,
				HasRight: true,
			})
			continue
		}
		if lt.ValueHash != rt.ValueHash {
			diffs = append(diffs, DiffEntry{
				Op:       Modified,
				PathID:   rt.PathID,
				LeftOff:  lt.RawOffset,
				LeftLen:  lt.RawLen,
				HasLeft:  true,
				RightOff: rt.RawOffset,
				RightLen: rt.RawLen,
				HasRight: true,
			})
		}
	}

	for _, lt := range leftValues {
		if _, ok := rightPaths[lt.PathID]; !ok {
			diffs = append(diffs, DiffEntry{
				Op:      Removed,
				PathID:  lt.PathID,
				LeftOff: lt.RawOffset,
				LeftLen: lt.RawLen,
				HasLeft: true,
			})
		}
	}

	sort.Slice(diffs, func(i, j int) bool { return diffs[i].PathID < diffs[j].PathID })
	return diffs
}

func valueTokensOnly(tokens []token.CompactToken) []token.CompactToken {
	out := make([]token.CompactToken, 0, len(tokens))
	for _, t := range tokens {
		if t.Event == token.Value {
			out = append(out, t)
		}
	}
	return out
}

func pathIDBytes(id pathhash.PathId) []byte {
	return []byte{
		byte(id), byte(id >> 8), byte(id >> 16), byte(id >> 24),
		byte(id >> 32), byte(id >> 40), byte(id >> 48), byte(id >> 56),
	}
}
