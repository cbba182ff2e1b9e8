package diffengine

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmxmxh/siliconpath/parser"
	"github.com/nmxmxh/siliconpath/structidx"
	"github.com/nmxmxh/siliconpath/token"
)

func tokensFor(t *testing.T, input string) []token.CompactToken {
	t.Helper()
	var idx structidx.Index
	structidx.Build([]byte(input), &idx)
	p := parser.New(10000, 0)
	require.NoError(t, p.Parse([]byte(input), &idx))
	return append([]token.CompactToken(nil), p.Tokens()...)
}

func diffOf(t *testing.T, left, right string) []DiffEntry {
	t.Helper()
	return Compute(tokensFor(t, left), tokensFor(t, right))
}

func TestScenarioModifiedScalar(t *testing.T) {
	diffs := diffOf(t, `{"a":1,"b":2}`, `{"a":1,"b":3}`)
	require.Len(t, diffs, 1)
	assert.Equal(t, Modified, diffs[0].Op)
}

func TestScenarioAddedKey(t *testing.T) {
	diffs := diffOf(t, `{"a":1}`, `{"a":1,"b":2}`)
	require.Len(t, diffs, 1)
	assert.Equal(t, Added, diffs[0].Op)
}

func TestScenarioModifiedArrayElement(t *testing.T) {
	diffs := diffOf(t, `{"x":[1,2,3]}`, `{"x":[1,2,4]}`)
	require.Len(t, diffs, 1)
	assert.Equal(t, Modified, diffs[0].Op)
}

func TestScenarioRemovedAndAddedAcrossRename(t *testing.T) {
	diffs := diffOf(t, `{"a":{"b":1}}`, `{"a":{"c":1}}`)
	require.Len(t, diffs, 2)
	ops := []Op{diffs[0].Op, diffs[1].Op}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	assert.Equal(t, []Op{Added, Removed}, ops)
}

func TestScenarioIdenticalStrings(t *testing.T) {
	diffs := diffOf(t, `{"k":"hello"}`, `{"k":"hello"}`)
	assert.Empty(t, diffs)
}

func TestScenarioAllAddedFromEmpty(t *testing.T) {
	diffs := diffOf(t, `{}`, `{"a":true,"b":null,"c":1.5}`)
	require.Len(t, diffs, 3)
	for _, d := range diffs {
		assert.Equal(t, Added, d.Op)
	}
}

// P1 Determinism: two independent runs over the same input produce
// byte-identical (here: deep-equal) diff entries.
func TestDeterminismAcrossRuns(t *testing.T) {
	left := `{"a":1,"b":[1,2,3],"c":{"d":"x"}}`
	right := `{"a":2,"b":[1,2,4],"c":{"d":"y"},"e":true}`
	first := diffOf(t, left, right)
	second := diffOf(t, left, right)
	assert.Equal(t, first, second)
}

// P2 Identity: left == right yields zero entries.
func TestIdentityYieldsNoEntries(t *testing.T) {
	doc := `{"a":1,"b":[1,2,{"c":true}],"d":"same"}`
	assert.Empty(t, diffOf(t, doc, doc))
}

// P3 Commutativity of classes: diff(L,R) and diff(R,L) swap Added/Removed
// and flip Modified's sides.
func TestCommutativityOfClasses(t *testing.T) {
	left := `{"a":1,"b":2,"x":{"only_left":1}}`
	right := `{"a":1,"b":3,"y":{"only_right":1}}`

	forward := diffOf(t, left, right)
	backward := diffOf(t, right, left)
	require.Len(t, forward, len(backward))

	byPath := make(map[uint64]DiffEntry, len(backward))
	for _, d := range backward {
		byPath[d.PathID] = d
	}

	for _, f := range forward {
		b, ok := byPath[f.PathID]
		require.True(t, ok)
		switch f.Op {
		case Added:
			assert.Equal(t, Removed, b.Op)
		case Removed:
			assert.Equal(t, Added, b.Op)
		case Modified:
			assert.Equal(t, Modified, b.Op)
			assert.Equal(t, f.LeftOff, b.RightOff)
			assert.Equal(t, f.RightOff, b.LeftOff)
		}
	}
}

// P4 Leaf completeness, Added/Removed side.
func TestLeafCompletenessAddedRemoved(t *testing.T) {
	diffs := diffOf(t, `{"keep":1,"gone":2}`, `{"keep":1,"new":3}`)
	var added, removed int
	for _, d := range diffs {
		switch d.Op {
		case Added:
			added++
		case Removed:
			removed++
		}
	}
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, removed)
}

// P6 Stability under reordering of object keys.
func TestStabilityUnderKeyReordering(t *testing.T) {
	diffs := diffOf(t, `{"a":1,"b":2,"c":3}`, `{"c":3,"a":1,"b":2}`)
	assert.Empty(t, diffs)
}

func TestResultsSortedAscendingByPathID(t *testing.T) {
	diffs := diffOf(t, `{}`, `{"a":1,"bb":2,"ccc":3,"d":4}`)
	for i := 1; i < len(diffs); i++ {
		assert.Less(t, diffs[i-1].PathID, diffs[i].PathID)
	}
}
