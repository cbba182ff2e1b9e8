package arena

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmxmxh/siliconpath/diffengine"
)

func TestNewWritesVersionHeader(t *testing.T) {
	a := New(4096)
	assert.Equal(t, FormatVersionMajor, binary.LittleEndian.Uint16(a.Bytes()[0:2]))
	assert.Equal(t, FormatVersionMinor, binary.LittleEndian.Uint16(a.Bytes()[2:4]))
	assert.Equal(t, uint32(HeaderSize), a.Len())
}

func TestWriteEntryAppendsFixedWidthRecord(t *testing.T) {
	a := New(4096)
	err := a.WriteEntry(diffengine.DiffEntry{
		Op: diffengine.Modified, PathID: 0xdeadbeef,
		LeftOff: 10, LeftLen: 4, HasLeft: true,
		RightOff: 20, RightLen: 5, HasRight: true,
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), a.EntryCount())
	assert.Equal(t, uint32(HeaderSize+entrySize), a.Len())

	entry := a.Bytes()[HeaderSize:]
	assert.Equal(t, byte(diffengine.Modified), entry[0])
	assert.Equal(t, uint32(0xdeadbeef), binary.LittleEndian.Uint32(entry[1:5]))
	assert.Equal(t, uint32(10), binary.LittleEndian.Uint32(entry[5:9]))
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(entry[9:13]))
	assert.Equal(t, uint32(20), binary.LittleEndian.Uint32(entry[13:17]))
	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(entry[17:21]))
}

// P5: header integrity — total_len must equal 16 + 24*entry_count after Seal.
func TestSealPatchesHeaderIntegrity(t *testing.T) {
	a := New(4096)
	for i := 0; i < 3; i++ {
		require.NoError(t, a.WriteEntry(diffengine.DiffEntry{Op: diffengine.Added, PathID: uint64(i)}))
	}
	a.Seal()

	entryCount := binary.LittleEndian.Uint32(a.Bytes()[4:8])
	totalLen := binary.LittleEndian.Uint64(a.Bytes()[8:16])
	assert.Equal(t, uint32(3), entryCount)
	assert.Equal(t, uint64(HeaderSize+3*entrySize), totalLen)
	assert.EqualValues(t, totalLen, len(a.Bytes()))
}

func TestWriteEntryFailsAfterSeal(t *testing.T) {
	a := New(4096)
	a.Seal()
	err := a.WriteEntry(diffengine.DiffEntry{Op: diffengine.Added})
	assert.ErrorIs(t, err, ErrSealed)
}

func TestWriteEntryFailsWhenCapacityExceeded(t *testing.T) {
	a := New(HeaderSize + entrySize)
	require.NoError(t, a.WriteEntry(diffengine.DiffEntry{Op: diffengine.Added}))
	err := a.WriteEntry(diffengine.DiffEntry{Op: diffengine.Added})
	assert.ErrorIs(t, err, ErrLimitExceeded)
}

func TestDecodeEntriesRoundTripsWrittenFields(t *testing.T) {
	a := New(4096)
	want := []diffengine.DiffEntry{
		{Op: diffengine.Added, PathID: 1, RightOff: 5, RightLen: 2, HasRight: true},
		{Op: diffengine.Modified, PathID: 2, LeftOff: 10, LeftLen: 3, HasLeft: true, RightOff: 20, RightLen: 4, HasRight: true},
		{Op: diffengine.Removed, PathID: 3, LeftOff: 30, LeftLen: 6, HasLeft: true},
	}
	for _, d := range want {
		require.NoError(t, a.WriteEntry(d))
	}
	a.Seal()

	decoded := DecodeEntries(a.Bytes())
	require.Len(t, decoded, 3)
	for i, d := range want {
		assert.Equal(t, d.Op, decoded[i].Op)
		assert.EqualValues(t, d.PathID, decoded[i].PathIDLo)
		assert.Equal(t, d.LeftOff, decoded[i].LeftOff)
		assert.Equal(t, d.RightOff, decoded[i].RightOff)
	}
}

func TestDecodeEntriesOnHeaderOnlyBufferIsEmpty(t *testing.T) {
	a := New(4096)
	a.Seal()
	assert.Empty(t, DecodeEntries(a.Bytes()))
}

func TestClearResetsForReuse(t *testing.T) {
	a := New(4096)
	require.NoError(t, a.WriteEntry(diffengine.DiffEntry{Op: diffengine.Added}))
	a.Seal()

	a.Clear()
	assert.False(t, a.Sealed())
	assert.Equal(t, uint32(0), a.EntryCount())
	assert.Equal(t, uint32(HeaderSize), a.Len())

	require.NoError(t, a.WriteEntry(diffengine.DiffEntry{Op: diffengine.Removed}))
	assert.Equal(t, uint32(1), a.EntryCount())
}
