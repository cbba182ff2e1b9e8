// Package arena implements ResultArena: the append-only, fixed-layout
// buffer the engine writes diff entries into and hands back to the host by
// pointer. Layout is wire format v2.1 (see spec): a 16-byte header followed
// by 24-byte fixed entries.
package arena

import (
	"encoding/binary"
	"errors"

	"github.com/nmxmxh/siliconpath/diffengine"
)

// FormatVersionMajor/Minor are stamped into every arena's header. Consumers
// must reject any major version they don't understand.
const (
	FormatVersionMajor uint16 = 2
	FormatVersionMinor uint16 = 1

	HeaderSize = 16
	entrySize  = 24
)

var (
	// ErrSealed is returned by WriteEntry once Seal has been called.
	ErrSealed = errors.New("arena sealed")
	// ErrLimitExceeded is returned by WriteEntry when appending the entry
	// would exceed the arena's configured capacity.
	ErrLimitExceeded = errors.New("arena memory limit exceeded")
)

// Arena is a monotonic byte buffer: header + N fixed entries.
type Arena struct {
	buf        []byte
	maxSize    int
	sealed     bool
	entryCount uint32
}

// New allocates an Arena with the given capacity in bytes (including the
// header). The header is written immediately with a zero entry count.
func New(maxSizeBytes uint32) *Arena {
	a := &Arena{
		buf:     make([]byte, HeaderSize, maxSizeBytes),
		maxSize: int(maxSizeBytes),
	}
	binary.LittleEndian.PutUint16(a.buf[0:2], FormatVersionMajor)
	binary.LittleEndian.PutUint16(a.buf[2:4], FormatVersionMinor)
	return a
}

// WriteEntry appends one 24-byte entry for d. Fails if the arena is sealed
// or appending would exceed its capacity.
func (a *Arena) WriteEntry(d diffengine.DiffEntry) error {
	if a.sealed {
		return ErrSealed
	}
	if len(a.buf)+entrySize > a.maxSize {
		return ErrLimitExceeded
	}

	var entry [entrySize]byte
	entry[0] = byte(d.Op)
	binary.LittleEndian.PutUint32(entry[1:5], uint32(d.PathID))
	if d.HasLeft {
		binary.LittleEndian.PutUint32(entry[5:9], d.LeftOff)
		binary.LittleEndian.PutUint32(entry[9:13], d.LeftLen)
	}
	if d.HasRight {
		binary.LittleEndian.PutUint32(entry[13:17], d.RightOff)
		binary.LittleEndian.PutUint32(entry[17:21], d.RightLen)
	}
	// entry[21:24] stays zero padding.

	a.buf = append(a.buf, entry[:]...)
	a.entryCount++
	return nil
}

// Seal patches entry_count and total_len into the header and makes the
// arena read-only. Idempotent.
func (a *Arena) Seal() {
	binary.LittleEndian.PutUint32(a.buf[4:8], a.entryCount)
	binary.LittleEndian.PutUint64(a.buf[8:16], uint64(len(a.buf)))
	a.sealed = true
}

// Clear resets the arena to an empty, unsealed header for reuse.
func (a *Arena) Clear() {
	a.buf = a.buf[:HeaderSize]
	binary.LittleEndian.PutUint32(a.buf[4:8], 0)
	binary.LittleEndian.PutUint64(a.buf[8:16], 0)
	a.sealed = false
	a.entryCount = 0
}

// Bytes returns the arena's current buffer for read-only exposure to the
// host. Valid after Seal; callers must not retain it past the next Clear.
func (a *Arena) Bytes() []byte { return a.buf }

// Len returns the current buffer length in bytes.
func (a *Arena) Len() uint32 { return uint32(len(a.buf)) }

// EntryCount returns the number of entries written so far.
func (a *Arena) EntryCount() uint32 { return a.entryCount }

// Sealed reports whether Seal has been called since the last Clear.
func (a *Arena) Sealed() bool { return a.sealed }

// Entry is one decoded 24-byte record, as read back from an arena's Bytes.
type Entry struct {
	Op       diffengine.Op
	PathIDLo uint32
	LeftOff  uint32
	LeftLen  uint32
	RightOff uint32
	RightLen uint32
}

// DecodeEntries reads the fixed-width entries out of a sealed arena's byte
// buffer, skipping the 16-byte header. Intended for hosts that only have
// the raw bytes (e.g. read back over the ABI boundary) rather than the
// Arena value itself.
func DecodeEntries(buf []byte) []Entry {
	if len(buf) <= HeaderSize {
		return nil
	}
	body := buf[HeaderSize:]
	n := len(body) / entrySize
	out := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		e := body[i*entrySize : (i+1)*entrySize]
		out = append(out, Entry{
			Op:       diffengine.Op(e[0]),
			PathIDLo: binary.LittleEndian.Uint32(e[1:5]),
			LeftOff:  binary.LittleEndian.Uint32(e[5:9]),
			LeftLen:  binary.LittleEndian.Uint32(e[9:13]),
			RightOff: binary.LittleEndian.Uint32(e[13:17]),
			RightLen: binary.LittleEndian.Uint32(e[17:21]),
		})
	}
	return out
}
