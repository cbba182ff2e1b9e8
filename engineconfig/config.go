// Package engineconfig implements the 19-byte binary configuration codec
// the host exchanges with create_engine: a fixed little-endian layout, two
// named presets, and the validation errors that cause create_engine to
// return null instead of a handle.
package engineconfig

import (
	"encoding/binary"
	"errors"
)

// ArrayDiffMode selects how arrays are compared. Only Index is implemented
// by the core; HashWindow and Full are reserved wire values.
type ArrayDiffMode uint8

const (
	Index ArrayDiffMode = iota
	HashWindow
	Full
)

const wireSize = 19

var (
	ErrTooShort          = errors.New("config: buffer shorter than 19 bytes")
	ErrInvalidArrayMode  = errors.New("config: unknown array_diff_mode")
	ErrInvalidLimits     = errors.New("config: max_memory_bytes or max_input_size is zero")
	ErrInvalidWindowSize = errors.New("config: hash_window_size is zero")
)

// Config mirrors the 19-byte wire layout field-for-field.
type Config struct {
	MaxMemoryBytes   uint32
	MaxInputSize     uint32
	MaxObjectKeys    uint32
	ArrayDiffMode    ArrayDiffMode
	HashWindowSize   uint16
	MaxFullArraySize uint32
}

// Default returns the general-purpose preset: 32MB arena, 64MB input,
// 100,000 object keys.
func Default() Config {
	return Config{
		MaxMemoryBytes:   32 * 1024 * 1024,
		MaxInputSize:     64 * 1024 * 1024,
		MaxObjectKeys:    100_000,
		ArrayDiffMode:    Index,
		HashWindowSize:   64,
		MaxFullArraySize: 1024,
	}
}

// Edge returns the constrained-host preset: 16MB arena, 32MB input,
// 50,000 object keys.
func Edge() Config {
	return Config{
		MaxMemoryBytes:   16 * 1024 * 1024,
		MaxInputSize:     32 * 1024 * 1024,
		MaxObjectKeys:    50_000,
		ArrayDiffMode:    Index,
		HashWindowSize:   32,
		MaxFullArraySize: 512,
	}
}

// FromBytes parses a Config from its 19-byte wire form.
func FromBytes(b []byte) (Config, error) {
	var c Config
	if len(b) < wireSize {
		return c, ErrTooShort
	}

	c.MaxMemoryBytes = binary.LittleEndian.Uint32(b[0:4])
	c.MaxInputSize = binary.LittleEndian.Uint32(b[4:8])
	c.MaxObjectKeys = binary.LittleEndian.Uint32(b[8:12])

	switch b[12] {
	case 0:
		c.ArrayDiffMode = Index
	case 1:
		c.ArrayDiffMode = HashWindow
	case 2:
		c.ArrayDiffMode = Full
	default:
		return Config{}, ErrInvalidArrayMode
	}

	c.HashWindowSize = binary.LittleEndian.Uint16(b[13:15])
	c.MaxFullArraySize = binary.LittleEndian.Uint32(b[15:19])

	if c.MaxMemoryBytes == 0 || c.MaxInputSize == 0 {
		return Config{}, ErrInvalidLimits
	}
	if c.HashWindowSize == 0 {
		return Config{}, ErrInvalidWindowSize
	}

	return c, nil
}

// ToBytes serializes c to its 19-byte wire form.
func (c Config) ToBytes() [wireSize]byte {
	var buf [wireSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], c.MaxMemoryBytes)
	binary.LittleEndian.PutUint32(buf[4:8], c.MaxInputSize)
	binary.LittleEndian.PutUint32(buf[8:12], c.MaxObjectKeys)
	buf[12] = byte(c.ArrayDiffMode)
	binary.LittleEndian.PutUint16(buf[13:15], c.HashWindowSize)
	binary.LittleEndian.PutUint32(buf[15:19], c.MaxFullArraySize)
	return buf
}
