// Package engine implements the diff engine's lifecycle: config snapshot,
// magic-word handle validation, two staging buffers, two structural
// index/parser pairs, one result arena, one error buffer, and the
// create -> commit* -> finalize -> destroy state machine.
package engine

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nmxmxh/siliconpath/arena"
	"github.com/nmxmxh/siliconpath/diffengine"
	"github.com/nmxmxh/siliconpath/engineconfig"
	"github.com/nmxmxh/siliconpath/engineerr"
	"github.com/nmxmxh/siliconpath/enginelog"
	"github.com/nmxmxh/siliconpath/enginestatus"
	"github.com/nmxmxh/siliconpath/parser"
	"github.com/nmxmxh/siliconpath/structidx"
)

// magic marks a live handle. Destroy zeroes it, so any call on a
// use-after-destroy reference fails the validity check instead of touching
// freed state.
const magic uint32 = 0xD1FF_C0AE

// Engine owns everything needed to diff exactly one left/right pair:
// staging buffers the host writes input into directly, a structural index
// and parser per side, the joined result arena, and the last-error buffer.
type Engine struct {
	mu sync.Mutex

	id     string
	magic  uint32
	config engineconfig.Config
	sealed bool

	leftInput      []byte
	rightInput     []byte
	committedBytes uint32

	leftIndex   structidx.Index
	rightIndex  structidx.Index
	leftParser  *parser.Parser
	rightParser *parser.Parser

	arena *arena.Arena
	err   engineerr.Buffer
}

// New allocates an Engine sized from cfg. engineconfig.FromBytes rejects the
// wire-format cases it can see on its own (zero limits), but max_memory_bytes
// also has to clear arena.HeaderSize before it's a usable arena capacity, and
// that constraint belongs to the arena package, not the wire codec. New is
// where that second layer of validation happens, before any buffer is
// allocated.
func New(cfg engineconfig.Config) (*Engine, error) {
	if cfg.MaxMemoryBytes < arena.HeaderSize {
		return nil, engineerr.New(engineerr.InvalidConfig, fmt.Sprintf(
			"max_memory_bytes %d below arena header size %d", cfg.MaxMemoryBytes, arena.HeaderSize))
	}

	inputCap := int(cfg.MaxInputSize / 2)
	tokenHint := inputCap / 32

	e := &Engine{
		id:          uuid.NewString(),
		magic:       magic,
		config:      cfg,
		leftInput:   make([]byte, inputCap),
		rightInput:  make([]byte, inputCap),
		leftParser:  parser.New(cfg.MaxObjectKeys, tokenHint),
		rightParser: parser.New(cfg.MaxObjectKeys, tokenHint),
		arena:       arena.New(cfg.MaxMemoryBytes),
	}

	enginelog.Infow(e.id, "engine created",
		"max_memory_bytes", cfg.MaxMemoryBytes,
		"max_input_size", cfg.MaxInputSize,
		"max_object_keys", cfg.MaxObjectKeys,
	)
	return e, nil
}

// ID returns the engine's correlation id, used to tie its log lines
// together. The wasm export table keys handles by a counter, not by this id.
func (e *Engine) ID() string { return e.id }

// Valid reports whether the handle's magic word is still live.
func (e *Engine) Valid() bool { return e.magic == magic }

// LeftBuffer returns the left staging buffer for the host to write input
// into directly, ahead of a CommitLeft call.
func (e *Engine) LeftBuffer() []byte { return e.leftInput }

// RightBuffer returns the right staging buffer for the host to write input
// into directly, ahead of a CommitRight call.
func (e *Engine) RightBuffer() []byte { return e.rightInput }

// StageLeft copies data into the left staging buffer, growing it if
// necessary, for in-process callers that don't drive the engine through
// the staging-buffer-then-commit-length ABI pattern directly.
func (e *Engine) StageLeft(data []byte) {
	e.leftInput = append(e.leftInput[:0], data...)
}

// StageRight copies data into the right staging buffer, mirroring StageLeft.
func (e *Engine) StageRight(data []byte) {
	e.rightInput = append(e.rightInput[:0], data...)
}

// CommitLeft builds the structural index and token stream over the first
// length bytes of the left staging buffer.
func (e *Engine) CommitLeft(length uint32) enginestatus.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.commitSide(length, &e.leftInput, &e.leftIndex, e.leftParser, "left")
}

// CommitRight mirrors CommitLeft for the right staging buffer.
func (e *Engine) CommitRight(length uint32) enginestatus.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.commitSide(length, &e.rightInput, &e.rightIndex, e.rightParser, "right")
}

func (e *Engine) commitSide(length uint32, buf *[]byte, idx *structidx.Index, p *parser.Parser, side string) enginestatus.Status {
	if !e.Valid() {
		return enginestatus.InvalidHandle
	}
	if e.sealed {
		return enginestatus.EngineSealed
	}
	if length > uint32(len(*buf)) {
		e.err.Set(engineerr.New(engineerr.InputLimitExceeded, side+" commit length exceeds staging buffer"))
		return enginestatus.InputLimitExceeded
	}
	if e.committedBytes+length > e.config.MaxInputSize {
		e.err.Set(engineerr.New(engineerr.InputLimitExceeded, "total committed input exceeds max_input_size"))
		return enginestatus.InputLimitExceeded
	}

	bytes := (*buf)[:length]
	structidx.Build(bytes, idx)

	if err := p.Parse(bytes, idx); err != nil {
		e.err.Set(engineerr.New(engineerr.ObjectKeyLimitExceeded, err.Error()))
		return enginestatus.ObjectKeyLimitExceeded
	}

	e.committedBytes += length
	enginelog.Debugw(e.id, "commit accepted", "side", side, "bytes", length)
	return enginestatus.Ok
}

// Finalize joins the two committed token streams and writes the classified
// entries into the result arena, then seals it. Idempotent: a second call
// after a successful finalize returns the same arena without recomputing.
func (e *Engine) Finalize() (*arena.Arena, enginestatus.Status) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.Valid() {
		return nil, enginestatus.InvalidHandle
	}
	if e.sealed {
		return e.arena, enginestatus.Ok
	}
	e.sealed = true

	diffs := diffengine.Compute(e.leftParser.Tokens(), e.rightParser.Tokens())

	status := enginestatus.Ok
	for _, d := range diffs {
		if err := e.arena.WriteEntry(d); err != nil {
			e.err.Set(engineerr.New(engineerr.MemoryLimitExceeded, err.Error()))
			status = enginestatus.Error
			break
		}
	}

	e.arena.Seal()
	enginelog.Infow(e.id, "finalize complete", "entries", e.arena.EntryCount(), "status", status.String())
	return e.arena, status
}

// Clear resets the engine for reuse with the same config: arena, parsers,
// staging positions, and the sealed flag all return to their post-New
// state, without reallocating the staging buffers.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.arena.Clear()
	e.leftParser.Clear()
	e.rightParser.Clear()
	e.err.Clear()
	e.sealed = false
	e.committedBytes = 0
}

// Destroy zeroes the magic word, guarding against double-free/use-after-
// destroy, and releases the engine's buffers.
func (e *Engine) Destroy() enginestatus.Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.magic == 0 {
		return enginestatus.Ok
	}
	e.magic = 0
	e.leftInput = nil
	e.rightInput = nil
	enginelog.Infow(e.id, "engine destroyed")
	return enginestatus.Ok
}

// ResultLen returns the arena's total byte length after Finalize has
// sealed it.
func (e *Engine) ResultLen() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.arena.Len()
}

// LastError returns the engine's current error message bytes (UTF-8,
// NUL-terminated) and its length excluding the terminator.
func (e *Engine) LastError() ([]byte, uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err.Bytes(), e.err.Len()
}

// MemoryReport summarizes current staging and arena occupancy for
// host-side diagnostics. Has no effect on diff results.
func (e *Engine) MemoryReport() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fmt.Sprintf("engine %s: committed=%d/%d arena=%d/%d sealed=%t",
		e.id, e.committedBytes, e.config.MaxInputSize,
		e.arena.Len(), e.config.MaxMemoryBytes, e.sealed)
}
