// Package parser implements the index-driven SAX parser (Stage 2 of the
// pipeline): it walks the structural index produced by structidx and emits a
// CompactToken per delimiter and leaf value, maintaining a rolling PathId
// instead of any string path.
package parser

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/nmxmxh/siliconpath/pathhash"
	"github.com/nmxmxh/siliconpath/structidx"
	"github.com/nmxmxh/siliconpath/token"
)

// ErrObjectKeyLimitExceeded is returned by Parse when a document's object
// key count exceeds the configured limit. Fatal for the current document.
type ErrObjectKeyLimitExceeded struct{}

func (ErrObjectKeyLimitExceeded) Error() string { return "object key limit exceeded" }

// Parser holds the mutable state of one side's SAX walk: current path,
// parent-path stack, array-index stack (holding -1 for each open object),
// and the emitted token buffer. A
// Parser is reused across Clear calls to avoid reallocating its stacks.
type Parser struct {
	tokens        []token.CompactToken
	currentPath   pathhash.PathId
	pathStack     []pathhash.PathId
	arrayIndices  []int
	expectingKey  bool
	maxObjectKeys uint32
	keyCount      uint32
	totalBytes    uint32
}

// New returns a Parser sized for the given object-key cap. tokenCapHint
// presizes the token buffer (callers typically pass an estimate based on
// input size); zero is a valid hint.
func New(maxObjectKeys uint32, tokenCapHint int) *Parser {
	if tokenCapHint <= 0 {
		tokenCapHint = 4096
	}
	return &Parser{
		tokens:        make([]token.CompactToken, 0, tokenCapHint),
		currentPath:   pathhash.RootPathId,
		pathStack:     make([]pathhash.PathId, 0, 64),
		arrayIndices:  make([]int, 0, 64),
		maxObjectKeys: maxObjectKeys,
	}
}

// Clear resets the parser for reuse without releasing its backing arrays.
func (p *Parser) Clear() {
	p.tokens = p.tokens[:0]
	p.currentPath = pathhash.RootPathId
	p.pathStack = p.pathStack[:0]
	p.arrayIndices = p.arrayIndices[:0]
	p.expectingKey = false
	p.keyCount = 0
	p.totalBytes = 0
}

// Tokens returns the tokens emitted by every Parse call since the last Clear
// (or New); Parse appends and does not reset them.
func (p *Parser) Tokens() []token.CompactToken { return p.tokens }

// TotalBytes returns the cumulative input length parsed since the last
// Clear.
func (p *Parser) TotalBytes() uint32 { return p.totalBytes }

// Parse walks idx.Positions over input, dispatching on the byte at each
// structural position exactly per the byte-dispatch table: object/array
// open and close, quote-pairing for keys and string values, and primitive
// (number/bool/null) extraction at colons and commas/brackets.
func (p *Parser) Parse(input []byte, idx *structidx.Index) error {
	positions := idx.Positions
	n := len(positions)
	if len(input) == 0 || n == 0 {
		return nil
	}

	afterColon := false

	for i := 0; i < n; {
		pos := int(positions[i])
		b := input[pos]

		switch b {
		case '{':
			afterColon = false
			p.pathStack = append(p.pathStack, p.currentPath)
			// -1 marks an open object, so ',' can tell object from array context.
			p.arrayIndices = append(p.arrayIndices, -1)
			p.pushToken(p.currentPath, token.StartObject, 0, 0, 0)
			p.expectingKey = true
			i++

		case '}':
			afterColon = false
			p.expectingKey = false
			if k := len(p.arrayIndices); k > 0 && p.arrayIndices[k-1] < 0 {
				p.arrayIndices = p.arrayIndices[:k-1]
			}
			p.currentPath = p.popPath()
			p.pushToken(p.currentPath, token.EndObject, 0, 0, 0)
			i++

		case '[':
			afterColon = false
			p.pathStack = append(p.pathStack, p.currentPath)
			p.pushToken(p.currentPath, token.StartArray, 0, 0, 0)
			p.arrayIndices = append(p.arrayIndices, 0)
			p.currentPath = pathhash.FoldIndex(p.currentPath, 0)
			i++

		case ']':
			if i > 0 && len(p.arrayIndices) > 0 {
				prevPos := int(positions[i-1]) + 1
				valueStart := skipWhitespace(input, prevPos, pos)
				if valueStart < pos {
					first := input[valueStart]
					if first != '"' && first != '{' && first != '[' && first != '}' && first != ']' {
						valueEnd := findPrimitiveEnd(input, valueStart, pos)
						if valueEnd > valueStart {
							p.emitValue(input, valueStart, valueEnd)
						}
					}
				}
			}

			afterColon = false
			if len(p.arrayIndices) > 0 {
				p.arrayIndices = p.arrayIndices[:len(p.arrayIndices)-1]
			}
			p.currentPath = p.popPath()
			p.pushToken(p.currentPath, token.EndArray, 0, 0, 0)
			i++

		case '"':
			afterColon = false
			start := pos + 1
			i++

			for i < n {
				nextPos := int(positions[i])
				if input[nextPos] == '"' {
					sBytes := input[start:nextPos]

					if p.expectingKey {
						parent := p.topPath()
						if err := p.beginKey(parent, sBytes); err != nil {
							return err
						}
					} else {
						p.pushToken(p.currentPath, token.Value, hashBytes(sBytes), uint32(start), uint32(nextPos-start))
					}
					i++
					break
				}
				i++
			}

		case ':':
			p.expectingKey = false
			afterColon = true
			i++

			if i < n {
				nextStruct := int(positions[i])
				valueStart := skipWhitespace(input, pos+1, nextStruct)
				if valueStart < nextStruct {
					first := input[valueStart]
					if first != '"' && first != '{' && first != '[' {
						valueEnd := findPrimitiveEnd(input, valueStart, nextStruct)
						if valueEnd > valueStart {
							p.emitValue(input, valueStart, valueEnd)
						}
					}
				}
			}

		case ',':
			inArray := len(p.arrayIndices) > 0 && p.arrayIndices[len(p.arrayIndices)-1] >= 0

			if inArray {
				if i > 0 && !afterColon {
					prevPos := int(positions[i-1]) + 1
					valueStart := skipWhitespace(input, prevPos, pos)
					if valueStart < pos {
						first := input[valueStart]
						if first != '"' && first != '{' && first != '[' && first != '}' && first != ']' {
							valueEnd := findPrimitiveEnd(input, valueStart, pos)
							if valueEnd > valueStart {
								p.emitValue(input, valueStart, valueEnd)
							}
						}
					}
				}

				last := len(p.arrayIndices) - 1
				p.arrayIndices[last]++
				parent := p.topPath()
				p.currentPath = pathhash.FoldIndex(parent, p.arrayIndices[last])
			} else {
				p.expectingKey = true
			}
			afterColon = false
			i++

		default:
			i++
		}
	}

	p.totalBytes += uint32(len(input))
	return nil
}

func (p *Parser) beginKey(parent pathhash.PathId, keyBytes []byte) error {
	p.keyCount++
	if p.maxObjectKeys != 0 && p.keyCount > p.maxObjectKeys {
		return ErrObjectKeyLimitExceeded{}
	}
	p.currentPath = pathhash.FoldKey(parent, keyBytes)
	p.expectingKey = false
	return nil
}

func (p *Parser) emitValue(input []byte, start, end int) {
	vb := input[start:end]
	p.pushToken(p.currentPath, token.Value, hashBytes(vb), uint32(start), uint32(end-start))
}

func (p *Parser) pushToken(path pathhash.PathId, ev token.Event, hash uint64, off, length uint32) {
	p.tokens = append(p.tokens, token.CompactToken{
		PathID:    path,
		Event:     ev,
		ValueHash: hash,
		RawOffset: off,
		RawLen:    length,
	})
}

func (p *Parser) popPath() pathhash.PathId {
	if len(p.pathStack) == 0 {
		return pathhash.RootPathId
	}
	last := len(p.pathStack) - 1
	v := p.pathStack[last]
	p.pathStack = p.pathStack[:last]
	return v
}

func (p *Parser) topPath() pathhash.PathId {
	if len(p.pathStack) == 0 {
		return pathhash.RootPathId
	}
	return p.pathStack[len(p.pathStack)-1]
}

func skipWhitespace(input []byte, start, end int) int {
	pos := start
	for pos < end {
		switch input[pos] {
		case ' ', '\t', '\n', '\r':
			pos++
		default:
			return pos
		}
	}
	return pos
}

func findPrimitiveEnd(input []byte, start, maxEnd int) int {
	pos := start
	for pos < maxEnd {
		switch input[pos] {
		case ' ', '\t', '\n', '\r', ',', '}', ']':
			return pos
		}
		pos++
	}
	return pos
}

// hashBytes is the two-tier value hash: a SIMD-style XOR-fold over 16-byte
// lanes (reduced via two 8-byte words) for slices of 16 bytes or more, and
// xxhash for anything shorter. Used only for equality — never ordering.
func hashBytes(b []byte) uint64 {
	if len(b) >= 16 {
		aligned := len(b) &^ 15
		lo := binary.LittleEndian.Uint64(b[0:8])
		hi := binary.LittleEndian.Uint64(b[8:16])

		for off := 16; off < aligned; off += 16 {
			lo ^= binary.LittleEndian.Uint64(b[off : off+8])
			hi ^= binary.LittleEndian.Uint64(b[off+8 : off+16])
		}

		h := lo ^ hi ^ uint64(len(b))
		for _, c := range b[aligned:] {
			h ^= uint64(c)
			h *= 0x100000001b3
		}
		return h
	}
	return xxhash.Sum64(b)
}
