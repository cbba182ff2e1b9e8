// Package token defines the SAX-style event stream emitted by the parser:
// one CompactToken per structural delimiter or leaf value, each carrying a
// PathId instead of any allocated path string.
package token

import "github.com/nmxmxh/siliconpath/pathhash"

// Event is the kind of structural event a token represents.
type Event uint8

const (
	StartObject Event = iota
	EndObject
	StartArray
	EndArray
	Value
)

func (e Event) String() string {
	switch e {
	case StartObject:
		return "StartObject"
	case EndObject:
		return "EndObject"
	case StartArray:
		return "StartArray"
	case EndArray:
		return "EndArray"
	case Value:
		return "Value"
	default:
		return "Unknown"
	}
}

// CompactToken is one parser output. For structural events ValueHash,
// RawOffset and RawLen are zero. For Value events they describe the leaf's
// literal bytes within the committed input buffer.
type CompactToken struct {
	PathID    pathhash.PathId
	Event     Event
	ValueHash uint64
	RawOffset uint32
	RawLen    uint32
}
