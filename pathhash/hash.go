// Package pathhash computes the rolling 64-bit structural path identity used
// throughout the diff engine. A PathId folds the byte sequence of every
// ancestor key and array index into a single word so the diff join never has
// to compare or allocate strings.
package pathhash

// PathId identifies a structural location (object field or array element)
// within a document. Two structurally identical paths in different
// documents always fold to the same PathId; the root is always 0.
type PathId = uint64

// RootPathId is the PathId of the document root.
const RootPathId PathId = 0

// prime is the FNV-like multiplier fixed by the wire format. Changing it
// would change every PathId a conforming implementation produces, so it is
// not configurable.
const prime uint64 = 0x100000001b3

// FoldKey folds an object key's raw bytes into parent, producing the child's
// PathId. Pure, total, zero allocation.
func FoldKey(parent PathId, key []byte) PathId {
	h := parent
	for _, b := range key {
		h *= prime
		h ^= uint64(b)
	}
	return h
}

// FoldIndex folds an array index into parent, producing the element's
// PathId. Pure, total, zero allocation.
func FoldIndex(parent PathId, index int) PathId {
	h := parent
	h *= prime
	h ^= uint64(index)
	return h
}
