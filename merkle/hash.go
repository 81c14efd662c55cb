package merkle

import (
	"encoding/binary"
	"hash"
)

// Scheme selects what is hashed for each node.
type Scheme uint8

const (
	// SchemePlain hashes the node bytes alone. The last node of a level is
	// hashed at its true length.
	SchemePlain Scheme = iota

	// SchemeLocality prefixes each node with its position and length and
	// hashes it zero padded to NodeSize:
	//
	//	H( le64(offset | level) || le32(length) || node || zeros )
	//
	// offset is the node's byte offset within its level, which is always a
	// multiple of NodeSize, so the level fits in the low bits. length is the
	// true node length on the data level and NodeSize on every level above
	// it. An empty node is hashed without padding.
	SchemeLocality
)

func (s Scheme) String() string {
	switch s {
	case SchemePlain:
		return "plain"
	case SchemeLocality:
		return "locality"
	}
	return "unknown"
}

var zeroNode [NodeSize]byte

func beginNode(h hash.Hash, scheme Scheme, offset uint64, level int, length uint64) {
	h.Reset()
	if scheme != SchemeLocality {
		return
	}
	if level > 0 {
		length = NodeSize
	}
	var prefix [12]byte
	binary.LittleEndian.PutUint64(prefix[0:8], offset|uint64(level))
	binary.LittleEndian.PutUint32(prefix[8:12], uint32(length))
	_, _ = h.Write(prefix[:])
}

func endNode(h hash.Hash, scheme Scheme, length uint64) Digest {
	if scheme == SchemeLocality && length > 0 && length < NodeSize {
		_, _ = h.Write(zeroNode[:NodeSize-length])
	}
	var d Digest
	h.Sum(d[:0])
	return d
}

func hashNode(h hash.Hash, scheme Scheme, offset uint64, level int, node []byte) Digest {
	beginNode(h, scheme, offset, level, uint64(len(node)))
	_, _ = h.Write(node)
	return endNode(h, scheme, uint64(len(node)))
}
