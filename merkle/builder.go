package merkle

import (
	"fmt"
	"hash"
)

// Builder computes a tree incrementally from data supplied in chunks of any
// size. Each level keeps the hash of its node in progress; completed node
// digests are written to the tree and fed to the level above.
type Builder struct {
	opts   Options
	layout layout

	hashers [maxLevels + 1]hash.Hash
	started [maxLevels + 1]bool
	nodeIdx [maxLevels + 1]uint64
	nodePos [maxLevels + 1]uint64
	nodeLen [maxLevels + 1]uint64

	received uint64
	root     Digest
	rootSet  bool
	finished bool
}

// CreateInit starts building the tree for dataLen bytes of data. treeLen is
// the size of the tree buffer that will be passed to Update and Final.
func CreateInit(dataLen, treeLen uint64, opts ...Option) (*Builder, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	b := &Builder{
		opts:   o,
		layout: newLayout(dataLen),
	}
	if treeLen < b.layout.treeLen {
		return nil, fmt.Errorf("%w: %d bytes of data need a %d byte tree, have %d",
			ErrBufferTooSmall, dataLen, b.layout.treeLen, treeLen)
	}
	for k := 0; k <= b.layout.levels; k++ {
		b.hashers[k] = o.newHash()
	}
	return b, nil
}

// DataLen is the data length the builder was initialised with.
func (b *Builder) DataLen() uint64 { return b.layout.lengths[0] }

// TreeLen is the number of tree bytes the builder writes.
func (b *Builder) TreeLen() uint64 { return b.layout.treeLen }

// Update hashes the next chunk of data, writing completed digests to tree.
func (b *Builder) Update(data []byte, tree []byte) error {
	if b.finished {
		return fmt.Errorf("%w: Update after Final", ErrBadState)
	}
	if uint64(len(data)) > b.layout.lengths[0]-b.received {
		return fmt.Errorf("%w: %d more bytes after %d of %d", ErrOutOfRange, len(data), b.received, b.layout.lengths[0])
	}
	if len(data) == 0 {
		return nil
	}
	if err := b.layout.checkTree(tree); err != nil {
		return err
	}
	b.received += uint64(len(data))
	b.feed(0, data, tree)
	return nil
}

// Final completes the tree and returns the root digest. All of the data
// must have been supplied.
func (b *Builder) Final(tree []byte) (Digest, error) {
	if b.finished {
		return Digest{}, fmt.Errorf("%w: Final called twice", ErrBadState)
	}
	if b.received != b.layout.lengths[0] {
		return Digest{}, fmt.Errorf("%w: have %d of %d bytes", ErrBadState, b.received, b.layout.lengths[0])
	}
	if err := b.layout.checkTree(tree); err != nil {
		return Digest{}, err
	}
	if b.layout.lengths[0] == 0 {
		// Empty data hashes a single empty node.
		b.startNode(0)
		b.finishNode(0, tree)
	}
	if !b.rootSet {
		return Digest{}, fmt.Errorf("%w: root not computed", ErrBadState)
	}
	b.finished = true
	return b.root, nil
}

func (b *Builder) feed(k int, p []byte, tree []byte) {
	for len(p) > 0 {
		if !b.started[k] {
			b.startNode(k)
		}
		n := min(uint64(len(p)), b.nodeLen[k]-b.nodePos[k])
		_, _ = b.hashers[k].Write(p[:n])
		b.nodePos[k] += n
		p = p[n:]
		if b.nodePos[k] == b.nodeLen[k] {
			b.finishNode(k, tree)
		}
	}
}

func (b *Builder) startNode(k int) {
	offset := b.nodeIdx[k] * NodeSize
	b.nodeLen[k] = min(NodeSize, b.layout.lengths[k]-offset)
	b.nodePos[k] = 0
	b.started[k] = true
	beginNode(b.hashers[k], b.opts.scheme, offset, k, b.nodeLen[k])
}

func (b *Builder) finishNode(k int, tree []byte) {
	d := endNode(b.hashers[k], b.opts.scheme, b.nodeLen[k])
	b.started[k] = false
	idx := b.nodeIdx[k]
	b.nodeIdx[k]++

	if k == b.layout.levels {
		b.root = d
		b.rootSet = true
		return
	}

	up := k + 1
	base := b.layout.offsets[up]
	at := base + idx*DigestLen
	copy(tree[at:at+DigestLen], d[:])
	if end := base + b.layout.lengths[up]; at+DigestLen == end {
		clear(tree[end : base+roundUpNode(b.layout.lengths[up])])
	}
	b.feed(up, d[:], tree)
}
