package merkle

// layout describes where each level of the tree for a given data length
// lives. Level 0 is the data itself; levels 1..levels are stored in the tree
// buffer leaf level first, each padded to a whole number of nodes.
type layout struct {
	levels  int
	lengths [maxLevels + 1]uint64
	offsets [maxLevels + 1]uint64
	treeLen uint64
}

func newLayout(dataLen uint64) layout {
	var l layout
	l.lengths[0] = dataLen
	for l.lengths[l.levels] > NodeSize {
		next := nextLength(l.lengths[l.levels])
		l.levels++
		l.lengths[l.levels] = next
		l.offsets[l.levels] = l.treeLen
		l.treeLen += roundUpNode(next)
	}
	return l
}

// nextLength is the length of the level holding the digests of a level of
// n bytes.
func nextLength(n uint64) uint64 {
	if n <= NodeSize {
		return 0
	}
	return (n/NodeSize + min(n%NodeSize, 1)) * DigestLen
}

func roundUpNode(n uint64) uint64 {
	return (n + NodeSize - 1) &^ (NodeSize - 1)
}

func roundDownNode(n uint64) uint64 {
	return n &^ (NodeSize - 1)
}

// GetTreeLength returns the size of the tree buffer needed for dataLen bytes
// of data. Data that fits in a single node needs no tree.
func GetTreeLength(dataLen uint64) uint64 {
	return newLayout(dataLen).treeLen
}

// checkTree validates a caller supplied tree buffer against the layout.
func (l *layout) checkTree(tree []byte) error {
	if l.treeLen == 0 {
		return nil
	}
	if tree == nil {
		return ErrInvalidArgs
	}
	if uint64(len(tree)) < l.treeLen {
		return ErrBufferTooSmall
	}
	return nil
}
