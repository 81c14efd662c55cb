package merkle

import (
	"bytes"
	"fmt"
)

// Verify checks that data[offset:offset+length] is consistent with root.
//
// The range is widened to whole nodes for hashing. Only the nodes covering
// the range and their ancestors are examined, so corruption elsewhere in data
// or tree does not cause a narrower verification to fail.
func Verify(data []byte, tree []byte, offset, length uint64, root Digest, opts ...Option) error {
	dataLen := uint64(len(data))
	if length == 0 && dataLen != 0 {
		return fmt.Errorf("%w: zero length range", ErrInvalidArgs)
	}
	if offset > dataLen || length > dataLen-offset {
		return fmt.Errorf("%w: [%d, +%d) of %d bytes", ErrOutOfRange, offset, length, dataLen)
	}
	start := roundDownNode(offset)
	end := min(roundUpNode(offset+length), dataLen)
	return VerifyNodes(data[start:end], start, dataLen, tree, root, opts...)
}

// VerifyNodes checks a node aligned chunk of data against root without
// needing the rest of the data. nodes holds the data starting at
// nodesOffset, which must be a multiple of NodeSize, and must be a whole
// number of nodes unless it ends at dataLen.
func VerifyNodes(nodes []byte, nodesOffset, dataLen uint64, tree []byte, root Digest, opts ...Option) error {
	o, err := newOptions(opts)
	if err != nil {
		return err
	}
	n := uint64(len(nodes))
	switch {
	case nodesOffset%NodeSize != 0:
		return fmt.Errorf("%w: offset %d is not node aligned", ErrInvalidArgs, nodesOffset)
	case nodesOffset > dataLen || n > dataLen-nodesOffset:
		return fmt.Errorf("%w: [%d, +%d) of %d bytes", ErrOutOfRange, nodesOffset, n, dataLen)
	case n == 0 && dataLen != 0:
		return fmt.Errorf("%w: no nodes to verify", ErrInvalidArgs)
	case n%NodeSize != 0 && nodesOffset+n != dataLen:
		return fmt.Errorf("%w: %d bytes is not a whole number of nodes", ErrInvalidArgs, n)
	}

	l := newLayout(dataLen)
	if err := l.checkTree(tree); err != nil {
		return err
	}

	h := o.newHash()
	chunk, offset := nodes, nodesOffset
	for k := 0; ; k++ {
		if k == l.levels {
			// The top level is a single node, whatever its length.
			got := hashNode(h, o.scheme, 0, k, chunk)
			if got != root {
				return fmt.Errorf("%w: root %s, expected %s", ErrIoDataIntegrity, got, root)
			}
			return nil
		}

		up := k + 1
		base := l.offsets[up]
		first := offset / NodeSize
		count := (uint64(len(chunk)) + NodeSize - 1) / NodeSize
		for i := uint64(0); i < count; i++ {
			node := chunk[i*NodeSize : min((i+1)*NodeSize, uint64(len(chunk)))]
			got := hashNode(h, o.scheme, offset+i*NodeSize, k, node)
			at := base + (first+i)*DigestLen
			if !bytes.Equal(got[:], tree[at:at+DigestLen]) {
				return fmt.Errorf("%w: level %d node %d", ErrIoDataIntegrity, k, first+i)
			}
		}

		// Widen the digests just checked to the nodes that hold them.
		dStart := roundDownNode(first * DigestLen)
		dEnd := min(roundUpNode((first+count)*DigestLen), l.lengths[up])
		if dEnd == l.lengths[up] {
			pad := tree[base+l.lengths[up] : base+roundUpNode(l.lengths[up])]
			if !bytes.Equal(pad, zeroNode[:len(pad)]) {
				return fmt.Errorf("%w: level %d padding is not zero", ErrIoDataIntegrity, up)
			}
		}
		chunk, offset = tree[base+dStart:base+dEnd], dStart
	}
}
