package merkle

// Create builds the tree for data into tree and returns the root digest.
// tree may be nil when the data fits in a single node.
func Create(data []byte, tree []byte, opts ...Option) (Digest, error) {
	l := newLayout(uint64(len(data)))
	if err := l.checkTree(tree); err != nil {
		return Digest{}, err
	}
	b, err := CreateInit(uint64(len(data)), uint64(len(tree)), opts...)
	if err != nil {
		return Digest{}, err
	}
	if err := b.Update(data, tree); err != nil {
		return Digest{}, err
	}
	return b.Final(tree)
}
