package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/go-git/go-billy/v5"

	"github.com/forestrie/go-bootverify/manifest"
	"github.com/forestrie/go-bootverify/merkle"
)

// Blob is an open stored blob. Every read is verified against the root the
// blob was opened with.
type Blob struct {
	log        logger.Logger
	f          billy.File
	root       merkle.Digest
	manifest   manifest.Manifest
	tree       []byte
	opts       []merkle.Option
	batchNodes int
}

var _ io.ReaderAt = (*Blob)(nil)

func (b *Blob) Root() merkle.Digest         { return b.root }
func (b *Blob) Manifest() manifest.Manifest { return b.manifest }
func (b *Blob) Size() int64                 { return int64(b.manifest.DataLen) }

// ReadAt reads len(p) bytes at off. The nodes covering the range are read
// and verified before anything is copied to p, so p never holds unverified
// data.
func (b *Blob) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", merkle.ErrInvalidArgs, off)
	}
	size := b.manifest.DataLen
	if uint64(off) >= size {
		return 0, io.EOF
	}
	want := min(uint64(len(p)), size-uint64(off))
	if want == 0 {
		return 0, nil
	}

	start := uint64(off) &^ (merkle.NodeSize - 1)
	end := min((uint64(off)+want+merkle.NodeSize-1)&^(merkle.NodeSize-1), size)
	nodes, err := b.readNodes(start, end)
	if err != nil {
		return 0, err
	}
	n := copy(p, nodes[uint64(off)-start:])
	if uint64(n) < uint64(len(p)) {
		return n, io.EOF
	}
	return n, nil
}

// VerifyAll reads and verifies the whole blob, checking ctx between batches
// of nodes.
func (b *Blob) VerifyAll(ctx context.Context) error {
	size := b.manifest.DataLen
	if size == 0 {
		return merkle.VerifyNodes(nil, 0, 0, b.tree, b.root, b.opts...)
	}
	batch := uint64(b.batchNodes) * merkle.NodeSize
	for start := uint64(0); start < size; start += batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := b.readNodes(start, min(start+batch, size)); err != nil {
			return err
		}
	}
	return nil
}

func (b *Blob) readNodes(start, end uint64) ([]byte, error) {
	nodes := make([]byte, end-start)
	if _, err := b.f.ReadAt(nodes, int64(start)); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := merkle.VerifyNodes(nodes, start, b.manifest.DataLen, b.tree, b.root, b.opts...); err != nil {
		b.log.Infof("blob %s: integrity check failed for [%d, %d): %v", b.root, start, end, err)
		return nil, err
	}
	return nodes, nil
}

func (b *Blob) Close() error {
	return b.f.Close()
}
