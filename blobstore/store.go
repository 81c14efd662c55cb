package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/go-git/go-billy/v5"

	"github.com/forestrie/go-bootverify/manifest"
	"github.com/forestrie/go-bootverify/merkle"
)

const (
	treeSuffix     = ".tree"
	manifestSuffix = ".manifest"
)

var (
	ErrNotFound         = errors.New("blobstore: blob not found")
	ErrManifestMismatch = errors.New("blobstore: manifest does not describe the requested blob")
)

// Store keeps blobs on a billy filesystem, named by their merkle root. Each
// blob is stored as three files: the data, its tree and its manifest.
//
// Store is not safe for concurrent Put of the same blob.
type Store struct {
	log   logger.Logger
	fs    billy.Filesystem
	opts  StoreOptions
	codec manifest.Codec
}

func New(log logger.Logger, fs billy.Filesystem, opts ...StoreOption) (*Store, error) {
	codec, err := manifest.NewCodec()
	if err != nil {
		return nil, err
	}
	s := &Store{
		log:   log,
		fs:    fs,
		opts:  NewStoreOptions(opts...),
		codec: codec,
	}
	if _, err := manifest.New(nil, nil, s.opts.hashAlg, s.opts.scheme); err != nil {
		return nil, err
	}
	return s, nil
}

// BlobPath returns the path of a blob's data. The tree and manifest share
// the path with a suffix.
func (s *Store) BlobPath(root merkle.Digest) string {
	hex := root.String()
	return s.fs.Join(hex[0:2], hex[2:])
}

// Has reports whether the blob with the given root is stored.
func (s *Store) Has(root merkle.Digest) (bool, error) {
	_, err := s.fs.Stat(s.BlobPath(root) + manifestSuffix)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Put stores data and returns its root. Storing a blob that is already
// present is a no-op.
func (s *Store) Put(ctx context.Context, data []byte) (merkle.Digest, error) {
	tree := make([]byte, merkle.GetTreeLength(uint64(len(data))))
	m, err := manifest.New(data, tree, s.opts.hashAlg, s.opts.scheme)
	if err != nil {
		return merkle.Digest{}, err
	}
	root, err := m.Digest()
	if err != nil {
		return merkle.Digest{}, err
	}

	ok, err := s.Has(root)
	if err != nil {
		return merkle.Digest{}, err
	}
	if ok {
		s.log.Debugf("blob %s already stored", root)
		return root, nil
	}

	encoded, err := s.codec.Marshal(m)
	if err != nil {
		return merkle.Digest{}, err
	}

	path := s.BlobPath(root)
	// The manifest is written last; its presence marks a complete blob.
	for _, f := range []struct {
		name string
		data []byte
	}{
		{path, data},
		{path + treeSuffix, tree},
		{path + manifestSuffix, encoded},
	} {
		if err := ctx.Err(); err != nil {
			return merkle.Digest{}, err
		}
		if err := s.writeFile(root.String()[:2], f.name, f.data); err != nil {
			return merkle.Digest{}, fmt.Errorf("writing %s: %w", f.name, err)
		}
	}
	s.log.Debugf("stored blob %s: %d bytes, %d tree bytes", root, len(data), len(tree))
	return root, nil
}

// writeFile writes a temporary file in dir and renames it to name.
func (s *Store) writeFile(dir, name string, data []byte) error {
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := s.fs.TempFile(dir, "tmp_blob_")
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(f.Name())
		return err
	}
	return s.fs.Rename(f.Name(), name)
}

func (s *Store) readFile(name string) ([]byte, error) {
	f, err := s.fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Open opens the blob with the given root. The manifest and tree are loaded
// and checked for consistency with root; the data itself is verified as it
// is read.
func (s *Store) Open(ctx context.Context, root merkle.Digest) (*Blob, error) {
	path := s.BlobPath(root)

	encoded, err := s.readFile(path + manifestSuffix)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, root)
	}
	if err != nil {
		return nil, err
	}
	m, err := s.codec.Unmarshal(encoded)
	if err != nil {
		return nil, err
	}
	if got, err := m.Digest(); err != nil || got != root {
		return nil, fmt.Errorf("%w: %s", ErrManifestMismatch, root)
	}
	opts, err := m.Options()
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tree, err := s.readFile(path + treeSuffix)
	if err != nil {
		return nil, err
	}
	if uint64(len(tree)) != m.TreeLen() {
		return nil, fmt.Errorf("%w: tree is %d bytes, want %d", merkle.ErrIoDataIntegrity, len(tree), m.TreeLen())
	}

	f, err := s.fs.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := s.fs.Stat(path)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if uint64(fi.Size()) != m.DataLen {
		_ = f.Close()
		return nil, fmt.Errorf("%w: data is %d bytes, manifest records %d", merkle.ErrIoDataIntegrity, fi.Size(), m.DataLen)
	}

	return &Blob{
		log:        s.log,
		f:          f,
		root:       root,
		manifest:   m,
		tree:       tree,
		opts:       opts,
		batchNodes: s.opts.batchNodes,
	}, nil
}
