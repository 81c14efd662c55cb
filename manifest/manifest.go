package manifest

import (
	"errors"
	"fmt"

	"github.com/forestrie/go-bootverify/merkle"
)

var (
	ErrUnsupported = errors.New("manifest: unsupported tree parameters")
	ErrNoRoot      = errors.New("manifest: root is detached")
)

// Manifest records everything a verifier needs, besides the data and tree
// themselves, to check a blob against its root.
type Manifest struct {
	DataLen  uint64 `cbor:"1,keyasint"`
	NodeSize uint32 `cbor:"2,keyasint"`
	Scheme   uint8  `cbor:"3,keyasint"`
	HashAlg  string `cbor:"4,keyasint"`
	// Root is omitted from published signed manifests so that verifiers must
	// recompute it from the data.
	Root []byte `cbor:"5,keyasint,omitempty"`
}

// New builds the tree for data into tree and returns the manifest describing
// it.
func New(data, tree []byte, hashAlg string, scheme merkle.Scheme) (Manifest, error) {
	m := Manifest{
		DataLen:  uint64(len(data)),
		NodeSize: merkle.NodeSize,
		Scheme:   uint8(scheme),
		HashAlg:  hashAlg,
	}
	opts, err := m.Options()
	if err != nil {
		return Manifest{}, err
	}
	root, err := merkle.Create(data, tree, opts...)
	if err != nil {
		return Manifest{}, err
	}
	m.Root = root[:]
	return m, nil
}

// Options returns the merkle options the tree was built with.
func (m Manifest) Options() ([]merkle.Option, error) {
	if m.NodeSize != merkle.NodeSize {
		return nil, fmt.Errorf("%w: node size %d", ErrUnsupported, m.NodeSize)
	}
	newHash, err := merkle.HashByName(m.HashAlg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	return []merkle.Option{merkle.WithHash(newHash), merkle.WithScheme(merkle.Scheme(m.Scheme))}, nil
}

func (m Manifest) Digest() (merkle.Digest, error) {
	if m.Root == nil {
		return merkle.Digest{}, ErrNoRoot
	}
	return merkle.DigestFromBytes(m.Root)
}

// TreeLen is the size of the tree for the manifest's data.
func (m Manifest) TreeLen() uint64 {
	return merkle.GetTreeLength(m.DataLen)
}

// Verify checks data and tree against the manifest.
func (m Manifest) Verify(data, tree []byte) error {
	if uint64(len(data)) != m.DataLen {
		return fmt.Errorf("%w: data is %d bytes, manifest records %d", merkle.ErrIoDataIntegrity, len(data), m.DataLen)
	}
	root, err := m.Digest()
	if err != nil {
		return err
	}
	opts, err := m.Options()
	if err != nil {
		return err
	}
	return merkle.Verify(data, tree, 0, m.DataLen, root, opts...)
}
