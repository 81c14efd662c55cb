package merkle

import (
	"crypto/sha256"
	"fmt"
	"hash"

	"github.com/zeebo/blake3"
)

const (
	HashSHA256 = "sha256"
	HashBLAKE3 = "blake3"
)

// Options configure how node digests are computed. Producer and verifier
// must agree on them.
type Options struct {
	newHash func() hash.Hash
	scheme  Scheme
}

type Option func(*Options)

// WithHash selects the node hash. The hash must produce 32 byte sums.
func WithHash(newHash func() hash.Hash) Option {
	return func(o *Options) {
		o.newHash = newHash
	}
}

func WithScheme(scheme Scheme) Option {
	return func(o *Options) {
		o.scheme = scheme
	}
}

// HashByName returns the constructor for one of the named hash algorithms.
func HashByName(name string) (func() hash.Hash, error) {
	switch name {
	case HashSHA256, "":
		return sha256.New, nil
	case HashBLAKE3:
		return func() hash.Hash { return blake3.New() }, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownHash, name)
}

func newOptions(opts []Option) (Options, error) {
	o := Options{newHash: sha256.New, scheme: SchemePlain}
	for _, opt := range opts {
		opt(&o)
	}
	if o.newHash == nil {
		return Options{}, fmt.Errorf("%w: nil hash constructor", ErrInvalidArgs)
	}
	if size := o.newHash().Size(); size != DigestLen {
		return Options{}, fmt.Errorf("%w: have %d", ErrBadHashSize, size)
	}
	switch o.scheme {
	case SchemePlain, SchemeLocality:
	default:
		return Options{}, fmt.Errorf("%w: unknown node scheme %d", ErrInvalidArgs, o.scheme)
	}
	return o, nil
}
