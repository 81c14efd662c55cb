package blobstore

import (
	"github.com/forestrie/go-bootverify/merkle"
)

const defaultBatchNodes = 64

// StoreOptions configure how new blobs are hashed and how stored blobs are
// verified.
type StoreOptions struct {
	hashAlg    string
	scheme     merkle.Scheme
	batchNodes int
}

type StoreOption func(*StoreOptions)

// WithHashAlg selects the hash used for blobs written by Put.
func WithHashAlg(name string) StoreOption {
	return func(o *StoreOptions) {
		o.hashAlg = name
	}
}

// WithScheme selects the node scheme used for blobs written by Put.
func WithScheme(scheme merkle.Scheme) StoreOption {
	return func(o *StoreOptions) {
		o.scheme = scheme
	}
}

// WithBatchNodes sets how many nodes VerifyAll checks between context
// cancellation checks.
func WithBatchNodes(n int) StoreOption {
	return func(o *StoreOptions) {
		o.batchNodes = n
	}
}

func NewStoreOptions(opts ...StoreOption) StoreOptions {
	o := StoreOptions{
		hashAlg:    merkle.HashSHA256,
		scheme:     merkle.SchemePlain,
		batchNodes: defaultBatchNodes,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.batchNodes <= 0 {
		o.batchNodes = defaultBatchNodes
	}
	return o
}
