package merkle

import "errors"

const (
	// NodeSize is the size of a data or tree node.
	NodeSize = 8192

	// DigestLen is the size of a node digest.
	DigestLen = 32

	// DigestsPerNode is the fan out of the tree.
	DigestsPerNode = NodeSize / DigestLen

	// maxLevels bounds the number of stored tree levels for any 64 bit data
	// length.
	maxLevels = 7
)

var (
	ErrInvalidArgs     = errors.New("merkle: invalid arguments")
	ErrBufferTooSmall  = errors.New("merkle: tree buffer too small")
	ErrBadState        = errors.New("merkle: operation out of order")
	ErrOutOfRange      = errors.New("merkle: range exceeds data length")
	ErrIoDataIntegrity = errors.New("merkle: data integrity check failed")
	ErrBadHashSize     = errors.New("merkle: hash size must be 32 bytes")
	ErrBadDigest       = errors.New("merkle: malformed digest")
	ErrUnknownHash     = errors.New("merkle: unknown hash algorithm")
)
