package merkle

import (
	"encoding/hex"
	"fmt"
)

// Digest is the digest of a node, and the root of a tree.
type Digest [DigestLen]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) Equal(other Digest) bool {
	return d == other
}

// ParseDigest parses the 64 character hex form produced by String.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	if len(s) != 2*DigestLen {
		return Digest{}, fmt.Errorf("%w: want %d hex characters, have %d", ErrBadDigest, 2*DigestLen, len(s))
	}
	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return Digest{}, fmt.Errorf("%w: %v", ErrBadDigest, err)
	}
	return d, nil
}

// DigestFromBytes copies a raw 32 byte digest.
func DigestFromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != DigestLen {
		return Digest{}, fmt.Errorf("%w: want %d bytes, have %d", ErrBadDigest, DigestLen, len(b))
	}
	copy(d[:], b)
	return d, nil
}

func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
