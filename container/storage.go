package container

import (
	"errors"
	"fmt"
	"io"
	"math"
)

// Storage is the backing store of a container.
//
// Read must return exactly length bytes or an error. Implementations backed by
// memory return a sub-slice of their buffer so iteration does not copy
// payloads; implementations backed by files necessarily allocate.
type Storage interface {
	Size() (uint32, error)
	Read(offset, length uint32) ([]byte, error)
}

// Bytes is an in-memory Storage. Capacities beyond 4GiB are clamped, as all
// container offsets are 32 bit.
type Bytes []byte

func (b Bytes) Size() (uint32, error) {
	if uint64(len(b)) > math.MaxUint32 {
		return math.MaxUint32, nil
	}
	return uint32(len(b)), nil
}

func (b Bytes) Read(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(b)) {
		return nil, fmt.Errorf("read [%d, %d) beyond %d bytes: %w", offset, end, len(b), io.ErrUnexpectedEOF)
	}
	return b[offset:end:end], nil
}

// ReaderAtStorage adapts an io.ReaderAt of known size.
type ReaderAtStorage struct {
	r    io.ReaderAt
	size uint32
}

func NewReaderAtStorage(r io.ReaderAt, size int64) (*ReaderAtStorage, error) {
	if r == nil || size < 0 {
		return nil, ErrInvalidArgs
	}
	if size > math.MaxUint32 {
		size = math.MaxUint32
	}
	return &ReaderAtStorage{r: r, size: uint32(size)}, nil
}

func (s *ReaderAtStorage) Size() (uint32, error) {
	return s.size, nil
}

func (s *ReaderAtStorage) Read(offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(s.size) {
		return nil, fmt.Errorf("read [%d, %d) beyond %d bytes: %w", offset, end, s.size, io.ErrUnexpectedEOF)
	}
	buf := make([]byte, length)
	n, err := s.r.ReadAt(buf, int64(offset))
	if n == len(buf) {
		// io.ReaderAt may return io.EOF alongside a full read at the end.
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, err
}
