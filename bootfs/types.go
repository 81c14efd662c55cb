package bootfs

import (
	"encoding/binary"
	"errors"
)

const (
	Magic uint32 = 0xa56d3ff9

	HeaderSize = 16

	// DirentSize is the fixed part of a directory entry; the NUL terminated
	// name follows it.
	DirentSize = 12

	// DirentAlignment is the alignment of every directory entry.
	DirentAlignment = 4

	// PageSize is the alignment of file data.
	PageSize = 4096

	// MaxNameLen bounds the name length, terminating NUL included.
	MaxNameLen = 256
)

var (
	ErrNotFound      = errors.New("bootfs: file not found")
	ErrDuplicateName = errors.New("bootfs: duplicate file name")
)

type Header struct {
	DirSize uint32
}

type Dirent struct {
	Name    string
	DataLen uint32
	DataOff uint32
}

// DirentExtent is the aligned size of a directory entry whose name, not
// counting the terminating NUL, is n bytes long.
func DirentExtent(n int) uint32 {
	return uint32(DirentSize+n+1+DirentAlignment-1) &^ (DirentAlignment - 1)
}

func readU32LE(b []byte) uint32     { return binary.LittleEndian.Uint32(b) }
func writeU32LE(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
