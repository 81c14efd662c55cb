package bootfs

import (
	"fmt"
	"strings"

	"github.com/forestrie/go-bootverify/container"
)

type File struct {
	Name string
	Data []byte
}

// Build lays out a bootfs image: the header, the directory in the order
// given, then each file's data starting on its own page.
func Build(files []File) ([]byte, error) {
	seen := make(map[string]struct{}, len(files))
	var dirSize uint64
	for _, f := range files {
		if len(f.Name)+1 > MaxNameLen || strings.IndexByte(f.Name, 0) >= 0 {
			return nil, fmt.Errorf("%w: bootfs name %q", container.ErrInvalidArgs, f.Name)
		}
		if _, ok := seen[f.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, f.Name)
		}
		seen[f.Name] = struct{}{}
		dirSize += uint64(DirentExtent(len(f.Name)))
	}

	offsets := make([]uint64, len(files))
	end := pageAlign(HeaderSize + dirSize)
	for i, f := range files {
		offsets[i] = end
		end = pageAlign(end + uint64(len(f.Data)))
	}
	if end > uint64(^uint32(0)) {
		return nil, fmt.Errorf("%w: bootfs image of %d bytes", container.ErrTooBig, end)
	}

	image := make([]byte, end)
	writeU32LE(image[0:4], Magic)
	writeU32LE(image[4:8], uint32(dirSize))

	at := uint64(HeaderSize)
	for i, f := range files {
		d := image[at:]
		writeU32LE(d[0:4], uint32(len(f.Name)+1))
		writeU32LE(d[4:8], uint32(len(f.Data)))
		writeU32LE(d[8:12], uint32(offsets[i]))
		copy(d[DirentSize:], f.Name)
		at += uint64(DirentExtent(len(f.Name)))

		copy(image[offsets[i]:], f.Data)
	}
	return image, nil
}

func pageAlign(x uint64) uint64 {
	return (x + PageSize - 1) &^ (PageSize - 1)
}
