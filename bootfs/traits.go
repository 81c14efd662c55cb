package bootfs

import (
	"bytes"
	"fmt"

	"github.com/forestrie/go-bootverify/container"
)

type (
	View = container.View[Header, Dirent]
	Item = container.Item[Dirent]
)

// Traits implements container.Traits for bootfs directories. File data is
// stored outside the directory, so payloads are checked against the storage
// rather than the directory length.
type Traits struct{}

var _ container.Traits[Header, Dirent] = Traits{}

func NewView(storage container.Storage, opts ...container.Option) *View {
	return container.NewView[Header, Dirent](storage, Traits{}, opts...)
}

func (Traits) ContainerHeaderSize() uint32 { return HeaderSize }
func (Traits) Alignment() uint32           { return DirentAlignment }
func (Traits) ItemHeaderSize() uint32      { return DirentSize }

func (Traits) DecodeContainerHeader(b []byte) (Header, error) {
	if magic := readU32LE(b[0:4]); magic != Magic {
		return Header{}, fmt.Errorf("%w: bootfs header magic %#08x", container.ErrBadMagic, magic)
	}
	h := Header{DirSize: readU32LE(b[4:8])}
	if h.DirSize%DirentAlignment != 0 {
		return Header{}, fmt.Errorf("%w: directory size %d is not a multiple of %d",
			container.ErrMisaligned, h.DirSize, DirentAlignment)
	}
	return h, nil
}

func (Traits) ContainerLength(h Header) uint32 { return h.DirSize }

func (Traits) ItemHeaderExtent(prefix []byte) (uint32, error) {
	n := readU32LE(prefix[0:4])
	if n == 0 || n > MaxNameLen {
		return 0, fmt.Errorf("%w: dirent name length %d outside [1, %d]", container.ErrBadType, n, MaxNameLen)
	}
	return DirentExtent(int(n) - 1), nil
}

func (Traits) DecodeItemHeader(b []byte) (Dirent, error) {
	n := readU32LE(b[0:4])
	name := b[DirentSize : DirentSize+n]
	if name[n-1] != 0 {
		return Dirent{}, fmt.Errorf("%w: dirent name is not NUL terminated", container.ErrBadType)
	}
	if bytes.IndexByte(name, 0) != int(n)-1 {
		return Dirent{}, fmt.Errorf("%w: dirent name has an embedded NUL", container.ErrBadType)
	}
	d := Dirent{
		Name:    string(name[:n-1]),
		DataLen: readU32LE(b[4:8]),
		DataOff: readU32LE(b[8:12]),
	}
	if d.DataOff%PageSize != 0 {
		return Dirent{}, fmt.Errorf("%w: %q data offset %#x is not page aligned", container.ErrMisaligned, d.Name, d.DataOff)
	}
	return d, nil
}

func (Traits) PayloadLocation(d Dirent, headerEnd uint32) container.Extent {
	return container.Extent{Offset: d.DataOff, Length: d.DataLen}
}

// Lookup returns the directory entry and contents of the file called name.
func Lookup(v *View, name string) (Item, error) {
	item, ok, err := v.Find(func(item Item) bool { return item.Header.Name == name })
	if err != nil {
		return Item{}, err
	}
	if !ok {
		return Item{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return item, nil
}
