package zbi

import (
	"fmt"

	"github.com/forestrie/go-bootverify/container"
)

type (
	View     = container.View[Header, Header]
	Iterator = container.Iterator[Header, Header]
	Item     = container.Item[Header]
)

// Traits implements container.Traits and container.PayloadVerifier for boot
// images.
type Traits struct{}

var (
	_ container.Traits[Header, Header]  = Traits{}
	_ container.PayloadVerifier[Header] = Traits{}
)

// NewView returns a view of the boot image held in storage.
func NewView(storage container.Storage, opts ...container.Option) *View {
	return container.NewView[Header, Header](storage, Traits{}, opts...)
}

func (Traits) ContainerHeaderSize() uint32 { return HeaderSize }
func (Traits) Alignment() uint32           { return Alignment }
func (Traits) ItemHeaderSize() uint32      { return HeaderSize }

func (Traits) DecodeContainerHeader(b []byte) (Header, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return Header{}, err
	}
	if err := CheckContainerHeader(h); err != nil {
		return Header{}, err
	}
	return h, nil
}

func (Traits) ContainerLength(h Header) uint32 { return h.Length }

func (Traits) ItemHeaderExtent(prefix []byte) (uint32, error) { return HeaderSize, nil }

func (Traits) DecodeItemHeader(b []byte) (Header, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return Header{}, err
	}
	if err := CheckItemHeader(h); err != nil {
		return Header{}, err
	}
	return h, nil
}

func (Traits) PayloadLocation(h Header, headerEnd uint32) container.Extent {
	return container.Extent{Offset: headerEnd, Length: h.Length, Embedded: true}
}

func (Traits) VerifyPayload(h Header, header []byte, payload []byte) error {
	if h.Flags&FlagsCRC32 == 0 {
		return nil
	}
	if crc := ItemCRC32(header, payload); crc != h.CRC32 {
		return fmt.Errorf("%w: %s item crc32 is %#08x, header records %#08x",
			container.ErrBadChecksum, TypeName(h.Type), crc, h.CRC32)
	}
	return nil
}
