package zbi

import (
	"fmt"

	"github.com/forestrie/go-bootverify/container"
)

// Init writes the header of an empty container at the start of buf.
func Init(buf []byte) error {
	if len(buf) < HeaderSize {
		return fmt.Errorf("%w: %d bytes cannot hold a container header", container.ErrTooBig, len(buf))
	}
	return EncodeHeader(buf, ContainerHeader(0))
}

// Contents returns the prefix of buf occupied by the container.
func Contents(buf []byte) ([]byte, error) {
	h, err := usedContainer(buf)
	if err != nil {
		return nil, err
	}
	return buf[:HeaderSize+h.Length], nil
}

// CreateEntry appends an item header for a payload of payloadLen bytes and
// returns the zeroed payload region for the caller to fill.
//
// alignment is the required alignment of the payload within the container.
// Zero means Alignment; larger values must be powers of two and are met by
// inserting a TypeDiscard item ahead of the new one. flags may not include
// FlagsCRC32 because the payload is not yet known; use
// CreateEntryWithPayload for checksummed items.
func CreateEntry(buf []byte, typ, extra, flags, alignment, payloadLen uint32) ([]byte, error) {
	if flags&FlagsCRC32 != 0 {
		return nil, fmt.Errorf("%w: CreateEntry cannot checksum a payload it has not seen", container.ErrInvalidArgs)
	}
	return createEntry(buf, typ, extra, flags, alignment, payloadLen)
}

// CreateEntryWithPayload appends an item holding a copy of payload. When
// flags include FlagsCRC32 the checksum is computed and recorded.
func CreateEntryWithPayload(buf []byte, typ, extra, flags uint32, payload []byte) error {
	if uint64(len(payload)) > uint64(^uint32(0)) {
		return fmt.Errorf("%w: payload of %d bytes", container.ErrTooBig, len(payload))
	}
	dst, err := createEntry(buf, typ, extra, flags, 0, uint32(len(payload)))
	if err != nil {
		return err
	}
	copy(dst, payload)
	if flags&FlagsCRC32 == 0 {
		return nil
	}

	// The header sits directly before the payload region.
	h, _ := usedContainer(buf)
	end := HeaderSize + int(h.Length)
	start := end - int(alignUp(uint64(len(payload)), Alignment)) - HeaderSize
	header := buf[start : start+HeaderSize]
	writeU32LE(header[28:32], ItemCRC32(header, payload))
	return nil
}

// Extend appends every item of the container src to the container in dst.
// src is validated by iterating it before anything is written.
func Extend(dst, src []byte) error {
	dh, err := usedContainer(dst)
	if err != nil {
		return err
	}

	v := NewView(container.Bytes(src))
	sh, err := v.ContainerHeader()
	if err != nil {
		return err
	}
	it := v.Begin()
	for it.Next() {
	}
	if err := v.TakeError(); err != nil {
		return err
	}

	cur := uint64(HeaderSize) + uint64(dh.Length)
	end := cur + uint64(sh.Length)
	if end > uint64(len(dst)) || end-HeaderSize > uint64(^uint32(0)) {
		return fmt.Errorf("%w: extending by %d bytes needs %d bytes of capacity, have %d",
			container.ErrTooBig, sh.Length, end, len(dst))
	}
	copy(dst[cur:end], src[HeaderSize:HeaderSize+uint64(sh.Length)])
	writeU32LE(dst[4:8], uint32(end-HeaderSize))
	return nil
}

func createEntry(buf []byte, typ, extra, flags, alignment, payloadLen uint32) ([]byte, error) {
	h, err := usedContainer(buf)
	if err != nil {
		return nil, err
	}
	if alignment == 0 {
		alignment = Alignment
	}
	if alignment&(alignment-1) != 0 {
		return nil, fmt.Errorf("%w: payload alignment %d is not a power of two", container.ErrInvalidArgs, alignment)
	}

	cur := uint64(HeaderSize) + uint64(h.Length)

	// Pad with a discard item until the new payload lands on the requested
	// boundary. Both cur and the header size are multiples of Alignment, so
	// the pad is too.
	var pad uint64
	if alignment > Alignment {
		a := uint64(alignment)
		if (cur+HeaderSize)%a != 0 {
			pad = (a - (cur+2*HeaderSize)%a) % a
			pad += HeaderSize
		}
	}

	payloadStart := cur + pad + HeaderSize
	end := payloadStart + alignUp(uint64(payloadLen), Alignment)
	if end > uint64(len(buf)) || end-HeaderSize > uint64(^uint32(0)) {
		return nil, fmt.Errorf("%w: %s item of %d bytes needs %d bytes of capacity, have %d",
			container.ErrTooBig, TypeName(typ), payloadLen, end, len(buf))
	}

	if pad != 0 {
		discard := Header{
			Type:   TypeDiscard,
			Length: uint32(pad - HeaderSize),
			Flags:  FlagsVersion,
			Magic:  ItemMagic,
			CRC32:  ItemNoCRC32,
		}
		_ = EncodeHeader(buf[cur:], discard)
		clear(buf[cur+HeaderSize : cur+pad])
	}

	item := Header{
		Type:   typ,
		Length: payloadLen,
		Extra:  extra,
		Flags:  flags | FlagsVersion,
		Magic:  ItemMagic,
		CRC32:  ItemNoCRC32,
	}
	_ = EncodeHeader(buf[cur+pad:], item)
	clear(buf[payloadStart:end])
	writeU32LE(buf[4:8], uint32(end-HeaderSize))

	return buf[payloadStart : payloadStart+uint64(payloadLen) : payloadStart+uint64(payloadLen)], nil
}

// usedContainer validates the container header at the start of buf and
// checks that the items it declares fit in buf.
func usedContainer(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes cannot hold a container header", container.ErrTruncated, len(buf))
	}
	h, _ := DecodeHeader(buf)
	if err := CheckContainerHeader(h); err != nil {
		return Header{}, err
	}
	if uint64(HeaderSize)+uint64(h.Length) > uint64(len(buf)) {
		return Header{}, fmt.Errorf("%w: container declares %d bytes of items in a %d byte buffer",
			container.ErrTruncated, h.Length, len(buf))
	}
	return h, nil
}

func alignUp(x uint64, a uint64) uint64 {
	return (x + a - 1) &^ (a - 1)
}
