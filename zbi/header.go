package zbi

import (
	"fmt"
	"hash/crc32"

	"github.com/forestrie/go-bootverify/container"
)

// DecodeHeader decodes the 32 byte header at the start of b without
// validating it.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, have %d", container.ErrBufferTooSmall, HeaderSize, len(b))
	}
	return Header{
		Type:      readU32LE(b[0:4]),
		Length:    readU32LE(b[4:8]),
		Extra:     readU32LE(b[8:12]),
		Flags:     readU32LE(b[12:16]),
		Reserved0: readU32LE(b[16:20]),
		Reserved1: readU32LE(b[20:24]),
		Magic:     readU32LE(b[24:28]),
		CRC32:     readU32LE(b[28:32]),
	}, nil
}

// EncodeHeader writes h into the first 32 bytes of b.
func EncodeHeader(b []byte, h Header) error {
	if len(b) < HeaderSize {
		return fmt.Errorf("%w: header needs %d bytes, have %d", container.ErrBufferTooSmall, HeaderSize, len(b))
	}
	writeU32LE(b[0:4], h.Type)
	writeU32LE(b[4:8], h.Length)
	writeU32LE(b[8:12], h.Extra)
	writeU32LE(b[12:16], h.Flags)
	writeU32LE(b[16:20], h.Reserved0)
	writeU32LE(b[20:24], h.Reserved1)
	writeU32LE(b[24:28], h.Magic)
	writeU32LE(b[28:32], h.CRC32)
	return nil
}

// ContainerHeader returns the header of an empty container holding length
// bytes of items.
func ContainerHeader(length uint32) Header {
	return Header{
		Type:   TypeContainer,
		Length: length,
		Extra:  ContainerMagic,
		Flags:  FlagsVersion,
		Magic:  ItemMagic,
		CRC32:  ItemNoCRC32,
	}
}

// CheckContainerHeader validates the structural fields of a container header.
func CheckContainerHeader(h Header) error {
	switch {
	case h.Type != TypeContainer:
		return fmt.Errorf("%w: container header has type %s", container.ErrBadType, TypeName(h.Type))
	case h.Extra != ContainerMagic:
		return fmt.Errorf("%w: container header has magic %#08x", container.ErrBadMagic, h.Extra)
	case h.Magic != ItemMagic:
		return fmt.Errorf("%w: container header has item magic %#08x", container.ErrBadMagic, h.Magic)
	case h.Flags&FlagsVersion == 0:
		return fmt.Errorf("%w: container header version flag not set", container.ErrBadVersion)
	case h.Flags&FlagsCRC32 == 0 && h.CRC32 != ItemNoCRC32:
		return fmt.Errorf("%w: container header has crc32 %#08x without the checksum flag", container.ErrBadChecksum, h.CRC32)
	case h.Length%Alignment != 0:
		return fmt.Errorf("%w: container length %d is not a multiple of %d", container.ErrMisaligned, h.Length, Alignment)
	}
	return nil
}

// CheckItemHeader validates the structural fields of an item header.
func CheckItemHeader(h Header) error {
	switch {
	case h.Magic != ItemMagic:
		return fmt.Errorf("%w: item header has magic %#08x", container.ErrBadMagic, h.Magic)
	case h.Flags&FlagsVersion == 0:
		return fmt.Errorf("%w: item header version flag not set", container.ErrBadVersion)
	case h.Flags&FlagsCRC32 == 0 && h.CRC32 != ItemNoCRC32:
		return fmt.Errorf("%w: item header has crc32 %#08x without the checksum flag", container.ErrBadChecksum, h.CRC32)
	}
	return nil
}

// ItemCRC32 computes the checksum of an item: the header with its crc32
// field zeroed, followed by the payload.
func ItemCRC32(header, payload []byte) uint32 {
	var hdr [HeaderSize]byte
	copy(hdr[:], header)
	clear(hdr[28:32])
	crc := crc32.ChecksumIEEE(hdr[:])
	return crc32.Update(crc, crc32.IEEETable, payload)
}
