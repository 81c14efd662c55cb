package zbi

import (
	"errors"
	"fmt"
)

const (
	// HeaderSize is the size of both the container header and item headers.
	HeaderSize = 32

	// Alignment is the alignment of every item header within the container.
	Alignment = 8

	TypeContainer uint32 = 0x544f4f42 // BOOT

	TypeKernelX64   uint32 = 0x4c4e524b // KRNL
	TypeKernelARM64 uint32 = 0x384e524b // KRN8
	TypeCmdline     uint32 = 0x4c444d43 // CMDL
	TypeRamdisk     uint32 = 0x4b534452 // RDSK
	TypeBootfs      uint32 = 0x42534642 // BFSB
	TypeDiscard     uint32 = 0x50494b53 // SKIP

	// kernelPrefix identifies the kernel item types by their low three bytes.
	kernelPrefix uint32 = 0x004e524b
	kernelMask   uint32 = 0x00ffffff

	// ContainerMagic is carried in the extra field of the container header.
	ContainerMagic uint32 = 0x868cf7e6
	ItemMagic      uint32 = 0xb5781729

	// ItemNoCRC32 is the crc32 field value of headers without a checksum.
	ItemNoCRC32 uint32 = 0x4a87e8d6

	FlagsVersion uint32 = 0x00010000
	FlagsCRC32   uint32 = 0x00020000

	// FlagsStorageCompressed marks a storage item whose payload is
	// compressed. The extra field then holds the uncompressed size.
	FlagsStorageCompressed uint32 = 0x00000001
)

var (
	ErrDecompress  = errors.New("zbi: payload decompression failed")
	ErrUnsupported = errors.New("zbi: unsupported compression format")
)

// Header is the decoded form of both container and item headers.
type Header struct {
	Type      uint32
	Length    uint32
	Extra     uint32
	Flags     uint32
	Reserved0 uint32
	Reserved1 uint32
	Magic     uint32
	CRC32     uint32
}

// IsKernel reports whether t is one of the architecture specific kernel item
// types.
func IsKernel(t uint32) bool {
	return t&kernelMask == kernelPrefix
}

// IsStorage reports whether items of type t may carry compressed payloads.
func IsStorage(t uint32) bool {
	return t == TypeRamdisk || t == TypeBootfs
}

var typeNames = map[uint32]string{
	TypeContainer:   "CONTAINER",
	TypeKernelX64:   "KERNEL_X64",
	TypeKernelARM64: "KERNEL_ARM64",
	TypeCmdline:     "CMDLINE",
	TypeRamdisk:     "RAMDISK",
	TypeBootfs:      "BOOTFS",
	TypeDiscard:     "DISCARD",
}

// TypeName returns a human readable name for an item type. Unknown types are
// shown as their four character code when printable, and in hex otherwise.
func TypeName(t uint32) string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	var fourcc [4]byte
	writeU32LE(fourcc[:], t)
	for _, c := range fourcc {
		if c < 0x20 || c > 0x7e {
			return fmt.Sprintf("%#x", t)
		}
	}
	return fmt.Sprintf("%q", fourcc[:])
}
