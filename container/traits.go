package container

// Extent locates a payload in the storage.
//
// Embedded payloads live inside the container, directly after their item
// header, and are followed by padding up to the container alignment. External
// payloads live anywhere in the storage and are referenced by offset.
type Extent struct {
	Offset   uint32
	Length   uint32
	Embedded bool
}

// Traits describes one concrete container format. C is the decoded container
// header and I the decoded item header.
//
// Decode functions validate the structure of what they decode and report
// failures by returning (possibly wrapped) package sentinel errors, such as
// ErrBadMagic or ErrBadVersion.
type Traits[C any, I any] interface {
	// ContainerHeaderSize is the fixed size of the container header at offset 0.
	ContainerHeaderSize() uint32

	// Alignment is the power of two boundary for item headers and embedded
	// payload padding.
	Alignment() uint32

	DecodeContainerHeader(b []byte) (C, error)

	// ContainerLength is the declared length of all items, excluding the
	// container header.
	ContainerLength(hdr C) uint32

	// ItemHeaderSize is the fixed prefix of an item header needed to work out
	// the full header extent.
	ItemHeaderSize() uint32

	// ItemHeaderExtent returns the unaligned size of the full item header,
	// which is at least ItemHeaderSize. Formats with fixed size headers return
	// ItemHeaderSize.
	ItemHeaderExtent(prefix []byte) (uint32, error)

	// DecodeItemHeader decodes the full item header of ItemHeaderExtent bytes.
	DecodeItemHeader(b []byte) (I, error)

	// PayloadLocation returns the payload extent of an item whose header ends
	// at headerEnd.
	PayloadLocation(hdr I, headerEnd uint32) Extent
}

// PayloadVerifier is implemented by Traits whose items carry integrity checks
// over their header and payload. It is only consulted when a View is created
// with WithPayloadVerification.
type PayloadVerifier[I any] interface {
	VerifyPayload(hdr I, header []byte, payload []byte) error
}

// Item is one (header, payload) pair. HeaderBytes and Payload are views into
// the storage; for in-memory storage they alias the caller's buffer.
type Item[I any] struct {
	Header        I
	HeaderBytes   []byte
	Offset        uint32
	Payload       []byte
	PayloadOffset uint32
}

func alignUp(x uint64, alignment uint32) uint64 {
	a := uint64(alignment)
	return (x + a - 1) &^ (a - 1)
}

func isPowerOfTwo(x uint32) bool {
	return x != 0 && x&(x-1) == 0
}
