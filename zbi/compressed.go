package zbi

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/forestrie/go-bootverify/container"
)

// Compression selects the codec used for compressed storage items.
type Compression uint8

const (
	CompressionZstd Compression = iota
	CompressionLZ4
)

var (
	zstdFrameMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4FrameMagic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// UncompressedSize returns the size of the item's payload once decompressed.
func UncompressedSize(h Header) uint32 {
	if IsStorage(h.Type) && h.Flags&FlagsStorageCompressed != 0 {
		return h.Extra
	}
	return h.Length
}

// DecompressStorage writes the uncompressed payload of item into dst and
// returns the filled prefix. Items that are not compressed are copied. dst
// must be at least UncompressedSize bytes long; it is never grown.
func DecompressStorage(item Item, dst []byte) ([]byte, error) {
	h := item.Header
	size := UncompressedSize(h)
	if uint64(len(dst)) < uint64(size) {
		return nil, fmt.Errorf("%w: %s payload needs %d bytes, have %d",
			container.ErrBufferTooSmall, TypeName(h.Type), size, len(dst))
	}
	if !IsStorage(h.Type) || h.Flags&FlagsStorageCompressed == 0 {
		return dst[:copy(dst, item.Payload)], nil
	}

	payload := item.Payload
	switch {
	case bytes.HasPrefix(payload, zstdFrameMagic):
		return decompressZstd(payload, dst[:size])
	case bytes.HasPrefix(payload, lz4FrameMagic):
		return decompressLZ4(payload, dst[:size])
	}
	return nil, fmt.Errorf("%w: %s payload starts with % x", ErrUnsupported, TypeName(h.Type), payload[:min(4, len(payload))])
}

func decompressZstd(src, dst []byte) ([]byte, error) {
	// Decoding streams into dst so a frame larger than the header claims
	// never writes past it or grows a buffer of its own.
	dec, err := zstd.NewReader(bytes.NewReader(src), zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", ErrDecompress, err)
	}
	defer dec.Close()

	if _, err := io.ReadFull(dec, dst); err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", ErrDecompress, err)
	}
	var extra [1]byte
	if n, err := dec.Read(extra[:]); n != 0 || !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: zstd payload decodes to more than %d bytes", ErrDecompress, len(dst))
	}
	return dst, nil
}

func decompressLZ4(src, dst []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(src))
	if _, err := io.ReadFull(r, dst); err != nil {
		return nil, fmt.Errorf("%w: lz4: %v", ErrDecompress, err)
	}
	var extra [1]byte
	if n, err := r.Read(extra[:]); n != 0 || !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: lz4 payload decodes to more than %d bytes", ErrDecompress, len(dst))
	}
	return dst, nil
}

// CreateCompressedEntry compresses data and appends it as a storage item of
// type typ, recording the uncompressed size in the extra field.
func CreateCompressedEntry(buf []byte, typ uint32, data []byte, c Compression) error {
	if !IsStorage(typ) {
		return fmt.Errorf("%w: %s items cannot be compressed", container.ErrInvalidArgs, TypeName(typ))
	}
	if uint64(len(data)) > uint64(^uint32(0)) {
		return fmt.Errorf("%w: payload of %d bytes", container.ErrTooBig, len(data))
	}

	var payload []byte
	switch c {
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithZeroFrames(true),
			zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
		if err != nil {
			return err
		}
		payload = enc.EncodeAll(data, nil)
		_ = enc.Close()
	case CompressionLZ4:
		var out bytes.Buffer
		w := lz4.NewWriter(&out)
		if _, err := w.Write(data); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		payload = out.Bytes()
	default:
		return fmt.Errorf("%w: compression %d", ErrUnsupported, c)
	}
	return CreateEntryWithPayload(buf, typ, uint32(len(data)), FlagsStorageCompressed, payload)
}
