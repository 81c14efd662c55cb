package bootimage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/forestrie/go-bootverify/bootfs"
	"github.com/forestrie/go-bootverify/container"
	"github.com/forestrie/go-bootverify/zbi"
)

var (
	ErrNoKernel = errors.New("bootimage: first item is not a kernel")
	ErrNoBootfs = errors.New("bootimage: image has no bootfs")
)

// Image is the content of a boot image, sorted by role. Payloads alias the
// storage the image was loaded from when it is memory backed.
type Image struct {
	Kernel   *zbi.Item
	Cmdlines []zbi.Item
	Ramdisks []zbi.Item
	Bootfs   *zbi.Item
	// Other holds items of any other type, discard padding excluded.
	Other []zbi.Item
	// Size is the size of the container, header included.
	Size uint32
}

// Load reads the boot image in storage.
//
// When the image is malformed Load returns the items read before the
// problem alongside the error, so callers can report on what was found. ctx
// is checked between items.
func Load(ctx context.Context, storage container.Storage, opts ...Option) (*Image, error) {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	var viewOpts []container.Option
	if o.checksums {
		viewOpts = append(viewOpts, container.WithPayloadVerification())
	}

	v := zbi.NewView(storage, viewOpts...)
	img := &Image{}
	var errs []error

	it := v.Begin()
	n := 0
	for it.Next() {
		item := it.Item()
		h := item.Header
		o.debugf("item %d at %#x: %s, %d bytes", n, item.Offset, zbi.TypeName(h.Type), h.Length)

		if n == 0 && !zbi.IsKernel(h.Type) {
			errs = append(errs, fmt.Errorf("%w: found %s", ErrNoKernel, zbi.TypeName(h.Type)))
		}
		n++

		switch {
		case zbi.IsKernel(h.Type):
			if img.Kernel == nil {
				img.Kernel = &item
			} else {
				img.Other = append(img.Other, item)
			}
		case h.Type == zbi.TypeCmdline:
			img.Cmdlines = append(img.Cmdlines, item)
		case h.Type == zbi.TypeRamdisk:
			img.Ramdisks = append(img.Ramdisks, item)
		case h.Type == zbi.TypeBootfs:
			if img.Bootfs == nil {
				img.Bootfs = &item
			} else {
				o.infof("ignoring additional bootfs at %#x", item.Offset)
				img.Other = append(img.Other, item)
			}
		case h.Type == zbi.TypeDiscard:
		default:
			img.Other = append(img.Other, item)
		}

		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
	}
	if err := v.TakeError(); err != nil {
		o.infof("boot image is malformed after %d items: %v", n, err)
		errs = append(errs, err)
	}
	if n == 0 && len(errs) == 0 {
		errs = append(errs, fmt.Errorf("%w: image is empty", ErrNoKernel))
	}
	if size, err := v.SizeBytes(); err == nil {
		img.Size = size
	}
	return img, errors.Join(errs...)
}

// Cmdline joins the command line items, in order, with spaces.
func (img *Image) Cmdline() string {
	parts := make([]string, 0, len(img.Cmdlines))
	for _, item := range img.Cmdlines {
		parts = append(parts, string(bytes.TrimRight(item.Payload, "\x00")))
	}
	return strings.Join(parts, " ")
}

// BootfsSize is the size of the bootfs once decompressed.
func (img *Image) BootfsSize() (uint32, error) {
	if img.Bootfs == nil {
		return 0, ErrNoBootfs
	}
	return zbi.UncompressedSize(img.Bootfs.Header), nil
}

// BootfsView decompresses the bootfs into dst, which must hold BootfsSize
// bytes, and returns a view of its directory.
func (img *Image) BootfsView(dst []byte) (*bootfs.View, error) {
	if img.Bootfs == nil {
		return nil, ErrNoBootfs
	}
	data, err := zbi.DecompressStorage(*img.Bootfs, dst)
	if err != nil {
		return nil, err
	}
	return bootfs.NewView(container.Bytes(data)), nil
}

// BootfsFile returns the contents of the named bootfs file. The result
// aliases dst.
func (img *Image) BootfsFile(name string, dst []byte) ([]byte, error) {
	v, err := img.BootfsView(dst)
	if err != nil {
		return nil, err
	}
	item, err := bootfs.Lookup(v, name)
	if err != nil {
		return nil, err
	}
	return item.Payload, nil
}
