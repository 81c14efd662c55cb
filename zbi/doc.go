package zbi

/*

# Boot image containers

A boot image is a single container of typed items. The container header and
every item header share one 32 byte little endian layout:

	+--------+--------+--------+--------+
	| type   | length | extra  | flags  |   0..16
	+--------+--------+--------+--------+
	| rsvd0  | rsvd1  | magic  | crc32  |  16..32
	+--------+--------+--------+--------+

For the container header, type is TypeContainer, extra carries
ContainerMagic and length counts the bytes of all items that follow it.
For an item, length is the exact payload size. Payloads follow their header
directly and are zero padded to Alignment, so every item header starts on an
8 byte boundary.

Unless FlagsCRC32 is set, crc32 must hold the ItemNoCRC32 sentinel. When it
is set, crc32 is the IEEE CRC32 of the header (with crc32 zeroed) followed by
the payload. Checksums are only verified when the view is created with
container.WithPayloadVerification.

The flags word keeps the on-disk bit positions: FlagsVersion (0x00010000,
"version present") and FlagsCRC32 (0x00020000, "checksum present") are the
first and second format flags, stored above the 16 low bits that carry
type specific flags such as FlagsStorageCompressed. Every valid header has
FlagsVersion set.

## Reading

NewView returns a container.View specialised for this format:

	v := zbi.NewView(container.Bytes(image))
	it := v.Begin()
	for it.Next() {
		item := it.Item()
		...
	}
	if err := v.TakeError(); err != nil {
		...
	}

## Writing

The write path operates on a caller owned buffer whose length is the
capacity. Nothing is ever reallocated; running out of room is reported as
container.ErrTooBig. Init writes an empty container, CreateEntry and
CreateEntryWithPayload append items, Extend appends every item of another
container and Contents returns the used prefix of the buffer.
*/
