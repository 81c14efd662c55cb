package container

import (
	"fmt"
	"iter"
)

type iterState uint8

const (
	stateIdle iterState = iota
	statePending
)

type Options struct {
	verifyPayloads bool
}

type Option func(*Options)

// WithPayloadVerification enables the format's payload integrity checks (for
// example CRC32 on boot image items), when the Traits implement
// PayloadVerifier.
func WithPayloadVerification() Option {
	return func(opts *Options) {
		opts.verifyPayloads = true
	}
}

// View is a read-only view of a container held in a Storage.
//
// A View is not safe for concurrent use. Each Begin must be balanced by one
// TakeError before the next Begin.
type View[C any, I any] struct {
	storage Storage
	traits  Traits[C, I]
	opts    Options

	state iterState
	gen   uint64
	err   error

	limit      uint32
	capacity   uint32
	limitValid bool
}

func NewView[C any, I any](storage Storage, traits Traits[C, I], opts ...Option) *View[C, I] {
	v := &View[C, I]{
		storage: storage,
		traits:  traits,
	}
	for _, o := range opts {
		o(&v.opts)
	}
	return v
}

func (v *View[C, I]) Storage() Storage { return v.storage }

func (v *View[C, I]) Traits() Traits[C, I] { return v.traits }

// ContainerHeader reads and validates the container header. It fails with
// ErrTruncated if the declared length does not fit the storage.
func (v *View[C, I]) ContainerHeader() (C, error) {
	hdr, _, _, err := v.containerHeader()
	return hdr, err
}

func (v *View[C, I]) containerHeader() (hdr C, limit uint32, capacity uint32, err error) {
	var zero C

	hsize := v.traits.ContainerHeaderSize()
	capacity, serr := v.storage.Size()
	if serr != nil {
		return zero, 0, 0, storageError(serr, 0, "cannot determine storage size")
	}
	if capacity < hsize {
		return zero, 0, 0, newError(ErrTruncated, 0, fmt.Sprintf(
			"storage of %d bytes too small for a %d byte container header", capacity, hsize))
	}
	b, serr := v.storage.Read(0, hsize)
	if serr != nil {
		return zero, 0, 0, storageError(serr, 0, "cannot read container header")
	}
	hdr, err = v.traits.DecodeContainerHeader(b)
	if err != nil {
		return zero, 0, 0, fromTraits(err, 0)
	}
	declared := uint64(v.traits.ContainerLength(hdr))
	end := uint64(hsize) + declared
	if end > uint64(capacity) {
		return zero, 0, 0, newError(ErrTruncated, 0, fmt.Sprintf(
			"container header declares %d bytes of items but storage holds only %d bytes after the header",
			declared, capacity-hsize))
	}
	return hdr, uint32(end), capacity, nil
}

// SizeBytes returns the total encoded size of the container, header
// included. Once iteration has begun it returns the cached limit without
// touching the storage.
func (v *View[C, I]) SizeBytes() (uint32, error) {
	if v.limitValid {
		return v.limit, nil
	}
	_, limit, _, err := v.containerHeader()
	if err != nil {
		return 0, err
	}
	return limit, nil
}

// Begin starts an iteration from the first item. The result of the
// iteration, success or the error that stopped it, must be collected with
// TakeError before Begin is called again.
func (v *View[C, I]) Begin() *Iterator[C, I] {
	if v.state == statePending {
		panic("container: Begin called before TakeError collected the previous iteration")
	}
	v.state = statePending
	v.err = nil
	v.gen++

	it := &Iterator[C, I]{view: v, gen: v.gen}

	if !isPowerOfTwo(v.traits.Alignment()) {
		v.err = newError(ErrInvalidArgs, 0, fmt.Sprintf("alignment %d is not a power of two", v.traits.Alignment()))
		it.done = true
		return it
	}

	_, limit, capacity, err := v.containerHeader()
	if err != nil {
		v.err = err
		it.done = true
		return it
	}
	v.limit, v.capacity, v.limitValid = limit, capacity, true
	it.offset = v.traits.ContainerHeaderSize()
	return it
}

// TakeError returns and clears the result of the current iteration. It
// returns an ErrBadState error when there is no iteration to collect.
func (v *View[C, I]) TakeError() error {
	if v.state != statePending {
		return newError(ErrBadState, 0, "TakeError called without a pending iteration")
	}
	v.state = stateIdle
	err := v.err
	v.err = nil
	return err
}

// Close reports an iteration whose error was never collected. It does not
// release the storage, which remains owned by the caller.
func (v *View[C, I]) Close() error {
	if v.state == statePending {
		v.state = stateIdle
		v.err = nil
		return newError(ErrBadState, 0, "iteration result was never collected with TakeError")
	}
	return nil
}

// Items iterates the container, yielding each valid item with a nil error.
// If iteration stops early the final element carries the error and a zero
// Item. The iteration result is collected on the caller's behalf.
func (v *View[C, I]) Items() iter.Seq2[Item[I], error] {
	return func(yield func(Item[I], error) bool) {
		it := v.Begin()
		for it.Next() {
			if !yield(it.Item(), nil) {
				_ = v.TakeError()
				return
			}
		}
		if err := v.TakeError(); err != nil {
			yield(Item[I]{}, err)
		}
	}
}

// Find returns the first item for which match returns true. ok is false if
// no item matched, in which case err reports any problem that stopped the
// search early.
func (v *View[C, I]) Find(match func(Item[I]) bool) (item Item[I], ok bool, err error) {
	for item, err := range v.Items() {
		if err != nil {
			return Item[I]{}, false, err
		}
		if match(item) {
			return item, true, nil
		}
	}
	return Item[I]{}, false, nil
}

// Iterator yields the items of a container in storage order. It is
// invalidated by the next Begin on its View.
type Iterator[C any, I any] struct {
	view   *View[C, I]
	gen    uint64
	offset uint32
	item   Item[I]
	done   bool
}

// Next advances to the next item. It returns false exactly once the end of
// the container is reached or a structural error was recorded; the two cases
// are told apart by the View's TakeError.
func (it *Iterator[C, I]) Next() bool {
	v := it.view
	if it.done || it.gen != v.gen || v.state != statePending || v.err != nil {
		it.done = true
		it.item = Item[I]{}
		return false
	}
	ok, err := it.advance()
	if err != nil {
		v.err = err
	}
	if !ok {
		it.done = true
		it.item = Item[I]{}
	}
	return ok
}

// Item returns the current item. It is only meaningful after Next returned
// true.
func (it *Iterator[C, I]) Item() Item[I] {
	return it.item
}

// Offset is the offset of the next item header to be read.
func (it *Iterator[C, I]) Offset() uint32 {
	return it.offset
}

func (it *Iterator[C, I]) advance() (bool, error) {
	v := it.view
	t := v.traits
	offset := it.offset
	limit := v.limit
	align := t.Alignment()

	if offset == limit {
		return false, nil
	}
	if offset%align != 0 {
		return false, newError(ErrMisaligned, offset, fmt.Sprintf("item header is not aligned to %d bytes", align))
	}

	hsize := t.ItemHeaderSize()
	if uint64(offset)+uint64(hsize) > uint64(limit) {
		return false, newError(ErrTruncated, offset, fmt.Sprintf(
			"container too short for next item header: %d bytes left, need %d", limit-offset, hsize))
	}
	prefix, err := v.storage.Read(offset, hsize)
	if err != nil {
		return false, storageError(err, offset, "cannot read item header")
	}
	extent, err := t.ItemHeaderExtent(prefix)
	if err != nil {
		return false, fromTraits(err, offset)
	}
	if extent < hsize {
		return false, newError(ErrBadType, offset, fmt.Sprintf(
			"item header extent %d is smaller than the fixed header size %d", extent, hsize))
	}
	headerEnd := uint64(offset) + uint64(extent)
	if headerEnd > uint64(limit) {
		return false, newError(ErrTruncated, offset, fmt.Sprintf(
			"item header of %d bytes extends past the container end", extent))
	}
	header := prefix
	if extent > hsize {
		if header, err = v.storage.Read(offset, extent); err != nil {
			return false, storageError(err, offset, "cannot read item header")
		}
	}

	hdr, err := t.DecodeItemHeader(header)
	if err != nil {
		return false, fromTraits(err, offset)
	}

	loc := t.PayloadLocation(hdr, uint32(headerEnd))
	payloadEnd := uint64(loc.Offset) + uint64(loc.Length)

	var next uint64
	if loc.Embedded {
		next = alignUp(payloadEnd, align)
		if next > uint64(limit) {
			return false, newError(ErrTruncated, offset, fmt.Sprintf(
				"item payload of %d bytes extends past the container end", loc.Length))
		}
	} else {
		next = alignUp(headerEnd, align)
		if next > uint64(limit) {
			return false, newError(ErrTruncated, offset, "item header padding extends past the container end")
		}
		if payloadEnd > uint64(v.capacity) {
			return false, newError(ErrTruncated, offset, fmt.Sprintf(
				"item payload [%d, %d) extends past the storage end %d", loc.Offset, payloadEnd, v.capacity))
		}
	}

	payload, err := v.storage.Read(loc.Offset, loc.Length)
	if err != nil {
		return false, storageError(err, offset, "cannot read item payload")
	}

	if v.opts.verifyPayloads {
		if pv, ok := t.(PayloadVerifier[I]); ok {
			if err := pv.VerifyPayload(hdr, header, payload); err != nil {
				return false, fromTraits(err, offset)
			}
		}
	}

	it.item = Item[I]{
		Header:        hdr,
		HeaderBytes:   header,
		Offset:        offset,
		Payload:       payload,
		PayloadOffset: loc.Offset,
	}
	it.offset = uint32(next)
	return true, nil
}
