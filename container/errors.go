package container

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgs    = errors.New("container: invalid arguments")
	ErrBufferTooSmall = errors.New("container: buffer too small")
	ErrBadMagic       = errors.New("container: bad magic")
	ErrBadVersion     = errors.New("container: bad version")
	ErrBadType        = errors.New("container: bad type")
	ErrBadChecksum    = errors.New("container: bad checksum")
	ErrMisaligned     = errors.New("container: misaligned")
	ErrTruncated      = errors.New("container: truncated")
	ErrTooBig         = errors.New("container: capacity exceeded")
	ErrBadState       = errors.New("container: operation out of protocol order")
	ErrStorage        = errors.New("container: storage error")
)

// Error describes a validation failure at a specific position in the
// container. Err is one of the package sentinels (possibly wrapped by a
// format package), ItemOffset is the offset of the container header or of the
// item header being examined, and StorageErr is set when the storage itself
// failed to produce the bytes.
type Error struct {
	Err        error
	Reason     string
	ItemOffset uint32
	StorageErr error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s at offset %#x", e.Reason, e.ItemOffset)
	if e.StorageErr != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.StorageErr)
	}
	return msg
}

// Unwrap exposes both the error kind and any storage error to errors.Is/As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.StorageErr != nil {
		errs = append(errs, e.StorageErr)
	}
	return errs
}

func newError(err error, offset uint32, reason string) *Error {
	return &Error{Err: err, Reason: reason, ItemOffset: offset}
}

// fromTraits wraps an error returned by a Traits decode function.
func fromTraits(err error, offset uint32) *Error {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr
	}
	return &Error{Err: err, Reason: err.Error(), ItemOffset: offset}
}

func storageError(err error, offset uint32, reason string) *Error {
	return &Error{Err: ErrStorage, Reason: reason, ItemOffset: offset, StorageErr: err}
}
