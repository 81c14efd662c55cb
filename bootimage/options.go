package bootimage

import (
	"github.com/datatrails/go-datatrails-common/logger"
)

type Options struct {
	log       logger.Logger
	checksums bool
}

type Option func(*Options)

// WithLogger reports each item and any recovery from a malformed image.
func WithLogger(log logger.Logger) Option {
	return func(o *Options) {
		o.log = log
	}
}

// WithChecksums verifies the CRC32 of items that carry one.
func WithChecksums() Option {
	return func(o *Options) {
		o.checksums = true
	}
}

func (o *Options) debugf(format string, args ...any) {
	if o.log != nil {
		o.log.Debugf(format, args...)
	}
}

func (o *Options) infof(format string, args ...any) {
	if o.log != nil {
		o.log.Infof(format, args...)
	}
}
