package model

import (
	"time"

	"github.com/google/uuid"
)

// IDGenerator returns a globally unique identifier.
type IDGenerator func() string

// NewID is the default IDGenerator.
func NewID() string {
	return uuid.NewString()
}

type options struct {
	newID IDGenerator
	now   func() time.Time
}

// Option configures how aggregates obtain identifiers and timestamps.
type Option func(*options)

func WithIDGenerator(gen IDGenerator) Option {
	return func(o *options) {
		if gen != nil {
			o.newID = gen
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{newID: NewID, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
