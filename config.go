package didl

import (
	"log/slog"

	"github.com/stewi1014/didl/encio"
	"github.com/stewi1014/didl/frame"
)

// Decoding limits used when the Config leaves them zero.
const (
	DefaultMaxDepth     = 1 << 15
	DefaultMaxZeroSized = 1 << 16
)

// Config defines configuration for encoding and decoding.
// The zero value, and a nil *Config, are ready to use.
type Config struct {
	// Logger receives debug records for data the decoder skips;
	// extra values, unknown fields and opt values that don't fit the expected type.
	// If nil, encio.Warnings is used.
	Logger *slog.Logger

	// MaxLength bounds every length and count read from a message.
	// If zero, encio.TooBig is used.
	MaxLength uint64

	// MaxDepth bounds how deeply values may nest while decoding.
	// If zero, DefaultMaxDepth is used.
	MaxDepth int

	// MaxZeroSized bounds the total number of zero-sized vector elements, such as nulls, in one message.
	// Those elements take no bytes, so the message length does not bound them.
	// If zero, DefaultMaxZeroSized is used.
	MaxZeroSized uint64

	// Compression is the frame compression used by Encoder.
	Compression frame.Tag
}

func (c *Config) copyAndFill() *Config {
	config := new(Config)
	if c != nil {
		*config = *c
	}

	if config.Logger == nil {
		config.Logger = encio.Warnings
	}
	if config.MaxLength == 0 {
		config.MaxLength = encio.TooBig
	}
	if config.MaxDepth <= 0 {
		config.MaxDepth = DefaultMaxDepth
	}
	if config.MaxZeroSized == 0 {
		config.MaxZeroSized = DefaultMaxZeroSized
	}

	return config
}

// limit returns the bound for a length whose items take at least one byte each.
func (c *Config) limit(b *encio.Buffer) uint64 {
	if n := uint64(b.Len()); n < c.MaxLength {
		return n
	}
	return c.MaxLength
}
