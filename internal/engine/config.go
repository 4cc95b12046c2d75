package engine

import (
	"time"

	"github.com/termfx/fql/internal/codec"
)

// Config is the engine's only configuration surface (spec §9: "the sole
// recognized engine option is { endianness: Big | Little }"), widened with
// the retry/timeout knobs spec §5 and §7 require of a concurrency-aware
// façade.
type Config struct {
	// Endianness governs value encoding; default Big.
	Endianness codec.Endianness

	// Tuples packs/unpacks the flattened directory+tuple key and any
	// nested-tuple values. Required.
	Tuples codec.TupleCodec

	// MaxRetries bounds the number of commit retries on a Temporary driver
	// error. Zero means "try once, never retry."
	MaxRetries int

	// RetryBaseDelay is the base of the exponential backoff between
	// retries.
	RetryBaseDelay time.Duration

	// Timeout, if non-zero, is applied as a deadline to every query that
	// doesn't already carry one from its context.
	Timeout time.Duration
}

// DefaultConfig returns sane defaults: big-endian, three retries, 10ms base
// backoff, no forced timeout.
func DefaultConfig(tc codec.TupleCodec) Config {
	return Config{
		Endianness:     codec.Big,
		Tuples:         tc,
		MaxRetries:     3,
		RetryBaseDelay: 10 * time.Millisecond,
	}
}
