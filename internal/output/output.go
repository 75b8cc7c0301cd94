// Package output plays an engine through the platform audio device.
package output

import (
	"encoding/binary"
	"errors"
	"log/slog"
	"math"
)

// ErrUnavailable is returned by Resume when no audio device can be used.
var ErrUnavailable = errors.New("audio output unavailable")

// Source renders interleaved stereo float32 frames. *piano.Engine
// implements it.
type Source interface {
	ProcessInto(out []float32)
}

// Option configures a Player.
type Option func(*config)

type config struct {
	startSuspended bool
	logger         *slog.Logger
}

// StartSuspended keeps the device paused until the first Resume, the way a
// browser holds audio back until a user gesture.
func StartSuspended() Option {
	return func(c *config) { c.startSuspended = true }
}

// WithLogger sets the logger used for device messages.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func newConfig(opts []Option) config {
	c := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// encodeFloat32LE writes samples into p as little-endian float32 and zeroes
// any trailing bytes.
func encodeFloat32LE(p []byte, samples []float32) {
	n := len(p) / 4
	if len(samples) < n {
		n = len(samples)
	}
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(samples[i]))
	}
	for i := n * 4; i < len(p); i++ {
		p[i] = 0
	}
}
