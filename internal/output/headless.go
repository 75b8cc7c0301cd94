//go:build headless

package output

import "log/slog"

// Player is an output with no device behind it. It stays suspended, so an
// engine using it is silent and ignores input.
type Player struct {
	logger *slog.Logger
}

// Open returns a device-less player.
func Open(sampleRate int, opts ...Option) (*Player, error) {
	cfg := newConfig(opts)
	cfg.logger.Debug("output: headless build, audio disabled", "sample_rate", sampleRate)
	return &Player{logger: cfg.logger}, nil
}

// Attach does nothing.
func (p *Player) Attach(src Source) {}

// Read returns silence.
func (p *Player) Read(buf []byte) (int, error) {
	encodeFloat32LE(buf, nil)
	return len(buf), nil
}

// Suspended is always true.
func (p *Player) Suspended() bool { return true }

// Resume always fails.
func (p *Player) Resume() error { return ErrUnavailable }

// Suspend does nothing.
func (p *Player) Suspend() error { return nil }

// Close does nothing.
func (p *Player) Close() error { return nil }
