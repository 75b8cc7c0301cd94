//go:build !headless

package output

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

// Player is a stereo float32 output on an oto context. It implements
// piano.Sink.
type Player struct {
	ctx       *oto.Context
	player    *oto.Player
	src       atomic.Pointer[sourceBox] // read lock-free by the audio thread
	sampleBuf []float32
	suspended atomic.Bool
	mutex     sync.Mutex // setup and control only
	logger    *slog.Logger
}

type sourceBox struct{ Source }

// Open creates the audio context. Call Attach to start pulling audio.
func Open(sampleRate int, opts ...Option) (*Player, error) {
	cfg := newConfig(opts)
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("open audio output: %w", err)
	}
	<-ready

	p := &Player{ctx: ctx, logger: cfg.logger}
	if cfg.startSuspended {
		if err := ctx.Suspend(); err != nil {
			cfg.logger.Debug("output: initial suspend failed", "err", err)
		} else {
			p.suspended.Store(true)
		}
	}
	return p, nil
}

// Attach starts playing src. Attaching again swaps the source.
func (p *Player) Attach(src Source) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.src.Store(&sourceBox{src})
	if p.player == nil {
		p.sampleBuf = make([]float32, 4096)
		p.player = p.ctx.NewPlayer(p)
		p.player.Play()
	}
}

// Read fills the device buffer from the attached source.
func (p *Player) Read(buf []byte) (int, error) {
	box := p.src.Load()
	numSamples := len(buf) / 4
	numSamples -= numSamples % 2
	if box == nil || numSamples == 0 {
		encodeFloat32LE(buf, nil)
		return len(buf), nil
	}
	if len(p.sampleBuf) < numSamples {
		p.sampleBuf = make([]float32, numSamples)
	}
	samples := p.sampleBuf[:numSamples]
	box.ProcessInto(samples)
	encodeFloat32LE(buf, samples)
	return len(buf), nil
}

// Suspended reports whether the device is paused.
func (p *Player) Suspended() bool {
	return p.suspended.Load()
}

// Resume restarts a paused device.
func (p *Player) Resume() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if err := p.ctx.Resume(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	p.suspended.Store(false)
	return nil
}

// Suspend pauses the device.
func (p *Player) Suspend() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if err := p.ctx.Suspend(); err != nil {
		return err
	}
	p.suspended.Store(true)
	return nil
}

// Close stops playback.
func (p *Player) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.player == nil {
		return nil
	}
	err := p.player.Close()
	p.player = nil
	return err
}
