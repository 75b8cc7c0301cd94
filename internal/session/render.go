package session

import (
	"math"

	"github.com/cwbudde/algo-keys/input"
)

// Engine is the audio side of a session. *piano.Engine implements it.
type Engine interface {
	SampleRate() int
	SetVolume(level float64)
	ProcessInto(out []float32)
}

const blockFrames = 256

// Apply feeds one event to the coordinator or engine.
func Apply(c *input.Coordinator, e Engine, ev Event) {
	switch ev.Action {
	case KeyDown:
		c.KeyDown(ev.Key, false)
	case KeyRepeat:
		c.KeyDown(ev.Key, true)
	case KeyUp:
		c.KeyUp(ev.Key)
	case PointerDown:
		c.PointerDown(ev.X, ev.Y)
	case PointerMove:
		c.PointerMove(ev.X, ev.Y)
	case PointerUp:
		c.PointerUp()
	case TouchStart:
		c.TouchStart(ev.Touch, ev.X, ev.Y)
	case TouchMove:
		c.TouchMove(ev.Touch, ev.X, ev.Y)
	case TouchEnd:
		c.TouchEnd(ev.Touch)
	case TouchCancel:
		c.TouchCancel(ev.Touch)
	case OctaveUp:
		c.OctaveUp()
	case OctaveDown:
		c.OctaveDown()
	case SetOctave:
		c.SetOctave(int(ev.Value))
	case Volume:
		e.SetVolume(ev.Value)
	}
}

// Render plays events in time order and returns the interleaved stereo take,
// followed by tail seconds of audio after the last event.
func Render(c *input.Coordinator, e Engine, events []Event, tail float64) []float32 {
	rate := e.SampleRate()
	var out []float32
	frame := 0
	renderTo := func(target int) {
		for frame < target {
			n := target - frame
			if n > blockFrames {
				n = blockFrames
			}
			start := len(out)
			out = append(out, make([]float32, n*2)...)
			e.ProcessInto(out[start:])
			frame += n
		}
	}

	for _, ev := range events {
		renderTo(int(math.Round(ev.At * float64(rate))))
		Apply(c, e, ev)
	}
	if tail < 0 {
		tail = 0
	}
	renderTo(frame + int(math.Ceil(tail*float64(rate))))
	return out
}

// Duration returns the length of a take in seconds.
func Duration(events []Event, tail float64) float64 {
	if len(events) == 0 {
		return math.Max(tail, 0)
	}
	return events[len(events)-1].At + math.Max(tail, 0)
}
