//go:build js && wasm

package main

import (
	"encoding/binary"
	"math"
	"syscall/js"

	"github.com/cwbudde/algo-keys/input"
	"github.com/cwbudde/algo-keys/piano"
	"github.com/cwbudde/algo-keys/preset"
)

var (
	engine *piano.Engine
	coord  *input.Coordinator
	cfg    = preset.Default()
	funcs  []js.Func

	renderSamples []float32
	renderBytes   []byte
)

// audioContextSink reports the page's AudioContext state to the engine.
type audioContextSink struct {
	ctx     js.Value
	pending bool // a resume promise has not settled yet
}

// Suspended reads the context state on every call, so a later suspension by
// the browser is seen. Notes triggered while a resume is in flight start once
// the context runs.
func (s *audioContextSink) Suspended() bool {
	if s.ctx.Get("state").String() == "running" {
		s.pending = false
		return false
	}
	return !s.pending
}

// Resume asks the browser to resume. A second call while the first is still
// pending does nothing.
func (s *audioContextSink) Resume() error {
	if s.pending {
		return nil
	}
	s.pending = true
	var settled js.Func
	settled = js.FuncOf(func(js.Value, []js.Value) any {
		s.pending = false
		settled.Release()
		return nil
	})
	s.ctx.Call("resume").Call("finally", settled)
	return nil
}

func main() {
	api := js.Global().Get("Object").New()

	// init(sampleRate, audioContext?, presetJSON?)
	api.Set("init", export(func(args []js.Value) any {
		sr := 48000
		if len(args) > 0 {
			sr = args[0].Int()
		}
		if len(args) > 2 && args[2].Type() == js.TypeString {
			c, err := preset.Parse([]byte(args[2].String()))
			if err != nil {
				return err.Error()
			}
			cfg = c
		}
		var opts []piano.Option
		if len(args) > 1 && args[1].Truthy() {
			opts = append(opts, piano.WithSink(&audioContextSink{ctx: args[1]}))
		}
		engine = piano.NewEngine(sr, cfg.Params, opts...)
		coord = input.New(engine,
			input.WithKeyMap(cfg.KeyMap),
			input.WithLayout(cfg.LayoutOptions(0, 0)),
		)
		return js.Null()
	}))

	api.Set("layout", export(func(args []js.Value) any {
		if coord == nil {
			return js.Global().Get("Array").New(0)
		}
		if len(args) > 1 {
			coord.Resize(args[0].Int(), args[1].Int())
		}
		ks := coord.Layout().Keys()
		arr := js.Global().Get("Array").New(len(ks))
		for i, k := range ks {
			o := js.Global().Get("Object").New()
			o.Set("note", k.Identity.Note.String())
			o.Set("octave", k.Identity.Octave)
			o.Set("black", k.Black)
			o.Set("active", coord.Active(k.Identity))
			o.Set("x", k.Rect.Min.X)
			o.Set("y", k.Rect.Min.Y)
			o.Set("w", k.Rect.Dx())
			o.Set("h", k.Rect.Dy())
			arr.SetIndex(i, o)
		}
		return arr
	}))

	api.Set("pointerDown", export(withCoord(2, func(args []js.Value) {
		coord.PointerDown(args[0].Float(), args[1].Float())
	})))
	api.Set("pointerMove", export(withCoord(2, func(args []js.Value) {
		coord.PointerMove(args[0].Float(), args[1].Float())
	})))
	api.Set("pointerUp", export(withCoord(0, func([]js.Value) {
		coord.PointerUp()
	})))
	api.Set("touchStart", export(withCoord(3, func(args []js.Value) {
		coord.TouchStart(args[0].Int(), args[1].Float(), args[2].Float())
	})))
	api.Set("touchMove", export(withCoord(3, func(args []js.Value) {
		coord.TouchMove(args[0].Int(), args[1].Float(), args[2].Float())
	})))
	api.Set("touchEnd", export(withCoord(1, func(args []js.Value) {
		coord.TouchEnd(args[0].Int())
	})))
	api.Set("keyDown", export(withCoord(1, func(args []js.Value) {
		repeat := len(args) > 1 && args[1].Bool()
		coord.KeyDown(args[0].String(), repeat)
	})))
	api.Set("keyUp", export(withCoord(1, func(args []js.Value) {
		coord.KeyUp(args[0].String())
	})))

	api.Set("octaveUp", export(func([]js.Value) any {
		return coord != nil && coord.OctaveUp()
	}))
	api.Set("octaveDown", export(func([]js.Value) any {
		return coord != nil && coord.OctaveDown()
	}))
	api.Set("octave", export(func([]js.Value) any {
		if coord == nil {
			return cfg.BaseOctave
		}
		return coord.Octave()
	}))

	api.Set("setVolume", export(func(args []js.Value) any {
		if engine == nil || len(args) < 1 {
			return js.Null()
		}
		engine.SetVolume(args[0].Float())
		return js.Null()
	}))

	api.Set("activeKeys", export(func([]js.Value) any {
		if coord == nil {
			return js.Global().Get("Array").New(0)
		}
		ids := coord.ActiveKeys()
		arr := js.Global().Get("Array").New(len(ids))
		for i, id := range ids {
			arr.SetIndex(i, id.String())
		}
		return arr
	}))

	// render(frames, out?) returns interleaved stereo samples.
	api.Set("render", export(func(args []js.Value) any {
		if engine == nil || len(args) < 1 {
			return js.Global().Get("Float32Array").New(0)
		}
		out := js.Undefined()
		if len(args) > 1 {
			out = args[1]
		}
		return render(engine, args[0].Int(), out)
	}))

	js.Global().Set("AlgoKeys", api)
	println("algo-keys wasm module loaded")
	select {}
}

// render processes frames of e and copies them into out when it is a
// Float32Array large enough, or into a new one. The samples cross into JS
// with a single byte copy.
func render(e *piano.Engine, frames int, out js.Value) js.Value {
	n := max(frames, 0) * 2
	if cap(renderSamples) < n {
		renderSamples = make([]float32, n)
		renderBytes = make([]byte, n*4)
	}
	samples := renderSamples[:n]
	b := renderBytes[:n*4]
	e.ProcessInto(samples)
	for i, v := range samples {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}

	float32Array := js.Global().Get("Float32Array")
	arr := out
	if !out.InstanceOf(float32Array) || out.Length() < n {
		arr = float32Array.New(n)
	}
	view := js.Global().Get("Uint8Array").New(arr.Get("buffer"), arr.Get("byteOffset"), len(b))
	js.CopyBytesToJS(view, b)
	return arr
}

func withCoord(minArgs int, fn func([]js.Value)) func([]js.Value) any {
	return func(args []js.Value) any {
		if coord == nil || len(args) < minArgs {
			return js.Null()
		}
		fn(args)
		return js.Null()
	}
}

func export(fn func([]js.Value) any) js.Func {
	f := js.FuncOf(func(_ js.Value, args []js.Value) any {
		return fn(args)
	})
	funcs = append(funcs, f)
	return f
}
