// Package dsp holds the output filters of the engine.
package dsp

import (
	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// ToneQ is the Butterworth quality factor used by NewTone.
const ToneQ = 0.7071067811865476

// Tone is a second-order low-pass that softens bright waveforms.
type Tone struct {
	section *biquad.Section
}

// NewTone designs a low-pass at cutoffHz for sampleRate.
func NewTone(cutoffHz float64, sampleRate int) *Tone {
	c := design.Lowpass(cutoffHz, ToneQ, float64(sampleRate))
	return &Tone{section: biquad.NewSection(c)}
}

// Process filters one sample. Denormal outputs are flushed to zero.
func (t *Tone) Process(x float64) float64 {
	return dspcore.FlushDenormals(t.section.ProcessSample(x))
}

// Reset clears the filter state.
func (t *Tone) Reset() {
	t.section.Reset()
}
