package analysis

import (
	"math"
	"testing"
)

func sine(hz float64, sampleRate, n int, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*hz*float64(i)/float64(sampleRate))
	}
	return out
}

func TestDominantFrequencySine(t *testing.T) {
	for _, hz := range []float64{110, 261.63, 440, 1318.51} {
		got := DominantFrequency(sine(hz, 48000, 16384, 0.5), 48000)
		if math.Abs(got-hz) > 1 {
			t.Fatalf("expected dominant frequency: got=%.2f want=%.2f", got, hz)
		}
	}
}

func TestDominantFrequencyDegenerate(t *testing.T) {
	if got := DominantFrequency(make([]float64, 100), 48000); got != 0 {
		t.Fatalf("expected 0 for short input, got %f", got)
	}
	if got := DominantFrequency(make([]float64, 4096), 48000); got != 0 {
		t.Fatalf("expected 0 for silence, got %f", got)
	}
	if got := DominantFrequency(sine(440, 48000, 4096, 1), 0); got != 0 {
		t.Fatalf("expected 0 for invalid rate, got %f", got)
	}
}

func TestLevelsAndSteps(t *testing.T) {
	x := []float64{0, 0.5, -0.5, 0.25}
	if got := PeakAbs(x); got != 0.5 {
		t.Fatalf("expected peak 0.5, got %f", got)
	}
	if got := MaxStep(x); got != 1 {
		t.Fatalf("expected max step 1, got %f", got)
	}
	s := sine(440, 48000, 48000, 1)
	if got := RMS(s); math.Abs(got-1/math.Sqrt2) > 1e-3 {
		t.Fatalf("expected sine rms 0.707, got %f", got)
	}
	if RMS(nil) != 0 || MaxStep(nil) != 0 {
		t.Fatalf("expected zero for empty input")
	}
}

func TestRMSEnvelopeShape(t *testing.T) {
	env := RMSEnvelope(make([]float64, 1000), 100, 50)
	if len(env) != 19 {
		t.Fatalf("expected 19 frames, got %d", len(env))
	}
	if RMSEnvelope(make([]float64, 10), 100, 50) != nil {
		t.Fatalf("expected nil envelope for short input")
	}
}

func TestDecaySlopeOfExponentialFade(t *testing.T) {
	// 1 s time constant fade: -8.686 dB/s.
	const rate = 8000
	x := make([]float64, rate*3)
	for i := range x {
		x[i] = math.Exp(-float64(i)/rate) * math.Sin(2*math.Pi*200*float64(i)/rate)
	}
	env := RMSEnvelope(x, rate/100, rate/100)
	got := DecaySlopeDBPerS(env, 0.01)
	if math.Abs(got+8.686) > 0.5 {
		t.Fatalf("expected decay slope ~-8.7 dB/s, got %f", got)
	}
	if !math.IsNaN(DecaySlopeDBPerS(env[:4], 0.01)) {
		t.Fatalf("expected NaN for short envelope")
	}
}

func TestAnalyzeReport(t *testing.T) {
	r := Analyze(sine(440, 48000, 24000, 0.25), 48000)
	if r.Frames != 24000 || r.SampleRate != 48000 {
		t.Fatalf("unexpected report header %+v", r)
	}
	if math.Abs(r.DominantHz-440) > 1 {
		t.Fatalf("expected 440 Hz, got %f", r.DominantHz)
	}
	if math.Abs(r.PeakAbs-0.25) > 1e-3 || r.SoundingFrames != 24000 {
		t.Fatalf("unexpected levels %+v", r)
	}
}
