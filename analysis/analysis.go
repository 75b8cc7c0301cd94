package analysis

import (
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

// Report summarizes a rendered take.
type Report struct {
	SampleRate  int     `json:"sample_rate"`
	Frames      int     `json:"frames"`
	PeakAbs     float64 `json:"peak_abs"`
	PeakDBFS    float64 `json:"peak_dbfs"`
	RMS         float64 `json:"rms"`
	DominantHz  float64 `json:"dominant_hz"`
	MaxStep     float64 `json:"max_step"`
	DecayDBPerS float64 `json:"decay_db_per_s"`
	// SoundingFrames counts frames whose 10 ms RMS is above -80 dBFS.
	SoundingFrames int `json:"sounding_frames"`
}

const (
	minFFTSize = 256
	maxFFTSize = 1 << 16
	silenceDB  = -80.0
)

// Analyze measures a mono signal.
func Analyze(samples []float64, sampleRate int) Report {
	r := Report{
		SampleRate: sampleRate,
		Frames:     len(samples),
		PeakAbs:    PeakAbs(samples),
		RMS:        RMS(samples),
		MaxStep:    MaxStep(samples),
	}
	r.PeakDBFS = linToDB(r.PeakAbs)
	if sampleRate <= 0 {
		r.DecayDBPerS = math.NaN()
		return r
	}
	r.DominantHz = DominantFrequency(samples, sampleRate)

	frame := sampleRate / 100
	env := RMSEnvelope(samples, frame, frame)
	for _, v := range env {
		if linToDB(v) > silenceDB {
			r.SoundingFrames += frame
		}
	}
	r.DecayDBPerS = DecaySlopeDBPerS(env, float64(frame)/float64(sampleRate))
	return r
}

// DominantFrequency returns the frequency of the strongest spectral peak,
// refined by parabolic interpolation. It returns 0 for signals too short to
// analyze or without energy.
func DominantFrequency(samples []float64, sampleRate int) float64 {
	n := maxFFTSize
	for n > len(samples) {
		n >>= 1
	}
	if n < minFFTSize || sampleRate <= 0 {
		return 0
	}
	plan, err := algofft.NewPlanReal64(n)
	if err != nil {
		return 0
	}

	// Analyze the last n samples, past any attack transient.
	seg := samples[len(samples)-n:]
	buf := make([]float64, n)
	for i := range buf {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		buf[i] = seg[i] * w
	}
	spec := make([]complex128, n/2+1)
	plan.Forward(spec, buf)

	best := 0
	bestMag := 0.0
	for k := 1; k < n/2; k++ {
		if m := cmplx.Abs(spec[k]); m > bestMag {
			bestMag = m
			best = k
		}
	}
	if best == 0 || bestMag <= 1e-12 {
		return 0
	}

	a := linToDB(cmplx.Abs(spec[best-1]))
	b := linToDB(bestMag)
	c := linToDB(cmplx.Abs(spec[best+1]))
	delta := 0.0
	if den := a - 2*b + c; math.Abs(den) > 1e-12 {
		delta = 0.5 * (a - c) / den
	}
	if delta > 0.5 || delta < -0.5 {
		delta = 0
	}
	return (float64(best) + delta) * float64(sampleRate) / float64(n)
}

// MaxStep returns the largest absolute difference between adjacent samples.
// Hard starts and stops of a source show up as large steps.
func MaxStep(samples []float64) float64 {
	var max float64
	for i := 1; i < len(samples); i++ {
		if d := math.Abs(samples[i] - samples[i-1]); d > max {
			max = d
		}
	}
	return max
}

// PeakAbs returns the largest absolute sample value.
func PeakAbs(samples []float64) float64 {
	var peak float64
	for _, v := range samples {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}

// RMS returns the root mean square of samples.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// RMSEnvelope returns RMS values of frame-sized windows spaced hop apart.
func RMSEnvelope(samples []float64, frame int, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(samples) < frame {
		return nil
	}
	n := 1 + (len(samples)-frame)/hop
	out := make([]float64, n)
	for i := range out {
		start := i * hop
		out[i] = RMS(samples[start : start+frame])
	}
	return out
}

// DecaySlopeDBPerS fits a line to the envelope in dB from its peak until it
// drops 60 dB (or ends). The result is NaN when there is too little decay to
// fit.
func DecaySlopeDBPerS(env []float64, hopSec float64) float64 {
	if len(env) < 8 || hopSec <= 0 {
		return math.NaN()
	}
	peak := math.Inf(-1)
	peakIdx := 0
	for i, v := range env {
		if db := linToDB(v); db > peak {
			peak = db
			peakIdx = i
		}
	}
	start := peakIdx + 1
	end := len(env)
	for i := start; i < len(env); i++ {
		if linToDB(env[i]) < peak-60 {
			end = i
			break
		}
	}
	if end-start < 6 {
		return math.NaN()
	}

	var sx, sy, sxx, sxy float64
	n := float64(end - start)
	for i := start; i < end; i++ {
		x := float64(i-start) * hopSec
		y := linToDB(env[i])
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	den := n*sxx - sx*sx
	if math.Abs(den) < 1e-12 {
		return math.NaN()
	}
	return (n*sxy - sx*sy) / den
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20 * math.Log10(x)
}
