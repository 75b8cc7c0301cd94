package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cwbudde/algo-keys/analysis"
	"github.com/cwbudde/algo-keys/input"
	"github.com/cwbudde/algo-keys/internal/session"
	"github.com/cwbudde/algo-keys/internal/wavio"
	"github.com/cwbudde/algo-keys/keys"
	"github.com/cwbudde/algo-keys/piano"
	"github.com/cwbudde/algo-keys/preset"
)

func main() {
	// Command-line flags
	scriptPath := flag.String("script", "", "Input script to replay (\"-\" for stdin). Without it a single note is rendered")
	note := flag.String("note", "A4", "Note to render when no script is given")
	duration := flag.Float64("duration", 1.0, "Seconds the single note is held")
	tail := flag.Float64("tail", 0.5, "Seconds rendered after the last event")
	sampleRate := flag.Int("sample-rate", 48000, "Render sample rate in Hz")
	outputRate := flag.Int("output-rate", 0, "Resample the WAV to this rate (0 keeps the render rate)")
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	output := flag.String("output", "output.wav", "Output WAV file path")
	reportPath := flag.String("report", "", "Write an analysis report as JSON to this path (\"-\" for stdout)")
	verbose := flag.Bool("v", false, "Log ignored input and engine details")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := preset.Default()
	if *presetPath != "" {
		var err error
		cfg, err = preset.LoadJSON(*presetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading preset %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
	}

	engine := piano.NewEngine(*sampleRate, cfg.Params, piano.WithLogger(logger))

	var samples []float32
	if *scriptPath != "" {
		events, err := readScript(*scriptPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading script %q: %v\n", *scriptPath, err)
			os.Exit(1)
		}
		coord := input.New(engine,
			input.WithKeyMap(cfg.KeyMap),
			input.WithLayout(cfg.LayoutOptions(0, 0)),
			input.WithLogger(logger),
		)
		fmt.Printf("Rendering %d events (%.2fs) at %d Hz...\n", len(events), session.Duration(events, *tail), *sampleRate)
		samples = session.Render(coord, engine, events, *tail)
	} else {
		id, err := keys.ParseIdentity(*note)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Rendering %s (%.2f Hz), held %.2fs at %d Hz...\n", id, keys.FrequencyOf(id), *duration, *sampleRate)
		samples = renderNote(engine, id, *duration, *tail)
	}

	rate := *sampleRate
	if *outputRate > 0 && *outputRate != rate {
		resampled, err := wavio.ResampleStereo(samples, rate, *outputRate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resampling to %d Hz: %v\n", *outputRate, err)
			os.Exit(1)
		}
		samples, rate = resampled, *outputRate
	}

	if err := wavio.WriteStereo(*output, samples, rate); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing WAV file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully wrote %s (%d frames)\n", *output, len(samples)/2)

	if *reportPath != "" {
		report := analysis.Analyze(wavio.StereoToMono(samples), rate)
		if err := writeReport(*reportPath, report); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
			os.Exit(1)
		}
	}
}

func readScript(path string) ([]session.Event, error) {
	if path == "-" {
		return session.Parse(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return session.Parse(f)
}

func renderNote(e *piano.Engine, id keys.Identity, hold, tail float64) []float32 {
	const blockSize = 128
	rate := e.SampleRate()
	render := func(seconds float64, dst []float32) []float32 {
		frames := int(seconds * float64(rate))
		for frames > 0 {
			n := blockSize
			if n > frames {
				n = frames
			}
			dst = append(dst, e.Process(n)...)
			frames -= n
		}
		return dst
	}

	e.EnsureActive()
	e.Trigger(id, keys.FrequencyOf(id))
	samples := render(hold, nil)
	e.Release(id)
	return render(tail, samples)
}

func writeReport(path string, report analysis.Report) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
