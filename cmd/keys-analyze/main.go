package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/cwbudde/algo-keys/analysis"
	"github.com/cwbudde/algo-keys/internal/wavio"
)

func main() {
	input := flag.String("input", "output.wav", "WAV file to analyze")
	rate := flag.Int("sample-rate", 0, "Resample to this rate before analysis (0 keeps the file rate)")
	start := flag.Float64("start", 0, "Skip this many seconds")
	length := flag.Float64("length", 0, "Analyze at most this many seconds (0 for all)")
	flag.Parse()

	samples, fileRate, err := wavio.ReadMono(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %q: %v\n", *input, err)
		os.Exit(1)
	}
	sr := fileRate
	if *rate > 0 && *rate != fileRate {
		samples, err = wavio.Resample(samples, fileRate, *rate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resampling: %v\n", err)
			os.Exit(1)
		}
		sr = *rate
	}

	from := int(*start * float64(sr))
	if from < 0 {
		from = 0
	}
	if from > len(samples) {
		from = len(samples)
	}
	samples = samples[from:]
	if *length > 0 {
		if n := int(*length * float64(sr)); n < len(samples) {
			samples = samples[:n]
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(analysis.Analyze(samples, sr)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
