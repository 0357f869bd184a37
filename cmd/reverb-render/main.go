package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-reverb/analysis"
	"github.com/cwbudde/algo-reverb/internal/wavio"
	"github.com/cwbudde/algo-reverb/preset"
	"github.com/cwbudde/algo-reverb/reverb"
)

type irReport struct {
	Preset     string               `json:"preset,omitempty"`
	Type       string               `json:"type"`
	SampleRate int                  `json:"sample_rate"`
	Frames     int                  `json:"frames"`
	PeakDBFS   float64              `json:"peak_dbfs"`
	Params     map[string]float32   `json:"params"`
	Left       analysis.DecayReport `json:"left"`
	Right      analysis.DecayReport `json:"right"`
}

func main() {
	input := flag.String("input", "", "Input WAV path (empty renders an impulse response)")
	presetPath := flag.String("preset", "", "Preset JSON file path (empty uses engine defaults)")
	typ := flag.String("type", "", "Reverb type override: room|hall|plate|early")
	sampleRate := flag.Int("sample-rate", 48000, "Render sample rate in Hz")
	tail := flag.Float64("tail", 4.0, "Seconds of silence rendered after the input")
	decayDBFS := flag.Float64("decay-dbfs", math.Inf(1), "Stop the tail when stereo block RMS falls below this dBFS (e.g. -90). Disabled by default")
	decayHoldBlocks := flag.Int("decay-hold-blocks", 6, "Consecutive below-threshold blocks required to stop the tail")
	blockSize := flag.Int("block", 512, "Host block size passed to Process")
	output := flag.String("output", "output.wav", "Output WAV file path")
	reportPath := flag.String("report", "", "Optional IR report JSON path")
	verbose := flag.Bool("v", false, "Verbose engine logging")

	var overrides []string
	flag.Func("set", "Parameter override name=value (repeatable)", func(s string) error {
		overrides = append(overrides, s)
		return nil
	})
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	params := reverb.NewDefaultParams()
	if *presetPath != "" {
		p, err := preset.LoadJSON(*presetPath)
		if err != nil {
			die("Error loading preset %q: %v", *presetPath, err)
		}
		params = p
	}
	if *typ != "" {
		if err := preset.ApplySetting(&params, "type", *typ); err != nil {
			die("Invalid -type: %v", err)
		}
	}
	for _, s := range overrides {
		if err := preset.ParseSetting(&params, s); err != nil {
			die("Invalid -set %q: %v", s, err)
		}
	}
	if *sampleRate <= 0 {
		die("sample-rate must be > 0")
	}

	var inL, inR []float32
	if *input == "" {
		inL, inR = impulse(1)
	} else {
		l, r, sr, err := wavio.ReadStereo(*input)
		if err != nil {
			die("Error reading input: %v", err)
		}
		if l, err = wavio.Resample32(l, sr, *sampleRate); err != nil {
			die("Error resampling input: %v", err)
		}
		if r, err = wavio.Resample32(r, sr, *sampleRate); err != nil {
			die("Error resampling input: %v", err)
		}
		inL, inR = l, r
	}

	e, err := reverb.NewEngine(float64(*sampleRate), reverb.WithLogger(logger))
	if err != nil {
		die("Error creating engine: %v", err)
	}
	e.LoadParams(params)

	source := *input
	if source == "" {
		source = "impulse"
	}
	fmt.Printf("Rendering %s through %s reverb at %d Hz (preset: %s, block %d)...\n", source, e.Variant(), *sampleRate, presetLabel(*presetPath), *blockSize)

	outL, outR := render(e, inL, inR, renderConfig{
		tailFrames:      int(*tail * float64(*sampleRate)),
		blockSize:       *blockSize,
		decayDBFS:       *decayDBFS,
		decayHoldBlocks: *decayHoldBlocks,
	})

	if err := wavio.WriteStereo(*output, outL, outR, *sampleRate); err != nil {
		die("Error writing WAV file: %v", err)
	}
	peak := wavio.PeakDBFS(outL, outR)
	fmt.Printf("Successfully wrote %s (%d frames, %.3fs, peak %.1f dBFS)\n", *output, len(outL), float64(len(outL))/float64(*sampleRate), peak)

	if *reportPath != "" {
		l, r, err := analysis.DecayStereo(wavio.To64(outL), wavio.To64(outR), *sampleRate)
		if err != nil {
			die("Error analysing output: %v", err)
		}
		rep := irReport{
			Preset:     *presetPath,
			Type:       e.Variant().String(),
			SampleRate: *sampleRate,
			Frames:     len(outL),
			PeakDBFS:   peak,
			Params:     paramMap(e.Params()),
			Left:       l,
			Right:      r,
		}
		if err := writeJSON(*reportPath, rep); err != nil {
			die("Error writing report: %v", err)
		}
		fmt.Printf("RT60 L=%.2fs R=%.2fs  EDT L=%.2fs R=%.2fs  C80 L=%.1fdB R=%.1fdB\n", l.RT60, r.RT60, l.EDT, r.EDT, l.C80, r.C80)
	}
}

func presetLabel(path string) string {
	if path == "" {
		return "defaults"
	}
	return path
}

func paramMap(p reverb.Params) map[string]float32 {
	out := make(map[string]float32, reverb.ParamCount)
	for _, info := range reverb.Parameters() {
		out[info.Symbol] = p.Get(info.ID)
	}
	return out
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
