package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/cwbudde/algo-reverb/analysis"
	"github.com/cwbudde/algo-reverb/internal/wavio"
	"github.com/cwbudde/algo-reverb/preset"
	"github.com/cwbudde/algo-reverb/reverb"
)

type channelMetrics struct {
	Left  analysis.Metrics `json:"left"`
	Right analysis.Metrics `json:"right"`
	Score float64          `json:"score"`
}

func main() {
	referencePath := flag.String("reference", "reference/ir.wav", "Reference impulse response WAV path")
	candidatePath := flag.String("candidate", "", "Candidate WAV path; if empty, render the candidate IR from -preset")
	presetPath := flag.String("preset", "", "Preset JSON path for the rendered candidate (empty uses engine defaults)")
	sampleRate := flag.Int("sample-rate", 48000, "Analysis sample rate in Hz")
	writeCandidate := flag.String("write-candidate", "", "Optional path to write the rendered candidate WAV")
	jsonOut := flag.Bool("json", false, "Print metrics as JSON")
	flag.Parse()

	refL, refR, err := readResampled(*referencePath, *sampleRate)
	if err != nil {
		die("failed to read reference: %v", err)
	}

	var candL, candR []float64
	if *candidatePath != "" {
		if candL, candR, err = readResampled(*candidatePath, *sampleRate); err != nil {
			die("failed to read candidate: %v", err)
		}
	} else {
		l, r, err := renderCandidate(*presetPath, *sampleRate, len(refL))
		if err != nil {
			die("failed to render candidate: %v", err)
		}
		if *writeCandidate != "" {
			if err := wavio.WriteStereo(*writeCandidate, l, r, *sampleRate); err != nil {
				die("failed to write candidate wav: %v", err)
			}
		}
		candL, candR = wavio.To64(l), wavio.To64(r)
	}

	l, r, score := analysis.CompareStereo(refL, refR, candL, candR, *sampleRate)
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(channelMetrics{Left: l, Right: r, Score: score}); err != nil {
			die("json encode failed: %v", err)
		}
		return
	}

	printChannel("Left", l)
	fmt.Println()
	printChannel("Right", r)
	fmt.Println()
	fmt.Printf("Stereo score:     %.4f  (0 best, 1 worst)\n", score)
}

func printChannel(name string, m analysis.Metrics) {
	fmt.Printf("%s channel\n", name)
	fmt.Printf("Aligned frames:   %d (ref %d, cand %d)\n", m.AlignedFrames, m.ReferenceFrames, m.CandidateFrames)
	fmt.Printf("Lag:              %d samples (%.3f ms)\n", m.LagSamples, 1000.0*float64(m.LagSamples)/float64(max(m.SampleRate, 1)))
	fmt.Printf("Component        Raw          Norm   Weight  Contribution\n")
	fmt.Printf("─────────────────────────────────────────────────────────\n")
	printComp := func(name string, raw string, norm, weight float64, dominant bool) {
		marker := ""
		if dominant {
			marker = " ◄"
		}
		fmt.Printf("%-16s %-12s %5.1f%%  ×%.2f   → %.4f%s\n", name, raw, norm*100, weight, norm*weight, marker)
	}
	printComp("Time RMSE", fmt.Sprintf("%.6f", m.TimeRMSE), m.TimeNorm, analysis.WeightTime, m.Dominant == "time")
	printComp("Envelope RMSE", fmt.Sprintf("%.1f dB", m.EnvelopeRMSEDB), m.EnvelopeNorm, analysis.WeightEnvelope, m.Dominant == "envelope")
	printComp("Early bands", fmt.Sprintf("%.1f dB", m.EarlyBandDB), m.EarlyNorm, analysis.WeightEarly, m.Dominant == "early")
	printComp("Late bands", fmt.Sprintf("%.1f dB", m.LateBandDB), m.LateNorm, analysis.WeightLate, m.Dominant == "late")
	printComp("RT60 error", fmt.Sprintf("%.1f%%", m.RT60Error*100), m.RT60Norm, analysis.WeightRT60, m.Dominant == "rt60")
	fmt.Printf("─────────────────────────────────────────────────────────\n")
	fmt.Printf("Score:            %.4f  similarity %.2f%%\n", m.Score, m.Similarity*100.0)
	fmt.Printf("RT60:             ref=%.2fs  cand=%.2fs\n", m.RefRT60, m.CandRT60)
}

func readResampled(path string, sampleRate int) ([]float64, []float64, error) {
	l, r, sr, err := wavio.ReadStereo(path)
	if err != nil {
		return nil, nil, err
	}
	left, err := wavio.Resample(wavio.To64(l), sr, sampleRate)
	if err != nil {
		return nil, nil, err
	}
	right, err := wavio.Resample(wavio.To64(r), sr, sampleRate)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// renderCandidate renders the impulse response of the preset at presetPath
// for the given number of frames.
func renderCandidate(presetPath string, sampleRate, frames int) ([]float32, []float32, error) {
	params := reverb.NewDefaultParams()
	if presetPath != "" {
		p, err := preset.LoadJSON(presetPath)
		if err != nil {
			return nil, nil, err
		}
		params = p
	}
	e, err := reverb.NewEngine(float64(sampleRate))
	if err != nil {
		return nil, nil, err
	}
	e.LoadParams(params)

	frames = max(frames, 1)
	inL := make([]float32, frames)
	inR := make([]float32, frames)
	inL[0], inR[0] = 1, 1
	outL := make([]float32, frames)
	outR := make([]float32, frames)
	e.Process([][]float32{inL, inR}, [][]float32{outL, outR}, frames)
	return outL, outR, nil
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
