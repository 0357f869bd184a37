package main

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-reverb/analysis"
	"github.com/cwbudde/algo-reverb/internal/wavio"
	"github.com/cwbudde/algo-reverb/preset"
)

type outputPaths struct {
	targetPath string
	basePreset string
	preset     string
	report     string
	ir         string
	variant    string
}

type runReport struct {
	TargetPath      string             `json:"target_path"`
	BasePreset      string             `json:"base_preset,omitempty"`
	OutputPreset    string             `json:"output_preset"`
	OutputIR        string             `json:"output_ir,omitempty"`
	SampleRate      int                `json:"sample_rate"`
	DurationSec     float64            `json:"elapsed_seconds"`
	Evaluations     int                `json:"evaluations"`
	MayflyVariant   string             `json:"mayfly_variant"`
	BestScore       float64            `json:"best_score"`
	BestSimilarity  float64            `json:"best_similarity"`
	BestMetrics     analysis.Metrics   `json:"best_metrics"`
	BestKnobs       map[string]float64 `json:"best_knobs"`
	CheckpointCount int                `json:"checkpoint_count"`
	TopCandidates   []topCandidate     `json:"top_candidates,omitempty"`
}

func reportPathFor(out outputPaths) string {
	if out.report != "" {
		return out.report
	}
	return out.preset + ".report.json"
}

// writeOutputs writes the fitted preset and the run report. The rendered IR
// is only written when irL/irR are given.
func writeOutputs(cfg *optimizationConfig, res *optimizationResult, irL, irR []float32) error {
	out := cfg.out
	if err := os.MkdirAll(filepath.Dir(out.preset), 0o755); err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(out.preset), filepath.Ext(out.preset))
	if err := preset.WriteJSON(out.preset, name, res.bestEval.params); err != nil {
		return err
	}

	if out.ir != "" && len(irL) > 0 {
		if err := wavio.WriteStereo(out.ir, irL, irR, cfg.sampleRate); err != nil {
			return err
		}
	}

	knobs := make(map[string]float64, len(cfg.defs))
	for i, d := range cfg.defs {
		knobs[d.Name] = res.best.Vals[i]
	}
	rep := runReport{
		TargetPath:      out.targetPath,
		BasePreset:      out.basePreset,
		OutputPreset:    out.preset,
		OutputIR:        out.ir,
		SampleRate:      cfg.sampleRate,
		DurationSec:     res.elapsed,
		Evaluations:     res.evals,
		MayflyVariant:   out.variant,
		BestScore:       res.bestEval.score,
		BestSimilarity:  math.Exp(-4 * res.bestEval.score),
		BestMetrics:     res.bestEval.metrics,
		BestKnobs:       knobs,
		CheckpointCount: res.checkpoints,
		TopCandidates:   res.top,
	}
	return writeJSON(reportPathFor(out), rep)
}

// loadCandidateFromReport seeds a candidate from the best_knobs of a previous
// report. A missing file is not an error.
func loadCandidateFromReport(path string, defs []knobDef, fallback candidate) (candidate, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fallback, false, nil
		}
		return fallback, false, err
	}
	var rep struct {
		BestKnobs map[string]float64 `json:"best_knobs"`
	}
	if err := json.Unmarshal(b, &rep); err != nil {
		return fallback, false, err
	}
	if len(rep.BestKnobs) == 0 {
		return fallback, false, nil
	}

	vals := make([]float64, len(fallback.Vals))
	copy(vals, fallback.Vals)
	updated := false
	for i, d := range defs {
		if v, ok := rep.BestKnobs[d.Name]; ok {
			vals[i] = clamp(v, d.Min, d.Max)
			if d.IsInt {
				vals[i] = math.Round(vals[i])
			}
			updated = true
		}
	}
	if !updated {
		return fallback, false, nil
	}
	return candidate{Vals: vals}, true, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}
