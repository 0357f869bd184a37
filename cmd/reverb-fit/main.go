package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-reverb/internal/wavio"
	"github.com/cwbudde/algo-reverb/preset"
	"github.com/cwbudde/algo-reverb/reverb"
)

func main() {
	targetPath := flag.String("target", "reference/ir.wav", "Target impulse response WAV path")
	presetPath := flag.String("preset", "", "Base preset JSON path (empty uses engine defaults)")
	typ := flag.String("type", "", "Reverb type for the base preset: room|hall|plate|early")
	outputPreset := flag.String("output-preset", "out/fit/fitted.json", "Path to write best fitted preset JSON")
	outputIR := flag.String("output-ir", "", "Optional path to write the best rendered IR WAV")
	reportPath := flag.String("report", "", "Optional report JSON path (default: <output-preset>.report.json)")
	optimize := flag.String("optimize", "space,decay,mix", "Comma-separated knob groups to optimize: "+groupNames())
	sampleRate := flag.Int("sample-rate", 48000, "Render/analysis sample rate")
	maxSeconds := flag.Float64("max-seconds", 4.0, "Truncate the target to this many seconds")
	seed := flag.Int64("seed", 1, "Random seed")
	timeBudget := flag.Float64("time-budget", 120.0, "Optimization time budget in seconds")
	maxEvals := flag.Int("max-evals", 2000, "Maximum objective evaluations")
	reportEvery := flag.Int("report-every", 20, "Print progress every N evaluations")
	checkpointEvery := flag.Int("checkpoint-every", 1, "Write checkpoint every N best-score improvements")
	renderBlockSize := flag.Int("render-block-size", 512, "Audio render block size for candidate evaluation")
	topK := flag.Int("top-k", 5, "How many top candidates to keep in report")
	resume := flag.Bool("resume", true, "Resume from previous best_knobs report when available")
	workers := flag.String("workers", "1", "Parallel optimization workers running independent Mayfly rounds (number or 'auto')")
	mayflyVariant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	mayflyPop := flag.Int("mayfly-pop", 10, "Male and female population size per Mayfly run")
	mayflyRoundEvals := flag.Int("mayfly-round-evals", 240, "Target eval budget per Mayfly round")
	flag.Parse()

	groups, err := parseOptimizeGroups(*optimize)
	if err != nil {
		die("invalid --optimize: %v", err)
	}
	if *outputPreset == "" {
		die("output-preset must not be empty")
	}
	if *maxEvals < 1 {
		die("max-evals must be >= 1")
	}
	if *timeBudget <= 0 {
		die("time-budget must be > 0")
	}
	if *sampleRate <= 0 {
		die("sample-rate must be > 0")
	}
	*reportEvery = max(*reportEvery, 1)
	*checkpointEvery = max(*checkpointEvery, 1)
	*mayflyPop = max(*mayflyPop, 2)
	*mayflyRoundEvals = max(*mayflyRoundEvals, *mayflyPop*2)
	*topK = max(*topK, 1)
	parsedWorkers, err := parseWorkers(*workers)
	if err != nil {
		die("invalid workers value: %v", err)
	}

	base := reverb.NewDefaultParams()
	if *presetPath != "" {
		if base, err = preset.LoadJSON(*presetPath); err != nil {
			die("failed to load preset: %v", err)
		}
	}
	if *typ != "" {
		if err := preset.ApplySetting(&base, "type", *typ); err != nil {
			die("invalid -type: %v", err)
		}
	}

	rawL, rawR, targetSR, err := wavio.ReadStereo(*targetPath)
	if err != nil {
		die("failed to read target: %v", err)
	}
	targetL, err := wavio.Resample(wavio.To64(rawL), targetSR, *sampleRate)
	if err != nil {
		die("failed to resample target: %v", err)
	}
	targetR, err := wavio.Resample(wavio.To64(rawR), targetSR, *sampleRate)
	if err != nil {
		die("failed to resample target: %v", err)
	}
	if limit := int(*maxSeconds * float64(*sampleRate)); limit > 0 && len(targetL) > limit {
		targetL, targetR = targetL[:limit], targetR[:limit]
	}

	defs, initCand := initCandidate(base, groups)
	out := outputPaths{
		targetPath: *targetPath,
		basePreset: *presetPath,
		preset:     *outputPreset,
		report:     *reportPath,
		ir:         *outputIR,
		variant:    strings.ToLower(*mayflyVariant),
	}
	if *resume {
		resumePath := reportPathFor(out)
		if resumed, ok, err := loadCandidateFromReport(resumePath, defs, initCand); err != nil {
			fmt.Fprintf(os.Stderr, "resume skipped (%s): %v\n", resumePath, err)
		} else if ok {
			initCand = resumed
			fmt.Printf("Resumed candidate from %s\n", resumePath)
		}
	}

	cfg := &optimizationConfig{
		targetL:          targetL,
		targetR:          targetR,
		baseParams:       base,
		defs:             defs,
		initCandidate:    initCand,
		sampleRate:       *sampleRate,
		renderBlockSize:  *renderBlockSize,
		seed:             *seed,
		timeBudget:       *timeBudget,
		maxEvals:         *maxEvals,
		reportEvery:      *reportEvery,
		checkpointEvery:  *checkpointEvery,
		mayflyVariant:    *mayflyVariant,
		mayflyPop:        *mayflyPop,
		mayflyRoundEvals: *mayflyRoundEvals,
		workers:          parsedWorkers,
		topK:             *topK,
		out:              out,
	}
	fmt.Printf("Fitting %d knobs (%s) to %s: %d frames at %d Hz\n", len(defs), *optimize, *targetPath, len(targetL), *sampleRate)

	result, err := runOptimization(cfg)
	if err != nil {
		die("optimization failed: %v", err)
	}

	irL, irR, err := renderImpulse(result.bestEval.params, *sampleRate, len(targetL), *renderBlockSize)
	if err != nil {
		die("failed to render best IR: %v", err)
	}
	if err := writeOutputs(cfg, result, irL, irR); err != nil {
		die("failed to write outputs: %v", err)
	}

	fmt.Printf("Done evals=%d elapsed=%.1fs best_score=%.4f variant=%s\n", result.evals, result.elapsed, result.bestEval.score, out.variant)
}

// parseWorkers accepts an integer >= 1, or "auto" which returns 0.
func parseWorkers(raw string) (int, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return 0, fmt.Errorf("empty value (use integer >= 1 or 'auto')")
	}
	if v == "auto" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%q (use integer >= 1 or 'auto')", raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("%d (must be >= 1 or 'auto')", n)
	}
	return n, nil
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
