// Package kernel provides the stereo reverb processors driven by the engine
// in package reverb.
//
// Included processors:
//   - EarlyReflections: tapped-delay early reflection generator.
//   - LateReverb: modulated 8-line feedback delay network tail.
//   - Plate: damped comb/allpass plate simulation.
//
// All processors allocate only in their constructors and in SetSampleRate.
// Setters never fail: non-finite arguments are ignored and finite ones are
// clamped to each processor's working range.
package kernel

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-approx"
	"github.com/cwbudde/algo-dsp/dsp/delay"
	"github.com/cwbudde/algo-dsp/dsp/effects/spatial"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"

	"github.com/cwbudde/algo-reverb/dsp"
)

const (
	maxPreDelayMs    = 500.0
	maxAllpassStages = 10
	minFilterFreq    = 5.0
	maxFilterRatio   = 0.45 // fraction of the sample rate
	allpassQ         = 0.5
	ln1000           = 6.907755278982137
)

func validateSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || !dsp.IsFinite(sampleRate) {
		return fmt.Errorf("reverb kernel sample rate must be > 0 and finite: %f", sampleRate)
	}
	return nil
}

func msToSamples(ms, sampleRate float64) float64 {
	return ms * sampleRate / 1000
}

func newLine(ms, sampleRate float64, pad int) (*delay.Line, error) {
	return delay.New(int(math.Ceil(msToSamples(ms, sampleRate))) + pad)
}

// clampFreq keeps filter corners inside the range the biquad designers accept.
func clampFreq(freq, sampleRate float64) float64 {
	return dsp.Clamp(freq, minFilterFreq, sampleRate*maxFilterRatio)
}

// feedbackGain returns the loop gain giving a -60 dB decay after rt60 seconds
// for a loop of delaySec seconds.
func feedbackGain(delaySec, rt60 float64) float64 {
	if rt60 <= 0 {
		return 0
	}
	return float64(approx.FastExp(float32(-ln1000 * delaySec / rt60)))
}

func blockLen(inL, inR, outL, outR []float32) int {
	return min(len(inL), len(inR), len(outL), len(outR))
}

// setIfFinite stores v into dst after clamping, ignoring non-finite input.
func setIfFinite(dst *float64, v, lo, hi float64) bool {
	if !dsp.IsFinite(v) {
		return false
	}
	*dst = dsp.Clamp(v, lo, hi)
	return true
}

func resetSections(sections []biquad.Section) {
	for i := range sections {
		sections[i].Reset()
	}
}

func newWidener(sampleRate, width float64) (*spatial.StereoWidener, error) {
	return spatial.NewStereoWidener(sampleRate, spatial.WithWidth(width))
}

func applyWidth(w *spatial.StereoWidener, width float64) {
	// Width is pre-clamped into the widener's accepted range.
	_ = w.SetWidth(width)
}
