package kernel

import (
	"github.com/cwbudde/algo-dsp/dsp/delay"
	"github.com/cwbudde/algo-dsp/dsp/effects/spatial"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

const (
	minEarlySize   = 0.05
	maxEarlySize   = 4.0
	maxLRDelayMs   = 10.0
	crossFeedLevel = 0.35
)

// EarlyConfig is the fixed voicing of an EarlyReflections instance.
type EarlyConfig struct {
	Preset          EarlyPreset
	Width           float64
	LRDelay         float64 // right-channel offset as a fraction of 10 ms
	CrossFreq       float64
	CrossStages     int
	DiffusionFreq   float64
	DiffusionStages int
}

// DefaultEarlyConfig returns a neutral room voicing.
func DefaultEarlyConfig() EarlyConfig {
	return EarlyConfig{
		Preset:          EarlyPresetRoom,
		Width:           1.0,
		LRDelay:         0.3,
		CrossFreq:       750,
		CrossStages:     4,
		DiffusionFreq:   150,
		DiffusionStages: 4,
	}
}

// EarlyReflections renders the discrete first reflections of a space.
//
// Each channel feeds a tapped delay line whose tap times are the preset
// pattern scaled by the size factor and offset by the pre-delay. The right
// channel additionally hears the left pattern, delayed and smeared through a
// cross allpass cascade. A diffusion allpass cascade, output high/low-pass and
// mid/side width follow.
type EarlyReflections struct {
	sampleRate float64
	pattern    []reflectionTap

	size       float64
	preDelayMs float64
	width      float64
	lrDelay    float64
	crossFreq  float64
	diffFreq   float64
	hpFreq     float64
	lpFreq     float64

	crossStages int
	diffStages  int

	numTaps  int
	tapDelay [maxTaps]int
	lrTap    int

	lineL  *delay.Line
	lineR  *delay.Line
	lrLine *delay.Line

	cross   [maxAllpassStages]biquad.Section
	diffL   [maxAllpassStages]biquad.Section
	diffR   [maxAllpassStages]biquad.Section
	hpL     biquad.Section
	hpR     biquad.Section
	lpL     biquad.Section
	lpR     biquad.Section
	widener *spatial.StereoWidener
}

// NewEarlyReflections creates an early reflection generator.
func NewEarlyReflections(sampleRate float64, cfg EarlyConfig) (*EarlyReflections, error) {
	e := &EarlyReflections{
		pattern:    cfg.Preset.taps(),
		size:       1.0,
		preDelayMs: 0,
		hpFreq:     20,
		lpFreq:     16000,
	}
	e.numTaps = min(len(e.pattern), maxTaps)
	e.SetWidth(cfg.Width)
	e.SetLRDelay(cfg.LRDelay)
	e.crossFreq, e.crossStages = cfg.CrossFreq, clampStages(cfg.CrossStages)
	e.diffFreq, e.diffStages = cfg.DiffusionFreq, clampStages(cfg.DiffusionStages)

	if err := e.SetSampleRate(sampleRate); err != nil {
		return nil, err
	}
	return e, nil
}

// SetSampleRate reallocates the delay lines for the new rate and clears state.
func (e *EarlyReflections) SetSampleRate(sampleRate float64) error {
	if err := validateSampleRate(sampleRate); err != nil {
		return err
	}

	lineMs := maxPreDelayMs + maxEarlySize*maxPatternMs()
	lineL, err := newLine(lineMs, sampleRate, 2)
	if err != nil {
		return err
	}
	lineR, err := newLine(lineMs, sampleRate, 2)
	if err != nil {
		return err
	}
	lrLine, err := newLine(maxLRDelayMs, sampleRate, 2)
	if err != nil {
		return err
	}
	if e.widener == nil {
		w, err := newWidener(sampleRate, e.width)
		if err != nil {
			return err
		}
		e.widener = w
	} else if err := e.widener.SetSampleRate(sampleRate); err != nil {
		return err
	}

	e.sampleRate = sampleRate
	e.lineL, e.lineR, e.lrLine = lineL, lineR, lrLine
	e.updateTaps()
	e.updateCross()
	e.updateDiffusion()
	e.updateOutputFilters()
	e.Mute()
	return nil
}

// SetSize scales the reflection pattern in time.
func (e *EarlyReflections) SetSize(factor float64) {
	if setIfFinite(&e.size, factor, minEarlySize, maxEarlySize) {
		e.updateTaps()
	}
}

// SetPreDelay sets the gap before the first reflection in milliseconds.
func (e *EarlyReflections) SetPreDelay(ms float64) {
	if setIfFinite(&e.preDelayMs, ms, 0, maxPreDelayMs) {
		e.updateTaps()
	}
}

// SetWidth sets the stereo width in [0,1].
func (e *EarlyReflections) SetWidth(width float64) {
	if setIfFinite(&e.width, width, 0, 1) && e.widener != nil {
		applyWidth(e.widener, e.width)
	}
}

// SetLRDelay sets the right-channel offset of the crossed pattern as a
// fraction of 10 ms.
func (e *EarlyReflections) SetLRDelay(amount float64) {
	if setIfFinite(&e.lrDelay, amount, 0, 1) {
		e.updateTaps()
	}
}

// SetCrossAllpass configures the allpass cascade smearing the crossed pattern.
func (e *EarlyReflections) SetCrossAllpass(freq float64, stages int) {
	if !setIfFinite(&e.crossFreq, freq, minFilterFreq, 1e6) {
		return
	}
	e.crossStages = clampStages(stages)
	e.updateCross()
}

// SetDiffusionAllpass configures the output diffusion cascade: stages
// second-order allpasses at freq. Zero stages disables diffusion.
func (e *EarlyReflections) SetDiffusionAllpass(freq float64, stages int) {
	if !setIfFinite(&e.diffFreq, freq, minFilterFreq, 1e6) {
		return
	}
	e.diffStages = clampStages(stages)
	e.updateDiffusion()
}

// SetOutputHighPass sets the output high-pass corner.
func (e *EarlyReflections) SetOutputHighPass(freq float64) {
	if setIfFinite(&e.hpFreq, freq, minFilterFreq, 1e6) {
		e.updateOutputFilters()
	}
}

// SetOutputLowPass sets the output low-pass corner.
func (e *EarlyReflections) SetOutputLowPass(freq float64) {
	if setIfFinite(&e.lpFreq, freq, minFilterFreq, 1e6) {
		e.updateOutputFilters()
	}
}

// ProcessBlock renders reflections of inL/inR into outL/outR, replacing their
// contents. Zero-alloc.
func (e *EarlyReflections) ProcessBlock(inL, inR, outL, outR []float32) {
	n := blockLen(inL, inR, outL, outR)
	for i := 0; i < n; i++ {
		e.lineL.Write(float64(inL[i]))
		e.lineR.Write(float64(inR[i]))

		var yl, yr float64
		for t := 0; t < e.numTaps; t++ {
			tap := &e.pattern[t]
			d := e.tapDelay[t]
			yl += tap.gainL * e.lineL.Read(d)
			yr += tap.gainR * e.lineR.Read(d)
		}

		e.lrLine.Write(yl)
		crossed := e.lrLine.Read(e.lrTap)
		for s := 0; s < e.crossStages; s++ {
			crossed = e.cross[s].ProcessSample(crossed)
		}
		yr = (1-crossFeedLevel)*yr + crossFeedLevel*crossed

		for s := 0; s < e.diffStages; s++ {
			yl = e.diffL[s].ProcessSample(yl)
			yr = e.diffR[s].ProcessSample(yr)
		}

		yl = e.lpL.ProcessSample(e.hpL.ProcessSample(yl))
		yr = e.lpR.ProcessSample(e.hpR.ProcessSample(yr))
		yl, yr = e.widener.ProcessStereo(yl, yr)

		outL[i] = float32(yl)
		outR[i] = float32(yr)
	}
}

// Mute clears all delay and filter state.
func (e *EarlyReflections) Mute() {
	e.lineL.Reset()
	e.lineR.Reset()
	e.lrLine.Reset()
	resetSections(e.cross[:])
	resetSections(e.diffL[:])
	resetSections(e.diffR[:])
	e.hpL.Reset()
	e.hpR.Reset()
	e.lpL.Reset()
	e.lpR.Reset()
	e.widener.Reset()
}

// Size returns the current size factor.
func (e *EarlyReflections) Size() float64 { return e.size }

// PreDelay returns the pre-delay in milliseconds.
func (e *EarlyReflections) PreDelay() float64 { return e.preDelayMs }

// DiffusionStages returns the number of active diffusion allpasses.
func (e *EarlyReflections) DiffusionStages() int { return e.diffStages }

// Lines are read after the current sample is written, so a read of d+1
// returns the sample from d frames ago.
func (e *EarlyReflections) updateTaps() {
	if e.lineL == nil {
		return
	}
	limit := e.lineL.Len()
	for t := 0; t < e.numTaps; t++ {
		ms := e.preDelayMs + e.pattern[t].ms*e.size
		e.tapDelay[t] = min(int(msToSamples(ms, e.sampleRate)+0.5)+1, limit)
	}
	e.lrTap = min(int(msToSamples(e.lrDelay*maxLRDelayMs, e.sampleRate)+0.5)+1, e.lrLine.Len())
}

func (e *EarlyReflections) updateCross() {
	if e.sampleRate <= 0 {
		return
	}
	c := design.Allpass(clampFreq(e.crossFreq, e.sampleRate), allpassQ, e.sampleRate)
	for s := range e.cross {
		e.cross[s].Coefficients = c
	}
}

func (e *EarlyReflections) updateDiffusion() {
	if e.sampleRate <= 0 {
		return
	}
	c := design.Allpass(clampFreq(e.diffFreq, e.sampleRate), allpassQ, e.sampleRate)
	for s := range e.diffL {
		e.diffL[s].Coefficients = c
		e.diffR[s].Coefficients = c
	}
}

func (e *EarlyReflections) updateOutputFilters() {
	if e.sampleRate <= 0 {
		return
	}
	hp := design.Highpass(clampFreq(e.hpFreq, e.sampleRate), 0, e.sampleRate)
	lp := design.Lowpass(clampFreq(e.lpFreq, e.sampleRate), 0, e.sampleRate)
	e.hpL.Coefficients, e.hpR.Coefficients = hp, hp
	e.lpL.Coefficients, e.lpR.Coefficients = lp, lp
}

func clampStages(n int) int {
	return min(max(n, 0), maxAllpassStages)
}
