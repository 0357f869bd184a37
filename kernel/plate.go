package kernel

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/delay"
	"github.com/cwbudde/algo-dsp/dsp/effects/spatial"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"

	"github.com/cwbudde/algo-reverb/dsp"
)

const (
	plateCombs       = 6
	plateRightOffset = 0.5 // ms added to every right-channel comb
	plateInputGain   = 0.25
	plateDiffScale   = 0.75
	maxLoopDamping   = 0.95
)

// Comb lengths of the left channel in milliseconds.
var plateCombMs = [plateCombs]float64{29.7, 37.1, 41.1, 43.7, 47.3, 53.9}

// Diffuser lengths in samples at 44.1 kHz.
var (
	plateInputDiffusers  = [4]float64{113, 89, 331, 241}
	plateOutputDiffusers = [2]float64{173, 197}
)

// PlateConfig is the initial voicing of a Plate instance.
type PlateConfig struct {
	Width       float64
	DecayTime   float64
	Diffusion   float64
	Bandwidth   float64 // input lowpass corner in Hz
	LoopDamping float64 // in-loop one-pole coefficient in [0,0.95]
	DCCut       float64
	ModDepth    float64
	ModRate     float64
}

// DefaultPlateConfig returns a bright medium plate.
func DefaultPlateConfig() PlateConfig {
	return PlateConfig{
		Width:       1,
		DecayTime:   2.5,
		Diffusion:   0.8,
		Bandwidth:   8000,
		LoopDamping: 0.0005,
		DCCut:       20,
		ModDepth:    0.03,
		ModRate:     1,
	}
}

type plateComb struct {
	line  *delay.Line
	len   float64
	gain  float64
	state float64
}

// Plate simulates a plate reverb with a bank of modulated, damped feedback
// combs per channel behind an input diffuser.
type Plate struct {
	sampleRate float64
	cfg        PlateConfig
	preDelayMs float64

	preTap  int
	preL    *delay.Line
	preR    *delay.Line
	bwL     dsp.OnePole
	bwR     dsp.OnePole
	inDiff  [4]*dsp.Allpass
	combsL  [plateCombs]plateComb
	combsR  [plateCombs]plateComb
	lfo     *dsp.LFO
	outDiff [2]*dsp.Allpass
	dcL     biquad.Section
	dcR     biquad.Section
	widener *spatial.StereoWidener
}

// NewPlate creates a plate reverb.
func NewPlate(sampleRate float64, cfg PlateConfig) (*Plate, error) {
	p := &Plate{cfg: DefaultPlateConfig(), lfo: dsp.NewLFO(0)}
	setIfFinite(&p.cfg.Width, cfg.Width, 0, 1)
	setIfFinite(&p.cfg.DecayTime, cfg.DecayTime, minDecayTime, maxDecayTime)
	setIfFinite(&p.cfg.Diffusion, cfg.Diffusion, 0, 1)
	setIfFinite(&p.cfg.Bandwidth, cfg.Bandwidth, minFilterFreq, 1e6)
	setIfFinite(&p.cfg.LoopDamping, cfg.LoopDamping, 0, maxLoopDamping)
	setIfFinite(&p.cfg.DCCut, cfg.DCCut, minFilterFreq, 1e6)
	setIfFinite(&p.cfg.ModDepth, cfg.ModDepth, 0, maxModDepth)
	setIfFinite(&p.cfg.ModRate, cfg.ModRate, 0, maxModRate)
	if err := p.SetSampleRate(sampleRate); err != nil {
		return nil, err
	}
	return p, nil
}

// SetSampleRate reallocates all lines for the new rate and clears state.
func (p *Plate) SetSampleRate(sampleRate float64) error {
	if err := validateSampleRate(sampleRate); err != nil {
		return err
	}
	scale := sampleRate / referenceRate

	preL, err := newLine(maxPreDelayMs, sampleRate, 2)
	if err != nil {
		return err
	}
	preR, err := newLine(maxPreDelayMs, sampleRate, 2)
	if err != nil {
		return err
	}
	var combsL, combsR [plateCombs]plateComb
	for i, ms := range plateCombMs {
		if combsL[i], err = newPlateComb(ms, sampleRate); err != nil {
			return err
		}
		if combsR[i], err = newPlateComb(ms+plateRightOffset, sampleRate); err != nil {
			return err
		}
	}
	diffGain := p.cfg.Diffusion * plateDiffScale
	var inDiff [4]*dsp.Allpass
	for i, n := range plateInputDiffusers {
		if inDiff[i], err = newDiffuser(n*scale, diffGain); err != nil {
			return err
		}
	}
	var outDiff [2]*dsp.Allpass
	for i, n := range plateOutputDiffusers {
		if outDiff[i], err = newDiffuser(n*scale, diffGain); err != nil {
			return err
		}
	}
	if p.widener == nil {
		if p.widener, err = newWidener(sampleRate, p.cfg.Width); err != nil {
			return err
		}
	} else if err := p.widener.SetSampleRate(sampleRate); err != nil {
		return err
	}

	p.sampleRate = sampleRate
	p.preL, p.preR = preL, preR
	p.combsL, p.combsR = combsL, combsR
	p.inDiff, p.outDiff = inDiff, outDiff
	p.updateGains()
	p.updateBandwidth()
	p.updateDCCut()
	p.lfo.SetRate(p.cfg.ModRate, sampleRate)
	p.updatePreDelay()
	p.Mute()
	return nil
}

// SetWidth sets the stereo width in [0,1].
func (p *Plate) SetWidth(width float64) {
	if setIfFinite(&p.cfg.Width, width, 0, 1) {
		applyWidth(p.widener, p.cfg.Width)
	}
}

// SetPreDelay sets the delay before the plate in milliseconds.
func (p *Plate) SetPreDelay(ms float64) {
	if setIfFinite(&p.preDelayMs, ms, 0, maxPreDelayMs) {
		p.updatePreDelay()
	}
}

// SetDecayTime sets the RT60 in seconds.
func (p *Plate) SetDecayTime(seconds float64) {
	if setIfFinite(&p.cfg.DecayTime, seconds, minDecayTime, maxDecayTime) {
		p.updateGains()
	}
}

// SetDiffusion sets the diffuser amount in [0,1].
func (p *Plate) SetDiffusion(amount float64) {
	if !setIfFinite(&p.cfg.Diffusion, amount, 0, 1) {
		return
	}
	g := p.cfg.Diffusion * plateDiffScale
	for _, ap := range p.inDiff {
		ap.SetGain(g)
	}
	for _, ap := range p.outDiff {
		ap.SetGain(g)
	}
}

// SetBandwidth sets the input lowpass corner in Hz.
func (p *Plate) SetBandwidth(freq float64) {
	if setIfFinite(&p.cfg.Bandwidth, freq, minFilterFreq, 1e6) {
		p.updateBandwidth()
	}
}

// SetLoopDamping sets the in-loop one-pole coefficient.
func (p *Plate) SetLoopDamping(coeff float64) {
	setIfFinite(&p.cfg.LoopDamping, coeff, 0, maxLoopDamping)
}

// SetModulationDepth sets the comb modulation depth in [0,0.1].
func (p *Plate) SetModulationDepth(depth float64) {
	setIfFinite(&p.cfg.ModDepth, depth, 0, maxModDepth)
}

// SetModulationRate sets the comb modulation rate in Hz.
func (p *Plate) SetModulationRate(hz float64) {
	if setIfFinite(&p.cfg.ModRate, hz, 0, maxModRate) {
		p.lfo.SetRate(p.cfg.ModRate, p.sampleRate)
	}
}

// SetDCCut sets the output high-pass corner in Hz.
func (p *Plate) SetDCCut(freq float64) {
	if setIfFinite(&p.cfg.DCCut, freq, minFilterFreq, 1e6) {
		p.updateDCCut()
	}
}

// Config returns the current voicing.
func (p *Plate) Config() PlateConfig { return p.cfg }

// PreDelay returns the pre-delay in milliseconds.
func (p *Plate) PreDelay() float64 { return p.preDelayMs }

// ProcessBlock renders the plate response of inL/inR into outL/outR.
// Zero-alloc.
func (p *Plate) ProcessBlock(inL, inR, outL, outR []float32) {
	n := blockLen(inL, inR, outL, outR)
	depth := p.cfg.ModDepth * modScale
	damp := p.cfg.LoopDamping

	for i := 0; i < n; i++ {
		p.preL.Write(p.bwL.Process(float64(inL[i])))
		p.preR.Write(p.bwR.Process(float64(inR[i])))
		xl := p.preL.Read(p.preTap)
		xr := p.preR.Read(p.preTap)

		xl = p.inDiff[1].Process(p.inDiff[0].Process(xl)) * plateInputGain
		xr = p.inDiff[3].Process(p.inDiff[2].Process(xr)) * plateInputGain

		s, c := p.lfo.NextQuadrature()
		yl := runCombs(&p.combsL, xl, depth*s, damp)
		yr := runCombs(&p.combsR, xr, depth*c, damp)

		yl = p.dcL.ProcessSample(p.outDiff[0].Process(yl))
		yr = p.dcR.ProcessSample(p.outDiff[1].Process(yr))
		yl, yr = p.widener.ProcessStereo(yl, yr)

		outL[i] = float32(yl)
		outR[i] = float32(yr)
	}
}

// Mute clears all delay, filter and modulation state.
func (p *Plate) Mute() {
	p.preL.Reset()
	p.preR.Reset()
	p.bwL.Reset()
	p.bwR.Reset()
	for i := range p.combsL {
		p.combsL[i].reset()
		p.combsR[i].reset()
	}
	for _, ap := range p.inDiff {
		ap.Reset()
	}
	for _, ap := range p.outDiff {
		ap.Reset()
	}
	p.lfo.Reset()
	p.dcL.Reset()
	p.dcR.Reset()
	p.widener.Reset()
}

func runCombs(combs *[plateCombs]plateComb, x, mod, damp float64) float64 {
	var sum float64
	for i := range combs {
		cb := &combs[i]
		// Alternate modulation polarity so the combs do not move in step.
		m := mod
		if i%2 == 1 {
			m = -mod
		}
		y := cb.line.ReadFractional(cb.len * (1 + m))
		cb.state = dsp.FlushDenormals((1-damp)*y + damp*cb.state)
		cb.line.Write(x + cb.gain*cb.state)
		sum += y
	}
	return sum / plateCombs
}

func newPlateComb(ms, sampleRate float64) (plateComb, error) {
	n := msToSamples(ms, sampleRate)
	line, err := delay.New(int(math.Ceil(n*(1+maxModDepth*modScale))) + 4)
	if err != nil {
		return plateComb{}, err
	}
	return plateComb{line: line, len: n}, nil
}

func (c *plateComb) reset() {
	c.line.Reset()
	c.state = 0
}

func (p *Plate) updateGains() {
	for i := range p.combsL {
		p.combsL[i].gain = feedbackGain(p.combsL[i].len/p.sampleRate, p.cfg.DecayTime)
		p.combsR[i].gain = feedbackGain(p.combsR[i].len/p.sampleRate, p.cfg.DecayTime)
	}
}

func (p *Plate) updateBandwidth() {
	p.bwL.SetCutoff(p.cfg.Bandwidth, p.sampleRate)
	p.bwR.SetCutoff(p.cfg.Bandwidth, p.sampleRate)
}

func (p *Plate) updateDCCut() {
	c := design.Highpass(clampFreq(p.cfg.DCCut, p.sampleRate), 0, p.sampleRate)
	p.dcL.Coefficients, p.dcR.Coefficients = c, c
}

func (p *Plate) updatePreDelay() {
	if p.preL == nil {
		return
	}
	p.preTap = min(int(msToSamples(p.preDelayMs, p.sampleRate)+0.5)+1, p.preL.Len())
}
