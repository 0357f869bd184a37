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
	fdnLines       = 8
	minLateSize    = 0.05
	maxLateSize    = 4.0
	minDecayTime   = 0.05
	maxDecayTime   = 30.0
	maxDiffusion   = 0.9
	maxModDepth    = 0.1
	maxModRate     = 10.0
	modScale       = 0.1 // excursion per unit depth, as a fraction of the line length
	fdnInputGain   = 0.35
	fdnOutputGain  = 0.5
	referenceRate  = 44100.0
	hadamardNormal = 0.35355339059327373 // 1/sqrt(8)
)

// Mutually prime line lengths in samples at 44.1 kHz for a size factor of 1.
var fdnBaseDelays = [fdnLines]float64{1537, 1759, 1999, 2207, 2459, 2693, 2857, 3067}

// Input and output diffuser lengths in samples at 44.1 kHz.
var (
	lateInputDiffusers  = [4]float64{142, 107, 379, 277}
	lateOutputDiffusers = [2]float64{211, 233}
)

// LateConfig is the initial voicing of a LateReverb instance.
type LateConfig struct {
	Width           float64
	Size            float64
	DecayTime       float64
	InputDiffusion  float64
	OutputDiffusion float64
	Damping         float64 // loop lowpass corner in Hz
	OutputDamping   float64 // output lowpass corner in Hz
	DCCut           float64
	ModDepth        float64
	ModRate         float64
}

// DefaultLateConfig returns a medium room tail.
func DefaultLateConfig() LateConfig {
	return LateConfig{
		Width:           1,
		Size:            1,
		DecayTime:       2,
		InputDiffusion:  0.75,
		OutputDiffusion: 0.75,
		Damping:         8000,
		OutputDamping:   8000,
		DCCut:           20,
		ModDepth:        0,
		ModRate:         0.5,
	}
}

// LateReverb is a stereo 8-line feedback delay network with a Hadamard
// feedback matrix, per-line damping and slow delay modulation.
//
// The left input feeds the even lines and the right input the odd ones; the
// outputs are tapped the same way.
type LateReverb struct {
	sampleRate float64
	cfg        LateConfig
	preDelayMs float64

	preTap   int
	baseLen  [fdnLines]float64
	gain     [fdnLines]float64
	lines    [fdnLines]*delay.Line
	damp     [fdnLines]dsp.OnePole
	lfos     [fdnLines / 2]*dsp.LFO
	preL     *delay.Line
	preR     *delay.Line
	inDiff   [4]*dsp.Allpass
	outDiff  [2]*dsp.Allpass
	outDampL dsp.OnePole
	outDampR dsp.OnePole
	dcL      biquad.Section
	dcR      biquad.Section
	widener  *spatial.StereoWidener

	taps [fdnLines]float64
}

// NewLateReverb creates a late reverb tail.
func NewLateReverb(sampleRate float64, cfg LateConfig) (*LateReverb, error) {
	l := &LateReverb{cfg: DefaultLateConfig()}
	for k := range l.lfos {
		l.lfos[k] = dsp.NewLFO(float64(k) * math.Pi / 4)
	}
	l.applyConfig(cfg)
	if err := l.SetSampleRate(sampleRate); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *LateReverb) applyConfig(cfg LateConfig) {
	setIfFinite(&l.cfg.Width, cfg.Width, 0, 1)
	setIfFinite(&l.cfg.Size, cfg.Size, minLateSize, maxLateSize)
	setIfFinite(&l.cfg.DecayTime, cfg.DecayTime, minDecayTime, maxDecayTime)
	setIfFinite(&l.cfg.InputDiffusion, cfg.InputDiffusion, 0, maxDiffusion)
	setIfFinite(&l.cfg.OutputDiffusion, cfg.OutputDiffusion, 0, maxDiffusion)
	setIfFinite(&l.cfg.Damping, cfg.Damping, minFilterFreq, 1e6)
	setIfFinite(&l.cfg.OutputDamping, cfg.OutputDamping, minFilterFreq, 1e6)
	setIfFinite(&l.cfg.DCCut, cfg.DCCut, minFilterFreq, 1e6)
	setIfFinite(&l.cfg.ModDepth, cfg.ModDepth, 0, maxModDepth)
	setIfFinite(&l.cfg.ModRate, cfg.ModRate, 0, maxModRate)
}

// SetSampleRate reallocates all lines for the new rate and clears state.
func (l *LateReverb) SetSampleRate(sampleRate float64) error {
	if err := validateSampleRate(sampleRate); err != nil {
		return err
	}
	scale := sampleRate / referenceRate

	var lines [fdnLines]*delay.Line
	for i, base := range fdnBaseDelays {
		longest := base * scale * maxLateSize * (1 + maxModDepth*modScale)
		line, err := delay.New(int(math.Ceil(longest)) + 4)
		if err != nil {
			return err
		}
		lines[i] = line
	}
	preL, err := newLine(maxPreDelayMs, sampleRate, 2)
	if err != nil {
		return err
	}
	preR, err := newLine(maxPreDelayMs, sampleRate, 2)
	if err != nil {
		return err
	}
	var inDiff [4]*dsp.Allpass
	for i, n := range lateInputDiffusers {
		if inDiff[i], err = newDiffuser(n*scale, l.cfg.InputDiffusion); err != nil {
			return err
		}
	}
	var outDiff [2]*dsp.Allpass
	for i, n := range lateOutputDiffusers {
		if outDiff[i], err = newDiffuser(n*scale, l.cfg.OutputDiffusion); err != nil {
			return err
		}
	}
	if l.widener == nil {
		if l.widener, err = newWidener(sampleRate, l.cfg.Width); err != nil {
			return err
		}
	} else if err := l.widener.SetSampleRate(sampleRate); err != nil {
		return err
	}

	l.sampleRate = sampleRate
	l.lines, l.preL, l.preR = lines, preL, preR
	l.inDiff, l.outDiff = inDiff, outDiff
	l.updateDelays()
	l.updateDamping()
	l.updateOutputDamping()
	l.updateDCCut()
	l.updateModRate()
	l.updatePreDelay()
	l.Mute()
	return nil
}

// SetWidth sets the stereo width in [0,1].
func (l *LateReverb) SetWidth(width float64) {
	if setIfFinite(&l.cfg.Width, width, 0, 1) {
		applyWidth(l.widener, l.cfg.Width)
	}
}

// SetPreDelay sets the delay before the tail in milliseconds.
func (l *LateReverb) SetPreDelay(ms float64) {
	if setIfFinite(&l.preDelayMs, ms, 0, maxPreDelayMs) {
		l.updatePreDelay()
	}
}

// SetSize scales all loop lengths.
func (l *LateReverb) SetSize(factor float64) {
	if setIfFinite(&l.cfg.Size, factor, minLateSize, maxLateSize) {
		l.updateDelays()
	}
}

// SetDecayTime sets the RT60 of the tail in seconds.
func (l *LateReverb) SetDecayTime(seconds float64) {
	if setIfFinite(&l.cfg.DecayTime, seconds, minDecayTime, maxDecayTime) {
		l.updateGains()
	}
}

// SetInputDiffusion sets the gain of the input allpass diffusers.
func (l *LateReverb) SetInputDiffusion(amount float64) {
	if setIfFinite(&l.cfg.InputDiffusion, amount, 0, maxDiffusion) {
		for _, ap := range l.inDiff {
			ap.SetGain(l.cfg.InputDiffusion)
		}
	}
}

// SetOutputDiffusion sets the gain of the output allpass diffusers.
func (l *LateReverb) SetOutputDiffusion(amount float64) {
	if setIfFinite(&l.cfg.OutputDiffusion, amount, 0, maxDiffusion) {
		for _, ap := range l.outDiff {
			ap.SetGain(l.cfg.OutputDiffusion)
		}
	}
}

// SetDamping sets the in-loop lowpass corner in Hz.
func (l *LateReverb) SetDamping(freq float64) {
	if setIfFinite(&l.cfg.Damping, freq, minFilterFreq, 1e6) {
		l.updateDamping()
	}
}

// SetOutputDamping sets the output lowpass corner in Hz.
func (l *LateReverb) SetOutputDamping(freq float64) {
	if setIfFinite(&l.cfg.OutputDamping, freq, minFilterFreq, 1e6) {
		l.updateOutputDamping()
	}
}

// SetModulationDepth sets the delay modulation depth in [0,0.1].
func (l *LateReverb) SetModulationDepth(depth float64) {
	setIfFinite(&l.cfg.ModDepth, depth, 0, maxModDepth)
}

// SetModulationRate sets the delay modulation rate in Hz.
func (l *LateReverb) SetModulationRate(hz float64) {
	if setIfFinite(&l.cfg.ModRate, hz, 0, maxModRate) {
		l.updateModRate()
	}
}

// SetDCCut sets the output high-pass corner in Hz.
func (l *LateReverb) SetDCCut(freq float64) {
	if setIfFinite(&l.cfg.DCCut, freq, minFilterFreq, 1e6) {
		l.updateDCCut()
	}
}

// Config returns the current voicing.
func (l *LateReverb) Config() LateConfig { return l.cfg }

// ProcessBlock renders the tail of inL/inR into outL/outR. Zero-alloc.
func (l *LateReverb) ProcessBlock(inL, inR, outL, outR []float32) {
	n := blockLen(inL, inR, outL, outR)
	depth := l.cfg.ModDepth * modScale

	for i := 0; i < n; i++ {
		l.preL.Write(float64(inL[i]))
		l.preR.Write(float64(inR[i]))
		xl := l.preL.Read(l.preTap)
		xr := l.preR.Read(l.preTap)

		xl = l.inDiff[1].Process(l.inDiff[0].Process(xl)) * fdnInputGain
		xr = l.inDiff[3].Process(l.inDiff[2].Process(xr)) * fdnInputGain

		for k, lfo := range l.lfos {
			s, c := lfo.NextQuadrature()
			a, b := 2*k, 2*k+1
			l.taps[a] = l.lines[a].ReadFractional(l.baseLen[a] * (1 + depth*s))
			l.taps[b] = l.lines[b].ReadFractional(l.baseLen[b] * (1 + depth*c))
		}

		var yl, yr float64
		var fb [fdnLines]float64
		for j := range fb {
			if j%2 == 0 {
				yl += l.taps[j]
			} else {
				yr += l.taps[j]
			}
			fb[j] = l.damp[j].Process(l.taps[j]) * l.gain[j]
		}
		hadamard8(&fb)
		for j, line := range l.lines {
			in := xr
			if j%2 == 0 {
				in = xl
			}
			line.Write(dsp.FlushDenormals(fb[j] + in))
		}

		yl = l.outDiff[0].Process(yl * fdnOutputGain)
		yr = l.outDiff[1].Process(yr * fdnOutputGain)
		yl = l.dcL.ProcessSample(l.outDampL.Process(yl))
		yr = l.dcR.ProcessSample(l.outDampR.Process(yr))
		yl, yr = l.widener.ProcessStereo(yl, yr)

		outL[i] = float32(yl)
		outR[i] = float32(yr)
	}
}

// Mute clears all delay, filter and modulation state.
func (l *LateReverb) Mute() {
	for j := range l.lines {
		l.lines[j].Reset()
		l.damp[j].Reset()
	}
	for _, lfo := range l.lfos {
		lfo.Reset()
	}
	l.preL.Reset()
	l.preR.Reset()
	for _, ap := range l.inDiff {
		ap.Reset()
	}
	for _, ap := range l.outDiff {
		ap.Reset()
	}
	l.outDampL.Reset()
	l.outDampR.Reset()
	l.dcL.Reset()
	l.dcR.Reset()
	l.widener.Reset()
}

func (l *LateReverb) updateDelays() {
	if l.sampleRate <= 0 {
		return
	}
	scale := l.sampleRate / referenceRate * l.cfg.Size
	for j, base := range fdnBaseDelays {
		l.baseLen[j] = max(base*scale, 2)
	}
	l.updateGains()
}

func (l *LateReverb) updateGains() {
	for j := range l.gain {
		l.gain[j] = feedbackGain(l.baseLen[j]/l.sampleRate, l.cfg.DecayTime)
	}
}

func (l *LateReverb) updateDamping() {
	for j := range l.damp {
		l.damp[j].SetCutoff(l.cfg.Damping, l.sampleRate)
	}
}

func (l *LateReverb) updateOutputDamping() {
	l.outDampL.SetCutoff(l.cfg.OutputDamping, l.sampleRate)
	l.outDampR.SetCutoff(l.cfg.OutputDamping, l.sampleRate)
}

func (l *LateReverb) updateDCCut() {
	c := design.Highpass(clampFreq(l.cfg.DCCut, l.sampleRate), 0, l.sampleRate)
	l.dcL.Coefficients, l.dcR.Coefficients = c, c
}

func (l *LateReverb) updateModRate() {
	for k, lfo := range l.lfos {
		lfo.SetRate(l.cfg.ModRate*(1+0.13*float64(k)), l.sampleRate)
	}
}

func (l *LateReverb) updatePreDelay() {
	if l.preL == nil {
		return
	}
	l.preTap = min(int(msToSamples(l.preDelayMs, l.sampleRate)+0.5)+1, l.preL.Len())
}

func newDiffuser(samples, gain float64) (*dsp.Allpass, error) {
	n := max(int(samples+0.5), 1)
	ap, err := dsp.NewAllpass(n)
	if err != nil {
		return nil, err
	}
	ap.SetGain(gain)
	return ap, nil
}

// hadamard8 applies the normalised 8x8 Hadamard matrix in place.
func hadamard8(v *[fdnLines]float64) {
	for h := 1; h < fdnLines; h <<= 1 {
		for i := 0; i < fdnLines; i += h << 1 {
			for j := i; j < i+h; j++ {
				a, b := v[j], v[j+h]
				v[j], v[j+h] = a+b, a-b
			}
		}
	}
	for i := range v {
		v[i] *= hadamardNormal
	}
}

// PreDelay returns the pre-delay in milliseconds.
func (l *LateReverb) PreDelay() float64 { return l.preDelayMs }
