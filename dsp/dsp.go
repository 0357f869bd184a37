package dsp

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/delay"
)

// OnePole is a first-order lowpass used for loop and bandwidth damping
// (no heap allocations in Process).
type OnePole struct {
	a float64 // feedback coefficient
	b float64 // input coefficient
	z float64
}

// NewOnePole creates a lowpass with the given cutoff.
func NewOnePole(cutoff, sampleRate float64) *OnePole {
	p := &OnePole{}
	p.SetCutoff(cutoff, sampleRate)
	return p
}

// SetCutoff recomputes the coefficient. Cutoffs at or above Nyquist open the
// filter completely, non-positive cutoffs close it to a very low corner.
func (p *OnePole) SetCutoff(cutoff, sampleRate float64) {
	if sampleRate <= 0 {
		return
	}
	if cutoff >= sampleRate*0.5 {
		p.a, p.b = 0, 1
		return
	}
	if cutoff < 1 {
		cutoff = 1
	}
	p.a = math.Exp(-2 * math.Pi * cutoff / sampleRate)
	p.b = 1 - p.a
}

// Process filters one sample.
func (p *OnePole) Process(x float64) float64 {
	p.z = FlushDenormals(p.b*x + p.a*p.z)
	return p.z
}

// Reset clears the filter state.
func (p *OnePole) Reset() {
	p.z = 0
}

// Allpass is a Schroeder allpass section over a fixed-capacity delay line.
type Allpass struct {
	line  *delay.Line
	delay int
	gain  float64
}

// NewAllpass allocates an allpass able to hold up to maxDelay samples.
func NewAllpass(maxDelay int) (*Allpass, error) {
	line, err := delay.New(maxDelay + 1)
	if err != nil {
		return nil, err
	}
	return &Allpass{line: line, delay: maxDelay, gain: 0.5}, nil
}

// SetDelay sets the loop delay in samples, clamped to the allocated capacity.
func (a *Allpass) SetDelay(samples int) {
	if samples < 1 {
		samples = 1
	}
	if limit := a.line.Len() - 1; samples > limit {
		samples = limit
	}
	a.delay = samples
}

// SetGain sets the allpass coefficient.
func (a *Allpass) SetGain(g float64) {
	a.gain = g
}

// Process runs one sample through the section.
func (a *Allpass) Process(x float64) float64 {
	delayed := a.line.Read(a.delay)
	w := FlushDenormals(x + a.gain*delayed)
	a.line.Write(w)
	return delayed - a.gain*w
}

// Reset clears the delay line.
func (a *Allpass) Reset() {
	a.line.Reset()
}

// LFO is a sine oscillator driven by a phase accumulator.
type LFO struct {
	phase float64
	inc   float64
	start float64
}

// NewLFO creates an oscillator starting at phase (radians).
func NewLFO(phase float64) *LFO {
	return &LFO{phase: phase, start: phase}
}

// SetRate sets the oscillator frequency.
func (l *LFO) SetRate(hz, sampleRate float64) {
	if sampleRate <= 0 {
		return
	}
	l.inc = 2 * math.Pi * hz / sampleRate
}

// Next returns the current value in [-1,1] and advances the phase.
func (l *LFO) Next() float64 {
	v := math.Sin(l.phase)
	l.phase += l.inc
	if l.phase >= 2*math.Pi {
		l.phase -= 2 * math.Pi
	}
	return v
}

// NextQuadrature returns sine and cosine of the current phase and advances it.
func (l *LFO) NextQuadrature() (float64, float64) {
	s, c := math.Sincos(l.phase)
	l.phase += l.inc
	if l.phase >= 2*math.Pi {
		l.phase -= 2 * math.Pi
	}
	return s, c
}

// Reset returns the oscillator to its start phase.
func (l *LFO) Reset() {
	l.phase = l.start
}

// FlushDenormals converts denormal numbers to zero to avoid performance issues
func FlushDenormals(x float64) float64 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0.0
	}
	return x
}

// IsFinite reports whether x is neither NaN nor infinite.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
