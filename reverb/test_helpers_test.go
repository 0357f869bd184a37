package reverb

import (
	"math"
	"testing"
)

// fakeProcessor records every setter call and renders constant levels so
// dispatch and mixing can be checked exactly. It satisfies all three
// collaborator interfaces.
type fakeProcessor struct {
	rate     float64
	rateErr  error
	width    float64
	preDelay float64

	size       float64
	decay      float64
	inDiff     float64
	outDiff    float64
	diffusion  float64
	damping    float64
	outDamping float64
	bandwidth  float64
	modDepth   float64
	modRate    float64
	dcCut      float64
	diffFreq   float64
	diffStages int
	highPass   float64
	lowPass    float64

	levelL, levelR float32
	mutes          int
	blocks         int
}

func (f *fakeProcessor) SetSampleRate(sr float64) error {
	if f.rateErr != nil {
		return f.rateErr
	}
	f.rate = sr
	return nil
}
func (f *fakeProcessor) SetWidth(w float64) { f.width = w }
func (f *fakeProcessor) SetPreDelay(ms float64) { f.preDelay = ms }
func (f *fakeProcessor) SetSize(s float64) { f.size = s }
func (f *fakeProcessor) SetDecayTime(s float64) { f.decay = s }
func (f *fakeProcessor) SetInputDiffusion(a float64) { f.inDiff = a }
func (f *fakeProcessor) SetOutputDiffusion(a float64) { f.outDiff = a }
func (f *fakeProcessor) SetDiffusion(a float64) { f.diffusion = a }
func (f *fakeProcessor) SetDamping(hz float64) { f.damping = hz }
func (f *fakeProcessor) SetOutputDamping(hz float64) { f.outDamping = hz }
func (f *fakeProcessor) SetBandwidth(hz float64) { f.bandwidth = hz }
func (f *fakeProcessor) SetModulationDepth(d float64) { f.modDepth = d }
func (f *fakeProcessor) SetModulationRate(hz float64) { f.modRate = hz }
func (f *fakeProcessor) SetDCCut(hz float64) { f.dcCut = hz }
func (f *fakeProcessor) SetOutputHighPass(hz float64) { f.highPass = hz }
func (f *fakeProcessor) SetOutputLowPass(hz float64) { f.lowPass = hz }
func (f *fakeProcessor) Mute() { f.mutes++ }
func (f *fakeProcessor) SetDiffusionAllpass(hz float64, stages int) {
	f.diffFreq, f.diffStages = hz, stages
}

func (f *fakeProcessor) ProcessBlock(inL, inR, outL, outR []float32) {
	f.blocks++
	for i := range inL {
		outL[i] = f.levelL
		outR[i] = f.levelR
	}
}

type fakeBank struct {
	roomEarly, roomLate, hallEarly, hallLate, plate, earlyOnly *fakeProcessor
}

func newFakeBank() (*fakeBank, *Bank) {
	fb := &fakeBank{
		roomEarly: &fakeProcessor{levelL: 0.1, levelR: 0.2},
		roomLate:  &fakeProcessor{levelL: 0.3, levelR: 0.4},
		hallEarly: &fakeProcessor{levelL: 1, levelR: 2},
		hallLate:  &fakeProcessor{levelL: 10, levelR: 20},
		plate:     &fakeProcessor{levelL: 0.5, levelR: -0.5},
		earlyOnly: &fakeProcessor{levelL: 0.7, levelR: -0.7},
	}
	return fb, &Bank{
		RoomEarly: fb.roomEarly,
		RoomLate:  fb.roomLate,
		HallEarly: fb.hallEarly,
		HallLate:  fb.hallLate,
		Plate:     fb.plate,
		EarlyOnly: fb.earlyOnly,
	}
}

func (fb *fakeBank) all() []*fakeProcessor {
	return []*fakeProcessor{fb.roomEarly, fb.roomLate, fb.hallEarly, fb.hallLate, fb.plate, fb.earlyOnly}
}

func (fb *fakeBank) totalMutes() int {
	n := 0
	for _, p := range fb.all() {
		n += p.mutes
	}
	return n
}

func newFakeEngine(t *testing.T) (*Engine, *fakeBank) {
	t.Helper()
	fb, bank := newFakeBank()
	e, err := NewEngine(48000, WithBank(bank))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e, fb
}

func newRealEngine(t *testing.T, sampleRate float64) *Engine {
	t.Helper()
	e, err := NewEngine(sampleRate)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func stereo(frames int) [][]float32 {
	return [][]float32{make([]float32, frames), make([]float32, frames)}
}

func impulse(frames int) [][]float32 {
	buf := stereo(frames)
	buf[0][0], buf[1][0] = 1, 1
	return buf
}

// noise returns a deterministic pseudo-random stereo signal.
func noise(frames int) [][]float32 {
	buf := stereo(frames)
	var seed uint32 = 12345
	for i := 0; i < frames; i++ {
		for ch := range buf {
			seed = seed*1664525 + 1013904223
			buf[ch][i] = float32(int32(seed)) / float32(math.MaxInt32) * 0.5
		}
	}
	return buf
}

func fill(x []float32, v float32) {
	for i := range x {
		x[i] = v
	}
}

func finite(x []float32) bool {
	for _, v := range x {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}
