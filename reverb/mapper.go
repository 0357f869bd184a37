package reverb

import "math"

const (
	hallSizeScale  = 1.5
	hallDecayScale = 1.5
	plateModScale  = 1.5

	maxDampingFreq  = 20000.0
	maxModDepth     = 0.05
	minModRate      = 0.1
	modRateRange    = 2.0
	diffusionStages = 10
)

// Allpass corner frequency of each early-reflection network as base+f*span
// for a diffusion amount f in [0,1].
var (
	roomEarlyCorner = corner{150, 350}
	hallEarlyCorner = corner{100, 400}
	earlyOnlyCorner = corner{200, 300}
)

type corner struct{ base, span float64 }

func (c corner) at(f float64) float64 { return c.base + f*c.span }

// MixLevels are the linear gains of the three signal paths.
type MixLevels struct {
	Dry   float32
	Early float32
	Late  float32
}

// mapper translates parameter values into collaborator updates. It runs on
// the audio thread.
type mapper struct {
	bank    *Bank
	mix     MixLevels
	variant Variant
}

// apply maps one parameter write. It reports whether the collaborators must
// be flushed before further rendering.
func (m *mapper) apply(id ParamID, value float32) bool {
	b := m.bank
	v := float64(value)

	switch id {
	case ParamType:
		m.variant = variantFromValue(value)
		return true

	case ParamDry:
		m.mix.Dry = float32(v / 100)
	case ParamEarly:
		m.mix.Early = float32(v / 100)
	case ParamLate:
		m.mix.Late = float32(v / 100)

	case ParamSize:
		s := v / 50
		b.RoomEarly.SetSize(s)
		b.RoomLate.SetSize(s)
		b.HallEarly.SetSize(s * hallSizeScale)
		b.HallLate.SetSize(s * hallSizeScale)
		b.EarlyOnly.SetSize(s)

	case ParamWidth:
		w := v / 100
		for _, p := range b.all() {
			p.SetWidth(w)
		}

	case ParamPreDelay:
		for _, p := range b.all() {
			p.SetPreDelay(v)
		}

	case ParamDecay:
		b.RoomLate.SetDecayTime(v)
		b.HallLate.SetDecayTime(v * hallDecayScale)
		b.Plate.SetDecayTime(v)

	case ParamDiffuse:
		f := v / 100
		stages := diffusionStageCount(f)
		b.RoomLate.SetInputDiffusion(f)
		b.RoomLate.SetOutputDiffusion(f)
		b.HallLate.SetInputDiffusion(f)
		b.HallLate.SetOutputDiffusion(f)
		b.Plate.SetDiffusion(f)
		b.RoomEarly.SetDiffusionAllpass(roomEarlyCorner.at(f), stages)
		b.HallEarly.SetDiffusionAllpass(hallEarlyCorner.at(f), stages)
		b.EarlyOnly.SetDiffusionAllpass(earlyOnlyCorner.at(f), stages)

	case ParamDamping:
		freq := dampingCutoff(v)
		b.RoomLate.SetDamping(freq)
		b.RoomLate.SetOutputDamping(freq)
		b.HallLate.SetDamping(freq)
		b.HallLate.SetOutputDamping(freq)
		b.Plate.SetBandwidth(freq)

	case ParamModulation:
		depth, rate := modulation(v)
		b.HallLate.SetModulationDepth(depth)
		b.HallLate.SetModulationRate(rate)
		b.Plate.SetModulationDepth(depth * plateModScale)
		b.Plate.SetModulationRate(rate * plateModScale)

	case ParamLowCut:
		b.RoomEarly.SetOutputHighPass(v)
		b.HallEarly.SetOutputHighPass(v)
		b.EarlyOnly.SetOutputHighPass(v)
		b.RoomLate.SetDCCut(v)
		b.HallLate.SetDCCut(v)
		b.Plate.SetDCCut(v)

	case ParamHighCut:
		b.RoomEarly.SetOutputLowPass(v)
		b.HallEarly.SetOutputLowPass(v)
		b.EarlyOnly.SetOutputLowPass(v)
	}
	return false
}

// dampingCutoff maps damping percent to a lowpass corner: 0 % is fully open
// at 20 kHz, 100 % closes to 0 Hz.
func dampingCutoff(percent float64) float64 {
	return maxDampingFreq * (1 - percent/100)
}

// modulation maps a modulation percent to depth (0..0.05) and rate
// (0.1..2.1 Hz).
func modulation(percent float64) (depth, rate float64) {
	x := percent / 100
	return x * maxModDepth, minModRate + x*modRateRange
}

// diffusionStageCount is round(f*10) for finite input. Non-finite amounts map
// to zero stages; the collaborator ignores the matching frequency anyway.
func diffusionStageCount(f float64) int {
	n := math.Round(f * diffusionStages)
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return int(max(min(n, math.MaxInt32), math.MinInt32))
}
