package reverb

import (
	"fmt"

	"github.com/cwbudde/algo-reverb/kernel"
)

// Processor is the capability set shared by every reverb collaborator.
// Setters must be real-time safe: no allocation, no locking.
type Processor interface {
	SetSampleRate(sampleRate float64) error
	SetWidth(width float64)
	SetPreDelay(ms float64)
	ProcessBlock(inL, inR, outL, outR []float32)
	Mute()
}

// EarlyProcessor renders early reflections.
type EarlyProcessor interface {
	Processor
	SetSize(factor float64)
	SetDiffusionAllpass(freq float64, stages int)
	SetOutputHighPass(freq float64)
	SetOutputLowPass(freq float64)
}

// LateProcessor renders a late reverb tail.
type LateProcessor interface {
	Processor
	SetSize(factor float64)
	SetDecayTime(seconds float64)
	SetInputDiffusion(amount float64)
	SetOutputDiffusion(amount float64)
	SetDamping(freq float64)
	SetOutputDamping(freq float64)
	SetModulationDepth(depth float64)
	SetModulationRate(hz float64)
	SetDCCut(freq float64)
}

// PlateProcessor renders a combined plate response.
type PlateProcessor interface {
	Processor
	SetDecayTime(seconds float64)
	SetDiffusion(amount float64)
	SetBandwidth(freq float64)
	SetModulationDepth(depth float64)
	SetModulationRate(hz float64)
	SetDCCut(freq float64)
}

// Bank holds the six collaborator slots of an engine.
type Bank struct {
	RoomEarly EarlyProcessor
	RoomLate  LateProcessor
	HallEarly EarlyProcessor
	HallLate  LateProcessor
	Plate     PlateProcessor
	EarlyOnly EarlyProcessor
}

// all returns the slots in a fixed order.
func (b *Bank) all() [6]Processor {
	return [6]Processor{b.RoomEarly, b.RoomLate, b.HallEarly, b.HallLate, b.Plate, b.EarlyOnly}
}

func (b *Bank) complete() bool {
	for _, p := range b.all() {
		if p == nil {
			return false
		}
	}
	return true
}

// NewDefaultBank builds the six collaborators from package kernel with their
// per-variant voicing.
func NewDefaultBank(sampleRate float64) (*Bank, error) {
	roomEarly, err := kernel.NewEarlyReflections(sampleRate, kernel.EarlyConfig{
		Preset: kernel.EarlyPresetRoom, Width: 0.8, LRDelay: 0.3,
		CrossFreq: 750, CrossStages: 4, DiffusionFreq: 150, DiffusionStages: 4,
	})
	if err != nil {
		return nil, fmt.Errorf("room early: %w", err)
	}
	hallEarly, err := kernel.NewEarlyReflections(sampleRate, kernel.EarlyConfig{
		Preset: kernel.EarlyPresetHall, Width: 1, LRDelay: 0.5,
		CrossFreq: 500, CrossStages: 4, DiffusionFreq: 100, DiffusionStages: 4,
	})
	if err != nil {
		return nil, fmt.Errorf("hall early: %w", err)
	}
	earlyOnly, err := kernel.NewEarlyReflections(sampleRate, kernel.EarlyConfig{
		Preset: kernel.EarlyPresetSparse, Width: 1, LRDelay: 0.2,
		CrossFreq: 1000, CrossStages: 4, DiffusionFreq: 200, DiffusionStages: 4,
	})
	if err != nil {
		return nil, fmt.Errorf("early only: %w", err)
	}

	roomLate, err := kernel.NewLateReverb(sampleRate, kernel.DefaultLateConfig())
	if err != nil {
		return nil, fmt.Errorf("room late: %w", err)
	}
	hallCfg := kernel.DefaultLateConfig()
	hallCfg.Size = 2.5
	hallCfg.DecayTime = 3
	hallCfg.InputDiffusion = 0.85
	hallCfg.OutputDiffusion = 0.85
	hallCfg.Damping = 6000
	hallCfg.OutputDamping = 6000
	hallCfg.DCCut = 100
	hallCfg.ModDepth = 0.02
	hallCfg.ModRate = 0.5
	hallLate, err := kernel.NewLateReverb(sampleRate, hallCfg)
	if err != nil {
		return nil, fmt.Errorf("hall late: %w", err)
	}

	plate, err := kernel.NewPlate(sampleRate, kernel.DefaultPlateConfig())
	if err != nil {
		return nil, fmt.Errorf("plate: %w", err)
	}

	return &Bank{
		RoomEarly: roomEarly,
		RoomLate:  roomLate,
		HallEarly: hallEarly,
		HallLate:  hallLate,
		Plate:     plate,
		EarlyOnly: earlyOnly,
	}, nil
}
