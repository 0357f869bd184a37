package main

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-reverb/reverb"
)

func newTestEngine(t *testing.T, variant reverb.Variant) *reverb.Engine {
	t.Helper()
	e, err := reverb.NewEngine(48000)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.SetParameter(uint32(reverb.ParamType), float32(variant))
	return e
}

func TestRenderAppendsTail(t *testing.T) {
	inL, inR := impulse(1)
	outL, outR := render(newTestEngine(t, reverb.VariantRoom), inL, inR, renderConfig{
		tailFrames: 4800,
		blockSize:  512,
		decayDBFS:  math.Inf(1),
	})
	if len(outL) != 4801 || len(outR) != 4801 {
		t.Fatalf("frames: got %d/%d want 4801", len(outL), len(outR))
	}
	var energy float64
	for i := 1; i < len(outL); i++ {
		energy += float64(outL[i]) * float64(outL[i])
	}
	if energy == 0 {
		t.Fatal("tail is silent")
	}
}

func TestRenderIsIndependentOfHostBlockSize(t *testing.T) {
	inL, inR := impulse(1)
	cfg := renderConfig{tailFrames: 3000, decayDBFS: math.Inf(1)}

	cfg.blockSize = 64
	refL, refR := render(newTestEngine(t, reverb.VariantHall), inL, inR, cfg)
	for _, block := range []int{1, 333, 4096} {
		cfg.blockSize = block
		gotL, gotR := render(newTestEngine(t, reverb.VariantHall), inL, inR, cfg)
		for i := range refL {
			if gotL[i] != refL[i] || gotR[i] != refR[i] {
				t.Fatalf("block %d: frame %d differs", block, i)
			}
		}
	}
}

func TestRenderAutoStopsOnSilence(t *testing.T) {
	e := newTestEngine(t, reverb.VariantEarly)
	inL, inR := impulse(1)
	outL, _ := render(e, inL, inR, renderConfig{
		tailFrames:      48000 * 10,
		blockSize:       256,
		decayDBFS:       -60,
		decayHoldBlocks: 4,
	})
	if len(outL) >= 48000*10 {
		t.Fatalf("expected early stop, rendered %d frames", len(outL))
	}
	if len(outL) < 4*256 {
		t.Fatalf("stopped before hold blocks elapsed: %d frames", len(outL))
	}
}

func TestParamMapUsesSymbols(t *testing.T) {
	m := paramMap(reverb.NewDefaultParams())
	if len(m) != reverb.ParamCount {
		t.Fatalf("got %d entries want %d", len(m), reverb.ParamCount)
	}
	if m["highcut"] != 16000 || m["decay"] != 2 {
		t.Fatalf("unexpected values: %v", m)
	}
}
