package reverb

import (
	"math"
	"testing"
)

func prefillNaN(s *scratch) {
	nan := float32(math.NaN())
	fill(s.earlyL[:], nan)
	fill(s.earlyR[:], nan)
	fill(s.lateL[:], nan)
	fill(s.lateR[:], nan)
}

func TestEveryPathWritesBothBuffers(t *testing.T) {
	_, bank := newFakeBank()
	ps := newPaths(bank)
	in := noise(BlockSize)

	for _, v := range []Variant{VariantRoom, VariantHall, VariantPlate, VariantEarly} {
		for _, n := range []int{1, 77, BlockSize} {
			var s scratch
			prefillNaN(&s)
			ps.forVariant(v).render(in[0][:n], in[1][:n], &s)
			for name, buf := range map[string][]float32{
				"earlyL": s.earlyL[:n], "earlyR": s.earlyR[:n],
				"lateL": s.lateL[:n], "lateR": s.lateR[:n],
			} {
				if !finite(buf) {
					t.Fatalf("%v n=%d: %s not fully written", v, n, name)
				}
			}
		}
	}
}

func TestHallBlendsIntoEarlyBuffer(t *testing.T) {
	fb, bank := newFakeBank()
	ps := newPaths(bank)
	in := noise(BlockSize)

	var s scratch
	prefillNaN(&s)
	ps.forVariant(VariantHall).render(in[0], in[1], &s)

	wantL := 0.3*float64(fb.hallEarly.levelL) + 0.7*float64(fb.hallLate.levelL)
	wantR := 0.3*float64(fb.hallEarly.levelR) + 0.7*float64(fb.hallLate.levelR)
	for i := 0; i < BlockSize; i++ {
		if !approxEqual(float64(s.earlyL[i]), wantL, 1e-5) || !approxEqual(float64(s.earlyR[i]), wantR, 1e-5) {
			t.Fatalf("frame %d: early got (%v,%v) want (%v,%v)", i, s.earlyL[i], s.earlyR[i], wantL, wantR)
		}
		if s.lateL[i] != 0 || s.lateR[i] != 0 {
			t.Fatalf("frame %d: late buffer not zero: (%v,%v)", i, s.lateL[i], s.lateR[i])
		}
	}
	if fb.roomEarly.blocks != 0 || fb.plate.blocks != 0 {
		t.Fatal("inactive collaborators were rendered")
	}
}

func TestSingleStagePathsZeroLateBuffer(t *testing.T) {
	fb, bank := newFakeBank()
	ps := newPaths(bank)
	in := noise(BlockSize)

	tests := []struct {
		variant Variant
		src     *fakeProcessor
	}{
		{VariantPlate, fb.plate},
		{VariantEarly, fb.earlyOnly},
	}
	for _, tc := range tests {
		t.Run(tc.variant.String(), func(t *testing.T) {
			var s scratch
			prefillNaN(&s)
			ps.forVariant(tc.variant).render(in[0], in[1], &s)
			for i := 0; i < BlockSize; i++ {
				if s.lateL[i] != 0 || s.lateR[i] != 0 {
					t.Fatalf("frame %d: late buffer not zero", i)
				}
				if s.earlyL[i] != tc.src.levelL || s.earlyR[i] != tc.src.levelR {
					t.Fatalf("frame %d: early got (%v,%v)", i, s.earlyL[i], s.earlyR[i])
				}
			}
		})
	}
}

func TestRoomKeepsLayersSeparate(t *testing.T) {
	fb, bank := newFakeBank()
	ps := newPaths(bank)
	in := noise(64)

	var s scratch
	ps.forVariant(VariantRoom).render(in[0], in[1], &s)
	for i := 0; i < 64; i++ {
		if s.earlyL[i] != fb.roomEarly.levelL || s.lateR[i] != fb.roomLate.levelR {
			t.Fatalf("frame %d: early %v late %v", i, s.earlyL[i], s.lateR[i])
		}
	}
}

func TestMixCombinesThreePaths(t *testing.T) {
	in := []float32{1, -0.5, 0.25, 0}
	early := []float32{0.5, 0.5, -1, 2}
	late := []float32{-0.25, 1, 0, 4}
	out := make([]float32, len(in))

	levels := MixLevels{Dry: 1, Early: 0.5, Late: 0.25}
	mix(levels, in, early, late, out)

	want := []float32{1.1875, 0, -0.25, 2}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("frame %d: got %v want %v", i, out[i], want[i])
		}
	}
}

func TestMixDoesNotLimit(t *testing.T) {
	in := []float32{1}
	out := make([]float32, 1)
	mix(MixLevels{Dry: 1, Early: 1, Late: 1}, in, []float32{1}, []float32{1}, out)
	if out[0] != 3 {
		t.Fatalf("expected unlimited sum 3, got %v", out[0])
	}
}
