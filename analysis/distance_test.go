package analysis

import (
	"math"
	"math/rand"
	"testing"
)

func TestCompareIdenticalResponsesHasLowDistance(t *testing.T) {
	sr := 48000
	x := makeDecayNoise(sr, 1.5, 0.8, 1)
	m := Compare(x, x, sr)
	if m.Score > 0.01 {
		t.Fatalf("expected near-zero score for identical responses, got %f", m.Score)
	}
	if m.Similarity < 0.95 {
		t.Fatalf("expected high similarity for identical responses, got %f", m.Similarity)
	}
	if m.LagSamples != 0 {
		t.Fatalf("lag: got %d want 0", m.LagSamples)
	}
}

func TestCompareIgnoresGainAndLeadingSilence(t *testing.T) {
	sr := 48000
	ref := makeDecayNoise(sr, 1.5, 0.8, 3)
	cand := make([]float64, 1000+len(ref))
	for i, v := range ref {
		cand[1000+i] = 0.25 * v
	}
	m := Compare(ref, cand, sr)
	if m.Score > 0.01 {
		t.Fatalf("gain/offset should not count, score=%f", m.Score)
	}
}

func TestCompareDifferentDecaysHasHigherDistance(t *testing.T) {
	sr := 48000
	short := makeDecayNoise(sr, 2, 0.3, 5)
	long := makeDecayNoise(sr, 2, 1.5, 5)
	m := Compare(short, long, sr)
	if m.Score < 0.25 {
		t.Fatalf("expected higher score for different decays, got %f", m.Score)
	}
	if m.CandRT60 <= m.RefRT60 {
		t.Fatalf("expected longer candidate RT60: ref=%f cand=%f", m.RefRT60, m.CandRT60)
	}
}

func TestCompareScoreIsMonotonicInDecayMismatch(t *testing.T) {
	sr := 48000
	ref := makeDecayNoise(sr, 2, 0.8, 9)
	near := Compare(ref, makeDecayNoise(sr, 2, 0.9, 9), sr).Score
	far := Compare(ref, makeDecayNoise(sr, 2, 2.0, 9), sr).Score
	if near >= far {
		t.Fatalf("expected closer decay to score lower: near=%f far=%f", near, far)
	}
}

func TestCompareDegenerateInputs(t *testing.T) {
	tests := []struct {
		name string
		ref  []float64
		cand []float64
		sr   int
	}{
		{"empty", nil, nil, 48000},
		{"silent", make([]float64, 4800), make([]float64, 4800), 48000},
		{"too short", []float64{1, 0.5}, []float64{1, 0.5}, 48000},
		{"bad rate", []float64{1}, []float64{1}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := Compare(tc.ref, tc.cand, tc.sr)
			if m.Score != 1 || m.Similarity != 0 {
				t.Fatalf("expected worst score, got score=%f similarity=%f", m.Score, m.Similarity)
			}
		})
	}
}

func TestEstimateLagFindsPositiveShift(t *testing.T) {
	const (
		n      = 8192
		shift  = 237
		maxLag = 600
	)
	ref := randomSignal(n, 7)
	cand := make([]float64, n)
	copy(cand, ref[shift:])

	if got := estimateLag(ref, cand, maxLag); got != shift {
		t.Fatalf("estimateLag() = %d, want %d", got, shift)
	}
}

func TestEstimateLagFindsNegativeShift(t *testing.T) {
	const (
		n      = 8192
		shift  = -191
		maxLag = 600
	)
	ref := randomSignal(n, 11)
	cand := make([]float64, n)
	copy(cand[-shift:], ref)

	if got := estimateLag(ref, cand, maxLag); got != shift {
		t.Fatalf("estimateLag() = %d, want %d", got, shift)
	}
}

func TestBandSpectrumFindsTone(t *testing.T) {
	const sr = 48000
	x := make([]float64, 8192)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * 1500 * float64(i) / sr)
	}
	bands, ok := bandSpectrum(x, sr)
	if !ok {
		t.Fatal("no bands")
	}
	// 1500 Hz falls in the 1000-2000 Hz band.
	loudest := 0
	for i := range bands {
		if bands[i] > bands[loudest] {
			loudest = i
		}
	}
	if bandEdges[loudest] != 1000 {
		t.Fatalf("loudest band starts at %v Hz, want 1000", bandEdges[loudest])
	}
}

func TestDecayMeasuresExponentialRT60(t *testing.T) {
	const sr = 48000
	// Amplitude decays 60 dB over rt60 seconds.
	const rt60 = 1.2
	x := makeDecayNoise(sr, 2.5, rt60/6.907755, 13)

	rep, err := Decay(x, sr)
	if err != nil {
		t.Fatalf("Decay: %v", err)
	}
	if math.Abs(rep.RT60-rt60)/rt60 > 0.15 {
		t.Fatalf("RT60: got %f want ~%f", rep.RT60, rt60)
	}
	if rep.Frames != len(x) || rep.SampleRate != sr {
		t.Fatalf("report header mismatch: %+v", rep)
	}
}

func TestDecayRejectsEmptyResponse(t *testing.T) {
	if _, err := Decay(nil, 48000); err == nil {
		t.Fatal("expected error for empty response")
	}
	if _, _, err := DecayStereo([]float64{1, 0.5}, nil, 48000); err == nil {
		t.Fatal("expected error for empty right channel")
	}
}

// makeDecayNoise returns seeded white noise under an exp(-t/tau) envelope.
func makeDecayNoise(sr int, durationSec float64, tau float64, seed int64) []float64 {
	n := max(int(float64(sr)*durationSec), 1)
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / float64(sr)
		out[i] = math.Exp(-t/tau) * (rng.Float64()*2 - 1)
	}
	return out
}

func randomSignal(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()*2 - 1
	}
	return out
}

func TestCompareReportsDominantComponent(t *testing.T) {
	if sum := WeightTime + WeightEnvelope + WeightEarly + WeightLate + WeightRT60; math.Abs(sum-1) > 1e-12 {
		t.Fatalf("weights sum to %v", sum)
	}
	sr := 48000
	m := Compare(makeDecayNoise(sr, 2, 0.3, 5), makeDecayNoise(sr, 2, 1.5, 5), sr)
	if m.Dominant == "" {
		t.Fatal("no dominant component for differing decays")
	}
	want := WeightTime*m.TimeNorm + WeightEnvelope*m.EnvelopeNorm + WeightEarly*m.EarlyNorm +
		WeightLate*m.LateNorm + WeightRT60*m.RT60Norm
	if math.Abs(m.Score-want) > 1e-12 {
		t.Fatalf("score %v is not the weighted sum %v", m.Score, want)
	}
}
