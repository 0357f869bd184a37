// Package analysis compares reverb impulse responses and measures their
// decay.
package analysis

import (
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-dsp/measure/ir"
	algofft "github.com/cwbudde/algo-fft"
)

const (
	onsetThreshold = 1e-6
	envFrame       = 256
	envHop         = 128
	fftSize        = 2048
	maxCompareSec  = 8
	earlyWindowSec = 0.08
)

// Score weights of the distance components. They sum to 1.
const (
	WeightTime     = 0.15
	WeightEnvelope = 0.25
	WeightEarly    = 0.15
	WeightLate     = 0.20
	WeightRT60     = 0.25
)

// Octave band edges in Hz used for the spectral distance.
var bandEdges = []float64{63, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}

// Metrics contains distance measurements between two impulse responses.
type Metrics struct {
	SampleRate int `json:"sample_rate"`

	ReferenceFrames int `json:"reference_frames"`
	CandidateFrames int `json:"candidate_frames"`
	AlignedFrames   int `json:"aligned_frames"`
	LagSamples      int `json:"lag_samples"`

	TimeRMSE       float64 `json:"time_rmse"`
	EnvelopeRMSEDB float64 `json:"envelope_rmse_db"`
	EarlyBandDB    float64 `json:"early_band_rmse_db"`
	LateBandDB     float64 `json:"late_band_rmse_db"`
	RefRT60        float64 `json:"ref_rt60_s"`
	CandRT60       float64 `json:"cand_rt60_s"`
	RT60Error      float64 `json:"rt60_rel_error"`

	TimeNorm     float64 `json:"time_norm"`
	EnvelopeNorm float64 `json:"envelope_norm"`
	EarlyNorm    float64 `json:"early_norm"`
	LateNorm     float64 `json:"late_norm"`
	RT60Norm     float64 `json:"rt60_norm"`
	Dominant     string  `json:"dominant"`

	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

// Compare returns distance metrics and a combined score in [0,1] (0 means
// identical). Both responses are aligned on their onset and RMS-normalised
// first, so overall gain does not count.
func Compare(reference []float64, candidate []float64, sampleRate int) Metrics {
	m := Metrics{
		SampleRate:      sampleRate,
		ReferenceFrames: len(reference),
		CandidateFrames: len(candidate),
		Score:           1,
	}
	if sampleRate <= 0 {
		return m
	}

	ref := normalizeRMS(trimLeadingSilence(reference, onsetThreshold), 0.1)
	cand := normalizeRMS(trimLeadingSilence(candidate, onsetThreshold), 0.1)
	if len(ref) < envFrame*2 || len(cand) < envFrame*2 {
		return m
	}

	// Onsets are already trimmed; a short search window around them suffices.
	window := sampleRate / 10
	maxLag := min(sampleRate/100, len(ref)-1, len(cand)-1)
	m.LagSamples = estimateLag(ref[:min(window, len(ref))], cand[:min(window, len(cand))], max(maxLag, 1))
	refA, candA := alignByLag(ref, cand, m.LagSamples)
	n := min(len(refA), len(candA), sampleRate*maxCompareSec)
	if n < envFrame*2 {
		return m
	}
	refA, candA = refA[:n], candA[:n]
	m.AlignedFrames = n

	m.TimeRMSE = rmse(refA, candA)
	m.EnvelopeRMSEDB = envelopeDistanceDB(refA, candA)

	split := int(earlyWindowSec * float64(sampleRate))
	m.EarlyBandDB = bandDistanceDB(refA[:min(split, n)], candA[:min(split, n)], sampleRate)
	if split < n {
		m.LateBandDB = bandDistanceDB(refA[split:], candA[split:], sampleRate)
	}

	m.RefRT60 = rt60(refA, sampleRate)
	m.CandRT60 = rt60(candA, sampleRate)
	switch {
	case m.RefRT60 > 0 && m.CandRT60 > 0:
		m.RT60Error = math.Abs(m.CandRT60-m.RefRT60) / m.RefRT60
	case m.RefRT60 != m.CandRT60:
		m.RT60Error = 1
	}

	m.TimeNorm = clamp01(m.TimeRMSE / 0.25)
	m.EnvelopeNorm = clamp01(m.EnvelopeRMSEDB / 30)
	m.EarlyNorm = clamp01(m.EarlyBandDB / 20)
	m.LateNorm = clamp01(m.LateBandDB / 20)
	m.RT60Norm = clamp01(m.RT60Error / 0.5)

	parts := []struct {
		name    string
		contrib float64
	}{
		{"time", WeightTime * m.TimeNorm},
		{"envelope", WeightEnvelope * m.EnvelopeNorm},
		{"early", WeightEarly * m.EarlyNorm},
		{"late", WeightLate * m.LateNorm},
		{"rt60", WeightRT60 * m.RT60Norm},
	}
	var score, top float64
	for _, p := range parts {
		score += p.contrib
		if p.contrib > top {
			top, m.Dominant = p.contrib, p.name
		}
	}
	m.Score = clamp01(score)
	m.Similarity = clamp01(math.Exp(-4 * m.Score))
	return m
}

// CompareStereo averages the per-channel scores of two stereo responses.
func CompareStereo(refL, refR, candL, candR []float64, sampleRate int) (Metrics, Metrics, float64) {
	l := Compare(refL, candL, sampleRate)
	r := Compare(refR, candR, sampleRate)
	return l, r, 0.5 * (l.Score + r.Score)
}

func rt60(x []float64, sampleRate int) float64 {
	metrics, err := ir.NewAnalyzer(float64(sampleRate)).Analyze(x)
	if err != nil {
		return 0
	}
	return metrics.RT60
}

func trimLeadingSilence(x []float64, threshold float64) []float64 {
	for i, v := range x {
		if math.Abs(v) > threshold {
			return x[i:]
		}
	}
	return nil
}

func normalizeRMS(x []float64, target float64) []float64 {
	out := make([]float64, len(x))
	r := rms1(x)
	if r <= 1e-12 {
		copy(out, x)
		return out
	}
	g := target / r
	for i, v := range x {
		out[i] = v * g
	}
	return out
}

// estimateLag returns the shift of cand against ref that maximises their
// correlation, searched over [-maxLag, maxLag].
func estimateLag(ref []float64, cand []float64, maxLag int) int {
	bestLag := 0
	best := math.Inf(-1)
	for lag := -maxLag; lag <= maxLag; lag++ {
		if s := dotAtLag(ref, cand, lag); s > best {
			best, bestLag = s, lag
		}
	}
	return bestLag
}

func dotAtLag(a []float64, b []float64, lag int) float64 {
	ai, bi := 0, 0
	if lag >= 0 {
		ai = lag
	} else {
		bi = -lag
	}
	n := min(len(a)-ai, len(b)-bi)
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[ai+i] * b[bi+i]
	}
	return sum
}

func alignByLag(ref []float64, cand []float64, lag int) ([]float64, []float64) {
	if lag >= 0 {
		if lag >= len(ref) {
			return nil, nil
		}
		return ref[lag:], cand
	}
	if -lag >= len(cand) {
		return nil, nil
	}
	return ref, cand[-lag:]
}

func rmse(a []float64, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

func rms1(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func rmsEnvelope(x []float64, frame int, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(x) < frame {
		return nil
	}
	out := make([]float64, 1+(len(x)-frame)/hop)
	for i := range out {
		start := i * hop
		out[i] = rms1(x[start : start+frame])
	}
	return out
}

// envelopeDistanceDB is the RMS difference of the two dB envelopes. Frames
// where both responses are below -100 dB are skipped so the noise floor does
// not dominate.
func envelopeDistanceDB(a, b []float64) float64 {
	ea := rmsEnvelope(a, envFrame, envHop)
	eb := rmsEnvelope(b, envFrame, envHop)
	n := min(len(ea), len(eb))
	var sum float64
	var count int
	for i := 0; i < n; i++ {
		da, db := linToDB(ea[i]), linToDB(eb[i])
		if da < -100 && db < -100 {
			continue
		}
		d := da - db
		sum += d * d
		count++
	}
	if count == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(count))
}

// bandDistanceDB compares average octave-band magnitudes of a and b over
// Hann-windowed FFT frames.
func bandDistanceDB(a, b []float64, sampleRate int) float64 {
	ba, ok := bandSpectrum(a, sampleRate)
	if !ok {
		return 0
	}
	bb, ok := bandSpectrum(b, sampleRate)
	if !ok {
		return 0
	}
	var sum float64
	for i := range ba {
		d := linToDB(ba[i]) - linToDB(bb[i])
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(ba)))
}

func bandSpectrum(x []float64, sampleRate int) ([]float64, bool) {
	if len(x) == 0 || sampleRate <= 0 {
		return nil, false
	}
	plan, err := algofft.NewPlanReal64(fftSize)
	if err != nil {
		return nil, false
	}

	hann := make([]float64, fftSize)
	for i := range hann {
		hann[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(fftSize-1))
	}
	buf := make([]float64, fftSize)
	spec := make([]complex128, fftSize/2+1)
	mag := make([]float64, fftSize/2+1)

	frames := 0
	for pos := 0; pos == 0 || pos+fftSize <= len(x); pos += fftSize / 2 {
		clear(buf)
		for i := 0; i < fftSize && pos+i < len(x); i++ {
			buf[i] = x[pos+i] * hann[i]
		}
		plan.Forward(spec, buf)
		for k := range mag {
			mag[k] += cmplx.Abs(spec[k])
		}
		frames++
	}

	binHz := float64(sampleRate) / fftSize
	nyquist := float64(sampleRate) / 2
	bands := make([]float64, 0, len(bandEdges)-1)
	for i := 0; i+1 < len(bandEdges); i++ {
		lo, hi := bandEdges[i], min(bandEdges[i+1], nyquist)
		if lo >= hi {
			break
		}
		loK, hiK := max(int(lo/binHz), 1), min(int(hi/binHz), len(mag)-1)
		var sum float64
		for k := loK; k <= hiK; k++ {
			sum += mag[k]
		}
		bands = append(bands, sum/float64(max(hiK-loK+1, 1))/float64(frames))
	}
	return bands, len(bands) > 0
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
