package analysis

import (
	"fmt"

	"github.com/cwbudde/algo-dsp/measure/ir"
)

// DecayReport summarises the room-acoustic metrics of one impulse response.
type DecayReport struct {
	SampleRate int     `json:"sample_rate"`
	Frames     int     `json:"frames"`
	PeakIndex  int     `json:"peak_index"`
	RT60       float64 `json:"rt60_s"`
	EDT        float64 `json:"edt_s"`
	T20        float64 `json:"t20_s"`
	T30        float64 `json:"t30_s"`
	C50        float64 `json:"c50_db"`
	C80        float64 `json:"c80_db"`
	D50        float64 `json:"d50"`
	CenterTime float64 `json:"center_time_s"`
}

// Decay measures RT60, EDT, clarity and definition of an impulse response.
// Analysis starts at the response peak.
func Decay(response []float64, sampleRate int) (DecayReport, error) {
	rep := DecayReport{SampleRate: sampleRate, Frames: len(response)}
	m, err := ir.NewAnalyzer(float64(sampleRate)).Analyze(response)
	if err != nil {
		return rep, fmt.Errorf("analyze impulse response: %w", err)
	}
	rep.PeakIndex = m.PeakIndex
	rep.RT60 = m.RT60
	rep.EDT = m.EDT
	rep.T20 = m.T20
	rep.T30 = m.T30
	rep.C50 = m.C50
	rep.C80 = m.C80
	rep.D50 = m.D50
	rep.CenterTime = m.CenterTime
	return rep, nil
}

// DecayStereo measures each channel and returns left and right reports.
func DecayStereo(left, right []float64, sampleRate int) (DecayReport, DecayReport, error) {
	l, err := Decay(left, sampleRate)
	if err != nil {
		return l, DecayReport{}, fmt.Errorf("left: %w", err)
	}
	r, err := Decay(right, sampleRate)
	if err != nil {
		return l, r, fmt.Errorf("right: %w", err)
	}
	return l, r, nil
}
