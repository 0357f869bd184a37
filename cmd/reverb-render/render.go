package main

import (
	"math"

	"github.com/cwbudde/algo-reverb/internal/wavio"
	"github.com/cwbudde/algo-reverb/reverb"
)

type renderConfig struct {
	tailFrames      int
	blockSize       int
	decayDBFS       float64
	decayHoldBlocks int
}

// render feeds inL/inR through e in host blocks of cfg.blockSize and keeps
// rendering silence for up to cfg.tailFrames afterwards. With a finite
// decayDBFS the tail stops early once that many consecutive blocks stay below
// the threshold.
func render(e *reverb.Engine, inL, inR []float32, cfg renderConfig) ([]float32, []float32) {
	block := max(cfg.blockSize, 1)
	hold := max(cfg.decayHoldBlocks, 1)
	total := len(inL) + max(cfg.tailFrames, 0)
	autoStop := !math.IsInf(cfg.decayDBFS, 1) && !math.IsNaN(cfg.decayDBFS)
	threshold := math.Pow(10, cfg.decayDBFS/20)

	outL := make([]float32, 0, total)
	outR := make([]float32, 0, total)
	bufInL := make([]float32, block)
	bufInR := make([]float32, block)
	bufOutL := make([]float32, block)
	bufOutR := make([]float32, block)
	inputs := [][]float32{bufInL, bufInR}
	outputs := [][]float32{bufOutL, bufOutR}

	below := 0
	for pos := 0; pos < total; pos += block {
		n := min(block, total-pos)
		clear(bufInL)
		clear(bufInR)
		if pos < len(inL) {
			copy(bufInL[:n], inL[pos:])
			copy(bufInR[:n], inR[pos:])
		}
		e.Process(inputs, outputs, n)
		outL = append(outL, bufOutL[:n]...)
		outR = append(outR, bufOutR[:n]...)

		if autoStop && pos+n > len(inL) {
			if wavio.StereoRMS(bufOutL[:n], bufOutR[:n]) < threshold {
				below++
				if below >= hold {
					break
				}
			} else {
				below = 0
			}
		}
	}
	return outL, outR
}

// impulse returns a unit impulse followed by silence.
func impulse(frames int) ([]float32, []float32) {
	l := make([]float32, max(frames, 1))
	r := make([]float32, max(frames, 1))
	l[0], r[0] = 1, 1
	return l, r
}
