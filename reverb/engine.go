// Package reverb is a real-time stereo reverb engine. It drives one of four
// algorithm variants (room, hall, plate, early reflections) from a single set
// of 13 public parameters and mixes dry, early and late signal paths.
//
// The engine owns six collaborator processors for its lifetime. Parameter
// writes from a control thread are stored atomically and mapped onto the
// collaborators on the audio thread at the start of each internal chunk, so
// Process never blocks, locks or allocates.
package reverb

import (
	"fmt"
	"log/slog"
	"math"
)

// Engine is the top-level reverb processor.
type Engine struct {
	sampleRate float64
	logger     *slog.Logger

	store   Store
	bank    *Bank
	mapper  mapper
	paths   paths
	active  path
	scratch scratch
}

type engineConfig struct {
	logger *slog.Logger
	bank   *Bank
}

// Option configures an Engine.
type Option func(*engineConfig)

// WithLogger sets the logger used by control-path operations.
func WithLogger(l *slog.Logger) Option {
	return func(c *engineConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBank replaces the default kernels with caller-supplied collaborators.
// The engine retunes them to its sample rate.
func WithBank(b *Bank) Option {
	return func(c *engineConfig) {
		c.bank = b
	}
}

// NewEngine creates an engine at sampleRate with default parameters applied.
func NewEngine(sampleRate float64, opts ...Option) (*Engine, error) {
	if !validRate(sampleRate) {
		return nil, fmt.Errorf("reverb: sample rate must be > 0 and finite: %f", sampleRate)
	}
	cfg := engineConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	bank := cfg.bank
	if bank == nil {
		b, err := NewDefaultBank(sampleRate)
		if err != nil {
			return nil, fmt.Errorf("reverb: build default bank: %w", err)
		}
		bank = b
	} else {
		if !bank.complete() {
			return nil, fmt.Errorf("reverb: bank has empty collaborator slots")
		}
		for _, p := range bank.all() {
			if err := p.SetSampleRate(sampleRate); err != nil {
				return nil, fmt.Errorf("reverb: tune bank: %w", err)
			}
		}
	}

	e := &Engine{
		sampleRate: sampleRate,
		logger:     cfg.logger,
		bank:       bank,
		mapper:     mapper{bank: bank},
	}
	e.paths = newPaths(bank)
	e.active = e.paths.forVariant(VariantRoom)
	e.LoadParams(NewDefaultParams())
	return e, nil
}

// SetParameter stores a raw value for a host-supplied parameter index. The
// value reaches the collaborators at the start of the next processed chunk.
// Unknown indices are ignored. Safe to call concurrently with Process.
func (e *Engine) SetParameter(index uint32, value float32) {
	e.store.Set(ParamID(index), value)
}

// Parameter returns the last value written for index, or 0 if unknown.
func (e *Engine) Parameter(index uint32) float32 {
	return e.store.Get(ParamID(index))
}

// Mute flushes all collaborator state before the next chunk without changing
// parameters. Safe to call concurrently with Process.
func (e *Engine) Mute() {
	e.store.RequestFlush()
}

// Process renders frames samples of the first two input channels into the
// first two output channels. frames is clamped to the shortest buffer.
// Pending parameter writes are applied even when no frames are rendered.
func (e *Engine) Process(inputs, outputs [][]float32, frames int) {
	if len(inputs) < 2 || len(outputs) < 2 {
		return
	}
	inL, inR := inputs[0], inputs[1]
	outL, outR := outputs[0], outputs[1]
	frames = min(max(frames, 0), len(inL), len(inR), len(outL), len(outR))

	if frames == 0 {
		e.sync()
		return
	}
	for off := 0; off < frames; {
		n := min(BlockSize, frames-off)
		e.sync()
		e.scratch.clear()
		e.active.render(inL[off:off+n], inR[off:off+n], &e.scratch)

		mix(e.mapper.mix, inL[off:off+n], e.scratch.earlyL[:n], e.scratch.lateL[:n], outL[off:off+n])
		mix(e.mapper.mix, inR[off:off+n], e.scratch.earlyR[:n], e.scratch.lateR[:n], outR[off:off+n])
		off += n
	}
}

// SampleRateChanged retunes all collaborators, re-applies every parameter and
// flushes. Invalid rates are logged and ignored. Must not run concurrently
// with Process.
func (e *Engine) SampleRateChanged(rate float64) {
	if !validRate(rate) {
		e.logger.Warn("ignoring invalid sample rate", "rate", rate, "current", e.sampleRate)
		return
	}
	for _, p := range e.bank.all() {
		if err := p.SetSampleRate(rate); err != nil {
			e.logger.Error("collaborator rejected sample rate", "rate", rate, "err", err)
		}
	}
	e.sampleRate = rate
	e.store.MarkAll()
	e.sync()
	e.flushAll()
	e.logger.Debug("sample rate changed", "rate", rate)
}

// LoadParams replaces every parameter value and applies them immediately.
// Must not run concurrently with Process.
func (e *Engine) LoadParams(p Params) {
	for id, v := range p {
		e.store.Set(ParamID(id), v)
	}
	e.sync()
}

// Params returns a snapshot of the stored parameter values.
func (e *Engine) Params() Params {
	return e.store.Snapshot()
}

// Variant returns the variant selected as of the last applied type write.
func (e *Engine) Variant() Variant {
	return e.mapper.variant
}

// SampleRate returns the current processing rate.
func (e *Engine) SampleRate() float64 {
	return e.sampleRate
}

// sync honours a pending flush and maps all dirty parameters in id order.
func (e *Engine) sync() {
	if e.store.TakeFlush() {
		e.flushAll()
	}
	dirty := e.store.TakeDirty()
	if dirty == 0 {
		return
	}
	flush := false
	for id := ParamID(0); id < ParamCount; id++ {
		if dirty&(1<<id) == 0 {
			continue
		}
		if e.mapper.apply(id, e.store.Get(id)) {
			flush = true
		}
	}
	if flush {
		e.active = e.paths.forVariant(e.mapper.variant)
		e.flushAll()
	}
}

func (e *Engine) flushAll() {
	for _, p := range e.bank.all() {
		p.Mute()
	}
}

func validRate(rate float64) bool {
	return rate > 0 && !math.IsNaN(rate) && !math.IsInf(rate, 0)
}
