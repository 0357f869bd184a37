package reverb

import (
	"fmt"
	"math"
	"strings"
)

// ParamID identifies one of the public engine parameters.
type ParamID uint32

const (
	ParamType ParamID = iota
	ParamDry
	ParamEarly
	ParamLate
	ParamSize
	ParamWidth
	ParamPreDelay
	ParamDecay
	ParamDiffuse
	ParamDamping
	ParamModulation
	ParamLowCut
	ParamHighCut

	// ParamCount is the number of public parameters.
	ParamCount = 13
)

// ParamInfo describes one public parameter as a host would publish it.
type ParamInfo struct {
	ID      ParamID
	Name    string
	Symbol  string
	Unit    string
	Min     float32
	Max     float32
	Default float32
	Integer bool
}

var paramTable = [ParamCount]ParamInfo{
	{ParamType, "Type", "type", "", 0, 3, 0, true},
	{ParamDry, "Dry", "dry", "%", 0, 100, 100, false},
	{ParamEarly, "Early", "early", "%", 0, 100, 75, false},
	{ParamLate, "Late", "late", "%", 0, 100, 75, false},
	{ParamSize, "Size", "size", "%", 0, 100, 50, false},
	{ParamWidth, "Width", "width", "%", 0, 100, 100, false},
	{ParamPreDelay, "Pre-Delay", "predelay", "ms", 0, 200, 10, false},
	{ParamDecay, "Decay", "decay", "s", 0.1, 10, 2, false},
	{ParamDiffuse, "Diffuse", "diffuse", "%", 0, 100, 70, false},
	{ParamDamping, "Damping", "damping", "%", 0, 100, 50, false},
	{ParamModulation, "Modulation", "modulation", "%", 0, 100, 20, false},
	{ParamLowCut, "Low Cut", "lowcut", "Hz", 20, 500, 20, false},
	{ParamHighCut, "High Cut", "highcut", "Hz", 1000, 20000, 16000, false},
}

// Valid reports whether id names a public parameter.
func (id ParamID) Valid() bool { return id < ParamCount }

// Info returns the metadata of id. It panics for invalid ids.
func (id ParamID) Info() ParamInfo { return paramTable[id] }

func (id ParamID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("ParamID(%d)", uint32(id))
	}
	return paramTable[id].Symbol
}

// Parameters returns the metadata of all public parameters in id order.
func Parameters() []ParamInfo {
	out := make([]ParamInfo, ParamCount)
	copy(out, paramTable[:])
	return out
}

// LookupSymbol finds a parameter by its symbol ("decay") or display name
// ("Pre-Delay"), ignoring case.
func LookupSymbol(name string) (ParamID, bool) {
	for _, info := range paramTable {
		if strings.EqualFold(info.Symbol, name) || strings.EqualFold(info.Name, name) {
			return info.ID, true
		}
	}
	return 0, false
}

// InRange reports whether v lies inside the documented range of the
// parameter. Integer parameters must also be whole numbers.
func (info ParamInfo) InRange(v float32) bool {
	if math.IsNaN(float64(v)) || v < info.Min || v > info.Max {
		return false
	}
	return !info.Integer || float32(math.Round(float64(v))) == v
}

// Params is a full snapshot of the public parameter values indexed by ParamID.
type Params [ParamCount]float32

// NewDefaultParams returns the values applied to a newly built engine.
func NewDefaultParams() Params {
	var p Params
	for _, info := range paramTable {
		p[info.ID] = info.Default
	}
	return p
}

// Get returns the value of id, or 0 for unknown ids.
func (p *Params) Get(id ParamID) float32 {
	if !id.Valid() {
		return 0
	}
	return p[id]
}

// Set stores v for id. Unknown ids are ignored.
func (p *Params) Set(id ParamID, v float32) {
	if id.Valid() {
		p[id] = v
	}
}

// Variant is the active reverb algorithm.
type Variant int

const (
	VariantRoom Variant = iota
	VariantHall
	VariantPlate
	VariantEarly

	variantCount = 4
)

var variantNames = [variantCount]string{"room", "hall", "plate", "early"}

func (v Variant) String() string {
	if v < 0 || v >= variantCount {
		return fmt.Sprintf("Variant(%d)", int(v))
	}
	return variantNames[v]
}

// ParseVariant accepts a variant name ("room", "hall", "plate", "early") or
// its numeric type value ("0".."3").
func ParseVariant(s string) (Variant, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range variantNames {
		if s == name || s == fmt.Sprint(i) {
			return Variant(i), nil
		}
	}
	if s == "earlyreflections" || s == "early-reflections" {
		return VariantEarly, nil
	}
	return 0, fmt.Errorf("unknown reverb type %q", s)
}

// variantFromValue interprets a raw type parameter: rounded to nearest,
// clamped to the known variants, non-finite values select Room.
func variantFromValue(v float32) Variant {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return VariantRoom
	}
	n := math.Round(f)
	switch {
	case n < 0:
		return VariantRoom
	case n > variantCount-1:
		return VariantEarly
	}
	return Variant(n)
}
