package preset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-reverb/reverb"
)

// ErrUnknownParam is returned for preset keys or settings that name no
// engine parameter.
var ErrUnknownParam = errors.New("unknown parameter")

// File is the JSON schema for reverb presets. Keys are parameter symbols;
// missing keys keep their current value.
type File struct {
	Name       string     `json:"name,omitempty"`
	Type       *TypeValue `json:"type,omitempty"`
	Dry        *float32   `json:"dry,omitempty"`
	Early      *float32   `json:"early,omitempty"`
	Late       *float32   `json:"late,omitempty"`
	Size       *float32   `json:"size,omitempty"`
	Width      *float32   `json:"width,omitempty"`
	PreDelay   *float32   `json:"predelay,omitempty"`
	Decay      *float32   `json:"decay,omitempty"`
	Diffuse    *float32   `json:"diffuse,omitempty"`
	Damping    *float32   `json:"damping,omitempty"`
	Modulation *float32   `json:"modulation,omitempty"`
	LowCut     *float32   `json:"lowcut,omitempty"`
	HighCut    *float32   `json:"highcut,omitempty"`
}

// TypeValue is the reverb type, written as a name ("hall") and read from
// either a name or a number.
type TypeValue float32

// UnmarshalJSON accepts a variant name or a numeric type value.
func (t *TypeValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := reverb.ParseVariant(s)
		if err != nil {
			return err
		}
		*t = TypeValue(v)
		return nil
	}
	var f float32
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("type must be a name or a number: %s", b)
	}
	*t = TypeValue(f)
	return nil
}

// MarshalJSON writes whole in-range values by name.
func (t TypeValue) MarshalJSON() ([]byte, error) {
	info := reverb.ParamType.Info()
	if info.InRange(float32(t)) {
		return json.Marshal(reverb.Variant(t).String())
	}
	return json.Marshal(float32(t))
}

func (f *File) values() [reverb.ParamCount]*float32 {
	var typ *float32
	if f.Type != nil {
		v := float32(*f.Type)
		typ = &v
	}
	return [reverb.ParamCount]*float32{
		reverb.ParamType:       typ,
		reverb.ParamDry:        f.Dry,
		reverb.ParamEarly:      f.Early,
		reverb.ParamLate:       f.Late,
		reverb.ParamSize:       f.Size,
		reverb.ParamWidth:      f.Width,
		reverb.ParamPreDelay:   f.PreDelay,
		reverb.ParamDecay:      f.Decay,
		reverb.ParamDiffuse:    f.Diffuse,
		reverb.ParamDamping:    f.Damping,
		reverb.ParamModulation: f.Modulation,
		reverb.ParamLowCut:     f.LowCut,
		reverb.ParamHighCut:    f.HighCut,
	}
}

// LoadJSON loads a preset JSON file and applies it on top of default params.
func LoadJSON(path string) (reverb.Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return reverb.Params{}, err
	}
	f, err := Decode(b)
	if err != nil {
		return reverb.Params{}, fmt.Errorf("%s: %w", path, err)
	}

	p := reverb.NewDefaultParams()
	if err := ApplyFile(&p, f); err != nil {
		return reverb.Params{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Decode parses preset JSON. Unknown keys are rejected with ErrUnknownParam.
func Decode(b []byte) (*File, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var f File
	if err := dec.Decode(&f); err != nil {
		if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
			return nil, fmt.Errorf("%w %s", ErrUnknownParam, field)
		}
		return nil, err
	}
	return &f, nil
}

// ApplyFile validates a parsed preset file and applies it onto dst. Nothing
// is applied when any value is out of range.
func ApplyFile(dst *reverb.Params, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination params")
	}
	if f == nil {
		return nil
	}

	values := f.values()
	for id, v := range values {
		if v == nil {
			continue
		}
		if err := validate(reverb.ParamID(id), *v); err != nil {
			return err
		}
	}
	for id, v := range values {
		if v != nil {
			dst.Set(reverb.ParamID(id), *v)
		}
	}
	return nil
}

// FromParams builds a fully populated preset file.
func FromParams(name string, p reverb.Params) *File {
	f := &File{Name: name}
	ptr := func(id reverb.ParamID) *float32 {
		v := p.Get(id)
		return &v
	}
	typ := TypeValue(p.Get(reverb.ParamType))
	f.Type = &typ
	f.Dry = ptr(reverb.ParamDry)
	f.Early = ptr(reverb.ParamEarly)
	f.Late = ptr(reverb.ParamLate)
	f.Size = ptr(reverb.ParamSize)
	f.Width = ptr(reverb.ParamWidth)
	f.PreDelay = ptr(reverb.ParamPreDelay)
	f.Decay = ptr(reverb.ParamDecay)
	f.Diffuse = ptr(reverb.ParamDiffuse)
	f.Damping = ptr(reverb.ParamDamping)
	f.Modulation = ptr(reverb.ParamModulation)
	f.LowCut = ptr(reverb.ParamLowCut)
	f.HighCut = ptr(reverb.ParamHighCut)
	return f
}

// WriteJSON writes p as an indented preset file.
func WriteJSON(path, name string, p reverb.Params) error {
	b, err := json.MarshalIndent(FromParams(name, p), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// ApplySetting parses a single "name=value" style override. The type
// parameter also accepts variant names.
func ApplySetting(dst *reverb.Params, name, value string) error {
	id, ok := reverb.LookupSymbol(strings.TrimSpace(name))
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownParam, name)
	}
	value = strings.TrimSpace(value)

	var v float32
	if id == reverb.ParamType {
		variant, err := reverb.ParseVariant(value)
		if err != nil {
			return err
		}
		v = float32(variant)
	} else {
		f, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return fmt.Errorf("%s: invalid value %q", id, value)
		}
		v = float32(f)
	}
	if err := validate(id, v); err != nil {
		return err
	}
	dst.Set(id, v)
	return nil
}

// ParseSetting splits "name=value" and applies it to dst.
func ParseSetting(dst *reverb.Params, s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("setting %q must be name=value", s)
	}
	return ApplySetting(dst, name, value)
}

func validate(id reverb.ParamID, v float32) error {
	info := id.Info()
	if info.InRange(v) {
		return nil
	}
	if info.Integer {
		return fmt.Errorf("%s must be a whole number in [%g,%g], got %g", info.Symbol, info.Min, info.Max, v)
	}
	return fmt.Errorf("%s must be in [%g,%g], got %g", info.Symbol, info.Min, info.Max, v)
}
