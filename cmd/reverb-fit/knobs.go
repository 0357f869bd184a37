package main

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cwbudde/algo-reverb/internal/wavio"
	"github.com/cwbudde/algo-reverb/reverb"
)

type knobDef struct {
	Name  string
	Min   float64
	Max   float64
	IsInt bool
}

type candidate struct {
	Vals []float64
}

// knobGroups maps each optimize group to the parameters it varies. Knob
// names are parameter symbols so reports and presets share one vocabulary.
var knobGroups = map[string][]reverb.ParamID{
	"type":  {reverb.ParamType},
	"space": {reverb.ParamSize, reverb.ParamPreDelay, reverb.ParamWidth},
	"decay": {reverb.ParamDecay, reverb.ParamDamping, reverb.ParamDiffuse, reverb.ParamModulation},
	"mix":   {reverb.ParamDry, reverb.ParamEarly, reverb.ParamLate},
	"tone":  {reverb.ParamLowCut, reverb.ParamHighCut},
}

func groupNames() string {
	names := make([]string, 0, len(knobGroups))
	for k := range knobGroups {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// parseOptimizeGroups parses a comma-separated string of group names.
func parseOptimizeGroups(raw string) (map[string]bool, error) {
	groups := make(map[string]bool)
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := knobGroups[s]; !ok {
			return nil, fmt.Errorf("unknown optimize group %q (valid: %s)", s, groupNames())
		}
		groups[s] = true
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("no optimize groups specified")
	}
	return groups, nil
}

// initCandidate builds knob definitions for the active groups, in parameter
// id order, seeded from base.
func initCandidate(base reverb.Params, groups map[string]bool) ([]knobDef, candidate) {
	var ids []reverb.ParamID
	for g, members := range knobGroups {
		if groups[g] {
			ids = append(ids, members...)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	defs := make([]knobDef, 0, len(ids))
	vals := make([]float64, 0, len(ids))
	for _, id := range ids {
		info := id.Info()
		def := knobDef{Name: info.Symbol, Min: float64(info.Min), Max: float64(info.Max), IsInt: info.Integer}
		// Keep the search away from extremes that never fit measured rooms.
		switch id {
		case reverb.ParamPreDelay:
			def.Max = 100
		case reverb.ParamHighCut:
			def.Min = 2000
		}
		v := clamp(float64(base.Get(id)), def.Min, def.Max)
		if def.IsInt {
			v = math.Round(v)
		}
		defs = append(defs, def)
		vals = append(vals, v)
	}
	return defs, candidate{Vals: vals}
}

// applyCandidate writes c over a copy of base.
func applyCandidate(base reverb.Params, defs []knobDef, c candidate) reverb.Params {
	p := base
	for i, def := range defs {
		id, ok := reverb.LookupSymbol(def.Name)
		if !ok || i >= len(c.Vals) {
			continue
		}
		v := clamp(c.Vals[i], def.Min, def.Max)
		if def.IsInt {
			v = math.Round(v)
		}
		p.Set(id, float32(v))
	}
	return p
}

func fromNormalized(pos []float64, defs []knobDef) candidate {
	vals := make([]float64, len(defs))
	for i := range defs {
		x := 0.0
		if i < len(pos) {
			x = clamp(pos[i], 0, 1)
		}
		v := defs[i].Min + x*(defs[i].Max-defs[i].Min)
		if defs[i].IsInt {
			v = math.Round(v)
		}
		vals[i] = v
	}
	return candidate{Vals: vals}
}

func clamp(v, lo, hi float64) float64 {
	return wavio.Clamp(v, lo, hi)
}
