package reverb

import (
	"math"
	"sync"
	"testing"
)

func TestParamTableIsConsistent(t *testing.T) {
	seen := map[string]bool{}
	for i, info := range Parameters() {
		if info.ID != ParamID(i) {
			t.Fatalf("entry %d has id %d", i, info.ID)
		}
		if seen[info.Symbol] {
			t.Fatalf("duplicate symbol %q", info.Symbol)
		}
		seen[info.Symbol] = true
		if !info.InRange(info.Default) {
			t.Fatalf("%s: default %v outside [%v,%v]", info.Symbol, info.Default, info.Min, info.Max)
		}
	}
	if len(seen) != ParamCount {
		t.Fatalf("got %d parameters want %d", len(seen), ParamCount)
	}
}

func TestLookupSymbol(t *testing.T) {
	tests := []struct {
		name string
		want ParamID
		ok   bool
	}{
		{"decay", ParamDecay, true},
		{"PREDELAY", ParamPreDelay, true},
		{"Pre-Delay", ParamPreDelay, true},
		{"high cut", ParamHighCut, true},
		{"type", ParamType, true},
		{"volume", 0, false},
	}
	for _, tc := range tests {
		got, ok := LookupSymbol(tc.name)
		if ok != tc.ok || got != tc.want {
			t.Errorf("LookupSymbol(%q) = %v,%v want %v,%v", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}

func TestInRange(t *testing.T) {
	tests := []struct {
		id   ParamID
		v    float32
		want bool
	}{
		{ParamType, 2, true},
		{ParamType, 2.5, false},
		{ParamType, 4, false},
		{ParamDecay, 0.05, false},
		{ParamDecay, 10, true},
		{ParamHighCut, 500, false},
		{ParamLowCut, float32(math.NaN()), false},
		{ParamDry, 100, true},
	}
	for _, tc := range tests {
		if got := tc.id.Info().InRange(tc.v); got != tc.want {
			t.Errorf("%s.InRange(%v) = %v want %v", tc.id, tc.v, got, tc.want)
		}
	}
}

func TestParseVariant(t *testing.T) {
	tests := []struct {
		in      string
		want    Variant
		wantErr bool
	}{
		{"room", VariantRoom, false},
		{"Hall", VariantHall, false},
		{" plate ", VariantPlate, false},
		{"early", VariantEarly, false},
		{"early-reflections", VariantEarly, false},
		{"2", VariantPlate, false},
		{"spring", 0, true},
		{"4", 0, true},
	}
	for _, tc := range tests {
		got, err := ParseVariant(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseVariant(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("ParseVariant(%q) = %v want %v", tc.in, got, tc.want)
		}
	}
	for v := VariantRoom; v <= VariantEarly; v++ {
		back, err := ParseVariant(v.String())
		if err != nil || back != v {
			t.Errorf("round trip %v: got %v, %v", v, back, err)
		}
	}
}

func TestParamsGetSetIgnoresUnknownIDs(t *testing.T) {
	p := NewDefaultParams()
	p.Set(ParamCount, 5)
	if got := p.Get(ParamCount); got != 0 {
		t.Fatalf("unknown id: got %v", got)
	}
	p.Set(ParamWidth, 33)
	if got := p.Get(ParamWidth); got != 33 {
		t.Fatalf("width: got %v", got)
	}
}

func TestStoreTracksDirtyIDs(t *testing.T) {
	var s Store
	s.Set(ParamDecay, 1)
	s.Set(ParamWidth, 2)
	s.Set(ParamDecay, 3)

	dirty := s.TakeDirty()
	if dirty != 1<<ParamDecay|1<<ParamWidth {
		t.Fatalf("dirty mask: got %b", dirty)
	}
	if s.TakeDirty() != 0 {
		t.Fatal("dirty mask not cleared")
	}
	if s.Get(ParamDecay) != 3 {
		t.Fatalf("decay: got %v want 3", s.Get(ParamDecay))
	}

	s.MarkAll()
	if got := s.TakeDirty(); got != 1<<ParamCount-1 {
		t.Fatalf("MarkAll: got %b", got)
	}
}

func TestStoreIsExactForSpecialValues(t *testing.T) {
	var s Store
	for _, v := range []float32{0, -0.0, 1e-38, math.MaxFloat32, float32(math.Inf(-1))} {
		s.Set(ParamSize, v)
		if got := s.Get(ParamSize); math.Float32bits(got) != math.Float32bits(v) {
			t.Fatalf("stored %v read %v", v, got)
		}
	}
	s.Set(ParamSize, float32(math.NaN()))
	if got := s.Get(ParamSize); !math.IsNaN(float64(got)) {
		t.Fatalf("NaN not preserved: %v", got)
	}
}

func TestStoreConcurrentWritersAndDrainer(t *testing.T) {
	var s Store
	var wg sync.WaitGroup
	for id := ParamID(0); id < ParamCount; id++ {
		wg.Add(1)
		go func(id ParamID) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				s.Set(id, float32(i))
			}
		}(id)
	}

	done := make(chan struct{})
	var seen uint32
	go func() {
		defer close(done)
		for i := 0; i < 10000; i++ {
			seen |= s.TakeDirty()
		}
	}()
	wg.Wait()
	<-done
	seen |= s.TakeDirty()

	if seen != 1<<ParamCount-1 {
		t.Fatalf("lost dirty ids: %b", seen)
	}
	for id := ParamID(0); id < ParamCount; id++ {
		if got := s.Get(id); got != 999 {
			t.Fatalf("%s: final value %v want 999", id, got)
		}
	}
}

func TestStoreFlushRequest(t *testing.T) {
	var s Store
	if s.TakeFlush() {
		t.Fatal("unexpected flush")
	}
	s.RequestFlush()
	s.RequestFlush()
	if !s.TakeFlush() || s.TakeFlush() {
		t.Fatal("flush request should be taken exactly once")
	}
}
