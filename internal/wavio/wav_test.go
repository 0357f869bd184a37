package wavio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteStereoReadStereoRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.wav")
	left := []float32{0, 0.5, -0.5, 0.25}
	right := []float32{0.1, -0.1, 0.75, -0.75}
	if err := WriteStereo(path, left, right, 48000); err != nil {
		t.Fatalf("WriteStereo: %v", err)
	}

	gotL, gotR, sr, err := ReadStereo(path)
	if err != nil {
		t.Fatalf("ReadStereo: %v", err)
	}
	if sr != 48000 {
		t.Fatalf("sample rate: got %d want 48000", sr)
	}
	if len(gotL) != len(left) || len(gotR) != len(right) {
		t.Fatalf("frames: got %d/%d want %d", len(gotL), len(gotR), len(left))
	}
	const tol = 1.0 / 16384
	for i := range left {
		if math.Abs(float64(gotL[i]-left[i])) > tol || math.Abs(float64(gotR[i]-right[i])) > tol {
			t.Fatalf("frame %d: got (%v,%v) want (%v,%v)", i, gotL[i], gotR[i], left[i], right[i])
		}
	}
}

func TestReadStereoDuplicatesMono(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.wav")
	if err := WriteMono(path, []float32{0.5, -0.25, 0}, 44100); err != nil {
		t.Fatalf("WriteMono: %v", err)
	}
	left, right, sr, err := ReadStereo(path)
	if err != nil {
		t.Fatalf("ReadStereo: %v", err)
	}
	if sr != 44100 || len(left) != 3 {
		t.Fatalf("got sr=%d frames=%d", sr, len(left))
	}
	for i := range left {
		if left[i] != right[i] {
			t.Fatalf("frame %d: left %v != right %v", i, left[i], right[i])
		}
	}
}

func TestReadMonoAveragesChannels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "st.wav")
	if err := WriteStereo(path, []float32{0.5, 0}, []float32{0.5, -0.5}, 48000); err != nil {
		t.Fatal(err)
	}
	mono, _, err := ReadMono(path)
	if err != nil {
		t.Fatalf("ReadMono: %v", err)
	}
	if math.Abs(mono[0]-0.5) > 1e-3 || math.Abs(mono[1]+0.25) > 1e-3 {
		t.Fatalf("mono: got %v", mono)
	}
}

func TestWriteClipsOutOfRangeSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loud.wav")
	if err := WriteStereo(path, []float32{3, -3}, []float32{1.5, 0}, 48000); err != nil {
		t.Fatal(err)
	}
	left, right, _, err := ReadStereo(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range append(left, right...) {
		if v > 1 || v < -1 {
			t.Fatalf("sample %v not clipped", v)
		}
	}
	if left[0] < 0.99 || left[1] > -0.99 {
		t.Fatalf("clipped values should sit at full scale: %v", left)
	}
}

func TestWriteStereoRejectsMismatchedChannels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := WriteStereo(path, []float32{0, 1}, []float32{0}, 48000); err == nil {
		t.Fatal("expected length mismatch error")
	}
	if err := WriteMono(path, []float32{0}, 0); err == nil {
		t.Fatal("expected sample rate error")
	}
}

func TestReadRejectsInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.wav")
	if err := os.WriteFile(junk, []byte("not a wav file at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := ReadStereo(junk); err == nil {
		t.Fatal("expected error for invalid file")
	}
	if _, _, err := ReadMono(filepath.Join(dir, "missing.wav")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestResample(t *testing.T) {
	in := make([]float64, 4800)
	for i := range in {
		in[i] = math.Sin(2 * math.Pi * 440 * float64(i) / 48000)
	}
	same, err := Resample(in, 48000, 48000)
	if err != nil || &same[0] != &in[0] {
		t.Fatalf("equal rates should return input unchanged (err=%v)", err)
	}

	out, err := Resample(in, 48000, 96000)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	if want := 2 * len(in); math.Abs(float64(len(out)-want)) > float64(want)/50 {
		t.Fatalf("resampled length: got %d want ~%d", len(out), want)
	}

	out32, err := Resample32([]float32{1, 0, 0, 0}, 44100, 44100)
	if err != nil || len(out32) != 4 {
		t.Fatalf("Resample32: %v %v", out32, err)
	}
}

func TestLevels(t *testing.T) {
	if got := StereoRMS(nil, nil); got != 0 {
		t.Fatalf("empty RMS: %v", got)
	}
	if got := StereoRMS([]float32{1, -1}, []float32{1, -1}); got != 1 {
		t.Fatalf("RMS: got %v want 1", got)
	}
	if got := PeakDBFS([]float32{0.5}, []float32{-1}); math.Abs(got) > 1e-9 {
		t.Fatalf("peak: got %v want 0 dBFS", got)
	}
	if got := PeakDBFS(nil, nil); !math.IsInf(got, -1) {
		t.Fatalf("silent peak: got %v", got)
	}
}
