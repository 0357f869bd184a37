package analysis

import "testing"

func BenchmarkBandDistanceDB(b *testing.B) {
	a := makeDecayNoise(48000, 0.5, 0.3, 1)
	c := makeDecayNoise(48000, 0.5, 0.4, 2)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bandDistanceDB(a, c, 48000)
	}
}

func BenchmarkCompare(b *testing.B) {
	ref := makeDecayNoise(48000, 3, 0.8, 1)
	cand := makeDecayNoise(48000, 3, 0.9, 2)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Compare(ref, cand, 48000)
	}
}
