// Package wavio holds the WAV and resampling helpers shared by the commands.
package wavio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// ReadStereo loads a WAV file as two channels. Mono files are duplicated
// into both channels; channels beyond the second are ignored.
func ReadStereo(path string) ([]float32, []float32, int, error) {
	buf, err := readPCM(path)
	if err != nil {
		return nil, nil, 0, err
	}
	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	left := make([]float32, frames)
	right := make([]float32, frames)
	for i := range frames {
		left[i] = buf.Data[i*ch]
		if ch == 1 {
			right[i] = left[i]
		} else {
			right[i] = buf.Data[i*ch+1]
		}
	}
	return left, right, buf.Format.SampleRate, nil
}

// ReadMono loads a WAV file and averages all channels.
func ReadMono(path string) ([]float64, int, error) {
	buf, err := readPCM(path)
	if err != nil {
		return nil, 0, err
	}
	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	out := make([]float64, frames)
	for i := range frames {
		var sum float64
		for c := 0; c < ch; c++ {
			sum += float64(buf.Data[i*ch+c])
		}
		out[i] = sum / float64(ch)
	}
	return out, buf.Format.SampleRate, nil
}

func readPCM(path string) (*audio.Float32Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("invalid wav buffer: %s", path)
	}
	if buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid wav sample-rate: %d", buf.Format.SampleRate)
	}
	if len(buf.Data) < buf.Format.NumChannels {
		return nil, fmt.Errorf("empty wav data: %s", path)
	}
	return buf, nil
}

// Resample converts in from fromRate to toRate. Equal rates return in as is.
func Resample(in []float64, fromRate int, toRate int) ([]float64, error) {
	if fromRate == toRate {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	return r.Process(in), nil
}

// Resample32 is Resample for float32 channels.
func Resample32(in []float32, fromRate int, toRate int) ([]float32, error) {
	if fromRate == toRate {
		return in, nil
	}
	out, err := Resample(To64(in), fromRate, toRate)
	if err != nil {
		return nil, err
	}
	return To32(out), nil
}

// WriteStereo writes left and right as a 16-bit stereo WAV, creating parent
// directories as needed.
func WriteStereo(path string, left []float32, right []float32, sampleRate int) error {
	if len(left) != len(right) {
		return fmt.Errorf("left/right length mismatch: %d != %d", len(left), len(right))
	}
	data := make([]float32, len(left)*2)
	for i := range left {
		data[i*2] = left[i]
		data[i*2+1] = right[i]
	}
	return writePCM(path, data, 2, sampleRate)
}

// WriteMono writes a 16-bit mono WAV.
func WriteMono(path string, data []float32, sampleRate int) error {
	return writePCM(path, data, 1, sampleRate)
}

func writePCM(path string, samples []float32, channels int, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: channels,
		},
		Data:           clipped(samples),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// fullScale is the largest magnitude a 16-bit sample can hold.
const fullScale = 32767.0 / 32768.0

// clipped limits samples to full scale so loud renders do not wrap around
// in 16-bit PCM.
func clipped(in []float32) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(Clamp(float64(v), -fullScale, fullScale))
	}
	return out
}

// To64 widens a float32 channel.
func To64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

// To32 narrows a float64 channel.
func To32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

// StereoRMS is the RMS over both channels of a block.
func StereoRMS(left, right []float32) float64 {
	n := len(left) + len(right)
	if n == 0 {
		return 0
	}
	var sum float64
	for _, s := range left {
		sum += float64(s) * float64(s)
	}
	for _, s := range right {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(n))
}

// PeakDBFS returns the absolute peak of both channels in dBFS.
func PeakDBFS(left, right []float32) float64 {
	var peak float64
	for _, s := range left {
		peak = max(peak, math.Abs(float64(s)))
	}
	for _, s := range right {
		peak = max(peak, math.Abs(float64(s)))
	}
	if peak <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(peak)
}

// Clamp limits v to [lo,hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
