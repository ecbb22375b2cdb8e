// Package spectrum extracts a vibration spectrum from recent telemetry
// with a Hann-windowed direct Discrete Fourier Transform.
//
// The transform is intentionally the O(N²) direct form over at most
// [WindowSize] samples; at that size the cost is negligible and the
// code stays obvious. Bin frequencies and magnitudes are what an FFT
// of the same window would produce.
package spectrum

import (
	"math"

	"github.com/mjibson/go-dsp/window"
	"github.com/sentomas/Digital-Twin-CNC/internal/machine"
)

const (
	// MinSamples is the smallest window worth transforming; below it
	// Compute returns an empty spectrum.
	MinSamples = 32
	// WindowSize is the analysis window: the most recent samples used
	// when the buffer holds at least that many.
	WindowSize = 128
)

// Bin is one (frequency, magnitude) pair of the spectrum.
type Bin struct {
	Frequency float64 // Hz
	Magnitude float64 // m, 2/N-normalized displacement amplitude
}

// Compute returns the displacement spectrum of the most recent
// WindowSize samples: bins 1..N/2 (the DC bin is excluded) at a
// resolution of sampleRate/N. Fewer than MinSamples yields nil.
func Compute(samples []machine.Sample, sampleRate float64) []Bin {
	if len(samples) > WindowSize {
		samples = samples[len(samples)-WindowSize:]
	}
	n := len(samples)
	if n < MinSamples {
		return nil
	}

	signal := make([]float64, n)
	for i, s := range samples {
		signal[i] = s.Displacement
	}
	window.Apply(signal, window.Hann)

	bins := make([]Bin, 0, n/2)
	for k := 1; k <= n/2; k++ {
		var re, im float64
		for i, v := range signal {
			angle := 2 * math.Pi * float64(k) * float64(i) / float64(n)
			re += v * math.Cos(angle)
			im -= v * math.Sin(angle)
		}
		bins = append(bins, Bin{
			Frequency: float64(k) * sampleRate / float64(n),
			Magnitude: 2 / float64(n) * math.Hypot(re, im),
		})
	}
	return bins
}

// Dominant returns the bin with the largest magnitude, or false for an
// empty spectrum.
func Dominant(bins []Bin) (Bin, bool) {
	if len(bins) == 0 {
		return Bin{}, false
	}
	best := bins[0]
	for _, b := range bins[1:] {
		if b.Magnitude > best.Magnitude {
			best = b
		}
	}
	return best, true
}
