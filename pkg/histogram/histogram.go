// Package histogram computes per-channel color histograms of raster regions
// and caches them per source.
package histogram

import (
	"gonum.org/v1/gonum/stat"
)

// Histogram counts 8 bit R, G and B values
type Histogram struct {
	Bins  [3][256]float64
	Count int
}

// Add counts one pixel
func (h *Histogram) Add(r, g, b uint8) {
	h.Bins[0][r]++
	h.Bins[1][g]++
	h.Bins[2][b]++
	h.Count++
}

// Merge adds the counts of o into h
func (h *Histogram) Merge(o *Histogram) {
	if o == nil {
		return
	}
	for c := 0; c < 3; c++ {
		for v := 0; v < 256; v++ {
			h.Bins[c][v] += o.Bins[c][v]
		}
	}
	h.Count += o.Count
}

// Empty reports whether no pixel was counted
func (h *Histogram) Empty() bool {
	return h == nil || h.Count == 0
}

// Moments holds the per-channel population mean and standard deviation
type Moments struct {
	Mean [3]float64
	Std  [3]float64
}

var levels = func() []float64 {
	v := make([]float64, 256)
	for i := range v {
		v[i] = float64(i)
	}
	return v
}()

// Moments returns the per-channel mean and standard deviation. The second
// result is false for an empty histogram.
func (h *Histogram) Moments() (Moments, bool) {
	var m Moments
	if h.Empty() {
		return m, false
	}
	for c := 0; c < 3; c++ {
		m.Mean[c], m.Std[c] = stat.PopMeanStdDev(levels, h.Bins[c][:])
	}
	return m, true
}
