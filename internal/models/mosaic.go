package models

import (
	"fmt"
	"strings"
)

// Side names one of the four cardinal sides of an axis-aligned extent.
// Bottom is the side at the minimum Y value.
type Side int

const (
	Left Side = iota
	Bottom
	Right
	Top
)

// Sides lists every side in storage order
var Sides = [4]Side{Left, Bottom, Right, Top}

// String returns the lower case name of the side
func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Bottom:
		return "bottom"
	case Right:
		return "right"
	case Top:
		return "top"
	}
	return fmt.Sprintf("side(%d)", int(s))
}

// Opposite returns the side facing s
func (s Side) Opposite() Side {
	switch s {
	case Left:
		return Right
	case Right:
		return Left
	case Top:
		return Bottom
	default:
		return Top
	}
}

// SamplingQuality controls how many pixels feed histogram computations
// and which resampling kernel is used when rendering.
type SamplingQuality int

const (
	Fast SamplingQuality = iota
	Normal
	HighQuality
)

// Step returns the pixel stride used when sampling histograms
func (q SamplingQuality) Step() int {
	switch q {
	case Fast:
		return 4
	case HighQuality:
		return 1
	default:
		return 2
	}
}

// String returns the configuration name of the quality
func (q SamplingQuality) String() string {
	switch q {
	case Fast:
		return "fast"
	case Normal:
		return "normal"
	case HighQuality:
		return "high"
	}
	return fmt.Sprintf("quality(%d)", int(q))
}

// ParseSamplingQuality converts a configuration string into a SamplingQuality
func ParseSamplingQuality(s string) (SamplingQuality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fast":
		return Fast, nil
	case "normal", "":
		return Normal, nil
	case "high", "high_quality", "highquality":
		return HighQuality, nil
	}
	return Normal, fmt.Errorf("unknown sampling quality %q", s)
}

// Dispersion holds a per-channel (R, G, B) standard deviation.
// Valid is false when no pixels contributed, which means "no correction".
type Dispersion struct {
	Std   [3]float64
	Valid bool
}

// Settings are the mosaic-wide tunables
type Settings struct {
	// ApplyGlobal enables the global color balancing algorithm
	ApplyGlobal bool

	// ApplyPositional enables the positional (per side) color balancing algorithm
	ApplyPositional bool

	// BlendWidth is the corridor width in mosaic logical units, must be > 0
	BlendWidth float64

	// Quality is the sampling quality used for histograms and rendering
	Quality SamplingQuality
}

// DefaultSettings returns the settings a new mosaic starts with
func DefaultSettings() Settings {
	return Settings{
		ApplyGlobal:     true,
		ApplyPositional: true,
		BlendWidth:      4.0,
		Quality:         Normal,
	}
}
