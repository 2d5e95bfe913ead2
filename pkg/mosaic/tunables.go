package mosaic

import (
	"fmt"
	"math"

	"rastermosaic/internal/models"
)

const widthEpsilon = 1e-9

// ApplyGlobalAlgorithm enables or disables global color balancing
func (m *Mosaic) ApplyGlobalAlgorithm(on bool) {
	if on == m.settings.ApplyGlobal {
		return
	}
	m.begin()
	defer m.end()

	m.settings.ApplyGlobal = on
	for _, e := range m.entries {
		e.image.SetGlobalAlgorithm(on)
	}
	m.raiseFull()
}

// ApplyPositionalAlgorithm enables or disables positional color balancing
func (m *Mosaic) ApplyPositionalAlgorithm(on bool) {
	if on == m.settings.ApplyPositional {
		return
	}
	m.begin()
	defer m.end()

	m.settings.ApplyPositional = on
	for _, e := range m.entries {
		e.image.SetPositionalAlgorithm(on)
	}
	m.raiseFull()
}

// SetBlendWidth changes the width of every corridor
func (m *Mosaic) SetBlendWidth(width float64) error {
	if width <= 0 {
		return &PreconditionError{Op: "set blend width", Reason: fmt.Sprintf("width must be positive, got %v", width)}
	}
	if math.Abs(width-m.settings.BlendWidth) <= widthEpsilon {
		return nil
	}
	m.begin()
	defer m.end()

	m.settings.BlendWidth = width
	for _, c := range m.blends.All() {
		if err := c.SetWidth(width); err != nil {
			return err
		}
		m.blends.Insert(c, c.Extent())
	}
	m.raiseFull()
	return nil
}

// SetSamplingQuality changes how densely histograms are sampled and which
// kernel resamples members when rendering
func (m *Mosaic) SetSamplingQuality(q models.SamplingQuality) {
	if q == m.settings.Quality {
		return
	}
	m.begin()
	defer m.end()

	m.settings.Quality = q
	for _, e := range m.entries {
		e.image.SetQuality(q)
	}
	m.SetGlobalDispersion()
	m.InvalidateBlends()
	m.raiseFull()
}
