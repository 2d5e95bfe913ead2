package mosaic

import (
	"rastermosaic/internal/models"
)

// SetGlobalDispersion averages the local dispersion of every member that
// reports one and pushes the result to all members. Without any
// contributor the global dispersion is invalid, which disables the
// global correction.
func (m *Mosaic) SetGlobalDispersion() {
	var sum [3]float64
	contributors := 0
	for _, e := range m.entries {
		d := e.image.LocalDispersion()
		if !d.Valid {
			continue
		}
		for ch := range sum {
			sum[ch] += d.Std[ch]
		}
		contributors++
	}

	var global models.Dispersion
	if contributors > 0 {
		for ch := range sum {
			global.Std[ch] = sum[ch] / float64(contributors)
		}
		global.Valid = true
	} else if len(m.entries) > 0 {
		m.log.Debug("No member contributes to the global dispersion")
	}

	m.global = global
	for _, e := range m.entries {
		e.image.SetGlobalDispersion(global)
	}
}

// GlobalDispersion returns the last computed mosaic-wide dispersion
func (m *Mosaic) GlobalDispersion() models.Dispersion {
	return m.global
}
