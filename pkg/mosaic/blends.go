package mosaic

import (
	"fmt"

	"github.com/paulmach/orb"
	log "github.com/sirupsen/logrus"

	"rastermosaic/pkg/blend"
	"rastermosaic/pkg/geometry"
)

// ManageBlends reconciles the corridors of members touching update: pairs
// of touching members gain a corridor when they share a boundary, and
// corridors of a member that no longer touch its partner are removed.
func (m *Mosaic) ManageBlends(update *geometry.Shape) {
	ext, ok := m.extentOf(update)
	if !ok {
		return
	}
	m.manageBlends(ext)
}

func (m *Mosaic) manageBlends(ext orb.Bound) {
	for _, outer := range m.images.Query(ext) {
		outerExt, ok := m.images.Extent(outer)
		if !ok {
			continue
		}

		// Every corridor of outer is a deletion candidate until a touching
		// partner claims it
		near := m.blends.Query(outerExt)
		stale := make(map[*blend.Corridor]bool)
		for _, c := range near {
			if c.Uses(outer.image) {
				stale[c] = true
			}
		}

		for _, inner := range m.images.Query(outerExt) {
			if inner == outer {
				continue
			}
			if c := findCorridor(near, outer, inner); c != nil {
				delete(stale, c)
				continue
			}

			boundary, ok := m.topo.Boundary(outer.layer, inner.layer)
			if !ok {
				m.log.WithFields(log.Fields{
					"a": fmt.Sprintf("%p", outer.source),
					"b": fmt.Sprintf("%p", inner.source),
				}).Warn("Adjacent members share no boundary, the seam will not be blended")
				continue
			}
			c, err := blend.New(m.cs, outer.image, inner.image, boundary, m.log, m.settings.BlendWidth)
			if err != nil {
				m.log.WithError(err).Warn("Cannot create blend corridor")
				continue
			}
			m.blends.Insert(c, c.Extent())
			m.log.WithFields(log.Fields{"width": c.Width()}).Debug("Created blend corridor")
		}

		for _, c := range near {
			if stale[c] {
				m.blends.Remove(c)
				m.log.Debug("Removed blend corridor between members that no longer touch")
			}
		}
	}
}

func findCorridor(corridors []*blend.Corridor, a, b *entry) *blend.Corridor {
	for _, c := range corridors {
		if c.Joins(a.image, b.image) {
			return c
		}
	}
	return nil
}

// InvalidateBlends drops the masks of every corridor
func (m *Mosaic) InvalidateBlends() {
	for _, c := range m.blends.All() {
		c.Invalidate()
	}
}

// Blends returns every corridor
func (m *Mosaic) Blends() []*blend.Corridor {
	return m.blends.All()
}

func (m *Mosaic) removeBlendsUsing(e *entry) {
	for _, c := range m.blends.All() {
		if c.Uses(e.image) {
			m.blends.Remove(c)
		}
	}
}
