package mosaic

import (
	"github.com/paulmach/orb"

	"rastermosaic/pkg/geometry"
	"rastermosaic/pkg/message"
	"rastermosaic/pkg/raster"
)

// UpdateNeighbors recomputes every member touching update, then the
// global dispersion and the corridors of the region.
func (m *Mosaic) UpdateNeighbors(update *geometry.Shape) {
	ext, ok := m.extentOf(update)
	if !ok {
		return
	}
	m.begin()
	defer m.end()
	m.updateNeighbors(ext)
}

func (m *Mosaic) updateNeighbors(ext orb.Bound) {
	// Disabled balancing still keeps neighbors current
	for _, e := range m.images.Query(ext) {
		m.setupFilterFor(e)
	}
	m.SetGlobalDispersion()
	m.InvalidateBlends()
	m.manageBlends(ext)
}

// RecomputeRegion refreshes the histograms of the members touching
// update. A lone member has nothing overlap dependent to refresh, so
// fewer than two members is a no-op reported as false.
func (m *Mosaic) RecomputeRegion(update *geometry.Shape) bool {
	ext, ok := m.extentOf(update)
	if !ok {
		return false
	}
	touched := m.images.Query(ext)
	if len(touched) < 2 {
		return false
	}
	for _, e := range touched {
		e.image.RecomputeHistograms()
	}
	m.SetGlobalDispersion()
	m.InvalidateBlends()
	return true
}

func (m *Mosaic) senderEntry(msg message.Message) *entry {
	layer, ok := msg.Source().(*raster.Reference)
	if !ok {
		return nil
	}
	return m.byLayer[layer]
}

// onPaletteChanged always substitutes its own content change
func (m *Mosaic) onPaletteChanged(msg message.Message) bool {
	e := m.senderEntry(msg)
	if e == nil {
		return true
	}
	shape := e.shape()
	if m.RecomputeRegion(shape) {
		m.raiseFull()
	} else {
		m.raise(shape)
	}
	return false
}

// onContentChanged lets the change through, as coming from the member,
// when nothing overlap dependent changed
func (m *Mosaic) onContentChanged(msg message.Message) bool {
	e := m.senderEntry(msg)
	if e == nil {
		return true
	}
	cc := msg.(message.ContentChangedMsg)
	shape := cc.Shape
	if shape == nil {
		shape = e.shape()
	}
	if m.RecomputeRegion(shape) {
		m.raiseFull()
		return false
	}
	m.passthrough = append(m.passthrough, message.ContentChangedMsg{From: e.source, Shape: cc.Shape})
	return true
}

func (m *Mosaic) onGeometryChanged(msg message.Message) bool {
	e := m.senderEntry(msg)
	if e == nil {
		return true
	}

	// The clip follows the member's new placement
	e.layer.ResetClip(m.clipFor(e.source))
	m.removeBlendsUsing(e)
	e.image.RecomputeHistograms()
	ext, ok := m.reindex(e)
	m.refreshShape()

	for _, o := range m.entries {
		if o != e && o.image.UsesAsNeighbor(e.image) {
			m.setupFilterFor(o)
		}
	}
	if ok {
		m.updateNeighbors(ext)
	}
	m.raiseFull()
	return false
}
