package mosaic

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	log "github.com/sirupsen/logrus"

	"rastermosaic/internal/models"
	"rastermosaic/pkg/balance"
	"rastermosaic/pkg/geometry"
	"rastermosaic/pkg/raster"
)

// SetupFilterFor resolves the neighbors and application shape of member r
func (m *Mosaic) SetupFilterFor(r raster.Raster) {
	if e, ok := m.byRaster[r]; ok {
		m.setupFilterFor(e)
	}
}

// SelectNeighbors returns, for each side of member r's physical extent, the
// member dominating that side. It does not change any state.
func (m *Mosaic) SelectNeighbors(r raster.Raster) [4]raster.Raster {
	var out [4]raster.Raster
	e, ok := m.byRaster[r]
	if !ok {
		return out
	}
	pcs, ok := raster.PhysicalCoordSys(e.source)
	if !ok {
		return out
	}
	for side, n := range m.selectNeighbors(e, pcs) {
		if n != nil {
			out[side] = n.source
		}
	}
	return out
}

func (m *Mosaic) setupFilterFor(e *entry) {
	fields := log.Fields{"raster": fmt.Sprintf("%p", e.source)}

	pcs, ok := raster.PhysicalCoordSys(e.source)
	if !ok {
		m.log.WithFields(fields).Warn("No physical coordinate system, using the full shape")
		e.image.ClearNeighbors()
		e.image.SetApplicationShape(nil)
		return
	}
	eff, err := e.shape().In(pcs)
	if err != nil {
		m.log.WithFields(fields).WithError(err).Warn("Cannot express shape in physical coordinates, using the full shape")
		e.image.ClearNeighbors()
		e.image.SetApplicationShape(nil)
		return
	}

	neighbors := m.selectNeighbors(e, pcs)

	// Shrink the application rectangle to the boundary shared with each neighbor
	rect := eff.Extent()
	var images [4]*balance.Image
	for _, side := range models.Sides {
		n := neighbors[side]
		if n == nil {
			continue
		}
		images[side] = n.image

		boundary, ok := m.topo.Boundary(e.layer, n.layer)
		if !ok {
			m.log.WithFields(fields).WithField("side", side).Debug("Neighbor shares no boundary")
			continue
		}
		line, err := boundary.In(pcs)
		if err != nil {
			continue
		}
		b := line.Extent()
		switch side {
		case models.Left:
			rect.Min[0] = math.Max(rect.Min[0], b.Min[0])
		case models.Bottom:
			rect.Min[1] = math.Max(rect.Min[1], b.Min[1])
		case models.Right:
			rect.Max[0] = math.Min(rect.Max[0], b.Max[0])
		case models.Top:
			rect.Max[1] = math.Min(rect.Max[1], b.Max[1])
		}
	}

	e.image.SetNeighbors(pcs, images)
	e.image.SetApplicationShape(eff.Clip(rect))
}

// sideSegments returns the four sides of ext, traversed counter-clockwise
// from its minimum corner
func sideSegments(ext orb.Bound) [4][2]orb.Point {
	var segs [4][2]orb.Point
	segs[models.Bottom] = [2]orb.Point{{ext.Min[0], ext.Min[1]}, {ext.Max[0], ext.Min[1]}}
	segs[models.Right] = [2]orb.Point{{ext.Max[0], ext.Min[1]}, {ext.Max[0], ext.Max[1]}}
	segs[models.Top] = [2]orb.Point{{ext.Max[0], ext.Max[1]}, {ext.Min[0], ext.Max[1]}}
	segs[models.Left] = [2]orb.Point{{ext.Min[0], ext.Max[1]}, {ext.Min[0], ext.Min[1]}}
	return segs
}

// coverage returns the fraction of each side of ext covered by shape
func coverage(ext orb.Bound, shape *geometry.Shape) [4]float64 {
	var f [4]float64
	for side, seg := range sideSegments(ext) {
		if frac, ok := geometry.SegmentCoverage(seg[0], seg[1], shape.MultiPolygon()); ok {
			f[side] = frac
		}
	}
	return f
}

// dominates reports whether side s has strictly more coverage than every
// other side
func dominates(f [4]float64, s models.Side) bool {
	for _, o := range models.Sides {
		if o != s && !(f[s] > f[o]) {
			return false
		}
	}
	return true
}

// selectNeighbors picks, per side, the candidate covering that side the
// most. A candidate only competes for the side it covers strictly more
// than its three other sides, and must strictly beat the best candidate
// seen so far: an exact tie keeps the first evaluated one.
func (m *Mosaic) selectNeighbors(e *entry, pcs *geometry.CoordSys) [4]*entry {
	var out [4]*entry
	eff, err := e.shape().In(pcs)
	if err != nil {
		return out
	}
	ext := eff.Extent()

	indexed, ok := m.images.Extent(e)
	if !ok {
		return out
	}

	var best [4]float64
	for _, c := range m.images.Query(indexed) {
		if c == e {
			continue
		}
		shape, err := c.shape().In(pcs)
		if err != nil {
			continue
		}
		f := coverage(ext, shape)
		for _, side := range models.Sides {
			if dominates(f, side) && f[side] > best[side] {
				best[side] = f[side]
				out[side] = c
			}
		}
	}
	return out
}
