package mosaic

import (
	"fmt"

	"github.com/paulmach/orb"
	log "github.com/sirupsen/logrus"

	"rastermosaic/pkg/geometry"
)

// Move translates every member by (dx, dy), expressed in the mosaic
// system. Members notify their own geometry changes.
func (m *Mosaic) Move(dx, dy float64) {
	m.begin()
	defer m.end()

	for _, e := range m.snapshot() {
		cross, ok := m.crossTransfo(e)
		if !ok {
			continue
		}
		if cross.PreservesParallelism() {
			origin := cross.Apply(orb.Point{0, 0})
			moved := cross.Apply(orb.Point{dx, dy})
			e.source.Move(moved[0]-origin[0], moved[1]-origin[1])
			continue
		}
		m.conjugate(e, geometry.Translation(dx, dy), cross)
	}
	m.refreshShape()
}

// Rotate rotates every member by angle radians around center, expressed
// in the mosaic system
func (m *Mosaic) Rotate(angle float64, center orb.Point) {
	m.begin()
	defer m.end()

	for _, e := range m.snapshot() {
		cross, ok := m.crossTransfo(e)
		if !ok {
			continue
		}
		m.conjugate(e, geometry.Rotation(angle, center), cross)
	}
	m.refreshShape()
}

// Scale scales every member by (fx, fy) around center, expressed in the
// mosaic system
func (m *Mosaic) Scale(fx, fy float64, center orb.Point) {
	m.begin()
	defer m.end()

	for _, e := range m.snapshot() {
		cross, ok := m.crossTransfo(e)
		if !ok {
			continue
		}
		if cross.PreservesDirection() {
			e.source.Scale(fx, fy, cross.Apply(center))
			continue
		}
		m.conjugate(e, geometry.Stretch(fx, fy, center), cross)
	}
	m.refreshShape()
}

func (m *Mosaic) snapshot() []*entry {
	out := make([]*entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// crossTransfo maps mosaic coordinates into the member's coordinates
func (m *Mosaic) crossTransfo(e *entry) (geometry.Transfo, bool) {
	cross, err := m.cs.TransfoTo(e.source.CoordSys())
	if err != nil {
		m.log.WithFields(log.Fields{"raster": fmt.Sprintf("%p", e.source)}).WithError(err).Warn("Cannot relate member to the mosaic, skipping transformation")
		return geometry.Transfo{}, false
	}
	return cross, true
}

// conjugate applies op, expressed in the mosaic system, by giving the
// member a new coordinate system related to its current one by
// cross o op o cross^-1
func (m *Mosaic) conjugate(e *entry, op, cross geometry.Transfo) {
	inv, err := cross.Inverse()
	if err != nil {
		m.log.WithFields(log.Fields{"raster": fmt.Sprintf("%p", e.source)}).WithError(err).Warn("Cannot invert member transformation, skipping transformation")
		return
	}
	t := inv.Compose(op).Compose(cross)
	if s, ok := t.Simplify(); ok {
		t = s
	}
	e.source.SetCoordSys(e.source.CoordSys().Derive(t))
}
