package mosaic

import (
	"fmt"

	"github.com/paulmach/orb"
	log "github.com/sirupsen/logrus"

	"rastermosaic/pkg/balance"
	"rastermosaic/pkg/blend"
	"rastermosaic/pkg/geometry"
	"rastermosaic/pkg/histogram"
	"rastermosaic/pkg/raster"
	"rastermosaic/pkg/spatial"
)

// Add appends r in front of every member. Rasters that cannot be color
// balanced are skipped without error.
func (m *Mosaic) Add(r raster.Raster) error {
	return m.AddAll([]raster.Raster{r})
}

// AddAll appends rasters in order. Neighbors are recomputed once over the
// union of the new shapes. The whole list is checked first: on a
// precondition error nothing is added.
func (m *Mosaic) AddAll(rs []raster.Raster) error {
	seen := make(map[raster.Raster]bool, len(rs))
	for _, r := range rs {
		if r == nil {
			continue
		}
		if err := m.checkAdd(r); err != nil {
			return err
		}
		if seen[r] {
			return &PreconditionError{Op: "add", Reason: "raster listed twice"}
		}
		seen[r] = true
	}

	m.begin()
	defer m.end()

	var added []*entry
	for _, r := range rs {
		e, err := m.addInternalLayers(r)
		if err != nil {
			m.afterAdd(added)
			return err
		}
		if e == nil {
			continue
		}
		m.entries = append(m.entries, e)
		added = append(added, e)
	}
	m.afterAdd(added)
	return nil
}

// AddBefore inserts r just behind ref. Nothing happens when ref is not a member.
func (m *Mosaic) AddBefore(r, ref raster.Raster) error {
	return m.addRelative(r, ref, 0)
}

// AddAfter inserts r just in front of ref. Nothing happens when ref is not a member.
func (m *Mosaic) AddAfter(r, ref raster.Raster) error {
	return m.addRelative(r, ref, 1)
}

func (m *Mosaic) addRelative(r, ref raster.Raster, offset int) error {
	refEntry, ok := m.byRaster[ref]
	if !ok {
		return nil
	}

	m.begin()
	defer m.end()

	e, err := m.addInternalLayers(r)
	if err != nil || e == nil {
		return err
	}
	pos := m.position(refEntry) + offset
	m.entries = append(m.entries, nil)
	copy(m.entries[pos+1:], m.entries[pos:])
	m.entries[pos] = e
	m.afterAdd([]*entry{e})
	return nil
}

// addInternalLayers builds the clip layer, histogram cache and balanced
// image of r and registers them. It returns nil for rasters that cannot
// be balanced.
func (m *Mosaic) addInternalLayers(r raster.Raster) (*entry, error) {
	if r == nil {
		return nil, nil
	}
	if err := m.checkAdd(r); err != nil {
		return nil, err
	}
	fields := log.Fields{"raster": fmt.Sprintf("%p", r)}
	if !raster.IsAValidSource(r) {
		m.log.WithFields(fields).Debug("Skipping raster that cannot be color balanced")
		return nil, nil
	}
	if _, err := r.EffectiveShape().ExtentIn(m.cs); err != nil {
		m.log.WithFields(fields).WithError(err).Warn("Skipping raster unrelated to the mosaic coordinate system")
		return nil, nil
	}

	layer := raster.NewReference(r, m.clipFor(r))
	cache := histogram.NewCache(layer)
	img := balance.New(cache, m.log)
	img.SetGlobalAlgorithm(m.settings.ApplyGlobal)
	img.SetPositionalAlgorithm(m.settings.ApplyPositional)
	img.SetQuality(m.settings.Quality)

	e := &entry{source: r, layer: layer, cache: cache, image: img}
	m.byRaster[r] = e
	m.byLayer[layer] = e
	m.reindex(e)
	layer.Link(m)
	return e, nil
}

// checkAdd returns the precondition error adding r would raise
func (m *Mosaic) checkAdd(r raster.Raster) error {
	if self, ok := r.(*Mosaic); ok && self == m {
		return &PreconditionError{Op: "add", Reason: "a mosaic cannot contain itself"}
	}
	if _, ok := m.byRaster[r]; ok {
		return &PreconditionError{Op: "add", Reason: "raster is already a member"}
	}
	return nil
}

// clipFor asks the topology for the clip polygon of r. Rasters without one
// stay unclipped.
func (m *Mosaic) clipFor(r raster.Raster) *geometry.Shape {
	clip, ok := m.topo.ClipPolygon(r)
	if !ok {
		m.log.WithFields(log.Fields{"raster": fmt.Sprintf("%p", r)}).Warn("No clip polygon for raster, leaving it unclipped")
		return nil
	}
	return clip
}

// UpdateClip fetches the clip polygon of member r from the topology again,
// after the topology itself changed. Neighbors and corridors around r are
// reconciled.
func (m *Mosaic) UpdateClip(r raster.Raster) {
	e, ok := m.byRaster[r]
	if !ok {
		return
	}

	m.begin()
	defer m.end()

	last := e.shape()
	e.layer.SetClip(m.clipFor(e.source))
	m.raise(last)
}

func (m *Mosaic) afterAdd(added []*entry) {
	if len(added) == 0 {
		return
	}
	region := geometry.EmptyShape(m.cs)
	for _, e := range added {
		if u, err := region.Union(e.shape()); err == nil {
			region = u
		}
	}
	m.refreshShape()
	if ext, ok := m.extentOf(region); ok {
		m.updateNeighbors(ext)
	}
	m.raise(region)
}

func (m *Mosaic) removeInternalLayers(e *entry) {
	e.layer.Unlink(m)
	e.layer.Detach()
	delete(m.byRaster, e.source)
	delete(m.byLayer, e.layer)
	if pos := m.position(e); pos >= 0 {
		m.entries = append(m.entries[:pos], m.entries[pos+1:]...)
	}
	m.images.Remove(e)
	m.removeBlendsUsing(e)
	for _, o := range m.entries {
		if o.image.UsesAsNeighbor(e.image) {
			o.image.ClearNeighbors()
		}
	}
}

// Remove takes r out of the mosaic. Removing a raster that is not a
// member does nothing.
func (m *Mosaic) Remove(r raster.Raster) {
	e, ok := m.byRaster[r]
	if !ok {
		return
	}

	m.begin()
	defer m.end()

	last := e.shape()
	m.removeInternalLayers(e)
	m.refreshShape()
	if ext, ok := m.extentOf(last); ok {
		m.updateNeighbors(ext)
	}
	m.raise(last)
}

// RemoveAll empties the mosaic
func (m *Mosaic) RemoveAll() {
	if len(m.entries) == 0 {
		return
	}

	m.begin()
	defer m.end()

	last := m.shape
	for _, e := range m.entries {
		e.layer.Unlink(m)
		e.layer.Detach()
	}
	m.byRaster = make(map[raster.Raster]*entry)
	m.byLayer = make(map[*raster.Reference]*entry)
	m.images = spatial.New[*entry]()
	m.blends = spatial.New[*blend.Corridor]()
	m.entries = nil
	m.SetGlobalDispersion()
	m.refreshShape()
	m.raise(last)
}

// Contains reports whether r is a member. A deep check also looks through
// the references members are built from.
func (m *Mosaic) Contains(r raster.Raster, deep bool) bool {
	if _, ok := m.byRaster[r]; ok {
		return true
	}
	// Internal clip layers count as the member they wrap
	for _, e := range m.entries {
		if raster.Raster(e.layer) == r {
			return true
		}
	}
	if !deep {
		return false
	}
	for _, e := range m.entries {
		if containsDeep(e.source, r) {
			return true
		}
	}
	return false
}

type container interface {
	Contains(r raster.Raster, deep bool) bool
}

func containsDeep(holder, r raster.Raster) bool {
	switch v := holder.(type) {
	case *raster.Reference:
		return v.Source() == r || containsDeep(v.Source(), r)
	case container:
		return v.Contains(r, true)
	}
	return false
}

// Members returns the member rasters from back to front
func (m *Mosaic) Members() []raster.Raster {
	out := make([]raster.Raster, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.source
	}
	return out
}

// Len returns the number of members
func (m *Mosaic) Len() int {
	return len(m.entries)
}

// Image returns the balanced image built for member r
func (m *Mosaic) Image(r raster.Raster) (*balance.Image, bool) {
	e, ok := m.byRaster[r]
	if !ok {
		return nil, false
	}
	return e.image, true
}

// Neighbors returns the members resolved as r's neighbors, indexed by side
func (m *Mosaic) Neighbors(r raster.Raster) [4]raster.Raster {
	var out [4]raster.Raster
	e, ok := m.byRaster[r]
	if !ok {
		return out
	}
	for side, n := range e.image.Neighbors() {
		if o := m.entryOf(n); o != nil {
			out[side] = o.source
		}
	}
	return out
}

func (m *Mosaic) entryOf(img *balance.Image) *entry {
	if img == nil {
		return nil
	}
	for _, e := range m.entries {
		if e.image == img {
			return e
		}
	}
	return nil
}

func (m *Mosaic) position(e *entry) int {
	for i, o := range m.entries {
		if o == e {
			return i
		}
	}
	return -1
}

// GetAt returns the frontmost member covering p, expressed in the mosaic
// system. Boundaries count as covered.
func (m *Mosaic) GetAt(p orb.Point) (raster.Raster, bool) {
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		shape, err := e.shape().In(m.cs)
		if err != nil {
			continue
		}
		if shape.Contains(p) {
			return e.source, true
		}
	}
	return nil, false
}

func (m *Mosaic) reorder(r raster.Raster, to func(pos int) int) {
	e, ok := m.byRaster[r]
	if !ok {
		return
	}
	pos := m.position(e)
	dst := to(pos)
	if dst < 0 {
		dst = 0
	}
	if dst > len(m.entries)-1 {
		dst = len(m.entries) - 1
	}
	if dst == pos {
		return
	}

	m.begin()
	defer m.end()

	m.entries = append(m.entries[:pos], m.entries[pos+1:]...)
	m.entries = append(m.entries, nil)
	copy(m.entries[dst+1:], m.entries[dst:])
	m.entries[dst] = e
	m.raise(e.shape())
}

// Sink moves r one step toward the back
func (m *Mosaic) Sink(r raster.Raster) {
	m.reorder(r, func(pos int) int { return pos - 1 })
}

// Float moves r one step toward the front
func (m *Mosaic) Float(r raster.Raster) {
	m.reorder(r, func(pos int) int { return pos + 1 })
}

// BringToFront moves r in front of every other member
func (m *Mosaic) BringToFront(r raster.Raster) {
	m.reorder(r, func(int) int { return len(m.entries) - 1 })
}

// SendToBack moves r behind every other member
func (m *Mosaic) SendToBack(r raster.Raster) {
	m.reorder(r, func(int) int { return 0 })
}
