// Package mosaic implements the seamless mosaic: an ordered set of
// overlapping rasters composited into one continuous image. The mosaic
// resolves each member's neighbors, balances colors across them and keeps
// one blend corridor per pair of adjacent members.
//
// A Mosaic is not safe for concurrent use. Every public mutator runs all
// cascading recomputation before returning and raises exactly one
// consolidated content change to its listeners at the end.
package mosaic

import (
	"fmt"

	"github.com/paulmach/orb"
	log "github.com/sirupsen/logrus"

	"rastermosaic/internal/models"
	"rastermosaic/pkg/balance"
	"rastermosaic/pkg/blend"
	"rastermosaic/pkg/geometry"
	"rastermosaic/pkg/histogram"
	"rastermosaic/pkg/message"
	"rastermosaic/pkg/raster"
	"rastermosaic/pkg/spatial"
	"rastermosaic/pkg/topology"
)

// entry is what the mosaic stores per member: the client raster, the clip
// layer the mosaic listens to, and the balancing state built on top of it.
type entry struct {
	source raster.Raster
	layer  *raster.Reference
	cache  *histogram.Cache
	image  *balance.Image
}

// shape returns the clipped footprint of the member
func (e *entry) shape() *geometry.Shape {
	return e.layer.EffectiveShape()
}

// Mosaic is a seamless mosaic of rasters
type Mosaic struct {
	message.Emitter

	cs       *geometry.CoordSys
	topo     topology.Topology
	log      log.FieldLogger
	settings models.Settings

	entries  []*entry
	byRaster map[raster.Raster]*entry
	byLayer  map[*raster.Reference]*entry
	images   *spatial.Index[*entry]
	blends   *spatial.Index[*blend.Corridor]
	global   models.Dispersion
	shape    *geometry.Shape
	handlers message.Table

	depth       int
	pendingFull bool
	pending     *geometry.Shape
	passthrough []message.ContentChangedMsg
}

// New creates an empty mosaic working in cs. The topology is shared and
// never modified by the mosaic.
func New(cs *geometry.CoordSys, topo topology.Topology, logger log.FieldLogger, settings models.Settings) (*Mosaic, error) {
	if settings.BlendWidth <= 0 {
		return nil, &PreconditionError{Op: "new", Reason: fmt.Sprintf("blend width must be positive, got %v", settings.BlendWidth)}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	m := &Mosaic{
		cs:       cs,
		topo:     topo,
		log:      logger,
		settings: settings,
		byRaster: make(map[raster.Raster]*entry),
		byLayer:  make(map[*raster.Reference]*entry),
		images:   spatial.New[*entry](),
		blends:   spatial.New[*blend.Corridor](),
		shape:    geometry.EmptyShape(cs),
	}
	m.handlers = message.Table{
		message.GeometryChanged: m.onGeometryChanged,
		message.PaletteChanged:  m.onPaletteChanged,
		message.ContentChanged:  m.onContentChanged,
	}
	return m, nil
}

// CoordSys returns the logical coordinate system of the mosaic
func (m *Mosaic) CoordSys() *geometry.CoordSys {
	return m.cs
}

// EffectiveShape returns the union of the member shapes
func (m *Mosaic) EffectiveShape() *geometry.Shape {
	return m.shape
}

// Settings returns the current tunables
func (m *Mosaic) Settings() models.Settings {
	return m.settings
}

// SetCoordSys replaces the logical coordinate system. Members keep their
// own geometry; indices and corridors are rebuilt in the new system.
func (m *Mosaic) SetCoordSys(cs *geometry.CoordSys) {
	m.begin()
	defer m.end()

	m.cs = cs
	m.blends = spatial.New[*blend.Corridor]()
	for _, e := range m.entries {
		m.reindex(e)
	}
	m.refreshShape()
	m.updateNeighbors(m.shape.Extent())
	m.raiseFull()
}

// Receive dispatches member notifications to the mosaic's handlers
func (m *Mosaic) Receive(msg message.Message) bool {
	m.begin()
	defer m.end()

	propagate, _ := m.handlers.Dispatch(msg)
	return propagate
}

// reindex stores the member's current extent, expressed in the mosaic system
func (m *Mosaic) reindex(e *entry) (orb.Bound, bool) {
	ext, err := e.shape().ExtentIn(m.cs)
	if err != nil {
		m.log.WithFields(log.Fields{"raster": fmt.Sprintf("%p", e.source), "error": err}).Warn("Cannot express member in the mosaic coordinate system")
		old, ok := m.images.Extent(e)
		return old, ok
	}
	m.images.Insert(e, ext)
	return ext, true
}

func (m *Mosaic) refreshShape() {
	shape := geometry.EmptyShape(m.cs)
	for _, e := range m.entries {
		u, err := shape.Union(e.shape())
		if err != nil {
			continue
		}
		shape = u
	}
	m.shape = shape
}

func (m *Mosaic) extentOf(s *geometry.Shape) (orb.Bound, bool) {
	if s == nil {
		return orb.Bound{}, false
	}
	ext, err := s.ExtentIn(m.cs)
	if err != nil {
		m.log.WithFields(log.Fields{"error": err}).Warn("Cannot express update region in the mosaic coordinate system")
		return orb.Bound{}, false
	}
	return ext, true
}

func (m *Mosaic) begin() {
	m.depth++
}

// end closes a batch. The outermost batch flushes buffered notifications.
func (m *Mosaic) end() {
	m.depth--
	if m.depth > 0 {
		return
	}
	m.flush()
}

// raise buffers a content change over shape
func (m *Mosaic) raise(shape *geometry.Shape) {
	if shape == nil {
		m.pendingFull = true
		return
	}
	if m.pending == nil {
		m.pending = geometry.EmptyShape(m.cs)
	}
	if u, err := m.pending.Union(shape); err == nil {
		m.pending = u
	} else {
		m.pendingFull = true
	}
}

// raiseFull buffers a content change over the whole mosaic
func (m *Mosaic) raiseFull() {
	m.raise(nil)
}

func (m *Mosaic) flush() {
	full, pending, passthrough := m.pendingFull, m.pending, m.passthrough
	m.pendingFull, m.pending, m.passthrough = false, nil, nil

	var msg message.Message
	switch {
	case full:
		msg = message.ContentChangedMsg{From: m, Shape: m.shape}
	case pending != nil:
		shape := pending
		for _, p := range passthrough {
			if u, err := shape.Union(p.Shape); err == nil {
				shape = u
			}
		}
		msg = message.ContentChangedMsg{From: m, Shape: shape}
	case len(passthrough) == 1:
		msg = passthrough[0]
	case len(passthrough) > 1:
		shape := geometry.EmptyShape(m.cs)
		for _, p := range passthrough {
			if u, err := shape.Union(p.Shape); err == nil {
				shape = u
			}
		}
		msg = message.ContentChangedMsg{From: m, Shape: shape}
	default:
		return
	}

	m.log.WithFields(log.Fields{"full": full, "relayed": len(passthrough)}).Debug("Flushing mosaic content change")
	m.Propagate(msg)
}
