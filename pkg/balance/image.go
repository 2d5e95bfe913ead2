// Package balance implements color balanced images: a source raster with
// its resolved neighbors, the region where it is authoritative and the
// statistics used to correct its colors toward its neighbors.
package balance

import (
	"image/color"
	"math"

	"github.com/paulmach/orb"
	log "github.com/sirupsen/logrus"

	"rastermosaic/internal/models"
	"rastermosaic/pkg/geometry"
	"rastermosaic/pkg/histogram"
	"rastermosaic/pkg/raster"
)

// StripDepth is the fraction of an image's extent sampled along a side
// when it only touches its neighbor
const StripDepth = 0.1

// Image is a color balanced image. Neighbor pointers are not owning.
type Image struct {
	cache *histogram.Cache
	log   log.FieldLogger

	neighbors [4]*Image
	pcs       *geometry.CoordSys
	appShape  *geometry.Shape

	global     bool
	positional bool
	quality    models.SamplingQuality
	globalDisp models.Dispersion

	stats *stripStats
}

type sideStats struct {
	self     histogram.Moments
	neighbor histogram.Moments
	ok       bool
}

type stripStats struct {
	extent  orb.Bound
	sides   [4]sideStats
	self    histogram.Moments
	local   models.Dispersion
	invalid bool
}

// New wraps the source of cache. Both algorithms start enabled.
func New(cache *histogram.Cache, logger log.FieldLogger) *Image {
	return &Image{
		cache:      cache,
		log:        logger,
		global:     true,
		positional: true,
		quality:    models.Normal,
	}
}

// Source returns the wrapped raster
func (i *Image) Source() raster.Sampler {
	return i.cache.Source()
}

// Cache returns the histogram cache of the source
func (i *Image) Cache() *histogram.Cache {
	return i.cache
}

// EffectiveShape returns the full footprint of the source
func (i *Image) EffectiveShape() *geometry.Shape {
	return i.Source().EffectiveShape()
}

// PhysicalCoordSys returns the system neighbors were resolved in, falling
// back to the source's own system.
func (i *Image) PhysicalCoordSys() *geometry.CoordSys {
	if i.pcs != nil {
		return i.pcs
	}
	return i.Source().CoordSys()
}

// SetNeighbors replaces the four neighbors, resolved in pcs
func (i *Image) SetNeighbors(pcs *geometry.CoordSys, neighbors [4]*Image) {
	i.pcs = pcs
	i.neighbors = neighbors
	i.stats = nil
}

// ClearNeighbors forgets every neighbor
func (i *Image) ClearNeighbors() {
	i.neighbors = [4]*Image{}
	i.stats = nil
}

// Neighbor returns the neighbor on side s, nil when there is none
func (i *Image) Neighbor(s models.Side) *Image {
	return i.neighbors[s]
}

// Neighbors returns the neighbors indexed by side
func (i *Image) Neighbors() [4]*Image {
	return i.neighbors
}

// UsesAsNeighbor reports whether o is one of the neighbors
func (i *Image) UsesAsNeighbor(o *Image) bool {
	for _, n := range i.neighbors {
		if n != nil && n == o {
			return true
		}
	}
	return false
}

// ApplicationShape returns where the image is authoritative. It is the
// effective shape until neighbors shrink it.
func (i *Image) ApplicationShape() *geometry.Shape {
	if i.appShape == nil {
		return i.EffectiveShape()
	}
	return i.appShape
}

// SetApplicationShape replaces the application shape, nil resets it to the
// effective shape
func (i *Image) SetApplicationShape(s *geometry.Shape) {
	i.appShape = s
}

func (i *Image) GlobalAlgorithm() bool     { return i.global }
func (i *Image) PositionalAlgorithm() bool { return i.positional }

func (i *Image) SetGlobalAlgorithm(on bool)     { i.global = on }
func (i *Image) SetPositionalAlgorithm(on bool) { i.positional = on }

// Quality returns the sampling quality
func (i *Image) Quality() models.SamplingQuality {
	return i.quality
}

// SetQuality changes the sampling quality, dropping statistics sampled
// with the previous one
func (i *Image) SetQuality(q models.SamplingQuality) {
	if q == i.quality {
		return
	}
	i.quality = q
	i.stats = nil
}

// RecomputeHistograms drops every cached histogram and statistic
func (i *Image) RecomputeHistograms() {
	i.cache.Invalidate()
	i.stats = nil
}

// LocalDispersion returns the per-channel dispersion of the strips shared
// with neighbors. It is not valid when no strip has pixels.
func (i *Image) LocalDispersion() models.Dispersion {
	return i.ensureStats().local
}

// GlobalDispersion returns the mosaic-wide dispersion last pushed in
func (i *Image) GlobalDispersion() models.Dispersion {
	return i.globalDisp
}

// SetGlobalDispersion sets the dispersion the global algorithm normalizes to
func (i *Image) SetGlobalDispersion(d models.Dispersion) {
	i.globalDisp = d
}

func (i *Image) ensureStats() *stripStats {
	if i.stats != nil {
		return i.stats
	}
	s := &stripStats{}
	i.stats = s

	pcs := i.PhysicalCoordSys()
	ext, err := i.EffectiveShape().ExtentIn(pcs)
	if err != nil {
		i.log.WithFields(log.Fields{"error": err}).Warn("Cannot express image in its physical coordinate system")
		s.invalid = true
		return s
	}
	s.extent = ext

	step := i.quality.Step()
	merged := &histogram.Histogram{}
	for _, side := range models.Sides {
		n := i.neighbors[side]
		if n == nil {
			continue
		}
		next, err := n.EffectiveShape().ExtentIn(pcs)
		if err != nil {
			i.log.WithFields(log.Fields{"side": side, "error": err}).Warn("Cannot express neighbor in physical coordinate system")
			continue
		}
		selfRegion, neighborRegion := stripRegions(ext, next, side)
		hs, err := i.cache.Compute(selfRegion, pcs, step)
		if err != nil {
			continue
		}
		hn, err := n.cache.Compute(neighborRegion, pcs, step)
		if err != nil {
			continue
		}
		ms, okSelf := hs.Moments()
		mn, okNeighbor := hn.Moments()
		if !okSelf || !okNeighbor {
			continue
		}
		s.sides[side] = sideStats{self: ms, neighbor: mn, ok: true}
		merged.Merge(hs)
	}

	if m, ok := merged.Moments(); ok {
		s.self = m
		s.local = models.Dispersion{Std: m.Std, Valid: true}
	}
	return s
}

// stripRegions returns the regions of self and of its neighbor sampled for
// side. Overlapping extents share their overlap, touching extents use a
// band on each side of the shared edge.
func stripRegions(self, other orb.Bound, side models.Side) (orb.Bound, orb.Bound) {
	overlap := orb.Bound{
		Min: orb.Point{math.Max(self.Min[0], other.Min[0]), math.Max(self.Min[1], other.Min[1])},
		Max: orb.Point{math.Min(self.Max[0], other.Max[0]), math.Min(self.Max[1], other.Max[1])},
	}
	if overlap.Max[0] > overlap.Min[0] && overlap.Max[1] > overlap.Min[1] {
		return overlap, overlap
	}

	// Extent of the shared edge across the side
	y0, y1 := overlap.Min[1], overlap.Max[1]
	if y0 > y1 {
		y0, y1 = self.Min[1], self.Max[1]
	}
	x0, x1 := overlap.Min[0], overlap.Max[0]
	if x0 > x1 {
		x0, x1 = self.Min[0], self.Max[0]
	}

	dx := (self.Max[0] - self.Min[0]) * StripDepth
	dy := (self.Max[1] - self.Min[1]) * StripDepth
	band := func(a0, a1, b0, b1 float64) orb.Bound {
		return orb.Bound{Min: orb.Point{a0, b0}, Max: orb.Point{a1, b1}}
	}

	switch side {
	case models.Left:
		e := self.Min[0]
		return band(e, e+dx, y0, y1), band(e-dx, e, y0, y1)
	case models.Right:
		e := self.Max[0]
		return band(e-dx, e, y0, y1), band(e, e+dx, y0, y1)
	case models.Bottom:
		e := self.Min[1]
		return band(x0, x1, e, e+dy), band(x0, x1, e-dy, e)
	default:
		e := self.Max[1]
		return band(x0, x1, e-dy, e), band(x0, x1, e, e+dy)
	}
}

// Correct returns the balanced color of c sampled at p, expressed in the
// physical coordinate system.
func (i *Image) Correct(c color.NRGBA, p orb.Point) color.NRGBA {
	if !i.global && !i.positional {
		return c
	}
	s := i.ensureStats()
	if s.invalid {
		return c
	}
	v := [3]float64{float64(c.R), float64(c.G), float64(c.B)}

	if i.global && i.globalDisp.Valid && s.local.Valid {
		for ch := 0; ch < 3; ch++ {
			if s.local.Std[ch] > 0 {
				mean := s.self.Mean[ch]
				v[ch] = (v[ch]-mean)*(i.globalDisp.Std[ch]/s.local.Std[ch]) + mean
			}
		}
	}

	if i.positional {
		for _, side := range models.Sides {
			st := s.sides[side]
			if !st.ok {
				continue
			}
			w := sideWeight(s.extent, side, p)
			for ch := 0; ch < 3; ch++ {
				v[ch] += (st.neighbor.Mean[ch] - st.self.Mean[ch]) / 2 * w
			}
		}
	}

	return color.NRGBA{R: clampByte(v[0]), G: clampByte(v[1]), B: clampByte(v[2]), A: c.A}
}

// sideWeight is 1 on the side's edge and falls to 0 at the middle of the extent
func sideWeight(ext orb.Bound, side models.Side, p orb.Point) float64 {
	var d, half float64
	switch side {
	case models.Left:
		d, half = p[0]-ext.Min[0], (ext.Max[0]-ext.Min[0])/2
	case models.Right:
		d, half = ext.Max[0]-p[0], (ext.Max[0]-ext.Min[0])/2
	case models.Bottom:
		d, half = p[1]-ext.Min[1], (ext.Max[1]-ext.Min[1])/2
	default:
		d, half = ext.Max[1]-p[1], (ext.Max[1]-ext.Min[1])/2
	}
	if half <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1, 1-d/half))
}

func clampByte(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}
