// Package raster defines the raster contract the mosaic works with, an
// in-memory Bitmap implementation and a Reference layer that clips another
// raster.
package raster

import (
	"image"
	"image/color"

	"github.com/paulmach/orb"

	"rastermosaic/pkg/geometry"
	"rastermosaic/pkg/message"
)

// Raster is an image placed in a coordinate system. Every mutation of the
// geometry must raise a GeometryChangedMsg to linked receivers.
type Raster interface {
	message.Sender

	// CoordSys returns the coordinate system the raster is expressed in
	CoordSys() *geometry.CoordSys

	// EffectiveShape returns the footprint of the raster in its own system
	EffectiveShape() *geometry.Shape

	// Move translates the raster by (dx, dy) expressed in its own system
	Move(dx, dy float64)

	// Scale scales the raster around center expressed in its own system
	Scale(fx, fy float64, center orb.Point)

	// SetCoordSys replaces the coordinate system of the raster
	SetCoordSys(cs *geometry.CoordSys)
}

// Sampler is a raster backed by a pixel grid. Pixel (x, y) covers the unit
// square [x, x+1] x [y, y+1] of the raster's coordinate system.
type Sampler interface {
	Raster
	Pixels() *image.NRGBA
}

type colorModeler interface {
	ColorModel() color.Model
}

// IsAValidSource reports whether r can be color balanced: it must expose a
// non-empty pixel grid converted from a supported color model.
func IsAValidSource(r Raster) bool {
	s, ok := r.(Sampler)
	if !ok {
		return false
	}
	pix := s.Pixels()
	if pix == nil || pix.Rect.Empty() {
		return false
	}
	if m, ok := r.(colorModeler); ok {
		switch m.ColorModel() {
		case color.CMYKModel, color.AlphaModel, color.Alpha16Model:
			return false
		}
	}
	return true
}

// PhysicalCoordSys returns the coordinate system of the bitmap underlying r,
// looking through at most one Reference.
func PhysicalCoordSys(r Raster) (*geometry.CoordSys, bool) {
	switch v := r.(type) {
	case *Bitmap:
		return v.CoordSys(), true
	case *Reference:
		if b, ok := v.Source().(*Bitmap); ok {
			return b.CoordSys(), true
		}
	}
	return nil, false
}

func pixelBound(r image.Rectangle) orb.Bound {
	return orb.Bound{
		Min: orb.Point{float64(r.Min.X), float64(r.Min.Y)},
		Max: orb.Point{float64(r.Max.X), float64(r.Max.Y)},
	}
}
