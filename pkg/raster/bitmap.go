package raster

import (
	"errors"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/paulmach/orb"

	"rastermosaic/pkg/geometry"
	"rastermosaic/pkg/message"
)

// ErrNotPaletted is returned when a palette is set on a bitmap that was not
// created from a paletted image
var ErrNotPaletted = errors.New("raster: bitmap has no palette")

// Bitmap is an in-memory raster
type Bitmap struct {
	message.Emitter

	cs       *geometry.CoordSys
	pix      *image.NRGBA
	model    color.Model
	paletted *image.Paletted
}

// NewBitmap copies img into a bitmap expressed in cs
func NewBitmap(img image.Image, cs *geometry.CoordSys) *Bitmap {
	b := &Bitmap{cs: cs, model: img.ColorModel()}
	if p, ok := img.(*image.Paletted); ok {
		b.paletted = image.NewPaletted(image.Rect(0, 0, p.Rect.Dx(), p.Rect.Dy()), p.Palette)
		draw.Draw(b.paletted, b.paletted.Rect, p, p.Rect.Min, draw.Src)
	}
	b.pix = imaging.Clone(img)
	return b
}

// CoordSys returns the coordinate system of the bitmap
func (b *Bitmap) CoordSys() *geometry.CoordSys {
	return b.cs
}

// EffectiveShape returns the pixel grid rectangle
func (b *Bitmap) EffectiveShape() *geometry.Shape {
	return geometry.RectShape(b.cs, pixelBound(b.pix.Rect))
}

// Pixels returns the pixel grid
func (b *Bitmap) Pixels() *image.NRGBA {
	return b.pix
}

// ColorModel returns the color model of the image the bitmap was built from
func (b *Bitmap) ColorModel() color.Model {
	return b.model
}

// Move places the bitmap in a coordinate system translated by (dx, dy)
func (b *Bitmap) Move(dx, dy float64) {
	b.SetCoordSys(b.cs.Derive(geometry.Translation(dx, dy)))
}

// Scale places the bitmap in a coordinate system stretched around center
func (b *Bitmap) Scale(fx, fy float64, center orb.Point) {
	b.SetCoordSys(b.cs.Derive(geometry.Stretch(fx, fy, center)))
}

// SetCoordSys replaces the coordinate system
func (b *Bitmap) SetCoordSys(cs *geometry.CoordSys) {
	b.cs = cs
	b.Propagate(message.GeometryChangedMsg{From: b})
}

// SetPixels replaces the pixel grid. A grid of a different size changes the
// geometry, otherwise only the content changes.
func (b *Bitmap) SetPixels(img image.Image) {
	old := b.pix.Rect
	b.pix = imaging.Clone(img)
	b.model = img.ColorModel()
	b.paletted = nil
	if b.pix.Rect != old {
		b.Propagate(message.GeometryChangedMsg{From: b})
		return
	}
	b.Propagate(message.ContentChangedMsg{From: b, Shape: b.EffectiveShape()})
}

// Touch reports that pixels inside bound changed in place
func (b *Bitmap) Touch(bound orb.Bound) {
	b.Propagate(message.ContentChangedMsg{From: b, Shape: geometry.RectShape(b.cs, bound)})
}

// SetPalette replaces the palette of a bitmap created from a paletted image
func (b *Bitmap) SetPalette(p color.Palette) error {
	if b.paletted == nil {
		return ErrNotPaletted
	}
	b.paletted.Palette = p
	b.pix = imaging.Clone(b.paletted)
	b.Propagate(message.PaletteChangedMsg{From: b})
	return nil
}
