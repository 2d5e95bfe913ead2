package raster

import (
	"image"
	"image/color"

	"github.com/paulmach/orb"

	"rastermosaic/pkg/geometry"
	"rastermosaic/pkg/message"
)

// Reference presents another raster restricted to an optional clip shape.
// It re-raises the messages of its source with itself as the sender.
type Reference struct {
	message.Emitter

	source Raster
	clip   *geometry.Shape
}

// NewReference wraps source and links to it. A nil clip keeps the full shape.
func NewReference(source Raster, clip *geometry.Shape) *Reference {
	r := &Reference{source: source, clip: clip}
	source.Link(r)
	return r
}

// Source returns the wrapped raster
func (r *Reference) Source() Raster {
	return r.source
}

// Clip returns the clip shape, nil when unclipped
func (r *Reference) Clip() *geometry.Shape {
	return r.clip
}

// SetClip replaces the clip shape and raises a geometry change
func (r *Reference) SetClip(clip *geometry.Shape) {
	r.clip = clip
	r.Propagate(message.GeometryChangedMsg{From: r})
}

// ResetClip replaces the clip shape without notifying receivers. Receivers
// use it while they handle a geometry change of the reference.
func (r *Reference) ResetClip(clip *geometry.Shape) {
	r.clip = clip
}

// Detach stops relaying the source's messages
func (r *Reference) Detach() {
	r.source.Unlink(r)
}

// CoordSys returns the source's coordinate system
func (r *Reference) CoordSys() *geometry.CoordSys {
	return r.source.CoordSys()
}

// EffectiveShape returns the source shape limited to the clip extent
func (r *Reference) EffectiveShape() *geometry.Shape {
	shape := r.source.EffectiveShape()
	if r.clip == nil {
		return shape
	}
	ext, err := r.clip.ExtentIn(shape.CoordSys())
	if err != nil {
		return shape
	}
	return shape.Clip(ext)
}

// Move moves the source
func (r *Reference) Move(dx, dy float64) {
	r.source.Move(dx, dy)
}

// Scale scales the source
func (r *Reference) Scale(fx, fy float64, center orb.Point) {
	r.source.Scale(fx, fy, center)
}

// SetCoordSys replaces the coordinate system of the source
func (r *Reference) SetCoordSys(cs *geometry.CoordSys) {
	r.source.SetCoordSys(cs)
}

// Pixels returns the source's pixel grid, nil when the source has none
func (r *Reference) Pixels() *image.NRGBA {
	if s, ok := r.source.(Sampler); ok {
		return s.Pixels()
	}
	return nil
}

// ColorModel returns the source's color model
func (r *Reference) ColorModel() color.Model {
	if m, ok := r.source.(colorModeler); ok {
		return m.ColorModel()
	}
	return color.NRGBAModel
}

// Receive relays source messages as coming from the reference
func (r *Reference) Receive(msg message.Message) bool {
	switch m := msg.(type) {
	case message.GeometryChangedMsg:
		r.Propagate(message.GeometryChangedMsg{From: r})
	case message.PaletteChangedMsg:
		r.Propagate(message.PaletteChangedMsg{From: r})
	case message.ContentChangedMsg:
		r.Propagate(message.ContentChangedMsg{From: r, Shape: m.Shape})
	}
	return false
}
