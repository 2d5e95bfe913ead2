package mosaic

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/paulmach/orb"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"rastermosaic/internal/models"
	"rastermosaic/pkg/balance"
	"rastermosaic/pkg/blend"
)

// ErrEmptyRender is returned when the render bound covers no pixel
var ErrEmptyRender = errors.New("mosaic: render bound covers no pixel")

// interpolator returns the resampling kernel matching a sampling quality
func interpolator(q models.SamplingQuality) draw.Interpolator {
	switch q {
	case models.Fast:
		return draw.NearestNeighbor
	case models.HighQuality:
		return draw.CatmullRom
	default:
		return draw.ApproxBiLinear
	}
}

// Render composites the mosaic over bound, expressed in the mosaic system.
// Row y of the result covers mosaic coordinates
// [bound.Min.Y + y*pixelSize, bound.Min.Y + (y+1)*pixelSize].
//
// Members are painted from back to front inside their application shapes
// after color correction, then the pixels of every corridor are mixed
// between the two corrected images in CIE L*a*b*.
func (m *Mosaic) Render(ctx context.Context, bound orb.Bound, pixelSize float64) (*image.NRGBA, error) {
	if pixelSize <= 0 {
		return nil, fmt.Errorf("mosaic: pixel size must be positive, got %v", pixelSize)
	}
	w := int(math.Ceil((bound.Max[0] - bound.Min[0]) / pixelSize))
	h := int(math.Ceil((bound.Max[1] - bound.Min[1]) / pixelSize))
	if w <= 0 || h <= 0 {
		return nil, ErrEmptyRender
	}

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	center := func(x, y int) orb.Point {
		return orb.Point{bound.Min[0] + (float64(x)+0.5)*pixelSize, bound.Min[1] + (float64(y)+0.5)*pixelSize}
	}
	kernel := interpolator(m.settings.Quality)
	layers := make(map[*balance.Image]*image.NRGBA, len(m.entries))

	for _, e := range m.entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		layer, ok := m.resample(e, bound, pixelSize, kernel, out.Rect)
		if !ok {
			continue
		}

		pcs := e.image.PhysicalCoordSys()
		toPhysical, err := m.cs.TransfoTo(pcs)
		if err != nil {
			continue
		}
		app, err := e.image.ApplicationShape().In(pcs)
		if err != nil {
			continue
		}
		eff, err := e.shape().In(pcs)
		if err != nil {
			continue
		}

		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				px := layer.NRGBAAt(x, y)
				if px.A == 0 {
					continue
				}
				p := toPhysical.Apply(center(x, y))
				if !eff.Contains(p) {
					layer.SetNRGBA(x, y, color.NRGBA{})
					continue
				}
				c := e.image.Correct(px, p)
				layer.SetNRGBA(x, y, c)
				if app.Contains(p) {
					over(out, x, y, c)
				}
			}
		}
		layers[e.image] = layer
	}

	for _, c := range m.blends.Query(bound) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.blendCorridor(out, c, layers, bound, pixelSize, center)
	}
	return out, nil
}

// resample draws the member's pixels onto a transparent layer the size of
// the output
func (m *Mosaic) resample(e *entry, bound orb.Bound, pixelSize float64, kernel draw.Interpolator, rect image.Rectangle) (*image.NRGBA, bool) {
	fields := log.Fields{"raster": fmt.Sprintf("%p", e.source)}
	toMosaic, err := e.layer.CoordSys().TransfoTo(m.cs)
	if err != nil {
		m.log.WithFields(fields).WithError(err).Warn("Cannot render member unrelated to the mosaic")
		return nil, false
	}
	a, ok := toMosaic.Coefficients()
	if !ok {
		m.log.WithFields(fields).Warn("Cannot render member with a projective transformation")
		return nil, false
	}
	pix := e.layer.Pixels()
	if pix == nil {
		return nil, false
	}

	s2d := f64.Aff3{
		a[0] / pixelSize, a[1] / pixelSize, (a[2] - bound.Min[0]) / pixelSize,
		a[3] / pixelSize, a[4] / pixelSize, (a[5] - bound.Min[1]) / pixelSize,
	}
	layer := image.NewNRGBA(rect)
	kernel.Transform(layer, s2d, pix, pix.Rect, draw.Src, nil)
	return layer, true
}

func (m *Mosaic) blendCorridor(out *image.NRGBA, c *blend.Corridor, layers map[*balance.Image]*image.NRGBA, bound orb.Bound, pixelSize float64, center func(x, y int) orb.Point) {
	a, b := c.Images()
	la, lb := layers[a], layers[b]
	if la == nil || lb == nil {
		return
	}

	ext := c.Extent()
	x0 := max(0, int(math.Floor((ext.Min[0]-bound.Min[0])/pixelSize)))
	y0 := max(0, int(math.Floor((ext.Min[1]-bound.Min[1])/pixelSize)))
	x1 := min(out.Rect.Dx(), int(math.Ceil((ext.Max[0]-bound.Min[0])/pixelSize)))
	y1 := min(out.Rect.Dy(), int(math.Ceil((ext.Max[1]-bound.Min[1])/pixelSize)))

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			weight, ok := c.Weight(center(x, y))
			if !ok {
				continue
			}
			pa, pb := la.NRGBAAt(x, y), lb.NRGBAAt(x, y)
			if pa.A == 0 || pb.A == 0 {
				continue
			}
			out.SetNRGBA(x, y, mixLab(pa, pb, weight))
		}
	}
}

// mixLab returns weight parts of a and 1-weight parts of b, mixed in L*a*b*
func mixLab(a, b color.NRGBA, weight float64) color.NRGBA {
	ca, _ := colorful.MakeColor(color.NRGBA{a.R, a.G, a.B, 255})
	cb, _ := colorful.MakeColor(color.NRGBA{b.R, b.G, b.B, 255})
	r, g, bl := ca.BlendLab(cb, 1-weight).Clamped().RGB255()
	alpha := weight*float64(a.A) + (1-weight)*float64(b.A)
	return color.NRGBA{R: r, G: g, B: bl, A: uint8(math.Round(alpha))}
}

// over composites c over the pixel already in dst
func over(dst *image.NRGBA, x, y int, c color.NRGBA) {
	if c.A == 255 {
		dst.SetNRGBA(x, y, c)
		return
	}
	d := dst.NRGBAAt(x, y)
	sa, da := float64(c.A)/255, float64(d.A)/255
	oa := sa + da*(1-sa)
	if oa == 0 {
		return
	}
	mix := func(s, t uint8) uint8 {
		v := (float64(s)*sa + float64(t)*da*(1-sa)) / oa
		return uint8(math.Round(math.Max(0, math.Min(255, v))))
	}
	dst.SetNRGBA(x, y, color.NRGBA{R: mix(c.R, d.R), G: mix(c.G, d.G), B: mix(c.B, d.B), A: uint8(math.Round(oa * 255))})
}
