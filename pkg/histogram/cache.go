package histogram

import (
	"fmt"

	"github.com/paulmach/orb"

	"rastermosaic/pkg/geometry"
	"rastermosaic/pkg/raster"
)

type regionKey struct {
	bound orb.Bound
	cs    *geometry.CoordSys
	step  int
}

// Cache memoizes the histograms of regions of one source
type Cache struct {
	source raster.Sampler
	cached map[regionKey]*Histogram
}

// NewCache wraps source
func NewCache(source raster.Sampler) *Cache {
	return &Cache{source: source, cached: make(map[regionKey]*Histogram)}
}

// Source returns the wrapped raster
func (c *Cache) Source() raster.Sampler {
	return c.source
}

// Compute returns the histogram of the source pixels whose centers fall in
// region, expressed in cs. Only every step-th pixel of the region along each
// axis is counted.
func (c *Cache) Compute(region orb.Bound, cs *geometry.CoordSys, step int) (*Histogram, error) {
	if step < 1 {
		step = 1
	}
	key := regionKey{bound: region, cs: cs, step: step}
	if h, ok := c.cached[key]; ok {
		return h, nil
	}

	toRegion, err := c.source.CoordSys().TransfoTo(cs)
	if err != nil {
		return nil, fmt.Errorf("histogram region: %w", err)
	}

	// Strides are counted over pixels inside the region
	h := &Histogram{}
	pix := c.source.Pixels()
	if pix != nil {
		r := pix.Rect
		row := 0
		for y := r.Min.Y; y < r.Max.Y; y++ {
			col := 0
			for x := r.Min.X; x < r.Max.X; x++ {
				p := toRegion.Apply(orb.Point{float64(x) + 0.5, float64(y) + 0.5})
				if !region.Contains(p) {
					continue
				}
				if col%step == 0 && row%step == 0 {
					if px := pix.NRGBAAt(x, y); px.A != 0 {
						h.Add(px.R, px.G, px.B)
					}
				}
				col++
			}
			if col > 0 {
				row++
			}
		}
	}

	c.cached[key] = h
	return h, nil
}

// Invalidate drops every cached histogram
func (c *Cache) Invalidate() {
	c.cached = make(map[regionKey]*Histogram)
}

// Len returns the number of cached regions
func (c *Cache) Len() int {
	return len(c.cached)
}
