// Package blend computes the alpha ramps used to hide the seam between two
// adjacent color balanced images.
package blend

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	log "github.com/sirupsen/logrus"

	"rastermosaic/pkg/balance"
	"rastermosaic/pkg/geometry"
)

// ErrWidth is returned for a corridor width that is not positive
var ErrWidth = errors.New("blend: corridor width must be positive")

// CellsPerWidth is the mask resolution across the corridor
const CellsPerWidth = 8

// State is the lifecycle state of a corridor's mask
type State int

const (
	Uninitialized State = iota
	Valid
	Invalidated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Valid:
		return "valid"
	case Invalidated:
		return "invalidated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Mask is a grid of weights of the first image of a corridor. Cells
// outside the corridor hold -1.
type Mask struct {
	Origin orb.Point
	Cell   float64
	Cols   int
	Rows   int
	Values []float64
}

// At returns the weight stored for a cell
func (m *Mask) At(col, row int) float64 {
	return m.Values[row*m.Cols+col]
}

// Corridor blends images A and B across their shared boundary
type Corridor struct {
	cs       *geometry.CoordSys
	a, b     *balance.Image
	boundary *geometry.Polyline
	log      log.FieldLogger
	width    float64
	sideA    float64

	state State
	mask  *Mask
}

// New creates a corridor between a and b along boundary, working in cs
func New(cs *geometry.CoordSys, a, b *balance.Image, boundary *geometry.Polyline, logger log.FieldLogger, width float64) (*Corridor, error) {
	if width <= 0 {
		return nil, ErrWidth
	}
	line, err := boundary.In(cs)
	if err != nil {
		return nil, fmt.Errorf("corridor boundary: %w", err)
	}
	if len(line.LineString()) < 2 {
		return nil, fmt.Errorf("corridor boundary has %d points", len(line.LineString()))
	}

	c := &Corridor{cs: cs, a: a, b: b, boundary: line, log: logger, width: width}

	// A lies on the side of the boundary its extent center falls on
	sideA := 1.0
	if center, ok := c.center(a); ok {
		if d := c.signedDistance(center); d < 0 {
			sideA = -1
		} else if d == 0 {
			if cb, ok := c.center(b); ok && c.signedDistance(cb) > 0 {
				sideA = -1
			}
		}
	}
	c.sideA = sideA
	return c, nil
}

func (c *Corridor) center(img *balance.Image) (orb.Point, bool) {
	ext, err := img.EffectiveShape().ExtentIn(c.cs)
	if err != nil {
		return orb.Point{}, false
	}
	return ext.Center(), true
}

// signedDistance returns the distance from p to the boundary, positive on
// the left of the boundary's direction
func (c *Corridor) signedDistance(p orb.Point) float64 {
	ls := c.boundary.LineString()
	best, sign := math.Inf(1), 1.0
	for i := 0; i+1 < len(ls); i++ {
		a, b := ls[i], ls[i+1]
		d := planar.DistanceFromSegment(a, b, p)
		if d < best {
			best = d
			cross := (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
			sign = 1
			if cross < 0 {
				sign = -1
			}
		}
	}
	return sign * best
}

// Images returns the two blended images
func (c *Corridor) Images() (*balance.Image, *balance.Image) {
	return c.a, c.b
}

// Uses reports whether img is one of the blended images
func (c *Corridor) Uses(img *balance.Image) bool {
	return c.a == img || c.b == img
}

// Joins reports whether the corridor blends x and y, in either order
func (c *Corridor) Joins(x, y *balance.Image) bool {
	return (c.a == x && c.b == y) || (c.a == y && c.b == x)
}

// Boundary returns the seam, expressed in the corridor's system
func (c *Corridor) Boundary() *geometry.Polyline {
	return c.boundary
}

// CoordSys returns the system the corridor works in
func (c *Corridor) CoordSys() *geometry.CoordSys {
	return c.cs
}

// Width returns the corridor width
func (c *Corridor) Width() float64 {
	return c.width
}

// State returns the mask lifecycle state
func (c *Corridor) State() State {
	return c.state
}

// Extent returns the region the corridor can affect
func (c *Corridor) Extent() orb.Bound {
	return c.boundary.Extent().Pad(c.width / 2)
}

// SetWidth changes the corridor width, invalidating the mask when the
// width actually changes
func (c *Corridor) SetWidth(width float64) error {
	if width <= 0 {
		return ErrWidth
	}
	if math.Abs(width-c.width) <= 1e-9 {
		return nil
	}
	c.width = width
	c.Invalidate()
	return nil
}

// Invalidate drops the computed mask. It is rebuilt on next access.
func (c *Corridor) Invalidate() {
	c.mask = nil
	if c.state == Valid {
		c.state = Invalidated
	}
}

// Mask returns the blend mask, computing it when needed
func (c *Corridor) Mask() *Mask {
	if c.state == Valid && c.mask != nil {
		return c.mask
	}

	ext := c.Extent()
	cell := c.width / CellsPerWidth
	cols := int(math.Ceil((ext.Max[0] - ext.Min[0]) / cell))
	rows := int(math.Ceil((ext.Max[1] - ext.Min[1]) / cell))
	cols, rows = max(cols, 1), max(rows, 1)

	m := &Mask{Origin: ext.Min, Cell: cell, Cols: cols, Rows: rows, Values: make([]float64, cols*rows)}
	half := c.width / 2
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			p := orb.Point{ext.Min[0] + (float64(col)+0.5)*cell, ext.Min[1] + (float64(row)+0.5)*cell}
			d := c.signedDistance(p)
			v := -1.0
			if math.Abs(d) <= half {
				v = math.Max(0, math.Min(1, 0.5+c.sideA*d/c.width))
			}
			m.Values[row*cols+col] = v
		}
	}

	c.log.WithFields(log.Fields{"cols": cols, "rows": rows, "width": c.width}).Debug("Computed blend mask")
	c.mask = m
	c.state = Valid
	return m
}

// Weight returns the weight of image A at p. The second result is false
// outside the corridor.
func (c *Corridor) Weight(p orb.Point) (float64, bool) {
	m := c.Mask()
	col := int(math.Floor((p[0] - m.Origin[0]) / m.Cell))
	row := int(math.Floor((p[1] - m.Origin[1]) / m.Cell))
	if col < 0 || row < 0 || col >= m.Cols || row >= m.Rows {
		return 0, false
	}
	v := m.At(col, row)
	if v < 0 {
		return 0, false
	}
	return v, true
}
