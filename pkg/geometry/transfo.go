// Package geometry provides the coordinate systems, transformations and
// shapes the mosaic uses to relate rasters to one another.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/mat"
)

// ErrSingular is returned when a transformation cannot be inverted
var ErrSingular = errors.New("geometry: singular transformation")

const eps = 1e-12

// Transfo is a 2D homogeneous transformation stored as a 3x3 matrix.
// The zero value is the identity.
type Transfo struct {
	m *mat.Dense
}

// Identity returns the identity transformation
func Identity() Transfo {
	return Transfo{}
}

// Translation returns a transformation shifting points by (dx, dy)
func Translation(dx, dy float64) Transfo {
	return Affine(1, 0, dx, 0, 1, dy)
}

// Rotation returns a counter-clockwise rotation by angle radians around center
func Rotation(angle float64, center orb.Point) Transfo {
	c, s := math.Cos(angle), math.Sin(angle)
	x, y := center[0], center[1]
	return Affine(c, -s, x-c*x+s*y, s, c, y-s*x-c*y)
}

// Stretch returns a scaling by (sx, sy) that keeps center fixed
func Stretch(sx, sy float64, center orb.Point) Transfo {
	return Affine(sx, 0, center[0]*(1-sx), 0, sy, center[1]*(1-sy))
}

// Affine builds x' = a*x + b*y + c, y' = d*x + e*y + f
func Affine(a, b, c, d, e, f float64) Transfo {
	return Transfo{m: mat.NewDense(3, 3, []float64{
		a, b, c,
		d, e, f,
		0, 0, 1,
	})}
}

// Projective builds a transformation from a row-major 3x3 matrix
func Projective(m [9]float64) Transfo {
	data := make([]float64, 9)
	copy(data, m[:])
	return Transfo{m: mat.NewDense(3, 3, data)}
}

func (t Transfo) at(i, j int) float64 {
	if t.m == nil {
		if i == j {
			return 1
		}
		return 0
	}
	return t.m.At(i, j)
}

func (t Transfo) dense() *mat.Dense {
	if t.m == nil {
		return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	}
	return t.m
}

// Apply maps a point through the transformation
func (t Transfo) Apply(p orb.Point) orb.Point {
	if t.m == nil {
		return p
	}
	x := t.at(0, 0)*p[0] + t.at(0, 1)*p[1] + t.at(0, 2)
	y := t.at(1, 0)*p[0] + t.at(1, 1)*p[1] + t.at(1, 2)
	w := t.at(2, 0)*p[0] + t.at(2, 1)*p[1] + t.at(2, 2)
	if w != 1 && w != 0 {
		x /= w
		y /= w
	}
	return orb.Point{x, y}
}

// Compose returns the transformation applying t first and then next
func (t Transfo) Compose(next Transfo) Transfo {
	if t.m == nil {
		return next
	}
	if next.m == nil {
		return t
	}
	var out mat.Dense
	out.Mul(next.m, t.m)
	return Transfo{m: &out}
}

// Inverse returns the inverse transformation
func (t Transfo) Inverse() (Transfo, error) {
	if t.m == nil {
		return t, nil
	}
	if math.Abs(mat.Det(t.m)) < eps {
		return Transfo{}, ErrSingular
	}
	var inv mat.Dense
	if err := inv.Inverse(t.m); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return Transfo{}, fmt.Errorf("inverting transformation: %w", err)
		}
		// Ill-conditioned matrices still produce a usable inverse
	}
	return Transfo{m: &inv}, nil
}

// IsIdentity reports whether t maps every point onto itself
func (t Transfo) IsIdentity() bool {
	if t.m == nil {
		return true
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = t.at(2, 2)
			}
			if math.Abs(t.at(i, j)-want) > 1e-9 {
				return false
			}
		}
	}
	return t.at(2, 2) != 0
}

// PreservesParallelism reports whether t is affine
func (t Transfo) PreservesParallelism() bool {
	return math.Abs(t.at(2, 0)) < eps && math.Abs(t.at(2, 1)) < eps && math.Abs(t.at(2, 2)) > eps
}

// PreservesDirection reports whether t is affine and maps each axis onto itself
func (t Transfo) PreservesDirection() bool {
	return t.PreservesParallelism() && math.Abs(t.at(0, 1)) < eps && math.Abs(t.at(1, 0)) < eps
}

// Simplify normalizes the homogeneous scale and snaps coefficients that are
// numerically zero or one. It fails when the matrix is degenerate.
func (t Transfo) Simplify() (Transfo, bool) {
	if t.m == nil {
		return t, true
	}
	w := t.at(2, 2)
	if math.Abs(w) < eps || math.Abs(mat.Det(t.m)) < eps {
		return t, false
	}
	var m [9]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			v := t.at(i, j) / w
			switch {
			case math.Abs(v) < 1e-12:
				v = 0
			case math.Abs(v-1) < 1e-12:
				v = 1
			case math.Abs(v+1) < 1e-12:
				v = -1
			}
			m[i*3+j] = v
		}
	}
	s := Projective(m)
	if s.IsIdentity() {
		return Identity(), true
	}
	return s, true
}

// Coefficients returns the affine coefficients a, b, c, d, e, f as used by Affine.
// The second result is false when t is projective.
func (t Transfo) Coefficients() ([6]float64, bool) {
	if !t.PreservesParallelism() {
		return [6]float64{}, false
	}
	w := t.at(2, 2)
	return [6]float64{
		t.at(0, 0) / w, t.at(0, 1) / w, t.at(0, 2) / w,
		t.at(1, 0) / w, t.at(1, 1) / w, t.at(1, 2) / w,
	}, true
}

// String formats the matrix rows
func (t Transfo) String() string {
	return fmt.Sprintf("%v", mat.Formatted(t.dense(), mat.Squeeze()))
}
