package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func pointsEqual(a, b orb.Point) bool {
	return almostEqual(a[0], b[0]) && almostEqual(a[1], b[1])
}

func TestTransfoApplyAndCompose(t *testing.T) {
	tests := []struct {
		name string
		t    Transfo
		in   orb.Point
		want orb.Point
	}{
		{"identity", Identity(), orb.Point{3, 4}, orb.Point{3, 4}},
		{"translation", Translation(2, -1), orb.Point{3, 4}, orb.Point{5, 3}},
		{"rotation", Rotation(math.Pi/2, orb.Point{1, 1}), orb.Point{2, 1}, orb.Point{1, 2}},
		{"stretch", Stretch(2, 3, orb.Point{1, 1}), orb.Point{2, 2}, orb.Point{3, 4}},
		{"composed", Translation(1, 0).Compose(Stretch(2, 2, orb.Point{0, 0})), orb.Point{1, 1}, orb.Point{4, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.t.Apply(tt.in)
			if !pointsEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestTransfoInverse(t *testing.T) {
	tr := Rotation(0.3, orb.Point{5, -2}).Compose(Stretch(2, 0.5, orb.Point{1, 1})).Compose(Translation(3, 7))
	inv, err := tr.Inverse()
	if err != nil {
		t.Fatalf("Unexpected inverse error: %v", err)
	}

	p := orb.Point{12.5, -3.25}
	if back := inv.Apply(tr.Apply(p)); !pointsEqual(back, p) {
		t.Errorf("Expected %v after round trip, got %v", p, back)
	}

	// A collapsed axis cannot be inverted
	if _, err := Stretch(0, 1, orb.Point{}).Inverse(); !errors.Is(err, ErrSingular) {
		t.Errorf("Expected ErrSingular, got %v", err)
	}
}

func TestTransfoProperties(t *testing.T) {
	projective := Projective([9]float64{1, 0, 0, 0, 1, 0, 0.01, 0, 1})

	tests := []struct {
		name        string
		t           Transfo
		parallelism bool
		direction   bool
	}{
		{"identity", Identity(), true, true},
		{"translation", Translation(4, 4), true, true},
		{"stretch", Stretch(2, 3, orb.Point{}), true, true},
		{"rotation", Rotation(0.5, orb.Point{}), true, false},
		{"projective", projective, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.t.PreservesParallelism(); got != tt.parallelism {
				t.Errorf("Expected parallelism %v, got %v", tt.parallelism, got)
			}
			if got := tt.t.PreservesDirection(); got != tt.direction {
				t.Errorf("Expected direction %v, got %v", tt.direction, got)
			}
		})
	}
}

func TestTransfoSimplify(t *testing.T) {
	// A rotation followed by its inverse collapses to the identity
	r := Rotation(0.7, orb.Point{2, 3})
	inv, err := r.Inverse()
	if err != nil {
		t.Fatalf("Unexpected inverse error: %v", err)
	}
	s, ok := r.Compose(inv).Simplify()
	if !ok || !s.IsIdentity() {
		t.Errorf("Expected simplified identity, got %v (ok=%v)", s, ok)
	}

	// Scaled homogeneous coordinates are normalized
	scaled := Projective([9]float64{2, 0, 4, 0, 2, 6, 0, 0, 2})
	s, ok = scaled.Simplify()
	if !ok {
		t.Fatalf("Expected simplification to succeed")
	}
	c, affine := s.Coefficients()
	if !affine || c != [6]float64{1, 0, 2, 0, 1, 3} {
		t.Errorf("Expected translation coefficients, got %v", c)
	}

	if _, ok := Projective([9]float64{1, 0, 0, 0, 1, 0, 0, 0, 0}).Simplify(); ok {
		t.Errorf("Expected degenerate matrix to fail simplification")
	}
}

func TestCoordSysTransfoTo(t *testing.T) {
	world := NewRootCoordSys()
	a := NewCoordSys(Translation(10, 0), world)
	b := NewCoordSys(Stretch(2, 2, orb.Point{}), world)
	child := NewCoordSys(Translation(0, 5), a)

	tr, err := child.TransfoTo(b)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// (1, 1) in child -> (1, 6) in a -> (11, 6) in world -> (5.5, 3) in b
	if got := tr.Apply(orb.Point{1, 1}); !pointsEqual(got, orb.Point{5.5, 3}) {
		t.Errorf("Expected (5.5, 3), got %v", got)
	}

	if _, err := a.TransfoTo(NewRootCoordSys()); !errors.Is(err, ErrUnrelated) {
		t.Errorf("Expected ErrUnrelated, got %v", err)
	}
}

func TestCoordSysDerive(t *testing.T) {
	world := NewRootCoordSys()

	// A root gets a child
	d := world.Derive(Translation(1, 0))
	if d.Parent() != world {
		t.Fatalf("Expected a child of the root, got parent %v", d.Parent())
	}

	// Anything else gets a sibling carrying the composed transform
	c := NewCoordSys(Translation(10, 0), world)
	for i := 0; i < 3; i++ {
		c = c.Derive(Stretch(2, 1, orb.Point{}))
	}
	if c.Parent() != world {
		t.Errorf("Expected derived systems to stay siblings, got parent %v", c.Parent())
	}
	tr, err := c.TransfoTo(world)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// (1, 1) -> (8, 1) after three stretches -> (18, 1) in world
	if got := tr.Apply(orb.Point{1, 1}); !pointsEqual(got, orb.Point{18, 1}) {
		t.Errorf("Expected (18, 1), got %v", got)
	}
}

func TestShapeOperations(t *testing.T) {
	world := NewRootCoordSys()
	local := NewCoordSys(Translation(10, 0), world)
	s := RectShape(local, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}})

	ext, err := s.ExtentIn(world)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ext.Min != (orb.Point{10, 0}) || ext.Max != (orb.Point{20, 10}) {
		t.Errorf("Expected extent [10,20]x[0,10], got %v", ext)
	}

	// Boundary points are inside
	if !s.Contains(orb.Point{10, 5}) || !s.Contains(orb.Point{5, 5}) {
		t.Errorf("Expected boundary and interior points to be contained")
	}
	if s.Contains(orb.Point{11, 5}) {
		t.Errorf("Expected outside point to be excluded")
	}

	clipped := s.Clip(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{4, 10}})
	if got := clipped.Extent(); !almostEqual(got.Max[0], 4) {
		t.Errorf("Expected clipped extent to end at 4, got %v", got)
	}

	other := RectShape(world, orb.Bound{Min: orb.Point{30, 0}, Max: orb.Point{40, 10}})
	u, err := s.Union(other)
	if err != nil {
		t.Fatalf("Unexpected union error: %v", err)
	}
	if ue, _ := u.ExtentIn(world); !almostEqual(ue.Max[0], 40) || !almostEqual(ue.Min[0], 10) {
		t.Errorf("Expected union extent [10,40], got %v", ue)
	}

	if !EmptyShape(world).IsEmpty() || s.IsEmpty() {
		t.Errorf("Unexpected emptiness")
	}
}

func TestSegmentCoverage(t *testing.T) {
	square := orb.MultiPolygon{orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}}.ToPolygon()}

	tests := []struct {
		name   string
		a, b   orb.Point
		want   float64
		wantOK bool
	}{
		{"on shared edge", orb.Point{10, 10}, orb.Point{10, 0}, 1, true},
		{"half inside", orb.Point{5, 5}, orb.Point{15, 5}, 0.5, true},
		{"through", orb.Point{-5, 5}, orb.Point{15, 5}, 0.5, true},
		{"outside", orb.Point{20, 0}, orb.Point{20, 10}, 0, true},
		{"corner touch", orb.Point{10, 0}, orb.Point{20, 0}, 0, false},
		{"partial collinear", orb.Point{10, -5}, orb.Point{10, 5}, 0.5, true},
		{"degenerate", orb.Point{1, 1}, orb.Point{1, 1}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SegmentCoverage(tt.a, tt.b, square)
			if ok != tt.wantOK {
				t.Fatalf("Expected ok=%v, got %v", tt.wantOK, ok)
			}
			if !almostEqual(got, tt.want) {
				t.Errorf("Expected coverage %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPolylineIn(t *testing.T) {
	world := NewRootCoordSys()
	local := NewCoordSys(Translation(1, 2), world)
	line := NewPolyline(local, orb.LineString{{0, 0}, {0, 4}})

	in, err := line.In(world)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	ext := in.Extent()
	if ext.Min != (orb.Point{1, 2}) || ext.Max != (orb.Point{1, 6}) {
		t.Errorf("Expected extent (1,2)-(1,6), got %v", ext)
	}
}
