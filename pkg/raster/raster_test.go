package raster

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/paulmach/orb"

	"rastermosaic/pkg/geometry"
	"rastermosaic/pkg/message"
)

type recorder struct {
	kinds []message.Kind
	from  []message.Sender
}

func (r *recorder) Receive(msg message.Message) bool {
	r.kinds = append(r.kinds, msg.Kind())
	r.from = append(r.from, msg.Source())
	return true
}

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestBitmapGeometry(t *testing.T) {
	world := geometry.NewRootCoordSys()
	b := NewBitmap(solid(10, 5, color.White), world)
	rec := &recorder{}
	b.Link(rec)

	b.Move(3, 4)
	ext, err := b.EffectiveShape().ExtentIn(world)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ext.Min != (orb.Point{3, 4}) || ext.Max != (orb.Point{13, 9}) {
		t.Errorf("Expected moved extent, got %v", ext)
	}

	b.Scale(2, 2, orb.Point{0, 0})
	ext, _ = b.EffectiveShape().ExtentIn(world)
	if ext.Max != (orb.Point{23, 14}) {
		t.Errorf("Expected scaled extent to reach (23, 14), got %v", ext.Max)
	}

	if len(rec.kinds) != 2 || rec.kinds[0] != message.GeometryChanged {
		t.Errorf("Expected two geometry notifications, got %v", rec.kinds)
	}

	for i := 0; i < 5; i++ {
		b.Move(1, 0)
	}
	if b.CoordSys().Parent() != world {
		t.Errorf("Expected repeated moves to keep the system under the root, got parent %v", b.CoordSys().Parent())
	}
	ext, _ = b.EffectiveShape().ExtentIn(world)
	if !almost(ext.Min[0], 8) || !almost(ext.Max[0], 28) {
		t.Errorf("Expected extent from x=8 to x=28, got %v", ext)
	}
}

func TestBitmapContentAndPalette(t *testing.T) {
	world := geometry.NewRootCoordSys()
	b := NewBitmap(solid(4, 4, color.Black), world)
	rec := &recorder{}
	b.Link(rec)

	b.SetPixels(solid(4, 4, color.White))
	b.SetPixels(solid(8, 4, color.White))
	b.Touch(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{2, 2}})

	want := []message.Kind{message.ContentChanged, message.GeometryChanged, message.ContentChanged}
	if len(rec.kinds) != len(want) {
		t.Fatalf("Expected %v, got %v", want, rec.kinds)
	}
	for i := range want {
		if rec.kinds[i] != want[i] {
			t.Errorf("Expected %v at %d, got %v", want[i], i, rec.kinds[i])
		}
	}

	if err := b.SetPalette(color.Palette{color.White}); err != ErrNotPaletted {
		t.Errorf("Expected ErrNotPaletted, got %v", err)
	}

	pal := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.Black, color.White})
	pb := NewBitmap(pal, world)
	pb.Link(rec)
	if err := pb.SetPalette(color.Palette{color.White, color.Black}); err != nil {
		t.Fatalf("Unexpected palette error: %v", err)
	}
	if got := pb.Pixels().NRGBAAt(0, 0); got.R != 255 {
		t.Errorf("Expected remapped white pixel, got %v", got)
	}
	if rec.kinds[len(rec.kinds)-1] != message.PaletteChanged {
		t.Errorf("Expected palette notification, got %v", rec.kinds[len(rec.kinds)-1])
	}
}

func TestReferenceRelaysAsItself(t *testing.T) {
	world := geometry.NewRootCoordSys()
	b := NewBitmap(solid(10, 10, color.White), world)
	clip := geometry.RectShape(world, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{5, 10}})
	ref := NewReference(b, clip)
	rec := &recorder{}
	ref.Link(rec)

	if ext := ref.EffectiveShape().Extent(); ext.Max[0] != 5 {
		t.Errorf("Expected clipped extent to end at 5, got %v", ext)
	}

	ref.Move(1, 0)
	if len(rec.from) != 1 || rec.from[0] != message.Sender(ref) {
		t.Errorf("Expected relay from the reference, got %v", rec.from)
	}

	ref.Detach()
	b.Move(1, 0)
	if len(rec.from) != 1 {
		t.Errorf("Expected no relay after detach, got %d messages", len(rec.from))
	}
}

func TestIsAValidSourceAndPhysicalCoordSys(t *testing.T) {
	world := geometry.NewRootCoordSys()
	good := NewBitmap(solid(2, 2, color.White), world)
	cmyk := NewBitmap(image.NewCMYK(image.Rect(0, 0, 2, 2)), world)
	empty := NewBitmap(image.NewNRGBA(image.Rectangle{}), world)
	ref := NewReference(good, nil)
	nested := NewReference(ref, nil)

	tests := []struct {
		name     string
		r        Raster
		valid    bool
		physical bool
	}{
		{"bitmap", good, true, true},
		{"cmyk", cmyk, false, true},
		{"empty", empty, false, true},
		{"reference", ref, true, true},
		{"nested reference", nested, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAValidSource(tt.r); got != tt.valid {
				t.Errorf("Expected valid=%v, got %v", tt.valid, got)
			}
			cs, ok := PhysicalCoordSys(tt.r)
			if ok != tt.physical {
				t.Errorf("Expected physical=%v, got %v", tt.physical, ok)
			}
			if ok && cs != world {
				t.Errorf("Expected the bitmap coordinate system")
			}
		})
	}
}
