// Package preview renders a mosaic as a sequence of tiles and draws debug
// overlays of how the mosaic resolved overlaps.
package preview

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/paulmach/orb"
	log "github.com/sirupsen/logrus"

	"rastermosaic/pkg/mosaic"
)

// Writer renders tiles of a mosaic
type Writer struct {
	mosaic *mosaic.Mosaic
	log    log.FieldLogger

	// bound of the rendered area in mosaic coordinates
	bound orb.Bound

	// pixelSize is the size of an output pixel in mosaic units
	pixelSize float64

	// tileSize is the edge length of a tile in pixels
	tileSize int
}

// NewWriter creates a writer over the current effective shape of m
func NewWriter(m *mosaic.Mosaic, pixelSize float64, tileSize int, logger log.FieldLogger) (*Writer, error) {
	if pixelSize <= 0 {
		return nil, fmt.Errorf("pixel size must be positive, got %v", pixelSize)
	}
	if tileSize <= 0 {
		return nil, fmt.Errorf("tile size must be positive, got %d", tileSize)
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Writer{
		mosaic:    m,
		log:       logger,
		bound:     m.EffectiveShape().Extent(),
		pixelSize: pixelSize,
		tileSize:  tileSize,
	}, nil
}

// Bound returns the rendered area
func (w *Writer) Bound() orb.Bound {
	return w.bound
}

// Grid returns the number of tile columns and rows covering the bound
func (w *Writer) Grid() (int, int) {
	span := w.pixelSize * float64(w.tileSize)
	cols := int(math.Ceil((w.bound.Max[0] - w.bound.Min[0]) / span))
	rows := int(math.Ceil((w.bound.Max[1] - w.bound.Min[1]) / span))
	return cols, rows
}

// TileBound returns the mosaic area covered by tile (col, row)
func (w *Writer) TileBound(col, row int) orb.Bound {
	span := w.pixelSize * float64(w.tileSize)
	origin := orb.Point{w.bound.Min[0] + float64(col)*span, w.bound.Min[1] + float64(row)*span}
	return orb.Bound{Min: origin, Max: orb.Point{origin[0] + span, origin[1] + span}}
}

// Render renders the whole bound as one image
func (w *Writer) Render(ctx context.Context) (*image.NRGBA, error) {
	return w.mosaic.Render(ctx, w.bound, w.pixelSize)
}

// RenderTile renders tile (col, row)
func (w *Writer) RenderTile(ctx context.Context, col, row int) (*image.NRGBA, error) {
	cols, rows := w.Grid()
	if col < 0 || row < 0 || col >= cols || row >= rows {
		return nil, fmt.Errorf("tile (%d, %d) outside grid %dx%d", col, row, cols, rows)
	}
	return w.mosaic.Render(ctx, w.TileBound(col, row), w.pixelSize)
}

// SaveTile saves an image, the format follows the file extension
func (w *Writer) SaveTile(img image.Image, filename string) error {
	return imaging.Save(img, filename)
}

// SaveTileSequence renders and saves every tile of the grid into outputDir
func (w *Writer) SaveTileSequence(ctx context.Context, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	cols, rows := w.Grid()
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			img, err := w.RenderTile(ctx, col, row)
			if err != nil {
				return err
			}

			filename := filepath.Join(outputDir, fmt.Sprintf("tile_%03d_%03d.png", row, col))
			if err := w.SaveTile(img, filename); err != nil {
				return err
			}
		}
	}

	w.log.WithFields(log.Fields{"columns": cols, "rows": rows, "dir": outputDir}).Info("Saved tile sequence")
	return nil
}

// Overlay returns a copy of img, rendered over the writer's bound, with the
// corridor weights tinted from blue to red and the application shape of
// every member outlined in its own hue
func (w *Writer) Overlay(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	cs := w.mosaic.CoordSys()

	for _, c := range w.mosaic.Blends() {
		ext := c.Extent()
		x0, y0 := w.toPixel(ext.Min)
		x1, y1 := w.toPixel(ext.Max)
		for y := max(0, y0); y <= min(out.Rect.Dy()-1, y1); y++ {
			for x := max(0, x0); x <= min(out.Rect.Dx()-1, x1); x++ {
				weight, ok := c.Weight(w.center(x, y))
				if !ok {
					continue
				}
				tint := colorful.Color{R: weight, G: 0, B: 1 - weight}
				base, _ := colorful.MakeColor(opaque(out.NRGBAAt(x, y)))
				r, g, b := base.BlendRgb(tint, 0.5).Clamped().RGB255()
				out.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 255})
			}
		}
	}

	members := w.mosaic.Members()
	for i, r := range members {
		bi, ok := w.mosaic.Image(r)
		if !ok {
			continue
		}
		app, err := bi.ApplicationShape().In(cs)
		if err != nil {
			w.log.WithError(err).Warn("Cannot express application shape in the mosaic")
			continue
		}
		hue := 360 * float64(i) / float64(len(members))
		cr, cg, cb := colorful.Hsv(hue, 1, 1).RGB255()
		edge := color.NRGBA{R: cr, G: cg, B: cb, A: 255}
		for _, poly := range app.MultiPolygon() {
			for _, ring := range poly {
				for k := 0; k+1 < len(ring); k++ {
					w.drawSegment(out, ring[k], ring[k+1], edge)
				}
			}
		}
	}
	return out
}

func (w *Writer) center(x, y int) orb.Point {
	return orb.Point{w.bound.Min[0] + (float64(x)+0.5)*w.pixelSize, w.bound.Min[1] + (float64(y)+0.5)*w.pixelSize}
}

func (w *Writer) toPixel(p orb.Point) (int, int) {
	return int(math.Floor((p[0] - w.bound.Min[0]) / w.pixelSize)), int(math.Floor((p[1] - w.bound.Min[1]) / w.pixelSize))
}

// drawSegment plots a segment given in mosaic coordinates, one pixel wide
func (w *Writer) drawSegment(img *image.NRGBA, a, b orb.Point, c color.NRGBA) {
	length := math.Hypot(b[0]-a[0], b[1]-a[1]) / w.pixelSize
	steps := max(1, int(math.Ceil(length)))
	for s := 0; s <= steps; s++ {
		t := float64(s) / float64(steps)
		x, y := w.toPixel(orb.Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])})
		// Edges on the far border of the bound land on the last pixel
		x, y = min(x, img.Rect.Dx()-1), min(y, img.Rect.Dy()-1)
		if x < 0 || y < 0 {
			continue
		}
		img.SetNRGBA(x, y, c)
	}
}

func opaque(c color.NRGBA) color.NRGBA {
	c.A = 255
	return c
}
