package mosaic

import (
	"image"
	"image/color"
	"testing"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"rastermosaic/internal/models"
	"rastermosaic/pkg/geometry"
	"rastermosaic/pkg/message"
	"rastermosaic/pkg/raster"
	"rastermosaic/pkg/topology"
)

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func newTestMosaic(t *testing.T, settings models.Settings) (*Mosaic, *geometry.CoordSys) {
	t.Helper()
	world := geometry.NewRootCoordSys()
	m, err := New(world, topology.NewPlanar(world), quietLogger(), settings)
	require.NoError(t, err)
	return m, world
}

func tileIn(cs *geometry.CoordSys, w, h int, v uint8) *raster.Bitmap {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
		}
	}
	return raster.NewBitmap(img, cs)
}

func tile(world *geometry.CoordSys, x, y float64, w, h int, v uint8) *raster.Bitmap {
	return tileIn(geometry.NewCoordSys(geometry.Translation(x, y), world), w, h, v)
}

type listener struct {
	msgs []message.Message
}

func (l *listener) Receive(msg message.Message) bool {
	l.msgs = append(l.msgs, msg)
	return true
}

func (l *listener) reset() {
	l.msgs = nil
}

func worldExtent(t *testing.T, r raster.Raster, world *geometry.CoordSys) orb.Bound {
	t.Helper()
	ext, err := r.EffectiveShape().ExtentIn(world)
	require.NoError(t, err)
	return ext
}

// corridorPairs returns how many corridors join each unordered pair of members
func corridorPairs(m *Mosaic) map[[2]raster.Raster]int {
	pairs := make(map[[2]raster.Raster]int)
	for _, c := range m.Blends() {
		a, b := c.Images()
		ea, eb := m.entryOf(a), m.entryOf(b)
		if ea == nil || eb == nil {
			continue
		}
		key := [2]raster.Raster{ea.source, eb.source}
		if m.position(ea) > m.position(eb) {
			key = [2]raster.Raster{eb.source, ea.source}
		}
		pairs[key]++
	}
	return pairs
}
