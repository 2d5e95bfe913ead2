package mosaic

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rastermosaic/internal/models"
	"rastermosaic/pkg/raster"
)

func overlappingPair(t *testing.T, settings models.Settings) *Mosaic {
	t.Helper()
	m, world := newTestMosaic(t, settings)
	a := tile(world, 0, 0, 12, 10, 100)
	b := tile(world, 8, 0, 12, 10, 200)
	require.NoError(t, m.AddAll([]raster.Raster{a, b}))
	require.Len(t, m.Blends(), 1)
	return m
}

func TestRenderBlendsSeam(t *testing.T) {
	m := overlappingPair(t, models.Settings{BlendWidth: 4, Quality: models.Fast})
	bound := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{20, 10}}

	out, err := m.Render(context.Background(), bound, 1)
	require.NoError(t, err)
	require.Equal(t, 20, out.Rect.Dx())
	require.Equal(t, 10, out.Rect.Dy())

	assert.Equal(t, uint8(100), out.NRGBAAt(2, 5).R)
	assert.Equal(t, uint8(200), out.NRGBAAt(17, 5).R)
	assert.Equal(t, uint8(255), out.NRGBAAt(17, 5).A)

	left, right := out.NRGBAAt(9, 5).R, out.NRGBAAt(10, 5).R
	assert.Greater(t, left, uint8(100))
	assert.Less(t, left, uint8(200))
	assert.Greater(t, right, left, "the mix moves toward the right image across the seam")
	assert.Less(t, right, uint8(200))
}

func TestRenderPositionalCorrection(t *testing.T) {
	settings := models.DefaultSettings()
	settings.Quality = models.Fast
	m := overlappingPair(t, settings)

	out, err := m.Render(context.Background(), orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{20, 10}}, 1)
	require.NoError(t, err)

	// Outside the corridor both sides are pulled toward each other
	left, right := out.NRGBAAt(7, 5).R, out.NRGBAAt(12, 5).R
	assert.Greater(t, left, uint8(100))
	assert.Less(t, right, uint8(200))
	assert.Less(t, int(right)-int(left), 100)
}

func TestRenderOutsideMembersIsTransparent(t *testing.T) {
	m := overlappingPair(t, models.Settings{BlendWidth: 4, Quality: models.Fast})

	out, err := m.Render(context.Background(), orb.Bound{Min: orb.Point{15, 0}, Max: orb.Point{30, 5}}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 30, out.Rect.Dx())
	assert.Equal(t, uint8(255), out.NRGBAAt(0, 0).A)
	assert.Equal(t, uint8(0), out.NRGBAAt(25, 0).A)
}

func TestRenderErrors(t *testing.T) {
	m := overlappingPair(t, models.DefaultSettings())
	bound := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{20, 10}}

	_, err := m.Render(context.Background(), bound, 0)
	assert.Error(t, err)

	_, err = m.Render(context.Background(), orb.Bound{Min: orb.Point{5, 5}, Max: orb.Point{5, 5}}, 1)
	assert.ErrorIs(t, err, ErrEmptyRender)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Render(ctx, bound, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInterpolatorPerQuality(t *testing.T) {
	assert.NotNil(t, interpolator(models.Fast))
	assert.NotNil(t, interpolator(models.Normal))
	assert.NotNil(t, interpolator(models.HighQuality))
	assert.NotEqual(t, interpolator(models.Fast), interpolator(models.HighQuality))
}
