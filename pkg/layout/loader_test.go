package layout

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"rastermosaic/pkg/geometry"
)

// createTestImages writes n solid images of the given size into dir
func createTestImages(t *testing.T, dir string, n, width, height int) {
	t.Helper()
	for i := 0; i < n; i++ {
		img := image.NewNRGBA(image.Rect(0, 0, width, height))
		v := uint8(20 * (i + 1))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				img.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
			}
		}
		filename := filepath.Join(dir, fmt.Sprintf("tile_%d.png", i+1))
		if err := imaging.Save(img, filename); err != nil {
			t.Fatalf("Failed to save test image: %v", err)
		}
	}
}

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestExtractNumber(t *testing.T) {
	testCases := []struct {
		filename string
		expected int
	}{
		{"tile_1.png", 1},
		{"tile_023.jpg", 23},
		{"img456.tif", 456},
		{"not_a_number.png", 0},
		{"mixed123text456.png", 123456},
	}

	for _, tc := range testCases {
		result := extractNumber(tc.filename)
		if result != tc.expected {
			t.Errorf("extractNumber(%s): expected %d, got %d", tc.filename, tc.expected, result)
		}
	}
}

func TestLoadOrdersByNumber(t *testing.T) {
	dir := t.TempDir()
	createTestImages(t, dir, 12, 8, 6)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	loader := NewLoader(&Params{InputDir: dir, Columns: 4, Overlap: 2, NumWorkers: 3}, quietLogger())
	if err := loader.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	names := loader.Names()
	if len(names) != 12 {
		t.Fatalf("Expected 12 images, got %d", len(names))
	}
	if names[1] != "tile_2.png" || names[9] != "tile_10.png" {
		t.Errorf("Expected numeric order, got %v", names)
	}

	// Each image keeps its own content after concurrent decoding
	for i, img := range loader.Images() {
		r, _, _, _ := img.At(0, 0).RGBA()
		if expected := uint32(20*(i+1)) * 0x101; r != expected {
			t.Errorf("Image %d: expected red %d, got %d", i, expected, r)
		}
	}
}

func TestPlace(t *testing.T) {
	dir := t.TempDir()
	createTestImages(t, dir, 5, 8, 6)

	loader := NewLoader(&Params{InputDir: dir, Columns: 2, Overlap: 2}, quietLogger())
	if err := loader.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	world := geometry.NewRootCoordSys()
	rasters := loader.Place(world)
	if len(rasters) != 5 {
		t.Fatalf("Expected 5 rasters, got %d", len(rasters))
	}

	expected := [][2]float64{{0, 0}, {6, 0}, {0, 4}, {6, 4}, {0, 8}}
	for i, r := range rasters {
		ext, err := r.EffectiveShape().ExtentIn(world)
		if err != nil {
			t.Fatalf("Raster %d: %v", i, err)
		}
		if ext.Min[0] != expected[i][0] || ext.Min[1] != expected[i][1] {
			t.Errorf("Raster %d: expected origin %v, got %v", i, expected[i], ext.Min)
		}
		if ext.Max[0]-ext.Min[0] != 8 || ext.Max[1]-ext.Min[1] != 6 {
			t.Errorf("Raster %d: expected size 8x6, got %v", i, ext)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	empty := t.TempDir()
	if err := NewLoader(&Params{InputDir: empty, Columns: 2}, quietLogger()).Load(); err == nil {
		t.Error("Expected error for a directory without images, got nil")
	}

	if err := NewLoader(&Params{InputDir: filepath.Join(empty, "missing"), Columns: 2}, quietLogger()).Load(); err == nil {
		t.Error("Expected error for a missing directory, got nil")
	}

	if err := NewLoader(&Params{InputDir: empty, Columns: 0}, quietLogger()).Load(); err == nil {
		t.Error("Expected error for zero columns, got nil")
	}

	dir := t.TempDir()
	createTestImages(t, dir, 2, 4, 4)
	if err := NewLoader(&Params{InputDir: dir, Columns: 2, Overlap: 4}, quietLogger()).Load(); err == nil {
		t.Error("Expected error for an overlap as large as the images, got nil")
	}

	if err := os.WriteFile(filepath.Join(dir, "tile_9.png"), []byte("not an image"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if err := NewLoader(&Params{InputDir: dir, Columns: 2}, quietLogger()).Load(); err == nil {
		t.Error("Expected error for an undecodable image, got nil")
	}
}
