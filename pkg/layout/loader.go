// Package layout loads a directory of images and places them on a regular
// grid so adjacent images share a strip of pixels.
package layout

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"

	"rastermosaic/pkg/geometry"
	"rastermosaic/pkg/raster"
)

// Params holds the layout parameters
type Params struct {
	// InputDir is the directory holding the images to lay out. Files are
	// ordered by the number in their name.
	InputDir string

	// Columns is the number of images per grid row
	Columns int

	// Overlap is the number of pixels shared by adjacent images
	Overlap int

	// NumWorkers bounds the number of images decoded concurrently
	NumWorkers int
}

// Loader reads and places the images of a directory
type Loader struct {
	params *Params
	log    log.FieldLogger

	names  []string
	images []image.Image

	// width and height of the grid cells, taken from the first image
	width  int
	height int
}

var extensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
}

// NewLoader creates a loader with the provided parameters
func NewLoader(params *Params, logger log.FieldLogger) *Loader {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Loader{params: params, log: logger}
}

// Load decodes every image of the input directory
func (l *Loader) Load() error {
	if l.params.Columns <= 0 {
		return fmt.Errorf("columns must be positive, got %d", l.params.Columns)
	}
	if l.params.Overlap < 0 {
		return fmt.Errorf("overlap must not be negative, got %d", l.params.Overlap)
	}

	files, err := os.ReadDir(l.params.InputDir)
	if err != nil {
		return err
	}
	var names []string
	for _, f := range files {
		if f.IsDir() || !extensions[strings.ToLower(filepath.Ext(f.Name()))] {
			continue
		}
		names = append(names, f.Name())
	}
	if len(names) == 0 {
		return fmt.Errorf("no images found in %s", l.params.InputDir)
	}

	sort.SliceStable(names, func(i, j int) bool {
		ni, nj := extractNumber(names[i]), extractNumber(names[j])
		if ni != nj {
			return ni < nj
		}
		return names[i] < names[j]
	})

	images, err := l.decodeAll(names)
	if err != nil {
		return err
	}

	l.names = names
	l.images = images
	bounds := images[0].Bounds()
	l.width, l.height = bounds.Dx(), bounds.Dy()
	if l.params.Overlap >= l.width || l.params.Overlap >= l.height {
		return fmt.Errorf("overlap %d does not fit images of %dx%d", l.params.Overlap, l.width, l.height)
	}

	l.log.WithFields(log.Fields{"images": len(images), "width": l.width, "height": l.height}).Info("Loaded images")
	return nil
}

// decodeAll decodes the named files concurrently, keeping their order
func (l *Loader) decodeAll(names []string) ([]image.Image, error) {
	workers := l.params.NumWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	type decodeResult struct {
		idx int
		img image.Image
		err error
	}
	jobs := make(chan int)
	results := make(chan decodeResult)

	for w := 0; w < workers; w++ {
		go func() {
			for idx := range jobs {
				img, err := imaging.Open(filepath.Join(l.params.InputDir, names[idx]))
				results <- decodeResult{idx: idx, img: img, err: err}
			}
		}()
	}
	go func() {
		for idx := range names {
			jobs <- idx
		}
		close(jobs)
	}()

	images := make([]image.Image, len(names))
	var firstErr error
	for range names {
		res := <-results
		if res.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to load image %s: %w", names[res.idx], res.err)
			}
			continue
		}
		images[res.idx] = res.img
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return images, nil
}

// Names returns the loaded file names in grid order
func (l *Loader) Names() []string {
	return l.names
}

// Images returns the decoded images in grid order
func (l *Loader) Images() []image.Image {
	return l.images
}

// CellOrigin returns the position of grid cell idx in the parent system
func (l *Loader) CellOrigin(idx int) (float64, float64) {
	col, row := idx%l.params.Columns, idx/l.params.Columns
	return float64(col * (l.width - l.params.Overlap)), float64(row * (l.height - l.params.Overlap))
}

// Place wraps every loaded image in a bitmap translated to its grid cell
// within parent
func (l *Loader) Place(parent *geometry.CoordSys) []raster.Raster {
	out := make([]raster.Raster, len(l.images))
	for i, img := range l.images {
		x, y := l.CellOrigin(i)
		cs := geometry.NewCoordSys(geometry.Translation(x, y), parent)
		out[i] = raster.NewBitmap(img, cs)
		l.log.WithFields(log.Fields{"file": l.names[i], "x": x, "y": y}).Debug("Placed image")
	}
	return out
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	numStr := ""
	for _, c := range base {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}

	if numStr != "" {
		num, err := strconv.Atoi(numStr)
		if err == nil {
			return num
		}
	}
	return 0
}
