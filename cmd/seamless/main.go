package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"

	"rastermosaic/pkg/config"
	"rastermosaic/pkg/geometry"
	"rastermosaic/pkg/layout"
	"rastermosaic/pkg/mosaic"
	"rastermosaic/pkg/preview"
	"rastermosaic/pkg/topology"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "seamless.yaml", "Path to the YAML configuration file")
	initConfig := flag.Bool("init", false, "Write a default configuration file and exit")
	inputDir := flag.String("input", "", "Directory containing the images to mosaic")
	outputFile := flag.String("output", "", "Output image file (overrides the configuration)")
	columns := flag.Int("columns", 0, "Number of images per row (overrides the configuration)")
	numWorkers := flag.Int("workers", runtime.NumCPU(), "Number of images decoded concurrently")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	// Validate inputs
	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *outputFile != "" {
		cfg.Output.File = *outputFile
	}
	if *columns > 0 {
		cfg.Layout.Columns = *columns
	}
	log.SetLevel(cfg.LogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	startTime := time.Now()
	if err := run(ctx, cfg, *inputDir, *numWorkers); err != nil {
		log.Fatalf("Mosaic failed: %v", err)
	}
	log.WithFields(log.Fields{"elapsed": time.Since(startTime).Round(time.Millisecond)}).Info("Mosaic completed")
}

func run(ctx context.Context, cfg *config.Config, inputDir string, numWorkers int) error {
	settings, err := cfg.MosaicSettings()
	if err != nil {
		return err
	}
	logger := log.StandardLogger()

	loader := layout.NewLoader(&layout.Params{
		InputDir:   inputDir,
		Columns:    cfg.Layout.Columns,
		Overlap:    cfg.Layout.Overlap,
		NumWorkers: numWorkers,
	}, logger)
	if err := loader.Load(); err != nil {
		return fmt.Errorf("loading images: %w", err)
	}

	world := geometry.NewRootCoordSys()
	m, err := mosaic.New(world, topology.NewPlanar(world), logger, settings)
	if err != nil {
		return err
	}
	if err := m.AddAll(loader.Place(world)); err != nil {
		return fmt.Errorf("building mosaic: %w", err)
	}
	log.WithFields(log.Fields{
		"members":   m.Len(),
		"corridors": len(m.Blends()),
		"quality":   settings.Quality,
	}).Info("Mosaic built")

	writer, err := preview.NewWriter(m, cfg.Layout.PixelSize, cfg.Output.TileSize, logger)
	if err != nil {
		return err
	}
	img, err := writer.Render(ctx)
	if err != nil {
		return fmt.Errorf("rendering mosaic: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Output.File), 0755); err != nil {
		return err
	}
	if err := imaging.Save(img, cfg.Output.File); err != nil {
		return fmt.Errorf("saving mosaic: %w", err)
	}
	log.WithFields(log.Fields{"file": cfg.Output.File, "width": img.Rect.Dx(), "height": img.Rect.Dy()}).Info("Saved mosaic")

	base := strings.TrimSuffix(cfg.Output.File, filepath.Ext(cfg.Output.File))
	if cfg.Output.SaveTiles {
		if err := writer.SaveTileSequence(ctx, base+"_tiles"); err != nil {
			log.WithError(err).Warn("Failed to save tiles")
		}
	}
	if cfg.Output.SaveOverlay {
		overlayFile := base + "_overlay" + filepath.Ext(cfg.Output.File)
		if err := writer.SaveTile(writer.Overlay(img), overlayFile); err != nil {
			log.WithError(err).Warn("Failed to save overlay")
		} else {
			log.WithFields(log.Fields{"file": overlayFile}).Info("Saved overlay")
		}
	}
	return nil
}
