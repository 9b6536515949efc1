package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"time"

	"github.com/docker/go-units"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/aligator/gofat32"
	"github.com/aligator/gofat32/internal/artifact"
	"github.com/aligator/gofat32/internal/config"
	"github.com/aligator/gofat32/internal/logger"
)

func newCreateCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Pack the source directory into a new image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			return runCreate(cmd, cfg)
		},
	}
}

func runCreate(cmd *cobra.Command, cfg *config.Config) error {
	log := logger.Logger()
	if cfg.Source == "" {
		return fmt.Errorf("no source directory given, use --source")
	}

	method, err := artifact.ParseMethod(cfg.Compress)
	if err != nil {
		return err
	}

	osFs := afero.NewOsFs()
	name := imagePath(cfg.Target)
	if err := osFs.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}

	opts := cfg.ImageOptions(log.Desugar())

	capacity := int64(cfg.Capacity)
	if capacity == 0 {
		if capacity, err = gofat.RequiredCapacity(osFs, cfg.Source, opts...); err != nil {
			return fmt.Errorf("compute capacity: %w", err)
		}
		log.Infof("using the smallest fitting capacity of %s", units.BytesSize(float64(capacity)))
	}

	total, err := countEntries(osFs, cfg.Source)
	if err != nil {
		return err
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetDescription("packing"),
	)
	opts = append(opts, gofat.WithProgress(func(p string, size int64) {
		bar.Describe(path.Base(p))
		_ = bar.Add(1)
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	img, err := gofat.CreateImage(ctx, osFs, cfg.Source, osFs, name, capacity, opts...)
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}

	stats := img.Stats()
	if err := img.Close(); err != nil {
		return err
	}

	final, err := artifact.Compress(osFs, name, method)
	if err != nil {
		return fmt.Errorf("compress image: %w", err)
	}

	log.Infof("created %s: %s, %d of %d clusters free", final,
		units.BytesSize(float64(stats.Size)), stats.FreeClusters, stats.TotalClusters)
	return nil
}

// countEntries returns the number of progress steps for the tree: every file and directory including the root.
func countEntries(fs afero.Fs, root string) (int, error) {
	total := 0
	err := afero.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || info.Mode().IsRegular() {
			total++
		}
		return nil
	})
	return total, err
}
