package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aligator/gofat32/internal/artifact"
	"github.com/aligator/gofat32/internal/config"
)

const (
	defaultConfigFile = "gofat32.yaml"
	defaultImageName  = "fs.img"
)

// flags are shared by all commands and override the config file.
type flags struct {
	configPath   string
	source       string
	target       string
	way          string
	capacity     string
	label        string
	clusterSize  string
	workers      int
	reproducible bool
	compress     string
	verbose      bool
}

func (f *flags) register(cmd *cobra.Command) {
	p := cmd.PersistentFlags()
	p.StringVar(&f.configPath, "config", defaultConfigFile, "yaml configuration file")
	p.StringVarP(&f.source, "source", "s", "", "source directory to pack")
	p.StringVarP(&f.target, "target", "t", "", "image file or directory which contains "+defaultImageName)
	p.StringVarP(&f.way, "way", "w", "create", "create or open")
	p.StringVarP(&f.capacity, "capacity", "c", "", `image size, e.g. 64MiB, or "auto" for the smallest fitting size`)
	p.StringVar(&f.label, "label", "", "volume label")
	p.StringVar(&f.clusterSize, "cluster-size", "", "cluster size, e.g. 4KiB")
	p.IntVar(&f.workers, "workers", 1, "directories packed in parallel, more than one changes the cluster layout between runs")
	p.BoolVar(&f.reproducible, "reproducible", false, "fixed timestamps and volume id")
	p.StringVar(&f.compress, "compress", "", "compress the created image: none, zstd, gzip or xz")
	p.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")
}

// load reads the config file and applies all explicitly set flags.
func (f *flags) load(cmd *cobra.Command) (*config.Config, error) {
	changed := cmd.Flags().Changed

	cfg, err := config.Load(f.configPath, !changed("config"))
	if err != nil {
		return nil, err
	}

	if changed("source") {
		cfg.Source = f.source
	}
	if changed("target") {
		cfg.Target = f.target
	}
	if changed("way") {
		cfg.Way = f.way
	}
	if changed("capacity") {
		if strings.EqualFold(f.capacity, "auto") {
			cfg.Capacity = 0
		} else if cfg.Capacity, err = config.ParseSize(f.capacity); err != nil {
			return nil, err
		}
	}
	if changed("label") {
		cfg.Label = f.label
	}
	if changed("cluster-size") {
		if cfg.ClusterSize, err = config.ParseSize(f.clusterSize); err != nil {
			return nil, err
		}
	}
	if changed("workers") {
		cfg.Workers = f.workers
	}
	if changed("reproducible") {
		cfg.Reproducible = f.reproducible
	}
	if changed("compress") {
		cfg.Compress = f.compress
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Target == "" {
		return nil, fmt.Errorf("no target given, use --target")
	}
	return cfg, nil
}

// imagePath returns the image file for target. A directory target holds fs.img.
func imagePath(target string) string {
	if strings.HasSuffix(target, string(os.PathSeparator)) {
		return filepath.Join(target, defaultImageName)
	}
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return filepath.Join(target, defaultImageName)
	}
	return target
}

// existingImage finds the image for target, also if it was compressed after creation.
func existingImage(target string) (string, error) {
	name := imagePath(target)
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	for _, m := range []artifact.Method{artifact.Zstd, artifact.Gzip, artifact.Xz} {
		if _, err := os.Stat(name + m.Extension()); err == nil {
			return name + m.Extension(), nil
		}
	}
	return "", fmt.Errorf("no image found at %q", name)
}
