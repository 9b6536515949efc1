// Package config reads the optional yaml configuration of gofat32.
// Values given on the command line take precedence over the file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/docker/go-units"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/aligator/gofat32"
)

// Size is a byte size which may be written human readable, e.g. "64MiB" or "4k".
// Decimal and binary suffixes both mean powers of 1024.
type Size int64

// UnmarshalYAML accepts plain integers as well as human readable sizes.
func (s *Size) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseSize(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*s = parsed
	return nil
}

// MarshalYAML writes the size human readable.
func (s Size) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

func (s Size) String() string {
	return units.BytesSize(float64(s))
}

// ParseSize parses a human readable size.
func ParseSize(v string) (Size, error) {
	n, err := units.RAMInBytes(v)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", v, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid size %q: must not be negative", v)
	}
	return Size(n), nil
}

// Config describes one create or open run.
type Config struct {
	Source   string `yaml:"source,omitempty"`
	Target   string `yaml:"target,omitempty"`
	Way      string `yaml:"way,omitempty"`
	Capacity Size   `yaml:"capacity,omitempty"`

	Label        string `yaml:"label,omitempty"`
	SectorSize   Size   `yaml:"sectorSize,omitempty"`
	ClusterSize  Size   `yaml:"clusterSize,omitempty"`
	Workers      int    `yaml:"workers,omitempty"`
	Reproducible bool   `yaml:"reproducible,omitempty"`
	Compress     string `yaml:"compress,omitempty"`
}

// Default returns the configuration used without a file.
func Default() *Config {
	return &Config{
		Way:         "create",
		Capacity:    64 * units.MiB,
		SectorSize:  512,
		ClusterSize: 4 * units.KiB,
		Workers:     1,
		Compress:    "none",
	}
}

// Load reads the file at path on top of the defaults.
// A missing file is not an error if optional is set.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values which can be checked without a source tree.
func (c *Config) Validate() error {
	switch c.Way {
	case "create", "open":
	default:
		return fmt.Errorf("unknown way %q, must be create or open", c.Way)
	}

	switch c.Compress {
	case "", "none", "zstd", "gzip", "xz":
	default:
		return fmt.Errorf("unknown compression %q", c.Compress)
	}

	if c.SectorSize <= 0 || c.ClusterSize < c.SectorSize || c.ClusterSize%c.SectorSize != 0 {
		return fmt.Errorf("cluster size %s is no multiple of the sector size %s", c.ClusterSize, c.SectorSize)
	}
	if perCluster := c.ClusterSize / c.SectorSize; perCluster > 128 || perCluster&(perCluster-1) != 0 {
		return fmt.Errorf("cluster size %s must be a power of two up to 128 sectors", c.ClusterSize)
	}
	if c.Workers < 1 {
		return fmt.Errorf("at least one worker is needed, got %d", c.Workers)
	}
	return nil
}

// ImageOptions converts the configuration into options for the image engine.
func (c *Config) ImageOptions(log *zap.Logger) []gofat.Option {
	opts := []gofat.Option{
		gofat.WithLogger(log),
		gofat.WithBytesPerSector(uint16(c.SectorSize)),
		gofat.WithSectorsPerCluster(uint8(c.ClusterSize / c.SectorSize)),
		gofat.WithWorkers(c.Workers),
	}
	if c.Label != "" {
		opts = append(opts, gofat.WithLabel(c.Label))
	}
	if c.Reproducible {
		opts = append(opts,
			gofat.WithTimestamp(time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)),
			gofat.WithVolumeID(0x12345678),
			gofat.WithWorkers(1))
	}
	return opts
}
