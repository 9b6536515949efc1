package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/aligator/gofat32"
	"github.com/aligator/gofat32/internal/artifact"
	"github.com/aligator/gofat32/internal/config"
	"github.com/aligator/gofat32/internal/logger"
	"github.com/aligator/gofat32/internal/shell"
)

func newOpenCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "open",
		Short: "Browse an image in an interactive shell",
		Long: `open starts a read only shell on the image. "get" copies files
from the image into the source directory or, without one, into the working directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			return runOpen(cmd, cfg)
		},
	}
}

// openedImage is an image together with where it came from.
type openedImage struct {
	*gofat.Image
	path   string
	fs     afero.Fs
	raw    string
	method artifact.Method
}

// openTarget opens the image of the configured target and decompresses it if needed.
func openTarget(cfg *config.Config) (*openedImage, error) {
	log := logger.Logger()

	name, err := existingImage(cfg.Target)
	if err != nil {
		return nil, err
	}

	fs, raw, method, err := artifact.Open(afero.NewOsFs(), name)
	if err != nil {
		return nil, err
	}
	if method != artifact.None {
		log.Debugf("decompressed %s image %s", method, name)
	}

	img, err := gofat.OpenImage(fs, raw, gofat.WithLogger(log.Desugar()))
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", name, err)
	}

	return &openedImage{Image: img, path: name, fs: fs, raw: raw, method: method}, nil
}

func runOpen(cmd *cobra.Command, cfg *config.Config) error {
	img, err := openTarget(cfg)
	if err != nil {
		return err
	}
	defer img.Close()

	hostDir := cfg.Source
	if hostDir == "" {
		hostDir = "."
	}

	fmt.Fprintf(cmd.OutOrStdout(), "opened %s, type help for the commands\n", img.path)
	return shell.New(img.Image, afero.NewOsFs(), hostDir, cmd.OutOrStdout()).Run(cmd.InOrStdin())
}
