package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aligator/gofat32/internal/artifact"
	"github.com/aligator/gofat32/internal/crosscheck"
	"github.com/aligator/gofat32/internal/logger"
)

func newCheckCommand(f *flags) *cobra.Command {
	var withCrosscheck bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the consistency of an image",
		Long: `check verifies that all FAT mirrors are equal, every chain matches its
entry and no cluster is shared or lost. With --crosscheck the image is
additionally read by go-diskfs and compared.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}

			img, err := openTarget(cfg)
			if err != nil {
				return err
			}
			defer img.Close()

			out := cmd.OutOrStdout()
			report, err := img.Check()
			if err != nil {
				return fmt.Errorf("check %s: %w", img.path, err)
			}

			fmt.Fprintf(out, "%d files, %d directories, %d clusters used, %d free\n",
				report.Files, report.Dirs, report.UsedClusters, report.FreeClusters)
			for _, p := range report.Problems {
				fmt.Fprintf(out, "problem: %s\n", p)
			}
			if len(report.LostClusters) > 0 {
				fmt.Fprintf(out, "lost clusters: %v\n", report.LostClusters)
			}

			ok := report.OK()
			if withCrosscheck {
				result, err := runCrosscheck(img)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "diskfs compared %d entries\n", result.Checked)
				for _, m := range result.Mismatches {
					fmt.Fprintf(out, "mismatch: %s\n", m)
				}
				ok = ok && result.OK()
			}

			if !ok {
				return fmt.Errorf("%s is inconsistent", img.path)
			}
			fmt.Fprintf(out, "%s is consistent\n", img.path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&withCrosscheck, "crosscheck", false, "compare with the go-diskfs reader")
	return cmd
}

// runCrosscheck needs a raw image on disk, decompressed images are written to a temporary file.
func runCrosscheck(img *openedImage) (*crosscheck.Result, error) {
	if img.method == artifact.None {
		return crosscheck.Compare(img.Image, img.path)
	}

	tmp, err := os.CreateTemp("", "gofat32-*.img")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	raw, err := img.fs.Open(img.raw)
	if err != nil {
		return nil, err
	}
	defer raw.Close()

	if _, err := io.Copy(tmp, raw); err != nil {
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	logger.Logger().Debugf("crosschecking the decompressed copy %s", tmp.Name())
	return crosscheck.Compare(img.Image, tmp.Name())
}
