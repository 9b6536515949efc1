// Command gofat32 packs a directory into a FAT32 image and browses existing images.
//
//  gofat32 -s ./rootfs -t ./out -w create -c 64MiB
//  gofat32 -t ./out -w open
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aligator/gofat32/internal/logger"
)

func main() {
	defer logger.Sync()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand builds the command tree. The root command itself dispatches on --way,
// the sub commands provide the same operations more explicitly.
func newRootCommand() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "gofat32",
		Short: "Create and inspect FAT32 images",
		Long: `gofat32 packs a directory tree into a FAT32 disk image (create)
and opens existing FAT32 images read only (open).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetVerbose(f.verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}

			switch cfg.Way {
			case "create":
				return runCreate(cmd, cfg)
			case "open":
				return runOpen(cmd, cfg)
			}
			return fmt.Errorf("unknown way %q", cfg.Way)
		},
	}

	f.register(root)

	root.AddCommand(
		newCreateCommand(f),
		newOpenCommand(f),
		newCheckCommand(f),
		newInspectCommand(f),
	)
	return root
}
