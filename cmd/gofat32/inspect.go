package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// summary is the machine readable description of an image.
type summary struct {
	Image             string `json:"image" yaml:"image"`
	Compression       string `json:"compression" yaml:"compression"`
	Label             string `json:"label" yaml:"label"`
	OEMName           string `json:"oemName" yaml:"oemName"`
	VolumeID          string `json:"volumeId" yaml:"volumeId"`
	SizeBytes         int64  `json:"sizeBytes" yaml:"sizeBytes"`
	BytesPerSector    uint16 `json:"bytesPerSector" yaml:"bytesPerSector"`
	SectorsPerCluster uint8  `json:"sectorsPerCluster" yaml:"sectorsPerCluster"`
	FATCount          uint8  `json:"fatCount" yaml:"fatCount"`
	SectorsPerFAT     uint32 `json:"sectorsPerFat" yaml:"sectorsPerFat"`
	RootCluster       uint32 `json:"rootCluster" yaml:"rootCluster"`
	TotalClusters     uint32 `json:"totalClusters" yaml:"totalClusters"`
	FreeClusters      uint32 `json:"freeClusters" yaml:"freeClusters"`
}

func newInspectCommand(f *flags) *cobra.Command {
	var (
		format string
		pretty bool
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the volume information of an image",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "text", "json", "yaml":
				return nil
			default:
				return fmt.Errorf("unsupported --format %q (supported: text, json, yaml)", format)
			}
		},
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

			boot := img.BootSector()
			stats := img.Stats()
			s := summary{
				Image:             img.path,
				Compression:       string(img.method),
				Label:             stats.Label,
				OEMName:           boot.OEMName,
				VolumeID:          fmt.Sprintf("%04X-%04X", boot.VolumeID>>16, boot.VolumeID&0xFFFF),
				SizeBytes:         stats.Size,
				BytesPerSector:    boot.BytesPerSector,
				SectorsPerCluster: boot.SectorsPerCluster,
				FATCount:          boot.FATCount,
				SectorsPerFAT:     boot.SectorsPerFAT,
				RootCluster:       boot.RootCluster,
				TotalClusters:     stats.TotalClusters,
				FreeClusters:      stats.FreeClusters,
			}
			return writeSummary(cmd.OutOrStdout(), s, format, pretty)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json or yaml")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print JSON output (only for --format json)")
	return cmd
}

func writeSummary(out io.Writer, s summary, format string, pretty bool) error {
	switch format {
	case "text":
		fmt.Fprintf(out, "image:      %s (%s)\n", s.Image, s.Compression)
		fmt.Fprintf(out, "label:      %s\n", s.Label)
		fmt.Fprintf(out, "volume id:  %s\n", s.VolumeID)
		fmt.Fprintf(out, "oem name:   %s\n", s.OEMName)
		fmt.Fprintf(out, "size:       %s\n", units.BytesSize(float64(s.SizeBytes)))
		fmt.Fprintf(out, "sector:     %d bytes\n", s.BytesPerSector)
		fmt.Fprintf(out, "cluster:    %d sectors\n", s.SectorsPerCluster)
		fmt.Fprintf(out, "FATs:       %d of %d sectors\n", s.FATCount, s.SectorsPerFAT)
		fmt.Fprintf(out, "root:       cluster %d\n", s.RootCluster)
		fmt.Fprintf(out, "clusters:   %d (%d free)\n", s.TotalClusters, s.FreeClusters)
		return nil

	case "json":
		var (
			b   []byte
			err error
		)
		if pretty {
			b, err = json.MarshalIndent(s, "", "  ")
		} else {
			b, err = json.Marshal(s)
		}
		if err != nil {
			return fmt.Errorf("marshal json: %w", err)
		}
		_, _ = fmt.Fprintln(out, string(b))
		return nil

	case "yaml":
		b, err := yaml.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		_, _ = fmt.Fprintln(out, string(b))
		return nil
	}
	return fmt.Errorf("unsupported output format: %s", format)
}
