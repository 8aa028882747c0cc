package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/slabkit/arena/registry"
	"github.com/joshuapare/slabkit/arena/segment"
	"github.com/joshuapare/slabkit/kernel"
)

var bootWriteConfig string

func init() {
	cmd := newBootCmd()
	cmd.Flags().
		StringVar(&bootWriteConfig, "write-config", "", "Write the effective config to this file and exit")
	rootCmd.AddCommand(cmd)
}

func newBootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boot",
		Short: "Boot the kernel state and report registry occupancy",
		Long: `The boot command reserves every registry segment, creates the root ring
and any modules listed in the config, and prints per-registry statistics.

Example:
  arenactl boot
  arenactl boot --config kernel.yaml --json
  arenactl boot --write-config kernel.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoot()
		},
	}
	return cmd
}

// BootReport is the result of a boot.
type BootReport struct {
	Config      kernel.Config    `json:"config"`
	Registries  []registry.Stats `json:"registries"`
	Segments    []segment.Usage  `json:"segments"`
	FramesInUse int              `json:"frames_in_use"`
}

func runBoot() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if bootWriteConfig != "" {
		if err := kernel.WriteConfig(bootWriteConfig, cfg); err != nil {
			return err
		}
		printInfo("Wrote %s\n", bootWriteConfig)
		return nil
	}

	printVerbose("Booting with %d frames, %d byte segments\n", cfg.Frames, cfg.SegmentSpan)
	s, err := kernel.Boot(cfg)
	if err != nil {
		return fmt.Errorf("boot failed: %w", err)
	}
	defer s.Close()

	report := BootReport{
		Config:      s.Config(),
		Registries:  s.Stats(),
		Segments:    s.Segments(),
		FramesInUse: s.FramesInUse(),
	}

	if jsonOut {
		return printJSON(report)
	}
	printReport(report.Registries, report.FramesInUse, cfg.Frames)
	return nil
}

func printReport(stats []registry.Stats, inUse, total int) {
	printInfo("\nRegistries:\n")
	printInfo("  %-16s %7s %10s %8s %8s %6s\n", "NAME", "STRIDE", "CAPACITY", "LIVE", "FREE", "PAGES")
	for _, st := range stats {
		printInfo("  %-16s %7d %10d %8d %8d %6d\n", st.Name, st.Stride, st.Capacity, st.Live, st.Free, st.Pages)
	}
	printInfo("\nFrames: %d of %d in use\n", inUse, total)
}
