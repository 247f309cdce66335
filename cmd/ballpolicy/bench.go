package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"ballpolicy/nn/bench"
	"ballpolicy/utils"

	"github.com/spf13/cobra"
)

func newBenchCmd(a *app) *cobra.Command {
	var (
		nets    string
		batch   int
		cores   int
		runs    int
		widths  string
		csvPath string
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time the network and its reloaded artifact, layer by layer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if batch < 1 || runs < 1 {
				return fmt.Errorf("batch and runs must be positive")
			}
			var targets []bench.BuiltNet
			if nets != "" {
				for _, name := range strings.Split(nets, ",") {
					net, err := bench.Lookup(strings.TrimSpace(name))
					if err != nil {
						return err
					}
					targets = append(targets, net)
				}
			}
			if widths != "" {
				arch, err := utils.ParseArchitecture(widths)
				if err != nil {
					return fmt.Errorf("invalid --widths: %w", err)
				}
				targets = append(targets, bench.BuildWidths(arch))
			}

			var w *csv.Writer
			if csvPath != "" {
				f, err := os.Create(csvPath)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", csvPath, err)
				}
				defer f.Close()
				w = csv.NewWriter(f)
				if err := bench.WriteCSVHeader(w); err != nil {
					return err
				}
			}
			for _, net := range targets {
				a.log.Info().Str("net", net.Name).Int("batch", batch).Int("runs", runs).Msg("benchmarking")
				pt, err := bench.RunPoint(net, batch, cores, runs)
				if err != nil {
					return fmt.Errorf("%s: %w", net.Name, err)
				}
				if err := bench.WriteTable(cmd.OutOrStdout(), pt); err != nil {
					return err
				}
				if w != nil {
					if err := bench.WriteCSV(w, pt); err != nil {
						return fmt.Errorf("failed to write %s: %w", csvPath, err)
					}
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&nets, "nets", "tiny,small", "Comma-separated nets to run ("+strings.Join(bench.Names(), ", ")+")")
	f.StringVar(&widths, "widths", "", "Also time a bare MLP over these widths, e.g. \"204 816 4\"")
	f.IntVar(&batch, "batch", 1, "Rows per forward pass")
	f.IntVar(&cores, "cores", 0, "GOMAXPROCS during the run (0 = unchanged)")
	f.IntVar(&runs, "runs", 3, "Forward passes averaged per measurement")
	f.StringVar(&csvPath, "csv", "", "Also write results to this CSV file")
	return cmd
}
