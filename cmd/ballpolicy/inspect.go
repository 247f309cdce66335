package main

import (
	"fmt"
	"sort"
	"time"

	"ballpolicy/artifact"
	"ballpolicy/utils"

	"github.com/spf13/cobra"
)

func newInspectCmd(a *app) *cobra.Command {
	var weightsOut string
	cmd := &cobra.Command{
		Use:   "inspect <artifact>",
		Short: "Print a summary of an exported artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := artifact.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			meta := prog.Metadata()
			g := prog.Graph()
			weights := utils.NewModelWeights(prog.StateDict())

			fmt.Fprintf(out, "artifact:   %s\n", args[0])
			fmt.Fprintf(out, "format:     %s\n", meta.Format)
			fmt.Fprintf(out, "id:         %s\n", meta.ID)
			if !meta.CreatedAt.IsZero() {
				fmt.Fprintf(out, "created:    %s\n", meta.CreatedAt.Format(time.RFC3339))
			}
			fmt.Fprintf(out, "input:      %d\n", prog.InputWidth())
			fmt.Fprintf(out, "output:     %d\n", prog.OutputWidth())
			fmt.Fprintf(out, "tensors:    %d\n", len(weights.Params))
			fmt.Fprintf(out, "parameters: %d\n", weights.NumParams())

			counts := g.CountOps()
			ops := make([]string, 0, len(counts))
			for op := range counts {
				ops = append(ops, string(op))
			}
			sort.Strings(ops)
			for _, op := range ops {
				fmt.Fprintf(out, "  %-10s %d\n", op, counts[artifact.Op(op)])
			}

			if p := meta.Policy; p != nil {
				fmt.Fprintf(out, "policy:     n_balls=%d nb_features=%d n_actions=%d n_layers=%d mlp_ratio=%g activation=%s\n",
					p.NBalls, p.NBFeatures, p.NActions, p.NLayers, p.MLPRatio, p.Activation)
			}

			if weightsOut != "" {
				if err := utils.SaveWeights(weightsOut, weights); err != nil {
					return err
				}
				a.log.Info().Str("path", weightsOut).Int("params", weights.NumParams()).Msg("weights written")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&weightsOut, "weights-out", "", "Also write every parameter to this JSON file")
	return cmd
}
