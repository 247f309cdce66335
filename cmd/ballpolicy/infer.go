package main

import (
	"fmt"

	"ballpolicy/artifact"
	"ballpolicy/policy"
	"ballpolicy/tensor"
	"ballpolicy/utils"

	"github.com/spf13/cobra"
)

func newInferCmd(a *app) *cobra.Command {
	var state string
	cmd := &cobra.Command{
		Use:   "infer <artifact>",
		Short: "Evaluate an exported artifact on one state vector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vec, err := utils.ParseVector(state)
			if err != nil {
				return fmt.Errorf("invalid --state: %w", err)
			}
			prog, err := artifact.Load(args[0])
			if err != nil {
				return err
			}
			if len(vec) != prog.InputWidth() {
				return fmt.Errorf("%w: --state has %d values, artifact expects %d", tensor.ErrShapeMismatch, len(vec), prog.InputWidth())
			}

			scores, err := prog.Forward(tensor.NewWithData(vec))
			if err != nil {
				return err
			}
			probs := policy.Probabilities(scores)
			best, err := policy.Greedy(scores.Data)
			if err != nil {
				return err
			}
			a.log.Debug().Str("artifact", args[0]).Int("best", best).Msg("inference done")

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scores:        %v\n", scores.Data)
			fmt.Fprintf(out, "probabilities: %v\n", probs.Data)
			fmt.Fprintf(out, "greedy:        %d\n", best)
			if len(scores.Data) == policy.MovementActions {
				m, err := policy.DecodeMovement(scores.Data)
				if err != nil {
					return err
				}
				dx, dz := m.Direction()
				fmt.Fprintf(out, "movement:      up=%t down=%t left=%t right=%t\n", m.Up, m.Down, m.Left, m.Right)
				fmt.Fprintf(out, "direction:     dx=%.4f dz=%.4f\n", dx, dz)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "State vector, whitespace or comma separated")
	cmd.MarkFlagRequired("state")
	return cmd
}
