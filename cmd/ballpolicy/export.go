package main

import (
	"fmt"
	"time"

	"ballpolicy/artifact"
	"ballpolicy/policy"
	"ballpolicy/tensor"
	"ballpolicy/utils"

	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"
)

func (a *app) runExport(cmd *cobra.Command, args []string) error {
	stats := &utils.TimingStats{}
	start := time.Now()
	defer func() {
		stats.TotalTime = time.Since(start)
		utils.LogTimingStats(a.log, stats)
	}()

	var pcfg policy.Config
	if err := utils.Track(&stats.ConfigTime, func() error {
		var err error
		pcfg, err = a.cfg.Policy()
		return err
	}); err != nil {
		return err
	}

	var net *policy.Network
	if err := utils.Track(&stats.ModelInitTime, func() error {
		var err error
		net, err = policy.New(pcfg)
		return err
	}); err != nil {
		return fmt.Errorf("failed to build network: %w", err)
	}
	a.log.Info().
		Int("input_width", net.InputWidth()).
		Int("hidden_width", net.HiddenWidth()).
		Int("n_layers", pcfg.NLayers).
		Str("activation", string(net.Config().Activation)).
		Msg("network built")

	var info *artifact.Info
	if err := utils.Track(&stats.ExportTime, func() error {
		var err error
		info, err = artifact.Export(a.cfg.Output, net)
		return err
	}); err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}
	a.log.Info().
		Str("path", info.Path).
		Str("id", info.ID).
		Int("bytes", info.Bytes).
		Int("params", info.Scalars).
		Int("nodes", info.Nodes).
		Msg("artifact written")

	if a.v.GetBool("verify") {
		if err := utils.Track(&stats.VerifyTime, func() error {
			return verify(info.Path, net)
		}); err != nil {
			return err
		}
		a.log.Debug().Str("path", info.Path).Msg("artifact verified")
	}

	fmt.Fprintln(cmd.OutOrStdout(), info.Path)
	return nil
}

// verify reloads the artifact and checks it reproduces net on a random batch.
func verify(path string, net *policy.Network) error {
	prog, err := artifact.Load(path)
	if err != nil {
		return fmt.Errorf("failed to reload artifact: %w", err)
	}
	r := rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	x := tensor.New(4, net.InputWidth())
	for i := range x.Data {
		x.Data[i] = r.NormFloat64()
	}
	want, err := net.Apply(x)
	if err != nil {
		return err
	}
	got, err := prog.Forward(x)
	if err != nil {
		return err
	}
	if !tensor.AllClose(want, got, 0) {
		return fmt.Errorf("reloaded artifact %s disagrees with the network", path)
	}
	return nil
}
