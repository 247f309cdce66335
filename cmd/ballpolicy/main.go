// ballpolicy: builds the ball-game policy network and exports it as a
// self-contained artifact, and inspects or runs exported artifacts.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"ballpolicy/utils"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// app carries the state shared by every command.
type app struct {
	v   *viper.Viper
	cfg *utils.ExportConfig
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	defaults := utils.DefaultExportConfig()

	rootCmd := &cobra.Command{
		Use:   "ballpolicy",
		Short: "Export the ball-game policy network",
		Long: `Builds the residual MLP policy for the ball game and writes it,
with every parameter, to a single artifact that can be evaluated without
the code that defined it.

Run with no arguments to export the default network to ball_policy.pt.
Hyperparameters can be overridden with flags, a config file or
BALLPOLICY_* environment variables.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: a.runExport,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Config file (yaml, json or toml)")
	pf.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")

	f := rootCmd.Flags()
	f.Int("n-balls", defaults.NBalls, "Number of balls besides the player ball")
	f.Int("nb-features", defaults.NBFeatures, "Features recorded per ball")
	f.Int("n-actions", defaults.NActions, "Number of action scores")
	f.Int("n-layers", defaults.NLayers, "Number of residual blocks")
	f.Float64("mlp-ratio", defaults.MLPRatio, "Hidden width as a multiple of the input width")
	f.String("activation", defaults.Activation, "Activation function")
	f.Uint64("seed", defaults.Seed, "Initialisation seed (0 = time-seeded)")
	f.StringP("output", "o", defaults.Output, "Artifact path")
	f.Bool("verify", false, "Reload the artifact and compare it with the in-memory network")

	// Bind flags to viper for config file and environment variable support
	utils.SetDefaults(a.v)
	if err := bindFlags(a.v, f, pf); err != nil {
		panic(err)
	}
	a.v.SetEnvPrefix("BALLPOLICY")
	a.v.AutomaticEnv()

	rootCmd.AddCommand(newInspectCmd(a), newInferCmd(a), newBenchCmd(a))
	return rootCmd
}

// bindFlags binds every flag in sets to the viper key named after it, with
// dashes turned into underscores.
func bindFlags(v *viper.Viper, sets ...*pflag.FlagSet) error {
	var errs []error
	for _, fs := range sets {
		fs.VisitAll(func(fl *pflag.Flag) {
			if err := v.BindPFlag(strings.ReplaceAll(fl.Name, "-", "_"), fl); err != nil {
				errs = append(errs, fmt.Errorf("binding --%s: %w", fl.Name, err))
			}
		})
	}
	return errors.Join(errs...)
}

// setup reads the config file if given, then builds the config and logger.
func (a *app) setup(cmd *cobra.Command) error {
	if path := a.v.GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	log, err := utils.NewLogger(a.v.GetString("log_level"), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.log = log
	if cmd.HasParent() {
		return nil
	}
	cfg, err := utils.LoadExportConfig(a.v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
