package utils

import (
	"fmt"
	"strconv"
	"strings"

	"ballpolicy/nn/layers"
	"ballpolicy/policy"

	"github.com/spf13/viper"
)

// ExportConfig holds everything the export command needs.
type ExportConfig struct {
	// Network hyperparameters
	NBalls     int     `mapstructure:"n_balls"`
	NBFeatures int     `mapstructure:"nb_features"`
	NActions   int     `mapstructure:"n_actions"`
	NLayers    int     `mapstructure:"n_layers"`
	MLPRatio   float64 `mapstructure:"mlp_ratio"`
	Activation string  `mapstructure:"activation"`
	Seed       uint64  `mapstructure:"seed"`

	// Output
	Output string `mapstructure:"output"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
}

// DefaultExportConfig returns the fixed hyperparameters of the game policy.
func DefaultExportConfig() *ExportConfig {
	p := policy.DefaultConfig()
	return &ExportConfig{
		NBalls:     p.NBalls,
		NBFeatures: p.NBFeatures,
		NActions:   p.NActions,
		NLayers:    p.NLayers,
		MLPRatio:   p.MLPRatio,
		Activation: string(p.Activation),
		Output:     "ball_policy.pt",
		LogLevel:   "info",
	}
}

// SetDefaults registers the default values on v so that config files and
// environment variables only need to name what they change.
func SetDefaults(v *viper.Viper) {
	d := DefaultExportConfig()
	v.SetDefault("n_balls", d.NBalls)
	v.SetDefault("nb_features", d.NBFeatures)
	v.SetDefault("n_actions", d.NActions)
	v.SetDefault("n_layers", d.NLayers)
	v.SetDefault("mlp_ratio", d.MLPRatio)
	v.SetDefault("activation", d.Activation)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("output", d.Output)
	v.SetDefault("log_level", d.LogLevel)
}

// LoadExportConfig reads v into an ExportConfig and validates it.
func LoadExportConfig(v *viper.Viper) (*ExportConfig, error) {
	cfg := DefaultExportConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Policy converts the hyperparameter fields into a policy.Config.
func (c *ExportConfig) Policy() (policy.Config, error) {
	kind, err := layers.ParseActivation(c.Activation)
	if err != nil {
		return policy.Config{}, err
	}
	return policy.Config{
		NBalls:     c.NBalls,
		NBFeatures: c.NBFeatures,
		NActions:   c.NActions,
		NLayers:    c.NLayers,
		MLPRatio:   c.MLPRatio,
		Activation: kind,
		Seed:       c.Seed,
	}, nil
}

// Validate checks the export configuration.
func (c *ExportConfig) Validate() error {
	if c.Output == "" {
		return fmt.Errorf("output is required")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	p, err := c.Policy()
	if err != nil {
		return err
	}
	return p.Validate()
}

// ParseArchitecture parses a whitespace-separated list of integers.
func ParseArchitecture(archStr string) ([]int, error) {
	archParts := strings.Fields(archStr)
	arch := make([]int, len(archParts))
	for i, s := range archParts {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, err
		}
		arch[i] = n
	}
	return arch, nil
}

// ParseVector parses a whitespace- or comma-separated list of floats.
func ParseVector(s string) ([]float64, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	vec := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		vec[i] = f
	}
	return vec, nil
}
