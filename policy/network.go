// Package policy builds the ball-game policy network: a residual MLP over a
// flattened state of the player ball and every other ball, emitting raw
// scores over a discrete action set.
package policy

import (
	"fmt"
	"math"
	"time"

	"ballpolicy/nn"
	"ballpolicy/nn/layers"
	"ballpolicy/tensor"

	"golang.org/x/exp/rand"
)

// ErrInvalidConfig is returned when a Config cannot describe a network.
var ErrInvalidConfig = nn.ErrInvalidConfig

// DefaultMLPRatio is the hidden-to-input width ratio of the game policy.
const DefaultMLPRatio = 4.0

// Config holds the hyperparameters of a Network.
type Config struct {
	// NBalls is the number of balls excluding the player ball.
	NBalls int `mapstructure:"n_balls" json:"n_balls"`
	// NBFeatures is the number of features recorded per ball.
	NBFeatures int `mapstructure:"nb_features" json:"nb_features"`
	NActions   int `mapstructure:"n_actions" json:"n_actions"`
	// NLayers is the number of residual blocks before the output projection.
	NLayers  int     `mapstructure:"n_layers" json:"n_layers"`
	MLPRatio float64 `mapstructure:"mlp_ratio" json:"mlp_ratio"`

	Activation layers.ActivationKind `mapstructure:"activation" json:"activation"`
	// Seed drives parameter initialisation; zero means time-seeded.
	Seed uint64 `mapstructure:"seed" json:"seed"`
}

// DefaultConfig returns the hyperparameters the exported game policy uses.
func DefaultConfig() Config {
	return Config{
		NBalls:     50,
		NBFeatures: 4,
		NActions:   4,
		NLayers:    40,
		MLPRatio:   DefaultMLPRatio,
		Activation: layers.ReLU,
	}
}

// InputWidth is (NBalls+1)*NBFeatures.
func (c Config) InputWidth() int {
	return (c.NBalls + 1) * c.NBFeatures
}

// HiddenWidth is floor(InputWidth*MLPRatio).
func (c Config) HiddenWidth() int {
	return int(math.Floor(float64(c.InputWidth()) * c.MLPRatio))
}

// Widths is [input] + [hidden]*NLayers + [NActions].
func (c Config) Widths() []int {
	widths := make([]int, 0, c.NLayers+2)
	widths = append(widths, c.InputWidth())
	for i := 0; i < c.NLayers; i++ {
		widths = append(widths, c.HiddenWidth())
	}
	return append(widths, c.NActions)
}

// Validate checks the hyperparameters without building anything.
func (c Config) Validate() error {
	switch {
	case c.NBalls < 0:
		return fmt.Errorf("%w: n_balls must be >= 0, got %d", ErrInvalidConfig, c.NBalls)
	case c.NBFeatures <= 0:
		return fmt.Errorf("%w: nb_features must be positive, got %d", ErrInvalidConfig, c.NBFeatures)
	case c.NActions <= 0:
		return fmt.Errorf("%w: n_actions must be positive, got %d", ErrInvalidConfig, c.NActions)
	case c.NLayers < 1:
		return fmt.Errorf("%w: n_layers must be >= 1, got %d", ErrInvalidConfig, c.NLayers)
	case math.IsNaN(c.MLPRatio) || math.IsInf(c.MLPRatio, 0) || c.MLPRatio <= 0:
		return fmt.Errorf("%w: mlp_ratio must be a positive finite number, got %v", ErrInvalidConfig, c.MLPRatio)
	case c.InputWidth() <= 0:
		return fmt.Errorf("%w: input width %d must be positive", ErrInvalidConfig, c.InputWidth())
	case c.HiddenWidth() <= 0:
		return fmt.Errorf("%w: hidden width floor(%d*%v) must be positive", ErrInvalidConfig, c.InputWidth(), c.MLPRatio)
	}
	if _, ok := layers.SupportedActivations[c.Activation]; !ok {
		return fmt.Errorf("%w: unsupported activation %q (want one of %v)", ErrInvalidConfig, c.Activation, layers.ActivationKinds())
	}
	return nil
}

// Network maps a state vector of InputWidth values to NActions raw scores.
type Network struct {
	cfg Config
	mlp *nn.MLP
}

// New validates cfg and builds a randomly initialised network. Zero fields
// are not defaulted; start from DefaultConfig to get the game policy's values.
func New(cfg Config) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	mlp, err := nn.NewMLP(cfg.Widths(), cfg.Activation, rand.NewSource(seed))
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	return &Network{cfg: cfg, mlp: mlp}, nil
}

// Config returns the hyperparameters the network was built from.
func (n *Network) Config() Config { return n.cfg }

// InputWidth is the expected state vector length.
func (n *Network) InputWidth() int { return n.cfg.InputWidth() }

// HiddenWidth is the width of every residual block.
func (n *Network) HiddenWidth() int { return n.cfg.HiddenWidth() }

// MLP exposes the underlying stack.
func (n *Network) MLP() *nn.MLP { return n.mlp }

// Apply returns unnormalised action scores for one state ([InputWidth]) or
// a batch ([batch, InputWidth]).
func (n *Network) Apply(state *tensor.Tensor) (*tensor.Tensor, error) {
	return n.Forward(state)
}

// Forward implements nn.Module.
func (n *Network) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Width() != n.InputWidth() {
		return nil, fmt.Errorf("policy: %w: state width %d, want %d", nn.ErrShapeMismatch, x.Width(), n.InputWidth())
	}
	return n.mlp.Forward(x)
}

// Inner exposes the MLP under "pi.0", the prefix of every exported parameter name.
func (n *Network) Inner() layers.Named {
	return layers.Named{Name: "pi.0", Stage: n.mlp}
}

// Children implements layers.Parent.
func (n *Network) Children() []layers.Named {
	return []layers.Named{n.Inner()}
}

// StateDict lists the network's parameters with their full names.
func (n *Network) StateDict() []nn.Param {
	return nn.StateDict(n, "")
}

func (n *Network) Tag() string {
	return fmt.Sprintf("BallPolicy(n_balls=%d, nb_features=%d, n_actions=%d, n_layers=%d)",
		n.cfg.NBalls, n.cfg.NBFeatures, n.cfg.NActions, n.cfg.NLayers)
}
