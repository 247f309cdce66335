package policy

import (
	"math"
	"testing"

	"ballpolicy/nn"
	"ballpolicy/nn/layers"
	"ballpolicy/tensor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkExampleWidths(t *testing.T) {
	n, err := New(Config{NBalls: 2, NBFeatures: 4, NActions: 4, NLayers: 2, MLPRatio: 4, Activation: layers.ReLU, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, 12, n.InputWidth())
	assert.Equal(t, 48, n.HiddenWidth())
	assert.Equal(t, []int{12, 48, 48, 4}, n.MLP().Widths())

	state := tensor.NewWithData([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})
	scores, err := n.Apply(state)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, scores.Shape)
}

func TestInputWidthFormula(t *testing.T) {
	for nBalls := 0; nBalls < 6; nBalls++ {
		for feats := 1; feats < 5; feats++ {
			n, err := New(Config{NBalls: nBalls, NBFeatures: feats, NActions: 3, NLayers: 1, MLPRatio: DefaultMLPRatio, Activation: layers.ReLU, Seed: 3})
			require.NoError(t, err)
			assert.Equal(t, (nBalls+1)*feats, n.InputWidth())
			assert.Equal(t, (nBalls+1)*feats, n.MLP().Widths()[0])
		}
	}
}

func TestHiddenWidthFloors(t *testing.T) {
	cfg := Config{NBalls: 0, NBFeatures: 3, NActions: 2, NLayers: 1, MLPRatio: 1.5}
	assert.Equal(t, 4, cfg.HiddenWidth())
	assert.Equal(t, []int{3, 4, 2}, cfg.Widths())
}

func TestNewAndValidateAgreeOnZeroFields(t *testing.T) {
	cases := map[string]Config{
		"zero ratio":       {NBalls: 2, NBFeatures: 4, NActions: 4, NLayers: 2, Activation: layers.ReLU, Seed: 1},
		"empty activation": {NBalls: 2, NBFeatures: 4, NActions: 4, NLayers: 2, MLPRatio: DefaultMLPRatio, Seed: 1},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
			_, err := New(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 204, cfg.InputWidth())
	assert.Equal(t, 816, cfg.HiddenWidth())
	assert.Len(t, cfg.Widths(), 42)
}

func TestInvalidConfigs(t *testing.T) {
	base := Config{NBalls: 1, NBFeatures: 2, NActions: 4, NLayers: 1, MLPRatio: 2, Activation: layers.ReLU}
	cases := map[string]func(c *Config){
		"negative balls":  func(c *Config) { c.NBalls = -1 },
		"zero features":   func(c *Config) { c.NBFeatures = 0 },
		"zero actions":    func(c *Config) { c.NActions = 0 },
		"no layers":       func(c *Config) { c.NLayers = 0 },
		"negative ratio":  func(c *Config) { c.MLPRatio = -1 },
		"nan ratio":       func(c *Config) { c.MLPRatio = math.NaN() },
		"inf ratio":       func(c *Config) { c.MLPRatio = math.Inf(1) },
		"hidden floors 0": func(c *Config) { c.MLPRatio = 0.1 },
		"bad activation":  func(c *Config) { c.Activation = "sine" },
		"zero ratio":      func(c *Config) { c.MLPRatio = 0 },
	}
	require.NoError(t, base.Validate())
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
			_, err := New(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestApplyShapeMismatch(t *testing.T) {
	n, err := New(Config{NBalls: 2, NBFeatures: 4, NActions: 4, NLayers: 1, MLPRatio: DefaultMLPRatio, Activation: layers.ReLU, Seed: 4})
	require.NoError(t, err)
	_, err = n.Apply(tensor.New(11))
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)
}

func TestApplyDeterministicAndBatched(t *testing.T) {
	n, err := New(Config{NBalls: 1, NBFeatures: 3, NActions: 2, NLayers: 3, MLPRatio: DefaultMLPRatio, Activation: layers.ReLU, Seed: 17})
	require.NoError(t, err)

	s := tensor.NewWithData([]float64{0.1, 0.2, 0.3, -0.4, 0.5, -0.6})
	a, err := n.Apply(s)
	require.NoError(t, err)
	b, err := n.Apply(s)
	require.NoError(t, err)
	assert.Equal(t, a.Data, b.Data)

	batch, err := tensor.FromRows([][]float64{s.Data, s.Data})
	require.NoError(t, err)
	out, err := n.Apply(batch)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, out.Shape)
	assert.InDeltaSlice(t, a.Data, out.Data[:2], 1e-12)
	assert.InDeltaSlice(t, a.Data, out.Data[2:], 1e-12)
}

func TestStateDictNamesFollowModuleTree(t *testing.T) {
	n, err := New(Config{NBalls: 0, NBFeatures: 2, NActions: 1, NLayers: 1, MLPRatio: DefaultMLPRatio, Activation: layers.ReLU, Seed: 2})
	require.NoError(t, err)
	params := n.StateDict()
	require.Len(t, params, 8)
	assert.Equal(t, "pi.0.net.0.net.0.weight", params[0].Name)
	assert.Equal(t, "pi.0.net.0.res_connect.bias", params[5].Name)
	assert.Equal(t, "pi.0.net.1.weight", params[6].Name)
	assert.Equal(t, []int{1, 8}, params[6].Tensor.Shape)
}

func TestSameSeedSameNetwork(t *testing.T) {
	cfg := Config{NBalls: 2, NBFeatures: 2, NActions: 3, NLayers: 2, MLPRatio: DefaultMLPRatio, Activation: layers.ReLU, Seed: 123}
	a, err := New(cfg)
	require.NoError(t, err)
	b, err := New(cfg)
	require.NoError(t, err)
	pa, pb := a.StateDict(), b.StateDict()
	require.Equal(t, len(pa), len(pb))
	for i := range pa {
		assert.Equal(t, pa[i].Tensor.Data, pb[i].Tensor.Data, pa[i].Name)
	}
}
