package bench

import (
	"fmt"
	"sort"

	"ballpolicy/nn"
	"ballpolicy/nn/layers"
	"ballpolicy/policy"

	"golang.org/x/exp/rand"
)

// BuiltNet names a policy configuration to benchmark. When Widths is set the
// net is a bare MLP over those widths, using Config only for its activation
// and seed.
type BuiltNet struct {
	Name   string
	Config policy.Config
	Widths []int
}

// BuildWidths benchmarks a bare MLP, e.g. [204 816 4].
func BuildWidths(widths []int) BuiltNet {
	cfg := policy.DefaultConfig()
	cfg.Seed = 1
	return BuiltNet{Name: fmt.Sprintf("mlp%v", widths), Config: cfg, Widths: widths}
}

func (n BuiltNet) build() (layers.Stage, *nn.MLP, error) {
	if len(n.Widths) > 0 {
		mlp, err := nn.NewMLP(n.Widths, n.Config.Activation, rand.NewSource(n.Config.Seed))
		if err != nil {
			return nil, nil, err
		}
		return mlp, mlp, nil
	}
	pn, err := policy.New(n.Config)
	if err != nil {
		return nil, nil, err
	}
	return pn, pn.MLP(), nil
}

// 1. one other ball, one block
func BuildTiny() BuiltNet {
	cfg := policy.DefaultConfig()
	cfg.NBalls, cfg.NLayers, cfg.Seed = 1, 1, 1
	return BuiltNet{Name: "tiny", Config: cfg}
}

// 2. ten balls, four blocks
func BuildSmall() BuiltNet {
	cfg := policy.DefaultConfig()
	cfg.NBalls, cfg.NLayers, cfg.Seed = 10, 4, 1
	return BuiltNet{Name: "small", Config: cfg}
}

// 3. the exported game policy
func BuildGame() BuiltNet {
	cfg := policy.DefaultConfig()
	cfg.Seed = 1
	return BuiltNet{Name: "game", Config: cfg}
}

var registry = map[string]func() BuiltNet{
	"tiny":  BuildTiny,
	"small": BuildSmall,
	"game":  BuildGame,
}

// Names lists the registered nets.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the registered net with the given name.
func Lookup(name string) (BuiltNet, error) {
	build, ok := registry[name]
	if !ok {
		return BuiltNet{}, fmt.Errorf("unknown net %q (want one of %v)", name, Names())
	}
	return build(), nil
}
