package artifact

import (
	"fmt"

	"ballpolicy/nn"
	"ballpolicy/nn/layers"
)

// Compile lowers root into a Graph whose input has the given width. It
// returns the graph and the parameters it references. Only linear layers,
// activations, residual blocks, sequential chains and wrappers around
// those can be lowered; anything else fails with ErrCompilation.
func Compile(root layers.Stage, inputWidth int) (*Graph, []nn.Param, error) {
	if inputWidth <= 0 {
		return nil, nil, fmt.Errorf("%w: input width %d", ErrCompilation, inputWidth)
	}
	t := &tracer{
		g:    &Graph{InputWidth: inputWidth},
		seen: make(map[string]bool),
	}
	in := t.add(Node{Op: OpInput, Name: "input"}, inputWidth)
	out, err := t.lower("", root, in)
	if err != nil {
		return nil, nil, err
	}
	t.g.Output = out
	t.g.OutputWidth = t.widths[out]
	return t.g, t.params, nil
}

type tracer struct {
	g      *Graph
	widths []int
	params []nn.Param
	seen   map[string]bool
}

func (t *tracer) add(n Node, width int) int {
	t.g.Nodes = append(t.g.Nodes, n)
	t.widths = append(t.widths, width)
	return len(t.g.Nodes) - 1
}

func (t *tracer) lower(path string, s layers.Stage, in int) (int, error) {
	switch m := s.(type) {
	case *layers.Linear:
		if t.widths[in] != m.InDim() {
			return 0, fmt.Errorf("%w: %s (%s) receives width %d, expects %d", ErrCompilation, path, m.Tag(), t.widths[in], m.InDim())
		}
		weight, bias := nn.JoinPath(path, "weight"), nn.JoinPath(path, "bias")
		if t.seen[weight] {
			return 0, fmt.Errorf("%w: parameter %q lowered twice", ErrCompilation, weight)
		}
		t.seen[weight] = true
		t.params = append(t.params,
			nn.Param{Name: weight, Tensor: m.W},
			nn.Param{Name: bias, Tensor: m.B},
		)
		return t.add(Node{
			Op:          OpLinear,
			Name:        path,
			Inputs:      []int{in},
			Weight:      weight,
			Bias:        bias,
			InFeatures:  m.InDim(),
			OutFeatures: m.OutDim(),
		}, m.OutDim()), nil

	case *layers.Activation:
		return t.add(Node{
			Op:         OpActivation,
			Name:       path,
			Inputs:     []int{in},
			Activation: m.Kind(),
		}, t.widths[in]), nil

	case *layers.ResidualBlock:
		out, err := t.chain(path, m.MainPath(), in)
		if err != nil {
			return 0, err
		}
		skip := m.SkipPath()
		sk, err := t.lower(nn.JoinPath(path, skip.Name), skip.Stage, in)
		if err != nil {
			return 0, err
		}
		if t.widths[out] != t.widths[sk] {
			return 0, fmt.Errorf("%w: %s sums widths %d and %d", ErrCompilation, path, t.widths[out], t.widths[sk])
		}
		return t.add(Node{Op: OpAdd, Name: path, Inputs: []int{out, sk}}, t.widths[out]), nil

	case *nn.Sequential:
		return t.chain(path, m.Children(), in)

	case layers.Wrapper:
		inner := m.Inner()
		return t.lower(nn.JoinPath(path, inner.Name), inner.Stage, in)

	default:
		return 0, fmt.Errorf("%w: %s: module %s (%T) has no portable form", ErrCompilation, path, s.Tag(), s)
	}
}

func (t *tracer) chain(path string, stages []layers.Named, in int) (int, error) {
	out := in
	for _, c := range stages {
		var err error
		out, err = t.lower(nn.JoinPath(path, c.Name), c.Stage, out)
		if err != nil {
			return 0, err
		}
	}
	return out, nil
}
