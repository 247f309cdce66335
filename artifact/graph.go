// Package artifact compiles a module tree into a flat computation graph and
// stores it, together with every parameter, in a single safetensors-layout
// file that can be evaluated without the code that defined the network.
package artifact

import (
	"errors"
	"fmt"

	"ballpolicy/nn/layers"
)

var (
	// ErrCompilation is returned when a module has no portable lowering.
	ErrCompilation = errors.New("compilation failed")
	// ErrCorrupt is returned when an artifact cannot be decoded or its graph
	// is inconsistent with the stored parameters.
	ErrCorrupt = errors.New("corrupt artifact")
)

// Op is the operation a graph node performs.
type Op string

const (
	OpInput      Op = "input"
	OpLinear     Op = "linear"
	OpActivation Op = "activation"
	OpAdd        Op = "add"
)

// Node is one operation. Inputs refer to earlier nodes by index.
type Node struct {
	Op     Op     `json:"op"`
	Name   string `json:"name,omitempty"`
	Inputs []int  `json:"inputs,omitempty"`

	Weight      string `json:"weight,omitempty"`
	Bias        string `json:"bias,omitempty"`
	InFeatures  int    `json:"in_features,omitempty"`
	OutFeatures int    `json:"out_features,omitempty"`

	Activation layers.ActivationKind `json:"activation,omitempty"`
}

// Graph is the compiled network. Node 0 is always the input.
type Graph struct {
	InputWidth  int    `json:"input_width"`
	OutputWidth int    `json:"output_width"`
	Output      int    `json:"output"`
	Nodes       []Node `json:"nodes"`
}

// Params returns the names of every parameter the graph references, in
// node order.
func (g *Graph) Params() []string {
	var names []string
	for _, n := range g.Nodes {
		if n.Op == OpLinear {
			names = append(names, n.Weight, n.Bias)
		}
	}
	return names
}

// CountOps tallies nodes by operation.
func (g *Graph) CountOps() map[Op]int {
	counts := make(map[Op]int)
	for _, n := range g.Nodes {
		counts[n.Op]++
	}
	return counts
}

// widths checks the graph's structure and returns the output width of each
// node. shapeOf reports the shape of a named parameter, or false if absent.
func (g *Graph) widths(shapeOf func(name string) ([]int, bool)) ([]int, error) {
	if len(g.Nodes) == 0 || g.Nodes[0].Op != OpInput {
		return nil, fmt.Errorf("%w: graph must start with an input node", ErrCorrupt)
	}
	if g.InputWidth <= 0 {
		return nil, fmt.Errorf("%w: input width %d", ErrCorrupt, g.InputWidth)
	}
	w := make([]int, len(g.Nodes))
	w[0] = g.InputWidth
	for i := 1; i < len(g.Nodes); i++ {
		n := g.Nodes[i]
		for _, in := range n.Inputs {
			if in < 0 || in >= i {
				return nil, fmt.Errorf("%w: node %d (%s) reads node %d", ErrCorrupt, i, n.Name, in)
			}
		}
		switch n.Op {
		case OpLinear:
			if len(n.Inputs) != 1 {
				return nil, fmt.Errorf("%w: linear node %d needs 1 input, has %d", ErrCorrupt, i, len(n.Inputs))
			}
			if n.InFeatures != w[n.Inputs[0]] || n.OutFeatures <= 0 {
				return nil, fmt.Errorf("%w: linear node %d is %d→%d but receives width %d", ErrCorrupt, i, n.InFeatures, n.OutFeatures, w[n.Inputs[0]])
			}
			ws, ok := shapeOf(n.Weight)
			if !ok || len(ws) != 2 || ws[0] != n.OutFeatures || ws[1] != n.InFeatures {
				return nil, fmt.Errorf("%w: weight %q has shape %v, want [%d %d]", ErrCorrupt, n.Weight, ws, n.OutFeatures, n.InFeatures)
			}
			bs, ok := shapeOf(n.Bias)
			if !ok || len(bs) != 1 || bs[0] != n.OutFeatures {
				return nil, fmt.Errorf("%w: bias %q has shape %v, want [%d]", ErrCorrupt, n.Bias, bs, n.OutFeatures)
			}
			w[i] = n.OutFeatures
		case OpActivation:
			if len(n.Inputs) != 1 {
				return nil, fmt.Errorf("%w: activation node %d needs 1 input, has %d", ErrCorrupt, i, len(n.Inputs))
			}
			if _, ok := layers.SupportedActivations[n.Activation]; !ok {
				return nil, fmt.Errorf("%w: node %d uses unknown activation %q", ErrCorrupt, i, n.Activation)
			}
			w[i] = w[n.Inputs[0]]
		case OpAdd:
			if len(n.Inputs) != 2 {
				return nil, fmt.Errorf("%w: add node %d needs 2 inputs, has %d", ErrCorrupt, i, len(n.Inputs))
			}
			if w[n.Inputs[0]] != w[n.Inputs[1]] {
				return nil, fmt.Errorf("%w: add node %d sums widths %d and %d", ErrCorrupt, i, w[n.Inputs[0]], w[n.Inputs[1]])
			}
			w[i] = w[n.Inputs[0]]
		default:
			return nil, fmt.Errorf("%w: node %d has unknown op %q", ErrCorrupt, i, n.Op)
		}
	}
	if g.Output < 0 || g.Output >= len(g.Nodes) {
		return nil, fmt.Errorf("%w: output node %d out of range", ErrCorrupt, g.Output)
	}
	if w[g.Output] != g.OutputWidth {
		return nil, fmt.Errorf("%w: output width %d, graph declares %d", ErrCorrupt, w[g.Output], g.OutputWidth)
	}
	return w, nil
}
