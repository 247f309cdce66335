package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"ballpolicy/nn"
	"ballpolicy/nn/layers"
	"ballpolicy/policy"
	"ballpolicy/tensor"
)

// FormatVersion identifies the graph encoding stored in the metadata.
const FormatVersion = "ballpolicy.graph/v1"

const (
	metaFormat    = "format"
	metaID        = "id"
	metaCreatedAt = "created_at"
	metaGraph     = "graph"
	metaPolicy    = "policy"
	metaProducer  = "producer"
)

// Metadata describes an artifact beyond its graph and parameters.
type Metadata struct {
	Format    string
	ID        string
	CreatedAt time.Time
	// Policy holds the hyperparameters when the artifact is a policy network.
	Policy *policy.Config
}

func (m Metadata) toMap(g *Graph) (map[string]string, error) {
	graphJSON, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal graph: %w", err)
	}
	out := map[string]string{
		metaFormat:   FormatVersion,
		metaGraph:    string(graphJSON),
		metaProducer: "ballpolicy",
	}
	if m.ID != "" {
		out[metaID] = m.ID
	}
	if !m.CreatedAt.IsZero() {
		out[metaCreatedAt] = m.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	if m.Policy != nil {
		cfgJSON, err := json.Marshal(m.Policy)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal policy config: %w", err)
		}
		out[metaPolicy] = string(cfgJSON)
	}
	return out, nil
}

func metadataFromMap(raw map[string]string) (Metadata, *Graph, error) {
	var m Metadata
	m.Format = raw[metaFormat]
	if m.Format != FormatVersion {
		return m, nil, fmt.Errorf("%w: format %q, want %q", ErrCorrupt, m.Format, FormatVersion)
	}
	m.ID = raw[metaID]
	if s := raw[metaCreatedAt]; s != "" {
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return m, nil, fmt.Errorf("%w: created_at: %v", ErrCorrupt, err)
		}
		m.CreatedAt = ts
	}
	if s := raw[metaPolicy]; s != "" {
		var cfg policy.Config
		if err := json.Unmarshal([]byte(s), &cfg); err != nil {
			return m, nil, fmt.Errorf("%w: policy config: %v", ErrCorrupt, err)
		}
		m.Policy = &cfg
	}
	s, ok := raw[metaGraph]
	if !ok {
		return m, nil, fmt.Errorf("%w: no graph in metadata", ErrCorrupt)
	}
	var g Graph
	if err := json.Unmarshal([]byte(s), &g); err != nil {
		return m, nil, fmt.Errorf("%w: graph: %v", ErrCorrupt, err)
	}
	return m, &g, nil
}

// Program evaluates a compiled graph over its stored parameters.
type Program struct {
	meta   Metadata
	graph  *Graph
	params map[string]*tensor.Tensor
	acts   []func(float64) float64
}

// NewProgram checks g against params and prepares it for evaluation.
func NewProgram(g *Graph, params map[string]*tensor.Tensor, meta Metadata) (*Program, error) {
	shapeOf := func(name string) ([]int, bool) {
		t, ok := params[name]
		if !ok {
			return nil, false
		}
		return t.Shape, true
	}
	if _, err := g.widths(shapeOf); err != nil {
		return nil, err
	}
	acts := make([]func(float64) float64, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.Op == OpActivation {
			acts[i] = layers.SupportedActivations[n.Activation]
		}
	}
	return &Program{meta: meta, graph: g, params: params, acts: acts}, nil
}

// Decode parses artifact bytes into a Program.
func Decode(raw []byte) (*Program, error) {
	tensors, rawMeta, err := decode(raw)
	if err != nil {
		return nil, err
	}
	meta, g, err := metadataFromMap(rawMeta)
	if err != nil {
		return nil, err
	}
	return NewProgram(g, tensors, meta)
}

// Load reads an artifact file into a Program.
func Load(path string) (*Program, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	p, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Metadata returns the artifact's descriptive fields.
func (p *Program) Metadata() Metadata { return p.meta }

// Graph returns the compiled graph.
func (p *Program) Graph() *Graph { return p.graph }

// InputWidth is the expected width of the input.
func (p *Program) InputWidth() int { return p.graph.InputWidth }

// OutputWidth is the width of the output.
func (p *Program) OutputWidth() int { return p.graph.OutputWidth }

// StateDict lists the stored parameters in graph order.
func (p *Program) StateDict() []nn.Param {
	names := p.graph.Params()
	params := make([]nn.Param, len(names))
	for i, name := range names {
		params[i] = nn.Param{Name: name, Tensor: p.params[name]}
	}
	return params
}

// Forward evaluates the graph for one input vector or a [batch, in] matrix.
func (p *Program) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Width() != p.graph.InputWidth {
		return nil, fmt.Errorf("program: %w: input width %d, want %d", tensor.ErrShapeMismatch, x.Width(), p.graph.InputWidth)
	}
	vals := make([]*tensor.Tensor, len(p.graph.Nodes))
	vals[0] = x
	for i := 1; i < len(p.graph.Nodes); i++ {
		n := p.graph.Nodes[i]
		var err error
		switch n.Op {
		case OpLinear:
			vals[i], err = tensor.Affine(vals[n.Inputs[0]], p.params[n.Weight], p.params[n.Bias])
		case OpActivation:
			vals[i] = tensor.Map(vals[n.Inputs[0]], p.acts[i])
		case OpAdd:
			vals[i], err = tensor.Add(vals[n.Inputs[0]], vals[n.Inputs[1]])
		}
		if err != nil {
			return nil, fmt.Errorf("program: node %d (%s %s): %w", i, n.Op, n.Name, err)
		}
	}
	return vals[p.graph.Output], nil
}

func (p *Program) Tag() string {
	return fmt.Sprintf("Program[%d nodes, %d→%d]", len(p.graph.Nodes), p.graph.InputWidth, p.graph.OutputWidth)
}
