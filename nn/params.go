package nn

import (
	"fmt"

	"ballpolicy/nn/layers"
	"ballpolicy/tensor"
)

// Param is a named parameter tensor. Tensor aliases the module's storage.
type Param struct {
	Name   string
	Tensor *tensor.Tensor
}

// JoinPath joins a parent path and a child name with a dot.
func JoinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	if name == "" {
		return prefix
	}
	return prefix + "." + name
}

// Walk visits m and every stage below it depth-first, parents before
// children, passing each stage's dotted path.
func Walk(m layers.Stage, prefix string, fn func(path string, s layers.Stage) error) error {
	if err := fn(prefix, m); err != nil {
		return err
	}
	p, ok := m.(layers.Parent)
	if !ok {
		return nil
	}
	for _, c := range p.Children() {
		if err := Walk(c.Stage, JoinPath(prefix, c.Name), fn); err != nil {
			return err
		}
	}
	return nil
}

// StateDict lists every parameter under m in traversal order, named
// "<path>.weight" / "<path>.bias".
func StateDict(m layers.Stage, prefix string) []Param {
	var params []Param
	_ = Walk(m, prefix, func(path string, s layers.Stage) error {
		if l, ok := s.(*layers.Linear); ok {
			params = append(params,
				Param{Name: JoinPath(path, "weight"), Tensor: l.W},
				Param{Name: JoinPath(path, "bias"), Tensor: l.B},
			)
		}
		return nil
	})
	return params
}

// NumParams counts scalar parameters under m.
func NumParams(m layers.Stage) int {
	n := 0
	for _, p := range StateDict(m, "") {
		n += len(p.Tensor.Data)
	}
	return n
}

// LoadStateDict copies values into m's parameters. Every parameter of m
// must be present with a matching shape; extra entries are an error too.
func LoadStateDict(m layers.Stage, prefix string, values map[string]*tensor.Tensor) error {
	params := StateDict(m, prefix)
	if len(values) != len(params) {
		return fmt.Errorf("%w: state dict has %d entries, module has %d parameters", ErrShapeMismatch, len(values), len(params))
	}
	for _, p := range params {
		v, ok := values[p.Name]
		if !ok {
			return fmt.Errorf("%w: missing parameter %q", ErrShapeMismatch, p.Name)
		}
		if !tensor.SameShape(p.Tensor, v) || len(v.Data) != len(p.Tensor.Data) {
			return fmt.Errorf("%w: parameter %q has shape %v, want %v", ErrShapeMismatch, p.Name, v.Shape, p.Tensor.Shape)
		}
	}
	for _, p := range params {
		copy(p.Tensor.Data, values[p.Name].Data)
	}
	return nil
}
