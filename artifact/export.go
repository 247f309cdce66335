package artifact

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"ballpolicy/nn/layers"
	"ballpolicy/policy"

	"github.com/google/uuid"
)

// DefaultPath is where the export step writes when no path is given.
const DefaultPath = "ball_policy.pt"

// Info summarises a written artifact.
type Info struct {
	ID      string
	Path    string
	Bytes   int
	Tensors int
	Scalars int
	Nodes   int
}

// prepare compiles root and lays out its container. An empty meta.ID gets a
// fresh UUID and a zero CreatedAt gets the current time.
func prepare(root layers.Stage, inputWidth int, meta Metadata) (*container, *Info, error) {
	g, params, err := Compile(root, inputWidth)
	if err != nil {
		return nil, nil, err
	}
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}
	m, err := meta.toMap(g)
	if err != nil {
		return nil, nil, err
	}
	c, err := newContainer(params, m)
	if err != nil {
		return nil, nil, err
	}
	info := &Info{ID: meta.ID, Bytes: c.Size(), Tensors: len(params), Nodes: len(g.Nodes)}
	for _, p := range params {
		info.Scalars += len(p.Tensor.Data)
	}
	return c, info, nil
}

// Build compiles root and serialises it with its parameters into memory.
func Build(root layers.Stage, inputWidth int, meta Metadata) ([]byte, *Info, error) {
	c, info, err := prepare(root, inputWidth, meta)
	if err != nil {
		return nil, nil, err
	}
	var buf bytes.Buffer
	buf.Grow(c.Size())
	if _, err := c.WriteTo(&buf); err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), info, nil
}

// ExportModule compiles root and streams it to path, replacing any existing
// file atomically.
func ExportModule(path string, root layers.Stage, inputWidth int, meta Metadata) (*Info, error) {
	c, info, err := prepare(root, inputWidth, meta)
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(path, c, 0o644); err != nil {
		return nil, err
	}
	info.Path = path
	return info, nil
}

// Export writes a policy network, recording its hyperparameters.
func Export(path string, net *policy.Network) (*Info, error) {
	cfg := net.Config()
	return ExportModule(path, net, net.InputWidth(), Metadata{Policy: &cfg})
}

// writeFileAtomic streams src to a temp file next to path and renames it
// over path, so readers never observe a partial artifact.
func writeFileAtomic(path string, src io.WriterTo, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if _, err = src.WriteTo(tmp); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("failed to chmod artifact: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close artifact: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return nil
}
