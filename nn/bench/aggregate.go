package bench

import (
	"encoding/csv"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"
	"time"

	"ballpolicy/artifact"
	"ballpolicy/nn"
	"ballpolicy/tensor"

	"golang.org/x/exp/rand"
)

// Point is one benchmark result: the in-memory network against the same
// network reloaded from its artifact bytes.
type Point struct {
	Net     string
	Batch   int
	Cores   int
	Params  int
	Bytes   int
	Apply   time.Duration
	Program time.Duration
	Layers  []LayerTime
}

// RunPoint builds net, exports it in memory and times both forms on a
// random [batch, input] state.
func RunPoint(net BuiltNet, batch, cores, numRuns int) (Point, error) {
	if cores > 0 {
		prev := runtime.GOMAXPROCS(cores)
		defer runtime.GOMAXPROCS(prev)
	}
	root, mlp, err := net.build()
	if err != nil {
		return Point{}, err
	}
	inputWidth := mlp.Widths()[0]
	raw, info, err := artifact.Build(root, inputWidth, artifact.Metadata{})
	if err != nil {
		return Point{}, err
	}
	prog, err := artifact.Decode(raw)
	if err != nil {
		return Point{}, err
	}

	r := rand.New(rand.NewSource(net.Config.Seed + 1))
	x := tensor.New(batch, inputWidth)
	for i := range x.Data {
		x.Data[i] = r.NormFloat64()
	}

	pt := Point{
		Net:    net.Name,
		Batch:  batch,
		Cores:  runtime.GOMAXPROCS(0),
		Params: nn.NumParams(root),
		Bytes:  info.Bytes,
	}
	if pt.Apply, err = TimeForward(root, x, numRuns); err != nil {
		return Point{}, err
	}
	if pt.Program, err = TimeForward(prog, x, numRuns); err != nil {
		return Point{}, err
	}
	if pt.Layers, err = TimeLayers(mlp, x, numRuns); err != nil {
		return Point{}, err
	}
	return pt, nil
}

func toMicro(d time.Duration) string {
	return fmt.Sprintf("%.3f", float64(d.Nanoseconds())/1_000.0)
}

// WriteTable prints the per-layer table followed by the totals.
func WriteTable(w io.Writer, pt Point) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Microbenchmark Table for %s (batch=%d, cores=%d)\n", pt.Net, pt.Batch, pt.Cores)
	fmt.Fprintf(&b, "%-5s | %-26s | %12s\n", "Index", "Layer", "Fwd µs")
	for _, l := range pt.Layers {
		fmt.Fprintf(&b, "%-5d | %-26s | %12s\n", l.Index, l.Key, toMicro(l.Fwd))
	}
	fmt.Fprintf(&b, "Params: %d | Artifact: %d bytes | Apply: %s µs | Program: %s µs\n",
		pt.Params, pt.Bytes, toMicro(pt.Apply), toMicro(pt.Program))
	_, err := io.WriteString(w, b.String())
	return err
}

// CSVHeader names the columns WriteCSV fills.
var CSVHeader = []string{"net", "batch", "cores", "params", "bytes", "kind", "index", "layer", "fwd_us"}

// WriteCSVHeader writes CSVHeader and flushes w.
func WriteCSVHeader(w *csv.Writer) error {
	if err := w.Write(CSVHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	w.Flush()
	return w.Error()
}

// WriteCSV writes one row per layer plus one row for each whole-network
// form, then flushes w.
func WriteCSV(w *csv.Writer, pt Point) error {
	prefix := []string{pt.Net, strconv.Itoa(pt.Batch), strconv.Itoa(pt.Cores), strconv.Itoa(pt.Params), strconv.Itoa(pt.Bytes)}
	row := func(kind, index, layer string, d time.Duration) []string {
		return append(append([]string(nil), prefix...), kind, index, layer, toMicro(d))
	}
	records := make([][]string, 0, len(pt.Layers)+2)
	for _, l := range pt.Layers {
		records = append(records, row("layer", strconv.Itoa(l.Index), l.Key, l.Fwd))
	}
	records = append(records, row("apply", "", "", pt.Apply), row("program", "", "", pt.Program))
	for _, r := range records {
		if err := w.Write(r); err != nil {
			return fmt.Errorf("writing csv: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
