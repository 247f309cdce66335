package bench

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{"game", "small", "tiny"}, Names())
	net, err := Lookup("small")
	require.NoError(t, err)
	assert.Equal(t, 4, net.Config.NLayers)

	_, err = Lookup("huge")
	assert.Error(t, err)
}

func TestRunPoint(t *testing.T) {
	pt, err := RunPoint(BuildTiny(), 3, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "tiny", pt.Net)
	assert.Equal(t, 1, pt.Cores)
	require.Len(t, pt.Layers, 2)
	assert.Equal(t, "ResidualBlock(8,32)", pt.Layers[0].Key)
	assert.Equal(t, "Linear(32,4)", pt.Layers[1].Key)
	// 8*32+32 + 32*32+32 + 8*32+32 + 32*4+4
	assert.Equal(t, 1764, pt.Params)

	var table, out bytes.Buffer
	require.NoError(t, WriteTable(&table, pt))
	assert.Contains(t, table.String(), "Linear(32,4)")

	w := csv.NewWriter(&out)
	require.NoError(t, WriteCSVHeader(w))
	require.NoError(t, WriteCSV(w, pt))

	records, err := csv.NewReader(&out).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, CSVHeader, records[0])
	assert.Equal(t, []string{"tiny", "3", "1", "1764"}, records[1][:4])
	assert.Equal(t, "layer", records[1][5])
	assert.Equal(t, "ResidualBlock(8,32)", records[1][7])
	assert.Equal(t, "Linear(32,4)", records[2][7])
	assert.Equal(t, "apply", records[3][5])
	assert.Equal(t, "program", records[4][5])
}

func TestRunPointWidths(t *testing.T) {
	net := BuildWidths([]int{6, 12, 12, 3})
	pt, err := RunPoint(net, 2, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "mlp[6 12 12 3]", pt.Net)
	require.Len(t, pt.Layers, 3)
	assert.Equal(t, "ResidualBlock(6,12)", pt.Layers[0].Key)
	assert.Equal(t, "ResidualBlock(12,12)", pt.Layers[1].Key)
	assert.Equal(t, "Linear(12,3)", pt.Layers[2].Key)

	_, err = RunPoint(BuildWidths([]int{6}), 1, 0, 1)
	assert.Error(t, err)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestWriteErrorsSurface(t *testing.T) {
	pt := Point{Net: "x", Layers: []LayerTime{{Index: 0, Key: "Linear(1,1)"}}}
	assert.Error(t, WriteTable(failingWriter{}, pt))
	w := csv.NewWriter(failingWriter{})
	assert.Error(t, WriteCSVHeader(w))
	assert.Error(t, WriteCSV(csv.NewWriter(failingWriter{}), pt))
}
