package artifact

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"

	"ballpolicy/nn"
	"ballpolicy/tensor"
)

// The container follows the safetensors layout: an 8-byte little-endian
// header length, a JSON header, then the raw tensor bytes. Parameters are
// stored as F64 so a reload reproduces them bit for bit.
const (
	metadataKey = "__metadata__"
	dtypeF64    = "F64"
	headerAlign = 8
)

// tensorInfo describes one stored tensor.
type tensorInfo struct {
	DType       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

// container is an encoded header plus the tensors it describes, ready to
// be streamed out.
type container struct {
	header []byte
	params []nn.Param
	data   int
}

// newContainer builds the header for params and metadata. Tensors are laid
// out in name order.
func newContainer(params []nn.Param, metadata map[string]string) (*container, error) {
	sorted := append([]nn.Param(nil), params...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	header := make(map[string]interface{}, len(sorted)+1)
	if len(metadata) > 0 {
		header[metadataKey] = metadata
	}
	offset := 0
	for i, p := range sorted {
		if i > 0 && sorted[i-1].Name == p.Name {
			return nil, fmt.Errorf("%w: duplicate tensor %q", ErrCompilation, p.Name)
		}
		if p.Name == metadataKey {
			return nil, fmt.Errorf("%w: tensor name %q is reserved", ErrCompilation, p.Name)
		}
		if err := p.Tensor.Validate(); err != nil {
			return nil, fmt.Errorf("%w: tensor %q: %v", ErrCompilation, p.Name, err)
		}
		size := len(p.Tensor.Data) * 8
		header[p.Name] = tensorInfo{
			DType:       dtypeF64,
			Shape:       p.Tensor.Shape,
			DataOffsets: [2]int{offset, offset + size},
		}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal header: %w", err)
	}
	// pad with spaces so the data section starts 8-byte aligned
	if rem := len(headerJSON) % headerAlign; rem != 0 {
		headerJSON = append(headerJSON, bytes.Repeat([]byte(" "), headerAlign-rem)...)
	}
	return &container{header: headerJSON, params: sorted, data: offset}, nil
}

// Size is the encoded length in bytes.
func (c *container) Size() int {
	return 8 + len(c.header) + c.data
}

// WriteTo streams the container to w without materialising the data section.
func (c *container) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriterSize(w, 1<<16)
	var word [8]byte
	binary.LittleEndian.PutUint64(word[:], uint64(len(c.header)))
	bw.Write(word[:])
	bw.Write(c.header)
	for _, p := range c.params {
		for _, v := range p.Tensor.Data {
			binary.LittleEndian.PutUint64(word[:], math.Float64bits(v))
			if _, err := bw.Write(word[:]); err != nil {
				return 0, err
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	return int64(c.Size()), nil
}

// encode serialises params and metadata into memory.
func encode(params []nn.Param, metadata map[string]string) ([]byte, error) {
	c, err := newContainer(params, metadata)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(c.Size())
	if _, err := c.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decode parses a container into named tensors and its metadata.
func decode(raw []byte) (map[string]*tensor.Tensor, map[string]string, error) {
	if len(raw) < 8 {
		return nil, nil, fmt.Errorf("%w: file is %d bytes, too short for a header", ErrCorrupt, len(raw))
	}
	headerSize := binary.LittleEndian.Uint64(raw[0:8])
	if headerSize > uint64(len(raw)-8) {
		return nil, nil, fmt.Errorf("%w: header length %d exceeds file size %d", ErrCorrupt, headerSize, len(raw))
	}
	headerJSON := raw[8 : 8+headerSize]
	data := raw[8+headerSize:]

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &entries); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to parse header: %v", ErrCorrupt, err)
	}

	var metadata map[string]string
	if m, ok := entries[metadataKey]; ok {
		if err := json.Unmarshal(m, &metadata); err != nil {
			return nil, nil, fmt.Errorf("%w: failed to parse metadata: %v", ErrCorrupt, err)
		}
		delete(entries, metadataKey)
	}

	tensors := make(map[string]*tensor.Tensor, len(entries))
	for name, msg := range entries {
		var info tensorInfo
		if err := json.Unmarshal(msg, &info); err != nil {
			return nil, nil, fmt.Errorf("%w: tensor %q: %v", ErrCorrupt, name, err)
		}
		if info.DType != dtypeF64 {
			return nil, nil, fmt.Errorf("%w: tensor %q has unsupported dtype %s", ErrCorrupt, name, info.DType)
		}
		// the element count may not exceed what the data section can hold
		limit := len(data) / 8
		n := 1
		for _, d := range info.Shape {
			if d < 0 || (d > 0 && n > limit/d) {
				return nil, nil, fmt.Errorf("%w: tensor %q has shape %v for %d data bytes", ErrCorrupt, name, info.Shape, len(data))
			}
			n *= d
		}
		begin, end := info.DataOffsets[0], info.DataOffsets[1]
		if begin < 0 || end < begin || end > len(data) || end-begin != n*8 {
			return nil, nil, fmt.Errorf("%w: tensor %q has offsets [%d, %d] for %d elements in %d data bytes", ErrCorrupt, name, begin, end, n, len(data))
		}
		t := tensor.New(info.Shape...)
		for i := range t.Data {
			t.Data[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[begin+i*8:]))
		}
		tensors[name] = t
	}
	return tensors, metadata, nil
}
