package graph

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"unsafe"

	"github.com/dsnet/compress/bzip2"

	"github.com/azybler/campusnav/pkg/geo"
)

const (
	magicBytes   = "CAMPUSNV"
	version      = uint32(1)
	maxNodes     = 10_000_000
	maxEdges     = 50_000_000
	maxStringLen = 1 << 16
)

// ErrCorruptCache is returned when a graph cache fails validation.
var ErrCorruptCache = errors.New("corrupt graph cache")

// fileHeader is stored uncompressed so the file type can be identified
// without decompressing. Everything after it is a bzip2 stream.
type fileHeader struct {
	Magic   [8]byte
	Version uint32
}

type countsHeader struct {
	NumNodes uint32
	NumEdges uint32
}

// WriteBinary serializes g to path. The file is written to a temporary
// sibling and renamed into place, so readers never see a partial cache.
func WriteBinary(path string, g *Graph) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // no-op after a successful rename
	}()

	hdr := fileHeader{Version: version}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(f, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	zw, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return fmt.Errorf("bzip2 writer: %w", err)
	}
	bw := bufio.NewWriter(zw)
	w := &crc32Writer{w: bw, hash: crc32.NewIEEE()}

	if err := writeGraph(w, g); err != nil {
		return err
	}

	// CRC32 trailer, inside the compressed stream.
	if err := binary.Write(bw, binary.LittleEndian, w.hash.Sum32()); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close bzip2: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func writeGraph(w io.Writer, g *Graph) error {
	n, m := len(g.nodes), len(g.edges)
	if err := binary.Write(w, binary.LittleEndian, countsHeader{NumNodes: uint32(n), NumEdges: uint32(m)}); err != nil {
		return fmt.Errorf("write counts: %w", err)
	}

	ids := make([]string, n)
	names := make([]string, n)
	landmarks := make([]string, n)
	lats := make([]float64, n)
	lons := make([]float64, n)
	for i, node := range g.nodes {
		ids[i], names[i], landmarks[i] = string(node.ID), node.Name, node.Landmark
		lats[i], lons[i] = node.Lat, node.Lon
	}

	weights := make([]float64, m)
	crowd := make([]float64, m)
	complexity := make([]float64, m)
	blind := make([]byte, m)
	streets := make([]string, m)
	highways := make([]string, m)
	tips := make([]string, m)
	for i, e := range g.edges {
		weights[i] = e.BaseWeight
		crowd[i] = e.Attrs.CrowdLevel
		complexity[i] = e.Attrs.IntersectionComplexity
		if e.Attrs.BlindSpot {
			blind[i] = 1
		}
		streets[i], highways[i], tips[i] = e.Street, e.Highway, e.Tip
	}

	steps := []struct {
		name  string
		write func() error
	}{
		{"NodeID", func() error { return writeStrings(w, ids) }},
		{"NodeLat", func() error { return writeFloat64Slice(w, lats) }},
		{"NodeLon", func() error { return writeFloat64Slice(w, lons) }},
		{"NodeName", func() error { return writeStrings(w, names) }},
		{"NodeLandmark", func() error { return writeStrings(w, landmarks) }},
		{"FirstOut", func() error { return writeUint32Slice(w, g.firstOut) }},
		{"Head", func() error { return writeUint32Slice(w, g.head) }},
		{"BaseWeight", func() error { return writeFloat64Slice(w, weights) }},
		{"CrowdLevel", func() error { return writeFloat64Slice(w, crowd) }},
		{"Complexity", func() error { return writeFloat64Slice(w, complexity) }},
		{"BlindSpot", func() error { _, err := w.Write(blind); return err }},
		{"Street", func() error { return writeStrings(w, streets) }},
		{"Highway", func() error { return writeStrings(w, highways) }},
		{"Tip", func() error { return writeStrings(w, tips) }},
	}
	for _, s := range steps {
		if err := s.write(); err != nil {
			return fmt.Errorf("write %s: %w", s.name, err)
		}
	}
	return nil
}

// ReadBinary deserializes a Graph written by WriteBinary.
func ReadBinary(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var hdr fileHeader
	if err := binary.Read(br, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("%w: invalid magic bytes %q", ErrCorruptCache, hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptCache, hdr.Version)
	}

	zr, err := bzip2.NewReader(br, nil)
	if err != nil {
		return nil, fmt.Errorf("bzip2 reader: %w", err)
	}
	defer zr.Close()

	r := &crc32Reader{r: zr, hash: crc32.NewIEEE()}
	g, err := readGraph(r)
	if err != nil {
		return nil, err
	}

	expectedCRC := r.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(zr, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("%w: CRC32 mismatch: stored=%08x computed=%08x", ErrCorruptCache, storedCRC, expectedCRC)
	}
	return g, nil
}

func readGraph(r io.Reader) (*Graph, error) {
	var counts countsHeader
	if err := binary.Read(r, binary.LittleEndian, &counts); err != nil {
		return nil, fmt.Errorf("read counts: %w", err)
	}
	if counts.NumNodes > maxNodes {
		return nil, fmt.Errorf("%w: NumNodes %d exceeds limit %d", ErrCorruptCache, counts.NumNodes, maxNodes)
	}
	if counts.NumEdges > maxEdges {
		return nil, fmt.Errorf("%w: NumEdges %d exceeds limit %d", ErrCorruptCache, counts.NumEdges, maxEdges)
	}
	n, m := int(counts.NumNodes), int(counts.NumEdges)

	var (
		ids, names, landmarks, streets, highways, tips []string
		lats, lons, weights, crowd, complexity         []float64
		firstOut, head                                 []uint32
		blind                                          = make([]byte, m)
	)
	steps := []struct {
		name string
		read func() error
	}{
		{"NodeID", func() (err error) { ids, err = readStrings(r, n); return }},
		{"NodeLat", func() (err error) { lats, err = readFloat64Slice(r, n); return }},
		{"NodeLon", func() (err error) { lons, err = readFloat64Slice(r, n); return }},
		{"NodeName", func() (err error) { names, err = readStrings(r, n); return }},
		{"NodeLandmark", func() (err error) { landmarks, err = readStrings(r, n); return }},
		{"FirstOut", func() (err error) { firstOut, err = readUint32Slice(r, n+1); return }},
		{"Head", func() (err error) { head, err = readUint32Slice(r, m); return }},
		{"BaseWeight", func() (err error) { weights, err = readFloat64Slice(r, m); return }},
		{"CrowdLevel", func() (err error) { crowd, err = readFloat64Slice(r, m); return }},
		{"Complexity", func() (err error) { complexity, err = readFloat64Slice(r, m); return }},
		{"BlindSpot", func() error { _, err := io.ReadFull(r, blind); return err }},
		{"Street", func() (err error) { streets, err = readStrings(r, m); return }},
		{"Highway", func() (err error) { highways, err = readStrings(r, m); return }},
		{"Tip", func() (err error) { tips, err = readStrings(r, m); return }},
	}
	for _, s := range steps {
		if err := s.read(); err != nil {
			return nil, fmt.Errorf("read %s: %w", s.name, err)
		}
	}

	if err := validateCSR(firstOut, head, counts.NumNodes); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptCache, err)
	}

	g := &Graph{
		nodes:    make([]Node, n),
		index:    make(map[NodeID]uint32, n),
		firstOut: firstOut,
		head:     head,
		edges:    make([]Edge, m),
		bounds:   geo.EmptyBounds(),
	}
	for i := range n {
		id := NodeID(ids[i])
		if _, dup := g.index[id]; dup {
			return nil, fmt.Errorf("%w: %w: %q", ErrCorruptCache, ErrDuplicateNode, id)
		}
		g.index[id] = uint32(i)
		g.nodes[i] = Node{ID: id, Lat: lats[i], Lon: lons[i], Name: names[i], Landmark: landmarks[i]}
		g.bounds = g.bounds.Extend(lats[i], lons[i])
	}
	for u := range uint32(n) {
		for e := firstOut[u]; e < firstOut[u+1]; e++ {
			if err := CheckWeight(weights[e]); err != nil {
				return nil, fmt.Errorf("%w: edge %d: %w", ErrCorruptCache, e, err)
			}
			g.edges[e] = Edge{
				From:       g.nodes[u].ID,
				To:         g.nodes[head[e]].ID,
				BaseWeight: weights[e],
				Attrs: Attributes{
					CrowdLevel:             crowd[e],
					BlindSpot:              blind[e] != 0,
					IntersectionComplexity: complexity[e],
				},
				Street:  streets[e],
				Highway: highways[e],
				Tip:     tips[e],
			}
		}
	}
	return g, nil
}

// validateCSR checks CSR invariants.
func validateCSR(firstOut, head []uint32, numNodes uint32) error {
	if uint32(len(firstOut)) != numNodes+1 {
		return fmt.Errorf("FirstOut length %d != NumNodes+1 %d", len(firstOut), numNodes+1)
	}
	if firstOut[0] != 0 {
		return fmt.Errorf("FirstOut[0] = %d, want 0", firstOut[0])
	}
	numEdges := firstOut[numNodes]
	if uint32(len(head)) != numEdges {
		return fmt.Errorf("Head length %d != FirstOut[NumNodes] %d", len(head), numEdges)
	}
	for i := uint32(1); i <= numNodes; i++ {
		if firstOut[i] < firstOut[i-1] {
			return fmt.Errorf("FirstOut not monotonic at %d: %d < %d", i, firstOut[i], firstOut[i-1])
		}
	}
	for i, h := range head {
		if h >= numNodes {
			return fmt.Errorf("Head[%d]=%d >= NumNodes=%d", i, h, numNodes)
		}
	}
	return nil
}

func writeStrings(w io.Writer, ss []string) error {
	var lenBuf [4]byte
	for _, s := range ss {
		if len(s) > maxStringLen {
			return fmt.Errorf("string of %d bytes exceeds limit %d", len(s), maxStringLen)
		}
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
		if _, err := w.Write(lenBuf[:]); err != nil {
			return err
		}
		if _, err := io.WriteString(w, s); err != nil {
			return err
		}
	}
	return nil
}

func readStrings(r io.Reader, n int) ([]string, error) {
	out := make([]string, n)
	var lenBuf [4]byte
	for i := range out {
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return nil, err
		}
		l := binary.LittleEndian.Uint32(lenBuf[:])
		if l > maxStringLen {
			return nil, fmt.Errorf("%w: string length %d exceeds limit %d", ErrCorruptCache, l, maxStringLen)
		}
		if l == 0 {
			continue
		}
		buf := make([]byte, l)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		out[i] = string(buf)
	}
	return out, nil
}

// Zero-copy I/O helpers using unsafe.Slice.

func writeUint32Slice(w io.Writer, s []uint32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeFloat64Slice(w io.Writer, s []float64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func readUint32Slice(r io.Reader, n int) ([]uint32, error) {
	s := make([]uint32, n)
	if n == 0 {
		return s, nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readFloat64Slice(r io.Reader, n int) ([]float64, error) {
	s := make([]float64, n)
	if n == 0 {
		return s, nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

// CRC32 wrapping writers/readers.

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
