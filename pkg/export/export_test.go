package export

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/chazu/blockphantom/pkg/kernel"
)

// quad is a unit square in the XY plane as two triangles with unshared
// vertices, the way the marching cubes kernel emits them.
func quad(name string) *kernel.Mesh {
	return &kernel.Mesh{
		Vertices: []float32{
			0, 0, 0, 1, 0, 0, 1, 1, 0,
			0, 0, 0, 1, 1, 0, 0, 1, 0,
		},
		Normals: []float32{
			0, 0, 1, 0, 0, 1, 0, 0, 1,
			0, 0, 1, 0, 0, 1, 0, 0, 1,
		},
		Indices:  []uint32{0, 1, 2, 3, 4, 5},
		PartName: name,
	}
}

func TestWriteSTL(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSTL(&buf, "phantom", []*kernel.Mesh{quad("a"), quad("b")}); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	if want := 84 + 4*50; len(data) != want {
		t.Fatalf("STL size = %d, want %d", len(data), want)
	}
	if !strings.HasPrefix(string(data[:80]), "binary STL phantom") {
		t.Errorf("header = %q", data[:80])
	}
	if n := binary.LittleEndian.Uint32(data[80:84]); n != 4 {
		t.Errorf("triangle count = %d, want 4", n)
	}

	// Second facet of the first mesh: normal +Z, then (0,0,0) (1,1,0) (0,1,0).
	facet := data[84+50 : 84+100]
	floats := make([]float32, 12)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(facet[i*4:]))
	}
	want := []float32{0, 0, 1, 0, 0, 0, 1, 1, 0, 0, 1, 0}
	for i := range want {
		if floats[i] != want[i] {
			t.Fatalf("facet = %v, want %v", floats, want)
		}
	}
}

func TestWriteSTLEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSTL(&buf, "", nil); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 84 {
		t.Errorf("empty STL size = %d, want 84", buf.Len())
	}
}

func readEntry(t *testing.T, zr *zip.Reader, name string) []byte {
	t.Helper()
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatal(err)
		}
		return data
	}
	t.Fatalf("package has no %s", name)
	return nil
}

func TestWrite3MF(t *testing.T) {
	var buf bytes.Buffer
	if err := Write3MF(&buf, []*kernel.Mesh{quad("crotch"), quad("left-leg")}); err != nil {
		t.Fatal(err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("not a zip package: %v", err)
	}
	readEntry(t, zr, "[Content_Types].xml")
	readEntry(t, zr, "_rels/.rels")
	raw := readEntry(t, zr, "3D/3dmodel.model")
	if !strings.Contains(string(raw), `<model xmlns="`+coreNamespace+`"`) {
		t.Errorf("model lacks the 3MF core namespace:\n%.200s", raw)
	}

	var got model
	if err := xml.Unmarshal(raw, &got); err != nil {
		t.Fatalf("model XML: %v", err)
	}
	if got.Unit != "centimeter" {
		t.Errorf("unit = %q", got.Unit)
	}
	if len(got.Objects) != 2 || len(got.Items) != 2 {
		t.Fatalf("objects=%d items=%d, want 2 each", len(got.Objects), len(got.Items))
	}
	obj := got.Objects[1]
	if obj.ID != 2 || obj.Name != "left-leg" {
		t.Errorf("object = id %d name %q", obj.ID, obj.Name)
	}
	if len(obj.Vertices) != 4 {
		t.Errorf("vertices = %d, want 4 after merging", len(obj.Vertices))
	}
	want := []triangle{{0, 1, 2}, {0, 2, 3}}
	if len(obj.Triangles) != len(want) {
		t.Fatalf("triangles = %v, want %v", obj.Triangles, want)
	}
	for i := range want {
		if obj.Triangles[i] != want[i] {
			t.Errorf("triangle %d = %v, want %v", i, obj.Triangles[i], want[i])
		}
	}
	if got.Items[0].ObjectID != 1 {
		t.Errorf("item 0 references object %d", got.Items[0].ObjectID)
	}
}

func TestWrite3MFDropsDegenerateTriangles(t *testing.T) {
	m := &kernel.Mesh{
		Vertices: []float32{0, 0, 0, 0, 0, 0, 1, 0, 0},
		Indices:  []uint32{0, 1, 2},
	}
	obj := meshObject(1, m)
	if len(obj.Triangles) != 0 {
		t.Errorf("degenerate triangle kept: %v", obj.Triangles)
	}
}
