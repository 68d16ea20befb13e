// Package export writes assembly meshes to files for slicers and viewers.
package export

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/chazu/blockphantom/pkg/kernel"
)

// stlTriangle is the on-disk record of a binary STL facet.
type stlTriangle struct {
	Normal     [3]float32
	V1, V2, V3 [3]float32
	Attribute  uint16
}

// WriteSTL writes all meshes as one binary STL solid. Facet normals come
// from the first vertex normal of each triangle.
func WriteSTL(w io.Writer, name string, meshes []*kernel.Mesh) error {
	var count uint32
	for _, m := range meshes {
		count += uint32(m.TriangleCount())
	}

	bw := bufio.NewWriter(w)
	var header [80]byte
	copy(header[:], "binary STL "+name)
	if _, err := bw.Write(header[:]); err != nil {
		return fmt.Errorf("export: writing STL header: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, count); err != nil {
		return fmt.Errorf("export: writing STL triangle count: %w", err)
	}

	for _, m := range meshes {
		for t := 0; t+2 < len(m.Indices); t += 3 {
			var tri stlTriangle
			tri.Normal = vec(m.Normals, m.Indices[t])
			tri.V1 = vec(m.Vertices, m.Indices[t])
			tri.V2 = vec(m.Vertices, m.Indices[t+1])
			tri.V3 = vec(m.Vertices, m.Indices[t+2])
			if err := binary.Write(bw, binary.LittleEndian, &tri); err != nil {
				return fmt.Errorf("export: writing STL facet of %s: %w", m.PartName, err)
			}
		}
	}
	return bw.Flush()
}

func vec(flat []float32, i uint32) [3]float32 {
	j := int(i) * 3
	if j+2 >= len(flat) {
		return [3]float32{}
	}
	return [3]float32{flat[j], flat[j+1], flat[j+2]}
}
