package export

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/chazu/blockphantom/pkg/kernel"
)

const (
	coreNamespace = "http://schemas.microsoft.com/3dmanufacturing/core/2015/02"

	contentTypesXML = `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
	<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
	<Default Extension="model" ContentType="application/vnd.ms-package.3dmanufacturing-3dmodel+xml"/>
</Types>`

	relsXML = `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
	<Relationship Id="rel0" Target="/3D/3dmodel.model" Type="http://schemas.microsoft.com/3dmanufacturing/2013/01/3dmodel"/>
</Relationships>`
)

type model struct {
	XMLName xml.Name `xml:"http://schemas.microsoft.com/3dmanufacturing/core/2015/02 model"`
	Unit    string   `xml:"unit,attr"`
	Objects []object `xml:"resources>object"`
	Items   []item   `xml:"build>item"`
}

type object struct {
	ID        int        `xml:"id,attr"`
	Name      string     `xml:"name,attr,omitempty"`
	Type      string     `xml:"type,attr"`
	Vertices  []vertex   `xml:"mesh>vertices>vertex"`
	Triangles []triangle `xml:"mesh>triangles>triangle"`
}

type vertex struct {
	X float32 `xml:"x,attr"`
	Y float32 `xml:"y,attr"`
	Z float32 `xml:"z,attr"`
}

type triangle struct {
	V1 int `xml:"v1,attr"`
	V2 int `xml:"v2,attr"`
	V3 int `xml:"v3,attr"`
}

type item struct {
	ObjectID int `xml:"objectid,attr"`
}

// Write3MF writes a 3MF package with one object per mesh, named after the
// part. Coincident vertices within a mesh are merged. Units are
// centimetres, the unit the block catalog is measured in.
func Write3MF(w io.Writer, meshes []*kernel.Mesh) error {
	m := model{Unit: "centimeter"}
	for i, mesh := range meshes {
		id := i + 1
		m.Objects = append(m.Objects, meshObject(id, mesh))
		m.Items = append(m.Items, item{ObjectID: id})
	}

	zw := zip.NewWriter(w)
	if err := writeEntry(zw, "[Content_Types].xml", func(ew io.Writer) error {
		_, err := io.WriteString(ew, contentTypesXML)
		return err
	}); err != nil {
		return err
	}
	if err := writeEntry(zw, "_rels/.rels", func(ew io.Writer) error {
		_, err := io.WriteString(ew, relsXML)
		return err
	}); err != nil {
		return err
	}
	if err := writeEntry(zw, "3D/3dmodel.model", func(ew io.Writer) error {
		if _, err := io.WriteString(ew, xml.Header); err != nil {
			return err
		}
		enc := xml.NewEncoder(ew)
		enc.Indent("", "\t")
		return enc.Encode(m)
	}); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("export: closing 3MF package: %w", err)
	}
	return nil
}

func writeEntry(zw *zip.Writer, name string, write func(io.Writer) error) error {
	ew, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("export: creating %s: %w", name, err)
	}
	if err := write(ew); err != nil {
		return fmt.Errorf("export: writing %s: %w", name, err)
	}
	return nil
}

func meshObject(id int, mesh *kernel.Mesh) object {
	obj := object{ID: id, Name: mesh.PartName, Type: "model"}
	index := make(map[vertex]int)
	lookup := func(i uint32) int {
		p := vec(mesh.Vertices, i)
		v := vertex{X: p[0], Y: p[1], Z: p[2]}
		if idx, ok := index[v]; ok {
			return idx
		}
		index[v] = len(obj.Vertices)
		obj.Vertices = append(obj.Vertices, v)
		return index[v]
	}
	for t := 0; t+2 < len(mesh.Indices); t += 3 {
		tri := triangle{
			V1: lookup(mesh.Indices[t]),
			V2: lookup(mesh.Indices[t+1]),
			V3: lookup(mesh.Indices[t+2]),
		}
		if tri.V1 == tri.V2 || tri.V2 == tri.V3 || tri.V1 == tri.V3 {
			continue
		}
		obj.Triangles = append(obj.Triangles, tri)
	}
	return obj
}
