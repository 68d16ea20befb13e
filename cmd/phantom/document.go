package main

import (
	"encoding/json"
	"io"

	"github.com/chazu/blockphantom/pkg/engine"
	"github.com/chazu/blockphantom/pkg/graph"
	"github.com/chazu/blockphantom/pkg/kernel"
)

// colorPalette assigns distinct colors to parts, cycling when an assembly
// has more parts than colors.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// meshData is one part as written to a JSON document.
type meshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Kind     string    `json:"kind"`
	Material string    `json:"material"`
	Color    string    `json:"color"`
}

type findingData struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Node     string `json:"node,omitempty"`
	Message  string `json:"message"`
}

// document is the JSON form of a built assembly.
type document struct {
	Meshes   []meshData    `json:"meshes"`
	Nodes    []*graph.Node `json:"nodes"`
	Joins    []graph.Join  `json:"joins"`
	Findings []findingData `json:"findings"`
}

func newDocument(res engine.EvalResult, meshes []*kernel.Mesh) document {
	doc := document{
		Meshes:   make([]meshData, 0, len(meshes)),
		Nodes:    res.Assembly.Nodes(),
		Joins:    res.Assembly.Joins(),
		Findings: make([]findingData, 0, len(res.Findings)),
	}
	if doc.Joins == nil {
		doc.Joins = []graph.Join{}
	}
	for i, m := range meshes {
		md := meshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: m.PartName,
			Color:    colorPalette[i%len(colorPalette)],
		}
		if n := partNode(res.Assembly, m.PartName); n != nil {
			md.Kind = n.Kind.String()
			switch n.Kind {
			case graph.NodeBlock:
				md.Material = n.Block.Material().Name
			case graph.NodeConnector:
				md.Material = n.Connector.Material().Name
			}
		}
		doc.Meshes = append(doc.Meshes, md)
	}
	for _, f := range res.Findings {
		doc.Findings = append(doc.Findings, findingData{
			Severity: f.Severity.String(),
			Code:     f.Code,
			Node:     string(f.NodeID),
			Message:  f.Message,
		})
	}
	return doc
}

// partNode finds the node a mesh was named after: its name, or its id when
// the node is unnamed.
func partNode(a *graph.Assembly, label string) *graph.Node {
	if n := a.Lookup(label); n != nil {
		return n
	}
	return a.Get(graph.NodeID(label))
}

func writeDocument(w io.Writer, doc document) error {
	return json.NewEncoder(w).Encode(doc)
}
