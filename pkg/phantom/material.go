package phantom

// Material describes what a cell is made of. Density is in g/cm³.
type Material struct {
	Name    string  `json:"name"`
	Density float64 `json:"density"`
}

var (
	// Polyethylene is the block material.
	Polyethylene = Material{Name: "polyethylene", Density: 0.92}
	// Aluminium is the connector material.
	Aluminium = Material{Name: "aluminium", Density: 2.699}
)
