// Package kernel defines the abstract geometry kernel interface.
// Implementations provide the solid modeling, boolean composition and
// meshing services that phantom blocks and connectors are built from.
// The core never mutates a Solid; every operation returns a new one.
package kernel

import (
	"github.com/chazu/blockphantom/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Box returns an axis-aligned box of the given size centered on the origin.
	// It is the intersection of the six half-spaces at ±size/2.
	Box(x, y, z float64) Solid
	// Cylinder returns a capped cylinder starting at base and running along
	// axis; the length of axis is the cylinder height.
	Cylinder(base, axis r3.Vec, radius float64) (Solid, error)

	// Boolean operations
	Union(solids ...Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transform returns s moved by the rigid placement x.
	Transform(s Solid, x geom.Transform) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}

// Evaluator is implemented by solids that can report a signed distance:
// negative inside the material, positive outside.
type Evaluator interface {
	Evaluate(p r3.Vec) float64
}
