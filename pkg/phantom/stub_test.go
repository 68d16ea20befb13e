package phantom

import (
	"sync"

	"github.com/chazu/blockphantom/pkg/geom"
	"github.com/chazu/blockphantom/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// stubSolid is a bounding box only.
type stubSolid struct {
	min, max [3]float64
}

func (s *stubSolid) BoundingBox() (min, max [3]float64) { return s.min, s.max }

type cylinderCall struct {
	base, axis r3.Vec
	radius     float64
}

// stubKernel records calls instead of building geometry.
type stubKernel struct {
	mu        sync.Mutex
	cylinders []cylinderCall
	boxes     int
	toMesh    int
}

var _ kernel.Kernel = (*stubKernel)(nil)

func (k *stubKernel) Box(x, y, z float64) kernel.Solid {
	k.mu.Lock()
	k.boxes++
	k.mu.Unlock()
	return &stubSolid{min: [3]float64{-x / 2, -y / 2, -z / 2}, max: [3]float64{x / 2, y / 2, z / 2}}
}

func (k *stubKernel) Cylinder(base, axis r3.Vec, radius float64) (kernel.Solid, error) {
	k.mu.Lock()
	k.cylinders = append(k.cylinders, cylinderCall{base, axis, radius})
	k.mu.Unlock()
	return &stubSolid{}, nil
}

func (k *stubKernel) Union(solids ...kernel.Solid) kernel.Solid { return &stubSolid{} }
func (k *stubKernel) Difference(a, b kernel.Solid) kernel.Solid { return a }
func (k *stubKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return a
}
func (k *stubKernel) Transform(s kernel.Solid, x geom.Transform) kernel.Solid { return s }

// ToMesh returns a single triangle with one vertex at the local origin.
func (k *stubKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	k.mu.Lock()
	k.toMesh++
	k.mu.Unlock()
	return &kernel.Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Normals:  []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices:  []uint32{0, 1, 2},
	}, nil
}
