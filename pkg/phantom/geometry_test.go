package phantom

import (
	"errors"
	"sync"
	"testing"

	"github.com/chazu/blockphantom/pkg/geom"
	"github.com/chazu/blockphantom/pkg/kernel"
	"github.com/chazu/blockphantom/pkg/kernel/sdfx"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestGeometryWithoutKernel(t *testing.T) {
	kit := newTestKit()
	b := mustBlock(t, kit, Full, r3.Vec{}, geom.Steps{})
	if _, err := b.Solid(); !errors.Is(err, ErrNoKernel) {
		t.Errorf("Solid() error = %v, want ErrNoKernel", err)
	}
	if _, err := b.Mesh(); !errors.Is(err, ErrNoKernel) {
		t.Errorf("Mesh() error = %v, want ErrNoKernel", err)
	}
	_, c, _ := b.AddConnector(4)
	if _, err := c.Solid(); !errors.Is(err, ErrNoKernel) {
		t.Errorf("connector Solid() error = %v, want ErrNoKernel", err)
	}
}

func TestBlockSolidIsBuiltOncePerType(t *testing.T) {
	k := &stubKernel{}
	kit := NewKit(k)
	a := mustBlock(t, kit, Full, r3.Vec{}, geom.Steps{})
	b := mustBlock(t, kit, Full, r3.Vec{X: 20}, geom.Steps{1, 0, 0})
	h := mustBlock(t, kit, Half, r3.Vec{}, geom.Steps{})

	for _, blk := range []*Block{a, b, a, h} {
		if _, err := blk.Solid(); err != nil {
			t.Fatal(err)
		}
	}
	if k.boxes != 2 {
		t.Errorf("built %d boxes, want 2 (one per type)", k.boxes)
	}
	if want := 24 + 17; len(k.cylinders) != want {
		t.Errorf("built %d hole cylinders, want %d", len(k.cylinders), want)
	}
}

func TestBlockMeshUsesCache(t *testing.T) {
	k := &stubKernel{}
	kit := NewKit(k)
	a := mustBlock(t, kit, Full, r3.Vec{}, geom.Steps{})
	b := mustBlock(t, kit, Full, r3.Vec{X: 5, Y: 6, Z: 7}, geom.Steps{0, 0, 1})

	ma, err := a.Mesh()
	if err != nil {
		t.Fatal(err)
	}
	mb, err := b.Mesh()
	if err != nil {
		t.Fatal(err)
	}
	if k.toMesh != 1 {
		t.Errorf("ToMesh called %d times, want 1", k.toMesh)
	}
	if kit.MeshCache().Misses() != 1 {
		t.Errorf("cache misses = %d, want 1", kit.MeshCache().Misses())
	}

	// Local vertex (1, 0, 0) under a quarter turn about Z then (5, 6, 7).
	got := r3.Vec{X: float64(mb.Vertices[3]), Y: float64(mb.Vertices[4]), Z: float64(mb.Vertices[5])}
	if want := (r3.Vec{X: 5, Y: 7, Z: 7}); !geom.VecApproxEqual(got, want, 1e-6) {
		t.Errorf("vertex = %v, want %v", got, want)
	}
	if ma.Vertices[3] != 1 {
		t.Errorf("unmoved block vertex = %v, want 1", ma.Vertices[3])
	}
}

func TestConcurrentMeshing(t *testing.T) {
	k := &stubKernel{}
	kit := NewKit(k)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := kit.NewBlock(Full, r3.Vec{X: float64(i)}, geom.Steps{})
			if err != nil {
				t.Error(err)
				return
			}
			if _, err := b.Mesh(); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()
	if kit.MeshCache().Len() != 1 {
		t.Errorf("cache holds %d meshes, want 1", kit.MeshCache().Len())
	}
}

func TestBlockSolidSdfx(t *testing.T) {
	kit := NewKit(sdfx.New(sdfx.WithMeshCells(40)))
	b := mustBlock(t, kit, Full, r3.Vec{X: 20}, geom.Steps{0, 0, 1})

	s, err := b.Solid()
	if err != nil {
		t.Fatal(err)
	}
	ev, ok := s.(kernel.Evaluator)
	if !ok {
		t.Fatal("sdfx solid does not implement kernel.Evaluator")
	}

	if d := ev.Evaluate(r3.Vec{X: 20}); d >= 0 {
		t.Errorf("block center evaluates to %f, want inside", d)
	}
	for _, id := range []int{0, 4, 13, 22} {
		h := mustHole(t, b, id)
		inHole := r3.Sub(h.Position, r3.Scale(HoleDepth/2, h.Axis()))
		if d := ev.Evaluate(inHole); d <= 0 {
			t.Errorf("hole %d interior %v evaluates to %f, want outside", id, inHole, d)
		}
	}

	min, max := s.BoundingBox()
	box := b.BoundingBox()
	got := r3.Box{Min: r3.Vec{X: min[0], Y: min[1], Z: min[2]}, Max: r3.Vec{X: max[0], Y: max[1], Z: max[2]}}
	if !geom.VecApproxEqual(got.Min, box.Min, 0.01) || !geom.VecApproxEqual(got.Max, box.Max, 0.01) {
		t.Errorf("solid bounds %+v, want %+v", got, box)
	}
}

func TestBlockMeshSdfx(t *testing.T) {
	kit := NewKit(sdfx.New(sdfx.WithMeshCells(40)))
	b := mustBlock(t, kit, Half, r3.Vec{Y: -30}, geom.Steps{1, 0, 0})

	m, err := b.Mesh()
	if err != nil {
		t.Fatal(err)
	}
	if m.TriangleCount() == 0 {
		t.Fatal("empty mesh")
	}
	got, want := m.Bounds(), b.BoundingBox()
	if !geom.VecApproxEqual(got.Min, want.Min, 0.5) || !geom.VecApproxEqual(got.Max, want.Max, 0.5) {
		t.Errorf("mesh bounds %+v, want about %+v", got, want)
	}
}

func TestConnectorSolidSdfx(t *testing.T) {
	kit := NewKit(sdfx.New())
	a := mustBlock(t, kit, Full, r3.Vec{}, geom.Steps{})
	m, err := a.Connect(7, Full, 4, true)
	if err != nil {
		t.Fatal(err)
	}
	s, err := m.Connector.Solid()
	if err != nil {
		t.Fatal(err)
	}
	ev := s.(kernel.Evaluator)
	if d := ev.Evaluate(m.Connector.Center()); d >= 0 {
		t.Errorf("connector center evaluates to %f, want inside", d)
	}
	min, max := s.BoundingBox()
	// Along +X from x = 5.5 - 0.75 to 5.5 + 0.75.
	if min[0] < 4.74 || max[0] > 6.26 || max[1]-min[1] > 0.61 {
		t.Errorf("connector bounds %v .. %v", min, max)
	}
}

func TestNewConnector(t *testing.T) {
	kit := newTestKit()
	x := geom.FromSteps(r3.Vec{X: 1}, geom.Steps{0, 1, 0})
	c, err := kit.NewConnector(x, 1.5, 0.3)
	if err != nil {
		t.Fatal(err)
	}
	if !geom.VecApproxEqual(c.Direction(), r3.Vec{X: 1}, tol) {
		t.Errorf("direction = %v, want +X", c.Direction())
	}
	if !geom.VecApproxEqual(c.Center(), r3.Vec{X: 1.75}, tol) {
		t.Errorf("center = %v", c.Center())
	}

	moved, err := c.Transform(geom.Translation(r3.Vec{Z: 2}))
	if err != nil {
		t.Fatal(err)
	}
	if !geom.VecApproxEqual(moved.Position(), r3.Vec{X: 1, Z: 2}, tol) {
		t.Errorf("moved position = %v", moved.Position())
	}
	if !geom.VecApproxEqual(c.Position(), r3.Vec{X: 1}, tol) {
		t.Error("Transform mutated its receiver")
	}

	if _, err := kit.NewConnector(x, 0, 0.3); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("zero length error = %v, want ErrInvalidInput", err)
	}
	bad := geom.Transform{R: geom.Mat3{{2, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
	if _, err := kit.NewConnector(bad, 1, 0.3); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("scaled placement error = %v, want ErrInvalidInput", err)
	}

	cc := c.WithCellID(7)
	if id, ok := cc.CellID(); !ok || id != 7 {
		t.Errorf("CellID() = %d, %v", id, ok)
	}
}
