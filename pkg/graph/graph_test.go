package graph

import (
	"errors"
	"testing"

	"github.com/chazu/blockphantom/pkg/geom"
	"github.com/chazu/blockphantom/pkg/phantom"
	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-9

// buildLegs assembles a crotch block turned so its back face points down,
// with two legs hanging from it through connectors.
func buildLegs(t *testing.T) (a *Assembly, root, left, right NodeID) {
	t.Helper()
	a = New(phantom.NewKit(nil))
	var err error
	root, err = a.AddBlock("crotch", phantom.Full, r3.Vec{}, geom.Steps{0, 1, 1})
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	left, err = a.Connect("left-leg", root, 22, phantom.Full, 2, true)
	if err != nil {
		t.Fatalf("Connect left: %v", err)
	}
	right, err = a.Connect("right-leg", root, 17, phantom.Full, 2, true)
	if err != nil {
		t.Fatalf("Connect right: %v", err)
	}
	return a, root, left, right
}

func mustBlock(t *testing.T, a *Assembly, id NodeID) *phantom.Block {
	t.Helper()
	b, err := a.Block(id)
	if err != nil {
		t.Fatalf("Block(%s): %v", id, err)
	}
	return b
}

func holePos(t *testing.T, a *Assembly, id NodeID, hole int) r3.Vec {
	t.Helper()
	h, err := mustBlock(t, a, id).Hole(hole)
	if err != nil {
		t.Fatalf("Hole(%d): %v", hole, err)
	}
	return h.Position
}

func TestAddBlock(t *testing.T) {
	a := New(phantom.NewKit(nil))
	id, err := a.AddBlock("base", phantom.Half, r3.Vec{X: 3}, geom.Steps{})
	if err != nil {
		t.Fatal(err)
	}
	n := a.Get(id)
	if n == nil || n.Kind != NodeBlock || n.Label() != "base" || !n.Parent.IsZero() {
		t.Fatalf("node = %+v", n)
	}
	if a.Lookup("base") != n {
		t.Error("Lookup did not find the block by name")
	}
	if got := n.Block.Placement().T; got != (r3.Vec{X: 3}) {
		t.Errorf("translation = %v", got)
	}

	if _, err := a.AddBlock("base", phantom.Full, r3.Vec{}, geom.Steps{}); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("duplicate name error = %v", err)
	}
	if _, err := a.AddBlock("", phantom.BlockType(9), r3.Vec{}, geom.Steps{}); !errors.Is(err, phantom.ErrInvalidType) {
		t.Errorf("bad type error = %v", err)
	}

	anon, err := a.AddBlock("", phantom.Full, r3.Vec{}, geom.Steps{})
	if err != nil {
		t.Fatal(err)
	}
	if a.Get(anon).Label() != string(anon) {
		t.Errorf("anonymous label = %q", a.Get(anon).Label())
	}
	if a.NodeCount() != 2 {
		t.Errorf("NodeCount() = %d, want 2", a.NodeCount())
	}
}

func TestConnect(t *testing.T) {
	a, root, left, right := buildLegs(t)

	if got := len(a.Blocks()); got != 3 {
		t.Errorf("blocks = %d, want 3", got)
	}
	conns := a.Connectors()
	if len(conns) != 2 {
		t.Fatalf("connectors = %d, want 2", len(conns))
	}
	if conns[0].Name != "left-leg-connector" || conns[0].Parent != root || conns[0].Hole != 22 {
		t.Errorf("connector node = %+v", conns[0])
	}

	joins := a.Joins()
	want := []Join{
		{Receiver: root, ReceiverHole: 22, Placed: left, PlacedHole: 2, Connector: conns[0].ID},
		{Receiver: root, ReceiverHole: 17, Placed: right, PlacedHole: 2, Connector: conns[1].ID},
	}
	if len(joins) != len(want) {
		t.Fatalf("joins = %+v", joins)
	}
	for i := range want {
		if joins[i] != want[i] {
			t.Errorf("join %d = %+v, want %+v", i, joins[i], want[i])
		}
	}

	// The receiver node now carries the updated status.
	st, _ := mustBlock(t, a, root).Status(22)
	if !st.Connected || !st.HasConnector {
		t.Errorf("root hole 22 status = %v", st)
	}
	if !geom.VecApproxEqual(holePos(t, a, root, 22), holePos(t, a, left, 2), tol) {
		t.Error("left leg is not mated to the crotch")
	}

	children := a.Children(root)
	if len(children) != 4 {
		t.Errorf("root children = %d, want 2 legs and 2 connectors", len(children))
	}
}

func TestConnectErrors(t *testing.T) {
	a, root, left, _ := buildLegs(t)
	if _, err := a.AddConnector("foot-connector", root, 13); err != nil {
		t.Fatal(err)
	}
	before := a.NodeCount()

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"unknown receiver", func() error {
			_, err := a.Connect("", "block-99", 0, phantom.Full, 0, false)
			return err
		}, ErrUnknownNode},
		{"connector receiver", func() error {
			_, err := a.Connect("", a.Connectors()[0].ID, 0, phantom.Full, 0, false)
			return err
		}, ErrNotBlock},
		{"hole in use", func() error {
			_, err := a.Connect("", root, 22, phantom.Full, 2, false)
			return err
		}, phantom.ErrHoleUnavailable},
		{"name taken", func() error {
			_, err := a.Connect("left-leg", left, 0, phantom.Full, 2, false)
			return err
		}, ErrDuplicateName},
		{"connector name taken", func() error {
			_, err := a.Connect("foot", left, 0, phantom.Full, 2, true)
			return err
		}, ErrDuplicateName},
		{"bad foreign hole", func() error {
			_, err := a.Connect("", left, 0, phantom.Half, 23, false)
			return err
		}, phantom.ErrInvalidHole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if a.NodeCount() != before {
				t.Errorf("failed connect added nodes")
			}
		})
	}
}

func TestAddConnector(t *testing.T) {
	a, root, _, _ := buildLegs(t)
	id, err := a.AddConnector("peg", root, 13)
	if err != nil {
		t.Fatal(err)
	}
	n := a.Get(id)
	if n.Kind != NodeConnector || n.Parent != root || n.Hole != 13 {
		t.Errorf("connector node = %+v", n)
	}
	st, _ := mustBlock(t, a, root).Status(13)
	if !st.HasConnector || st.Connected {
		t.Errorf("hole 13 status = %v", st)
	}
	if _, err := a.AddConnector("", root, 13); !errors.Is(err, phantom.ErrConnectorExists) {
		t.Errorf("second connector error = %v", err)
	}
	if _, err := a.AddConnector("", root, 22); !errors.Is(err, phantom.ErrHoleUnavailable) {
		t.Errorf("connected hole error = %v", err)
	}
}

func TestRotateAboutConnectionMovesSubtree(t *testing.T) {
	a, root, left, right := buildLegs(t)
	foot, err := a.Connect("left-foot", left, 0, phantom.Half, 2, true)
	if err != nil {
		t.Fatal(err)
	}
	pivot := holePos(t, a, left, 2)
	rightBefore := mustBlock(t, a, right).Placement()
	rootBefore := mustBlock(t, a, root).Placement()
	leftBox := mustBlock(t, a, left).BoundingBox().Size()

	if err := a.RotateAboutConnection(left, 2, geom.Steps{0, 1, 0}); err != nil {
		t.Fatal(err)
	}

	if !geom.VecApproxEqual(holePos(t, a, left, 2), pivot, tol) {
		t.Error("pivot hole moved")
	}
	if got := mustBlock(t, a, left).BoundingBox().Size(); !geom.VecApproxEqual(got, r3.Vec{X: leftBox.Z, Y: leftBox.Y, Z: leftBox.X}, tol) {
		t.Errorf("leg footprint = %v, want swapped %v", got, leftBox)
	}
	if !geom.VecApproxEqual(holePos(t, a, left, 0), holePos(t, a, foot, 2), tol) {
		t.Error("foot did not follow the leg")
	}
	footConn := a.Lookup("left-foot-connector")
	footHole, _ := mustBlock(t, a, left).Hole(0)
	if !geom.VecApproxEqual(footConn.Connector.Center(), footHole.Position, tol) {
		t.Error("foot connector did not follow the leg")
	}
	if mustBlock(t, a, right).Placement() != rightBefore || mustBlock(t, a, root).Placement() != rootBefore {
		t.Error("rotation moved blocks outside the subtree")
	}
	if errs := Validate(a); HasErrors(errs) {
		t.Errorf("assembly invalid after rotation: %v", errs)
	}
}

func TestRotateAboutConnectionErrors(t *testing.T) {
	a, root, left, _ := buildLegs(t)

	if err := a.RotateAboutConnection(root, 22, geom.Steps{0, 1, 0}); !errors.Is(err, ErrPivotNotParent) {
		t.Errorf("child joint error = %v, want ErrPivotNotParent", err)
	}
	if err := a.RotateAboutConnection(left, 2, geom.Steps{1, 0, 0}); !errors.Is(err, phantom.ErrInvalidRotation) {
		t.Errorf("off-axis error = %v, want ErrInvalidRotation", err)
	}
	if err := a.RotateAboutConnection(left, 0, geom.Steps{0, 1, 0}); !errors.Is(err, phantom.ErrNotConnected) {
		t.Errorf("free hole error = %v, want ErrNotConnected", err)
	}
	if err := a.RotateAboutConnection("nope", 0, geom.Steps{}); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("unknown node error = %v", err)
	}
}

func TestPlace(t *testing.T) {
	a, root, left, _ := buildLegs(t)
	shift := r3.Vec{X: 10, Y: -4, Z: 1}
	before := holePos(t, a, left, 0)

	if err := a.Place(root, geom.Translation(shift)); err != nil {
		t.Fatal(err)
	}
	if got := holePos(t, a, left, 0); !geom.VecApproxEqual(got, r3.Add(before, shift), tol) {
		t.Errorf("leg hole = %v, want %v", got, r3.Add(before, shift))
	}
	if errs := Validate(a); len(errs) != 0 {
		t.Errorf("Validate after Place: %v", errs)
	}

	if err := a.Place(left, geom.Translation(shift)); !errors.Is(err, ErrNotRoot) {
		t.Errorf("place child error = %v, want ErrNotRoot", err)
	}
	bad := geom.Transform{R: geom.Mat3{{2, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
	if err := a.Place(root, bad); !errors.Is(err, phantom.ErrInvalidInput) {
		t.Errorf("scaled placement error = %v, want ErrInvalidInput", err)
	}
}

func TestSubtree(t *testing.T) {
	a, root, left, right := buildLegs(t)
	foot, _ := a.Connect("", left, 0, phantom.Half, 2, false)

	got := a.Subtree(left)
	if len(got) != 2 || got[0] != left || got[1] != foot {
		t.Errorf("Subtree(left) = %v", got)
	}
	if n := len(a.Subtree(root)); n != a.NodeCount() {
		t.Errorf("Subtree(root) has %d nodes, want %d", n, a.NodeCount())
	}
	if got := a.Subtree(right); len(got) != 1 {
		t.Errorf("Subtree(right) = %v", got)
	}
}
