package phantom

import (
	"fmt"
	"math"

	"github.com/chazu/blockphantom/pkg/geom"
	"github.com/chazu/blockphantom/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// Block is a placed phantom block: its holes in the global frame and the
// status of each hole. Blocks are immutable; every operation that moves a
// block or changes hole status returns a new Block.
type Block struct {
	kit       *Kit
	typ       BlockType
	dims      Dimensions
	placement geom.Transform
	holes     []Hole // global frame, indexed by id
	status    statusTable
	cellID    int
	hasCell   bool
}

// Mate is the outcome of Connect. Receiver is the connecting block with its
// mate hole (and covered holes) updated; the Block Connect was called on is
// left as it was.
type Mate struct {
	Receiver  *Block
	Placed    *Block
	Connector *Connector // nil unless requested

	// Newly covered hole ids on each side.
	ReceiverCovered []int
	PlacedCovered   []int
}

// Type returns the block type.
func (b *Block) Type() BlockType { return b.typ }

// Dimensions returns the block extents.
func (b *Block) Dimensions() Dimensions { return b.dims }

// Placement returns the transform from the block's local frame to the
// global frame.
func (b *Block) Placement() geom.Transform { return b.placement }

// Material returns the block material.
func (b *Block) Material() Material { return Polyethylene }

// Kit returns the kit the block was made with.
func (b *Block) Kit() *Kit { return b.kit }

// HoleCount returns the number of holes in the catalog.
func (b *Block) HoleCount() int { return len(b.holes) }

// Hole returns hole id in the global frame.
func (b *Block) Hole(id int) (Hole, error) {
	if err := b.checkHole("hole", id); err != nil {
		return Hole{}, err
	}
	return b.holes[id], nil
}

// Holes returns a copy of all holes in the global frame.
func (b *Block) Holes() []Hole {
	return append([]Hole(nil), b.holes...)
}

// Status returns the status of hole id.
func (b *Block) Status(id int) (HoleStatus, error) {
	if err := b.checkHole("status", id); err != nil {
		return HoleStatus{}, err
	}
	return b.status[id], nil
}

// Statuses returns a copy of the status table indexed by hole id.
func (b *Block) Statuses() []HoleStatus {
	return append([]HoleStatus(nil), b.status...)
}

// CellID returns the cell id assigned with WithCellID.
func (b *Block) CellID() (int, bool) { return b.cellID, b.hasCell }

// WithCellID returns a copy of the block carrying cell id.
func (b *Block) WithCellID(id int) *Block {
	nb := *b
	nb.cellID, nb.hasCell = id, true
	return &nb
}

func (b *Block) String() string {
	if b.hasCell {
		return fmt.Sprintf("%s block (cell %d)", b.typ, b.cellID)
	}
	return b.typ.String() + " block"
}

func (b *Block) checkHole(op string, id int) error {
	if id < 0 || id >= len(b.holes) {
		return &HoleError{Op: op, Block: b.String(), Hole: id,
			Err: fmt.Errorf("%w: id %d outside [0, %d)", ErrInvalidHole, id, len(b.holes))}
	}
	return nil
}

// moved returns a copy placed by b's placement followed by x. Holes are
// recomputed from the local catalog so error does not build up along long
// chains of transforms. The status table is shared; it is copy-on-write.
func (b *Block) moved(x geom.Transform) *Block {
	nb := *b
	nb.placement = b.placement.Then(x)
	local, _ := HolesFor(b.typ)
	for i := range local {
		local[i] = local[i].Transform(nb.placement)
	}
	nb.holes = local
	return &nb
}

// Transform returns the block moved by x. Hole status is carried over
// unchanged. x.R must be a rotation.
func (b *Block) Transform(x geom.Transform) (*Block, error) {
	if !x.R.IsRotation(1e-9) {
		return nil, fmt.Errorf("phantom: transform %s: %w: matrix is not a rotation", b, ErrInvalidInput)
	}
	if !finite(x.T) {
		return nil, fmt.Errorf("phantom: transform %s: %w: translation %v", b, ErrInvalidInput, x.T)
	}
	return b.moved(x), nil
}

// TransformSteps rotates the block by grid steps about the global axes and
// then moves it by translation.
func (b *Block) TransformSteps(translation r3.Vec, steps geom.Steps) (*Block, error) {
	return b.Transform(geom.FromSteps(translation, steps))
}

// BoundingBox returns the global axis-aligned box around the block volume.
func (b *Block) BoundingBox() r3.Box {
	corners := BoundingBoxCorners(b.dims)
	first := b.placement.Apply(corners[0])
	box := r3.Box{Min: first, Max: first}
	for _, c := range corners[1:] {
		p := b.placement.Apply(c)
		box.Min = r3.Vec{X: math.Min(box.Min.X, p.X), Y: math.Min(box.Min.Y, p.Y), Z: math.Min(box.Min.Z, p.Z)}
		box.Max = r3.Vec{X: math.Max(box.Max.X, p.X), Y: math.Max(box.Max.Y, p.Y), Z: math.Max(box.Max.Z, p.Z)}
	}
	return box
}

// occludes reports whether p lies inside the block's bounding box grown by
// the kit tolerance. The boundary counts as inside.
func (b *Block) occludes(p r3.Vec) bool {
	tol := b.kit.tolerance
	box := b.BoundingBox()
	grow := r3.Vec{X: tol, Y: tol, Z: tol}
	return r3.Box{Min: r3.Sub(box.Min, grow), Max: r3.Add(box.Max, grow)}.Contains(p)
}

// Connect attaches a new block of type t by mating its hole foreign with
// hole local of b. The new block is rotated so the two hole directions are
// antiparallel and moved so the hole positions coincide.
//
// Hole local must be neither connected nor covered. Both mate holes become
// connected; every other free hole of either block that lies inside the
// other block's bounding box becomes covered. With withConnector a
// Connector is placed in the joint and both holes are flagged as carrying
// it. A connector added to hole local earlier bridges the joint as well, so
// the mate hole is flagged in that case too. All preconditions are checked
// before anything is built.
func (b *Block) Connect(local int, t BlockType, foreign int, withConnector bool) (Mate, error) {
	if err := b.checkHole("connect", local); err != nil {
		return Mate{}, err
	}
	st := b.status[local]
	if !st.Available() {
		return Mate{}, &HoleError{Op: "connect", Block: b.String(), Hole: local,
			Err: fmt.Errorf("%w: %s", ErrHoleUnavailable, st)}
	}
	if withConnector && st.HasConnector {
		return Mate{}, &HoleError{Op: "connect", Block: b.String(), Hole: local, Err: ErrConnectorExists}
	}
	if !t.Valid() {
		return Mate{}, fmt.Errorf("phantom: connect %s hole %d: %w: %v", b, local, ErrInvalidType, t)
	}
	fresh := b.kit.localBlock(t)
	if err := fresh.checkHole("connect", foreign); err != nil {
		return Mate{}, err
	}

	lh := b.holes[local]
	fh := fresh.holes[foreign]
	R, err := geom.AlignVectors(r3.Scale(-1, fh.Direction), lh.Direction)
	if err != nil {
		return Mate{}, fmt.Errorf("phantom: connect %s hole %d: %w", b, local, err)
	}
	x := geom.Transform{R: R, T: r3.Sub(lh.Position, R.MulVec(fh.Position))}
	placed := fresh.moved(x)

	var receiverCovered, placedCovered []int
	for i, h := range b.holes {
		if i != local && b.status[i].Available() && placed.occludes(h.Position) {
			receiverCovered = append(receiverCovered, i)
		}
	}
	for i, h := range placed.holes {
		if i != foreign && b.occludes(h.Position) {
			placedCovered = append(placedCovered, i)
		}
	}

	receiver := *b
	receiver.status = b.status.
		update(local, func(s *HoleStatus) { s.Connected = true }).
		updateMany(receiverCovered, func(s *HoleStatus) { s.Covered = true })
	placed.status = placed.status.
		update(foreign, func(s *HoleStatus) { s.Connected = true }).
		updateMany(placedCovered, func(s *HoleStatus) { s.Covered = true })

	m := Mate{
		Receiver:        &receiver,
		Placed:          placed,
		ReceiverCovered: receiverCovered,
		PlacedCovered:   placedCovered,
	}
	if withConnector {
		m.Connector = b.kit.connectorAt(lh)
		receiver.status = receiver.status.update(local, func(s *HoleStatus) { s.HasConnector = true })
	}
	if withConnector || st.HasConnector {
		// A rod already in the receiver hole reaches into the mate hole too.
		placed.status = placed.status.update(foreign, func(s *HoleStatus) { s.HasConnector = true })
	}

	b.kit.logger.Debug("blocks connected",
		"receiver", b.String(), "hole", local,
		"type", t, "foreign_hole", foreign,
		"rotation", x.String(),
		"covered", receiverCovered, "placed_covered", placedCovered,
		"connector", withConnector)
	return m, nil
}

// PivotAbout returns the transform that turns the block by grid steps about
// the axis of hole id, keeping the hole position fixed. The hole must be
// connected and the rotation must map the hole axis onto itself or its
// negation within the kit tolerance.
func (b *Block) PivotAbout(id int, steps geom.Steps) (geom.Transform, error) {
	if err := b.checkHole("rotate", id); err != nil {
		return geom.Transform{}, err
	}
	if !b.status[id].Connected {
		return geom.Transform{}, &HoleError{Op: "rotate", Block: b.String(), Hole: id, Err: ErrNotConnected}
	}
	h := b.holes[id]
	R := geom.StepRotation(steps)
	axis := h.Axis()
	turned := R.MulVec(axis)
	tol := b.kit.tolerance
	if !geom.VecApproxEqual(turned, axis, tol) && !geom.VecApproxEqual(turned, r3.Scale(-1, axis), tol) {
		return geom.Transform{}, &HoleError{Op: "rotate", Block: b.String(), Hole: id,
			Err: fmt.Errorf("%w: steps %v move hole axis %.3v to %.3v", ErrInvalidRotation, steps, axis, turned)}
	}
	return geom.Pivot(h.Position, R), nil
}

// RotateAboutConnection returns the block turned by grid steps about the
// axis of connected hole id. The joint stays in place.
func (b *Block) RotateAboutConnection(id int, steps geom.Steps) (*Block, error) {
	x, err := b.PivotAbout(id, steps)
	if err != nil {
		return nil, err
	}
	b.kit.logger.Debug("block rotated about connection", "block", b.String(), "hole", id, "steps", steps)
	return b.moved(x), nil
}

// AddConnector places a connector in free hole id without attaching a
// block. It returns the updated block and the connector.
func (b *Block) AddConnector(id int) (*Block, *Connector, error) {
	if err := b.checkHole("add-connector", id); err != nil {
		return nil, nil, err
	}
	st := b.status[id]
	if !st.Available() {
		return nil, nil, &HoleError{Op: "add-connector", Block: b.String(), Hole: id,
			Err: fmt.Errorf("%w: %s", ErrHoleUnavailable, st)}
	}
	if st.HasConnector {
		return nil, nil, &HoleError{Op: "add-connector", Block: b.String(), Hole: id, Err: ErrConnectorExists}
	}
	nb := *b
	nb.status = b.status.update(id, func(s *HoleStatus) { s.HasConnector = true })
	return &nb, b.kit.connectorAt(b.holes[id]), nil
}

// Solid returns the block geometry, box minus hole cylinders, in the global
// frame.
func (b *Block) Solid() (kernel.Solid, error) {
	s, err := b.kit.blockSolid(b.typ)
	if err != nil {
		return nil, fmt.Errorf("phantom: solid of %s: %w", b, err)
	}
	return b.kit.kernel.Transform(s, b.placement), nil
}

// Mesh returns a triangle mesh of the block in the global frame. The local
// mesh of each block type is computed once per kit.
func (b *Block) Mesh() (*kernel.Mesh, error) {
	return b.kit.placedMesh("block/"+b.typ.String(), func() (kernel.Solid, error) {
		return b.kit.blockSolid(b.typ)
	}, b.placement)
}

func finite(v r3.Vec) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
