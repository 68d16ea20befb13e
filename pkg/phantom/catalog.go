package phantom

import (
	"fmt"
	"strings"

	"github.com/chazu/blockphantom/pkg/geom"
	"github.com/chazu/blockphantom/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// Hole geometry shared by every block type, in cm.
const (
	HoleRadius = 0.4
	HoleDepth  = 1.0
	// Overshoot pushes hole cylinders past the block surface so the
	// boolean difference never leaves a zero-thickness skin.
	Overshoot = 0.02
)

// BlockType selects the dimensions and hole catalog of a block.
type BlockType int

const (
	Full BlockType = iota + 1
	Half
)

func (t BlockType) String() string {
	switch t {
	case Full:
		return "full"
	case Half:
		return "half"
	default:
		return fmt.Sprintf("BlockType(%d)", int(t))
	}
}

// Valid reports whether t is a known block type.
func (t BlockType) Valid() bool {
	return t == Full || t == Half
}

// ParseBlockType converts "full" or "half" (any case) into a BlockType.
func ParseBlockType(s string) (BlockType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full":
		return Full, nil
	case "half":
		return Half, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidType, s)
}

// Dimensions are the outer extents of a block along local X, Y and Z.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
}

// Unit is the grid pitch holes are laid out on: a sixth of the height.
func (d Dimensions) Unit() float64 {
	return d.Height / 6
}

// Half returns the half extents as a vector.
func (d Dimensions) Half() r3.Vec {
	return r3.Vec{X: d.Width / 2, Y: d.Height / 2, Z: d.Depth / 2}
}

// DimensionsOf returns the extents of a block type.
func DimensionsOf(t BlockType) (Dimensions, error) {
	switch t {
	case Full:
		return Dimensions{Width: 11, Height: 16.5, Depth: 5.5}, nil
	case Half:
		return Dimensions{Width: 11, Height: 16.5, Depth: 2.5}, nil
	}
	return Dimensions{}, fmt.Errorf("%w: %v", ErrInvalidType, t)
}

// Hole is a cylindrical connection point. Direction points out of the block
// and its length is the drilled extent, including half the overshoot.
type Hole struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Position  r3.Vec `json:"position"`
	Direction r3.Vec `json:"direction"`
}

// Axis returns the unit outward direction.
func (h Hole) Axis() r3.Vec {
	return r3.Unit(h.Direction)
}

// Extent returns the length of the drilled cylinder.
func (h Hole) Extent() float64 {
	return r3.Norm(h.Direction)
}

// Transform returns the hole moved by x.
func (h Hole) Transform(x geom.Transform) Hole {
	h.Position = x.Apply(h.Position)
	h.Direction = x.ApplyDir(h.Direction)
	return h
}

// Cylinder builds the solid removed from the block for this hole. It starts
// half an overshoot outside the surface and runs inward along -Direction.
func (h Hole) Cylinder(k kernel.Kernel) (kernel.Solid, error) {
	base := r3.Add(h.Position, r3.Scale(Overshoot/2, h.Axis()))
	return k.Cylinder(base, r3.Scale(-1, h.Direction), HoleRadius)
}

// side is a labelled offset sign or row multiplier.
type side struct {
	name string
	sign float64
}

type faceSlot struct {
	name string
	x, y float64 // in units
}

// faceSlots is the seven-hole pattern of the front and back faces.
var faceSlots = []faceSlot{
	{"upper-left", -1, 2},
	{"upper-right", 1, 2},
	{"middle-left", -1, 0},
	{"center", 0, 0},
	{"middle-right", 1, 0},
	{"lower-left", -1, -2},
	{"lower-right", 1, -2},
}

// HolesFor returns the local hole catalog of t:
//
//	0-3    tube ends: top-left, top-right (+Y), bottom-left, bottom-right (-Y)
//	4-6    left face (-X): upper, middle, lower
//	7-9    right face (+X): upper, middle, lower
//	10-16  front face (+Z), in faceSlots order
//	17-23  back face (-Z), full blocks only
//
// The result is freshly allocated on every call.
func HolesFor(t BlockType) ([]Hole, error) {
	d, err := DimensionsOf(t)
	if err != nil {
		return nil, err
	}
	u := d.Unit()
	half := d.Half()
	tube := half.Y + Overshoot/2
	depth := HoleDepth + Overshoot/2

	holes := make([]Hole, 0, 24)
	add := func(name string, pos, dir r3.Vec) {
		holes = append(holes, Hole{ID: len(holes), Name: name, Position: pos, Direction: dir})
	}

	add("top-left", r3.Vec{X: -u, Y: half.Y}, r3.Vec{Y: tube})
	add("top-right", r3.Vec{X: u, Y: half.Y}, r3.Vec{Y: tube})
	add("bottom-left", r3.Vec{X: -u, Y: -half.Y}, r3.Vec{Y: -tube})
	add("bottom-right", r3.Vec{X: u, Y: -half.Y}, r3.Vec{Y: -tube})

	for _, sd := range []side{{"left", -1}, {"right", 1}} {
		for _, row := range []side{{"upper", 2}, {"middle", 0}, {"lower", -2}} {
			add(sd.name+"-"+row.name,
				r3.Vec{X: sd.sign * half.X, Y: row.sign * u},
				r3.Vec{X: sd.sign * depth})
		}
	}

	faces := []side{{"front", 1}}
	if t == Full {
		faces = append(faces, side{"back", -1})
	}
	for _, f := range faces {
		for _, s := range faceSlots {
			add(f.name+"-"+s.name,
				r3.Vec{X: s.x * u, Y: s.y * u, Z: f.sign * half.Z},
				r3.Vec{Z: f.sign * depth})
		}
	}
	return holes, nil
}

// BoundingBoxCorners returns the eight local corners of a block volume.
func BoundingBoxCorners(d Dimensions) []r3.Vec {
	h := d.Half()
	return r3.Box{Min: r3.Scale(-1, h), Max: h}.Vertices()
}
