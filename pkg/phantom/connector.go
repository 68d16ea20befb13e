package phantom

import (
	"fmt"

	"github.com/chazu/blockphantom/pkg/geom"
	"github.com/chazu/blockphantom/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// Connector is the rod that pins two mated holes together. Locally it runs
// from the origin along +Z; its placement carries it into the global frame.
type Connector struct {
	kit       *Kit
	length    float64
	radius    float64
	placement geom.Transform
	cellID    int
	hasCell   bool
}

// NewConnector creates a connector of the given size placed by x.
func (k *Kit) NewConnector(x geom.Transform, length, radius float64) (*Connector, error) {
	if length <= 0 || radius <= 0 {
		return nil, fmt.Errorf("phantom: new connector: %w: length %g radius %g", ErrInvalidInput, length, radius)
	}
	if !x.R.IsRotation(1e-9) || !finite(x.T) {
		return nil, fmt.Errorf("phantom: new connector: %w: placement %v", ErrInvalidInput, x)
	}
	return &Connector{kit: k, length: length, radius: radius, placement: x}, nil
}

// connectorAt centres a kit-sized connector on the mouth of h, so half of
// it sits in the hole and half protrudes.
func (k *Kit) connectorAt(h Hole) *Connector {
	axis := h.Axis()
	R, _ := geom.AlignVectors(geom.AxisZ.Unit(), axis)
	base := r3.Sub(h.Position, r3.Scale(k.connectorLength/2, axis))
	return &Connector{
		kit:       k,
		length:    k.connectorLength,
		radius:    k.connectorRadius,
		placement: geom.Transform{R: R, T: base},
	}
}

// Position returns the base point of the rod.
func (c *Connector) Position() r3.Vec { return c.placement.T }

// Direction returns the unit axis of the rod.
func (c *Connector) Direction() r3.Vec { return c.placement.ApplyDir(geom.AxisZ.Unit()) }

// Center returns the midpoint of the rod axis.
func (c *Connector) Center() r3.Vec {
	return r3.Add(c.Position(), r3.Scale(c.length/2, c.Direction()))
}

// Length returns the rod length.
func (c *Connector) Length() float64 { return c.length }

// Radius returns the rod radius.
func (c *Connector) Radius() float64 { return c.radius }

// Placement returns the local-to-global transform.
func (c *Connector) Placement() geom.Transform { return c.placement }

// Material returns the connector material.
func (c *Connector) Material() Material { return Aluminium }

// CellID returns the cell id assigned with WithCellID.
func (c *Connector) CellID() (int, bool) { return c.cellID, c.hasCell }

// WithCellID returns a copy of the connector carrying cell id.
func (c *Connector) WithCellID(id int) *Connector {
	nc := *c
	nc.cellID, nc.hasCell = id, true
	return &nc
}

// Transform returns the connector moved by x.
func (c *Connector) Transform(x geom.Transform) (*Connector, error) {
	if !x.R.IsRotation(1e-9) || !finite(x.T) {
		return nil, fmt.Errorf("phantom: transform connector: %w: placement %v", ErrInvalidInput, x)
	}
	return c.moved(x), nil
}

func (c *Connector) moved(x geom.Transform) *Connector {
	nc := *c
	nc.placement = c.placement.Then(x)
	return &nc
}

func (c *Connector) String() string {
	p, d := c.Position(), c.Direction()
	return fmt.Sprintf("connector at (%.3f, %.3f, %.3f) along (%.3f, %.3f, %.3f)", p.X, p.Y, p.Z, d.X, d.Y, d.Z)
}

// Solid returns the rod geometry in the global frame.
func (c *Connector) Solid() (kernel.Solid, error) {
	s, err := c.kit.connectorSolid(c.length, c.radius)
	if err != nil {
		return nil, err
	}
	return c.kit.kernel.Transform(s, c.placement), nil
}

// Mesh returns a triangle mesh of the rod in the global frame.
func (c *Connector) Mesh() (*kernel.Mesh, error) {
	return c.kit.placedMesh(connectorKey(c.length, c.radius), func() (kernel.Solid, error) {
		return c.kit.connectorSolid(c.length, c.radius)
	}, c.placement)
}
