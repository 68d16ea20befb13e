package phantom

import (
	"errors"
	"fmt"

	"github.com/chazu/blockphantom/pkg/geom"
)

var (
	// ErrInvalidType is returned for an unrecognized block type.
	ErrInvalidType = errors.New("invalid block type")
	// ErrInvalidHole is returned for a hole id outside the block's catalog.
	ErrInvalidHole = errors.New("invalid hole")
	// ErrHoleUnavailable is returned when connecting through a hole that is
	// already connected or covered.
	ErrHoleUnavailable = errors.New("hole unavailable")
	// ErrConnectorExists is returned when a hole already carries a connector.
	ErrConnectorExists = errors.New("connector already present")
	// ErrNotConnected is returned when pivoting about a hole with no joint.
	ErrNotConnected = errors.New("hole not connected")
	// ErrInvalidRotation is returned when a rotation does not keep the hole
	// axis fixed.
	ErrInvalidRotation = errors.New("invalid rotation")
	// ErrInvalidInput reports malformed rotation or translation arguments.
	ErrInvalidInput = geom.ErrInvalidInput
	// ErrNoKernel is returned by geometry operations on a Kit built without
	// a geometry kernel.
	ErrNoKernel = errors.New("no geometry kernel")
)

// HoleError identifies the operation, block and hole a precondition failed on.
type HoleError struct {
	Op    string // "connect", "rotate", "add-connector", "hole", ...
	Block string // block description, e.g. "full block (cell 3)"
	Hole  int
	Err   error
}

func (e *HoleError) Error() string {
	return fmt.Sprintf("phantom: %s %s hole %d: %v", e.Op, e.Block, e.Hole, e.Err)
}

func (e *HoleError) Unwrap() error { return e.Err }
