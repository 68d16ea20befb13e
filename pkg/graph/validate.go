package graph

import (
	"fmt"
	"math"

	"github.com/chazu/blockphantom/pkg/geom"
	"github.com/chazu/blockphantom/pkg/phantom"
	"gonum.org/v1/gonum/spatial/r3"
)

// ValidationSeverity indicates whether a validation finding makes the
// assembly unusable or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // broken assembly
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// Validation finding codes.
const (
	CodeDanglingReference  = "dangling-reference"
	CodeJoinGap            = "join-gap"
	CodeJoinAxis           = "join-axis"
	CodeHoleReused         = "hole-reused"
	CodeStatusMismatch     = "status-mismatch"
	CodeConnectorStatus    = "connector-status"
	CodeConnectorMisplaced = "connector-misplaced"
	CodeBlockOverlap       = "block-overlap"
)

// ValidationError describes a single validation finding.
type ValidationError struct {
	Code     string             `json:"code"`
	NodeID   NodeID             `json:"node,omitempty"` // zero if assembly-level
	Message  string             `json:"message"`
	Severity ValidationSeverity `json:"severity"`
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: node %s: %s", e.Severity, e.Code, e.NodeID, e.Message)
}

// HasErrors reports whether any finding has error severity.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks that the assembly is physically consistent and returns
// every finding. An empty slice means the assembly is valid. It never
// mutates the assembly.
func Validate(a *Assembly) []ValidationError {
	tol := a.kit.Tolerance()
	var errs []ValidationError
	errs = append(errs, validateJoins(a, tol)...)
	errs = append(errs, validateHoleUse(a)...)
	errs = append(errs, validateConnectors(a, tol)...)
	errs = append(errs, validateOverlap(a, tol)...)
	return errs
}

type holeRef struct {
	node NodeID
	hole int
}

// validateJoins checks that every join's holes coincide and face each other.
func validateJoins(a *Assembly, tol float64) []ValidationError {
	var errs []ValidationError
	for i, j := range a.joins {
		rb, rerr := a.Block(j.Receiver)
		pb, perr := a.Block(j.Placed)
		if rerr != nil || perr != nil {
			errs = append(errs, ValidationError{
				Code:     CodeDanglingReference,
				Message:  fmt.Sprintf("join %d references missing block %s or %s", i, j.Receiver, j.Placed),
				Severity: SeverityError,
			})
			continue
		}
		rh, rerr := rb.Hole(j.ReceiverHole)
		ph, perr := pb.Hole(j.PlacedHole)
		if rerr != nil || perr != nil {
			errs = append(errs, ValidationError{
				Code:     CodeDanglingReference,
				NodeID:   j.Placed,
				Message:  fmt.Sprintf("join %d references missing hole %d or %d", i, j.ReceiverHole, j.PlacedHole),
				Severity: SeverityError,
			})
			continue
		}
		if gap := r3.Norm(r3.Sub(rh.Position, ph.Position)); gap > tol {
			errs = append(errs, ValidationError{
				Code:   CodeJoinGap,
				NodeID: j.Placed,
				Message: fmt.Sprintf("hole %d is %.3g from %s hole %d",
					j.PlacedHole, gap, j.Receiver, j.ReceiverHole),
				Severity: SeverityError,
			})
		}
		if !geom.VecApproxEqual(r3.Add(rh.Axis(), ph.Axis()), r3.Vec{}, tol) {
			errs = append(errs, ValidationError{
				Code:   CodeJoinAxis,
				NodeID: j.Placed,
				Message: fmt.Sprintf("hole %d axis %.3v is not opposite %s hole %d axis %.3v",
					j.PlacedHole, ph.Axis(), j.Receiver, j.ReceiverHole, rh.Axis()),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateHoleUse checks that no hole takes part in two joins and that
// the connected flags match the join records.
func validateHoleUse(a *Assembly) []ValidationError {
	var errs []ValidationError
	used := make(map[holeRef]int)
	for _, j := range a.joins {
		used[holeRef{j.Receiver, j.ReceiverHole}]++
		used[holeRef{j.Placed, j.PlacedHole}]++
	}

	for _, n := range a.Blocks() {
		for id, st := range n.Block.Statuses() {
			count := used[holeRef{n.ID, id}]
			switch {
			case count > 1:
				errs = append(errs, ValidationError{
					Code:     CodeHoleReused,
					NodeID:   n.ID,
					Message:  fmt.Sprintf("hole %d is used by %d joins", id, count),
					Severity: SeverityError,
				})
			case count == 1 && !st.Connected:
				errs = append(errs, ValidationError{
					Code:     CodeStatusMismatch,
					NodeID:   n.ID,
					Message:  fmt.Sprintf("hole %d is joined but not marked connected", id),
					Severity: SeverityError,
				})
			case count == 0 && st.Connected:
				errs = append(errs, ValidationError{
					Code:     CodeStatusMismatch,
					NodeID:   n.ID,
					Message:  fmt.Sprintf("hole %d is marked connected but has no join", id),
					Severity: SeverityError,
				})
			}
			if st.Connected && st.Covered {
				errs = append(errs, ValidationError{
					Code:     CodeStatusMismatch,
					NodeID:   n.ID,
					Message:  fmt.Sprintf("hole %d is both connected and covered", id),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateConnectors checks that every connector sits centred on a hole
// flagged as carrying it.
func validateConnectors(a *Assembly, tol float64) []ValidationError {
	var errs []ValidationError
	for _, n := range a.Connectors() {
		b, err := a.Block(n.Parent)
		if err != nil {
			errs = append(errs, ValidationError{
				Code:     CodeDanglingReference,
				NodeID:   n.ID,
				Message:  fmt.Sprintf("connector parent %s is not a block", n.Parent),
				Severity: SeverityError,
			})
			continue
		}
		h, herr := b.Hole(n.Hole)
		st, serr := b.Status(n.Hole)
		if herr != nil || serr != nil {
			errs = append(errs, ValidationError{
				Code:     CodeDanglingReference,
				NodeID:   n.ID,
				Message:  fmt.Sprintf("connector hole %d does not exist on %s", n.Hole, n.Parent),
				Severity: SeverityError,
			})
			continue
		}
		if !st.HasConnector {
			errs = append(errs, ValidationError{
				Code:     CodeConnectorStatus,
				NodeID:   n.ID,
				Message:  fmt.Sprintf("%s hole %d is not flagged as carrying a connector", n.Parent, n.Hole),
				Severity: SeverityError,
			})
		}
		if !onHoleAxis(n.Connector, h, tol) {
			errs = append(errs, ValidationError{
				Code:     CodeConnectorMisplaced,
				NodeID:   n.ID,
				Message:  fmt.Sprintf("%s is not centred on %s hole %d", n.Connector, n.Parent, n.Hole),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// onHoleAxis reports whether c is centred on the mouth of h and runs along
// its axis in either sense.
func onHoleAxis(c *phantom.Connector, h phantom.Hole, tol float64) bool {
	if !geom.VecApproxEqual(c.Center(), h.Position, tol) {
		return false
	}
	return math.Abs(math.Abs(r3.Dot(c.Direction(), h.Axis()))-1) <= tol
}

// validateOverlap warns about blocks whose bounding boxes share volume.
// Flush contact is fine.
func validateOverlap(a *Assembly, tol float64) []ValidationError {
	var errs []ValidationError
	blocks := a.Blocks()
	boxes := make([]r3.Box, len(blocks))
	for i, n := range blocks {
		boxes[i] = n.Block.BoundingBox()
	}
	for i := range blocks {
		for j := i + 1; j < len(blocks); j++ {
			if overlapVolume(boxes[i], boxes[j], tol) {
				errs = append(errs, ValidationError{
					Code:     CodeBlockOverlap,
					NodeID:   blocks[j].ID,
					Message:  fmt.Sprintf("bounding box overlaps %s", blocks[i].Label()),
					Severity: SeverityWarning,
				})
			}
		}
	}
	return errs
}

func overlapVolume(a, b r3.Box, tol float64) bool {
	return math.Min(a.Max.X, b.Max.X)-math.Max(a.Min.X, b.Min.X) > tol &&
		math.Min(a.Max.Y, b.Max.Y)-math.Max(a.Min.Y, b.Min.Y) > tol &&
		math.Min(a.Max.Z, b.Max.Z)-math.Max(a.Min.Z, b.Min.Z) > tol
}
