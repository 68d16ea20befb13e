package graph

import (
	"strings"
	"testing"

	"github.com/chazu/blockphantom/pkg/geom"
	"github.com/chazu/blockphantom/pkg/phantom"
	"gonum.org/v1/gonum/spatial/r3"
)

func codes(errs []ValidationError) map[string]int {
	out := make(map[string]int)
	for _, e := range errs {
		out[e.Code]++
	}
	return out
}

func TestValidateCleanAssembly(t *testing.T) {
	a, _, left, right := buildLegs(t)
	if errs := Validate(a); len(errs) != 0 {
		t.Fatalf("Validate() = %v", errs)
	}
	for _, id := range []NodeID{left, right} {
		if err := a.RotateAboutConnection(id, 2, geom.Steps{0, 1, 0}); err != nil {
			t.Fatal(err)
		}
	}
	if errs := Validate(a); len(errs) != 0 {
		t.Fatalf("Validate() after rotation = %v", errs)
	}
}

func TestValidateEmpty(t *testing.T) {
	if errs := Validate(New(phantom.NewKit(nil))); len(errs) != 0 {
		t.Errorf("Validate(empty) = %v", errs)
	}
}

func TestValidateFindings(t *testing.T) {
	tests := []struct {
		name     string
		corrupt  func(t *testing.T, a *Assembly, root, left NodeID)
		want     string
		severity ValidationSeverity
	}{
		{
			name: "leg pulled out of its joint",
			corrupt: func(t *testing.T, a *Assembly, root, left NodeID) {
				n := a.Get(left)
				b, err := n.Block.TransformSteps(r3.Vec{Y: -1}, geom.Steps{})
				if err != nil {
					t.Fatal(err)
				}
				n.Block = b
			},
			want:     CodeJoinGap,
			severity: SeverityError,
		},
		{
			name: "leg turned off axis",
			corrupt: func(t *testing.T, a *Assembly, root, left NodeID) {
				n := a.Get(left)
				h, _ := n.Block.Hole(2)
				b, err := n.Block.Transform(geom.Pivot(h.Position, geom.StepRotation(geom.Steps{1, 0, 0})))
				if err != nil {
					t.Fatal(err)
				}
				n.Block = b
			},
			want:     CodeJoinAxis,
			severity: SeverityError,
		},
		{
			name: "join records wrong hole",
			corrupt: func(t *testing.T, a *Assembly, root, left NodeID) {
				a.joins[0].PlacedHole = 0
			},
			want:     CodeStatusMismatch,
			severity: SeverityError,
		},
		{
			name: "hole used twice",
			corrupt: func(t *testing.T, a *Assembly, root, left NodeID) {
				a.joins = append(a.joins, a.joins[0])
			},
			want:     CodeHoleReused,
			severity: SeverityError,
		},
		{
			name: "join to missing block",
			corrupt: func(t *testing.T, a *Assembly, root, left NodeID) {
				a.joins[0].Placed = "block-404"
			},
			want:     CodeDanglingReference,
			severity: SeverityError,
		},
		{
			name: "connector recorded on wrong hole",
			corrupt: func(t *testing.T, a *Assembly, root, left NodeID) {
				a.Connectors()[0].Hole = 13
			},
			want:     CodeConnectorStatus,
			severity: SeverityError,
		},
		{
			name: "connector moved away",
			corrupt: func(t *testing.T, a *Assembly, root, left NodeID) {
				n := a.Connectors()[0]
				c, err := n.Connector.Transform(geom.Translation(r3.Vec{X: 2}))
				if err != nil {
					t.Fatal(err)
				}
				n.Connector = c
			},
			want:     CodeConnectorMisplaced,
			severity: SeverityError,
		},
		{
			name: "second root inside the first",
			corrupt: func(t *testing.T, a *Assembly, root, left NodeID) {
				if _, err := a.AddBlock("", phantom.Half, r3.Vec{X: 1}, geom.Steps{}); err != nil {
					t.Fatal(err)
				}
			},
			want:     CodeBlockOverlap,
			severity: SeverityWarning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, root, left, _ := buildLegs(t)
			tt.corrupt(t, a, root, left)
			errs := Validate(a)
			got := codes(errs)
			if got[tt.want] == 0 {
				t.Fatalf("Validate() = %v, want a %s finding", errs, tt.want)
			}
			for _, e := range errs {
				if e.Code == tt.want && e.Severity != tt.severity {
					t.Errorf("%s severity = %v, want %v", e.Code, e.Severity, tt.severity)
				}
			}
			if HasErrors(errs) != (tt.severity == SeverityError) {
				t.Errorf("HasErrors() = %v for %v", HasErrors(errs), errs)
			}
		})
	}
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Code: CodeJoinGap, NodeID: "block-2", Message: "gap", Severity: SeverityError}
	if got := e.Error(); !strings.Contains(got, "join-gap") || !strings.Contains(got, "block-2") || !strings.Contains(got, "[error]") {
		t.Errorf("Error() = %q", got)
	}
	w := ValidationError{Code: CodeBlockOverlap, Message: "x", Severity: SeverityWarning}
	if got := w.Error(); strings.Contains(got, "node") {
		t.Errorf("assembly-level Error() = %q", got)
	}
}
