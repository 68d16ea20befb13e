package geom

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Transform is a rigid placement applied as global = R·local + T.
type Transform struct {
	R Mat3
	T r3.Vec
}

// IdentityTransform returns the transform that leaves points unchanged.
func IdentityTransform() Transform {
	return Transform{R: Identity()}
}

// Translation returns a pure translation by t.
func Translation(t r3.Vec) Transform {
	return Transform{R: Identity(), T: t}
}

// Rotation returns a pure rotation about the origin.
func Rotation(R Mat3) Transform {
	return Transform{R: R}
}

// FromSteps returns the grid rotation s followed by translation t.
func FromSteps(t r3.Vec, s Steps) Transform {
	return Transform{R: StepRotation(s), T: t}
}

// Apply maps a point.
func (x Transform) Apply(p r3.Vec) r3.Vec {
	return r3.Add(x.R.MulVec(p), x.T)
}

// ApplyDir maps a direction; translation does not apply.
func (x Transform) ApplyDir(v r3.Vec) r3.Vec {
	return x.R.MulVec(v)
}

// Then returns the transform that applies x first and next second:
// (R2,t2)∘(R1,t1) = (R2·R1, R2·t1 + t2).
func (x Transform) Then(next Transform) Transform {
	return Transform{
		R: next.R.Mul(x.R),
		T: r3.Add(next.R.MulVec(x.T), next.T),
	}
}

// Inverse returns the transform undoing x. R must be a rotation.
func (x Transform) Inverse() Transform {
	Rt := x.R.Transpose()
	return Transform{R: Rt, T: r3.Scale(-1, Rt.MulVec(x.T))}
}

// IsIdentity reports whether x moves nothing within tol.
func (x Transform) IsIdentity(tol float64) bool {
	return x.R.IsIdentity(tol) && VecApproxEqual(x.T, r3.Vec{}, tol)
}

// Pivot returns the rotation R about point p: translate p to the origin,
// rotate, translate back.
func Pivot(p r3.Vec, R Mat3) Transform {
	return Translation(r3.Scale(-1, p)).Then(Rotation(R)).Then(Translation(p))
}

func (x Transform) String() string {
	axis, angle := AxisAngle(x.R)
	return fmt.Sprintf("rot %.1f° about (%.3f, %.3f, %.3f), move (%.3f, %.3f, %.3f)",
		angle, axis.X, axis.Y, axis.Z, x.T.X, x.T.Y, x.T.Z)
}
