// Package geom holds the rigid-body algebra used to place phantom blocks:
// 3×3 rotation matrices, quarter-turn grid rotations, vector alignment and
// rotation+translation transforms. Vectors are gonum r3.Vec values.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Tolerance is the default numeric tolerance for geometric comparisons.
const Tolerance = 1e-6

// Mat3 is a 3×3 matrix indexed [row][col]. It is a value type so rotations
// can be copied freely between immutable blocks.
type Mat3 [3][3]float64

// Identity returns the 3×3 identity matrix.
func Identity() Mat3 {
	return Mat3{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

// Mul returns a·b.
func (a Mat3) Mul(b Mat3) Mat3 {
	var m Mat3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m[r][c] = a[r][0]*b[0][c] + a[r][1]*b[1][c] + a[r][2]*b[2][c]
		}
	}
	return m
}

// MulVec returns a·v.
func (a Mat3) MulVec(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: a[0][0]*v.X + a[0][1]*v.Y + a[0][2]*v.Z,
		Y: a[1][0]*v.X + a[1][1]*v.Y + a[1][2]*v.Z,
		Z: a[2][0]*v.X + a[2][1]*v.Y + a[2][2]*v.Z,
	}
}

// Transpose returns aᵀ, which is the inverse of a rotation matrix.
func (a Mat3) Transpose() Mat3 {
	return Mat3{
		{a[0][0], a[1][0], a[2][0]},
		{a[0][1], a[1][1], a[2][1]},
		{a[0][2], a[1][2], a[2][2]},
	}
}

// Det returns the determinant.
func (a Mat3) Det() float64 {
	return a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
		a[0][1]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
		a[0][2]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])
}

// Trace returns the sum of the diagonal.
func (a Mat3) Trace() float64 {
	return a[0][0] + a[1][1] + a[2][2]
}

// ApproxEqual reports whether every element of a and b differs by at most tol.
func (a Mat3) ApproxEqual(b Mat3, tol float64) bool {
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if math.Abs(a[r][c]-b[r][c]) > tol {
				return false
			}
		}
	}
	return true
}

// IsIdentity reports whether a is the identity within tol.
func (a Mat3) IsIdentity(tol float64) bool {
	return a.ApproxEqual(Identity(), tol)
}

// IsRotation reports whether a is orthonormal with determinant +1 within tol.
func (a Mat3) IsRotation(tol float64) bool {
	return a.Transpose().Mul(a).IsIdentity(tol) && math.Abs(a.Det()-1) <= tol
}

// outer returns the outer product u·vᵀ.
func outer(u, v r3.Vec) Mat3 {
	return Mat3{
		{u.X * v.X, u.X * v.Y, u.X * v.Z},
		{u.Y * v.X, u.Y * v.Y, u.Y * v.Z},
		{u.Z * v.X, u.Z * v.Y, u.Z * v.Z},
	}
}

// skew returns the cross-product matrix [k]ₓ so that skew(k)·v = k × v.
func skew(k r3.Vec) Mat3 {
	return Mat3{
		{0, -k.Z, k.Y},
		{k.Z, 0, -k.X},
		{-k.Y, k.X, 0},
	}
}

func (a Mat3) add(b Mat3) Mat3 {
	var m Mat3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m[r][c] = a[r][c] + b[r][c]
		}
	}
	return m
}

func (a Mat3) scale(f float64) Mat3 {
	var m Mat3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m[r][c] = f * a[r][c]
		}
	}
	return m
}

// VecApproxEqual reports whether p and q differ by at most tol in every component.
func VecApproxEqual(p, q r3.Vec, tol float64) bool {
	return math.Abs(p.X-q.X) <= tol && math.Abs(p.Y-q.Y) <= tol && math.Abs(p.Z-q.Z) <= tol
}
