package geom

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidInput reports malformed rotation or translation arguments.
var ErrInvalidInput = errors.New("invalid input")

// parallelEps is the cross-product magnitude below which two unit vectors
// are treated as parallel.
const parallelEps = 1e-12

// Axis names a global coordinate axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "unknown"
	}
}

// Unit returns the unit vector along a.
func (a Axis) Unit() r3.Vec {
	switch a {
	case AxisX:
		return r3.Vec{X: 1}
	case AxisY:
		return r3.Vec{Y: 1}
	default:
		return r3.Vec{Z: 1}
	}
}

// Steps is a triple of quarter-turn counts about the global X, Y and Z axes.
type Steps [3]int

// IsZero reports whether s describes no rotation.
func (s Steps) IsZero() bool {
	return s == Steps{}
}

// StepsFromFloats converts loosely typed step values, as they arrive from
// scripts or config, into Steps. It fails with ErrInvalidInput unless there
// are exactly three integral values within int32 range.
func StepsFromFloats(vals []float64) (Steps, error) {
	if len(vals) != 3 {
		return Steps{}, fmt.Errorf("%w: rotation steps need 3 values, got %d", ErrInvalidInput, len(vals))
	}
	var s Steps
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return Steps{}, fmt.Errorf("%w: rotation step %s=%v is not an integer", ErrInvalidInput, Axis(i), v)
		}
		if math.Abs(v) > math.MaxInt32 {
			return Steps{}, fmt.Errorf("%w: rotation step %s=%v is out of range", ErrInvalidInput, Axis(i), v)
		}
		s[i] = int(v)
	}
	return s, nil
}

// quarterTurn returns the exact rotation by n·90° about axis. Using the
// lookup table keeps grid rotations free of cos(π/2) rounding noise.
func quarterTurn(axis Axis, n int) Mat3 {
	var c, s float64
	switch ((n % 4) + 4) % 4 {
	case 0:
		c, s = 1, 0
	case 1:
		c, s = 0, 1
	case 2:
		c, s = -1, 0
	case 3:
		c, s = 0, -1
	}
	switch axis {
	case AxisX:
		return Mat3{
			{1, 0, 0},
			{0, c, -s},
			{0, s, c},
		}
	case AxisY:
		return Mat3{
			{c, 0, s},
			{0, 1, 0},
			{-s, 0, c},
		}
	default:
		return Mat3{
			{c, -s, 0},
			{s, c, 0},
			{0, 0, 1},
		}
	}
}

// StepRotation composes quarter turns about global X, then Y, then Z. Each
// turn is applied on the left of the accumulated rotation.
func StepRotation(s Steps) Mat3 {
	R := Identity()
	for i, n := range s {
		if n == 0 {
			continue
		}
		R = quarterTurn(Axis(i), n).Mul(R)
	}
	return R
}

// AlignVectors returns the minimal rotation taking the direction of from onto
// the direction of to. Magnitudes are ignored.
//
// When the vectors are opposite the rotation is π about unit(from × e), where
// e is the global axis along which from has the smallest absolute component
// (ties resolved X, Y, Z in that order).
func AlignVectors(from, to r3.Vec) (Mat3, error) {
	if r3.Norm(from) == 0 || r3.Norm(to) == 0 {
		return Mat3{}, fmt.Errorf("%w: cannot align zero-length vector", ErrInvalidInput)
	}
	f := r3.Unit(from)
	t := r3.Unit(to)

	c := r3.Cross(f, t)
	s := r3.Norm(c)
	d := r3.Dot(f, t)

	if s < parallelEps {
		if d > 0 {
			return Identity(), nil
		}
		return halfTurn(f), nil
	}

	// Rodrigues: R = I + sinθ·K + (1 − cosθ)·K², with sinθ = s and cosθ = d.
	K := skew(r3.Scale(1/s, c))
	return Identity().add(K.scale(s)).add(K.Mul(K).scale(1 - d)), nil
}

// halfTurn returns a π rotation about an axis perpendicular to unit vector f.
func halfTurn(f r3.Vec) Mat3 {
	a := r3.Unit(r3.Cross(f, leastAlignedAxis(f).Unit()))
	// R = 2aaᵀ − I
	return outer(a, a).scale(2).add(Identity().scale(-1))
}

func leastAlignedAxis(f r3.Vec) Axis {
	ax, ay, az := math.Abs(f.X), math.Abs(f.Y), math.Abs(f.Z)
	switch {
	case ax <= ay && ax <= az:
		return AxisX
	case ay <= az:
		return AxisY
	default:
		return AxisZ
	}
}

// AxisAngle converts a rotation matrix into a unit axis and an angle in
// degrees in [0, 180]. For the identity (within Tolerance) the angle is 0 and
// the axis is +X.
func AxisAngle(R Mat3) (axis r3.Vec, angle float64) {
	if R.IsIdentity(Tolerance) {
		return AxisX.Unit(), 0
	}
	cos := math.Max(-1, math.Min(1, (R.Trace()-1)/2))
	theta := math.Acos(cos)

	if math.Pi-theta < 1e-6 {
		// R = 2aaᵀ − I, so (R + I)/2 = aaᵀ.
		B := R.add(Identity()).scale(0.5)
		i := 0
		for k := 1; k < 3; k++ {
			if B[k][k] > B[i][i] {
				i = k
			}
		}
		ai := math.Sqrt(B[i][i])
		comp := [3]float64{}
		for k := 0; k < 3; k++ {
			comp[k] = B[i][k] / ai
		}
		comp[i] = ai
		return r3.Unit(r3.Vec{X: comp[0], Y: comp[1], Z: comp[2]}), 180
	}

	axis = r3.Vec{
		X: R[2][1] - R[1][2],
		Y: R[0][2] - R[2][0],
		Z: R[1][0] - R[0][1],
	}
	return r3.Scale(1/(2*math.Sin(theta)), axis), theta * 180 / math.Pi
}

// EulerZYX decomposes R into angles in degrees such that
// R = Rz(z)·Ry(y)·Rx(x), the order used by CAD kernels that take Euler
// rotations. At gimbal lock z is fixed to 0.
func EulerZYX(R Mat3) (x, y, z float64) {
	const deg = 180 / math.Pi
	sy := -R[2][0]
	switch {
	case sy >= 1-1e-12:
		return math.Atan2(R[0][1], R[1][1]) * deg, 90, 0
	case sy <= -1+1e-12:
		return math.Atan2(-R[0][1], R[1][1]) * deg, -90, 0
	}
	x = math.Atan2(R[2][1], R[2][2])
	y = math.Asin(sy)
	z = math.Atan2(R[1][0], R[0][0])
	return x * deg, y * deg, z * deg
}
