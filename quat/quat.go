/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package quat implements the unit-quaternion math the synchronization
// core needs: normalization, the dot product, and shortest-arc SLERP.
// Orientation is represented as (w, x, y, z) with q and -q treated as
// the same orientation, as is standard for the unit quaternion double
// cover of SO(3).
package quat

import "math"

// epsilon below which a quaternion is considered degenerate, or two
// quaternions are considered near-parallel for SLERP purposes.
const epsilon = 1e-9

// Quaternion is a unit quaternion orientation (w, x, y, z).
type Quaternion struct {
	W, X, Y, Z float64
}

// Identity is the zero-rotation quaternion.
var Identity = Quaternion{W: 1}

// Norm returns the Euclidean norm of q.
func (q Quaternion) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Negate returns -q, the antipodal quaternion representing the same
// orientation.
func (q Quaternion) Negate() Quaternion {
	return Quaternion{W: -q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

// Scale returns q scaled by s.
func (q Quaternion) Scale(s float64) Quaternion {
	return Quaternion{W: q.W * s, X: q.X * s, Y: q.Y * s, Z: q.Z * s}
}

// Add returns the componentwise sum of q and o.
func (q Quaternion) Add(o Quaternion) Quaternion {
	return Quaternion{W: q.W + o.W, X: q.X + o.X, Y: q.Y + o.Y, Z: q.Z + o.Z}
}

// Normalize returns q scaled to unit norm. If q is degenerate
// (‖q‖ < epsilon) it fails safe and returns Identity rather than
// dividing by a near-zero norm.
func Normalize(q Quaternion) Quaternion {
	n := q.Norm()
	if n < epsilon {
		return Identity
	}
	return q.Scale(1 / n)
}

// Dot returns the dot product of a and b.
func Dot(a, b Quaternion) float64 {
	return a.W*b.W + a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

// Slerp performs spherical linear interpolation between unit
// quaternions a and b at t in [0,1], negating b for the shortest arc
// when their dot product is negative. Endpoints return the endpoint
// quaternion exactly, with no interpolation error at t=0 or t=1.
func Slerp(a, b Quaternion, t float64) Quaternion {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}

	d := Dot(a, b)
	if d < 0 {
		b = b.Negate()
		d = -d
	}

	// Near-parallel: acos is numerically unstable, fall back to linear
	// interpolation and renormalize.
	if d > 1-epsilon {
		return Normalize(Quaternion{
			W: a.W + t*(b.W-a.W),
			X: a.X + t*(b.X-a.X),
			Y: a.Y + t*(b.Y-a.Y),
			Z: a.Z + t*(b.Z-a.Z),
		})
	}

	theta := math.Acos(d)
	sinTheta := math.Sin(theta)
	wa := math.Sin((1-t)*theta) / sinTheta
	wb := math.Sin(t*theta) / sinTheta
	return a.Scale(wa).Add(b.Scale(wb))
}

// FromAxisAngle builds a unit quaternion representing a rotation of
// degrees around axis (x, y, z), which need not be normalized. It is a
// test/simulation helper: production orientation data arrives from the
// sensors already as quaternions, so nothing in the core itself builds
// one from an axis and angle.
func FromAxisAngle(x, y, z, degrees float64) Quaternion {
	axisNorm := math.Sqrt(x*x + y*y + z*z)
	if axisNorm < epsilon {
		return Identity
	}
	x, y, z = x/axisNorm, y/axisNorm, z/axisNorm
	rad := degrees * math.Pi / 180
	s := math.Sin(rad / 2)
	return Quaternion{W: math.Cos(rad / 2), X: x * s, Y: y * s, Z: z * s}
}

// ApproxEqual reports whether a and b represent the same orientation
// within tol, accounting for the q == -q double cover.
func ApproxEqual(a, b Quaternion, tol float64) bool {
	same := math.Abs(a.W-b.W) <= tol && math.Abs(a.X-b.X) <= tol &&
		math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
	if same {
		return true
	}
	nb := b.Negate()
	return math.Abs(a.W-nb.W) <= tol && math.Abs(a.X-nb.X) <= tol &&
		math.Abs(a.Y-nb.Y) <= tol && math.Abs(a.Z-nb.Z) <= tol
}
