// package common contains common math types and helpers that are used throughout this engine. They are not interface-wrapped structs, just plain
// functions over flat float32 arrays and slices, matching the layouts uploaded to the GPU.
package common

import "math"

// Vec3Epsilon is the threshold below which vector lengths and distances are
// treated as zero. Normalization and division guard against values under this
// bound so degenerate inputs never produce NaN or Inf.
const Vec3Epsilon = 1e-6

// Vec3Add returns a + b component-wise.
func Vec3Add(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// Vec3Sub returns a - b component-wise.
func Vec3Sub(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// Vec3Scale returns v scaled by s.
func Vec3Scale(v [3]float32, s float32) [3]float32 {
	return [3]float32{v[0] * s, v[1] * s, v[2] * s}
}

// Vec3Dot returns the dot product of a and b.
func Vec3Dot(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// Vec3Cross returns the cross product a × b.
func Vec3Cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Vec3Length returns the Euclidean length of v.
func Vec3Length(v [3]float32) float32 {
	return float32(math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
}

// Vec3LengthSq returns the squared length of v. Preferred for comparisons
// since it avoids the square root.
func Vec3LengthSq(v [3]float32) float32 {
	return v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
}

// Vec3Distance returns the Euclidean distance between a and b.
func Vec3Distance(a, b [3]float32) float32 {
	return Vec3Length(Vec3Sub(a, b))
}

// Vec3Normalize returns v scaled to unit length. If the length of v is below
// Vec3Epsilon the fallback vector is returned instead, so callers never
// receive a NaN component from a degenerate input.
//
// Parameters:
//   - v: the vector to normalize
//   - fallback: the vector to return when v is (near-)zero length
//
// Returns:
//   - [3]float32: the unit-length vector, or fallback
func Vec3Normalize(v, fallback [3]float32) [3]float32 {
	lenSq := Vec3LengthSq(v)
	if lenSq < Vec3Epsilon*Vec3Epsilon {
		return fallback
	}
	inv := 1.0 / float32(math.Sqrt(float64(lenSq)))
	return [3]float32{v[0] * inv, v[1] * inv, v[2] * inv}
}

// Vec3ClampLength returns v unchanged when its length is at most maxLen,
// otherwise v rescaled to exactly maxLen. The direction is always preserved;
// the vector is never discarded outright.
//
// Parameters:
//   - v: the vector to clamp
//   - maxLen: the maximum allowed length (must be > 0)
//
// Returns:
//   - [3]float32: the clamped vector
func Vec3ClampLength(v [3]float32, maxLen float32) [3]float32 {
	lenSq := Vec3LengthSq(v)
	if lenSq <= maxLen*maxLen {
		return v
	}
	scale := maxLen / float32(math.Sqrt(float64(lenSq)))
	return [3]float32{v[0] * scale, v[1] * scale, v[2] * scale}
}

// Vec3IsFinite reports whether every component of v is a finite number.
func Vec3IsFinite(v [3]float32) bool {
	for _, c := range v {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Smoothstep performs a Hermite interpolation between 0 and 1 as x moves
// across [edge0, edge1]. Values outside the band clamp to 0 or 1.
//
// Parameters:
//   - edge0: lower edge of the band
//   - edge1: upper edge of the band
//   - x: the input value
//
// Returns:
//   - float32: the smoothed factor in [0, 1]
func Smoothstep(edge0, edge1, x float32) float32 {
	if edge1 <= edge0 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := (x - edge0) / (edge1 - edge0)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return t * t * (3 - 2*t)
}
