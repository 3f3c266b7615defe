package common

import "math"

// QuatIdentity returns the identity quaternion (x, y, z, w).
func QuatIdentity() [4]float32 {
	return [4]float32{0, 0, 0, 1}
}

// QuatMul returns the Hamilton product a * b, the rotation b followed by a.
func QuatMul(a, b [4]float32) [4]float32 {
	ax, ay, az, aw := a[0], a[1], a[2], a[3]
	bx, by, bz, bw := b[0], b[1], b[2], b[3]
	return [4]float32{
		aw*bx + ax*bw + ay*bz - az*by,
		aw*by - ax*bz + ay*bw + az*bx,
		aw*bz + ax*by - ay*bx + az*bw,
		aw*bw - ax*bx - ay*by - az*bz,
	}
}

// QuatConjugate returns the conjugate of q. For unit quaternions this is the
// inverse rotation.
func QuatConjugate(q [4]float32) [4]float32 {
	return [4]float32{-q[0], -q[1], -q[2], q[3]}
}

// QuatNormalize returns q scaled to unit length, or the identity quaternion
// when q is degenerate.
func QuatNormalize(q [4]float32) [4]float32 {
	lenSq := q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3]
	if lenSq < Vec3Epsilon*Vec3Epsilon {
		return QuatIdentity()
	}
	inv := 1.0 / float32(math.Sqrt(float64(lenSq)))
	return [4]float32{q[0] * inv, q[1] * inv, q[2] * inv, q[3] * inv}
}

// QuatRotate applies the rotation q to the vector v.
//
// Parameters:
//   - q: unit quaternion (x, y, z, w)
//   - v: the vector to rotate
//
// Returns:
//   - [3]float32: the rotated vector
func QuatRotate(q [4]float32, v [3]float32) [3]float32 {
	// v' = v + 2 * cross(q.xyz, cross(q.xyz, v) + q.w * v)
	u := [3]float32{q[0], q[1], q[2]}
	t := Vec3Cross(u, Vec3Add(Vec3Cross(u, v), Vec3Scale(v, q[3])))
	return Vec3Add(v, Vec3Scale(t, 2))
}

// QuatFromUnitVectors returns the shortest-arc rotation taking unit vector
// from onto unit vector to. Antiparallel inputs rotate 180 degrees around an
// arbitrary perpendicular axis; near-parallel inputs return identity.
//
// Parameters:
//   - from: unit-length source direction
//   - to: unit-length target direction
//
// Returns:
//   - [4]float32: unit quaternion rotating from onto to
func QuatFromUnitVectors(from, to [3]float32) [4]float32 {
	d := Vec3Dot(from, to)

	if d > 1-Vec3Epsilon {
		return QuatIdentity()
	}

	if d < -1+Vec3Epsilon {
		// Antiparallel: pick any axis perpendicular to from.
		axis := Vec3Cross([3]float32{1, 0, 0}, from)
		if Vec3LengthSq(axis) < Vec3Epsilon {
			axis = Vec3Cross([3]float32{0, 1, 0}, from)
		}
		axis = Vec3Normalize(axis, [3]float32{0, 0, 1})
		return [4]float32{axis[0], axis[1], axis[2], 0}
	}

	c := Vec3Cross(from, to)
	w := 1 + d
	return QuatNormalize([4]float32{c[0], c[1], c[2], w})
}

// QuatFromMatrix3 converts a 3x3 rotation matrix to a quaternion.
// Matrix is in row-major order: [r00, r01, r02, r10, r11, r12, r20, r21, r22].
// Returns quaternion as [x, y, z, w].
func QuatFromMatrix3(m [9]float32) [4]float32 {
	r00, r01, r02 := m[0], m[1], m[2]
	r10, r11, r12 := m[3], m[4], m[5]
	r20, r21, r22 := m[6], m[7], m[8]

	trace := r00 + r11 + r22

	var x, y, z, w float32

	if trace > 0 {
		s := float32(math.Sqrt(float64(trace+1.0))) * 2
		w = 0.25 * s
		x = (r21 - r12) / s
		y = (r02 - r20) / s
		z = (r10 - r01) / s
	} else if r00 > r11 && r00 > r22 {
		s := float32(math.Sqrt(float64(1.0+r00-r11-r22))) * 2
		w = (r21 - r12) / s
		x = 0.25 * s
		y = (r01 + r10) / s
		z = (r02 + r20) / s
	} else if r11 > r22 {
		s := float32(math.Sqrt(float64(1.0+r11-r00-r22))) * 2
		w = (r02 - r20) / s
		x = (r01 + r10) / s
		y = 0.25 * s
		z = (r12 + r21) / s
	} else {
		s := float32(math.Sqrt(float64(1.0+r22-r00-r11))) * 2
		w = (r10 - r01) / s
		x = (r02 + r20) / s
		y = (r12 + r21) / s
		z = 0.25 * s
	}

	return QuatNormalize([4]float32{x, y, z, w})
}
