package common

import (
	"math"
	"testing"
)

func quatApprox(t *testing.T, got, want [3]float32, tol float64, label string) {
	t.Helper()
	if float64(Vec3Distance(got, want)) > tol {
		t.Fatalf("%s: got %v, want %v", label, got, want)
	}
}

func TestQuatRotateAxisAngle(t *testing.T) {
	// 90 degrees about Z takes +X to +Y.
	half := math.Pi / 4
	q := [4]float32{0, 0, float32(math.Sin(half)), float32(math.Cos(half))}

	quatApprox(t, QuatRotate(q, [3]float32{1, 0, 0}), [3]float32{0, 1, 0}, 1e-6, "x axis")
	quatApprox(t, QuatRotate(q, [3]float32{0, 0, 1}), [3]float32{0, 0, 1}, 1e-6, "rotation axis")
}

func TestQuatMulComposesRightToLeft(t *testing.T) {
	half := math.Pi / 4
	aboutZ := [4]float32{0, 0, float32(math.Sin(half)), float32(math.Cos(half))}
	aboutX := [4]float32{float32(math.Sin(half)), 0, 0, float32(math.Cos(half))}

	// QuatMul(a, b) applies b first: +X -> +Y (by aboutZ), then +Y -> +Z (by aboutX).
	q := QuatMul(aboutX, aboutZ)
	quatApprox(t, QuatRotate(q, [3]float32{1, 0, 0}), [3]float32{0, 0, 1}, 1e-6, "composed")
}

func TestQuatConjugateInvertsRotation(t *testing.T) {
	q := QuatNormalize([4]float32{0.3, -0.2, 0.5, 0.9})
	v := [3]float32{0.25, -1, 2}

	quatApprox(t, QuatRotate(QuatConjugate(q), QuatRotate(q, v)), v, 1e-5, "roundtrip")
}

func TestQuatNormalizeDegenerate(t *testing.T) {
	if got := QuatNormalize([4]float32{0, 0, 0, 0}); got != QuatIdentity() {
		t.Fatalf("zero quaternion: %v", got)
	}
}

func TestQuatFromUnitVectors(t *testing.T) {
	from := [3]float32{1, 0, 0}
	to := Vec3Normalize([3]float32{1, 1, 0}, from)

	q := QuatFromUnitVectors(from, to)
	quatApprox(t, QuatRotate(q, from), to, 1e-6, "shortest arc")

	// Parallel inputs return identity exactly.
	if got := QuatFromUnitVectors(from, from); got != QuatIdentity() {
		t.Fatalf("parallel: %v", got)
	}
}

func TestQuatFromUnitVectorsAntiparallel(t *testing.T) {
	cases := [][3]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		Vec3Normalize([3]float32{1, 1, 1}, [3]float32{1, 0, 0}),
	}
	for _, from := range cases {
		to := Vec3Scale(from, -1)
		q := QuatFromUnitVectors(from, to)
		quatApprox(t, QuatRotate(q, from), to, 1e-5, "antiparallel")
	}
}

func TestQuatFromMatrix3RoundTrip(t *testing.T) {
	half := math.Pi / 6
	q := [4]float32{0, float32(math.Sin(half)), 0, float32(math.Cos(half))}

	// Row-major rotation matrix for the same rotation.
	var m [16]float32
	ComposeTRS(m[:], [3]float32{0, 0, 0}, q, [3]float32{1, 1, 1})
	rowMajor := [9]float32{
		m[0], m[4], m[8],
		m[1], m[5], m[9],
		m[2], m[6], m[10],
	}

	got := QuatFromMatrix3(rowMajor)
	v := [3]float32{0.4, 0.7, -0.1}
	quatApprox(t, QuatRotate(got, v), QuatRotate(q, v), 1e-5, "matrix roundtrip")
}
