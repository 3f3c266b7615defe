package common

import (
	"math"
	"testing"
)

func TestMul4Identity(t *testing.T) {
	var ident, m, out [16]float32
	Identity(ident[:])
	for i := range m {
		m[i] = float32(i) * 0.5
	}

	Mul4(out[:], ident[:], m[:])
	if out != m {
		t.Fatalf("identity * m changed m: %v", out)
	}
	Mul4(out[:], m[:], ident[:])
	if out != m {
		t.Fatalf("m * identity changed m: %v", out)
	}
}

func TestMul4AllowsAliasedOutput(t *testing.T) {
	var a, b, want [16]float32
	ComposeTRS(a[:], [3]float32{1, 2, 3}, QuatIdentity(), [3]float32{1, 1, 1})
	ComposeTRS(b[:], [3]float32{-1, 0, 5}, QuatIdentity(), [3]float32{2, 2, 2})
	Mul4(want[:], a[:], b[:])

	// Writing the result over one of the inputs must still be correct.
	Mul4(a[:], a[:], b[:])
	if a != want {
		t.Fatalf("aliased multiply diverged: %v vs %v", a, want)
	}
}

func TestComposeTRSTransformPoint(t *testing.T) {
	half := math.Pi / 4
	q := [4]float32{0, 0, float32(math.Sin(half)), float32(math.Cos(half))}

	var m [16]float32
	ComposeTRS(m[:], [3]float32{10, 0, 0}, q, [3]float32{2, 2, 2})

	// Scale by 2, rotate +X onto +Y, then translate.
	got := TransformPoint(m[:], [3]float32{1, 0, 0})
	if Vec3Distance(got, [3]float32{10, 2, 0}) > 1e-5 {
		t.Fatalf("TransformPoint: %v", got)
	}

	// Directions ignore the translation column.
	dir := TransformDirection(m[:], [3]float32{1, 0, 0})
	if Vec3Distance(dir, [3]float32{0, 2, 0}) > 1e-5 {
		t.Fatalf("TransformDirection: %v", dir)
	}
}

func TestInvert4RoundTrip(t *testing.T) {
	half := math.Pi / 3
	q := [4]float32{float32(math.Sin(half)), 0, 0, float32(math.Cos(half))}

	var m, inv, out [16]float32
	ComposeTRS(m[:], [3]float32{1, -2, 0.5}, q, [3]float32{1.5, 1.5, 1.5})

	if !Invert4(inv[:], m[:]) {
		t.Fatal("invertible matrix reported singular")
	}
	Mul4(out[:], m[:], inv[:])

	var ident [16]float32
	Identity(ident[:])
	for i := range out {
		if math.Abs(float64(out[i]-ident[i])) > 1e-5 {
			t.Fatalf("element %d: %v", i, out[i])
		}
	}
}

func TestInvert4Singular(t *testing.T) {
	var m, out [16]float32 // all zeros
	out[3] = 42
	if Invert4(out[:], m[:]) {
		t.Fatal("singular matrix reported invertible")
	}
	if out[3] != 42 {
		t.Fatal("output modified for singular input")
	}
}

func TestSliceToBytes(t *testing.T) {
	if SliceToBytes([]float32(nil)) != nil {
		t.Fatal("empty slice should map to nil")
	}

	data := []float32{1, 2}
	raw := SliceToBytes(data)
	if len(raw) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(raw))
	}

	// The view shares memory with the source slice.
	data[0] = 3
	want := math.Float32bits(3)
	got := uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16 | uint32(raw[3])<<24
	if got != want {
		t.Fatalf("byte view out of sync: %#x vs %#x", got, want)
	}
}
