package stl

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// ErrNotFinite is returned when a surface cannot be meshed because its
// center or radii are NaN or infinite.
var ErrNotFinite = errors.New("stl: surface parameters are not finite")

// EllipsoidMesh triangulates the ellipsoid with the given center and radii.
// axes holds the principal directions as columns matching radii; nil means
// the coordinate axes. The surface is sampled on a latitude/longitude grid
// of stacks bands and slices sectors, and every facet faces outward.
func EllipsoidMesh(center, radii [3]float64, axes mat.Matrix, stacks, slices int) ([]Triangle, error) {
	if stacks < 2 || slices < 3 {
		return nil, fmt.Errorf("mesh resolution too low: %d stacks, %d slices", stacks, slices)
	}
	for k := 0; k < 3; k++ {
		if !isFinite(center[k]) || !isFinite(radii[k]) {
			return nil, ErrNotFinite
		}
	}

	var basis [3]r3.Vector
	for k := 0; k < 3; k++ {
		if axes == nil {
			basis[k] = unit(k)
		} else {
			basis[k] = r3.Vector{X: axes.At(0, k), Y: axes.At(1, k), Z: axes.At(2, k)}
		}
		basis[k] = basis[k].Mul(radii[k])
	}
	c := r3.Vector{X: center[0], Y: center[1], Z: center[2]}

	point := func(i, j int) r3.Vector {
		sinPhi, cosPhi := math.Sincos(math.Pi * float64(i) / float64(stacks))
		if i == stacks {
			// sin(π) is not exactly zero; pin the south pole
			sinPhi, cosPhi = 0, -1
		}
		sinTheta, cosTheta := math.Sincos(2 * math.Pi * float64(j%slices) / float64(slices))
		return c.
			Add(basis[0].Mul(sinPhi * cosTheta)).
			Add(basis[1].Mul(sinPhi * sinTheta)).
			Add(basis[2].Mul(cosPhi))
	}

	triangles := make([]Triangle, 0, 2*stacks*slices)
	add := func(a, b, d r3.Vector) {
		n := b.Sub(a).Cross(d.Sub(a))
		if n.Norm() == 0 {
			return // collapsed at a pole
		}
		centroid := a.Add(b).Add(d).Mul(1.0 / 3)
		if n.Dot(centroid.Sub(c)) < 0 {
			b, d = d, b
			n = n.Mul(-1)
		}
		triangles = append(triangles, Triangle{
			Normal:  toFloat32(n.Normalize()),
			Vertex1: toFloat32(a),
			Vertex2: toFloat32(b),
			Vertex3: toFloat32(d),
		})
	}

	for i := 0; i < stacks; i++ {
		for j := 0; j < slices; j++ {
			p00, p10 := point(i, j), point(i+1, j)
			p11, p01 := point(i+1, j+1), point(i, j+1)
			add(p00, p10, p11)
			add(p00, p11, p01)
		}
	}
	return triangles, nil
}

func unit(k int) r3.Vector {
	switch k {
	case 0:
		return r3.Vector{X: 1}
	case 1:
		return r3.Vector{Y: 1}
	default:
		return r3.Vector{Z: 1}
	}
}

func toFloat32(v r3.Vector) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
