// Package calibration turns an ellipsoid fit of raw sensor samples into a
// hard-iron and soft-iron correction.
//
// A three-axis magnetometer rotated through all orientations traces a sphere
// in a clean field. Constant offsets move that sphere (hard-iron) and
// scale/cross-coupling errors stretch it into an ellipsoid (soft-iron). The
// correction subtracts the fitted center and maps the fitted ellipsoid back
// onto a sphere:
//
//	corrected = W·(raw − center),  W = V·diag(scale/r)·Vᵀ
//
// where V holds the principal axes and r the radii of the fit.
package calibration

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"ellipsoidfit/pkg/ellipsoid"
)

var (
	// ErrMissingEigen is returned when the fit was run without eigen outputs.
	ErrMissingEigen = errors.New("calibration: fit result has no eigen decomposition")

	// ErrNotEllipsoid is returned when a radius is NaN, infinite or not positive.
	ErrNotEllipsoid = errors.New("calibration: fitted surface is not an ellipsoid")
)

// Correction maps raw samples onto a sphere of radius Scale centred at the origin.
type Correction struct {
	// Offset is the hard-iron offset, the fitted ellipsoid center.
	Offset [3]float64

	// Transform is the symmetric soft-iron matrix W.
	Transform *mat.Dense

	// Scale is the radius of the corrected sphere.
	Scale float64
}

// NewCorrection builds the correction for res, which must carry eigen
// outputs. If scale is not positive the geometric mean of the radii is used,
// which preserves the enclosed volume.
func NewCorrection(res ellipsoid.Result, scale float64) (*Correction, error) {
	if res.Eigenvectors == nil {
		return nil, ErrMissingEigen
	}
	for i, r := range res.Radii {
		if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
			return nil, fmt.Errorf("%w: radius %d is %g", ErrNotEllipsoid, i, r)
		}
	}

	if scale <= 0 {
		scale = math.Cbrt(res.Radii[0] * res.Radii[1] * res.Radii[2])
	}

	d := mat.NewDiagDense(3, []float64{
		scale / res.Radii[0],
		scale / res.Radii[1],
		scale / res.Radii[2],
	})
	var vd, w mat.Dense
	vd.Mul(res.Eigenvectors, d)
	w.Mul(&vd, res.Eigenvectors.T())

	return &Correction{
		Offset:    res.Center,
		Transform: &w,
		Scale:     scale,
	}, nil
}

// Apply corrects a single sample.
func (c *Correction) Apply(p [3]float64) [3]float64 {
	var out [3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i] += c.Transform.At(i, j) * (p[j] - c.Offset[j])
		}
	}
	return out
}

// ApplyAll corrects every row of the N×3 matrix points and returns the
// corrected samples as a new matrix.
func (c *Correction) ApplyAll(points mat.Matrix) *mat.Dense {
	n, cols := points.Dims()
	if cols != 3 {
		panic(mat.ErrShape)
	}
	centered := mat.NewDense(n, 3, nil)
	centered.Apply(func(i, j int, v float64) float64 {
		return v - c.Offset[j]
	}, points)

	var out mat.Dense
	out.Mul(centered, c.Transform.T())
	return &out
}
