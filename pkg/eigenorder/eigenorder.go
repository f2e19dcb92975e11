// Package eigenorder gives the eigenpairs of a real symmetric 3×3 matrix a
// reproducible order and orientation.
//
// Eigensolvers are free to return the three eigenpairs in any order and with
// either sign on each eigenvector. LeastRotationAngle resolves that freedom by
// treating the eigenvector matrix as a rotation away from the reference frame
// and choosing, among all relabelings that keep it a proper rotation, the one
// with the smallest rotation angle.
package eigenorder

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// tieTolerance is how much larger a candidate's trace must be before it
// replaces an earlier candidate. Candidates closer than this are ties and the
// earliest in enumeration order wins.
const tieTolerance = 1e-12

// permutations lists the column orders in lexicographic order.
var permutations = [6][3]int{
	{0, 1, 2},
	{0, 2, 1},
	{1, 0, 2},
	{1, 2, 0},
	{2, 0, 1},
	{2, 1, 0},
}

// signs returns the sign pattern for mask, where bit j set flips column j.
// Mask 0 is the all-positive pattern.
func signs(mask int) [3]float64 {
	s := [3]float64{1, 1, 1}
	for j := 0; j < 3; j++ {
		if mask&(1<<j) != 0 {
			s[j] = -1
		}
	}
	return s
}

// LeastRotationAngle reorders and re-signs the eigenvector columns in vectors,
// and permutes values to match, so that vectors becomes the proper rotation
// (determinant +1) with the smallest axis-angle magnitude among the 48
// permutation and sign combinations. It returns that angle in radians.
//
// Candidates are visited in lexicographic permutation order and, within a
// permutation, in increasing sign mask order. A later candidate only replaces
// the current choice if its trace is larger by more than tieTolerance, so the
// result is a pure function of the input matrix even when eigenvalues repeat.
//
// If no candidate is a proper rotation (for example when vectors holds NaN),
// the inputs are left untouched and NaN is returned.
func LeastRotationAngle(values *mat.VecDense, vectors *mat.Dense) float64 {
	if r, c := vectors.Dims(); r != 3 || c != 3 {
		panic(mat.ErrShape)
	}
	if values.Len() != 3 {
		panic(mat.ErrShape)
	}

	var src [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			src[i][j] = vectors.At(i, j)
		}
	}

	var (
		found     bool
		bestTrace float64
		bestPerm  [3]int
		bestSigns [3]float64
	)
	candidate := mat.NewDense(3, 3, nil)
	for _, perm := range permutations {
		for mask := 0; mask < 8; mask++ {
			s := signs(mask)
			for i := 0; i < 3; i++ {
				for j := 0; j < 3; j++ {
					candidate.Set(i, j, s[j]*src[i][perm[j]])
				}
			}
			if !(mat.Det(candidate) > 0) {
				continue
			}
			tr := mat.Trace(candidate)
			if !found || tr > bestTrace+tieTolerance {
				found = true
				bestTrace = tr
				bestPerm = perm
				bestSigns = s
			}
		}
	}
	if !found {
		return math.NaN()
	}

	var vals [3]float64
	for j := 0; j < 3; j++ {
		vals[j] = values.AtVec(bestPerm[j])
	}
	for j := 0; j < 3; j++ {
		values.SetVec(j, vals[j])
		for i := 0; i < 3; i++ {
			vectors.Set(i, j, bestSigns[j]*src[i][bestPerm[j]])
		}
	}
	return angleFromTrace(bestTrace)
}

// RotationAngle returns the axis-angle magnitude, in radians, of the 3×3
// rotation matrix r.
func RotationAngle(r mat.Matrix) float64 {
	return angleFromTrace(mat.Trace(r))
}

func angleFromTrace(tr float64) float64 {
	c := (tr - 1) / 2
	// Rounding can push a near-identity trace just past 3.
	c = math.Max(-1, math.Min(1, c))
	return math.Acos(c)
}
