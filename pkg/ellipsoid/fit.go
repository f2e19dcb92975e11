// Package ellipsoid fits an algebraic quadric surface to a cloud of 3D points
// and reduces it to a center and principal radii.
//
// The fit is closed form: a type-specific linear least squares problem is
// solved for the quadric coefficients, the quadric is translated to its
// center, and the remaining quadratic form is diagonalized. There is no
// error path. Rank-deficient inputs fall back to minimum-norm solutions and
// non-ellipsoidal fits come back as NaN radii.
package ellipsoid

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"ellipsoidfit/pkg/eigenorder"
)

// Result holds the fitted parameters and the optional intermediate outputs.
// The optional fields are nil unless requested through Outputs.
type Result struct {
	Parameters

	// Coefficients are the ten quadric coefficients (A, B, C, D, E, F, G,
	// H, I, J) normalized so that A + B + C = -3.
	Coefficients *mat.VecDense

	// Eigenvalues of the centered, normalized quadratic form after
	// canonicalization. Radii[i] = 1/sqrt(Eigenvalues[i]).
	Eigenvalues *mat.VecDense

	// Eigenvectors holds the principal axes as columns, in the same order
	// as Eigenvalues.
	Eigenvectors *mat.Dense
}

// Fit fits a surface of type t to points, an N×3 matrix with one point per
// row, and returns its center and radii.
func Fit(points mat.Matrix, t Type) Parameters {
	return FitDetailed(points, t, Outputs{}).Parameters
}

// FitDetailed runs the full fit and additionally returns the intermediate
// outputs selected by want. points is read but never modified, and at least
// nine well spread points are needed for the Arbitrary fit to be well posed.
// FitDetailed is safe for concurrent use on independent inputs.
func FitDetailed(points mat.Matrix, t Type, want Outputs) Result {
	vt := lookup(t)

	// Least squares against x² + y² + z² via the normal equations
	d := DesignMatrix(points, t)
	n, _ := d.Dims()
	d2 := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x, y, z := points.At(i, 0), points.At(i, 1), points.At(i, 2)
		d2.SetVec(i, x*x+y*y+z*z)
	}

	var dtd mat.Dense
	dtd.Mul(d.T(), d)
	var dtb mat.VecDense
	dtb.MulVec(d.T(), d2)
	u := solveMinNorm(&dtd, &dtb)

	coeffs := make([]float64, 10)
	vt.expand(coeffs, u.RawVector().Data)
	v := mat.NewVecDense(10, coeffs)

	// Center of the quadric
	a := QuadricMatrix(v)
	quad := a.SliceSym(0, 3)
	linear := mat.NewVecDense(3, []float64{-coeffs[6], -coeffs[7], -coeffs[8]})
	center := solveMinNorm(quad, linear)

	// Translate to the center: R = T·A·Tᵀ
	tr := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		tr.Set(i, i, 1)
	}
	for j := 0; j < 3; j++ {
		tr.Set(3, j, center.AtVec(j))
	}
	var ta, r mat.Dense
	ta.Mul(tr, a)
	r.Mul(&ta, tr.T())

	// The block is symmetric up to rounding, so the symmetric solver applies
	// and the eigenvalues are real.
	scale := -r.At(3, 3)
	form := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			form.SetSym(i, j, (r.At(i, j)+r.At(j, i))/2/scale)
		}
	}
	evals, evecs := eigen(form)
	eigenorder.LeastRotationAngle(evals, evecs)

	var res Result
	for i := 0; i < 3; i++ {
		res.Center[i] = center.AtVec(i)
		res.Radii[i] = math.Sqrt(1 / evals.AtVec(i))
	}
	if want.Coefficients {
		res.Coefficients = v
	}
	if want.Eigen {
		res.Eigenvalues = evals
		res.Eigenvectors = evecs
	}
	return res
}

// DesignMatrix builds the N×k least squares design matrix for t, where k is
// t.Columns().
func DesignMatrix(points mat.Matrix, t Type) *mat.Dense {
	vt := lookup(t)
	n, c := points.Dims()
	if c != 3 {
		panic(mat.ErrShape)
	}
	d := mat.NewDense(n, vt.columns, nil)
	raw := d.RawMatrix()
	for i := 0; i < n; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+vt.columns]
		vt.row(row, points.At(i, 0), points.At(i, 1), points.At(i, 2))
	}
	return d
}

// rankTolerance scales machine epsilon by the system size to decide which
// singular values are treated as zero.
func rankTolerance(a mat.Matrix) float64 {
	r, c := a.Dims()
	return float64(min(r, c)) * 0x1p-52
}

// solveMinNorm returns the minimum-norm least squares solution of a·x = b.
// Singular values below the rank tolerance are dropped, so singular and
// ill-conditioned systems still produce a finite answer. A non-finite system
// or a failed factorization gives a NaN solution.
func solveMinNorm(a mat.Matrix, b mat.Vector) *mat.VecDense {
	_, n := a.Dims()
	x := mat.NewVecDense(n, nil)

	var svd mat.SVD
	if !finite(a) || !svd.Factorize(a, mat.SVDFull) {
		for i := 0; i < n; i++ {
			x.SetVec(i, math.NaN())
		}
		return x
	}
	rank := svd.Rank(rankTolerance(a))
	if rank == 0 {
		return x
	}
	svd.SolveVecTo(x, b, rank)
	return x
}

func finite(a mat.Matrix) bool {
	r, c := a.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := a.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// eigen diagonalizes the symmetric 3×3 form. A failed factorization yields
// NaN eigenvalues with the identity as eigenvectors.
func eigen(form *mat.SymDense) (*mat.VecDense, *mat.Dense) {
	var es mat.EigenSym
	if !finite(form) || !es.Factorize(form, true) {
		vals := mat.NewVecDense(3, []float64{math.NaN(), math.NaN(), math.NaN()})
		vecs := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
		return vals, vecs
	}
	vals := mat.NewVecDense(3, es.Values(nil))
	vecs := mat.NewDense(3, 3, nil)
	es.VectorsTo(vecs)
	return vals, vecs
}
