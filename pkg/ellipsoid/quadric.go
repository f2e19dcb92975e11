package ellipsoid

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// QuadricMatrix returns the symmetric 4×4 homogeneous matrix of the quadric
// with coefficients v, so that [x y z 1]·Q·[x y z 1]ᵀ = Evaluate(v, x, y, z).
func QuadricMatrix(v mat.Vector) *mat.SymDense {
	if v.Len() != 10 {
		panic(mat.ErrShape)
	}
	return mat.NewSymDense(4, []float64{
		v.AtVec(0), v.AtVec(3), v.AtVec(4), v.AtVec(6),
		v.AtVec(3), v.AtVec(1), v.AtVec(5), v.AtVec(7),
		v.AtVec(4), v.AtVec(5), v.AtVec(2), v.AtVec(8),
		v.AtVec(6), v.AtVec(7), v.AtVec(8), v.AtVec(9),
	})
}

// Evaluate returns the value of the general quadric polynomial with
// coefficients v at (x, y, z). Points on the surface evaluate to zero.
func Evaluate(v mat.Vector, x, y, z float64) float64 {
	if v.Len() != 10 {
		panic(mat.ErrShape)
	}
	return v.AtVec(0)*x*x + v.AtVec(1)*y*y + v.AtVec(2)*z*z +
		2*(v.AtVec(3)*x*y+v.AtVec(4)*x*z+v.AtVec(5)*y*z) +
		2*(v.AtVec(6)*x+v.AtVec(7)*y+v.AtVec(8)*z) +
		v.AtVec(9)
}

// Residuals evaluates the quadric v at every row of points.
func Residuals(points mat.Matrix, v mat.Vector) []float64 {
	n, _ := points.Dims()
	res := make([]float64, n)
	for i := range res {
		res[i] = Evaluate(v, points.At(i, 0), points.At(i, 1), points.At(i, 2))
	}
	return res
}

// Quality summarizes the algebraic residuals of a fit.
type Quality struct {
	N      int     `yaml:"n"`
	RMSE   float64 `yaml:"rmse"`
	Mean   float64 `yaml:"mean"`
	StdDev float64 `yaml:"stdDev"`
	MaxAbs float64 `yaml:"maxAbs"`
}

// Assess computes residual statistics of points against the quadric v.
// Residuals are algebraic, in the A + B + C = -3 normalization, not
// Euclidean distances to the surface.
func Assess(points mat.Matrix, v mat.Vector) Quality {
	res := Residuals(points, v)
	q := Quality{N: len(res)}
	if q.N == 0 {
		return q
	}

	q.Mean, q.StdDev = stat.MeanStdDev(res, nil)
	q.RMSE = math.Sqrt(floats.Dot(res, res) / float64(q.N))

	abs := make([]float64, len(res))
	for i, r := range res {
		abs[i] = math.Abs(r)
	}
	q.MaxAbs = floats.Max(abs)
	return q
}
