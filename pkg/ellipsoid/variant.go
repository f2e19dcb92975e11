package ellipsoid

// The quadric is written as
//
//	Ax² + By² + Cz² + 2Dxy + 2Exz + 2Fyz + 2Gx + 2Hy + 2Iz + J = 0
//
// and normalized so that A + B + C = -3. Substituting the normalization
// removes one quadratic coefficient, which turns the homogeneous fit into the
// linear least squares problem D·u = x² + y² + z². Each variant below pairs
// the columns of D with the mapping from u back to the ten coefficients
// v = (A, B, C, D, E, F, G, H, I, J).

// variant binds a Type to its design matrix layout and back-substitution.
type variant struct {
	columns int
	row     func(dst []float64, x, y, z float64)
	expand  func(v, u []float64)
}

var variants = [...]variant{
	Arbitrary: {
		columns: 9,
		row: func(dst []float64, x, y, z float64) {
			dst[0], dst[1] = squaresXY(x, y, z), squaresXZ(x, y, z)
			crossTerms(dst[2:5], x, y, z)
			linearTerms(dst[5:9], x, y, z)
		},
		expand: func(v, u []float64) {
			expandFree(v, u[0], u[1])
			copy(v[3:10], u[2:9])
		},
	},
	XYEqual: {
		columns: 8,
		row: func(dst []float64, x, y, z float64) {
			dst[0] = squaresXY(x, y, z)
			crossTerms(dst[1:4], x, y, z)
			linearTerms(dst[4:8], x, y, z)
		},
		expand: func(v, u []float64) {
			expandXYEqual(v, u[0])
			copy(v[3:10], u[1:8])
		},
	},
	XZEqual: {
		columns: 8,
		row: func(dst []float64, x, y, z float64) {
			dst[0] = squaresXZ(x, y, z)
			crossTerms(dst[1:4], x, y, z)
			linearTerms(dst[4:8], x, y, z)
		},
		expand: func(v, u []float64) {
			expandXZEqual(v, u[0])
			copy(v[3:10], u[1:8])
		},
	},
	Sphere: {
		columns: 4,
		row: func(dst []float64, x, y, z float64) {
			linearTerms(dst[0:4], x, y, z)
		},
		expand: func(v, u []float64) {
			v[0], v[1], v[2] = -1, -1, -1
			v[3], v[4], v[5] = 0, 0, 0
			copy(v[6:10], u[0:4])
		},
	},
	Aligned: {
		columns: 6,
		row: func(dst []float64, x, y, z float64) {
			dst[0], dst[1] = squaresXY(x, y, z), squaresXZ(x, y, z)
			linearTerms(dst[2:6], x, y, z)
		},
		expand: func(v, u []float64) {
			expandFree(v, u[0], u[1])
			v[3], v[4], v[5] = 0, 0, 0
			copy(v[6:10], u[2:6])
		},
	},
	AlignedXYEqual: {
		columns: 5,
		row: func(dst []float64, x, y, z float64) {
			dst[0] = squaresXY(x, y, z)
			linearTerms(dst[1:5], x, y, z)
		},
		expand: func(v, u []float64) {
			expandXYEqual(v, u[0])
			v[3], v[4], v[5] = 0, 0, 0
			copy(v[6:10], u[1:5])
		},
	},
	AlignedXZEqual: {
		columns: 5,
		row: func(dst []float64, x, y, z float64) {
			dst[0] = squaresXZ(x, y, z)
			linearTerms(dst[1:5], x, y, z)
		},
		expand: func(v, u []float64) {
			expandXZEqual(v, u[0])
			v[3], v[4], v[5] = 0, 0, 0
			copy(v[6:10], u[1:5])
		},
	},
}

// lookup returns the variant for t. An out-of-range Type is a programming
// error.
func lookup(t Type) variant {
	if t < 0 || int(t) >= len(variants) {
		panic("ellipsoid: unknown type " + t.String())
	}
	return variants[t]
}

// Columns returns the width of the design matrix used for t.
func (t Type) Columns() int {
	return lookup(t).columns
}

func squaresXY(x, y, z float64) float64 { return x*x + y*y - 2*z*z }

func squaresXZ(x, y, z float64) float64 { return x*x + z*z - 2*y*y }

func crossTerms(dst []float64, x, y, z float64) {
	dst[0] = 2 * x * y
	dst[1] = 2 * x * z
	dst[2] = 2 * y * z
}

func linearTerms(dst []float64, x, y, z float64) {
	dst[0] = 2 * x
	dst[1] = 2 * y
	dst[2] = 2 * z
	dst[3] = 1
}

func expandFree(v []float64, u0, u1 float64) {
	v[0] = u0 + u1 - 1
	v[1] = u0 - 2*u1 - 1
	v[2] = u1 - 2*u0 - 1
}

func expandXYEqual(v []float64, u0 float64) {
	v[0] = u0 - 1
	v[1] = u0 - 1
	v[2] = -2*u0 - 1
}

func expandXZEqual(v []float64, u0 float64) {
	v[0] = u0 - 1
	v[1] = -2*u0 - 1
	v[2] = u0 - 1
}
