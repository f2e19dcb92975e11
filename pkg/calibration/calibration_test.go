package calibration

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"ellipsoidfit/pkg/ellipsoid"
)

// distortedSphere simulates magnetometer readings of a field of strength 1
// seen through a soft-iron matrix and a hard-iron offset
func distortedSphere(softIron *mat.Dense, offset [3]float64) *mat.Dense {
	var rows []float64
	for i := 1; i < 12; i++ {
		phi := math.Pi * float64(i) / 12
		for j := 0; j < 18; j++ {
			theta := 2 * math.Pi * float64(j) / 18
			field := mat.NewVecDense(3, []float64{
				math.Sin(phi) * math.Cos(theta),
				math.Sin(phi) * math.Sin(theta),
				math.Cos(phi),
			})
			var raw mat.VecDense
			raw.MulVec(softIron, field)
			rows = append(rows, raw.AtVec(0)+offset[0], raw.AtVec(1)+offset[1], raw.AtVec(2)+offset[2])
		}
	}
	return mat.NewDense(len(rows)/3, 3, rows)
}

// TestCorrectionRestoresSphere verifies that corrected samples lie on a sphere
func TestCorrectionRestoresSphere(t *testing.T) {
	softIron := mat.NewDense(3, 3, []float64{
		1.3, 0.1, 0.05,
		0.1, 0.9, -0.08,
		0.05, -0.08, 1.1,
	})
	offset := [3]float64{0.45, -0.2, 0.7}
	raw := distortedSphere(softIron, offset)

	res := ellipsoid.FitDetailed(raw, ellipsoid.Arbitrary, ellipsoid.Outputs{Eigen: true})
	corr, err := NewCorrection(res, 1)
	if err != nil {
		t.Fatalf("Failed to build correction: %v", err)
	}

	for k := 0; k < 3; k++ {
		if math.Abs(corr.Offset[k]-offset[k]) > 1e-6 {
			t.Errorf("Offset[%d]: expected %g, got %g", k, offset[k], corr.Offset[k])
		}
	}

	corrected := corr.ApplyAll(raw)
	n, _ := corrected.Dims()
	for i := 0; i < n; i++ {
		norm := mat.Norm(corrected.RowView(i), 2)
		if math.Abs(norm-1) > 1e-6 {
			t.Fatalf("Sample %d has corrected magnitude %g, expected 1", i, norm)
		}

		single := corr.Apply([3]float64{raw.At(i, 0), raw.At(i, 1), raw.At(i, 2)})
		for k := 0; k < 3; k++ {
			if math.Abs(single[k]-corrected.At(i, k)) > 1e-12 {
				t.Fatalf("Apply and ApplyAll disagree at sample %d", i)
			}
		}
	}

	if !mat.EqualApprox(corr.Transform, corr.Transform.T(), 1e-12) {
		t.Error("Expected a symmetric soft-iron matrix")
	}
}

// TestDefaultScale verifies the volume-preserving default scale
func TestDefaultScale(t *testing.T) {
	res := ellipsoid.Result{
		Parameters:   ellipsoid.Parameters{Radii: [3]float64{8, 2, 1}},
		Eigenvectors: mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}),
	}
	corr, err := NewCorrection(res, 0)
	if err != nil {
		t.Fatalf("Failed to build correction: %v", err)
	}
	if math.Abs(corr.Scale-math.Cbrt(16)) > 1e-12 {
		t.Errorf("Expected scale %g, got %g", math.Cbrt(16), corr.Scale)
	}
	if math.Abs(mat.Det(corr.Transform)-1) > 1e-12 {
		t.Errorf("Expected a volume-preserving transform, det = %g", mat.Det(corr.Transform))
	}
}

func TestCorrectionErrors(t *testing.T) {
	eye := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})

	tests := []struct {
		name string
		res  ellipsoid.Result
		want error
	}{
		{
			name: "no eigen outputs",
			res:  ellipsoid.Result{Parameters: ellipsoid.Parameters{Radii: [3]float64{1, 1, 1}}},
			want: ErrMissingEigen,
		},
		{
			name: "hyperboloid",
			res: ellipsoid.Result{
				Parameters:   ellipsoid.Parameters{Radii: [3]float64{1, math.NaN(), 1}},
				Eigenvectors: eye,
			},
			want: ErrNotEllipsoid,
		},
		{
			name: "flat",
			res: ellipsoid.Result{
				Parameters:   ellipsoid.Parameters{Radii: [3]float64{1, math.Inf(1), 1}},
				Eigenvectors: eye,
			},
			want: ErrNotEllipsoid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCorrection(tt.res, 1); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}
