package ellipsoid

import (
	"fmt"
	"strings"
)

// Type selects which symmetry and alignment constraints are imposed on the
// quadric before fitting.
type Type int

const (
	// Arbitrary fits a general ellipsoid with free orientation.
	Arbitrary Type = iota
	// XYEqual forces equal x² and y² coefficients; cross terms stay free.
	XYEqual
	// XZEqual forces equal x² and z² coefficients; cross terms stay free.
	XZEqual
	// Sphere forces all quadratic coefficients equal with no cross terms.
	Sphere
	// Aligned fits an ellipsoid whose axes are parallel to x, y and z.
	Aligned
	// AlignedXYEqual is Aligned with equal x² and y² coefficients.
	AlignedXYEqual
	// AlignedXZEqual is Aligned with equal x² and z² coefficients.
	AlignedXZEqual
)

var typeNames = [...]string{
	Arbitrary:      "Arbitrary",
	XYEqual:        "XYEqual",
	XZEqual:        "XZEqual",
	Sphere:         "Sphere",
	Aligned:        "Aligned",
	AlignedXYEqual: "AlignedXYEqual",
	AlignedXZEqual: "AlignedXZEqual",
}

// Types returns every fit type in declaration order.
func Types() []Type {
	return []Type{Arbitrary, XYEqual, XZEqual, Sphere, Aligned, AlignedXYEqual, AlignedXZEqual}
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// ParseType resolves a type name. Matching ignores case, '-' and '_', so
// "aligned-xy-equal" selects AlignedXYEqual.
func ParseType(name string) (Type, error) {
	key := normalizeName(name)
	for i, n := range typeNames {
		if normalizeName(n) == key {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("unknown ellipsoid type %q", name)
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if t < 0 || int(t) >= len(typeNames) {
		return nil, fmt.Errorf("invalid ellipsoid type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Parameters is the geometric description of a fitted surface.
type Parameters struct {
	// Center is the surface center in the frame of the input points.
	Center [3]float64

	// Radii are the principal semi-axis lengths, in the order of the
	// canonicalized eigenvectors. An entry is NaN when the matching
	// eigenvalue is negative, which happens for hyperboloid fits.
	Radii [3]float64
}

// Outputs selects the optional intermediate results FitDetailed fills in.
type Outputs struct {
	Coefficients bool
	Eigen        bool
}

// MinPoints is the number of samples the unconstrained fit needs to be fully
// determined. Fit does not enforce it.
const MinPoints = 9
