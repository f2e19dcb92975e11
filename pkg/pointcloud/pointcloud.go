// Package pointcloud loads 3D sample sets from disk and prepares them for
// fitting.
package pointcloud

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// Point3D represents a 3D sample
type Point3D struct {
	X, Y, Z float64
}

// Compare implements the kdtree.Comparable interface
func (p Point3D) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(Point3D)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree
func (p Point3D) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between two points
func (p Point3D) Distance(c kdtree.Comparable) float64 {
	q := c.(Point3D)
	dx := p.X - q.X
	dy := p.Y - q.Y
	dz := p.Z - q.Z
	return dx*dx + dy*dy + dz*dz
}

// Points3D is an ordered point set that satisfies kdtree.Interface
type Points3D []Point3D

func (p Points3D) Index(i int) kdtree.Comparable         { return p[i] }
func (p Points3D) Len() int                              { return len(p) }
func (p Points3D) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method
func (p Points3D) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(plane{Points3D: p, Dim: d}, kdtree.MedianOfMedians(plane{Points3D: p, Dim: d}))
}

// plane implements sort.Interface and kdtree.SortSlicer for Points3D
type plane struct {
	Points3D
	kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.Points3D[i].X < p.Points3D[j].X
	case 1:
		return p.Points3D[i].Y < p.Points3D[j].Y
	case 2:
		return p.Points3D[i].Z < p.Points3D[j].Z
	default:
		panic("illegal dimension")
	}
}

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{Points3D: p.Points3D[start:end], Dim: p.Dim}
}

func (p plane) Swap(i, j int) {
	p.Points3D[i], p.Points3D[j] = p.Points3D[j], p.Points3D[i]
}

// Matrix returns the points as an N×3 matrix, one point per row.
func (p Points3D) Matrix() *mat.Dense {
	data := make([]float64, 0, 3*len(p))
	for _, q := range p {
		data = append(data, q.X, q.Y, q.Z)
	}
	return mat.NewDense(len(p), 3, data)
}

// Dedupe returns the points with near-duplicates removed. A point is dropped
// when an earlier kept point lies within tol of it; input order is
// preserved. The input slice is not modified.
func Dedupe(points Points3D, tol float64) Points3D {
	if len(points) == 0 || tol < 0 {
		return append(Points3D(nil), points...)
	}

	// kdtree.New reorders its argument
	tree := kdtree.New(append(Points3D(nil), points...), false)
	limit := tol * tol

	dropped := make(map[int]bool)
	index := make(map[Point3D][]int, len(points))
	for i, p := range points {
		index[p] = append(index[p], i)
	}

	kept := make(Points3D, 0, len(points))
	for i, p := range points {
		if dropped[i] {
			continue
		}
		kept = append(kept, p)

		keeper := kdtree.NewDistKeeper(limit)
		tree.NearestSet(keeper, p)
		for _, c := range keeper.Heap {
			if c.Comparable == nil {
				continue
			}
			for _, j := range index[c.Comparable.(Point3D)] {
				if j > i {
					dropped[j] = true
				}
			}
		}
	}
	return kept
}
