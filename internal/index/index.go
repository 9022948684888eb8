// Package index provides the nearest-waypoint lookup over a loaded path.
//
// An Index is built once per path and never modified afterwards; a new path
// produces a new Index. Lookups use a k-d tree over the 2-D waypoint positions.
package index

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/kdtree"

	"WaypointUpdater/internal/model"
)

var (
	// ErrNotReady is returned when the index is queried before a path is loaded.
	ErrNotReady = errors.New("path index not ready")
	// ErrEmptyPath is returned when building an index over no waypoints.
	ErrEmptyPath = errors.New("path has no waypoints")
	// ErrInvalidPosition is returned for a query position that is NaN or infinite.
	ErrInvalidPosition = errors.New("query position is not finite")
)

// Index answers nearest-waypoint queries for one path.
type Index struct {
	tree *kdtree.Tree
	n    int
}

// Build creates an index over the 2-D positions of wps. Indices returned by
// Nearest address wps in the given order.
func Build(wps []model.Waypoint) (*Index, error) {
	if len(wps) == 0 {
		return nil, ErrEmptyPath
	}
	pts := make(points, len(wps))
	for i, wp := range wps {
		if !wp.Finite() {
			return nil, fmt.Errorf("waypoint %d: %w", i, model.ErrNonFinite)
		}
		pts[i] = point{x: wp.X, y: wp.Y, idx: i}
	}
	return &Index{tree: kdtree.New(pts, false), n: len(wps)}, nil
}

// Len returns the number of indexed waypoints.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return ix.n
}

// Nearest returns the index of the waypoint closest to (x, y). When several
// waypoints are equally close the lowest index wins.
func (ix *Index) Nearest(x, y float64) (int, error) {
	if ix == nil || ix.tree == nil {
		return -1, ErrNotReady
	}
	if !(model.Pose{X: x, Y: y}).Finite() {
		return -1, ErrInvalidPosition
	}
	q := point{x: x, y: y, idx: -1}
	_, d := ix.tree.Nearest(q)

	// Collect every point at the winning distance so ties resolve the same
	// way regardless of tree shape.
	keep := kdtree.NewDistKeeper(d)
	ix.tree.NearestSet(keep, q)
	best := -1
	for _, c := range keep.Heap {
		p, ok := c.Comparable.(point)
		if !ok || c.Dist > d {
			continue
		}
		if best < 0 || p.idx < best {
			best = p.idx
		}
	}
	if best < 0 {
		return -1, ErrInvalidPosition
	}
	return best, nil
}

// point is a waypoint position tagged with its path index.
type point struct {
	x, y float64
	idx  int
}

func (p point) coord(d kdtree.Dim) float64 {
	if d == 0 {
		return p.x
	}
	return p.y
}

// Compare returns the signed distance of p from the plane through c
// perpendicular to dimension d.
func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.coord(d) - c.(point).coord(d)
}

func (p point) Dims() int { return 2 }

// Distance returns the squared Euclidean distance between p and c.
func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	dx, dy := p.x-q.x, p.y-q.y
	return dx*dx + dy*dy
}

type points []point

func (p points) Index(i int) kdtree.Comparable         { return p[i] }
func (p points) Len() int                              { return len(p) }
func (p points) Pivot(d kdtree.Dim) int                { return plane{points: p, Dim: d}.Pivot() }
func (p points) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane sorts points along one dimension while the tree is built.
type plane struct {
	kdtree.Dim
	points
}

func (p plane) Less(i, j int) bool {
	return p.points[i].coord(p.Dim) < p.points[j].coord(p.Dim)
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
func (p plane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}
