// Package spatial provides an extent index answering "which items intersect
// this bound" queries. Extents are stored as 4D points (minX, minY, maxX,
// maxY) in a k-d tree so an intersection query becomes an orthogonal range
// query over those points.
package spatial

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// Index maps items to extents. Results are always returned in the order
// items were first inserted.
type Index[T comparable] struct {
	records map[T]*record[T]
	seq     int
	tree    *kdtree.Tree
	dirty   bool
}

type record[T comparable] struct {
	item  T
	bound orb.Bound
	seq   int
}

// New creates an empty index
func New[T comparable]() *Index[T] {
	return &Index[T]{records: make(map[T]*record[T])}
}

// Insert adds item with the given extent. Inserting an item already present
// replaces its extent and keeps its position in the result order.
func (x *Index[T]) Insert(item T, bound orb.Bound) {
	if rec, ok := x.records[item]; ok {
		rec.bound = bound
	} else {
		x.records[item] = &record[T]{item: item, bound: bound, seq: x.seq}
		x.seq++
	}
	x.dirty = true
}

// Remove deletes item, reporting whether it was present
func (x *Index[T]) Remove(item T) bool {
	if _, ok := x.records[item]; !ok {
		return false
	}
	delete(x.records, item)
	x.dirty = true
	return true
}

// Contains reports whether item is indexed
func (x *Index[T]) Contains(item T) bool {
	_, ok := x.records[item]
	return ok
}

// Extent returns the extent stored for item
func (x *Index[T]) Extent(item T) (orb.Bound, bool) {
	rec, ok := x.records[item]
	if !ok {
		return orb.Bound{}, false
	}
	return rec.bound, true
}

// Len returns the number of indexed items
func (x *Index[T]) Len() int {
	return len(x.records)
}

// All returns every indexed item
func (x *Index[T]) All() []T {
	recs := make([]*record[T], 0, len(x.records))
	for _, rec := range x.records {
		recs = append(recs, rec)
	}
	return sorted(recs)
}

// Query returns every item whose extent intersects b. Extents that only
// touch b along an edge or at a corner are included.
func (x *Index[T]) Query(b orb.Bound) []T {
	if len(x.records) == 0 {
		return nil
	}
	x.rebuild()

	// An extent intersects b when minX <= b.MaxX, minY <= b.MaxY,
	// maxX >= b.MinX and maxY >= b.MinY. The bounds are widened by one ulp
	// so the tree's strict comparisons keep equal values.
	bounding := &kdtree.Bounding{
		Min: key[T]{v: [4]float64{
			math.Inf(-1), math.Inf(-1),
			math.Nextafter(b.Min[0], math.Inf(-1)), math.Nextafter(b.Min[1], math.Inf(-1)),
		}},
		Max: key[T]{v: [4]float64{
			math.Nextafter(b.Max[0], math.Inf(1)), math.Nextafter(b.Max[1], math.Inf(1)),
			math.Inf(1), math.Inf(1),
		}},
	}

	var recs []*record[T]
	x.tree.DoBounded(bounding, func(c kdtree.Comparable, _ *kdtree.Bounding, _ int) bool {
		rec := c.(key[T]).rec
		if intersects(rec.bound, b) {
			recs = append(recs, rec)
		}
		return false
	})
	return sorted(recs)
}

func (x *Index[T]) rebuild() {
	if !x.dirty && x.tree != nil {
		return
	}
	pts := make(keys[T], 0, len(x.records))
	for _, rec := range x.records {
		pts = append(pts, key[T]{
			v:   [4]float64{rec.bound.Min[0], rec.bound.Min[1], rec.bound.Max[0], rec.bound.Max[1]},
			rec: rec,
		})
	}
	x.tree = kdtree.New(pts, false)
	x.dirty = false
}

func intersects(a, b orb.Bound) bool {
	return a.Min[0] <= b.Max[0] && a.Max[0] >= b.Min[0] &&
		a.Min[1] <= b.Max[1] && a.Max[1] >= b.Min[1]
}

func sorted[T comparable](recs []*record[T]) []T {
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	out := make([]T, len(recs))
	for i, rec := range recs {
		out[i] = rec.item
	}
	return out
}

// key is an extent stored as a point in 4D
type key[T comparable] struct {
	v   [4]float64
	rec *record[T]
}

// Compare implements the kdtree.Comparable interface
func (k key[T]) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(key[T])
	return k.v[d] - q.v[d]
}

// Dims returns the number of dimensions for the KD-tree
func (k key[T]) Dims() int { return 4 }

// Distance returns the squared Euclidean distance between two keys
func (k key[T]) Distance(c kdtree.Comparable) float64 {
	q := c.(key[T])
	var sum float64
	for i := range k.v {
		d := k.v[i] - q.v[i]
		sum += d * d
	}
	return sum
}

// keys is a collection of key that satisfies kdtree.Interface
type keys[T comparable] []key[T]

func (p keys[T]) Index(i int) kdtree.Comparable         { return p[i] }
func (p keys[T]) Len() int                              { return len(p) }
func (p keys[T]) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method
func (p keys[T]) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(keyPlane[T]{keys: p, Dim: d}, kdtree.MedianOfRandoms(keyPlane[T]{keys: p, Dim: d}, 100))
}

// keyPlane implements sort.Interface and kdtree.SortSlicer for keys
type keyPlane[T comparable] struct {
	keys[T]
	kdtree.Dim
}

func (p keyPlane[T]) Less(i, j int) bool {
	return p.keys[i].v[p.Dim] < p.keys[j].v[p.Dim]
}

func (p keyPlane[T]) Slice(start, end int) kdtree.SortSlicer {
	return keyPlane[T]{keys: p.keys[start:end], Dim: p.Dim}
}

func (p keyPlane[T]) Swap(i, j int) {
	p.keys[i], p.keys[j] = p.keys[j], p.keys[i]
}
