package geometry

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const paramEps = 1e-9

// SegmentCoverage returns the fraction of the segment a-b lying inside mp.
//
// Crossing parameters along the segment are collected from every polygon
// edge, with collinear overlaps contributing both ends, and the segment
// endpoints are injected when mp covers them. Each consecutive pair of
// parameters bounds an inside run. An odd count means the segment only
// grazes the shape and ok is false.
func SegmentCoverage(a, b orb.Point, mp orb.MultiPolygon) (frac float64, ok bool) {
	d := orb.Point{b[0] - a[0], b[1] - a[1]}
	length2 := d[0]*d[0] + d[1]*d[1]
	if length2 == 0 {
		return 0, false
	}
	length := math.Sqrt(length2)

	var params []float64
	for _, poly := range mp {
		for _, ring := range poly {
			n := len(ring)
			for i := 0; i < n; i++ {
				p, q := ring[i], ring[(i+1)%n]
				if p == q {
					continue
				}
				params = appendCrossings(params, a, d, length, p, q)
			}
		}
	}

	if planar.MultiPolygonContains(mp, a) {
		params = append(params, 0)
	}
	if planar.MultiPolygonContains(mp, b) {
		params = append(params, 1)
	}

	sort.Float64s(params)
	unique := params[:0]
	for _, t := range params {
		if len(unique) > 0 && t-unique[len(unique)-1] < paramEps {
			continue
		}
		unique = append(unique, t)
	}

	if len(unique)%2 != 0 {
		return 0, false
	}
	for i := 0; i+1 < len(unique); i += 2 {
		frac += unique[i+1] - unique[i]
	}
	return frac, true
}

func cross(u, v orb.Point) float64 {
	return u[0]*v[1] - u[1]*v[0]
}

// appendCrossings adds the parameters along a + t*d where edge p-q meets it
func appendCrossings(params []float64, a, d orb.Point, length float64, p, q orb.Point) []float64 {
	e := orb.Point{q[0] - p[0], q[1] - p[1]}
	ap := orb.Point{p[0] - a[0], p[1] - a[1]}
	den := cross(d, e)

	if math.Abs(den) > paramEps*length*math.Hypot(e[0], e[1]) {
		t := cross(ap, e) / den
		u := cross(ap, d) / den
		if t >= -paramEps && t <= 1+paramEps && u >= -paramEps && u <= 1+paramEps {
			params = append(params, clamp01(t))
		}
		return params
	}

	// Parallel edges only matter when collinear with the segment
	if math.Abs(cross(ap, d)) > paramEps*length*length {
		return params
	}
	l2 := length * length
	tp := (ap[0]*d[0] + ap[1]*d[1]) / l2
	aq := orb.Point{q[0] - a[0], q[1] - a[1]}
	tq := (aq[0]*d[0] + aq[1]*d[1]) / l2
	lo, hi := math.Max(0, math.Min(tp, tq)), math.Min(1, math.Max(tp, tq))
	if lo <= hi+paramEps {
		params = append(params, lo, math.Max(lo, hi))
	}
	return params
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
