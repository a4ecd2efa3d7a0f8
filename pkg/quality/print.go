package quality

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/chazu/dotsolid/pkg/geom"
)

const radToDeg = 180 / math.Pi

// overhangs finds downward faces leaning further from vertical than
// threshold degrees. Faces resting on the build plate are skipped. It also
// returns the overhanging share of the surface area, in percent.
func (a *analysis) overhangs(threshold float64) ([]OverhangFinding, float64) {
	var (
		findings []OverhangFinding
		area     float64
		total    float64
	)
	for i, n := range a.normals {
		total += a.areas[i]
		if n.Y >= 0 || a.areas[i] <= a.eps {
			continue
		}
		angle := math.Asin(math.Min(1, -n.Y)) * radToDeg
		if angle <= threshold || a.onPlate(i) {
			continue
		}
		sev := overhangSeverity(angle - threshold)
		findings = append(findings, OverhangFinding{
			Position:   geom.Centroid(a.m.Triangle(i)),
			Angle:      math.Round(angle*100) / 100,
			Severity:   sev,
			Suggestion: overhangSuggestion(sev),
		})
		area += a.areas[i]
	}
	if total == 0 {
		return findings, 0
	}
	return findings, 100 * area / total
}

func overhangSeverity(excess float64) Severity {
	switch {
	case excess < 15:
		return SeverityLow
	case excess < 30:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}

func overhangSuggestion(s Severity) string {
	switch s {
	case SeverityHigh:
		return "add support material beneath this face"
	case SeverityMedium:
		return "consider supports or reorienting the model"
	default:
		return "printable with good cooling; supports optional"
	}
}

// wallThickness casts a ray inward from up to samples face centroids and
// records the distance to the far side of the wall.
func (a *analysis) wallThickness(samples int, recommended float64) WallThickness {
	wt := WallThickness{RecommendedMinimum: recommended, ThinAreas: []ThinArea{}}

	var candidates []int
	for i := range a.m.Faces {
		if a.areas[i] > a.eps {
			candidates = append(candidates, i)
		}
	}
	step := 1
	if len(candidates) > samples {
		step = (len(candidates) + samples - 1) / samples
	}

	reach := a.bounds.Size().Length() + 1
	var thickness []float64
	for k := 0; k < len(candidates); k += step {
		i := candidates[k]
		origin := geom.Centroid(a.m.Triangle(i))
		dir := a.normals[i].Scale(-1)
		d, ok := a.castInward(i, origin, dir, reach)
		if !ok {
			continue
		}
		thickness = append(thickness, d)
		if d < recommended {
			wt.ThinAreas = append(wt.ThinAreas, ThinArea{Position: origin, Thickness: d})
		}
	}

	wt.Samples = len(thickness)
	if len(thickness) > 0 {
		wt.MinThickness = floats.Min(thickness)
		wt.AverageThickness = stat.Mean(thickness, nil)
	}
	return wt
}

// castInward returns the distance from origin along dir to the nearest
// face, other than from, that the ray leaves the solid through.
func (a *analysis) castInward(from int, origin, dir geom.Vec3, reach float64) (float64, bool) {
	box := geom.EmptyBounds().Extend(origin).Extend(origin.Add(dir.Scale(reach)))
	best := math.Inf(1)
	for _, j := range a.near(box) {
		if j == from || a.normals[j].Dot(dir) <= 0 {
			continue
		}
		s, u, v, ok := intersectRay(origin, dir, a.corners(j))
		if !ok || s <= a.eps || s >= best {
			continue
		}
		const slack = 1e-9
		if u < -slack || v < -slack || u+v > 1+slack {
			continue
		}
		best = s
	}
	return best, !math.IsInf(best, 1)
}

// bridges groups flat ceilings (downward faces not on the plate) into
// connected regions and reports each region's longest horizontal span.
func (a *analysis) bridges(maxLength float64) []BridgeFinding {
	parent := map[int]int{}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for i, n := range a.normals {
		if n.Y < -1+1e-6 && a.areas[i] > a.eps && !a.onPlate(i) {
			parent[i] = i
		}
	}
	if len(parent) == 0 {
		return []BridgeFinding{}
	}
	for _, faces := range a.edges {
		for k := 1; k < len(faces); k++ {
			_, ok1 := parent[faces[0]]
			_, ok2 := parent[faces[k]]
			if ok1 && ok2 {
				ra, rb := find(faces[0]), find(faces[k])
				if ra != rb {
					if ra < rb {
						parent[rb] = ra
					} else {
						parent[ra] = rb
					}
				}
			}
		}
	}

	regions := map[int]geom.Bounds{}
	for i := range parent {
		root := find(i)
		b, ok := regions[root]
		if !ok {
			b = geom.EmptyBounds()
		}
		p, q, r := a.m.Triangle(i)
		regions[root] = b.Extend(p).Extend(q).Extend(r)
	}
	roots := make([]int, 0, len(regions))
	for root := range regions {
		roots = append(roots, root)
	}
	sort.Ints(roots)

	out := make([]BridgeFinding, 0, len(roots))
	for _, root := range roots {
		b := regions[root]
		size, c := b.Size(), b.Center()
		var start, end geom.Vec3
		var length float64
		if size.X >= size.Z {
			start, end, length = geom.V(b.Min.X, c.Y, c.Z), geom.V(b.Max.X, c.Y, c.Z), size.X
		} else {
			start, end, length = geom.V(c.X, c.Y, b.Min.Z), geom.V(c.X, c.Y, b.Max.Z), size.Z
		}
		f := BridgeFinding{
			StartPoint: start,
			EndPoint:   end,
			Length:     length,
			Printable:  length <= maxLength,
		}
		if !f.Printable {
			f.SupportSuggestion = fmt.Sprintf("span of %.2fmm exceeds %.2fmm; add supports under it", length, maxLength)
		}
		out = append(out, f)
	}
	return out
}
