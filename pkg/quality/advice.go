package quality

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// GenerateRecommendations derives actionable suggestions from the numeric
// findings, highest priority first.
func GenerateRecommendations(r *Report) []Recommendation {
	if r == nil {
		return nil
	}
	g, p := r.Geometry, r.Printability
	recs := []Recommendation{}

	if g.Manifoldness < 100 {
		recs = append(recs, Recommendation{
			Priority: SeverityHigh,
			Category: "geometry",
			Message:  fmt.Sprintf("repair %d non-manifold edges so every edge joins exactly two faces", g.NonManifoldEdges),
		})
	}
	if g.Watertightness < 100 {
		recs = append(recs, Recommendation{
			Priority: SeverityHigh,
			Category: "geometry",
			Message:  fmt.Sprintf("close the %d boundary edges to make the model watertight", g.BoundaryEdges),
		})
	}
	if g.SelfIntersections > 0 {
		recs = append(recs, Recommendation{
			Priority: SeverityHigh,
			Category: "geometry",
			Message:  fmt.Sprintf("resolve %d self-intersecting face pairs, for example with a boolean union", g.SelfIntersections),
		})
	}
	if g.DuplicateVertices > 0 {
		recs = append(recs, Recommendation{
			Priority: SeverityLow,
			Category: "geometry",
			Message:  fmt.Sprintf("merge %d duplicate vertices", g.DuplicateVertices),
		})
	}

	severe := lo.CountBy(p.Overhangs, func(o OverhangFinding) bool { return o.Severity == SeverityHigh })
	if severe > 0 {
		recs = append(recs, Recommendation{
			Priority: SeverityMedium,
			Category: "overhangs",
			Message:  fmt.Sprintf("add supports under %d steep overhangs or reorient the model", severe),
		})
	} else if len(p.Overhangs) > 0 {
		recs = append(recs, Recommendation{
			Priority: SeverityLow,
			Category: "overhangs",
			Message:  fmt.Sprintf("%d mild overhangs should print with good part cooling", len(p.Overhangs)),
		})
	}

	if n := len(p.WallThickness.ThinAreas); n > 0 {
		recs = append(recs, Recommendation{
			Priority: SeverityMedium,
			Category: "thickness",
			Message: fmt.Sprintf("thicken %d thin spots to at least %.2fmm (thinnest is %.2fmm)",
				n, p.WallThickness.RecommendedMinimum, p.WallThickness.MinThickness),
		})
	}

	long := lo.Filter(p.Bridging, func(b BridgeFinding, _ int) bool { return !b.Printable })
	if len(long) > 0 {
		longest := lo.MaxBy(long, func(a, b BridgeFinding) bool { return a.Length > b.Length })
		recs = append(recs, Recommendation{
			Priority: SeverityMedium,
			Category: "bridging",
			Message:  fmt.Sprintf("support %d unprintable bridges; the longest spans %.2fmm", len(long), longest.Length),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Priority.rank() > recs[j].Priority.rank() })
	return recs
}

// GenerateWarnings flags findings likely to make a print fail, most
// severe first.
func GenerateWarnings(r *Report) []Warning {
	if r == nil {
		return nil
	}
	g, p := r.Geometry, r.Printability
	warns := []Warning{}

	if g.Watertightness < 100 {
		warns = append(warns, Warning{
			Severity: SeverityHigh,
			Category: "geometry",
			Message:  "model is not watertight; slicers may produce missing or broken layers",
		})
	}
	if g.Manifoldness < 100 {
		warns = append(warns, Warning{
			Severity: SeverityHigh,
			Category: "geometry",
			Message:  "model has non-manifold edges; the solid is ambiguous to slicers",
		})
	}
	if g.SelfIntersections > 0 {
		warns = append(warns, Warning{
			Severity: SeverityMedium,
			Category: "geometry",
			Message:  fmt.Sprintf("%d self-intersections may cause slicing artefacts", g.SelfIntersections),
		})
	}
	if p.SupportNeed > 30 {
		warns = append(warns, Warning{
			Severity: SeverityMedium,
			Category: "overhangs",
			Message:  fmt.Sprintf("%.1f%% of the surface needs support", p.SupportNeed),
		})
	}
	wt := p.WallThickness
	if wt.Samples > 0 && wt.MinThickness < wt.RecommendedMinimum/2 {
		warns = append(warns, Warning{
			Severity: SeverityHigh,
			Category: "thickness",
			Message:  fmt.Sprintf("walls as thin as %.2fmm will likely not print", wt.MinThickness),
		})
	}
	if lo.SomeBy(p.Bridging, func(b BridgeFinding) bool { return !b.Printable }) {
		warns = append(warns, Warning{
			Severity: SeverityLow,
			Category: "bridging",
			Message:  "some bridges are longer than the printer can span unsupported",
		})
	}

	sort.SliceStable(warns, func(i, j int) bool { return warns[i].Severity.rank() > warns[j].Severity.rank() })
	return warns
}
