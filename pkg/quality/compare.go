package quality

import "fmt"

// Comparison is the difference between two reports, from A to B.
type Comparison struct {
	ModelA       string   `json:"modelA"`
	ModelB       string   `json:"modelB"`
	ScoreDelta   float64  `json:"scoreDelta"`
	BetterModel  string   `json:"betterModel"`
	Improvements []string `json:"improvements"`
	Regressions  []string `json:"regressions"`
}

// metric is one tracked report field.
type metric struct {
	name         string
	value        func(*Report) float64
	higherBetter bool
}

var metrics = []metric{
	{"manifoldness", func(r *Report) float64 { return r.Geometry.Manifoldness }, true},
	{"watertightness", func(r *Report) float64 { return r.Geometry.Watertightness }, true},
	{"selfIntersections", func(r *Report) float64 { return float64(r.Geometry.SelfIntersections) }, false},
	{"duplicateVertices", func(r *Report) float64 { return float64(r.Geometry.DuplicateVertices) }, false},
	{"overhangs", func(r *Report) float64 { return float64(len(r.Printability.Overhangs)) }, false},
	{"supportNeed", func(r *Report) float64 { return r.Printability.SupportNeed }, false},
	{"minThickness", func(r *Report) float64 { return r.Printability.WallThickness.MinThickness }, true},
	{"averageThickness", func(r *Report) float64 { return r.Printability.WallThickness.AverageThickness }, true},
	{"thinAreas", func(r *Report) float64 { return float64(len(r.Printability.WallThickness.ThinAreas)) }, false},
	{"unprintableBridges", func(r *Report) float64 { return float64(unprintable(r.Printability.Bridging)) }, false},
}

func unprintable(bridges []BridgeFinding) int {
	n := 0
	for _, b := range bridges {
		if !b.Printable {
			n++
		}
	}
	return n
}

// Compare reports how b differs from a. Every tracked field that moved is
// listed as an improvement or a regression; counts of problems improve by
// going down, percentages and thicknesses by going up. BetterModel is the
// ID of the higher-scoring report, or empty on a tie.
func Compare(a, b *Report) Comparison {
	c := Comparison{Improvements: []string{}, Regressions: []string{}}
	if a == nil || b == nil {
		return c
	}
	c.ModelA, c.ModelB = a.ModelID, b.ModelID
	c.ScoreDelta = b.OverallScore - a.OverallScore
	switch {
	case b.OverallScore > a.OverallScore:
		c.BetterModel = b.ModelID
	case a.OverallScore > b.OverallScore:
		c.BetterModel = a.ModelID
	}

	for _, m := range metrics {
		va, vb := m.value(a), m.value(b)
		if va == vb {
			continue
		}
		line := fmt.Sprintf("%s: %s -> %s", m.name, fmtMetric(va), fmtMetric(vb))
		if (vb > va) == m.higherBetter {
			c.Improvements = append(c.Improvements, line)
		} else {
			c.Regressions = append(c.Regressions, line)
		}
	}
	return c
}

func fmtMetric(v float64) string {
	return fmt.Sprintf("%.4g", v)
}
