// Package quality analyses a finished mesh for printability: topology
// (manifoldness, watertightness, self-intersections, duplicate vertices)
// and print concerns (overhangs, wall thickness, bridging). The result is
// an immutable Report that can be compared with another.
package quality

import (
	"time"

	"github.com/chazu/dotsolid/pkg/geom"
)

// Severity ranks findings, recommendations and warnings.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Geometry holds the topological metrics. Manifoldness and Watertightness
// are percentages; the rest are raw counts.
type Geometry struct {
	Manifoldness      float64 `json:"manifoldness"`
	Watertightness    float64 `json:"watertightness"`
	SelfIntersections int     `json:"selfIntersections"`
	DuplicateVertices int     `json:"duplicateVertices"`
	Edges             int     `json:"edges"`
	NonManifoldEdges  int     `json:"nonManifoldEdges"`
	BoundaryEdges     int     `json:"boundaryEdges"`
}

// OverhangFinding is one face leaning past the overhang threshold. Angle is
// measured from vertical, so 90 is a flat, downward-facing ceiling.
type OverhangFinding struct {
	Position   geom.Vec3 `json:"position"`
	Angle      float64   `json:"angle"`
	Severity   Severity  `json:"severity"`
	Suggestion string    `json:"suggestion"`
}

// ThinArea is a sampled spot whose wall is thinner than recommended.
type ThinArea struct {
	Position  geom.Vec3 `json:"position"`
	Thickness float64   `json:"thickness"`
}

// WallThickness summarises the sampled wall thickness.
type WallThickness struct {
	MinThickness       float64    `json:"minThickness"`
	AverageThickness   float64    `json:"averageThickness"`
	ThinAreas          []ThinArea `json:"thinAreas"`
	RecommendedMinimum float64    `json:"recommendedMinimum"`
	Samples            int        `json:"samples"`
}

// BridgeFinding is one unsupported horizontal span.
type BridgeFinding struct {
	StartPoint        geom.Vec3 `json:"startPoint"`
	EndPoint          geom.Vec3 `json:"endPoint"`
	Length            float64   `json:"length"`
	Printable         bool      `json:"printable"`
	SupportSuggestion string    `json:"supportSuggestion,omitempty"`
}

// Printability groups the print-quality findings. SupportNeed is the
// share of surface area, in percent, that needs support.
type Printability struct {
	Overhangs     []OverhangFinding `json:"overhangs"`
	SupportNeed   float64           `json:"supportNeed"`
	WallThickness WallThickness     `json:"wallThickness"`
	Bridging      []BridgeFinding   `json:"bridging"`
}

// Recommendation is an actionable suggestion.
type Recommendation struct {
	Priority Severity `json:"priority"`
	Category string   `json:"category"`
	Message  string   `json:"message"`
}

// Warning flags a problem likely to break or spoil a print.
type Warning struct {
	Severity Severity `json:"severity"`
	Category string   `json:"category"`
	Message  string   `json:"message"`
}

// Report is the outcome of one assessment. It is not modified after
// Assess returns it.
type Report struct {
	ModelID         string           `json:"modelId"`
	Timestamp       time.Time        `json:"timestamp"`
	OverallScore    float64          `json:"overallScore"`
	Geometry        Geometry         `json:"geometry"`
	Printability    Printability     `json:"printability"`
	Recommendations []Recommendation `json:"recommendations"`
	Warnings        []Warning        `json:"warnings"`
}
