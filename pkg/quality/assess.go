package quality

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/dotsolid/pkg/mesh"
)

// Weights sets how much each score contributes to OverallScore. They are
// normalised by their sum.
type Weights struct {
	Manifold          float64 `json:"manifold" yaml:"manifold" toml:"manifold"`
	Watertight        float64 `json:"watertight" yaml:"watertight" toml:"watertight"`
	SelfIntersections float64 `json:"selfIntersections" yaml:"self_intersections" toml:"self_intersections"`
	Support           float64 `json:"support" yaml:"support" toml:"support"`
	Thickness         float64 `json:"thickness" yaml:"thickness" toml:"thickness"`
	Bridging          float64 `json:"bridging" yaml:"bridging" toml:"bridging"`
}

// Options tunes an assessment. Lengths are in millimetres, angles in
// degrees.
type Options struct {
	// ModelID names the report. A random UUID is used when empty.
	ModelID string `json:"modelId,omitempty" yaml:"-" toml:"-"`

	OverhangThreshold       float64 `json:"overhangThreshold" yaml:"overhang_threshold_deg" toml:"overhang_threshold_deg"`
	RecommendedMinThickness float64 `json:"recommendedMinThickness" yaml:"recommended_min_thickness" toml:"recommended_min_thickness"`
	MaxBridgeLength         float64 `json:"maxBridgeLength" yaml:"max_bridge_length" toml:"max_bridge_length"`
	WallSamples             int     `json:"wallSamples" yaml:"wall_samples" toml:"wall_samples"`
	Weights                 Weights `json:"weights" yaml:"weights" toml:"weights"`

	// Now stamps the report; time.Now when nil.
	Now func() time.Time `json:"-" yaml:"-" toml:"-"`
}

// DefaultOptions returns settings suited to a 0.4mm FDM nozzle.
func DefaultOptions() Options {
	return Options{
		OverhangThreshold:       45,
		RecommendedMinThickness: 0.4,
		MaxBridgeLength:         10,
		WallSamples:             256,
		Weights: Weights{
			Manifold:          0.3,
			Watertight:        0.3,
			SelfIntersections: 0.1,
			Support:           0.1,
			Thickness:         0.1,
			Bridging:          0.1,
		},
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.OverhangThreshold <= 0 {
		o.OverhangThreshold = d.OverhangThreshold
	}
	if o.RecommendedMinThickness <= 0 {
		o.RecommendedMinThickness = d.RecommendedMinThickness
	}
	if o.MaxBridgeLength <= 0 {
		o.MaxBridgeLength = d.MaxBridgeLength
	}
	if o.WallSamples <= 0 {
		o.WallSamples = d.WallSamples
	}
	if o.Weights == (Weights{}) {
		o.Weights = d.Weights
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.ModelID == "" {
		o.ModelID = uuid.NewString()
	}
	return o
}

// Assess analyses m. The mesh is only read. An empty mesh is rejected with
// ErrEmptyGeometry and one whose faces address missing or non-finite
// vertices with ErrCorruptGeometry, both as *AssessmentError.
func Assess(m *mesh.Mesh, opts Options) (*Report, error) {
	if m == nil || m.IsEmpty() {
		return nil, &AssessmentError{Kind: ErrEmptyGeometry}
	}
	if err := m.Validate(); err != nil {
		return nil, &AssessmentError{Kind: ErrCorruptGeometry, Err: err}
	}
	opts = opts.withDefaults()

	a := newAnalysis(m)
	r := &Report{
		ModelID:   opts.ModelID,
		Timestamp: opts.Now(),
	}

	// The analyses only read the mesh and the shared adjacency; each
	// result goes to its own variable.
	var (
		geometry  Geometry
		crossings int
		overhangs []OverhangFinding
		support   float64
		walls     WallThickness
		bridges   []BridgeFinding
	)
	var g errgroup.Group
	g.Go(func() error {
		geometry = a.topology()
		return nil
	})
	g.Go(func() error {
		crossings = a.selfIntersections()
		return nil
	})
	g.Go(func() error {
		overhangs, support = a.overhangs(opts.OverhangThreshold)
		return nil
	})
	g.Go(func() error {
		walls = a.wallThickness(opts.WallSamples, opts.RecommendedMinThickness)
		return nil
	})
	g.Go(func() error {
		bridges = a.bridges(opts.MaxBridgeLength)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("quality: %w", err)
	}

	geometry.SelfIntersections = crossings
	r.Geometry = geometry
	r.Printability = Printability{
		Overhangs:     overhangs,
		SupportNeed:   support,
		WallThickness: walls,
		Bridging:      bridges,
	}
	r.OverallScore = score(r, opts.Weights)
	r.Recommendations = GenerateRecommendations(r)
	r.Warnings = GenerateWarnings(r)
	return r, nil
}

// AssessBuffers checks the flat attribute arrays and assesses the mesh
// they describe.
func AssessBuffers(b mesh.Buffers, opts Options) (*Report, error) {
	if len(b.Vertices)%3 != 0 || len(b.Indices)%3 != 0 {
		return nil, &AssessmentError{
			Kind: ErrCorruptGeometry,
			Err:  fmt.Errorf("buffer lengths %d/%d are not multiples of 3", len(b.Vertices), len(b.Indices)),
		}
	}
	if len(b.Vertices) == 0 || len(b.Indices) == 0 {
		return nil, &AssessmentError{Kind: ErrEmptyGeometry}
	}
	m, err := mesh.FromBuffers(b)
	if err != nil {
		return nil, &AssessmentError{Kind: ErrCorruptGeometry, Err: err}
	}
	return Assess(m, opts)
}

// score folds the individual scores into one 0-100 figure.
func score(r *Report, w Weights) float64 {
	g, p := r.Geometry, r.Printability

	selfScore := math.Max(0, 100-10*float64(g.SelfIntersections))
	supportScore := 100 - p.SupportNeed

	thicknessScore := 100.0
	if p.WallThickness.Samples > 0 {
		thin := float64(len(p.WallThickness.ThinAreas))
		thicknessScore = 100 * (1 - thin/float64(p.WallThickness.Samples))
	}

	bridgeScore := 100.0
	if len(p.Bridging) > 0 {
		ok := 0
		for _, b := range p.Bridging {
			if b.Printable {
				ok++
			}
		}
		bridgeScore = 100 * float64(ok) / float64(len(p.Bridging))
	}

	total := w.Manifold + w.Watertight + w.SelfIntersections + w.Support + w.Thickness + w.Bridging
	if total <= 0 {
		return 0
	}
	s := (w.Manifold*g.Manifoldness +
		w.Watertight*g.Watertightness +
		w.SelfIntersections*selfScore +
		w.Support*supportScore +
		w.Thickness*thicknessScore +
		w.Bridging*bridgeScore) / total
	return math.Round(math.Max(0, math.Min(100, s))*100) / 100
}
