// Package config handles dotsolid configuration loading and management.
package config

import (
	"fmt"
	"time"

	"github.com/chazu/dotsolid/pkg/export"
	"github.com/chazu/dotsolid/pkg/optimize"
	"github.com/chazu/dotsolid/pkg/pattern"
	"github.com/chazu/dotsolid/pkg/quality"
)

// Config holds all settings.
type Config struct {
	Generation pattern.GenerationParams `yaml:"generation" toml:"generation"`
	Optimize   OptimizeConfig           `yaml:"optimize" toml:"optimize"`
	Export     ExportConfig             `yaml:"export" toml:"export"`
	Quality    QualityConfig            `yaml:"quality" toml:"quality"`
	Worker     WorkerConfig             `yaml:"worker" toml:"worker"`
	Logging    LoggingConfig            `yaml:"logging" toml:"logging"`
}

// OptimizeConfig selects the optimization level. An empty level means the
// one implied by the generation switches.
type OptimizeConfig struct {
	Level string `yaml:"level" toml:"level"`
}

// ExportConfig holds output settings.
type ExportConfig struct {
	Format          string  `yaml:"format" toml:"format"`
	Precision       int     `yaml:"precision" toml:"precision"`
	IncludeComments bool    `yaml:"include_comments" toml:"include_comments"`
	ToolName        string  `yaml:"tool_name" toml:"tool_name"`
	Scale           float64 `yaml:"scale" toml:"scale"`
}

// QualityConfig holds printability thresholds.
type QualityConfig struct {
	OverhangThresholdDeg    float64         `yaml:"overhang_threshold_deg" toml:"overhang_threshold_deg"`
	RecommendedMinThickness float64         `yaml:"recommended_min_thickness" toml:"recommended_min_thickness"`
	MaxBridgeLength         float64         `yaml:"max_bridge_length" toml:"max_bridge_length"`
	WallSamples             int             `yaml:"wall_samples" toml:"wall_samples"`
	Weights                 quality.Weights `yaml:"weights" toml:"weights"`
}

// WorkerConfig holds job runner settings.
type WorkerConfig struct {
	QueueSize     int           `yaml:"queue_size" toml:"queue_size"`
	ResultTimeout time.Duration `yaml:"result_timeout" toml:"result_timeout"`
	Kernel        string        `yaml:"kernel" toml:"kernel"`         // box, sdfx, or empty for box
	MeshCells     int           `yaml:"mesh_cells" toml:"mesh_cells"` // sdfx marching cubes resolution
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	q := quality.DefaultOptions()
	return &Config{
		Generation: pattern.DefaultParams(),
		Export: ExportConfig{
			Format:          string(export.FormatOBJ),
			Precision:       export.DefaultPrecision,
			IncludeComments: true,
			ToolName:        export.DefaultToolName,
			Scale:           1,
		},
		Quality: QualityConfig{
			OverhangThresholdDeg:    q.OverhangThreshold,
			RecommendedMinThickness: q.RecommendedMinThickness,
			MaxBridgeLength:         q.MaxBridgeLength,
			WallSamples:             q.WallSamples,
			Weights:                 q.Weights,
		},
		Worker: WorkerConfig{
			QueueSize:     16,
			ResultTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Generation.Validate(); err != nil {
		return fmt.Errorf("generation: %w", err)
	}
	if _, err := optimize.ParseLevel(c.Optimize.Level); err != nil {
		return fmt.Errorf("optimize: %w", err)
	}
	if _, err := export.ParseFormat(c.Export.Format); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if c.Export.Precision < 0 || c.Export.Precision > 15 {
		return fmt.Errorf("export: precision %d out of range [0, 15]", c.Export.Precision)
	}
	if c.Export.Scale <= 0 {
		return fmt.Errorf("export: scale %v must be positive", c.Export.Scale)
	}
	if c.Worker.QueueSize < 0 {
		return fmt.Errorf("worker: queue_size %d is negative", c.Worker.QueueSize)
	}
	switch c.Worker.Kernel {
	case "", "box", "sdfx":
	default:
		return fmt.Errorf("worker: unknown kernel %q (want box or sdfx)", c.Worker.Kernel)
	}
	return nil
}

// ExportOptions converts the export section to encoder options.
func (c *Config) ExportOptions() export.Options {
	return export.Options{
		Precision:       c.Export.Precision,
		IncludeComments: c.Export.IncludeComments,
		ToolName:        c.Export.ToolName,
	}
}

// QualityOptions converts the quality section to assessor options.
func (c *Config) QualityOptions() quality.Options {
	return quality.Options{
		OverhangThreshold:       c.Quality.OverhangThresholdDeg,
		RecommendedMinThickness: c.Quality.RecommendedMinThickness,
		MaxBridgeLength:         c.Quality.MaxBridgeLength,
		WallSamples:             c.Quality.WallSamples,
		Weights:                 c.Quality.Weights,
	}
}

// OptimizeLevel resolves the configured level, falling back to the one
// implied by the generation switches.
func (c *Config) OptimizeLevel() optimize.Level {
	if l, err := optimize.ParseLevel(c.Optimize.Level); err == nil && c.Optimize.Level != "" {
		return l
	}
	return optimize.LevelFor(c.Generation.OptimizeMesh, c.Generation.MergeAdjacentFaces)
}
