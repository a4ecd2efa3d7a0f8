package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chazu/dotsolid/internal/config"
	"github.com/chazu/dotsolid/internal/logger"
	"github.com/chazu/dotsolid/pkg/export"
	"github.com/chazu/dotsolid/pkg/mesh"
	"github.com/chazu/dotsolid/pkg/optimize"
	"github.com/chazu/dotsolid/pkg/pattern"
)

// cli holds the state shared by every command.
type cli struct {
	configPath string
	logLevel   string
	logFile    string

	cfg *config.Config
	log *zap.Logger
	app *App

	stdin  io.Reader
	stdout io.Writer
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	c := &cli{stdin: stdin, stdout: stdout}

	root := &cobra.Command{
		Use:           "dotsolid",
		Short:         "Turn dot patterns into printable solids",
		Long:          "dotsolid extrudes a grid of dots into a 3D-printable mesh, optimizes and exports it, and checks it for printability.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Config file (YAML or TOML). Defaults to ./dotsolid.yaml or the user config dir.")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&c.logFile, "log-file", "", "Also write logs to this file")

	root.AddCommand(
		c.generateCmd(),
		c.optimizeCmd(),
		c.exportCmd(),
		c.assessCmd(),
		c.compareCmd(),
		c.serveCmd(),
		c.configCmd(),
	)
	return root
}

// setup loads config, applies the logging flags and starts the app.
func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	if c.logFile != "" {
		cfg.Logging.LogFile = c.logFile
	}
	c.cfg = cfg
	c.log = logger.New(cfg.Logging.Level, cfg.Logging.LogFile)
	c.log.Debug("config loaded", zap.String("path", c.configPath))

	app, err := NewApp(cfg, c.log)
	if err != nil {
		return err
	}
	c.app = app
	return nil
}

func (c *cli) teardown() {
	if c.app != nil {
		c.app.Close()
	}
	if c.log != nil {
		_ = c.log.Sync()
	}
}

// run wraps a command body with setup and teardown.
func (c *cli) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := c.setup(cmd); err != nil {
			return err
		}
		defer c.teardown()
		return fn(cmd, args)
	}
}

// generateFlags are the overrides accepted by generate.
type generateFlags struct {
	cubeSize      float64
	cubeHeight    float64
	spacing       float64
	base          bool
	baseThickness float64
	chamfer       float64
	level         string
	output        outputFlags
}

type outputFlags struct {
	path       string
	format     string
	scale      float64
	precision  int
	noComments bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.path, "output", "o", "", "Output file. By default, it's stdout.")
	cmd.Flags().StringVarP(&o.format, "format", "f", "", "Output format: obj, stl or 3mf. Defaults to the output extension or the config.")
	cmd.Flags().Float64Var(&o.scale, "scale", 0, "Multiply every coordinate by this factor")
	cmd.Flags().IntVar(&o.precision, "precision", 0, "Decimals per OBJ coordinate")
	cmd.Flags().BoolVar(&o.noComments, "no-comments", false, "Omit the OBJ header comments")
}

// apply folds the output flags into the config and returns the format.
func (o *outputFlags) apply(cmd *cobra.Command, cfg *config.Config) (export.Format, error) {
	if cmd.Flags().Changed("precision") {
		cfg.Export.Precision = o.precision
	}
	if o.noComments {
		cfg.Export.IncludeComments = false
	}
	switch {
	case o.format != "":
		return export.ParseFormat(o.format)
	case filepath.Ext(o.path) != "":
		return export.FormatFromPath(o.path)
	default:
		return export.ParseFormat(cfg.Export.Format)
	}
}

func (c *cli) generateCmd() *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate [pattern.json]",
		Short: "Build a mesh from a dot pattern",
		Long: `generate extrudes every active cell of a JSON dot pattern
({"width": W, "height": H, "data": [[true, false, ...], ...]}) into a
prism and writes the resulting mesh.
If no pattern file is specified, it will read from stdin.`,
		Args: cobra.MaximumNArgs(1),
	}
	flags := cmd.Flags()
	flags.Float64Var(&f.cubeSize, "cube-size", 0, "Cell width and depth in mm")
	flags.Float64Var(&f.cubeHeight, "cube-height", 0, "Cell height in mm")
	flags.Float64Var(&f.spacing, "spacing", 0, "Gap between cells in mm")
	flags.BoolVar(&f.base, "base", false, "Add a base plate under the cells")
	flags.Float64Var(&f.baseThickness, "base-thickness", 0, "Base plate thickness in mm")
	flags.Float64Var(&f.chamfer, "chamfer", 0, "Bevel cell edges by this many mm")
	flags.StringVar(&f.level, "optimize", "", "Optimization level: none, low, medium or high")
	f.output.register(cmd)

	cmd.RunE = c.run(func(cmd *cobra.Command, args []string) error {
		name, data, err := c.readInput(args)
		if err != nil {
			return err
		}
		p, err := pattern.ParseJSON(data)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		params := c.cfg.Generation
		flags := cmd.Flags()
		if flags.Changed("cube-size") {
			params.CubeSize = f.cubeSize
		}
		if flags.Changed("cube-height") {
			params.CubeHeight = f.cubeHeight
		}
		if flags.Changed("spacing") {
			params.Spacing = f.spacing
		}
		if flags.Changed("base") {
			params.GenerateBase = f.base
		}
		if flags.Changed("base-thickness") {
			params.BaseThickness = f.baseThickness
		}
		if flags.Changed("chamfer") {
			params.ChamferEdges = f.chamfer > 0
			params.ChamferSize = f.chamfer
		}
		opts := GenerateOptions{Params: &params}
		if f.level != "" {
			level, err := optimize.ParseLevel(f.level)
			if err != nil {
				return err
			}
			opts.Level = &level
		}
		format, err := f.output.apply(cmd, c.cfg)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		res, err := c.app.Generate(ctx, p, opts)
		if err != nil {
			return err
		}
		c.log.Info("generated",
			zap.Int("vertices", res.Stats.VertexCount),
			zap.Int("faces", res.Stats.FaceCount),
			zap.Float64("surfaceArea", res.Stats.SurfaceArea),
			zap.Stringer("level", res.Optimization.Level))

		m, err := mesh.FromBuffers(res.Mesh)
		if err != nil {
			return err
		}
		return c.writeMesh(ctx, m, format, f.output, ExportOptions{Pattern: p, Params: &params})
	})
	return cmd
}

func (c *cli) optimizeCmd() *cobra.Command {
	var (
		level  string
		output outputFlags
	)
	cmd := &cobra.Command{
		Use:   "optimize [mesh.obj]",
		Short: "Deduplicate and simplify an OBJ mesh",
		Long: `optimize merges duplicate vertices, removes faces shared by touching
solids and collapses redundant vertices.
If no OBJ file is specified, it will read from stdin.`,
		Args: cobra.MaximumNArgs(1),
	}
	cmd.Flags().StringVar(&level, "level", "medium", "Optimization level: none, low, medium or high")
	output.register(cmd)

	cmd.RunE = c.run(func(cmd *cobra.Command, args []string) error {
		l, err := optimize.ParseLevel(level)
		if err != nil {
			return err
		}
		format, err := output.apply(cmd, c.cfg)
		if err != nil {
			return err
		}
		m, err := c.readMesh(args)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		res, err := c.app.Optimize(ctx, m, &l)
		if err != nil {
			return err
		}
		rep := res.Optimization
		c.log.Info("optimized",
			zap.Stringer("level", rep.Level),
			zap.Int("verticesBefore", rep.VerticesBefore),
			zap.Int("verticesAfter", rep.VerticesAfter),
			zap.Int("facesBefore", rep.FacesBefore),
			zap.Int("facesAfter", rep.FacesAfter))

		out, err := mesh.FromBuffers(res.Mesh)
		if err != nil {
			return err
		}
		return c.writeMesh(ctx, out, format, output, ExportOptions{})
	})
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	var output outputFlags
	cmd := &cobra.Command{
		Use:   "export [mesh.obj]",
		Short: "Convert an OBJ mesh to OBJ, STL or 3MF",
		Long: `export rewrites an OBJ mesh in the requested format, optionally scaled.
If no OBJ file is specified, it will read from stdin.`,
		Args: cobra.MaximumNArgs(1),
	}
	output.register(cmd)
	cmd.RunE = c.run(func(cmd *cobra.Command, args []string) error {
		format, err := output.apply(cmd, c.cfg)
		if err != nil {
			return err
		}
		m, err := c.readMesh(args)
		if err != nil {
			return err
		}
		return c.writeMesh(cmd.Context(), m, format, output, ExportOptions{})
	})
	return cmd
}

func (c *cli) assessCmd() *cobra.Command {
	var modelID string
	cmd := &cobra.Command{
		Use:   "assess [mesh.obj]",
		Short: "Check an OBJ mesh for printability",
		Long: `assess reports manifoldness, watertightness, self-intersections,
overhangs, wall thickness and bridges as JSON.
If no OBJ file is specified, it will read from stdin.`,
		Args: cobra.MaximumNArgs(1),
	}
	cmd.Flags().StringVar(&modelID, "model-id", "", "Model id recorded in the report. Defaults to the file name.")
	cmd.RunE = c.run(func(cmd *cobra.Command, args []string) error {
		m, err := c.readMesh(args)
		if err != nil {
			return err
		}
		if modelID == "" && len(args) == 1 {
			modelID = filepath.Base(args[0])
		}
		rep, err := c.app.Assess(cmd.Context(), m, modelID)
		if err != nil {
			return err
		}
		return c.printJSON(rep)
	})
	return cmd
}

func (c *cli) compareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare a.obj b.obj",
		Short: "Assess two OBJ meshes and compare the reports",
		Args:  cobra.ExactArgs(2),
	}
	cmd.RunE = c.run(func(cmd *cobra.Command, args []string) error {
		a, err := c.readMesh(args[:1])
		if err != nil {
			return err
		}
		b, err := c.readMesh(args[1:])
		if err != nil {
			return err
		}
		cmp, err := c.app.Compare(cmd.Context(), a, b, filepath.Base(args[0]), filepath.Base(args[1]))
		if err != nil {
			return err
		}
		return c.printJSON(cmp)
	})
	return cmd
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Process JSON job messages from stdin",
		Long: `serve reads one JSON request per line from stdin, such as
{"type": "GENERATE_MESH", "payload": {"taskId": "1", "dotPattern": {...}}},
and writes PROGRESS, SUCCESS and ERROR messages to stdout, one per line.`,
		Args: cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			return c.app.Worker().Serve(cmd.Context(), c.stdin, c.stdout)
		}),
	}
}

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Long: `init writes the default configuration as YAML, or TOML when the path
ends in .toml. Without a path it writes config.yaml in the user config dir.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(config.ConfigDir(), "config.yaml")
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Default().SaveTo(path); err != nil {
				return err
			}
			fmt.Fprintln(c.stdout, path)
			return nil
		},
	})
	return cmd
}

// readInput returns the named file's contents, or stdin's.
func (c *cli) readInput(args []string) (string, []byte, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(c.stdin)
		return "stdin", data, err
	}
	data, err := os.ReadFile(args[0])
	return args[0], data, err
}

func (c *cli) readMesh(args []string) (*mesh.Mesh, error) {
	name, data, err := c.readInput(args)
	if err != nil {
		return nil, err
	}
	m, err := export.DecodeOBJ(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if m.Name == "" && name != "stdin" {
		m.Name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}
	return m, nil
}

// writeMesh exports m through the worker and writes the result to the
// output path, or stdout.
func (c *cli) writeMesh(ctx context.Context, m *mesh.Mesh, format export.Format, o outputFlags, opts ExportOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	opts.Format = format
	opts.Scale = o.scale
	res, err := c.app.Export(ctx, m, opts)
	if err != nil {
		return err
	}
	data := res.Data
	if res.Content != "" {
		data = []byte(res.Content)
	}
	if o.path == "" {
		_, err := c.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(o.path, data, 0o644); err != nil {
		return err
	}
	c.log.Info("wrote mesh", zap.String("path", o.path), zap.String("format", string(res.Format)), zap.Int("bytes", len(data)))
	return nil
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitCode maps an error to the process exit status: 2 for invalid input,
// 1 otherwise.
func exitCode(err error) int {
	if errors.Is(err, pattern.ErrInvalidInput) {
		return 2
	}
	return 1
}
