package main

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/flame"
)

// sceneFlags are shared by every command that builds a function system.
type sceneFlags struct {
	scene      string
	random     int
	seed       uint64
	width      int
	height     int
	resolution int
	iterations int
	warmup     int
	logScale   float32
	xOffset    float32
	yOffset    float32
	gamma      float32
	filter     string
	supersmp   int
	backend    string
	verbose    bool
}

func (f *sceneFlags) register(cmd *cobra.Command) {
	def := flame.DefaultConfig()
	fs := cmd.Flags()
	fs.StringVar(&f.scene, "scene", "", "scene JSON file; overrides --random")
	fs.IntVar(&f.random, "random", 0, "generate N random functions instead of the default pair")
	fs.Uint64Var(&f.seed, "seed", 1, "seed for random functions and frame seeds")
	fs.IntVar(&f.width, "width", def.Width, "image width in pixels")
	fs.IntVar(&f.height, "height", def.Height, "image height in pixels")
	fs.IntVar(&f.resolution, "resolution", def.Resolution, "walkers per side")
	fs.IntVar(&f.iterations, "iterations", def.Iterations, "steps per walker per frame")
	fs.IntVar(&f.warmup, "warmup", def.Warmup, "unplotted steps per walker per frame")
	fs.Float32Var(&f.logScale, "log-scale", 0, "camera zoom as a power of two")
	fs.Float32Var(&f.xOffset, "x-offset", 0, "camera horizontal offset")
	fs.Float32Var(&f.yOffset, "y-offset", 0, "camera vertical offset")
	fs.Float32Var(&f.gamma, "gamma", def.Gamma, "display gamma")
	fs.StringVar(&f.filter, "filter", "none", "accumulator filter: none, box:R or gaussian:SIGMA")
	fs.IntVar(&f.supersmp, "supersample", 1, "accumulate at N× the image size")
	fs.StringVar(&f.backend, "backend", "auto", "auto, cpu or gpu")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log debug output to stderr")
}

func (f *sceneFlags) setupLogging() {
	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}
	flame.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// build returns the configuration and function list the flags describe.
func (f *sceneFlags) build(cmd *cobra.Command) (flame.Config, []flame.Function, error) {
	cfg := flame.DefaultConfig()
	cfg.Width, cfg.Height = f.width, f.height
	cfg.Resolution = f.resolution
	cfg.Iterations, cfg.Warmup = f.iterations, f.warmup
	cfg.Camera = flame.Camera{LogScale: f.logScale, XOffset: f.xOffset, YOffset: f.yOffset}
	cfg.Gamma = f.gamma
	cfg.Supersample = f.supersmp

	filter, err := flame.ParseFilter(f.filter)
	if err != nil {
		return cfg, nil, err
	}
	cfg.Filter = filter

	rng := rand.New(rand.NewPCG(f.seed, f.seed))
	switch {
	case f.scene != "":
		s, err := flame.LoadSceneFile(f.scene)
		if err != nil {
			return cfg, nil, err
		}
		s.Apply(&cfg)
		// Explicit flags win over the scene.
		fs := cmd.Flags()
		if fs.Changed("log-scale") || fs.Changed("x-offset") || fs.Changed("y-offset") {
			cfg.Camera = flame.Camera{LogScale: f.logScale, XOffset: f.xOffset, YOffset: f.yOffset}
		}
		if fs.Changed("gamma") {
			cfg.Gamma = f.gamma
		}
		if fs.Changed("resolution") {
			cfg.Resolution = f.resolution
		}
		return cfg, s.Functions, nil
	case f.random > 0:
		return cfg, flame.RandomFunctions(rng, f.random), nil
	default:
		return cfg, flame.DefaultFunctions(rng), nil
	}
}

func (f *sceneFlags) options(extra ...flame.Option) ([]flame.Option, error) {
	kind, err := flame.ParseBackend(f.backend)
	if err != nil {
		return nil, err
	}
	return append([]flame.Option{flame.WithBackend(kind), flame.WithSeed(f.seed)}, extra...), nil
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flames",
		Short: "Render fractal flames",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(renderCmd(), kernelCmd(), viewCmd())
	return cmd
}

func newRenderer(cmd *cobra.Command, f *sceneFlags, extra ...flame.Option) (*flame.Renderer, error) {
	cfg, fns, err := f.build(cmd)
	if err != nil {
		return nil, err
	}
	opts, err := f.options(extra...)
	if err != nil {
		return nil, err
	}
	r, err := flame.NewRenderer(cfg, fns, opts...)
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	return r, nil
}
