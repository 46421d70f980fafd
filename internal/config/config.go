// Package config loads run configuration from HCL files into validated,
// typed settings. Solver parameters are a closed struct rather than a loose
// key/value map, so unknown or mistyped fields fail at load time.
package config

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/danijoo/adaptiveumbrella/internal/cvgrid"
	"github.com/danijoo/adaptiveumbrella/internal/wham"
)

// fileSchema mirrors the HCL layout of a run configuration file.
type fileSchema struct {
	CVs    []cvBlock   `hcl:"cv,block"`
	WHAM   whamBlock   `hcl:"wham,block"`
	Runner runnerBlock `hcl:"runner,block"`
}

type cvBlock struct {
	Axis string  `hcl:"axis,label"`
	Min  float64 `hcl:"min"`
	Max  float64 `hcl:"max"`
	Step float64 `hcl:"step"`
}

type whamBlock struct {
	Executable  string  `hcl:"executable,optional"`
	Px          float64 `hcl:"px,optional"`
	Py          float64 `hcl:"py,optional"`
	NumBinsX    int     `hcl:"num_bins_x"`
	NumBinsY    int     `hcl:"num_bins_y"`
	Tolerance   float64 `hcl:"tolerance"`
	Temperature float64 `hcl:"temperature"`
	Mask        string  `hcl:"mask"`
	FCX         float64 `hcl:"fc_x"`
	FCY         float64 `hcl:"fc_y"`
	Verbose     bool    `hcl:"verbose,optional"`
}

type runnerBlock struct {
	Root          []float64 `hcl:"root"`
	EMin          float64   `hcl:"e_min,optional"`
	EMax          float64   `hcl:"e_max"`
	EStep         float64   `hcl:"e_step,optional"`
	MaxIterations int       `hcl:"max_iterations,optional"`
	TmpDir        string    `hcl:"tmp_dir,optional"`
	SimulationDir string    `hcl:"simulation_dir,optional"`
}

// Runner holds the adaptive-sampling settings of a run.
type Runner struct {
	// Root is the lambda pair sampling starts from.
	Root [2]float64
	// EMin..EMax is the energy-cutoff ramp for frontier selection; EStep is
	// its per-iteration increment.
	EMin  float64
	EMax  float64
	EStep float64
	// MaxIterations caps the number of PMF-update cycles; 0 means no cap.
	MaxIterations int
	// TmpDir holds solver manifests and outputs, SimulationDir the
	// per-window simulation subdirectories.
	TmpDir        string
	SimulationDir string
}

// Config is a fully validated run configuration.
type Config struct {
	Defs   cvgrid.Defs
	WHAM   wham.Config
	Runner Runner
}

// Load reads and validates an HCL run configuration file.
func Load(path string) (Config, error) {
	var schema fileSchema
	if err := hclsimple.DecodeFile(path, nil, &schema); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return fromSchema(schema)
}

// Parse decodes configuration from an in-memory HCL document. The filename
// only labels diagnostics.
func Parse(src []byte, filename string) (Config, error) {
	var schema fileSchema
	if err := hclsimple.Decode(filename, src, nil, &schema); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", filename, err)
	}
	return fromSchema(schema)
}

func fromSchema(schema fileSchema) (Config, error) {
	var cfg Config

	seen := map[string]bool{}
	for _, block := range schema.CVs {
		axis := block.Axis
		if axis != "x" && axis != "y" {
			return Config{}, fmt.Errorf("unknown cv axis %q, want \"x\" or \"y\"", axis)
		}
		if seen[axis] {
			return Config{}, fmt.Errorf("duplicate cv block for axis %q", axis)
		}
		seen[axis] = true
		cv := cvgrid.CV{Min: block.Min, Max: block.Max, Step: block.Step}
		if axis == "x" {
			cfg.Defs[0] = cv
		} else {
			cfg.Defs[1] = cv
		}
	}
	if !seen["x"] || !seen["y"] {
		return Config{}, errors.New("config needs one cv block per axis, x and y")
	}
	if err := cfg.Defs.Validate(); err != nil {
		return Config{}, err
	}

	cfg.WHAM = wham.Config{
		Executable:  schema.WHAM.Executable,
		Px:          schema.WHAM.Px,
		Py:          schema.WHAM.Py,
		NumBinsX:    schema.WHAM.NumBinsX,
		NumBinsY:    schema.WHAM.NumBinsY,
		Tolerance:   schema.WHAM.Tolerance,
		Temperature: schema.WHAM.Temperature,
		Mask:        schema.WHAM.Mask,
		FCX:         schema.WHAM.FCX,
		FCY:         schema.WHAM.FCY,
		Verbose:     schema.WHAM.Verbose,
	}
	if err := cfg.WHAM.Validate(); err != nil {
		return Config{}, err
	}

	r := schema.Runner
	if len(r.Root) != 2 {
		return Config{}, fmt.Errorf("runner root must name two lambda values, got %d", len(r.Root))
	}
	cfg.Runner = Runner{
		Root:          [2]float64{r.Root[0], r.Root[1]},
		EMin:          r.EMin,
		EMax:          r.EMax,
		EStep:         r.EStep,
		MaxIterations: r.MaxIterations,
		TmpDir:        r.TmpDir,
		SimulationDir: r.SimulationDir,
	}
	if cfg.Runner.TmpDir == "" {
		cfg.Runner.TmpDir = "tmp/WHAM"
	}
	if cfg.Runner.SimulationDir == "" {
		cfg.Runner.SimulationDir = "tmp/simulations"
	}
	if cfg.Runner.EStep <= 0 {
		cfg.Runner.EStep = 1
	}
	if cfg.Runner.EMax < cfg.Runner.EMin {
		return Config{}, fmt.Errorf("runner e_max %g below e_min %g", cfg.Runner.EMax, cfg.Runner.EMin)
	}
	return cfg, nil
}
