package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/chazu/blockphantom/pkg/config"
	"github.com/chazu/blockphantom/pkg/engine"
	"github.com/chazu/blockphantom/pkg/kernel/sdfx"
	"github.com/chazu/blockphantom/pkg/phantom"
	"github.com/chazu/blockphantom/pkg/ui"
)

// CLI is the command tree.
type CLI struct {
	Config  string `help:"YAML settings file" short:"c" type:"path"`
	Verbose bool   `help:"Log at debug level" short:"v"`

	Build    BuildCmd    `cmd:"" help:"Evaluate a script and export the assembly meshes (json, stl, 3mf)"`
	Holes    HolesCmd    `cmd:"" help:"Show the holes of a block type or of a named block in a script"`
	Validate ValidateCmd `cmd:"" help:"Evaluate a script and check the assembly joints"`
}

// env carries what every command needs. It is bound into Run by kong.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
	status *ui.Printer
}

// run parses args and executes the selected command. It returns the process
// exit code.
func run(args []string, stdout, stderr io.Writer) int {
	status := ui.NewPrinter(stderr)

	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("phantom"),
		kong.Description("Block phantom assembler"),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
	)
	if err != nil {
		status.Error(err.Error())
		return 1
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		status.Error(err.Error())
		if ctx != nil {
			_ = ctx.PrintUsage(true)
		}
		return 2
	}

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		status.Error(err.Error())
		return 1
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		status.Error(err.Error())
		return 1
	}
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	e := &env{cfg: cfg, logger: logger, out: stdout, status: status}
	if err := ctx.Run(e); err != nil {
		status.Error(err.Error())
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.NewLoader().Load(path)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// newKit returns a kit backed by sdfx. cells overrides the configured mesh
// resolution when positive.
func (e *env) newKit(cells int) *phantom.Kit {
	if cells <= 0 {
		cells = e.cfg.MeshCells
	}
	return phantom.NewKit(sdfx.New(sdfx.WithMeshCells(cells)), e.cfg.KitOptions(e.logger)...)
}

func (e *env) newEngine(kit *phantom.Kit) *engine.Engine {
	return engine.NewEngine(kit,
		engine.WithTimeout(e.cfg.EvalTimeout),
		engine.WithLogger(e.logger),
	)
}

// check reads and evaluates the script at path and validates the result.
// Script errors are not fatal here; they come back in the result.
func (e *env) check(eng *engine.Engine, path string) (engine.EvalResult, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return engine.EvalResult{}, fmt.Errorf("read script: %w", err)
	}
	e.logger.Debug("evaluating script", "path", path, "bytes", len(src))
	res, err := eng.Check(string(src))
	if err != nil {
		return engine.EvalResult{}, fmt.Errorf("evaluate %s: %w", path, err)
	}
	return res, nil
}

// reportEval prints script errors and validation findings to p.
func reportEval(p *ui.Printer, res engine.EvalResult) {
	for _, ee := range res.Errors {
		p.Error(ee.Error())
	}
	p.Findings(res.Findings)
}
