package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chazu/blockphantom/pkg/config"
	"github.com/chazu/blockphantom/pkg/engine"
	"github.com/chazu/blockphantom/pkg/export"
	"github.com/chazu/blockphantom/pkg/graph"
	"github.com/chazu/blockphantom/pkg/kernel"
	"github.com/chazu/blockphantom/pkg/tessellate"
)

// BuildCmd evaluates a script, meshes the assembly and writes the meshes.
type BuildCmd struct {
	Script       string `arg:"" help:"Assembly script to evaluate" type:"path"`
	Output       string `help:"Output file (default: stdout)" short:"o"`
	Format       string `help:"Output format: json, stl or 3mf (default: from the output extension, then config)" short:"f"`
	Cells        int    `help:"Marching cubes resolution (default: config mesh_cells)"`
	Workers      int    `help:"Parts meshed in parallel (default: GOMAXPROCS)"`
	NoConnectors bool   `help:"Leave connector rods out of the output" name:"no-connectors"`
	Force        bool   `help:"Export even when validation reports errors"`
}

func (c *BuildCmd) Run(e *env) error {
	format, err := c.format(e.cfg)
	if err != nil {
		return err
	}

	eng := e.newEngine(e.newKit(c.Cells))
	res, err := e.check(eng, c.Script)
	if err != nil {
		return err
	}
	reportEval(e.status, res)
	if len(res.Errors) > 0 {
		return fmt.Errorf("script %s failed with %d error(s)", c.Script, len(res.Errors))
	}
	if graph.HasErrors(res.Findings) && !c.Force {
		return errors.New("assembly is invalid; use --force to export anyway")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	meshes, err := tessellate.Tessellate(ctx, res.Assembly, tessellate.Options{
		Workers:        c.Workers,
		SkipConnectors: c.NoConnectors,
	})
	if err != nil {
		return err
	}
	e.logger.Debug("tessellated assembly", "parts", len(meshes), "cached", res.Assembly.Kit().MeshCache().Len())

	write := func(w io.Writer) error {
		if err := c.write(w, format, res, meshes); err != nil {
			return fmt.Errorf("write %s: %w", format, err)
		}
		return nil
	}
	dest := "stdout"
	if c.Output == "" {
		err = write(e.out)
	} else {
		dest = c.Output
		err = createFile(c.Output, write)
	}
	if err != nil {
		return err
	}
	e.status.Success(fmt.Sprintf("Wrote %d parts to %s (%s)", len(meshes), dest, format))
	return nil
}

// format picks the output format: the flag first, then the output file
// extension, then the configured default.
func (c *BuildCmd) format(cfg *config.Config) (string, error) {
	f := strings.ToLower(c.Format)
	if f == "" && c.Output != "" {
		f = strings.TrimPrefix(strings.ToLower(filepath.Ext(c.Output)), ".")
		if !knownFormat(f) {
			f = ""
		}
	}
	if f == "" {
		f = cfg.Format
	}
	if !knownFormat(f) {
		return "", fmt.Errorf("unknown format %q (want one of %s)", f, strings.Join(config.Formats, ", "))
	}
	return f, nil
}

func knownFormat(f string) bool {
	for _, known := range config.Formats {
		if f == known {
			return true
		}
	}
	return false
}

func (c *BuildCmd) write(w io.Writer, format string, res engine.EvalResult, meshes []*kernel.Mesh) error {
	switch format {
	case "stl":
		name := strings.TrimSuffix(filepath.Base(c.Script), filepath.Ext(c.Script))
		return export.WriteSTL(w, name, meshes)
	case "3mf":
		return export.Write3MF(w, meshes)
	default:
		return writeDocument(w, newDocument(res, meshes))
	}
}

// createFile writes path through write and reports the close error.
func createFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()
	return write(f)
}
