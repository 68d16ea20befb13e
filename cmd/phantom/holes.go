package main

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/blockphantom/pkg/geom"
	"github.com/chazu/blockphantom/pkg/graph"
	"github.com/chazu/blockphantom/pkg/phantom"
	"github.com/chazu/blockphantom/pkg/ui"
)

// HolesCmd prints a hole table, either for a fresh block of a given type or
// for a named block of an evaluated script.
type HolesCmd struct {
	Type   string    `arg:"" optional:"" default:"full" help:"Block type: full or half"`
	At     []float64 `help:"Translation x,y,z of the fresh block" placeholder:"X,Y,Z"`
	Steps  []float64 `help:"Quarter turns about x,y,z of the fresh block" placeholder:"X,Y,Z"`
	Script string    `help:"Evaluate this script and report one of its blocks" short:"s" type:"path"`
	Block  string    `help:"Name of the block to report (with --script)" short:"b"`
}

func (c *HolesCmd) Run(e *env) error {
	var (
		b     *phantom.Block
		title string
		err   error
	)
	if c.Script != "" {
		b, err = c.scriptBlock(e)
		title = fmt.Sprintf("%s in %s", c.Block, c.Script)
	} else {
		b, err = c.freshBlock(e)
		title = fmt.Sprintf("%s block", c.Type)
	}
	if err != nil {
		return err
	}

	p := ui.NewPrinter(e.out)
	p.Header(fmt.Sprintf("Holes of %s (%d)", title, b.HoleCount()))
	fmt.Fprintln(e.out, ui.HoleTable(b))
	return nil
}

func (c *HolesCmd) freshBlock(e *env) (*phantom.Block, error) {
	t, err := phantom.ParseBlockType(c.Type)
	if err != nil {
		return nil, err
	}
	var at r3.Vec
	switch len(c.At) {
	case 0:
	case 3:
		at = r3.Vec{X: c.At[0], Y: c.At[1], Z: c.At[2]}
	default:
		return nil, fmt.Errorf("--at needs 3 values, got %d", len(c.At))
	}
	var steps geom.Steps
	if len(c.Steps) > 0 {
		if steps, err = geom.StepsFromFloats(c.Steps); err != nil {
			return nil, fmt.Errorf("--steps: %w", err)
		}
	}
	return e.newKit(0).NewBlock(t, at, steps)
}

func (c *HolesCmd) scriptBlock(e *env) (*phantom.Block, error) {
	if c.Block == "" {
		return nil, errors.New("--script needs --block to name the block to report")
	}
	res, err := e.check(e.newEngine(e.newKit(0)), c.Script)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		reportEval(e.status, res)
		return nil, fmt.Errorf("script %s failed with %d error(s)", c.Script, len(res.Errors))
	}
	n := res.Assembly.Lookup(c.Block)
	if n == nil {
		return nil, fmt.Errorf("%w: no part named %q", graph.ErrUnknownNode, c.Block)
	}
	return res.Assembly.Block(n.ID)
}
