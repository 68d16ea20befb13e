package main

import (
	"fmt"

	"github.com/chazu/blockphantom/pkg/graph"
	"github.com/chazu/blockphantom/pkg/ui"
)

// ValidateCmd evaluates a script and reports the validation findings of the
// assembly it builds.
type ValidateCmd struct {
	Script string `arg:"" help:"Assembly script to evaluate" type:"path"`
	Strict bool   `help:"Fail on warnings too"`
}

func (c *ValidateCmd) Run(e *env) error {
	res, err := e.check(e.newEngine(e.newKit(0)), c.Script)
	if err != nil {
		return err
	}

	p := ui.NewPrinter(e.out)
	p.Header("Validate " + c.Script)
	reportEval(p, res)
	if len(res.Errors) > 0 {
		return fmt.Errorf("script %s failed with %d error(s)", c.Script, len(res.Errors))
	}

	a := res.Assembly
	p.Info(fmt.Sprintf("%d blocks, %d connectors, %d joins", len(a.Blocks()), len(a.Connectors()), len(a.Joins())))

	var errs, warns int
	for _, f := range res.Findings {
		if f.Severity == graph.SeverityError {
			errs++
		} else {
			warns++
		}
	}
	switch {
	case errs > 0:
		return fmt.Errorf("assembly has %d error(s) and %d warning(s)", errs, warns)
	case warns > 0 && c.Strict:
		return fmt.Errorf("assembly has %d warning(s)", warns)
	case warns > 0:
		p.Success(fmt.Sprintf("Assembly is valid with %d warning(s)", warns))
	default:
		p.Success("Assembly is valid")
	}
	return nil
}
