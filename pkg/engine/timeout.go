package engine

import (
	"fmt"
	"time"

	"github.com/chazu/blockphantom/pkg/graph"
)

// DefaultTimeout is the evaluation limit unless WithTimeout says otherwise.
const DefaultTimeout = 5 * time.Second

// evalResult passes evaluation output from the worker goroutine.
type evalResult struct {
	assembly *graph.Assembly
	errors   []EvalError
	err      error
}

// waitWithTimeout waits for a result from ch, but returns a timeout error
// if the evaluation exceeds the engine timeout. It uses the generation
// counter to discard stale results from previous evaluations.
//
// On timeout the goroutine may still be running; the generation check
// ensures its result is discarded when it eventually completes.
func (e *Engine) waitWithTimeout(ch <-chan evalResult, gen uint64) (*graph.Assembly, []EvalError, error) {
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		e.mu.Lock()
		current := e.generation
		e.mu.Unlock()

		if gen != current {
			return nil, nil, fmt.Errorf("evaluation superseded by newer request")
		}
		return res.assembly, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("evaluation timed out after %s", e.timeout)
	}
}
