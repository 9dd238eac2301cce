package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/lamina/pkg/graph"
)

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// ErrSuperseded is returned when a newer Evaluate call started before this
// one finished.
var ErrSuperseded = errors.New("evaluation superseded by newer request")

type evalResult struct {
	graph  *graph.PlateGraph
	errors []EvalError
	err    error
}

// waitWithTimeout waits for a result from ch, failing after timeout.
// Results whose generation is older than currentGen are discarded.
//
// On timeout the evaluating goroutine may still be running; ch is buffered
// so it can always deliver and exit.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
	timeout time.Duration,
) (*graph.PlateGraph, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return nil, nil, ErrSuperseded
		}
		return res.graph, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("evaluation timed out after %s", timeout)
	}
}
