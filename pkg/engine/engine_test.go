package engine

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestEvaluateEmptySource(t *testing.T) {
	for _, src := range []string{"", "   \n\t  \n  "} {
		g, evalErrs, err := NewEngine().Evaluate(src)
		if err != nil {
			t.Fatalf("Evaluate(%q) fatal error: %v", src, err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("Evaluate(%q) eval errors: %v", src, evalErrs)
		}
		if g == nil || g.NodeCount() != 0 {
			t.Errorf("Evaluate(%q) should give an empty graph", src)
		}
	}
}

func TestEvaluateMultipleExpressions(t *testing.T) {
	source := `
(def x 10)
(def y 20)
(+ x y)
`
	g, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if g == nil {
		t.Fatal("expected non-nil graph")
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	// Unmatched paren on line 2.
	g, evalErrs, err := NewEngine().Evaluate("(+ 1 2)\n(+ 3")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if g != nil {
		t.Fatal("expected nil graph on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	g, evalErrs, err := NewEngine().Evaluate("(+ 1 undefined-symbol)")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if g != nil {
		t.Fatal("expected nil graph on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Message: "something went wrong"}
	if got := e.Error(); got != "line 5: something went wrong" {
		t.Errorf("Error() = %q", got)
	}
	e2 := EvalError{Message: "no location"}
	if got := e2.Error(); got != "no location" {
		t.Errorf("Error() = %q, want no line prefix", got)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	source := `
(defshape "cube" (box 10 10 10))
(object "pair"
  (place (shape "cube") :at (vec3 0 0 0))
  (place (shape "cube") :at (vec3 20 0 0)))
`
	eng := NewEngine()
	first, _, err := eng.Evaluate(source)
	if err != nil || first == nil {
		t.Fatalf("first evaluation failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		g, evalErrs, err := eng.Evaluate(source)
		if err != nil || len(evalErrs) > 0 {
			t.Fatalf("iteration %d: %v %v", i, err, evalErrs)
		}
		if g.NodeCount() != first.NodeCount() {
			t.Fatalf("iteration %d: %d nodes, want %d", i, g.NodeCount(), first.NodeCount())
		}
		for id := range first.Nodes {
			if g.Get(id) == nil {
				t.Errorf("iteration %d: node %s missing", i, id.Short())
			}
		}
	}
}

func TestEvaluateTimeout(t *testing.T) {
	var mu sync.Mutex
	var gen uint64 = 1
	ch := make(chan evalResult) // never sends

	start := time.Now()
	_, _, err := waitWithTimeout(ch, 1, &mu, &gen, 50*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error message, got: %v", err)
	}
	if time.Since(start) > EvalTimeout {
		t.Error("custom timeout was not honored")
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(2) // current generation is 2

	ch := make(chan evalResult, 1)
	ch <- evalResult{}

	_, _, err := waitWithTimeout(ch, 1, &mu, &gen, EvalTimeout)
	if !errors.Is(err, ErrSuperseded) {
		t.Errorf("waitWithTimeout(stale) = %v, want ErrSuperseded", err)
	}
}

func TestEvaluateValidationFailure(t *testing.T) {
	// An object whose only child is a placement of a flat shape scaled to
	// nothing fails graph validation rather than evaluation.
	source := `
(defshape "tag" (outline (vec2 0 0) (vec2 5 0) (vec2 5 5)))
(object "o" (place (shape "tag") :scale (vec3 1 0 1)))
`
	g, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if g != nil {
		t.Fatal("expected nil graph on validation failure")
	}
	if len(evalErrs) == 0 || !strings.Contains(evalErrs[0].Message, "collapses") {
		t.Errorf("eval errors = %v, want a collapsed scale finding", evalErrs)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line format", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"no line info", "some generic error", 0, "some generic error"},
		{"line format lowercase", "error on line 12: missing paren", 12, "missing paren"},
		{"short line format", "line 3: bad arity", 3, "bad arity"},
		{"detail on later lines", "Error on line 2:\nbox: size must be positive", 2, "box: size must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errors.New(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if e.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", e.Message, tt.wantMsg)
			}
		})
	}
}
