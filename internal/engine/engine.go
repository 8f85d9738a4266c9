// Package engine drives the Ralph iteration loop: one agent invocation per
// iteration until the completion marker appears or the budget runs out.
package engine

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pengelbrecht/ralph/internal/agent"
	"github.com/pengelbrecht/ralph/internal/config"
)

// Defaults for a run.
const (
	DefaultMaxIterations  = 10
	DefaultIterationDelay = 2 * time.Second
)

// Engine orchestrates the Ralph iteration loop.
type Engine struct {
	agent agent.Agent
	cfg   config.Config

	// IterationDelay is the pause between iterations. It exists to avoid
	// hammering the agent, not for correctness.
	IterationDelay time.Duration

	// Callbacks for presentation (optional). They must not affect control
	// flow; the loop ignores anything they do.
	OnIterationStart func(iteration, max int)
	OnComplete       func(iteration int)
	OnOutput         func(chunk string)
}

// New creates an engine with the given agent and configuration.
func New(a agent.Agent, cfg config.Config) *Engine {
	return &Engine{
		agent:          a,
		cfg:            cfg,
		IterationDelay: DefaultIterationDelay,
	}
}

// Outcome is the terminal state of a run.
type Outcome int

const (
	// OutcomeCompleted means the agent emitted the completion marker.
	OutcomeCompleted Outcome = iota

	// OutcomeExhausted means the iteration budget ran out without the
	// marker appearing. This is a normal terminal state, not an error.
	OutcomeExhausted
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "COMPLETED"
	case OutcomeExhausted:
		return "EXHAUSTED"
	default:
		return "UNKNOWN"
	}
}

// RunResult contains the outcome of an engine run.
type RunResult struct {
	// Outcome is the terminal state.
	Outcome Outcome

	// Iteration is the iteration at which the marker appeared (for
	// OutcomeCompleted), or the last iteration executed.
	Iteration int

	// Duration is the total wall-clock time.
	Duration time.Duration

	// ExitReason describes why the run ended.
	ExitReason string
}

// Run executes up to maxIterations agent invocations with the static prompt
// template, stopping early when the completion marker shows up in an
// iteration's combined output.
//
// A missing prompt template and a failed spawn are fatal and propagate as
// errors; they are never retried and never count as exhaustion. An agent run
// that finishes without the marker is the normal continue path regardless of
// its exit code.
func (e *Engine) Run(ctx context.Context, maxIterations int) (*RunResult, error) {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	prompt, err := os.ReadFile(e.cfg.PromptFile)
	if err != nil {
		return nil, fmt.Errorf("reading prompt template: %w", err)
	}

	start := time.Now()

	for i := 1; i <= maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if e.OnIterationStart != nil {
			e.OnIterationStart(i, maxIterations)
		}

		output, err := e.invoke(ctx, string(prompt))
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}

		if strings.Contains(output, e.cfg.Marker) {
			if e.OnComplete != nil {
				e.OnComplete(i)
			}
			return &RunResult{
				Outcome:    OutcomeCompleted,
				Iteration:  i,
				Duration:   time.Since(start),
				ExitReason: fmt.Sprintf("completion marker detected at iteration %d", i),
			}, nil
		}

		if i < maxIterations {
			if err := sleep(ctx, e.IterationDelay); err != nil {
				return nil, err
			}
		}
	}

	return &RunResult{
		Outcome:    OutcomeExhausted,
		Iteration:  maxIterations,
		Duration:   time.Since(start),
		ExitReason: fmt.Sprintf("iteration budget exhausted (%d/%d)", maxIterations, maxIterations),
	}, nil
}

// invoke runs one agent call and returns its combined output.
func (e *Engine) invoke(ctx context.Context, prompt string) (string, error) {
	opts := agent.RunOpts{}

	var streamChan chan string
	var done chan struct{}
	if e.OnOutput != nil {
		streamChan = make(chan string, 100)
		done = make(chan struct{})
		opts.Stream = streamChan

		go func() {
			defer close(done)
			for chunk := range streamChan {
				e.OnOutput(chunk)
			}
		}()
	}

	result, err := e.agent.Run(ctx, prompt, opts)

	if streamChan != nil {
		close(streamChan)
		<-done
	}

	if err != nil {
		return "", err
	}
	return result.Output, nil
}

// sleep pauses cooperatively, giving up early on context cancellation.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
