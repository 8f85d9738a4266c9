package agent

import (
	"context"
	"time"
)

// Agent defines the interface for AI coding agents.
type Agent interface {
	// Name returns the agent's display name.
	Name() string

	// Available checks if the agent's CLI is installed and accessible.
	Available() bool

	// Run executes the agent with the given prompt. The whole prompt is
	// written to the agent's stdin in one operation, then stdin is closed;
	// there is no interactive back-and-forth.
	Run(ctx context.Context, prompt string, opts RunOpts) (*Result, error)
}

// RunOpts configures an agent run.
type RunOpts struct {
	// Stream receives chunks of output for real-time display.
	// If nil, output is only buffered and returned in Result.Output.
	Stream chan<- string
}

// Result contains the collected output from an agent run.
//
// Output interleaves stdout and stderr by arrival time; each stream is
// internally ordered but there is no ordering guarantee between the two.
type Result struct {
	// Output is the full combined text output from the agent.
	Output string

	// ExitCode is the process exit status. It is recorded for reporting
	// only; callers decide completion from Output, never from this.
	ExitCode int

	// Duration is how long the run took.
	Duration time.Duration
}
