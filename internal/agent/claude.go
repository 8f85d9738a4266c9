package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ClaudeAgent implements the Agent interface for Claude Code CLI.
type ClaudeAgent struct {
	// Command is the path to the claude binary. Defaults to "claude".
	Command string
}

// NewClaudeAgent creates a new Claude Code agent with default settings.
func NewClaudeAgent() *ClaudeAgent {
	return &ClaudeAgent{Command: "claude"}
}

// Name returns "claude".
func (a *ClaudeAgent) Name() string {
	return "claude"
}

// Available checks if the claude CLI is installed and accessible.
func (a *ClaudeAgent) Available() bool {
	_, err := exec.LookPath(a.command())
	return err == nil
}

// Run executes claude with the prompt on stdin.
// Uses --dangerously-skip-permissions for autonomous operation.
// Uses --print to get output without interactive mode.
//
// A failure to spawn the process is returned as an error. A process that
// starts and exits non-zero is not: its output and exit code come back in
// the Result and the caller decides what they mean.
func (a *ClaudeAgent) Run(ctx context.Context, prompt string, opts RunOpts) (*Result, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, a.command(),
		"--dangerously-skip-permissions",
		"--print",
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", a.command(), err)
	}

	// Both streams drain concurrently into one buffer, interleaved by
	// arrival time. Each stream stays internally ordered. Draining starts
	// before the prompt write so a chatty agent cannot wedge the pipes.
	var mu sync.Mutex
	var output strings.Builder
	var wg sync.WaitGroup

	collect := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024) // 1MB max line size
		for scanner.Scan() {
			line := scanner.Text() + "\n"
			mu.Lock()
			output.WriteString(line)
			mu.Unlock()
			if opts.Stream != nil {
				select {
				case opts.Stream <- line:
				case <-ctx.Done():
				}
			}
		}
	}

	wg.Add(2)
	go collect(stdoutPipe)
	go collect(stderrPipe)

	// One write, then close. The agent sees EOF and starts working.
	_, writeErr := io.WriteString(stdin, prompt)
	if closeErr := stdin.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		wg.Wait()
		_ = cmd.Wait()
		return nil, fmt.Errorf("write prompt: %w", writeErr)
	}

	wg.Wait()

	exitCode := 0
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("%s: %w", a.command(), err)
		}
	}

	return &Result{
		Output:   output.String(),
		ExitCode: exitCode,
		Duration: time.Since(start),
	}, nil
}

// command returns the claude binary path.
func (a *ClaudeAgent) command() string {
	if a.Command != "" {
		return a.Command
	}
	return "claude"
}
