package agent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestClaudeAgent_Name(t *testing.T) {
	agent := NewClaudeAgent()
	if got := agent.Name(); got != "claude" {
		t.Errorf("Name() = %q, want %q", got, "claude")
	}
}

func TestClaudeAgent_Available_CustomCommand(t *testing.T) {
	agent := &ClaudeAgent{Command: "nonexistent-claude-binary-xyz"}
	if agent.Available() {
		t.Error("Available() = true for nonexistent command, want false")
	}
}

func TestClaudeAgent_command(t *testing.T) {
	tests := []struct {
		name  string
		agent *ClaudeAgent
		want  string
	}{
		{
			name:  "default command",
			agent: &ClaudeAgent{},
			want:  "claude",
		},
		{
			name:  "custom command",
			agent: &ClaudeAgent{Command: "/usr/local/bin/claude"},
			want:  "/usr/local/bin/claude",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.agent.command(); got != tt.want {
				t.Errorf("command() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClaudeAgent_Run_SpawnError(t *testing.T) {
	agent := &ClaudeAgent{Command: "nonexistent-claude-binary-xyz"}

	_, err := agent.Run(context.Background(), "prompt", RunOpts{})
	if err == nil {
		t.Fatal("Run() error = nil, want spawn error")
	}
	if !strings.Contains(err.Error(), "nonexistent-claude-binary-xyz") {
		t.Errorf("error = %v, want mention of the binary", err)
	}
}

// The tests below use /bin/sh as a stand-in agent: it reads the prompt on
// stdin and produces output on both streams, which is exactly the collector
// contract.

func TestClaudeAgent_Run_CollectsBothStreams(t *testing.T) {
	agent := &ClaudeAgent{Command: shim(t, `cat > /dev/null; echo "to stdout"; echo "to stderr" >&2`)}

	res, err := agent.Run(context.Background(), "the prompt", RunOpts{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(res.Output, "to stdout") {
		t.Errorf("Output = %q, missing stdout content", res.Output)
	}
	if !strings.Contains(res.Output, "to stderr") {
		t.Errorf("Output = %q, missing stderr content", res.Output)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
}

func TestClaudeAgent_Run_PromptReachesStdin(t *testing.T) {
	agent := &ClaudeAgent{Command: shim(t, `cat`)}

	res, err := agent.Run(context.Background(), "echo this back\n", RunOpts{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(res.Output, "echo this back") {
		t.Errorf("Output = %q, want prompt echoed back", res.Output)
	}
}

func TestClaudeAgent_Run_NonZeroExitIsNotAnError(t *testing.T) {
	agent := &ClaudeAgent{Command: shim(t, `cat > /dev/null; echo "partial work"; exit 3`)}

	res, err := agent.Run(context.Background(), "prompt", RunOpts{})
	if err != nil {
		t.Fatalf("Run() error = %v, want nil for non-zero exit", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if !strings.Contains(res.Output, "partial work") {
		t.Errorf("Output = %q, want output preserved", res.Output)
	}
}

func TestClaudeAgent_Run_Streaming(t *testing.T) {
	agent := &ClaudeAgent{Command: shim(t, `cat > /dev/null; echo one; echo two`)}

	stream := make(chan string, 16)
	res, err := agent.Run(context.Background(), "prompt", RunOpts{Stream: stream})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	close(stream)

	var chunks []string
	for c := range stream {
		chunks = append(chunks, c)
	}
	joined := strings.Join(chunks, "")
	if joined != res.Output {
		t.Errorf("streamed %q, buffered %q; want identical", joined, res.Output)
	}
}

// shim writes a shell script to a temp file and returns its path, giving the
// tests a controllable agent binary.
func shim(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent-shim")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}
