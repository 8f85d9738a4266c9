package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pengelbrecht/ralph/internal/agent"
	"github.com/pengelbrecht/ralph/internal/config"
)

// stubAgent implements agent.Agent for testing. Each call consumes the next
// response; onRun (if set) fires before the response is returned.
type stubAgent struct {
	responses []stubResponse
	callCount int
	onRun     func(call int)
}

type stubResponse struct {
	output   string
	exitCode int
	err      error
}

func (s *stubAgent) Name() string    { return "stub" }
func (s *stubAgent) Available() bool { return true }

func (s *stubAgent) Run(ctx context.Context, prompt string, opts agent.RunOpts) (*agent.Result, error) {
	call := s.callCount
	s.callCount++

	if s.onRun != nil {
		s.onRun(call)
	}

	if call >= len(s.responses) {
		return nil, errors.New("no more stub responses")
	}
	resp := s.responses[call]
	if resp.err != nil {
		return nil, resp.err
	}

	if opts.Stream != nil {
		select {
		case opts.Stream <- resp.output:
		case <-ctx.Done():
		}
	}

	return &agent.Result{
		Output:   resp.output,
		ExitCode: resp.exitCode,
		Duration: time.Millisecond,
	}, nil
}

// testEngine builds an engine over a temp config with a prompt template in
// place and no inter-iteration delay.
func testEngine(t *testing.T, a agent.Agent) (*Engine, config.Config) {
	t.Helper()
	cfg := config.New(t.TempDir(), t.TempDir())
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.PromptFile, []byte("work on the next story"), 0644); err != nil {
		t.Fatal(err)
	}

	e := New(a, cfg)
	e.IterationDelay = 0
	return e, cfg
}

func TestRun_CompletesWhenMarkerAppears(t *testing.T) {
	stub := &stubAgent{responses: []stubResponse{
		{output: "still working on US-001"},
		{output: "done with everything <promise>COMPLETE</promise>"},
	}}
	e, _ := testEngine(t, stub)

	var completedAt int
	e.OnComplete = func(i int) { completedAt = i }

	res, err := e.Run(context.Background(), 10)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Outcome != OutcomeCompleted {
		t.Errorf("Outcome = %v, want %v", res.Outcome, OutcomeCompleted)
	}
	if res.Iteration != 2 {
		t.Errorf("Iteration = %d, want 2", res.Iteration)
	}
	if stub.callCount != 2 {
		t.Errorf("agent invoked %d times, want 2", stub.callCount)
	}
	if completedAt != 2 {
		t.Errorf("OnComplete called with %d, want 2", completedAt)
	}
}

func TestRun_ExhaustsBudget(t *testing.T) {
	stub := &stubAgent{responses: []stubResponse{
		{output: "iterating"},
		{output: "iterating"},
		{output: "iterating"},
	}}
	e, _ := testEngine(t, stub)

	res, err := e.Run(context.Background(), 3)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Outcome != OutcomeExhausted {
		t.Errorf("Outcome = %v, want %v", res.Outcome, OutcomeExhausted)
	}
	if stub.callCount != 3 {
		t.Errorf("agent invoked %d times, want exactly 3", stub.callCount)
	}
	if !strings.Contains(res.ExitReason, "3/3") {
		t.Errorf("ExitReason = %q, want budget mention", res.ExitReason)
	}
}

func TestRun_MarkerEmbeddedAnywhere(t *testing.T) {
	stub := &stubAgent{responses: []stubResponse{
		{output: "prefix text <promise>COMPLETE</promise> suffix text"},
	}}
	e, _ := testEngine(t, stub)

	res, err := e.Run(context.Background(), 5)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Outcome != OutcomeCompleted || res.Iteration != 1 {
		t.Errorf("result = %+v, want completed at iteration 1", res)
	}
}

func TestRun_MissingPromptTemplateIsFatal(t *testing.T) {
	stub := &stubAgent{}
	e, cfg := testEngine(t, stub)
	if err := os.Remove(cfg.PromptFile); err != nil {
		t.Fatal(err)
	}

	_, err := e.Run(context.Background(), 3)
	if err == nil {
		t.Fatal("Run() error = nil, want error for missing prompt template")
	}
	if stub.callCount != 0 {
		t.Errorf("agent invoked %d times before template check, want 0", stub.callCount)
	}
}

func TestRun_SpawnErrorPropagates(t *testing.T) {
	spawnErr := errors.New("executable file not found")
	stub := &stubAgent{responses: []stubResponse{
		{output: "fine"},
		{err: spawnErr},
	}}
	e, _ := testEngine(t, stub)

	_, err := e.Run(context.Background(), 10)
	if err == nil {
		t.Fatal("Run() error = nil, want spawn error")
	}
	if !errors.Is(err, spawnErr) {
		t.Errorf("error = %v, want wrapped %v", err, spawnErr)
	}
	if stub.callCount != 2 {
		t.Errorf("agent invoked %d times, want 2 (no retry after spawn error)", stub.callCount)
	}
}

func TestRun_ExitCodeDoesNotDriveTermination(t *testing.T) {
	// A non-zero exit without the marker continues; a non-zero exit with
	// the marker still completes. Only text matters.
	stub := &stubAgent{responses: []stubResponse{
		{output: "crashed halfway", exitCode: 2},
		{output: "<promise>COMPLETE</promise>", exitCode: 1},
	}}
	e, _ := testEngine(t, stub)

	res, err := e.Run(context.Background(), 5)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Outcome != OutcomeCompleted || res.Iteration != 2 {
		t.Errorf("result = %+v, want completed at iteration 2", res)
	}
}

func TestRun_IterationStartCallback(t *testing.T) {
	stub := &stubAgent{responses: []stubResponse{
		{output: "a"},
		{output: "b"},
	}}
	e, _ := testEngine(t, stub)

	var starts [][2]int
	e.OnIterationStart = func(i, max int) { starts = append(starts, [2]int{i, max}) }

	if _, err := e.Run(context.Background(), 2); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := [][2]int{{1, 2}, {2, 2}}
	if len(starts) != len(want) {
		t.Fatalf("OnIterationStart called %d times, want %d", len(starts), len(want))
	}
	for i := range want {
		if starts[i] != want[i] {
			t.Errorf("call %d = %v, want %v", i, starts[i], want[i])
		}
	}
}

func TestRun_OutputStreamedToCallback(t *testing.T) {
	stub := &stubAgent{responses: []stubResponse{
		{output: "chunk from the agent <promise>COMPLETE</promise>"},
	}}
	e, _ := testEngine(t, stub)

	var streamed strings.Builder
	e.OnOutput = func(chunk string) { streamed.WriteString(chunk) }

	if _, err := e.Run(context.Background(), 1); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(streamed.String(), "chunk from the agent") {
		t.Errorf("streamed = %q, want agent output", streamed.String())
	}
}

func TestRun_DefaultMaxIterations(t *testing.T) {
	stub := &stubAgent{}
	for i := 0; i < DefaultMaxIterations; i++ {
		stub.responses = append(stub.responses, stubResponse{output: "iterating"})
	}
	e, _ := testEngine(t, stub)

	res, err := e.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Outcome != OutcomeExhausted {
		t.Errorf("Outcome = %v, want exhausted", res.Outcome)
	}
	if stub.callCount != DefaultMaxIterations {
		t.Errorf("agent invoked %d times, want default %d", stub.callCount, DefaultMaxIterations)
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stub := &stubAgent{responses: []stubResponse{{output: "x"}}}
	e, _ := testEngine(t, stub)

	_, err := e.Run(ctx, 3)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if stub.callCount != 0 {
		t.Errorf("agent invoked %d times after cancellation, want 0", stub.callCount)
	}
}

func TestOutcome_String(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    string
	}{
		{OutcomeCompleted, "COMPLETED"},
		{OutcomeExhausted, "EXHAUSTED"},
		{Outcome(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.want {
			t.Errorf("Outcome.String() = %q, want %q", got, tt.want)
		}
	}
}

func TestGeneratePRD_Success(t *testing.T) {
	validPRD := `{
		"project": "Demo",
		"branchName": "ralph/demo",
		"description": "d",
		"userStories": [
			{"id": "US-001", "title": "t", "description": "d",
			 "acceptanceCriteria": [], "priority": 1, "passes": false, "notes": ""}
		]
	}`

	stub := &stubAgent{
		responses: []stubResponse{{output: "wrote the PRD"}},
	}
	e, cfg := testEngine(t, stub)
	stub.onRun = func(int) {
		// The agent writes the file as a side effect of its run.
		if err := os.WriteFile(cfg.PRDFile, []byte(validPRD), 0644); err != nil {
			t.Error(err)
		}
	}

	ok, err := e.GeneratePRD(context.Background(), "build a demo")
	if err != nil {
		t.Fatalf("GeneratePRD() error = %v", err)
	}
	if !ok {
		t.Error("GeneratePRD() = false, want true for valid PRD")
	}
}

func TestGeneratePRD_FileNeverAppears(t *testing.T) {
	stub := &stubAgent{responses: []stubResponse{{output: "did nothing"}}}
	e, _ := testEngine(t, stub)

	ok, err := e.GeneratePRD(context.Background(), "build a demo")
	if err != nil {
		t.Fatalf("GeneratePRD() error = %v", err)
	}
	if ok {
		t.Error("GeneratePRD() = true, want false when no file was written")
	}
	if stub.callCount != 1 {
		t.Errorf("agent invoked %d times, want 1 (retries re-read, not re-invoke)", stub.callCount)
	}
}

func TestGeneratePRD_InvalidFileIsFalse(t *testing.T) {
	stub := &stubAgent{responses: []stubResponse{{output: "wrote something"}}}
	e, cfg := testEngine(t, stub)
	stub.onRun = func(int) {
		if err := os.WriteFile(cfg.PRDFile, []byte(`{"project": "missing the rest"}`), 0644); err != nil {
			t.Error(err)
		}
	}

	ok, err := e.GeneratePRD(context.Background(), "build a demo")
	if err != nil {
		t.Fatalf("GeneratePRD() error = %v", err)
	}
	if ok {
		t.Error("GeneratePRD() = true, want false for invalid PRD")
	}
}

func TestGeneratePRD_SpawnErrorPropagates(t *testing.T) {
	stub := &stubAgent{responses: []stubResponse{{err: errors.New("spawn failed")}}}
	e, _ := testEngine(t, stub)

	_, err := e.GeneratePRD(context.Background(), "build a demo")
	if err == nil {
		t.Fatal("GeneratePRD() error = nil, want spawn error")
	}
}

func TestBuildGenerationPrompt(t *testing.T) {
	cfg := config.New(filepath.Join("/w"), filepath.Join("/s"))

	prompt, err := buildGenerationPrompt(cfg, "build a todo app")
	if err != nil {
		t.Fatalf("buildGenerationPrompt() error = %v", err)
	}
	for _, want := range []string{"build a todo app", cfg.PRDFile, "ralph/", "US-001", `"passes": false`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
