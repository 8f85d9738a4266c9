package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/pengelbrecht/ralph/internal/agent"
	"github.com/pengelbrecht/ralph/internal/archive"
	"github.com/pengelbrecht/ralph/internal/config"
	"github.com/pengelbrecht/ralph/internal/engine"
	"github.com/pengelbrecht/ralph/internal/prd"
	"github.com/pengelbrecht/ralph/internal/tui"
	"github.com/pengelbrecht/ralph/internal/update"
)

// runLoop is the main command flow: resolve config, reconcile branch state,
// generate or resume the PRD, then drive the iteration loop. Returns the
// process exit code.
func runLoop(inputFile string, maxIterations int, maxIterationsSet, headless bool) int {
	cfg, err := config.Default()
	if err != nil {
		log.Error("resolving configuration", "err", err)
		return 1
	}

	if notice := update.CheckPeriodically(version); notice != "" {
		fmt.Println(dimStyle.Render(notice))
	}

	settings, err := config.LoadSettings(cfg.OutputDir)
	if err != nil {
		log.Warn("ignoring unreadable settings file", "err", err)
	}
	if !maxIterationsSet && settings != nil && settings.MaxIterations > 0 {
		maxIterations = settings.MaxIterations
	}

	status := prd.ReadStatus(cfg.PRDFile)

	claude := agent.NewClaudeAgent()
	if settings != nil && settings.AgentCommand != "" {
		claude.Command = settings.AgentCommand
	}
	if !claude.Available() {
		log.Error("agent CLI not found in PATH", "command", claude.Name())
		return 1
	}

	eng := engine.New(claude, cfg)
	if settings != nil && settings.IterationDelay() > 0 {
		eng.IterationDelay = settings.IterationDelay()
	}

	ctx := context.Background()

	switch {
	case inputFile != "":
		description, err := os.ReadFile(inputFile)
		if err != nil {
			log.Error("reading description file", "file", inputFile, "err", err)
			return 1
		}
		if !generate(ctx, eng, string(description)) {
			return 1
		}
	case !status.Exists:
		description, err := readDescription(os.Stdin)
		if err != nil {
			log.Error("reading description", "err", err)
			return 1
		}
		if !generate(ctx, eng, description) {
			return 1
		}
	default:
		fmt.Printf("Resuming %s: %d/%d stories complete\n",
			status.ProjectName, status.Completed, status.Total)
	}

	// A PRD naming a different branch than the last recorded one supersedes
	// the previous run; snapshot that run's progress log before the loop
	// starts appending to it.
	archive.Run(cfg)

	if err := archive.EnsureProgressLog(cfg); err != nil {
		log.Error("preparing progress log", "err", err)
		return 1
	}

	exitCode := drive(ctx, eng, cfg, maxIterations, headless)

	// Record this run's branch identity for the next run's archival check.
	if p, err := prd.Load(cfg.PRDFile); err == nil && p.BranchName != "" {
		if err := archive.RecordBranch(cfg, p.BranchName); err != nil {
			log.Warn("recording branch", "err", err)
		}
	}

	return exitCode
}

// generate runs the PRD generation flow and reports whether a valid PRD
// exists afterwards.
func generate(ctx context.Context, eng *engine.Engine, description string) bool {
	if strings.TrimSpace(description) == "" {
		log.Error("empty project description")
		return false
	}

	fmt.Println("Generating PRD from description...")
	ok, err := eng.GeneratePRD(ctx, description)
	if err != nil {
		log.Error("PRD generation failed", "err", err)
		return false
	}
	if !ok {
		log.Warn("PRD generation may not have happened: no valid prd.json found")
		return false
	}
	fmt.Println(successStyle.Render("PRD created."))
	return true
}

// drive wires presentation into the engine and runs the loop.
func drive(ctx context.Context, eng *engine.Engine, cfg config.Config, maxIterations int, headless bool) int {
	var indicator *tui.Indicator

	if headless {
		eng.OnIterationStart = func(i, max int) {
			fmt.Printf("[ITER] %d/%d\n", i, max)
		}
		eng.OnOutput = func(chunk string) {
			fmt.Print(chunk)
		}
	} else {
		indicator = tui.NewIndicator()
		indicator.Start()
		eng.OnIterationStart = func(i, max int) {
			indicator.Iteration(i, max)
		}
	}

	res, err := eng.Run(ctx, maxIterations)

	if indicator != nil {
		indicator.Stop()
	}

	if err != nil {
		log.Error("run failed", "err", err)
		return 1
	}

	switch res.Outcome {
	case engine.OutcomeCompleted:
		fmt.Println(successStyle.Render(fmt.Sprintf(
			"Complete after %d iteration(s) in %v.", res.Iteration, res.Duration.Round(1e9))))
		return 0
	default:
		fmt.Println(errorStyle.Render(fmt.Sprintf(
			"Stopped: %s.", res.ExitReason)))
		fmt.Println(dimStyle.Render("See " + cfg.ProgressFile + " for what the agent got done."))
		return 1
	}
}

// readDescription collects a free-form project description from the reader,
// terminated by an empty line.
func readDescription(r io.Reader) (string, error) {
	fmt.Println("Describe the project (finish with an empty line):")

	var sb strings.Builder
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			break
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
