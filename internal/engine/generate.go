package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pengelbrecht/ralph/internal/prd"
)

// Generation retry parameters. A freshly written file can lag behind the
// agent's exit on some filesystems, so the existence check retries a few
// times before giving up.
const (
	generateReadAttempts = 3
	generateReadDelay    = 2 * time.Second
)

// GeneratePRD asks the agent to convert a free-form project description into
// a PRD file, then checks that the file actually appeared and validates.
//
// The boolean reports whether a valid PRD exists afterwards; a false return
// is a warning condition, not an error; the caller decides whether it is
// fatal. Errors are reserved for spawn failures.
func (e *Engine) GeneratePRD(ctx context.Context, description string) (bool, error) {
	prompt, err := buildGenerationPrompt(e.cfg, description)
	if err != nil {
		return false, err
	}

	if _, err := e.invoke(ctx, prompt); err != nil {
		return false, fmt.Errorf("requesting PRD generation: %w", err)
	}

	for attempt := 1; attempt <= generateReadAttempts; attempt++ {
		if validPRDExists(e.cfg.PRDFile) {
			return true, nil
		}
		if attempt < generateReadAttempts {
			if err := sleep(ctx, e.readDelay()); err != nil {
				return false, err
			}
		}
	}
	return false, nil
}

// readDelay allows tests to shrink the generation retry delay alongside the
// iteration delay.
func (e *Engine) readDelay() time.Duration {
	if e.IterationDelay < generateReadDelay {
		return e.IterationDelay
	}
	return generateReadDelay
}

// validPRDExists reports whether the PRD file is present, parseable, and
// passes validation.
func validPRDExists(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return false
	}
	return prd.Validate(value).Valid
}
