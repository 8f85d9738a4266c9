// Package archive snapshots a superseded run's state when the PRD's branch
// identity changes, and owns the progress log and branch-tracking files.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pengelbrecht/ralph/internal/config"
	"github.com/pengelbrecht/ralph/internal/prd"
)

// ProgressHeader returns a fresh progress log header with the current
// timestamp.
func ProgressHeader() string {
	return fmt.Sprintf("# Ralph Progress Log\nStarted: %s\n---\n", time.Now().Format(time.RFC3339))
}

// EnsureProgressLog creates the progress log with a fresh header if it does
// not exist yet. An existing log is never touched.
func EnsureProgressLog(cfg config.Config) error {
	if _, err := os.Stat(cfg.ProgressFile); err == nil {
		return nil
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := os.WriteFile(cfg.ProgressFile, []byte(ProgressHeader()), 0644); err != nil {
		return fmt.Errorf("writing progress log: %w", err)
	}
	return nil
}

// RecordBranch overwrites the branch-tracking file with the given branch name.
func RecordBranch(cfg config.Config, branch string) error {
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := os.WriteFile(cfg.LastBranchFile, []byte(branch+"\n"), 0644); err != nil {
		return fmt.Errorf("writing branch file: %w", err)
	}
	return nil
}

// LastBranch reads the previously recorded branch name, or "" if none.
func LastBranch(cfg config.Config) string {
	data, err := os.ReadFile(cfg.LastBranchFile)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Run archives the outgoing run's PRD and progress log when the PRD's branch
// name differs from the last recorded one, then resets the progress log.
//
// Archiving is best-effort and must never block a run: every failure in here
// is swallowed. It is a no-op unless both the PRD file and the branch-tracking
// file exist.
func Run(cfg config.Config) {
	if _, err := os.Stat(cfg.PRDFile); err != nil {
		return
	}
	if _, err := os.Stat(cfg.LastBranchFile); err != nil {
		return
	}

	p, err := prd.Load(cfg.PRDFile)
	if err != nil {
		return
	}

	current := p.BranchName
	last := LastBranch(cfg)
	if current == "" || last == "" || current == last {
		return
	}

	folder := filepath.Join(cfg.ArchiveDir, archiveFolderName(time.Now(), last))
	if err := os.MkdirAll(folder, 0755); err != nil {
		return
	}

	// The progress log still holds the outgoing run's history at this
	// point; the loop has not appended to it yet.
	_ = copyFile(cfg.PRDFile, filepath.Join(folder, filepath.Base(cfg.PRDFile)))
	_ = copyFile(cfg.ProgressFile, filepath.Join(folder, filepath.Base(cfg.ProgressFile)))

	_ = os.WriteFile(cfg.ProgressFile, []byte(ProgressHeader()), 0644)
}

// archiveFolderName builds the dated folder name for a superseded branch.
func archiveFolderName(now time.Time, lastBranch string) string {
	name := strings.TrimPrefix(lastBranch, config.BranchPrefix)
	return now.Format("2006-01-02") + "-" + name
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
