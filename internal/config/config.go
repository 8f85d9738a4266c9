// Package config derives every file location ralph touches from two roots:
// the working root (mutable run state) and the install root (static assets).
package config

import (
	"os"
	"path/filepath"
)

const (
	// RalphDir is the subdirectory under the working root that holds all
	// mutable run state.
	RalphDir = ".ralph"

	// BranchPrefix is the namespace every PRD branch name must start with.
	BranchPrefix = "ralph/"

	// CompletionMarker is the literal substring the agent emits when it
	// declares all work done.
	CompletionMarker = "<promise>COMPLETE</promise>"

	prdFileName      = "prd.json"
	progressFileName = "progress.md"
	archiveDirName   = "archive"
	branchFileName   = ".last-branch"
	promptFileName   = "prompt.md"
)

// Config holds resolved paths for a single run. Values are derived by pure
// path joining; nothing here checks for existence or touches the filesystem.
//
// PRD, progress log, archive and branch-tracking paths are always under the
// working root. The prompt template is always under the install root. The two
// roots may be the same directory.
type Config struct {
	// WorkRoot is the directory owning all mutable run state.
	WorkRoot string

	// InstallRoot is the directory owning the static prompt template.
	InstallRoot string

	// OutputDir is WorkRoot/.ralph.
	OutputDir string

	// PRDFile is the task-list file path.
	PRDFile string

	// ProgressFile is the progress log path.
	ProgressFile string

	// ArchiveDir holds snapshots of superseded runs.
	ArchiveDir string

	// LastBranchFile records the branch name of the previous run.
	LastBranchFile string

	// PromptFile is the static per-iteration prompt template.
	PromptFile string

	// Marker is the completion marker literal checked against agent output.
	Marker string
}

// New builds a Config from the given roots.
func New(workRoot, installRoot string) Config {
	outputDir := filepath.Join(workRoot, RalphDir)
	return Config{
		WorkRoot:       workRoot,
		InstallRoot:    installRoot,
		OutputDir:      outputDir,
		PRDFile:        filepath.Join(outputDir, prdFileName),
		ProgressFile:   filepath.Join(outputDir, progressFileName),
		ArchiveDir:     filepath.Join(outputDir, archiveDirName),
		LastBranchFile: filepath.Join(outputDir, branchFileName),
		PromptFile:     filepath.Join(installRoot, promptFileName),
		Marker:         CompletionMarker,
	}
}

// Default resolves the working root to the current directory and the install
// root to the directory containing the running binary.
func Default() (Config, error) {
	workRoot, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	exe, err := os.Executable()
	if err != nil {
		return Config{}, err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	return New(workRoot, filepath.Dir(exe)), nil
}
