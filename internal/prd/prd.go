// Package prd models the task-list file ("PRD") that drives the agent loop.
//
// The file is written and mutated by the external agent, never by ralph
// itself. Readers here are deliberately tolerant: the producer is an
// uncontrolled process, so a missing or malformed file degrades to a
// "not present" signal instead of an error.
package prd

import (
	"encoding/json"
	"fmt"
	"os"
)

// PRD is the structured backlog for one feature branch.
type PRD struct {
	Project     string  `json:"project"`
	BranchName  string  `json:"branchName"`
	Description string  `json:"description"`
	UserStories []Story `json:"userStories"`
}

// Story is one ordered, checkable work item.
type Story struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	AcceptanceCriteria []string `json:"acceptanceCriteria"`
	Priority           int      `json:"priority"`
	Passes             bool     `json:"passes"`
	Notes              string   `json:"notes"`
}

// Load reads and parses a PRD file into its typed form.
func Load(path string) (*PRD, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading PRD %s: %w", path, err)
	}

	var p PRD
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing PRD %s: %w", path, err)
	}
	return &p, nil
}
