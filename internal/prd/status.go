package prd

import (
	"encoding/json"
	"os"
)

// Status summarizes a PRD file's completion state for resume-vs-create
// decisions and display.
type Status struct {
	// Exists is true when the file is present and parseable.
	Exists bool

	// Incomplete is true when at least one story remains.
	Incomplete bool

	// Total is the story count.
	Total int

	// Remaining counts stories whose passes value is exactly false.
	Remaining int

	// Completed is Total - Remaining.
	Completed int

	// ProjectName is the display name, falling back to the branch name,
	// then "Unknown". Empty when the file does not exist.
	ProjectName string
}

// ReadStatus inspects a PRD file without trusting its shape. A missing,
// unreadable, or syntactically invalid file yields the zero Status; the
// reader never distinguishes "missing" from "corrupt".
//
// Counting is looser than Validate: any passes value other than exactly
// false, including garbage, counts as complete. Validate stays strict at
// write time; this stays lenient for display.
func ReadStatus(path string) Status {
	data, err := os.ReadFile(path)
	if err != nil {
		return Status{}
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return Status{}
	}

	stories, _ := obj["userStories"].([]any)

	remaining := 0
	for _, raw := range stories {
		story, _ := raw.(map[string]any)
		if passes, ok := story["passes"].(bool); ok && !passes {
			remaining++
		}
	}

	name := "Unknown"
	if s, ok := obj["project"].(string); ok && s != "" {
		name = s
	} else if s, ok := obj["branchName"].(string); ok && s != "" {
		name = s
	}

	return Status{
		Exists:      true,
		Incomplete:  remaining > 0,
		Total:       len(stories),
		Remaining:   remaining,
		Completed:   len(stories) - remaining,
		ProjectName: name,
	}
}
