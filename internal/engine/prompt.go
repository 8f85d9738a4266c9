package engine

import (
	"strings"
	"text/template"

	"github.com/pengelbrecht/ralph/internal/config"
)

var generationTmpl = template.Must(template.New("generate").Parse(generationTemplate))

// generationData holds the data passed to the generation prompt template.
type generationData struct {
	Description  string
	PRDFile      string
	BranchPrefix string
}

// buildGenerationPrompt renders the one-shot prompt that asks the agent to
// turn a free-form description into a PRD file.
func buildGenerationPrompt(cfg config.Config, description string) (string, error) {
	var buf strings.Builder
	err := generationTmpl.Execute(&buf, generationData{
		Description:  description,
		PRDFile:      cfg.PRDFile,
		BranchPrefix: config.BranchPrefix,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// generationTemplate instructs the agent on the exact file and schema to
// produce. The schema mirrors what the validator checks.
const generationTemplate = `# Create a PRD

Convert the project description below into a PRD file at ` + "`{{.PRDFile}}`" + `.

## Project Description

{{.Description}}

## Required JSON shape

` + "```json" + `
{
  "project": "<short display name>",
  "branchName": "{{.BranchPrefix}}<kebab-case-feature-name>",
  "description": "<one-paragraph summary>",
  "userStories": [
    {
      "id": "US-001",
      "title": "<short title>",
      "description": "<what to build>",
      "acceptanceCriteria": ["<criterion>", "..."],
      "priority": 1,
      "passes": false,
      "notes": ""
    }
  ]
}
` + "```" + `

## Rules

1. Story ids are "US-" plus a zero-padded 3-digit sequence in list order with no gaps.
2. Priorities are the numbers 1..N, each used exactly once.
3. Every story starts with "passes": false and empty "notes".
4. The branch name must start with "{{.BranchPrefix}}".
5. Write only the file. Do not implement any stories yet.
`
