package prd

import (
	"fmt"
	"strings"

	"github.com/pengelbrecht/ralph/internal/config"
)

// Validation is the outcome of checking a decoded PRD value. It is always
// returned, never panicked out of, no matter how malformed the input is.
type Validation struct {
	// Valid is true when no errors accumulated.
	Valid bool

	// Errors lists every problem found, in field order.
	Errors []string
}

// Summary returns a human-readable report of the validation outcome.
func (v *Validation) Summary() string {
	if v.Valid {
		return "prd.json is valid"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("prd.json is invalid (%d errors)\n", len(v.Errors)))
	for _, e := range v.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", e))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// storyFields are the required per-story fields, checked in this order.
var storyFields = []struct {
	name string
	ok   func(v any, present bool) bool
}{
	{"id", isNonEmptyString},
	{"title", isNonEmptyString},
	{"description", isNonEmptyString},
	{"acceptanceCriteria", isArray},
	{"priority", isNumber},
	{"passes", isBool},
	{"notes", isString},
}

// Validate checks an arbitrary decoded value against the PRD schema. It never
// raises; all findings accumulate into the returned Validation.
//
// Top-level fields are checked first (one message each, no early exit), then
// each story's shape, then the two cross-story sequencing invariants. The
// sequencing checks are independent of the shape checks: a story with a bad
// shape still participates with best-effort values.
func Validate(value any) *Validation {
	var errs []string

	obj, ok := value.(map[string]any)
	if !ok {
		errs = append(errs,
			`Missing or invalid "project" field`,
			`Missing or invalid "branchName" field`,
			`Missing or invalid "description" field`,
			`Missing or invalid "userStories" field`,
		)
		return &Validation{Valid: false, Errors: errs}
	}

	errs = appendFieldError(errs, obj, "project", isNonEmptyString)

	branch, branchPresent := obj["branchName"]
	if s, ok := branch.(string); branchPresent && ok && s != "" {
		if !strings.HasPrefix(s, config.BranchPrefix) {
			errs = append(errs, fmt.Sprintf(`"branchName" must start with %q`, config.BranchPrefix))
		}
	} else {
		errs = append(errs, `Missing or invalid "branchName" field`)
	}

	errs = appendFieldError(errs, obj, "description", isNonEmptyString)

	stories, ok := obj["userStories"].([]any)
	if !ok {
		errs = append(errs, `Missing or invalid "userStories" field`)
		return result(errs)
	}

	for i, raw := range stories {
		story, _ := raw.(map[string]any)
		for _, f := range storyFields {
			v, present := story[f.name]
			if !f.ok(v, present) {
				errs = append(errs, fmt.Sprintf(`userStories[%d]: Missing or invalid %q field`, i, f.name))
			}
		}
	}

	if msg := checkSequentialPriorities(stories); msg != "" {
		errs = append(errs, msg)
	}
	if msg := checkSequentialIDs(stories); msg != "" {
		errs = append(errs, msg)
	}

	return result(errs)
}

func result(errs []string) *Validation {
	return &Validation{Valid: len(errs) == 0, Errors: errs}
}

func appendFieldError(errs []string, obj map[string]any, name string, ok func(v any, present bool) bool) []string {
	v, present := obj[name]
	if !ok(v, present) {
		errs = append(errs, fmt.Sprintf(`Missing or invalid %q field`, name))
	}
	return errs
}

// checkSequentialPriorities verifies the sorted priorities form exactly 1..N.
// Only the first violation is reported.
func checkSequentialPriorities(stories []any) string {
	seen := make(map[int]bool)
	var priorities []int
	for _, raw := range stories {
		story, _ := raw.(map[string]any)
		if n, ok := story["priority"].(float64); ok {
			priorities = append(priorities, int(n))
		}
	}

	for _, p := range priorities {
		if seen[p] {
			return fmt.Sprintf("Story priorities are not sequential: duplicate priority %d", p)
		}
		seen[p] = true
	}
	for want := 1; want <= len(priorities); want++ {
		if !seen[want] {
			return fmt.Sprintf("Story priorities are not sequential: missing priority %d", want)
		}
	}
	return ""
}

// checkSequentialIDs verifies ids in list order are exactly US-001, US-002, …
// Only the first violation is reported.
func checkSequentialIDs(stories []any) string {
	for i, raw := range stories {
		story, _ := raw.(map[string]any)
		id, _ := story["id"].(string)
		want := fmt.Sprintf("US-%03d", i+1)
		if id != want {
			return fmt.Sprintf("Story IDs are not sequential: expected %q, found %q", want, id)
		}
	}
	return ""
}

func isString(v any, present bool) bool {
	_, ok := v.(string)
	return present && ok
}

func isNonEmptyString(v any, present bool) bool {
	s, ok := v.(string)
	return present && ok && s != ""
}

func isArray(v any, present bool) bool {
	_, ok := v.([]any)
	return present && ok
}

func isNumber(v any, present bool) bool {
	_, ok := v.(float64)
	return present && ok
}

func isBool(v any, present bool) bool {
	_, ok := v.(bool)
	return present && ok
}
