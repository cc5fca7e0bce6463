// Package parser extracts labeled sections from a loosely structured
// natural-language workflow specification. It never fails the run: every
// problem it finds is reported as a soft Diagnostic and the Reasoner
// receives whichever sections were actually found.
package parser

import (
	"bufio"
	"regexp"
	"strings"
)

// Sections holds the labeled blocks recognized in a raw spec.
type Sections struct {
	Name        string
	Description string
	InputsText  string
	StepsText   string
	OutputsText string
}

// Diagnostic is a soft, non-fatal parse observation.
type Diagnostic struct {
	Code    string
	Message string
}

const (
	DiagMissingSection  = "MISSING_SECTION"
	DiagEmptySteps      = "EMPTY_STEPS"
	DiagDuplicateSection = "DUPLICATE_SECTION"
)

var labelPattern = regexp.MustCompile(`(?i)^(workflow|description|inputs|steps|outputs)\s*:\s*(.*)$`)

// label is the canonical lower-case form of a recognized label.
type label string

const (
	labelWorkflow    label = "workflow"
	labelDescription label = "description"
	labelInputs      label = "inputs"
	labelSteps       label = "steps"
	labelOutputs     label = "outputs"
)

// Parse extracts Sections and soft Diagnostics from raw spec text.
func Parse(raw string) (Sections, []Diagnostic) {
	var (
		sections Sections
		diags    []Diagnostic
		seen     = map[label]bool{}
		current  label
		buf      strings.Builder
	)

	flush := func() {
		text := strings.TrimSpace(buf.String())
		switch current {
		case labelWorkflow:
			sections.Name = text
		case labelDescription:
			sections.Description = text
		case labelInputs:
			sections.InputsText = text
		case labelSteps:
			sections.StepsText = text
		case labelOutputs:
			sections.OutputsText = text
		}
		buf.Reset()
	}

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if m := labelPattern.FindStringSubmatch(line); m != nil {
			if current != "" {
				flush()
			}
			current = label(strings.ToLower(m[1]))
			if seen[current] {
				diags = append(diags, Diagnostic{
					Code:    DiagDuplicateSection,
					Message: "duplicate section: " + string(current),
				})
			}
			seen[current] = true
			if rest := strings.TrimSpace(m[2]); rest != "" {
				buf.WriteString(rest)
				buf.WriteString("\n")
			}
			continue
		}
		if current == "" {
			continue
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	if current != "" {
		flush()
	}

	for _, want := range []label{labelWorkflow, labelSteps} {
		if !seen[want] {
			diags = append(diags, Diagnostic{
				Code:    DiagMissingSection,
				Message: "missing section: " + string(want),
			})
		}
	}
	if seen[labelSteps] && strings.TrimSpace(sections.StepsText) == "" {
		diags = append(diags, Diagnostic{Code: DiagEmptySteps, Message: "steps section is empty"})
	}

	return sections, diags
}

// ParameterEntry is a single "- name (type): description" line parsed from
// an Inputs: or Outputs: block.
type ParameterEntry struct {
	Name        string
	Type        string
	Description string
}

var paramLinePattern = regexp.MustCompile(`^-\s*([a-zA-Z0-9_]+)\s*\(([a-zA-Z]+)\)\s*:\s*(.*)$`)

// ParseParameters extracts ParameterEntry values from the "- name (type):
// description" lines of an Inputs:/Outputs: block. Lines that do not match
// the expected shape are skipped.
func ParseParameters(sectionText string) []ParameterEntry {
	var out []ParameterEntry
	for _, line := range strings.Split(sectionText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := paramLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, ParameterEntry{
			Name:        strings.ToLower(m[1]),
			Type:        strings.ToLower(m[2]),
			Description: strings.TrimSpace(m[3]),
		})
	}
	return out
}

var numberedStepPattern = regexp.MustCompile(`^(\d+)\.\s*(.*)$`)

// ParseSteps splits a Steps: block into individual numbered steps.
// Continuation lines (not starting with "N.") are appended to the
// previous step's text.
func ParseSteps(sectionText string) []string {
	var steps []string
	for _, line := range strings.Split(sectionText, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if m := numberedStepPattern.FindStringSubmatch(trimmed); m != nil {
			steps = append(steps, strings.TrimSpace(m[2]))
			continue
		}
		if len(steps) > 0 {
			steps[len(steps)-1] = strings.TrimSpace(steps[len(steps)-1] + " " + trimmed)
		}
	}
	return steps
}
