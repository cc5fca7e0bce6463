// Package generator walks a validated WorkflowSpec and deterministically
// emits a self-contained Go agent source file, per spec.md §4.5. It never
// infers business logic from prose; tool methods are stubs.
package generator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/soochol/flowforge/internal/ir"
)

// GenerationError reports an implementer bug surfaced while walking valid
// IR — never retried by the controller.
type GenerationError struct {
	Path   string
	Reason string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation error at %s: %s", e.Path, e.Reason)
}

// Metadata accompanies the generated source: size, timestamp, and the
// confidence the Reasoner reported for the IR that produced it.
type Metadata struct {
	WorkflowName string
	CodeSize     int
	GeneratedAt  time.Time
	Confidence   float64
}

// Result bundles the generated source with its metadata.
type Result struct {
	Source   string
	Metadata Metadata
}

// toolSite records one observed call site for a tool_name: the union of
// parameter names used across every call, in first-seen order. description
// is never populated: tool_call nodes carry no description, so no tool
// method gets a description comment.
type toolSite struct {
	name        string
	paramOrder  []string
	paramSeen   map[string]bool
	description string
}

// Generate walks spec and emits a complete Go source file implementing
// the agent described by the IR, plus its metadata record.
func Generate(spec *ir.WorkflowSpec, confidence float64) (*Result, error) {
	if spec == nil || spec.Workflow == nil {
		return nil, &GenerationError{Path: "$", Reason: "nil workflow spec or root node"}
	}

	g := &generation{
		spec:  spec,
		tools: make(map[string]*toolSite),
	}
	if err := g.collectTools(spec.Workflow); err != nil {
		return nil, err
	}

	body, err := g.compileNode(spec.Workflow, "scope")
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	g.writeHeader(&b)
	g.writeCredentialStore(&b)
	g.writeToolMethods(&b)
	g.writeConditionEvaluator(&b)
	g.writeEntryMethod(&b, body)

	source := b.String()
	return &Result{
		Source: source,
		Metadata: Metadata{
			WorkflowName: spec.Name,
			CodeSize:     len(source),
			GeneratedAt:  time.Now(),
			Confidence:   confidence,
		},
	}, nil
}

type generation struct {
	spec       *ir.WorkflowSpec
	tools      map[string]*toolSite
	toolOrder  []string
	tempCursor int
	usesSync   bool
}

// hasCredentialInputs reports whether any input is marked is_credential,
// which determines whether the generated file needs "os" to read them.
func (g *generation) hasCredentialInputs() bool {
	for _, p := range g.spec.Inputs {
		if p.IsCredential {
			return true
		}
	}
	return false
}

// collectTools performs the first-seen, in-order traversal that
// establishes tool-method definition order (spec.md §4.5 point 5) and the
// superset of keyword arguments each tool method must accept.
func (g *generation) collectTools(n *ir.Node) error {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case ir.NodeToolCall:
		site, ok := g.tools[n.ToolName]
		if !ok {
			site = &toolSite{name: n.ToolName, paramSeen: make(map[string]bool)}
			g.tools[n.ToolName] = site
			g.toolOrder = append(g.toolOrder, n.ToolName)
		}
		keys := make([]string, 0, len(n.Parameters))
		for k := range n.Parameters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !site.paramSeen[k] {
				site.paramSeen[k] = true
				site.paramOrder = append(site.paramOrder, k)
			}
		}
	case ir.NodeSequential:
		for _, step := range n.Steps {
			if err := g.collectTools(step); err != nil {
				return err
			}
		}
	case ir.NodeConditional:
		if err := g.collectTools(n.IfBranch); err != nil {
			return err
		}
		if err := g.collectTools(n.ElseBranch); err != nil {
			return err
		}
	case ir.NodeParallel:
		for _, branch := range n.Branches {
			if err := g.collectTools(branch); err != nil {
				return err
			}
		}
	case ir.NodeOrchestrator:
		for _, name := range sortedKeys(n.SubWorkflows) {
			if err := g.collectTools(n.SubWorkflows[name]); err != nil {
				return err
			}
		}
	default:
		return &GenerationError{Reason: fmt.Sprintf("unknown node kind %q", n.Kind)}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
