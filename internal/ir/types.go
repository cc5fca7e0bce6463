// Package ir defines the typed intermediate representation produced by the
// Reasoner, enforced by the Validator, and consumed by the Serializer and
// Generator. WorkflowSpec, Parameter and Node are immutable once they sit
// inside a validated WorkflowSpec; retries build a brand new candidate
// rather than mutating one in place.
package ir

import (
	"regexp"
	"strings"
)

// identifierPattern matches the identifier grammar shared by workflow
// names, parameter names, tool names, assigns_to bindings and
// orchestrator sub-workflow keys: snake_case, 1-64 chars.
var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidIdentifier reports whether s satisfies the identifier grammar.
func IsValidIdentifier(s string) bool {
	if len(s) == 0 || len(s) > 64 {
		return false
	}
	return identifierPattern.MatchString(s)
}

// ParamType enumerates the allowed Parameter.Type values.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeInteger ParamType = "integer"
	TypeFloat   ParamType = "float"
	TypeBoolean ParamType = "boolean"
	TypeDate    ParamType = "date"
	TypeText    ParamType = "text"
	TypeEmail   ParamType = "email"
	TypeObject  ParamType = "object"
)

// ValidParamTypes is the closed set of Parameter.Type values.
var ValidParamTypes = map[ParamType]bool{
	TypeString: true, TypeNumber: true, TypeInteger: true, TypeFloat: true,
	TypeBoolean: true, TypeDate: true, TypeText: true, TypeEmail: true,
	TypeObject: true,
}

// credentialSubstrings are matched case-insensitively against a parameter
// name to auto-set IsCredential.
var credentialSubstrings = []string{
	"api_key", "apikey", "token", "password", "secret", "database_url",
	"db_url", "connection_string", "auth", "bearer", "private_key",
}

// Parameter describes a single workflow input or output.
type Parameter struct {
	Name         string    `json:"name"`
	Type         ParamType `json:"type"`
	Description  string    `json:"description"`
	IsCredential bool      `json:"is_credential"`
	Required     bool      `json:"required"`
	Default      any       `json:"default,omitempty"`
}

// DetectCredential reports whether name matches any credential substring.
func DetectCredential(name string) bool {
	lower := strings.ToLower(name)
	for _, sub := range credentialSubstrings {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// NodeKind discriminates the Node tagged union.
type NodeKind string

const (
	NodeToolCall     NodeKind = "tool_call"
	NodeSequential   NodeKind = "sequential"
	NodeConditional  NodeKind = "conditional"
	NodeParallel     NodeKind = "parallel"
	NodeOrchestrator NodeKind = "orchestrator"
)

// ReservedToolNames are rejected by the Validator regardless of context
// (invariant 8 / property P5).
var ReservedToolNames = map[string]bool{
	"conditional_route":  true,
	"parallel_execute":   true,
	"orchestrator_route": true,
}

// Node is a tagged union discriminated by Kind. Exactly one of the
// kind-specific field groups is populated, matching the active Kind.
type Node struct {
	Kind NodeKind `json:"type"`

	// tool_call
	ToolName   string            `json:"tool_name,omitempty"`
	Parameters map[string]string `json:"parameters,omitempty"`
	AssignsTo  string            `json:"assigns_to,omitempty"`

	// sequential
	Steps []*Node `json:"steps,omitempty"`

	// conditional
	Condition  string `json:"condition,omitempty"`
	IfBranch   *Node  `json:"if_branch,omitempty"`
	ElseBranch *Node  `json:"else_branch,omitempty"`

	// parallel
	Branches   []*Node `json:"branches,omitempty"`
	WaitForAll bool    `json:"wait_for_all"`

	// orchestrator
	SubWorkflows    map[string]*Node `json:"sub_workflows,omitempty"`
	RoutingRules    []RoutingRule    `json:"routing_rules,omitempty"`
	DefaultWorkflow string           `json:"default_workflow,omitempty"`
}

// RoutingRule is a single orchestrator dispatch rule: if Condition holds,
// select WorkflowName.
type RoutingRule struct {
	Condition    string `json:"condition"`
	WorkflowName string `json:"workflow_name"`
}

// WorkflowSpec is the top-level envelope produced by the Reasoner and, once
// accepted by the Validator, treated as immutable for the rest of the run.
type WorkflowSpec struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Version     string            `json:"version"`
	Inputs      []Parameter       `json:"inputs"`
	Outputs     []Parameter       `json:"outputs"`
	Workflow    *Node             `json:"workflow"`
	Metadata    map[string]any    `json:"metadata"`
}

// DefaultVersion is applied when the Reasoner's candidate omits Version.
const DefaultVersion = "1.0.0"
