// Package validator enforces every invariant of spec.md §3.5 over a
// candidate IR produced by the Reasoner, in a single depth-first
// traversal that carries a Scope (the set of variable names in scope at
// the current program point).
package validator

import (
	"fmt"

	"github.com/soochol/flowforge/internal/ir"
)

// Scope is the set of variable names visible at a program point.
type Scope map[string]bool

func (s Scope) clone() Scope {
	out := make(Scope, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func (s Scope) with(name string) Scope {
	if name == "" {
		return s
	}
	out := s.clone()
	out[name] = true
	return out
}

// ValidationError is one structural problem found in a candidate IR.
type ValidationError struct {
	Path    string
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
}

// Error codes. Stable strings so callers can switch on them.
const (
	CodeInvalidIdentifier      = "INVALID_IDENTIFIER"
	CodeDuplicateName          = "DUPLICATE_NAME"
	CodeInvalidType            = "INVALID_TYPE"
	CodeMissingWorkflow        = "MISSING_WORKFLOW"
	CodeUnknownNodeKind        = "UNKNOWN_NODE_KIND"
	CodeEmptySequential        = "EMPTY_SEQUENTIAL"
	CodeMissingIfBranch        = "MISSING_IF_BRANCH"
	CodeParallelBranchCount    = "PARALLEL_BRANCH_COUNT"
	CodeParallelConflict       = "PARALLEL_CONFLICT"
	CodeOutOfScopeVariable     = "OUT_OF_SCOPE_VARIABLE"
	CodeDottedReference        = "DOTTED_REFERENCE"
	CodeReservedToolName       = "RESERVED_TOOL_NAME"
	CodeUnsafeCondition        = "UNSAFE_CONDITION"
	CodeOrchestratorEmpty      = "ORCHESTRATOR_EMPTY"
	CodeOrchestratorUnknownRef = "ORCHESTRATOR_UNKNOWN_REFERENCE"
	CodeAcyclicityViolation    = "ACYCLICITY_VIOLATION"
	CodeCredentialLiteral      = "CREDENTIAL_LITERAL_DEFAULT"
)

// validation carries mutable state across one Validate call.
type validation struct {
	errs    []ValidationError
	visited map[*ir.Node]bool
}

func (v *validation) fail(path, code, message string) {
	v.errs = append(v.errs, ValidationError{Path: path, Code: code, Message: message})
}

// Validate checks candidate against every invariant in spec.md §3.5 and
// returns either the same value (now considered validated) with a nil
// error slice, or a non-empty ordered list of ValidationError.
func Validate(candidate *ir.WorkflowSpec) (*ir.WorkflowSpec, []ValidationError) {
	v := &validation{visited: make(map[*ir.Node]bool)}

	if candidate == nil {
		v.fail("$", CodeMissingWorkflow, "candidate IR is nil")
		return nil, v.errs
	}

	if !ir.IsValidIdentifier(candidate.Name) {
		v.fail("$.name", CodeInvalidIdentifier, fmt.Sprintf("workflow name %q is not a valid identifier", candidate.Name))
	}
	if candidate.Version == "" {
		candidate.Version = ir.DefaultVersion
	}

	scope := make(Scope)
	v.validateParameters("$.inputs", candidate.Inputs, true, scope)
	v.validateParameters("$.outputs", candidate.Outputs, false, nil)

	if candidate.Workflow == nil {
		v.fail("$.workflow", CodeMissingWorkflow, "workflow root node is required")
		return candidate, v.errs
	}

	v.validateNode("$.workflow", candidate.Workflow, scope)

	if len(v.errs) > 0 {
		return candidate, v.errs
	}
	return candidate, nil
}

// validateParameters checks identifier syntax, name uniqueness, type
// validity, and (for inputs) credential auto-detection + the
// credential-literal-default prohibition (invariant 10 / P7). For inputs
// it also seeds scope with each parameter name.
func (v *validation) validateParameters(path string, params []ir.Parameter, isInput bool, scope Scope) {
	seen := make(map[string]bool, len(params))
	for i := range params {
		p := &params[i]
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		if !ir.IsValidIdentifier(p.Name) {
			v.fail(itemPath+".name", CodeInvalidIdentifier, fmt.Sprintf("parameter name %q is not a valid identifier", p.Name))
		} else if seen[p.Name] {
			v.fail(itemPath+".name", CodeDuplicateName, fmt.Sprintf("duplicate parameter name %q", p.Name))
		}
		seen[p.Name] = true

		if !ir.ValidParamTypes[p.Type] {
			v.fail(itemPath+".type", CodeInvalidType, fmt.Sprintf("parameter %q has invalid type %q", p.Name, p.Type))
		}

		if isInput {
			if ir.DetectCredential(p.Name) {
				p.IsCredential = true
			}
			if p.IsCredential && p.Default != nil {
				v.fail(itemPath+".default", CodeCredentialLiteral,
					fmt.Sprintf("credential parameter %q must not carry a literal default value", p.Name))
			}
			if scope != nil {
				scope[p.Name] = true
			}
		}
	}
}

// validateNode dispatches on Kind and recurses, threading Scope per the
// composition rules of spec.md §4.3. It returns the scope visible to
// whatever follows the node in its parent's sequence: the incoming scope
// plus any names the node binds outward (the incoming scope unchanged for
// nodes that bind nothing outward).
func (v *validation) validateNode(path string, n *ir.Node, scope Scope) Scope {
	if n == nil {
		v.fail(path, CodeUnknownNodeKind, "nil node")
		return scope
	}
	if v.visited[n] {
		v.fail(path, CodeAcyclicityViolation, "node revisited: the IR must be a tree, not a graph")
		return scope
	}
	v.visited[n] = true

	switch n.Kind {
	case ir.NodeToolCall:
		return v.validateToolCall(path, n, scope)
	case ir.NodeSequential:
		return v.validateSequential(path, n, scope)
	case ir.NodeConditional:
		return v.validateConditional(path, n, scope)
	case ir.NodeParallel:
		return v.validateParallel(path, n, scope)
	case ir.NodeOrchestrator:
		return v.validateOrchestrator(path, n, scope)
	default:
		v.fail(path+".type", CodeUnknownNodeKind, fmt.Sprintf("unknown node kind %q", n.Kind))
		return scope
	}
}

func (v *validation) validateToolCall(path string, n *ir.Node, scope Scope) Scope {
	if !ir.IsValidIdentifier(n.ToolName) {
		v.fail(path+".tool_name", CodeInvalidIdentifier, fmt.Sprintf("tool_name %q is not a valid identifier", n.ToolName))
	} else if ir.ReservedToolNames[n.ToolName] {
		v.fail(path+".tool_name", CodeReservedToolName, fmt.Sprintf("tool_name %q is reserved", n.ToolName))
	}
	if n.AssignsTo != "" && !ir.IsValidIdentifier(n.AssignsTo) {
		v.fail(path+".assigns_to", CodeInvalidIdentifier, fmt.Sprintf("assigns_to %q is not a valid identifier", n.AssignsTo))
	}

	for paramName, expr := range n.Parameters {
		v.checkVarRefs(fmt.Sprintf("%s.parameters[%s]", path, paramName), expr, scope)
	}

	return scope.with(n.AssignsTo)
}

func (v *validation) validateSequential(path string, n *ir.Node, scope Scope) Scope {
	if len(n.Steps) == 0 {
		v.fail(path+".steps", CodeEmptySequential, "sequential node must have at least one step")
		return scope
	}
	current := scope
	for i, step := range n.Steps {
		current = v.validateNode(fmt.Sprintf("%s.steps[%d]", path, i), step, current)
	}
	return current
}

func (v *validation) validateConditional(path string, n *ir.Node, scope Scope) Scope {
	v.checkCondition(path+".condition", n.Condition, scope)

	if n.IfBranch == nil {
		v.fail(path+".if_branch", CodeMissingIfBranch, "conditional node requires if_branch")
		return scope
	}
	afterIf := v.validateNode(path+".if_branch", n.IfBranch, scope)

	if n.ElseBranch == nil {
		return scope
	}
	afterElse := v.validateNode(path+".else_branch", n.ElseBranch, scope)

	// Only names bound identically in both branches become visible
	// downstream (spec.md invariant 5).
	merged := scope.clone()
	newIf := diff(afterIf, scope)
	newElse := diff(afterElse, scope)
	for name := range newIf {
		if newElse[name] {
			merged[name] = true
		}
	}
	return merged
}

func (v *validation) validateParallel(path string, n *ir.Node, scope Scope) Scope {
	if len(n.Branches) < 2 || len(n.Branches) > 10 {
		v.fail(path+".branches", CodeParallelBranchCount,
			fmt.Sprintf("parallel node must have 2-10 branches, got %d", len(n.Branches)))
	}

	branchNew := make([]Scope, len(n.Branches))
	for i, branch := range n.Branches {
		afterBranch := v.validateNode(fmt.Sprintf("%s.branches[%d]", path, i), branch, scope.clone())
		branchNew[i] = diff(afterBranch, scope)
	}

	if !n.WaitForAll {
		return scope
	}

	merged := scope.clone()
	seenIn := make(map[string]int)
	for i, names := range branchNew {
		for name := range names {
			seenIn[name]++
			if seenIn[name] == 1 {
				merged[name] = true
			} else {
				v.fail(fmt.Sprintf("%s.branches[%d]", path, i), CodeParallelConflict,
					fmt.Sprintf("assigns_to %q is produced by more than one parallel branch", name))
			}
		}
	}
	return merged
}

func (v *validation) validateOrchestrator(path string, n *ir.Node, scope Scope) Scope {
	if len(n.SubWorkflows) == 0 {
		v.fail(path+".sub_workflows", CodeOrchestratorEmpty, "orchestrator node requires at least one sub-workflow")
		return scope
	}
	for name, sub := range n.SubWorkflows {
		if !ir.IsValidIdentifier(name) {
			v.fail(path+".sub_workflows", CodeInvalidIdentifier, fmt.Sprintf("sub-workflow key %q is not a valid identifier", name))
		}
		v.validateNode(fmt.Sprintf("%s.sub_workflows[%s]", path, name), sub, scope.clone())
	}
	for i, rule := range n.RoutingRules {
		rulePath := fmt.Sprintf("%s.routing_rules[%d]", path, i)
		v.checkCondition(rulePath+".condition", rule.Condition, scope)
		if _, ok := n.SubWorkflows[rule.WorkflowName]; !ok {
			v.fail(rulePath+".workflow_name", CodeOrchestratorUnknownRef,
				fmt.Sprintf("routing rule references unknown sub-workflow %q", rule.WorkflowName))
		}
	}
	if n.DefaultWorkflow != "" {
		if _, ok := n.SubWorkflows[n.DefaultWorkflow]; !ok {
			v.fail(path+".default_workflow", CodeOrchestratorUnknownRef,
				fmt.Sprintf("default_workflow references unknown sub-workflow %q", n.DefaultWorkflow))
		}
	}
	// None of the sub-workflows' bindings are visible to siblings or the caller.
	return scope
}

func (v *validation) checkVarRefs(path, expr string, scope Scope) {
	if ir.HasDottedRef(expr) {
		v.fail(path, CodeDottedReference, "dotted variable access ({{x.y}}) is forbidden")
		return
	}
	for _, name := range ir.VarRefs(expr) {
		if !scope[name] {
			v.fail(path, CodeOutOfScopeVariable, fmt.Sprintf("variable %q is not in scope here", name))
		}
	}
}

func (v *validation) checkCondition(path, condition string, scope Scope) {
	if condition == "" {
		return
	}
	if ir.HasDottedRef(condition) {
		v.fail(path, CodeDottedReference, "dotted variable access ({{x.y}}) is forbidden")
		return
	}
	if err := CheckConditionSafety(condition, scope); err != nil {
		v.fail(path, CodeUnsafeCondition, err.Error())
	}
}

// diff returns the names in b that are not in a.
func diff(b, a Scope) Scope {
	out := make(Scope)
	for name := range b {
		if !a[name] {
			out[name] = true
		}
	}
	return out
}
