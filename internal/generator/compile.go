package generator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/soochol/flowforge/internal/ir"
)

// compileNode emits the Go statements implementing n against scopeVar,
// the name of the in-scope map[string]any variable at this point in the
// generated Execute method. Sequential steps and conditional and parallel
// branches are emitted in IR order; orchestrator sub-workflows are emitted
// in routing-rule order, then the default.
func (g *generation) compileNode(n *ir.Node, scopeVar string) (string, error) {
	if n == nil {
		return "", &GenerationError{Reason: "nil node"}
	}
	switch n.Kind {
	case ir.NodeToolCall:
		return g.compileToolCall(n, scopeVar), nil
	case ir.NodeSequential:
		return g.compileSequential(n, scopeVar)
	case ir.NodeConditional:
		return g.compileConditional(n, scopeVar)
	case ir.NodeParallel:
		return g.compileParallel(n, scopeVar)
	case ir.NodeOrchestrator:
		return g.compileOrchestrator(n, scopeVar)
	default:
		return "", &GenerationError{Reason: fmt.Sprintf("unknown node kind %q", n.Kind)}
	}
}

func (g *generation) compileToolCall(n *ir.Node, scopeVar string) string {
	var b strings.Builder
	keys := make([]string, 0, len(n.Parameters))
	for k := range n.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	argsVar := g.nextTemp("args")
	fmt.Fprintf(&b, "%s := map[string]any{\n", argsVar)
	for _, k := range keys {
		fmt.Fprintf(&b, "\t%q: resolveParam(%s, %q),\n", k, scopeVar, n.Parameters[k])
	}
	b.WriteString("}\n")

	callExpr := fmt.Sprintf("a.%s(%s)", methodName(n.ToolName), argsVar)
	if n.AssignsTo != "" {
		fmt.Fprintf(&b, "%s[%q] = %s\n", scopeVar, n.AssignsTo, callExpr)
	} else {
		fmt.Fprintf(&b, "_ = %s\n", callExpr)
	}
	return b.String()
}

func (g *generation) compileSequential(n *ir.Node, scopeVar string) (string, error) {
	var b strings.Builder
	for _, step := range n.Steps {
		stepCode, err := g.compileNode(step, scopeVar)
		if err != nil {
			return "", err
		}
		b.WriteString(stepCode)
	}
	return b.String(), nil
}

func (g *generation) compileConditional(n *ir.Node, scopeVar string) (string, error) {
	condVar := g.nextTemp("cond")
	errVar := g.nextTemp("err")

	ifCode, err := g.compileNode(n.IfBranch, scopeVar)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s, %s := evaluateCondition(%q, %s)\n", condVar, errVar, n.Condition, scopeVar)
	fmt.Fprintf(&b, "if %s != nil {\n\treturn nil, %s\n}\n", errVar, errVar)
	fmt.Fprintf(&b, "if %s {\n", condVar)
	b.WriteString(indent(ifCode, "\t"))
	b.WriteString("\n")
	if n.ElseBranch != nil {
		elseCode, err := g.compileNode(n.ElseBranch, scopeVar)
		if err != nil {
			return "", err
		}
		b.WriteString("} else {\n")
		b.WriteString(indent(elseCode, "\t"))
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	return b.String(), nil
}

// compileParallel emits goroutine-per-branch execution. Each branch runs
// against its own copy of scope (invariant 4: no sibling visibility).
// When wait_for_all is true the branches' new bindings are merged into
// scope in branch order after every goroutine finishes; conflicts are
// impossible here because the Validator already rejects them. When false,
// the branches are launched and the caller proceeds immediately with no
// post-join bindings.
func (g *generation) compileParallel(n *ir.Node, scopeVar string) (string, error) {
	branchScopes := make([]string, len(n.Branches))
	branchCodes := make([]string, len(n.Branches))
	for i, branch := range n.Branches {
		branchScopes[i] = g.nextTemp("branchScope")
		code, err := g.compileNode(branch, branchScopes[i])
		if err != nil {
			return "", err
		}
		branchCodes[i] = code
	}

	var b strings.Builder
	if !n.WaitForAll {
		for i := range n.Branches {
			fmt.Fprintf(&b, "%s := copyScope(%s)\n", branchScopes[i], scopeVar)
			fmt.Fprintf(&b, "go func(%s map[string]any) {\n", branchScopes[i])
			b.WriteString(indent(branchCodes[i], "\t"))
			b.WriteString("\n}(" + branchScopes[i] + ")\n")
		}
		return b.String(), nil
	}

	g.usesSync = true
	wgVar := g.nextTemp("wg")
	fmt.Fprintf(&b, "var %s sync.WaitGroup\n", wgVar)
	for i := range n.Branches {
		fmt.Fprintf(&b, "%s := copyScope(%s)\n", branchScopes[i], scopeVar)
		fmt.Fprintf(&b, "%s.Add(1)\n", wgVar)
		fmt.Fprintf(&b, "go func(%s map[string]any) {\n\tdefer %s.Done()\n", branchScopes[i], wgVar)
		b.WriteString(indent(branchCodes[i], "\t"))
		b.WriteString("\n}(" + branchScopes[i] + ")\n")
	}
	fmt.Fprintf(&b, "%s.Wait()\n", wgVar)
	for _, bs := range branchScopes {
		fmt.Fprintf(&b, "for k, v := range %s {\n\t%s[k] = v\n}\n", bs, scopeVar)
	}
	return b.String(), nil
}

// compileOrchestrator evaluates routing rules top-to-bottom, falls
// through to default_workflow if none match, and inlines the selected
// sub-workflow against the caller's scope map, so its bindings stay in that
// map afterwards; the Validator rejects any later reference to them.
func (g *generation) compileOrchestrator(n *ir.Node, scopeVar string) (string, error) {
	routedVar := g.nextTemp("routed")

	var b strings.Builder
	fmt.Fprintf(&b, "%s := false\n", routedVar)

	for _, rule := range n.RoutingRules {
		sub, ok := n.SubWorkflows[rule.WorkflowName]
		if !ok {
			return "", &GenerationError{Reason: fmt.Sprintf("routing rule references unknown sub-workflow %q", rule.WorkflowName)}
		}
		subCode, err := g.compileNode(sub, scopeVar)
		if err != nil {
			return "", err
		}
		condVar := g.nextTemp("cond")
		errVar := g.nextTemp("err")
		fmt.Fprintf(&b, "if !%s {\n", routedVar)
		fmt.Fprintf(&b, "\t%s, %s := evaluateCondition(%q, %s)\n", condVar, errVar, rule.Condition, scopeVar)
		fmt.Fprintf(&b, "\tif %s != nil {\n\t\treturn nil, %s\n\t}\n", errVar, errVar)
		fmt.Fprintf(&b, "\tif %s {\n", condVar)
		b.WriteString(indent(indent(subCode, "\t"), "\t"))
		b.WriteString("\n")
		fmt.Fprintf(&b, "\t\t%s = true\n", routedVar)
		b.WriteString("\t}\n")
		b.WriteString("}\n")
	}

	if n.DefaultWorkflow != "" {
		sub := n.SubWorkflows[n.DefaultWorkflow]
		subCode, err := g.compileNode(sub, scopeVar)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "if !%s {\n", routedVar)
		b.WriteString(indent(subCode, "\t"))
		b.WriteString("\n")
		fmt.Fprintf(&b, "\t%s = true\n", routedVar)
		b.WriteString("}\n")
	}

	fmt.Fprintf(&b, "if !%s {\n\treturn nil, fmt.Errorf(%q)\n}\n", routedVar,
		"orchestrator: no routing rule matched and no default_workflow is set")

	return b.String(), nil
}

func (g *generation) nextTemp(prefix string) string {
	g.tempCursor++
	return fmt.Sprintf("%s%d", prefix, g.tempCursor)
}
