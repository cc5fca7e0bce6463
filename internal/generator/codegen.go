package generator

import (
	"fmt"
	"strings"
)

// writeHeader emits the package clause, imports, and a file-level comment
// naming the source workflow. Thresholds or policy language found only in
// natural-language step descriptions are never inferred into logic; they
// stay as comments here and nowhere else.
func (g *generation) writeHeader(b *strings.Builder) {
	fmt.Fprintf(b, "// Code generated from workflow %q. DO NOT EDIT.\n", g.spec.Name)
	if g.spec.Description != "" {
		fmt.Fprintf(b, "// %s\n", g.spec.Description)
	}
	b.WriteString("package generated\n\n")
	b.WriteString("import (\n")
	b.WriteString("\t\"fmt\"\n")
	if g.hasCredentialInputs() {
		b.WriteString("\t\"os\"\n")
	}
	b.WriteString("\t\"strings\"\n")
	if g.usesSync {
		b.WriteString("\t\"sync\"\n")
	}
	b.WriteString("\n\t\"github.com/expr-lang/expr\"\n")
	b.WriteString(")\n\n")
}

// writeCredentialStore emits a typed struct with one field per input
// marked is_credential, populated from the environment by uppercased
// name. No credential's literal value is ever embedded (invariant 10).
func (g *generation) writeCredentialStore(b *strings.Builder) {
	b.WriteString("// CredentialStore holds secret-valued inputs, loaded from the\n")
	b.WriteString("// environment at construction time. No literal credential value is\n")
	b.WriteString("// ever embedded in this file.\n")
	b.WriteString("type CredentialStore struct {\n")
	hasCred := false
	for _, p := range g.spec.Inputs {
		if !p.IsCredential {
			continue
		}
		hasCred = true
		fmt.Fprintf(b, "\t%s string\n", exportedName(p.Name))
	}
	if !hasCred {
		b.WriteString("\t// no credential-typed inputs in this workflow\n")
	}
	b.WriteString("}\n\n")

	b.WriteString("// NewCredentialStore reads every credential field from its\n")
	b.WriteString("// uppercased environment variable.\n")
	b.WriteString("func NewCredentialStore() *CredentialStore {\n")
	b.WriteString("\treturn &CredentialStore{\n")
	for _, p := range g.spec.Inputs {
		if !p.IsCredential {
			continue
		}
		fmt.Fprintf(b, "\t\t%s: os.Getenv(%q),\n", exportedName(p.Name), strings.ToUpper(p.Name))
	}
	b.WriteString("\t}\n")
	b.WriteString("}\n\n")

	b.WriteString("// Agent is the generated agent entity. NewAgent always populates\n")
	b.WriteString("// Credentials; the store has no fields when no input is a credential.\n")
	b.WriteString("type Agent struct {\n")
	b.WriteString("\tCredentials *CredentialStore\n")
	b.WriteString("}\n\n")

	b.WriteString("// NewAgent constructs an Agent with its credential store populated\n")
	b.WriteString("// from the environment.\n")
	b.WriteString("func NewAgent() *Agent {\n")
	b.WriteString("\treturn &Agent{Credentials: NewCredentialStore()}\n")
	b.WriteString("}\n\n")
}

// writeToolMethods emits one stub method per unique tool_name observed
// during the traversal, in first-seen order, accepting the superset of
// keyword arguments used at any call site.
func (g *generation) writeToolMethods(b *strings.Builder) {
	for _, name := range g.toolOrder {
		site := g.tools[name]
		fmt.Fprintf(b, "// %s is a generated stub; business logic is not inferred from prose.\n", methodName(name))
		if desc := g.paramDescriptions(site); desc != "" {
			fmt.Fprintf(b, "// Known arguments: %s\n", desc)
		}
		fmt.Fprintf(b, "func (a *Agent) %s(args map[string]any) map[string]any {\n", methodName(name))
		b.WriteString("\treturn map[string]any{\"status\": \"not_implemented\", \"data\": args}\n")
		b.WriteString("}\n\n")
	}
}

func (g *generation) paramDescriptions(site *toolSite) string {
	if len(site.paramOrder) == 0 {
		return ""
	}
	return strings.Join(site.paramOrder, ", ")
}

// writeConditionEvaluator emits the runtime condition interpreter. The
// operator set was already restricted to §3.4 by the Validator before
// this IR ever reached the Generator, so evaluation here only needs to
// compile the already-safe expression against the live scope.
func (g *generation) writeConditionEvaluator(b *strings.Builder) {
	b.WriteString("// resolveParam substitutes {{name}} references against scope. A raw\n")
	b.WriteString("// string consisting of exactly one reference returns the referenced\n")
	b.WriteString("// value with its original type; any other string has each reference\n")
	b.WriteString("// replaced with its textual form.\n")
	b.WriteString("func resolveParam(scope map[string]any, raw string) any {\n")
	b.WriteString("\ttrimmed := strings.TrimSpace(raw)\n")
	b.WriteString("\tif strings.HasPrefix(trimmed, \"{{\") && strings.HasSuffix(trimmed, \"}}\") && strings.Count(trimmed, \"{{\") == 1 {\n")
	b.WriteString("\t\tname := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(trimmed, \"{{\"), \"}}\"))\n")
	b.WriteString("\t\tif v, ok := scope[name]; ok {\n")
	b.WriteString("\t\t\treturn v\n")
	b.WriteString("\t\t}\n")
	b.WriteString("\t}\n")
	b.WriteString("\tout := raw\n")
	b.WriteString("\tfor name, val := range scope {\n")
	b.WriteString("\t\tout = strings.ReplaceAll(out, \"{{\"+name+\"}}\", fmt.Sprintf(\"%v\", val))\n")
	b.WriteString("\t}\n")
	b.WriteString("\treturn out\n")
	b.WriteString("}\n\n")

	b.WriteString("// evaluateCondition strips the {{ }} around variable references, then\n")
	b.WriteString("// compiles and runs condition against scope using expr-lang/expr,\n")
	b.WriteString("// restricted to the identifiers currently bound.\n")
	b.WriteString("func evaluateCondition(condition string, scope map[string]any) (bool, error) {\n")
	b.WriteString("\tcondition = strings.NewReplacer(\"{{\", \"\", \"}}\", \"\").Replace(condition)\n")
	b.WriteString("\tprogram, err := expr.Compile(condition, expr.Env(scope), expr.AsBool())\n")
	b.WriteString("\tif err != nil {\n")
	b.WriteString("\t\treturn false, fmt.Errorf(\"compile condition %q: %w\", condition, err)\n")
	b.WriteString("\t}\n")
	b.WriteString("\tout, err := expr.Run(program, scope)\n")
	b.WriteString("\tif err != nil {\n")
	b.WriteString("\t\treturn false, fmt.Errorf(\"evaluate condition %q: %w\", condition, err)\n")
	b.WriteString("\t}\n")
	b.WriteString("\tresult, _ := out.(bool)\n")
	b.WriteString("\treturn result, nil\n")
	b.WriteString("}\n\n")

	b.WriteString("func copyScope(scope map[string]any) map[string]any {\n")
	b.WriteString("\tout := make(map[string]any, len(scope))\n")
	b.WriteString("\tfor k, v := range scope {\n")
	b.WriteString("\t\tout[k] = v\n")
	b.WriteString("\t}\n")
	b.WriteString("\treturn out\n")
	b.WriteString("}\n\n")
}

// writeEntryMethod emits Execute, the public operation named in spec.md
// §6's generated-code contract: it accepts the named inputs and returns a
// mapping containing the output names.
func (g *generation) writeEntryMethod(b *strings.Builder, body string) {
	b.WriteString("// Execute runs the workflow against inputs and returns the named outputs.\n")
	b.WriteString("func (a *Agent) Execute(inputs map[string]any) (map[string]any, error) {\n")
	b.WriteString("\tscope := make(map[string]any, len(inputs))\n")
	b.WriteString("\tfor k, v := range inputs {\n")
	b.WriteString("\t\tscope[k] = v\n")
	b.WriteString("\t}\n\n")
	b.WriteString(indent(body, "\t"))
	b.WriteString("\n\tresult := make(map[string]any)\n")
	for _, out := range g.spec.Outputs {
		fmt.Fprintf(b, "\tif v, ok := scope[%q]; ok {\n\t\tresult[%q] = v\n\t}\n", out.Name, out.Name)
	}
	b.WriteString("\treturn result, nil\n")
	b.WriteString("}\n")
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line == "" {
			continue
		}
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

// exportedName turns a snake_case identifier into an exported Go field
// name: CustomerId, DatabaseUrl, ApiKey.
func exportedName(name string) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

// methodName turns a snake_case tool name into an unexported Go method
// name: fetchCustomerData.
func methodName(name string) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 {
			b.WriteString(strings.ToLower(p[:1]))
			b.WriteString(p[1:])
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
