package reasoner

import (
	"fmt"
	"strings"

	"github.com/soochol/flowforge/internal/parser"
)

const irSchemaDescription = `Emit a single JSON object with this shape and nothing else (no prose, no code fences):
{
  "name": "snake_case_identifier",
  "description": "...",
  "version": "1.0.0",
  "inputs": [{"name": "...", "type": "string|number|integer|float|boolean|date|text|email|object", "description": "...", "required": true}],
  "outputs": [{"name": "...", "type": "...", "description": "..."}],
  "workflow": { "type": "tool_call|sequential|conditional|parallel|orchestrator", ... },
  "metadata": {}
}
Node shapes by "type":
  tool_call: {"type":"tool_call","tool_name":"snake_case","parameters":{"p":"expr"},"assigns_to":"name"}
  sequential: {"type":"sequential","steps":[Node, ...]}
  conditional: {"type":"conditional","condition":"{{x}} > 500","if_branch":Node,"else_branch":Node}
  parallel: {"type":"parallel","branches":[Node, Node, ...],"wait_for_all":true}
  orchestrator: {"type":"orchestrator","sub_workflows":{"name":Node},"routing_rules":[{"condition":"...","workflow_name":"..."}],"default_workflow":"name"}
Variable references use the literal form {{identifier}}. Never use tool names conditional_route, parallel_execute, or orchestrator_route.`

func systemPrompt(promptVersion string) string {
	var b strings.Builder
	b.WriteString("You are the Reasoner stage of a workflow compiler. ")
	b.WriteString("Convert the given parsed specification sections into a single JSON workflow IR object. ")
	b.WriteString(irSchemaDescription)
	if promptVersion != "" {
		fmt.Fprintf(&b, "\nPrompt version: %s.", promptVersion)
	}
	return b.String()
}

func userPrompt(sections parser.Sections, feedback []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Workflow: %s\n", sections.Name)
	if sections.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", sections.Description)
	}
	if sections.InputsText != "" {
		fmt.Fprintf(&b, "Inputs:\n%s\n", sections.InputsText)
	}
	fmt.Fprintf(&b, "Steps:\n%s\n", sections.StepsText)
	if sections.OutputsText != "" {
		fmt.Fprintf(&b, "Outputs:\n%s\n", sections.OutputsText)
	}
	if len(feedback) > 0 {
		b.WriteString("\nThe previous attempt was rejected for these reasons — fix all of them:\n")
		for _, f := range feedback {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	return b.String()
}
