package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sequentialSpec = `Workflow: data_processing_pipeline
Inputs:
- customer_id (string): the customer to process
Steps:
1. Fetch customer data from database using customer_id
2. Validate customer data format
3. Calculate lifetime value
Outputs:
- result (string): the computed lifetime value
`

func TestParseSequential(t *testing.T) {
	sections, diags := Parse(sequentialSpec)
	require.Empty(t, diags)
	assert.Equal(t, "data_processing_pipeline", sections.Name)

	params := ParseParameters(sections.InputsText)
	require.Len(t, params, 1)
	assert.Equal(t, "customer_id", params[0].Name)
	assert.Equal(t, "string", params[0].Type)

	steps := ParseSteps(sections.StepsText)
	require.Len(t, steps, 3)
	assert.Equal(t, "Fetch customer data from database using customer_id", steps[0])
	assert.Equal(t, "Calculate lifetime value", steps[2])

	outputs := ParseParameters(sections.OutputsText)
	require.Len(t, outputs, 1)
	assert.Equal(t, "result", outputs[0].Name)
}

func TestParseMissingSections(t *testing.T) {
	_, diags := Parse("Description: just a description, nothing else")
	var codes []string
	for _, d := range diags {
		codes = append(codes, d.Code)
	}
	assert.Contains(t, codes, DiagMissingSection)
}

func TestParseDuplicateSection(t *testing.T) {
	raw := "Workflow: a\nSteps:\n1. one\nWorkflow: b\n"
	_, diags := Parse(raw)
	var codes []string
	for _, d := range diags {
		codes = append(codes, d.Code)
	}
	assert.Contains(t, codes, DiagDuplicateSection)
}

func TestParseStepsContinuation(t *testing.T) {
	raw := "Workflow: w\nSteps:\n1. If amount > 500, run fraud check\nthen process payment\n2. Send confirmation\n"
	sections, _ := Parse(raw)
	steps := ParseSteps(sections.StepsText)
	require.Len(t, steps, 2)
	assert.Equal(t, "If amount > 500, run fraud check then process payment", steps[0])
}

func TestParseEmptySteps(t *testing.T) {
	_, diags := Parse("Workflow: w\nSteps:\n")
	var codes []string
	for _, d := range diags {
		codes = append(codes, d.Code)
	}
	assert.Contains(t, codes, DiagEmptySteps)
}
