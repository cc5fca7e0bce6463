package serializer

import (
	"encoding/json"
	"testing"

	"github.com/soochol/flowforge/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSpec() *ir.WorkflowSpec {
	return &ir.WorkflowSpec{
		Name:        "data_processing_pipeline",
		Description: "demo",
		Version:     "1.0.0",
		Inputs:      []ir.Parameter{{Name: "customer_id", Type: ir.TypeString, Description: "id", Required: true}},
		Outputs:     []ir.Parameter{{Name: "result", Type: ir.TypeString, Description: "out"}},
		Workflow: &ir.Node{
			Kind: ir.NodeToolCall, ToolName: "fetch_customer_data",
			Parameters: map[string]string{"id": "{{customer_id}}", "z_param": "lit"}, AssignsTo: "data",
		},
		// float64 because real Metadata values always arrive via
		// json.Unmarshal in the Reasoner stage, never as Go int literals.
		Metadata: map[string]any{"b_key": 1.0, "a_key": 2.0},
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	out, err := Serialize(sampleSpec())
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	var roundTripped ir.WorkflowSpec
	require.NoError(t, json.Unmarshal([]byte(out), &roundTripped))
	assert.Equal(t, sampleSpec(), &roundTripped)
}

func TestSerializeKeysAreSortedAtEveryLevel(t *testing.T) {
	out, err := Serialize(sampleSpec())
	require.NoError(t, err)

	// top-level keys must appear in lexical order
	assert.True(t, indexOf(out, `"description"`) < indexOf(out, `"inputs"`))
	assert.True(t, indexOf(out, `"inputs"`) < indexOf(out, `"metadata"`))
	assert.True(t, indexOf(out, `"metadata"`) < indexOf(out, `"name":"data_processing_pipeline"`))

	// map-typed fields (parameters, metadata) must also be sorted
	assert.True(t, indexOf(out, `"a_key"`) < indexOf(out, `"b_key"`))
	assert.True(t, indexOf(out, `"id"`) < indexOf(out, `"z_param"`))
}

func TestCanonicalizeIsOrderIndependentOfInputKeyOrder(t *testing.T) {
	a := `{"b":1,"a":2,"nested":{"y":1,"x":2}}`
	b := `{"a":2,"nested":{"x":2,"y":1},"b":1}`

	outA, err := Canonicalize([]byte(a))
	require.NoError(t, err)
	outB, err := Canonicalize([]byte(b))
	require.NoError(t, err)

	assert.Equal(t, outA, outB)
}

func TestCanonicalizePreservesArrayOrder(t *testing.T) {
	out, err := Canonicalize([]byte(`{"steps":[3,1,2]}`))
	require.NoError(t, err)
	assert.Equal(t, `{"steps":[3,1,2]}`, out)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
