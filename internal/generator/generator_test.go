package generator

import (
	"strings"
	"testing"

	"github.com/soochol/flowforge/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialSpec() *ir.WorkflowSpec {
	return &ir.WorkflowSpec{
		Name:        "data_processing_pipeline",
		Description: "demo pipeline",
		Inputs:      []ir.Parameter{{Name: "customer_id", Type: ir.TypeString, Required: true}},
		Outputs:     []ir.Parameter{{Name: "result", Type: ir.TypeString}},
		Workflow: &ir.Node{
			Kind: ir.NodeSequential,
			Steps: []*ir.Node{
				{Kind: ir.NodeToolCall, ToolName: "fetch_customer_data",
					Parameters: map[string]string{"id": "{{customer_id}}"}, AssignsTo: "data"},
				{Kind: ir.NodeToolCall, ToolName: "validate_customer_data",
					Parameters: map[string]string{"payload": "{{data}}"}, AssignsTo: "validated"},
				{Kind: ir.NodeToolCall, ToolName: "calculate_lifetime_value",
					Parameters: map[string]string{"payload": "{{validated}}"}, AssignsTo: "result"},
			},
		},
	}
}

func TestGenerateSequentialToolOrder(t *testing.T) {
	res, err := Generate(sequentialSpec(), 0.95)
	require.NoError(t, err)
	assert.Contains(t, res.Source, "func (a *Agent) fetchCustomerData(")
	assert.Contains(t, res.Source, "func (a *Agent) validateCustomerData(")
	assert.Contains(t, res.Source, "func (a *Agent) calculateLifetimeValue(")

	firstIdx := strings.Index(res.Source, "fetchCustomerData(args")
	secondIdx := strings.Index(res.Source, "validateCustomerData(args")
	thirdIdx := strings.Index(res.Source, "calculateLifetimeValue(args")
	assert.True(t, firstIdx < secondIdx)
	assert.True(t, secondIdx < thirdIdx)

	assert.Equal(t, "data_processing_pipeline", res.Metadata.WorkflowName)
	assert.Equal(t, 0.95, res.Metadata.Confidence)
	assert.Equal(t, len(res.Source), res.Metadata.CodeSize)
}

func TestGenerateIdempotent(t *testing.T) {
	spec := sequentialSpec()
	r1, err := Generate(spec, 0.9)
	require.NoError(t, err)
	r2, err := Generate(spec, 0.9)
	require.NoError(t, err)
	assert.Equal(t, r1.Source, r2.Source)
}

func TestGenerateCredentialNeverEmbeddedLiteral(t *testing.T) {
	spec := &ir.WorkflowSpec{
		Name: "billing_flow",
		Inputs: []ir.Parameter{
			{Name: "database_url", Type: ir.TypeString, IsCredential: true, Required: true},
		},
		Workflow: &ir.Node{
			Kind: ir.NodeToolCall, ToolName: "query_database",
			Parameters: map[string]string{"dsn": "{{database_url}}"},
		},
	}
	res, err := Generate(spec, 1.0)
	require.NoError(t, err)

	assert.Contains(t, res.Source, "os.Getenv(\"DATABASE_URL\")")
	assert.Contains(t, res.Source, "DatabaseUrl string")
	assert.NotContains(t, res.Source, "postgres://")
}

func TestGenerateConditionalEmitsBothBranches(t *testing.T) {
	spec := &ir.WorkflowSpec{
		Name:   "payment_flow",
		Inputs: []ir.Parameter{{Name: "amount", Type: ir.TypeNumber, Required: true}},
		Workflow: &ir.Node{
			Kind: ir.NodeConditional,
			Condition: "{{amount}} > 500",
			IfBranch: &ir.Node{Kind: ir.NodeToolCall, ToolName: "run_fraud_check",
				Parameters: map[string]string{"amount": "{{amount}}"}, AssignsTo: "fraud_result"},
			ElseBranch: &ir.Node{Kind: ir.NodeToolCall, ToolName: "process_standard_payment",
				Parameters: map[string]string{"amount": "{{amount}}"}, AssignsTo: "payment_result"},
		},
	}
	res, err := Generate(spec, 0.9)
	require.NoError(t, err)
	assert.Contains(t, res.Source, "evaluateCondition(\"{{amount}} > 500\"")
	assert.Contains(t, res.Source, "runFraudCheck")
	assert.Contains(t, res.Source, "processStandardPayment")
}

func TestGenerateParallelUsesWaitGroupWhenWaitForAll(t *testing.T) {
	spec := &ir.WorkflowSpec{
		Name:   "order_flow",
		Inputs: []ir.Parameter{{Name: "order_id", Type: ir.TypeString, Required: true}},
		Workflow: &ir.Node{
			Kind:       ir.NodeParallel,
			WaitForAll: true,
			Branches: []*ir.Node{
				{Kind: ir.NodeToolCall, ToolName: "check_inventory",
					Parameters: map[string]string{"id": "{{order_id}}"}, AssignsTo: "inventory_status"},
				{Kind: ir.NodeToolCall, ToolName: "check_pricing",
					Parameters: map[string]string{"id": "{{order_id}}"}, AssignsTo: "pricing_status"},
			},
		},
	}
	res, err := Generate(spec, 0.9)
	require.NoError(t, err)
	assert.Contains(t, res.Source, "sync.WaitGroup")
	assert.Contains(t, res.Source, "\"sync\"")
}

func TestGenerateNonParallelSpecOmitsSyncImport(t *testing.T) {
	res, err := Generate(sequentialSpec(), 0.9)
	require.NoError(t, err)
	assert.NotContains(t, res.Source, "\"sync\"")
}

func TestGenerateOrchestratorFallsThroughToDefault(t *testing.T) {
	spec := &ir.WorkflowSpec{
		Name:   "ticket_flow",
		Inputs: []ir.Parameter{{Name: "priority", Type: ir.TypeString, Required: true}},
		Workflow: &ir.Node{
			Kind: ir.NodeOrchestrator,
			SubWorkflows: map[string]*ir.Node{
				"high_priority": {Kind: ir.NodeToolCall, ToolName: "escalate"},
				"standard":      {Kind: ir.NodeToolCall, ToolName: "queue_normally"},
			},
			RoutingRules: []ir.RoutingRule{
				{Condition: "{{priority}} == 'high'", WorkflowName: "high_priority"},
			},
			DefaultWorkflow: "standard",
		},
	}
	res, err := Generate(spec, 0.9)
	require.NoError(t, err)
	assert.Contains(t, res.Source, "escalate(args")
	assert.Contains(t, res.Source, "queueNormally(args")
	assert.Contains(t, res.Source, "no routing rule matched and no default_workflow")
}
