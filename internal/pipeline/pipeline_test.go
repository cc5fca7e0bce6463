package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soochol/flowforge/internal/checkpoint"
	"github.com/soochol/flowforge/internal/config"
	"github.com/soochol/flowforge/internal/provider"
)

// scriptedClient replays a fixed sequence of responses, one per Complete
// call, so a test can script a Reasoner retry/escalation sequence without
// touching the network.
type scriptedClient struct {
	responses []string
	errs      []error
	calls     int
}

func (c *scriptedClient) Name() string { return "scripted" }

func (c *scriptedClient) Complete(ctx context.Context, req provider.CompletionRequest) (string, error) {
	i := c.calls
	c.calls++
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	var err error
	if i < len(c.errs) {
		err = c.errs[i]
	}
	return c.responses[i], err
}

func newTestController(client provider.Client) *Controller {
	cfg, _ := config.LoadDefault()
	return &Controller{
		Config:     cfg,
		Sink:       checkpoint.NewMemorySink(),
		testClient: client,
	}
}

const sequentialRaw = `
Workflow: notify_customer
Description: Send a templated notification after looking up the customer.

Inputs:
- customer_id (string, required): the customer to notify
- api_key (string, required): upstream notification service credential

Steps:
1. Call lookup_customer with id={{customer_id}}, assign to customer
2. Call render_template with name=customer.name, assign to message
3. Call send_notification with body=message, token={{api_key}}, assign to delivery

Outputs:
- delivery (object): the delivery receipt
`

func sequentialIRJSON(t *testing.T) string {
	t.Helper()
	spec := map[string]any{
		"name":        "notify_customer",
		"description": "Send a templated notification after looking up the customer.",
		"version":     "1.0.0",
		"inputs": []map[string]any{
			{"name": "customer_id", "type": "string", "required": true},
			{"name": "api_key", "type": "string", "required": true, "is_credential": true},
		},
		"outputs": []map[string]any{
			{"name": "delivery", "type": "object"},
		},
		"workflow": map[string]any{
			"type": "sequential",
			"steps": []map[string]any{
				{
					"type":       "tool_call",
					"tool_name":  "lookup_customer",
					"parameters": map[string]string{"id": "{{customer_id}}"},
					"assigns_to": "customer",
				},
				{
					"type":       "tool_call",
					"tool_name":  "render_template",
					"parameters": map[string]string{"name": "{{customer}}"},
					"assigns_to": "message",
				},
				{
					"type":       "tool_call",
					"tool_name":  "send_notification",
					"parameters": map[string]string{"body": "{{message}}", "token": "{{api_key}}"},
					"assigns_to": "delivery",
				},
			},
		},
	}
	raw, err := json.Marshal(spec)
	require.NoError(t, err)
	return string(raw)
}

// TestCompileSequentialHappyPath covers spec.md §8's three-step sequential
// scenario end to end: one Reasoner call, clean validation, generated code.
func TestCompileSequentialHappyPath(t *testing.T) {
	client := &scriptedClient{responses: []string{sequentialIRJSON(t)}}
	c := newTestController(client)

	result, err := c.Compile(context.Background(), sequentialRaw, CompileOptions{Provider: provider.SelectorClaude})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, StatusComplete, result.Status)
	assert.Equal(t, "notify_customer", result.WorkflowName)
	assert.NotEmpty(t, result.GeneratedCode)
	assert.NotEmpty(t, result.SerializedIR)
	assert.Equal(t, 1, client.calls)
	assert.Contains(t, result.GeneratedCode, "os.Getenv")
}

// TestCompileRetriesOnValidationFailureThenSucceeds covers property P9:
// a Validator failure increments retry count and re-invokes the Reasoner
// with feedback, succeeding on a later attempt within the retry budget.
func TestCompileRetriesOnValidationFailureThenSucceeds(t *testing.T) {
	badSpec := map[string]any{
		"name":    "notify_customer",
		"version": "1.0.0",
		"workflow": map[string]any{
			"type": "tool_call",
			// reserved tool name triggers a validation failure
			"tool_name":  "conditional_route",
			"assigns_to": "x",
		},
	}
	badRaw, err := json.Marshal(badSpec)
	require.NoError(t, err)

	client := &scriptedClient{responses: []string{string(badRaw), sequentialIRJSON(t)}}
	c := newTestController(client)

	result, err := c.Compile(context.Background(), sequentialRaw, CompileOptions{Provider: provider.SelectorClaude})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, StatusComplete, result.Status)
	assert.Equal(t, 2, client.calls)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, KindValidationError, result.Errors[0].Kind)
}

// TestCompileEscalatesAfterMaxRetries covers escalation after 3 retries:
// every attempt uses a reserved tool name and is invalid, so the
// controller exhausts MaxRetries and escalates rather than looping forever.
func TestCompileEscalatesAfterMaxRetries(t *testing.T) {
	badSpec := map[string]any{
		"name":    "broken",
		"version": "1.0.0",
		"workflow": map[string]any{
			"type":       "tool_call",
			"tool_name":  "parallel_execute",
			"assigns_to": "x",
		},
	}
	badRaw, err := json.Marshal(badSpec)
	require.NoError(t, err)

	responses := make([]string, 5)
	for i := range responses {
		responses[i] = string(badRaw)
	}
	client := &scriptedClient{responses: responses}
	cfg, err := config.LoadDefault()
	require.NoError(t, err)
	c := &Controller{Config: cfg, Sink: checkpoint.NewMemorySink(), testClient: client}

	result, err := c.Compile(context.Background(), sequentialRaw, CompileOptions{Provider: provider.SelectorClaude})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, StatusEscalated, result.Status)
	assert.Equal(t, cfg.Pipeline.MaxRetries, client.calls)
	assert.NotEmpty(t, result.Errors)
	for _, e := range result.Errors {
		assert.NotEmpty(t, e.Message)
	}
	// the last recorded error is the escalation itself
	last := result.Errors[len(result.Errors)-1]
	assert.Equal(t, KindEscalationRequired, last.Kind)
}

// TestCompileConfigurationErrorNeverStartsRun exercises spec.md §7's
// ConfigurationError path: an unknown provider selector must fail before
// any Reasoner call and without consuming a checkpoint execution id.
func TestCompileConfigurationErrorNeverStartsRun(t *testing.T) {
	cfg, err := config.LoadDefault()
	require.NoError(t, err)
	c := &Controller{Config: cfg, Sink: checkpoint.NewMemorySink()}

	result, err := c.Compile(context.Background(), sequentialRaw, CompileOptions{Provider: provider.Selector("not-a-real-provider")})
	require.Error(t, err)
	assert.Nil(t, result)

	var configErr *ConfigurationError
	require.ErrorAs(t, err, &configErr)
}

// TestCompileProviderErrorIsTerminalNotRetried covers the distinction
// between transport failures (terminal) and parsing/validation failures
// (retried): a Reasoner ProviderError must not consume the retry budget.
func TestCompileProviderErrorIsTerminalNotRetried(t *testing.T) {
	client := &scriptedClient{
		responses: []string{""},
		errs:      []error{fmt.Errorf("connection refused")},
	}
	c := newTestController(client)

	result, err := c.Compile(context.Background(), sequentialRaw, CompileOptions{Provider: provider.SelectorClaude})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, StatusFailed, result.Status)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, KindProviderError, result.Errors[0].Kind)
	// one call per MaxNetworkRetries attempt inside the Reasoner itself,
	// but only one Reasoner invocation from the controller's perspective
	assert.Greater(t, client.calls, 0)
}

// TestCompileCheckpointsFinalStatus confirms the sink holds a snapshot
// reflecting the final status once the run completes.
func TestCompileCheckpointsFinalStatus(t *testing.T) {
	client := &scriptedClient{responses: []string{sequentialIRJSON(t)}}
	sink := checkpoint.NewMemorySink()
	cfg, _ := config.LoadDefault()
	c := &Controller{Config: cfg, Sink: sink, testClient: client}

	result, err := c.Compile(context.Background(), sequentialRaw, CompileOptions{Provider: provider.SelectorClaude})
	require.NoError(t, err)

	raw, err := sink.Load(context.Background(), result.ExecutionID)
	require.NoError(t, err)

	var snap struct {
		ExecutionStatus Status `json:"execution_status"`
	}
	require.NoError(t, json.Unmarshal(raw, &snap))
	assert.Equal(t, StatusComplete, snap.ExecutionStatus)
}

func TestNewDefaultsToMemorySinkAndConfig(t *testing.T) {
	c := New(nil, nil)
	require.NotNil(t, c.Config)
	require.NotNil(t, c.Sink)
	assert.Equal(t, 3, c.Config.Pipeline.MaxRetries)
}
