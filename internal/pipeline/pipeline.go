// Package pipeline implements the Orchestrator of spec.md §4.6: it runs
// Parser → Reasoner → Validator → Serializer → Generator, counts
// retries, accumulates error history, and decides escalation.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/soochol/flowforge/internal/checkpoint"
	"github.com/soochol/flowforge/internal/config"
	"github.com/soochol/flowforge/internal/generator"
	"github.com/soochol/flowforge/internal/parser"
	"github.com/soochol/flowforge/internal/provider"
	"github.com/soochol/flowforge/internal/reasoner"
	"github.com/soochol/flowforge/internal/serializer"
	"github.com/soochol/flowforge/internal/validator"
)

// Controller runs one compile graph per call to Compile, per spec.md's
// programmatic entry point (§6): compile(raw_spec, provider?,
// model_version?, prompt_version?, checkpoint_sink?) -> Result.
type Controller struct {
	Config *config.Config
	Sink   checkpoint.Sink

	// testClient, when set, bypasses provider.New so tests can inject a
	// fake provider.Client without touching environment variables.
	testClient provider.Client
}

// New creates a Controller. If cfg is nil, config.LoadDefault supplies
// the configuration (flowforge.yaml if present, else defaults). If sink
// is nil, an in-memory sink is used.
func New(cfg *config.Config, sink checkpoint.Sink) *Controller {
	if sink == nil {
		sink = checkpoint.NewMemorySink()
	}
	if cfg == nil {
		cfg, _ = config.LoadDefault()
	}
	return &Controller{Config: cfg, Sink: sink}
}

// CompileOptions selects the LLM provider, model, and prompt version for
// one Compile call.
type CompileOptions struct {
	Provider      provider.Selector
	Model         string
	PromptVersion string
}

// Compile runs the full graph against rawSpec. A ConfigurationError (no
// provider key, unknown provider) prevents the run from starting and is
// returned as the error value rather than folded into a Result — every
// other failure mode produces a terminal Result with Errors populated.
func (c *Controller) Compile(ctx context.Context, rawSpec string, opts CompileOptions) (*Result, error) {
	client := c.testClient
	if client == nil {
		var err error
		client, err = provider.New(opts.Provider)
		if err != nil {
			return nil, &ConfigurationError{Reason: err.Error()}
		}
	}
	model := provider.ResolveModel(opts.Provider, opts.Model)

	executionID := uuid.NewString()
	state := newState(executionID, rawSpec)

	g, runCtx := errgroup.WithContext(ctx)
	if c.Config.Pipeline.TotalWallClockBudget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, c.Config.Pipeline.TotalWallClockBudget)
		defer cancel()
	}

	var result *Result
	g.Go(func() error {
		r, runErr := c.run(runCtx, state, client, opts.Provider, model, opts.PromptVersion)
		result = r
		return runErr
	})

	if err := g.Wait(); err != nil && result == nil {
		state.ExecutionStatus = StatusFailed
		state.recordError(&Error{Kind: KindProviderError, Message: fmt.Sprintf("run cancelled: %v", err)})
		c.checkpoint(ctx, state)
		return &Result{
			Status:      StatusFailed,
			Errors:      state.ErrorHistory,
			ExecutionID: executionID,
		}, nil
	}
	return result, nil
}

func (c *Controller) run(ctx context.Context, state *State, client provider.Client, sel provider.Selector, model, promptVersion string) (*Result, error) {
	maxRetries := c.Config.Pipeline.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	threshold := c.Config.Pipeline.ConfidenceThreshold
	if threshold <= 0 {
		threshold = 0.8
	}

	state.ExecutionStatus = StatusParsing
	sections, diags := parser.Parse(state.RawSpec)
	state.ParsedSections = sections
	state.Diagnostics = diags
	c.checkpoint(ctx, state)

	rsnr := reasoner.New(client)

	for {
		if err := ctx.Err(); err != nil {
			return c.fail(state, KindProviderError, fmt.Sprintf("cancelled before reasoning: %v", err)), nil
		}

		state.ExecutionStatus = StatusReasoning
		c.checkpoint(ctx, state)

		attemptCtx := ctx
		if c.Config.Pipeline.LLMCallTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, c.Config.Pipeline.LLMCallTimeout)
			defer cancel()
		}

		candidate, err := rsnr.Reason(attemptCtx, reasoner.Request{
			Sections:      state.ParsedSections,
			Diagnostics:   state.Diagnostics,
			Feedback:      state.FeedbackMessages,
			RetryCount:    state.RetryCount,
			Provider:      sel,
			Model:         model,
			PromptVersion: promptVersion,
		})
		if err != nil {
			var parseErr *reasoner.ParsingError
			if asParsingError(err, &parseErr) {
				state.recordError(&Error{Kind: KindParsingError, Message: parseErr.Error()})
				state.FeedbackMessages = append(state.FeedbackMessages, parseErr.Error())
				state.RetryCount++
				if state.RetryCount >= maxRetries {
					return c.escalate(state), nil
				}
				continue
			}
			// Provider transport failures exhausted the Reasoner's own
			// network retries; surfaced rather than retried by the controller.
			return c.fail(state, KindProviderError, err.Error()), nil
		}

		state.CandidateIR = candidate.IR
		state.ConfidenceScore = candidate.Confidence

		state.ExecutionStatus = StatusValidating
		c.checkpoint(ctx, state)

		validated, valErrs := validator.Validate(candidate.IR)
		if len(valErrs) > 0 {
			for _, ve := range valErrs {
				msg := ve.Error()
				state.recordError(&Error{Kind: KindValidationError, Message: msg})
				state.FeedbackMessages = append(state.FeedbackMessages, msg)
			}
			state.RetryCount++
			if state.RetryCount >= maxRetries {
				return c.escalate(state), nil
			}
			continue
		}

		if candidate.Confidence < threshold {
			return c.escalate(state), nil
		}

		state.ValidatedSpec = validated

		serialized, err := serializer.Serialize(validated)
		if err != nil {
			return c.fail(state, KindSerializationError, err.Error()), nil
		}
		state.SerializedJSON = serialized

		state.ExecutionStatus = StatusGenerating
		c.checkpoint(ctx, state)

		genResult, err := generator.Generate(validated, candidate.Confidence)
		if err != nil {
			return c.fail(state, KindGenerationError, err.Error()), nil
		}
		state.GeneratedCode = genResult.Source

		state.ExecutionStatus = StatusComplete
		c.checkpoint(ctx, state)

		return &Result{
			Status:        StatusComplete,
			WorkflowName:  validated.Name,
			GeneratedCode: genResult.Source,
			SerializedIR:  serialized,
			Metadata:      &genResult.Metadata,
			Errors:        state.ErrorHistory,
			Confidence:    candidate.Confidence,
			ExecutionID:   state.ExecutionID,
		}, nil
	}
}

func asParsingError(err error, target **reasoner.ParsingError) bool {
	pe, ok := err.(*reasoner.ParsingError)
	if !ok {
		return false
	}
	*target = pe
	return true
}

func (c *Controller) fail(state *State, kind ErrorKind, message string) *Result {
	state.ExecutionStatus = StatusFailed
	state.recordError(&Error{Kind: kind, Message: message})
	c.checkpoint(context.Background(), state)
	return &Result{
		Status:      StatusFailed,
		Errors:      state.ErrorHistory,
		Confidence:  state.ConfidenceScore,
		ExecutionID: state.ExecutionID,
	}
}

// escalate hands back the last errors and partial IR for human review
// (spec.md §4.6, §7's EscalationRequired).
func (c *Controller) escalate(state *State) *Result {
	state.ExecutionStatus = StatusEscalated
	state.recordError(&Error{Kind: KindEscalationRequired, Message: "retry budget exhausted or confidence below threshold"})
	c.checkpoint(context.Background(), state)

	var serializedPartial string
	if state.CandidateIR != nil {
		if raw, err := json.Marshal(state.CandidateIR); err == nil {
			serializedPartial = string(raw)
		}
	}
	return &Result{
		Status:       StatusEscalated,
		SerializedIR: serializedPartial,
		Errors:       state.ErrorHistory,
		Confidence:   state.ConfidenceScore,
		ExecutionID:  state.ExecutionID,
	}
}

func (c *Controller) checkpoint(ctx context.Context, state *State) {
	raw, err := json.Marshal(state.toSnapshot())
	if err != nil {
		return
	}
	_ = c.Sink.Save(ctx, state.ExecutionID, raw)
}
