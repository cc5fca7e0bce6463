// Package reasoner drives the single LLM call that turns parsed sections
// (plus any accumulated feedback) into a candidate IR, per spec.md §4.2.
package reasoner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/soochol/flowforge/internal/ir"
	"github.com/soochol/flowforge/internal/parser"
	"github.com/soochol/flowforge/internal/provider"
)

// MaxNetworkRetries bounds the Reasoner's own exponential-backoff retries
// for transport-level provider failures, independent of the pipeline's
// retry counter (spec.md §4.2, §7).
const MaxNetworkRetries = 2

// networkRetryBaseDelay is the wait before the first network retry; each
// later retry waits twice as long as the one before.
const networkRetryBaseDelay = 100 * time.Millisecond

// Candidate is the Reasoner's output: a pre-validation IR value plus a
// self-assessed confidence score and reasoning trace.
type Candidate struct {
	IR         *ir.WorkflowSpec
	Confidence float64
	Trace      []string
}

// Request bundles everything the Reasoner needs for one attempt.
type Request struct {
	Sections     parser.Sections
	Diagnostics  []parser.Diagnostic
	Feedback     []string
	RetryCount   int
	Provider     provider.Selector
	Model        string
	PromptVersion string
}

// ParsingError reports that the model's response could not be parsed as
// the expected IR shape.
type ParsingError struct {
	Raw string
	Err error
}

func (e *ParsingError) Error() string {
	return fmt.Sprintf("parsing error: %v", e.Err)
}
func (e *ParsingError) Unwrap() error { return e.Err }

// ProviderError wraps a transport-level failure from the LLM client.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string  { return fmt.Sprintf("provider error: %v", e.Err) }
func (e *ProviderError) Unwrap() error  { return e.Err }

// Reasoner drives one Reason() call per pipeline attempt.
type Reasoner struct {
	Client provider.Client
}

// New creates a Reasoner bound to client.
func New(client provider.Client) *Reasoner {
	return &Reasoner{Client: client}
}

// Reason performs one Reasoner attempt: build prompts, call the provider
// (with up to MaxNetworkRetries retries for transport failures), extract
// JSON from the response, and compute the confidence score.
func (r *Reasoner) Reason(ctx context.Context, req Request) (*Candidate, error) {
	system := systemPrompt(req.PromptVersion)
	user := userPrompt(req.Sections, req.Feedback)

	var (
		text string
		err  error
	)
	for attempt := 0; attempt <= MaxNetworkRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(networkRetryBaseDelay << (attempt - 1)):
			}
		}
		text, err = r.Client.Complete(ctx, provider.CompletionRequest{
			SystemPrompt: system,
			UserPrompt:   user,
			Model:        req.Model,
			Temperature:  0.2,
			MaxTokens:    4096,
		})
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		return nil, &ProviderError{Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &ProviderError{Err: fmt.Errorf("empty response from provider")}
	}

	cleaned := stripCodeFences(text)

	var candidateIR ir.WorkflowSpec
	if err := json.Unmarshal([]byte(cleaned), &candidateIR); err != nil {
		return nil, &ParsingError{Raw: text, Err: err}
	}
	if candidateIR.Version == "" {
		candidateIR.Version = ir.DefaultVersion
	}

	confidence, trace := computeConfidence(req.RetryCount, req.Diagnostics)

	return &Candidate{
		IR:         &candidateIR,
		Confidence: confidence,
		Trace:      trace,
	}, nil
}

// stripCodeFences removes a leading/trailing ``` or ```json fence, if
// present, leaving the raw JSON payload.
func stripCodeFences(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```json")
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}

// computeConfidence implements spec.md §4.2's confidence policy: start at
// 1.0, subtract 0.1 per prior retry, subtract up to 0.3 based on the
// count of parse diagnostics (0.1 per diagnostic, capped).
func computeConfidence(retryCount int, diags []parser.Diagnostic) (float64, []string) {
	trace := []string{fmt.Sprintf("base confidence 1.0, retry_count=%d, diagnostics=%d", retryCount, len(diags))}

	confidence := 1.0 - 0.1*float64(retryCount)
	trace = append(trace, fmt.Sprintf("after retry penalty: %.2f", confidence))

	diagPenalty := 0.1 * float64(len(diags))
	if diagPenalty > 0.3 {
		diagPenalty = 0.3
	}
	confidence -= diagPenalty
	trace = append(trace, fmt.Sprintf("after diagnostic penalty (%.2f): %.2f", diagPenalty, confidence))

	if confidence < 0 {
		confidence = 0
	}
	return confidence, trace
}
