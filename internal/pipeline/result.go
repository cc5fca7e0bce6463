package pipeline

import "github.com/soochol/flowforge/internal/generator"

// Result is the external entry point's return value (spec.md §6).
type Result struct {
	Status        Status             `json:"status"`
	WorkflowName  string             `json:"workflow_name,omitempty"`
	GeneratedCode string             `json:"generated_code,omitempty"`
	SerializedIR  string             `json:"serialized_ir,omitempty"`
	Metadata      *generator.Metadata `json:"metadata,omitempty"`
	Errors        []*Error           `json:"errors"`
	Confidence    float64            `json:"confidence"`
	ExecutionID   string             `json:"execution_id"`
}

// ErrorEnvelope is the shape returned to the HTTP collaborator named in
// spec.md §6.
type ErrorEnvelope struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	ErrorType ErrorKind `json:"error_type"`
	Details   string    `json:"details,omitempty"`
}

// Envelope converts the last recorded error into the HTTP error shape.
// Returns nil if the run succeeded.
func (r *Result) Envelope() *ErrorEnvelope {
	if r.Status == StatusComplete || len(r.Errors) == 0 {
		return nil
	}
	last := r.Errors[len(r.Errors)-1]
	return &ErrorEnvelope{
		Success:   false,
		Error:     last.Message,
		ErrorType: last.Kind,
	}
}
