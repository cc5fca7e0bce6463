package pipeline

import (
	"time"

	"github.com/soochol/flowforge/internal/ir"
	"github.com/soochol/flowforge/internal/parser"
)

// Status is the run's execution_status (spec.md §4.6).
type Status string

const (
	StatusInitial    Status = "initial"
	StatusParsing    Status = "parsing"
	StatusReasoning  Status = "reasoning"
	StatusValidating Status = "validating"
	StatusGenerating Status = "generating"
	StatusComplete   Status = "complete"
	StatusEscalated  Status = "escalated"
	StatusFailed     Status = "failed"
)

// State is the per-run mutable record the controller threads through the
// graph and persists to the checkpoint sink after every node.
type State struct {
	ExecutionID string
	Timestamp   time.Time

	RawSpec         string
	ParsedSections  parser.Sections
	Diagnostics     []parser.Diagnostic
	CandidateIR     *ir.WorkflowSpec
	ValidatedSpec   *ir.WorkflowSpec
	SerializedJSON  string
	GeneratedCode   string

	RetryCount       int
	ErrorHistory     []*Error
	FeedbackMessages []string
	ConfidenceScore  float64
	ExecutionStatus  Status
}

// newState initializes a fresh State for one compile() call.
func newState(executionID string, rawSpec string) *State {
	return &State{
		ExecutionID:     executionID,
		Timestamp:       time.Now(),
		RawSpec:         rawSpec,
		ExecutionStatus: StatusInitial,
	}
}

func (s *State) recordError(err *Error) {
	s.ErrorHistory = append(s.ErrorHistory, err)
}

// snapshot is an importer-friendly JSON view of State, written to the
// checkpoint sink after every node.
type snapshot struct {
	ExecutionID      string    `json:"execution_id"`
	Timestamp        time.Time `json:"timestamp"`
	ExecutionStatus  Status    `json:"execution_status"`
	RetryCount       int       `json:"retry_count"`
	ConfidenceScore  float64   `json:"confidence_score"`
	FeedbackMessages []string  `json:"feedback_messages"`
	ErrorHistory     []*Error  `json:"error_history"`
}

func (s *State) toSnapshot() snapshot {
	return snapshot{
		ExecutionID:      s.ExecutionID,
		Timestamp:        s.Timestamp,
		ExecutionStatus:  s.ExecutionStatus,
		RetryCount:       s.RetryCount,
		ConfidenceScore:  s.ConfidenceScore,
		FeedbackMessages: s.FeedbackMessages,
		ErrorHistory:     s.ErrorHistory,
	}
}
