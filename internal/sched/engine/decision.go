package engine

// Outcome classifies one OnTick call.
type Outcome string

const (
	OutcomeAssigned  Outcome = "ASSIGNED"
	OutcomeNoDomain  Outcome = "NO_DOMAIN"
	OutcomeNoTargets Outcome = "NO_TARGETS"
	OutcomeNoTask    Outcome = "NO_TASK"
)

// Decision is the per-call record fed to the optional sinks.
type Decision struct {
	Tick       uint64  `json:"tick"`
	AgentID    string  `json:"agent_id,omitempty"`
	DomainID   string  `json:"domain_id,omitempty"`
	Outcome    Outcome `json:"outcome"`
	ProviderID string  `json:"provider_id,omitempty"`
	TargetID   string  `json:"target_id,omitempty"`
	// Candidates evaluated before the call resolved.
	Attempts int `json:"attempts,omitempty"`
}

// DecisionLogger mirrors the simulation-side audit log shape: optional,
// nil-checked, best-effort.
type DecisionLogger interface {
	WriteDecision(d Decision) error
}

// StatsRecorder receives the same records for aggregate storage.
type StatsRecorder interface {
	RecordDecision(d Decision) error
}
