package models

import "time"

// Severity is the tier assigned to a claim by a strategy.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
	// SeverityUnknown marks a decision produced by the fail-safe path.
	SeverityUnknown Severity = "unknown"
)

// Severities is the severity vocabulary in enumeration order.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Action is the handling action assigned to a claim.
type Action string

const (
	ActionApprove     Action = "approve"
	ActionInvestigate Action = "investigate"
	ActionDeny        Action = "deny"
	ActionEscalate    Action = "escalate"
)

// Actions is the action vocabulary in enumeration order.
var Actions = []Action{ActionApprove, ActionInvestigate, ActionDeny, ActionEscalate}

// ValidSeverity reports whether s belongs to the fixed severity vocabulary.
func ValidSeverity(s Severity) bool {
	for _, known := range Severities {
		if s == known {
			return true
		}
	}
	return false
}

// ValidAction reports whether a belongs to the fixed action vocabulary.
func ValidAction(a Action) bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// RiskTier is the coarse bucket of a risk score.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// RiskAssessment is the output of the risk scorer.
type RiskAssessment struct {
	Score       float64  `json:"risk_score"`
	Tier        RiskTier `json:"risk_level"`
	Factors     []string `json:"risk_factors"`
	Explanation string   `json:"explanation"`
}

// Decision is the record produced by exactly one strategy invocation on one
// claim.
type Decision struct {
	ID         string          `json:"decision_id"`
	ClaimID    string          `json:"claim_id"`
	Strategy   string          `json:"strategy"`
	Severity   Severity        `json:"severity"`
	Action     Action          `json:"action"`
	Rationale  string          `json:"rationale"`
	RiskScore  *float64        `json:"risk_score,omitempty"`
	Risk       *RiskAssessment `json:"risk,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Success    bool            `json:"success"`
	DurationMs int64           `json:"duration_ms"`
	// Steps is the number of conversation turns an agent used.
	Steps int `json:"steps,omitempty"`
	// Cached marks decisions replayed from the inference cache.
	Cached bool `json:"cached,omitempty"`
}
