package server

import (
	"strings"
	"time"
)

const (
	SeverityMild     = "mild"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
)

const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// UserContext is the normalized medical context derived from a stored
// profile. It is rebuilt per request and never mutated afterwards.
type UserContext struct {
	Age                *int     `json:"age,omitempty"`
	Gender             *string  `json:"gender,omitempty"`
	ExistingConditions []string `json:"existingConditions"`
	Medications        []string `json:"medications"`
	Allergies          []string `json:"allergies"`
}

type SymptomDuration struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

type Symptom struct {
	Name        string          `json:"name"`
	Severity    string          `json:"severity"`
	Duration    SymptomDuration `json:"duration"`
	Description string          `json:"description,omitempty"`
}

type PossibleCondition struct {
	Condition   string   `json:"condition"`
	Probability int      `json:"probability"`
	Confidence  int      `json:"confidence"`
	Description string   `json:"description"`
	Symptoms    []string `json:"symptoms"`
	RiskLevel   string   `json:"riskLevel"`
}

type Recommendation struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Timeframe   string `json:"timeframe"`
}

type FollowUp struct {
	Timeframe string   `json:"timeframe"`
	Actions   []string `json:"actions"`
}

// Assessment is the single result type of the assess operation. Every code
// path that produces one must leave possibleConditions non-empty.
type Assessment struct {
	PossibleConditions []PossibleCondition `json:"possibleConditions"`
	Recommendations    []Recommendation    `json:"recommendations"`
	GeneralAdvice      string              `json:"generalAdvice"`
	WhenToSeekHelp     string              `json:"whenToSeekHelp"`
	FollowUp           FollowUp            `json:"followUp"`
}

// Profile is the raw record the Profile Store returns. Any field may be
// missing; the context builder tolerates all of them being absent.
type Profile struct {
	UserID      string
	DateOfBirth *time.Time
	Gender      *string
	Conditions  []string
	Medications []string
	Allergies   []string
}

func validSeverity(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case SeverityMild, SeverityModerate, SeveritySevere:
		return true
	}
	return false
}

func severityScore(value string) int {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case SeveritySevere:
		return 3
	case SeverityModerate:
		return 2
	default:
		return 1
	}
}

func clampPercent(value int) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
