package server

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	SessionActive    = "active"
	SessionPaused    = "paused"
	SessionCompleted = "completed"
	SessionArchived  = "archived"
)

const defaultSessionCategory = "health_consultation"

const attributionText = "This application was built by the HealthGuide team to make safe, general health guidance easier to reach. For anything serious, always talk to a healthcare professional."

var errSessionTerminal = errors.New("session is completed or archived")

var emergencyKeywords = []string{"emergency", "urgent", "immediate", "severe", "critical"}

var painKeywords = []string{"pain", "ache", "hurt", "hurts", "sore"}

var attributionPhrases = []string{"who made", "who built", "who created", "who developed"}

var attributionTargets = []string{"site", "app", "application", "website"}

type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type SessionContext struct {
	UrgencyLevel   string `json:"urgencyLevel"`
	EmotionalState string `json:"emotionalState"`
}

type SessionInsights struct {
	PrimaryConcern string `json:"primaryConcern"`
	RiskAssessment string `json:"riskAssessment"`
}

// ChatSession is the conversation aggregate. Messages are append-only; the
// core never edits or removes one. Writes are single-writer per session id;
// callers serialize them.
type ChatSession struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Status    string          `json:"status"`
	Category  string          `json:"category"`
	Messages  []ChatMessage   `json:"messages"`
	Context   SessionContext  `json:"context"`
	Insights  SessionInsights `json:"insights"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type SessionSummary struct {
	ID              string       `json:"id"`
	Status          string       `json:"status"`
	Category        string       `json:"category"`
	MessageCount    int          `json:"messageCount"`
	DurationMinutes int          `json:"durationMinutes"`
	UrgencyLevel    string       `json:"urgencyLevel"`
	LastMessage     *ChatMessage `json:"lastMessage,omitempty"`
}

func NewChatSession(userID string) *ChatSession {
	now := time.Now().UTC()
	return &ChatSession{
		ID:       uuid.NewString(),
		UserID:   strings.TrimSpace(userID),
		Status:   SessionActive,
		Category: defaultSessionCategory,
		Messages: []ChatMessage{},
		Context: SessionContext{
			UrgencyLevel:   RiskLow,
			EmotionalState: "calm",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionSession applies an explicit status change. Completed and
// archived are terminal; nothing transitions out of them.
func TransitionSession(session *ChatSession, target string) error {
	target = strings.ToLower(strings.TrimSpace(target))
	switch target {
	case SessionActive, SessionPaused, SessionCompleted, SessionArchived:
	default:
		return errors.New("unknown session status: " + target)
	}

	switch session.Status {
	case SessionCompleted, SessionArchived:
		return errSessionTerminal
	case SessionActive, SessionPaused:
		session.Status = target
		session.UpdatedAt = time.Now().UTC()
		return nil
	default:
		return errors.New("session is in an unknown state: " + session.Status)
	}
}

// AddMessage appends a message and recomputes the derived urgency and
// insight fields. It does not invoke the model; the caller decides how the
// reply is produced.
func AddMessage(session *ChatSession, role, content string) {
	session.Messages = append(session.Messages, ChatMessage{
		Role:      strings.ToLower(strings.TrimSpace(role)),
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	session.UpdatedAt = time.Now().UTC()
	updateSessionSignals(session)
}

// updateSessionSignals scans the most recent user message within the last
// five messages. The scan only escalates urgency; once raised it stays
// raised until an explicit external status update resets it.
func updateSessionSignals(session *ChatSession) {
	message := latestUserMessage(session.Messages, 5)
	if message == "" {
		return
	}
	lowered := strings.ToLower(message)

	if containsAnyKeyword(lowered, emergencyKeywords) {
		escalateUrgency(session, RiskHigh)
		session.Context.EmotionalState = "urgent"
	} else if containsAnyKeyword(lowered, painKeywords) {
		escalateUrgency(session, RiskMedium)
	}

	if session.Insights.PrimaryConcern == "" {
		session.Insights.PrimaryConcern = derivePrimaryConcern(session.Messages)
	}
	session.Insights.RiskAssessment = riskAssessmentForUrgency(session.Context.UrgencyLevel)
}

func latestUserMessage(messages []ChatMessage, window int) string {
	start := len(messages) - window
	if start < 0 {
		start = 0
	}
	for idx := len(messages) - 1; idx >= start; idx-- {
		if messages[idx].Role == "user" {
			return strings.TrimSpace(messages[idx].Content)
		}
	}
	return ""
}

func urgencyRank(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case RiskCritical:
		return 3
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

func escalateUrgency(session *ChatSession, level string) {
	if urgencyRank(level) > urgencyRank(session.Context.UrgencyLevel) {
		session.Context.UrgencyLevel = level
	}
}

func riskAssessmentForUrgency(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case RiskCritical, RiskHigh:
		return "Recent messages mention urgent or severe symptoms; professional evaluation is advised."
	case RiskMedium:
		return "Recent messages mention pain or discomfort worth monitoring."
	default:
		return "No elevated risk signals detected in recent messages."
	}
}

func derivePrimaryConcern(messages []ChatMessage) string {
	for _, message := range messages {
		if message.Role != "user" {
			continue
		}
		normalized := strings.Join(strings.Fields(strings.TrimSpace(message.Content)), " ")
		if normalized == "" {
			continue
		}
		const maxLen = 96
		if len(normalized) > maxLen {
			normalized = strings.TrimSpace(normalized[:maxLen]) + "..."
		}
		return normalized
	}
	return ""
}

// isAttributionQuestion detects "who made/built this" questions that get a
// fixed reply without a model call.
func isAttributionQuestion(message string) bool {
	lowered := strings.ToLower(message)
	if containsAnyKeyword(lowered, attributionPhrases) {
		return true
	}
	if strings.Contains(lowered, "developer") && containsAnyKeyword(lowered, attributionTargets) {
		return true
	}
	return false
}

// SummarizeSession is a derived read view; it never mutates the session.
func SummarizeSession(session *ChatSession) SessionSummary {
	summary := SessionSummary{
		ID:           session.ID,
		Status:       session.Status,
		Category:     session.Category,
		MessageCount: len(session.Messages),
		UrgencyLevel: session.Context.UrgencyLevel,
	}
	if len(session.Messages) >= 2 {
		first := session.Messages[0].Timestamp
		last := session.Messages[len(session.Messages)-1].Timestamp
		summary.DurationMinutes = int(last.Sub(first).Minutes())
	}
	if len(session.Messages) > 0 {
		last := session.Messages[len(session.Messages)-1]
		summary.LastMessage = &last
	}
	return summary
}
