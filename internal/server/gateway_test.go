package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"healthguide/internal/config"
)

const validAssessmentJSON = `{
	"possibleConditions": [{
		"condition": "Viral infection",
		"probability": 60,
		"confidence": 55,
		"description": "Common viral pattern",
		"symptoms": ["fever"],
		"riskLevel": "medium"
	}],
	"recommendations": [{
		"type": "consultation",
		"title": "See a doctor",
		"description": "Schedule a visit",
		"priority": "medium",
		"timeframe": "within 1 week"
	}],
	"generalAdvice": "Rest and hydrate.",
	"whenToSeekHelp": "If fever exceeds 39C.",
	"followUp": {"timeframe": "3 days", "actions": ["recheck temperature"]}
}`

func newTestGateway(client ModelClient) *Gateway {
	return NewGateway(client, NewDenylistPolicy(), 2*time.Second, 600)
}

func TestGatewayAssessParsesDirectJSON(t *testing.T) {
	t.Parallel()

	gateway := newTestGateway(&MockModelClient{Answer: validAssessmentJSON})
	assessment := gateway.Assess(context.Background(), sampleSymptoms(), UserContext{})

	if len(assessment.PossibleConditions) != 1 {
		t.Fatalf("expected one condition, got %d", len(assessment.PossibleConditions))
	}
	if assessment.PossibleConditions[0].Condition != "Viral infection" {
		t.Fatalf("unexpected condition: %q", assessment.PossibleConditions[0].Condition)
	}
	if assessment.GeneralAdvice != "Rest and hydrate." {
		t.Fatalf("unexpected general advice: %q", assessment.GeneralAdvice)
	}
}

func TestGatewayAssessExtractsJSONWrappedInProse(t *testing.T) {
	t.Parallel()

	wrapped := "Sure! Here is the assessment you asked for: " + validAssessmentJSON + " Hope that helps."
	gateway := newTestGateway(&MockModelClient{Answer: wrapped})
	assessment := gateway.Assess(context.Background(), sampleSymptoms(), UserContext{})

	if len(assessment.PossibleConditions) != 1 || assessment.PossibleConditions[0].Condition != "Viral infection" {
		t.Fatalf("expected brace-sliced JSON to parse, got %+v", assessment.PossibleConditions)
	}
}

func TestGatewayAssessWrapsUnparseableTextVerbatim(t *testing.T) {
	t.Parallel()

	raw := "Your symptoms sound like a mild cold. Rest up and drink fluids."
	gateway := newTestGateway(&MockModelClient{Answer: raw})
	assessment := gateway.Assess(context.Background(), sampleSymptoms(), UserContext{})

	if !strings.Contains(assessment.GeneralAdvice, raw) {
		t.Fatalf("expected raw model text to be preserved in generalAdvice, got %q", assessment.GeneralAdvice)
	}
	if len(assessment.PossibleConditions) != 1 {
		t.Fatalf("expected a single placeholder condition, got %d", len(assessment.PossibleConditions))
	}
	if assessment.PossibleConditions[0].RiskLevel != RiskLow {
		t.Fatalf("expected low-risk placeholder, got %q", assessment.PossibleConditions[0].RiskLevel)
	}
}

func TestGatewayAssessFallsBackToHeuristicOnModelError(t *testing.T) {
	t.Parallel()

	gateway := newTestGateway(&MockModelClient{Err: errors.New("connection refused")})
	got := gateway.Assess(context.Background(), sampleSymptoms(), UserContext{})
	want := AssessHeuristically(sampleSymptoms(), UserContext{})
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected heuristic assessment on model error")
	}
}

func TestGatewayAssessWithoutCredentialUsesHeuristicPath(t *testing.T) {
	t.Parallel()

	gateway := newTestGateway(nil)
	first := gateway.Assess(context.Background(), sampleSymptoms(), UserContext{})
	second := gateway.Assess(context.Background(), sampleSymptoms(), UserContext{})
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected reproducible output without a credential")
	}
	if !reflect.DeepEqual(first, AssessHeuristically(sampleSymptoms(), UserContext{})) {
		t.Fatalf("expected the heuristic assessment without a credential")
	}
}

func TestGatewayAssessClampsOutOfRangeValues(t *testing.T) {
	t.Parallel()

	answer := `{"possibleConditions":[{"condition":"X","probability":140,"confidence":-5,"riskLevel":"weird"}],"generalAdvice":"ok","whenToSeekHelp":"soon"}`
	gateway := newTestGateway(&MockModelClient{Answer: answer})
	assessment := gateway.Assess(context.Background(), sampleSymptoms(), UserContext{})

	condition := assessment.PossibleConditions[0]
	if condition.Probability != 100 || condition.Confidence != 0 {
		t.Fatalf("expected clamped percentages, got p=%d c=%d", condition.Probability, condition.Confidence)
	}
	if condition.RiskLevel != RiskLow {
		t.Fatalf("expected unknown risk level to normalize to low, got %q", condition.RiskLevel)
	}
}

func TestGatewayAssessReplacesUnsafeAdvice(t *testing.T) {
	t.Parallel()

	answer := `{"possibleConditions":[{"condition":"X","probability":50,"confidence":50,"riskLevel":"low"}],"generalAdvice":"Just self-treat at home, no need to see a doctor.","whenToSeekHelp":"never"}`
	gateway := newTestGateway(&MockModelClient{Answer: answer})
	assessment := gateway.Assess(context.Background(), sampleSymptoms(), UserContext{})

	if assessment.GeneralAdvice != safeRedirectText {
		t.Fatalf("expected unsafe advice to be replaced, got %q", assessment.GeneralAdvice)
	}
}

func TestGatewayChatReturnsFixedReplyOnFailure(t *testing.T) {
	t.Parallel()

	gateway := newTestGateway(&MockModelClient{Err: errors.New("timeout")})
	reply := gateway.Chat(context.Background(), "I have a headache", nil, UserContext{})
	if reply != chatFallbackText {
		t.Fatalf("expected fixed fallback reply, got %q", reply)
	}
}

func TestGatewayChatValidatesModelOutput(t *testing.T) {
	t.Parallel()

	gateway := newTestGateway(&MockModelClient{Answer: "You should avoid doctors and tough it out."})
	reply := gateway.Chat(context.Background(), "Should I see someone?", nil, UserContext{})
	if reply != safeRedirectText {
		t.Fatalf("expected unsafe chat reply to be replaced, got %q", reply)
	}
}

type capturingClient struct {
	turns []ChatTurn
	opts  CompletionOptions
}

func (c *capturingClient) Complete(_ context.Context, _ string, messages []ChatTurn, opts CompletionOptions) (string, error) {
	c.turns = messages
	c.opts = opts
	return "Noted. How long has this been going on?", nil
}

func TestGatewayChatUsesLastTenTurns(t *testing.T) {
	t.Parallel()

	history := make([]ChatMessage, 0, 24)
	for i := 0; i < 24; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		history = append(history, ChatMessage{Role: role, Content: "turn", Timestamp: time.Now()})
	}

	client := &capturingClient{}
	gateway := newTestGateway(client)
	gateway.Chat(context.Background(), "new message", history, UserContext{})

	if len(client.turns) != chatHistoryTurnLimit+1 {
		t.Fatalf("expected %d turns, got %d", chatHistoryTurnLimit+1, len(client.turns))
	}
	if client.turns[len(client.turns)-1].Content != "new message" {
		t.Fatalf("expected the new message last, got %q", client.turns[len(client.turns)-1].Content)
	}
	if client.opts.Temperature != 0.7 {
		t.Fatalf("expected conversational temperature, got %v", client.opts.Temperature)
	}
}

func TestOpenAIClientCompleteRoundTrip(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "hello there"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
		}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(config.Config{
		OpenAIAPIKey:  "test",
		OpenAIBaseURL: server.URL,
		OpenAIModel:   "gpt-4o-mini",
	})

	answer, err := client.Complete(
		context.Background(),
		"system prompt",
		[]ChatTurn{{Role: "user", Content: "hi"}},
		CompletionOptions{Temperature: 0.2, MaxTokens: 100},
	)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if answer != "hello there" {
		t.Fatalf("unexpected answer: %q", answer)
	}
}
