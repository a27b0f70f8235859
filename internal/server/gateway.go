package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
)

const chatFallbackText = "I'm sorry, I'm having trouble responding right now. Please try again in a moment."

const chatHistoryTurnLimit = 10

// Gateway drives the model path for both operations and owns the recovery
// chain. Neither Assess nor Chat ever returns an error: every failure mode
// terminates in a well-formed Assessment or a fixed chat reply.
type Gateway struct {
	client    ModelClient
	policy    ContentPolicy
	timeout   time.Duration
	maxTokens int
}

// NewGateway builds a gateway. A nil client means no model credential is
// configured; Assess then answers from the heuristic path immediately.
func NewGateway(client ModelClient, policy ContentPolicy, timeout time.Duration, maxTokens int) *Gateway {
	if policy == nil {
		policy = NewDenylistPolicy()
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if maxTokens <= 0 {
		maxTokens = 900
	}
	return &Gateway{client: client, policy: policy, timeout: timeout, maxTokens: maxTokens}
}

// Assess runs the model with a strict JSON-shape instruction and recovers
// from every failure: no credential or any model error falls through to the
// heuristic assessor, unparseable output falls through the strategy chain.
func (g *Gateway) Assess(ctx context.Context, symptoms []Symptom, userContext UserContext) Assessment {
	if g.client == nil {
		return AssessHeuristically(symptoms, userContext)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.client.Complete(
		callCtx,
		assessSystemPrompt,
		[]ChatTurn{{Role: "user", Content: buildAssessUserPrompt(symptoms, userContext)}},
		CompletionOptions{Temperature: 0.2, MaxTokens: g.maxTokens},
	)
	if err != nil {
		log.Printf("model assess failed, using heuristic path err=%v", err)
		return AssessHeuristically(symptoms, userContext)
	}

	assessment := recoverAssessment(raw)
	if assessment == nil {
		return AssessHeuristically(symptoms, userContext)
	}
	g.finalizeAssessment(assessment)
	return *assessment
}

// Chat answers a conversational message from the last turns of history plus
// the new message. There is no heuristic chat equivalent; any failure
// returns a fixed retry suggestion.
func (g *Gateway) Chat(ctx context.Context, message string, history []ChatMessage, userContext UserContext) string {
	if g.client == nil {
		return chatFallbackText
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	turns := make([]ChatTurn, 0, chatHistoryTurnLimit+1)
	start := len(history) - chatHistoryTurnLimit
	if start < 0 {
		start = 0
	}
	for _, item := range history[start:] {
		role := strings.ToLower(strings.TrimSpace(item.Role))
		if role != "user" && role != "assistant" {
			continue
		}
		turns = append(turns, ChatTurn{Role: role, Content: item.Content})
	}
	turns = append(turns, ChatTurn{Role: "user", Content: message})

	answer, err := g.client.Complete(
		callCtx,
		buildChatSystemPrompt(userContext),
		turns,
		CompletionOptions{Temperature: 0.7, MaxTokens: g.maxTokens},
	)
	if err != nil {
		log.Printf("model chat failed, using fixed reply err=%v", err)
		return chatFallbackText
	}

	verdict := g.policy.Classify(answer)
	return verdict.Sanitized
}

// recoveryStrategy attempts to turn raw model text into an Assessment,
// returning nil when it cannot. Strategies run in order until one succeeds;
// the last one never fails.
type recoveryStrategy func(raw string) *Assessment

var recoveryStrategies = []recoveryStrategy{
	decodeAssessmentDirect,
	decodeAssessmentBraceSlice,
	wrapRawTextAssessment,
}

func recoverAssessment(raw string) *Assessment {
	for _, strategy := range recoveryStrategies {
		if assessment := strategy(raw); assessment != nil {
			return assessment
		}
	}
	return nil
}

func decodeAssessmentDirect(raw string) *Assessment {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return nil
	}
	var assessment Assessment
	if err := json.Unmarshal([]byte(candidate), &assessment); err != nil {
		return nil
	}
	return &assessment
}

// decodeAssessmentBraceSlice tolerates leading and trailing prose around
// the JSON object the model was asked for.
func decodeAssessmentBraceSlice(raw string) *Assessment {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil
	}
	return decodeAssessmentDirect(raw[start : end+1])
}

// wrapRawTextAssessment keeps the model's answer verbatim in generalAdvice
// so nothing is silently dropped, with a single low-confidence placeholder.
func wrapRawTextAssessment(raw string) *Assessment {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}
	return &Assessment{
		PossibleConditions: []PossibleCondition{placeholderCondition()},
		Recommendations: []Recommendation{
			{
				Type:        "consultation",
				Title:       "Consult a healthcare provider",
				Description: "A provider can interpret these symptoms in context and advise next steps.",
				Priority:    PriorityMedium,
				Timeframe:   "within 1 week",
			},
		},
		GeneralAdvice:  text,
		WhenToSeekHelp: heuristicSeekHelp,
		FollowUp: FollowUp{
			Timeframe: "within 1 week",
			Actions:   []string{"Monitor symptoms and consult a professional"},
		},
	}
}

func placeholderCondition() PossibleCondition {
	return PossibleCondition{
		Condition:   "Assessment pending professional review",
		Probability: 20,
		Confidence:  20,
		Description: "The automated assessment could not be structured; treat this as general guidance only.",
		Symptoms:    []string{},
		RiskLevel:   RiskLow,
	}
}

// finalizeAssessment enforces the output invariants on whatever the
// recovery chain produced: at least one condition, percentages in [0,100],
// and validated general advice.
func (g *Gateway) finalizeAssessment(assessment *Assessment) {
	if len(assessment.PossibleConditions) == 0 {
		assessment.PossibleConditions = []PossibleCondition{placeholderCondition()}
	}
	for idx := range assessment.PossibleConditions {
		condition := &assessment.PossibleConditions[idx]
		condition.Probability = clampPercent(condition.Probability)
		condition.Confidence = clampPercent(condition.Confidence)
		if condition.Symptoms == nil {
			condition.Symptoms = []string{}
		}
		switch strings.ToLower(strings.TrimSpace(condition.RiskLevel)) {
		case RiskLow, RiskMedium, RiskHigh, RiskCritical:
			condition.RiskLevel = strings.ToLower(strings.TrimSpace(condition.RiskLevel))
		default:
			condition.RiskLevel = RiskLow
		}
	}
	if strings.TrimSpace(assessment.WhenToSeekHelp) == "" {
		assessment.WhenToSeekHelp = heuristicSeekHelp
	}
	if strings.TrimSpace(assessment.GeneralAdvice) == "" {
		assessment.GeneralAdvice = heuristicDisclaimer
	}

	verdict := g.policy.Classify(assessment.GeneralAdvice)
	assessment.GeneralAdvice = verdict.Sanitized
}

const assessSystemPrompt = `You are a cautious health information assistant.
You never assert certainty and never discourage professional care.
Return ONLY a JSON object, no markdown, no code fences, no commentary.
JSON schema:
{"possibleConditions":[{"condition":"string","probability":0,"confidence":0,"description":"string","symptoms":["string"],"riskLevel":"low|medium|high|critical"}],"recommendations":[{"type":"lifestyle|medication|consultation|emergency|monitoring","title":"string","description":"string","priority":"low|medium|high|urgent","timeframe":"string"}],"generalAdvice":"string","whenToSeekHelp":"string","followUp":{"timeframe":"string","actions":["string"]}}
probability and confidence are integers from 0 to 100.
possibleConditions must contain at least one entry.`

func buildAssessUserPrompt(symptoms []Symptom, userContext UserContext) string {
	lines := []string{"Patient context:"}
	if userContext.Age != nil {
		lines = append(lines, fmt.Sprintf("- Age: %d", *userContext.Age))
	}
	if userContext.Gender != nil {
		lines = append(lines, "- Gender: "+*userContext.Gender)
	}
	if len(userContext.ExistingConditions) > 0 {
		lines = append(lines, "- Existing conditions: "+strings.Join(userContext.ExistingConditions, ", "))
	}
	if len(userContext.Medications) > 0 {
		lines = append(lines, "- Medications: "+strings.Join(userContext.Medications, ", "))
	}
	if len(userContext.Allergies) > 0 {
		lines = append(lines, "- Allergies: "+strings.Join(userContext.Allergies, ", "))
	}
	if len(lines) == 1 {
		lines = append(lines, "- No profile information available")
	}

	lines = append(lines, "", "Reported symptoms:")
	for _, symptom := range symptoms {
		entry := fmt.Sprintf(
			"- %s (severity: %s, duration: %d %s)",
			symptom.Name,
			strings.ToLower(strings.TrimSpace(symptom.Severity)),
			symptom.Duration.Value,
			symptom.Duration.Unit,
		)
		if strings.TrimSpace(symptom.Description) != "" {
			entry += " — " + strings.TrimSpace(symptom.Description)
		}
		lines = append(lines, entry)
	}
	lines = append(lines, "", "Produce the JSON assessment now.")
	return strings.Join(lines, "\n")
}

func buildChatSystemPrompt(userContext UserContext) string {
	lines := []string{
		"You are a warm, practical health guidance assistant talking with a user about their wellbeing.",
		"Continue the conversation from earlier turns; do not answer as if each message stands alone.",
		"Never assert a diagnosis. Present possibilities and safe next steps.",
		"Never discourage the user from seeing a doctor or taking prescribed medication.",
		"Keep paragraphs short and readable on a phone screen.",
		"If the user describes emergency symptoms, tell them to seek urgent care first.",
	}
	if userContext.Age != nil {
		lines = append(lines, fmt.Sprintf("The user is %d years old.", *userContext.Age))
	}
	if len(userContext.ExistingConditions) > 0 {
		lines = append(lines, "Known conditions: "+strings.Join(userContext.ExistingConditions, ", ")+".")
	}
	if len(userContext.Medications) > 0 {
		lines = append(lines, "Current medications: "+strings.Join(userContext.Medications, ", ")+".")
	}
	if len(userContext.Allergies) > 0 {
		lines = append(lines, "Known allergies: "+strings.Join(userContext.Allergies, ", ")+".")
	}
	return strings.Join(lines, "\n")
}
