package server

import (
	"reflect"
	"testing"
)

func sampleSymptoms() []Symptom {
	return []Symptom{
		{Name: "fever", Severity: SeverityModerate, Duration: SymptomDuration{Value: 2, Unit: "days"}},
		{Name: "cough", Severity: SeverityMild, Duration: SymptomDuration{Value: 4, Unit: "days"}},
	}
}

func TestHeuristicAssessmentIsDeterministic(t *testing.T) {
	t.Parallel()

	first := AssessHeuristically(sampleSymptoms(), UserContext{})
	second := AssessHeuristically(sampleSymptoms(), UserContext{})
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical assessments for identical input")
	}
}

func TestHeuristicAssessmentBoundsAndInvariants(t *testing.T) {
	t.Parallel()

	assessment := AssessHeuristically(sampleSymptoms(), UserContext{})
	if len(assessment.PossibleConditions) == 0 {
		t.Fatalf("expected at least one possible condition")
	}
	for _, condition := range assessment.PossibleConditions {
		if condition.Probability < 0 || condition.Probability > 100 {
			t.Fatalf("probability out of range: %d", condition.Probability)
		}
		if condition.Confidence < 0 || condition.Confidence > 100 {
			t.Fatalf("confidence out of range: %d", condition.Confidence)
		}
	}
	if assessment.GeneralAdvice == "" || assessment.WhenToSeekHelp == "" {
		t.Fatalf("expected fixed advice strings to be present")
	}
}

func TestHeuristicNoMatchFallsBackToPlaceholder(t *testing.T) {
	t.Parallel()

	symptoms := []Symptom{
		{Name: "itchy elbow", Severity: SeverityMild, Duration: SymptomDuration{Value: 1, Unit: "days"}},
	}
	assessment := AssessHeuristically(symptoms, UserContext{})
	if len(assessment.PossibleConditions) != 1 {
		t.Fatalf("expected exactly one fallback condition, got %d", len(assessment.PossibleConditions))
	}
	if assessment.PossibleConditions[0].Condition != "Non-specific presentation" {
		t.Fatalf("unexpected fallback condition: %q", assessment.PossibleConditions[0].Condition)
	}
	if assessment.PossibleConditions[0].RiskLevel != RiskLow {
		t.Fatalf("expected low risk for fallback, got %q", assessment.PossibleConditions[0].RiskLevel)
	}
}

func TestHeuristicChestPainTriggersEmergencyRecommendation(t *testing.T) {
	t.Parallel()

	symptoms := []Symptom{
		{Name: "chest pain", Severity: SeverityModerate, Duration: SymptomDuration{Value: 1, Unit: "hours"}},
	}
	assessment := AssessHeuristically(symptoms, UserContext{})

	found := false
	for _, recommendation := range assessment.Recommendations {
		if recommendation.Type == "emergency" {
			found = true
			if recommendation.Priority != PriorityUrgent {
				t.Fatalf("expected urgent priority, got %q", recommendation.Priority)
			}
		}
	}
	if !found {
		t.Fatalf("expected an emergency recommendation for chest pain")
	}
}

func TestHeuristicSevereSymptomRaisesConsultPriority(t *testing.T) {
	t.Parallel()

	symptoms := []Symptom{
		{Name: "fever", Severity: SeveritySevere, Duration: SymptomDuration{Value: 3, Unit: "days"}},
	}
	assessment := AssessHeuristically(symptoms, UserContext{})

	if assessment.Recommendations[0].Type != "consultation" {
		t.Fatalf("expected the first recommendation to be the consultation entry")
	}
	if assessment.Recommendations[0].Priority != PriorityHigh {
		t.Fatalf("expected high consult priority for severe symptoms, got %q", assessment.Recommendations[0].Priority)
	}

	foundEmergency := false
	for _, recommendation := range assessment.Recommendations {
		if recommendation.Type == "emergency" {
			foundEmergency = true
		}
	}
	if !foundEmergency {
		t.Fatalf("expected an emergency recommendation when max severity is severe")
	}
}

func TestHeuristicRankOrderFollowsTableOrder(t *testing.T) {
	t.Parallel()

	symptoms := []Symptom{
		{Name: "fatigue", Severity: SeverityMild, Duration: SymptomDuration{Value: 5, Unit: "days"}},
		{Name: "fever", Severity: SeverityMild, Duration: SymptomDuration{Value: 1, Unit: "days"}},
	}
	assessment := AssessHeuristically(symptoms, UserContext{})
	if len(assessment.PossibleConditions) != 2 {
		t.Fatalf("expected two matched conditions, got %d", len(assessment.PossibleConditions))
	}
	if assessment.PossibleConditions[0].Condition != "Viral infection" {
		t.Fatalf("expected table order (viral infection first), got %q", assessment.PossibleConditions[0].Condition)
	}
	if assessment.PossibleConditions[1].Condition != "General malaise" {
		t.Fatalf("expected general malaise second, got %q", assessment.PossibleConditions[1].Condition)
	}
}
