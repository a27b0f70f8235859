package server

import (
	"strings"
)

// The heuristic assessor is the correctness backstop for the assess
// operation: fully deterministic, side-effect-free, and always available.
// It runs whenever the model path is unconfigured, unreachable, or
// unparseable.

const (
	heuristicDisclaimer = "This guidance is generated from general symptom patterns and is not a medical diagnosis. A healthcare professional can evaluate your specific situation."
	heuristicSeekHelp   = "Seek medical help promptly if your symptoms worsen, new symptoms appear, or you feel significantly unwell."
)

type symptomRule struct {
	symptoms    []string
	condition   string
	description string
	riskBase    int
}

var symptomRules = []symptomRule{
	{
		symptoms:    []string{"fever", "chills"},
		condition:   "Viral infection",
		description: "Fever with chills commonly accompanies a viral infection.",
		riskBase:    45,
	},
	{
		symptoms:    []string{"cough", "sore throat", "congestion"},
		condition:   "Upper respiratory infection",
		description: "Cough, sore throat, and congestion suggest an upper respiratory infection.",
		riskBase:    40,
	},
	{
		symptoms:    []string{"headache", "nausea", "light sensitivity"},
		condition:   "Migraine",
		description: "Headache with nausea or light sensitivity is consistent with migraine.",
		riskBase:    35,
	},
	{
		symptoms:    []string{"chest pain", "shortness of breath", "palpitations"},
		condition:   "Cardiopulmonary issue",
		description: "Chest pain, breathing difficulty, or palpitations can indicate a cardiopulmonary problem and warrant prompt evaluation.",
		riskBase:    70,
	},
	{
		symptoms:    []string{"abdominal pain", "vomiting", "diarrhea"},
		condition:   "Gastrointestinal upset",
		description: "Abdominal pain with vomiting or diarrhea points to a gastrointestinal upset.",
		riskBase:    40,
	},
	{
		symptoms:    []string{"fatigue", "dizziness", "weakness"},
		condition:   "General malaise",
		description: "Fatigue, dizziness, and weakness are non-specific but worth monitoring.",
		riskBase:    30,
	},
}

var emergencySymptomNames = []string{
	"chest pain",
	"shortness of breath",
	"difficulty breathing",
	"breathing",
}

// AssessHeuristically maps a symptom report to an Assessment using the
// fixed rule table. Rank order follows table-match order and is never
// resorted.
func AssessHeuristically(symptoms []Symptom, _ UserContext) Assessment {
	totalSeverity := 0
	maxSeverity := 0
	names := make([]string, 0, len(symptoms))
	for _, symptom := range symptoms {
		score := severityScore(symptom.Severity)
		totalSeverity += score
		if score > maxSeverity {
			maxSeverity = score
		}
		names = append(names, strings.ToLower(strings.TrimSpace(symptom.Name)))
	}

	matched := matchRules(names)
	conditions := make([]PossibleCondition, 0, len(matched))
	for rank, rule := range matched {
		probability := rule.riskBase + maxSeverity*10 + rank*5
		if probability > 90 {
			probability = 90
		}
		confidence := 40 + totalSeverity*8 - rank*5
		if confidence > 90 {
			confidence = 90
		}
		risk := RiskLow
		if probability >= 70 {
			risk = RiskHigh
		} else if probability >= 45 {
			risk = RiskMedium
		}
		conditions = append(conditions, PossibleCondition{
			Condition:   rule.condition,
			Probability: clampPercent(probability),
			Confidence:  clampPercent(confidence),
			Description: rule.description,
			Symptoms:    intersectNames(names, rule.symptoms),
			RiskLevel:   risk,
		})
	}

	return Assessment{
		PossibleConditions: conditions,
		Recommendations:    heuristicRecommendations(names, maxSeverity),
		GeneralAdvice:      heuristicDisclaimer,
		WhenToSeekHelp:     heuristicSeekHelp,
		FollowUp: FollowUp{
			Timeframe: "within 1 week",
			Actions: []string{
				"Track symptom changes daily",
				"Note any new or worsening symptoms",
			},
		},
	}
}

func matchRules(names []string) []symptomRule {
	matched := make([]symptomRule, 0, 3)
	for _, rule := range symptomRules {
		if len(matched) == 3 {
			break
		}
		if len(intersectNames(names, rule.symptoms)) > 0 {
			matched = append(matched, rule)
		}
	}
	if len(matched) == 0 {
		matched = append(matched, symptomRule{
			symptoms:    nil,
			condition:   "Non-specific presentation",
			description: "The reported symptoms do not match a common pattern. Monitoring and a professional evaluation are advised.",
			riskBase:    20,
		})
	}
	return matched
}

func intersectNames(reported, ruleNames []string) []string {
	result := make([]string, 0, len(ruleNames))
	for _, reportedName := range reported {
		for _, ruleName := range ruleNames {
			if reportedName == ruleName {
				result = append(result, reportedName)
				break
			}
		}
	}
	return result
}

func heuristicRecommendations(names []string, maxSeverity int) []Recommendation {
	consultPriority := PriorityLow
	consultTimeframe := "within 2 weeks"
	switch maxSeverity {
	case 2:
		consultPriority = PriorityMedium
		consultTimeframe = "within 1 week"
	case 3:
		consultPriority = PriorityHigh
		consultTimeframe = "within 48 hours"
	}

	recommendations := []Recommendation{
		{
			Type:        "consultation",
			Title:       "Consult a healthcare professional",
			Description: "Discuss these symptoms with a doctor who can examine you and order tests if needed.",
			Priority:    consultPriority,
			Timeframe:   consultTimeframe,
		},
	}

	if maxSeverity == 3 || containsAnyKeyword(strings.Join(names, " "), emergencySymptomNames) {
		recommendations = append(recommendations, Recommendation{
			Type:        "emergency",
			Title:       "Seek urgent care",
			Description: "Severe symptoms, chest pain, or breathing difficulty should be evaluated urgently. Go to an emergency department or call emergency services if symptoms escalate.",
			Priority:    PriorityUrgent,
			Timeframe:   "immediately",
		})
	}

	recommendations = append(recommendations, Recommendation{
		Type:        "lifestyle",
		Title:       "Rest and hydration",
		Description: "Rest, drink fluids regularly, and avoid strenuous activity while symptoms persist.",
		Priority:    PriorityLow,
		Timeframe:   "ongoing",
	})
	return recommendations
}
