package server

import (
	"log"
	"strings"
)

// Verdict is the result of classifying model output before it reaches a
// user.
type Verdict struct {
	IsValid   bool
	Sanitized string
}

// ContentPolicy classifies user-facing text. The default implementation is
// a fixed denylist; call sites only depend on the interface so a stronger
// classifier can be swapped in.
type ContentPolicy interface {
	Classify(text string) Verdict
}

const safeRedirectText = "I can't provide that guidance. Please consult a qualified healthcare professional who can evaluate your situation properly."

var unsafePhrases = []string{
	"avoid doctors",
	"avoid the doctor",
	"self-treat",
	"natural cure only",
	"no need to see a doctor",
	"stop taking your medication",
	"ignore the symptoms",
}

// DenylistPolicy flags known unsafe phrasing by case-insensitive substring
// match. False negatives on novel phrasing are an accepted limitation; this
// is defense in depth, not a classifier.
type DenylistPolicy struct {
	phrases []string
}

func NewDenylistPolicy() *DenylistPolicy {
	return &DenylistPolicy{phrases: unsafePhrases}
}

func (p *DenylistPolicy) Classify(text string) Verdict {
	lowered := strings.ToLower(text)
	for _, phrase := range p.phrases {
		if strings.Contains(lowered, phrase) {
			log.Printf("unsafe content blocked phrase=%q", phrase)
			return Verdict{IsValid: false, Sanitized: safeRedirectText}
		}
	}
	return Verdict{IsValid: true, Sanitized: text}
}
