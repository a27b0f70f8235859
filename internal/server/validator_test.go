package server

import "testing"

func TestDenylistPolicyBlocksUnsafePhrases(t *testing.T) {
	t.Parallel()

	policy := NewDenylistPolicy()

	verdict := policy.Classify("Honestly you should try a Natural Cure Only and skip the pills.")
	if verdict.IsValid {
		t.Fatalf("expected unsafe phrase to be flagged")
	}
	if verdict.Sanitized != safeRedirectText {
		t.Fatalf("expected fixed safe redirect, got %q", verdict.Sanitized)
	}
}

func TestDenylistPolicyPassesCleanText(t *testing.T) {
	t.Parallel()

	policy := NewDenylistPolicy()
	input := "Rest, stay hydrated, and see a doctor if the fever persists beyond three days."

	verdict := policy.Classify(input)
	if !verdict.IsValid {
		t.Fatalf("expected clean text to pass")
	}
	if verdict.Sanitized != input {
		t.Fatalf("expected text to be returned unchanged, got %q", verdict.Sanitized)
	}
}

func TestDenylistPolicyIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	policy := NewDenylistPolicy()
	if verdict := policy.Classify("AVOID DOCTORS completely"); verdict.IsValid {
		t.Fatalf("expected uppercase phrasing to be flagged")
	}
}
