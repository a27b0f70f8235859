package server

import (
	"testing"
	"time"
)

func TestCalendarAgeBeforeAndOnBirthday(t *testing.T) {
	t.Parallel()

	birth := time.Date(2000, 3, 15, 0, 0, 0, 0, time.UTC)

	if age := calendarAge(birth, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)); age != 23 {
		t.Fatalf("expected age 23 the day before the birthday, got %d", age)
	}
	if age := calendarAge(birth, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)); age != 24 {
		t.Fatalf("expected age 24 on the birthday, got %d", age)
	}
}

func TestBuildContextFlattensProfileLists(t *testing.T) {
	t.Parallel()

	dob := time.Date(1990, 6, 1, 0, 0, 0, 0, time.UTC)
	gender := "Female"
	profile := Profile{
		UserID:      "user-1",
		DateOfBirth: &dob,
		Gender:      &gender,
		Conditions:  []string{" asthma ", "", "hypertension"},
		Medications: []string{"albuterol"},
	}

	context := buildContextAt(profile, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC))
	if context.Age == nil || *context.Age != 35 {
		t.Fatalf("unexpected age: %v", context.Age)
	}
	if context.Gender == nil || *context.Gender != "female" {
		t.Fatalf("expected normalized gender, got %v", context.Gender)
	}
	if len(context.ExistingConditions) != 2 || context.ExistingConditions[0] != "asthma" {
		t.Fatalf("unexpected conditions: %v", context.ExistingConditions)
	}
	if len(context.Medications) != 1 {
		t.Fatalf("unexpected medications: %v", context.Medications)
	}
	if context.Allergies == nil || len(context.Allergies) != 0 {
		t.Fatalf("expected empty allergies slice, got %v", context.Allergies)
	}
}

func TestBuildContextToleratesEmptyProfile(t *testing.T) {
	t.Parallel()

	context := BuildContext(Profile{UserID: "user-1"})
	if context.Age != nil {
		t.Fatalf("expected nil age for missing date of birth")
	}
	if context.Gender != nil {
		t.Fatalf("expected nil gender for missing gender")
	}
	if context.ExistingConditions == nil || context.Medications == nil || context.Allergies == nil {
		t.Fatalf("expected empty slices, not nil")
	}
}
