package server

import (
	"strings"
	"time"
)

// BuildContext derives a UserContext from a raw profile record. It never
// fails: missing fields become nil or empty slices.
func BuildContext(profile Profile) UserContext {
	return buildContextAt(profile, time.Now().UTC())
}

func buildContextAt(profile Profile, now time.Time) UserContext {
	context := UserContext{
		ExistingConditions: flattenNames(profile.Conditions),
		Medications:        flattenNames(profile.Medications),
		Allergies:          flattenNames(profile.Allergies),
	}

	if profile.DateOfBirth != nil {
		age := calendarAge(*profile.DateOfBirth, now)
		context.Age = &age
	}
	if profile.Gender != nil {
		gender := strings.ToLower(strings.TrimSpace(*profile.Gender))
		if gender != "" {
			context.Gender = &gender
		}
	}
	return context
}

// calendarAge is the strict calendar age: year difference, minus one when
// the birth month/day has not yet occurred this year. Not elapsed-days
// division.
func calendarAge(dateOfBirth, now time.Time) int {
	birth := dateOfBirth.UTC()
	ref := now.UTC()

	age := ref.Year() - birth.Year()
	beforeBirthday := ref.Month() < birth.Month() ||
		(ref.Month() == birth.Month() && ref.Day() < birth.Day())
	if beforeBirthday {
		age--
	}
	if age < 0 {
		age = 0
	}
	return age
}

func flattenNames(items []string) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
