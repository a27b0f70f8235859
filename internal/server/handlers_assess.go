package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	actionAssess = "assess"
	actionChat   = "chat"
)

const throttledDetail = "Too many requests. Please wait a moment and try again."

type durationPayload struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

type symptomPayload struct {
	Name        string          `json:"name"`
	Severity    string          `json:"severity"`
	Duration    durationPayload `json:"duration"`
	Description string          `json:"description"`
}

type assessRequest struct {
	Symptoms []symptomPayload `json:"symptoms"`
}

func (a *App) assess(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload assessRequest
	if !mustJSON(c, &payload) {
		return
	}

	symptoms, err := parseSymptoms(payload.Symptoms)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	if !a.limiter.Allow(user.ID, actionAssess, a.cfg.RateLimitMax, time.Duration(a.cfg.RateLimitWindowMS)*time.Millisecond) {
		writeError(c, http.StatusTooManyRequests, throttledDetail)
		return
	}

	userContext := a.buildUserContext(c.Request.Context(), user.ID)
	assessment := a.gateway.Assess(c.Request.Context(), symptoms, userContext)

	c.JSON(http.StatusOK, gin.H{
		"assessment": assessment,
		"context":    userContext,
	})
}

func parseSymptoms(payloads []symptomPayload) ([]Symptom, error) {
	if len(payloads) == 0 {
		return nil, errors.New("at least one symptom is required")
	}

	symptoms := make([]Symptom, 0, len(payloads))
	for _, item := range payloads {
		name := strings.ToLower(strings.TrimSpace(item.Name))
		if name == "" {
			return nil, errors.New("symptom name is required")
		}
		if !validSeverity(item.Severity) {
			return nil, errors.New("severity must be one of: mild, moderate, severe")
		}
		unit := strings.ToLower(strings.TrimSpace(item.Duration.Unit))
		if unit == "" {
			unit = "days"
		}
		value := item.Duration.Value
		if value < 0 {
			return nil, errors.New("duration value must not be negative")
		}
		symptoms = append(symptoms, Symptom{
			Name:        name,
			Severity:    strings.ToLower(strings.TrimSpace(item.Severity)),
			Duration:    SymptomDuration{Value: value, Unit: unit},
			Description: strings.TrimSpace(item.Description),
		})
	}
	return symptoms, nil
}

// buildUserContext assembles the request-scoped context. A missing profile
// is not an error: assessment proceeds with an empty context.
func (a *App) buildUserContext(ctx context.Context, userID string) UserContext {
	profile, err := a.profiles.GetProfile(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return BuildContext(Profile{UserID: userID})
	}
	if err != nil {
		log.Printf("profile load failed, using empty context user_id=%s err=%v", userID, err)
		return BuildContext(Profile{UserID: userID})
	}
	return BuildContext(profile)
}
