package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type chatMessageRequest struct {
	Content string `json:"content"`
}

type sessionStatusRequest struct {
	Status string `json:"status"`
}

func (a *App) createChatSession(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	session := NewChatSession(user.ID)
	if err := a.sessions.CreateSession(c.Request.Context(), session); err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to create chat session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (a *App) getChatSession(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	session, err := a.loadSessionForUser(c, user.ID)
	if err != nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (a *App) getChatSessionSummary(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	session, err := a.loadSessionForUser(c, user.ID)
	if err != nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": SummarizeSession(session)})
}

// respond appends the user message, produces a reply (fixed attribution
// answer or model chat), appends it, and persists the session. It always
// returns non-empty reply text.
func (a *App) respond(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload chatMessageRequest
	if !mustJSON(c, &payload) {
		return
	}
	content := strings.TrimSpace(payload.Content)
	if content == "" {
		writeError(c, http.StatusBadRequest, "content is required")
		return
	}

	session, err := a.loadSessionForUser(c, user.ID)
	if err != nil {
		return
	}
	if session.Status == SessionCompleted || session.Status == SessionArchived {
		writeError(c, http.StatusConflict, "Chat session is closed")
		return
	}

	if !a.limiter.Allow(user.ID, actionChat, a.cfg.RateLimitMax, time.Duration(a.cfg.RateLimitWindowMS)*time.Millisecond) {
		writeError(c, http.StatusTooManyRequests, throttledDetail)
		return
	}

	history := make([]ChatMessage, len(session.Messages))
	copy(history, session.Messages)

	AddMessage(session, "user", content)

	var reply string
	if isAttributionQuestion(content) {
		reply = attributionText
	} else {
		userContext := a.buildUserContext(c.Request.Context(), user.ID)
		reply = a.gateway.Chat(c.Request.Context(), content, history, userContext)
	}
	AddMessage(session, "assistant", reply)

	if err := a.sessions.SaveSession(c.Request.Context(), session); err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to save chat session")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID,
		"reply":      reply,
		"context":    session.Context,
		"insights":   session.Insights,
	})
}

func (a *App) updateChatSessionStatus(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload sessionStatusRequest
	if !mustJSON(c, &payload) {
		return
	}

	session, err := a.loadSessionForUser(c, user.ID)
	if err != nil {
		return
	}

	if err := TransitionSession(session, payload.Status); err != nil {
		if errors.Is(err, errSessionTerminal) {
			writeError(c, http.StatusConflict, "Chat session is completed or archived")
			return
		}
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.sessions.SaveSession(c.Request.Context(), session); err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to save chat session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// loadSessionForUser loads the session and enforces ownership. On failure
// it writes the response itself and returns a non-nil error so handlers
// can bail out.
func (a *App) loadSessionForUser(c *gin.Context, userID string) (*ChatSession, error) {
	sessionID := strings.TrimSpace(c.Param("session_id"))
	if sessionID == "" {
		writeError(c, http.StatusBadRequest, "session_id is required")
		return nil, errors.New("session_id is required")
	}

	session, err := a.sessions.LoadSession(c.Request.Context(), sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		writeError(c, http.StatusNotFound, "Chat session not found")
		return nil, err
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to load chat session")
		return nil, err
	}
	if session.UserID != userID {
		writeError(c, http.StatusNotFound, "Chat session not found")
		return nil, ErrSessionNotFound
	}
	return session, nil
}
