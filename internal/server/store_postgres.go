package server

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStores backs both collaborator ports with the pgx pool.
type PostgresStores struct {
	db *pgxpool.Pool
}

func NewPostgresStores(db *pgxpool.Pool) *PostgresStores {
	return &PostgresStores{db: db}
}

func (s *PostgresStores) GetProfile(ctx context.Context, userID string) (Profile, error) {
	profile := Profile{UserID: userID}
	var dateOfBirth *time.Time
	var gender *string
	var conditionsRaw, medicationsRaw, allergiesRaw []byte

	err := s.db.QueryRow(
		ctx,
		`SELECT date_of_birth, gender, conditions, medications, allergies
		 FROM health_profile
		 WHERE user_id = $1`,
		userID,
	).Scan(&dateOfBirth, &gender, &conditionsRaw, &medicationsRaw, &allergiesRaw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrProfileNotFound
	}
	if err != nil {
		return Profile{}, err
	}

	profile.DateOfBirth = dateOfBirth
	profile.Gender = gender
	profile.Conditions = decodeStringList(conditionsRaw)
	profile.Medications = decodeStringList(medicationsRaw)
	profile.Allergies = decodeStringList(allergiesRaw)
	return profile, nil
}

func (s *PostgresStores) CreateSession(ctx context.Context, session *ChatSession) error {
	_, err := s.db.Exec(
		ctx,
		`INSERT INTO chat_session (
			id, user_id, status, category, urgency_level, emotional_state,
			primary_concern, risk_assessment, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		session.ID,
		session.UserID,
		session.Status,
		session.Category,
		session.Context.UrgencyLevel,
		session.Context.EmotionalState,
		session.Insights.PrimaryConcern,
		session.Insights.RiskAssessment,
		session.CreatedAt,
		session.UpdatedAt,
	)
	return err
}

func (s *PostgresStores) LoadSession(ctx context.Context, id string) (*ChatSession, error) {
	session := &ChatSession{}
	err := s.db.QueryRow(
		ctx,
		`SELECT id, user_id, status, category, urgency_level, emotional_state,
		        primary_concern, risk_assessment, created_at, updated_at
		 FROM chat_session
		 WHERE id = $1`,
		id,
	).Scan(
		&session.ID,
		&session.UserID,
		&session.Status,
		&session.Category,
		&session.Context.UrgencyLevel,
		&session.Context.EmotionalState,
		&session.Insights.PrimaryConcern,
		&session.Insights.RiskAssessment,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		ctx,
		`SELECT role, content, created_at
		 FROM chat_message
		 WHERE session_id = $1
		 ORDER BY position ASC`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	session.Messages = make([]ChatMessage, 0, 16)
	for rows.Next() {
		var message ChatMessage
		if err := rows.Scan(&message.Role, &message.Content, &message.Timestamp); err != nil {
			return nil, err
		}
		session.Messages = append(session.Messages, message)
	}
	return session, rows.Err()
}

// SaveSession updates the session row and appends any messages past the
// stored count. Earlier messages are never touched.
func (s *PostgresStores) SaveSession(ctx context.Context, session *ChatSession) error {
	tag, err := s.db.Exec(
		ctx,
		`UPDATE chat_session
		 SET status = $2,
		     urgency_level = $3,
		     emotional_state = $4,
		     primary_concern = $5,
		     risk_assessment = $6,
		     updated_at = $7
		 WHERE id = $1`,
		session.ID,
		session.Status,
		session.Context.UrgencyLevel,
		session.Context.EmotionalState,
		session.Insights.PrimaryConcern,
		session.Insights.RiskAssessment,
		session.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	var stored int
	if err := s.db.QueryRow(
		ctx,
		`SELECT COUNT(*)::int FROM chat_message WHERE session_id = $1`,
		session.ID,
	).Scan(&stored); err != nil {
		return err
	}

	for position := stored; position < len(session.Messages); position++ {
		message := session.Messages[position]
		if _, err := s.db.Exec(
			ctx,
			`INSERT INTO chat_message (id, session_id, position, role, content, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.NewString(),
			session.ID,
			position,
			message.Role,
			message.Content,
			message.Timestamp,
		); err != nil {
			return err
		}
	}
	return nil
}

func decodeStringList(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var result []string
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil
	}
	return result
}
