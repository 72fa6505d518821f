package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/docqad/internal/qa"
)

// qaStore implements qa.Store.
type qaStore struct {
	store *Store
}

var _ qa.Store = (*qaStore)(nil)

const sessionColumns = "id, question, answer, created_at, document_ids, confidence, feedback_rating"

// SaveSession inserts the session or updates it when the id already exists.
func (s *qaStore) SaveSession(ctx context.Context, sess *qa.Session) error {
	ids := sess.DocumentIDs
	if ids == nil {
		ids = []string{}
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshalling document ids: %w", err)
	}

	var confidence sql.NullFloat64
	if sess.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *sess.Confidence, Valid: true}
	}
	var rating sql.NullInt64
	if sess.FeedbackRating != nil {
		rating = sql.NullInt64{Int64: int64(*sess.FeedbackRating), Valid: true}
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO qa_sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			question = excluded.question,
			answer = excluded.answer,
			created_at = excluded.created_at,
			document_ids = excluded.document_ids,
			confidence = excluded.confidence,
			feedback_rating = excluded.feedback_rating
	`, sess.ID, sess.Question, sess.Answer, sess.CreatedAt,
		string(idsJSON), confidence, rating)

	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by id.
func (s *qaStore) GetSession(ctx context.Context, id string) (*qa.Session, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM qa_sessions WHERE id = ?
	`, id)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", qa.ErrSessionNotFound, id)
		}
		return nil, err
	}
	return sess, nil
}

// ListSessions returns sessions newest first.
func (s *qaStore) ListSessions(ctx context.Context, limit, offset int) ([]*qa.Session, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM qa_sessions
		ORDER BY created_at DESC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*qa.Session //nolint:prealloc // size unknown from query
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}

	return sessions, nil
}

// AttachRating sets the feedback rating on a session. A missing session is
// not an error.
func (s *qaStore) AttachRating(ctx context.Context, sessionID string, rating int) error {
	_, err := s.store.db.ExecContext(ctx,
		"UPDATE qa_sessions SET feedback_rating = ? WHERE id = ?", rating, sessionID)
	if err != nil {
		return fmt.Errorf("attaching rating: %w", err)
	}
	return nil
}

// AddFeedback appends a feedback row.
func (s *qaStore) AddFeedback(ctx context.Context, f *qa.Feedback) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO feedback (session_id, question, answer, rating, comment, is_helpful, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, f.SessionID, f.Question, f.Answer, f.Rating, f.Comment, f.IsHelpful, f.CreatedAt)

	if err != nil {
		return fmt.Errorf("adding feedback: %w", err)
	}
	return nil
}

// ListFeedback returns feedback rows newest first. The autoincrement id
// breaks timestamp ties in insertion order.
func (s *qaStore) ListFeedback(ctx context.Context, limit, offset int) ([]*qa.Feedback, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT session_id, question, answer, rating, comment, is_helpful, created_at
		FROM feedback
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying feedback: %w", err)
	}
	defer rows.Close()

	var feedback []*qa.Feedback //nolint:prealloc // size unknown from query
	for rows.Next() {
		var f qa.Feedback
		if err := rows.Scan(&f.SessionID, &f.Question, &f.Answer, &f.Rating,
			&f.Comment, &f.IsHelpful, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning feedback: %w", err)
		}
		feedback = append(feedback, &f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating feedback: %w", err)
	}

	return feedback, nil
}

// DeleteFeedback removes all feedback rows for the session and detaches the
// session's rating in one transaction. The session row itself survives.
func (s *qaStore) DeleteFeedback(ctx context.Context, sessionID string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, "DELETE FROM feedback WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("deleting feedback: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("counting deleted feedback: %w", err)
	}
	if deleted == 0 {
		return fmt.Errorf("%w: %s", qa.ErrFeedbackNotFound, sessionID)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE qa_sessions SET feedback_rating = NULL WHERE id = ?", sessionID); err != nil {
		return fmt.Errorf("detaching rating: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// scanSession scans one session row.
func scanSession(row scanner) (*qa.Session, error) {
	var sess qa.Session
	var idsJSON string
	var confidence sql.NullFloat64
	var rating sql.NullInt64

	if err := row.Scan(&sess.ID, &sess.Question, &sess.Answer, &sess.CreatedAt,
		&idsJSON, &confidence, &rating); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}

	if err := json.Unmarshal([]byte(idsJSON), &sess.DocumentIDs); err != nil {
		return nil, fmt.Errorf("unmarshalling document ids: %w", err)
	}
	if confidence.Valid {
		c := confidence.Float64
		sess.Confidence = &c
	}
	if rating.Valid {
		r := int(rating.Int64)
		sess.FeedbackRating = &r
	}

	return &sess, nil
}
