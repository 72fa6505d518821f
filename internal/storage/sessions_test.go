package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docqad/internal/qa"
)

func testSession(id string, created time.Time) *qa.Session {
	confidence := 0.8
	return &qa.Session{
		ID:          id,
		Question:    "What is chunking?",
		Answer:      "Chunking splits text into token-bounded fragments.",
		CreatedAt:   created,
		DocumentIDs: []string{"doc-1", "doc-2"},
		Confidence:  &confidence,
	}
}

func testFeedback(sessionID string, rating int, created time.Time) *qa.Feedback {
	return &qa.Feedback{
		SessionID: sessionID,
		Question:  "What is chunking?",
		Answer:    "Chunking splits text into token-bounded fragments.",
		Rating:    rating,
		Comment:   "clear answer",
		IsHelpful: true,
		CreatedAt: created,
	}
}

func TestQAStore_SaveAndGetSession(t *testing.T) {
	store := setupTestStore(t)
	qas := store.QAStore()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	sess := testSession("sess-1", now)

	require.NoError(t, qas.SaveSession(ctx, sess))

	retrieved, err := qas.GetSession(ctx, "sess-1")
	require.NoError(t, err)

	assert.Equal(t, sess.ID, retrieved.ID)
	assert.Equal(t, sess.Question, retrieved.Question)
	assert.Equal(t, sess.Answer, retrieved.Answer)
	assert.True(t, sess.CreatedAt.Equal(retrieved.CreatedAt))
	assert.Equal(t, []string{"doc-1", "doc-2"}, retrieved.DocumentIDs)
	require.NotNil(t, retrieved.Confidence)
	assert.InDelta(t, 0.8, *retrieved.Confidence, 0.0001)
	assert.Nil(t, retrieved.FeedbackRating)
}

func TestQAStore_SaveSession_NilOptionals(t *testing.T) {
	store := setupTestStore(t)
	qas := store.QAStore()
	ctx := context.Background()

	sess := &qa.Session{
		ID:        "sess-1",
		Question:  "q",
		Answer:    "a",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, qas.SaveSession(ctx, sess))

	retrieved, err := qas.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, retrieved.DocumentIDs)
	assert.Nil(t, retrieved.Confidence)
	assert.Nil(t, retrieved.FeedbackRating)
}

func TestQAStore_GetSession_NotFound(t *testing.T) {
	store := setupTestStore(t)

	sess, err := store.QAStore().GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, qa.ErrSessionNotFound)
	assert.Nil(t, sess)
}

func TestQAStore_ListSessions_OrderAndPagination(t *testing.T) {
	store := setupTestStore(t)
	qas := store.QAStore()
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, qas.SaveSession(ctx, testSession("sess-1", base.Add(-3*time.Minute))))
	require.NoError(t, qas.SaveSession(ctx, testSession("sess-2", base.Add(-2*time.Minute))))
	require.NoError(t, qas.SaveSession(ctx, testSession("sess-3", base.Add(-1*time.Minute))))

	sessions, err := qas.ListSessions(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, "sess-3", sessions[0].ID)
	assert.Equal(t, "sess-2", sessions[1].ID)
	assert.Equal(t, "sess-1", sessions[2].ID)

	sessions, err = qas.ListSessions(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "sess-3", sessions[0].ID)

	sessions, err = qas.ListSessions(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "sess-1", sessions[0].ID)
}

func TestQAStore_AttachRating(t *testing.T) {
	store := setupTestStore(t)
	qas := store.QAStore()
	ctx := context.Background()

	require.NoError(t, qas.SaveSession(ctx, testSession("sess-1", time.Now().UTC())))

	require.NoError(t, qas.AttachRating(ctx, "sess-1", 4))

	retrieved, err := qas.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, retrieved.FeedbackRating)
	assert.Equal(t, 4, *retrieved.FeedbackRating)
}

func TestQAStore_AttachRating_MissingSession(t *testing.T) {
	store := setupTestStore(t)

	// Feedback can reference sessions that were never recorded.
	assert.NoError(t, store.QAStore().AttachRating(context.Background(), "missing", 5))
}

func TestQAStore_AddAndListFeedback(t *testing.T) {
	store := setupTestStore(t)
	qas := store.QAStore()
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, qas.AddFeedback(ctx, testFeedback("sess-1", 5, base.Add(-2*time.Minute))))
	require.NoError(t, qas.AddFeedback(ctx, testFeedback("sess-2", 3, base.Add(-1*time.Minute))))
	require.NoError(t, qas.AddFeedback(ctx, testFeedback("sess-3", 1, base)))

	feedback, err := qas.ListFeedback(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, feedback, 3)
	assert.Equal(t, "sess-3", feedback[0].SessionID)
	assert.Equal(t, "sess-2", feedback[1].SessionID)
	assert.Equal(t, "sess-1", feedback[2].SessionID)

	first := feedback[2]
	assert.Equal(t, "What is chunking?", first.Question)
	assert.Equal(t, 5, first.Rating)
	assert.Equal(t, "clear answer", first.Comment)
	assert.True(t, first.IsHelpful)
	assert.True(t, base.Add(-2*time.Minute).Equal(first.CreatedAt))

	feedback, err = qas.ListFeedback(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, feedback, 1)
	assert.Equal(t, "sess-2", feedback[0].SessionID)
}

func TestQAStore_ListFeedback_SameTimestampInsertionOrder(t *testing.T) {
	store := setupTestStore(t)
	qas := store.QAStore()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, qas.AddFeedback(ctx, testFeedback("sess-1", 1, now)))
	require.NoError(t, qas.AddFeedback(ctx, testFeedback("sess-2", 2, now)))

	feedback, err := qas.ListFeedback(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, feedback, 2)
	assert.Equal(t, "sess-2", feedback[0].SessionID, "later insert wins the tie")
}

func TestQAStore_DeleteFeedback(t *testing.T) {
	store := setupTestStore(t)
	qas := store.QAStore()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, qas.SaveSession(ctx, testSession("sess-1", now)))
	require.NoError(t, qas.AddFeedback(ctx, testFeedback("sess-1", 5, now)))
	require.NoError(t, qas.AddFeedback(ctx, testFeedback("sess-1", 4, now.Add(time.Second))))
	require.NoError(t, qas.AttachRating(ctx, "sess-1", 4))

	require.NoError(t, qas.DeleteFeedback(ctx, "sess-1"))

	feedback, err := qas.ListFeedback(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, feedback)

	// The session survives with its rating detached.
	sess, err := qas.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, sess.FeedbackRating)
}

func TestQAStore_DeleteFeedback_NoRows(t *testing.T) {
	store := setupTestStore(t)

	err := store.QAStore().DeleteFeedback(context.Background(), "missing")
	assert.ErrorIs(t, err, qa.ErrFeedbackNotFound)
}

func TestQAStore_DeleteFeedback_OnlyTargetSession(t *testing.T) {
	store := setupTestStore(t)
	qas := store.QAStore()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, qas.AddFeedback(ctx, testFeedback("sess-1", 5, now)))
	require.NoError(t, qas.AddFeedback(ctx, testFeedback("sess-2", 2, now)))

	require.NoError(t, qas.DeleteFeedback(ctx, "sess-1"))

	feedback, err := qas.ListFeedback(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, feedback, 1)
	assert.Equal(t, "sess-2", feedback[0].SessionID)
}
