package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docqad/internal/document"
	"github.com/fyrsmithlabs/docqad/internal/logging"
	"github.com/fyrsmithlabs/docqad/internal/qa"
)

type fakeDocs struct {
	docs   []*document.Document
	getErr error
}

func (f *fakeDocs) Get(_ context.Context, id string) (*document.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, doc := range f.docs {
		if doc.ID == id {
			return doc, nil
		}
	}
	return nil, document.ErrNotFound
}

func (f *fakeDocs) List(context.Context) ([]*document.Document, error) {
	return f.docs, nil
}

type fakeQA struct {
	answer    *qa.Answer
	sources   []qa.Source
	answerErr error
	searchErr error
	lastTopK  int
}

func (f *fakeQA) Answer(_ context.Context, _ string, topK int) (*qa.Answer, error) {
	f.lastTopK = topK
	if f.answerErr != nil {
		return nil, f.answerErr
	}
	return f.answer, nil
}

func (f *fakeQA) Search(_ context.Context, _ string, topK int) ([]qa.Source, error) {
	f.lastTopK = topK
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.sources, nil
}

func newTestServer(t *testing.T) (*Server, *fakeDocs, *fakeQA) {
	t.Helper()

	docs := &fakeDocs{docs: []*document.Document{{
		ID:         "doc-1",
		Filename:   "a.txt",
		Status:     document.StatusProcessed,
		UploadTime: time.Now().UTC(),
		Size:       42,
		Preview:    "alpha",
	}}}
	qaSvc := &fakeQA{
		answer: &qa.Answer{
			SessionID:  "session-1",
			Question:   "What is X?",
			Answer:     "X is a thing.",
			Confidence: 0.8,
			Sources: []qa.Source{
				{PointID: "p1", DocumentID: "doc-1", DocumentName: "a.txt", Content: "alpha", Score: 0.9},
			},
		},
		sources: []qa.Source{
			{PointID: "p1", DocumentID: "doc-1", DocumentName: "a.txt", Content: "alpha", Score: 0.9},
			{PointID: "p2", DocumentID: "doc-1", DocumentName: "a.txt", Content: "beta", Score: 0.7},
		},
	}

	srv, err := NewServer(ServerParams{
		Documents: docs,
		QA:        qaSvc,
		Logger:    logging.NewTestLogger().Logger,
		Version:   "test",
	})
	require.NoError(t, err)
	return srv, docs, qaSvc
}

func TestNewServer_RequiresCollaborators(t *testing.T) {
	_, err := NewServer(ServerParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

func TestAskQuestion(t *testing.T) {
	srv, _, qaSvc := newTestServer(t)

	out, err := srv.askQuestion(context.Background(), askInput{Question: "What is X?", TopK: 3})
	require.NoError(t, err)

	assert.Equal(t, "session-1", out.SessionID)
	assert.Equal(t, "X is a thing.", out.Answer)
	assert.InDelta(t, 0.8, out.Confidence, 1e-9)
	require.Len(t, out.Sources, 1)
	assert.Equal(t, "a.txt", out.Sources[0].DocumentName)
	assert.Equal(t, 3, qaSvc.lastTopK)
}

func TestAskQuestion_Error(t *testing.T) {
	srv, _, qaSvc := newTestServer(t)
	qaSvc.answerErr = qa.ErrNoContext

	_, err := srv.askQuestion(context.Background(), askInput{Question: "?"})
	require.Error(t, err)
	assert.ErrorIs(t, err, qa.ErrNoContext)
}

func TestSearchDocuments(t *testing.T) {
	srv, _, _ := newTestServer(t)

	out, err := srv.searchDocuments(context.Background(), searchInput{Query: "alpha", TopK: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, out.Count)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "p1", out.Results[0].PointID)
	assert.Equal(t, float32(0.9), out.Results[0].Score)
}

func TestSearchDocuments_Error(t *testing.T) {
	srv, _, qaSvc := newTestServer(t)
	qaSvc.searchErr = errors.New("index offline")

	_, err := srv.searchDocuments(context.Background(), searchInput{Query: "alpha"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "searching documents")
}

func TestListDocuments(t *testing.T) {
	srv, _, _ := newTestServer(t)

	out, err := srv.listDocuments(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, out.Count)
	require.Len(t, out.Documents, 1)
	assert.Equal(t, "doc-1", out.Documents[0].DocumentID)
	assert.Equal(t, "processed", out.Documents[0].Status)
}

func TestDocumentStatus(t *testing.T) {
	srv, _, _ := newTestServer(t)

	out, err := srv.documentStatus(context.Background(), statusInput{DocumentID: "doc-1"})
	require.NoError(t, err)
	assert.Equal(t, "a.txt", out.Filename)
	assert.Equal(t, "alpha", out.Preview)

	_, err = srv.documentStatus(context.Background(), statusInput{DocumentID: "nope"})
	require.Error(t, err)
	assert.ErrorIs(t, err, document.ErrNotFound)
}
