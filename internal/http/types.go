package http

import (
	"time"

	"github.com/fyrsmithlabs/docqad/internal/document"
	"github.com/fyrsmithlabs/docqad/internal/qa"
)

// HealthResponse is the body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	APIName string `json:"api_name"`
	Version string `json:"version"`
}

// MessageResponse is the generic acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

// DocumentResponse is the wire form of one document.
type DocumentResponse struct {
	DocumentID    string     `json:"document_id"`
	Filename      string     `json:"filename"`
	Status        string     `json:"status"`
	UploadTime    time.Time  `json:"upload_time"`
	ProcessedTime *time.Time `json:"processed_time,omitempty"`
	Size          int64      `json:"size"`
	Preview       string     `json:"preview,omitempty"`
}

func newDocumentResponse(doc *document.Document) DocumentResponse {
	return DocumentResponse{
		DocumentID:    doc.ID,
		Filename:      doc.Filename,
		Status:        string(doc.Status),
		UploadTime:    doc.UploadTime,
		ProcessedTime: doc.ProcessedTime,
		Size:          doc.Size,
		Preview:       doc.Preview,
	}
}

// DocumentListResponse is the body for GET /api/v1/documents.
type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

// DocumentStatusResponse is the body for GET /api/v1/documents/:id/status.
type DocumentStatusResponse struct {
	DocumentID    string     `json:"document_id"`
	Status        string     `json:"status"`
	Filename      string     `json:"filename"`
	UploadTime    time.Time  `json:"upload_time"`
	ProcessedTime *time.Time `json:"processed_time,omitempty"`
}

// QuestionRequest is the body for POST /api/v1/qa/ask.
type QuestionRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

// SourceResponse is one retrieved fragment backing an answer.
type SourceResponse struct {
	PointID      string  `json:"point_id"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	Content      string  `json:"content"`
	Score        float32 `json:"score"`
}

// QuestionResponse is the body for POST /api/v1/qa/ask.
type QuestionResponse struct {
	Question        string           `json:"question"`
	Answer          string           `json:"answer"`
	ConfidenceScore float64          `json:"confidence_score"`
	Sources         []SourceResponse `json:"sources"`
	ProcessingTime  float64          `json:"processing_time"`
	SessionID       string           `json:"session_id"`
}

func newQuestionResponse(a *qa.Answer) QuestionResponse {
	sources := make([]SourceResponse, len(a.Sources))
	for i, src := range a.Sources {
		sources[i] = SourceResponse{
			PointID:      src.PointID,
			DocumentID:   src.DocumentID,
			DocumentName: src.DocumentName,
			Content:      src.Content,
			Score:        src.Score,
		}
	}
	return QuestionResponse{
		Question:        a.Question,
		Answer:          a.Answer,
		ConfidenceScore: a.Confidence,
		Sources:         sources,
		ProcessingTime:  a.ProcessingTime,
		SessionID:       a.SessionID,
	}
}

// SessionResponse is the wire form of one QA history record.
type SessionResponse struct {
	ID             string    `json:"id"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	Timestamp      time.Time `json:"timestamp"`
	DocumentIDs    []string  `json:"document_ids"`
	Confidence     *float64  `json:"confidence_score,omitempty"`
	FeedbackRating *int      `json:"feedback_rating,omitempty"`
}

// HistoryResponse is the body for GET /api/v1/qa/history.
type HistoryResponse struct {
	History []SessionResponse `json:"history"`
}

func newHistoryResponse(sessions []*qa.Session) HistoryResponse {
	history := make([]SessionResponse, len(sessions))
	for i, s := range sessions {
		history[i] = SessionResponse{
			ID:             s.ID,
			Question:       s.Question,
			Answer:         s.Answer,
			Timestamp:      s.CreatedAt,
			DocumentIDs:    s.DocumentIDs,
			Confidence:     s.Confidence,
			FeedbackRating: s.FeedbackRating,
		}
	}
	return HistoryResponse{History: history}
}

// FeedbackRequest is the body for POST /api/v1/feedback.
type FeedbackRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
	IsHelpful bool   `json:"is_helpful"`
}

// FeedbackResponse is the wire form of one feedback row.
type FeedbackResponse struct {
	SessionID string    `json:"session_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	IsHelpful bool      `json:"is_helpful"`
	Timestamp time.Time `json:"timestamp"`
}

// FeedbackListResponse is the body for GET /api/v1/feedback.
type FeedbackListResponse struct {
	Feedback []FeedbackResponse `json:"feedback"`
}

func newFeedbackListResponse(rows []*qa.Feedback) FeedbackListResponse {
	feedback := make([]FeedbackResponse, len(rows))
	for i, f := range rows {
		feedback[i] = FeedbackResponse{
			SessionID: f.SessionID,
			Question:  f.Question,
			Answer:    f.Answer,
			Rating:    f.Rating,
			Comment:   f.Comment,
			IsHelpful: f.IsHelpful,
			Timestamp: f.CreatedAt,
		}
	}
	return FeedbackListResponse{Feedback: feedback}
}
