package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Wire types below match internal/http/types.go.

// HealthResponse matches internal/http/server.go HealthResponse
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

// apiClient is a thin JSON client for the docqad HTTP API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 120 * time.Second},
	}
}

// getJSON issues a GET and decodes the response body into out.
func (c *apiClient) getJSON(path string, out any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.baseURL+path, err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

// postJSON issues a POST with a JSON body and decodes the response into out.
func (c *apiClient) postJSON(path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.baseURL+path, err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

// delete issues a DELETE and decodes the response into out.
func (c *apiClient) delete(path string, out any) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.baseURL+path, err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

// uploadFile posts a local file as multipart form data.
func (c *apiClient) uploadFile(path, filePath string, out any) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf("failed to build multipart form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart form: %w", err)
	}

	resp, err := c.http.Post(c.baseURL+path, mw.FormDataContentType(), &buf)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.baseURL+path, err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
