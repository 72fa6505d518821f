package mcp

import (
	"context"
	"fmt"
	"time"
)

type askInput struct {
	Question string `json:"question" jsonschema:"required,The question to answer"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"Number of fragments to retrieve (default: 5)"`
}

type sourceOutput struct {
	PointID      string  `json:"point_id" jsonschema:"Fragment point id"`
	DocumentID   string  `json:"document_id" jsonschema:"Owning document id"`
	DocumentName string  `json:"document_name" jsonschema:"Owning document filename"`
	Content      string  `json:"content" jsonschema:"Fragment text"`
	Score        float32 `json:"score" jsonschema:"Cosine similarity to the query"`
}

type askOutput struct {
	SessionID      string         `json:"session_id" jsonschema:"QA session id"`
	Answer         string         `json:"answer" jsonschema:"Generated answer"`
	Confidence     float64        `json:"confidence" jsonschema:"Mean similarity of the retrieved fragments"`
	Sources        []sourceOutput `json:"sources" jsonschema:"Fragments the answer is based on"`
	ProcessingTime float64        `json:"processing_time" jsonschema:"End-to-end latency in seconds"`
}

func (s *Server) askQuestion(ctx context.Context, args askInput) (askOutput, error) {
	answer, err := s.qa.Answer(ctx, args.Question, args.TopK)
	if err != nil {
		return askOutput{}, fmt.Errorf("answering question: %w", err)
	}

	sources := make([]sourceOutput, len(answer.Sources))
	for i, src := range answer.Sources {
		sources[i] = sourceOutput{
			PointID:      src.PointID,
			DocumentID:   src.DocumentID,
			DocumentName: src.DocumentName,
			Content:      src.Content,
			Score:        src.Score,
		}
	}
	return askOutput{
		SessionID:      answer.SessionID,
		Answer:         answer.Answer,
		Confidence:     answer.Confidence,
		Sources:        sources,
		ProcessingTime: answer.ProcessingTime,
	}, nil
}

type searchInput struct {
	Query string `json:"query" jsonschema:"required,Text to search for"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"Number of fragments to retrieve (default: 5)"`
}

type searchOutput struct {
	Results []sourceOutput `json:"results" jsonschema:"Matching fragments, best first"`
	Count   int            `json:"count" jsonschema:"Number of fragments returned"`
}

func (s *Server) searchDocuments(ctx context.Context, args searchInput) (searchOutput, error) {
	hits, err := s.qa.Search(ctx, args.Query, args.TopK)
	if err != nil {
		return searchOutput{}, fmt.Errorf("searching documents: %w", err)
	}

	results := make([]sourceOutput, len(hits))
	for i, src := range hits {
		results[i] = sourceOutput{
			PointID:      src.PointID,
			DocumentID:   src.DocumentID,
			DocumentName: src.DocumentName,
			Content:      src.Content,
			Score:        src.Score,
		}
	}
	return searchOutput{Results: results, Count: len(results)}, nil
}

type listInput struct{}

type documentOutput struct {
	DocumentID    string     `json:"document_id" jsonschema:"Document id"`
	Filename      string     `json:"filename" jsonschema:"Original filename"`
	Status        string     `json:"status" jsonschema:"Lifecycle status (uploaded, processing, processed, error)"`
	UploadTime    time.Time  `json:"upload_time" jsonschema:"Upload timestamp"`
	ProcessedTime *time.Time `json:"processed_time,omitempty" jsonschema:"Processing completion timestamp"`
	Size          int64      `json:"size" jsonschema:"Size in bytes"`
}

type listOutput struct {
	Documents []documentOutput `json:"documents" jsonschema:"All documents, newest first"`
	Count     int              `json:"count" jsonschema:"Number of documents"`
}

func (s *Server) listDocuments(ctx context.Context) (listOutput, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return listOutput{}, fmt.Errorf("listing documents: %w", err)
	}

	out := make([]documentOutput, len(docs))
	for i, doc := range docs {
		out[i] = documentOutput{
			DocumentID:    doc.ID,
			Filename:      doc.Filename,
			Status:        string(doc.Status),
			UploadTime:    doc.UploadTime,
			ProcessedTime: doc.ProcessedTime,
			Size:          doc.Size,
		}
	}
	return listOutput{Documents: out, Count: len(out)}, nil
}

type statusInput struct {
	DocumentID string `json:"document_id" jsonschema:"required,Document id to look up"`
}

type statusOutput struct {
	DocumentID    string     `json:"document_id" jsonschema:"Document id"`
	Filename      string     `json:"filename" jsonschema:"Original filename"`
	Status        string     `json:"status" jsonschema:"Lifecycle status"`
	UploadTime    time.Time  `json:"upload_time" jsonschema:"Upload timestamp"`
	ProcessedTime *time.Time `json:"processed_time,omitempty" jsonschema:"Processing completion timestamp"`
	Preview       string     `json:"preview,omitempty" jsonschema:"Content preview from the first fragment"`
}

func (s *Server) documentStatus(ctx context.Context, args statusInput) (statusOutput, error) {
	doc, err := s.docs.Get(ctx, args.DocumentID)
	if err != nil {
		return statusOutput{}, fmt.Errorf("getting document: %w", err)
	}

	return statusOutput{
		DocumentID:    doc.ID,
		Filename:      doc.Filename,
		Status:        string(doc.Status),
		UploadTime:    doc.UploadTime,
		ProcessedTime: doc.ProcessedTime,
		Preview:       doc.Preview,
	}, nil
}
