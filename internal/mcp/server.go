// Package mcp exposes docqad over the Model Context Protocol so agents can
// ask questions, search fragments, and inspect documents through the same
// services the HTTP API uses.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqad/internal/document"
	"github.com/fyrsmithlabs/docqad/internal/logging"
	"github.com/fyrsmithlabs/docqad/internal/qa"
)

// DocumentService is the document surface the tools consume.
// *document.Service satisfies it.
type DocumentService interface {
	Get(ctx context.Context, id string) (*document.Document, error)
	List(ctx context.Context) ([]*document.Document, error)
}

// QAService is the question-answering surface the tools consume.
// *qa.Service satisfies it.
type QAService interface {
	Answer(ctx context.Context, question string, topK int) (*qa.Answer, error)
	Search(ctx context.Context, query string, topK int) ([]qa.Source, error)
}

// ServerParams collects the collaborators a Server needs.
type ServerParams struct {
	Documents DocumentService
	QA        QAService
	Logger    *logging.Logger
	Version   string
}

// Server serves the docqad tool set over MCP.
type Server struct {
	mcp    *mcp.Server
	docs   DocumentService
	qa     QAService
	logger *logging.Logger
}

// NewServer creates the MCP server and registers the tools.
func NewServer(p ServerParams) (*Server, error) {
	switch {
	case p.Documents == nil:
		return nil, errors.New("document service is required")
	case p.QA == nil:
		return nil, errors.New("qa service is required")
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	}
	if p.Version == "" {
		p.Version = "dev"
	}

	s := &Server{
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "docqad",
				Version: p.Version,
			},
			nil,
		),
		docs:   p.Documents,
		qa:     p.QA,
		logger: p.Logger,
	}
	s.registerTools()
	return s, nil
}

// Run serves on the stdio transport until ctx is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server run: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ask_question",
		Description: "Answer a natural-language question against the indexed documents",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args askInput) (*mcp.CallToolResult, askOutput, error) {
		out, err := s.askQuestion(ctx, args)
		if err != nil {
			return nil, askOutput{}, err
		}
		return textResult(out.Answer), out, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_documents",
		Description: "Retrieve the document fragments most similar to a query, without generating an answer",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args searchInput) (*mcp.CallToolResult, searchOutput, error) {
		out, err := s.searchDocuments(ctx, args)
		if err != nil {
			return nil, searchOutput{}, err
		}
		return textResult(fmt.Sprintf("%d fragments found", out.Count)), out, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_documents",
		Description: "List all uploaded documents with their processing status",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listInput) (*mcp.CallToolResult, listOutput, error) {
		out, err := s.listDocuments(ctx)
		if err != nil {
			return nil, listOutput{}, err
		}
		return textResult(fmt.Sprintf("%d documents", out.Count)), out, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "document_status",
		Description: "Get the processing status of one document",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args statusInput) (*mcp.CallToolResult, statusOutput, error) {
		out, err := s.documentStatus(ctx, args)
		if err != nil {
			return nil, statusOutput{}, err
		}
		return textResult(fmt.Sprintf("%s: %s", out.Filename, out.Status)), out, nil
	})

	s.logger.Debug(context.Background(), "registered MCP tools",
		zap.Strings("tools", []string{"ask_question", "search_documents", "list_documents", "document_status"}),
	)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
