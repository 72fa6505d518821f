package http

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqad/internal/document"
)

// handleUpload accepts a multipart upload and enqueues processing. The
// response returns as soon as the metadata row is persisted; callers poll
// the status endpoint or subscribe to the event stream.
func (s *Server) handleUpload(c echo.Context) error {
	doc, err := s.acceptUpload(c)
	if err != nil {
		return err
	}

	s.queue.Submit(doc.ID)
	return c.JSON(http.StatusOK, newDocumentResponse(doc))
}

// handleUploadSync processes the document inline before responding. Debug
// path: upload failures and processing failures both surface directly.
func (s *Server) handleUploadSync(c echo.Context) error {
	doc, err := s.acceptUpload(c)
	if err != nil {
		return err
	}

	if err := s.docs.Process(c.Request().Context(), doc.ID); err != nil {
		s.logger.Error(c.Request().Context(), "synchronous processing failed",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
		return httpError(err)
	}

	processed, err := s.docs.Get(c.Request().Context(), doc.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, newDocumentResponse(processed))
}

func (s *Server) acceptUpload(c echo.Context) (*document.Document, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
	}

	src, err := file.Open()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "opening uploaded file")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "reading uploaded file")
	}

	doc, err := s.docs.Upload(c.Request().Context(), file.Filename, data)
	if err != nil {
		return nil, httpError(err)
	}
	return doc, nil
}

func (s *Server) handleListDocuments(c echo.Context) error {
	docs, err := s.docs.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	out := make([]DocumentResponse, len(docs))
	for i, doc := range docs {
		out[i] = newDocumentResponse(doc)
	}
	return c.JSON(http.StatusOK, DocumentListResponse{Documents: out})
}

func (s *Server) handleDocumentStatus(c echo.Context) error {
	doc, err := s.docs.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, DocumentStatusResponse{
		DocumentID:    doc.ID,
		Status:        string(doc.Status),
		Filename:      doc.Filename,
		UploadTime:    doc.UploadTime,
		ProcessedTime: doc.ProcessedTime,
	})
}

func (s *Server) handleDeleteDocument(c echo.Context) error {
	id := c.Param("id")
	deleted, err := s.docs.Delete(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if !deleted {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("document not found: %s", id))
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Document deleted successfully"})
}
