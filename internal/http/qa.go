package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/docqad/internal/qa"
)

func (s *Server) handleAsk(c echo.Context) error {
	var req QuestionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	answer, err := s.qa.Answer(c.Request().Context(), req.Question, req.TopK)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, newQuestionResponse(answer))
}

func (s *Server) handleHistory(c echo.Context) error {
	limit, offset := pagination(c)
	sessions, err := s.qa.History(c.Request().Context(), limit, offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, newHistoryResponse(sessions))
}

func (s *Server) handleSubmitFeedback(c echo.Context) error {
	var req FeedbackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	err := s.qa.SubmitFeedback(c.Request().Context(), &qa.Feedback{
		SessionID: req.SessionID,
		Question:  req.Question,
		Answer:    req.Answer,
		Rating:    req.Rating,
		Comment:   req.Comment,
		IsHelpful: req.IsHelpful,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Feedback submitted successfully"})
}

func (s *Server) handleFeedbackHistory(c echo.Context) error {
	limit, offset := pagination(c)
	rows, err := s.qa.FeedbackHistory(c.Request().Context(), limit, offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, newFeedbackListResponse(rows))
}

func (s *Server) handleDeleteFeedback(c echo.Context) error {
	if err := s.qa.DeleteFeedback(c.Request().Context(), c.Param("session_id")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Feedback deleted successfully"})
}

// pagination reads limit/offset query parameters. Missing or malformed
// values fall back to the service defaults.
func pagination(c echo.Context) (limit, offset int) {
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil {
		limit = v
	}
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil {
		offset = v
	}
	return limit, offset
}
