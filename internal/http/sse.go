package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqad/internal/events"
)

const sseHeartbeat = 30 * time.Second

// handleDocumentEvents streams a document's processing events via
// Server-Sent Events. The stream closes when processing reaches a terminal
// event or the client disconnects.
//
//	event: progress
//	data: {"document_id":"...","event":"progress","stage":"embedding","percent":60,...}
func (s *Server) handleDocumentEvents(c echo.Context) error {
	id := c.Param("id")
	if _, err := s.docs.Get(c.Request().Context(), id); err != nil {
		return httpError(err)
	}

	stream, cancel, err := s.events.Subscribe(id)
	if err != nil {
		if errors.Is(err, events.ErrDisabled) {
			return echo.NewHTTPError(http.StatusNotFound, "event streaming is disabled")
		}
		return httpError(err)
	}
	defer cancel()

	h := c.Response().Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	// Heartbeats keep idle connections alive through proxies.
	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-stream:
			if !ok {
				return nil
			}
			data, err := json.Marshal(event)
			if err != nil {
				s.logger.Warn(c.Request().Context(), "encoding sse event", zap.Error(err))
				continue
			}
			fmt.Fprintf(c.Response(), "event: %s\n", event.Type)
			fmt.Fprintf(c.Response(), "data: %s\n\n", data)
			c.Response().Flush()

			if event.Type == events.EventCompleted || event.Type == events.EventFailed {
				return nil
			}

		case <-ticker.C:
			fmt.Fprintf(c.Response(), ": heartbeat\n\n")
			c.Response().Flush()

		case <-c.Request().Context().Done():
			return nil
		}
	}
}
