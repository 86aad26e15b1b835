package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/labstack/echo/v4"

	"github.com/vailabel/vailabel-studio-sub002/internal/usecase"
)

const wsWriteTimeout = 10 * time.Second

// StreamJobEvents upgrades to a websocket and pushes the job's events until
// it reaches COMPLETED or FAILED. The first message is the job as stored.
func (s *Server) StreamJobEvents(ctx echo.Context) error {
	if s.events == nil {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"error": "job events are not available"})
	}
	id, ok := s.bindJobID(ctx)
	if !ok {
		return nil
	}

	reqCtx, cancel := context.WithCancel(ctx.Request().Context())
	defer cancel()

	// subscribe before reading the job so no transition falls in between
	events, err := s.events.Subscribe(reqCtx, id)
	if err != nil {
		return errorJSON(ctx, err)
	}
	job, err := s.server.GetJobByID(reqCtx, id)
	if err != nil {
		return errorJSON(ctx, err)
	}

	conn, err := websocket.Accept(ctx.Response(), ctx.Request(), &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		// Accept has already written the response
		s.logger.WarnContext(reqCtx, "websocket accept failed", slog.Any("error", err))
		return nil
	}
	defer conn.CloseNow()

	// clients only listen; CloseRead handles their close frames
	wsCtx := conn.CloseRead(reqCtx)

	snapshot := usecase.JobEvent{
		JobID:     job.ID,
		Status:    job.Status,
		Error:     job.Error,
		Timestamp: job.UpdatedAt,
	}
	if err := writeEvent(wsCtx, conn, snapshot); err != nil {
		return nil
	}
	if isFinal(job.Status) {
		conn.Close(websocket.StatusNormalClosure, job.Status)
		return nil
	}

	for {
		select {
		case <-wsCtx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "event stream closed")
				return nil
			}
			if err := writeEvent(wsCtx, conn, ev); err != nil {
				s.logger.DebugContext(reqCtx, "websocket write failed",
					slog.String("job_id", id.String()), slog.Any("error", err))
				return nil
			}
			if isFinal(ev.Status) {
				conn.Close(websocket.StatusNormalClosure, ev.Status)
				return nil
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev usecase.JobEvent) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}

func isFinal(status string) bool {
	return status == usecase.JobStatusCompleted || status == usecase.JobStatusFailed
}
