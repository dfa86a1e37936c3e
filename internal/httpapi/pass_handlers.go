package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"horse.fit/newslink/internal/matching"
	"horse.fit/newslink/internal/runlock"
)

func (s *Server) handleIngest(c echo.Context) error {
	ctx, cancel := s.passContext(c)
	defer cancel()

	result, err := s.passes.RunIngest(ctx)
	if err != nil {
		return s.passFailure(c, "ingest", err)
	}
	return success(c, map[string]any{
		"results":     result.Sources,
		"started_at":  result.StartedAt,
		"finished_at": result.FinishedAt,
	})
}

func (s *Server) handleMatch(c echo.Context) error {
	ctx, cancel := s.passContext(c)
	defer cancel()

	result, err := s.passes.RunMatch(ctx)
	if err != nil {
		return s.passFailure(c, "match", err)
	}
	return success(c, matchFields(result))
}

func (s *Server) handleRun(c echo.Context) error {
	ctx, cancel := s.passContext(c)
	defer cancel()

	result, err := s.passes.RunAll(ctx)
	if err != nil {
		return s.passFailure(c, "run", err)
	}
	return success(c, map[string]any{
		"ingest":  map[string]any{"results": result.Ingest.Sources},
		"match":   matchFields(result.Match),
		"summary": result.Summary,
	})
}

// passContext detaches a pass from the request so a client disconnect does
// not abort a batch that has already started writing.
func (s *Server) passContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(c.Request().Context()), s.opts.PassTimeout)
}

func matchFields(result matching.Result) map[string]any {
	return map[string]any{
		"processed":     result.Processed,
		"failed":        result.Failed,
		"matches":       result.Matches,
		"notifications": result.Notifications,
	}
}

func (s *Server) passFailure(c echo.Context, pass string, err error) error {
	s.logger.Error().Err(err).Str("pass", pass).Msg("pass failed")

	switch {
	case errors.Is(err, runlock.ErrHeld):
		return fail(c, http.StatusConflict, "Pass already running", err.Error())
	case errors.Is(err, matching.ErrRosterUnavailable):
		return fail(c, http.StatusServiceUnavailable, "Entity roster unavailable", err.Error())
	default:
		return internalError(c, "Pass "+pass+" failed", err)
	}
}
