package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"PaperFeed/internal/domain"
	"PaperFeed/internal/usecase"
)

func (s *Server) nextRecommendation(c *gin.Context) {
	paper, err := s.svc.Selector.Next(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if paper == nil {
		respond(c, http.StatusOK, nil, "no recommendation available")
		return
	}
	respond(c, http.StatusOK, paper, "")
}

type feedbackRequest struct {
	PaperID int64  `json:"paper_id" binding:"required"`
	Action  string `json:"action" binding:"required"`
	Note    string `json:"note"`
}

func (s *Server) feedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	action, err := domain.ParseDisposition(req.Action)
	if err != nil {
		respondError(c, err)
		return
	}
	paper, err := s.svc.Feedback.Apply(c.Request.Context(), req.PaperID, action, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, paper, "feedback recorded")
}

func (s *Server) recommendationStatus(c *gin.Context) {
	progress, err := s.svc.Evaluation.Progress(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, progress, "")
}

func (s *Server) listPapers(c *gin.Context) {
	disposition, err := domain.ParseDisposition(c.Param("disposition"))
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := intQuery(c, "page", 1)
	if err != nil {
		respondError(c, err)
		return
	}
	perPage, err := intQuery(c, "per_page", 10)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := s.svc.Papers.ListByDisposition(c.Request.Context(), disposition, page, perPage)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"papers":   result.Papers,
		"total":    result.Total,
		"page":     result.Page,
		"per_page": result.PerPage,
		"pages":    result.Pages(),
	}, "")
}

// moveListedPaper handles remove (any list) and favorite (maybe-later only).
func (s *Server) moveListedPaper(c *gin.Context) {
	from, err := domain.ParseDisposition(c.Param("disposition"))
	if err != nil {
		respondError(c, err)
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid paper id")
		return
	}

	var target domain.Disposition
	switch c.Param("action") {
	case "remove":
		target = domain.DispositionNone
	case "favorite":
		if from != domain.DispositionMaybeLater {
			badRequest(c, "only maybe_later papers can be promoted to favorite")
			return
		}
		target = domain.DispositionFavorite
	default:
		respondError(c, fmt.Errorf("unknown list action %q: %w", c.Param("action"), domain.ErrNotFound))
		return
	}

	ctx := c.Request.Context()
	current, err := s.svc.Papers.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if current.Disposition != from {
		respondError(c, fmt.Errorf("paper %d is not in %s: %w", id, from, domain.ErrNotFound))
		return
	}

	paper, err := s.svc.Feedback.Apply(ctx, id, target, current.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, paper, "")
}

type ingestRequest struct {
	Categories []string `json:"categories"`
	From       string   `json:"from"`
	To         string   `json:"to"`
}

func (s *Server) ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid request body")
		return
	}

	from, err := parseDay(req.From)
	if err != nil {
		respondError(c, err)
		return
	}
	to, err := parseDay(req.To)
	if err != nil {
		respondError(c, err)
		return
	}

	stats, err := s.svc.Ingestor.Ingest(c.Request.Context(), usecase.IngestRequest{
		Categories: req.Categories,
		From:       from,
		To:         to,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats, fmt.Sprintf("%d new papers", stats.Inserted))
}

func (s *Server) evaluate(c *gin.Context) {
	progress, err := s.svc.Evaluation.Progress(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if progress.Running {
		respondError(c, domain.ErrRunInProgress)
		return
	}

	ctx := s.background
	go func() {
		if _, err := s.svc.Evaluation.Run(ctx); err != nil && !errors.Is(err, domain.ErrRunInProgress) {
			s.logger.Error("requested evaluation failed", "error", err)
		}
	}()
	respond(c, http.StatusAccepted, progress, "evaluation started")
}

func (s *Server) purge(c *gin.Context) {
	days, all := s.svc.RetentionDays, false
	switch raw := c.Query("days"); raw {
	case "":
	case "all":
		all = true
	default:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "days must be a non-negative integer or \"all\"")
			return
		}
		days = n
	}

	result, err := s.svc.Maintenance.Purge(c.Request.Context(), days, all)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result, fmt.Sprintf("%d papers deleted", result.Deleted))
}

func intQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidArgument, key)
	}
	return n, nil
}

func parseDay(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(domain.WatermarkLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", domain.ErrInvalidArgument, raw)
	}
	return t, nil
}
