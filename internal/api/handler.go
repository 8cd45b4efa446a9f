package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/guttosm/capitolledger/internal/domain/dto"
	"github.com/guttosm/capitolledger/internal/domain/models"
	"github.com/guttosm/capitolledger/internal/service"
)

// Handler serves stored run reports and the manual review queue.
//
// Responsibilities:
//   - Validate incoming path and query parameters
//   - Call the report service
//   - Translate results into response DTOs with the right status codes
type Handler struct {
	svc service.ReportService
}

// NewHandler constructs a new Handler instance.
//
// Parameters:
//   - svc (service.ReportService): read-only access to runs and the review queue.
//
// Returns:
//   - *Handler: A handler ready to be registered with the router.
func NewHandler(svc service.ReportService) *Handler {
	return &Handler{svc: svc}
}

// GetLatestRun godoc
// @Summary      Latest ingestion run
// @Description  Returns the data-quality report of the most recent ingestion run and the unresolved ticker backlog
// @Tags         runs
// @Produce      json
// @Success      200  {object}  dto.RunResponse    "Success"
// @Failure      404  {object}  dto.ErrorResponse  "No runs recorded"
// @Failure      500  {object}  dto.ErrorResponse  "Internal Error"
// @Router       /api/v1/runs/latest [get]
func (h *Handler) GetLatestRun(c *gin.Context) {
	rep, err := h.svc.LatestRun(c.Request.Context())
	h.respondRun(c, rep, err)
}

// GetRun godoc
// @Summary      Ingestion run by id
// @Description  Returns the data-quality report of one ingestion run
// @Tags         runs
// @Produce      json
// @Param        id   path      string  true  "Run id (UUID)"
// @Success      200  {object}  dto.RunResponse    "Success"
// @Failure      400  {object}  dto.ErrorResponse  "Bad Request"
// @Failure      404  {object}  dto.ErrorResponse  "Not Found"
// @Failure      500  {object}  dto.ErrorResponse  "Internal Error"
// @Router       /api/v1/runs/{id} [get]
func (h *Handler) GetRun(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("run id must be a UUID", err))
		return
	}
	rep, err := h.svc.GetRun(c.Request.Context(), id)
	h.respondRun(c, rep, err)
}

func (h *Handler) respondRun(c *gin.Context, rep *models.DataQualityReport, err error) {
	switch {
	case errors.Is(err, service.ErrRunNotFound):
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("run not found", nil))
		return
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch run", err))
		return
	}

	backlog, err := h.svc.UnresolvedBacklog(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to count unresolved trades", err))
		return
	}
	c.JSON(http.StatusOK, dto.RunResponse{Report: *rep, UnresolvedBacklog: backlog})
}

// ListReview godoc
// @Summary      Manual review queue
// @Description  Lists rows routed to manual review, newest first, optionally for one run
// @Tags         review
// @Produce      json
// @Param        limit   query     int     false  "Max items (1..1000, default 100)"  example(50)
// @Param        run_id  query     string  false  "Restrict to one run (UUID)"
// @Success      200     {object}  dto.ReviewListResponse  "Success"
// @Failure      400     {object}  dto.ErrorResponse       "Bad Request"
// @Failure      500     {object}  dto.ErrorResponse       "Internal Error"
// @Router       /api/v1/review [get]
func (h *Handler) ListReview(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("limit must be a positive integer", err))
			return
		}
		limit = n
	}
	runID := strings.TrimSpace(c.Query("run_id"))
	if runID != "" {
		if _, err := uuid.Parse(runID); err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("run_id must be a UUID", err))
			return
		}
	}

	items, err := h.svc.ListReview(c.Request.Context(), runID, limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to list review items", err))
		return
	}
	if items == nil {
		items = []models.ManualReviewItem{}
	}
	c.JSON(http.StatusOK, dto.ReviewListResponse{RunID: runID, Count: len(items), Items: items})
}
