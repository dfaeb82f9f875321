package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/rockwatch/internal/domain/evaluation"
	"github.com/yanqian/rockwatch/internal/domain/history"
	"github.com/yanqian/rockwatch/internal/domain/risk"
	"github.com/yanqian/rockwatch/internal/domain/site"
	"github.com/yanqian/rockwatch/internal/infra/report"
)

// ReportSource returns a stored PDF report for an assessment.
type ReportSource interface {
	Report(ctx context.Context, id string) ([]byte, error)
}

// AlertStream upgrades a request to a live alert stream.
type AlertStream interface {
	ServeWS(w http.ResponseWriter, r *http.Request) error
}

// Handler wires the HTTP transport to domain services.
type Handler struct {
	evaluator evaluation.Service
	history   history.Service
	registry  site.Registry
	reports   ReportSource
	stream    AlertStream
	logger    *slog.Logger
}

// NewHandler constructs the root HTTP handler. reports and stream may be nil.
func NewHandler(evaluator evaluation.Service, historySvc history.Service, registry site.Registry, reports ReportSource, stream AlertStream, logger *slog.Logger) *Handler {
	return &Handler{
		evaluator: evaluator,
		history:   historySvc,
		registry:  registry,
		reports:   reports,
		stream:    stream,
		logger:    logger.With("component", "http.handler"),
	}
}

type evaluateRequest struct {
	SiteID    string        `json:"siteId" binding:"required"`
	Readings  risk.Readings `json:"readings" binding:"required"`
	Languages []string      `json:"languages"`
}

type acknowledgeRequest struct {
	By string `json:"by"`
}

// Evaluate runs one evaluation cycle for the posted readings.
func (h *Handler) Evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	s, err := h.registry.Get(c.Request.Context(), req.SiteID)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	if len(req.Languages) > 0 {
		s.Languages = req.Languages
	}

	bundle, err := h.evaluator.Evaluate(c.Request.Context(), s, req.Readings)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	c.JSON(http.StatusOK, bundle)
}

// Sites lists the registered sites.
func (h *Handler) Sites(c *gin.Context) {
	sites, err := h.registry.List(c.Request.Context())
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"sites": sites})
}

// Latest returns the newest bundle for a site.
func (h *Handler) Latest(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.registry.Get(c.Request.Context(), id); err != nil {
		abortWithError(c, domainError(err))
		return
	}
	bundle, err := h.evaluator.Latest(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	c.JSON(http.StatusOK, bundle)
}

// History lists a site's past assessments, newest first.
func (h *Handler) History(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.registry.Get(c.Request.Context(), id); err != nil {
		abortWithError(c, domainError(err))
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer", err))
			return
		}
		limit = parsed
	}
	bundles, err := h.history.History(c.Request.Context(), id, limit)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"siteId": id, "assessments": bundles})
}

// Assessment returns one stored bundle.
func (h *Handler) Assessment(c *gin.Context) {
	bundle, err := h.history.Assessment(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	c.JSON(http.StatusOK, bundle)
}

// Report serves the PDF report, rendering it from history when it was not archived.
func (h *Handler) Report(c *gin.Context) {
	id := c.Param("id")
	if h.reports != nil {
		pdf, err := h.reports.Report(c.Request.Context(), id)
		if err == nil {
			h.writeReport(c, id, pdf)
			return
		}
		h.logger.Debug("archived report unavailable, rendering", "assessment_id", id, "error", err)
	}
	bundle, err := h.history.Assessment(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	pdf, err := report.BuildPDF(bundle)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "report_failed", "failed to render report", err))
		return
	}
	h.writeReport(c, id, pdf)
}

func (h *Handler) writeReport(c *gin.Context, id string, pdf []byte) {
	c.Header("Content-Disposition", `inline; filename="rockfall-`+id+`.pdf"`)
	c.Data(http.StatusOK, report.ContentType, pdf)
}

// Alerts lists alerts, optionally filtered by ?status=.
func (h *Handler) Alerts(c *gin.Context) {
	status := history.Status(strings.ToLower(c.Query("status")))
	switch status {
	case "", history.StatusActive, history.StatusAcknowledged, history.StatusResolved:
	default:
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "unknown alert status "+string(status), nil))
		return
	}
	alerts, err := h.history.Alerts(c.Request.Context(), status)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// AlertStats counts alerts by level and status.
func (h *Handler) AlertStats(c *gin.Context) {
	stats, err := h.history.Stats(c.Request.Context())
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Acknowledge marks an alert as seen. The token subject wins over the body.
func (h *Handler) Acknowledge(c *gin.Context) {
	var req acknowledgeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
			return
		}
	}
	by := strings.TrimSpace(req.By)
	if claims, ok := operatorFrom(c); ok {
		by = claims.Subject
	}
	if by == "" {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "acknowledging operator is required", nil))
		return
	}
	alert, err := h.history.Acknowledge(c.Request.Context(), c.Param("id"), by)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	c.JSON(http.StatusOK, alert)
}

// Resolve closes an alert.
func (h *Handler) Resolve(c *gin.Context) {
	alert, err := h.history.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	c.JSON(http.StatusOK, alert)
}

// StreamAlerts upgrades to the websocket alert stream.
func (h *Handler) StreamAlerts(c *gin.Context) {
	if h.stream == nil {
		abortWithError(c, NewHTTPError(http.StatusServiceUnavailable, "stream_unavailable", "alert stream is disabled", nil))
		return
	}
	if err := h.stream.ServeWS(c.Writer, c.Request); err != nil {
		// the upgrader has already written the failure response
		h.logger.Warn("websocket upgrade failed", "error", err)
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
