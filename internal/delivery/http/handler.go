package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/metrics"
	"github.com/pricelens/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	imports   *usecase.ImportService
	matcher   *usecase.MatcherService
	recs      *usecase.RecommendationService
	lifecycle *usecase.LifecycleService
	metrics   *metrics.Registry
}

// NewHandler creates a new HTTP handler
func NewHandler(
	imports *usecase.ImportService,
	matcher *usecase.MatcherService,
	recs *usecase.RecommendationService,
	lifecycle *usecase.LifecycleService,
	reg *metrics.Registry,
) *Handler {
	return &Handler{
		imports:   imports,
		matcher:   matcher,
		recs:      recs,
		lifecycle: lifecycle,
		metrics:   reg,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pricelens-backend",
		"version": "1.0.0",
	})
}

// importRequest is the payload for a catalog CSV import.
type importRequest struct {
	CSV     string            `json:"csv" binding:"required"`
	Columns map[string]string `json:"columns,omitempty"`
}

// ImportCatalog handles catalog CSV import requests
func (h *Handler) ImportCatalog(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "csv field is required"})
		return
	}

	result, err := h.imports.ImportCSV(c.Request.Context(), req.CSV, req.Columns)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.metrics.ImportsTotal.Inc()
	h.metrics.ImportRowsTotal.Add(float64(result.Report.Imported))
	h.metrics.ImportWarningsTotal.Add(float64(result.Report.WarningCount))

	c.JSON(http.StatusOK, result)
}

// matchRequest is a scraped listings feed for one store.
type matchRequest struct {
	Listings []domain.RawListing `json:"listings" binding:"required"`
}

// RunMatch matches a store's listings feed against the catalog
func (h *Handler) RunMatch(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "listings field is required"})
		return
	}

	result, err := h.matcher.RunForStore(c.Request.Context(), c.Param("storeId"), req.Listings)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.metrics.MatchRunsTotal.Inc()
	h.metrics.MatchesCreatedTotal.Add(float64(result.Report.Created))
	h.metrics.MatchesUpdatedTotal.Add(float64(result.Report.Updated))

	c.JSON(http.StatusOK, result)
}

// RunRecommendations computes recommendations for a store
func (h *Handler) RunRecommendations(c *gin.Context) {
	result, err := h.recs.RunForStore(c.Request.Context(), c.Param("storeId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.metrics.AggregationRunsTotal.Inc()
	h.metrics.RecommendationsTotal.Add(float64(result.Report.Emitted))

	c.JSON(http.StatusOK, result)
}

// ListMatches returns a store's persisted matches
func (h *Handler) ListMatches(c *gin.Context) {
	matches, err := h.matcher.ListForStore(c.Request.Context(), c.Param("storeId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// ListRecommendations returns a store's persisted recommendations
func (h *Handler) ListRecommendations(c *gin.Context) {
	recs, err := h.recs.ListForStore(c.Request.Context(), c.Param("storeId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}

// MatchAction routes match lifecycle actions (confirm/reject/reset)
func (h *Handler) MatchAction(c *gin.Context) {
	id := c.Param("id")

	var (
		m   *domain.Match
		err error
	)
	switch action := c.Param("action"); action {
	case "confirm":
		m, err = h.lifecycle.ConfirmMatch(c.Request.Context(), id)
	case "reject":
		m, err = h.lifecycle.RejectMatch(c.Request.Context(), id)
	case "reset":
		m, err = h.lifecycle.ResetMatch(c.Request.Context(), id)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown action: " + action})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

// RecommendationAction routes recommendation lifecycle actions (apply/dismiss/reset)
func (h *Handler) RecommendationAction(c *gin.Context) {
	id := c.Param("id")

	var (
		r   *domain.ProductRecommendation
		err error
	)
	switch action := c.Param("action"); action {
	case "apply":
		r, err = h.lifecycle.ApplyRecommendation(c.Request.Context(), id)
		if err == nil {
			h.metrics.PricesAppliedTotal.Inc()
		}
	case "dismiss":
		r, err = h.lifecycle.DismissRecommendation(c.Request.Context(), id)
	case "reset":
		r, err = h.lifecycle.ResetRecommendation(c.Request.Context(), id)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown action: " + action})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, r)
}

// respondError maps domain errors to HTTP statuses.
func (h *Handler) respondError(c *gin.Context, err error) {
	var missing *domain.MissingFieldsError
	switch {
	case errors.As(err, &missing):
		c.JSON(http.StatusBadRequest, gin.H{"error": missing.Error(), "missing": missing.Fields})
	case errors.Is(err, domain.ErrEmptyInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrMatchNotFound),
		errors.Is(err, domain.ErrRecommendationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
