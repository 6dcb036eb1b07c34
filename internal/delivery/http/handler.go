package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/dupelens/backend/internal/domain"
	"github.com/dupelens/backend/internal/usecase"
	"github.com/gin-gonic/gin"
)

// ScanRunner runs scans and item backups for a scope
type ScanRunner interface {
	Scan(ctx context.Context, scopeID string) (*usecase.ScanResult, error)
	BackupItem(ctx context.Context, scopeID, itemID, reason, operation string) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	scans       ScanRunner
	store       domain.DuplicateRepository
	scanTimeout time.Duration
}

// NewHandler creates a new HTTP handler
func NewHandler(scans ScanRunner, store domain.DuplicateRepository, scanTimeout time.Duration) *Handler {
	return &Handler{
		scans:       scans,
		store:       store,
		scanTimeout: scanTimeout,
	}
}

// BackupRequest is the body of POST /scopes/:scopeID/backups
type BackupRequest struct {
	ItemID    string `json:"itemId" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
	Operation string `json:"operation" binding:"required"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "dupelens-backend",
		"version": "1.0.0",
	})
}

// RunScan fetches the scope's catalog, groups duplicates and persists them
func (h *Handler) RunScan(c *gin.Context) {
	if h.scans == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scan service not configured"})
		return
	}

	ctx := c.Request.Context()
	if h.scanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.scanTimeout)
		defer cancel()
	}

	result, err := h.scans.Scan(ctx, c.Param("scopeID"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListGroups returns the stored duplicate groups of a scope, optionally
// filtered by ?rule=
func (h *Handler) ListGroups(c *gin.Context) {
	var rule domain.Rule
	if raw := c.Query("rule"); raw != "" {
		parsed, err := domain.ParseRule(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown rule: " + raw})
			return
		}
		rule = parsed
	}

	groups, err := h.store.ListGroups(c.Request.Context(), c.Param("scopeID"), rule)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scopeId": c.Param("scopeID"),
		"rule":    rule,
		"count":   len(groups),
		"groups":  groups,
	})
}

// GetStats returns the scan statistics of a scope
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.store.GetStats(c.Request.Context(), c.Param("scopeID"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// CreateBackup snapshots an item of the last scan before a destructive action
func (h *Handler) CreateBackup(c *gin.Context) {
	if h.scans == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scan service not configured"})
		return
	}

	var req BackupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	scopeID := c.Param("scopeID")
	if err := h.scans.BackupItem(c.Request.Context(), scopeID, req.ItemID, req.Reason, req.Operation); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"scopeId":   scopeID,
		"itemId":    req.ItemID,
		"operation": req.Operation,
	})
}

// ListBackups returns the snapshots taken of an item
func (h *Handler) ListBackups(c *gin.Context) {
	backups, err := h.store.ListBackups(c.Request.Context(), c.Param("scopeID"), c.Param("itemID"))
	if err != nil {
		writeError(c, err)
		return
	}
	if backups == nil {
		backups = []domain.ItemBackup{}
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(backups),
		"backups": backups,
	})
}

// writeError maps domain errors to HTTP responses
func writeError(c *gin.Context, err error) {
	var ingestErr *domain.IngestionError

	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrCancelled):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Scan cancelled or timed out"})
	case errors.As(err, &ingestErr):
		log.Printf("[HTTP] Catalog ingestion failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Catalog source unavailable",
			"page":  ingestErr.Page,
		})
	default:
		log.Printf("[HTTP] Request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
