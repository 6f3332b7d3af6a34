package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/0xRichardL/narrative-pipeline/internal/domain"
	"github.com/gin-gonic/gin"
)

type MockSettings interface {
	Get(ctx context.Context) (domain.MockSettings, error)
	Set(ctx context.Context, update domain.MockSettingsUpdate) (domain.MockSettings, error)
}

type QueueInspector interface {
	Length(ctx context.Context) (int64, error)
	InFlight(ctx context.Context) ([]string, error)
	Complete(ctx context.Context, ticker string) error
}

type AssetWriter interface {
	UpsertAsset(ctx context.Context, symbol, name string) (domain.Asset, error)
}

// AdminController holds the operator endpoints: the mock toggle, queue
// inspection with manual release of stuck tickers, and asset registration.
type AdminController struct {
	settings MockSettings
	queue    QueueInspector
	assets   AssetWriter
}

func NewAdminController(settings MockSettings, queue QueueInspector, assets AssetWriter) *AdminController {
	return &AdminController{settings: settings, queue: queue, assets: assets}
}

func (c *AdminController) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/mock", c.handleGetMock)
	rg.PUT("/mock", c.handleSetMock)
	rg.GET("/queue", c.handleQueueStatus)
	rg.DELETE("/queue/:ticker", c.handleReleaseTicker)
	rg.POST("/assets", c.handleUpsertAsset)
}

func (c *AdminController) handleGetMock(ctx *gin.Context) {
	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()
	settings, err := c.settings.Get(reqCtx)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, settings)
}

func (c *AdminController) handleSetMock(ctx *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Enabled == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "enabled is required"})
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()
	settings, err := c.settings.Set(reqCtx, domain.MockSettingsUpdate{LLMMockEnabled: req.Enabled})
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, settings)
}

func (c *AdminController) handleQueueStatus(ctx *gin.Context) {
	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	length, err := c.queue.Length(reqCtx)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	inFlight, err := c.queue.InFlight(reqCtx)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"length": length, "inFlight": inFlight})
}

// handleReleaseTicker clears a leaked in-flight marker so the ticker can be
// seeded again.
func (c *AdminController) handleReleaseTicker(ctx *gin.Context) {
	ticker := ctx.Param("ticker")
	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()
	if err := c.queue.Complete(reqCtx, ticker); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *AdminController) handleUpsertAsset(ctx *gin.Context) {
	var req struct {
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.Symbol = strings.TrimSpace(req.Symbol)
	if req.Symbol == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	if req.Name == "" {
		req.Name = req.Symbol
	}

	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()
	asset, err := c.assets.UpsertAsset(reqCtx, req.Symbol, req.Name)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, asset)
}
