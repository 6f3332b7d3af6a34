package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/0xRichardL/narrative-pipeline/internal/domain"
	"github.com/0xRichardL/narrative-pipeline/internal/services"
	"github.com/0xRichardL/narrative-pipeline/internal/storage"
	"github.com/gin-gonic/gin"
)

const maxSentimentLimit = 100

type MarketReader interface {
	Stats(ctx context.Context) (services.MarketStats, error)
	SyncStatus(ctx context.Context) (services.SyncStatusReport, error)
	Quotes(ctx context.Context, assetType domain.AssetType) ([]domain.MarketDataEntry, error)
}

type SentimentReader interface {
	FindAssetBySymbol(ctx context.Context, symbol string) (domain.Asset, error)
	ListSentiment(ctx context.Context, assetID string, limit int) ([]domain.SentimentRecord, error)
}

type TickerSearcher interface {
	Search(ctx context.Context, query string) []domain.TickerMatch
}

// MarketController serves the public read side: market snapshot, sync
// status, cached quotes, sentiment history and ticker search.
type MarketController struct {
	market    MarketReader
	sentiment SentimentReader
	tickers   TickerSearcher
}

func NewMarketController(market MarketReader, sentiment SentimentReader, tickers TickerSearcher) *MarketController {
	return &MarketController{market: market, sentiment: sentiment, tickers: tickers}
}

func (c *MarketController) RegisterMarketRoutes(rg *gin.RouterGroup) {
	rg.GET("/market/stats", c.handleStats)
	rg.GET("/market/sync-status", c.handleSyncStatus)
	rg.GET("/market/quotes", c.handleQuotes)
	rg.GET("/assets/:symbol/sentiment", c.handleSentiment)
	rg.GET("/tickers/search", c.handleTickerSearch)
}

func (c *MarketController) handleStats(ctx *gin.Context) {
	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()
	stats, err := c.market.Stats(reqCtx)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, stats)
}

func (c *MarketController) handleSyncStatus(ctx *gin.Context) {
	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()
	status, err := c.market.SyncStatus(reqCtx)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, status)
}

func (c *MarketController) handleQuotes(ctx *gin.Context) {
	assetType := domain.AssetType(ctx.Query("type"))
	switch assetType {
	case "", domain.AssetTypeCrypto, domain.AssetTypeStock:
	default:
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "type must be crypto or stock"})
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()
	quotes, err := c.market.Quotes(reqCtx, assetType)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, quotes)
}

func (c *MarketController) handleSentiment(ctx *gin.Context) {
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	limit = min(limit, maxSentimentLimit)

	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()
	asset, err := c.sentiment.FindAssetBySymbol(reqCtx, ctx.Param("symbol"))
	if errors.Is(err, storage.ErrAssetNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	records, err := c.sentiment.ListSentiment(reqCtx, asset.ID, limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []domain.SentimentRecord{}
	}
	ctx.JSON(http.StatusOK, gin.H{"asset": asset, "sentiment": records})
}

func (c *MarketController) handleTickerSearch(ctx *gin.Context) {
	q := ctx.Query("q")
	if q == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	matches := c.tickers.Search(ctx.Request.Context(), q)
	if matches == nil {
		matches = []domain.TickerMatch{}
	}
	ctx.JSON(http.StatusOK, matches)
}
