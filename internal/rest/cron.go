package rest

import (
	"context"
	"log"
	"net/http"

	"github.com/0xRichardL/narrative-pipeline/internal/services"
	"github.com/gin-gonic/gin"
)

type SeedRunner interface {
	Run(ctx context.Context) (services.SeedReport, error)
}

type WorkRunner interface {
	Run(ctx context.Context) (services.WorkerReport, error)
}

type SyncRunner interface {
	Run(ctx context.Context) (services.SyncReport, error)
}

// CronController exposes the pipeline jobs as authenticated triggers.
type CronController struct {
	seeder SeedRunner
	worker WorkRunner
	sync   SyncRunner
	logger *log.Logger
}

func NewCronController(seeder SeedRunner, worker WorkRunner, sync SyncRunner, logger *log.Logger) *CronController {
	return &CronController{seeder: seeder, worker: worker, sync: sync, logger: logger}
}

// RegisterCronRoutes mounts seed, work and sync under rg. Callers are
// expected to install RequireBearer on rg.
func (c *CronController) RegisterCronRoutes(rg *gin.RouterGroup) {
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rg.Handle(method, "/seed", c.handleSeed)
		rg.Handle(method, "/work", c.handleWork)
		rg.Handle(method, "/sync", c.handleSync)
	}
}

func (c *CronController) handleSeed(ctx *gin.Context) {
	report, err := c.seeder.Run(ctx.Request.Context())
	if err != nil {
		c.logger.Printf("seed failed: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	ctx.JSON(http.StatusOK, report)
}

func (c *CronController) handleWork(ctx *gin.Context) {
	report, err := c.worker.Run(ctx.Request.Context())
	if err != nil {
		c.logger.Printf("worker failed: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	ctx.JSON(http.StatusOK, report)
}

func (c *CronController) handleSync(ctx *gin.Context) {
	report, err := c.sync.Run(ctx.Request.Context())
	if err != nil {
		c.logger.Printf("market data sync failed: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Market data sync failed", "message": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, report)
}
