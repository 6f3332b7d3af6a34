package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/0xRichardL/narrative-pipeline/internal/config"
	"github.com/gin-gonic/gin"
)

// Pinger is a dependency checked by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewServer builds the gin engine with recovery and a /health probe that
// pings every named dependency.
func NewServer(cfg config.Config, deps map[string]Pinger) (*gin.Engine, *http.Server) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{}
		status := http.StatusOK
		for name, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		body := gin.H{"status": "ok", "checks": checks}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		c.JSON(status, body)
	})
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}
	return r, srv
}

// Mount registers the controllers under /api. Cron and admin routes require
// the bearer secret; market reads are public.
func Mount(r *gin.Engine, secret string, cron *CronController, admin *AdminController, market *MarketController) {
	api := r.Group("/api")
	cron.RegisterCronRoutes(api.Group("/cron", RequireBearer(secret)))
	admin.RegisterAdminRoutes(api.Group("/admin", RequireBearer(secret)))
	market.RegisterMarketRoutes(api)
}
