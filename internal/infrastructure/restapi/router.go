package restapi

import (
	"net/http"

	"balance_tracker/internal/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// SetupRouter настраивает и возвращает экземпляр Gin роутера.
func SetupRouter(portfolioHandler *PortfolioHandler, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler(gatherer)))

	// Группа для API v1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/portfolio", portfolioHandler.GetPortfolioHandler)
		v1.GET("/portfolio/chains", portfolioHandler.GetChainsHandler)
		v1.GET("/portfolio/history", portfolioHandler.GetHistoryHandler)
		v1.GET("/report", portfolioHandler.GetReportHandler)
	}

	return router
}
