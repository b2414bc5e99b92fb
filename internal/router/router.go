package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/stemsi/testcenter/internal/config"
	"github.com/stemsi/testcenter/internal/handler"
	"github.com/stemsi/testcenter/internal/middleware"
	"github.com/stemsi/testcenter/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	TestCenter *handler.TestCenterHandler
	WS         *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background helpers such as the rate limiter sweeper.
func SetupRouter(
	ctx context.Context,
	newCandidate middleware.CandidateFactory,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli())

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	requireCandidate := middleware.RequireCandidate(newCandidate)

	// Start and submit hit the backend; 30 per minute per candidate is far
	// above what a person taking a test produces.
	backendLimiter := middleware.NewRateLimiter(ctx, 30, time.Minute)

	// ─── 1. Candidate Group (Bearer token forwarded to the backend) ────
	candidateAPI := router.Group("/api/v1/candidate")
	candidateAPI.Use(requireCandidate, middleware.NoStore())
	{
		candidateAPI.GET("/tests", handlers.TestCenter.ListTests)
		candidateAPI.GET("/tests/results", handlers.TestCenter.ListResults)
		candidateAPI.POST("/tests/:assignment_id/start", backendLimiter.Middleware(), handlers.TestCenter.StartTest)

		candidateAPI.GET("/session", handlers.TestCenter.GetSession)
		candidateAPI.DELETE("/session", handlers.TestCenter.CancelSession)
		candidateAPI.PUT("/session/answers", handlers.TestCenter.SaveAnswer)
		candidateAPI.POST("/session/next", handlers.TestCenter.Next)
		candidateAPI.POST("/session/previous", handlers.TestCenter.Previous)
		candidateAPI.POST("/session/goto", handlers.TestCenter.GoTo)
		candidateAPI.POST("/session/pause", handlers.TestCenter.Pause)
		candidateAPI.POST("/session/resume", handlers.TestCenter.Resume)
		candidateAPI.POST("/session/submit", backendLimiter.Middleware(), handlers.TestCenter.Submit)
	}

	// ─── 2. WebSocket Group (token via ?token=) ────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(requireCandidate)
	{
		ws.GET("/candidate/session/stream", handlers.WS.SessionStream)
	}

	return router
}
