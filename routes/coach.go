package routes

import (
	"net/http"

	"essaycoach/controllers"
	"essaycoach/internal/ratelimit"
	"essaycoach/middlewares"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterDeps collects what the router wires into handlers and middlewares.
type RouterDeps struct {
	Coach        controllers.Coach
	Limiter      ratelimit.Limiter
	Logger       *zap.Logger
	JWTSecret    string
	AuthRequired bool
}

// NewRouter builds the gin engine serving the coach endpoints.
func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), middlewares.RequestLogger(logger), middlewares.CORS())
	router.SetTrustedProxies(nil)
	router.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := router.Group("/")
	auth.Use(middlewares.AuthMiddleware(deps.JWTSecret, deps.AuthRequired))
	SetupCoachRoutes(auth, controllers.NewCoachController(deps.Coach, logger, deps.JWTSecret != ""), deps.Limiter, logger)

	return router
}

// SetupCoachRoutes registers the analysis endpoints on rg.
func SetupCoachRoutes(rg *gin.RouterGroup, cc *controllers.CoachController, limiter ratelimit.Limiter, logger *zap.Logger) {
	limited := rg.Group("/")
	limited.Use(middlewares.RateLimit(limiter, logger))
	{
		limited.POST("/ai-coach", cc.AnalyzeEssay)
		limited.POST("/functions/v1/ai-coach", cc.AnalyzeEssay)
	}
	rg.GET("/coach/analyses", cc.ListAnalyses)
}
