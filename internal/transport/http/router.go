package handlers

import (
	"time"

	"coursemarket/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	AllowedOrigins []string
	CheckoutLimit  int
	CheckoutWindow time.Duration
}

func NewRouter(cfg RouterConfig, purchaseHandler *PurchaseHandler, progressHandler *ProgressHandler, limiter *middleware.RateLimiter, tokens middleware.TokenValidator) *gin.Engine {
	if cfg.CheckoutLimit <= 0 {
		cfg.CheckoutLimit = 10
	}
	if cfg.CheckoutWindow <= 0 {
		cfg.CheckoutWindow = time.Minute
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:5173"}
	}

	r := gin.Default()

	config := cors.DefaultConfig()
	config.AllowOrigins = cfg.AllowedOrigins
	config.AllowCredentials = true
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(config))

	auth := middleware.AuthMiddleware(tokens)

	api := r.Group("/api/v1")
	{
		// Authenticated by signature, not by token.
		api.POST("/webhook", purchaseHandler.Webhook)

		api.POST("/checkout", auth, limiter.Limit("checkout", cfg.CheckoutLimit, cfg.CheckoutWindow), purchaseHandler.Checkout)
		api.GET("/purchases", auth, purchaseHandler.ListPurchased)
		api.GET("/courses/:courseId/detail-with-status", auth, purchaseHandler.CourseDetailWithStatus)

		progress := api.Group("/progress")
		progress.Use(auth)
		{
			progress.GET("/:courseId", progressHandler.Get)
			progress.POST("/:courseId/lecture/:lectureId/view", progressHandler.ViewLecture)
			progress.POST("/:courseId/complete", progressHandler.MarkCompleted)
			progress.POST("/:courseId/incomplete", progressHandler.MarkIncomplete)
		}
	}

	return r
}
