package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mamadbah2/pharmacy/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(medicines *handlers.MedicineHandler, carts *handlers.CartHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))
	r.Use(metricsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", handlers.Recorder())

	api.GET("/medicines", medicines.List)
	api.GET("/medicines/search", medicines.Search)
	api.GET("/medicines/:id", medicines.Get)
	api.POST("/medicines", medicines.Create)
	api.PUT("/medicines/:id", medicines.Update)
	api.DELETE("/medicines/:id", medicines.Delete)
	api.PATCH("/medicines/:id/stock", medicines.UpdateStock)
	api.GET("/pharmacies/:id/medicines", medicines.ListByPharmacy)

	api.GET("/cart", carts.Get)
	api.DELETE("/cart", carts.Clear)
	api.POST("/cart/items", carts.AddItem)
	api.PATCH("/cart/items/:id", carts.AdjustItem)
	api.DELETE("/cart/items/:id", carts.RemoveItem)
	api.POST("/cart/checkout", carts.Checkout)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
