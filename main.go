package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dgarridom/preorders-api/config"
	"github.com/dgarridom/preorders-api/controllers"
	"github.com/dgarridom/preorders-api/middleware"
	"github.com/dgarridom/preorders-api/models"
	"github.com/dgarridom/preorders-api/services"
	"github.com/dgarridom/preorders-api/utils"
)

// setupRouter wires up middleware and all API routes. Split out from main so
// tests can run the real route table against an in-memory database.
func setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestLogger())
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)

		v1.GET("/orders", controllers.ListOrders)
		v1.POST("/orders", controllers.CreateOrder)
		v1.GET("/orders/:id", controllers.GetOrder)
		v1.PATCH("/orders/:id", controllers.UpdateOrder)
		v1.DELETE("/orders/:id", controllers.DeleteOrder)

		v1.POST("/orders/:id/arrived", controllers.MarkOrderArrived)
		v1.POST("/orders/:id/delivered", controllers.MarkOrderDelivered)
		v1.POST("/orders/:id/payment", controllers.AddPayment)
		v1.POST("/orders/:id/payment/full", controllers.PayInFull)
		v1.PATCH("/orders/:id/items/:itemId", controllers.UpdateOrderItem)
		v1.POST("/orders/:id/items/delivered", controllers.MarkAllItemsDelivered)

		v1.GET("/products", controllers.ListProducts)
		v1.POST("/products/ai-group", controllers.GroupProducts)

		v1.GET("/stats", controllers.GetStats)
	}

	return router
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	utils.InitLogger(cfg.GoEnv)
	defer utils.SyncLogger()
	logger := utils.Logger()

	logger.Info("Starting Preorders API server...")

	if err := config.ConnectDatabase(); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	db := config.GetDB()
	if err := db.AutoMigrate(&models.Order{}, &models.OrderItem{}); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database migration completed successfully")

	services.InitGroupingService()

	if cfg.RedisURL != "" {
		if _, err := services.InitGroupCache(cfg.RedisURL, cfg.GroupCacheTTL()); err != nil {
			// The cache is an optimization; the API works without it.
			logger.Warn("Redis unavailable, continuing without group cache", zap.Error(err))
		} else {
			logger.Info("Group cache connected", zap.String("url", cfg.RedisURL))
		}
	}

	router := setupRouter()

	addr := ":" + cfg.Port
	logger.Info("Server is running", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Preorders API is running",
	})
}
