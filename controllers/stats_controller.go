package controllers

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dgarridom/preorders-api/config"
	"github.com/dgarridom/preorders-api/models"
	"github.com/dgarridom/preorders-api/utils"
)

// GetStats handles GET /api/v1/stats - aggregate counters across all orders.
func GetStats(c *gin.Context) {
	db := config.GetDB()

	var orders []models.Order
	if err := db.Find(&orders).Error; err != nil {
		utils.Logger().Error("failed to fetch orders", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch stats")
		return
	}

	stats := gin.H{
		"total_orders":     len(orders),
		"pending_orders":   0,
		"arrived_orders":   0,
		"delivered_orders": 0,
		"delivery_orders":  0,
		"onsite_orders":    0,
	}

	waitSum := 0
	waitCount := 0
	for _, order := range orders {
		switch order.Status {
		case models.StatusPending:
			stats["pending_orders"] = stats["pending_orders"].(int) + 1
		case models.StatusArrived:
			stats["arrived_orders"] = stats["arrived_orders"].(int) + 1
		case models.StatusDelivered:
			stats["delivered_orders"] = stats["delivered_orders"].(int) + 1
		}
		switch order.DeliveryType {
		case models.DeliveryDelivery:
			stats["delivery_orders"] = stats["delivery_orders"].(int) + 1
		case models.DeliveryOnSite:
			stats["onsite_orders"] = stats["onsite_orders"].(int) + 1
		}
		if order.WaitTime != nil {
			waitSum += *order.WaitTime
			waitCount++
		}
	}

	if waitCount > 0 {
		stats["avg_wait_time"] = int(math.Round(float64(waitSum) / float64(waitCount)))
	} else {
		stats["avg_wait_time"] = nil
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}
