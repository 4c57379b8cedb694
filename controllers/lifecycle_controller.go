package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dgarridom/preorders-api/config"
	"github.com/dgarridom/preorders-api/models"
	"github.com/dgarridom/preorders-api/utils"
)

// MarkOrderArrived handles POST /api/v1/orders/:id/arrived - guarded
// pending -> arrived transition.
func MarkOrderArrived(c *gin.Context) {
	db := config.GetDB()

	order, err := findOrder(db, c.Param("id"), true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
			return
		}
		utils.Logger().Error("failed to fetch order", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch order")
		return
	}

	if err := order.MarkArrived(time.Now()); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_TRANSITION", "Order is not in pending status")
		return
	}

	updates := map[string]interface{}{
		"status":     order.Status,
		"arrived_at": order.ArrivedAt,
	}
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
		utils.Logger().Error("failed to mark order arrived", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order.ToResponse(),
	})
}

// MarkOrderDelivered handles POST /api/v1/orders/:id/delivered - guarded
// arrived -> delivered transition, fixing the wait time.
func MarkOrderDelivered(c *gin.Context) {
	db := config.GetDB()

	order, err := findOrder(db, c.Param("id"), true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
			return
		}
		utils.Logger().Error("failed to fetch order", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch order")
		return
	}

	if err := order.MarkDelivered(time.Now()); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_TRANSITION", "Order is not in arrived status")
		return
	}

	updates := map[string]interface{}{
		"status":    order.Status,
		"wait_time": order.WaitTime,
	}
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
		utils.Logger().Error("failed to mark order delivered", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order.ToResponse(),
	})
}

// AddPaymentRequest represents the request body for recording a payment
type AddPaymentRequest struct {
	Amount *float64 `json:"amount"`
}

// AddPayment handles POST /api/v1/orders/:id/payment - applies a payment on
// top of what has already been paid.
func AddPayment(c *gin.Context) {
	db := config.GetDB()

	var req AddPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount == nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Valid payment amount is required")
		return
	}

	order, err := findOrder(db, c.Param("id"), true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
			return
		}
		utils.Logger().Error("failed to fetch order", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch order")
		return
	}

	if err := order.AddPayment(*req.Amount); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Valid payment amount is required")
		return
	}

	// Read-modify-write: two concurrent payments against the same order can
	// lose one of the two amounts. Acceptable for a single till.
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Update("amount_paid", order.AmountPaid).Error; err != nil {
		utils.Logger().Error("failed to record payment", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to add payment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order.ToResponse(),
	})
}

// PayInFull handles POST /api/v1/orders/:id/payment/full - convenience that
// pays exactly the remaining balance.
func PayInFull(c *gin.Context) {
	db := config.GetDB()

	order, err := findOrder(db, c.Param("id"), true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
			return
		}
		utils.Logger().Error("failed to fetch order", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch order")
		return
	}

	remaining := order.RemainingBalance()
	if remaining <= 0 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "No outstanding balance to pay")
		return
	}

	if err := order.AddPayment(remaining); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Valid payment amount is required")
		return
	}
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Update("amount_paid", order.AmountPaid).Error; err != nil {
		utils.Logger().Error("failed to record payment", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to add payment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order.ToResponse(),
	})
}

// UpdateItemRequest represents the request body for toggling an item's delivery flag
type UpdateItemRequest struct {
	IsDelivered *bool `json:"isDelivered"`
}

// UpdateOrderItem handles PATCH /api/v1/orders/:id/items/:itemId - toggles
// one item's delivery flag. The item must belong to the addressed order.
func UpdateOrderItem(c *gin.Context) {
	db := config.GetDB()

	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsDelivered == nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "isDelivered must be a boolean")
		return
	}

	order, err := findOrder(db, c.Param("id"), false)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
			return
		}
		utils.Logger().Error("failed to fetch order", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch order")
		return
	}

	// Scoping by order id makes a cross-order item reference a NotFound,
	// never a write against someone else's order.
	var item models.OrderItem
	if err := db.Where("id = ? AND order_id = ?", c.Param("itemId"), order.ID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "ITEM_NOT_FOUND", "Item not found in this order")
			return
		}
		utils.Logger().Error("failed to fetch order item", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch item")
		return
	}

	if err := db.Model(&item).Update("is_delivered", *req.IsDelivered).Error; err != nil {
		utils.Logger().Error("failed to update order item", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update item")
		return
	}

	updated, err := findOrder(db, order.ID, true)
	if err != nil {
		utils.Logger().Error("failed to load updated order", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load order details")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    updated.ToResponse(),
	})
}

// MarkAllItemsDelivered handles POST /api/v1/orders/:id/items/delivered -
// convenience that flags every undelivered item, one write per item.
// There is deliberately no transaction: a failure partway leaves the already
// updated items delivered, and the response reports both outcomes.
func MarkAllItemsDelivered(c *gin.Context) {
	db := config.GetDB()

	order, err := findOrder(db, c.Param("id"), true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
			return
		}
		utils.Logger().Error("failed to fetch order", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch order")
		return
	}

	updated := []string{}
	failed := []string{}
	for _, item := range order.Items {
		if item.IsDelivered {
			continue
		}
		err := db.Model(&models.OrderItem{}).Where("id = ?", item.ID).Update("is_delivered", true).Error
		if err != nil {
			utils.Logger().Error("failed to mark item delivered",
				zap.String("itemId", item.ID), zap.Error(err))
			failed = append(failed, item.ID)
			continue
		}
		updated = append(updated, item.ID)
	}

	reloaded, err := findOrder(db, order.ID, true)
	if err != nil {
		utils.Logger().Error("failed to load updated order", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load order details")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    reloaded.ToResponse(),
		"updated": updated,
		"failed":  failed,
	})
}
