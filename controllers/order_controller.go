package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dgarridom/preorders-api/config"
	"github.com/dgarridom/preorders-api/models"
	"github.com/dgarridom/preorders-api/services"
	"github.com/dgarridom/preorders-api/utils"
)

// respondError writes the standard error envelope
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// findOrder resolves an order addressed by surrogate id or display number.
// A gorm.ErrRecordNotFound comes back untouched so callers can 404 on it.
func findOrder(db *gorm.DB, idOrNumber string, withItems bool) (*models.Order, error) {
	query := utils.ParseOrderRef(idOrNumber).Scope(db)
	if withItems {
		query = query.Preload("Items")
	}

	var order models.Order
	if err := query.First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// OrderItemInput is one line item as supplied by the client.
type OrderItemInput struct {
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
	IsDelivered bool   `json:"isDelivered"`
}

// CreateOrderRequest represents the request body for creating an order
type CreateOrderRequest struct {
	CustomerName     string           `json:"customerName"`
	Items            []OrderItemInput `json:"items"`
	EstimatedArrival *string          `json:"estimatedArrival"`
	DeliveryType     string           `json:"deliveryType"`
	Address          *string          `json:"address"`
	TotalAmount      *float64         `json:"totalAmount"`
	AmountPaid       *float64         `json:"amountPaid"`
}

// keepNamedItems drops items whose name is blank after trimming.
func keepNamedItems(inputs []OrderItemInput) []OrderItemInput {
	kept := make([]OrderItemInput, 0, len(inputs))
	for _, item := range inputs {
		item.Name = strings.TrimSpace(item.Name)
		if item.Name != "" {
			kept = append(kept, item)
		}
	}
	return kept
}

// ListOrders handles GET /api/v1/orders - all orders, newest first
func ListOrders(c *gin.Context) {
	db := config.GetDB()

	var orders []models.Order
	if err := db.Preload("Items").Order("created_at DESC").Find(&orders).Error; err != nil {
		utils.Logger().Error("failed to list orders", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch orders")
		return
	}

	responses := make([]models.OrderResponse, 0, len(orders))
	for i := range orders {
		responses = append(responses, orders[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    responses,
	})
}

// CreateOrder handles POST /api/v1/orders - creates an order with its items
func CreateOrder(c *gin.Context) {
	db := config.GetDB()

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	req.CustomerName = strings.TrimSpace(req.CustomerName)
	items := keepNamedItems(req.Items)

	if req.CustomerName == "" || len(items) == 0 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Customer name and at least one item are required")
		return
	}
	for _, item := range items {
		if item.Quantity < 1 {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Item quantity must be a positive integer")
			return
		}
	}

	deliveryType := req.DeliveryType
	if deliveryType == "" {
		deliveryType = models.DeliveryOnSite
	}
	if deliveryType != models.DeliveryOnSite && deliveryType != models.DeliveryDelivery {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Delivery type must be on-site or delivery")
		return
	}

	// Address goes with delivery orders only
	var address *string
	if deliveryType == models.DeliveryDelivery {
		if req.Address == nil || strings.TrimSpace(*req.Address) == "" {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Address is required for delivery orders")
			return
		}
		address = req.Address
	}

	var totalAmount, amountPaid float64
	if req.TotalAmount != nil {
		totalAmount = *req.TotalAmount
	}
	if req.AmountPaid != nil {
		amountPaid = *req.AmountPaid
	}
	if totalAmount < 0 || amountPaid < 0 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Amounts must not be negative")
		return
	}

	orderNumber, err := generateOrderNumber(db)
	if err != nil {
		utils.Logger().Error("failed to generate order number", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create order")
		return
	}

	order := models.Order{
		OrderNumber:      orderNumber,
		CustomerName:     req.CustomerName,
		Status:           models.StatusPending,
		EstimatedArrival: req.EstimatedArrival,
		DeliveryType:     deliveryType,
		Address:          address,
		TotalAmount:      totalAmount,
		AmountPaid:       amountPaid,
	}
	if err := db.Create(&order).Error; err != nil {
		utils.Logger().Error("failed to create order", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create order")
		return
	}

	orderItems := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		orderItems = append(orderItems, models.OrderItem{
			OrderID:  order.ID,
			Name:     item.Name,
			Quantity: item.Quantity,
		})
	}
	if err := db.Create(&orderItems).Error; err != nil {
		// Compensate: an order must never exist without items
		if delErr := db.Delete(&order).Error; delErr != nil {
			utils.Logger().Error("failed to roll back order after item insert failure", zap.Error(delErr))
		}
		utils.Logger().Error("failed to create order items", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create order items")
		return
	}

	services.GetGroupCache().Invalidate(c.Request.Context())

	created, err := findOrder(db, order.ID, true)
	if err != nil {
		utils.Logger().Error("failed to load created order", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load order details")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    created.ToResponse(),
	})
}

// GetOrder handles GET /api/v1/orders/:id - single order by id or order number
func GetOrder(c *gin.Context) {
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

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order.ToResponse(),
	})
}

// UpdateOrderRequest is a sparse field map; absent fields are left untouched,
// present fields fully replace the stored value.
type UpdateOrderRequest struct {
	CustomerName     *string           `json:"customerName"`
	EstimatedArrival *string           `json:"estimatedArrival"`
	Status           *string           `json:"status"`
	DeliveryType     *string           `json:"deliveryType"`
	Address          *string           `json:"address"`
	ArrivedAt        *int64            `json:"arrivedAt"` // epoch milliseconds
	WaitTime         *int              `json:"waitTime"`
	TotalAmount      *float64          `json:"totalAmount"`
	AmountPaid       *float64          `json:"amountPaid"`
	Items            *[]OrderItemInput `json:"items"`
}

// UpdateOrder handles PATCH /api/v1/orders/:id - generic unguarded edit.
// Unlike the named transition endpoints this does not enforce the lifecycle
// ordering; it intentionally lets callers set any field, status included.
func UpdateOrder(c *gin.Context) {
	db := config.GetDB()

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

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	updates := map[string]interface{}{}
	if req.CustomerName != nil {
		updates["customer_name"] = *req.CustomerName
	}
	if req.EstimatedArrival != nil {
		updates["estimated_arrival"] = *req.EstimatedArrival
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.DeliveryType != nil {
		updates["delivery_type"] = *req.DeliveryType
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.ArrivedAt != nil {
		updates["arrived_at"] = time.UnixMilli(*req.ArrivedAt)
	}
	if req.WaitTime != nil {
		updates["wait_time"] = *req.WaitTime
	}
	if req.TotalAmount != nil {
		updates["total_amount"] = *req.TotalAmount
	}
	if req.AmountPaid != nil {
		updates["amount_paid"] = *req.AmountPaid
	}

	if len(updates) > 0 {
		if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
			utils.Logger().Error("failed to update order", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update order")
			return
		}
	}

	// A supplied items collection replaces the whole set. Delivery flags on
	// prior items are lost unless the caller re-supplies them; that is the
	// documented contract, not an oversight.
	if req.Items != nil {
		if err := db.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			utils.Logger().Error("failed to replace order items", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update order items")
			return
		}

		items := keepNamedItems(*req.Items)
		if len(items) > 0 {
			orderItems := make([]models.OrderItem, 0, len(items))
			for _, item := range items {
				orderItems = append(orderItems, models.OrderItem{
					OrderID:     order.ID,
					Name:        item.Name,
					Quantity:    item.Quantity,
					IsDelivered: item.IsDelivered,
				})
			}
			if err := db.Create(&orderItems).Error; err != nil {
				utils.Logger().Error("failed to insert replacement items", zap.Error(err))
				respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update order items")
				return
			}
		}

		services.GetGroupCache().Invalidate(c.Request.Context())
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

// DeleteOrder handles DELETE /api/v1/orders/:id - permanent, cascades to items
func DeleteOrder(c *gin.Context) {
	db := config.GetDB()

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

	// Items first, so they can never outlive their order
	if err := db.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
		utils.Logger().Error("failed to delete order items", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete order")
		return
	}
	if err := db.Delete(order).Error; err != nil {
		utils.Logger().Error("failed to delete order", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete order")
		return
	}

	services.GetGroupCache().Invalidate(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{"success": true})
}
