package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dgarridom/preorders-api/config"
	"github.com/dgarridom/preorders-api/models"
	"github.com/dgarridom/preorders-api/services"
	"github.com/dgarridom/preorders-api/utils"
)

// ListProducts handles GET /api/v1/products - aggregates item quantities by
// exact name across every order.
func ListProducts(c *gin.Context) {
	db := config.GetDB()

	var items []models.OrderItem
	if err := db.Find(&items).Error; err != nil {
		utils.Logger().Error("failed to fetch order items", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    models.AggregateProducts(items),
	})
}

// GroupProductsRequest represents the optional request body for AI grouping
type GroupProductsRequest struct {
	SearchQuery string `json:"searchQuery"`
}

// GroupProducts handles POST /api/v1/products/ai-group - groups the
// aggregated product list through the text-completion service, or runs a
// semantic search over it when a query is supplied.
func GroupProducts(c *gin.Context) {
	db := config.GetDB()

	// The body is optional; a missing or malformed body means plain grouping.
	var req GroupProductsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.SearchQuery = ""
	}

	var items []models.OrderItem
	if err := db.Find(&items).Error; err != nil {
		utils.Logger().Error("failed to fetch order items", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch products")
		return
	}
	products := models.AggregateProducts(items)

	if req.SearchQuery != "" {
		searchProducts(c, products, req.SearchQuery)
		return
	}

	if len(products) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    []services.GroupedProduct{},
			"grouped": true,
		})
		return
	}

	cache := services.GetGroupCache()
	if cached, ok := cache.Get(c.Request.Context()); ok {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    cached,
			"grouped": true,
			"cached":  true,
		})
		return
	}

	groups, err := services.GetGroupingService().GroupProducts(c.Request.Context(), products)
	if err != nil {
		if errors.Is(err, services.ErrUnparseableResponse) {
			// Degrade to the ungrouped list rather than failing the request.
			utils.Logger().Warn("grouping response unparseable, returning ungrouped products", zap.Error(err))
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"data":    products,
				"grouped": false,
			})
			return
		}
		utils.Logger().Error("grouping service failed", zap.Error(err))
		respondError(c, http.StatusBadGateway, "AI_SERVICE_ERROR", "Product grouping service is unavailable")
		return
	}

	cache.Set(c.Request.Context(), groups)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    groups,
		"grouped": true,
	})
}

func searchProducts(c *gin.Context, products []models.ProductCount, query string) {
	if len(products) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": services.SearchResult{
				SearchQuery:   query,
				SearchResults: []models.ProductCount{},
			},
		})
		return
	}

	result, err := services.GetGroupingService().SearchProducts(c.Request.Context(), query, products)
	if err != nil {
		if errors.Is(err, services.ErrUnparseableResponse) {
			utils.Logger().Warn("search response unparseable, returning empty result", zap.Error(err))
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"data": services.SearchResult{
					SearchQuery:   query,
					SearchResults: []models.ProductCount{},
				},
			})
			return
		}
		utils.Logger().Error("product search failed", zap.Error(err))
		respondError(c, http.StatusBadGateway, "AI_SERVICE_ERROR", "Product search service is unavailable")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
