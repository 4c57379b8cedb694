package acceptance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dgarridom/preorders-api/config"
	"github.com/dgarridom/preorders-api/controllers"
	"github.com/dgarridom/preorders-api/models"
	"github.com/dgarridom/preorders-api/services"
)

// PreorderAcceptanceTestSuite defines the acceptance test suite for the API
type PreorderAcceptanceTestSuite struct {
	suite.Suite
	server *httptest.Server
	db     *gorm.DB
}

// SetupSuite runs once before all tests
func (suite *PreorderAcceptanceTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)

	os.Setenv("GO_ENV", "test")
	os.Setenv("PORT", "8080")

	_, err := config.Load()
	suite.NoError(err)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.NoError(err)
	suite.db = db

	err = db.AutoMigrate(&models.Order{}, &models.OrderItem{})
	suite.NoError(err)

	config.SetDB(db)
	services.SetGroupCache(nil)
	services.NewMockGroupingService().SetAsMockForTesting()

	suite.server = httptest.NewServer(suite.createRouter())
}

// TearDownSuite runs once after all tests
func (suite *PreorderAcceptanceTestSuite) TearDownSuite() {
	suite.server.Close()
	if suite.db != nil {
		sqlDB, _ := suite.db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	}
}

// SetupTest runs before each test
func (suite *PreorderAcceptanceTestSuite) SetupTest() {
	suite.db.Exec("DELETE FROM order_items")
	suite.db.Exec("DELETE FROM orders")
}

// createRouter builds the full route table used in production
func (suite *PreorderAcceptanceTestSuite) createRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	{
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

// makeRequest is a helper to make HTTP requests
func (suite *PreorderAcceptanceTestSuite) makeRequest(method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	var bodyReader *bytes.Reader
	if body != nil {
		bodyJSON, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(bodyJSON)
	} else {
		bodyReader = bytes.NewReader([]byte{})
	}

	req, err := http.NewRequest(method, suite.server.URL+path, bodyReader)
	suite.NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	suite.NoError(err)

	var responseData map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&responseData)
	suite.NoError(err)
	resp.Body.Close()

	return resp, responseData
}

// TestCompletePreorderWorkflow_Acceptance walks one order through its entire life:
// created, customer arrives, items handed over one by one, paid, delivered.
func (suite *PreorderAcceptanceTestSuite) TestCompletePreorderWorkflow_Acceptance() {
	// Step 1: Take the pre-order over the phone
	createBody := map[string]interface{}{
		"customerName":     "Carolina Reyes",
		"estimatedArrival": "18:30",
		"totalAmount":      45.50,
		"items": []map[string]interface{}{
			{"name": "Torta de mil hojas", "quantity": 1},
			{"name": "Empanada de pino", "quantity": 12},
		},
	}

	resp, respData := suite.makeRequest("POST", "/api/v1/orders", createBody)
	assert.Equal(suite.T(), http.StatusCreated, resp.StatusCode)
	assert.True(suite.T(), respData["success"].(bool))

	orderData := respData["data"].(map[string]interface{})
	orderID := orderData["id"].(string)
	orderNumber := orderData["orderNumber"].(string)
	assert.Equal(suite.T(), "pending", orderData["status"])
	assert.Equal(suite.T(), "18:30", orderData["estimatedArrival"])
	assert.Equal(suite.T(), 45.50, orderData["totalAmount"])
	assert.Equal(suite.T(), float64(0), orderData["amountPaid"])

	// Step 2: Customer pays a deposit before arriving
	resp, respData = suite.makeRequest("POST", fmt.Sprintf("/api/v1/orders/%s/payment", orderID),
		map[string]interface{}{"amount": 20.0})
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), float64(20), respData["data"].(map[string]interface{})["amountPaid"])

	// Step 3: Customer walks in
	resp, respData = suite.makeRequest("POST", fmt.Sprintf("/api/v1/orders/%s/arrived", orderID), nil)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	arrivedData := respData["data"].(map[string]interface{})
	assert.Equal(suite.T(), "arrived", arrivedData["status"])
	assert.NotNil(suite.T(), arrivedData["arrivedAt"])

	// Step 4: Staff hands over the items
	resp, respData = suite.makeRequest("POST", fmt.Sprintf("/api/v1/orders/%s/items/delivered", orderID), nil)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Len(suite.T(), respData["updated"].([]interface{}), 2)

	items := respData["data"].(map[string]interface{})["items"].([]interface{})
	for _, raw := range items {
		assert.True(suite.T(), raw.(map[string]interface{})["isDelivered"].(bool))
	}

	// Step 5: Customer settles the balance
	resp, respData = suite.makeRequest("POST", fmt.Sprintf("/api/v1/orders/%s/payment/full", orderID), nil)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), 45.50, respData["data"].(map[string]interface{})["amountPaid"])

	// Step 6: The order leaves the counter
	resp, respData = suite.makeRequest("POST", fmt.Sprintf("/api/v1/orders/%s/delivered", orderID), nil)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	deliveredData := respData["data"].(map[string]interface{})
	assert.Equal(suite.T(), "delivered", deliveredData["status"])
	assert.NotNil(suite.T(), deliveredData["waitTime"])

	// Step 7: The order is still reachable by its display number
	resp, respData = suite.makeRequest("GET", "/api/v1/orders/"+url.PathEscape(orderNumber), nil)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "delivered", respData["data"].(map[string]interface{})["status"])

	// Step 8: The day's stats reflect the delivered order
	resp, respData = suite.makeRequest("GET", "/api/v1/stats", nil)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	stats := respData["data"].(map[string]interface{})
	assert.Equal(suite.T(), float64(1), stats["total_orders"])
	assert.Equal(suite.T(), float64(1), stats["delivered_orders"])
	assert.NotNil(suite.T(), stats["avg_wait_time"])
}

// TestKitchenPrepView_Acceptance tests the product aggregation across several orders
func (suite *PreorderAcceptanceTestSuite) TestKitchenPrepView_Acceptance() {
	orders := []map[string]interface{}{
		{
			"customerName": "Cliente A",
			"items": []map[string]interface{}{
				{"name": "Empanada de pino", "quantity": 6},
			},
		},
		{
			"customerName": "Cliente B",
			"items": []map[string]interface{}{
				{"name": "Empanada de pino", "quantity": 4},
				{"name": "Torta de chocolate", "quantity": 1},
			},
		},
	}
	for _, body := range orders {
		resp, _ := suite.makeRequest("POST", "/api/v1/orders", body)
		assert.Equal(suite.T(), http.StatusCreated, resp.StatusCode)
	}

	resp, respData := suite.makeRequest("GET", "/api/v1/products", nil)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	products := respData["data"].([]interface{})
	assert.Len(suite.T(), products, 2)
	top := products[0].(map[string]interface{})
	assert.Equal(suite.T(), "Empanada de pino", top["name"])
	assert.Equal(suite.T(), float64(10), top["quantity"])

	// And the grouped view over the same data
	resp, respData = suite.makeRequest("POST", "/api/v1/products/ai-group", nil)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), true, respData["grouped"])
	assert.Len(suite.T(), respData["data"].([]interface{}), 2)
}

// TestOrderEdit_Acceptance tests reworking an order before the customer arrives
func (suite *PreorderAcceptanceTestSuite) TestOrderEdit_Acceptance() {
	resp, respData := suite.makeRequest("POST", "/api/v1/orders", map[string]interface{}{
		"customerName": "Jorge Soto",
		"items": []map[string]interface{}{
			{"name": "Kuchen de nuez", "quantity": 1},
		},
	})
	assert.Equal(suite.T(), http.StatusCreated, resp.StatusCode)
	orderID := respData["data"].(map[string]interface{})["id"].(string)

	// Customer calls back: different name spelling, bigger order, now delivered to home
	resp, respData = suite.makeRequest("PATCH", "/api/v1/orders/"+orderID, map[string]interface{}{
		"customerName": "Jorge Soto Andrade",
		"deliveryType": "delivery",
		"address":      "Calle Los Aromos 55",
		"totalAmount":  30.0,
		"items": []map[string]interface{}{
			{"name": "Kuchen de nuez", "quantity": 2},
			{"name": "Pan amasado", "quantity": 10},
		},
	})
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	updated := respData["data"].(map[string]interface{})
	assert.Equal(suite.T(), "Jorge Soto Andrade", updated["customerName"])
	assert.Equal(suite.T(), "delivery", updated["deliveryType"])
	assert.Equal(suite.T(), "Calle Los Aromos 55", updated["address"])
	assert.Len(suite.T(), updated["items"].([]interface{}), 2)

	// And cancelled after all
	resp, respData = suite.makeRequest("DELETE", "/api/v1/orders/"+orderID, nil)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.True(suite.T(), respData["success"].(bool))

	resp, _ = suite.makeRequest("GET", "/api/v1/orders/"+orderID, nil)
	assert.Equal(suite.T(), http.StatusNotFound, resp.StatusCode)
}

// TestPreorderAcceptanceSuite runs the test suite
func TestPreorderAcceptanceSuite(t *testing.T) {
	suite.Run(t, new(PreorderAcceptanceTestSuite))
}
