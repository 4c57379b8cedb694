package controllers

import (
	"errors"
	"fmt"
	"math/rand"

	"gorm.io/gorm"

	"github.com/dgarridom/preorders-api/models"
)

const orderNumberAttempts = 25

// generateOrderNumber picks a free "#NNNN" display number. The space is only
// 9000 numbers wide, so collisions are retried a bounded number of times
// rather than looping forever on a nearly full table.
func generateOrderNumber(db *gorm.DB) (string, error) {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		number := fmt.Sprintf("#%04d", 1000+rand.Intn(9000))

		var count int64
		if err := db.Model(&models.Order{}).Where("order_number = ?", number).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return number, nil
		}
	}
	return "", errors.New("could not find a free order number")
}
