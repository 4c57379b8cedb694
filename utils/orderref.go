package utils

import (
	"regexp"

	"gorm.io/gorm"
)

// Orders are addressable by two identifiers: the surrogate UUID assigned at
// creation and the human-facing display number (e.g. "#1234"). The two shapes
// never overlap, so the raw path parameter is sniffed once at the HTTP
// boundary and carried inward as an explicit OrderRef.

var uuidPattern = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// OrderRef addresses exactly one order, either by surrogate id or by display number.
type OrderRef struct {
	id     string
	number string
}

// ParseOrderRef classifies a raw identifier as a surrogate id or a display number.
func ParseOrderRef(raw string) OrderRef {
	if uuidPattern.MatchString(raw) {
		return OrderRef{id: raw}
	}
	return OrderRef{number: raw}
}

// ByID reports whether the reference carries a surrogate id.
func (r OrderRef) ByID() bool {
	return r.id != ""
}

// String returns the raw identifier the reference was built from.
func (r OrderRef) String() string {
	if r.ByID() {
		return r.id
	}
	return r.number
}

// Scope narrows an orders query to the referenced order.
func (r OrderRef) Scope(db *gorm.DB) *gorm.DB {
	if r.ByID() {
		return db.Where("id = ?", r.id)
	}
	return db.Where("order_number = ?", r.number)
}
