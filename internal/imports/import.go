package imports

import (
	"time"

	"github.com/savstores/sav-invoices/internal/invoice"
)

// DefaultWarrantyYears is the warranty granted from the purchase date.
const DefaultWarrantyYears = 5

// Import is one uploaded invoice with the record extracted from it
type Import struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	ContentType string         `json:"content_type"`
	Template    string         `json:"template"`
	Fallback    bool           `json:"fallback"` // No customer was found, Record holds placeholders
	Record      invoice.Record `json:"record"`
	WarrantyEnd *time.Time     `json:"warranty_end,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// warrantyEnd returns purchase + years, or nil without a purchase date.
func warrantyEnd(purchase *time.Time, years int) *time.Time {
	if purchase == nil {
		return nil
	}
	end := purchase.AddDate(years, 0, 0)
	return &end
}
