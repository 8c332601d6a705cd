package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record contains the fields recovered from an invoice. Every field is
// optional: an empty string or a nil pointer means "not found".
type Record struct {
	LastName    string `json:"last_name,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	Address     string `json:"address,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	OrderNumber string `json:"order_number,omitempty"`

	ProductReference string `json:"product_reference,omitempty"`
	ProductModel     string `json:"product_model,omitempty"`
	ProductBrand     string `json:"product_brand,omitempty"`

	FrameColor  string `json:"frame_color,omitempty"`
	FabricColor string `json:"fabric_color,omitempty"`
	Motor       string `json:"motor,omitempty"`
	WindSensor  *bool  `json:"wind_sensor,omitempty"`

	UnitPrice    *decimal.Decimal `json:"unit_price,omitempty"`
	VAT          *decimal.Decimal `json:"vat,omitempty"`
	Shipping     *decimal.Decimal `json:"shipping,omitempty"`
	Total        *decimal.Decimal `json:"total,omitempty"`
	PurchaseDate *time.Time       `json:"purchase_date,omitempty"`
}

// HasName reports whether a first or last name was found
func (r Record) HasName() bool {
	return r.LastName != "" || r.FirstName != ""
}

// Fill copies the fields of o that are still empty in r. Fields already set
// in r are never overwritten.
func (r *Record) Fill(o Record) {
	fillString(&r.LastName, o.LastName)
	fillString(&r.FirstName, o.FirstName)
	fillString(&r.Address, o.Address)
	fillString(&r.Email, o.Email)
	fillString(&r.Phone, o.Phone)
	fillString(&r.OrderNumber, o.OrderNumber)
	fillString(&r.ProductReference, o.ProductReference)
	fillString(&r.ProductModel, o.ProductModel)
	fillString(&r.ProductBrand, o.ProductBrand)
	fillString(&r.FrameColor, o.FrameColor)
	fillString(&r.FabricColor, o.FabricColor)
	fillString(&r.Motor, o.Motor)
	fillPtr(&r.WindSensor, o.WindSensor)
	fillPtr(&r.UnitPrice, o.UnitPrice)
	fillPtr(&r.VAT, o.VAT)
	fillPtr(&r.Shipping, o.Shipping)
	fillPtr(&r.Total, o.Total)
	fillPtr(&r.PurchaseDate, o.PurchaseDate)
}

func fillString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func fillPtr[T any](dst **T, v *T) {
	if *dst == nil {
		*dst = v
	}
}

func boolPtr(v bool) *bool {
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}
