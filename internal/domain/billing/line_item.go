package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LineItem represents a single billable line on a quote or invoice
// It is a value object within the document aggregate, stored as JSONB
type LineItem struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// NewLineItem creates a line item, computing the line total from quantity and unit price
func NewLineItem(name, description string, quantity, unitPrice decimal.Decimal) (LineItem, error) {
	item := LineItem{
		Name:        name,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		LineTotal:   quantity.Mul(unitPrice).Round(2),
	}
	if err := item.Validate(); err != nil {
		return LineItem{}, err
	}
	return item, nil
}

// Validate checks the line item fields
func (li LineItem) Validate() error {
	if li.Name == "" {
		return shared.NewDomainError("INVALID_LINE_ITEM", "Line item name cannot be empty")
	}
	if li.Quantity.IsNegative() {
		return shared.NewDomainError("INVALID_LINE_ITEM", "Line item quantity cannot be negative")
	}
	if li.UnitPrice.IsNegative() {
		return shared.NewDomainError("INVALID_LINE_ITEM", "Line item unit price cannot be negative")
	}
	return nil
}

// LineItems is an ordered sequence of LineItem that implements GORM Scanner/Valuer for JSONB storage
type LineItems []LineItem

// Value implements driver.Valuer interface for GORM to store as JSONB
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (l *LineItems) Scan(value interface{}) error {
	if value == nil {
		*l = LineItems{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan LineItems: unsupported type")
	}

	if len(bytes) == 0 {
		*l = LineItems{}
		return nil
	}

	return json.Unmarshal(bytes, l)
}

// Validate checks all line items
func (l LineItems) Validate() error {
	for _, item := range l {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Total returns the sum of all line totals
func (l LineItems) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range l {
		total = total.Add(item.LineTotal)
	}
	return total
}
