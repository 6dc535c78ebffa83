// Package order holds the read-only view of a paid order that the deduction
// pipeline consumes. Orders are owned by the ordering service; once their
// payment status is paid neither the order nor its lines change.
package order

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cafe/backend/internal/domain/shared"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// PaymentStatus is the payment state of an order
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// ErrMalformedOrder is returned for order data that can never be deducted,
// such as an order without lines. Retrying cannot fix it.
var ErrMalformedOrder = shared.NewDomainError("MALFORMED_ORDER", "Order data is structurally invalid")

// Line is one menu item entry of an order
type Line struct {
	MenuItemID     uuid.UUID         `json:"menu_item_id" validate:"required"`
	Quantity       int               `json:"quantity" validate:"gt=0,lte=1000"`
	Customizations map[string]string `json:"customizations,omitempty" validate:"omitempty,dive,keys,required,endkeys,required"`
}

// Customization returns the selected value for an option, matched
// case-insensitively on both name and value.
func (l Line) Customization(option string) (string, bool) {
	for k, v := range l.Customizations {
		if strings.EqualFold(strings.TrimSpace(k), strings.TrimSpace(option)) {
			return strings.ToLower(strings.TrimSpace(v)), true
		}
	}
	return "", false
}

// CustomizationKey renders the customization map deterministically for logs
func (l Line) CustomizationKey() string {
	if len(l.Customizations) == 0 {
		return ""
	}
	keys := make([]string, 0, len(l.Customizations))
	for k := range l.Customizations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + l.Customizations[k]
	}
	return strings.Join(parts, ",")
}

// Order is the immutable paid order handed to the deduction pipeline
type Order struct {
	ID            uuid.UUID     `json:"order_id"`
	OrderedAt     time.Time     `json:"ordered_at"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Lines         []Line        `json:"lines"`
}

// IsPaid returns true once payment has been captured
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

// Validate checks the order identity and every line
func (o *Order) Validate() error {
	if o.ID == uuid.Nil {
		return fmt.Errorf("%w: order id is empty", ErrMalformedOrder)
	}
	return ValidateLines(o.Lines)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateLines rejects an empty line list and any line that fails validation
func ValidateLines(lines []Line) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: order has no lines", ErrMalformedOrder)
	}
	for i, line := range lines {
		if line.MenuItemID == uuid.Nil {
			return fmt.Errorf("%w: line %d has no menu item", ErrMalformedOrder, i)
		}
		if err := validate.Struct(line); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				return fmt.Errorf("%w: line %d field %s failed %q", ErrMalformedOrder, i, verrs[0].Field(), verrs[0].Tag())
			}
			return fmt.Errorf("%w: line %d: %v", ErrMalformedOrder, i, err)
		}
	}
	return nil
}

// DecodeLines parses order lines from JSON. Only the canonical field names are
// accepted; payloads using other spellings are rejected rather than guessed at.
func DecodeLines(raw []byte) ([]Line, error) {
	lines, err := decodeLines(raw)
	if err != nil {
		return nil, err
	}
	if err := ValidateLines(lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func decodeLines(raw []byte) ([]Line, error) {
	var lines []Line
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&lines); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOrder, err)
	}
	return lines, nil
}

// ParseOrder decodes an order document such as a payment confirmation.
// Fields outside the order are ignored, but lines must use the canonical
// field names. The order is not validated; check IsPaid and Validate.
func ParseOrder(raw []byte) (*Order, error) {
	var doc struct {
		ID            uuid.UUID       `json:"order_id"`
		OrderedAt     time.Time       `json:"ordered_at"`
		PaymentStatus PaymentStatus   `json:"payment_status"`
		Lines         json.RawMessage `json:"lines"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOrder, err)
	}

	o := &Order{ID: doc.ID, OrderedAt: doc.OrderedAt, PaymentStatus: doc.PaymentStatus}
	if len(doc.Lines) > 0 {
		lines, err := decodeLines(doc.Lines)
		if err != nil {
			return nil, err
		}
		o.Lines = lines
	}
	return o, nil
}

// EncodeLines serializes lines for durable storage
func EncodeLines(lines []Line) ([]byte, error) {
	return json.Marshal(lines)
}
