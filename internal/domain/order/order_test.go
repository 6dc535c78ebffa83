package order

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLines(t *testing.T) {
	menuItem := uuid.New()

	tests := []struct {
		name    string
		lines   []Line
		wantErr bool
	}{
		{name: "valid single line", lines: []Line{{MenuItemID: menuItem, Quantity: 2}}},
		{name: "valid with customization", lines: []Line{{MenuItemID: menuItem, Quantity: 1, Customizations: map[string]string{"size": "large"}}}},
		{name: "no lines", lines: nil, wantErr: true},
		{name: "missing menu item", lines: []Line{{Quantity: 1}}, wantErr: true},
		{name: "zero quantity", lines: []Line{{MenuItemID: menuItem, Quantity: 0}}, wantErr: true},
		{name: "negative quantity", lines: []Line{{MenuItemID: menuItem, Quantity: -3}}, wantErr: true},
		{name: "empty customization value", lines: []Line{{MenuItemID: menuItem, Quantity: 1, Customizations: map[string]string{"size": ""}}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLines(tt.lines)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedOrder))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDecodeLines(t *testing.T) {
	menuItem := uuid.New()

	t.Run("decodes canonical payload", func(t *testing.T) {
		raw := []byte(`[{"menu_item_id":"` + menuItem.String() + `","quantity":2,"customizations":{"size":"large"}}]`)

		lines, err := DecodeLines(raw)
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, menuItem, lines[0].MenuItemID)
		assert.Equal(t, 2, lines[0].Quantity)
		assert.Equal(t, "large", lines[0].Customizations["size"])
	})

	t.Run("rejects alternate key spelling", func(t *testing.T) {
		raw := []byte(`[{"menuItemId":"` + menuItem.String() + `","quantity":2}]`)

		_, err := DecodeLines(raw)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMalformedOrder))
	})

	t.Run("rejects non-array payload", func(t *testing.T) {
		_, err := DecodeLines([]byte(`{"items":[]}`))
		assert.True(t, errors.Is(err, ErrMalformedOrder))
	})

	t.Run("rejects empty array", func(t *testing.T) {
		_, err := DecodeLines([]byte(`[]`))
		assert.True(t, errors.Is(err, ErrMalformedOrder))
	})

	t.Run("round trips through EncodeLines", func(t *testing.T) {
		in := []Line{{MenuItemID: menuItem, Quantity: 3, Customizations: map[string]string{"milk": "oat"}}}
		raw, err := EncodeLines(in)
		require.NoError(t, err)

		out, err := DecodeLines(raw)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})
}

func TestLine_Customization(t *testing.T) {
	line := Line{MenuItemID: uuid.New(), Quantity: 1, Customizations: map[string]string{"Size": " Large ", "milk": "oat"}}

	v, ok := line.Customization("size")
	assert.True(t, ok)
	assert.Equal(t, "large", v)

	_, ok = line.Customization("syrup")
	assert.False(t, ok)

	assert.Equal(t, "Size= Large ,milk=oat", line.CustomizationKey())
}

func TestOrder_Validate(t *testing.T) {
	o := &Order{PaymentStatus: PaymentStatusPaid, Lines: []Line{{MenuItemID: uuid.New(), Quantity: 1}}}
	assert.True(t, o.IsPaid())
	assert.True(t, errors.Is(o.Validate(), ErrMalformedOrder))

	o.ID = uuid.New()
	assert.NoError(t, o.Validate())
}

func TestOrder_IsPaid(t *testing.T) {
	for status, paid := range map[PaymentStatus]bool{
		PaymentStatusPaid:     true,
		PaymentStatusUnpaid:   false,
		PaymentStatusRefunded: false,
		"":                    false,
		"PAID":                false,
	} {
		o := &Order{PaymentStatus: status}
		assert.Equal(t, paid, o.IsPaid(), "status %q", status)
	}
}

func TestParseOrder(t *testing.T) {
	orderID, menuItem := uuid.New(), uuid.New()

	t.Run("decodes a payment confirmation", func(t *testing.T) {
		raw := []byte(`{"order_id":"` + orderID.String() + `","ordered_at":"2026-05-04T08:00:00Z","payment_status":"paid",` +
			`"channel":"kiosk","lines":[{"menu_item_id":"` + menuItem.String() + `","quantity":2}]}`)

		o, err := ParseOrder(raw)
		require.NoError(t, err)
		assert.Equal(t, orderID, o.ID)
		assert.True(t, o.IsPaid())
		assert.Equal(t, 2026, o.OrderedAt.Year())
		require.Len(t, o.Lines, 1)
		assert.Equal(t, menuItem, o.Lines[0].MenuItemID)
		assert.NoError(t, o.Validate())
	})

	t.Run("missing lines are left for Validate", func(t *testing.T) {
		o, err := ParseOrder([]byte(`{"order_id":"` + orderID.String() + `","payment_status":"paid"}`))
		require.NoError(t, err)
		assert.Empty(t, o.Lines)
		assert.True(t, errors.Is(o.Validate(), ErrMalformedOrder))
	})

	t.Run("rejects alternate line spelling", func(t *testing.T) {
		_, err := ParseOrder([]byte(`{"order_id":"` + orderID.String() + `","lines":[{"menuItemId":"` + menuItem.String() + `","quantity":1}]}`))
		assert.True(t, errors.Is(err, ErrMalformedOrder))
	})

	t.Run("rejects invalid json", func(t *testing.T) {
		_, err := ParseOrder([]byte(`{"order_id":`))
		assert.True(t, errors.Is(err, ErrMalformedOrder))
	})
}
