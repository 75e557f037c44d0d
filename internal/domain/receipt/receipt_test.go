package receipt_test

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/tudogo/functions/internal/domain/errors"
	"github.com/tudogo/functions/internal/domain/order"
	"github.com/tudogo/functions/internal/domain/payment"
	"github.com/tudogo/functions/internal/domain/receipt"
)

var issuedAt = time.Date(2026, 3, 1, 12, 30, 15, 123_000_000, time.UTC)

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "2026-03-01T12:30:15.123Z", receipt.FormatTimestamp(issuedAt))

	sp := time.FixedZone("BRT", -3*3600)
	assert.Equal(t, "2026-03-01T12:30:15.123Z", receipt.FormatTimestamp(issuedAt.In(sp)))
}

func TestParseTimestamp(t *testing.T) {
	got, err := receipt.ParseTimestamp("2026-03-01T12:30:15.123Z")
	require.NoError(t, err)
	assert.True(t, got.Equal(issuedAt))

	_, err = receipt.ParseTimestamp("yesterday")
	var ve *domainErrors.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestToken(t *testing.T) {
	orderID := uuid.MustParse("3f2a9c1e-7b44-4d1a-9e0f-1234567890ab")
	userID := uuid.MustParse("a1b2c3d4-0000-4000-8000-000000000001")

	tok := receipt.Token(orderID, userID, "2026-03-01T12:30:15.123Z")

	decoded, err := base64.StdEncoding.DecodeString(tok)
	require.NoError(t, err)
	assert.Equal(t, "3f2a9c1e-7b44-4d1a-9e0f-1234567890ab-a1b2c3d4-0000-4000-8000-000000000001-2026-03-01T12:30:15.123Z", string(decoded))
}

func TestIssue(t *testing.T) {
	o := &order.Order{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Items:     json.RawMessage(`[{"name":"Pizza","qty":1}]`),
		Total:     decimal.RequireFromString("49.90"),
		CreatedAt: issuedAt.Add(-time.Hour),
	}
	p := &payment.Payment{ID: uuid.New(), OrderID: o.ID, Status: payment.StatusApproved}

	r := receipt.Issue(o, p, issuedAt)

	assert.Equal(t, o.ID, r.OrderID)
	assert.Equal(t, o.UserID, r.UserID)
	assert.Equal(t, p.ID, r.PaymentID)
	assert.JSONEq(t, `[{"name":"Pizza","qty":1}]`, string(r.Items))
	assert.True(t, o.Total.Equal(r.Total))
	assert.Equal(t, o.CreatedAt, r.OrderDate)
	assert.Equal(t, "2026-03-01T12:30:15.123Z", r.Timestamp)
	assert.Equal(t, receipt.Token(o.ID, o.UserID, r.Timestamp), r.Token)
}

func TestCheckFresh(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		expired bool
	}{
		{"just issued", 0, false},
		{"one hour", time.Hour, false},
		{"exactly at ttl", 24 * time.Hour, false},
		{"past ttl", 24*time.Hour + time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := receipt.CheckFresh(issuedAt, issuedAt.Add(tt.elapsed), receipt.DefaultTTL)
			if tt.expired {
				assert.ErrorIs(t, err, domainErrors.ErrReceiptExpired)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPresented_CheckToken(t *testing.T) {
	p := receipt.Presented{
		OrderID:   uuid.New(),
		UserID:    uuid.New(),
		Timestamp: "2026-03-01T12:30:15.123Z",
	}
	p.Token = receipt.Token(p.OrderID, p.UserID, p.Timestamp)
	assert.NoError(t, p.CheckToken())

	p.Timestamp = "2026-03-02T12:30:15.123Z"
	assert.ErrorIs(t, p.CheckToken(), domainErrors.ErrReceiptTokenMismatch)
}

func TestReceipt_Data(t *testing.T) {
	o := &order.Order{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Items:     json.RawMessage(`[{"name":"Pizza"}]`),
		Total:     decimal.RequireFromString("50.5"),
		CreatedAt: issuedAt.Add(-time.Hour),
	}
	p := &payment.Payment{ID: uuid.New(), OrderID: o.ID}

	r := receipt.Issue(o, p, issuedAt)
	raw, err := json.Marshal(r.Data())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, o.ID.String(), decoded["orderId"])
	assert.Equal(t, p.ID.String(), decoded["paymentId"])
	assert.Equal(t, 50.5, decoded["total"])
	assert.Equal(t, "2026-03-01T12:30:15.123Z", decoded["timestamp"])
	assert.Equal(t, r.Token, decoded["token"])
}
