package receipt

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tudogo/functions/internal/domain/errors"
	"github.com/tudogo/functions/internal/domain/order"
	"github.com/tudogo/functions/internal/domain/payment"
)

// TimestampLayout renders issuance times as millisecond-precision UTC ISO-8601.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// DefaultTTL is how long an issued receipt stays redeemable.
const DefaultTTL = 24 * time.Hour

// Receipt is an unpersisted proof of purchase presented at a store.
type Receipt struct {
	OrderID   uuid.UUID
	UserID    uuid.UUID
	Items     json.RawMessage
	Total     decimal.Decimal
	OrderDate time.Time
	PaymentID uuid.UUID
	Timestamp string
	Token     string
}

// Presented is the subset of a receipt a store sends back for verification.
type Presented struct {
	OrderID   uuid.UUID
	UserID    uuid.UUID
	Timestamp string
	Token     string
}

// Issue assembles a receipt for an order with an approved payment.
func Issue(o *order.Order, p *payment.Payment, now time.Time) *Receipt {
	ts := FormatTimestamp(now)
	return &Receipt{
		OrderID:   o.ID,
		UserID:    o.UserID,
		Items:     o.Items,
		Total:     o.Total,
		OrderDate: o.CreatedAt,
		PaymentID: p.ID,
		Timestamp: ts,
		Token:     Token(o.ID, o.UserID, ts),
	}
}

// Token encodes "<orderId>-<userId>-<timestamp>" with standard base64.
func Token(orderID, userID uuid.UUID, timestamp string) string {
	raw := orderID.String() + "-" + userID.String() + "-" + timestamp
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// FormatTimestamp renders t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp reads an issuance timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, errors.NewValidationError("timestamp", "must be an ISO-8601 timestamp")
	}
	return t, nil
}

// CheckFresh fails with ErrReceiptExpired when more than ttl has elapsed since issuedAt.
func CheckFresh(issuedAt, now time.Time, ttl time.Duration) error {
	if now.Sub(issuedAt) > ttl {
		return errors.ErrReceiptExpired
	}
	return nil
}

// CheckToken recomputes the verification token from the presented fields.
func (p *Presented) CheckToken() error {
	if Token(p.OrderID, p.UserID, p.Timestamp) != p.Token {
		return errors.ErrReceiptTokenMismatch
	}
	return nil
}

// Data is the JSON form of a receipt returned to the client and encoded in
// its QR code.
type Data struct {
	OrderID   uuid.UUID       `json:"orderId"`
	UserID    uuid.UUID       `json:"userId"`
	Items     json.RawMessage `json:"items"`
	Total     json.Number     `json:"total"`
	OrderDate time.Time       `json:"orderDate"`
	PaymentID uuid.UUID       `json:"paymentId"`
	Timestamp string          `json:"timestamp"`
	Token     string          `json:"token"`
}

// Data renders r for the wire.
func (r *Receipt) Data() Data {
	return Data{
		OrderID:   r.OrderID,
		UserID:    r.UserID,
		Items:     r.Items,
		Total:     json.Number(r.Total.String()),
		OrderDate: r.OrderDate,
		PaymentID: r.PaymentID,
		Timestamp: r.Timestamp,
		Token:     r.Token,
	}
}
