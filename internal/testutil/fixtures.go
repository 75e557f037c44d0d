package testutil

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tudogo/functions/internal/domain/catalog"
	"github.com/tudogo/functions/internal/domain/order"
	"github.com/tudogo/functions/internal/domain/payment"
)

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at t.
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// FixedTime is the reference instant used across tests.
var FixedTime = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func NewTestOrder(userID uuid.UUID, total string, createdAt time.Time) *order.Order {
	return &order.Order{
		ID:        uuid.New(),
		UserID:    userID,
		Items:     json.RawMessage(`[{"productId":"p1","name":"Pizza","quantity":2,"price":25.00}]`),
		Total:     decimal.RequireFromString(total),
		Status:    order.StatusInPreparation,
		CreatedAt: createdAt,
	}
}

func NewTestPayment(orderID uuid.UUID, total string, status payment.PaymentStatus, at time.Time) *payment.Payment {
	return &payment.Payment{
		ID:          uuid.New(),
		OrderID:     orderID,
		Type:        payment.TypePix,
		Total:       decimal.RequireFromString(total),
		Status:      status,
		GatewayID:   payment.GatewayIDFor(orderID),
		GatewayData: json.RawMessage(`{}`),
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func NewApprovedPayment(orderID uuid.UUID, total string, at time.Time) *payment.Payment {
	return NewTestPayment(orderID, total, payment.StatusApproved, at)
}

func NewTestProduct(name, price string) catalog.Product {
	return catalog.Product{
		ID:     uuid.New(),
		Name:   name,
		Active: true,
		Price:  decimal.RequireFromString(price),
	}
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string {
	return &s
}
