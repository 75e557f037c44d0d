package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/tudogo/functions/internal/domain/errors"
	"github.com/tudogo/functions/internal/domain/order"
	"github.com/tudogo/functions/internal/domain/payment"
	"github.com/tudogo/functions/internal/domain/receipt"
	"github.com/tudogo/functions/internal/testutil"
)

type receiptFixture struct {
	*fixture
	svc     *ReceiptService
	order   *order.Order
	payment *payment.Payment
}

func setupReceiptService(t *testing.T, verifyToken bool) *receiptFixture {
	t.Helper()
	f := newFixture(t)
	svc := NewReceiptService(f.store.Orders(), f.store.Payments(), f.qr, ReceiptSettings{
		TTL:         24 * time.Hour,
		VerifyToken: verifyToken,
	}, f.metrics, f.logger).WithClock(f.clock.Now)

	o := testutil.NewTestOrder(uuid.New(), "64.90", testutil.FixedTime.Add(-2*time.Hour))
	p := testutil.NewApprovedPayment(o.ID, "64.90", testutil.FixedTime.Add(-time.Hour))
	f.store.AddOrder(o)
	f.store.AddPayment(p)

	return &receiptFixture{fixture: f, svc: svc, order: o, payment: p}
}

func (r *receiptFixture) issue(t *testing.T) *receipt.Receipt {
	t.Helper()
	resp, err := r.svc.Issue(context.Background(), IssueReceiptRequest{OrderID: r.order.ID, UserID: r.order.UserID})
	require.NoError(t, err)
	return resp.Receipt
}

func presented(rc *receipt.Receipt) receipt.Presented {
	return receipt.Presented{
		OrderID:   rc.OrderID,
		UserID:    rc.UserID,
		Timestamp: rc.Timestamp,
		Token:     rc.Token,
	}
}

func TestIssueReceipt_Success(t *testing.T) {
	r := setupReceiptService(t, false)

	resp, err := r.svc.Issue(context.Background(), IssueReceiptRequest{OrderID: r.order.ID, UserID: r.order.UserID})
	require.NoError(t, err)

	rc := resp.Receipt
	assert.Equal(t, r.order.ID, rc.OrderID)
	assert.Equal(t, r.order.UserID, rc.UserID)
	assert.Equal(t, r.payment.ID, rc.PaymentID)
	assert.True(t, r.order.Total.Equal(rc.Total))
	assert.Equal(t, "2025-03-14T12:00:00.000Z", rc.Timestamp)
	assert.Equal(t, receipt.Token(r.order.ID, r.order.UserID, rc.Timestamp), rc.Token)
	assert.Equal(t, testutil.FixedTime.Add(24*time.Hour), resp.ExpiresAt)
	assert.True(t, strings.HasPrefix(resp.QRCodeURL, "https://qr.test/?size=200x200&data="))
	assert.Equal(t, 1.0, promtest.ToFloat64(r.metrics.ReceiptsIssuedTotal))
}

func TestIssueReceipt_UsesLatestApprovedPayment(t *testing.T) {
	r := setupReceiptService(t, false)
	later := testutil.NewApprovedPayment(r.order.ID, "64.90", testutil.FixedTime.Add(-time.Minute))
	r.store.AddPayment(later)

	rc := r.issue(t)

	assert.Equal(t, later.ID, rc.PaymentID)
}

func TestIssueReceipt_OrderNotOwned(t *testing.T) {
	r := setupReceiptService(t, false)

	_, err := r.svc.Issue(context.Background(), IssueReceiptRequest{OrderID: r.order.ID, UserID: uuid.New()})

	var de *domainErrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "Order not found or does not belong to user", de.Message)
	assert.ErrorIs(t, err, domainErrors.ErrOrderNotFound)
}

func TestIssueReceipt_PaymentNotApproved(t *testing.T) {
	f := newFixture(t)
	svc := NewReceiptService(f.store.Orders(), f.store.Payments(), f.qr, ReceiptSettings{}, nil, f.logger)
	o := testutil.NewTestOrder(uuid.New(), "10.00", testutil.FixedTime)
	f.store.AddOrder(o)
	f.store.AddPayment(testutil.NewTestPayment(o.ID, "10.00", payment.StatusPending, testutil.FixedTime))
	f.store.AddPayment(testutil.NewTestPayment(o.ID, "10.00", payment.StatusRefused, testutil.FixedTime))

	_, err := svc.Issue(context.Background(), IssueReceiptRequest{OrderID: o.ID, UserID: o.UserID})

	var de *domainErrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "Payment not found or not approved", de.Message)
	assert.ErrorIs(t, err, domainErrors.ErrPaymentNotApproved)
}

func TestIssueReceipt_StoreFailure(t *testing.T) {
	r := setupReceiptService(t, false)
	r.store.Payments().GetApprovedForOrderFunc = func(ctx context.Context, orderID uuid.UUID) (*payment.Payment, error) {
		return nil, errors.New("deadlock detected")
	}

	_, err := r.svc.Issue(context.Background(), IssueReceiptRequest{OrderID: r.order.ID, UserID: r.order.UserID})

	var se *domainErrors.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "deadlock detected", se.Details())
}

func TestVerifyReceipt_Valid(t *testing.T) {
	r := setupReceiptService(t, false)
	rc := r.issue(t)
	r.clock.Advance(3 * time.Hour)

	resp, err := r.svc.Verify(context.Background(), VerifyReceiptRequest{Receipt: presented(rc), StoreID: "store-1"})
	require.NoError(t, err)

	assert.Equal(t, r.order.ID, resp.Order.ID)
	assert.Equal(t, testutil.FixedTime.Add(3*time.Hour), resp.VerifiedAt)
	assert.Equal(t, 1.0, promtest.ToFloat64(r.metrics.ReceiptVerifications.WithLabelValues("valid")))
}

func TestVerifyReceipt_Expiry(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		expired bool
	}{
		{"just issued", 0, false},
		{"exactly the lifetime", 24 * time.Hour, false},
		{"one millisecond past the lifetime", 24*time.Hour + time.Millisecond, true},
		{"two days later", 48 * time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupReceiptService(t, false)
			rc := r.issue(t)
			r.clock.Advance(tt.elapsed)

			_, err := r.svc.Verify(context.Background(), VerifyReceiptRequest{Receipt: presented(rc), StoreID: "store-1"})

			if !tt.expired {
				assert.NoError(t, err)
				return
			}
			var de *domainErrors.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, "Receipt expired", de.Message)
			assert.ErrorIs(t, err, domainErrors.ErrReceiptExpired)
		})
	}
}

func TestVerifyReceipt_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *receipt.Presented, storeID *string)
		wantErr error
		wantMsg string
	}{
		{
			name:    "missing store",
			mutate:  func(p *receipt.Presented, storeID *string) { *storeID = "" },
			wantErr: nil,
			wantMsg: "Receipt data and store ID are required",
		},
		{
			name:    "different user",
			mutate:  func(p *receipt.Presented, storeID *string) { p.UserID = uuid.New() },
			wantErr: domainErrors.ErrOrderNotFound,
			wantMsg: "Order not found or invalid",
		},
		{
			name:    "unknown order",
			mutate:  func(p *receipt.Presented, storeID *string) { p.OrderID = uuid.New() },
			wantErr: domainErrors.ErrOrderNotFound,
			wantMsg: "Order not found or invalid",
		},
		{
			name:    "unparseable timestamp",
			mutate:  func(p *receipt.Presented, storeID *string) { p.Timestamp = "yesterday" },
			wantErr: nil,
			wantMsg: "must be an ISO-8601 timestamp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupReceiptService(t, false)
			p := presented(r.issue(t))
			storeID := "store-1"
			tt.mutate(&p, &storeID)

			_, err := r.svc.Verify(context.Background(), VerifyReceiptRequest{Receipt: p, StoreID: storeID})
			require.Error(t, err)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				var de *domainErrors.DomainError
				require.ErrorAs(t, err, &de)
				assert.Equal(t, tt.wantMsg, de.Message)
				return
			}
			var ve *domainErrors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantMsg, ve.Message)
		})
	}
}

func TestVerifyReceipt_PaymentNoLongerApproved(t *testing.T) {
	r := setupReceiptService(t, false)
	rc := r.issue(t)
	err := r.store.Payments().UpdateStatus(context.Background(), r.payment.ID, payment.StatusRefused, nil)
	require.NoError(t, err)

	_, err = r.svc.Verify(context.Background(), VerifyReceiptRequest{Receipt: presented(rc), StoreID: "store-1"})

	assert.ErrorIs(t, err, domainErrors.ErrPaymentNotApproved)
}

func TestVerifyReceipt_Token(t *testing.T) {
	t.Run("ignored by default", func(t *testing.T) {
		r := setupReceiptService(t, false)
		p := presented(r.issue(t))
		p.Token = "forged"

		_, err := r.svc.Verify(context.Background(), VerifyReceiptRequest{Receipt: p, StoreID: "store-1"})
		assert.NoError(t, err)
	})

	t.Run("checked when enabled", func(t *testing.T) {
		r := setupReceiptService(t, true)
		p := presented(r.issue(t))

		_, err := r.svc.Verify(context.Background(), VerifyReceiptRequest{Receipt: p, StoreID: "store-1"})
		require.NoError(t, err)

		p.Token = "forged"
		_, err = r.svc.Verify(context.Background(), VerifyReceiptRequest{Receipt: p, StoreID: "store-1"})
		assert.ErrorIs(t, err, domainErrors.ErrReceiptTokenMismatch)
		assert.Equal(t, 1.0, promtest.ToFloat64(r.metrics.ReceiptVerifications.WithLabelValues("token_mismatch")))
	})
}
