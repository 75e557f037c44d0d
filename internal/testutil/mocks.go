package testutil

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tudogo/functions/internal/domain/catalog"
	domainErrors "github.com/tudogo/functions/internal/domain/errors"
	"github.com/tudogo/functions/internal/domain/notification"
	"github.com/tudogo/functions/internal/domain/order"
	"github.com/tudogo/functions/internal/domain/payment"
)

// Cart is the in-memory shape of a shopping cart row.
type Cart struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Status    string
	UpdatedAt time.Time
}

// MemoryStore keeps every table in memory and answers each repository
// interface with the same predicates the SQL uses. Repository views share
// its state so cross-table rules (unpaid orders, approved payments) hold.
type MemoryStore struct {
	mu            sync.Mutex
	clock         *Clock
	orders        map[uuid.UUID]*order.Order
	payments      []*payment.Payment
	notifications []*notification.Notification
	products      []catalog.Product
	carts         []*Cart

	orderRepo        *MockOrderRepository
	paymentRepo      *MockPaymentRepository
	notificationRepo *MockNotificationRepository
	catalogRepo      *MockCatalogRepository
	cartStore        *MockCartStore

	// WithTransactionFunc overrides WithTransaction when set.
	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

// NewMemoryStore creates an empty store reading time from clock.
func NewMemoryStore(clock *Clock) *MemoryStore {
	s := &MemoryStore{
		clock:  clock,
		orders: make(map[uuid.UUID]*order.Order),
	}
	s.orderRepo = &MockOrderRepository{store: s}
	s.paymentRepo = &MockPaymentRepository{store: s}
	s.notificationRepo = &MockNotificationRepository{store: s}
	s.catalogRepo = &MockCatalogRepository{store: s}
	s.cartStore = &MockCartStore{store: s}
	return s
}

func (s *MemoryStore) Orders() *MockOrderRepository               { return s.orderRepo }
func (s *MemoryStore) Payments() *MockPaymentRepository           { return s.paymentRepo }
func (s *MemoryStore) Notifications() *MockNotificationRepository { return s.notificationRepo }
func (s *MemoryStore) Catalog() *MockCatalogRepository            { return s.catalogRepo }
func (s *MemoryStore) Carts() *MockCartStore                      { return s.cartStore }

func (s *MemoryStore) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}

// AddOrder seeds an order.
func (s *MemoryStore) AddOrder(o *order.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

// AddPayment seeds a payment.
func (s *MemoryStore) AddPayment(p *payment.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = append(s.payments, p)
}

// AddNotification seeds a notification.
func (s *MemoryStore) AddNotification(n *notification.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
}

// AddProduct seeds a catalog product.
func (s *MemoryStore) AddProduct(p catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append(s.products, p)
}

// AddCart seeds a cart.
func (s *MemoryStore) AddCart(c *Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts = append(s.carts, c)
}

// Order returns a copy of the stored order, or nil.
func (s *MemoryStore) Order(id uuid.UUID) *order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil
	}
	cp := *o
	return &cp
}

// PaymentsFor returns copies of every payment attached to orderID.
func (s *MemoryStore) PaymentsFor(orderID uuid.UUID) []payment.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []payment.Payment
	for _, p := range s.payments {
		if p.OrderID == orderID {
			out = append(out, *p)
		}
	}
	return out
}

// NotificationsFor returns copies of the notifications addressed to userID.
func (s *MemoryStore) NotificationsFor(userID uuid.UUID) []notification.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notification.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out
}

// CartStatus returns the status of the cart with id, or "".
func (s *MemoryStore) CartStatus(id uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.carts {
		if c.ID == id {
			return c.Status
		}
	}
	return ""
}

type snapshot struct {
	orders        map[uuid.UUID]*order.Order
	payments      []*payment.Payment
	notifications []*notification.Notification
	carts         []*Cart
}

func (s *MemoryStore) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{orders: make(map[uuid.UUID]*order.Order, len(s.orders))}
	for id, o := range s.orders {
		cp := *o
		snap.orders[id] = &cp
	}
	for _, p := range s.payments {
		cp := *p
		snap.payments = append(snap.payments, &cp)
	}
	for _, n := range s.notifications {
		cp := *n
		snap.notifications = append(snap.notifications, &cp)
	}
	for _, c := range s.carts {
		cp := *c
		snap.carts = append(snap.carts, &cp)
	}
	return snap
}

func (s *MemoryStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = snap.orders
	s.payments = snap.payments
	s.notifications = snap.notifications
	s.carts = snap.carts
}

// WithTransaction runs fn and rolls every table back when fn fails.
func (s *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.WithTransactionFunc != nil {
		return s.WithTransactionFunc(ctx, fn)
	}
	snap := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// --- Order Repository Mock ---

// MockOrderRepository implements order.Repository over a MemoryStore.
type MockOrderRepository struct {
	store *MemoryStore

	GetByIDFunc        func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	GetByIDForUserFunc func(ctx context.Context, id, userID uuid.UUID) (*order.Order, error)
	CancelUnpaidFunc   func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	if o := m.store.Order(id); o != nil {
		return o, nil
	}
	return nil, domainErrors.ErrOrderNotFound
}

func (m *MockOrderRepository) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*order.Order, error) {
	if m.GetByIDForUserFunc != nil {
		return m.GetByIDForUserFunc(ctx, id, userID)
	}
	if o := m.store.Order(id); o != nil && o.OwnedBy(userID) {
		return o, nil
	}
	return nil, domainErrors.ErrOrderNotFound
}

func (m *MockOrderRepository) CancelUnpaid(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.CancelUnpaidFunc != nil {
		return m.CancelUnpaidFunc(ctx, cutoff)
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	approved := make(map[uuid.UUID]bool)
	for _, p := range s.payments {
		if p.IsApproved() {
			approved[p.OrderID] = true
		}
	}

	var n int64
	for _, o := range s.orders {
		if o.Status == order.StatusInPreparation && o.CreatedAt.Before(cutoff) && !approved[o.ID] {
			o.Status = order.StatusCancelled
			n++
		}
	}
	return n, nil
}

// --- Payment Repository Mock ---

// MockPaymentRepository implements payment.Repository over a MemoryStore.
type MockPaymentRepository struct {
	store *MemoryStore

	CreateFunc               func(ctx context.Context, p *payment.Payment) error
	GetLatestByGatewayIDFunc func(ctx context.Context, gatewayID string) (*payment.Payment, error)
	UpdateStatusFunc         func(ctx context.Context, id uuid.UUID, status payment.PaymentStatus, data json.RawMessage) error
	GetApprovedForOrderFunc  func(ctx context.Context, orderID uuid.UUID) (*payment.Payment, error)
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p)
	}
	cp := *p
	m.store.AddPayment(&cp)
	return nil
}

func (m *MockPaymentRepository) GetLatestByGatewayID(ctx context.Context, gatewayID string) (*payment.Payment, error) {
	if m.GetLatestByGatewayIDFunc != nil {
		return m.GetLatestByGatewayIDFunc(ctx, gatewayID)
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *payment.Payment
	for _, p := range s.payments {
		if p.GatewayID != gatewayID {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, domainErrors.ErrPaymentNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *MockPaymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status payment.PaymentStatus, data json.RawMessage) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status, data)
	}
	s := m.store
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.payments {
		if p.ID == id {
			p.Status = status
			p.GatewayData = data
			p.UpdatedAt = now
			return nil
		}
	}
	return domainErrors.ErrPaymentNotFound
}

func (m *MockPaymentRepository) GetApprovedForOrder(ctx context.Context, orderID uuid.UUID) (*payment.Payment, error) {
	if m.GetApprovedForOrderFunc != nil {
		return m.GetApprovedForOrderFunc(ctx, orderID)
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *payment.Payment
	for _, p := range s.payments {
		if p.OrderID != orderID || !p.IsApproved() {
			continue
		}
		if latest == nil || p.UpdatedAt.After(latest.UpdatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, domainErrors.ErrPaymentNotApproved
	}
	cp := *latest
	return &cp, nil
}

// --- Notification Repository Mock ---

// MockNotificationRepository implements notification.Repository over a MemoryStore.
type MockNotificationRepository struct {
	store *MemoryStore

	CreateFunc           func(ctx context.Context, n *notification.Notification) error
	DeleteReadBeforeFunc func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, n)
	}
	cp := *n
	m.store.AddNotification(&cp)
	return nil
}

func (m *MockNotificationRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.DeleteReadBeforeFunc != nil {
		return m.DeleteReadBeforeFunc(ctx, cutoff)
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.notifications)
	s.notifications = slices.DeleteFunc(s.notifications, func(n *notification.Notification) bool {
		return n.Read && n.SentAt.Before(cutoff)
	})
	return int64(before - len(s.notifications)), nil
}

// --- Catalog Repository Mock ---

// MockCatalogRepository implements catalog.Repository over a MemoryStore.
type MockCatalogRepository struct {
	store *MemoryStore

	SearchFunc func(ctx context.Context, f catalog.Filter) ([]catalog.Product, int64, error)
}

func (m *MockCatalogRepository) Search(ctx context.Context, f catalog.Filter) ([]catalog.Product, int64, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, f)
	}
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []catalog.Product
	for _, p := range s.products {
		if matchesFilter(p, f) {
			matched = append(matched, p)
		}
	}
	slices.SortFunc(matched, func(a, b catalog.Product) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	total := int64(len(matched))
	start := min(f.Offset(), len(matched))
	end := min(start+f.PageSize, len(matched))
	return slices.Clone(matched[start:end]), total, nil
}

func matchesFilter(p catalog.Product, f catalog.Filter) bool {
	if !p.Active {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		inName := strings.Contains(strings.ToLower(p.Name), q)
		inDesc := p.Description != nil && strings.Contains(strings.ToLower(*p.Description), q)
		if !inName && !inDesc {
			return false
		}
	}
	if f.Type != "" && (p.Type == nil || *p.Type != f.Type) {
		return false
	}
	if f.Category != "" && (p.Category == nil || *p.Category != f.Category) {
		return false
	}
	if !sameID(p.RestaurantID, f.RestaurantID) || !sameID(p.MarketID, f.MarketID) || !sameID(p.ProviderID, f.ProviderID) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

func sameID(have, want *uuid.UUID) bool {
	if want == nil {
		return true
	}
	return have != nil && *have == *want
}

// --- Cart Store Mock ---

// MockCartStore expires carts the way the expire_inactive_carts procedure does.
type MockCartStore struct {
	store *MemoryStore

	ExpireInactiveFunc func(ctx context.Context) (int64, error)
}

// CartInactivity matches the procedure's 24 hour window.
const CartInactivity = 24 * time.Hour

func (m *MockCartStore) ExpireInactive(ctx context.Context) (int64, error) {
	if m.ExpireInactiveFunc != nil {
		return m.ExpireInactiveFunc(ctx)
	}
	s := m.store
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, c := range s.carts {
		if c.Status == "active" && c.UpdatedAt.Before(now.Add(-CartInactivity)) {
			c.Status = "expired"
			c.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// --- Notification Publisher Mock ---

// MockPublisher records published notifications.
type MockPublisher struct {
	mu        sync.Mutex
	published []*notification.Notification

	PublishFunc func(ctx context.Context, n *notification.Notification) error
}

func (m *MockPublisher) Publish(ctx context.Context, n *notification.Notification) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, n)
	return nil
}

// Published returns every notification published so far.
func (m *MockPublisher) Published() []*notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.published)
}

// --- Delivery Guard Mock ---

// MockDeliveryGuard remembers deliveries in a set.
type MockDeliveryGuard struct {
	mu   sync.Mutex
	seen map[string]bool

	FirstDeliveryFunc func(ctx context.Context, event, paymentID string) (bool, error)
}

func NewMockDeliveryGuard() *MockDeliveryGuard {
	return &MockDeliveryGuard{seen: make(map[string]bool)}
}

func (m *MockDeliveryGuard) FirstDelivery(ctx context.Context, event, paymentID string) (bool, error) {
	if m.FirstDeliveryFunc != nil {
		return m.FirstDeliveryFunc(ctx, event, paymentID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := event + ":" + paymentID
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func (m *MockDeliveryGuard) Forget(_ context.Context, event, paymentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, event+":"+paymentID)
	return nil
}

// Seen returns the recorded delivery keys.
func (m *MockDeliveryGuard) Seen() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.seen))
}
