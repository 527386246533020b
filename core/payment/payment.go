// Package payment holds the payment gateway abstractions used to collect fees online.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core"
)

var (
	ErrGatewayNotConfigured = errors.New("Payment gateway not configured")
	ErrOrderNotFound        = errors.New("payment order not found")
)

type (
	// Order is a gateway order the client completes the payment against.
	Order struct {
		ID          string `json:"order_id"`
		AmountPaise int64  `json:"amount"`
		Currency    string `json:"currency"`
		KeyID       string `json:"key_id"`
	}

	Gateway interface {
		CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (Order, error)
		KeyID() string
	}

	SignatureVerifier interface {
		Verify(orderID, paymentID, signature string) bool
	}

	// PendingOrder remembers what an order was created for until it is verified.
	PendingOrder struct {
		OrderID         string    `json:"order_id"`
		TrackingID      string    `json:"tracking_id"`
		UniqueStudentID string    `json:"unique_student_id"`
		AmountPaise     int64     `json:"amount"`
		CreatedAt       time.Time `json:"created_at"`
	}

	OrderStore interface {
		Save(ctx context.Context, order PendingOrder) error
		// Get returns ErrOrderNotFound for unknown or expired orders.
		Get(ctx context.Context, orderID string) (PendingOrder, error)
		Delete(ctx context.Context, orderID string) error
	}
)

// ToPaise converts rupees to paise.
func ToPaise(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// HMACVerifier checks gateway signatures: hex(HMAC-SHA256(secret, "<order_id>|<payment_id>")).
type HMACVerifier struct {
	secret []byte
}

var _ SignatureVerifier = (*HMACVerifier)(nil)

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

func (v HMACVerifier) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (v HMACVerifier) Verify(orderID, paymentID, signature string) bool {
	if len(v.secret) == 0 || signature == "" {
		return false
	}
	return hmac.Equal([]byte(v.Sign(orderID, paymentID)), []byte(signature))
}

// MemoryOrderStore keeps pending orders in process memory.
type MemoryOrderStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	orders map[string]PendingOrder
}

var _ OrderStore = (*MemoryOrderStore)(nil)

// NewMemoryOrderStore returns an OrderStore forgetting orders after ttl (0 keeps them).
func NewMemoryOrderStore(ttl time.Duration) *MemoryOrderStore {
	return &MemoryOrderStore{ttl: ttl, orders: make(map[string]PendingOrder)}
}

func (s *MemoryOrderStore) Save(_ context.Context, order PendingOrder) error {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = core.NowFunc()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.OrderID] = order
	return nil
}

func (s *MemoryOrderStore) Get(_ context.Context, orderID string) (PendingOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return PendingOrder{}, ErrOrderNotFound
	}
	if s.ttl > 0 && core.NowFunc().Sub(order.CreatedAt) > s.ttl {
		delete(s.orders, orderID)
		return PendingOrder{}, ErrOrderNotFound
	}
	return order, nil
}

func (s *MemoryOrderStore) Delete(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, orderID)
	return nil
}
