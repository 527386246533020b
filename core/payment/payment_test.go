package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadhanaschool/backend/core"
)

func TestToPaise(t *testing.T) {
	tests := []struct {
		amount float64
		want   int64
	}{
		{0, 0},
		{1, 100},
		{5000, 500000},
		{0.1 + 0.2, 30},
		{1234.567, 123457},
		{19.99, 1999},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToPaise(tt.amount), "ToPaise(%v)", tt.amount)
	}
}

func TestHMACVerifier(t *testing.T) {
	v := NewHMACVerifier("s3cr3t")

	mac := hmac.New(sha256.New, []byte("s3cr3t"))
	mac.Write([]byte("order_1|pay_1"))
	want := hex.EncodeToString(mac.Sum(nil))
	assert.Equal(t, want, v.Sign("order_1", "pay_1"))

	tests := []struct {
		name      string
		verifier  *HMACVerifier
		orderID   string
		paymentID string
		signature string
		want      bool
	}{
		{name: "valid", verifier: v, orderID: "order_1", paymentID: "pay_1", signature: want, want: true},
		{name: "swapped ids", verifier: v, orderID: "pay_1", paymentID: "order_1", signature: want},
		{name: "other payment", verifier: v, orderID: "order_1", paymentID: "pay_2", signature: want},
		{name: "empty signature", verifier: v, orderID: "order_1", paymentID: "pay_1"},
		{name: "tampered signature", verifier: v, orderID: "order_1", paymentID: "pay_1", signature: "zzz" + want[3:]},
		{name: "no secret", verifier: NewHMACVerifier(""), orderID: "order_1", paymentID: "pay_1", signature: want},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.verifier.Verify(tt.orderID, tt.paymentID, tt.signature))
		})
	}
}

func TestMemoryOrderStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	core.NowFunc = func() time.Time { return now }
	defer func() { core.NowFunc = func() time.Time { return time.Now().UTC() } }()

	store := NewMemoryOrderStore(time.Hour)

	_, err := store.Get(ctx, "order_1")
	assert.Equal(t, ErrOrderNotFound, err)

	order := PendingOrder{OrderID: "order_1", TrackingID: "track_1", AmountPaise: 150000}
	require.NoError(t, store.Save(ctx, order))

	got, err := store.Get(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, "track_1", got.TrackingID)
	assert.Equal(t, int64(150000), got.AmountPaise)
	assert.Equal(t, now, got.CreatedAt)

	// expired
	now = now.Add(2 * time.Hour)
	_, err = store.Get(ctx, "order_1")
	assert.Equal(t, ErrOrderNotFound, err)

	require.NoError(t, store.Save(ctx, PendingOrder{OrderID: "order_2"}))
	require.NoError(t, store.Delete(ctx, "order_2"))
	_, err = store.Get(ctx, "order_2")
	assert.Equal(t, ErrOrderNotFound, err)
}
