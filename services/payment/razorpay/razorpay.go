// Package razorpay creates fee payment orders on Razorpay.
package razorpay

import (
	"context"

	"github.com/pkg/errors"
	rzp "github.com/razorpay/razorpay-go"

	"github.com/sadhanaschool/backend/core"
	"github.com/sadhanaschool/backend/core/payment"
)

var errMissingOrderID = errors.New("razorpay: order id missing in response")

// orderCreator is the part of the razorpay client orders are created with. mockable
type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type Gateway struct {
	keyID  string
	orders orderCreator
}

var _ payment.Gateway = (*Gateway)(nil)

func NewGateway(conf core.RazorpayConfig) *Gateway {
	client := rzp.NewClient(conf.KeyID, conf.KeySecret)
	return &Gateway{keyID: conf.KeyID, orders: client.Order}
}

func (gw *Gateway) KeyID() string {
	return gw.keyID
}

// CreateOrder creates an auto-captured order. The razorpay client does not take a context,
// so ctx is only checked before the call.
func (gw *Gateway) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (payment.Order, error) {
	if err := ctx.Err(); err != nil {
		return payment.Order{}, err
	}

	data := map[string]interface{}{
		"amount":          amountPaise,
		"currency":        currency,
		"payment_capture": 1,
	}
	if receipt != "" {
		data["receipt"] = receipt
	}

	body, err := gw.orders.Create(data, nil)
	if err != nil {
		return payment.Order{}, errors.Wrap(err, "razorpay: creating order")
	}
	id, _ := body["id"].(string)
	if id == "" {
		return payment.Order{}, errMissingOrderID
	}

	return payment.Order{
		ID:          id,
		AmountPaise: amountPaise,
		Currency:    currency,
		KeyID:       gw.keyID,
	}, nil
}
