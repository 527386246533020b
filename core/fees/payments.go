package fees

import (
	"context"

	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core"
	"github.com/sadhanaschool/backend/core/payment"
)

type (
	OrderRequest struct {
		Amount     float64 `json:"amount" validate:"gt=0"`
		Currency   string  `json:"currency"`
		TrackingID string  `json:"fee_id" validate:"required"`
		StudentID  string  `json:"student_id"`
	}

	StudentOrderRequest struct {
		UniqueStudentID string  `json:"unique_student_id" query:"unique_student_id" validate:"required"`
		Amount          float64 `json:"amount" query:"amount"`
	}

	VerifyRequest struct {
		OrderID    string  `json:"razorpay_order_id" query:"razorpay_order_id" validate:"required"`
		PaymentID  string  `json:"razorpay_payment_id" query:"razorpay_payment_id" validate:"required"`
		Signature  string  `json:"razorpay_signature" query:"razorpay_signature" validate:"required"`
		TrackingID string  `json:"fee_id" query:"fee_id" validate:"required"`
		StudentID  string  `json:"student_id" query:"student_id"`
		Amount     float64 `json:"amount" query:"amount" validate:"gt=0"`
	}

	StudentVerifyRequest struct {
		UniqueStudentID string  `json:"unique_student_id" query:"unique_student_id" validate:"required"`
		OrderID         string  `json:"razorpay_order_id" query:"razorpay_order_id" validate:"required"`
		PaymentID       string  `json:"razorpay_payment_id" query:"razorpay_payment_id" validate:"required"`
		Signature       string  `json:"razorpay_signature" query:"razorpay_signature" validate:"required"`
		Amount          float64 `json:"amount" query:"amount" validate:"gt=0"`
	}

	// StudentOrder is an order created for a student, with the details the checkout shows.
	StudentOrder struct {
		payment.Order
		StudentName     string  `json:"student_name,omitempty"`
		UniqueStudentID string  `json:"unique_student_id"`
		PendingAmount   float64 `json:"pending_amount"`
	}
)

// CreateOrder opens a gateway order against a fee tracking.
func (svc *Service) CreateOrder(ctx context.Context, req OrderRequest) (payment.Order, error) {
	if payment.ToPaise(req.Amount) <= 0 {
		return payment.Order{}, ErrInvalidAmount
	}
	if err := svc.validate.Struct(req); err != nil {
		return payment.Order{}, err
	}
	if svc.pay.Gateway == nil {
		return payment.Order{}, payment.ErrGatewayNotConfigured
	}
	t, err := svc.repo.GetTracking(ctx, TrackingFilter{ID: req.TrackingID})
	if err != nil {
		return payment.Order{}, err
	}
	currency := core.CleanString(req.Currency)
	if currency == "" {
		currency = svc.pay.Currency
	}
	return svc.openOrder(ctx, t, req.Amount, currency)
}

// CreateOrderForStudent opens a gateway order for a student identified by unique ID.
// The amount may not exceed the pending balance.
func (svc *Service) CreateOrderForStudent(ctx context.Context, req StudentOrderRequest) (StudentOrder, error) {
	if payment.ToPaise(req.Amount) <= 0 {
		return StudentOrder{}, ErrInvalidAmount
	}
	if err := svc.validate.Struct(req); err != nil {
		return StudentOrder{}, err
	}
	if svc.pay.Gateway == nil {
		return StudentOrder{}, payment.ErrGatewayNotConfigured
	}
	t, err := svc.TrackingByUniqueID(ctx, req.UniqueStudentID)
	if err != nil {
		return StudentOrder{}, err
	}
	if payment.ToPaise(req.Amount) > payment.ToPaise(t.PendingAmount) {
		return StudentOrder{}, ErrAmountExceedsDue
	}
	order, err := svc.openOrder(ctx, t, req.Amount, svc.pay.Currency)
	if err != nil {
		return StudentOrder{}, err
	}
	return StudentOrder{Order: order, UniqueStudentID: t.UniqueStudentID, PendingAmount: t.PendingAmount}, nil
}

func (svc *Service) openOrder(ctx context.Context, t Tracking, amount float64, currency string) (payment.Order, error) {
	paise := payment.ToPaise(amount)
	order, err := svc.pay.Gateway.CreateOrder(ctx, paise, currency, t.ID)
	if err != nil {
		return payment.Order{}, errors.Wrap(err, "creating gateway order")
	}
	pending := payment.PendingOrder{
		OrderID:         order.ID,
		TrackingID:      t.ID,
		UniqueStudentID: t.UniqueStudentID,
		AmountPaise:     paise,
		CreatedAt:       core.NowFunc(),
	}
	if err = svc.pay.Orders.Save(ctx, pending); err != nil {
		return payment.Order{}, errors.Wrap(err, "saving pending order")
	}
	return order, nil
}

// Verify checks the gateway signature and credits the payment to the fee tracking.
func (svc *Service) Verify(ctx context.Context, req VerifyRequest) (Tracking, error) {
	if err := svc.validate.Struct(req); err != nil {
		return Tracking{}, err
	}
	return svc.credit(ctx, TrackingFilter{ID: req.TrackingID}, req.OrderID, req.PaymentID, req.Signature, req.Amount)
}

// VerifyForStudent is Verify for a student identified by unique ID.
func (svc *Service) VerifyForStudent(ctx context.Context, req StudentVerifyRequest) (Tracking, error) {
	if err := svc.validate.Struct(req); err != nil {
		return Tracking{}, err
	}
	uid := core.CleanString(req.UniqueStudentID)
	t, err := svc.credit(ctx, TrackingFilter{UniqueStudentID: uid}, req.OrderID, req.PaymentID, req.Signature, req.Amount)
	if errors.Cause(err) == ErrTrackingNotFound {
		return Tracking{}, errUniqueIDNotFound
	}
	return t, err
}

func (svc *Service) credit(ctx context.Context, filter TrackingFilter, orderID, paymentID, signature string, amount float64) (Tracking, error) {
	if payment.ToPaise(amount) <= 0 {
		return Tracking{}, ErrInvalidAmount
	}
	if svc.pay.Verifier == nil || !svc.pay.Verifier.Verify(orderID, paymentID, signature) {
		return Tracking{}, ErrInvalidSignature
	}

	order, err := svc.pay.Orders.Get(ctx, orderID)
	known := err == nil
	if err != nil && errors.Cause(err) != payment.ErrOrderNotFound {
		return Tracking{}, errors.Wrap(err, "loading pending order")
	}
	if known && order.AmountPaise != payment.ToPaise(amount) {
		return Tracking{}, ErrOrderAmountInvalid
	}

	now := core.NowFunc()
	rec := PaymentRecord{
		Date:      now,
		Amount:    core.RoundMoney(amount),
		Method:    MethodOnline,
		OrderID:   orderID,
		PaymentID: paymentID,
	}
	pay := Payment{
		ID:               core.GenerateID("pay_"),
		Amount:           rec.Amount,
		Method:           MethodOnline,
		OrderID:          orderID,
		GatewayPaymentID: paymentID,
		Status:           PaymentSuccess,
		PaymentDate:      now,
		CreatedAt:        now,
	}

	t, err := svc.repo.RecordPayment(ctx, filter, pay, func(t *Tracking, p *Payment) error {
		if known && order.TrackingID != t.ID {
			return ErrOrderMismatch
		}
		if err := t.Credit(rec); err != nil {
			return err
		}
		p.TrackingID = t.ID
		p.StudentID = t.StudentID
		p.UniqueStudentID = t.UniqueStudentID
		return nil
	})
	if err != nil {
		return Tracking{}, err
	}

	if err = svc.repo.SetFeeStatus(ctx, t.ID, t.PaymentStatus); err != nil {
		svc.logger.Warn("failed to update fee status", err, map[string]interface{}{"fee_id": t.ID})
	}
	if known {
		if err = svc.pay.Orders.Delete(ctx, orderID); err != nil {
			svc.logger.Warn("failed to clear pending order", err, map[string]interface{}{"order_id": orderID})
		}
	}
	svc.logger.Info("payment credited", map[string]interface{}{
		"tracking_id": t.ID,
		"payment_id":  paymentID,
		"amount":      rec.Amount,
		"status":      t.PaymentStatus,
	})
	return t, nil
}
