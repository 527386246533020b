package fees_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadhanaschool/backend/core"
	"github.com/sadhanaschool/backend/core/fees"
	"github.com/sadhanaschool/backend/core/payment"
	"github.com/sadhanaschool/backend/testutil"
)

var regDate = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

func newSchool(t *testing.T) *testutil.Stack {
	s := testutil.NewStack(t)
	testutil.FreezeTime(t, regDate)
	s.SeedSchool(t)
	return s
}

func classID(t *testing.T, s *testutil.Stack, name string) string {
	id, err := s.Academic.ClassIDByName(context.Background(), name)
	require.NoError(t, err)
	return id
}

func TestService_Structures(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()
	class5 := classID(t, s, "5")

	_, err := s.Fees.CreateStructure(ctx, fees.NewStructure{ClassID: "class_missing", TuitionFee: 10})
	assert.Equal(t, fees.ErrClassNotFound, errors.Cause(err))

	st, err := s.Fees.CreateStructure(ctx, fees.NewStructure{
		ClassID:     class5,
		Section:     "B",
		TuitionFee:  8000,
		ExamFee:     1000,
		Scholarship: 500,
		Frequency:   " Quarterly ",
	})
	require.NoError(t, err)
	assert.Equal(t, fees.FrequencyQuarterly, st.Frequency)
	assert.Equal(t, 8500.0, st.Total())

	list, err := s.Fees.ListStructures(ctx, class5, core.Page{})
	require.NoError(t, err)
	assert.Len(t, list, 2, "the seeded class-wide structure and the section one")

	got, err := s.Fees.StructureFor(ctx, "5", "B")
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.ID)

	got, err = s.Fees.StructureFor(ctx, "5", "A")
	require.NoError(t, err)
	assert.Equal(t, 25000.0, got.Total(), "falls back to the class-wide structure")

	_, err = s.Fees.StructureFor(ctx, "LKG", "A")
	assert.Equal(t, fees.ErrNoFeeStructure, errors.Cause(err))

	_, err = s.Fees.UpdateStructure(ctx, st.ID, fees.StructureUpdate{})
	assert.Equal(t, fees.ErrNoUpdates, err)

	scholarship := 20000.0
	st, err = s.Fees.UpdateStructure(ctx, st.ID, fees.StructureUpdate{Scholarship: &scholarship})
	require.NoError(t, err)
	assert.Equal(t, 0.0, st.Total())

	require.NoError(t, s.Fees.DeleteStructure(ctx, st.ID))
	_, err = s.Fees.UpdateStructure(ctx, st.ID, fees.StructureUpdate{Scholarship: &scholarship})
	assert.Equal(t, fees.ErrStructureNotFound, errors.Cause(err))

	require.NoError(t, s.Academic.DeleteClass(ctx, class5))
	list, err = s.Fees.ListStructures(ctx, class5, core.Page{})
	require.NoError(t, err)
	assert.Empty(t, list, "deleting a class drops its structures")
}

func TestService_SeedDefaultStructures(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()

	// reseeding keeps a single class-wide structure per class
	require.NoError(t, s.Fees.SeedDefaultStructures(ctx))

	for name, total := range map[string]float64{"1": 5000, "4": 20000, "10": 50000} {
		list, err := s.Fees.ListStructures(ctx, classID(t, s, name), core.Page{})
		require.NoError(t, err)
		require.Len(t, list, 1, "class %s", name)
		assert.Equal(t, total, list[0].Total(), "class %s", name)
		assert.Equal(t, total*0.625, list[0].TuitionFee, "class %s", name)
		assert.Equal(t, fees.FrequencyYearly, list[0].Frequency)
	}
}

func TestService_OpenTracking(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()

	_, stu := s.RegisterStudent(t, "Asha", "asha@school.test", "5", "A")
	tr, err := s.Fees.TrackingForStudent(ctx, stu.ID)
	require.NoError(t, err)
	assert.Equal(t, stu.UniqueStudentID, tr.UniqueStudentID)
	assert.Equal(t, 25000.0, tr.TotalFeeAmount)
	assert.Equal(t, 25000.0, tr.PendingAmount)
	assert.Equal(t, fees.StatusPending, tr.PaymentStatus)
	require.NotNil(t, tr.DueDate)
	assert.Equal(t, regDate.AddDate(1, 0, 0), *tr.DueDate)

	again, err := s.Fees.OpenTracking(ctx, fees.NewTracking{StudentID: stu.ID, ClassName: "5", Section: "A"})
	require.NoError(t, err)
	assert.Equal(t, tr.ID, again.ID, "one tracking per student")

	sum, err := s.Fees.Summary(ctx, stu.ID, "")
	require.NoError(t, err)
	assert.Equal(t, tr.Summary(), sum)

	sum, err = s.Fees.Summary(ctx, "stu_unknown", "SMS-2025-1A-099")
	require.NoError(t, err)
	assert.Equal(t, fees.EmptySummary, sum)

	byUID, err := s.Fees.StudentFees(ctx, stu.UniqueStudentID)
	require.NoError(t, err)
	assert.Equal(t, tr.ID, byUID.ID)

	empty, err := s.Fees.StudentFees(ctx, "stu_unknown")
	require.NoError(t, err)
	assert.Equal(t, fees.StatusPending, empty.PaymentStatus)
	assert.Empty(t, empty.PaymentHistory)

	_, err = s.Fees.TrackingByUniqueID(ctx, "SMS-2025-1A-099")
	assert.Equal(t, "Fee record not found for this Student ID", err.Error())
	assert.True(t, core.IsNotFound(err))
}

func TestService_StudentPayments(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()
	_, stu := s.RegisterStudent(t, "Asha", "asha@school.test", "5", "A")
	uid := stu.UniqueStudentID

	t.Run("order validation", func(t *testing.T) {
		_, err := s.Fees.CreateOrderForStudent(ctx, fees.StudentOrderRequest{UniqueStudentID: uid, Amount: 0})
		assert.Equal(t, fees.ErrInvalidAmount, err)

		_, err = s.Fees.CreateOrderForStudent(ctx, fees.StudentOrderRequest{UniqueStudentID: uid, Amount: 25000.01})
		assert.Equal(t, fees.ErrAmountExceedsDue, err)

		_, err = s.Fees.CreateOrderForStudent(ctx, fees.StudentOrderRequest{UniqueStudentID: "SMS-2025-9C-001", Amount: 10})
		assert.True(t, core.IsNotFound(err))
	})

	order, err := s.Fees.CreateOrderForStudent(ctx, fees.StudentOrderRequest{UniqueStudentID: uid, Amount: 10000})
	require.NoError(t, err)
	assert.Equal(t, "order_1", order.ID)
	assert.Equal(t, int64(1000000), order.AmountPaise)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, uid, order.UniqueStudentID)
	assert.Equal(t, 25000.0, order.PendingAmount)

	pending, err := s.Orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000000), pending.AmountPaise)

	verify := func(paymentID, signature string, amount float64) (fees.Tracking, error) {
		return s.Fees.VerifyForStudent(ctx, fees.StudentVerifyRequest{
			UniqueStudentID: uid,
			OrderID:         order.ID,
			PaymentID:       paymentID,
			Signature:       signature,
			Amount:          amount,
		})
	}

	_, err = verify("pay_1", "bad-signature", 10000)
	assert.Equal(t, fees.ErrInvalidSignature, err)

	_, err = verify("pay_1", s.Sign(order.ID, "pay_1"), 9000)
	assert.Equal(t, fees.ErrOrderAmountInvalid, err)

	tr, err := verify("pay_1", s.Sign(order.ID, "pay_1"), 10000)
	require.NoError(t, err)
	assert.Equal(t, fees.StatusPartial, tr.PaymentStatus)
	assert.Equal(t, 10000.0, tr.PaidAmount)
	assert.Equal(t, 15000.0, tr.PendingAmount)
	require.NotNil(t, tr.LastPaymentDate)
	assert.Equal(t, regDate, *tr.LastPaymentDate)

	_, err = s.Orders.Get(ctx, order.ID)
	assert.Equal(t, payment.ErrOrderNotFound, err, "verified orders are cleared")

	_, err = verify("pay_1", s.Sign(order.ID, "pay_1"), 10000)
	assert.Equal(t, fees.ErrDuplicatePayment, errors.Cause(err))

	order2, err := s.Fees.CreateOrderForStudent(ctx, fees.StudentOrderRequest{UniqueStudentID: uid, Amount: 15000})
	require.NoError(t, err)
	tr, err = s.Fees.VerifyForStudent(ctx, fees.StudentVerifyRequest{
		UniqueStudentID: uid,
		OrderID:         order2.ID,
		PaymentID:       "pay_2",
		Signature:       s.Sign(order2.ID, "pay_2"),
		Amount:          15000,
	})
	require.NoError(t, err)
	assert.Equal(t, fees.StatusPaid, tr.PaymentStatus)
	assert.Equal(t, 0.0, tr.PendingAmount)
	assert.Len(t, tr.PaymentHistory, 2)

	txs, err := s.Fees.Transactions(ctx, stu.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "pay_1", txs[0].TransactionID)
	assert.Equal(t, tr.ID, txs[0].FeeID)
	assert.Equal(t, fees.PaymentSuccess, txs[1].Status)

	pendingTotal, err := s.Fees.PendingTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, pendingTotal)
}

func TestService_TrackingPayments(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()
	_, asha := s.RegisterStudent(t, "Asha", "asha@school.test", "5", "A")
	_, ravi := s.RegisterStudent(t, "Ravi", "ravi@school.test", "3", "B")
	ashaFees, err := s.Fees.TrackingForStudent(ctx, asha.ID)
	require.NoError(t, err)
	raviFees, err := s.Fees.TrackingForStudent(ctx, ravi.ID)
	require.NoError(t, err)

	_, err = s.Fees.CreateOrder(ctx, fees.OrderRequest{TrackingID: ashaFees.ID, Amount: -5})
	assert.Equal(t, fees.ErrInvalidAmount, err)

	_, err = s.Fees.CreateOrder(ctx, fees.OrderRequest{TrackingID: "track_missing", Amount: 5})
	assert.Equal(t, fees.ErrTrackingNotFound, errors.Cause(err))

	order, err := s.Fees.CreateOrder(ctx, fees.OrderRequest{TrackingID: ashaFees.ID, Amount: 500, Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, "USD", order.Currency)

	// an order opened for one tracking cannot be credited to another
	_, err = s.Fees.Verify(ctx, fees.VerifyRequest{
		OrderID:    order.ID,
		PaymentID:  "pay_9",
		Signature:  s.Sign(order.ID, "pay_9"),
		TrackingID: raviFees.ID,
		Amount:     500,
	})
	assert.Equal(t, fees.ErrOrderMismatch, errors.Cause(err))

	tr, err := s.Fees.Verify(ctx, fees.VerifyRequest{
		OrderID:    order.ID,
		PaymentID:  "pay_9",
		Signature:  s.Sign(order.ID, "pay_9"),
		TrackingID: ashaFees.ID,
		Amount:     500,
	})
	require.NoError(t, err)
	assert.Equal(t, 500.0, tr.PaidAmount)

	// orders unknown to the store are credited on the signature alone
	tr, err = s.Fees.Verify(ctx, fees.VerifyRequest{
		OrderID:    "order_external",
		PaymentID:  "pay_10",
		Signature:  s.Sign("order_external", "pay_10"),
		TrackingID: raviFees.ID,
		Amount:     1000,
	})
	require.NoError(t, err)
	assert.Equal(t, 14000.0, tr.PendingAmount)

	pendingTotal, err := s.Fees.PendingTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, 38500.0, pendingTotal)
}

func TestService_SubPaiseAmounts(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()
	_, asha := s.RegisterStudent(t, "Asha", "asha@school.test", "5", "A")
	ashaFees, err := s.Fees.TrackingForStudent(ctx, asha.ID)
	require.NoError(t, err)

	_, err = s.Fees.CreateOrder(ctx, fees.OrderRequest{TrackingID: ashaFees.ID, Amount: 0.001})
	assert.Equal(t, fees.ErrInvalidAmount, err)

	verify := func(amount float64) (fees.Tracking, error) {
		return s.Fees.Verify(ctx, fees.VerifyRequest{
			OrderID:    "order_external",
			PaymentID:  "pay_tiny",
			Signature:  s.Sign("order_external", "pay_tiny"),
			TrackingID: ashaFees.ID,
			Amount:     amount,
		})
	}
	_, err = verify(0.001)
	assert.Equal(t, fees.ErrInvalidAmount, errors.Cause(err))

	// the gateway payment id is still free
	tr, err := verify(100)
	require.NoError(t, err)
	assert.Equal(t, 100.0, tr.PaidAmount)
}

func TestService_GatewayNotConfigured(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()
	_, stu := s.RegisterStudent(t, "Asha", "asha@school.test", "5", "A")

	svc := fees.NewService(s.FeeRepo, s.Academic, fees.Gateways{}, s.Validate, s.Conf, s.Logger)
	_, err := svc.CreateOrderForStudent(ctx, fees.StudentOrderRequest{UniqueStudentID: stu.UniqueStudentID, Amount: 100})
	assert.Equal(t, payment.ErrGatewayNotConfigured, err)

	_, err = svc.VerifyForStudent(ctx, fees.StudentVerifyRequest{
		UniqueStudentID: stu.UniqueStudentID,
		OrderID:         "order_1",
		PaymentID:       "pay_1",
		Signature:       s.Sign("order_1", "pay_1"),
		Amount:          100,
	})
	assert.Equal(t, fees.ErrInvalidSignature, err, "no verifier, no credit")
}

func TestService_GatewayFailure(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()
	_, stu := s.RegisterStudent(t, "Asha", "asha@school.test", "5", "A")

	s.Gateway.Err = errors.New("gateway down")
	_, err := s.Fees.CreateOrderForStudent(ctx, fees.StudentOrderRequest{UniqueStudentID: stu.UniqueStudentID, Amount: 100})
	assert.EqualError(t, err, "creating gateway order: gateway down")
}

func TestService_CreateFee(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()

	fee, err := s.Fees.CreateFee(ctx, fees.NewFee{
		StudentID:    " stu_1 ",
		Amount:       1200.456,
		DueDate:      "2025-07-10",
		FeeType:      "Excursion",
		AcademicYear: "2025-2026",
	})
	require.NoError(t, err)
	assert.Equal(t, "stu_1", fee.StudentID)
	assert.Equal(t, 1200.46, fee.Amount)
	assert.Equal(t, fees.StatusPending, fee.Status)

	_, err = s.Fees.CreateFee(ctx, fees.NewFee{StudentID: "stu_1", Amount: 10, DueDate: "10/07/2025", FeeType: "Bus", AcademicYear: "2025"})
	assert.Error(t, err)
}
