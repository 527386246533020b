package sqlxdb

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadhanaschool/backend/core/fees"
)

func trackingRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(trackingTable.columns).AddRow(
		"track_1", "stu_1", "SMS-2025-5A-001", "5", "A", "2025-2026",
		25000.0, 0.0, 25000.0, fees.StatusPending, []byte("[]"),
		nil, now.AddDate(1, 0, 0), now, now,
	)
}

func TestFeeRepository_RecordPayment(t *testing.T) {
	db, mock := newMock(t)
	repo := NewFeeRepository(db)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	lock := quote(trackingTable.selectQuery() + " WHERE unique_student_id = $1 ORDER BY seq LIMIT 1 FOR UPDATE")
	exists := quote("SELECT EXISTS (SELECT 1 FROM payments WHERE gateway_payment_id = $1)")

	mock.ExpectBegin()
	mock.ExpectQuery(lock).WithArgs("SMS-2025-5A-001").WillReturnRows(trackingRows(now))
	mock.ExpectQuery(exists).WithArgs("pay_1").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(quote("UPDATE fee_trackings SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(quote("INSERT INTO payments")).WithArgs(args(len(paymentTable.columns))...).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	pay := fees.Payment{ID: "payment_1", GatewayPaymentID: "pay_1", OrderID: "order_1", Amount: 10000}
	got, err := repo.RecordPayment(ctx, fees.TrackingFilter{UniqueStudentID: "SMS-2025-5A-001"}, pay,
		func(t *fees.Tracking, p *fees.Payment) error {
			p.TrackingID = t.ID
			return t.Credit(fees.PaymentRecord{Date: now, Amount: p.Amount, PaymentID: p.GatewayPaymentID})
		})
	require.NoError(t, err)
	assert.Equal(t, "track_1", got.ID)
	assert.Equal(t, 10000.0, got.PaidAmount)
	assert.Equal(t, 15000.0, got.PendingAmount)
	assert.Equal(t, fees.StatusPartial, got.PaymentStatus)
}

func TestFeeRepository_RecordPaymentRejected(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	lock := quote(trackingTable.selectQuery() + " WHERE tracking_id = $1 ORDER BY seq LIMIT 1 FOR UPDATE")
	exists := quote("SELECT EXISTS (SELECT 1 FROM payments WHERE gateway_payment_id = $1)")
	errApply := errors.New("amount mismatch")

	tests := []struct {
		name    string
		expect  func(mock sqlmock.Sqlmock)
		apply   error
		wantErr error
	}{
		{
			name: "unknown tracking",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(lock).WillReturnError(sql.ErrNoRows)
				mock.ExpectRollback()
			},
			wantErr: fees.ErrTrackingNotFound,
		},
		{
			name: "payment seen",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(lock).WillReturnRows(trackingRows(now))
				mock.ExpectQuery(exists).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
				mock.ExpectRollback()
			},
			wantErr: fees.ErrDuplicatePayment,
		},
		{
			name: "apply failed",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(lock).WillReturnRows(trackingRows(now))
				mock.ExpectQuery(exists).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
				mock.ExpectRollback()
			},
			apply:   errApply,
			wantErr: errApply,
		},
		{
			name: "concurrent insert",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(lock).WillReturnRows(trackingRows(now))
				mock.ExpectQuery(exists).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
				mock.ExpectExec(quote("UPDATE fee_trackings SET")).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(quote("INSERT INTO payments")).WillReturnError(uniqueErr("payments_gateway_payment_key"))
				mock.ExpectRollback()
			},
			wantErr: fees.ErrDuplicatePayment,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewFeeRepository(db)
			tt.expect(mock)

			_, err := repo.RecordPayment(context.Background(), fees.TrackingFilter{ID: "track_1"},
				fees.Payment{GatewayPaymentID: "pay_1"},
				func(*fees.Tracking, *fees.Payment) error { return tt.apply })
			assert.Equal(t, tt.wantErr, err)
		})
	}
}

func TestFeeRepository_GetTracking(t *testing.T) {
	db, mock := newMock(t)
	repo := NewFeeRepository(db)
	ctx := context.Background()

	_, err := repo.GetTracking(ctx, fees.TrackingFilter{})
	assert.Equal(t, fees.ErrTrackingNotFound, err)

	now := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	mock.ExpectQuery(quote(trackingTable.selectQuery() + " WHERE student_id = $1 ORDER BY seq LIMIT 1")).
		WithArgs("stu_1").
		WillReturnRows(trackingRows(now))
	got, err := repo.GetTracking(ctx, fees.TrackingFilter{StudentID: "stu_1"})
	require.NoError(t, err)
	assert.Equal(t, "SMS-2025-5A-001", got.UniqueStudentID)
	assert.NotNil(t, got.PaymentHistory)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, now.AddDate(1, 0, 0), *got.DueDate)
}

func TestFeeRepository_QueryTrackings(t *testing.T) {
	db, mock := newMock(t)
	repo := NewFeeRepository(db)

	due := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(quote(trackingTable.selectQuery() + " WHERE pending_amount > 0 AND due_date < $1 ORDER BY seq")).
		WithArgs(due).
		WillReturnRows(sqlmock.NewRows(trackingTable.columns))

	trackings, err := repo.QueryTrackings(context.Background(), fees.TrackingQuery{Unpaid: true, DueBefore: &due})
	require.NoError(t, err)
	assert.Empty(t, trackings)
}

func TestFeeRepository_MarkOverdueFees(t *testing.T) {
	db, mock := newMock(t)
	repo := NewFeeRepository(db)

	mock.ExpectExec(quote("UPDATE fees SET status = $1 WHERE status = $2 AND due_date < $3")).
		WithArgs(fees.StatusOverdue, fees.StatusPending, "2025-06-01").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.MarkOverdueFees(context.Background(), "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestFeeRepository_DeleteStudentFees(t *testing.T) {
	db, mock := newMock(t)
	repo := NewFeeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(quote("DELETE FROM fee_trackings WHERE student_id = $1")).WithArgs("stu_1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(quote("DELETE FROM payments WHERE student_id = $1")).WithArgs("stu_1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(quote("DELETE FROM fees WHERE student_id = $1")).WithArgs("stu_1").WillReturnError(errors.New("conn reset"))
	mock.ExpectRollback()

	err := repo.DeleteStudentFees(context.Background(), "stu_1")
	require.Error(t, err)
	assert.Equal(t, "deleting fees: conn reset", err.Error())
}
