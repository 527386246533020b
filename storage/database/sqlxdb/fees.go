package sqlxdb

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core"
	"github.com/sadhanaschool/backend/core/fees"
)

var (
	structureTable = table{
		name: "fee_structures",
		key:  "fee_id",
		columns: []string{
			"fee_id", "class_id", "section", "tuition_fee", "exam_fee", "lab_fee", "transport",
			"scholarship", "frequency", "remarks", "created_at", "updated_at",
		},
	}

	trackingTable = table{
		name: "fee_trackings",
		key:  "tracking_id",
		columns: []string{
			"tracking_id", "student_id", "unique_student_id", "class_name", "section", "academic_year",
			"total_fee_amount", "paid_amount", "pending_amount", "payment_status", "payment_history",
			"last_payment_date", "due_date", "created_at", "updated_at",
		},
	}

	paymentTable = table{
		name: "payments",
		key:  "payment_id",
		columns: []string{
			"payment_id", "tracking_id", "student_id", "unique_student_id", "amount", "payment_method",
			"order_id", "gateway_payment_id", "status", "payment_date", "created_at",
		},
	}

	feeTable = table{
		name:    "fees",
		key:     "fee_id",
		columns: []string{"fee_id", "student_id", "amount", "due_date", "status", "fee_type", "academic_year", "created_at"},
	}
)

type feeRepository struct {
	db *sqlx.DB
}

var _ fees.Repository = (*feeRepository)(nil)

func NewFeeRepository(db *sqlx.DB) *feeRepository {
	return &feeRepository{db: db}
}

func (repo *feeRepository) CreateStructure(ctx context.Context, s fees.Structure) (fees.Structure, error) {
	if _, err := repo.db.NamedExecContext(ctx, structureTable.insertQuery(), s); err != nil {
		return fees.Structure{}, errors.Wrap(err, "inserting fee structure")
	}
	return s, nil
}

func (repo *feeRepository) GetStructure(ctx context.Context, id string) (fees.Structure, error) {
	var s fees.Structure
	if err := repo.db.GetContext(ctx, &s, structureTable.selectQuery()+" WHERE fee_id = $1", id); err != nil {
		return s, trapNoRows(err, fees.ErrStructureNotFound, "getting fee structure")
	}
	return s, nil
}

func (repo *feeRepository) FindStructure(ctx context.Context, classID, section string) (fees.Structure, error) {
	var s fees.Structure
	q := structureTable.selectQuery() + " WHERE class_id = $1 AND section = $2 ORDER BY seq LIMIT 1"
	if err := repo.db.GetContext(ctx, &s, q, classID, section); err != nil {
		return s, trapNoRows(err, fees.ErrStructureNotFound, "finding fee structure")
	}
	return s, nil
}

func (repo *feeRepository) QueryStructures(ctx context.Context, classID string, page core.Page) ([]fees.Structure, error) {
	var w where
	if classID != "" {
		w.add("class_id = ?", classID)
	}
	structures := make([]fees.Structure, 0)
	q := structureTable.selectQuery() + w.String() + " ORDER BY seq" + pageClause(page)
	if err := repo.db.SelectContext(ctx, &structures, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying fee structures")
	}
	return structures, nil
}

func (repo *feeRepository) UpdateStructure(ctx context.Context, s fees.Structure) (fees.Structure, error) {
	res, err := repo.db.NamedExecContext(ctx, structureTable.updateQuery(), s)
	if err != nil {
		return fees.Structure{}, errors.Wrap(err, "updating fee structure")
	}
	if err = mustAffect(res, fees.ErrStructureNotFound); err != nil {
		return fees.Structure{}, err
	}
	return s, nil
}

func (repo *feeRepository) DeleteStructure(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, structureTable.deleteQuery(), id)
	if err != nil {
		return errors.Wrap(err, "deleting fee structure")
	}
	return mustAffect(res, fees.ErrStructureNotFound)
}

func (repo *feeRepository) DeleteStructuresByClass(ctx context.Context, classID string) error {
	if _, err := repo.db.ExecContext(ctx, "DELETE FROM fee_structures WHERE class_id = $1", classID); err != nil {
		return errors.Wrap(err, "deleting fee structures")
	}
	return nil
}

func (repo *feeRepository) CreateTracking(ctx context.Context, t fees.Tracking) (fees.Tracking, error) {
	if _, err := repo.db.NamedExecContext(ctx, trackingTable.insertQuery(), t); err != nil {
		return fees.Tracking{}, errors.Wrap(err, "inserting fee tracking")
	}
	return t, nil
}

// trackingQuery selects the first tracking matching filter; ok is false for an empty filter.
func trackingQuery(filter fees.TrackingFilter, suffix string) (q string, arg string, ok bool) {
	var cond string
	switch {
	case filter.ID != "":
		cond, arg = "tracking_id", filter.ID
	case filter.StudentID != "":
		cond, arg = "student_id", filter.StudentID
	case filter.UniqueStudentID != "":
		cond, arg = "unique_student_id", filter.UniqueStudentID
	default:
		return "", "", false
	}
	return trackingTable.selectQuery() + " WHERE " + cond + " = $1 ORDER BY seq LIMIT 1" + suffix, arg, true
}

func (repo *feeRepository) GetTracking(ctx context.Context, filter fees.TrackingFilter) (fees.Tracking, error) {
	var t fees.Tracking
	q, arg, ok := trackingQuery(filter, "")
	if !ok {
		return t, fees.ErrTrackingNotFound
	}
	if err := repo.db.GetContext(ctx, &t, q, arg); err != nil {
		return t, trapNoRows(err, fees.ErrTrackingNotFound, "getting fee tracking")
	}
	return t, nil
}

func (repo *feeRepository) QueryTrackings(ctx context.Context, query fees.TrackingQuery) ([]fees.Tracking, error) {
	var w where
	if query.ClassName != "" {
		w.add("class_name = ?", query.ClassName)
	}
	if query.Unpaid {
		w.add("pending_amount > 0")
	}
	if query.DueBefore != nil {
		w.add("due_date < ?", *query.DueBefore)
	}

	trackings := make([]fees.Tracking, 0)
	if err := repo.db.SelectContext(ctx, &trackings, trackingTable.selectQuery()+w.String()+" ORDER BY seq", w.args...); err != nil {
		return nil, errors.Wrap(err, "querying fee trackings")
	}
	return trackings, nil
}

// RecordPayment holds a row lock on the tracking until the payment is stored.
func (repo *feeRepository) RecordPayment(
	ctx context.Context,
	filter fees.TrackingFilter,
	pay fees.Payment,
	apply func(*fees.Tracking, *fees.Payment) error,
) (fees.Tracking, error) {
	var t fees.Tracking
	q, arg, ok := trackingQuery(filter, " FOR UPDATE")
	if !ok {
		return t, fees.ErrTrackingNotFound
	}

	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &t, q, arg); err != nil {
			return trapNoRows(err, fees.ErrTrackingNotFound, "locking fee tracking")
		}

		if pay.GatewayPaymentID != "" {
			var seen bool
			err := tx.GetContext(ctx, &seen,
				"SELECT EXISTS (SELECT 1 FROM payments WHERE gateway_payment_id = $1)", pay.GatewayPaymentID)
			if err != nil {
				return errors.Wrap(err, "checking payment")
			}
			if seen {
				return fees.ErrDuplicatePayment
			}
		}

		if err := apply(&t, &pay); err != nil {
			return err
		}

		if _, err := tx.NamedExecContext(ctx, trackingTable.updateQuery(), t); err != nil {
			return errors.Wrap(err, "updating fee tracking")
		}
		if _, err := tx.NamedExecContext(ctx, paymentTable.insertQuery(), pay); err != nil {
			if isUniqueViolation(err, "payments_gateway_payment_key") {
				return fees.ErrDuplicatePayment
			}
			return errors.Wrap(err, "inserting payment")
		}
		return nil
	})
	if err != nil {
		return fees.Tracking{}, err
	}
	return t, nil
}

func (repo *feeRepository) QueryPayments(ctx context.Context, studentID string) ([]fees.Payment, error) {
	payments := make([]fees.Payment, 0)
	q := paymentTable.selectQuery() + " WHERE student_id = $1 ORDER BY seq"
	if err := repo.db.SelectContext(ctx, &payments, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	return payments, nil
}

func (repo *feeRepository) DeleteStudentFees(ctx context.Context, studentID string) error {
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		for _, tbl := range []string{"fee_trackings", "payments", "fees"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+tbl+" WHERE student_id = $1", studentID); err != nil {
				return errors.Wrapf(err, "deleting %s", tbl)
			}
		}
		return nil
	})
}

func (repo *feeRepository) CreateFee(ctx context.Context, f fees.Fee) (fees.Fee, error) {
	if _, err := repo.db.NamedExecContext(ctx, feeTable.insertQuery(), f); err != nil {
		return fees.Fee{}, errors.Wrap(err, "inserting fee")
	}
	return f, nil
}

func (repo *feeRepository) SetFeeStatus(ctx context.Context, feeID, status string) error {
	if _, err := repo.db.ExecContext(ctx, "UPDATE fees SET status = $1 WHERE fee_id = $2", status, feeID); err != nil {
		return errors.Wrap(err, "updating fee status")
	}
	return nil
}

func (repo *feeRepository) MarkOverdueFees(ctx context.Context, today string) (int, error) {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE fees SET status = $1 WHERE status = $2 AND due_date < $3", fees.StatusOverdue, fees.StatusPending, today)
	if err != nil {
		return 0, errors.Wrap(err, "marking overdue fees")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting overdue fees")
	}
	return int(n), nil
}
