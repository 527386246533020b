package inmemdb

import (
	"context"

	"github.com/sadhanaschool/backend/core"
	"github.com/sadhanaschool/backend/core/fees"
)

type feeRepository struct {
	db *DB
}

var _ fees.Repository = (*feeRepository)(nil)

func NewFeeRepository(db *DB) *feeRepository {
	return &feeRepository{db: db}
}

func (repo *feeRepository) CreateStructure(_ context.Context, s fees.Structure) (fees.Structure, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.structures = append(repo.db.structures, s)
	return s, nil
}

func (repo *feeRepository) GetStructure(_ context.Context, id string) (fees.Structure, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.structures {
		if s.ID == id {
			return s, nil
		}
	}
	return fees.Structure{}, fees.ErrStructureNotFound
}

func (repo *feeRepository) FindStructure(_ context.Context, classID, section string) (fees.Structure, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.structures {
		if s.ClassID == classID && s.Section == section {
			return s, nil
		}
	}
	return fees.Structure{}, fees.ErrStructureNotFound
}

func (repo *feeRepository) QueryStructures(_ context.Context, classID string, page core.Page) ([]fees.Structure, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	structures := make([]fees.Structure, 0)
	for _, s := range repo.db.structures {
		if classID == "" || s.ClassID == classID {
			structures = append(structures, s)
		}
	}
	start, end := page.Bounds(len(structures))
	return structures[start:end], nil
}

func (repo *feeRepository) UpdateStructure(_ context.Context, s fees.Structure) (fees.Structure, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, existing := range repo.db.structures {
		if existing.ID == s.ID {
			repo.db.structures[i] = s
			return s, nil
		}
	}
	return fees.Structure{}, fees.ErrStructureNotFound
}

func (repo *feeRepository) DeleteStructure(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, s := range repo.db.structures {
		if s.ID == id {
			repo.db.structures = append(repo.db.structures[:i], repo.db.structures[i+1:]...)
			return nil
		}
	}
	return fees.ErrStructureNotFound
}

func (repo *feeRepository) DeleteStructuresByClass(_ context.Context, classID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	kept := repo.db.structures[:0]
	for _, s := range repo.db.structures {
		if s.ClassID != classID {
			kept = append(kept, s)
		}
	}
	repo.db.structures = kept
	return nil
}

func (repo *feeRepository) CreateTracking(_ context.Context, t fees.Tracking) (fees.Tracking, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.trackings = append(repo.db.trackings, cloneTracking(t))
	return t, nil
}

func matchTracking(t fees.Tracking, filter fees.TrackingFilter) bool {
	switch {
	case filter.ID != "":
		return t.ID == filter.ID
	case filter.StudentID != "":
		return t.StudentID == filter.StudentID
	case filter.UniqueStudentID != "":
		return t.UniqueStudentID == filter.UniqueStudentID
	}
	return false
}

// trackingIndex must be called with the lock held.
func (repo *feeRepository) trackingIndex(filter fees.TrackingFilter) int {
	for i, t := range repo.db.trackings {
		if matchTracking(t, filter) {
			return i
		}
	}
	return -1
}

func (repo *feeRepository) GetTracking(_ context.Context, filter fees.TrackingFilter) (fees.Tracking, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if i := repo.trackingIndex(filter); i >= 0 {
		return cloneTracking(repo.db.trackings[i]), nil
	}
	return fees.Tracking{}, fees.ErrTrackingNotFound
}

func (repo *feeRepository) QueryTrackings(_ context.Context, query fees.TrackingQuery) ([]fees.Tracking, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	trackings := make([]fees.Tracking, 0)
	for _, t := range repo.db.trackings {
		if query.ClassName != "" && t.ClassName != query.ClassName {
			continue
		}
		if query.Unpaid && t.PendingAmount <= 0 {
			continue
		}
		if query.DueBefore != nil && (t.DueDate == nil || !t.DueDate.Before(*query.DueBefore)) {
			continue
		}
		trackings = append(trackings, cloneTracking(t))
	}
	return trackings, nil
}

func (repo *feeRepository) RecordPayment(
	_ context.Context,
	filter fees.TrackingFilter,
	pay fees.Payment,
	apply func(*fees.Tracking, *fees.Payment) error,
) (fees.Tracking, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	i := repo.trackingIndex(filter)
	if i < 0 {
		return fees.Tracking{}, fees.ErrTrackingNotFound
	}
	for _, p := range repo.db.payments {
		if pay.GatewayPaymentID != "" && p.GatewayPaymentID == pay.GatewayPaymentID {
			return fees.Tracking{}, fees.ErrDuplicatePayment
		}
	}

	t := cloneTracking(repo.db.trackings[i])
	if err := apply(&t, &pay); err != nil {
		return fees.Tracking{}, err
	}
	repo.db.trackings[i] = cloneTracking(t)
	repo.db.payments = append(repo.db.payments, pay)
	return t, nil
}

func (repo *feeRepository) QueryPayments(_ context.Context, studentID string) ([]fees.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	payments := make([]fees.Payment, 0)
	for _, p := range repo.db.payments {
		if p.StudentID == studentID {
			payments = append(payments, p)
		}
	}
	return payments, nil
}

func (repo *feeRepository) DeleteStudentFees(_ context.Context, studentID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	trackings := repo.db.trackings[:0]
	for _, t := range repo.db.trackings {
		if t.StudentID != studentID {
			trackings = append(trackings, t)
		}
	}
	repo.db.trackings = trackings

	payments := repo.db.payments[:0]
	for _, p := range repo.db.payments {
		if p.StudentID != studentID {
			payments = append(payments, p)
		}
	}
	repo.db.payments = payments

	feeList := repo.db.fees[:0]
	for _, f := range repo.db.fees {
		if f.StudentID != studentID {
			feeList = append(feeList, f)
		}
	}
	repo.db.fees = feeList
	return nil
}

func (repo *feeRepository) CreateFee(_ context.Context, f fees.Fee) (fees.Fee, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.fees = append(repo.db.fees, f)
	return f, nil
}

func (repo *feeRepository) SetFeeStatus(_ context.Context, feeID, status string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, f := range repo.db.fees {
		if f.ID == feeID {
			repo.db.fees[i].Status = status
		}
	}
	return nil
}

func (repo *feeRepository) MarkOverdueFees(_ context.Context, today string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	n := 0
	for i, f := range repo.db.fees {
		if f.Status == fees.StatusPending && f.DueDate < today {
			repo.db.fees[i].Status = fees.StatusOverdue
			n++
		}
	}
	return n, nil
}
