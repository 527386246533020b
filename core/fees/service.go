package fees

import (
	"context"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/sadhanaschool/backend/core"
	"github.com/sadhanaschool/backend/core/payment"
)

var (
	// errors
	ErrStructureNotFound  = core.NewNotFoundError("fee structure", "Fee structure not found")
	ErrTrackingNotFound   = core.NewNotFoundError("fee tracking", "Fee tracking not found")
	ErrNoFeeStructure     = errors.New("no fee structure for class")
	ErrDuplicatePayment   = core.NewConflictError("Payment already recorded")
	ErrClassNotFound      = core.NewNotFoundError("class", "Class not found")
	ErrNoUpdates          = core.NewValidationError(errors.New("No updates provided"))
	ErrInvalidSignature   = core.NewValidationError(errors.New("Invalid payment signature"))
	ErrInvalidAmount      = core.NewValidationError(errors.New("Amount must be greater than 0"))
	ErrAmountExceedsDue   = core.NewValidationError(errors.New("Amount exceeds the pending balance"))
	ErrOrderMismatch      = core.NewValidationError(errors.New("Payment order does not belong to this fee record"))
	ErrOrderAmountInvalid = core.NewValidationError(errors.New("Payment amount does not match the order"))

	errUniqueIDNotFound = core.NewNotFoundError("fee tracking", "Fee record not found for this Student ID")
)

type (
	Repository interface {
		CreateStructure(ctx context.Context, s Structure) (Structure, error)
		GetStructure(ctx context.Context, id string) (Structure, error)
		// FindStructure matches the section exactly; an empty section is the class-wide structure.
		FindStructure(ctx context.Context, classID, section string) (Structure, error)
		QueryStructures(ctx context.Context, classID string, page core.Page) ([]Structure, error)
		UpdateStructure(ctx context.Context, s Structure) (Structure, error)
		DeleteStructure(ctx context.Context, id string) error
		DeleteStructuresByClass(ctx context.Context, classID string) error

		CreateTracking(ctx context.Context, t Tracking) (Tracking, error)
		GetTracking(ctx context.Context, filter TrackingFilter) (Tracking, error)
		QueryTrackings(ctx context.Context, query TrackingQuery) ([]Tracking, error)
		// RecordPayment locks the tracking matching filter, lets apply credit it and fill the payment,
		// then stores both. It returns ErrDuplicatePayment if the gateway payment was stored already.
		RecordPayment(ctx context.Context, filter TrackingFilter, pay Payment, apply func(*Tracking, *Payment) error) (Tracking, error)
		QueryPayments(ctx context.Context, studentID string) ([]Payment, error)
		// DeleteStudentFees removes the trackings, payments and fees of a student.
		DeleteStudentFees(ctx context.Context, studentID string) error

		CreateFee(ctx context.Context, f Fee) (Fee, error)
		// SetFeeStatus updates the status of a fee. Unknown ids are ignored.
		SetFeeStatus(ctx context.Context, feeID, status string) error
		// MarkOverdueFees flags pending fees due before `today` (YYYY-MM-DD) and returns how many changed.
		MarkOverdueFees(ctx context.Context, today string) (int, error)
	}

	// ClassDirectory resolves the classes fee structures belong to.
	ClassDirectory interface {
		// ClassIDByName returns a *core.NotFoundError for unknown classes.
		ClassIDByName(ctx context.Context, name string) (string, error)
		ClassExists(ctx context.Context, id string) (bool, error)
	}

	// Gateways groups the payment collaborators. Gateway may be nil when online payments are disabled.
	Gateways struct {
		Gateway  payment.Gateway
		Verifier payment.SignatureVerifier
		Orders   payment.OrderStore
		Currency string
	}

	Service struct {
		repo     Repository
		classes  ClassDirectory
		pay      Gateways
		validate *validator.Validate
		conf     *core.Config
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	classes ClassDirectory,
	pay Gateways,
	validate *validator.Validate,
	conf *core.Config,
	logger core.Logger,
) *Service {
	if pay.Orders == nil {
		pay.Orders = payment.NewMemoryOrderStore(conf.Redis.OrderTTL)
	}
	if pay.Currency == "" {
		pay.Currency = "INR"
	}
	return &Service{
		repo:     repo,
		classes:  classes,
		pay:      pay,
		validate: validate,
		conf:     conf,
		logger:   logger,
	}
}

func (svc *Service) CreateStructure(ctx context.Context, ns NewStructure) (Structure, error) {
	ns.Clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Structure{}, err
	}
	ok, err := svc.classes.ClassExists(ctx, ns.ClassID)
	if err != nil {
		return Structure{}, errors.Wrap(err, "checking class")
	}
	if !ok {
		return Structure{}, ErrClassNotFound
	}

	now := core.NowFunc()
	return svc.repo.CreateStructure(ctx, Structure{
		ID:          core.GenerateID("fee_"),
		ClassID:     ns.ClassID,
		Section:     ns.Section,
		TuitionFee:  ns.TuitionFee,
		ExamFee:     ns.ExamFee,
		LabFee:      ns.LabFee,
		Transport:   ns.Transport,
		Scholarship: ns.Scholarship,
		Frequency:   ns.Frequency,
		Remarks:     ns.Remarks,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) UpdateStructure(ctx context.Context, id string, su StructureUpdate) (Structure, error) {
	if su.IsEmpty() {
		return Structure{}, ErrNoUpdates
	}
	if err := svc.validate.Struct(su); err != nil {
		return Structure{}, err
	}
	s, err := svc.repo.GetStructure(ctx, id)
	if err != nil {
		return Structure{}, err
	}
	su.apply(&s)
	s.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateStructure(ctx, s)
}

func (svc *Service) DeleteStructure(ctx context.Context, id string) error {
	return svc.repo.DeleteStructure(ctx, id)
}

func (svc *Service) ListStructures(ctx context.Context, classID string, page core.Page) ([]Structure, error) {
	page.Clean()
	return svc.repo.QueryStructures(ctx, core.CleanString(classID), page)
}

// DeleteStructuresForClass removes every structure of a deleted class.
func (svc *Service) DeleteStructuresForClass(ctx context.Context, classID string) error {
	return svc.repo.DeleteStructuresByClass(ctx, classID)
}

// SeedDefaultStructures upserts the class-wide structure of every numbered class:
// class N costs N×5000, split 62.5% tuition, 12.5% exam, 6.25% lab and 18.75% transport.
func (svc *Service) SeedDefaultStructures(ctx context.Context) error {
	for _, name := range svc.conf.School.Classes {
		n, err := strconv.Atoi(name)
		if err != nil || n <= 0 {
			continue
		}
		classID, err := svc.classes.ClassIDByName(ctx, name)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return errors.Wrapf(err, "resolving class %s", name)
		}

		total := float64(n * 5000)
		now := core.NowFunc()
		s, err := svc.repo.FindStructure(ctx, classID, "")
		create := false
		if err != nil {
			if errors.Cause(err) != ErrStructureNotFound {
				return err
			}
			create = true
			s = Structure{ID: core.GenerateID("fee_"), ClassID: classID, Frequency: FrequencyYearly, CreatedAt: now}
		}
		s.TuitionFee = total * 0.625
		s.ExamFee = total * 0.125
		s.LabFee = total * 0.0625
		s.Transport = total * 0.1875
		s.Scholarship = 0
		s.Remarks = "Default fee structure for class " + name
		s.UpdatedAt = now

		if create {
			_, err = svc.repo.CreateStructure(ctx, s)
		} else {
			_, err = svc.repo.UpdateStructure(ctx, s)
		}
		if err != nil {
			return errors.Wrapf(err, "saving default fee structure of class %s", name)
		}
	}
	return nil
}

// StructureFor returns the structure of a section, falling back to the class-wide one.
func (svc *Service) StructureFor(ctx context.Context, className, section string) (Structure, error) {
	classID, err := svc.classes.ClassIDByName(ctx, className)
	if err != nil {
		if core.IsNotFound(err) {
			return Structure{}, ErrNoFeeStructure
		}
		return Structure{}, err
	}
	if section != "" {
		s, err := svc.repo.FindStructure(ctx, classID, section)
		if err == nil {
			return s, nil
		}
		if errors.Cause(err) != ErrStructureNotFound {
			return Structure{}, err
		}
	}
	s, err := svc.repo.FindStructure(ctx, classID, "")
	if errors.Cause(err) == ErrStructureNotFound {
		return Structure{}, ErrNoFeeStructure
	}
	return s, err
}

// OpenTracking creates the fee tracking of a newly registered student.
// An existing tracking of the student is returned as is.
// It returns ErrNoFeeStructure when neither the section nor the class has a structure.
func (svc *Service) OpenTracking(ctx context.Context, nt NewTracking) (Tracking, error) {
	existing, err := svc.repo.GetTracking(ctx, TrackingFilter{StudentID: nt.StudentID})
	if err == nil {
		return existing, nil
	}
	if errors.Cause(err) != ErrTrackingNotFound {
		return Tracking{}, err
	}

	s, err := svc.StructureFor(ctx, nt.ClassName, nt.Section)
	if err != nil {
		return Tracking{}, err
	}

	now := core.NowFunc()
	due := s.DueDate(now)
	t := Tracking{
		ID:              core.GenerateID("track_"),
		StudentID:       nt.StudentID,
		UniqueStudentID: nt.UniqueStudentID,
		ClassName:       nt.ClassName,
		Section:         nt.Section,
		AcademicYear:    nt.AcademicYear,
		TotalFeeAmount:  s.Total(),
		PaymentHistory:  PaymentHistory{},
		DueDate:         &due,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	t.Recompute()
	return svc.repo.CreateTracking(ctx, t)
}

// Summary returns the fee summary of a student, looked up by unique ID first.
// Students without a tracking get EmptySummary.
func (svc *Service) Summary(ctx context.Context, studentID, uniqueStudentID string) (Summary, error) {
	filters := make([]TrackingFilter, 0, 2)
	if uniqueStudentID != "" {
		filters = append(filters, TrackingFilter{UniqueStudentID: uniqueStudentID})
	}
	filters = append(filters, TrackingFilter{StudentID: studentID})

	for _, f := range filters {
		t, err := svc.repo.GetTracking(ctx, f)
		if err == nil {
			return t.Summary(), nil
		}
		if errors.Cause(err) != ErrTrackingNotFound {
			return Summary{}, err
		}
	}
	return EmptySummary, nil
}

// TrackingForStudent returns the tracking of a student by internal id.
func (svc *Service) TrackingForStudent(ctx context.Context, studentID string) (Tracking, error) {
	return svc.repo.GetTracking(ctx, TrackingFilter{StudentID: studentID})
}

// StudentFees looks the tracking up by internal id, then by unique ID.
// Unknown students get an empty PENDING record.
func (svc *Service) StudentFees(ctx context.Context, id string) (Tracking, error) {
	for _, f := range []TrackingFilter{{StudentID: id}, {UniqueStudentID: id}} {
		t, err := svc.repo.GetTracking(ctx, f)
		if err == nil {
			return t, nil
		}
		if errors.Cause(err) != ErrTrackingNotFound {
			return Tracking{}, err
		}
	}
	return Tracking{
		StudentID:      id,
		PaymentStatus:  StatusPending,
		PaymentHistory: PaymentHistory{},
	}, nil
}

func (svc *Service) TrackingByUniqueID(ctx context.Context, uniqueStudentID string) (Tracking, error) {
	t, err := svc.repo.GetTracking(ctx, TrackingFilter{UniqueStudentID: core.CleanString(uniqueStudentID)})
	if errors.Cause(err) == ErrTrackingNotFound {
		return Tracking{}, errUniqueIDNotFound
	}
	return t, err
}

// Transactions lists the payments of a student.
func (svc *Service) Transactions(ctx context.Context, studentID string) ([]Transaction, error) {
	payments, err := svc.repo.QueryPayments(ctx, studentID)
	if err != nil {
		return nil, err
	}
	txs := make([]Transaction, len(payments))
	for i, p := range payments {
		txs[i] = p.Transaction()
	}
	return txs, nil
}

func (svc *Service) CreateFee(ctx context.Context, nf NewFee) (Fee, error) {
	nf.StudentID = core.CleanString(nf.StudentID)
	nf.FeeType = core.CleanString(nf.FeeType)
	nf.DueDate = core.CleanString(nf.DueDate)
	if err := svc.validate.Struct(nf); err != nil {
		return Fee{}, err
	}
	return svc.repo.CreateFee(ctx, Fee{
		ID:           core.GenerateID("fee_"),
		StudentID:    nf.StudentID,
		Amount:       core.RoundMoney(nf.Amount),
		DueDate:      nf.DueDate,
		Status:       StatusPending,
		FeeType:      nf.FeeType,
		AcademicYear: nf.AcademicYear,
		CreatedAt:    core.NowFunc(),
	})
}

// PurgeStudent removes every fee document of a deleted student.
func (svc *Service) PurgeStudent(ctx context.Context, studentID string) error {
	return svc.repo.DeleteStudentFees(ctx, studentID)
}

// PendingTotal sums the pending amount of every tracking.
func (svc *Service) PendingTotal(ctx context.Context) (float64, error) {
	trackings, err := svc.repo.QueryTrackings(ctx, TrackingQuery{})
	if err != nil {
		return 0, err
	}
	var total float64
	for _, t := range trackings {
		total += t.PendingAmount
	}
	return core.RoundMoney(total), nil
}
