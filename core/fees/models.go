package fees

import (
	"database/sql/driver"
	"time"

	"github.com/sadhanaschool/backend/core"
)

// Payment statuses
const (
	StatusPending = "PENDING"
	StatusPartial = "PARTIAL"
	StatusPaid    = "PAID"
	StatusOverdue = "OVERDUE"
)

// Structure frequencies
const (
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyYearly    = "yearly"
)

const (
	MethodOnline   = "online"
	PaymentSuccess = "SUCCESS"
)

// Structure is the fee breakdown of a class, or of one of its sections when Section is set.
type Structure struct {
	ID          string    `json:"fee_id" db:"fee_id"`
	ClassID     string    `json:"class_id" db:"class_id"`
	Section     string    `json:"section,omitempty" db:"section"`
	TuitionFee  float64   `json:"tuition_fee" db:"tuition_fee"`
	ExamFee     float64   `json:"exam_fee" db:"exam_fee"`
	LabFee      float64   `json:"lab_fee" db:"lab_fee"`
	Transport   float64   `json:"transport" db:"transport"`
	Scholarship float64   `json:"scholarship" db:"scholarship"`
	Frequency   string    `json:"frequency" db:"frequency"`
	Remarks     string    `json:"remarks,omitempty" db:"remarks"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Total is the amount due: every component minus the scholarship, never below 0.
func (s Structure) Total() float64 {
	total := s.TuitionFee + s.ExamFee + s.LabFee + s.Transport - s.Scholarship
	if total < 0 {
		return 0
	}
	return core.RoundMoney(total)
}

// DueDate returns when a fee opened at `from` is due.
func (s Structure) DueDate(from time.Time) time.Time {
	switch s.Frequency {
	case FrequencyMonthly:
		return from.AddDate(0, 1, 0)
	case FrequencyQuarterly:
		return from.AddDate(0, 3, 0)
	default:
		return from.AddDate(1, 0, 0)
	}
}

type NewStructure struct {
	ClassID     string  `json:"class_id" query:"class_id" validate:"required"`
	Section     string  `json:"section" query:"section" validate:"omitempty,section"`
	TuitionFee  float64 `json:"tuition_fee" query:"tuition_fee" validate:"gte=0"`
	ExamFee     float64 `json:"exam_fee" query:"exam_fee" validate:"gte=0"`
	LabFee      float64 `json:"lab_fee" query:"lab_fee" validate:"gte=0"`
	Transport   float64 `json:"transport" query:"transport" validate:"gte=0"`
	Scholarship float64 `json:"scholarship" query:"scholarship" validate:"gte=0"`
	Frequency   string  `json:"frequency" query:"frequency" validate:"omitempty,oneof=monthly quarterly yearly"`
	Remarks     string  `json:"remarks" query:"remarks"`
}

func (ns *NewStructure) Clean() {
	ns.ClassID = core.CleanString(ns.ClassID)
	ns.Section = core.CleanString(ns.Section)
	ns.Frequency = core.CleanString(ns.Frequency, true /* lower */)
	if ns.Frequency == "" {
		ns.Frequency = FrequencyYearly
	}
	ns.Remarks = core.CleanString(ns.Remarks)
}

// StructureUpdate holds the fields to change. Nil fields are left untouched.
type StructureUpdate struct {
	Section     *string  `json:"section" query:"section" validate:"omitempty,section"`
	TuitionFee  *float64 `json:"tuition_fee" query:"tuition_fee" validate:"omitempty,gte=0"`
	ExamFee     *float64 `json:"exam_fee" query:"exam_fee" validate:"omitempty,gte=0"`
	LabFee      *float64 `json:"lab_fee" query:"lab_fee" validate:"omitempty,gte=0"`
	Transport   *float64 `json:"transport" query:"transport" validate:"omitempty,gte=0"`
	Scholarship *float64 `json:"scholarship" query:"scholarship" validate:"omitempty,gte=0"`
	Frequency   *string  `json:"frequency" query:"frequency" validate:"omitempty,oneof=monthly quarterly yearly"`
	Remarks     *string  `json:"remarks" query:"remarks"`
}

func (su StructureUpdate) IsEmpty() bool {
	return su.Section == nil && su.TuitionFee == nil && su.ExamFee == nil && su.LabFee == nil &&
		su.Transport == nil && su.Scholarship == nil && su.Frequency == nil && su.Remarks == nil
}

func (su StructureUpdate) apply(s *Structure) {
	if su.Section != nil {
		s.Section = core.CleanString(*su.Section)
	}
	if su.TuitionFee != nil {
		s.TuitionFee = *su.TuitionFee
	}
	if su.ExamFee != nil {
		s.ExamFee = *su.ExamFee
	}
	if su.LabFee != nil {
		s.LabFee = *su.LabFee
	}
	if su.Transport != nil {
		s.Transport = *su.Transport
	}
	if su.Scholarship != nil {
		s.Scholarship = *su.Scholarship
	}
	if su.Frequency != nil {
		s.Frequency = *su.Frequency
	}
	if su.Remarks != nil {
		s.Remarks = core.CleanString(*su.Remarks)
	}
}

// PaymentRecord is one credited payment in a tracking's history.
type PaymentRecord struct {
	Date      time.Time `json:"date"`
	Amount    float64   `json:"amount"`
	Method    string    `json:"method"`
	OrderID   string    `json:"razorpay_order_id,omitempty"`
	PaymentID string    `json:"razorpay_payment_id,omitempty"`
}

// PaymentHistory is stored as a JSONB array.
type PaymentHistory []PaymentRecord

func (h PaymentHistory) Value() (driver.Value, error) {
	if h == nil {
		return core.JSONValue([]PaymentRecord{})
	}
	return core.JSONValue([]PaymentRecord(h))
}

func (h *PaymentHistory) Scan(src interface{}) error {
	return core.ScanJSON(src, (*[]PaymentRecord)(h))
}

// Tracking is the fee account of one student for an academic year.
type Tracking struct {
	ID              string         `json:"tracking_id" db:"tracking_id"`
	StudentID       string         `json:"student_id" db:"student_id"`
	UniqueStudentID string         `json:"unique_student_id" db:"unique_student_id"`
	ClassName       string         `json:"class_name" db:"class_name"`
	Section         string         `json:"section" db:"section"`
	AcademicYear    string         `json:"academic_year" db:"academic_year"`
	TotalFeeAmount  float64        `json:"total_fee_amount" db:"total_fee_amount"`
	PaidAmount      float64        `json:"paid_amount" db:"paid_amount"`
	PendingAmount   float64        `json:"pending_amount" db:"pending_amount"`
	PaymentStatus   string         `json:"payment_status" db:"payment_status"`
	PaymentHistory  PaymentHistory `json:"payment_history" db:"payment_history"`
	LastPaymentDate *time.Time     `json:"last_payment_date,omitempty" db:"last_payment_date"`
	DueDate         *time.Time     `json:"due_date,omitempty" db:"due_date"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// Recompute derives paid, pending, status and last payment date from the history and total.
func (t *Tracking) Recompute() {
	var paid float64
	var last *time.Time
	for i, rec := range t.PaymentHistory {
		paid += rec.Amount
		if last == nil || rec.Date.After(*last) {
			last = &t.PaymentHistory[i].Date
		}
	}
	t.PaidAmount = core.RoundMoney(paid)

	pending := core.RoundMoney(t.TotalFeeAmount - t.PaidAmount)
	if pending < 0 {
		pending = 0
	}
	t.PendingAmount = pending

	switch {
	case t.PendingAmount <= 0:
		t.PaymentStatus = StatusPaid
	case t.PaidAmount > 0:
		t.PaymentStatus = StatusPartial
	default:
		t.PaymentStatus = StatusPending
	}

	if last != nil {
		lastDate := *last
		t.LastPaymentDate = &lastDate
	} else {
		t.LastPaymentDate = nil
	}
}

// HasPayment reports whether the gateway payment was credited already.
func (t Tracking) HasPayment(gatewayPaymentID string) bool {
	if gatewayPaymentID == "" {
		return false
	}
	for _, rec := range t.PaymentHistory {
		if rec.PaymentID == gatewayPaymentID {
			return true
		}
	}
	return false
}

// Credit appends the payment to the history and recomputes the balances.
func (t *Tracking) Credit(rec PaymentRecord) error {
	if t.HasPayment(rec.PaymentID) {
		return ErrDuplicatePayment
	}
	t.PaymentHistory = append(t.PaymentHistory, rec)
	t.Recompute()
	t.UpdatedAt = rec.Date
	return nil
}

func (t Tracking) Summary() Summary {
	return Summary{
		PaymentStatus:  t.PaymentStatus,
		TotalFeeAmount: t.TotalFeeAmount,
		PaidAmount:     t.PaidAmount,
		PendingAmount:  t.PendingAmount,
	}
}

// Summary is the fee state shown next to a student.
type Summary struct {
	PaymentStatus  string  `json:"payment_status"`
	TotalFeeAmount float64 `json:"total_fee_amount"`
	PaidAmount     float64 `json:"paid_amount"`
	PendingAmount  float64 `json:"pending_amount"`
}

var EmptySummary = Summary{PaymentStatus: StatusPending}

type NewTracking struct {
	StudentID       string
	UniqueStudentID string
	ClassName       string
	Section         string
	AcademicYear    string
}

// Payment is a credited gateway payment.
type Payment struct {
	ID               string    `json:"payment_id" db:"payment_id"`
	TrackingID       string    `json:"fee_id" db:"tracking_id"`
	StudentID        string    `json:"student_id" db:"student_id"`
	UniqueStudentID  string    `json:"unique_student_id" db:"unique_student_id"`
	Amount           float64   `json:"amount" db:"amount"`
	Method           string    `json:"payment_method" db:"payment_method"`
	OrderID          string    `json:"razorpay_order_id" db:"order_id"`
	GatewayPaymentID string    `json:"razorpay_payment_id" db:"gateway_payment_id"`
	Status           string    `json:"status" db:"status"`
	PaymentDate      time.Time `json:"payment_date" db:"payment_date"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// Transaction is the client view of a Payment.
type Transaction struct {
	PaymentID        string    `json:"payment_id"`
	TransactionID    string    `json:"transaction_id"`
	FeeID            string    `json:"fee_id"`
	Amount           float64   `json:"amount"`
	Status           string    `json:"status"`
	PaymentDate      time.Time `json:"payment_date"`
	OrderID          string    `json:"razorpay_order_id"`
	GatewayPaymentID string    `json:"razorpay_payment_id"`
}

func (p Payment) Transaction() Transaction {
	txID := p.GatewayPaymentID
	if txID == "" {
		txID = p.ID
	}
	return Transaction{
		PaymentID:        p.ID,
		TransactionID:    txID,
		FeeID:            p.TrackingID,
		Amount:           p.Amount,
		Status:           p.Status,
		PaymentDate:      p.PaymentDate,
		OrderID:          p.OrderID,
		GatewayPaymentID: p.GatewayPaymentID,
	}
}

// Fee is a single fee charged to a student (one-off charges outside the tracked structure).
type Fee struct {
	ID           string    `json:"fee_id" db:"fee_id"`
	StudentID    string    `json:"student_id" db:"student_id"`
	Amount       float64   `json:"amount" db:"amount"`
	DueDate      string    `json:"due_date" db:"due_date"` // YYYY-MM-DD
	Status       string    `json:"status" db:"status"`
	FeeType      string    `json:"fee_type" db:"fee_type"`
	AcademicYear string    `json:"academic_year" db:"academic_year"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type NewFee struct {
	StudentID    string  `json:"student_id" validate:"required"`
	Amount       float64 `json:"amount" validate:"gt=0"`
	DueDate      string  `json:"due_date" validate:"required,datetime=2006-01-02"`
	FeeType      string  `json:"fee_type" validate:"required,notblank"`
	AcademicYear string  `json:"academic_year" validate:"required,academicyear"`
}

type (
	// TrackingFilter selects one tracking by the first non-empty field.
	TrackingFilter struct {
		ID              string
		StudentID       string
		UniqueStudentID string
	}

	TrackingQuery struct {
		ClassName string
		Unpaid    bool       // pending_amount > 0
		DueBefore *time.Time // due_date < DueBefore
	}
)
