package fees

import (
	"context"
	"sort"
	"strconv"

	"github.com/sadhanaschool/backend/core"
)

type (
	StatusTotals struct {
		Count  int     `json:"count"`
		Amount float64 `json:"amount"`
	}

	FinanceSummary struct {
		TotalExpected        float64                 `json:"total_expected"`
		Collected            float64                 `json:"collected"`
		Pending              float64                 `json:"pending"`
		CollectionPercentage float64                 `json:"collection_percentage"`
		ByStatus             map[string]StatusTotals `json:"by_status"`
	}

	MonthlyCollection struct {
		Month        string  `json:"month"` // YYYY-MM
		Amount       float64 `json:"amount"`
		PaymentCount int     `json:"payment_count"`
	}

	// GroupReport aggregates the trackings of a class, or of one of its sections.
	GroupReport struct {
		Class                string  `json:"class"`
		Section              string  `json:"section,omitempty"`
		StudentCount         int     `json:"student_count"`
		TotalExpected        float64 `json:"total_expected"`
		TotalPaid            float64 `json:"total_paid"`
		TotalPending         float64 `json:"total_pending"`
		CollectionPercentage float64 `json:"collection_percentage"`
	}
)

// TimeseriesMonths is how many months the collection timeseries covers.
const TimeseriesMonths = 12

func (svc *Service) FinanceSummary(ctx context.Context) (FinanceSummary, error) {
	trackings, err := svc.repo.QueryTrackings(ctx, TrackingQuery{})
	if err != nil {
		return FinanceSummary{}, err
	}
	sum := FinanceSummary{ByStatus: map[string]StatusTotals{
		StatusPending: {},
		StatusPartial: {},
		StatusPaid:    {},
	}}
	for _, t := range trackings {
		sum.TotalExpected += t.TotalFeeAmount
		sum.Collected += t.PaidAmount
		sum.Pending += t.PendingAmount

		st := sum.ByStatus[t.PaymentStatus]
		st.Count++
		st.Amount = core.RoundMoney(st.Amount + t.TotalFeeAmount)
		sum.ByStatus[t.PaymentStatus] = st
	}
	sum.TotalExpected = core.RoundMoney(sum.TotalExpected)
	sum.Collected = core.RoundMoney(sum.Collected)
	sum.Pending = core.RoundMoney(sum.Pending)
	sum.CollectionPercentage = core.Percentage(sum.Collected, sum.TotalExpected)
	return sum, nil
}

// CollectionTimeseries returns the amount collected per month over the latest months with payments, oldest first.
func (svc *Service) CollectionTimeseries(ctx context.Context) ([]MonthlyCollection, error) {
	trackings, err := svc.repo.QueryTrackings(ctx, TrackingQuery{})
	if err != nil {
		return nil, err
	}
	byMonth := make(map[string]*MonthlyCollection)
	for _, t := range trackings {
		for _, rec := range t.PaymentHistory {
			month := rec.Date.UTC().Format("2006-01")
			mc, ok := byMonth[month]
			if !ok {
				mc = &MonthlyCollection{Month: month}
				byMonth[month] = mc
			}
			mc.Amount = core.RoundMoney(mc.Amount + rec.Amount)
			mc.PaymentCount++
		}
	}

	series := make([]MonthlyCollection, 0, len(byMonth))
	for _, mc := range byMonth {
		series = append(series, *mc)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Month < series[j].Month })
	if len(series) > TimeseriesMonths {
		series = series[len(series)-TimeseriesMonths:]
	}
	return series, nil
}

// ClassReport aggregates the trackings per class.
func (svc *Service) ClassReport(ctx context.Context) ([]GroupReport, error) {
	trackings, err := svc.repo.QueryTrackings(ctx, TrackingQuery{})
	if err != nil {
		return nil, err
	}
	return groupTrackings(trackings, func(t Tracking) (string, string) { return t.ClassName, "" }), nil
}

// SectionReport aggregates the trackings per class and section. An empty className covers every class.
func (svc *Service) SectionReport(ctx context.Context, className string) ([]GroupReport, error) {
	trackings, err := svc.repo.QueryTrackings(ctx, TrackingQuery{ClassName: core.CleanString(className)})
	if err != nil {
		return nil, err
	}
	return groupTrackings(trackings, func(t Tracking) (string, string) { return t.ClassName, t.Section }), nil
}

func groupTrackings(trackings []Tracking, key func(Tracking) (string, string)) []GroupReport {
	type groupKey struct{ class, section string }
	groups := make(map[groupKey]*GroupReport)
	for _, t := range trackings {
		class, section := key(t)
		k := groupKey{class, section}
		g, ok := groups[k]
		if !ok {
			g = &GroupReport{Class: class, Section: section}
			groups[k] = g
		}
		g.StudentCount++
		g.TotalExpected += t.TotalFeeAmount
		g.TotalPaid += t.PaidAmount
		g.TotalPending += t.PendingAmount
	}

	report := make([]GroupReport, 0, len(groups))
	for _, g := range groups {
		g.TotalExpected = core.RoundMoney(g.TotalExpected)
		g.TotalPaid = core.RoundMoney(g.TotalPaid)
		g.TotalPending = core.RoundMoney(g.TotalPending)
		g.CollectionPercentage = core.Percentage(g.TotalPaid, g.TotalExpected)
		report = append(report, *g)
	}
	sort.Slice(report, func(i, j int) bool {
		if report[i].Class != report[j].Class {
			return lessClass(report[i].Class, report[j].Class)
		}
		return report[i].Section < report[j].Section
	})
	return report
}

// lessClass orders numbered classes numerically and everything else alphabetically after them.
func lessClass(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
