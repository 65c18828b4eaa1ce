package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/easygo/easygo-schools/internal/config"
	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrUnknownReport is returned for a report name nobody registered.
var ErrUnknownReport = errors.New("unknown report")

// Report names.
const (
	ReportFeeCollection     = "fee-collection"
	ReportAttendanceSummary = "attendance-summary"
	ReportTrialBalance      = "trial-balance"
	ReportBudgetVariance    = "budget-variance"
	ReportStockBalance      = "stock-balance"
)

// chartLimit caps the number of bars drawn per chart.
const chartLimit = 10

type reportStore interface {
	FeeCollection(ctx context.Context, filter model.ReportFilter) ([]repository.FeeCollectionRow, error)
}

type attendanceSummaries interface {
	Summary(ctx context.Context, classID *int, from, to model.Date) ([]model.AttendanceSummary, error)
}

type trialBalances interface {
	TrialBalance(ctx context.Context, from, to model.Date) ([]model.AccountBalance, error)
}

type budgetLinesForReport interface {
	ListLinesForReport(ctx context.Context, budgetID *int) ([]model.BudgetLine, error)
}

type stockItemsForReport interface {
	ListAllItems(ctx context.Context, warehouse string) ([]model.StockItem, error)
}

// ReportSources groups the stores the reports read from.
type ReportSources struct {
	Fees       reportStore
	Attendance attendanceSummaries
	Ledger     trialBalances
	Budgets    budgetLinesForReport
	Stock      stockItemsForReport
}

// ReportService runs the tabular reports and caches their results.
type ReportService struct {
	src   ReportSources
	cache jsonCache
	ttl   time.Duration
	clock Clock
	log   zerolog.Logger
}

// NewReportService creates a new ReportService. cache may be nil.
func NewReportService(src ReportSources, cache jsonCache, ttl time.Duration, clock Clock, log zerolog.Logger) *ReportService {
	return &ReportService{src: src, cache: cache, ttl: ttl, clock: clock, log: log.With().Str("component", "report").Logger()}
}

// Names lists the available reports.
func (s *ReportService) Names() []string {
	return []string{ReportFeeCollection, ReportAttendanceSummary, ReportTrialBalance, ReportBudgetVariance, ReportStockBalance}
}

// Run executes a report, serving it from the cache when a fresh copy of
// the same report and filters exists.
func (s *ReportService) Run(ctx context.Context, name string, filter model.ReportFilter) (*model.Report, error) {
	key, err := reportCacheKey(name, filter)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		var cached model.Report
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.log.Warn().Err(err).Str("report", name).Msg("Report cache read failed")
		}
		if hit {
			return &cached, nil
		}
	}

	rep, err := s.build(ctx, name, filter)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.SetJSON(ctx, key, rep, s.ttl); err != nil {
			s.log.Warn().Err(err).Str("report", name).Msg("Report cache write failed")
		}
	}
	return rep, nil
}

func (s *ReportService) build(ctx context.Context, name string, filter model.ReportFilter) (*model.Report, error) {
	today := s.clock.today()
	switch name {
	case ReportFeeCollection:
		rows, err := s.src.Fees.FeeCollection(ctx, filter)
		if err != nil {
			return nil, err
		}
		return FeeCollectionReport(rows), nil

	case ReportAttendanceSummary:
		from, to := reportPeriod(filter, model.NewDate(today.Year(), today.Month(), 1), today)
		if to.Before(from) {
			return nil, invalid("to", "must not be before from")
		}
		rows, err := s.src.Attendance.Summary(ctx, filter.SchoolClassID, from, to)
		if err != nil {
			return nil, err
		}
		return AttendanceSummaryReport(rows), nil

	case ReportTrialBalance:
		from, to := reportPeriod(filter, model.NewDate(today.Year(), time.January, 1), today)
		if to.Before(from) {
			return nil, invalid("to", "must not be before from")
		}
		rows, err := s.src.Ledger.TrialBalance(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return TrialBalanceReport(rows), nil

	case ReportBudgetVariance:
		lines, err := s.src.Budgets.ListLinesForReport(ctx, filter.BudgetID)
		if err != nil {
			return nil, err
		}
		return BudgetVarianceReport(lines), nil

	case ReportStockBalance:
		items, err := s.src.Stock.ListAllItems(ctx, filter.Warehouse)
		if err != nil {
			return nil, err
		}
		return StockBalanceReport(items), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownReport, name)
}

func reportPeriod(filter model.ReportFilter, defFrom, defTo model.Date) (model.Date, model.Date) {
	from, to := defFrom, defTo
	if filter.From != nil {
		from = *filter.From
	}
	if filter.To != nil {
		to = *filter.To
	}
	return from, to
}

// reportCacheKey derives a stable key from the report name and its filters.
func reportCacheKey(name string, filter model.ReportFilter) (string, error) {
	raw, err := json.Marshal(filter)
	if err != nil {
		return "", fmt.Errorf("encode report filter: %w", err)
	}
	return config.CacheKey.ReportKey(name, uuid.NewSHA1(uuid.NameSpaceOID, raw).String()), nil
}

func percentOf(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return model.RoundMoney(part / whole * 100)
}

// FeeCollectionReport lays out billed, collected and outstanding amounts
// per fee type and class.
func FeeCollectionReport(rows []repository.FeeCollectionRow) *model.Report {
	rep := &model.Report{
		Name:  ReportFeeCollection,
		Title: "Fee Collection Summary",
		Columns: []model.ReportColumn{
			{Field: "fee_type", Label: "Fee Type", Type: "Data", Width: 150},
			{Field: "school_class", Label: "Class", Type: "Data", Width: 100},
			{Field: "total_billed", Label: "Total Billed", Type: "Currency", Width: 120},
			{Field: "total_collected", Label: "Total Collected", Type: "Currency", Width: 120},
			{Field: "outstanding", Label: "Outstanding", Type: "Currency", Width: 120},
			{Field: "collection_percentage", Label: "Collection %", Type: "Percent", Width: 120},
			{Field: "student_count", Label: "No. of Students", Type: "Int", Width: 120},
			{Field: "paid_students", Label: "Paid Students", Type: "Int", Width: 120},
			{Field: "pending_students", Label: "Pending Students", Type: "Int", Width: 120},
		},
		Rows: make([]map[string]interface{}, 0, len(rows)),
	}

	var billed, collected, outstanding float64
	chart := &model.ReportChart{Type: "bar", Datasets: []model.ChartDataset{{Name: "Collected"}, {Name: "Outstanding"}}}
	for _, r := range rows {
		rep.Rows = append(rep.Rows, map[string]interface{}{
			"fee_type":              r.FeeType,
			"school_class":          r.ClassName,
			"total_billed":          model.RoundMoney(r.TotalBilled),
			"total_collected":       model.RoundMoney(r.TotalCollected),
			"outstanding":           model.RoundMoney(r.Outstanding),
			"collection_percentage": percentOf(r.TotalCollected, r.TotalBilled),
			"student_count":         r.StudentCount,
			"paid_students":         r.PaidStudents,
			"pending_students":      r.PendingStudents,
		})
		billed += r.TotalBilled
		collected += r.TotalCollected
		outstanding += r.Outstanding
		if len(chart.Labels) < chartLimit {
			chart.Labels = append(chart.Labels, r.FeeType+" - "+r.ClassName)
			chart.Datasets[0].Values = append(chart.Datasets[0].Values, model.RoundMoney(r.TotalCollected))
			chart.Datasets[1].Values = append(chart.Datasets[1].Values, model.RoundMoney(r.Outstanding))
		}
	}

	rate := percentOf(collected, billed)
	rep.Summary = []model.ReportSummaryItem{
		{Label: "Total Billed", Value: model.RoundMoney(billed), Indicator: "Blue"},
		{Label: "Total Collected", Value: model.RoundMoney(collected), Indicator: "Green"},
		{Label: "Outstanding", Value: model.RoundMoney(outstanding), Indicator: "Red"},
		{Label: "Collection Rate", Value: rate, Indicator: rateIndicator(rate, 90, 70)},
	}
	if len(chart.Labels) > 0 {
		rep.Chart = chart
	}
	return rep
}

// AttendanceSummaryReport lays out mark counts and the attendance rate per class.
func AttendanceSummaryReport(rows []model.AttendanceSummary) *model.Report {
	rep := &model.Report{
		Name:  ReportAttendanceSummary,
		Title: "Attendance Summary",
		Columns: []model.ReportColumn{
			{Field: "school_class", Label: "Class", Type: "Data", Width: 120},
			{Field: "total_marks", Label: "Total Marks", Type: "Int", Width: 100},
			{Field: "present", Label: "Present", Type: "Int", Width: 90},
			{Field: "absent", Label: "Absent", Type: "Int", Width: 90},
			{Field: "late", Label: "Late", Type: "Int", Width: 90},
			{Field: "excused", Label: "Excused", Type: "Int", Width: 90},
			{Field: "attendance_rate", Label: "Attendance %", Type: "Percent", Width: 110},
		},
		Rows: make([]map[string]interface{}, 0, len(rows)),
	}

	var total, attended, absent int
	chart := &model.ReportChart{Type: "bar", Datasets: []model.ChartDataset{{Name: "Attendance %"}}}
	for _, r := range rows {
		rep.Rows = append(rep.Rows, map[string]interface{}{
			"school_class":    r.ClassName,
			"total_marks":     r.TotalMarks,
			"present":         r.Present,
			"absent":          r.Absent,
			"late":            r.Late,
			"excused":         r.Excused,
			"attendance_rate": r.AttendanceRate,
		})
		total += r.TotalMarks
		attended += r.Present + r.Late
		absent += r.Absent
		if len(chart.Labels) < chartLimit {
			chart.Labels = append(chart.Labels, r.ClassName)
			chart.Datasets[0].Values = append(chart.Datasets[0].Values, r.AttendanceRate)
		}
	}

	rate := percentOf(float64(attended), float64(total))
	rep.Summary = []model.ReportSummaryItem{
		{Label: "Total Marks", Value: total, Indicator: "Blue"},
		{Label: "Absences", Value: absent, Indicator: "Red"},
		{Label: "Attendance Rate", Value: rate, Indicator: rateIndicator(rate, 95, 85)},
	}
	if len(chart.Labels) > 0 {
		rep.Chart = chart
	}
	return rep
}

// TrialBalanceReport lays out each account's movements over the period.
// Debits and credits balance when every posting is a pair.
func TrialBalanceReport(rows []model.AccountBalance) *model.Report {
	rep := &model.Report{
		Name:  ReportTrialBalance,
		Title: "Trial Balance",
		Columns: []model.ReportColumn{
			{Field: "account", Label: "Account", Type: "Data", Width: 200},
			{Field: "opening_balance", Label: "Opening", Type: "Currency", Width: 120},
			{Field: "debit", Label: "Debit", Type: "Currency", Width: 120},
			{Field: "credit", Label: "Credit", Type: "Currency", Width: 120},
			{Field: "closing_balance", Label: "Closing", Type: "Currency", Width: 120},
		},
		Rows: make([]map[string]interface{}, 0, len(rows)),
	}

	var debit, credit float64
	for _, r := range rows {
		rep.Rows = append(rep.Rows, map[string]interface{}{
			"account":         r.AccountName,
			"opening_balance": r.OpeningBalance,
			"debit":           r.TotalDebit,
			"credit":          r.TotalCredit,
			"closing_balance": r.ClosingBalance,
		})
		debit += r.TotalDebit
		credit += r.TotalCredit
	}

	diff := model.RoundMoney(debit - credit)
	indicator := "Green"
	if diff != 0 {
		indicator = "Red"
	}
	rep.Summary = []model.ReportSummaryItem{
		{Label: "Total Debit", Value: model.RoundMoney(debit), Indicator: "Blue"},
		{Label: "Total Credit", Value: model.RoundMoney(credit), Indicator: "Blue"},
		{Label: "Difference", Value: diff, Indicator: indicator},
	}
	return rep
}

// BudgetVarianceReport compares allocation and consumption per budget line.
func BudgetVarianceReport(lines []model.BudgetLine) *model.Report {
	rep := &model.Report{
		Name:  ReportBudgetVariance,
		Title: "Budget Variance",
		Columns: []model.ReportColumn{
			{Field: "account", Label: "Account", Type: "Data", Width: 180},
			{Field: "description", Label: "Description", Type: "Data", Width: 180},
			{Field: "allocated", Label: "Allocated", Type: "Currency", Width: 120},
			{Field: "consumed", Label: "Consumed", Type: "Currency", Width: 120},
			{Field: "remaining", Label: "Remaining", Type: "Currency", Width: 120},
			{Field: "percentage_consumed", Label: "Consumed %", Type: "Percent", Width: 100},
			{Field: "status", Label: "Status", Type: "Data", Width: 100},
		},
		Rows: make([]map[string]interface{}, 0, len(lines)),
	}

	var allocated, consumed float64
	overspent := 0
	chart := &model.ReportChart{Type: "bar", Datasets: []model.ChartDataset{{Name: "Allocated"}, {Name: "Consumed"}}}
	for i := range lines {
		l := lines[i]
		ComputeLine(&l)
		rep.Rows = append(rep.Rows, map[string]interface{}{
			"account":             l.AccountName,
			"description":         l.Description,
			"allocated":           l.AllocatedAmount,
			"consumed":            l.ConsumedAmount,
			"remaining":           l.RemainingAmount,
			"percentage_consumed": l.PercentageConsumed,
			"status":              string(l.Status),
		})
		allocated += l.AllocatedAmount
		consumed += l.ConsumedAmount
		if l.Status == model.BudgetLineOverspent {
			overspent++
		}
		if len(chart.Labels) < chartLimit {
			chart.Labels = append(chart.Labels, lineLabel(&l))
			chart.Datasets[0].Values = append(chart.Datasets[0].Values, l.AllocatedAmount)
			chart.Datasets[1].Values = append(chart.Datasets[1].Values, l.ConsumedAmount)
		}
	}

	indicator := "Green"
	if overspent > 0 {
		indicator = "Red"
	}
	rep.Summary = []model.ReportSummaryItem{
		{Label: "Allocated", Value: model.RoundMoney(allocated), Indicator: "Blue"},
		{Label: "Consumed", Value: model.RoundMoney(consumed), Indicator: "Orange"},
		{Label: "Remaining", Value: model.RoundMoney(allocated - consumed), Indicator: "Green"},
		{Label: "Overspent Lines", Value: overspent, Indicator: indicator},
	}
	if len(chart.Labels) > 0 {
		rep.Chart = chart
	}
	return rep
}

// StockBalanceReport lists quantities and valuation per item, items to
// reorder first.
func StockBalanceReport(items []model.StockItem) *model.Report {
	sorted := append([]model.StockItem(nil), items...)
	for i := range sorted {
		sorted[i].NeedsReorder = sorted[i].IsActive && sorted[i].ActualQty <= sorted[i].ReorderLevel
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].NeedsReorder && !sorted[j].NeedsReorder
	})

	rep := &model.Report{
		Name:  ReportStockBalance,
		Title: "Stock Balance",
		Columns: []model.ReportColumn{
			{Field: "item_code", Label: "Item Code", Type: "Data", Width: 110},
			{Field: "item_name", Label: "Item", Type: "Data", Width: 180},
			{Field: "warehouse", Label: "Warehouse", Type: "Data", Width: 120},
			{Field: "actual_qty", Label: "Qty", Type: "Float", Width: 90},
			{Field: "unit", Label: "Unit", Type: "Data", Width: 70},
			{Field: "reorder_level", Label: "Reorder Level", Type: "Float", Width: 100},
			{Field: "valuation", Label: "Valuation", Type: "Currency", Width: 120},
			{Field: "needs_reorder", Label: "Reorder", Type: "Check", Width: 80},
		},
		Rows: make([]map[string]interface{}, 0, len(sorted)),
	}

	var valuation float64
	reorder := 0
	for _, it := range sorted {
		value := model.RoundMoney(it.ActualQty * it.ValuationRate)
		rep.Rows = append(rep.Rows, map[string]interface{}{
			"item_code":     it.ItemCode,
			"item_name":     it.ItemName,
			"warehouse":     it.Warehouse,
			"actual_qty":    it.ActualQty,
			"unit":          it.Unit,
			"reorder_level": it.ReorderLevel,
			"valuation":     value,
			"needs_reorder": it.NeedsReorder,
		})
		valuation += value
		if it.NeedsReorder {
			reorder++
		}
	}

	indicator := "Green"
	if reorder > 0 {
		indicator = "Orange"
	}
	rep.Summary = []model.ReportSummaryItem{
		{Label: "Items", Value: len(sorted), Indicator: "Blue"},
		{Label: "Stock Value", Value: model.RoundMoney(valuation), Indicator: "Blue"},
		{Label: "Items to Reorder", Value: reorder, Indicator: indicator},
	}
	return rep
}

func rateIndicator(rate, good, fair float64) string {
	switch {
	case rate >= good:
		return "Green"
	case rate >= fair:
		return "Orange"
	}
	return "Red"
}
