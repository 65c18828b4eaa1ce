package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/notify"
	"github.com/rs/zerolog"
)

type budgetStore interface {
	GetByID(ctx context.Context, id int) (*model.Budget, error)
	ListPaginated(ctx context.Context, filter model.ListFilter) ([]model.Budget, int, error)
	Create(ctx context.Context, b *model.Budget) error
	Update(ctx context.Context, b *model.Budget) error
	SaveStatus(ctx context.Context, b *model.Budget) error
	Delete(ctx context.Context, id int) error
	FindOverlapping(ctx context.Context, excludeID int, costCenter string, start, end model.Date) ([]string, error)
	GetLine(ctx context.Context, id int) (*model.BudgetLine, error)
	ListLines(ctx context.Context, budgetID int) ([]model.BudgetLine, error)
	SaveLine(ctx context.Context, l *model.BudgetLine) error
	SumSubmittedExpenses(ctx context.Context, lineID int) (float64, error)
	HasOpenAlert(ctx context.Context, lineID int, level model.AlertLevel) (bool, error)
	CreateAlert(ctx context.Context, a *model.BudgetAlert) error
	ResolveAlertsBelow(ctx context.Context, lineID int, pct float64) error
	ListAlerts(ctx context.Context, lineID int) ([]model.BudgetAlert, error)
	CreateRevision(ctx context.Context, rev *model.BudgetLineRevision) error
	ListRevisions(ctx context.Context, lineID int) ([]model.BudgetLineRevision, error)
}

const budgetTolerance = 0.01

// BudgetService manages budgets, their lines and consumption alerts.
type BudgetService struct {
	budgets          budgetStore
	approvers        *Approvers
	tx               Transactor
	notes            *Notifications
	clock            Clock
	budgetManager    string
	educationManager string
	highValue        float64
	log              zerolog.Logger
}

// NewBudgetService creates a new BudgetService.
func NewBudgetService(budgets budgetStore, approvers *Approvers, tx Transactor, notes *Notifications, clock Clock, budgetManager, educationManager string, highValue float64, log zerolog.Logger) *BudgetService {
	return &BudgetService{
		budgets:          budgets,
		approvers:        approvers,
		tx:               tx,
		notes:            notes,
		clock:            clock,
		budgetManager:    budgetManager,
		educationManager: educationManager,
		highValue:        highValue,
		log:              log.With().Str("component", "budget").Logger(),
	}
}

// LineStatus derives the status of a budget line from its consumption.
func LineStatus(l *model.BudgetLine) model.BudgetLineStatus {
	switch {
	case !l.IsActive:
		return model.BudgetLineInactive
	case l.PercentageConsumed > 100:
		return model.BudgetLineOverspent
	case l.PercentageConsumed == 100:
		return model.BudgetLineExhausted
	default:
		return model.BudgetLineActive
	}
}

// AlertLevelFor returns the alert level reached at pct percent consumed.
func AlertLevelFor(pct float64) (model.AlertLevel, bool) {
	switch {
	case pct >= 90:
		return model.AlertCritical, true
	case pct >= 75:
		return model.AlertWarning, true
	case pct >= 50:
		return model.AlertInfo, true
	}
	return "", false
}

// ComputeLine refreshes the derived amounts and status of a line.
func ComputeLine(l *model.BudgetLine) {
	l.AllocatedAmount = model.RoundMoney(l.AllocatedAmount)
	l.ConsumedAmount = model.RoundMoney(l.ConsumedAmount)
	l.RemainingAmount = model.RoundMoney(l.AllocatedAmount - l.ConsumedAmount)
	if l.AllocatedAmount > 0 {
		l.PercentageConsumed = math.Round(l.ConsumedAmount/l.AllocatedAmount*10000) / 100
	} else {
		l.PercentageConsumed = 0
	}
	l.Status = LineStatus(l)
}

// Availability answers whether a line can absorb amount.
func Availability(l *model.BudgetLine, amount float64) model.BudgetAvailability {
	avail := l.RemainingAmount
	if l.AllowOverspend {
		avail += l.OverspendLimit
	}
	avail = model.RoundMoney(avail)
	res := model.BudgetAvailability{
		Available:       amount <= avail,
		AvailableAmount: avail,
		RequestedAmount: amount,
	}
	if !res.Available {
		res.Shortage = model.RoundMoney(amount - avail)
	}
	return res
}

func (s *BudgetService) Get(ctx context.Context, id int) (*model.Budget, error) {
	return s.budgets.GetByID(ctx, id)
}

func (s *BudgetService) List(ctx context.Context, filter model.ListFilter) ([]model.Budget, int, error) {
	return s.budgets.ListPaginated(ctx, filter)
}

func (s *BudgetService) GetLine(ctx context.Context, id int) (*model.BudgetLine, error) {
	return s.budgets.GetLine(ctx, id)
}

func (s *BudgetService) ListAlerts(ctx context.Context, lineID int) ([]model.BudgetAlert, error) {
	if _, err := s.budgets.GetLine(ctx, lineID); err != nil {
		return nil, err
	}
	return s.budgets.ListAlerts(ctx, lineID)
}

func (s *BudgetService) ListRevisions(ctx context.Context, lineID int) ([]model.BudgetLineRevision, error) {
	if _, err := s.budgets.GetLine(ctx, lineID); err != nil {
		return nil, err
	}
	return s.budgets.ListRevisions(ctx, lineID)
}

func (s *BudgetService) apply(ctx context.Context, b *model.Budget, req model.BudgetRequest) error {
	b.BudgetName = strings.TrimSpace(req.BudgetName)
	b.CostCenter = strings.TrimSpace(req.CostCenter)
	b.AcademicYearID = req.AcademicYearID
	b.StartDate = req.StartDate
	b.EndDate = req.EndDate
	b.TotalAmount = model.RoundMoney(req.TotalAmount)
	b.ApprovalRequired = req.ApprovalRequired

	if err := requireDate("start_date", b.StartDate); err != nil {
		return err
	}
	if err := requireDate("end_date", b.EndDate); err != nil {
		return err
	}
	if b.EndDate.Before(b.StartDate) {
		return invalid("end_date", "cannot be before the start date")
	}
	if b.TotalAmount <= 0 {
		return invalid("total_amount", "must be greater than zero")
	}

	var allocated float64
	b.Lines = make([]model.BudgetLine, len(req.Lines))
	for i, lr := range req.Lines {
		l := model.BudgetLine{
			AccountID:          lr.AccountID,
			Description:        strings.TrimSpace(lr.Description),
			StartDate:          lr.StartDate,
			EndDate:            lr.EndDate,
			AllocatedAmount:    lr.AllocatedAmount,
			AllowOverspend:     lr.AllowOverspend,
			OverspendLimit:     model.RoundMoney(lr.OverspendLimit),
			BudgetManagerEmail: strings.TrimSpace(lr.BudgetManagerEmail),
		}
		if l.StartDate.IsZero() {
			l.StartDate = b.StartDate
		}
		if l.EndDate.IsZero() {
			l.EndDate = b.EndDate
		}
		if !l.EndDate.After(l.StartDate) {
			return invalid("lines", "row %d: end date must be after the start date", i+1)
		}
		if l.AllocatedAmount <= 0 {
			return invalid("lines", "row %d: allocated amount must be greater than zero", i+1)
		}
		if l.OverspendLimit < 0 {
			return invalid("lines", "row %d: overspend limit cannot be negative", i+1)
		}
		ComputeLine(&l)
		allocated += l.AllocatedAmount
		b.Lines[i] = l
	}
	if len(b.Lines) > 0 && math.Abs(allocated-b.TotalAmount) > budgetTolerance {
		return invalid("total_amount", "lines allocate %.2f but the budget total is %.2f", allocated, b.TotalAmount)
	}

	b.Warnings = nil
	overlaps, err := s.budgets.FindOverlapping(ctx, b.ID, b.CostCenter, b.StartDate, b.EndDate)
	if err != nil {
		return err
	}
	if len(overlaps) > 0 {
		b.Warnings = append(b.Warnings, fmt.Sprintf("Cost center %s already has budgets for this period: %s",
			b.CostCenter, strings.Join(overlaps, ", ")))
	}
	return nil
}

// Create drafts a budget with its lines.
func (s *BudgetService) Create(ctx context.Context, req model.BudgetRequest) (*model.Budget, error) {
	b := &model.Budget{Status: model.BudgetDraft, DocStatus: model.DocDraft}
	if err := s.apply(ctx, b, req); err != nil {
		return nil, err
	}
	if err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.budgets.Create(ctx, b)
	}); err != nil {
		return nil, err
	}
	return b, nil
}

// Update rewrites a draft budget.
func (s *BudgetService) Update(ctx context.Context, id int, req model.BudgetRequest) (*model.Budget, error) {
	b, err := s.budgets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.DocStatus != model.DocDraft {
		return nil, ErrNotEditable
	}
	if err := s.apply(ctx, b, req); err != nil {
		return nil, err
	}
	if err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.budgets.Update(ctx, b)
	}); err != nil {
		return nil, err
	}
	return b, nil
}

// Delete removes a draft budget.
func (s *BudgetService) Delete(ctx context.Context, id int) error {
	b, err := s.budgets.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if b.DocStatus != model.DocDraft {
		return ErrNotEditable
	}
	return s.budgets.Delete(ctx, id)
}

func (s *BudgetService) activate(ctx context.Context, b *model.Budget, active bool) error {
	for i := range b.Lines {
		l := &b.Lines[i]
		l.IsActive = active
		ComputeLine(l)
		if err := s.budgets.SaveLine(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

// Submit sends a budget for approval, or activates it directly when no
// approval is required.
func (s *BudgetService) Submit(ctx context.Context, id int) (*model.Budget, error) {
	var b *model.Budget
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.budgets.GetByID(ctx, id); err != nil {
			return err
		}
		if b.DocStatus != model.DocDraft {
			return stateError("budget %d is %s", b.ID, b.Status)
		}
		if len(b.Lines) == 0 {
			return invalid("lines", "at least one budget line is required")
		}
		b.DocStatus = model.DocSubmitted
		if b.ApprovalRequired {
			b.Status = model.BudgetPendingApproval
		} else {
			b.Status = model.BudgetActive
			if err := s.activate(ctx, b, true); err != nil {
				return err
			}
		}
		return s.budgets.SaveStatus(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	if b.Status == model.BudgetPendingApproval {
		var extra []string
		if b.TotalAmount > s.highValue {
			extra = append(extra, s.educationManager)
		}
		s.notes.Send(ctx, notify.Message{
			To:            s.approvers.For(ctx, model.PermissionBudgetsApprove, extra...),
			Template:      notify.TplBudgetApproval,
			ReferenceType: "Budget",
			ReferenceID:   b.ID,
			Data: map[string]interface{}{
				"BudgetName": b.BudgetName,
				"CostCenter": b.CostCenter,
				"Total":      b.TotalAmount,
			},
		})
	}
	return b, nil
}

// Approve activates a budget pending approval and its lines.
func (s *BudgetService) Approve(ctx context.Context, id int, approvedBy *int) (*model.Budget, error) {
	var b *model.Budget
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.budgets.GetByID(ctx, id); err != nil {
			return err
		}
		if b.Status != model.BudgetPendingApproval {
			return stateError("budget must be Pending Approval to approve, it is %s", b.Status)
		}
		b.Status = model.BudgetActive
		b.ApprovedBy = approvedBy
		b.ApprovedAt = timePtr(s.clock())
		if err := s.activate(ctx, b, true); err != nil {
			return err
		}
		return s.budgets.SaveStatus(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Cancel cancels a submitted budget whose lines carry no consumption.
func (s *BudgetService) Cancel(ctx context.Context, id int) (*model.Budget, error) {
	var b *model.Budget
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.budgets.GetByID(ctx, id); err != nil {
			return err
		}
		if b.DocStatus != model.DocSubmitted {
			return stateError("only submitted budgets can be cancelled")
		}
		for _, l := range b.Lines {
			if l.ConsumedAmount > 0 {
				return stateError("budget line %d has %.2f consumed; cancel its expenses first", l.ID, l.ConsumedAmount)
			}
		}
		b.Status = model.BudgetCancelled
		b.DocStatus = model.DocCancelled
		if err := s.activate(ctx, b, false); err != nil {
			return err
		}
		return s.budgets.SaveStatus(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// CheckAvailability reports whether a line can absorb amount.
func (s *BudgetService) CheckAvailability(ctx context.Context, lineID int, amount float64) (*model.BudgetAvailability, error) {
	if amount <= 0 {
		return nil, invalid("amount", "must be greater than zero")
	}
	l, err := s.budgets.GetLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	res := Availability(l, amount)
	return &res, nil
}

// Reallocate changes a line's allocation and logs the revision.
func (s *BudgetService) Reallocate(ctx context.Context, lineID int, newAmount float64, reason string, by *int) (*model.BudgetLine, error) {
	newAmount = model.RoundMoney(newAmount)
	if newAmount <= 0 {
		return nil, invalid("new_amount", "must be greater than zero")
	}
	var l *model.BudgetLine
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if l, err = s.budgets.GetLine(ctx, lineID); err != nil {
			return err
		}
		rev := &model.BudgetLineRevision{
			BudgetLineID: l.ID,
			OldAmount:    l.AllocatedAmount,
			NewAmount:    newAmount,
			Reason:       strings.TrimSpace(reason),
			RevisedBy:    by,
		}
		if err := s.budgets.CreateRevision(ctx, rev); err != nil {
			return err
		}
		l.AllocatedAmount = newAmount
		ComputeLine(l)
		if err := s.budgets.SaveLine(ctx, l); err != nil {
			return err
		}
		return s.budgets.ResolveAlertsBelow(ctx, l.ID, l.PercentageConsumed)
	})
	if err != nil {
		return nil, err
	}
	s.evaluateAlerts(ctx, l)
	return l, nil
}

// UpdateConsumed recomputes a line's consumption from submitted expenses.
// It runs inside the caller's transaction; alerts are evaluated by the
// caller once committed through EvaluateAlerts.
func (s *BudgetService) UpdateConsumed(ctx context.Context, lineID int) (*model.BudgetLine, error) {
	l, err := s.budgets.GetLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	consumed, err := s.budgets.SumSubmittedExpenses(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	l.ConsumedAmount = consumed
	ComputeLine(l)
	if err := s.budgets.SaveLine(ctx, l); err != nil {
		return nil, err
	}
	if err := s.budgets.ResolveAlertsBelow(ctx, l.ID, l.PercentageConsumed); err != nil {
		return nil, err
	}
	return l, nil
}

// EvaluateAlerts raises the alert matching the line's consumption unless an
// open alert of that level exists, and emails the budget manager.
func (s *BudgetService) EvaluateAlerts(ctx context.Context, l *model.BudgetLine) {
	s.evaluateAlerts(ctx, l)
}

func (s *BudgetService) evaluateAlerts(ctx context.Context, l *model.BudgetLine) {
	level, ok := AlertLevelFor(l.PercentageConsumed)
	if !ok || !l.IsActive {
		return
	}
	open, err := s.budgets.HasOpenAlert(ctx, l.ID, level)
	if err != nil {
		s.log.Warn().Err(err).Int("budget_line_id", l.ID).Str("level", string(level)).Msg("Budget alert lookup failed")
		return
	}
	if open {
		return
	}
	alert := &model.BudgetAlert{
		BudgetLineID: l.ID,
		Level:        level,
		Percentage:   l.PercentageConsumed,
		Message: fmt.Sprintf("Budget line %s is %.1f%% consumed (%.2f of %.2f)",
			lineLabel(l), l.PercentageConsumed, l.ConsumedAmount, l.AllocatedAmount),
	}
	if err := s.budgets.CreateAlert(ctx, alert); err != nil {
		s.log.Warn().Err(err).Int("budget_line_id", l.ID).Str("level", string(level)).Msg("Budget alert not recorded")
		return
	}

	budgetName := ""
	if b, err := s.budgets.GetByID(ctx, l.BudgetID); err == nil {
		budgetName = b.BudgetName
	}
	s.notes.Send(ctx, notify.Message{
		To:            []string{orDefault(l.BudgetManagerEmail, s.budgetManager)},
		Template:      notify.TplBudgetAlert,
		ReferenceType: "Budget Line",
		ReferenceID:   l.ID,
		Data: map[string]interface{}{
			"Level":      string(level),
			"Percentage": l.PercentageConsumed,
			"Line":       lineLabel(l),
			"BudgetName": budgetName,
			"Allocated":  l.AllocatedAmount,
			"Consumed":   l.ConsumedAmount,
			"Remaining":  l.RemainingAmount,
		},
	})
}

func lineLabel(l *model.BudgetLine) string {
	if l.Description != "" {
		return l.Description
	}
	if l.AccountName != "" {
		return l.AccountName
	}
	return fmt.Sprintf("#%d", l.ID)
}
