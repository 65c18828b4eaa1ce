package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/notify"
)

type expenseStore interface {
	GetByID(ctx context.Context, id int) (*model.ExpenseEntry, error)
	GetForUpdate(ctx context.Context, id int) (*model.ExpenseEntry, error)
	ListPaginated(ctx context.Context, filter model.ExpenseFilter) ([]model.ExpenseEntry, int, error)
	Create(ctx context.Context, e *model.ExpenseEntry) error
	Save(ctx context.Context, e *model.ExpenseEntry) error
	Delete(ctx context.Context, id int) error
}

type adminReader interface {
	GetByID(ctx context.Context, id int) (*model.Admin, error)
}

// ExpenseService runs the expense approval workflow against budget lines.
type ExpenseService struct {
	expenses  expenseStore
	budgets   *BudgetService
	ledger    *LedgerService
	admins    adminReader
	approvers *Approvers
	tx        Transactor
	notes     *Notifications
	clock     Clock
}

// NewExpenseService creates a new ExpenseService.
func NewExpenseService(expenses expenseStore, budgets *BudgetService, ledger *LedgerService, admins adminReader, approvers *Approvers, tx Transactor, notes *Notifications, clock Clock) *ExpenseService {
	return &ExpenseService{
		expenses:  expenses,
		budgets:   budgets,
		ledger:    ledger,
		admins:    admins,
		approvers: approvers,
		tx:        tx,
		notes:     notes,
		clock:     clock,
	}
}

func (s *ExpenseService) Get(ctx context.Context, id int) (*model.ExpenseEntry, error) {
	return s.expenses.GetByID(ctx, id)
}

func (s *ExpenseService) List(ctx context.Context, filter model.ExpenseFilter) ([]model.ExpenseEntry, int, error) {
	return s.expenses.ListPaginated(ctx, filter)
}

func (s *ExpenseService) validate(ctx context.Context, e *model.ExpenseEntry) error {
	if e.Amount <= 0 {
		return invalid("amount", "must be greater than zero")
	}
	if e.ExpenseDate.After(s.clock.today()) {
		return invalid("expense_date", "cannot be in the future")
	}
	if e.ApprovalDate != nil && e.ApprovalDate.Before(e.ExpenseDate) {
		return invalid("approval_date", "cannot be before the expense date")
	}

	e.Warnings = nil
	if e.BudgetLineID == nil {
		return nil
	}
	l, err := s.budgets.GetLine(ctx, *e.BudgetLineID)
	if err != nil {
		return err
	}
	if !l.IsActive {
		e.Warnings = append(e.Warnings, fmt.Sprintf("Budget line %s is not active", lineLabel(l)))
	}
	if avail := Availability(l, e.Amount); !avail.Available {
		e.Warnings = append(e.Warnings, fmt.Sprintf(
			"Insufficient budget on %s: available %.2f, requested %.2f, shortage %.2f",
			lineLabel(l), avail.AvailableAmount, avail.RequestedAmount, avail.Shortage))
	}
	return nil
}

func applyExpense(e *model.ExpenseEntry, req model.ExpenseEntryRequest) {
	e.BudgetLineID = req.BudgetLineID
	e.AccountID = req.AccountID
	e.ExpenseDate = req.ExpenseDate
	e.Amount = model.RoundMoney(req.Amount)
	e.Description = strings.TrimSpace(req.Description)
	e.Supplier = strings.TrimSpace(req.Supplier)
	e.InvoiceNo = strings.TrimSpace(req.InvoiceNo)
}

// Create drafts an expense. A budget shortage is reported as a warning.
func (s *ExpenseService) Create(ctx context.Context, req model.ExpenseEntryRequest, requestedBy *int) (*model.ExpenseEntry, error) {
	e := &model.ExpenseEntry{
		Status:        model.ExpenseDraft,
		PaymentStatus: model.ExpenseUnpaid,
		DocStatus:     model.DocDraft,
		RequestedBy:   requestedBy,
	}
	applyExpense(e, req)
	if e.ExpenseDate.IsZero() {
		e.ExpenseDate = s.clock.today()
	}
	if err := s.validate(ctx, e); err != nil {
		return nil, err
	}
	if err := s.expenses.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Update modifies a draft expense.
func (s *ExpenseService) Update(ctx context.Context, id int, req model.ExpenseEntryRequest) (*model.ExpenseEntry, error) {
	e, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != model.ExpenseDraft {
		return nil, ErrNotEditable
	}
	applyExpense(e, req)
	if e.ExpenseDate.IsZero() {
		e.ExpenseDate = s.clock.today()
	}
	if err := s.validate(ctx, e); err != nil {
		return nil, err
	}
	if err := s.expenses.Save(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Delete removes a draft expense.
func (s *ExpenseService) Delete(ctx context.Context, id int) error {
	e, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if e.DocStatus != model.DocDraft {
		return ErrNotEditable
	}
	return s.expenses.Delete(ctx, id)
}

// SubmitForApproval moves a draft expense to Pending Approval.
func (s *ExpenseService) SubmitForApproval(ctx context.Context, id int) (*model.ExpenseEntry, error) {
	var e *model.ExpenseEntry
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if e, err = s.expenses.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if e.Status != model.ExpenseDraft {
			return stateError("expense must be Draft to submit for approval, it is %s", e.Status)
		}
		if err := s.validate(ctx, e); err != nil {
			return err
		}
		e.Status = model.ExpensePendingApproval
		return s.expenses.Save(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	s.notes.Send(ctx, notify.Message{
		To:            s.approvers.For(ctx, model.PermissionBudgetsApprove),
		Template:      notify.TplExpenseApproval,
		ReferenceType: "Expense Entry",
		ReferenceID:   e.ID,
		Data: map[string]interface{}{
			"Amount":      e.Amount,
			"Description": e.Description,
		},
	})
	return e, nil
}

// Approve submits a pending expense: it consumes the budget line and
// charges the expense account against accounts payable.
func (s *ExpenseService) Approve(ctx context.Context, id int, approvedBy *int) (*model.ExpenseEntry, error) {
	var (
		e    *model.ExpenseEntry
		line *model.BudgetLine
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if e, err = s.expenses.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if e.Status != model.ExpensePendingApproval {
			return stateError("expense must be Pending Approval to approve, it is %s", e.Status)
		}
		today := s.clock.today()
		e.Status = model.ExpenseApproved
		e.DocStatus = model.DocSubmitted
		e.ApprovalDate = datePtr(today)
		e.ApprovedBy = approvedBy
		if err := s.validate(ctx, e); err != nil {
			return err
		}
		if err := s.expenses.Save(ctx, e); err != nil {
			return err
		}
		if e.BudgetLineID != nil {
			if line, err = s.budgets.UpdateConsumed(ctx, *e.BudgetLineID); err != nil {
				return err
			}
		}
		payable, err := s.ledger.AccountID(ctx, model.AccountNameAccountsPayable)
		if err != nil {
			return err
		}
		return s.ledger.PostBetween(ctx, e.ExpenseDate, e.AccountID, payable, e.Amount,
			VoucherExpense, e.ID, "Supplier", nil, e.Description)
	})
	if err != nil {
		return nil, err
	}

	if line != nil {
		s.budgets.EvaluateAlerts(ctx, line)
	}
	s.notifyDecision(ctx, e)
	return e, nil
}

// Reject refuses a pending expense.
func (s *ExpenseService) Reject(ctx context.Context, id int, reason string) (*model.ExpenseEntry, error) {
	var e *model.ExpenseEntry
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if e, err = s.expenses.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if e.Status != model.ExpensePendingApproval {
			return stateError("expense must be Pending Approval to reject, it is %s", e.Status)
		}
		e.Status = model.ExpenseRejected
		e.RejectionReason = strings.TrimSpace(reason)
		return s.expenses.Save(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	s.notifyDecision(ctx, e)
	return e, nil
}

// MarkAsPaid settles an approved expense with the supplier.
func (s *ExpenseService) MarkAsPaid(ctx context.Context, id int, reference string) (*model.ExpenseEntry, error) {
	var e *model.ExpenseEntry
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if e, err = s.expenses.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if e.Status != model.ExpenseApproved {
			return stateError("expense must be Approved to mark as paid, it is %s", e.Status)
		}
		e.Status = model.ExpensePaid
		e.PaymentStatus = model.ExpenseSettled
		e.PaidDate = datePtr(s.clock.today())
		e.PaymentReference = strings.TrimSpace(reference)
		if err := s.expenses.Save(ctx, e); err != nil {
			return err
		}
		return s.ledger.PostPair(ctx, *e.PaidDate,
			model.AccountNameAccountsPayable, model.AccountNameCash, e.Amount,
			VoucherExpense, e.ID, "Supplier", nil, "Payment "+e.PaymentReference)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Cancel reverses a submitted expense on its budget line and the ledger.
func (s *ExpenseService) Cancel(ctx context.Context, id int) (*model.ExpenseEntry, error) {
	var e *model.ExpenseEntry
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if e, err = s.expenses.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if e.DocStatus != model.DocSubmitted {
			return stateError("only submitted expenses can be cancelled")
		}
		e.Status = model.ExpenseCancelled
		e.DocStatus = model.DocCancelled
		if err := s.expenses.Save(ctx, e); err != nil {
			return err
		}
		if e.BudgetLineID != nil {
			if _, err := s.budgets.UpdateConsumed(ctx, *e.BudgetLineID); err != nil {
				return err
			}
		}
		return s.ledger.CancelVoucher(ctx, VoucherExpense, e.ID)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *ExpenseService) notifyDecision(ctx context.Context, e *model.ExpenseEntry) {
	if e.RequestedBy == nil || s.admins == nil {
		return
	}
	a, err := s.admins.GetByID(ctx, *e.RequestedBy)
	if err != nil {
		return
	}
	s.notes.Send(ctx, notify.Message{
		To:            []string{a.Email},
		Template:      notify.TplExpenseDecision,
		ReferenceType: "Expense Entry",
		ReferenceID:   e.ID,
		Data: map[string]interface{}{
			"ExpenseID":   e.ID,
			"Status":      string(e.Status),
			"Amount":      e.Amount,
			"Description": e.Description,
			"Reason":      e.RejectionReason,
		},
	})
}
