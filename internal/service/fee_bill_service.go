package service

import (
	"context"
	"strings"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/notify"
)

type feeBillStore interface {
	GetByID(ctx context.Context, id int) (*model.FeeBill, error)
	GetForUpdate(ctx context.Context, id int) (*model.FeeBill, error)
	ListPaginated(ctx context.Context, filter model.FeeBillFilter) ([]model.FeeBill, int, error)
	Create(ctx context.Context, b *model.FeeBill) error
	Update(ctx context.Context, b *model.FeeBill) error
	SaveAmounts(ctx context.Context, b *model.FeeBill) error
	Delete(ctx context.Context, id int) error
	CountSubmittedPayments(ctx context.Context, billID int) (int, error)
	MarkOverdue(ctx context.Context, today model.Date) (int64, error)
}

type billingDefaults interface {
	PaymentTerms(ctx context.Context, fallback int) int
	Currency(ctx context.Context, fallback string) string
}

type studentReader interface {
	GetByID(ctx context.Context, id int) (*model.Student, error)
}

// FeeBillService bills students and posts receivables to the ledger.
type FeeBillService struct {
	bills        feeBillStore
	students     studentReader
	ledger       *LedgerService
	tx           Transactor
	notes        *Notifications
	clock        Clock
	currency     string
	paymentTerms int
	defaults     billingDefaults
}

// NewFeeBillService creates a new FeeBillService.
func NewFeeBillService(bills feeBillStore, students studentReader, ledger *LedgerService, tx Transactor, notes *Notifications, clock Clock, currency string, paymentTerms int) *FeeBillService {
	return &FeeBillService{
		bills:        bills,
		students:     students,
		ledger:       ledger,
		tx:           tx,
		notes:        notes,
		clock:        clock,
		currency:     currency,
		paymentTerms: paymentTerms,
	}
}

// WithDefaults makes the service read payment terms and currency from the
// school settings, falling back to the configured values.
func (s *FeeBillService) WithDefaults(d billingDefaults) *FeeBillService {
	s.defaults = d
	return s
}

func (s *FeeBillService) currencyFor(ctx context.Context) string {
	if s.defaults == nil {
		return s.currency
	}
	return s.defaults.Currency(ctx, s.currency)
}

func (s *FeeBillService) termsFor(ctx context.Context) int {
	if s.defaults == nil {
		return s.paymentTerms
	}
	return s.defaults.PaymentTerms(ctx, s.paymentTerms)
}

// FeeBillStatus derives a bill's status from its lifecycle and amounts.
func FeeBillStatus(b *model.FeeBill, today model.Date) model.FeeBillStatus {
	switch b.DocStatus {
	case model.DocDraft:
		return model.FeeBillDraft
	case model.DocCancelled:
		return model.FeeBillCancelled
	}
	switch {
	case b.OutstandingAmount <= 0:
		return model.FeeBillPaid
	case b.PaidAmount > 0:
		return model.FeeBillPartiallyPaid
	case !b.DueDate.IsZero() && b.DueDate.Before(today):
		return model.FeeBillOverdue
	default:
		return model.FeeBillUnpaid
	}
}

// computeTotals recomputes total, outstanding and status.
func (s *FeeBillService) computeTotals(b *model.FeeBill) {
	var total float64
	for _, it := range b.Items {
		total += it.Amount
	}
	b.TotalAmount = model.RoundMoney(total)
	b.PaidAmount = model.RoundMoney(b.PaidAmount)
	b.OutstandingAmount = model.RoundMoney(b.TotalAmount - b.PaidAmount)
	b.Status = FeeBillStatus(b, s.clock.today())
}

func (s *FeeBillService) apply(ctx context.Context, b *model.FeeBill, req model.FeeBillRequest) error {
	st, err := s.students.GetByID(ctx, req.StudentID)
	if err != nil {
		return err
	}
	b.StudentID = st.ID
	b.StudentName = st.FullName()
	b.MassarCode = st.MassarCode
	b.SchoolClassID = st.SchoolClassID
	b.AcademicYearID = req.AcademicYearID
	b.PostingDate = req.PostingDate
	if b.PostingDate.IsZero() {
		b.PostingDate = s.clock.today()
	}
	b.DueDate = req.DueDate
	b.Currency = strings.ToUpper(orDefault(req.Currency, s.currencyFor(ctx)))
	b.Remarks = req.Remarks
	b.Items = make([]model.FeeItem, len(req.Items))
	for i, it := range req.Items {
		b.Items[i] = model.FeeItem{
			FeeType:     strings.TrimSpace(it.FeeType),
			Description: it.Description,
			Amount:      model.RoundMoney(it.Amount),
		}
	}
	if !b.DueDate.IsZero() && b.DueDate.Before(b.PostingDate) {
		return invalid("due_date", "cannot be before the posting date")
	}
	s.computeTotals(b)
	return nil
}

// Get retrieves a fee bill with its items.
func (s *FeeBillService) Get(ctx context.Context, id int) (*model.FeeBill, error) {
	return s.bills.GetByID(ctx, id)
}

// List lists fee bills.
func (s *FeeBillService) List(ctx context.Context, filter model.FeeBillFilter) ([]model.FeeBill, int, error) {
	return s.bills.ListPaginated(ctx, filter)
}

// Create drafts a fee bill.
func (s *FeeBillService) Create(ctx context.Context, req model.FeeBillRequest) (*model.FeeBill, error) {
	b := &model.FeeBill{DocStatus: model.DocDraft}
	if err := s.apply(ctx, b, req); err != nil {
		return nil, err
	}
	if err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.bills.Create(ctx, b)
	}); err != nil {
		return nil, err
	}
	return b, nil
}

// Update rewrites a draft fee bill.
func (s *FeeBillService) Update(ctx context.Context, id int, req model.FeeBillRequest) (*model.FeeBill, error) {
	b, err := s.bills.GetByID(ctx, id)
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
		return s.bills.Update(ctx, b)
	}); err != nil {
		return nil, err
	}
	return b, nil
}

// Delete removes a draft fee bill.
func (s *FeeBillService) Delete(ctx context.Context, id int) error {
	b, err := s.bills.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if b.DocStatus != model.DocDraft {
		return ErrNotEditable
	}
	return s.bills.Delete(ctx, id)
}

// Submit validates the items, posts the receivable and emails the guardian.
func (s *FeeBillService) Submit(ctx context.Context, id int) (*model.FeeBill, error) {
	var (
		b       *model.FeeBill
		student *model.Student
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.bills.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if b.DocStatus != model.DocDraft {
			return stateError("fee bill %d is %s", b.ID, b.DocStatus)
		}
		if len(b.Items) == 0 {
			return invalid("items", "at least one fee item is required")
		}
		for i, it := range b.Items {
			if it.FeeType == "" {
				return invalid("items", "row %d: fee type is required", i+1)
			}
			if it.Amount <= 0 {
				return invalid("items", "row %d: amount must be greater than zero", i+1)
			}
		}
		if b.DueDate.IsZero() {
			b.DueDate = b.PostingDate.AddDays(s.termsFor(ctx))
		}
		if student, err = s.students.GetByID(ctx, b.StudentID); err != nil {
			return err
		}

		b.DocStatus = model.DocSubmitted
		s.computeTotals(b)
		if err := s.bills.SaveAmounts(ctx, b); err != nil {
			return err
		}
		return s.ledger.PostPair(ctx, b.PostingDate,
			model.AccountNameFeesReceivable, model.AccountNameFeeIncome, b.TotalAmount,
			VoucherFeeBill, b.ID, "Student", intPtr(b.StudentID), "Fee bill for "+b.StudentName)
	})
	if err != nil {
		return nil, err
	}

	s.notes.Send(ctx, notify.Message{
		To:            []string{student.GuardianEmail},
		Template:      notify.TplFeeBill,
		ReferenceType: "Fee Bill",
		ReferenceID:   b.ID,
		Data: map[string]interface{}{
			"BillID":      b.ID,
			"Total":       b.TotalAmount,
			"Currency":    b.Currency,
			"StudentName": b.StudentName,
			"Items":       b.Items,
			"DueDate":     b.DueDate,
		},
	})
	return b, nil
}

// Cancel cancels a submitted bill that has no verified payments.
func (s *FeeBillService) Cancel(ctx context.Context, id int) (*model.FeeBill, error) {
	var b *model.FeeBill
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if b, err = s.bills.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if b.DocStatus != model.DocSubmitted {
			return stateError("only submitted fee bills can be cancelled")
		}
		n, err := s.bills.CountSubmittedPayments(ctx, b.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return stateError("fee bill %d has %d submitted payments; cancel them first", b.ID, n)
		}
		b.DocStatus = model.DocCancelled
		b.Status = model.FeeBillCancelled
		if err := s.bills.SaveAmounts(ctx, b); err != nil {
			return err
		}
		return s.ledger.CancelVoucher(ctx, VoucherFeeBill, b.ID)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// RefreshOverdue flags submitted bills past due as Overdue.
func (s *FeeBillService) RefreshOverdue(ctx context.Context) (int64, error) {
	return s.bills.MarkOverdue(ctx, s.clock.today())
}
