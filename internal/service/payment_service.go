package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/notify"
	"github.com/easygo/easygo-schools/internal/repository"
	"github.com/google/uuid"
)

type paymentStore interface {
	GetByID(ctx context.Context, id int) (*model.PaymentEntry, error)
	GetForUpdate(ctx context.Context, id int) (*model.PaymentEntry, error)
	ListPaginated(ctx context.Context, filter model.ListFilter) ([]model.PaymentEntry, int, error)
	ListByStudent(ctx context.Context, studentID int) ([]model.PaymentEntry, error)
	Create(ctx context.Context, p *model.PaymentEntry) error
	Save(ctx context.Context, p *model.PaymentEntry) error
	Delete(ctx context.Context, id int) error
	NextReceiptSeq(ctx context.Context, year int) (int, error)
}

// PaymentService records payments against fee bills.
type PaymentService struct {
	payments   paymentStore
	bills      feeBillStore
	students   studentReader
	ledger     *LedgerService
	tx         Transactor
	notes      *Notifications
	clock      Clock
	currency   string
	schoolName string
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(payments paymentStore, bills feeBillStore, students studentReader, ledger *LedgerService, tx Transactor, notes *Notifications, clock Clock, currency, schoolName string) *PaymentService {
	return &PaymentService{
		payments:   payments,
		bills:      bills,
		students:   students,
		ledger:     ledger,
		tx:         tx,
		notes:      notes,
		clock:      clock,
		currency:   currency,
		schoolName: schoolName,
	}
}

// Get retrieves a payment.
func (s *PaymentService) Get(ctx context.Context, id int) (*model.PaymentEntry, error) {
	return s.payments.GetByID(ctx, id)
}

// List lists payments.
func (s *PaymentService) List(ctx context.Context, filter model.ListFilter) ([]model.PaymentEntry, int, error) {
	return s.payments.ListPaginated(ctx, filter)
}

// History lists every payment made for a student, newest first.
func (s *PaymentService) History(ctx context.Context, studentID int) ([]model.PaymentEntry, error) {
	if _, err := s.students.GetByID(ctx, studentID); err != nil {
		return nil, err
	}
	return s.payments.ListByStudent(ctx, studentID)
}

func (s *PaymentService) validate(p *model.PaymentEntry, bill *model.FeeBill) error {
	if p.PaidAmount <= 0 {
		return invalid("paid_amount", "must be greater than zero")
	}
	if p.PaymentDate.After(s.clock.today()) {
		return invalid("payment_date", "cannot be in the future")
	}
	if (p.ModeOfPayment == model.ModeCheque || p.ModeOfPayment == model.ModeBankTransfer) && p.ReferenceNo == "" {
		return invalid("reference_no", "is required for %s payments", p.ModeOfPayment)
	}
	if bill.DocStatus != model.DocSubmitted {
		return invalid("fee_bill_id", "fee bill %d is not submitted", bill.ID)
	}

	p.Warnings = nil
	if p.PaidAmount > bill.OutstandingAmount {
		p.Warnings = append(p.Warnings, fmt.Sprintf(
			"Paid amount %.2f exceeds the outstanding amount %.2f of fee bill %d",
			p.PaidAmount, bill.OutstandingAmount, bill.ID))
	}
	return nil
}

// Create drafts a payment. Paying more than the bill outstanding is allowed
// and reported as a warning.
func (s *PaymentService) Create(ctx context.Context, req model.PaymentEntryRequest) (*model.PaymentEntry, error) {
	bill, err := s.bills.GetByID(ctx, req.FeeBillID)
	if err != nil {
		return nil, err
	}
	p := &model.PaymentEntry{
		FeeBillID:     bill.ID,
		StudentID:     bill.StudentID,
		StudentName:   bill.StudentName,
		PaymentDate:   req.PaymentDate,
		PaidAmount:    model.RoundMoney(req.PaidAmount),
		Currency:      strings.ToUpper(orDefault(req.Currency, s.currency)),
		ExchangeRate:  req.ExchangeRate,
		ModeOfPayment: req.ModeOfPayment,
		ReferenceNo:   strings.TrimSpace(req.ReferenceNo),
		Remarks:       req.Remarks,
		Status:        model.PaymentDraft,
		DocStatus:     model.DocDraft,
	}
	if p.PaymentDate.IsZero() {
		p.PaymentDate = s.clock.today()
	}
	if p.ExchangeRate <= 0 {
		p.ExchangeRate = 1
	}
	p.BaseAmount = model.RoundMoney(p.PaidAmount * p.ExchangeRate)
	if err := s.validate(p, bill); err != nil {
		return nil, err
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a draft payment.
func (s *PaymentService) Delete(ctx context.Context, id int) error {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.DocStatus != model.DocDraft {
		return ErrNotEditable
	}
	return s.payments.Delete(ctx, id)
}

// Submit verifies a draft payment: it issues a receipt, settles the fee
// bill and posts the cash receipt in one transaction.
func (s *PaymentService) Submit(ctx context.Context, id int, verifiedBy *int) (*model.PaymentEntry, error) {
	var (
		p    *model.PaymentEntry
		bill *model.FeeBill
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if p, err = s.payments.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if p.Status == model.PaymentVerified {
			return stateError("payment %d is already verified", p.ID)
		}
		if p.DocStatus != model.DocDraft || p.Status != model.PaymentDraft {
			return stateError("payment %d is %s", p.ID, p.Status)
		}
		if bill, err = s.bills.GetForUpdate(ctx, p.FeeBillID); err != nil {
			return err
		}
		if err := s.validate(p, bill); err != nil {
			return err
		}

		seq, err := s.payments.NextReceiptSeq(ctx, p.PaymentDate.Year())
		if err != nil {
			return err
		}
		p.ReceiptNo = receiptNumber(p.PaymentDate.Year(), seq)
		p.Status = model.PaymentVerified
		p.DocStatus = model.DocSubmitted
		p.VerifiedBy = verifiedBy
		p.VerifiedAt = timePtr(s.clock())
		if err := s.payments.Save(ctx, p); err != nil {
			return err
		}

		bill.PaidAmount = model.RoundMoney(bill.PaidAmount + p.PaidAmount)
		bill.OutstandingAmount = model.RoundMoney(max(0, bill.OutstandingAmount-p.PaidAmount))
		bill.Status = FeeBillStatus(bill, s.clock.today())
		if err := s.bills.SaveAmounts(ctx, bill); err != nil {
			return err
		}

		return s.ledger.PostPair(ctx, p.PaymentDate,
			model.AccountNameCash, model.AccountNameFeesReceivable, p.BaseAmount,
			VoucherPayment, p.ID, "Student", intPtr(p.StudentID), "Payment "+p.ReceiptNo)
	})
	if err != nil {
		return nil, err
	}

	if st, err := s.students.GetByID(ctx, p.StudentID); err == nil {
		s.notes.Send(ctx, notify.Message{
			To:            []string{st.GuardianEmail},
			Template:      notify.TplPaymentReceipt,
			ReferenceType: "Payment Entry",
			ReferenceID:   p.ID,
			Data: map[string]interface{}{
				"ReceiptNo":   p.ReceiptNo,
				"Amount":      p.PaidAmount,
				"Currency":    p.Currency,
				"Mode":        p.ModeOfPayment,
				"StudentName": st.FullName(),
				"BillID":      bill.ID,
				"Outstanding": bill.OutstandingAmount,
			},
		})
	}
	return p, nil
}

// Verify is the explicit verification action on a draft payment.
func (s *PaymentService) Verify(ctx context.Context, id int, verifiedBy *int) (*model.PaymentEntry, error) {
	return s.Submit(ctx, id, verifiedBy)
}

// Reject marks a draft payment as Failed.
func (s *PaymentService) Reject(ctx context.Context, id int, reason string) (*model.PaymentEntry, error) {
	var p *model.PaymentEntry
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if p, err = s.payments.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if p.DocStatus != model.DocDraft {
			return stateError("only draft payments can be rejected")
		}
		p.Status = model.PaymentFailed
		p.RejectionReason = strings.TrimSpace(reason)
		return s.payments.Save(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Cancel reverses a verified payment on its fee bill and the ledger.
func (s *PaymentService) Cancel(ctx context.Context, id int) (*model.PaymentEntry, error) {
	var p *model.PaymentEntry
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if p, err = s.payments.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if p.DocStatus != model.DocSubmitted {
			return stateError("only submitted payments can be cancelled")
		}
		bill, err := s.bills.GetForUpdate(ctx, p.FeeBillID)
		if err != nil {
			return err
		}
		bill.PaidAmount = model.RoundMoney(max(0, bill.PaidAmount-p.PaidAmount))
		bill.OutstandingAmount = model.RoundMoney(max(0, bill.TotalAmount-bill.PaidAmount))
		bill.Status = FeeBillStatus(bill, s.clock.today())
		if err := s.bills.SaveAmounts(ctx, bill); err != nil {
			return err
		}

		p.Status = model.PaymentCancelled
		p.DocStatus = model.DocCancelled
		if err := s.payments.Save(ctx, p); err != nil {
			return err
		}
		return s.ledger.CancelVoucher(ctx, VoucherPayment, p.ID)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Receipt builds the printable receipt of a verified payment.
func (s *PaymentService) Receipt(ctx context.Context, id int) (*model.PaymentReceipt, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != model.PaymentVerified {
		return nil, stateError("payment %d is not verified", p.ID)
	}
	bill, err := s.bills.GetByID(ctx, p.FeeBillID)
	if err != nil {
		return nil, err
	}
	st, err := s.students.GetByID(ctx, p.StudentID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	r := &model.PaymentReceipt{
		ReceiptNo:         p.ReceiptNo,
		PaymentID:         p.ID,
		StudentName:       bill.StudentName,
		FeeBillID:         bill.ID,
		PaymentDate:       p.PaymentDate,
		PaidAmount:        p.PaidAmount,
		Currency:          p.Currency,
		ModeOfPayment:     p.ModeOfPayment,
		ReferenceNo:       p.ReferenceNo,
		BillTotal:         bill.TotalAmount,
		OutstandingAmount: bill.OutstandingAmount,
		SchoolName:        s.schoolName,
	}
	if st != nil {
		r.MassarCode = st.MassarCode
	}
	return r, nil
}

// receiptNumber formats "RCP-2025-00042-1a2b3c". The random suffix keeps
// concurrent submissions from colliding on the yearly sequence.
func receiptNumber(year, seq int) string {
	return fmt.Sprintf("RCP-%d-%05d-%s", year, seq, uuid.NewString()[:6])
}
