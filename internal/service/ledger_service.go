package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/easygo/easygo-schools/internal/model"
)

type accountStore interface {
	GetByID(ctx context.Context, id int) (*model.SchoolAccount, error)
	GetByName(ctx context.Context, name string) (*model.SchoolAccount, error)
	List(ctx context.Context, filter model.ListFilter) ([]model.SchoolAccount, error)
	Create(ctx context.Context, a *model.SchoolAccount) error
	Update(ctx context.Context, a *model.SchoolAccount) error
	Delete(ctx context.Context, id int) error
	ParentOf(ctx context.Context, id int) (*int, error)
	RecomputeBalance(ctx context.Context, id int) (float64, error)
	BudgetSummary(ctx context.Context, id int) (*model.AccountBudgetSummary, error)
}

type ledgerStore interface {
	GetByID(ctx context.Context, id int) (*model.LedgerEntry, error)
	ListPaginated(ctx context.Context, filter model.LedgerFilter) ([]model.LedgerEntry, int, error)
	ListByVoucher(ctx context.Context, voucherType string, voucherID int) ([]model.LedgerEntry, error)
	LastBalance(ctx context.Context, accountID int, asOf model.Date) (float64, bool, error)
	Create(ctx context.Context, e *model.LedgerEntry) error
	SetDocStatus(ctx context.Context, id int, status model.DocStatus) error
	Totals(ctx context.Context, accountID int, from, to *model.Date) (float64, float64, error)
	MovementBefore(ctx context.Context, accountID int, d model.Date) (float64, error)
	TrialBalance(ctx context.Context, from, to model.Date) ([]model.AccountBalance, error)
}

// Voucher types written on ledger entries.
const (
	VoucherFeeBill    = "Fee Bill"
	VoucherPayment    = "Payment Entry"
	VoucherExpense    = "Expense Entry"
	VoucherSalarySlip = "Salary Slip"
	VoucherJournal    = "Journal Entry"
)

const minIBANLength = 15

// LedgerService maintains the chart of accounts and the school ledger.
// Every posting keeps the account's cached balance equal to its opening
// balance plus the net of its submitted entries.
type LedgerService struct {
	accounts accountStore
	entries  ledgerStore
	tx       Transactor
	clock    Clock
	currency string
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(accounts accountStore, entries ledgerStore, tx Transactor, clock Clock, currency string) *LedgerService {
	return &LedgerService{accounts: accounts, entries: entries, tx: tx, clock: clock, currency: currency}
}

// GetAccount retrieves an account by ID.
func (s *LedgerService) GetAccount(ctx context.Context, id int) (*model.SchoolAccount, error) {
	return s.accounts.GetByID(ctx, id)
}

// ListAccounts lists the chart of accounts.
func (s *LedgerService) ListAccounts(ctx context.Context, filter model.ListFilter) ([]model.SchoolAccount, error) {
	return s.accounts.List(ctx, filter)
}

// CreateAccount validates and stores a new account.
func (s *LedgerService) CreateAccount(ctx context.Context, req model.SchoolAccountRequest) (*model.SchoolAccount, error) {
	a := &model.SchoolAccount{IsActive: true}
	applyAccountRequest(a, req, s.currency)
	if err := s.validateAccount(ctx, a); err != nil {
		return nil, err
	}
	a.CurrentBalance = a.OpeningBalance
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateAccount validates and saves an account, then refreshes its balance
// since the opening balance may have changed.
func (s *LedgerService) UpdateAccount(ctx context.Context, id int, req model.SchoolAccountRequest) (*model.SchoolAccount, error) {
	a, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyAccountRequest(a, req, s.currency)
	if err := s.validateAccount(ctx, a); err != nil {
		return nil, err
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.Update(ctx, a); err != nil {
			return err
		}
		bal, err := s.accounts.RecomputeBalance(ctx, a.ID)
		a.CurrentBalance = bal
		return err
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAccount removes an account without postings.
func (s *LedgerService) DeleteAccount(ctx context.Context, id int) error {
	return s.accounts.Delete(ctx, id)
}

func applyAccountRequest(a *model.SchoolAccount, req model.SchoolAccountRequest, currency string) {
	a.AccountName = strings.TrimSpace(req.AccountName)
	a.AccountNumber = strings.TrimSpace(req.AccountNumber)
	a.AccountType = req.AccountType
	a.ParentAccountID = req.ParentAccountID
	a.IsGroup = req.IsGroup
	a.OpeningBalance = model.RoundMoney(req.OpeningBalance)
	a.Currency = strings.ToUpper(orDefault(req.Currency, currency))
	a.BankName = strings.TrimSpace(req.BankName)
	a.IBAN = strings.ReplaceAll(strings.TrimSpace(req.IBAN), " ", "")
	if req.IsActive != nil {
		a.IsActive = *req.IsActive
	}
}

func (s *LedgerService) validateAccount(ctx context.Context, a *model.SchoolAccount) error {
	if a.IsGroup && (a.AccountType == model.AccountBank || a.AccountType == model.AccountCash) {
		return invalid("is_group", "%s accounts cannot be groups", a.AccountType)
	}
	if a.AccountType == model.AccountBank && a.BankName == "" {
		return invalid("bank_name", "is required for bank accounts")
	}
	if a.IBAN != "" && len(a.IBAN) < minIBANLength {
		return invalid("iban", "must be at least %d characters", minIBANLength)
	}
	if a.ParentAccountID == nil {
		return nil
	}
	if a.ID != 0 && *a.ParentAccountID == a.ID {
		return invalid("parent_account_id", "an account cannot be its own parent")
	}
	parent, err := s.accounts.GetByID(ctx, *a.ParentAccountID)
	if err != nil {
		return err
	}
	if !parent.IsGroup {
		return invalid("parent_account_id", "parent account %q is not a group", parent.AccountName)
	}
	if a.ID == 0 {
		return nil
	}

	// Walk up from the parent; reaching a.ID means a cycle.
	seen := map[int]bool{a.ID: true}
	cur := a.ParentAccountID
	for cur != nil {
		if seen[*cur] {
			return invalid("parent_account_id", "circular account hierarchy")
		}
		seen[*cur] = true
		if cur, err = s.accounts.ParentOf(ctx, *cur); err != nil {
			return err
		}
	}
	return nil
}

// AccountBalance summarizes an account's postings between from and to.
func (s *LedgerService) AccountBalance(ctx context.Context, accountID int, from, to *model.Date) (*model.AccountBalance, error) {
	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	opening := a.OpeningBalance
	if from != nil {
		before, err := s.entries.MovementBefore(ctx, accountID, *from)
		if err != nil {
			return nil, err
		}
		opening += before
	}
	debit, credit, err := s.entries.Totals(ctx, accountID, from, to)
	if err != nil {
		return nil, err
	}
	net := debit - credit
	return &model.AccountBalance{
		AccountID:      a.ID,
		AccountName:    a.AccountName,
		OpeningBalance: model.RoundMoney(opening),
		TotalDebit:     model.RoundMoney(debit),
		TotalCredit:    model.RoundMoney(credit),
		NetMovement:    model.RoundMoney(net),
		ClosingBalance: model.RoundMoney(opening + net),
	}, nil
}

// BudgetSummary aggregates the budget lines charged to an account.
func (s *LedgerService) BudgetSummary(ctx context.Context, accountID int) (*model.AccountBudgetSummary, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.accounts.BudgetSummary(ctx, accountID)
}

// TrialBalance lists every account's movements over a period.
func (s *LedgerService) TrialBalance(ctx context.Context, from, to model.Date) ([]model.AccountBalance, error) {
	if to.Before(from) {
		return nil, invalid("to", "must not be before from")
	}
	return s.entries.TrialBalance(ctx, from, to)
}

// GetEntry retrieves a ledger entry.
func (s *LedgerService) GetEntry(ctx context.Context, id int) (*model.LedgerEntry, error) {
	return s.entries.GetByID(ctx, id)
}

// ListEntries lists ledger entries.
func (s *LedgerService) ListEntries(ctx context.Context, filter model.LedgerFilter) ([]model.LedgerEntry, int, error) {
	return s.entries.ListPaginated(ctx, filter)
}

// PostJournal records a manual posting.
func (s *LedgerService) PostJournal(ctx context.Context, req model.LedgerEntryRequest) (*model.LedgerEntry, error) {
	e := model.LedgerEntry{
		PostingDate: req.PostingDate,
		AccountID:   req.AccountID,
		Debit:       req.Debit,
		Credit:      req.Credit,
		VoucherType: VoucherJournal,
		PartyType:   req.PartyType,
		PartyID:     req.PartyID,
		Remarks:     req.Remarks,
	}
	if e.PostingDate.IsZero() {
		e.PostingDate = s.clock.today()
	}
	var out []model.LedgerEntry
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.Post(ctx, e)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// CancelJournal cancels a manual posting.
func (s *LedgerService) CancelJournal(ctx context.Context, id int) error {
	e, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if e.VoucherType != VoucherJournal {
		return stateError("entry %d belongs to %s %v and is cancelled with it", id, e.VoucherType, derefInt(e.VoucherID))
	}
	if e.DocStatus != model.DocSubmitted {
		return stateError("entry %d is %s", id, e.DocStatus)
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.entries.SetDocStatus(ctx, e.ID, model.DocCancelled); err != nil {
			return err
		}
		_, err := s.accounts.RecomputeBalance(ctx, e.AccountID)
		return err
	})
}

// Post submits entries and refreshes the balances of their accounts. It is
// meant to run inside the caller's transaction.
func (s *LedgerService) Post(ctx context.Context, entries ...model.LedgerEntry) ([]model.LedgerEntry, error) {
	out := make([]model.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if e.PostingDate.IsZero() {
			e.PostingDate = s.clock.today()
		}
		e.Debit = model.RoundMoney(e.Debit)
		e.Credit = model.RoundMoney(e.Credit)
		if e.Debit < 0 || e.Credit < 0 {
			return nil, invalid("debit", "debit and credit cannot be negative")
		}
		if (e.Debit > 0) == (e.Credit > 0) {
			return nil, invalid("debit", "exactly one of debit and credit must be positive")
		}

		acc, err := s.accounts.GetByID(ctx, e.AccountID)
		if err != nil {
			return nil, err
		}
		if acc.IsGroup {
			return nil, invalid("account_id", "cannot post to group account %q", acc.AccountName)
		}
		prev, found, err := s.entries.LastBalance(ctx, e.AccountID, e.PostingDate)
		if err != nil {
			return nil, err
		}
		if !found {
			prev = acc.OpeningBalance
		}

		e.AccountName = acc.AccountName
		e.Balance = model.RoundMoney(prev + e.Debit - e.Credit)
		e.DocStatus = model.DocSubmitted
		if err := s.entries.Create(ctx, &e); err != nil {
			return nil, err
		}
		if _, err := s.accounts.RecomputeBalance(ctx, e.AccountID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// PostPair posts a balanced debit/credit pair between two named accounts.
func (s *LedgerService) PostPair(ctx context.Context, date model.Date, debitAccount, creditAccount string, amount float64, voucherType string, voucherID int, partyType string, partyID *int, remarks string) error {
	if amount <= 0 {
		return nil
	}
	dr, err := s.AccountID(ctx, debitAccount)
	if err != nil {
		return err
	}
	cr, err := s.AccountID(ctx, creditAccount)
	if err != nil {
		return err
	}
	return s.PostBetween(ctx, date, dr, cr, amount, voucherType, voucherID, partyType, partyID, remarks)
}

// PostBetween posts a balanced debit/credit pair between two accounts.
func (s *LedgerService) PostBetween(ctx context.Context, date model.Date, debitID, creditID int, amount float64, voucherType string, voucherID int, partyType string, partyID *int, remarks string) error {
	if amount <= 0 {
		return nil
	}
	vid := intPtr(voucherID)
	_, err := s.Post(ctx,
		model.LedgerEntry{PostingDate: date, AccountID: debitID, Debit: amount, VoucherType: voucherType, VoucherID: vid, PartyType: partyType, PartyID: partyID, Remarks: remarks},
		model.LedgerEntry{PostingDate: date, AccountID: creditID, Credit: amount, VoucherType: voucherType, VoucherID: vid, PartyType: partyType, PartyID: partyID, Remarks: remarks},
	)
	return err
}

// AccountID resolves an account by name.
func (s *LedgerService) AccountID(ctx context.Context, name string) (int, error) {
	a, err := s.accounts.GetByName(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("account %q: %w", name, err)
	}
	return a.ID, nil
}

// CancelVoucher cancels every submitted entry of a voucher and refreshes
// the affected balances. It is meant to run inside the caller's transaction.
func (s *LedgerService) CancelVoucher(ctx context.Context, voucherType string, voucherID int) error {
	entries, err := s.entries.ListByVoucher(ctx, voucherType, voucherID)
	if err != nil {
		return err
	}
	touched := map[int]bool{}
	for _, e := range entries {
		if e.DocStatus != model.DocSubmitted {
			continue
		}
		if err := s.entries.SetDocStatus(ctx, e.ID, model.DocCancelled); err != nil {
			return err
		}
		touched[e.AccountID] = true
	}
	for id := range touched {
		if _, err := s.accounts.RecomputeBalance(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
