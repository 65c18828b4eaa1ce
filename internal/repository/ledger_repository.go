package repository

import (
	"context"
	"errors"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepository handles school ledger data access.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func (r *LedgerRepository) db(ctx context.Context) DBTX { return conn(ctx, r.pool) }

const ledgerSelect = `SELECT l.id, l.posting_date, l.account_id, a.account_name, l.debit, l.credit, l.balance,
	l.voucher_type, l.voucher_id, l.party_type, l.party_id, l.remarks, l.docstatus, l.created_at
	FROM ledger_entries l
	JOIN school_accounts a ON a.id = l.account_id`

func scanLedger(row scanner, e *model.LedgerEntry) error {
	return row.Scan(&e.ID, &e.PostingDate, &e.AccountID, &e.AccountName, &e.Debit, &e.Credit, &e.Balance,
		&e.VoucherType, &e.VoucherID, &e.PartyType, &e.PartyID, &e.Remarks, &e.DocStatus, &e.CreatedAt)
}

// GetByID retrieves a ledger entry.
func (r *LedgerRepository) GetByID(ctx context.Context, id int) (*model.LedgerEntry, error) {
	e := &model.LedgerEntry{}
	if err := scanLedger(r.db(ctx).QueryRow(ctx, ledgerSelect+` WHERE l.id = $1`, id), e); err != nil {
		return nil, mapError(err, nil)
	}
	return e, nil
}

func ledgerFilter(filter model.LedgerFilter) filterBuilder {
	var f filterBuilder
	if filter.AccountID != nil {
		f.add("l.account_id = ?", *filter.AccountID)
	}
	if filter.VoucherType != "" {
		f.add("l.voucher_type = ?", filter.VoucherType)
	}
	if filter.From != nil {
		f.add("l.posting_date >= ?", *filter.From)
	}
	if filter.To != nil {
		f.add("l.posting_date <= ?", *filter.To)
	}
	if filter.Search != "" {
		f.add("(l.remarks ILIKE ? OR a.account_name ILIKE ?)", like(filter.Search))
	}
	return f
}

// ListPaginated retrieves postings in ledger order.
func (r *LedgerRepository) ListPaginated(ctx context.Context, filter model.LedgerFilter) ([]model.LedgerEntry, int, error) {
	f := ledgerFilter(filter)

	var total int
	if err := r.db(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM ledger_entries l JOIN school_accounts a ON a.id = l.account_id`+f.where(), f.args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	suffix, args := f.page(filter.Limit(), filter.Offset())
	rows, err := r.db(ctx).Query(ctx, ledgerSelect+f.where()+` ORDER BY l.posting_date DESC, l.id DESC`+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []model.LedgerEntry{}
	for rows.Next() {
		var e model.LedgerEntry
		if err := scanLedger(rows, &e); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// ListByVoucher returns the submitted postings of a source document.
func (r *LedgerRepository) ListByVoucher(ctx context.Context, voucherType string, voucherID int) ([]model.LedgerEntry, error) {
	rows, err := r.db(ctx).Query(ctx,
		ledgerSelect+` WHERE l.voucher_type = $1 AND l.voucher_id = $2 AND l.docstatus = 1 ORDER BY l.id`,
		voucherType, voucherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []model.LedgerEntry{}
	for rows.Next() {
		var e model.LedgerEntry
		if err := scanLedger(rows, &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LastBalance returns the running balance of the latest submitted posting
// of an account dated on or before asOf. found is false when there is none.
func (r *LedgerRepository) LastBalance(ctx context.Context, accountID int, asOf model.Date) (balance float64, found bool, err error) {
	err = r.db(ctx).QueryRow(ctx,
		`SELECT balance FROM ledger_entries WHERE account_id = $1 AND docstatus = 1 AND posting_date <= $2
		 ORDER BY posting_date DESC, id DESC LIMIT 1`, accountID, asOf,
	).Scan(&balance)
	if err != nil {
		err = mapError(err, nil)
		if errors.Is(err, ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return balance, true, nil
}

// Create inserts a posting.
func (r *LedgerRepository) Create(ctx context.Context, e *model.LedgerEntry) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO ledger_entries (posting_date, account_id, debit, credit, balance, voucher_type, voucher_id,
		 party_type, party_id, remarks, docstatus)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at`,
		e.PostingDate, e.AccountID, e.Debit, e.Credit, e.Balance, e.VoucherType, e.VoucherID,
		e.PartyType, e.PartyID, e.Remarks, e.DocStatus,
	).Scan(&e.ID, &e.CreatedAt)
	return mapError(err, nil)
}

// SetDocStatus changes the lifecycle of one posting.
func (r *LedgerRepository) SetDocStatus(ctx context.Context, id int, status model.DocStatus) error {
	return affected(r.db(ctx).Exec(ctx, `UPDATE ledger_entries SET docstatus = $1 WHERE id = $2`, status, id))
}

// Totals sums debits and credits of an account's submitted postings,
// optionally bounded by posting date.
func (r *LedgerRepository) Totals(ctx context.Context, accountID int, from, to *model.Date) (debit, credit float64, err error) {
	f := filterBuilder{}
	f.add("account_id = ?", accountID)
	f.addRaw("docstatus = 1")
	if from != nil {
		f.add("posting_date >= ?", *from)
	}
	if to != nil {
		f.add("posting_date <= ?", *to)
	}
	err = r.db(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(debit), 0), COALESCE(SUM(credit), 0) FROM ledger_entries`+f.where(), f.args...,
	).Scan(&debit, &credit)
	return debit, credit, err
}

// MovementBefore returns Σ(debit − credit) of an account's submitted
// postings dated before d.
func (r *LedgerRepository) MovementBefore(ctx context.Context, accountID int, d model.Date) (float64, error) {
	var net float64
	err := r.db(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(debit - credit), 0) FROM ledger_entries
		 WHERE account_id = $1 AND docstatus = 1 AND posting_date < $2`, accountID, d,
	).Scan(&net)
	return net, err
}

// TrialBalance returns one row per non-group account with opening balance
// (including movement before from), period debit and credit, and closing.
func (r *LedgerRepository) TrialBalance(ctx context.Context, from, to model.Date) ([]model.AccountBalance, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT a.id, a.account_name,
		   a.opening_balance + COALESCE(SUM(l.debit - l.credit) FILTER (WHERE l.posting_date < $1), 0),
		   COALESCE(SUM(l.debit) FILTER (WHERE l.posting_date BETWEEN $1 AND $2), 0),
		   COALESCE(SUM(l.credit) FILTER (WHERE l.posting_date BETWEEN $1 AND $2), 0)
		 FROM school_accounts a
		 LEFT JOIN ledger_entries l ON l.account_id = a.id AND l.docstatus = 1
		 WHERE NOT a.is_group
		 GROUP BY a.id, a.account_name, a.opening_balance
		 ORDER BY a.account_name`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.AccountBalance{}
	for rows.Next() {
		var b model.AccountBalance
		if err := rows.Scan(&b.AccountID, &b.AccountName, &b.OpeningBalance, &b.TotalDebit, &b.TotalCredit); err != nil {
			return nil, err
		}
		b.NetMovement = model.RoundMoney(b.TotalDebit - b.TotalCredit)
		b.ClosingBalance = model.RoundMoney(b.OpeningBalance + b.NetMovement)
		out = append(out, b)
	}
	return out, rows.Err()
}
