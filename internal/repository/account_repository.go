package repository

import (
	"context"
	"errors"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicateAccount = errors.New("account with this name already exists")

// AccountRepository handles chart-of-accounts data access.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) db(ctx context.Context) DBTX { return conn(ctx, r.pool) }

const accountColumns = `id, account_name, account_number, account_type, parent_account_id, is_group, opening_balance,
	current_balance, currency, bank_name, iban, is_active, created_at, updated_at`

func scanAccount(row scanner, a *model.SchoolAccount) error {
	return row.Scan(&a.ID, &a.AccountName, &a.AccountNumber, &a.AccountType, &a.ParentAccountID, &a.IsGroup, &a.OpeningBalance,
		&a.CurrentBalance, &a.Currency, &a.BankName, &a.IBAN, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id int) (*model.SchoolAccount, error) {
	a := &model.SchoolAccount{}
	if err := scanAccount(r.db(ctx).QueryRow(ctx, `SELECT `+accountColumns+` FROM school_accounts WHERE id = $1`, id), a); err != nil {
		return nil, mapError(err, nil)
	}
	return a, nil
}

// GetByName retrieves an account by its unique name.
func (r *AccountRepository) GetByName(ctx context.Context, name string) (*model.SchoolAccount, error) {
	a := &model.SchoolAccount{}
	if err := scanAccount(r.db(ctx).QueryRow(ctx, `SELECT `+accountColumns+` FROM school_accounts WHERE account_name = $1`, name), a); err != nil {
		return nil, mapError(err, nil)
	}
	return a, nil
}

// List returns the whole chart of accounts ordered by name.
func (r *AccountRepository) List(ctx context.Context, filter model.ListFilter) ([]model.SchoolAccount, error) {
	var f filterBuilder
	if filter.Search != "" {
		f.add("(account_name ILIKE ? OR account_number ILIKE ?)", like(filter.Search))
	}
	rows, err := r.db(ctx).Query(ctx, `SELECT `+accountColumns+` FROM school_accounts`+f.where()+` ORDER BY account_name`, f.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []model.SchoolAccount{}
	for rows.Next() {
		var a model.SchoolAccount
		if err := scanAccount(rows, &a); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Create inserts an account. The current balance starts at the opening balance.
func (r *AccountRepository) Create(ctx context.Context, a *model.SchoolAccount) error {
	a.CurrentBalance = a.OpeningBalance
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO school_accounts (account_name, account_number, account_type, parent_account_id, is_group,
		 opening_balance, current_balance, currency, bank_name, iban, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`,
		a.AccountName, a.AccountNumber, a.AccountType, a.ParentAccountID, a.IsGroup,
		a.OpeningBalance, a.CurrentBalance, a.Currency, a.BankName, a.IBAN, a.IsActive,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return mapError(err, ErrDuplicateAccount)
}

// Update modifies an account's descriptive columns.
func (r *AccountRepository) Update(ctx context.Context, a *model.SchoolAccount) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE school_accounts SET account_name = $1, account_number = $2, account_type = $3, parent_account_id = $4,
		 is_group = $5, opening_balance = $6, currency = $7, bank_name = $8, iban = $9, is_active = $10,
		 updated_at = CURRENT_TIMESTAMP
		 WHERE id = $11`,
		a.AccountName, a.AccountNumber, a.AccountType, a.ParentAccountID,
		a.IsGroup, a.OpeningBalance, a.Currency, a.BankName, a.IBAN, a.IsActive, a.ID,
	)
	if err != nil {
		return mapError(err, ErrDuplicateAccount)
	}
	return affected(tag, nil)
}

// Delete removes an account that has no postings.
func (r *AccountRepository) Delete(ctx context.Context, id int) error {
	return affected(r.db(ctx).Exec(ctx, `DELETE FROM school_accounts WHERE id = $1`, id))
}

// ParentOf returns the parent id of an account, nil for roots.
func (r *AccountRepository) ParentOf(ctx context.Context, id int) (*int, error) {
	var parent *int
	err := r.db(ctx).QueryRow(ctx, `SELECT parent_account_id FROM school_accounts WHERE id = $1`, id).Scan(&parent)
	if err != nil {
		return nil, mapError(err, nil)
	}
	return parent, nil
}

// RecomputeBalance sets current_balance to opening + Σ(debit − credit) over
// submitted postings and returns it.
func (r *AccountRepository) RecomputeBalance(ctx context.Context, id int) (float64, error) {
	var balance float64
	err := r.db(ctx).QueryRow(ctx,
		`UPDATE school_accounts a SET current_balance = a.opening_balance + COALESCE(
		   (SELECT SUM(debit - credit) FROM ledger_entries l WHERE l.account_id = a.id AND l.docstatus = 1), 0),
		 updated_at = CURRENT_TIMESTAMP
		 WHERE a.id = $1
		 RETURNING current_balance`, id,
	).Scan(&balance)
	return balance, mapError(err, nil)
}

// BudgetSummary aggregates the active budget lines charged to an account.
func (r *AccountRepository) BudgetSummary(ctx context.Context, id int) (*model.AccountBudgetSummary, error) {
	s := &model.AccountBudgetSummary{AccountID: id}
	err := r.db(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(allocated_amount), 0), COALESCE(SUM(consumed_amount), 0), COALESCE(SUM(remaining_amount), 0)
		 FROM budget_lines WHERE account_id = $1 AND is_active`, id,
	).Scan(&s.Allocated, &s.Consumed, &s.Remaining)
	if err != nil {
		return nil, err
	}
	return s, nil
}
