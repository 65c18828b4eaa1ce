package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Common repository errors.
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("record already exists")
	ErrReferenceNotFound = errors.New("referenced record does not exist")
	ErrReferenced        = errors.New("record is referenced by other records")
)

// DBTX is the subset of pgx shared by the pool and a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// TxManager runs a function inside a database transaction. Repositories
// called with the context handed to fn join that transaction.
type TxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager creates a new TxManager.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

// WithinTx commits when fn returns nil and rolls back otherwise. Nested
// calls reuse the outer transaction.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// conn returns the transaction bound to ctx, or the pool.
func conn(ctx context.Context, pool *pgxpool.Pool) DBTX {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// scanner is satisfied by pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// mapError converts driver errors into repository errors. dup, when not
// nil, replaces the generic ErrDuplicate for unique violations.
func mapError(err error, dup error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			if dup != nil {
				return dup
			}
			return ErrDuplicate
		case "23503":
			if strings.Contains(pgErr.Message, "update or delete") {
				return ErrReferenced
			}
			return ErrReferenceNotFound
		}
	}
	return err
}

// IsDuplicate reports whether err is a unique-constraint violation, either
// the generic ErrDuplicate or one of the per-table sentinels.
func IsDuplicate(err error) bool {
	for _, dup := range []error{
		ErrDuplicate, ErrDuplicateAcademicYear, ErrDuplicateAccount, ErrDuplicateEmail,
		ErrDuplicateAttendance, ErrDuplicateClass, ErrDuplicateEmployeeID, ErrDuplicateGrade,
		ErrDuplicateHRAttendance, ErrDuplicateReceipt, ErrDuplicateRole, ErrDuplicateItemCode,
		ErrDuplicateMassar,
	} {
		if errors.Is(err, dup) {
			return true
		}
	}
	return false
}

// affected turns a zero-row update/delete into ErrNotFound.
func affected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return mapError(err, nil)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// filterBuilder accumulates WHERE clauses with positional arguments.
// Each clause takes one argument; every "?" in it refers to that argument.
type filterBuilder struct {
	clauses []string
	args    []interface{}
}

func (b *filterBuilder) add(clause string, arg interface{}) {
	b.clauses = append(b.clauses, strings.ReplaceAll(clause, "?", b.bind(arg)))
}

// bind registers arg and returns its placeholder.
func (b *filterBuilder) bind(arg interface{}) string {
	b.args = append(b.args, arg)
	return "$" + strconv.Itoa(len(b.args))
}

// addRaw adds a clause without arguments.
func (b *filterBuilder) addRaw(clause string) {
	b.clauses = append(b.clauses, clause)
}

func (b *filterBuilder) where() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.clauses, " AND ")
}

// page appends LIMIT/OFFSET placeholders and returns the SQL suffix plus args.
func (b *filterBuilder) page(limit, offset int) (string, []interface{}) {
	args := append(append([]interface{}{}, b.args...), limit, offset)
	n := len(b.args)
	return " LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2), args
}

// like wraps a search term for ILIKE.
func like(s string) string {
	return "%" + strings.TrimSpace(s) + "%"
}
