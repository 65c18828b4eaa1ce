package repository

import (
	"context"
	"errors"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicateItemCode = errors.New("stock item with this code already exists")

// StockRepository handles stock items and stock entries.
type StockRepository struct {
	pool *pgxpool.Pool
}

// NewStockRepository creates a new StockRepository.
func NewStockRepository(pool *pgxpool.Pool) *StockRepository {
	return &StockRepository{pool: pool}
}

func (r *StockRepository) db(ctx context.Context) DBTX { return conn(ctx, r.pool) }

const itemColumns = `id, item_code, item_name, item_group, unit, warehouse, min_qty, max_qty, reorder_level,
	valuation_rate, actual_qty, is_active, created_at, updated_at`

func scanItem(row scanner, it *model.StockItem) error {
	err := row.Scan(&it.ID, &it.ItemCode, &it.ItemName, &it.ItemGroup, &it.Unit, &it.Warehouse, &it.MinQty, &it.MaxQty, &it.ReorderLevel,
		&it.ValuationRate, &it.ActualQty, &it.IsActive, &it.CreatedAt, &it.UpdatedAt)
	it.NeedsReorder = it.ActualQty <= it.ReorderLevel
	return err
}

// GetItem retrieves a stock item with its quantity per warehouse.
func (r *StockRepository) GetItem(ctx context.Context, id int) (*model.StockItem, error) {
	it := &model.StockItem{}
	if err := scanItem(r.db(ctx).QueryRow(ctx, `SELECT `+itemColumns+` FROM stock_items WHERE id = $1`, id), it); err != nil {
		return nil, mapError(err, nil)
	}

	rows, err := r.db(ctx).Query(ctx,
		`SELECT warehouse, qty FROM stock_balances WHERE item_id = $1 AND qty <> 0 ORDER BY warehouse`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	it.Balances = []model.StockBalance{}
	for rows.Next() {
		var b model.StockBalance
		if err := rows.Scan(&b.Warehouse, &b.Qty); err != nil {
			return nil, err
		}
		it.Balances = append(it.Balances, b)
	}
	return it, rows.Err()
}

// GetItemForUpdate retrieves a stock item and locks it for the transaction.
func (r *StockRepository) GetItemForUpdate(ctx context.Context, id int) (*model.StockItem, error) {
	it := &model.StockItem{}
	if err := scanItem(r.db(ctx).QueryRow(ctx, `SELECT `+itemColumns+` FROM stock_items WHERE id = $1 FOR UPDATE`, id), it); err != nil {
		return nil, mapError(err, nil)
	}
	return it, nil
}

// ListItems retrieves stock items matching the filter.
func (r *StockRepository) ListItems(ctx context.Context, filter model.ListFilter, warehouse string) ([]model.StockItem, int, error) {
	var f filterBuilder
	if warehouse != "" {
		f.add("(warehouse = ? OR id IN (SELECT item_id FROM stock_balances WHERE warehouse = ? AND qty > 0))", warehouse)
	}
	if filter.Search != "" {
		f.add("(item_code ILIKE ? OR item_name ILIKE ?)", like(filter.Search))
	}

	var total int
	if err := r.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM stock_items`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	suffix, args := f.page(filter.Limit(), filter.Offset())
	items, err := r.queryItems(ctx, `SELECT `+itemColumns+` FROM stock_items`+f.where()+` ORDER BY item_code`+suffix, args...)
	return items, total, err
}

// ListAllItems returns every active item. With a warehouse, each item
// carries that warehouse and the quantity held there.
func (r *StockRepository) ListAllItems(ctx context.Context, warehouse string) ([]model.StockItem, error) {
	if warehouse == "" {
		return r.queryItems(ctx, `SELECT `+itemColumns+` FROM stock_items WHERE is_active ORDER BY warehouse, item_code`)
	}
	return r.queryItems(ctx,
		`SELECT i.id, i.item_code, i.item_name, i.item_group, i.unit, b.warehouse, i.min_qty, i.max_qty, i.reorder_level,
		 i.valuation_rate, b.qty, i.is_active, i.created_at, i.updated_at
		 FROM stock_items i
		 JOIN stock_balances b ON b.item_id = i.id
		 WHERE i.is_active AND b.warehouse = $1 AND b.qty <> 0
		 ORDER BY i.item_code`, warehouse)
}

// ListReorder returns active items at or below their reorder level.
func (r *StockRepository) ListReorder(ctx context.Context) ([]model.StockItem, error) {
	return r.queryItems(ctx,
		`SELECT `+itemColumns+` FROM stock_items WHERE is_active AND actual_qty <= reorder_level ORDER BY item_code`)
}

func (r *StockRepository) queryItems(ctx context.Context, sql string, args ...interface{}) ([]model.StockItem, error) {
	rows, err := r.db(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.StockItem{}
	for rows.Next() {
		var it model.StockItem
		if err := scanItem(rows, &it); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// CreateItem inserts a stock item.
func (r *StockRepository) CreateItem(ctx context.Context, it *model.StockItem) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO stock_items (item_code, item_name, item_group, unit, warehouse, min_qty, max_qty, reorder_level,
		 valuation_rate, actual_qty, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`,
		it.ItemCode, it.ItemName, it.ItemGroup, it.Unit, it.Warehouse, it.MinQty, it.MaxQty, it.ReorderLevel,
		it.ValuationRate, it.ActualQty, it.IsActive,
	).Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt)
	return mapError(err, ErrDuplicateItemCode)
}

// UpdateItem modifies a stock item's master data. Quantities only change
// through stock entries.
func (r *StockRepository) UpdateItem(ctx context.Context, it *model.StockItem) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE stock_items SET item_code = $1, item_name = $2, item_group = $3, unit = $4, warehouse = $5,
		 min_qty = $6, max_qty = $7, reorder_level = $8, valuation_rate = $9, is_active = $10,
		 updated_at = CURRENT_TIMESTAMP
		 WHERE id = $11`,
		it.ItemCode, it.ItemName, it.ItemGroup, it.Unit, it.Warehouse,
		it.MinQty, it.MaxQty, it.ReorderLevel, it.ValuationRate, it.IsActive, it.ID,
	)
	if err != nil {
		return mapError(err, ErrDuplicateItemCode)
	}
	return affected(tag, nil)
}

// DeleteItem removes a stock item.
func (r *StockRepository) DeleteItem(ctx context.Context, id int) error {
	return affected(r.db(ctx).Exec(ctx, `DELETE FROM stock_items WHERE id = $1`, id))
}

// WarehouseQty returns the quantity of an item held in a warehouse and
// locks that balance for the transaction.
func (r *StockRepository) WarehouseQty(ctx context.Context, itemID int, warehouse string) (float64, error) {
	var qty float64
	err := r.db(ctx).QueryRow(ctx,
		`SELECT qty FROM stock_balances WHERE item_id = $1 AND warehouse = $2 FOR UPDATE`, itemID, warehouse).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return qty, err
}

// AdjustBalance adds delta to an item's quantity in one warehouse and to
// its total.
func (r *StockRepository) AdjustBalance(ctx context.Context, itemID int, warehouse string, delta float64) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO stock_balances (item_id, warehouse, qty) VALUES ($1, $2, $3)
		 ON CONFLICT (item_id, warehouse) DO UPDATE SET qty = stock_balances.qty + EXCLUDED.qty`,
		itemID, warehouse, delta)
	if err != nil {
		return mapError(err, nil)
	}
	return affected(r.db(ctx).Exec(ctx,
		`UPDATE stock_items SET actual_qty = actual_qty + $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, delta, itemID))
}

const entryColumns = `id, purpose, posting_date, source_warehouse, target_warehouse, total_amount, remarks, docstatus,
	created_at, updated_at`

func scanEntry(row scanner, e *model.StockEntry) error {
	return row.Scan(&e.ID, &e.Purpose, &e.PostingDate, &e.SourceWarehouse, &e.TargetWarehouse, &e.TotalAmount, &e.Remarks,
		&e.DocStatus, &e.CreatedAt, &e.UpdatedAt)
}

// GetEntry retrieves a stock entry with its items.
func (r *StockRepository) GetEntry(ctx context.Context, id int) (*model.StockEntry, error) {
	e := &model.StockEntry{}
	if err := scanEntry(r.db(ctx).QueryRow(ctx, `SELECT `+entryColumns+` FROM stock_entries WHERE id = $1`, id), e); err != nil {
		return nil, mapError(err, nil)
	}

	rows, err := r.db(ctx).Query(ctx,
		`SELECT ei.id, ei.item_id, i.item_code, ei.qty, ei.rate, ei.amount
		 FROM stock_entry_items ei
		 JOIN stock_items i ON i.id = ei.item_id
		 WHERE ei.stock_entry_id = $1 ORDER BY ei.idx, ei.id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	e.Items = []model.StockEntryItem{}
	for rows.Next() {
		var it model.StockEntryItem
		if err := rows.Scan(&it.ID, &it.ItemID, &it.ItemCode, &it.Qty, &it.Rate, &it.Amount); err != nil {
			return nil, err
		}
		e.Items = append(e.Items, it)
	}
	return e, rows.Err()
}

// ListEntries retrieves stock entries without their items.
func (r *StockRepository) ListEntries(ctx context.Context, filter model.ListFilter, purpose string) ([]model.StockEntry, int, error) {
	var f filterBuilder
	if purpose != "" {
		f.add("purpose = ?", purpose)
	}

	var total int
	if err := r.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM stock_entries`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	suffix, args := f.page(filter.Limit(), filter.Offset())
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+entryColumns+` FROM stock_entries`+f.where()+` ORDER BY posting_date DESC, id DESC`+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []model.StockEntry{}
	for rows.Next() {
		var e model.StockEntry
		if err := scanEntry(rows, &e); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// CreateEntry inserts a draft stock entry and its items.
func (r *StockRepository) CreateEntry(ctx context.Context, e *model.StockEntry) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO stock_entries (purpose, posting_date, source_warehouse, target_warehouse, total_amount, remarks, docstatus)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		e.Purpose, e.PostingDate, e.SourceWarehouse, e.TargetWarehouse, e.TotalAmount, e.Remarks, e.DocStatus,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return mapError(err, nil)
	}
	for i := range e.Items {
		it := &e.Items[i]
		if err := r.db(ctx).QueryRow(ctx,
			`INSERT INTO stock_entry_items (stock_entry_id, item_id, qty, rate, amount, idx)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			e.ID, it.ItemID, it.Qty, it.Rate, it.Amount, i,
		).Scan(&it.ID); err != nil {
			return mapError(err, nil)
		}
	}
	return nil
}

// SetEntryDocStatus changes the lifecycle of a stock entry.
func (r *StockRepository) SetEntryDocStatus(ctx context.Context, id int, status model.DocStatus) error {
	return affected(r.db(ctx).Exec(ctx,
		`UPDATE stock_entries SET docstatus = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, status, id))
}

// DeleteEntry removes a draft stock entry.
func (r *StockRepository) DeleteEntry(ctx context.Context, id int) error {
	return affected(r.db(ctx).Exec(ctx, `DELETE FROM stock_entries WHERE id = $1 AND docstatus = 0`, id))
}
