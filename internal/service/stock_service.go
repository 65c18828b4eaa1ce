package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/easygo/easygo-schools/internal/model"
)

type stockStore interface {
	GetItem(ctx context.Context, id int) (*model.StockItem, error)
	GetItemForUpdate(ctx context.Context, id int) (*model.StockItem, error)
	ListItems(ctx context.Context, filter model.ListFilter, warehouse string) ([]model.StockItem, int, error)
	ListReorder(ctx context.Context) ([]model.StockItem, error)
	CreateItem(ctx context.Context, it *model.StockItem) error
	UpdateItem(ctx context.Context, it *model.StockItem) error
	DeleteItem(ctx context.Context, id int) error
	WarehouseQty(ctx context.Context, itemID int, warehouse string) (float64, error)
	AdjustBalance(ctx context.Context, itemID int, warehouse string, delta float64) error
	GetEntry(ctx context.Context, id int) (*model.StockEntry, error)
	ListEntries(ctx context.Context, filter model.ListFilter, purpose string) ([]model.StockEntry, int, error)
	CreateEntry(ctx context.Context, e *model.StockEntry) error
	SetEntryDocStatus(ctx context.Context, id int, status model.DocStatus) error
	DeleteEntry(ctx context.Context, id int) error
}

// StockService maintains inventory items and the entries that move them.
type StockService struct {
	stock stockStore
	tx    Transactor
	clock Clock
}

// NewStockService creates a new StockService.
func NewStockService(stock stockStore, tx Transactor, clock Clock) *StockService {
	return &StockService{stock: stock, tx: tx, clock: clock}
}

func flagReorder(it *model.StockItem) {
	it.NeedsReorder = it.IsActive && it.ActualQty <= it.ReorderLevel
}

func (s *StockService) GetItem(ctx context.Context, id int) (*model.StockItem, error) {
	it, err := s.stock.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	flagReorder(it)
	return it, nil
}

func (s *StockService) ListItems(ctx context.Context, filter model.ListFilter, warehouse string) ([]model.StockItem, int, error) {
	items, total, err := s.stock.ListItems(ctx, filter, warehouse)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		flagReorder(&items[i])
	}
	return items, total, nil
}

// ReorderList returns the active items at or below their reorder level.
func (s *StockService) ReorderList(ctx context.Context) ([]model.StockItem, error) {
	items, err := s.stock.ListReorder(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].NeedsReorder = true
	}
	return items, nil
}

// ValidateItem checks the quantity thresholds of an item.
func ValidateItem(it *model.StockItem) error {
	if it.MinQty >= it.MaxQty {
		return invalid("max_qty", "must be greater than min_qty")
	}
	if it.ReorderLevel < it.MinQty {
		return invalid("reorder_level", "cannot be below min_qty")
	}
	if it.ValuationRate < 0 {
		return invalid("valuation_rate", "cannot be negative")
	}
	return nil
}

func applyItem(it *model.StockItem, req model.StockItemRequest) {
	it.ItemCode = strings.ToUpper(strings.TrimSpace(req.ItemCode))
	it.ItemName = strings.TrimSpace(req.ItemName)
	it.ItemGroup = strings.TrimSpace(req.ItemGroup)
	it.Unit = strings.TrimSpace(req.Unit)
	it.Warehouse = strings.TrimSpace(req.Warehouse)
	it.MinQty = req.MinQty
	it.MaxQty = req.MaxQty
	it.ReorderLevel = req.ReorderLevel
	it.ValuationRate = model.RoundMoney(req.ValuationRate)
	if req.IsActive != nil {
		it.IsActive = *req.IsActive
	}
}

func (s *StockService) CreateItem(ctx context.Context, req model.StockItemRequest) (*model.StockItem, error) {
	it := &model.StockItem{IsActive: true}
	applyItem(it, req)
	if err := ValidateItem(it); err != nil {
		return nil, err
	}
	if err := s.stock.CreateItem(ctx, it); err != nil {
		return nil, err
	}
	flagReorder(it)
	return it, nil
}

func (s *StockService) UpdateItem(ctx context.Context, id int, req model.StockItemRequest) (*model.StockItem, error) {
	it, err := s.stock.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	applyItem(it, req)
	if err := ValidateItem(it); err != nil {
		return nil, err
	}
	if err := s.stock.UpdateItem(ctx, it); err != nil {
		return nil, err
	}
	flagReorder(it)
	return it, nil
}

func (s *StockService) DeleteItem(ctx context.Context, id int) error {
	return s.stock.DeleteItem(ctx, id)
}

func (s *StockService) GetEntry(ctx context.Context, id int) (*model.StockEntry, error) {
	return s.stock.GetEntry(ctx, id)
}

func (s *StockService) ListEntries(ctx context.Context, filter model.ListFilter, purpose string) ([]model.StockEntry, int, error) {
	return s.stock.ListEntries(ctx, filter, purpose)
}

// ValidateWarehouses checks the source and target required by the purpose.
func ValidateWarehouses(e *model.StockEntry) error {
	switch e.Purpose {
	case model.StockMaterialIssue:
		if e.SourceWarehouse == "" {
			return invalid("source_warehouse", "is required for %s", e.Purpose)
		}
	case model.StockMaterialReceipt:
		if e.TargetWarehouse == "" {
			return invalid("target_warehouse", "is required for %s", e.Purpose)
		}
	case model.StockMaterialTransfer:
		if e.SourceWarehouse == "" || e.TargetWarehouse == "" {
			return invalid("source_warehouse", "source and target warehouses are required for %s", e.Purpose)
		}
		if e.SourceWarehouse == e.TargetWarehouse {
			return invalid("target_warehouse", "must differ from the source warehouse")
		}
	default:
		return invalid("purpose", "unknown purpose %q", e.Purpose)
	}
	return nil
}

// CreateEntry drafts a stock entry. Item rates default to the valuation rate.
func (s *StockService) CreateEntry(ctx context.Context, req model.StockEntryRequest) (*model.StockEntry, error) {
	e := &model.StockEntry{
		Purpose:         req.Purpose,
		PostingDate:     req.PostingDate,
		SourceWarehouse: strings.TrimSpace(req.SourceWarehouse),
		TargetWarehouse: strings.TrimSpace(req.TargetWarehouse),
		Remarks:         strings.TrimSpace(req.Remarks),
		DocStatus:       model.DocDraft,
	}
	if e.PostingDate.IsZero() {
		e.PostingDate = s.clock.today()
	}
	if err := ValidateWarehouses(e); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, invalid("items", "at least one item is required")
	}

	var total float64
	for i, line := range req.Items {
		if line.Qty <= 0 {
			return nil, invalid("items", "row %d: quantity must be greater than zero", i+1)
		}
		it, err := s.stock.GetItem(ctx, line.ItemID)
		if err != nil {
			return nil, err
		}
		if !it.IsActive {
			return nil, invalid("items", "row %d: item %s is disabled", i+1, it.ItemCode)
		}
		if line.Rate == 0 {
			line.Rate = it.ValuationRate
		}
		line.ItemCode = it.ItemCode
		line.Amount = model.RoundMoney(line.Qty * line.Rate)
		total += line.Amount
		e.Items = append(e.Items, line)
	}
	e.TotalAmount = model.RoundMoney(total)

	if err := s.stock.CreateEntry(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *StockService) DeleteEntry(ctx context.Context, id int) error {
	e, err := s.stock.GetEntry(ctx, id)
	if err != nil {
		return err
	}
	if e.DocStatus != model.DocDraft {
		return ErrNotEditable
	}
	return s.stock.DeleteEntry(ctx, id)
}

// stockMove is the effect of an entry on one item in one warehouse.
type stockMove struct {
	itemID    int
	warehouse string
	delta     float64
}

// movesFor aggregates an entry's lines per item and warehouse: issues
// debit the source, receipts credit the target, transfers do both.
// reverse undoes the entry.
func movesFor(e *model.StockEntry, reverse bool) []stockMove {
	type key struct {
		itemID    int
		warehouse string
	}
	var moves []stockMove
	index := map[key]int{}
	add := func(itemID int, warehouse string, delta float64) {
		if reverse {
			delta = -delta
		}
		k := key{itemID, warehouse}
		if i, ok := index[k]; ok {
			moves[i].delta += delta
			return
		}
		index[k] = len(moves)
		moves = append(moves, stockMove{itemID: itemID, warehouse: warehouse, delta: delta})
	}
	for _, line := range e.Items {
		switch e.Purpose {
		case model.StockMaterialIssue:
			add(line.ItemID, e.SourceWarehouse, -line.Qty)
		case model.StockMaterialReceipt:
			add(line.ItemID, e.TargetWarehouse, line.Qty)
		case model.StockMaterialTransfer:
			add(line.ItemID, e.SourceWarehouse, -line.Qty)
			add(line.ItemID, e.TargetWarehouse, line.Qty)
		}
	}
	return moves
}

func (s *StockService) apply(ctx context.Context, e *model.StockEntry, reverse bool) error {
	moves := movesFor(e, reverse)

	// Items are locked in id order so concurrent entries cannot deadlock.
	var ids []int
	items := map[int]*model.StockItem{}
	for _, m := range moves {
		if _, ok := items[m.itemID]; !ok {
			items[m.itemID] = nil
			ids = append(ids, m.itemID)
		}
	}
	sort.Ints(ids)
	for _, id := range ids {
		it, err := s.stock.GetItemForUpdate(ctx, id)
		if err != nil {
			return err
		}
		items[id] = it
	}

	for _, m := range moves {
		if m.delta >= 0 {
			continue
		}
		it := items[m.itemID]
		have, err := s.stock.WarehouseQty(ctx, m.itemID, m.warehouse)
		if err != nil {
			return err
		}
		if need := -m.delta; have < need {
			return fmt.Errorf("%w: item %s has %.2f %s in %s, %.2f required",
				ErrInsufficientStock, it.ItemCode, have, it.Unit, m.warehouse, need)
		}
	}
	for _, m := range moves {
		if err := s.stock.AdjustBalance(ctx, m.itemID, m.warehouse, m.delta); err != nil {
			return err
		}
	}
	return nil
}

// SubmitEntry applies the entry's quantities in one transaction.
func (s *StockService) SubmitEntry(ctx context.Context, id int) (*model.StockEntry, error) {
	var e *model.StockEntry
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if e, err = s.stock.GetEntry(ctx, id); err != nil {
			return err
		}
		if e.DocStatus != model.DocDraft {
			return stateError("stock entry %d is already submitted or cancelled", e.ID)
		}
		if err := s.apply(ctx, e, false); err != nil {
			return err
		}
		e.DocStatus = model.DocSubmitted
		return s.stock.SetEntryDocStatus(ctx, e.ID, e.DocStatus)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// CancelEntry reverses a submitted entry.
func (s *StockService) CancelEntry(ctx context.Context, id int) (*model.StockEntry, error) {
	var e *model.StockEntry
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if e, err = s.stock.GetEntry(ctx, id); err != nil {
			return err
		}
		if e.DocStatus != model.DocSubmitted {
			return stateError("only submitted stock entries can be cancelled")
		}
		if err := s.apply(ctx, e, true); err != nil {
			return err
		}
		e.DocStatus = model.DocCancelled
		return s.stock.SetEntryDocStatus(ctx, e.ID, e.DocStatus)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}
