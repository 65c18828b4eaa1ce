package model

import "time"

// StockBalance is the quantity of an item held in one warehouse.
type StockBalance struct {
	Warehouse string  `json:"warehouse"`
	Qty       float64 `json:"qty"`
}

// StockItem is an inventory article. Warehouse is its default location and
// ActualQty the total across Balances.
type StockItem struct {
	ID            int            `json:"id"`
	ItemCode      string         `json:"item_code"`
	ItemName      string         `json:"item_name"`
	ItemGroup     string         `json:"item_group,omitempty"`
	Unit          string         `json:"unit"`
	Warehouse     string         `json:"warehouse"`
	MinQty        float64        `json:"min_qty"`
	MaxQty        float64        `json:"max_qty"`
	ReorderLevel  float64        `json:"reorder_level"`
	ValuationRate float64        `json:"valuation_rate"`
	ActualQty     float64        `json:"actual_qty"`
	Balances      []StockBalance `json:"balances,omitempty"`
	IsActive      bool           `json:"is_active"`
	NeedsReorder  bool           `json:"needs_reorder"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// StockItemRequest is the payload for creating or updating an item.
type StockItemRequest struct {
	ItemCode      string  `json:"item_code" binding:"required,max=50"`
	ItemName      string  `json:"item_name" binding:"required,max=150"`
	ItemGroup     string  `json:"item_group" binding:"omitempty,max=100"`
	Unit          string  `json:"unit" binding:"required,max=20"`
	Warehouse     string  `json:"warehouse" binding:"required,max=100"`
	MinQty        float64 `json:"min_qty" binding:"gte=0"`
	MaxQty        float64 `json:"max_qty" binding:"gte=0"`
	ReorderLevel  float64 `json:"reorder_level" binding:"gte=0"`
	ValuationRate float64 `json:"valuation_rate"`
	IsActive      *bool   `json:"is_active"`
}

// Purposes of a stock entry.
const (
	StockMaterialIssue    = "Material Issue"
	StockMaterialReceipt  = "Material Receipt"
	StockMaterialTransfer = "Material Transfer"
)

// StockEntryItem is one moved article of a stock entry.
type StockEntryItem struct {
	ID       int     `json:"id,omitempty"`
	ItemID   int     `json:"item_id" binding:"required,gt=0"`
	ItemCode string  `json:"item_code,omitempty"`
	Qty      float64 `json:"qty"`
	Rate     float64 `json:"rate" binding:"gte=0"`
	Amount   float64 `json:"amount"`
}

// StockEntry moves inventory in, out or between warehouses.
type StockEntry struct {
	ID              int              `json:"id"`
	Purpose         string           `json:"purpose"`
	PostingDate     Date             `json:"posting_date"`
	SourceWarehouse string           `json:"source_warehouse,omitempty"`
	TargetWarehouse string           `json:"target_warehouse,omitempty"`
	Items           []StockEntryItem `json:"items"`
	TotalAmount     float64          `json:"total_amount"`
	Remarks         string           `json:"remarks,omitempty"`
	DocStatus       DocStatus        `json:"docstatus"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// StockEntryRequest is the payload for drafting a stock entry.
type StockEntryRequest struct {
	Purpose         string           `json:"purpose" binding:"required,oneof='Material Issue' 'Material Receipt' 'Material Transfer'"`
	PostingDate     Date             `json:"posting_date"`
	SourceWarehouse string           `json:"source_warehouse" binding:"omitempty,max=100"`
	TargetWarehouse string           `json:"target_warehouse" binding:"omitempty,max=100"`
	Items           []StockEntryItem `json:"items" binding:"dive"`
	Remarks         string           `json:"remarks" binding:"omitempty,max=1000"`
}
