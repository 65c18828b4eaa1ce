package model

import "time"

// AccountType classifies a chart-of-accounts entry.
type AccountType string

const (
	AccountAsset      AccountType = "Asset"
	AccountLiability  AccountType = "Liability"
	AccountIncome     AccountType = "Income"
	AccountExpense    AccountType = "Expense"
	AccountEquity     AccountType = "Equity"
	AccountBank       AccountType = "Bank"
	AccountCash       AccountType = "Cash"
	AccountReceivable AccountType = "Receivable"
	AccountPayable    AccountType = "Payable"
)

// Account names the ledger postings rely on. They are seeded by the
// initial migration.
const (
	AccountNameFeesReceivable  = "Student Fees Receivable"
	AccountNameFeeIncome       = "Fee Income"
	AccountNameCash            = "Cash"
	AccountNameSalariesExpense = "Salaries Expense"
	AccountNameSalariesPayable = "Salaries Payable"
	AccountNameAccountsPayable = "Accounts Payable"
)

// SchoolAccount is a node of the chart of accounts.
type SchoolAccount struct {
	ID              int         `json:"id"`
	AccountName     string      `json:"account_name"`
	AccountNumber   string      `json:"account_number,omitempty"`
	AccountType     AccountType `json:"account_type"`
	ParentAccountID *int        `json:"parent_account_id,omitempty"`
	IsGroup         bool        `json:"is_group"`
	OpeningBalance  float64     `json:"opening_balance"`
	CurrentBalance  float64     `json:"current_balance"`
	Currency        string      `json:"currency"`
	BankName        string      `json:"bank_name,omitempty"`
	IBAN            string      `json:"iban,omitempty"`
	IsActive        bool        `json:"is_active"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// SchoolAccountRequest is the payload for creating or updating an account.
type SchoolAccountRequest struct {
	AccountName     string      `json:"account_name" binding:"required,max=150"`
	AccountNumber   string      `json:"account_number" binding:"omitempty,max=50"`
	AccountType     AccountType `json:"account_type" binding:"required,oneof=Asset Liability Income Expense Equity Bank Cash Receivable Payable"`
	ParentAccountID *int        `json:"parent_account_id"`
	IsGroup         bool        `json:"is_group"`
	OpeningBalance  float64     `json:"opening_balance"`
	Currency        string      `json:"currency" binding:"omitempty,len=3"`
	BankName        string      `json:"bank_name" binding:"omitempty,max=150"`
	IBAN            string      `json:"iban" binding:"omitempty,max=34"`
	IsActive        *bool       `json:"is_active"`
}

// LedgerEntry is one posting of the school general ledger. Exactly one of
// Debit and Credit is positive.
type LedgerEntry struct {
	ID          int       `json:"id"`
	PostingDate Date      `json:"posting_date"`
	AccountID   int       `json:"account_id"`
	AccountName string    `json:"account_name,omitempty"`
	Debit       float64   `json:"debit"`
	Credit      float64   `json:"credit"`
	Balance     float64   `json:"balance"`
	VoucherType string    `json:"voucher_type,omitempty"`
	VoucherID   *int      `json:"voucher_id,omitempty"`
	PartyType   string    `json:"party_type,omitempty"`
	PartyID     *int      `json:"party_id,omitempty"`
	Remarks     string    `json:"remarks,omitempty"`
	DocStatus   DocStatus `json:"docstatus"`
	CreatedAt   time.Time `json:"created_at"`
}

// LedgerEntryRequest is the payload for a manual journal posting.
type LedgerEntryRequest struct {
	PostingDate Date    `json:"posting_date"`
	AccountID   int     `json:"account_id" binding:"required,gt=0"`
	Debit       float64 `json:"debit" binding:"gte=0"`
	Credit      float64 `json:"credit" binding:"gte=0"`
	PartyType   string  `json:"party_type" binding:"omitempty,max=50"`
	PartyID     *int    `json:"party_id"`
	Remarks     string  `json:"remarks" binding:"omitempty,max=1000"`
}

// LedgerFilter narrows ledger listings.
type LedgerFilter struct {
	ListFilter
	AccountID   *int   `form:"account_id"`
	VoucherType string `form:"voucher_type"`
	From        *Date  `form:"from"`
	To          *Date  `form:"to"`
}

// AccountBalance summarizes postings of an account over a period.
type AccountBalance struct {
	AccountID      int     `json:"account_id"`
	AccountName    string  `json:"account_name"`
	OpeningBalance float64 `json:"opening_balance"`
	TotalDebit     float64 `json:"total_debit"`
	TotalCredit    float64 `json:"total_credit"`
	NetMovement    float64 `json:"net_movement"`
	ClosingBalance float64 `json:"closing_balance"`
}

// AccountBudgetSummary aggregates the budget lines charged to an account.
type AccountBudgetSummary struct {
	AccountID int     `json:"account_id"`
	Allocated float64 `json:"allocated"`
	Consumed  float64 `json:"consumed"`
	Remaining float64 `json:"remaining"`
}
