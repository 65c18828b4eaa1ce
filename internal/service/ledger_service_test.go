package service

import (
	"context"
	"testing"
	"time"

	"github.com/easygo/easygo-schools/internal/model"
	"github.com/easygo/easygo-schools/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_CreateAccount(t *testing.T) {
	svc, accounts, _ := newTestLedger(fixedClock(2025, time.September, 1))

	a, err := svc.CreateAccount(context.Background(), model.SchoolAccountRequest{
		AccountName:     " Banque Populaire ",
		AccountType:     model.AccountBank,
		ParentAccountID: intPtr(7),
		OpeningBalance:  150000.5,
		BankName:        "Banque Populaire",
		IBAN:            "MA64 0110 0000 0000 1234 5678 901",
	})
	require.NoError(t, err)
	assert.Equal(t, "Banque Populaire", a.AccountName)
	assert.Equal(t, "MAD", a.Currency)
	assert.Equal(t, "MA6401100000000012345678901", a.IBAN)
	assert.Equal(t, 150000.5, a.CurrentBalance)
	assert.True(t, a.IsActive)
	assert.Len(t, accounts.byID, 8)
}

func TestLedger_CreateAccountRejects(t *testing.T) {
	tests := []struct {
		name  string
		req   model.SchoolAccountRequest
		field string
	}{
		{"bank group", model.SchoolAccountRequest{AccountName: "Banques", AccountType: model.AccountBank, IsGroup: true, BankName: "X"}, "is_group"},
		{"bank without name", model.SchoolAccountRequest{AccountName: "CIH", AccountType: model.AccountBank}, "bank_name"},
		{"short iban", model.SchoolAccountRequest{AccountName: "Caisse 2", AccountType: model.AccountCash, IBAN: "MA64 0110"}, "iban"},
		{"parent not a group", model.SchoolAccountRequest{AccountName: "Petite caisse", AccountType: model.AccountCash, ParentAccountID: intPtr(3)}, "parent_account_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestLedger(fixedClock(2025, time.September, 1))
			_, err := svc.CreateAccount(context.Background(), tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	svc, _, _ := newTestLedger(fixedClock(2025, time.September, 1))
	_, err := svc.CreateAccount(context.Background(), model.SchoolAccountRequest{
		AccountName: "Orphelin", AccountType: model.AccountAsset, ParentAccountID: intPtr(42),
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLedger_AccountHierarchyCycle(t *testing.T) {
	svc, _, _ := newTestLedger(fixedClock(2025, time.September, 1))
	ctx := context.Background()

	current, err := svc.CreateAccount(ctx, model.SchoolAccountRequest{
		AccountName: "Actifs courants", AccountType: model.AccountAsset, IsGroup: true, ParentAccountID: intPtr(7),
	})
	require.NoError(t, err)

	_, err = svc.UpdateAccount(ctx, 7, model.SchoolAccountRequest{
		AccountName: "Assets", AccountType: model.AccountAsset, IsGroup: true, ParentAccountID: intPtr(current.ID),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "circular account hierarchy", verr.Message)

	_, err = svc.UpdateAccount(ctx, current.ID, model.SchoolAccountRequest{
		AccountName: "Actifs courants", AccountType: model.AccountAsset, IsGroup: true, ParentAccountID: intPtr(current.ID),
	})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "parent_account_id", verr.Field)
}

func TestLedger_PostRejects(t *testing.T) {
	tests := []struct {
		name  string
		entry model.LedgerEntry
		field string
	}{
		{"negative", model.LedgerEntry{AccountID: 3, Debit: -5}, "debit"},
		{"both sides", model.LedgerEntry{AccountID: 3, Debit: 5, Credit: 5}, "debit"},
		{"neither side", model.LedgerEntry{AccountID: 3}, "debit"},
		{"group account", model.LedgerEntry{AccountID: 7, Debit: 5}, "account_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, entries := newTestLedger(fixedClock(2025, time.September, 1))
			_, err := svc.Post(context.Background(), tt.entry)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Empty(t, entries.rows)
		})
	}
}

func TestLedger_JournalRunningBalance(t *testing.T) {
	svc, accounts, _ := newTestLedger(fixedClock(2025, time.October, 15))
	ctx := context.Background()
	accounts.byID[3].OpeningBalance = 1000

	first, err := svc.PostJournal(ctx, model.LedgerEntryRequest{
		PostingDate: model.NewDate(2025, time.September, 15), AccountID: 3, Debit: 500, Remarks: "Apport",
	})
	require.NoError(t, err)
	assert.Equal(t, 1500.0, first.Balance)
	assert.Equal(t, VoucherJournal, first.VoucherType)
	assert.Equal(t, "Cash", first.AccountName)

	second, err := svc.PostJournal(ctx, model.LedgerEntryRequest{AccountID: 3, Credit: 200})
	require.NoError(t, err)
	assert.Equal(t, 1300.0, second.Balance)
	assert.Equal(t, model.NewDate(2025, time.October, 15), second.PostingDate)
	assert.Equal(t, 1300.0, accounts.byID[3].CurrentBalance)

	bal, err := svc.AccountBalance(ctx, 3, datePtr(model.NewDate(2025, time.October, 1)), nil)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, bal.OpeningBalance)
	assert.Equal(t, 0.0, bal.TotalDebit)
	assert.Equal(t, 200.0, bal.TotalCredit)
	assert.Equal(t, 1300.0, bal.ClosingBalance)

	require.NoError(t, svc.CancelJournal(ctx, first.ID))
	assert.Equal(t, 800.0, accounts.byID[3].CurrentBalance)
	assert.ErrorIs(t, svc.CancelJournal(ctx, first.ID), ErrInvalidState)
}

func TestLedger_BackdatedJournalBalance(t *testing.T) {
	svc, accounts, _ := newTestLedger(fixedClock(2025, time.October, 15))
	ctx := context.Background()
	accounts.byID[3].OpeningBalance = 1000

	_, err := svc.PostJournal(ctx, model.LedgerEntryRequest{
		PostingDate: model.NewDate(2025, time.October, 10), AccountID: 3, Debit: 500,
	})
	require.NoError(t, err)

	backdated, err := svc.PostJournal(ctx, model.LedgerEntryRequest{
		PostingDate: model.NewDate(2025, time.October, 1), AccountID: 3, Credit: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, 900.0, backdated.Balance)
	assert.Equal(t, 1400.0, accounts.byID[3].CurrentBalance)

	sameDay, err := svc.PostJournal(ctx, model.LedgerEntryRequest{
		PostingDate: model.NewDate(2025, time.October, 10), AccountID: 3, Debit: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, 1550.0, sameDay.Balance)
}

func TestLedger_VoucherEntriesCancelWithVoucher(t *testing.T) {
	svc, accounts, entries := newTestLedger(fixedClock(2025, time.October, 15))
	ctx := context.Background()

	require.NoError(t, svc.PostPair(ctx, model.NewDate(2025, time.October, 15),
		model.AccountNameFeesReceivable, model.AccountNameFeeIncome, 5800, VoucherFeeBill, 12, "Student", intPtr(1), "Frais"))
	require.Len(t, entries.rows, 2)
	assert.Equal(t, 5800.0, accounts.balanceOf(model.AccountNameFeesReceivable))
	assert.Equal(t, -5800.0, accounts.balanceOf(model.AccountNameFeeIncome))

	assert.ErrorIs(t, svc.CancelJournal(ctx, entries.rows[0].ID), ErrInvalidState)

	require.NoError(t, svc.CancelVoucher(ctx, VoucherFeeBill, 12))
	assert.Equal(t, 0.0, accounts.balanceOf(model.AccountNameFeesReceivable))
	assert.Equal(t, 0.0, accounts.balanceOf(model.AccountNameFeeIncome))

	require.NoError(t, svc.PostPair(ctx, model.NewDate(2025, time.October, 15),
		model.AccountNameCash, model.AccountNameFeeIncome, 0, VoucherPayment, 1, "", nil, ""))
	assert.Len(t, entries.rows, 2)

	err := svc.PostPair(ctx, model.NewDate(2025, time.October, 15), "Caisse noire", model.AccountNameFeeIncome, 10, VoucherPayment, 1, "", nil, "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLedger_TrialBalanceRange(t *testing.T) {
	svc, _, _ := newTestLedger(fixedClock(2025, time.October, 15))
	_, err := svc.TrialBalance(context.Background(), model.NewDate(2025, time.October, 1), model.NewDate(2025, time.September, 1))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
