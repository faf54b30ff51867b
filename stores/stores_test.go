package stores_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fullmargin/factures/models"
	"github.com/fullmargin/factures/stores"
	"github.com/fullmargin/factures/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestClientStore(t *testing.T) {
	db := testutil.NewDB(t)
	store := stores.CreateClientStore(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "awa", models.RoleSupplier)
	other := testutil.CreateUser(t, db, "yao", models.RoleSupplier)

	first := &models.Client{Name: "Boutique Kone", Phone: "+2250101010101", UserID: owner.ID}
	second := &models.Client{Name: "Superette Diallo", UserID: owner.ID}
	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))
	require.NoError(t, store.Create(ctx, &models.Client{Name: "Ailleurs", UserID: other.ID}))

	clients, err := store.ListByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, second.ID, clients[0].ID)

	_, err = store.GetOwned(ctx, first.ID, other.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	first.Address = "Rue 12, Treichville"
	first.Phone = ""
	require.NoError(t, store.Update(ctx, first))
	got, err := store.GetOwned(ctx, first.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rue 12, Treichville", got.Address)
	assert.Empty(t, got.Phone, "cleared fields are written")

	require.NoError(t, store.Delete(ctx, first.ID, other.ID))
	_, err = store.GetOwned(ctx, first.ID, owner.ID)
	assert.NoError(t, err, "deleting someone else's client is a no-op")

	require.NoError(t, store.Delete(ctx, first.ID, owner.ID))
	_, err = store.GetOwned(ctx, first.ID, owner.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestNotificationStore(t *testing.T) {
	db := testutil.NewDB(t)
	store := stores.CreateNotificationStore(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "kofi", models.RoleMerchant)
	other := testutil.CreateUser(t, db, "ama", models.RoleMerchant)

	require.NoError(t, store.Notify(ctx, user.ID, models.NotificationNewInvoice, "first"))
	require.NoError(t, store.Notify(ctx, user.ID, models.NotificationNewInvoice, "second"))
	require.NoError(t, store.Notify(ctx, other.ID, models.NotificationNewInvoice, "theirs"))

	list, err := store.ListForUser(ctx, user.ID, 50)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Content)
	assert.False(t, list[0].Read)

	unread, err := store.CountUnread(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	assert.ErrorIs(t, store.MarkRead(ctx, list[0].ID, other.ID), gorm.ErrRecordNotFound)
	require.NoError(t, store.MarkRead(ctx, list[0].ID, user.ID))
	require.NoError(t, store.MarkRead(ctx, list[0].ID, user.ID), "marking twice is fine")

	n, err := store.MarkAllRead(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	unread, err = store.CountUnread(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
	unread, err = store.CountUnread(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	assert.ErrorIs(t, store.Delete(ctx, list[1].ID, other.ID), gorm.ErrRecordNotFound)
	require.NoError(t, store.Delete(ctx, list[1].ID, user.ID))
}

func TestWithTransactionRollsBack(t *testing.T) {
	db := testutil.NewDB(t)
	tx := stores.NewTransactor(db)
	notifications := stores.CreateNotificationStore(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "kofi", models.RoleMerchant)

	boom := errors.New("boom")
	err := tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := notifications.Notify(txCtx, user.ID, models.NotificationNewInvoice, "rolled back"); err != nil {
			return err
		}
		return tx.WithTransaction(txCtx, func(context.Context) error { return boom })
	})
	assert.ErrorIs(t, err, boom)

	unread, err := notifications.CountUnread(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestInvoiceStoreAddPayment(t *testing.T) {
	db := testutil.NewDB(t)
	store := stores.CreateInvoiceStore(db)
	ctx := context.Background()
	supplier := testutil.CreateUser(t, db, "awa", models.RoleSupplier)
	merchant := testutil.CreateUser(t, db, "kofi", models.RoleMerchant)
	invoice := testutil.CreateInvoice(t, db, supplier, merchant, 1000)

	tests := []struct {
		name    string
		amount  int64
		applied bool
		paid    int64
		status  models.InvoiceStatus
	}{
		{name: "Partial", amount: 400, applied: true, paid: 400, status: models.StatusPartiallyPaid},
		{name: "Over Remaining", amount: 700, applied: false, paid: 400, status: models.StatusPartiallyPaid},
		{name: "Settles", amount: 600, applied: true, paid: 1000, status: models.StatusPaid},
		{name: "After Paid", amount: 1, applied: false, paid: 1000, status: models.StatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applied, err := store.AddPayment(ctx, invoice.ID, decimal.NewFromInt(tt.amount))
			require.NoError(t, err)
			assert.Equal(t, tt.applied, applied)

			got, err := store.GetForMerchant(ctx, invoice.ID, merchant.ID)
			require.NoError(t, err)
			assert.True(t, got.AmountPaid.Equal(decimal.NewFromInt(tt.paid)), "amount_paid %s", got.AmountPaid)
			assert.Equal(t, tt.status, got.Status)
		})
	}
}

func TestInvoiceStoreTwoDecimalAmounts(t *testing.T) {
	db := testutil.NewDB(t)
	store := stores.CreateInvoiceStore(db)
	ctx := context.Background()
	supplier := testutil.CreateUser(t, db, "awa", models.RoleSupplier)
	merchant := testutil.CreateUser(t, db, "kofi", models.RoleMerchant)
	invoice := testutil.CreateInvoiceOf(t, db, supplier, merchant, decimal.RequireFromString("300.30"))
	cents := testutil.CreateInvoiceOf(t, db, supplier, merchant, decimal.RequireFromString("0.30"))

	tests := []struct {
		name    string
		invoice *models.Invoice
		amount  string
		applied bool
		paid    string
		status  models.InvoiceStatus
	}{
		{name: "First Part", invoice: invoice, amount: "100.10", applied: true, paid: "100.10", status: models.StatusPartiallyPaid},
		{name: "One Cent Over Remaining", invoice: invoice, amount: "200.21", applied: false, paid: "100.10", status: models.StatusPartiallyPaid},
		{name: "Exact Remaining", invoice: invoice, amount: "200.20", applied: true, paid: "300.30", status: models.StatusPaid},
		{name: "Ten Cents", invoice: cents, amount: "0.10", applied: true, paid: "0.10", status: models.StatusPartiallyPaid},
		{name: "Twenty Cents Settle", invoice: cents, amount: "0.20", applied: true, paid: "0.30", status: models.StatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applied, err := store.AddPayment(ctx, tt.invoice.ID, decimal.RequireFromString(tt.amount))
			require.NoError(t, err)
			assert.Equal(t, tt.applied, applied)

			got, err := store.GetForMerchant(ctx, tt.invoice.ID, merchant.ID)
			require.NoError(t, err)
			assert.True(t, got.AmountPaid.Equal(decimal.RequireFromString(tt.paid)), "amount_paid %s", got.AmountPaid)
			assert.Equal(t, tt.status, got.Status)
		})
	}

	t.Run("Totals", func(t *testing.T) {
		totals, err := store.TotalsForParty(ctx, supplier.ID)
		require.NoError(t, err)
		require.Len(t, totals, 1)
		assert.Equal(t, models.StatusPaid, totals[0].Status)
		assert.True(t, totals[0].Amount.Equal(decimal.RequireFromString("300.60")), "amount %s", totals[0].Amount)
		assert.True(t, totals[0].AmountPaid.Equal(decimal.RequireFromString("300.60")), "amount_paid %s", totals[0].AmountPaid)
	})

	t.Run("Update Terms", func(t *testing.T) {
		settled, err := store.GetForSupplier(ctx, invoice.ID, supplier.ID)
		require.NoError(t, err)
		settled.Amount = decimal.RequireFromString("300.31")
		written, err := store.UpdateTerms(ctx, settled)
		require.NoError(t, err)
		assert.False(t, written, "a paid invoice keeps its terms")

		partial := testutil.CreateInvoiceOf(t, db, supplier, merchant, decimal.RequireFromString("300.30"))
		applied, err := store.AddPayment(ctx, partial.ID, decimal.RequireFromString("100.10"))
		require.NoError(t, err)
		require.True(t, applied)

		partial.Amount = decimal.RequireFromString("100.09")
		written, err = store.UpdateTerms(ctx, partial)
		require.NoError(t, err)
		assert.False(t, written, "amount below amount_paid")

		partial.Amount = decimal.RequireFromString("100.10")
		written, err = store.UpdateTerms(ctx, partial)
		require.NoError(t, err)
		assert.True(t, written)

		got, err := store.GetForSupplier(ctx, partial.ID, supplier.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPaid, got.Status)
		assert.True(t, got.Amount.Equal(got.AmountPaid), "amount %s paid %s", got.Amount, got.AmountPaid)
		written, err = store.UpdateTerms(ctx, got)
		require.NoError(t, err)
		assert.False(t, written)
	})
}
