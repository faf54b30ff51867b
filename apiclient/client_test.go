package apiclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fullmargin/factures/apiclient"
	"github.com/fullmargin/factures/config"
	"github.com/fullmargin/factures/models"
	"github.com/fullmargin/factures/server"
	"github.com/fullmargin/factures/testutil"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPI(t *testing.T) *apiclient.Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := server.New(server.Deps{
		DB: testutil.NewDB(t),
		Config: &config.Config{
			JWTSecret:         "test-secret",
			JWTRefreshSecret:  "test-refresh-secret",
			JWTExpiry:         time.Hour,
			JWTRefreshExpiry:  time.Hour,
			GatewayTimeout:    time.Second,
			AuthRatePerSecond: 1000,
			AuthRateBurst:     1000,
		},
		Gateway: testutil.ApprovingGateway(),
		Logger:  zerolog.Nop(),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return apiclient.New(srv.URL+"/api", srv.Client())
}

func TestEndToEnd(t *testing.T) {
	api := newAPI(t)
	ctx := context.Background()

	supplier, err := api.Register(ctx, apiclient.RegisterInput{Name: "Awa", Email: "awa@example.com", Password: "secret123", Role: models.RoleSupplier})
	require.NoError(t, err)
	require.NotNil(t, supplier.User)
	merchant, err := api.Register(ctx, apiclient.RegisterInput{Name: "Kofi", Email: "kofi@example.com", Password: "secret123", Role: models.RoleMerchant})
	require.NoError(t, err)

	invoice, err := supplier.CreateInvoice(ctx, apiclient.CreateInvoiceInput{
		MerchantID: merchant.User.ID,
		Amount:     decimal.NewFromInt(10000),
		IssueDate:  "2026-10-14",
		DueDate:    "2026-11-14",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, invoice.Status)

	res, err := merchant.Pay(ctx, invoice.ID, decimal.NewFromInt(4000), "+2250700000000")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartiallyPaid, res.Status)
	assert.True(t, res.Remaining.Equal(decimal.NewFromInt(6000)))

	_, err = merchant.Pay(ctx, invoice.ID, decimal.NewFromInt(6001), "+2250700000000")
	require.Error(t, err)
	assert.True(t, apiclient.IsStatus(err, http.StatusBadRequest))
	assert.Contains(t, err.Error(), "6000")

	res, err = merchant.Pay(ctx, invoice.ID, decimal.NewFromInt(6000), "+2250700000000")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, res.Status)

	_, err = merchant.Pay(ctx, invoice.ID, decimal.NewFromInt(1), "+2250700000000")
	assert.True(t, apiclient.IsStatus(err, http.StatusConflict))

	got, err := supplier.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Len(t, got.Payments, 2)
	assert.True(t, got.AmountPaid.Equal(got.Amount))

	history, err := supplier.PaymentHistory(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, "Kofi", history[0].CounterpartyName)

	summary, err := merchant.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.ByStatus[models.StatusPaid])

	notes, err := supplier.Notifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), notes.Unread)
	require.NoError(t, supplier.MarkAllNotificationsRead(ctx))

	invoices, err := merchant.ListInvoices(ctx, models.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, invoices)

	client, err := supplier.CreateClient(ctx, apiclient.ClientInput{Name: "Boutique Kone"})
	require.NoError(t, err)
	clients, err := supplier.ListClients(ctx)
	require.NoError(t, err)
	assert.Len(t, clients, 1)
	require.NoError(t, supplier.DeleteClient(ctx, client.ID))

	require.NoError(t, merchant.Refresh(ctx))
	profile, err := merchant.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "kofi@example.com", profile.Email)
}

func TestErrorsAreNormalized(t *testing.T) {
	api := newAPI(t)
	ctx := context.Background()

	_, err := api.Login(ctx, "nobody@example.com", "secret123")
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.NotEmpty(t, apiErr.Message)

	_, err = api.WithToken("garbage").ListInvoices(ctx, "")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "InvalidToken", apiErr.Code)

	unreachable := apiclient.New("http://127.0.0.1:1/api", &http.Client{Timeout: time.Second})
	_, err = unreachable.Login(ctx, "a@b.c", "x")
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, apiErr.Status)
	assert.Error(t, apiErr.Err)
}
