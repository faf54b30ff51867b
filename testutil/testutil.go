// Package testutil provides an in-memory database and fixtures for tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fullmargin/factures/config"
	"github.com/fullmargin/factures/gateway"
	"github.com/fullmargin/factures/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory sqlite database with foreign keys enforced and
// every table migrated. It is closed when the test ends.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, config.Migrate(db))
	return db
}

// CreateUser inserts a user whose password is "secret123".
func CreateUser(t *testing.T, db *gorm.DB, name, role string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Name:         name,
		Email:        fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		PasswordHash: string(hash),
		Phone:        "+2250700000000",
		Role:         role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateInvoice inserts a PENDING invoice of amount from supplier to merchant.
func CreateInvoice(t *testing.T, db *gorm.DB, supplier, merchant *models.User, amount int64) *models.Invoice {
	t.Helper()
	return CreateInvoiceOf(t, db, supplier, merchant, decimal.NewFromInt(amount))
}

// CreateInvoiceOf is CreateInvoice with a decimal amount such as "300.30".
func CreateInvoiceOf(t *testing.T, db *gorm.DB, supplier, merchant *models.User, amount decimal.Decimal) *models.Invoice {
	t.Helper()

	today := time.Now().UTC().Truncate(24 * time.Hour)
	invoice := &models.Invoice{
		Number:     "FACT-TEST-" + uuid.NewString()[:8],
		Amount:     amount,
		AmountPaid: decimal.Zero,
		IssueDate:  today,
		DueDate:    today.AddDate(0, 0, 30),
		Status:     models.StatusPending,
		SupplierID: supplier.ID,
		MerchantID: merchant.ID,
	}
	require.NoError(t, db.Create(invoice).Error)
	return invoice
}

// ApprovingGateway accepts every charge with a unique reference.
func ApprovingGateway() gateway.Gateway {
	return gateway.Func(func(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
		return &gateway.ChargeResult{
			Success:   true,
			Reference: "MM-TEST-" + uuid.NewString(),
			Message:   "approved",
			Method:    models.MethodMobileMoney,
		}, nil
	})
}

// DecliningGateway declines every charge with message.
func DecliningGateway(message string) gateway.Gateway {
	return gateway.Func(func(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
		return &gateway.ChargeResult{Success: false, Message: message, Method: models.MethodMobileMoney}, nil
	})
}
