package provider

import (
	"testing"

	"github.com/stripe/stripe-go/v76"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"paybridge/internal/gateway"
	"paybridge/internal/services"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	// A :memory: database lives on one connection.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := services.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func newTestProvider(t *testing.T, fake *gateway.Fake) *Provider {
	t.Helper()
	if fake == nil {
		fake = &gateway.Fake{}
	}
	return New(testDB(t), fake, nil, Config{SyncRefunds: true})
}

// succeededIntent builds the minimal authoritative state of a captured
// payment.
func succeededIntent(id, chargeID string, amount int64) *stripe.PaymentIntent {
	return &stripe.PaymentIntent{
		ID:             id,
		Status:         stripe.PaymentIntentStatusSucceeded,
		Currency:       stripe.CurrencyGBP,
		AmountReceived: amount,
		LatestCharge: &stripe.Charge{
			ID:     chargeID,
			Status: stripe.ChargeStatusSucceeded,
		},
	}
}

func strPtr(s string) *string { return &s }

func uintPtr(n uint) *uint { return &n }

func int64Ptr(n int64) *int64 { return &n }
