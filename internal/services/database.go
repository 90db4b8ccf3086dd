package services

import (
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"paybridge/internal/models"
)

// InitDB initializes the database connection with connection pooling
func InitDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return nil, err
	}

	// Get underlying sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Database connection established")
	return db, nil
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&models.Transaction{},
		&models.ProviderCustomer{},
		&models.ProviderPaymentMethod{},
		&models.WebhookEvent{},
	)
	if err != nil {
		return err
	}

	// GORM tags cannot express the COALESCE parts of the reconciliation key,
	// so the uniqueness guarantee concurrent recorders rely on is created
	// directly. Works on both Postgres and SQLite.
	err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_reconciliation
		ON transactions (payment_provider, transaction_family, transaction_family_id,
		COALESCE(orderable_id, 0), COALESCE(transaction_child_id, ''))`).Error
	if err != nil {
		return err
	}

	log.Println("Database migrations completed")
	return nil
}
