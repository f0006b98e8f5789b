package database

import (
	"fmt"
	"os"

	"service-booking/logger"
	"service-booking/models/booking"
	"service-booking/models/intake"
	"service-booking/models/log"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitDB initializes the database connection with auto migration and indexing
func InitDB() (*gorm.DB, error) {
	if err := godotenv.Load(); err != nil {
		logger.Error("Error loading .env file", err)
	}

	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	database := os.Getenv("DB_DATABASE")
	user := os.Getenv("DB_USERNAME")
	password := os.Getenv("DB_PASSWORD")
	sslmode := os.Getenv("DB_SSLMODE")
	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, database, sslmode)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Error("Failed to connect to the database", err)
		return nil, err
	}
	logger.Success("Successfully connected to the database")

	if err := DB.AutoMigrate(
		&booking.Booking{},
		&booking.BookingStatusEvent{},
		&intake.IntakeRequest{},
		&log.Log{},
	); err != nil {
		logger.Error("Failed to run migrations", err)
		return nil, err
	}
	logger.Success("All migrations completed successfully")

	if err := createIndexes(); err != nil {
		logger.Error("Failed to create indexes", err)
		return nil, err
	}
	logger.Success("All indexes created successfully")

	return DB, nil
}

// createIndexes covers the list, webhook correlation and audit access paths.
func createIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_bookings_customer_status ON bookings (customer_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_bookings_provider_status ON bookings (provider_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_bookings_payment_intent ON bookings (payment_intent_id)",
		"CREATE INDEX IF NOT EXISTS idx_bookings_created_at ON bookings (created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_booking_status_events_booking ON booking_status_events (booking_id, created_at)",
	}

	for _, stmt := range indexes {
		if err := DB.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
