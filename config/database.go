package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"grants-management-api/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// DatabaseDSN builds the MySQL DSN from the DB_* environment variables.
func DatabaseDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		os.Getenv("DB_USERNAME"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_DATABASE"),
	)
}

// OpenDB connects to MySQL with the shared log writer.
func OpenDB() (*gorm.DB, error) {
	environment := strings.ToLower(os.Getenv("ENVIRONMENT"))
	debugSQL := strings.ToLower(os.Getenv("DEBUG_SQL"))

	// In production, suppress SQL logs unless explicitly re-enabled via DEBUG_SQL=true.
	logLevel := gormlogger.Info
	if environment == "production" && debugSQL != "true" {
		logLevel = gormlogger.Warn
	}

	cfg := &gorm.Config{
		Logger: gormlogger.New(
			log.New(LogWriter, "\r\n", log.LstdFlags),
			gormlogger.Config{LogLevel: logLevel},
		),
	}

	return gorm.Open(mysql.Open(DatabaseDSN()), cfg)
}

// InitDB opens the shared connection and aborts the process on failure.
func InitDB() {
	db, err := OpenDB()
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	DB = db
	logger.Info("database connected successfully")
}

// AutoMigrate creates or updates the tables owned by this service.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		db = DB
	}
	return db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.FileUpload{},
		&models.Grant{},
		&models.GrantComplianceRequirement{},
		&models.GrantDisbursement{},
		&models.GrantReport{},
	)
}
