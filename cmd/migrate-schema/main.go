// Command migrate-schema creates or updates the grants tables.
package main

import (
	"log"

	"grants-management-api/config"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config.InitDB()

	if err := config.AutoMigrate(config.DB); err != nil {
		config.Logger().WithError(err).Fatal("schema migration failed")
	}
	config.Logger().Info("schema migration completed")
}
