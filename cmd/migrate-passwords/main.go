// Command migrate-passwords hashes any plaintext passwords left in users.
package main

import (
	"flag"
	"log"

	"grants-management-api/config"
	"grants-management-api/models"
	"grants-management-api/utils"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	dryRun := flag.Bool("dry-run", false, "report users that would be updated without writing")
	flag.Parse()

	config.InitDB()
	logger := config.Logger()

	var users []models.User
	if err := config.DB.Find(&users).Error; err != nil {
		logger.WithError(err).Fatal("failed to fetch users")
	}

	updated := 0
	for _, user := range users {
		entry := logger.WithFields(logrus.Fields{"user_id": user.UserID, "email": user.Email})
		if utils.IsHashedPassword(user.Password) {
			entry.Debug("password already hashed")
			continue
		}
		if *dryRun {
			entry.Info("would hash password")
			continue
		}

		hashed, err := utils.HashPassword(user.Password)
		if err != nil {
			entry.WithError(err).Error("failed to hash password")
			continue
		}
		if err := config.DB.Model(&user).Update("password", hashed).Error; err != nil {
			entry.WithError(err).Error("failed to update password")
			continue
		}
		updated++
		entry.Info("password hashed")
	}

	logger.WithFields(logrus.Fields{"users": len(users), "updated": updated}).Info("password migration completed")
}
