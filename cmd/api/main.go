package main

import (
	"context"
	"io"
	"log"
	"os"
	"strconv"

	"grants-management-api/config"
	"grants-management-api/controllers"
	"grants-management-api/middleware"
	"grants-management-api/routes"
	"grants-management-api/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logFile, logWriter := config.InitLogging()
	if logFile != nil {
		defer logFile.Close()
	}
	logger := config.Logger()

	config.InitDB()

	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = logWriter
	gin.DefaultErrorWriter = logWriter

	files, err := config.NewFileStore(context.Background())
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize file storage")
	}
	if closer, ok := files.(io.Closer); ok {
		defer closer.Close()
	}

	pageSize, _ := strconv.Atoi(os.Getenv("GRANTS_PAGE_SIZE"))
	grantService := services.NewGrantService(services.NewGormGrantRepository(config.DB), files)

	router := gin.New()
	router.Use(gin.LoggerWithWriter(logWriter))
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})
	router.Use(middleware.CORSMiddleware())

	routes.SetupRoutes(router, controllers.NewGrantController(grantService, pageSize))

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	logger.WithFields(logrus.Fields{
		"port":    port,
		"mode":    gin.Mode(),
		"storage": os.Getenv("STORAGE_DRIVER"),
	}).Info("grants api starting")

	if err := router.Run(":" + port); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
