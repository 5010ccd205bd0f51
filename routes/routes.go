package routes

import (
	"net/http"

	"grants-management-api/controllers"
	"grants-management-api/middleware"
	"grants-management-api/models"
	"grants-management-api/monitor"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, grants *controllers.GrantController) {
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			public.POST("/login", controllers.Login)

			public.GET("/health", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{
					"status":  "ok",
					"message": "Grants Management API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.GET("/profile", controllers.GetProfile)

			writers := middleware.RequireRole(models.RoleManager, models.RoleAdmin)

			grantRoutes := protected.Group("/grants")
			{
				grantRoutes.GET("", grants.ListGrants)
				grantRoutes.GET("/export", grants.ExportGrants)
				grantRoutes.GET("/:id", grants.GetGrant)
				grantRoutes.GET("/:id/export", grants.ExportGrant)

				grantRoutes.POST("", writers, grants.CreateGrant)
				grantRoutes.PUT("/:id", writers, grants.UpdateGrant)
				grantRoutes.POST("/:id/compliance", writers, grants.AddCompliance)
				grantRoutes.POST("/:id/disbursements", writers, grants.AddDisbursement)
				grantRoutes.POST("/:id/reports", writers, grants.AddReport)

				grantRoutes.DELETE("/:id", middleware.RequireRole(models.RoleAdmin), grants.DeleteGrant)
			}

			compliance := protected.Group("/compliance")
			{
				compliance.GET("/:id/evidence", grants.DownloadComplianceEvidence)
				compliance.PUT("/:id/status", writers, grants.SetComplianceStatus)
				compliance.POST("/:id/evidence", writers, grants.AttachComplianceEvidence)
			}

			disbursements := protected.Group("/disbursements", writers)
			{
				disbursements.POST("/:id/release", grants.ReleaseDisbursement)
				disbursements.POST("/:id/cancel", grants.CancelDisbursement)
			}

			reports := protected.Group("/reports")
			{
				reports.GET("/:id/file", grants.DownloadReportFile)
				reports.POST("/:id/submit", writers, grants.SubmitReport)
			}

			admin := protected.Group("/admin", middleware.RequireRole(models.RoleAdmin))
			{
				admin.GET("/logs", monitor.LogsHandler(""))
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Endpoint not found"})
	})
}
