package handlers

import (
	"net/http"

	"eskan-backend/internal/config"
	"eskan-backend/internal/logging"
	"eskan-backend/internal/middleware"
	"eskan-backend/internal/services"
	"eskan-backend/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Services is everything the HTTP layer talks to.
type Services struct {
	Accounts      *services.AccountService
	Properties    *services.PropertyService
	Catalog       *services.CatalogService
	Analytics     *services.AnalyticsService
	Visitors      *services.VisitorService
	Notifications *services.NotificationService
	Transactions  *services.TransactionService
	Earnings      *services.EarningService
	Hub           *websocket.Hub
}

// NewRouter mounts the API under /api/v1 plus an unauthenticated /health.
func NewRouter(cfg *config.Config, svc Services, log logrus.FieldLogger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logging.RequestLogger(log), middleware.CORS(cfg.CORSOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authMW := middleware.NewAuth(svc.Accounts)
	required := authMW.Required()
	admin := []gin.HandlerFunc{required, authMW.AdminRequired()}

	authHandler := NewAuthHandler(svc.Accounts)
	adminHandler := NewAdminHandler(svc.Accounts)
	propertyHandler := NewPropertyHandler(svc.Properties, cfg)
	catalogHandler := NewCatalogHandler(svc.Catalog)
	analyticsHandler := NewAnalyticsHandler(svc.Analytics)
	visitorHandler := NewVisitorHandler(svc.Visitors)
	notificationHandler := NewNotificationHandler(svc.Notifications, svc.Hub)
	ledgerHandler := NewLedgerHandler(svc.Transactions, svc.Earnings)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", required, authHandler.Logout)
			auth.POST("/change-password", required, authHandler.ChangePassword)
			auth.POST("/reset-password", authHandler.RequestPasswordReset)
			auth.POST("/reset-password/confirm", authHandler.ConfirmPasswordReset)
			auth.GET("/me", required, authHandler.Me)
			auth.PUT("/me", required, authHandler.UpdateMe)
			auth.PUT("/device-token", required, authHandler.SetDeviceToken)
			auth.GET("/check-username", authHandler.CheckUsername)
			auth.GET("/check-email", authHandler.CheckEmail)
		}

		users := v1.Group("/admin/users", admin...)
		{
			users.GET("", adminHandler.GetUsers)
			users.GET("/:id", adminHandler.GetUser)
			users.PUT("/:id/status", adminHandler.UpdateUserStatus)
		}

		properties := v1.Group("/properties")
		{
			public := properties.Group("", authMW.Optional())
			public.GET("", propertyHandler.List)
			public.GET("/featured", propertyHandler.Featured)
			public.GET("/search", propertyHandler.Search)
			public.GET("/:id", propertyHandler.Get)

			properties.POST("", required, propertyHandler.Create)
			properties.GET("/my_properties", required, propertyHandler.Mine)
			properties.GET("/rejected_by_me", required, propertyHandler.RejectedByMe)
			properties.PUT("/:id", required, propertyHandler.Update)
			properties.PATCH("/:id", required, propertyHandler.Update)
			properties.DELETE("/:id", required, propertyHandler.Delete)
			properties.POST("/:id/resubmit", required, propertyHandler.Resubmit)

			properties.GET("/pending", append(admin, propertyHandler.Pending)...)
			properties.GET("/rejected", append(admin, propertyHandler.Rejected)...)
			properties.GET("/deleted", append(admin, propertyHandler.Deleted)...)
			properties.GET("/audit_trail", append(admin, propertyHandler.AuditTrail)...)
			properties.GET("/statistics", append(admin, propertyHandler.Statistics)...)
			properties.POST("/:id/approve", append(admin, propertyHandler.Approve)...)
			properties.POST("/:id/reject", append(admin, propertyHandler.Reject)...)
			properties.POST("/:id/restore", append(admin, propertyHandler.Restore)...)
		}

		areas := v1.Group("/areas")
		{
			areas.GET("", catalogHandler.ListAreas)
			areas.POST("", append(admin, catalogHandler.CreateArea)...)
			areas.PUT("/:id", append(admin, catalogHandler.UpdateArea)...)
			areas.DELETE("/:id", append(admin, catalogHandler.DeleteArea)...)
		}

		offers := v1.Group("/offers")
		{
			offers.GET("", catalogHandler.ListOffers)
			offers.GET("/by_audience", catalogHandler.OffersByAudience)
			offers.POST("", append(admin, catalogHandler.CreateOffer)...)
			offers.PUT("/:id", append(admin, catalogHandler.UpdateOffer)...)
			offers.DELETE("/:id", append(admin, catalogHandler.DeleteOffer)...)
		}

		contacts := v1.Group("/contact-messages")
		{
			contacts.POST("", catalogHandler.SubmitContact)
			contacts.GET("", append(admin, catalogHandler.ListContacts)...)
			contacts.GET("/unread", append(admin, catalogHandler.UnreadContacts)...)
			contacts.GET("/:id", append(admin, catalogHandler.GetContact)...)
			contacts.POST("/:id/mark_as_read", append(admin, catalogHandler.MarkContactRead)...)
			contacts.POST("/:id/mark_as_archived", append(admin, catalogHandler.ArchiveContact)...)
			contacts.DELETE("/:id", append(admin, catalogHandler.DeleteContact)...)
		}

		v1.GET("/activity-logs", append(admin, catalogHandler.ActivityLogs)...)

		analytics := v1.Group("/analytics", admin...)
		{
			analytics.GET("/summary", analyticsHandler.Summary)
			analytics.GET("/properties", analyticsHandler.PropertyStats)
			analytics.GET("/users", analyticsHandler.UserStats)
			analytics.GET("/areas", analyticsHandler.AreaStats)
			analytics.GET("/property_types", analyticsHandler.PropertyTypes)
			analytics.GET("/rooms", analyticsHandler.RoomsDistribution)
			analytics.GET("/offers", analyticsHandler.OfferStats)
			analytics.GET("/contact_messages", analyticsHandler.ContactStats)
			analytics.GET("/price_distribution", analyticsHandler.PriceDistribution)
			analytics.GET("/recent_activities", analyticsHandler.RecentActivities)
			analytics.GET("/top_properties", analyticsHandler.TopProperties)
			analytics.GET("/daily_activity", analyticsHandler.DailyActivity)
			analytics.GET("/monthly_listings", analyticsHandler.MonthlyListings)
			analytics.GET("/top_owners", analyticsHandler.TopOwners)
			analytics.GET("/devices", analyticsHandler.DeviceStats)
		}

		visitors := v1.Group("/visitors")
		{
			visitors.POST("/record_visit", visitorHandler.Record)
			visitors.GET("/today_count", visitorHandler.TodayCount)
			visitors.GET("/total_count", visitorHandler.TotalCount)
			visitors.GET("/daily_stats", visitorHandler.DailyStats)
			visitors.GET("", append(admin, visitorHandler.List)...)
		}

		notifications := v1.Group("/notifications", required)
		{
			notifications.GET("", notificationHandler.List)
			notifications.GET("/unread_count", notificationHandler.UnreadCount)
			notifications.GET("/recent", notificationHandler.Recent)
			notifications.GET("/ws", notificationHandler.Stream)
			notifications.POST("/mark_all_as_read", notificationHandler.MarkAllRead)
			notifications.DELETE("/clear_all", notificationHandler.ClearAll)
			notifications.GET("/:id", notificationHandler.Get)
			notifications.POST("/:id/mark_as_read", notificationHandler.MarkRead)
			notifications.DELETE("/:id", notificationHandler.Delete)
		}

		transactions := v1.Group("/transactions", required)
		{
			transactions.GET("", ledgerHandler.ListTransactions)
			transactions.POST("", ledgerHandler.CreateTransaction)
			transactions.GET("/my_transactions", ledgerHandler.MyTransactions)
			transactions.GET("/statistics", ledgerHandler.TransactionStatistics)
			transactions.GET("/by_property_type", ledgerHandler.TransactionsBy("property_type"))
			transactions.GET("/by_region", ledgerHandler.TransactionsBy("region"))
			transactions.GET("/by_account_type", ledgerHandler.TransactionsBy("account_type"))
			transactions.GET("/:id", ledgerHandler.GetTransaction)
			transactions.PUT("/:id", ledgerHandler.UpdateTransaction)
			transactions.DELETE("/:id", ledgerHandler.DeleteTransaction)
		}

		earnings := v1.Group("/earnings", required)
		{
			earnings.GET("", ledgerHandler.ListEarnings)
			earnings.POST("", ledgerHandler.CreateEarning)
			earnings.GET("/summary", ledgerHandler.EarningsSummary)
			earnings.GET("/by_type", ledgerHandler.EarningsBy("property_type"))
			earnings.GET("/by_area", ledgerHandler.EarningsBy("area"))
			earnings.GET("/monthly", ledgerHandler.MonthlyEarnings)
			earnings.GET("/filter_by_date", ledgerHandler.FilterEarnings)
			earnings.GET("/:id", ledgerHandler.GetEarning)
			earnings.PUT("/:id", ledgerHandler.UpdateEarning)
			earnings.DELETE("/:id", ledgerHandler.DeleteEarning)
		}
	}

	return router
}
