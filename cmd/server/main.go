package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/coverline/backend/internal/application/services"
	"github.com/coverline/backend/internal/bootstrap"
	"github.com/coverline/backend/internal/infrastructure/database"
	"github.com/coverline/backend/internal/interfaces/middleware"
	"github.com/coverline/backend/internal/interfaces/rest"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}

	db, err := database.GetInstance()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("✅ Database connection established")

	if err := bootstrap.InitializeSchema(db); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	if err := bootstrap.InitializeSeedData(db); err != nil {
		log.Fatalf("Failed to seed data: %v", err)
	}

	svcMgr := services.NewServiceManager(db)
	log.Println("🔧 Service manager initialized")

	router := gin.Default()
	router.Use(middleware.Cors())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authHandler := rest.NewAuthHandler(svcMgr.Auth)
	claimHandler := rest.NewClaimHandler(svcMgr.Claims, svcMgr.Auth)
	policyHandler := rest.NewPolicyHandler(svcMgr.Policies, svcMgr.Auth)
	notificationHandler := rest.NewNotificationHandler(svcMgr.Notification)

	requireAuth := middleware.RequireAuth()

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", requireAuth, authHandler.GetMe)
		}

		claims := api.Group("/claims")
		claims.Use(requireAuth)
		{
			claims.POST("", claimHandler.File)
			claims.GET("/reports/overdue", claimHandler.OverdueReport)
			claims.GET("/:claimId", claimHandler.Get)
			claims.POST("/:claimId/steps/complete", claimHandler.CompleteManualStep)
		}

		policies := api.Group("/policies")
		policies.Use(requireAuth)
		{
			policies.POST("", policyHandler.Purchase)
			policies.GET("/:policyId", policyHandler.Get)
			policies.POST("/:policyId/payment", policyHandler.Payment)
			policies.POST("/:policyId/approve/initial", policyHandler.ApproveInitial)
			policies.POST("/:policyId/approve/final", policyHandler.ApproveFinal)
			policies.POST("/:policyId/decline", policyHandler.Decline)
		}

		notifications := api.Group("/notifications")
		notifications.Use(requireAuth)
		{
			notifications.GET("/customer/:customerId", notificationHandler.ListForCustomer)
			notifications.POST("/:id/read", notificationHandler.MarkAsRead)
		}
	}

	// Background machinery: workflow workers, timer poller, nightly sweeps,
	// outbox publisher
	svcMgr.Start()
	log.Println("📤 Background workers started")

	log.Printf("🚀 Coverline backend listening on http://localhost:%s", port)

	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	svcMgr.Stop()
	log.Println("🛑 Background workers stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	if err := db.Close(); err != nil {
		log.Printf("⚠️ Failed to close database: %v", err)
	}

	log.Println("Server exiting")
}
