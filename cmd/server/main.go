package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/Daniyar2203/Notification_Engine/internal/config"
	"github.com/Daniyar2203/Notification_Engine/internal/database"
	"github.com/Daniyar2203/Notification_Engine/internal/handlers"
	"github.com/Daniyar2203/Notification_Engine/internal/repository"
	cronjobs "github.com/Daniyar2203/Notification_Engine/internal/scheduler"
	"github.com/Daniyar2203/Notification_Engine/internal/services"
	"github.com/Daniyar2203/Notification_Engine/internal/tasks"
	"github.com/Daniyar2203/Notification_Engine/internal/template"
	"github.com/Daniyar2203/Notification_Engine/pkg/email"
	"github.com/Daniyar2203/Notification_Engine/pkg/logger"
	"github.com/Daniyar2203/Notification_Engine/pkg/middleware"
	"github.com/Daniyar2203/Notification_Engine/pkg/textmsg"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	// Load configuration from .env file
	cfg := config.LoadConfig()

	logger.InitLogger()
	logger.Log.Info("Logger initialized")

	// Connect to MongoDB
	db, err := database.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("Database connection error: %v", err)
	}

	// --- Repositories ---
	notificationRepo := repository.NewNotificationRepository(db)
	boxRepo := repository.NewBoxRepository(db)
	weekRepo := repository.NewWeekRepository(db)
	summaryRepo := repository.NewSummaryRepository(db)
	userRepo := repository.NewUserRepository(db)
	txRunner := repository.NewMongoTxRunner(db.Client())

	// --- Registries ---
	templateRegistry := template.NewRegistry()
	if err := template.RegisterDefaults(templateRegistry); err != nil {
		log.Fatalf("Template registration error: %v", err)
	}
	taskRegistry := tasks.NewRegistry()

	// --- Channel clients ---
	emailSender := email.NewSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPSender, cfg.SMTPPassword)
	textSender := textmsg.NewSender(cfg.TextProviderURL, cfg.TextProviderToken)

	// --- Services ---
	userService := services.NewUserService(userRepo)
	expander := services.NewRecipientExpander(userRepo, func(uid string) string {
		return "summary/user/" + uid
	})
	sendService := services.NewSendService(emailSender, textSender, summaryRepo)
	dispatchService := services.NewDispatchService(
		notificationRepo, boxRepo, weekRepo, txRunner,
		expander, sendService, templateRegistry, taskRegistry,
		cfg.UnknownTypeDeleteAfterAttempts, cfg.SweepBatchSize,
	)
	boxService := services.NewBoxService(
		boxRepo, summaryRepo, userRepo, txRunner,
		services.NewUserBoxInitializer(userRepo), cfg.SweepBatchSize,
	)

	// --- Handlers ---
	userHandler := handlers.NewUserHandler(userService, cfg)
	notificationHandler := handlers.NewNotificationHandler(dispatchService)
	boxHandler := handlers.NewBoxHandler(boxService, dispatchService)

	// Initialize Gorilla Mux router
	router := mux.NewRouter()

	// User routes
	router.HandleFunc("/users/register", userHandler.RegisterUserHandler).Methods("POST")
	router.HandleFunc("/users/login", userHandler.LoginUserHandler).Methods("POST")

	// Notification routes
	protectedNotificationRoutes := router.PathPrefix("/notifications").Subrouter()
	protectedNotificationRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedNotificationRoutes.HandleFunc("", notificationHandler.CreateNotificationHandler).Methods("POST")
	protectedNotificationRoutes.HandleFunc("/{id}/send", notificationHandler.SendNotificationHandler).Methods("POST")
	protectedNotificationRoutes.HandleFunc("/send-queued", notificationHandler.SendQueuedNotificationsHandler).Methods("POST")

	// Box routes
	protectedBoxRoutes := router.PathPrefix("/boxes").Subrouter()
	protectedBoxRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedBoxRoutes.HandleFunc("/{key:.+}/recipients", boxHandler.UpdateRecipientHandler).Methods("PUT")
	protectedBoxRoutes.HandleFunc("/{key:.+}/notifications", notificationHandler.GetBoxNotificationsHandler).Methods("GET")
	protectedBoxRoutes.HandleFunc("/{key:.+}/cleanup", boxHandler.CleanupBoxHandler).Methods("POST")

	// Admin routes
	adminRoutes := router.PathPrefix("/admin").Subrouter()
	adminRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	adminRoutes.Use(middleware.RequireRole("admin"))
	adminRoutes.HandleFunc("/boxes/initialize", boxHandler.InitializeBoxesHandler).Methods("POST")
	adminRoutes.HandleFunc("/summaries/initialize", boxHandler.InitializeSummariesHandler).Methods("POST")

	// Apply middleware for logging
	router.Use(middleware.LoggingMiddleware)

	// Background sweeps
	cronjobs.StartDispatchCronJobs(dispatchService, boxService)

	// Start the HTTP server
	port := cfg.Port
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(router)

	fmt.Printf("Server running on port %s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, handler))
}
