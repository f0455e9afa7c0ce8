package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"hotel-ledger/clock"
	"hotel-ledger/config"
	"hotel-ledger/controllers"
	"hotel-ledger/queue"
	"hotel-ledger/routes"
	"hotel-ledger/services"
)

func main() {
	// Load .env (optional)
	envErr := godotenv.Load()

	logger, err := config.NewLogger()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if envErr != nil {
		logger.Info(".env not loaded; using process environment")
	}

	frontDesk, err := config.LoadFrontDesk()
	if err != nil {
		logger.Fatal("invalid front-desk configuration", zap.Error(err))
	}

	if err := config.ConnectDatabase(logger); err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	db := config.DB

	rdb := config.NewRedisClient(logger)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	// events are optional: without a broker URL the ledger runs without publishing
	var events services.EventPublisher
	if strings.TrimSpace(os.Getenv("RABBITMQ_URL")) != "" || strings.TrimSpace(os.Getenv("AMQP_URL")) != "" {
		events = queue.NewPublisher(logger)
	}

	clk := clock.System{Location: frontDesk.Location}

	// Initialize services
	settingsService := services.NewSettingsService(db, frontDesk.Policy)
	reservationService := services.NewReservationService(db, clk, settingsService, events, logger)
	roomService := services.NewRoomService(db)
	roomTypeService := services.NewRoomTypeService(db)
	customerService := services.NewCustomerService(db)

	// Build router
	router := routes.SetupRouter(routes.Deps{
		Reservations: controllers.NewReservationController(reservationService),
		Rooms:        controllers.NewRoomController(roomService, reservationService),
		RoomTypes:    controllers.NewRoomTypeController(roomTypeService),
		Customers:    controllers.NewCustomerController(customerService),
		Settings:     controllers.NewSettingsController(settingsService),
		Redis:        rdb,
		Log:          logger,
	})

	// Port from env (prefer), fallback to 8080
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	addr := ":" + port

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", addr),
			zap.String("timezone", frontDesk.Location.String()),
			zap.Duration("checkout_cutoff", frontDesk.Policy.CheckoutCutoff),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with timeout
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("server stopped gracefully")
}
