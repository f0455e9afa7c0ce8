package routes

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"hotel-ledger/controllers"
	"hotel-ledger/middleware"
)

func parseCorsOrigins() []string {
	raw := strings.TrimSpace(os.Getenv("CORS_ORIGINS"))
	if raw == "" {
		return []string{"*"}
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// Deps is everything the router wires.
type Deps struct {
	Reservations *controllers.ReservationController
	Rooms        *controllers.RoomController
	RoomTypes    *controllers.RoomTypeController
	Customers    *controllers.CustomerController
	Settings     *controllers.SettingsController
	Redis        *redis.Client
	Log          *zap.Logger
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics(), middleware.Logger(d.Log))

	origins := parseCorsOrigins()
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "X-Actor-ID", middleware.IdempotencyHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.ReplayedHeader},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	idem := middleware.Idempotency(d.Redis, middleware.IdempotencyConfig{}, d.Log)

	api := r.Group("/api")
	{
		rooms := api.Group("/rooms")
		{
			rooms.GET("", d.Rooms.GetRooms)
			rooms.GET("/:id", d.Rooms.GetRoom)
			rooms.GET("/:id/availability", d.Rooms.GetRoomAvailability)
		}

		api.GET("/room-types", d.RoomTypes.GetRoomTypes)

		customers := api.Group("/customers")
		{
			customers.POST("", d.Customers.CreateCustomer)
			customers.GET("/:id", d.Customers.GetCustomer)
		}

		reservations := api.Group("/reservations")
		{
			reservations.POST("", idem, d.Reservations.CreateReservation)
			reservations.GET("/:id", d.Reservations.GetReservation)
			reservations.POST("/:id/checkin", d.Reservations.CheckIn)

			reservations.POST("/:id/payments", idem, d.Reservations.RecordPayment)
			reservations.GET("/:id/payments", d.Reservations.ListPayments)
			reservations.POST("/:id/payments/:paymentId/reverse", idem, d.Reservations.ReversePayment)
			reservations.GET("/:id/summary", d.Reservations.GetSummary)

			reservations.POST("/:id/checkout/request", d.Reservations.RequestCheckout)
			reservations.POST("/:id/checkout", d.Reservations.Checkout)
			reservations.POST("/:id/cancel", d.Reservations.Cancel)
		}

		settings := api.Group("/settings")
		{
			settings.GET("/hotel", d.Settings.GetHotelSettings)
			settings.PUT("/hotel", d.Settings.UpdateHotelSettings)
		}
	}

	return r
}
