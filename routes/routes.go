package routes

import (
	"os"

	bookingController "service-booking/controllers/booking"
	locationController "service-booking/controllers/location"
	paymentController "service-booking/controllers/payment"
	"service-booking/controllers/server"
	distanceServices "service-booking/httpServices/distance"
	paymentServices "service-booking/httpServices/payments"
	profileServices "service-booking/httpServices/profiles"
	"service-booking/logger"
	"service-booking/middleware"
	"service-booking/realtime"
	"service-booking/repository"
	"service-booking/services/intake"
	"service-booking/services/lifecycle"
	"service-booking/services/settlement"
	"service-booking/services/tracking"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	profileClient := profileServices.NewProfileClient(os.Getenv("PROFILE_BASE_URL"))
	processorClient := paymentServices.NewProcessorClient(
		os.Getenv("PAYMENT_PROCESSOR_URL"),
		os.Getenv("PAYMENT_PROCESSOR_SECRET_KEY"),
		os.Getenv("PAYMENT_PROCESSOR_WEBHOOK_SECRET"),
	)
	var geocoder lifecycle.Geocoder
	var distanceService tracking.DistanceService
	if distanceClient, err := distanceServices.NewDistanceClient(os.Getenv("MAPS_API_KEY")); err != nil {
		// Never wire a nil client; bookings still work, ETA stays unavailable.
		logger.Error("Distance service disabled", err)
		geocoder, distanceService = distanceServices.Unavailable{}, distanceServices.Unavailable{}
	} else {
		geocoder, distanceService = distanceClient, distanceClient
	}

	asyncLogger := logger.NewAsyncLogger(db)
	hub := realtime.NewHub()
	dispatcher := realtime.NewDispatcher(hub)

	// Start the async logger and event fan-out goroutines
	go asyncLogger.ProcessLog()
	go dispatcher.ProcessEvents()

	store := repository.NewBookingRepository(db)
	lifecycleService := lifecycle.NewService(store, profileClient, geocoder, dispatcher)
	settlementService := settlement.NewService(store, processorClient, dispatcher)
	trackingService := tracking.NewService(store, distanceService, dispatcher)
	intakeService := intake.NewIntakeService(db)

	bookings := bookingController.NewBookingController(lifecycleService, asyncLogger)
	intakes := bookingController.NewIntakeController(intakeService, asyncLogger)
	payments := paymentController.NewPaymentController(settlementService, processorClient, asyncLogger)
	locations := locationController.NewLocationController(trackingService, asyncLogger)
	serverController := server.NewServerController(db)

	/*=============================================================================
	| Public Routes
	===============================================================================*/
	api := app.Group("/api")
	api.Get("/health", serverController.Health)
	api.Post("/payments/webhook", payments.Webhook)
	api.Get("/ws", adaptor.HTTPHandlerFunc(hub.ServeWS))

	/*=============================================================================
	| Booking Routes
	===============================================================================*/
	bookingGroup := api.Group("/bookings").
		Use(middleware.RequireAuthentication()).
		Use(middleware.RequestAudit(asyncLogger))

	bookingGroup.Post("/", bookings.Store)
	bookingGroup.Get("/", bookings.Index)
	bookingGroup.Post("/intake/suggest", intakes.Suggest)
	bookingGroup.Get("/:id", bookings.Show)
	bookingGroup.Patch("/:id/status", bookings.UpdateStatus)
	bookingGroup.Post("/:id/cancel", bookings.Cancel)
	bookingGroup.Post("/:id/review", bookings.Review)

	/*=============================================================================
	| Payment Routes
	===============================================================================*/
	paymentGroup := api.Group("/bookings/:id/payment").
		Use(middleware.RequireAuthentication()).
		Use(middleware.RequestAudit(asyncLogger))

	paymentGroup.Post("/intent", payments.CreateIntent)
	paymentGroup.Post("/confirm", payments.Confirm)
	paymentGroup.Get("/status", payments.Status)

	/*=============================================================================
	| Tracking Routes
	===============================================================================*/
	trackingGroup := api.Group("/bookings/:id").
		Use(middleware.RequireAuthentication())

	trackingGroup.Post("/location", locations.Report)
	trackingGroup.Get("/tracking", locations.Show)
}
