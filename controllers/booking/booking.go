package booking

import (
	"errors"

	"service-booking/logger"
	"service-booking/middleware"
	bookingModel "service-booking/models/booking"
	"service-booking/services/lifecycle"
	"service-booking/types"
	bookingTypes "service-booking/types/booking"

	"github.com/gofiber/fiber/v2"
)

// BookingController handles booking lifecycle HTTP requests
type BookingController struct {
	Lifecycle *lifecycle.Service
	Logger    *logger.AsyncLogger
}

// NewBookingController creates a new booking controller
func NewBookingController(svc *lifecycle.Service, asyncLogger *logger.AsyncLogger) *BookingController {
	return &BookingController{
		Lifecycle: svc,
		Logger:    asyncLogger,
	}
}

// Store creates a new booking for the authenticated customer
func (bc *BookingController) Store(c *fiber.Ctx) error {
	var req bookingTypes.BookingCreateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}

	subject, ok := middleware.SubjectID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
			Message: "Invalid user claims",
			Status:  fiber.StatusUnauthorized,
			Data:    nil,
		})
	}

	b, err := bc.Lifecycle.Create(c.Context(), lifecycle.CreateCommand{
		CustomerID:     subject,
		ProviderID:     req.ProviderID,
		ServiceType:    req.ServiceType,
		Category:       req.Category,
		ScheduledDate:  req.ScheduledDate,
		TimeSlot:       req.TimeSlot,
		ServiceAddress: req.ServiceAddress,
		HourlyRate:     req.HourlyRate,
		EstimatedHours: req.EstimatedHours,
		PlatformFee:    req.PlatformFee,
	})
	if err != nil {
		return bc.errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(types.ApiResponse{
		Status:  fiber.StatusCreated,
		Message: "Booking created successfully",
		Data:    b,
	})
}

// Show returns one booking to one of its parties
func (bc *BookingController) Show(c *fiber.Ctx) error {
	subject, ok := middleware.SubjectID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
			Message: "Invalid user claims",
			Status:  fiber.StatusUnauthorized,
			Data:    nil,
		})
	}

	b, err := bc.Lifecycle.Get(c.Context(), c.Params("id"), subject)
	if err != nil {
		return bc.errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Booking retrieved successfully",
		Data:    b,
	})
}

// Index lists the actor's bookings; ?role=provider lists the provider side,
// ?status=... filters by status
func (bc *BookingController) Index(c *fiber.Ctx) error {
	subject, ok := middleware.SubjectID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
			Message: "Invalid user claims",
			Status:  fiber.StatusUnauthorized,
			Data:    nil,
		})
	}

	bookings, err := bc.Lifecycle.ListForActor(c.Context(), subject,
		c.Query("role"), bookingModel.BookingStatus(c.Query("status")))
	if err != nil {
		return bc.errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Bookings retrieved successfully",
		Data:    bookings,
	})
}

// UpdateStatus applies a lifecycle transition requested by either party
func (bc *BookingController) UpdateStatus(c *fiber.Ctx) error {
	var req bookingTypes.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}

	subject, ok := middleware.SubjectID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
			Message: "Invalid user claims",
			Status:  fiber.StatusUnauthorized,
			Data:    nil,
		})
	}

	b, err := bc.Lifecycle.Transition(c.Context(), c.Params("id"), subject,
		bookingModel.BookingStatus(req.Status))
	if err != nil {
		return bc.errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Booking status updated successfully",
		Data:    b,
	})
}

// Cancel aborts a booking on behalf of either party
func (bc *BookingController) Cancel(c *fiber.Ctx) error {
	var req bookingTypes.CancelRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}

	subject, ok := middleware.SubjectID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
			Message: "Invalid user claims",
			Status:  fiber.StatusUnauthorized,
			Data:    nil,
		})
	}

	b, err := bc.Lifecycle.Cancel(c.Context(), c.Params("id"), subject, req.Reason)
	if err != nil {
		return bc.errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Booking cancelled successfully",
		Data:    b,
	})
}

// Review records the customer's rating for a completed booking
func (bc *BookingController) Review(c *fiber.Ctx) error {
	var req bookingTypes.ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}

	subject, ok := middleware.SubjectID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
			Message: "Invalid user claims",
			Status:  fiber.StatusUnauthorized,
			Data:    nil,
		})
	}

	b, err := bc.Lifecycle.Review(c.Context(), c.Params("id"), subject, req.Rating, req.Review)
	if err != nil {
		return bc.errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Review recorded successfully",
		Data:    b,
	})
}

func (bc *BookingController) errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		status, message = fiber.StatusNotFound, "Booking not found"
	case errors.Is(err, lifecycle.ErrForbidden):
		status, message = fiber.StatusForbidden, "You are not a party to this booking"
	case errors.Is(err, lifecycle.ErrBadRequest):
		status, message = fiber.StatusBadRequest, "Invalid request"
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		status, message = fiber.StatusUnprocessableEntity, "Illegal status transition"
	case errors.Is(err, lifecycle.ErrConflict):
		status, message = fiber.StatusConflict, "Booking changed concurrently, retry"
	case errors.Is(err, lifecycle.ErrAlreadyReviewed):
		status, message = fiber.StatusConflict, "Booking already reviewed"
	case errors.Is(err, lifecycle.ErrReviewNotAllowed):
		status, message = fiber.StatusPreconditionFailed, "Booking is not completed"
	case errors.Is(err, lifecycle.ErrUpstreamUnavailable):
		status, message = fiber.StatusBadGateway, "Profile directory unavailable"
	default:
		logger.Error("Booking operation failed", err)
	}

	return c.Status(status).JSON(types.ApiResponse{
		Status:  status,
		Message: message,
		Data:    nil,
	})
}
