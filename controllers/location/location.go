package location

import (
	"errors"

	"service-booking/logger"
	"service-booking/middleware"
	"service-booking/services/tracking"
	"service-booking/types"
	locationTypes "service-booking/types/location"

	"github.com/gofiber/fiber/v2"
)

// LocationController handles the high-frequency provider position feed and
// the tracking read.
type LocationController struct {
	Tracking *tracking.Service
	Logger   *logger.AsyncLogger
}

// NewLocationController creates a new location controller
func NewLocationController(svc *tracking.Service, asyncLogger *logger.AsyncLogger) *LocationController {
	return &LocationController{
		Tracking: svc,
		Logger:   asyncLogger,
	}
}

// Report ingests one provider position sample
func (lc *LocationController) Report(c *fiber.Ctx) error {
	var req locationTypes.LocationReport
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

	err := lc.Tracking.ReportLocation(c.Context(), c.Params("id"), subject, tracking.Report{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Heading:   req.Heading,
		Speed:     req.Speed,
	})
	if err != nil {
		return lc.errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Location recorded",
		Data:    nil,
	})
}

// Show returns the live tracking view for a party
func (lc *LocationController) Show(c *fiber.Ctx) error {
	subject, ok := middleware.SubjectID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
			Message: "Invalid user claims",
			Status:  fiber.StatusUnauthorized,
			Data:    nil,
		})
	}

	view, err := lc.Tracking.ReadTracking(c.Context(), c.Params("id"), subject)
	if err != nil {
		return lc.errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Tracking retrieved successfully",
		Data:    view,
	})
}

func (lc *LocationController) errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, tracking.ErrNotFound):
		status, message = fiber.StatusNotFound, "Booking not found"
	case errors.Is(err, tracking.ErrForbidden):
		status, message = fiber.StatusForbidden, "You are not allowed to access tracking for this booking"
	case errors.Is(err, tracking.ErrBadRequest):
		status, message = fiber.StatusBadRequest, "Latitude and longitude are required"
	default:
		logger.Error("Tracking operation failed", err)
	}

	return c.Status(status).JSON(types.ApiResponse{
		Status:  status,
		Message: message,
		Data:    nil,
	})
}
