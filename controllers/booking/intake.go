package booking

import (
	"strings"
	"time"

	"service-booking/logger"
	"service-booking/middleware"
	"service-booking/services/intake"
	"service-booking/types"
	bookingTypes "service-booking/types/booking"

	"github.com/gofiber/fiber/v2"
)

// IntakeController turns free-text problem descriptions into structured
// booking suggestions.
type IntakeController struct {
	Intake *intake.IntakeService
	Logger *logger.AsyncLogger
}

// NewIntakeController creates a new intake controller
func NewIntakeController(svc *intake.IntakeService, asyncLogger *logger.AsyncLogger) *IntakeController {
	return &IntakeController{
		Intake: svc,
		Logger: asyncLogger,
	}
}

// Suggest runs the model over the description and returns the suggestion.
// The audit row is written before the model call and finalized
// asynchronously, so a slow save never delays the response.
func (ic *IntakeController) Suggest(c *fiber.Ctx) error {
	startTime := time.Now()

	var req bookingTypes.IntakeSuggestionRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Invalid request body",
			Data:    nil,
		})
	}

	if strings.TrimSpace(req.Description) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Description is required",
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

	requestID := ic.Intake.GenerateRequestID()
	if _, err := ic.Intake.CreateInitialRequest(requestID, subject, req.Description); err != nil {
		logger.Error("Failed to create intake request "+requestID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Internal server error",
			Data:    nil,
		})
	}

	suggestion, err := ic.Intake.Suggest(c.Context(), req.Description)
	processingTime := time.Since(startTime).Milliseconds()
	if err != nil {
		logger.Error("Intake suggestion failed for request "+requestID, err)
		ic.Intake.SaveFailureResultAsync(requestID, err.Error(), processingTime)
		return c.Status(fiber.StatusBadGateway).JSON(types.ApiResponse{
			Status:  fiber.StatusBadGateway,
			Message: "Suggestion service unavailable",
			Data:    fiber.Map{"request_id": requestID},
		})
	}

	ic.Intake.SaveSuccessResultAsync(requestID, suggestion, processingTime)

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Suggestion generated successfully",
		Data: fiber.Map{
			"request_id": requestID,
			"suggestion": suggestion,
		},
	})
}
