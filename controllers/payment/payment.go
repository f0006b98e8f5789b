package payment

import (
	"errors"

	paymentServices "service-booking/httpServices/payments"
	"service-booking/logger"
	"service-booking/middleware"
	"service-booking/services/settlement"
	"service-booking/types"

	"github.com/gofiber/fiber/v2"
)

// PaymentController exposes the settlement surface: intent creation, the
// synchronous confirm path, the asynchronous processor webhook, and the
// payment status read.
type PaymentController struct {
	Settlement *settlement.Service
	Processor  *paymentServices.ProcessorClient
	Logger     *logger.AsyncLogger
}

// NewPaymentController creates a new payment controller
func NewPaymentController(svc *settlement.Service, processor *paymentServices.ProcessorClient, asyncLogger *logger.AsyncLogger) *PaymentController {
	return &PaymentController{
		Settlement: svc,
		Processor:  processor,
		Logger:     asyncLogger,
	}
}

// CreateIntent registers a charge with the processor for a completed booking
func (pc *PaymentController) CreateIntent(c *fiber.Ctx) error {
	subject, ok := middleware.SubjectID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
			Message: "Invalid user claims",
			Status:  fiber.StatusUnauthorized,
			Data:    nil,
		})
	}

	result, err := pc.Settlement.CreateIntent(c.Context(), c.Params("id"), subject)
	if err != nil {
		return pc.errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(types.ApiResponse{
		Status:  fiber.StatusCreated,
		Message: "Payment intent created successfully",
		Data:    result,
	})
}

// Confirm pulls the intent's current state from the processor and applies it
func (pc *PaymentController) Confirm(c *fiber.Ctx) error {
	subject, ok := middleware.SubjectID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
			Message: "Invalid user claims",
			Status:  fiber.StatusUnauthorized,
			Data:    nil,
		})
	}

	result, err := pc.Settlement.Confirm(c.Context(), c.Params("id"), subject)
	if err != nil {
		return pc.errorResponse(c, err)
	}

	message := "Payment confirmed successfully"
	if !result.PaymentCompleted {
		message = "Payment not completed"
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: message,
		Data:    result,
	})
}

// Status returns the settlement state of a booking to one of its parties
func (pc *PaymentController) Status(c *fiber.Ctx) error {
	subject, ok := middleware.SubjectID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
			Message: "Invalid user claims",
			Status:  fiber.StatusUnauthorized,
			Data:    nil,
		})
	}

	result, err := pc.Settlement.GetStatus(c.Context(), c.Params("id"), subject)
	if err != nil {
		return pc.errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Payment status retrieved successfully",
		Data:    result,
	})
}

// Webhook receives asynchronous outcome events from the processor. The
// signature is verified over the raw body before anything else, and the
// response never reveals whether a booking exists. Unknown event types and
// unknown bookings are acknowledged with 200 so the processor stops
// retrying deliveries we will never act on.
func (pc *PaymentController) Webhook(c *fiber.Ctx) error {
	body := c.Body()
	signature := c.Get(paymentServices.SignatureHeader)

	if !pc.Processor.VerifySignature(body, signature) {
		logger.Warning("Rejected webhook with invalid signature")
		return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
			Status:  fiber.StatusUnauthorized,
			Message: "Invalid signature",
			Data:    nil,
		})
	}

	event, err := pc.Processor.ParseEvent(body)
	if err != nil {
		logger.Error("Failed to parse webhook payload", err)
		return c.Status(fiber.StatusBadRequest).JSON(types.ApiResponse{
			Status:  fiber.StatusBadRequest,
			Message: "Malformed event payload",
			Data:    nil,
		})
	}

	outcome := settlement.OutcomeFromEventType(event.Type)
	if outcome == "" {
		logger.Info("Ignoring webhook event type " + event.Type)
		return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
			Status:  fiber.StatusOK,
			Message: "Event acknowledged",
			Data:    nil,
		})
	}

	intent := event.Data.Object
	bookingID := intent.Metadata["booking_id"]
	if bookingID == "" {
		logger.Warning("Webhook event " + event.ID + " carries no booking correlation")
		return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
			Status:  fiber.StatusOK,
			Message: "Event acknowledged",
			Data:    nil,
		})
	}

	if _, err := pc.Settlement.ApplyOutcome(c.Context(), bookingID, intent.ID, outcome); err != nil {
		if errors.Is(err, settlement.ErrNotFound) {
			logger.Warning("Webhook references unknown booking " + bookingID)
			return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
				Status:  fiber.StatusOK,
				Message: "Event acknowledged",
				Data:    nil,
			})
		}
		logger.Error("Failed to apply webhook outcome for booking "+bookingID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(types.ApiResponse{
			Status:  fiber.StatusInternalServerError,
			Message: "Internal server error",
			Data:    nil,
		})
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Event processed",
		Data:    nil,
	})
}

func (pc *PaymentController) errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, settlement.ErrNotFound):
		status, message = fiber.StatusNotFound, "Booking not found"
	case errors.Is(err, settlement.ErrForbidden):
		status, message = fiber.StatusForbidden, "You are not allowed to settle this booking"
	case errors.Is(err, settlement.ErrPreconditionFailed):
		status, message = fiber.StatusPreconditionFailed, "Booking is not completed"
	case errors.Is(err, settlement.ErrNoIntent):
		status, message = fiber.StatusConflict, "No payment intent exists for this booking"
	case errors.Is(err, settlement.ErrAlreadySettled):
		status, message = fiber.StatusConflict, "Booking already settled"
	case errors.Is(err, settlement.ErrAmountTooSmall):
		status, message = fiber.StatusUnprocessableEntity, "Charge amount below processor minimum"
	case errors.Is(err, settlement.ErrUpstreamUnavailable):
		status, message = fiber.StatusBadGateway, "Payment processor unavailable"
	default:
		logger.Error("Payment operation failed", err)
	}

	return c.Status(status).JSON(types.ApiResponse{
		Status:  status,
		Message: message,
		Data:    nil,
	})
}
