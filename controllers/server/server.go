package server

import (
	"time"

	"service-booking/types"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ServerController serves the liveness endpoint.
type ServerController struct {
	DB *gorm.DB
}

func NewServerController(db *gorm.DB) *ServerController {
	return &ServerController{DB: db}
}

// Health reports process and database liveness
func (sc *ServerController) Health(c *fiber.Ctx) error {
	dbStatus := "up"
	if sqlDB, err := sc.DB.DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "down"
	}

	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Status:  fiber.StatusOK,
		Message: "Service is healthy",
		Data: fiber.Map{
			"database": dbStatus,
			"time":     time.Now().UTC(),
		},
	})
}
