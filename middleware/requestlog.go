package middleware

import (
	"strings"
	"time"

	"service-booking/logger"
	"service-booking/types"

	"github.com/gofiber/fiber/v2"
)

// RequestAudit records every request/response pair through the async
// logger. Everything is deep copied before it crosses the channel because
// fiber reuses its buffers after the handler returns.
func RequestAudit(asyncLogger *logger.AsyncLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		asyncLogger.Log(sanitizedLogEntry(c))
		return err
	}
}

func sanitizedLogEntry(c *fiber.Ctx) types.LogEntry {
	method := string([]byte(c.Method()))
	url := string([]byte(c.OriginalURL()))
	requestBody := string(append([]byte(nil), c.Body()...))
	responseBody := string(append([]byte(nil), c.Response().Body()...))

	reqHeaders := c.Request().Header.Header()
	requestHeaders := make([]byte, len(reqHeaders))
	copy(requestHeaders, reqHeaders)

	respHeaders := c.Response().Header.Header()
	responseHeaders := make([]byte, len(respHeaders))
	copy(responseHeaders, respHeaders)

	return types.LogEntry{
		Method:          method,
		URL:             url,
		RequestBody:     requestBody,
		ResponseBody:    responseBody,
		RequestHeaders:  redactAuthorization(string(requestHeaders)),
		ResponseHeaders: string(responseHeaders),
		StatusCode:      c.Response().StatusCode(),
		CreatedAt:       time.Now(),
	}
}

// redactAuthorization blanks credential-bearing header values so tokens
// never land in the audit table.
func redactAuthorization(headers string) string {
	lines := strings.Split(headers, "\r\n")
	for i, line := range lines {
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "authorization:") || strings.HasPrefix(lower, "processor-signature:") {
			name := line[:strings.Index(line, ":")]
			lines[i] = name + ": [REDACTED]"
		}
	}
	return strings.Join(lines, "\r\n")
}
