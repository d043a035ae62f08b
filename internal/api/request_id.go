package api

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	// requestIDLocalKey is the shared key for storing the request ID in fiber locals
	requestIDLocalKey = "request_id"
	// maxRequestIDLength is the maximum allowed length for caller-supplied request IDs
	maxRequestIDLength = 256
)

// RequestID extracts the request ID from the X-Request-ID header, or generates
// one. The resolved ID is cached in fiber locals for the rest of the request.
func RequestID(c *fiber.Ctx) string {
	if cached := c.Locals(requestIDLocalKey); cached != nil {
		if str, ok := cached.(string); ok && str != "" {
			return str
		}
	}

	requestID := sanitizeRequestID(c.Get("X-Request-ID"))
	if requestID == "" {
		requestID = generateRequestID()
	}

	c.Locals(requestIDLocalKey, requestID)
	return requestID
}

func sanitizeRequestID(reqID string) string {
	sanitized := strings.TrimSpace(reqID)
	if len(sanitized) > maxRequestIDLength {
		sanitized = sanitized[:maxRequestIDLength]
	}
	return sanitized
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return "req_unknown"
	}
	return "req_" + hex.EncodeToString(bytes)
}
