// Package requestid tags every request with an id.
package requestid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// Header is the response header carrying the id.
	Header = "X-Request-ID"
	// LocalsKey is the Fiber locals key holding the id.
	LocalsKey = "request_id"
)

// New returns the middleware. An incoming X-Request-ID is reused.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(Header)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Locals(LocalsKey, id)
		c.Set(Header, id)
		return c.Next()
	}
}
