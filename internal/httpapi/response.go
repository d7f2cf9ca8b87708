package httpapi

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/Vishal-43/smart-attendece-system/internal/apperr"
)

// envelope is the stable response shape for every endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

// fail translates a domain error into its HTTP response. Unexpected errors
// are logged and surfaced as a generic 500 with no internal detail.
func fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	message := "an unexpected error occurred"
	var data any
	if e, ok := apperr.As(err); ok {
		message = e.Message
		data = e.Data
	} else {
		log.Printf("%s %s: internal error: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, envelope{Success: false, Message: message, Data: data})
}

func failStatus(c *gin.Context, status int, message string) {
	c.JSON(status, envelope{Success: false, Message: message, Data: nil})
}
