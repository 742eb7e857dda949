package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"julianmorley.ca/con-plar/storefront/pkg/global"
	"julianmorley.ca/con-plar/storefront/pkg/services"
)

func statusFor(f *services.Failure) int {
	switch f.Kind {
	case services.NotFound, services.ValidationFailed:
		return http.StatusBadRequest
	case services.UpstreamFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, f *services.Failure) {
	c.JSON(statusFor(f), global.ErrorResponse(f.Message))
}

// failMutation is fail for create, update and delete calls, whose clients
// also read the success flag.
func failMutation(c *gin.Context, f *services.Failure) {
	c.JSON(statusFor(f), global.FailedMutation(f.Message))
}

func badRequest(c *gin.Context, message string) {
	fail(c, &services.Failure{Kind: services.ValidationFailed, Message: message})
}
