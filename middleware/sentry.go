package middlewares

import (
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// ErrorTracking attaches a sentry hub to each request and reports panics.
// The panic is re-raised so Recovery still writes the response.
func ErrorTracking() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{Repanic: true})
}
