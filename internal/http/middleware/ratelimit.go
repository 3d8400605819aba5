package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/media-compress/internal/metrics"
	"github.com/phambaophuc/media-compress/internal/models"
	"github.com/phambaophuc/media-compress/internal/services/ratelimit"
)

// RateLimit admits or rejects the request before any body is read.
func RateLimit(limiter *ratelimit.Limiter, m *metrics.Metrics) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		decision := limiter.Admit(ctx.Request.Context(), ratelimit.ClientIdentity(ctx.Request))
		m.ObserveAdmission(limiter.Name(), decision.Allowed)

		ctx.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		ctx.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			retry := decision.RetryAfter(time.Now())
			ctx.Header("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))

			err := models.NewError(models.KindAdmissionDenied, "too many requests, please try again later", nil)
			_ = ctx.Error(err)
			ctx.AbortWithStatusJSON(err.Kind.HTTPStatus(), models.ErrorResponse{Error: models.PublicMessage(err)})
			return
		}

		ctx.Next()
	}
}
