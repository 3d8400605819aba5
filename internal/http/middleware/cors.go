package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// exposedHeaders lets browser callers read the compression report.
const exposedHeaders = "Content-Disposition, X-Original-Size, X-Compressed-Size, X-Reduction-Percent, " +
	"X-Compression-Report, X-Processing-Mode, X-Rejected-Count, X-Failed-Count, " +
	"X-RateLimit-Limit, X-RateLimit-Remaining, Retry-After, X-Request-ID"

func CORS() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Header("Access-Control-Allow-Origin", "*")
		ctx.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		ctx.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		ctx.Header("Access-Control-Expose-Headers", exposedHeaders)

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}
		ctx.Next()
	}
}
