package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/media-compress/internal/models"
)

// ValidateContentType rejects uploads that are not multipart/form-data.
func ValidateContentType() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		contentType := ctx.GetHeader("Content-Type")

		if !strings.HasPrefix(strings.ToLower(contentType), "multipart/form-data") {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
				Error: "invalid content type, expected multipart/form-data",
			})
			return
		}

		ctx.Next()
	}
}
