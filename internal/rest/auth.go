package rest

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireBearer rejects requests whose Authorization header is not
// "Bearer <secret>". An empty secret rejects everything.
func RequireBearer(secret string) gin.HandlerFunc {
	want := []byte("Bearer " + secret)
	return func(ctx *gin.Context) {
		got := []byte(ctx.GetHeader("Authorization"))
		if secret == "" || subtle.ConstantTimeCompare(got, want) != 1 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ctx.Next()
	}
}
