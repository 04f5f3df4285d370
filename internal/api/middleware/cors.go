package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS; "*" в списке или пустой список: любые источники.
func CORS(allowOrigins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()

	allowAll := len(allowOrigins) == 0
	for _, o := range allowOrigins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowOrigins
		cfg.AllowCredentials = true
	}

	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", UserIDHeader, RequestIDHeader)
	cfg.ExposeHeaders = []string{RequestIDHeader}
	cfg.MaxAge = 24 * time.Hour

	return cors.New(cfg)
}
