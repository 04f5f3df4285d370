package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Leganyst/slotbooking/internal/api/response"
)

const (
	UserIDKey    = "user_id"
	UserIDHeader = "X-User-ID"
)

// Identity кладёт в контекст id пользователя из X-User-ID.
// Аутентификация снаружи: шлюз проставляет заголовок уже проверенного пользователя.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(UserIDHeader)
		if raw == "" {
			response.Unauthorized(c, "missing "+UserIDHeader+" header")
			c.Abort()
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			response.Unauthorized(c, "invalid "+UserIDHeader+" header")
			c.Abort()
			return
		}

		c.Set(UserIDKey, id)
		c.Next()
	}
}
