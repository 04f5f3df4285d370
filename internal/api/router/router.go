package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Leganyst/slotbooking/internal/api/handler"
	"github.com/Leganyst/slotbooking/internal/api/middleware"
	"github.com/Leganyst/slotbooking/internal/config"
)

// Setup собирает gin-движок со всеми маршрутами /api/v1.
// limiter ограничивает маршруты hold/book; его Evict дёргает планировщик.
func Setup(cfg *config.ServerConfig, h *handler.Handler, limiter *middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		providers := v1.Group("/providers")
		{
			providers.GET("", h.Provider.List)
			providers.POST("", h.Provider.Create)
			providers.GET("/:id", h.Provider.Get)
			providers.POST("/:id/materialize", h.Provider.Materialize)
		}

		rules := v1.Group("/rules")
		{
			rules.GET("", h.Rule.List)
			rules.PUT("", h.Rule.Replace)
			rules.DELETE("/:id", h.Rule.Deactivate)
		}

		overrides := v1.Group("/overrides")
		{
			overrides.GET("", h.Override.List)
			overrides.PUT("", h.Override.Upsert)
			overrides.DELETE("/:id", h.Override.Delete)
		}

		v1.GET("/slots", h.Slot.DaySlots)
		v1.GET("/calendar", h.Slot.MonthCalendar)

		// очистку дёргает планировщик, без пользователя
		v1.POST("/holds/cleanup", h.Hold.Cleanup)

		limited := v1.Group("")
		limited.Use(
			limiter.Handler(),
			middleware.Identity(),
		)
		{
			limited.POST("/holds", h.Hold.Hold)
			limited.POST("/holds/release", h.Hold.Release)

			limited.POST("/bookings", h.Booking.Book)
			limited.GET("/bookings", h.Booking.List)
			limited.GET("/bookings/:id", h.Booking.Get)
		}
	}

	return r
}
