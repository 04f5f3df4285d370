package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Leganyst/slotbooking/internal/api/response"
	"github.com/Leganyst/slotbooking/internal/service"
)

type SlotHandler struct {
	query *service.QueryService
	logger *zap.Logger
}

func NewSlotHandler(query *service.QueryService, logger *zap.Logger) *SlotHandler {
	return &SlotHandler{query: query, logger: logger}
}

// GET /api/v1/slots?provider_id=&date=YYYY-MM-DD&include_held=
func (h *SlotHandler) DaySlots(c *gin.Context) {
	providerID, ok := uuidQuery(c, "provider_id")
	if !ok {
		return
	}
	date, ok := dateQuery(c, "date")
	if !ok {
		return
	}
	if date == nil {
		response.BadRequest(c, "date is required")
		return
	}

	includeHeld := false
	if raw := c.Query("include_held"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(c, "include_held must be a boolean")
			return
		}
		includeHeld = v
	}

	slots, err := h.query.DaySlots(c.Request.Context(), providerID, *date, includeHeld)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.OK(c, toSlots(slots))
}

// GET /api/v1/calendar?provider_id=&year=&month=
func (h *SlotHandler) MonthCalendar(c *gin.Context) {
	providerID, ok := uuidQuery(c, "provider_id")
	if !ok {
		return
	}
	// без year/month сервис берёт текущий месяц провайдера
	year, ok := intQuery(c, "year", 0)
	if !ok {
		return
	}
	month, ok := intQuery(c, "month", 0)
	if !ok {
		return
	}

	cal, err := h.query.MonthCalendar(c.Request.Context(), providerID, year, time.Month(month))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.OK(c, toCalendar(cal))
}
