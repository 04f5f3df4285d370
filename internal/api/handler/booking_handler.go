package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Leganyst/slotbooking/internal/api/response"
	"github.com/Leganyst/slotbooking/internal/calendar"
	"github.com/Leganyst/slotbooking/internal/service"
)

// окно по умолчанию для списка бронирований клиента
const defaultBookingsWindow = 90 * 24 * time.Hour

type BookingHandler struct {
	bookings *service.BookingService
	logger *zap.Logger
}

func NewBookingHandler(bookings *service.BookingService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, logger: logger}
}

// Book подтверждает бронирование: 201 или 409 с slot_id и reason.
// POST /api/v1/bookings
func (h *BookingHandler) Book(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	res, err := h.bookings.Confirm(c.Request.Context(), service.ConfirmInput{
		UserID:    userID,
		SlotIDs:   req.SlotIDs,
		ServiceID: req.ServiceID,
		Notes:     req.Notes,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Created(c, ConfirmResponse{Booking: toBooking(res.Booking), SlotIDs: res.SlotIDs})
}

// List — бронирования вызывающего с началом в [from, to).
// GET /api/v1/bookings?from=&to=&page=&page_size=
func (h *BookingHandler) List(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	fromQ, ok := dateQuery(c, "from")
	if !ok {
		return
	}
	toQ, ok := dateQuery(c, "to")
	if !ok {
		return
	}
	page, ok := intQuery(c, "page", 1)
	if !ok {
		return
	}
	pageSize, ok := intQuery(c, "page_size", calendar.DefaultPageSize)
	if !ok {
		return
	}

	from := time.Now().UTC().Truncate(24 * time.Hour)
	if fromQ != nil {
		from = *fromQ
	}
	to := from.Add(defaultBookingsWindow)
	if toQ != nil {
		// to включительно
		to = toQ.AddDate(0, 0, 1)
	}

	p, err := h.bookings.ListForClient(c.Request.Context(), userID, from, to, page, pageSize)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	items := make([]BookingResponse, 0, len(p.Items))
	for i := range p.Items {
		items = append(items, toBooking(&p.Items[i]))
	}
	response.OKPage(c, items, response.Pagination{
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      p.Total,
		TotalPages: p.TotalPages,
		HasNext:    p.HasNext,
		HasPrev:    p.HasPrev,
	})
}

// Get: чужое бронирование отдаётся как 404.
// GET /api/v1/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	b, err := h.bookings.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	// чужие бронирования не раскрываем
	if b.ClientID != userID {
		response.NotFound(c, "booking not found")
		return
	}
	response.OK(c, toBooking(b))
}
