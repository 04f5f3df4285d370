package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Leganyst/slotbooking/internal/api/response"
	"github.com/Leganyst/slotbooking/internal/calendar"
	"github.com/Leganyst/slotbooking/internal/service"
)

type OverrideHandler struct {
	overrides *service.OverrideService
	logger *zap.Logger
}

func NewOverrideHandler(overrides *service.OverrideService, logger *zap.Logger) *OverrideHandler {
	return &OverrideHandler{overrides: overrides, logger: logger}
}

// List отдаёт исключения провайдера постранично.
// GET /api/v1/overrides?provider_id=&from=&to=&page=&page_size=
func (h *OverrideHandler) List(c *gin.Context) {
	providerID, ok := uuidQuery(c, "provider_id")
	if !ok {
		return
	}
	from, ok := dateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := dateQuery(c, "to")
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

	overrides, err := h.overrides.List(c.Request.Context(), providerID, from, to)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	items := make([]OverrideResponse, 0, len(overrides))
	for i := range overrides {
		items = append(items, toOverride(&overrides[i]))
	}

	p := calendar.Paginate(items, page, pageSize)
	response.OKPage(c, p.Items, response.Pagination{
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      p.Total,
		TotalPages: p.TotalPages,
		HasNext:    p.HasNext,
		HasPrev:    p.HasPrev,
	})
}

// Upsert
// PUT /api/v1/overrides
func (h *OverrideHandler) Upsert(c *gin.Context) {
	var req UpsertOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		response.BadRequest(c, "date must be YYYY-MM-DD")
		return
	}

	o, err := h.overrides.Upsert(c.Request.Context(), service.OverrideInput{
		ProviderID:  req.ProviderID,
		Date:        date,
		IsAvailable: req.IsAvailable,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Reason:      req.Reason,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.OK(c, toOverride(o))
}

// Delete
// DELETE /api/v1/overrides/:id
func (h *OverrideHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	o, err := h.overrides.Delete(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.OK(c, toOverride(o))
}
