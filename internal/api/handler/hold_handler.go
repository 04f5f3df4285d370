package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Leganyst/slotbooking/internal/api/response"
	"github.com/Leganyst/slotbooking/internal/service"
)

type HoldHandler struct {
	holds  *service.HoldService
	logger *zap.Logger
}

func NewHoldHandler(holds *service.HoldService, logger *zap.Logger) *HoldHandler {
	return &HoldHandler{holds: holds, logger: logger}
}

// Hold
// POST /api/v1/holds
func (h *HoldHandler) Hold(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req HoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	res, err := h.holds.Hold(c.Request.Context(), userID, req.SlotIDs)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.OK(c, HoldResponse{Slots: toSlots(res.Slots), HoldExpiresAt: res.ExpiresAt})
}

// Release снимает удержания вызывающего; без slot_ids снимаются все.
// POST /api/v1/holds/release
func (h *HoldHandler) Release(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	var req ReleaseRequest
	// пустое тело допустимо
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request body")
			return
		}
	}

	n, err := h.holds.Release(c.Request.Context(), userID, req.SlotIDs)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.OK(c, gin.H{"released": n})
}

// Cleanup: внешний триггер очистки истёкших удержаний.
// POST /api/v1/holds/cleanup
func (h *HoldHandler) Cleanup(c *gin.Context) {
	n, err := h.holds.ReclaimExpired(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.logger.Debug("cleanup triggered", zap.Int64("reclaimed", n))
	response.OK(c, gin.H{"reclaimed": n})
}
