package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Leganyst/slotbooking/internal/api/response"
	"github.com/Leganyst/slotbooking/internal/service"
)

type ProviderHandler struct {
	providers    *service.ProviderService
	materializer *service.Materializer
	logger *zap.Logger
}

func NewProviderHandler(providers *service.ProviderService, materializer *service.Materializer, logger *zap.Logger) *ProviderHandler {
	return &ProviderHandler{providers: providers, materializer: materializer, logger: logger}
}

// Create
// POST /api/v1/providers
func (h *ProviderHandler) Create(c *gin.Context) {
	var req CreateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	p, err := h.providers.Create(c.Request.Context(), service.CreateProviderInput{
		DisplayName:      req.DisplayName,
		Description:      req.Description,
		UTCOffsetMinutes: req.UTCOffsetMinutes,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Created(c, toProvider(p))
}

// List
// GET /api/v1/providers
func (h *ProviderHandler) List(c *gin.Context) {
	providers, err := h.providers.List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	out := make([]ProviderResponse, 0, len(providers))
	for i := range providers {
		out = append(out, toProvider(&providers[i]))
	}
	response.OK(c, out)
}

// Get
// GET /api/v1/providers/:id
func (h *ProviderHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, err := h.providers.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.OK(c, toProvider(p))
}

// Materialize догенерирует горизонт провайдера.
// POST /api/v1/providers/:id/materialize
func (h *ProviderHandler) Materialize(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	n, err := h.materializer.Materialize(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.OK(c, gin.H{"inserted": n})
}
