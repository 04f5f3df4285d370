package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Leganyst/slotbooking/internal/api/response"
	"github.com/Leganyst/slotbooking/internal/service"
)

type RuleHandler struct {
	rules *service.RuleService
	logger *zap.Logger
}

func NewRuleHandler(rules *service.RuleService, logger *zap.Logger) *RuleHandler {
	return &RuleHandler{rules: rules, logger: logger}
}

// GET /api/v1/rules?provider_id=
func (h *RuleHandler) List(c *gin.Context) {
	providerID, ok := uuidQuery(c, "provider_id")
	if !ok {
		return
	}
	rules, err := h.rules.ActiveRules(c.Request.Context(), providerID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.OK(c, toRules(rules))
}

// Replace заменяет недельный шаблон целиком.
// PUT /api/v1/rules
func (h *RuleHandler) Replace(c *gin.Context) {
	var req ReplaceRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	inputs := make([]service.RuleInput, 0, len(req.Rules))
	for _, r := range req.Rules {
		inputs = append(inputs, service.RuleInput{
			DayOfWeek:           r.DayOfWeek,
			StartTime:           r.StartTime,
			EndTime:             r.EndTime,
			SlotDurationMinutes: r.SlotDurationMinutes,
			BufferMinutes:       r.BufferMinutes,
		})
	}

	rules, err := h.rules.ReplaceRules(c.Request.Context(), req.ProviderID, inputs)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.OK(c, toRules(rules))
}

// Deactivate
// DELETE /api/v1/rules/:id
func (h *RuleHandler) Deactivate(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	rule, err := h.rules.DeactivateRule(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.OK(c, toRule(rule))
}
