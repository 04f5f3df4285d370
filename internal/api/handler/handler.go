package handler

import (
	"go.uber.org/zap"

	"github.com/Leganyst/slotbooking/internal/service"
)

type Handler struct {
	Provider *ProviderHandler
	Rule     *RuleHandler
	Override *OverrideHandler
	Slot     *SlotHandler
	Hold     *HoldHandler
	Booking  *BookingHandler
}

func NewHandler(svc *service.Services, logger *zap.Logger) *Handler {
	logger = logger.Named("http")
	return &Handler{
		Provider: NewProviderHandler(svc.Providers, svc.Materializer, logger),
		Rule:     NewRuleHandler(svc.Rules, logger),
		Override: NewOverrideHandler(svc.Overrides, logger),
		Slot:     NewSlotHandler(svc.Query, logger),
		Hold:     NewHoldHandler(svc.Holds, logger),
		Booking:  NewBookingHandler(svc.Bookings, logger),
	}
}
