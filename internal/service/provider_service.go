package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Leganyst/slotbooking/internal/model"
	"github.com/Leganyst/slotbooking/internal/repository"
)

// Допустимые смещения: от UTC-12 до UTC+14.
const (
	minUTCOffsetMinutes = -12 * 60
	maxUTCOffsetMinutes = 14 * 60
)

type CreateProviderInput struct {
	DisplayName      string
	Description      string
	UTCOffsetMinutes int
}

type ProviderService struct {
	providers repository.ProviderRepository
}

func NewProviderService(providers repository.ProviderRepository) *ProviderService {
	return &ProviderService{providers: providers}
}

func (s *ProviderService) Create(ctx context.Context, in CreateProviderInput) (*model.Provider, error) {
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		return nil, invalidInput("display_name is required")
	}
	if in.UTCOffsetMinutes < minUTCOffsetMinutes || in.UTCOffsetMinutes > maxUTCOffsetMinutes {
		return nil, invalidInput("utc_offset_minutes must be in [%d,%d]", minUTCOffsetMinutes, maxUTCOffsetMinutes)
	}

	p := &model.Provider{
		DisplayName:      name,
		Description:      in.Description,
		UTCOffsetMinutes: in.UTCOffsetMinutes,
	}
	if err := s.providers.Create(ctx, p); err != nil {
		return nil, internal("create provider", err)
	}
	return p, nil
}

func (s *ProviderService) Get(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	p, err := s.providers.GetByID(ctx, id)
	if err != nil {
		return nil, wrapStorage("provider "+id.String(), err)
	}
	return p, nil
}

func (s *ProviderService) List(ctx context.Context) ([]model.Provider, error) {
	providers, err := s.providers.List(ctx)
	if err != nil {
		return nil, internal("list providers", err)
	}
	return providers, nil
}
