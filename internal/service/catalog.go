package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Leganyst/slotbooking/internal/repository"
)

const defaultServiceDurationMin = 60

type CatalogEntry struct {
	Price           decimal.Decimal
	DurationMinutes int
}

// ServiceCatalog — источник цены и длительности для бронирования.
type ServiceCatalog interface {
	Lookup(ctx context.Context, serviceID uuid.UUID) (CatalogEntry, error)
}

// RepositoryCatalog читает каталог услуг из БД.
type RepositoryCatalog struct {
	services repository.ServiceRepository
}

func NewRepositoryCatalog(services repository.ServiceRepository) *RepositoryCatalog {
	return &RepositoryCatalog{services: services}
}

func (c *RepositoryCatalog) Lookup(ctx context.Context, serviceID uuid.UUID) (CatalogEntry, error) {
	svc, err := c.services.GetByID(ctx, serviceID)
	if err != nil {
		return CatalogEntry{}, err
	}
	if !svc.IsActive {
		return CatalogEntry{}, fmt.Errorf("service %s is inactive", serviceID)
	}

	entry := CatalogEntry{Price: svc.Price, DurationMinutes: defaultServiceDurationMin}
	if svc.DefaultDurationMin != nil && *svc.DefaultDurationMin > 0 {
		entry.DurationMinutes = int(*svc.DefaultDurationMin)
	}
	return entry, nil
}
