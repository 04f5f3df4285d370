package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Leganyst/slotbooking/internal/model"
	"github.com/Leganyst/slotbooking/internal/service"
)

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *Context) error {
	if err := model.AutoMigrate(ctx.DB); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	fmt.Println("Migrations applied")
	return nil
}

type ProviderCmd struct {
	Create ProviderCreateCmd `cmd:"" help:"Create a provider."`
	List   ProviderListCmd   `cmd:"" help:"List providers."`
}

type ProviderCreateCmd struct {
	Name        string `arg:"" help:"Display name."`
	Description string `help:"Short description."`
	UTCOffset   int    `name:"utc-offset" help:"Fixed offset from UTC in minutes (UTC+3 is 180)." default:"0"`
}

func (c *ProviderCreateCmd) Run(ctx *Context) error {
	p, err := ctx.services().Providers.Create(context.Background(), service.CreateProviderInput{
		DisplayName:      c.Name,
		Description:      c.Description,
		UTCOffsetMinutes: c.UTCOffset,
	})
	if err != nil {
		return fmt.Errorf("create provider: %w", err)
	}
	fmt.Printf("Created provider %s (%s)\n", p.ID, p.DisplayName)
	return nil
}

type ProviderListCmd struct{}

func (c *ProviderListCmd) Run(ctx *Context) error {
	providers, err := ctx.services().Providers.List(context.Background())
	if err != nil {
		return fmt.Errorf("list providers: %w", err)
	}
	for _, p := range providers {
		fmt.Printf("%s\t%s\t%+dmin\n", p.ID, p.DisplayName, p.UTCOffsetMinutes)
	}
	return nil
}

type MaterializeCmd struct {
	Provider []string `arg:"" optional:"" help:"Provider IDs; all providers when omitted."`
}

func (c *MaterializeCmd) Run(ctx *Context) error {
	svc := ctx.services()
	bg := context.Background()

	ids, err := providerIDs(bg, svc, c.Provider)
	if err != nil {
		return err
	}
	for _, id := range ids {
		n, err := svc.Materializer.Materialize(bg, id)
		if err != nil {
			return fmt.Errorf("materialize %s: %w", id, err)
		}
		fmt.Printf("%s: %d new slots\n", id, n)
	}
	return nil
}

type SweepHoldsCmd struct{}

func (c *SweepHoldsCmd) Run(ctx *Context) error {
	n, err := ctx.services().Holds.ReclaimExpired(context.Background())
	if err != nil {
		return fmt.Errorf("sweep holds: %w", err)
	}
	fmt.Printf("Reclaimed %d expired holds\n", n)
	return nil
}

type ReseedCmd struct {
	Provider string `arg:"" help:"Provider ID."`
}

func (c *ReseedCmd) Run(ctx *Context) error {
	id, err := uuid.Parse(c.Provider)
	if err != nil {
		return fmt.Errorf("invalid provider id %q: %w", c.Provider, err)
	}
	n, err := ctx.services().Materializer.Reseed(context.Background(), id)
	if err != nil {
		return fmt.Errorf("reseed %s: %w", id, err)
	}
	fmt.Printf("%s: reseeded, %d slots generated\n", id, n)
	return nil
}

// providerIDs разбирает переданные id или возвращает всех провайдеров.
func providerIDs(ctx context.Context, svc *service.Services, raw []string) ([]uuid.UUID, error) {
	if len(raw) > 0 {
		ids := make([]uuid.UUID, 0, len(raw))
		for _, r := range raw {
			id, err := uuid.Parse(r)
			if err != nil {
				return nil, fmt.Errorf("invalid provider id %q: %w", r, err)
			}
			ids = append(ids, id)
		}
		return ids, nil
	}

	providers, err := svc.Providers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(providers))
	for _, p := range providers {
		ids = append(ids, p.ID)
	}
	return ids, nil
}
