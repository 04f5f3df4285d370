package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Leganyst/slotbooking/internal/config"
	"github.com/Leganyst/slotbooking/internal/db"
	"github.com/Leganyst/slotbooking/internal/logger"
	"github.com/Leganyst/slotbooking/internal/service"
)

// Context передаётся в Run каждой подкоманды.
type Context struct {
	Config *config.Config
	DB     *gorm.DB
	Logger *zap.Logger
}

// services собирает ядро без уведомлений: CLI бронирований не создаёт.
func (c *Context) services() *service.Services {
	return service.New(c.DB, c.Config.Schedule, nil, nil, c.Logger)
}

var CLI struct {
	Config string `help:"Path to config file (yaml). Env SLOTS_* overrides it." type:"path"`

	Migrate     MigrateCmd     `cmd:"" help:"Run database migrations."`
	Provider    ProviderCmd    `cmd:"" help:"Manage providers."`
	Materialize MaterializeCmd `cmd:"" help:"Materialize slots over the horizon."`
	SweepHolds  SweepHoldsCmd  `cmd:"" name:"sweep-holds" help:"Return expired holds to available."`
	Reseed      ReseedCmd      `cmd:"" help:"Reset a provider to the default weekly template."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("slotctl"),
		kong.Description("Admin tool for the slot booking engine."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// CLI пишет в консоль независимо от формата в конфиге.
	logCfg := cfg.Log
	logCfg.Format = "console"
	zlog, err := logger.NewLogger(&logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zlog.Sync() }()

	gormDB, err := db.NewGormDB(&cfg.DB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	err = ctx.Run(&Context{Config: cfg, DB: gormDB, Logger: zlog})
	if sqlDB, dbErr := gormDB.DB(); dbErr == nil {
		_ = sqlDB.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
