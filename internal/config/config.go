package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Leganyst/slotbooking/internal/utils"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	DB       DBConfig       `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

type ServerConfig struct {
	Port         int      `mapstructure:"port"`
	AllowOrigins []string `mapstructure:"allow_origins"`
	// Лимит запросов на hold/book с одного IP.
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute"`
	RateLimitBurst     int `mapstructure:"rate_limit_burst"`
	// IP без запросов дольше этого срока выбрасываются из лимитера.
	RateLimitIdle time.Duration `mapstructure:"rate_limit_idle"`
}

// GRPCConfig — служебный порт (health + reflection).
type GRPCConfig struct {
	Port int `mapstructure:"port"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ScheduleConfig struct {
	HorizonDays int    `mapstructure:"horizon_days"`
	HoldMinutes int    `mapstructure:"hold_minutes"`
	SweepSpec   string `mapstructure:"sweep_spec"` // cron-выражение, если пусто, фоновой очистки нет

	Default DefaultTemplate `mapstructure:"default"`
}

// DefaultTemplate — недельный шаблон, которым засеваются провайдеры без правил.
type DefaultTemplate struct {
	Days          []int  `mapstructure:"days"` // 0 = воскресенье
	Start         string `mapstructure:"start"`
	End           string `mapstructure:"end"`
	SlotMinutes   int    `mapstructure:"slot_minutes"`
	BufferMinutes int    `mapstructure:"buffer_minutes"`
}

// Load читает конфиг: дефолты -> файл (если есть) -> переменные окружения SLOTS_*.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SLOTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.rate_limit_per_minute", 120)
	v.SetDefault("server.rate_limit_burst", 20)
	v.SetDefault("server.rate_limit_idle", "10m")

	v.SetDefault("grpc.port", 50051)

	v.SetDefault("db.driver", DriverPostgres)
	v.SetDefault("db.host", "postgres")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "booking")
	v.SetDefault("db.password", "booking")
	v.SetDefault("db.name", "booking_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.path", "slotbooking.db")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", 30)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "slotbooking.events")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("schedule.horizon_days", 60)
	v.SetDefault("schedule.hold_minutes", 10)
	v.SetDefault("schedule.sweep_spec", "@every 1m")
	v.SetDefault("schedule.default.days", []int{1, 2, 3, 4, 5})
	v.SetDefault("schedule.default.start", "09:00")
	v.SetDefault("schedule.default.end", "17:00")
	v.SetDefault("schedule.default.slot_minutes", 60)
	v.SetDefault("schedule.default.buffer_minutes", 0)
}

// Validate проверяет значения, без которых сервис не стартует.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.GRPC.Port <= 0 || c.GRPC.Port > 65535 {
		return fmt.Errorf("invalid grpc port %d", c.GRPC.Port)
	}
	if err := c.DB.validate(); err != nil {
		return err
	}
	if c.Schedule.HorizonDays <= 0 {
		return fmt.Errorf("schedule.horizon_days must be positive")
	}
	if c.Schedule.HoldMinutes <= 0 {
		return fmt.Errorf("schedule.hold_minutes must be positive")
	}
	return c.Schedule.Default.Validate()
}

// Validate проверяет шаблон по умолчанию.
func (t DefaultTemplate) Validate() error {
	if len(t.Days) == 0 {
		return fmt.Errorf("default template: days must not be empty")
	}
	for _, d := range t.Days {
		if d < 0 || d > 6 {
			return fmt.Errorf("default template: invalid day %d", d)
		}
	}
	start, err := utils.ParseClock(t.Start)
	if err != nil {
		return fmt.Errorf("default template: start: %w", err)
	}
	end, err := utils.ParseClock(t.End)
	if err != nil {
		return fmt.Errorf("default template: end: %w", err)
	}
	if end <= start {
		return fmt.Errorf("default template: end must be after start")
	}
	if t.SlotMinutes <= 0 {
		return fmt.Errorf("default template: slot_minutes must be positive")
	}
	if t.BufferMinutes < 0 {
		return fmt.Errorf("default template: buffer_minutes must not be negative")
	}
	return nil
}
