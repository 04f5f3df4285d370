package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Leganyst/slotbooking/internal/config"
)

// envelope — формат сообщения в канале.
type envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// RedisNotifier публикует события в pub/sub канал Redis.
type RedisNotifier struct {
	rdb     *goredis.Client
	channel string
	logger  *zap.Logger
	now     func() time.Time
}

// NewRedisNotifier подключается к Redis и проверяет соединение.
func NewRedisNotifier(cfg *config.RedisConfig, logger *zap.Logger) (*RedisNotifier, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info("redis connected", zap.String("addr", cfg.Addr), zap.String("channel", cfg.Channel))
	return newRedisNotifier(rdb, cfg.Channel, logger), nil
}

func newRedisNotifier(rdb *goredis.Client, channel string, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{
		rdb:     rdb,
		channel: channel,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (n *RedisNotifier) BookingCreated(ctx context.Context, ev BookingCreated) error {
	return n.publish(ctx, EventBookingCreated, ev)
}

func (n *RedisNotifier) publish(ctx context.Context, typ string, data any) error {
	payload, err := json.Marshal(envelope{Type: typ, OccurredAt: n.now(), Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	receivers, err := n.rdb.Publish(ctx, n.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("publish %s: %w", typ, err)
	}
	n.logger.Debug("event published",
		zap.String("type", typ),
		zap.Int64("receivers", receivers),
	)
	return nil
}

func (n *RedisNotifier) Close() error {
	return n.rdb.Close()
}
