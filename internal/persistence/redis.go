package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-service/internal/config"
)

// Redis holds the shared client used by the session store and the asynq outbox.
type Redis struct {
	Client *redis.Client
	prefix string
	addr   string
}

// NewRedis builds the client. An unreachable server is logged, not fatal: the client
// reconnects on demand and readiness reports the outage.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.OpTimeout,
		WriteTimeout: cfg.OpTimeout,
	})
	r := &Redis{Client: client, prefix: trimPrefix(cfg.KeyPrefix), addr: cfg.Addr}

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := r.Ping(ctx); err != nil {
		logger.Warn("redis unreachable at startup", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB), zap.String("key_prefix", r.prefix))
	}
	return r
}

// Key joins parts under the configured prefix: Key("session") is "staff:session:".
func (r *Redis) Key(parts ...string) string {
	var b strings.Builder
	if r.prefix != "" {
		b.WriteString(r.prefix)
		b.WriteByte(':')
	}
	for _, part := range parts {
		b.WriteString(part)
		b.WriteByte(':')
	}
	return b.String()
}

func trimPrefix(prefix string) string {
	return strings.TrimSuffix(strings.TrimSpace(prefix), ":")
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping implements the readiness check.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	if err := r.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", r.addr, err)
	}
	return nil
}
