package config

import (
    "context"
    "crypto/tls"
    "time"

    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"
)

// RedisConfig describes the Redis server behind the bed store's read cache
// and token bucket limiter.
type RedisConfig struct {
    Addr     string
    Password string
    DB       int
    TLS      bool
    PoolSize int
}

// LoadRedisConfig reads REDIS_ADDR (or REDIS_HOST and REDIS_PORT, which win
// when both are set), REDIS_PASSWORD, REDIS_DB, REDIS_TLS and
// REDIS_POOL_SIZE.
func LoadRedisConfig() RedisConfig {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
        addr = host + ":" + port
    }
    return RedisConfig{
        Addr:     addr,
        Password: envStr("REDIS_PASSWORD", ""),
        DB:       envInt("REDIS_DB", 0),
        TLS:      envBool("REDIS_TLS", false),
        PoolSize: envInt("REDIS_POOL_SIZE", 20),
    }
}

// NewRedisClient connects to Redis and pings it.  An unreachable server
// yields nil; the cache and rate limit middlewares then pass requests
// through untouched.
func NewRedisClient(logger *zap.Logger) *redis.Client {
    cfg := LoadRedisConfig()
    opts := &redis.Options{
        Addr:     cfg.Addr,
        Password: cfg.Password,
        DB:       cfg.DB,
        PoolSize: cfg.PoolSize,
    }
    if cfg.TLS {
        opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    client := redis.NewClient(opts)

    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        logger.Warn("redis unavailable, cache and rate limit disabled", zap.String("addr", cfg.Addr), zap.Error(err))
        _ = client.Close()
        return nil
    }
    logger.Info("redis connected", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
    return client
}
