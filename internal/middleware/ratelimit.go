package middleware

import (
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/ward-bed-registry/internal/config"
)

// bucketScript refills and takes one token atomically so every bed store
// replica shares the same bucket.  It returns {allowed, remaining,
// retry_after_ms}.
var bucketScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local capacity = tonumber(ARGV[2])
    local refill = tonumber(ARGV[3])
    local interval_ms = tonumber(ARGV[4])
    local ttl = tonumber(ARGV[5])

    local state = redis.call('HMGET', key, 'tokens', 'last_ms')
    local tokens = tonumber(state[1])
    local last = tonumber(state[2])
    if tokens == nil or last == nil then
        tokens = capacity
        last = now_ms
    end

    local elapsed = now_ms - last
    if elapsed < 0 then elapsed = 0 end
    local steps = math.floor(elapsed / interval_ms)
    if steps > 0 then
        tokens = math.min(capacity, tokens + steps * refill)
        last = last + steps * interval_ms
    end

    local allowed = 0
    local wait = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        wait = interval_ms - (now_ms - last)
        if wait < 0 then wait = 0 end
    end

    redis.call('HSET', key, 'tokens', tokens, 'last_ms', last)
    redis.call('EXPIRE', key, ttl)
    return {allowed, tokens, wait}
`)

// NewTokenBucket limits bed store mutations per staff member.  Each
// session (role and staff id) gets one bucket per route, so a nurse
// toggling beds cannot starve a ward head recording the census.  Redis
// errors let the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, logger *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    if logger == nil {
        logger = zap.NewNop()
    }
    limit := strconv.Itoa(cfg.Capacity)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := bucketKey(cfg.Prefix, c)
            res, err := bucketScript.Run(c.Request().Context(), rdb, []string{key},
                time.Now().UnixMilli(),
                cfg.Capacity,
                cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(),
                int64(cfg.TTL/time.Second),
            ).Int64Slice()
            if err != nil || len(res) != 3 {
                logger.Warn("rate limit check skipped", zap.String("key", key), zap.Error(err))
                return next(c)
            }
            allowed, remaining, waitMs := res[0] == 1, res[1], res[2]

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", limit)
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
            if allowed {
                return next(c)
            }

            secs := int(math.Ceil(float64(waitMs) / 1000))
            h.Set("Retry-After", strconv.Itoa(secs))
            logger.Info("rate limited", zap.String("key", key), zap.Int64("retry_ms", waitMs))
            return c.JSON(http.StatusTooManyRequests, map[string]any{
                "error":       "too many requests",
                "retry_after": secs,
            })
        }
    }
}

// bucketKey is prefix:role:staff:METHOD path.  Requests without a session
// share one bucket per client address.
func bucketKey(prefix string, c echo.Context) string {
    route := c.Request().Method + " " + c.Path()
    if s, ok := SessionFrom(c); ok {
        return strings.Join([]string{prefix, strings.ToLower(s.Role), s.StaffID, route}, ":")
    }
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    return strings.Join([]string{prefix, "anon", ip, route}, ":")
}
