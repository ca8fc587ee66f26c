package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/ward-bed-registry/internal/config"
)

// Cache layout under a prefix:
//
//  <prefix>:gen             generation counter, bumped by every invalidation
//  <prefix>:e:<gen>:<hash>  cached response of one read
//
// A read captures the generation before running the handler and stores its
// response under that generation.  A response computed across an
// invalidation therefore lands under a generation no reader asks for.

func genKey(prefix string) string { return prefix + ":gen" }

func entryKey(prefix string, gen int64, c echo.Context) string {
    r := c.Request()
    sum := sha1.Sum([]byte(r.Method + " " + c.Path() + "?" + r.URL.RawQuery))
    return fmt.Sprintf("%s:e:%d:%x", prefix, gen, sum)
}

func generation(ctx context.Context, rdb *redis.Client, prefix string) (int64, error) {
    n, err := rdb.Get(ctx, genKey(prefix)).Int64()
    if errors.Is(err, redis.Nil) {
        return 0, nil
    }
    return n, err
}

// cachedResponse is what a cache entry holds.
type cachedResponse struct {
    Status      int    `json:"status"`
    ContentType string `json:"content_type"`
    Body        []byte `json:"body"`
}

// captureWriter tees the response body while it is sent to the client.
// Once more than limit bytes have passed, the copy is abandoned.
type captureWriter struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (cw *captureWriter) WriteHeader(code int) {
    cw.status = code
    cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
    if !cw.overflow {
        if cw.limit > 0 && cw.buf.Len()+len(b) > cw.limit {
            cw.overflow = true
            cw.buf.Reset()
        } else {
            cw.buf.Write(b)
        }
    }
    return cw.ResponseWriter.Write(b)
}

// NewRedisCache serves bed listings and ward summaries from Redis.  Only
// 200 responses no larger than cfg.MaxBodyBytes are stored; entries expire
// after cfg.TTL or as soon as a CacheInvalidator bumps the generation.
// Redis errors bypass the cache.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[c.Request().Method] {
                return next(c)
            }
            ctx := c.Request().Context()
            gen, err := generation(ctx, rdb, cfg.Prefix)
            if err != nil {
                return next(c)
            }
            key := entryKey(cfg.Prefix, gen, c)

            if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
                var hit cachedResponse
                if json.Unmarshal(raw, &hit) == nil {
                    c.Response().Header().Set("X-Cache", "HIT")
                    return c.Blob(hit.Status, hit.ContentType, hit.Body)
                }
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if cw.status != http.StatusOK || cw.overflow {
                return nil
            }
            payload, err := json.Marshal(cachedResponse{
                Status:      cw.status,
                ContentType: c.Response().Header().Get(echo.HeaderContentType),
                Body:        cw.buf.Bytes(),
            })
            if err == nil {
                _ = rdb.SetEx(context.WithoutCancel(ctx), key, payload, cfg.TTL).Err()
            }
            return nil
        }
    }
}

// InvalidatePrefix bumps the generation under prefix, which hides every
// cached response at once, then deletes the old entries with SCAN so a
// large cache does not block Redis.
func InvalidatePrefix(ctx context.Context, rdb *redis.Client, prefix string) error {
    if rdb == nil || prefix == "" {
        return nil
    }
    if err := rdb.Incr(ctx, genKey(prefix)).Err(); err != nil {
        return err
    }
    var cursor uint64
    for {
        keys, next, err := rdb.Scan(ctx, cursor, prefix+":e:*", 200).Result()
        if err != nil {
            return err
        }
        if len(keys) > 0 {
            if err := rdb.Del(ctx, keys...).Err(); err != nil {
                return err
            }
        }
        cursor = next
        if cursor == 0 {
            return nil
        }
    }
}

// CacheInvalidator purges the read cache after committed mutations.
type CacheInvalidator struct {
    rdb    *redis.Client
    prefix string
}

// NewCacheInvalidator returns an invalidator for cfg.Prefix.  A nil client
// or a disabled cache yields a no-op invalidator.
func NewCacheInvalidator(cfg config.CacheConfig, rdb *redis.Client) *CacheInvalidator {
    if !cfg.Enabled {
        rdb = nil
    }
    return &CacheInvalidator{rdb: rdb, prefix: cfg.Prefix}
}

// Invalidate drops every cached response.
func (ci *CacheInvalidator) Invalidate(ctx context.Context) error {
    if ci == nil {
        return nil
    }
    return InvalidatePrefix(ctx, ci.rdb, ci.prefix)
}
