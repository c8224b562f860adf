package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/parkshare/internal/config"
)

// captureWriter tees the response body into buf, up to limit bytes.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 || cw.size+int64(len(b)) <= cw.limit {
		cw.buf.Write(b)
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

func (cw *captureWriter) truncated() bool { return cw.limit > 0 && cw.size > cw.limit }

func generationKey(cfg config.CacheConfig) string { return cfg.Prefix + ":gen" }

// cacheKey is prefix:g<generation>:<sha1(route?query)>.  Bumping the
// generation makes every older entry unreachable; they expire by TTL.
func cacheKey(cfg config.CacheConfig, gen int64, c echo.Context) string {
	sum := sha1.Sum([]byte(c.Path() + "?" + c.Request().URL.RawQuery))
	return fmt.Sprintf("%s:g%d:%x", cfg.Prefix, gen, sum[:])
}

// encodePayload packs [4 bytes status][4 bytes header length][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdr, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdr)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
	copy(out[8:], hdr)
	copy(out[8+len(hdr):], body)
	return out, nil
}

func decodePayload(bs []byte) (int, http.Header, []byte, bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status := int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	hdr := make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, hdr, bs[8+hlen:], true
}

// storeTTL shortens ttl to the response's own max-age.  no-store and
// max-age=0 yield zero, meaning the response is not stored.
func storeTTL(ttl time.Duration, cacheControl string) time.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.ToLower(strings.TrimSpace(directive))
		if directive == "no-store" {
			return 0
		}
		v, ok := strings.CutPrefix(directive, "max-age=")
		if !ok {
			continue
		}
		secs, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		if maxAge := time.Duration(secs) * time.Second; maxAge < ttl {
			ttl = maxAge
		}
	}
	return ttl
}

// NewRedisCache serves cached 200 responses for the configured methods.
// Responses are stored with their headers so a hit is byte-identical to
// the original.  A response's max-age caps how long it is kept.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[c.Request().Method] {
				return next(c)
			}
			ctx := c.Request().Context()
			gen, err := rdb.Get(ctx, generationKey(cfg)).Int64()
			if err != nil && err != redis.Nil {
				log.Warn("cache generation unavailable", zap.Error(err))
				return next(c)
			}
			key := cacheKey(cfg, gen, c)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, err := c.Response().Write(body)
					return err
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(cfg.MaxBodyBytes)}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.truncated() {
				return nil
			}
			ttl := storeTTL(cfg.TTL, c.Response().Header().Get("Cache-Control"))
			if ttl <= 0 {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
			if err != nil {
				return nil
			}
			if err := rdb.Set(context.WithoutCancel(ctx), key, payload, ttl).Err(); err != nil {
				log.Warn("cache store failed", zap.String("key", key), zap.Error(err))
			}
			return nil
		}
	}
}

// InvalidateOnWrite bumps the cache generation after every successful
// request whose method is not cacheable, so no claim, release or owner
// edit is ever hidden behind a cached board.
func InvalidateOnWrite(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			m := c.Request().Method
			if cfg.Methods[m] || m == http.MethodHead || m == http.MethodOptions {
				return err
			}
			if err != nil || c.Response().Status >= http.StatusBadRequest {
				return err
			}
			ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), time.Second)
			defer cancel()
			if ierr := rdb.Incr(ctx, generationKey(cfg)).Err(); ierr != nil {
				log.Warn("cache invalidation failed", zap.Error(ierr))
			}
			return nil
		}
	}
}
