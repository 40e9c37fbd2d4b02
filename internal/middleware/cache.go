package middleware

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/account-api/internal/config"
)

// captureWriter copies up to limit bytes of the response body while
// forwarding everything to the client.
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
	if remain := cw.limit - cw.size; remain > 0 {
		if int64(len(b)) <= remain {
			cw.buf.Write(b)
		} else {
			cw.buf.Write(b[:remain])
		}
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// encodePayload packs [4 bytes status][4 bytes headerLen][headerJSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}

// AvatarCache caches public avatar responses in Redis keyed by user id.
// A nil client or a disabled config turns it into a no-op.
//
// Every user has a generation counter next to the cached responses.  A
// request reads the counter before it looks at the store and files its
// response under that generation; Purge bumps the counter.  A fill that
// started before a purge therefore lands under a generation nobody reads
// any more, even when it is written after the purge.
type AvatarCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
	log *zap.Logger
}

func NewAvatarCache(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) *AvatarCache {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	return &AvatarCache{cfg: cfg, rdb: rdb, log: log}
}

func (a *AvatarCache) enabled() bool { return a.cfg.Enabled && a.rdb != nil }

func (a *AvatarCache) genKey(userID string) string {
	return a.cfg.Prefix + ":avatar:" + userID + ":gen"
}

func (a *AvatarCache) key(userID string, gen int64) string {
	return a.cfg.Prefix + ":avatar:" + userID + ":g" + strconv.FormatInt(gen, 10)
}

// genTTL outlives every response stored under the current generation.
// Once the counter expires, all entries of the user are gone and counting
// may restart from zero.
func (a *AvatarCache) genTTL() time.Duration { return 2 * a.cfg.TTL }

// generation returns the user's current generation.  A missing counter is
// generation zero.
func (a *AvatarCache) generation(ctx context.Context, userID string) (int64, error) {
	gen, err := a.rdb.Get(ctx, a.genKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Purge invalidates every cached avatar response of userID.  Errors are
// logged only; a stale entry then lives until its TTL.
func (a *AvatarCache) Purge(ctx context.Context, userID string) {
	if !a.enabled() {
		return
	}
	gk := a.genKey(userID)
	_, err := a.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, gk)
		p.Expire(ctx, gk, a.genTTL())
		return nil
	})
	if err != nil {
		a.log.Warn("avatar cache purge failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// Middleware serves GET /users/:id/avatar from Redis when possible and
// stores successful responses.  Only 200 responses are cached so a missing
// avatar is looked up again once it is uploaded.  When the generation
// cannot be read the request bypasses the cache entirely.
func (a *AvatarCache) Middleware() echo.MiddlewareFunc {
	if !a.enabled() {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	maxBody := int64(a.cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			ctx := c.Request().Context()
			userID := c.Param("id")

			// The generation must be read before the handler loads the user.
			gen, err := a.generation(ctx, userID)
			if err != nil {
				a.log.Warn("avatar cache bypassed", zap.String("user_id", userID), zap.Error(err))
				return next(c)
			}
			key := a.key(userID, gen)

			if bs, err := a.rdb.Get(ctx, key).Bytes(); err == nil {
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
					_, _ = c.Response().Write(body)
					return nil
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.size > maxBody {
				return nil
			}

			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
			if err != nil {
				return nil
			}
			// Refresh the counter's expiry with the fill so it never expires
			// before an entry stored under it.  EXPIRE on a missing counter is
			// a no-op, which is fine for generation zero.
			storeCtx := context.WithoutCancel(ctx)
			_, err = a.rdb.Pipelined(storeCtx, func(p redis.Pipeliner) error {
				p.Set(storeCtx, key, payload, a.cfg.TTL)
				p.Expire(storeCtx, a.genKey(userID), a.genTTL())
				return nil
			})
			if err != nil {
				a.log.Warn("avatar cache store failed", zap.String("key", key), zap.Error(err))
			}
			return nil
		}
	}
}
