// Package respcache caches successful GET responses for a fixed TTL.
package respcache

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"

	"trailhead/metrics"
	"trailhead/middleware"
	"trailhead/rdx"
	"trailhead/utils"
)

const keyPrefix = "respcache:"

type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

type redisBackend struct {
	store *rdx.Store
}

// FromRedis adapts the shared Redis store.
func FromRedis(store *rdx.Store) Backend {
	return redisBackend{store: store}
}

func (b redisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return b.store.RdxGet(ctx, key)
}

func (b redisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.store.RdxSet(ctx, key, value, ttl)
}

func (b redisBackend) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	return b.store.RdxDelPrefix(ctx, prefix)
}

type entry struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// handlerHeaders returns the headers next set or changed, leaving out those that
// outer middleware already placed on the response.
func handlerHeaders(before, after http.Header) http.Header {
	out := http.Header{}
	for k, v := range after {
		if k == "X-Cache" || slices.Equal(before[k], v) {
			continue
		}
		out[k] = slices.Clone(v)
	}
	return out
}

type Cache struct {
	backend Backend
	ttl     time.Duration
	log     *logrus.Logger
}

func New(backend Backend, ttl time.Duration, log *logrus.Logger) *Cache {
	return &Cache{backend: backend, ttl: ttl, log: log}
}

// Key identifies a response by path, query and the requesting subject so that
// per-user responses never leak between callers.
func Key(r *http.Request) string {
	var b strings.Builder
	b.WriteString(keyPrefix)
	b.WriteString(r.URL.Path)
	if r.URL.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(r.URL.RawQuery)
	}
	b.WriteByte('|')
	b.WriteString(utils.GetUserIDFromRequest(r))
	return b.String()
}

// Middleware serves cached 200 responses for GET requests and stores fresh ones.
// Backend failures degrade to an uncached request.
func (c *Cache) Middleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if r.Method != http.MethodGet || c == nil || c.backend == nil {
			next(w, r, ps)
			return
		}

		ctx := r.Context()
		key := Key(r)

		raw, ok, err := c.backend.Get(ctx, key)
		if err != nil {
			c.log.WithError(err).WithField("key", key).Warn("response cache read failed")
		}
		if ok {
			var e entry
			if err := json.Unmarshal(raw, &e); err == nil {
				metrics.CacheLookups.WithLabelValues("hit").Inc()
				for k, v := range e.Header {
					w.Header()[k] = v
				}
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(e.Status)
				w.Write(e.Body)
				return
			}
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()

		w.Header().Set("X-Cache", "MISS")
		before := w.Header().Clone()
		crw := middleware.NewCaptureResponseWriter(w)
		next(crw, r, ps)

		if crw.Status() != http.StatusOK {
			return
		}
		data, err := json.Marshal(entry{
			Status: crw.Status(),
			Header: handlerHeaders(before, w.Header()),
			Body:   crw.BodyBytes(),
		})
		if err != nil {
			return
		}
		if err := c.backend.Set(context.WithoutCancel(ctx), key, data, c.ttl); err != nil {
			c.log.WithError(err).WithField("key", key).Warn("response cache write failed")
		}
	}
}

// Invalidate drops every cached response whose path starts with pathPrefix.
func (c *Cache) Invalidate(ctx context.Context, pathPrefix string) {
	if c == nil || c.backend == nil {
		return
	}
	n, err := c.backend.DeletePrefix(ctx, keyPrefix+pathPrefix)
	if err != nil {
		c.log.WithError(err).WithField("prefix", pathPrefix).Warn("response cache invalidation failed")
		return
	}
	c.log.WithFields(logrus.Fields{"prefix": pathPrefix, "removed": n}).Debug("response cache invalidated")
}
