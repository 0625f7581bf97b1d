package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"trailhead/utils"
)

const (
	idemProcessing = "processing"
	idemDone       = "done"

	idemLockTTL   = 30 * time.Second
	idemResultTTL = 24 * time.Hour
)

// IdempotencyRecord is what is kept per Idempotency-Key.
type IdempotencyRecord struct {
	State       string          `json:"state"`
	RequestHash string          `json:"requestHash"`
	Status      int             `json:"status,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
}

type IdempotencyStore interface {
	// Get returns nil when the key is unknown.
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	// Reserve stores rec only if the key is unused.
	Reserve(ctx context.Context, key string, rec IdempotencyRecord, ttl time.Duration) (bool, error)
	Save(ctx context.Context, key string, rec IdempotencyRecord, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// RedisIdempotencyStore keeps records as JSON strings under idempotency:*.
type RedisIdempotencyStore struct {
	client redis.UniversalClient
}

func NewRedisIdempotencyStore(client redis.UniversalClient) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*IdempotencyRecord, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec IdempotencyRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string, rec IdempotencyRecord, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	return s.client.SetNX(ctx, key, data, ttl).Result()
}

func (s *RedisIdempotencyStore) Save(ctx context.Context, key string, rec IdempotencyRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func computeRequestHash(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Idempotency replays the stored response when a client retries a write with the same
// Idempotency-Key. Keys are scoped per user, so it must run after Authenticate.
// Requests without the header pass straight through, as does everything when the
// store is unreachable.
func Idempotency(store IdempotencyStore, log *logrus.Logger) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" || store == nil {
				next(w, r, ps)
				return
			}
			if len(key) > 255 {
				utils.RespondWithError(w, http.StatusBadRequest, "Idempotency-Key is too long")
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
			if err != nil {
				utils.RespondWithError(w, http.StatusBadRequest, "failed to read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			ctx := r.Context()
			storeKey := fmt.Sprintf("idempotency:%s:%s", utils.GetUserIDFromRequest(r), key)
			hash := computeRequestHash(r, body)

			existing, err := store.Get(ctx, storeKey)
			if err != nil {
				log.WithError(err).Warn("idempotency lookup failed, passing through")
				next(w, r, ps)
				return
			}
			if existing == nil {
				ok, err := store.Reserve(ctx, storeKey, IdempotencyRecord{State: idemProcessing, RequestHash: hash}, idemLockTTL)
				if err != nil {
					log.WithError(err).Warn("idempotency reserve failed, passing through")
					next(w, r, ps)
					return
				}
				if ok {
					run(ctx, store, log, storeKey, hash, next, w, r, ps)
					return
				}
				// lost the race to a concurrent request with the same key
				if existing, err = store.Get(ctx, storeKey); err != nil || existing == nil {
					utils.RespondWithError(w, http.StatusConflict, "a request with this Idempotency-Key is in progress")
					return
				}
			}

			switch {
			case existing.RequestHash != hash:
				utils.RespondWithError(w, http.StatusUnprocessableEntity, "Idempotency-Key was already used for a different request")
			case existing.State != idemDone:
				utils.RespondWithError(w, http.StatusConflict, "a request with this Idempotency-Key is in progress")
			default:
				w.Header().Set("Idempotent-Replayed", "true")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(existing.Status)
				w.Write(existing.Body)
			}
		}
	}
}

func run(ctx context.Context, store IdempotencyStore, log *logrus.Logger, key, hash string,
	next httprouter.Handle, w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	crw := NewCaptureResponseWriter(w)
	next(crw, r, ps)

	// server errors are not remembered so the client can retry
	if crw.Status() >= 500 {
		if err := store.Release(context.WithoutCancel(ctx), key); err != nil {
			log.WithError(err).Warn("idempotency release failed")
		}
		return
	}

	rec := IdempotencyRecord{
		State:       idemDone,
		RequestHash: hash,
		Status:      crw.Status(),
	}
	if b := crw.BodyBytes(); json.Valid(b) {
		rec.Body = json.RawMessage(b)
	}
	if err := store.Save(context.WithoutCancel(ctx), key, rec, idemResultTTL); err != nil {
		log.WithError(err).Warn("idempotency save failed")
	}
}
