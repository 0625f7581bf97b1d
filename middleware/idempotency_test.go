package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailhead/utils"
)

type memIdemStore struct {
	mu   sync.Mutex
	recs map[string]IdempotencyRecord
}

func newMemIdemStore() *memIdemStore {
	return &memIdemStore{recs: map[string]IdempotencyRecord{}}
}

func (s *memIdemStore) Get(_ context.Context, key string) (*IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *memIdemStore) Reserve(_ context.Context, key string, rec IdempotencyRecord, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[key]; ok {
		return false, nil
	}
	s.recs[key] = rec
	return true, nil
}

func (s *memIdemStore) Save(_ context.Context, key string, rec IdempotencyRecord, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[key] = rec
	return nil
}

func (s *memIdemStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, key)
	return nil
}

func silentLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type countingHandler struct {
	calls  int
	status int
}

func (c *countingHandler) handle(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	c.calls++
	body, _ := io.ReadAll(r.Body)
	utils.RespondWithJSON(w, c.status, utils.M{"call": c.calls, "echo": string(body)})
}

func post(h httprouter.Handle, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	w := httptest.NewRecorder()
	h(w, req, nil)
	return w
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	store := newMemIdemStore()
	inner := &countingHandler{status: http.StatusCreated}
	h := Idempotency(store, silentLogger())(inner.handle)

	first := post(h, "k1", `{"n":1}`)
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Contains(t, first.Body.String(), `"echo":"{\"n\":1}"`)

	second := post(h, "k1", `{"n":1}`)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, inner.calls)
}

func TestIdempotency_DifferentBodySameKey(t *testing.T) {
	store := newMemIdemStore()
	inner := &countingHandler{status: http.StatusCreated}
	h := Idempotency(store, silentLogger())(inner.handle)

	post(h, "k1", `{"n":1}`)
	w := post(h, "k1", `{"n":2}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, 1, inner.calls)
}

func TestIdempotency_InProgress(t *testing.T) {
	store := newMemIdemStore()
	inner := &countingHandler{status: http.StatusCreated}
	h := Idempotency(store, silentLogger())(inner.handle)

	req := httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(`{}`))
	hash := computeRequestHash(req, []byte(`{}`))
	_, err := store.Reserve(context.Background(), "idempotency::k1", IdempotencyRecord{State: idemProcessing, RequestHash: hash}, time.Minute)
	require.NoError(t, err)

	w := post(h, "k1", `{}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Zero(t, inner.calls)
}

func TestIdempotency_ServerErrorsAreNotRemembered(t *testing.T) {
	store := newMemIdemStore()
	inner := &countingHandler{status: http.StatusInternalServerError}
	h := Idempotency(store, silentLogger())(inner.handle)

	post(h, "k1", `{}`)
	inner.status = http.StatusCreated
	w := post(h, "k1", `{}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 2, inner.calls)
}

func TestIdempotency_NoKeyPassesThrough(t *testing.T) {
	store := newMemIdemStore()
	inner := &countingHandler{status: http.StatusCreated}
	h := Idempotency(store, silentLogger())(inner.handle)

	post(h, "", `{}`)
	post(h, "", `{}`)
	assert.Equal(t, 2, inner.calls)
	assert.Empty(t, store.recs)
}
