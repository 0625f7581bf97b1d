package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"trailhead/globals"
	"trailhead/models"
	"trailhead/validation"
)

// asUser stands in for the auth middleware.
func asUser(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if id := r.Header.Get("X-Test-User"); id != "" {
			r = r.WithContext(context.WithValue(r.Context(), globals.UserIDKey, id))
		}
		next(w, r, ps)
	}
}

func newTestRouter(f *fixture) *httprouter.Router {
	h := NewHandler(f.mgr, validation.New())
	router := httprouter.New()
	router.POST("/api/bookings", asUser(h.CreateBooking))
	router.GET("/api/bookings", asUser(h.GetMyBookings))
	router.GET("/api/bookings/:id", asUser(h.GetBooking))
	router.PUT("/api/bookings/:id", asUser(h.UpdateBooking))
	router.DELETE("/api/bookings/:id", asUser(h.CancelBooking))
	router.PATCH("/api/admin/bookings/:id/status", h.UpdateBookingStatus)
	return router
}

func do(router http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlers_BookingLifecycle(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)
	user := primitive.NewObjectID().Hex()

	body := `{"packageId":"` + f.pkg.ID.Hex() + `","startDate":"2025-07-01","numberOfPeople":2}`
	rec := do(router, http.MethodPost, "/api/bookings", user, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 200.0, created.TotalPrice)
	assert.Equal(t, models.StatusPending, created.Status)

	rec = do(router, http.MethodGet, "/api/bookings/"+created.ID.Hex(), user, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var details map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &details))
	pkg, ok := details["package"].(map[string]any)
	require.True(t, ok, "package should be expanded")
	assert.Equal(t, "Kandy Highlands", pkg["title"])

	rec = do(router, http.MethodPut, "/api/bookings/"+created.ID.Hex(), user, `{"specialRequirements":"window seat"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "window seat")

	rec = do(router, http.MethodDelete, "/api/bookings/"+created.ID.Hex(), user, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(router, http.MethodGet, "/api/bookings/"+created.ID.Hex(), user, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlers_CreateValidation(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)
	user := primitive.NewObjectID().Hex()

	cases := map[string]string{
		"malformed package id": `{"packageId":"abc","startDate":"2025-07-01","numberOfPeople":2}`,
		"zero people":          `{"packageId":"` + f.pkg.ID.Hex() + `","startDate":"2025-07-01","numberOfPeople":0}`,
		"bad date":             `{"packageId":"` + f.pkg.ID.Hex() + `","startDate":"2025-13-45","numberOfPeople":1}`,
		"not json":             `{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(router, http.MethodPost, "/api/bookings", user, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	rec := do(router, http.MethodPost, "/api/bookings", user,
		`{"packageId":"`+primitive.NewObjectID().Hex()+`","startDate":"2025-07-01","numberOfPeople":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlers_RequiresUser(t *testing.T) {
	f := newFixture()
	rec := do(newTestRouter(f), http.MethodGet, "/api/bookings", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlers_MalformedIDIsNotFound(t *testing.T) {
	f := newFixture()
	rec := do(newTestRouter(f), http.MethodGet, "/api/bookings/xyz", primitive.NewObjectID().Hex(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlers_StatsAndUpcomingDispatch(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)
	user := primitive.NewObjectID()

	_, err := f.mgr.Create(context.Background(), user, CreateInput{PackageID: f.pkg.ID, StartDate: day("2025-07-01"), NumberOfPeople: 4})
	require.NoError(t, err)

	rec := do(router, http.MethodGet, "/api/bookings/stats", user.Hex(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.BookingStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Stats.TotalBookings)
	assert.Equal(t, 400.0, stats.Stats.TotalSpent)
	assert.Equal(t, int64(1), stats.UpcomingBookings)

	rec = do(router, http.MethodGet, "/api/bookings/upcoming", user.Hex(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var upcoming []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &upcoming))
	assert.Len(t, upcoming, 1)
}

func TestHandlers_OtherUsersBookingIsForbidden(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)

	b, err := f.mgr.Create(context.Background(), primitive.NewObjectID(), CreateInput{PackageID: f.pkg.ID, StartDate: day("2025-07-01"), NumberOfPeople: 1})
	require.NoError(t, err)

	other := primitive.NewObjectID().Hex()
	assert.Equal(t, http.StatusForbidden, do(router, http.MethodGet, "/api/bookings/"+b.ID.Hex(), other, "").Code)
	assert.Equal(t, http.StatusForbidden, do(router, http.MethodDelete, "/api/bookings/"+b.ID.Hex(), other, "").Code)
}

func TestHandlers_AdminStatus(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)

	b, err := f.mgr.Create(context.Background(), primitive.NewObjectID(), CreateInput{PackageID: f.pkg.ID, StartDate: day("2025-07-01"), NumberOfPeople: 1})
	require.NoError(t, err)
	path := "/api/admin/bookings/" + b.ID.Hex() + "/status"

	rec := do(router, http.MethodPatch, path, "", `{"status":"confirmed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"confirmed"`)

	rec = do(router, http.MethodPatch, path, "", `{"status":"cancelled"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(router, http.MethodPatch, path, "", `{"status":"lost"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPatch, path, "", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlers_UpdateIgnoresOtherFields(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)
	owner := primitive.NewObjectID()

	b, err := f.mgr.Create(context.Background(), owner, CreateInput{PackageID: f.pkg.ID, StartDate: day("2025-07-01"), NumberOfPeople: 2})
	require.NoError(t, err)

	body := `{"specialRequirements":"vegetarian meals","totalPrice":1,"status":"confirmed",` +
		`"numberOfPeople":9,"paymentStatus":"paid","user":"` + primitive.NewObjectID().Hex() + `"}`
	rec := do(router, http.MethodPut, "/api/bookings/"+b.ID.Hex(), owner.Hex(), body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(router, http.MethodGet, "/api/bookings/"+b.ID.Hex(), owner.Hex(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "vegetarian meals", got["specialRequirements"])
	assert.Equal(t, 200.0, got["totalPrice"])
	assert.Equal(t, "pending", got["status"])
	assert.Equal(t, 2.0, got["numberOfPeople"])
	assert.Equal(t, "pending", got["paymentStatus"])
	assert.Equal(t, owner.Hex(), got["user"])

	stored, err := f.store.FindByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, owner, stored.User)
	assert.Equal(t, b.EndDate, stored.EndDate)
}
