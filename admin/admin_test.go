package admin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"golang.org/x/crypto/bcrypt"

	"trailhead/apperr"
	"trailhead/auth"
	"trailhead/booking"
	"trailhead/globals"
	"trailhead/models"
	"trailhead/validation"
)

func init() {
	auth.HashCost = bcrypt.MinCost
}

type fakeLister struct {
	got  booking.ListFilter
	list []models.BookingDetails
	err  error
}

func (f *fakeLister) AdminList(_ context.Context, lf booking.ListFilter) ([]models.BookingDetails, int64, error) {
	f.got = lf
	return f.list, int64(len(f.list)), f.err
}

func newRouter(mt *mtest.T, lister BookingLister, caller string) *httprouter.Router {
	log := logrus.New()
	log.SetOutput(io.Discard)
	colls := Collections{Users: mt.Coll, Packages: mt.Coll, Hotels: mt.Coll, Vehicles: mt.Coll, Bookings: mt.Coll}
	h := NewHandler(lister, colls, validation.New(), log)

	as := func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			next(w, r.WithContext(context.WithValue(r.Context(), globals.UserIDKey, caller)), ps)
		}
	}

	r := httprouter.New()
	r.GET("/api/admin/bookings", h.GetBookings)
	r.GET("/api/admin/stats", h.GetStats)
	r.GET("/api/admin/users", h.GetUsers)
	r.POST("/api/admin/users", as(h.CreateUser))
	r.GET("/api/admin/users/:id", h.GetUser)
	r.PUT("/api/admin/users/:id", h.UpdateUser)
	r.DELETE("/api/admin/users/:id", as(h.DeleteUser))
	return r
}

func send(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func ns(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func count(mt *mtest.T, n int64) bson.D {
	return mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, bson.D{{Key: "n", Value: n}})
}

func TestGetBookings(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("passes filters and paging", func(mt *mtest.T) {
		lister := &fakeLister{list: []models.BookingDetails{{Booking: models.Booking{ID: primitive.NewObjectID()}}}}
		user := primitive.NewObjectID()
		w := send(newRouter(mt, lister, ""), http.MethodGet, "/api/admin/bookings?status=pending&userId="+user.Hex()+"&page=2&limit=10", "")
		require.Equal(mt, http.StatusOK, w.Code)
		assert.Equal(mt, "1", w.Header().Get("X-Total-Count"))
		assert.Equal(mt, models.StatusPending, lister.got.Status)
		require.NotNil(mt, lister.got.UserID)
		assert.Equal(mt, user, *lister.got.UserID)
		assert.Equal(mt, int64(10), lister.got.Skip)
		assert.Equal(mt, int64(10), lister.got.Limit)
	})

	mt.Run("bad user id", func(mt *mtest.T) {
		w := send(newRouter(mt, &fakeLister{}, ""), http.MethodGet, "/api/admin/bookings?userId=nope", "")
		assert.Equal(mt, http.StatusBadRequest, w.Code)
	})

	mt.Run("manager errors pass through", func(mt *mtest.T) {
		lister := &fakeLister{err: apperr.Validation("invalid booking status %q", "lost")}
		w := send(newRouter(mt, lister, ""), http.MethodGet, "/api/admin/bookings?status=lost", "")
		assert.Equal(mt, http.StatusBadRequest, w.Code)
	})
}

func TestGetStats(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("totals", func(mt *mtest.T) {
		mt.AddMockResponses(
			count(mt, 12),
			count(mt, 5),
			count(mt, 3),
			count(mt, 4),
			count(mt, 9),
			mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, bson.D{
				{Key: "_id", Value: nil},
				{Key: "total", Value: 1250.5},
			}),
			mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "pending"}, {Key: "count", Value: int64(4)}},
				bson.D{{Key: "_id", Value: "confirmed"}, {Key: "count", Value: int64(3)}},
				bson.D{{Key: "_id", Value: "cancelled"}, {Key: "count", Value: int64(2)}},
			),
		)
		w := send(newRouter(mt, &fakeLister{}, ""), http.MethodGet, "/api/admin/stats", "")
		require.Equal(mt, http.StatusOK, w.Code, w.Body.String())

		var st Stats
		require.NoError(mt, json.Unmarshal(w.Body.Bytes(), &st))
		assert.Equal(mt, int64(12), st.TotalUsers)
		assert.Equal(mt, int64(5), st.TotalPackages)
		assert.Equal(mt, int64(3), st.TotalHotels)
		assert.Equal(mt, int64(4), st.TotalVehicles)
		assert.Equal(mt, int64(9), st.TotalBookings)
		assert.Equal(mt, 1250.5, st.TotalRevenue)
		assert.Equal(mt, map[string]int64{"pending": 4, "confirmed": 3, "cancelled": 2}, st.BookingsByStatus)
	})

	mt.Run("no bookings", func(mt *mtest.T) {
		mt.AddMockResponses(
			count(mt, 1), count(mt, 0), count(mt, 0), count(mt, 0), count(mt, 0),
			mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch),
			mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch),
		)
		w := send(newRouter(mt, &fakeLister{}, ""), http.MethodGet, "/api/admin/stats", "")
		require.Equal(mt, http.StatusOK, w.Code)
		assert.Contains(mt, w.Body.String(), `"totalRevenue":0`)
		assert.Contains(mt, w.Body.String(), `"bookingsByStatus":{}`)
	})
}

func TestUsers(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	adminID := primitive.NewObjectID()

	userDoc := func(id primitive.ObjectID, role string) bson.D {
		return bson.D{
			{Key: "_id", Value: id},
			{Key: "name", Value: "Kasun"},
			{Key: "email", Value: "kasun@example.com"},
			{Key: "password", Value: "$2a$04$hash"},
			{Key: "role", Value: role},
		}
	}

	mt.Run("list", func(mt *mtest.T) {
		mt.AddMockResponses(
			count(mt, 2),
			mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch,
				userDoc(primitive.NewObjectID(), models.RoleGuide),
				userDoc(primitive.NewObjectID(), models.RoleGuide),
			),
		)
		w := send(newRouter(mt, &fakeLister{}, adminID.Hex()), http.MethodGet, "/api/admin/users?role=guide", "")
		require.Equal(mt, http.StatusOK, w.Code)
		assert.Equal(mt, "2", w.Header().Get("X-Total-Count"))
		assert.NotContains(mt, w.Body.String(), "password")
	})

	mt.Run("create with role", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		body := `{"name":"Ruwan","email":"ruwan@example.com","password":"drive123","phone":"077","address":"Kandy","role":"driver"}`
		w := send(newRouter(mt, &fakeLister{}, adminID.Hex()), http.MethodPost, "/api/admin/users", body)
		require.Equal(mt, http.StatusCreated, w.Code, w.Body.String())
		assert.Contains(mt, w.Body.String(), `"role":"driver"`)
	})

	mt.Run("create rejects unknown role", func(mt *mtest.T) {
		body := `{"name":"Ruwan","email":"ruwan@example.com","password":"drive123","phone":"077","address":"Kandy","role":"pilot"}`
		w := send(newRouter(mt, &fakeLister{}, adminID.Hex()), http.MethodPost, "/api/admin/users", body)
		assert.Equal(mt, http.StatusBadRequest, w.Code)
	})

	mt.Run("create duplicate email", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}))
		body := `{"name":"Ruwan","email":"ruwan@example.com","password":"drive123","phone":"077","address":"Kandy"}`
		w := send(newRouter(mt, &fakeLister{}, adminID.Hex()), http.MethodPost, "/api/admin/users", body)
		assert.Equal(mt, http.StatusConflict, w.Code)
	})

	mt.Run("get missing and malformed", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch))
		r := newRouter(mt, &fakeLister{}, adminID.Hex())
		assert.Equal(mt, http.StatusNotFound, send(r, http.MethodGet, "/api/admin/users/"+primitive.NewObjectID().Hex(), "").Code)
		assert.Equal(mt, http.StatusNotFound, send(r, http.MethodGet, "/api/admin/users/abc", "").Code)
	})

	mt.Run("update role", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: userDoc(id, models.RoleOperator)}))
		w := send(newRouter(mt, &fakeLister{}, adminID.Hex()), http.MethodPut, "/api/admin/users/"+id.Hex(), `{"role":"operator"}`)
		require.Equal(mt, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(mt, w.Body.String(), `"role":"operator"`)
	})

	mt.Run("delete", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		w := send(newRouter(mt, &fakeLister{}, adminID.Hex()), http.MethodDelete, "/api/admin/users/"+primitive.NewObjectID().Hex(), "")
		require.Equal(mt, http.StatusOK, w.Code)
		assert.Contains(mt, w.Body.String(), "User removed")
	})

	mt.Run("cannot delete self", func(mt *mtest.T) {
		w := send(newRouter(mt, &fakeLister{}, adminID.Hex()), http.MethodDelete, "/api/admin/users/"+adminID.Hex(), "")
		assert.Equal(mt, http.StatusConflict, w.Code)
	})
}
