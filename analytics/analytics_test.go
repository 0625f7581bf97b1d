package analytics

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func row(year, month int, bookings int64, revenue float64) monthRow {
	var r monthRow
	r.ID.Year = year
	r.ID.Month = month
	r.Bookings = bookings
	r.Revenue = revenue
	return r
}

func TestFillMonths(t *testing.T) {
	since := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)
	got := fillMonths([]monthRow{row(2025, 1, 3, 900), row(2024, 11, 1, 150)}, since, 4)

	assert.Equal(t, []MonthStat{
		{Month: "2024-11", Bookings: 1, Revenue: 150},
		{Month: "2024-12"},
		{Month: "2025-01", Bookings: 3, Revenue: 900},
		{Month: "2025-02"},
	}, got)
}

func TestMonthStart(t *testing.T) {
	got := monthStart(time.Date(2025, 3, 31, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), got)
}

func newHandler(mt *mtest.T) *Handler {
	log := logrus.New()
	log.SetOutput(io.Discard)
	h := NewHandler(mt.Coll, mt.Coll, log)
	h.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return h
}

func TestGetAnalytics(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := func(mt *mtest.T) string { return mt.Coll.Database().Name() + "." + mt.Coll.Name() }

	mt.Run("report", func(mt *mtest.T) {
		pkg := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, bson.D{
				{Key: "_id", Value: bson.D{{Key: "year", Value: 2025}, {Key: "month", Value: 5}}},
				{Key: "bookings", Value: int64(4)},
				{Key: "revenue", Value: 800.0},
			}),
			mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, bson.D{
				{Key: "_id", Value: pkg},
				{Key: "bookings", Value: int64(4)},
				{Key: "revenue", Value: 800.0},
			}),
			mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, bson.D{
				{Key: "_id", Value: pkg},
				{Key: "title", Value: "Sigiriya Sunrise"},
			}),
		)

		w := httptest.NewRecorder()
		newHandler(mt).GetAnalytics(w, httptest.NewRequest(http.MethodGet, "/api/admin/analytics?months=3", nil), nil)
		require.Equal(mt, http.StatusOK, w.Code, w.Body.String())

		var rep Report
		require.NoError(mt, json.Unmarshal(w.Body.Bytes(), &rep))
		require.Len(mt, rep.Monthly, 3)
		assert.Equal(mt, "2025-04", rep.Monthly[0].Month)
		assert.Equal(mt, MonthStat{Month: "2025-05", Bookings: 4, Revenue: 800}, rep.Monthly[1])
		assert.Equal(mt, "2025-06", rep.Monthly[2].Month)

		require.Len(mt, rep.TopPackages, 1)
		assert.Equal(mt, "Sigiriya Sunrise", rep.TopPackages[0].Title)
		assert.Equal(mt, int64(4), rep.TopPackages[0].Bookings)
	})

	mt.Run("empty", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch),
			mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch),
		)
		w := httptest.NewRecorder()
		newHandler(mt).GetAnalytics(w, httptest.NewRequest(http.MethodGet, "/api/admin/analytics", nil), nil)
		require.Equal(mt, http.StatusOK, w.Code)

		var rep Report
		require.NoError(mt, json.Unmarshal(w.Body.Bytes(), &rep))
		assert.Len(mt, rep.Monthly, defaultMonths)
		assert.Empty(mt, rep.TopPackages)
		assert.Contains(mt, w.Body.String(), `"topPackages":[]`)
	})

	mt.Run("months out of range", func(mt *mtest.T) {
		w := httptest.NewRecorder()
		newHandler(mt).GetAnalytics(w, httptest.NewRequest(http.MethodGet, "/api/admin/analytics?months=99", nil), nil)
		assert.Equal(mt, http.StatusBadRequest, w.Code)
	})
}
