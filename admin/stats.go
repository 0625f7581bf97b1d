package admin

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"trailhead/apperr"
	"trailhead/models"
	"trailhead/utils"
)

type Stats struct {
	TotalUsers       int64            `json:"totalUsers"`
	TotalPackages    int64            `json:"totalPackages"`
	TotalHotels      int64            `json:"totalHotels"`
	TotalVehicles    int64            `json:"totalVehicles"`
	TotalBookings    int64            `json:"totalBookings"`
	TotalRevenue     float64          `json:"totalRevenue"`
	BookingsByStatus map[string]int64 `json:"bookingsByStatus"`
}

// GetStats handles GET /api/admin/stats. Revenue counts every booking that was not
// cancelled.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	st, err := h.collectStats(r.Context())
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to compute stats"))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, st)
}

func (h *Handler) collectStats(ctx context.Context) (*Stats, error) {
	st := &Stats{BookingsByStatus: map[string]int64{}}
	counts := []struct {
		coll *mongo.Collection
		dst  *int64
	}{
		{h.colls.Users, &st.TotalUsers},
		{h.colls.Packages, &st.TotalPackages},
		{h.colls.Hotels, &st.TotalHotels},
		{h.colls.Vehicles, &st.TotalVehicles},
		{h.colls.Bookings, &st.TotalBookings},
	}
	for _, c := range counts {
		n, err := c.coll.CountDocuments(ctx, bson.M{})
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}

	revenue, err := h.revenue(ctx)
	if err != nil {
		return nil, err
	}
	st.TotalRevenue = revenue

	if err := h.countByStatus(ctx, st.BookingsByStatus); err != nil {
		return nil, err
	}
	return st, nil
}

func (h *Handler) revenue(ctx context.Context) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": bson.M{"$ne": models.StatusCancelled}}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$totalPrice"}}}},
	}
	cur, err := h.colls.Bookings.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var row struct {
		Total float64 `bson:"total"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&row); err != nil {
			return 0, err
		}
	}
	return row.Total, cur.Err()
}

func (h *Handler) countByStatus(ctx context.Context, dst map[string]int64) error {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := h.colls.Bookings.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return err
	}
	for _, row := range rows {
		dst[row.Status] = row.Count
	}
	return nil
}
