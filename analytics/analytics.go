// Package analytics aggregates booking activity for the admin dashboard.
package analytics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"trailhead/apperr"
	"trailhead/db"
	"trailhead/models"
	"trailhead/utils"
)

const (
	defaultMonths  = 12
	maxMonths      = 36
	topPackagesMax = 5
)

// MonthStat is one calendar month of bookings. Revenue excludes cancelled bookings.
type MonthStat struct {
	Month    string  `json:"month"`
	Bookings int64   `json:"bookings"`
	Revenue  float64 `json:"revenue"`
}

type PackageStat struct {
	PackageID primitive.ObjectID `json:"packageId" bson:"_id"`
	Title     string             `json:"title"`
	Bookings  int64              `json:"bookings" bson:"bookings"`
	Revenue   float64            `json:"revenue" bson:"revenue"`
}

type Report struct {
	Monthly     []MonthStat   `json:"monthly"`
	TopPackages []PackageStat `json:"topPackages"`
}

type Handler struct {
	bookings *mongo.Collection
	packages *db.Repo[models.Package]
	now      func() time.Time
	log      *logrus.Logger
}

func NewHandler(bookings, packages *mongo.Collection, log *logrus.Logger) *Handler {
	return &Handler{
		bookings: bookings,
		packages: db.NewRepo[models.Package](packages),
		now:      time.Now,
		log:      log,
	}
}

// GetAnalytics handles GET /api/admin/analytics?months=N.
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	months := defaultMonths
	if v := r.URL.Query().Get("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxMonths {
			utils.RespondWithAppError(w, apperr.Validation("months must be between 1 and %d", maxMonths))
			return
		}
		months = n
	}

	report, err := h.build(r.Context(), months)
	if err != nil {
		h.log.WithError(err).Error("analytics aggregation failed")
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to build analytics"))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, report)
}

func (h *Handler) build(ctx context.Context, months int) (*Report, error) {
	since := monthStart(h.now().UTC()).AddDate(0, -(months - 1), 0)

	monthly, err := h.monthly(ctx, since)
	if err != nil {
		return nil, err
	}
	top, err := h.topPackages(ctx)
	if err != nil {
		return nil, err
	}
	return &Report{Monthly: fillMonths(monthly, since, months), TopPackages: top}, nil
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func monthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// notCancelled yields totalPrice for live bookings and 0 for cancelled ones.
var notCancelled = bson.M{"$cond": bson.A{
	bson.M{"$ne": bson.A{"$status", models.StatusCancelled}},
	"$totalPrice",
	0,
}}

type monthRow struct {
	ID struct {
		Year  int `bson:"year"`
		Month int `bson:"month"`
	} `bson:"_id"`
	Bookings int64   `bson:"bookings"`
	Revenue  float64 `bson:"revenue"`
}

func (h *Handler) monthly(ctx context.Context, since time.Time) ([]monthRow, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdAt": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"year":  bson.M{"$year": "$createdAt"},
				"month": bson.M{"$month": "$createdAt"},
			},
			"bookings": bson.M{"$sum": 1},
			"revenue":  bson.M{"$sum": notCancelled},
		}}},
	}
	cur, err := h.bookings.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []monthRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// fillMonths lays the aggregated rows onto a continuous series so months without
// bookings still appear.
func fillMonths(rows []monthRow, since time.Time, months int) []MonthStat {
	byKey := make(map[string]monthRow, len(rows))
	for _, row := range rows {
		byKey[monthKey(row.ID.Year, row.ID.Month)] = row
	}
	out := make([]MonthStat, 0, months)
	for i := 0; i < months; i++ {
		m := since.AddDate(0, i, 0)
		key := monthKey(m.Year(), int(m.Month()))
		row := byKey[key]
		out = append(out, MonthStat{Month: key, Bookings: row.Bookings, Revenue: row.Revenue})
	}
	return out
}

func (h *Handler) topPackages(ctx context.Context) ([]PackageStat, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":      "$package",
			"bookings": bson.M{"$sum": 1},
			"revenue":  bson.M{"$sum": notCancelled},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "bookings", Value: -1}, {Key: "revenue", Value: -1}}}},
		{{Key: "$limit", Value: topPackagesMax}},
	}
	cur, err := h.bookings.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	stats := []PackageStat{}
	if err := cur.All(ctx, &stats); err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return stats, nil
	}

	ids := make([]primitive.ObjectID, 0, len(stats))
	for _, s := range stats {
		ids = append(ids, s.PackageID)
	}
	pkgs, err := h.packages.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	titles := make(map[primitive.ObjectID]string, len(pkgs))
	for _, p := range pkgs {
		titles[p.ID] = p.Title
	}
	for i := range stats {
		stats[i].Title = titles[stats[i].PackageID]
	}
	return stats, nil
}
