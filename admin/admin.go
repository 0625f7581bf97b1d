// Package admin serves the back-office endpoints under /api/admin.
package admin

import (
	"context"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"trailhead/apperr"
	"trailhead/booking"
	"trailhead/db"
	"trailhead/models"
	"trailhead/utils"
	"trailhead/validation"
)

// BookingLister is the slice of the booking manager the admin views need.
type BookingLister interface {
	AdminList(ctx context.Context, f booking.ListFilter) ([]models.BookingDetails, int64, error)
}

// Collections groups the collections counted on the dashboard.
type Collections struct {
	Users    *mongo.Collection
	Packages *mongo.Collection
	Hotels   *mongo.Collection
	Vehicles *mongo.Collection
	Bookings *mongo.Collection
}

// FromDB returns the collections bound by db.Connect.
func FromDB() Collections {
	return Collections{
		Users:    db.UserCollection,
		Packages: db.PackageCollection,
		Hotels:   db.HotelCollection,
		Vehicles: db.VehicleCollection,
		Bookings: db.BookingsCollection,
	}
}

type Handler struct {
	bookings BookingLister
	users    *db.Repo[models.User]
	colls    Collections
	validate *validation.Validator
	log      *logrus.Logger
}

func NewHandler(bookings BookingLister, colls Collections, v *validation.Validator, log *logrus.Logger) *Handler {
	return &Handler{
		bookings: bookings,
		users:    db.NewRepo[models.User](colls.Users),
		colls:    colls,
		validate: v,
		log:      log,
	}
}

// GetBookings handles GET /api/admin/bookings?status=&userId=&page=&limit=.
func (h *Handler) GetBookings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	skip, limit := utils.ParsePagination(r, 20, 100)
	f := booking.ListFilter{
		Status: models.BookingStatus(q.Get("status")),
		Skip:   skip,
		Limit:  limit,
	}
	if uid := q.Get("userId"); uid != "" {
		id, ok := db.ParseID(uid)
		if !ok {
			utils.RespondWithAppError(w, apperr.Validation("invalid userId"))
			return
		}
		f.UserID = &id
	}

	list, total, err := h.bookings.AdminList(r.Context(), f)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	utils.RespondWithJSON(w, http.StatusOK, list)
}
