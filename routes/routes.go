package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"trailhead/admin"
	"trailhead/analytics"
	"trailhead/auth"
	"trailhead/booking"
	"trailhead/chat"
	"trailhead/hotels"
	"trailhead/metrics"
	"trailhead/middleware"
	"trailhead/ratelim"
	"trailhead/respcache"
	"trailhead/reviews"
	"trailhead/tours"
	"trailhead/utils"
	"trailhead/vehicles"
	"trailhead/voucher"
)

// Deps carries the handlers and shared middleware the route tables are built from.
type Deps struct {
	Auth    *middleware.Auth
	Limiter *ratelim.RateLimiter
	Cache   *respcache.Cache
	// Idempotency wraps booking creation; nil when no store is configured.
	Idempotency func(httprouter.Handle) httprouter.Handle
	Health      func(ctx context.Context) error

	Bookings  *booking.Handler
	Hub       *booking.Hub
	Chat      *chat.Hub
	Vouchers  *voucher.Handler
	Tours     *tours.Handler
	Hotels    *hotels.Handler
	Vehicles  *vehicles.Handler
	Reviews   *reviews.Handler
	Users     *auth.Handler
	Admin     *admin.Handler
	Analytics *analytics.Handler
}

func (d *Deps) idempotent(next httprouter.Handle) httprouter.Handle {
	if d.Idempotency == nil {
		return next
	}
	return d.Idempotency(next)
}

func AddOpsRoutes(router *httprouter.Router, d *Deps) {
	router.GET("/health", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if d.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Health(ctx); err != nil {
				utils.RespondWithJSON(w, http.StatusServiceUnavailable, utils.M{"status": "unavailable"})
				return
			}
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())
}

// AddBookingRoutes registers /api/bookings. httprouter cannot hold static siblings of
// :id, so upcoming, stats and ws are resolved inside the :id handler.
func AddBookingRoutes(router *httprouter.Router, d *Deps) {
	get := d.Auth.Authenticate(d.Bookings.GetBooking)
	ws := d.Auth.AuthenticateWS(d.Hub.HandleWS)

	router.POST("/api/bookings", d.Auth.Authenticate(d.idempotent(d.Bookings.CreateBooking)))
	router.GET("/api/bookings", d.Auth.Authenticate(d.Bookings.GetMyBookings))
	router.GET("/api/bookings/:id", func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if ps.ByName("id") == "ws" {
			ws(w, r, ps)
			return
		}
		get(w, r, ps)
	})
	router.PUT("/api/bookings/:id", d.Auth.Authenticate(d.Bookings.UpdateBooking))
	router.DELETE("/api/bookings/:id", d.Auth.Authenticate(d.Bookings.CancelBooking))
	router.GET("/api/bookings/:id/voucher", d.Auth.Authenticate(d.Vouchers.GetVoucher))
}

// AddChatRoutes registers the room relay. Browsers pass the token as ?token=.
func AddChatRoutes(router *httprouter.Router, d *Deps) {
	router.GET("/api/chat/ws", d.Auth.AuthenticateWS(d.Chat.HandleWS))
}

func AddPackageRoutes(router *httprouter.Router, d *Deps) {
	router.GET("/api/packages", d.Cache.Middleware(d.Tours.GetPackages))
	router.GET("/api/packages/:id", d.Cache.Middleware(d.Tours.GetPackage))
	router.POST("/api/packages", d.Auth.Admin(d.Tours.CreatePackage))
	router.PUT("/api/packages/:id", d.Auth.Admin(d.Tours.UpdatePackage))
	router.DELETE("/api/packages/:id", d.Auth.Admin(d.Tours.DeletePackage))
}

func AddHotelRoutes(router *httprouter.Router, d *Deps) {
	router.GET("/api/hotels", d.Cache.Middleware(d.Hotels.GetHotels))
	router.GET("/api/hotels/:id", d.Cache.Middleware(d.Hotels.GetHotel))
	for _, base := range []string{"/api/hotels", "/api/admin/hotels"} {
		router.POST(base, d.Auth.Admin(d.Hotels.CreateHotel))
		router.PUT(base+"/:id", d.Auth.Admin(d.Hotels.UpdateHotel))
		router.DELETE(base+"/:id", d.Auth.Admin(d.Hotels.DeleteHotel))
	}
}

func AddVehicleRoutes(router *httprouter.Router, d *Deps) {
	router.GET("/api/vehicles", d.Cache.Middleware(d.Vehicles.GetVehicles))
	router.GET("/api/vehicles/:id", d.Cache.Middleware(d.Vehicles.GetVehicle))
	for _, base := range []string{"/api/vehicles", "/api/admin/vehicles"} {
		router.POST(base, d.Auth.Admin(d.Vehicles.CreateVehicle))
		router.PUT(base+"/:id", d.Auth.Admin(d.Vehicles.UpdateVehicle))
		router.DELETE(base+"/:id", d.Auth.Admin(d.Vehicles.DeleteVehicle))
	}
}

func AddReviewsRoutes(router *httprouter.Router, d *Deps) {
	router.GET("/api/reviews", d.Cache.Middleware(d.Reviews.GetReviews))
	router.GET("/api/reviews/:id", d.Cache.Middleware(d.Reviews.GetReview))
	router.POST("/api/reviews", d.Auth.Authenticate(d.Reviews.CreateReview))
	router.PUT("/api/reviews/:id", d.Auth.Authenticate(d.Reviews.UpdateReview))
	router.DELETE("/api/reviews/:id", d.Auth.Authenticate(d.Reviews.DeleteReview))
}

func AddUserRoutes(router *httprouter.Router, d *Deps) {
	router.POST("/api/users/register", d.Limiter.Limit(d.Users.Register))
	router.POST("/api/users/login", d.Limiter.Limit(d.Users.Login))
	router.GET("/api/users/profile", d.Auth.Authenticate(d.Users.GetProfile))
	router.PUT("/api/users/profile", d.Auth.Authenticate(d.Users.UpdateProfile))
	router.GET("/api/users/dashboard-stats", d.Auth.Authenticate(d.Users.DashboardStats))
}

func AddAdminRoutes(router *httprouter.Router, d *Deps) {
	router.POST("/api/admin/login", d.Limiter.Limit(d.Users.AdminLogin))

	router.GET("/api/admin/bookings", d.Auth.Admin(d.Admin.GetBookings))
	router.PATCH("/api/admin/bookings/:id/status", d.Auth.Admin(d.Bookings.UpdateBookingStatus))

	router.GET("/api/admin/users", d.Auth.Admin(d.Admin.GetUsers))
	router.POST("/api/admin/users", d.Auth.Admin(d.Admin.CreateUser))
	router.GET("/api/admin/users/:id", d.Auth.Admin(d.Admin.GetUser))
	router.PUT("/api/admin/users/:id", d.Auth.Admin(d.Admin.UpdateUser))
	router.DELETE("/api/admin/users/:id", d.Auth.Admin(d.Admin.DeleteUser))

	router.GET("/api/admin/stats", d.Auth.Admin(d.Admin.GetStats))
	router.GET("/api/admin/analytics", d.Auth.Admin(d.Analytics.GetAnalytics))
	router.POST("/api/admin/vouchers/verify", d.Auth.Admin(d.Vouchers.VerifyVoucher))
}
