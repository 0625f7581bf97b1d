package routes

import (
	"github.com/julienschmidt/httprouter"
)

// RoutesWrapper builds the full API router.
func RoutesWrapper(d *Deps) *httprouter.Router {
	router := httprouter.New()
	AddOpsRoutes(router, d)
	AddAdminRoutes(router, d)
	AddBookingRoutes(router, d)
	AddChatRoutes(router, d)
	AddHotelRoutes(router, d)
	AddPackageRoutes(router, d)
	AddReviewsRoutes(router, d)
	AddUserRoutes(router, d)
	AddVehicleRoutes(router, d)
	return router
}
