package booking

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"trailhead/apperr"
	"trailhead/db"
	"trailhead/utils"
	"trailhead/validation"
)

type Handler struct {
	mgr      *Manager
	validate *validation.Validator
}

func NewHandler(mgr *Manager, v *validation.Validator) *Handler {
	return &Handler{mgr: mgr, validate: v}
}

func currentUser(r *http.Request) (primitive.ObjectID, error) {
	id, ok := db.ParseID(utils.GetUserIDFromRequest(r))
	if !ok {
		return primitive.NilObjectID, apperr.Unauthorized("Not authorized, no token")
	}
	return id, nil
}

// bookingID maps malformed ids onto not found, same as unknown ones.
func bookingID(ps httprouter.Params) (primitive.ObjectID, error) {
	id, ok := db.ParseID(ps.ByName("id"))
	if !ok {
		return primitive.NilObjectID, apperr.NotFound("Booking")
	}
	return id, nil
}

// CreateBooking handles POST /api/bookings.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, err := currentUser(r)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	var req CreateBookingRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	b, err := h.mgr.Create(r.Context(), userID, in)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, b)
}

// GetMyBookings handles GET /api/bookings.
func (h *Handler) GetMyBookings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, err := currentUser(r)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	out, err := h.mgr.List(r.Context(), userID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

func (h *Handler) GetUpcomingBookings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, err := currentUser(r)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	out, err := h.mgr.ListUpcoming(r.Context(), userID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

func (h *Handler) GetBookingStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, err := currentUser(r)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	out, err := h.mgr.Stats(r.Context(), userID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

// GetBooking serves GET /api/bookings/:id. httprouter cannot register static siblings
// next to a wildcard, so the named sub-resources are dispatched here.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	switch ps.ByName("id") {
	case "upcoming":
		h.GetUpcomingBookings(w, r, ps)
		return
	case "stats":
		h.GetBookingStats(w, r, ps)
		return
	}

	userID, err := currentUser(r)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	id, err := bookingID(ps)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	out, err := h.mgr.Get(r.Context(), userID, id)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

func (h *Handler) UpdateBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, err := currentUser(r)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	id, err := bookingID(ps)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	var req UpdateBookingRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	b, err := h.mgr.Update(r.Context(), userID, id, UpdateInput{SpecialRequirements: req.SpecialRequirements})
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, b)
}

// CancelBooking handles DELETE /api/bookings/:id and answers 204 with no body.
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, err := currentUser(r)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	id, err := bookingID(ps)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if err := h.mgr.Cancel(r.Context(), userID, id); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateBookingStatus handles PATCH /api/admin/bookings/:id/status.
func (h *Handler) UpdateBookingStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := bookingID(ps)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	var req StatusRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	b, err := h.mgr.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, b)
}
