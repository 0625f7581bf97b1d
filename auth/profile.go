package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"trailhead/apperr"
	"trailhead/db"
	"trailhead/utils"
)

type UpdateProfileRequest struct {
	Name     *string `json:"name" bson:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Email    *string `json:"email" bson:"email,omitempty" validate:"omitempty,email"`
	Phone    *string `json:"phone" bson:"phone,omitempty" validate:"omitempty,max=30"`
	Address  *string `json:"address" bson:"address,omitempty" validate:"omitempty,max=300"`
	Password *string `json:"password" bson:"password,omitempty" validate:"omitempty,min=6,max=72"`
}

type DashboardStats struct {
	TotalBookings int64   `json:"totalBookings"`
	UpcomingTrips int64   `json:"upcomingTrips"`
	TotalSpent    float64 `json:"totalSpent"`
}

func currentUser(r *http.Request) (primitive.ObjectID, error) {
	id, ok := db.ParseID(utils.GetUserIDFromRequest(r))
	if !ok {
		return primitive.NilObjectID, apperr.Unauthorized("Not authorized, no token")
	}
	return id, nil
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, err := currentUser(r)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	user, err := h.users.FindByID(r.Context(), userID)
	if errors.Is(err, db.ErrNotFound) {
		utils.RespondWithAppError(w, apperr.NotFound("User"))
		return
	}
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to load profile"))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, user)
}

// UpdateProfile changes the caller's own details. Role is never writable here.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, err := currentUser(r)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	var req UpdateProfileRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if req.Email != nil {
		email := NormalizeEmail(*req.Email)
		req.Email = &email
	}
	if req.Password != nil {
		hash, err := HashPassword(*req.Password)
		if err != nil {
			utils.RespondWithAppError(w, apperr.Internal(err, "could not process password"))
			return
		}
		req.Password = &hash
	}

	set, err := db.SetFields(req)
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to build update"))
		return
	}
	set["updatedAt"] = time.Now().UTC()

	user, err := h.users.UpdateByID(r.Context(), userID, set)
	switch {
	case errors.Is(err, db.ErrNotFound):
		utils.RespondWithAppError(w, apperr.NotFound("User"))
		return
	case mongo.IsDuplicateKeyError(err):
		utils.RespondWithAppError(w, apperr.Conflict("email is already in use"))
		return
	case err != nil:
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to update profile"))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, user)
}

func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, err := currentUser(r)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	st, err := h.stats.Stats(r.Context(), userID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, DashboardStats{
		TotalBookings: st.Stats.TotalBookings,
		UpcomingTrips: st.UpcomingBookings,
		TotalSpent:    st.Stats.TotalSpent,
	})
}
