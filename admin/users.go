package admin

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"trailhead/apperr"
	"trailhead/auth"
	"trailhead/db"
	"trailhead/models"
	"trailhead/utils"
)

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Phone    string `json:"phone" validate:"required,max=30"`
	Address  string `json:"address" validate:"required,max=300"`
	Role     string `json:"role" validate:"omitempty,oneof=tourist admin operator guide driver hotel_manager"`
}

type UpdateUserRequest struct {
	Name     *string `json:"name" bson:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Email    *string `json:"email" bson:"email,omitempty" validate:"omitempty,email"`
	Phone    *string `json:"phone" bson:"phone,omitempty" validate:"omitempty,max=30"`
	Address  *string `json:"address" bson:"address,omitempty" validate:"omitempty,max=300"`
	Role     *string `json:"role" bson:"role,omitempty" validate:"omitempty,oneof=tourist admin operator guide driver hotel_manager"`
	Password *string `json:"password" bson:"password,omitempty" validate:"omitempty,min=6,max=72"`
}

func userID(ps httprouter.Params) (primitive.ObjectID, error) {
	id, ok := db.ParseID(ps.ByName("id"))
	if !ok {
		return primitive.NilObjectID, apperr.NotFound("User")
	}
	return id, nil
}

// GetUsers lists accounts newest first, optionally filtered by ?role.
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	filter := bson.M{}
	if role := r.URL.Query().Get("role"); role != "" {
		filter["role"] = role
	}
	skip, limit := utils.ParsePagination(r, 20, 100)

	total, err := h.users.Count(ctx, filter)
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to count users"))
		return
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetSkip(skip).SetLimit(limit)
	users, err := h.users.Find(ctx, filter, opts)
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to load users"))
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	utils.RespondWithJSON(w, http.StatusOK, users)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := userID(ps)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	user, err := h.users.FindByID(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		utils.RespondWithAppError(w, apperr.NotFound("User"))
		return
	}
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to load user"))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, user)
}

// CreateUser lets an admin create accounts of any role.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req CreateUserRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if req.Role == "" {
		req.Role = models.RoleTourist
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "could not process password"))
		return
	}
	now := time.Now().UTC()
	user := models.User{
		ID:        primitive.NewObjectID(),
		Name:      req.Name,
		Email:     auth.NormalizeEmail(req.Email),
		Password:  hash,
		Phone:     req.Phone,
		Address:   req.Address,
		Role:      req.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.users.Insert(r.Context(), &user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			utils.RespondWithAppError(w, apperr.Conflict("User already exists"))
			return
		}
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to create user"))
		return
	}

	h.log.WithFields(logrus.Fields{
		"userId": user.ID.Hex(),
		"role":   user.Role,
		"by":     utils.GetUserIDFromRequest(r),
	}).Info("user created by admin")
	utils.RespondWithJSON(w, http.StatusCreated, user)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := userID(ps)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	var req UpdateUserRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if req.Email != nil {
		email := auth.NormalizeEmail(*req.Email)
		req.Email = &email
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
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

	user, err := h.users.UpdateByID(r.Context(), id, set)
	switch {
	case errors.Is(err, db.ErrNotFound):
		utils.RespondWithAppError(w, apperr.NotFound("User"))
		return
	case mongo.IsDuplicateKeyError(err):
		utils.RespondWithAppError(w, apperr.Conflict("email is already in use"))
		return
	case err != nil:
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to update user"))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, user)
}

// DeleteUser removes an account. Admins cannot delete themselves.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := userID(ps)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if id.Hex() == utils.GetUserIDFromRequest(r) {
		utils.RespondWithAppError(w, apperr.Conflict("you cannot delete your own account"))
		return
	}

	err = h.users.DeleteByID(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		utils.RespondWithAppError(w, apperr.NotFound("User"))
		return
	}
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to delete user"))
		return
	}
	h.log.WithField("userId", id.Hex()).Info("user removed")
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "User removed"})
}
