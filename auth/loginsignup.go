package auth

import (
	"errors"
	"net/http"
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

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Phone    string `json:"phone" validate:"required,max=30"`
	Address  string `json:"address" validate:"required,max=300"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func badCredentials() error {
	return apperr.Unauthorized("Invalid email or password")
}

// Register creates a tourist account and signs the new user in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	var req RegisterRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	email := NormalizeEmail(req.Email)

	exists, err := h.users.Count(ctx, bson.M{"email": email})
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to check existing users"))
		return
	}
	if exists > 0 {
		utils.RespondWithAppError(w, apperr.Conflict("User already exists"))
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "could not process password"))
		return
	}

	now := time.Now().UTC()
	user := models.User{
		ID:        primitive.NewObjectID(),
		Name:      req.Name,
		Email:     email,
		Password:  hash,
		Phone:     req.Phone,
		Address:   req.Address,
		Role:      models.RoleTourist,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.users.Insert(ctx, &user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			utils.RespondWithAppError(w, apperr.Conflict("User already exists"))
			return
		}
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to register user"))
		return
	}

	resp, err := h.respond(&user)
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to generate token"))
		return
	}
	h.log.WithField("userId", user.ID.Hex()).Info("user registered")
	utils.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *Handler) authenticate(r *http.Request) (*models.User, error) {
	var req LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		return nil, err
	}
	if err := h.validate.Validate(req); err != nil {
		return nil, err
	}

	user, err := h.users.FindOne(r.Context(), bson.M{"email": NormalizeEmail(req.Email)})
	if errors.Is(err, db.ErrNotFound) {
		return nil, badCredentials()
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load user")
	}
	if !CheckPassword(user.Password, req.Password) {
		return nil, badCredentials()
	}
	return user, nil
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, err := h.authenticate(r)
	if err != nil {
		h.log.WithField("remote", r.RemoteAddr).Warn("login failed")
		utils.RespondWithAppError(w, err)
		return
	}
	resp, err := h.respond(user)
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to generate token"))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// AdminLogin is Login restricted to accounts with the admin role.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, err := h.authenticate(r)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if user.Role != models.RoleAdmin {
		h.log.WithFields(logrus.Fields{"userId": user.ID.Hex(), "role": user.Role}).Warn("admin login refused")
		utils.RespondWithAppError(w, apperr.Forbidden("Not authorized as admin"))
		return
	}
	resp, err := h.respond(user)
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to generate token"))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
