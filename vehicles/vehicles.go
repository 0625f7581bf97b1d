package vehicles

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

	"trailhead/apperr"
	"trailhead/db"
	"trailhead/models"
	"trailhead/respcache"
	"trailhead/utils"
	"trailhead/validation"
)

const (
	CachePrefix = "/api/vehicles"

	defaultNearMeters = 10000
)

type CreateVehicleRequest struct {
	Type            string                     `json:"type" validate:"required"`
	Model           string                     `json:"model" validate:"required"`
	Capacity        int                        `json:"capacity" validate:"required,gte=1"`
	LicensePlate    string                     `json:"licensePlate" validate:"required"`
	Features        []string                   `json:"features"`
	Images          []string                   `json:"images"`
	Available       *bool                      `json:"available"`
	Driver          string                     `json:"driver" validate:"omitempty,mongodb"`
	Maintenance     []models.MaintenanceRecord `json:"maintenanceHistory"`
	CurrentLocation *[]float64                 `json:"coordinates" validate:"omitempty,len=2"`
}

type UpdateVehicleRequest struct {
	Type         *string                     `json:"type" bson:"type,omitempty" validate:"omitempty,min=1"`
	Model        *string                     `json:"model" bson:"model,omitempty" validate:"omitempty,min=1"`
	Capacity     *int                        `json:"capacity" bson:"capacity,omitempty" validate:"omitempty,gte=1"`
	LicensePlate *string                     `json:"licensePlate" bson:"licensePlate,omitempty" validate:"omitempty,min=1"`
	Features     *[]string                   `json:"features" bson:"features,omitempty"`
	Images       *[]string                   `json:"images" bson:"images,omitempty"`
	Available    *bool                       `json:"available" bson:"available,omitempty"`
	Maintenance  *[]models.MaintenanceRecord `json:"maintenanceHistory" bson:"maintenanceHistory,omitempty"`
}

type Handler struct {
	repo     *db.Repo[models.Vehicle]
	cache    *respcache.Cache
	validate *validation.Validator
	log      *logrus.Logger
}

func NewHandler(coll *mongo.Collection, cache *respcache.Cache, v *validation.Validator, log *logrus.Logger) *Handler {
	return &Handler{repo: db.NewRepo[models.Vehicle](coll), cache: cache, validate: v, log: log}
}

func (h *Handler) GetVehicles(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	filter := bson.M{}
	if avail := r.URL.Query().Get("available"); avail != "" {
		b, err := strconv.ParseBool(avail)
		if err != nil {
			utils.RespondWithAppError(w, apperr.Validation("available must be true or false"))
			return
		}
		filter["available"] = b
	}
	if t := r.URL.Query().Get("type"); t != "" {
		filter["type"] = t
	}
	vehicles, err := h.repo.Find(r.Context(), filter)
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to load vehicles"))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, vehicles)
}

// GetNearbyVehicles answers /api/vehicles/near?lng=&lat=[&maxDistance=meters] with
// available vehicles ordered by distance.
func (h *Handler) GetNearbyVehicles(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	if errLng != nil || errLat != nil || lng < -180 || lng > 180 || lat < -90 || lat > 90 {
		utils.RespondWithAppError(w, apperr.Validation("lng and lat must be valid coordinates"))
		return
	}
	maxDist := float64(defaultNearMeters)
	if s := q.Get("maxDistance"); s != "" {
		d, err := strconv.ParseFloat(s, 64)
		if err != nil || d <= 0 {
			utils.RespondWithAppError(w, apperr.Validation("maxDistance must be a positive number"))
			return
		}
		maxDist = d
	}

	filter := bson.M{
		"available": true,
		"currentLocation": bson.M{"$near": bson.M{
			"$geometry":    bson.M{"type": "Point", "coordinates": bson.A{lng, lat}},
			"$maxDistance": maxDist,
		}},
	}
	vehicles, err := h.repo.Find(r.Context(), filter)
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to search vehicles"))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, vehicles)
}

func (h *Handler) GetVehicle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if ps.ByName("id") == "near" {
		h.GetNearbyVehicles(w, r, ps)
		return
	}
	id, ok := db.ParseID(ps.ByName("id"))
	if !ok {
		utils.RespondWithAppError(w, apperr.NotFound("Vehicle"))
		return
	}
	v, err := h.repo.FindByID(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		utils.RespondWithAppError(w, apperr.NotFound("Vehicle"))
		return
	}
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to load vehicle"))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, v)
}

func duplicatePlate(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return apperr.Conflict("a vehicle with this license plate already exists")
	}
	return nil
}

func (h *Handler) CreateVehicle(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req CreateVehicleRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	now := time.Now().UTC()
	v := models.Vehicle{
		ID:                 primitive.NewObjectID(),
		Type:               req.Type,
		Model:              req.Model,
		Capacity:           req.Capacity,
		LicensePlate:       req.LicensePlate,
		Features:           req.Features,
		Images:             req.Images,
		Available:          req.Available == nil || *req.Available,
		MaintenanceHistory: req.Maintenance,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if d, ok := db.ParseID(req.Driver); ok {
		v.Driver = &d
	}
	if req.CurrentLocation != nil {
		v.CurrentLocation = &models.GeoPoint{Type: "Point", Coordinates: *req.CurrentLocation}
	}

	if err := h.repo.Insert(r.Context(), &v); err != nil {
		if dup := duplicatePlate(err); dup != nil {
			utils.RespondWithAppError(w, dup)
			return
		}
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to create vehicle"))
		return
	}
	h.cache.Invalidate(r.Context(), CachePrefix)
	h.log.WithField("vehicleId", v.ID.Hex()).Info("vehicle created")
	utils.RespondWithJSON(w, http.StatusCreated, v)
}

func (h *Handler) UpdateVehicle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := db.ParseID(ps.ByName("id"))
	if !ok {
		utils.RespondWithAppError(w, apperr.NotFound("Vehicle"))
		return
	}
	var req UpdateVehicleRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	set, err := db.SetFields(req)
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to build update"))
		return
	}
	set["updatedAt"] = time.Now().UTC()

	v, err := h.repo.UpdateByID(r.Context(), id, set)
	switch {
	case errors.Is(err, db.ErrNotFound):
		utils.RespondWithAppError(w, apperr.NotFound("Vehicle"))
		return
	case duplicatePlate(err) != nil:
		utils.RespondWithAppError(w, duplicatePlate(err))
		return
	case err != nil:
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to update vehicle"))
		return
	}
	h.cache.Invalidate(r.Context(), CachePrefix)
	utils.RespondWithJSON(w, http.StatusOK, v)
}

func (h *Handler) DeleteVehicle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := db.ParseID(ps.ByName("id"))
	if !ok {
		utils.RespondWithAppError(w, apperr.NotFound("Vehicle"))
		return
	}
	err := h.repo.DeleteByID(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		utils.RespondWithAppError(w, apperr.NotFound("Vehicle"))
		return
	}
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to delete vehicle"))
		return
	}
	h.cache.Invalidate(r.Context(), CachePrefix)
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Vehicle removed"})
}
