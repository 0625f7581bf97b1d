package hotels

import (
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"trailhead/apperr"
	"trailhead/db"
	"trailhead/models"
	"trailhead/respcache"
	"trailhead/utils"
	"trailhead/validation"
)

const CachePrefix = "/api/hotels"

type LocationInput struct {
	Address     string              `json:"address" bson:"address" validate:"required"`
	City        string              `json:"city" bson:"city" validate:"required"`
	Coordinates *models.Coordinates `json:"coordinates" bson:"coordinates,omitempty"`
}

type RoomInput struct {
	Type      string   `json:"type" validate:"required"`
	Price     *float64 `json:"price" validate:"required,gte=0"`
	Capacity  int      `json:"capacity" validate:"gte=0"`
	Amenities []string `json:"amenities"`
	Images    []string `json:"images"`
	Available *bool    `json:"available"`
}

func (r RoomInput) room() models.Room {
	available := true
	if r.Available != nil {
		available = *r.Available
	}
	return models.Room{
		Type:      r.Type,
		Price:     *r.Price,
		Capacity:  r.Capacity,
		Amenities: r.Amenities,
		Images:    r.Images,
		Available: available,
	}
}

type CreateHotelRequest struct {
	Name        string                `json:"name" validate:"required"`
	Location    LocationInput         `json:"location"`
	Description string                `json:"description"`
	Images      []string              `json:"images"`
	Rooms       []RoomInput           `json:"rooms" validate:"dive"`
	Amenities   []string              `json:"amenities"`
	Policies    *models.HotelPolicies `json:"policies"`
	Manager     string                `json:"manager" validate:"omitempty,mongodb"`
}

type UpdateHotelRequest struct {
	Name        *string               `json:"name" bson:"name,omitempty" validate:"omitempty,min=1"`
	Location    *LocationInput        `json:"location" bson:"location,omitempty"`
	Description *string               `json:"description" bson:"description,omitempty"`
	Images      *[]string             `json:"images" bson:"images,omitempty"`
	Rooms       *[]models.Room        `json:"rooms" bson:"rooms,omitempty"`
	Amenities   *[]string             `json:"amenities" bson:"amenities,omitempty"`
	Policies    *models.HotelPolicies `json:"policies" bson:"policies,omitempty"`
}

type Handler struct {
	repo     *db.Repo[models.Hotel]
	cache    *respcache.Cache
	validate *validation.Validator
	log      *logrus.Logger
}

func NewHandler(coll *mongo.Collection, cache *respcache.Cache, v *validation.Validator, log *logrus.Logger) *Handler {
	return &Handler{repo: db.NewRepo[models.Hotel](coll), cache: cache, validate: v, log: log}
}

// GetHotels lists hotels, optionally narrowed by ?city (case-insensitive exact match).
func (h *Handler) GetHotels(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	filter := bson.M{}
	if city := r.URL.Query().Get("city"); city != "" {
		filter["location.city"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(city) + "$", Options: "i"}
	}
	hotels, err := h.repo.Find(r.Context(), filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to load hotels"))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, hotels)
}

func (h *Handler) GetHotel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := db.ParseID(ps.ByName("id"))
	if !ok {
		utils.RespondWithAppError(w, apperr.NotFound("Hotel"))
		return
	}
	hotel, err := h.repo.FindByID(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		utils.RespondWithAppError(w, apperr.NotFound("Hotel"))
		return
	}
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to load hotel"))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, hotel)
}

func (h *Handler) CreateHotel(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req CreateHotelRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	now := time.Now().UTC()
	hotel := models.Hotel{
		ID:   primitive.NewObjectID(),
		Name: req.Name,
		Location: models.HotelLocation{
			Address:     req.Location.Address,
			City:        req.Location.City,
			Coordinates: req.Location.Coordinates,
		},
		Description: req.Description,
		Images:      req.Images,
		Amenities:   req.Amenities,
		Policies:    req.Policies,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, room := range req.Rooms {
		hotel.Rooms = append(hotel.Rooms, room.room())
	}
	if mgr, ok := db.ParseID(req.Manager); ok {
		hotel.Manager = &mgr
	}

	if err := h.repo.Insert(r.Context(), &hotel); err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to create hotel"))
		return
	}
	h.cache.Invalidate(r.Context(), CachePrefix)
	h.log.WithField("hotelId", hotel.ID.Hex()).Info("hotel created")
	utils.RespondWithJSON(w, http.StatusCreated, hotel)
}

func (h *Handler) UpdateHotel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := db.ParseID(ps.ByName("id"))
	if !ok {
		utils.RespondWithAppError(w, apperr.NotFound("Hotel"))
		return
	}
	var req UpdateHotelRequest
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

	hotel, err := h.repo.UpdateByID(r.Context(), id, set)
	if errors.Is(err, db.ErrNotFound) {
		utils.RespondWithAppError(w, apperr.NotFound("Hotel"))
		return
	}
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to update hotel"))
		return
	}
	h.cache.Invalidate(r.Context(), CachePrefix)
	utils.RespondWithJSON(w, http.StatusOK, hotel)
}

func (h *Handler) DeleteHotel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := db.ParseID(ps.ByName("id"))
	if !ok {
		utils.RespondWithAppError(w, apperr.NotFound("Hotel"))
		return
	}
	err := h.repo.DeleteByID(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		utils.RespondWithAppError(w, apperr.NotFound("Hotel"))
		return
	}
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to delete hotel"))
		return
	}
	h.cache.Invalidate(r.Context(), CachePrefix)
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Hotel removed"})
}
