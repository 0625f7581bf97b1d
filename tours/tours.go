// Package tours serves the tour package catalog.
package tours

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
	"trailhead/db"
	"trailhead/models"
	"trailhead/respcache"
	"trailhead/utils"
	"trailhead/validation"
)

// CachePrefix is dropped from the response cache on every catalog write.
const CachePrefix = "/api/packages"

const recentLimit = 6

type Handler struct {
	repo     *db.Repo[models.Package]
	cache    *respcache.Cache
	validate *validation.Validator
	log      *logrus.Logger
}

func NewHandler(coll *mongo.Collection, cache *respcache.Cache, v *validation.Validator, log *logrus.Logger) *Handler {
	return &Handler{
		repo:     db.NewRepo[models.Package](coll),
		cache:    cache,
		validate: v,
		log:      log,
	}
}

func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
}

// GetPackages lists the catalog. Paging applies only when ?page or ?limit is given;
// the total is reported in X-Total-Count.
func (h *Handler) GetPackages(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	opts := newestFirst()

	q := r.URL.Query()
	if q.Has("page") || q.Has("limit") {
		skip, limit := utils.ParsePagination(r, 12, 100)
		opts.SetSkip(skip).SetLimit(limit)

		total, err := h.repo.Count(ctx, nil)
		if err != nil {
			utils.RespondWithAppError(w, apperr.Internal(err, "failed to count packages"))
			return
		}
		w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	}

	pkgs, err := h.repo.Find(ctx, nil, opts)
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to load packages"))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, pkgs)
}

func (h *Handler) GetFeaturedPackages(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pkgs, err := h.repo.Find(r.Context(), bson.M{"featured": true}, newestFirst())
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to load packages"))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, pkgs)
}

func (h *Handler) GetRecentPackages(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pkgs, err := h.repo.Find(r.Context(), nil, newestFirst().SetLimit(recentLimit))
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to load packages"))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, pkgs)
}

// GetPackage serves /api/packages/:id and the featured and recent listings that share
// its path segment.
func (h *Handler) GetPackage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	switch ps.ByName("id") {
	case "featured":
		h.GetFeaturedPackages(w, r, ps)
		return
	case "recent":
		h.GetRecentPackages(w, r, ps)
		return
	}

	id, ok := db.ParseID(ps.ByName("id"))
	if !ok {
		utils.RespondWithAppError(w, apperr.NotFound("Package"))
		return
	}
	pkg, err := h.repo.FindByID(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		utils.RespondWithAppError(w, apperr.NotFound("Package"))
		return
	}
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to load package"))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, pkg)
}

func (h *Handler) CreatePackage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req CreatePackageRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	pkg := req.toPackage(time.Now().UTC())
	pkg.ID = primitive.NewObjectID()
	if err := h.repo.Insert(r.Context(), &pkg); err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to create package"))
		return
	}

	h.cache.Invalidate(r.Context(), CachePrefix)
	h.log.WithField("packageId", pkg.ID.Hex()).Info("package created")
	utils.RespondWithJSON(w, http.StatusCreated, pkg)
}

func (h *Handler) UpdatePackage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := db.ParseID(ps.ByName("id"))
	if !ok {
		utils.RespondWithAppError(w, apperr.NotFound("Package"))
		return
	}

	var req UpdatePackageRequest
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

	pkg, err := h.repo.UpdateByID(r.Context(), id, set)
	if errors.Is(err, db.ErrNotFound) {
		utils.RespondWithAppError(w, apperr.NotFound("Package"))
		return
	}
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to update package"))
		return
	}

	h.cache.Invalidate(r.Context(), CachePrefix)
	utils.RespondWithJSON(w, http.StatusOK, pkg)
}

func (h *Handler) DeletePackage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := db.ParseID(ps.ByName("id"))
	if !ok {
		utils.RespondWithAppError(w, apperr.NotFound("Package"))
		return
	}
	err := h.repo.DeleteByID(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		utils.RespondWithAppError(w, apperr.NotFound("Package"))
		return
	}
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to delete package"))
		return
	}

	h.cache.Invalidate(r.Context(), CachePrefix)
	h.log.WithField("packageId", id.Hex()).Info("package removed")
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Package removed"})
}
