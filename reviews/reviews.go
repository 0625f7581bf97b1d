package reviews

import (
	"context"
	"errors"
	"math"
	"net/http"
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
	"trailhead/tours"
	"trailhead/utils"
	"trailhead/validation"
)

const CachePrefix = "/api/reviews"

type CreateReviewRequest struct {
	Rating    int      `json:"rating" validate:"required,gte=1,lte=5"`
	Title     string   `json:"title" validate:"max=200"`
	Comment   string   `json:"comment" validate:"required,max=5000"`
	Images    []string `json:"images"`
	PackageID string   `json:"packageId" validate:"required,mongodb"`
	HotelID   string   `json:"hotelId" validate:"omitempty,mongodb"`
	GuideID   string   `json:"guideId" validate:"omitempty,mongodb"`
	DriverID  string   `json:"driverId" validate:"omitempty,mongodb"`
}

type UpdateReviewRequest struct {
	Rating  *int    `json:"rating" bson:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	Title   *string `json:"title" bson:"title,omitempty" validate:"omitempty,max=200"`
	Comment *string `json:"comment" bson:"comment,omitempty" validate:"omitempty,min=1,max=5000"`
}

// ReviewWithAuthor is a review with its author's public profile.
type ReviewWithAuthor struct {
	models.Review
	Author *models.UserSummary `json:"author,omitempty"`
}

type Handler struct {
	reviews  *db.Repo[models.Review]
	packages *db.Repo[models.Package]
	users    *db.Repo[models.User]
	cache    *respcache.Cache
	validate *validation.Validator
	log      *logrus.Logger
}

func NewHandler(reviews, packages, users *mongo.Collection, cache *respcache.Cache, v *validation.Validator, log *logrus.Logger) *Handler {
	return &Handler{
		reviews:  db.NewRepo[models.Review](reviews),
		packages: db.NewRepo[models.Package](packages),
		users:    db.NewRepo[models.User](users),
		cache:    cache,
		validate: v,
		log:      log,
	}
}

func optionalID(hex string) *primitive.ObjectID {
	if id, ok := db.ParseID(hex); ok {
		return &id
	}
	return nil
}

// GetReviews lists reviews newest first, optionally for one package.
func (h *Handler) GetReviews(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	filter := bson.M{}
	if pid := r.URL.Query().Get("packageId"); pid != "" {
		id, ok := db.ParseID(pid)
		if !ok {
			utils.RespondWithAppError(w, apperr.Validation("invalid packageId"))
			return
		}
		filter["packageId"] = id
	}

	skip, limit := utils.ParsePagination(r, 20, 100)
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetSkip(skip).SetLimit(limit)
	reviews, err := h.reviews.Find(ctx, filter, opts)
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to load reviews"))
		return
	}

	out, err := h.withAuthors(ctx, reviews)
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to load review authors"))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

func (h *Handler) withAuthors(ctx context.Context, reviews []models.Review) ([]ReviewWithAuthor, error) {
	seen := map[primitive.ObjectID]bool{}
	var ids []primitive.ObjectID
	for _, rv := range reviews {
		if !seen[rv.User] {
			seen[rv.User] = true
			ids = append(ids, rv.User)
		}
	}
	users, err := h.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*models.UserSummary, len(users))
	for i := range users {
		byID[users[i].ID] = users[i].Summary()
	}

	out := make([]ReviewWithAuthor, 0, len(reviews))
	for _, rv := range reviews {
		out = append(out, ReviewWithAuthor{Review: rv, Author: byID[rv.User]})
	}
	return out, nil
}

func (h *Handler) load(ctx context.Context, ps httprouter.Params) (*models.Review, error) {
	id, ok := db.ParseID(ps.ByName("id"))
	if !ok {
		return nil, apperr.NotFound("Review")
	}
	rv, err := h.reviews.FindByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("Review")
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load review")
	}
	return rv, nil
}

func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	rv, err := h.load(r.Context(), ps)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, rv)
}

// CreateReview adds the caller's review of a package. One review per user and package.
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	userID, ok := db.ParseID(utils.GetUserIDFromRequest(r))
	if !ok {
		utils.RespondWithAppError(w, apperr.Unauthorized("Not authorized, no token"))
		return
	}

	var req CreateReviewRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	pkgID, _ := db.ParseID(req.PackageID)

	if _, err := h.packages.FindByID(ctx, pkgID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			utils.RespondWithAppError(w, apperr.NotFound("Package"))
			return
		}
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to load package"))
		return
	}

	count, err := h.reviews.Count(ctx, bson.M{"user": userID, "packageId": pkgID})
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to check existing reviews"))
		return
	}
	if count > 0 {
		utils.RespondWithAppError(w, apperr.Conflict("You have already reviewed this package"))
		return
	}

	now := time.Now().UTC()
	rv := models.Review{
		ID:        primitive.NewObjectID(),
		User:      userID,
		Rating:    req.Rating,
		Title:     req.Title,
		Comment:   req.Comment,
		Images:    req.Images,
		PackageID: &pkgID,
		HotelID:   optionalID(req.HotelID),
		GuideID:   optionalID(req.GuideID),
		DriverID:  optionalID(req.DriverID),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.reviews.Insert(ctx, &rv); err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to create review"))
		return
	}

	h.refreshPackage(ctx, pkgID)
	h.log.WithFields(logrus.Fields{"reviewId": rv.ID.Hex(), "packageId": pkgID.Hex()}).Info("review added")
	utils.RespondWithJSON(w, http.StatusCreated, rv)
}

func (h *Handler) authorize(r *http.Request, rv *models.Review) error {
	if utils.IsAdmin(r.Context()) || rv.User.Hex() == utils.GetUserIDFromRequest(r) {
		return nil
	}
	return apperr.Forbidden("Not authorized to modify this review")
}

func (h *Handler) UpdateReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	rv, err := h.load(ctx, ps)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if err := h.authorize(r, rv); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	var req UpdateReviewRequest
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

	updated, err := h.reviews.UpdateByID(ctx, rv.ID, set)
	if errors.Is(err, db.ErrNotFound) {
		utils.RespondWithAppError(w, apperr.NotFound("Review"))
		return
	}
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to update review"))
		return
	}

	if req.Rating != nil && rv.PackageID != nil {
		h.refreshPackage(ctx, *rv.PackageID)
	} else {
		h.cache.Invalidate(ctx, CachePrefix)
	}
	utils.RespondWithJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	rv, err := h.load(ctx, ps)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if err := h.authorize(r, rv); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	err = h.reviews.DeleteByID(ctx, rv.ID)
	if errors.Is(err, db.ErrNotFound) {
		utils.RespondWithAppError(w, apperr.NotFound("Review"))
		return
	}
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to delete review"))
		return
	}

	if rv.PackageID != nil {
		h.refreshPackage(ctx, *rv.PackageID)
	}
	w.WriteHeader(http.StatusNoContent)
}

type ratingSummary struct {
	Average float64              `bson:"average"`
	Count   int                  `bson:"count"`
	IDs     []primitive.ObjectID `bson:"ids"`
}

// RecomputeRating rewrites a package's rating, numReviews and review list from the
// reviews collection.
func (h *Handler) RecomputeRating(ctx context.Context, pkgID primitive.ObjectID) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"packageId": pkgID}}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"average": bson.M{"$avg": "$rating"},
			"count":   bson.M{"$sum": 1},
			"ids":     bson.M{"$push": "$_id"},
		}}},
	}
	cur, err := h.reviews.Collection().Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	var sum ratingSummary
	if cur.Next(ctx) {
		if err := cur.Decode(&sum); err != nil {
			return err
		}
	}
	if err := cur.Err(); err != nil {
		return err
	}
	if sum.IDs == nil {
		sum.IDs = []primitive.ObjectID{}
	}

	_, err = h.packages.UpdateByID(ctx, pkgID, bson.M{
		"rating":     roundRating(sum.Average),
		"numReviews": sum.Count,
		"reviews":    sum.IDs,
	})
	if errors.Is(err, db.ErrNotFound) {
		// package was deleted; nothing to keep in sync
		return nil
	}
	return err
}

func roundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}

// refreshPackage runs after a review write has succeeded, so failures are logged
// instead of returned.
func (h *Handler) refreshPackage(ctx context.Context, pkgID primitive.ObjectID) {
	if err := h.RecomputeRating(context.WithoutCancel(ctx), pkgID); err != nil {
		h.log.WithError(err).WithField("packageId", pkgID.Hex()).Error("failed to recompute package rating")
	}
	h.cache.Invalidate(ctx, CachePrefix)
	h.cache.Invalidate(ctx, tours.CachePrefix)
}
