package booking

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"trailhead/db"
	"trailhead/models"
)

var activeStatuses = bson.A{models.StatusPending, models.StatusConfirmed}

// MongoStore keeps bookings in the bookings collection.
type MongoStore struct {
	repo *db.Repo[models.Booking]
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{repo: db.NewRepo[models.Booking](coll)}
}

func (s *MongoStore) Insert(ctx context.Context, b *models.Booking) error {
	return s.repo.Insert(ctx, b)
}

func (s *MongoStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *MongoStore) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return s.repo.Find(ctx, bson.M{"user": userID}, opts)
}

func upcomingFilter(userID primitive.ObjectID, now time.Time) bson.M {
	return bson.M{
		"user":      userID,
		"startDate": bson.M{"$gte": now},
		"status":    bson.M{"$in": activeStatuses},
	}
}

func (s *MongoStore) FindUpcoming(ctx context.Context, userID primitive.ObjectID, now time.Time, limit int64) ([]models.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startDate", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return s.repo.Find(ctx, upcomingFilter(userID, now), opts)
}

func (s *MongoStore) CountUpcoming(ctx context.Context, userID primitive.ObjectID, now time.Time) (int64, error) {
	return s.repo.Count(ctx, upcomingFilter(userID, now))
}

// Totals aggregates over every booking of the user regardless of status.
func (s *MongoStore) Totals(ctx context.Context, userID primitive.ObjectID) (models.BookingStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":              nil,
			"totalBookings":    bson.M{"$sum": 1},
			"totalSpent":       bson.M{"$sum": "$totalPrice"},
			"averageGroupSize": bson.M{"$avg": "$numberOfPeople"},
		}}},
	}

	var stats models.BookingStats
	cur, err := s.repo.Collection().Aggregate(ctx, pipeline)
	if err != nil {
		return stats, err
	}
	defer cur.Close(ctx)

	if cur.Next(ctx) {
		if err := cur.Decode(&stats); err != nil {
			return stats, err
		}
	}
	return stats, cur.Err()
}

func (s *MongoStore) SetSpecialRequirements(ctx context.Context, id primitive.ObjectID, text string, now time.Time) (*models.Booking, error) {
	return s.repo.UpdateByID(ctx, id, bson.M{
		"specialRequirements": text,
		"updatedAt":           now,
	})
}

func (s *MongoStore) SetStatus(ctx context.Context, id primitive.ObjectID, from, to models.BookingStatus, now time.Time) (*models.Booking, error) {
	var b models.Booking
	err := s.repo.Collection().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *MongoStore) DeleteIfStatus(ctx context.Context, id primitive.ObjectID, status models.BookingStatus) error {
	res, err := s.repo.Collection().DeleteOne(ctx, bson.M{"_id": id, "status": status})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context, f ListFilter) ([]models.Booking, int64, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.UserID != nil {
		filter["user"] = *f.UserID
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetSkip(f.Skip)
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	bookings, err := s.repo.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}
