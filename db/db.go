package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	UserCollection     *mongo.Collection
	PackageCollection  *mongo.Collection
	HotelCollection    *mongo.Collection
	VehicleCollection  *mongo.Collection
	ReviewsCollection  *mongo.Collection
	BookingsCollection *mongo.Collection
	Client             *mongo.Client
)

// Connect opens the MongoDB client, verifies it with a ping and binds the collections.
func Connect(ctx context.Context, uri, database string) error {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	Client = client
	Bind(client.Database(database))
	return nil
}

// Bind points the package collections at the given database.
func Bind(database *mongo.Database) {
	UserCollection = database.Collection("users")
	PackageCollection = database.Collection("packages")
	HotelCollection = database.Collection("hotels")
	VehicleCollection = database.Collection("vehicles")
	ReviewsCollection = database.Collection("reviews")
	BookingsCollection = database.Collection("bookings")
}

// EnsureIndexes creates the indexes the queries rely on. Safe to call on every start.
func EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := map[*mongo.Collection][]mongo.IndexModel{
		UserCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_email")},
		},
		VehicleCollection: {
			{Keys: bson.D{{Key: "licensePlate", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_license_plate")},
			{Keys: bson.D{{Key: "currentLocation", Value: "2dsphere"}}, Options: options.Index().SetName("current_location_2dsphere")},
		},
		PackageCollection: {
			{Keys: bson.D{{Key: "featured", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		ReviewsCollection: {
			{Keys: bson.D{{Key: "packageId", Value: 1}}},
		},
		BookingsCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "startDate", Value: 1}}, Options: options.Index().SetName("user_start_date")},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func Disconnect(ctx context.Context) error {
	if Client == nil {
		return nil
	}
	return Client.Disconnect(ctx)
}

// Ping reports whether the primary is reachable.
func Ping(ctx context.Context) error {
	if Client == nil {
		return fmt.Errorf("mongo client not connected")
	}
	return Client.Ping(ctx, readpref.Primary())
}
