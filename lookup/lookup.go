// Package lookup resolves the documents a booking references.
package lookup

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"trailhead/db"
	"trailhead/models"
)

// Mongo reads references straight from their collections. A missing document is
// reported as (nil, nil).
type Mongo struct {
	packages *db.Repo[models.Package]
	users    *db.Repo[models.User]
	vehicles *db.Repo[models.Vehicle]
	hotels   *db.Repo[models.Hotel]
}

func NewMongo(packages, users, vehicles, hotels *mongo.Collection) *Mongo {
	return &Mongo{
		packages: db.NewRepo[models.Package](packages),
		users:    db.NewRepo[models.User](users),
		vehicles: db.NewRepo[models.Vehicle](vehicles),
		hotels:   db.NewRepo[models.Hotel](hotels),
	}
}

// FromDB wires the lookup to the bound package collections.
func FromDB() *Mongo {
	return NewMongo(db.PackageCollection, db.UserCollection, db.VehicleCollection, db.HotelCollection)
}

func find[T any](ctx context.Context, repo *db.Repo[T], id primitive.ObjectID) (*T, error) {
	doc, err := repo.FindByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	return doc, err
}

func (m *Mongo) PackageByID(ctx context.Context, id primitive.ObjectID) (*models.Package, error) {
	return find(ctx, m.packages, id)
}

func (m *Mongo) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return find(ctx, m.users, id)
}

func (m *Mongo) VehicleByID(ctx context.Context, id primitive.ObjectID) (*models.Vehicle, error) {
	return find(ctx, m.vehicles, id)
}

func (m *Mongo) HotelByID(ctx context.Context, id primitive.ObjectID) (*models.Hotel, error) {
	return find(ctx, m.hotels, id)
}
