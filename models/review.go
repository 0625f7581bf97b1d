package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Review struct {
	ID        primitive.ObjectID  `json:"_id" bson:"_id"`
	User      primitive.ObjectID  `json:"user" bson:"user"`
	Rating    int                 `json:"rating" bson:"rating"`
	Title     string              `json:"title,omitempty" bson:"title,omitempty"`
	Comment   string              `json:"comment" bson:"comment"`
	Images    []string            `json:"images,omitempty" bson:"images,omitempty"`
	PackageID *primitive.ObjectID `json:"packageId,omitempty" bson:"packageId,omitempty"`
	HotelID   *primitive.ObjectID `json:"hotelId,omitempty" bson:"hotelId,omitempty"`
	GuideID   *primitive.ObjectID `json:"guideId,omitempty" bson:"guideId,omitempty"`
	DriverID  *primitive.ObjectID `json:"driverId,omitempty" bson:"driverId,omitempty"`
	CreatedAt time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt" bson:"updatedAt"`
}
