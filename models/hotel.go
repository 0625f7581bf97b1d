package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Room struct {
	Type      string   `json:"type" bson:"type"`
	Price     float64  `json:"price" bson:"price"`
	Capacity  int      `json:"capacity,omitempty" bson:"capacity,omitempty"`
	Amenities []string `json:"amenities,omitempty" bson:"amenities,omitempty"`
	Images    []string `json:"images,omitempty" bson:"images,omitempty"`
	Available bool     `json:"available" bson:"available"`
}

type HotelLocation struct {
	Address     string       `json:"address" bson:"address"`
	City        string       `json:"city" bson:"city"`
	Coordinates *Coordinates `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
}

type HotelPolicies struct {
	CheckIn      string `json:"checkIn,omitempty" bson:"checkIn,omitempty"`
	CheckOut     string `json:"checkOut,omitempty" bson:"checkOut,omitempty"`
	Cancellation string `json:"cancellation,omitempty" bson:"cancellation,omitempty"`
}

type Hotel struct {
	ID          primitive.ObjectID   `json:"_id" bson:"_id"`
	Name        string               `json:"name" bson:"name"`
	Location    HotelLocation        `json:"location" bson:"location"`
	Description string               `json:"description,omitempty" bson:"description,omitempty"`
	Images      []string             `json:"images,omitempty" bson:"images,omitempty"`
	Rating      float64              `json:"rating" bson:"rating"`
	Rooms       []Room               `json:"rooms,omitempty" bson:"rooms,omitempty"`
	Amenities   []string             `json:"amenities,omitempty" bson:"amenities,omitempty"`
	Policies    *HotelPolicies       `json:"policies,omitempty" bson:"policies,omitempty"`
	Manager     *primitive.ObjectID  `json:"manager,omitempty" bson:"manager,omitempty"`
	Reviews     []primitive.ObjectID `json:"reviews,omitempty" bson:"reviews,omitempty"`
	CreatedAt   time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt" bson:"updatedAt"`
}
