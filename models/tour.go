package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

type Location struct {
	Name        string      `json:"name" bson:"name"`
	Coordinates Coordinates `json:"coordinates" bson:"coordinates"`
}

// Package is a sellable tour product: fixed duration (days) and per-person price.
type Package struct {
	ID           primitive.ObjectID   `json:"_id" bson:"_id"`
	Title        string               `json:"title" bson:"title"`
	Description  string               `json:"description" bson:"description"`
	Duration     int                  `json:"duration" bson:"duration"`
	Price        float64              `json:"price" bson:"price"`
	Locations    []Location           `json:"locations,omitempty" bson:"locations,omitempty"`
	Includes     []string             `json:"includes,omitempty" bson:"includes,omitempty"`
	Excludes     []string             `json:"excludes,omitempty" bson:"excludes,omitempty"`
	Images       []string             `json:"images,omitempty" bson:"images,omitempty"`
	MaxGroupSize int                  `json:"maxGroupSize,omitempty" bson:"maxGroupSize,omitempty"`
	Difficulty   string               `json:"difficulty,omitempty" bson:"difficulty,omitempty"`
	StartDates   []time.Time          `json:"startDates,omitempty" bson:"startDates,omitempty"`
	Reviews      []primitive.ObjectID `json:"reviews,omitempty" bson:"reviews,omitempty"`
	Rating       float64              `json:"rating" bson:"rating"`
	NumReviews   int                  `json:"numReviews" bson:"numReviews"`
	Featured     bool                 `json:"featured" bson:"featured"`
	CreatedAt    time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt" bson:"updatedAt"`
}
