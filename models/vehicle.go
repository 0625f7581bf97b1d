package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MaintenanceRecord struct {
	Date        time.Time `json:"date" bson:"date"`
	Description string    `json:"description" bson:"description"`
	Cost        float64   `json:"cost" bson:"cost"`
}

// GeoPoint is a GeoJSON point; coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

type Vehicle struct {
	ID                 primitive.ObjectID  `json:"_id" bson:"_id"`
	Type               string              `json:"type" bson:"type"`
	Model              string              `json:"model" bson:"model"`
	Capacity           int                 `json:"capacity" bson:"capacity"`
	LicensePlate       string              `json:"licensePlate" bson:"licensePlate"`
	Features           []string            `json:"features,omitempty" bson:"features,omitempty"`
	Images             []string            `json:"images,omitempty" bson:"images,omitempty"`
	Available          bool                `json:"available" bson:"available"`
	Driver             *primitive.ObjectID `json:"driver,omitempty" bson:"driver,omitempty"`
	MaintenanceHistory []MaintenanceRecord `json:"maintenanceHistory,omitempty" bson:"maintenanceHistory,omitempty"`
	CurrentLocation    *GeoPoint           `json:"currentLocation,omitempty" bson:"currentLocation,omitempty"`
	CreatedAt          time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt" bson:"updatedAt"`
}
