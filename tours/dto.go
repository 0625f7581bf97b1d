package tours

import (
	"time"

	"trailhead/models"
)

type CreatePackageRequest struct {
	Title        string            `json:"title" validate:"required,max=200"`
	Description  string            `json:"description" validate:"required"`
	Duration     int               `json:"duration" validate:"required,gte=1"`
	Price        *float64          `json:"price" validate:"required,gte=0"`
	Locations    []models.Location `json:"locations"`
	Includes     []string          `json:"includes"`
	Excludes     []string          `json:"excludes"`
	Images       []string          `json:"images"`
	MaxGroupSize int               `json:"maxGroupSize" validate:"gte=0"`
	Difficulty   string            `json:"difficulty" validate:"omitempty,oneof=easy moderate challenging"`
	StartDates   []time.Time       `json:"startDates"`
	Featured     bool              `json:"featured"`
}

func (r CreatePackageRequest) toPackage(now time.Time) models.Package {
	return models.Package{
		Title:        r.Title,
		Description:  r.Description,
		Duration:     r.Duration,
		Price:        *r.Price,
		Locations:    r.Locations,
		Includes:     r.Includes,
		Excludes:     r.Excludes,
		Images:       r.Images,
		MaxGroupSize: r.MaxGroupSize,
		Difficulty:   r.Difficulty,
		StartDates:   r.StartDates,
		Featured:     r.Featured,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// UpdatePackageRequest is a partial update; nil fields are left alone.
type UpdatePackageRequest struct {
	Title        *string            `json:"title" bson:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description  *string            `json:"description" bson:"description,omitempty" validate:"omitempty,min=1"`
	Duration     *int               `json:"duration" bson:"duration,omitempty" validate:"omitempty,gte=1"`
	Price        *float64           `json:"price" bson:"price,omitempty" validate:"omitempty,gte=0"`
	Locations    *[]models.Location `json:"locations" bson:"locations,omitempty"`
	Includes     *[]string          `json:"includes" bson:"includes,omitempty"`
	Excludes     *[]string          `json:"excludes" bson:"excludes,omitempty"`
	Images       *[]string          `json:"images" bson:"images,omitempty"`
	MaxGroupSize *int               `json:"maxGroupSize" bson:"maxGroupSize,omitempty" validate:"omitempty,gte=0"`
	Difficulty   *string            `json:"difficulty" bson:"difficulty,omitempty" validate:"omitempty,oneof=easy moderate challenging"`
	StartDates   *[]time.Time       `json:"startDates" bson:"startDates,omitempty"`
	Featured     *bool              `json:"featured" bson:"featured,omitempty"`
}
