package booking

import (
	"time"

	"trailhead/apperr"
	"trailhead/db"
)

type CreateBookingRequest struct {
	PackageID           string `json:"packageId" validate:"required,mongodb"`
	StartDate           string `json:"startDate" validate:"required"`
	NumberOfPeople      int    `json:"numberOfPeople" validate:"required,gte=1"`
	SpecialRequirements string `json:"specialRequirements" validate:"max=2000"`
}

type UpdateBookingRequest struct {
	SpecialRequirements *string `json:"specialRequirements" validate:"omitempty,max=2000"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

var dateLayouts = []string{"2006-01-02", time.RFC3339}

// ParseDate accepts a calendar date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperr.Validation("startDate must be a valid date")
}

func (r CreateBookingRequest) toInput() (CreateInput, error) {
	pkgID, ok := db.ParseID(r.PackageID)
	if !ok {
		return CreateInput{}, apperr.Validation("invalid packageId")
	}
	start, err := ParseDate(r.StartDate)
	if err != nil {
		return CreateInput{}, err
	}
	return CreateInput{
		PackageID:           pkgID,
		StartDate:           start,
		NumberOfPeople:      r.NumberOfPeople,
		SpecialRequirements: r.SpecialRequirements,
	}, nil
}
