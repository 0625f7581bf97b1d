package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleTourist      = "tourist"
	RoleAdmin        = "admin"
	RoleOperator     = "operator"
	RoleGuide        = "guide"
	RoleDriver       = "driver"
	RoleHotelManager = "hotel_manager"
)

var Roles = []string{RoleTourist, RoleAdmin, RoleOperator, RoleGuide, RoleDriver, RoleHotelManager}

type User struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id"`
	Name         string             `json:"name" bson:"name"`
	Email        string             `json:"email" bson:"email"`
	Password     string             `json:"-" bson:"password"`
	Phone        string             `json:"phone" bson:"phone"`
	Address      string             `json:"address" bson:"address"`
	Role         string             `json:"role" bson:"role"`
	ProfileImage string             `json:"profileImage,omitempty" bson:"profileImage,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// UserSummary is the public view of a user embedded in other resources.
type UserSummary struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id"`
	Name         string             `json:"name" bson:"name"`
	Email        string             `json:"email" bson:"email"`
	Phone        string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Role         string             `json:"role" bson:"role"`
	ProfileImage string             `json:"profileImage,omitempty" bson:"profileImage,omitempty"`
}

func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Phone:        u.Phone,
		Role:         u.Role,
		ProfileImage: u.ProfileImage,
	}
}
