package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

type Booking struct {
	ID                  primitive.ObjectID  `json:"_id" bson:"_id"`
	User                primitive.ObjectID  `json:"user" bson:"user"`
	Package             primitive.ObjectID  `json:"package" bson:"package"`
	StartDate           time.Time           `json:"startDate" bson:"startDate"`
	EndDate             time.Time           `json:"endDate" bson:"endDate"`
	NumberOfPeople      int                 `json:"numberOfPeople" bson:"numberOfPeople"`
	TotalPrice          float64             `json:"totalPrice" bson:"totalPrice"`
	Status              BookingStatus       `json:"status" bson:"status"`
	PaymentStatus       PaymentStatus       `json:"paymentStatus" bson:"paymentStatus"`
	SpecialRequirements string              `json:"specialRequirements,omitempty" bson:"specialRequirements,omitempty"`
	Guide               *primitive.ObjectID `json:"guide,omitempty" bson:"guide,omitempty"`
	Driver              *primitive.ObjectID `json:"driver,omitempty" bson:"driver,omitempty"`
	Vehicle             *primitive.ObjectID `json:"vehicle,omitempty" bson:"vehicle,omitempty"`
	Hotel               *primitive.ObjectID `json:"hotel,omitempty" bson:"hotel,omitempty"`
	CreatedAt           time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// BookingDetails is a booking with its references expanded. Unresolvable references
// are left nil.
type BookingDetails struct {
	Booking
	Owner   *UserSummary `json:"owner,omitempty"`
	Package *Package     `json:"package"`
	Guide   *UserSummary `json:"guide,omitempty"`
	Driver  *UserSummary `json:"driver,omitempty"`
	Vehicle *Vehicle     `json:"vehicle,omitempty"`
	Hotel   *Hotel       `json:"hotel,omitempty"`
}

type BookingStats struct {
	TotalBookings    int64   `json:"totalBookings" bson:"totalBookings"`
	TotalSpent       float64 `json:"totalSpent" bson:"totalSpent"`
	AverageGroupSize float64 `json:"averageGroupSize" bson:"averageGroupSize"`
}

type BookingStatsResponse struct {
	Stats            BookingStats `json:"stats"`
	UpcomingBookings int64        `json:"upcomingBookings"`
}

// Booking lifecycle event types.
const (
	EventBookingCreated       = "booking.created"
	EventBookingUpdated       = "booking.updated"
	EventBookingCancelled     = "booking.cancelled"
	EventBookingStatusChanged = "booking.status_changed"
)

// BookingEvent is published on every booking write and fanned out to the owner's
// websocket connections.
type BookingEvent struct {
	Type      string        `json:"type"`
	BookingID string        `json:"bookingId"`
	UserID    string        `json:"userId"`
	Status    BookingStatus `json:"status"`
	At        time.Time     `json:"at"`
}
