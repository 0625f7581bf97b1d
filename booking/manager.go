package booking

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"trailhead/apperr"
	"trailhead/db"
	"trailhead/metrics"
	"trailhead/models"
)

// UpcomingLimit caps the upcoming-bookings list.
const UpcomingLimit = 5

// Store persists bookings. Lookups that match nothing return db.ErrNotFound.
type Store interface {
	Insert(ctx context.Context, b *models.Booking) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Booking, error)
	FindUpcoming(ctx context.Context, userID primitive.ObjectID, now time.Time, limit int64) ([]models.Booking, error)
	CountUpcoming(ctx context.Context, userID primitive.ObjectID, now time.Time) (int64, error)
	Totals(ctx context.Context, userID primitive.ObjectID) (models.BookingStats, error)
	SetSpecialRequirements(ctx context.Context, id primitive.ObjectID, text string, now time.Time) (*models.Booking, error)
	// SetStatus writes to only if the stored status is still from.
	SetStatus(ctx context.Context, id primitive.ObjectID, from, to models.BookingStatus, now time.Time) (*models.Booking, error)
	// DeleteIfStatus removes the booking only if its stored status is still status.
	DeleteIfStatus(ctx context.Context, id primitive.ObjectID, status models.BookingStatus) error
	List(ctx context.Context, f ListFilter) ([]models.Booking, int64, error)
}

// Lookup resolves the documents a booking references. A missing document is (nil, nil).
type Lookup interface {
	PackageByID(ctx context.Context, id primitive.ObjectID) (*models.Package, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	VehicleByID(ctx context.Context, id primitive.ObjectID) (*models.Vehicle, error)
	HotelByID(ctx context.Context, id primitive.ObjectID) (*models.Hotel, error)
}

// Emitter receives lifecycle events after a write has been stored.
type Emitter interface {
	Emit(ctx context.Context, ev models.BookingEvent)
}

type ListFilter struct {
	Status models.BookingStatus
	UserID *primitive.ObjectID
	Skip   int64
	Limit  int64
}

type CreateInput struct {
	PackageID           primitive.ObjectID
	StartDate           time.Time
	NumberOfPeople      int
	SpecialRequirements string
}

// UpdateInput carries the owner-editable fields. nil means unchanged.
type UpdateInput struct {
	SpecialRequirements *string
}

type Manager struct {
	store  Store
	lookup Lookup
	events Emitter
	log    *logrus.Logger
	now    func() time.Time
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithEmitter(e Emitter) Option {
	return func(m *Manager) { m.events = e }
}

func NewManager(store Store, lookup Lookup, log *logrus.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		lookup: lookup,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create prices and schedules a new pending booking for userID.
func (m *Manager) Create(ctx context.Context, userID primitive.ObjectID, in CreateInput) (*models.Booking, error) {
	if in.NumberOfPeople < 1 {
		return nil, apperr.Validation("numberOfPeople must be at least 1")
	}
	if in.StartDate.IsZero() {
		return nil, apperr.Validation("startDate is required")
	}

	pkg, err := m.lookup.PackageByID(ctx, in.PackageID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load package")
	}
	if pkg == nil {
		return nil, apperr.NotFound("Package")
	}
	if pkg.MaxGroupSize > 0 && in.NumberOfPeople > pkg.MaxGroupSize {
		return nil, apperr.Validation("numberOfPeople exceeds the maximum group size of %d", pkg.MaxGroupSize)
	}

	now := m.now().UTC()
	b := &models.Booking{
		ID:                  primitive.NewObjectID(),
		User:                userID,
		Package:             pkg.ID,
		StartDate:           in.StartDate,
		EndDate:             in.StartDate.AddDate(0, 0, pkg.Duration),
		NumberOfPeople:      in.NumberOfPeople,
		TotalPrice:          pkg.Price * float64(in.NumberOfPeople),
		Status:              models.StatusPending,
		PaymentStatus:       models.PaymentPending,
		SpecialRequirements: in.SpecialRequirements,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := m.store.Insert(ctx, b); err != nil {
		return nil, apperr.Internal(err, "failed to create booking")
	}

	metrics.BookingsCreated.Inc()
	m.log.WithFields(logrus.Fields{
		"bookingId": b.ID.Hex(),
		"userId":    userID.Hex(),
		"packageId": pkg.ID.Hex(),
	}).Info("booking created")
	m.emit(ctx, models.EventBookingCreated, b)
	return b, nil
}

// List returns every booking of userID with all references expanded.
func (m *Manager) List(ctx context.Context, userID primitive.ObjectID) ([]models.BookingDetails, error) {
	bookings, err := m.store.FindByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load bookings")
	}
	return m.expand(ctx, bookings, expandFull)
}

// ListUpcoming returns at most UpcomingLimit future pending or confirmed bookings,
// soonest first, with only the package expanded.
func (m *Manager) ListUpcoming(ctx context.Context, userID primitive.ObjectID) ([]models.BookingDetails, error) {
	bookings, err := m.store.FindUpcoming(ctx, userID, m.now(), UpcomingLimit)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load upcoming bookings")
	}
	return m.expand(ctx, bookings, expandPackage)
}

func (m *Manager) Stats(ctx context.Context, userID primitive.ObjectID) (*models.BookingStatsResponse, error) {
	totals, err := m.store.Totals(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to compute booking stats")
	}
	upcoming, err := m.store.CountUpcoming(ctx, userID, m.now())
	if err != nil {
		return nil, apperr.Internal(err, "failed to count upcoming bookings")
	}
	return &models.BookingStatsResponse{Stats: totals, UpcomingBookings: upcoming}, nil
}

// Get returns one booking owned by userID, fully expanded.
func (m *Manager) Get(ctx context.Context, userID, bookingID primitive.ObjectID) (*models.BookingDetails, error) {
	b, err := m.owned(ctx, userID, bookingID, "view")
	if err != nil {
		return nil, err
	}
	out, err := m.expand(ctx, []models.Booking{*b}, expandFull)
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// Update applies owner edits. Status, dates, price and party size are not editable here.
func (m *Manager) Update(ctx context.Context, userID, bookingID primitive.ObjectID, in UpdateInput) (*models.Booking, error) {
	b, err := m.owned(ctx, userID, bookingID, "update")
	if err != nil {
		return nil, err
	}
	if in.SpecialRequirements == nil {
		return b, nil
	}

	updated, err := m.store.SetSpecialRequirements(ctx, b.ID, *in.SpecialRequirements, m.now().UTC())
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("Booking")
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to update booking")
	}
	m.emit(ctx, models.EventBookingUpdated, updated)
	return updated, nil
}

// Cancel withdraws a pending booking. The record is removed once the transition is
// accepted, so later reads report it as not found.
func (m *Manager) Cancel(ctx context.Context, userID, bookingID primitive.ObjectID) error {
	b, err := m.owned(ctx, userID, bookingID, "cancel")
	if err != nil {
		return err
	}
	if b.Status == models.StatusConfirmed || b.Status == models.StatusCompleted {
		metrics.BookingConflicts.Inc()
		return apperr.Conflict("Cannot cancel a confirmed or completed booking")
	}
	if _, err := Transition(b.Status, models.StatusCancelled); err != nil {
		metrics.BookingConflicts.Inc()
		return err
	}

	err = m.store.DeleteIfStatus(ctx, b.ID, b.Status)
	if errors.Is(err, db.ErrNotFound) {
		// Status moved between the read and the delete.
		metrics.BookingConflicts.Inc()
		return apperr.Conflict("booking status changed, please retry")
	}
	if err != nil {
		return apperr.Internal(err, "failed to cancel booking")
	}

	metrics.BookingTransitions.WithLabelValues(string(models.StatusCancelled)).Inc()
	m.log.WithFields(logrus.Fields{"bookingId": b.ID.Hex(), "userId": userID.Hex()}).Info("booking cancelled")
	b.Status = models.StatusCancelled
	m.emit(ctx, models.EventBookingCancelled, b)
	return nil
}

// SetStatus is the privileged status change. The write is conditional on the status
// that was validated, so concurrent changes lose with a conflict instead of overwriting.
func (m *Manager) SetStatus(ctx context.Context, bookingID primitive.ObjectID, requested string) (*models.Booking, error) {
	to, err := ParseStatus(requested)
	if err != nil {
		return nil, err
	}
	b, err := m.store.FindByID(ctx, bookingID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("Booking")
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load booking")
	}
	if _, err := Transition(b.Status, to); err != nil {
		metrics.BookingConflicts.Inc()
		return nil, err
	}

	updated, err := m.store.SetStatus(ctx, b.ID, b.Status, to, m.now().UTC())
	if errors.Is(err, db.ErrNotFound) {
		metrics.BookingConflicts.Inc()
		return nil, apperr.Conflict("booking status changed, please retry")
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to update booking status")
	}

	metrics.BookingTransitions.WithLabelValues(string(to)).Inc()
	m.log.WithFields(logrus.Fields{
		"bookingId": b.ID.Hex(),
		"from":      b.Status,
		"to":        to,
	}).Info("booking status changed")
	m.emit(ctx, models.EventBookingStatusChanged, updated)
	return updated, nil
}

// AdminList pages through all bookings, newest first, with owner and package expanded.
func (m *Manager) AdminList(ctx context.Context, f ListFilter) ([]models.BookingDetails, int64, error) {
	if f.Status != "" && !knownStatuses[f.Status] {
		return nil, 0, apperr.Validation("invalid booking status %q", f.Status)
	}
	bookings, total, err := m.store.List(ctx, f)
	if err != nil {
		return nil, 0, apperr.Internal(err, "failed to load bookings")
	}
	out, err := m.expand(ctx, bookings, expandPackage|expandOwner)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// owned loads a booking and checks that userID owns it. Malformed and missing ids both
// surface as not found.
func (m *Manager) owned(ctx context.Context, userID, bookingID primitive.ObjectID, action string) (*models.Booking, error) {
	b, err := m.store.FindByID(ctx, bookingID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("Booking")
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load booking")
	}
	if b.User != userID {
		return nil, apperr.Forbidden("Not authorized to %s this booking", action)
	}
	return b, nil
}

func (m *Manager) emit(ctx context.Context, typ string, b *models.Booking) {
	if m.events == nil {
		return
	}
	m.events.Emit(ctx, models.BookingEvent{
		Type:      typ,
		BookingID: b.ID.Hex(),
		UserID:    b.User.Hex(),
		Status:    b.Status,
		At:        m.now().UTC(),
	})
}
