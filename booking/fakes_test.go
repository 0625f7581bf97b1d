package booking

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"trailhead/db"
	"trailhead/models"
)

type memStore struct {
	mu       sync.Mutex
	bookings map[primitive.ObjectID]models.Booking
	// beforeWrite runs inside conditional writes, after the caller's read.
	beforeWrite func(s *memStore)
}

func newMemStore() *memStore {
	return &memStore{bookings: map[primitive.ObjectID]models.Booking{}}
}

func (s *memStore) put(b models.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = b
}

func (s *memStore) Insert(_ context.Context, b *models.Booking) error {
	s.put(*b)
	return nil
}

func (s *memStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &b, nil
}

func (s *memStore) filter(keep func(models.Booking) bool) []models.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Booking{}
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}

func (s *memStore) FindByUser(_ context.Context, userID primitive.ObjectID) ([]models.Booking, error) {
	out := s.filter(func(b models.Booking) bool { return b.User == userID })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func isUpcoming(b models.Booking, userID primitive.ObjectID, now time.Time) bool {
	return b.User == userID && !b.StartDate.Before(now) &&
		(b.Status == models.StatusPending || b.Status == models.StatusConfirmed)
}

func (s *memStore) FindUpcoming(_ context.Context, userID primitive.ObjectID, now time.Time, limit int64) ([]models.Booking, error) {
	out := s.filter(func(b models.Booking) bool { return isUpcoming(b, userID, now) })
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) CountUpcoming(_ context.Context, userID primitive.ObjectID, now time.Time) (int64, error) {
	return int64(len(s.filter(func(b models.Booking) bool { return isUpcoming(b, userID, now) }))), nil
}

func (s *memStore) Totals(_ context.Context, userID primitive.ObjectID) (models.BookingStats, error) {
	var st models.BookingStats
	var people int
	for _, b := range s.filter(func(b models.Booking) bool { return b.User == userID }) {
		st.TotalBookings++
		st.TotalSpent += b.TotalPrice
		people += b.NumberOfPeople
	}
	if st.TotalBookings > 0 {
		st.AverageGroupSize = float64(people) / float64(st.TotalBookings)
	}
	return st, nil
}

func (s *memStore) SetSpecialRequirements(_ context.Context, id primitive.ObjectID, text string, now time.Time) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	b.SpecialRequirements = text
	b.UpdatedAt = now
	s.bookings[id] = b
	return &b, nil
}

func (s *memStore) SetStatus(_ context.Context, id primitive.ObjectID, from, to models.BookingStatus, now time.Time) (*models.Booking, error) {
	if s.beforeWrite != nil {
		s.beforeWrite(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.Status != from {
		return nil, db.ErrNotFound
	}
	b.Status = to
	b.UpdatedAt = now
	s.bookings[id] = b
	return &b, nil
}

func (s *memStore) DeleteIfStatus(_ context.Context, id primitive.ObjectID, status models.BookingStatus) error {
	if s.beforeWrite != nil {
		s.beforeWrite(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.Status != status {
		return db.ErrNotFound
	}
	delete(s.bookings, id)
	return nil
}

func (s *memStore) List(_ context.Context, f ListFilter) ([]models.Booking, int64, error) {
	out := s.filter(func(b models.Booking) bool {
		if f.Status != "" && b.Status != f.Status {
			return false
		}
		return f.UserID == nil || b.User == *f.UserID
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	if f.Skip >= total {
		return []models.Booking{}, total, nil
	}
	out = out[f.Skip:]
	if f.Limit > 0 && int64(len(out)) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

type memLookup struct {
	packages map[primitive.ObjectID]*models.Package
	users    map[primitive.ObjectID]*models.User
	vehicles map[primitive.ObjectID]*models.Vehicle
	hotels   map[primitive.ObjectID]*models.Hotel
	calls    int
}

func newMemLookup() *memLookup {
	return &memLookup{
		packages: map[primitive.ObjectID]*models.Package{},
		users:    map[primitive.ObjectID]*models.User{},
		vehicles: map[primitive.ObjectID]*models.Vehicle{},
		hotels:   map[primitive.ObjectID]*models.Hotel{},
	}
}

func (l *memLookup) PackageByID(_ context.Context, id primitive.ObjectID) (*models.Package, error) {
	l.calls++
	return l.packages[id], nil
}

func (l *memLookup) UserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	l.calls++
	return l.users[id], nil
}

func (l *memLookup) VehicleByID(_ context.Context, id primitive.ObjectID) (*models.Vehicle, error) {
	l.calls++
	return l.vehicles[id], nil
}

func (l *memLookup) HotelByID(_ context.Context, id primitive.ObjectID) (*models.Hotel, error) {
	l.calls++
	return l.hotels[id], nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []models.BookingEvent
}

func (e *recordingEmitter) Emit(_ context.Context, ev models.BookingEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *recordingEmitter) types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.Type)
	}
	return out
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store  *memStore
	lookup *memLookup
	events *recordingEmitter
	mgr    *Manager
	pkg    *models.Package
}

func newFixture() *fixture {
	f := &fixture{
		store:  newMemStore(),
		lookup: newMemLookup(),
		events: &recordingEmitter{},
	}
	f.pkg = &models.Package{
		ID:           primitive.NewObjectID(),
		Title:        "Kandy Highlands",
		Duration:     3,
		Price:        100,
		MaxGroupSize: 10,
	}
	f.lookup.packages[f.pkg.ID] = f.pkg
	f.mgr = NewManager(f.store, f.lookup, quietLogger(),
		WithClock(func() time.Time { return fixedNow }),
		WithEmitter(f.events),
	)
	return f
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
