package booking

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"trailhead/apperr"
	"trailhead/models"
)

type expandMask uint8

const (
	expandPackage expandMask = 1 << iota
	expandStaff
	expandOwner

	expandFull = expandPackage | expandStaff
)

// resolver memoizes lookups for one expansion pass; bookings of the same user tend to
// share packages and staff.
type resolver struct {
	lookup   Lookup
	packages map[primitive.ObjectID]*models.Package
	users    map[primitive.ObjectID]*models.UserSummary
	vehicles map[primitive.ObjectID]*models.Vehicle
	hotels   map[primitive.ObjectID]*models.Hotel
}

func newResolver(l Lookup) *resolver {
	return &resolver{
		lookup:   l,
		packages: map[primitive.ObjectID]*models.Package{},
		users:    map[primitive.ObjectID]*models.UserSummary{},
		vehicles: map[primitive.ObjectID]*models.Vehicle{},
		hotels:   map[primitive.ObjectID]*models.Hotel{},
	}
}

func (r *resolver) pkg(ctx context.Context, id primitive.ObjectID) (*models.Package, error) {
	if p, ok := r.packages[id]; ok {
		return p, nil
	}
	p, err := r.lookup.PackageByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.packages[id] = p
	return p, nil
}

func (r *resolver) user(ctx context.Context, id *primitive.ObjectID) (*models.UserSummary, error) {
	if id == nil {
		return nil, nil
	}
	if u, ok := r.users[*id]; ok {
		return u, nil
	}
	u, err := r.lookup.UserByID(ctx, *id)
	if err != nil {
		return nil, err
	}
	var s *models.UserSummary
	if u != nil {
		s = u.Summary()
	}
	r.users[*id] = s
	return s, nil
}

func (r *resolver) vehicle(ctx context.Context, id *primitive.ObjectID) (*models.Vehicle, error) {
	if id == nil {
		return nil, nil
	}
	if v, ok := r.vehicles[*id]; ok {
		return v, nil
	}
	v, err := r.lookup.VehicleByID(ctx, *id)
	if err != nil {
		return nil, err
	}
	r.vehicles[*id] = v
	return v, nil
}

func (r *resolver) hotel(ctx context.Context, id *primitive.ObjectID) (*models.Hotel, error) {
	if id == nil {
		return nil, nil
	}
	if h, ok := r.hotels[*id]; ok {
		return h, nil
	}
	h, err := r.lookup.HotelByID(ctx, *id)
	if err != nil {
		return nil, err
	}
	r.hotels[*id] = h
	return h, nil
}

func (m *Manager) expand(ctx context.Context, bookings []models.Booking, mask expandMask) ([]models.BookingDetails, error) {
	res := newResolver(m.lookup)
	out := make([]models.BookingDetails, 0, len(bookings))

	for _, b := range bookings {
		d := models.BookingDetails{Booking: b}
		var err error

		if mask&expandPackage != 0 {
			if d.Package, err = res.pkg(ctx, b.Package); err != nil {
				return nil, apperr.Internal(err, "failed to load package")
			}
		}
		if mask&expandOwner != 0 {
			owner := b.User
			if d.Owner, err = res.user(ctx, &owner); err != nil {
				return nil, apperr.Internal(err, "failed to load user")
			}
		}
		if mask&expandStaff != 0 {
			if d.Guide, err = res.user(ctx, b.Guide); err != nil {
				return nil, apperr.Internal(err, "failed to load guide")
			}
			if d.Driver, err = res.user(ctx, b.Driver); err != nil {
				return nil, apperr.Internal(err, "failed to load driver")
			}
			if d.Vehicle, err = res.vehicle(ctx, b.Vehicle); err != nil {
				return nil, apperr.Internal(err, "failed to load vehicle")
			}
			if d.Hotel, err = res.hotel(ctx, b.Hotel); err != nil {
				return nil, apperr.Internal(err, "failed to load hotel")
			}
		}
		out = append(out, d)
	}
	return out, nil
}
