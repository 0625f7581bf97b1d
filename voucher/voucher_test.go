package voucher

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"trailhead/apperr"
	"trailhead/globals"
	"trailhead/models"
	"trailhead/validation"
)

type fakeBookings struct {
	b *models.BookingDetails
}

func (f fakeBookings) Get(_ context.Context, userID, bookingID primitive.ObjectID) (*models.BookingDetails, error) {
	if f.b == nil || f.b.ID != bookingID {
		return nil, apperr.NotFound("Booking")
	}
	if f.b.User != userID {
		return nil, apperr.Forbidden("Not authorized to view this booking")
	}
	return f.b, nil
}

func details(status models.BookingStatus) *models.BookingDetails {
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	return &models.BookingDetails{
		Booking: models.Booking{
			ID:             primitive.NewObjectID(),
			User:           primitive.NewObjectID(),
			StartDate:      start,
			EndDate:        start.AddDate(0, 0, 3),
			NumberOfPeople: 2,
			TotalPrice:     300,
			Status:         status,
		},
		Package: &models.Package{Title: "Ella Rock Trek"},
		Guide:   &models.UserSummary{Name: "Dilshan"},
	}
}

func TestSigner(t *testing.T) {
	s := NewSigner("secret")
	c := Claims{BookingID: "b1", UserID: "u1", StartDate: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)}

	payload := s.Payload(c)
	assert.True(t, strings.HasPrefix(payload, "b1|u1|2025-07-01|"))

	got, err := s.Verify(payload)
	require.NoError(t, err)
	assert.Equal(t, c, *got)

	_, err = s.Verify(strings.Replace(payload, "u1", "u2", 1))
	assert.ErrorIs(t, err, ErrSignature)

	_, err = NewSigner("other").Verify(payload)
	assert.ErrorIs(t, err, ErrSignature)

	_, err = s.Verify("b1|u1")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestRender(t *testing.T) {
	b := details(models.StatusConfirmed)
	b.SpecialRequirements = "Vegetarian meals, café stop"
	doc, err := Render(b, "payload", time.Now())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
}

func serve(h *Handler, b *models.BookingDetails, user string, path string) *httptest.ResponseRecorder {
	router := httprouter.New()
	router.GET("/api/bookings/:id/voucher", func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if user != "" {
			r = r.WithContext(context.WithValue(r.Context(), globals.UserIDKey, user))
		}
		h.GetVoucher(w, r, ps)
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func newHandler(b *models.BookingDetails) *Handler {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewHandler(fakeBookings{b: b}, NewSigner("secret"), validation.New(), log)
}

func TestGetVoucher(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		b := details(models.StatusConfirmed)
		w := serve(newHandler(b), b, b.User.Hex(), "/api/bookings/"+b.ID.Hex()+"/voucher")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
	})

	t.Run("pending is a conflict", func(t *testing.T) {
		b := details(models.StatusPending)
		w := serve(newHandler(b), b, b.User.Hex(), "/api/bookings/"+b.ID.Hex()+"/voucher")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("not the owner", func(t *testing.T) {
		b := details(models.StatusConfirmed)
		w := serve(newHandler(b), b, primitive.NewObjectID().Hex(), "/api/bookings/"+b.ID.Hex()+"/voucher")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		b := details(models.StatusConfirmed)
		w := serve(newHandler(b), b, "", "/api/bookings/"+b.ID.Hex()+"/voucher")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		b := details(models.StatusConfirmed)
		w := serve(newHandler(b), b, b.User.Hex(), "/api/bookings/nope/voucher")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestVerifyVoucher(t *testing.T) {
	h := newHandler(nil)
	code := h.signer.Payload(Claims{BookingID: "b1", UserID: "u1", StartDate: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)})

	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.VerifyVoucher(w, httptest.NewRequest(http.MethodPost, "/api/admin/vouchers/verify", strings.NewReader(body)), nil)
		return w
	}

	w := post(`{"code":"` + code + `"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"valid":true`)
	assert.Contains(t, w.Body.String(), `"bookingId":"b1"`)

	w = post(`{"code":"b1|u1|2025-07-01|forged"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"valid":false`)

	assert.Equal(t, http.StatusBadRequest, post(`{}`).Code)
}
