// Package voucher issues printable booking vouchers with a signed QR code.
package voucher

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"trailhead/apperr"
	"trailhead/db"
	"trailhead/models"
	"trailhead/utils"
	"trailhead/validation"
)

// BookingGetter loads a booking for its owner; booking.Manager satisfies it.
type BookingGetter interface {
	Get(ctx context.Context, userID, bookingID primitive.ObjectID) (*models.BookingDetails, error)
}

type Handler struct {
	bookings BookingGetter
	signer   *Signer
	validate *validation.Validator
	now      func() time.Time
	log      *logrus.Logger
}

func NewHandler(bookings BookingGetter, signer *Signer, v *validation.Validator, log *logrus.Logger) *Handler {
	return &Handler{bookings: bookings, signer: signer, validate: v, now: time.Now, log: log}
}

func issuable(s models.BookingStatus) bool {
	return s == models.StatusConfirmed || s == models.StatusCompleted
}

// GetVoucher handles GET /api/bookings/:id/voucher.
func (h *Handler) GetVoucher(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := db.ParseID(utils.GetUserIDFromRequest(r))
	if !ok {
		utils.RespondWithAppError(w, apperr.Unauthorized("Not authorized, no token"))
		return
	}
	bookingID, ok := db.ParseID(ps.ByName("id"))
	if !ok {
		utils.RespondWithAppError(w, apperr.NotFound("Booking"))
		return
	}

	b, err := h.bookings.Get(r.Context(), userID, bookingID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if !issuable(b.Status) {
		utils.RespondWithAppError(w, apperr.Conflict("Voucher is available once the booking is confirmed"))
		return
	}

	payload := h.signer.Payload(Claims{BookingID: b.ID.Hex(), UserID: b.User.Hex(), StartDate: b.StartDate})
	doc, err := Render(b, payload, h.now())
	if err != nil {
		utils.RespondWithAppError(w, apperr.Internal(err, "failed to generate voucher"))
		return
	}

	h.log.WithField("bookingId", b.ID.Hex()).Info("voucher issued")
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=voucher-"+b.ID.Hex()+".pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

type VerifyRequest struct {
	Code string `json:"code" validate:"required"`
}

// VerifyVoucher handles POST /api/admin/vouchers/verify for staff scanning a QR code.
func (h *Handler) VerifyVoucher(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req VerifyRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	claims, err := h.signer.Verify(req.Code)
	if err != nil {
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"valid": false, "reason": err.Error()})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"valid": true, "voucher": claims})
}
