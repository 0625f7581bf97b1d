package voucher

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	ErrMalformed = errors.New("invalid voucher format")
	ErrSignature = errors.New("invalid voucher signature")
)

// Claims are the fields carried in a voucher QR code.
type Claims struct {
	BookingID string    `json:"bookingId"`
	UserID    string    `json:"userId"`
	StartDate time.Time `json:"startDate"`
}

// Signer produces and checks bookingId|userId|startDate|signature payloads.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) sign(data string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func (s *Signer) Payload(c Claims) string {
	data := fmt.Sprintf("%s|%s|%s", c.BookingID, c.UserID, c.StartDate.UTC().Format(dateLayout))
	return data + "|" + s.sign(data)
}

// Verify checks the signature and returns the decoded claims.
func (s *Signer) Verify(payload string) (*Claims, error) {
	parts := strings.Split(payload, "|")
	if len(parts) != 4 {
		return nil, ErrMalformed
	}
	data := strings.Join(parts[:3], "|")
	if !hmac.Equal([]byte(parts[3]), []byte(s.sign(data))) {
		return nil, ErrSignature
	}
	start, err := time.Parse(dateLayout, parts[2])
	if err != nil {
		return nil, ErrMalformed
	}
	return &Claims{BookingID: parts[0], UserID: parts[1], StartDate: start}, nil
}
