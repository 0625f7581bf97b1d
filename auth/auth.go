package auth

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"trailhead/db"
	"trailhead/middleware"
	"trailhead/models"
	"trailhead/validation"
)

// HashCost is the bcrypt cost for new password hashes.
var HashCost = bcrypt.DefaultCost

// StatsSource supplies the booking figures shown on a user's dashboard.
type StatsSource interface {
	Stats(ctx context.Context, userID primitive.ObjectID) (*models.BookingStatsResponse, error)
}

type Handler struct {
	users    *db.Repo[models.User]
	tokens   *middleware.Auth
	stats    StatsSource
	validate *validation.Validator
	log      *logrus.Logger
}

func NewHandler(users *mongo.Collection, tokens *middleware.Auth, stats StatsSource, v *validation.Validator, log *logrus.Logger) *Handler {
	return &Handler{
		users:    db.NewRepo[models.User](users),
		tokens:   tokens,
		stats:    stats,
		validate: v,
		log:      log,
	}
}

// AuthResponse is returned by register and both login endpoints.
type AuthResponse struct {
	ID    primitive.ObjectID `json:"_id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
	Phone string             `json:"phone,omitempty"`
	Role  string             `json:"role"`
	Token string             `json:"token"`
}

func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), HashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// NormalizeEmail lower-cases and trims an address so lookups match the unique index.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (h *Handler) respond(u *models.User) (*AuthResponse, error) {
	token, err := h.tokens.IssueToken(u.ID.Hex(), u.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Phone: u.Phone,
		Role:  u.Role,
		Token: token,
	}, nil
}
