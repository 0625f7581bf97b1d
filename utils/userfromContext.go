package utils

import (
	"context"
	"net/http"

	"trailhead/globals"
)

func GetUserIDFromRequest(r *http.Request) string {
	return UserIDFromContext(r.Context())
}

func UserIDFromContext(ctx context.Context) string {
	userID, ok := ctx.Value(globals.UserIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

func IsAdmin(ctx context.Context) bool {
	role, ok := ctx.Value(globals.RoleKey).(string)
	return ok && role == globals.RoleAdmin
}
