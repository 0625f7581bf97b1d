package globals

// Context keys
type ContextKey string

const (
	RoleKey      ContextKey = "role"
	UserIDKey    ContextKey = "userId"
	RequestIDKey ContextKey = "requestId"
)

const RoleAdmin = "admin"

// ExposeErrorStack adds stack traces to error responses. Set from config at startup,
// never in production.
var ExposeErrorStack = false
