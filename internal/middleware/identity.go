package middleware

// identity.go holds the context keys JWTAuth fills and the helpers handlers
// and other middleware use to read them back.

import (
    "math"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
    ContextUserID = "user_id"
    ContextRole   = "role"
)

// Roles understood by the booking API.
const (
    RoleCustomer = "CUSTOMER"
    RoleAdmin    = "ADMIN"
)

// UserID returns the authenticated user id, if any.
func UserID(c echo.Context) (uint64, bool) {
    switch v := c.Get(ContextUserID).(type) {
    case uint64:
        return v, v != 0
    case float64:
        // JSON numbers decode as float64; 1.5 or 1e20 is not a user id.
        if v <= 0 || v != math.Trunc(v) || v >= math.Exp2(64) {
            return 0, false
        }
        return uint64(v), true
    case string:
        id, err := strconv.ParseUint(v, 10, 64)
        return id, err == nil && id != 0
    }
    return 0, false
}

// Role returns the upper-cased role claim or "".
func Role(c echo.Context) string {
    if v, ok := c.Get(ContextRole).(string); ok {
        return strings.ToUpper(strings.TrimSpace(v))
    }
    return ""
}

// IsAdmin reports whether the caller carries the ADMIN role.
func IsAdmin(c echo.Context) bool { return Role(c) == RoleAdmin }

// rateSubject names the caller for rate limiting: the user id when
// authenticated, "anon" otherwise.
func rateSubject(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
