package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"
)

type addressKey string

const callerAddressKey addressKey = "caller_address"

var hexAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// AuthBearerAddress extracts the caller's wallet address from the
// Authorization header. The address is asserted as a bearer credential;
// signature verification belongs to the wallet login layer in front of this
// service, not here.
func AuthBearerAddress(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "not authenticated", http.StatusUnauthorized)
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			http.Error(w, "not authenticated", http.StatusUnauthorized)
			return
		}
		address := strings.TrimSpace(parts[1])
		if !hexAddressPattern.MatchString(address) {
			http.Error(w, "not authenticated", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), callerAddressKey, address)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CallerAddress returns the authenticated wallet address, or "" when the
// request did not pass through AuthBearerAddress.
func CallerAddress(ctx context.Context) string {
	if v, ok := ctx.Value(callerAddressKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithCallerAddress injects an address directly, for tests.
func ContextWithCallerAddress(ctx context.Context, address string) context.Context {
	if strings.TrimSpace(address) == "" {
		return ctx
	}
	return context.WithValue(ctx, callerAddressKey, address)
}
