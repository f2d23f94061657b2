package backend

import (
	"net/http"
	"time"

	"shopdesk/ledger-csv/internal/logging"
)

// Middleware wraps a RoundTripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Chain wraps base with the given middlewares. The first middleware is the
// outermost: it sees the request first and the response last.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}
	return rt
}

// Credentials supplies the session token and device uuid sent with every call.
type Credentials interface {
	Credentials() (token, deviceID string)
}

// StaticCredentials is a fixed token/uuid pair.
type StaticCredentials struct {
	Token string
	UUID  string
}

// Credentials implements Credentials.
func (s StaticCredentials) Credentials() (string, string) {
	return s.Token, s.UUID
}

// SessionPolicy decides what happens when the backend rejects the session.
type SessionPolicy interface {
	OnUnauthorized(status int) error
}

// AuthMiddleware sets the raw token in the authorization header (no Bearer
// prefix) and the device uuid header when one is known.
func AuthMiddleware(creds Credentials) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if creds == nil {
				return next.RoundTrip(req)
			}
			token, deviceID := creds.Credentials()
			if token == "" && deviceID == "" {
				return next.RoundTrip(req)
			}
			req = req.Clone(req.Context())
			if token != "" {
				req.Header.Set("authorization", token)
			}
			if deviceID != "" {
				req.Header.Set("uuid", deviceID)
			}
			return next.RoundTrip(req)
		})
	}
}

// SessionMiddleware hands 401/403 responses to policy. The response itself
// is passed through unchanged so the caller still sees the API error.
func SessionMiddleware(policy SessionPolicy, logger logging.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err != nil || policy == nil {
				return resp, err
			}
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				if perr := policy.OnUnauthorized(resp.StatusCode); perr != nil {
					logger.WithError(perr).Warn("Session policy failed",
						logging.F(logging.FieldStatus, resp.StatusCode))
				}
			}
			return resp, nil
		})
	}
}

// LoggingMiddleware logs every exchange at debug level.
func LoggingMiddleware(logger logging.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)
			fields := []logging.Field{
				logging.F(logging.FieldMethod, req.Method),
				logging.F(logging.FieldURL, req.URL.Redacted()),
				logging.F(logging.FieldDuration, time.Since(start).String()),
			}
			if err != nil {
				logger.WithError(err).Debug("Backend request failed", fields...)
				return resp, err
			}
			fields = append(fields, logging.F(logging.FieldStatus, resp.StatusCode))
			logger.Debug("Backend request", fields...)
			return resp, nil
		})
	}
}
