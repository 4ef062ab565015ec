package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/medrex/clinic-scheduling/pkg/logger"
	"github.com/medrex/clinic-scheduling/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTokenResolver struct {
	mock.Mock
}

func (m *MockTokenResolver) Resolve(ctx context.Context, token string, role types.Role) (*types.Principal, error) {
	args := m.Called(ctx, token, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Principal), args.Error(1)
}

var invalidCredential = types.NewUnauthorizedError(types.ErrCodeUnauthorized, "invalid or expired credential")

func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := types.PrincipalFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	})
}

func TestGuard_AdmitsMatchingRole(t *testing.T) {
	resolver := new(MockTokenResolver)
	guard := NewGuard(resolver, logger.New("error"))

	principal := &types.Principal{Role: types.RolePatient, Subject: "jane@clinic.test", EntityID: "pat-1"}
	resolver.On("Resolve", mock.Anything, "tok", types.RolePatient).Return(principal, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/me", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()

	guard.Require(types.RolePatient)(principalEcho()).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got types.Principal
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "pat-1", got.EntityID)
	resolver.AssertExpectations(t)
}

func TestGuard_TriesEachAllowedRole(t *testing.T) {
	resolver := new(MockTokenResolver)
	guard := NewGuard(resolver, logger.New("error"))

	principal := &types.Principal{Role: types.RoleDoctor, Subject: "house@clinic.test", EntityID: "doc-1"}
	resolver.On("Resolve", mock.Anything, "tok", types.RoleAdmin).Return(nil, invalidCredential)
	resolver.On("Resolve", mock.Anything, "tok", types.RoleDoctor).Return(principal, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/doctors/doc-1/availability", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()

	guard.Require(types.RoleAdmin, types.RoleDoctor, types.RolePatient)(principalEcho()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, "tok", types.RolePatient)
}

func TestGuard_RejectsWrongRole(t *testing.T) {
	resolver := new(MockTokenResolver)
	guard := NewGuard(resolver, logger.New("error"))

	resolver.On("Resolve", mock.Anything, "tok", types.RoleAdmin).Return(nil, invalidCredential)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/doctors", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()

	guard.Require(types.RoleAdmin)(principalEcho()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), types.ErrCodeUnauthorized)
}

func TestGuard_MissingHeader(t *testing.T) {
	resolver := new(MockTokenResolver)
	guard := NewGuard(resolver, logger.New("error"))

	for _, header := range []string{"", "Basic abc", "Bearer ", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()

		guard.Require(types.RolePatient)(principalEcho()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything)
}

func TestGuard_StoreFailureIsInternal(t *testing.T) {
	resolver := new(MockTokenResolver)
	guard := NewGuard(resolver, logger.New("error"))

	resolver.On("Resolve", mock.Anything, "tok", types.RolePatient).
		Return(nil, types.NewInternalError(types.ErrCodeInternalError, "failed to resolve credential", errors.New("db down")))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()

	guard.Require(types.RolePatient)(principalEcho()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestWriteError_StatusMapping(t *testing.T) {
	log := logger.New("error")
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", types.NewNotFoundError(types.ErrCodeNotFound, "missing"), http.StatusNotFound},
		{"unauthorized", types.NewUnauthorizedError(types.ErrCodeUnauthorized, "not yours"), http.StatusForbidden},
		{"bad login", types.NewUnauthorizedError(types.ErrCodeInvalidCredentials, "invalid credentials"), http.StatusUnauthorized},
		{"conflict", types.NewConflictError(types.ErrCodeSlotUnavailable, "taken", nil), http.StatusConflict},
		{"invalid", types.NewInvalidInputError(types.ErrCodeInvalidInput, "bad", nil), http.StatusBadRequest},
		{"foreign", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, httptest.NewRequest(http.MethodGet, "/", nil), log, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var body ErrorBody
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.NotEmpty(t, body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	var req types.BookingRequest
	r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"doctor_id":"doc-1","extra":true}`))

	err := DecodeJSON(r, &req)

	assert.True(t, types.IsKind(err, types.ErrorKindInvalidInput))
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/doctors", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "PATCH"))
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	handler := SecurityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(1, time.Hour)
	handler := RateLimitMiddleware(limiter, &ClientIPResolver{}, logger.New("error"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5000"
	handler.ServeHTTP(first, req)
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitMiddleware_SpoofedForwardedForSharesBucket(t *testing.T) {
	limiter := NewRateLimiter(1, time.Hour)
	handler := RateLimitMiddleware(limiter, &ClientIPResolver{}, logger.New("error"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i, fwd := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:5000"
		req.Header.Set("X-Forwarded-For", fwd)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if i == 0 {
			assert.Equal(t, http.StatusOK, rec.Code)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		}
	}
}

func TestClientIP(t *testing.T) {
	clients, err := NewClientIPResolver([]string{"10.0.0.0/8", "192.0.2.10"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		remote string
		fwd    string
		want   string
	}{
		{name: "direct", remote: "203.0.113.7:5000", want: "203.0.113.7"},
		{name: "untrusted sender", remote: "203.0.113.7:5000", fwd: "198.51.100.1", want: "203.0.113.7"},
		{name: "trusted proxy", remote: "10.1.2.3:443", fwd: "198.51.100.1", want: "198.51.100.1"},
		{name: "trusted single ip", remote: "192.0.2.10:443", fwd: "198.51.100.1", want: "198.51.100.1"},
		{name: "proxy chain", remote: "10.1.2.3:443", fwd: "6.6.6.6, 198.51.100.1, 10.9.9.9", want: "198.51.100.1"},
		{name: "trusted proxy without header", remote: "10.1.2.3:443", want: "10.1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.fwd != "" {
				req.Header.Set("X-Forwarded-For", tt.fwd)
			}
			assert.Equal(t, tt.want, clients.ClientIP(req))
		})
	}
}

func TestNewClientIPResolver_RejectsBadEntries(t *testing.T) {
	_, err := NewClientIPResolver([]string{"not-an-ip"})
	assert.Error(t, err)

	_, err = NewClientIPResolver([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}
