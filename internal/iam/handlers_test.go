package iam

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/medrex/clinic-scheduling/internal/gateway"
	"github.com/medrex/clinic-scheduling/pkg/logger"
	"github.com/medrex/clinic-scheduling/pkg/types"
)

func setupTestRouter(t *testing.T) (*mux.Router, *Service, *MockAccountRepository) {
	t.Helper()
	service, repo := setupTestService(t)
	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	NewHandlers(service, logger.New("error")).RegisterRoutes(api, gateway.NewGuard(service.Tokens(), logger.New("error")))
	return router, service, repo
}

func TestHandlers_LoginAndValidate(t *testing.T) {
	router, service, repo := setupTestRouter(t)

	hash, err := service.Passwords().HashPassword("secret1")
	require.NoError(t, err)
	repo.On("GetDoctorByEmail", mock.Anything, "house@clinic.test").
		Return(&types.Doctor{ID: "doc-1", Email: "house@clinic.test", PasswordHash: hash}, nil)

	body := bytes.NewBufferString(`{"identifier":"house@clinic.test","password":"secret1"}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/doctors/login", body))
	require.Equal(t, http.StatusOK, w.Code)

	var token types.AuthToken
	require.NoError(t, json.NewDecoder(w.Body).Decode(&token))

	for role, want := range map[string]bool{"doctor": true, "patient": false} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tokens/validate?role="+role, nil)
		req.Header.Set("Authorization", "Bearer "+token.Token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var result map[string]bool
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
		assert.Equal(t, want, result["valid"], role)
	}
}

func TestHandlers_LoginBadPassword(t *testing.T) {
	router, _, repo := setupTestRouter(t)

	repo.On("GetPatientByEmail", mock.Anything, "ghost@clinic.test").Return(nil, notFound())

	body := bytes.NewBufferString(`{"identifier":"ghost@clinic.test","password":"secret1"}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/patients/login", body))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), types.ErrCodeInvalidCredentials)
}

func TestHandlers_ValidateUnknownRole(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tokens/validate?role=nurse", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlers_SignupAndDetails(t *testing.T) {
	router, service, repo := setupTestRouter(t)

	repo.On("FindPatientByEmailOrPhone", mock.Anything, "jane@clinic.test", "5551234567").Return(nil, notFound())
	repo.On("CreatePatient", mock.Anything, mock.AnythingOfType("*types.Patient")).Return(nil)

	body := bytes.NewBufferString(`{"name":"Jane Roe","email":"jane@clinic.test","phone":"5551234567","password":"secret1"}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/patients", body))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "password")

	repo.On("GetPatientByEmail", mock.Anything, "jane@clinic.test").
		Return(&types.Patient{ID: "pat-1", Email: "jane@clinic.test"}, nil)
	repo.On("GetPatientByID", mock.Anything, "pat-1").
		Return(&types.Patient{ID: "pat-1", Name: "Jane Roe", Email: "jane@clinic.test"}, nil)

	token, err := service.Tokens().Issue("jane@clinic.test", types.RolePatient)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/me", nil).WithContext(context.Background())
	req.Header.Set("Authorization", "Bearer "+token.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Jane Roe")
}
