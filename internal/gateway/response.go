package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/medrex/clinic-scheduling/pkg/logger"
	"github.com/medrex/clinic-scheduling/pkg/types"
)

// maxBodyBytes caps request bodies decoded by DecodeJSON
const maxBodyBytes = 1 << 20

// ErrorBody is the JSON error envelope
type ErrorBody struct {
	Error ErrorPayload `json:"error"`
}

// ErrorPayload carries the error code and message
type ErrorPayload struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// StatusFor maps an error kind to its HTTP status
func StatusFor(kind types.ErrorKind) int {
	switch kind {
	case types.ErrorKindNotFound:
		return http.StatusNotFound
	case types.ErrorKindUnauthorized:
		return http.StatusForbidden
	case types.ErrorKindConflict:
		return http.StatusConflict
	case types.ErrorKindInvalidInput:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// WriteJSON writes v with the given status
func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// WriteError writes err as an error envelope. Internal causes are logged and
// never sent to the client.
func WriteError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	var ce *types.ClinicError
	if !errors.As(err, &ce) {
		ce = types.NewInternalError(types.ErrCodeInternalError, "internal server error", err)
	}

	status := StatusFor(ce.Kind)
	if ce.Code == types.ErrCodeInvalidCredentials {
		status = http.StatusUnauthorized
	}

	payload := ErrorPayload{Code: ce.Code, Message: ce.Message, Details: ce.Details}
	if ce.Kind == types.ErrorKindInternal {
		log.WithContext(r.Context()).WithError(err).Error("Request failed")
		payload = ErrorPayload{Code: types.ErrCodeInternalError, Message: "internal server error"}
	}

	WriteJSON(w, status, ErrorBody{Error: payload})
}

// WriteStatusError writes an error envelope with an explicit status
func WriteStatusError(w http.ResponseWriter, statusCode int, code, message string) {
	WriteJSON(w, statusCode, ErrorBody{Error: ErrorPayload{Code: code, Message: message}})
}

// DecodeJSON decodes the request body into v, rejecting unknown fields
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return types.NewInvalidInputError(types.ErrCodeInvalidInput, "invalid request body: "+err.Error(), nil)
	}
	return nil
}
