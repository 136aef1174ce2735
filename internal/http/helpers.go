package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kasa/internal/core"
)

// maxBodyBytes caps JSON request bodies. The largest legitimate payload is
// a full graph snapshot, which stays well under this.
const maxBodyBytes = 4 << 20

type errorResponse struct {
	Error string `json:"error"`
}

var errMissingPath = fmt.Errorf("%w: missing path", core.ErrInvalidInput)

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP status codes and writes a
// JSON error payload.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidInput), errors.Is(err, core.ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrIO):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode body: %v", core.ErrInvalidInput, err)
	}
	return nil
}

// parseID extracts a positive integer id from the named query parameter.
func parseID(r *http.Request, name string) (int64, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, fmt.Errorf("%w: missing %s", core.ErrInvalidInput, name)
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", core.ErrInvalidInput, name, v)
	}
	return id, nil
}

// parseDateQuery parses an optional YYYY-MM-DD query parameter.
func parseDateQuery(r *http.Request, name string) (*core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s %q", core.ErrInvalidInput, name, v)
	}
	return &d, nil
}

// parseCentsQuery parses an optional integer-cents query parameter.
func parseCentsQuery(r *http.Request, name string) (*core.Money, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	cents, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s %q", core.ErrInvalidInput, name, v)
	}
	return &core.Money{Cents: cents}, nil
}

// methodNotAllowed writes a 405 with the Allow header set.
func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
