package http

import (
	"net/http"
	"time"

	"kasa/internal/core"
)

func (s *Server) handleRecurring(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if r.URL.Query().Get("id") != "" {
			id, err := parseID(r, "id")
			if err != nil {
				writeError(w, err)
				return
			}
			p, err := s.scheduler.GetRecurringPayment(r.Context(), id)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, p)
			return
		}

		payments, err := s.scheduler.ListRecurringPayments(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payments)
	case http.MethodPost:
		var p core.RecurringPayment
		if err := decodeJSON(r, &p); err != nil {
			writeError(w, err)
			return
		}
		created, err := s.scheduler.CreateRecurringPayment(r.Context(), p)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodPut:
		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, err)
			return
		}
		var p core.RecurringPayment
		if err := decodeJSON(r, &p); err != nil {
			writeError(w, err)
			return
		}
		updated, err := s.scheduler.UpdateRecurringPayment(r.Context(), id, p)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, err)
			return
		}
		if err := s.scheduler.DeleteRecurringPayment(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "GET", "POST", "PUT", "DELETE")
	}
}

// handleSweep triggers a recurring payment sweep. The date defaults to
// today; an explicit date exists for catch-up runs and testing.
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	day := core.Today(time.Now())
	if d, err := parseDateQuery(r, "date"); err != nil {
		writeError(w, err)
		return
	} else if d != nil {
		day = *d
	}

	result, err := s.scheduler.Sweep(r.Context(), day)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
