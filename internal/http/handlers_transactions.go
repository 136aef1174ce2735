package http

import (
	"net/http"
	"strings"

	"kasa/internal/core"
	"kasa/internal/storage"
)

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if r.URL.Query().Get("id") != "" {
			s.getTransaction(w, r)
			return
		}
		s.listTransactions(w, r)
	case http.MethodPost:
		s.createTransaction(w, r)
	case http.MethodPut:
		s.updateTransaction(w, r)
	case http.MethodDelete:
		s.deleteTransaction(w, r)
	default:
		methodNotAllowed(w, "GET", "POST", "PUT", "DELETE")
	}
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var t core.Transaction
	if err := decodeJSON(r, &t); err != nil {
		writeError(w, err)
		return
	}

	created, err := s.ledger.Create(r.Context(), t)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	t, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// listTransactions returns all transactions, or a filtered subset when any
// of from/to/min_cents/max_cents/search is present.
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	filters, hasFilters, err := transactionFilters(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var out []core.Transaction
	if hasFilters {
		out, err = s.ledger.ListFiltered(r.Context(), filters)
	} else {
		out, err = s.ledger.List(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func transactionFilters(r *http.Request) (storage.TransactionFilters, bool, error) {
	var f storage.TransactionFilters
	var err error

	if f.StartDate, err = parseDateQuery(r, "from"); err != nil {
		return f, false, err
	}
	if f.EndDate, err = parseDateQuery(r, "to"); err != nil {
		return f, false, err
	}
	if f.MinAmount, err = parseCentsQuery(r, "min_cents"); err != nil {
		return f, false, err
	}
	if f.MaxAmount, err = parseCentsQuery(r, "max_cents"); err != nil {
		return f, false, err
	}
	f.Search = strings.TrimSpace(r.URL.Query().Get("search"))

	has := f.StartDate != nil || f.EndDate != nil ||
		f.MinAmount != nil || f.MaxAmount != nil || f.Search != ""
	return f, has, nil
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var t core.Transaction
	if err := decodeJSON(r, &t); err != nil {
		writeError(w, err)
		return
	}

	updated, err := s.ledger.Update(r.Context(), id, t)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.ledger.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
