package http

import (
	"fmt"
	"net/http"

	"kasa/internal/core"
	"kasa/internal/storage"
)

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if r.URL.Query().Get("id") != "" {
			s.getAccount(w, r)
			return
		}
		s.listAccounts(w, r)
	case http.MethodPost:
		s.createAccount(w, r)
	case http.MethodPut:
		s.updateAccount(w, r)
	case http.MethodDelete:
		s.deleteAccount(w, r)
	default:
		methodNotAllowed(w, "GET", "POST", "PUT", "DELETE")
	}
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var a core.Account
	if err := decodeJSON(r, &a); err != nil {
		writeError(w, err)
		return
	}
	if a.Currency == "" {
		a.Currency = core.DefaultCurrency
	}
	if err := a.Validate(); err != nil {
		writeError(w, fmt.Errorf("%w: %v", core.ErrInvalidInput, err))
		return
	}

	var created core.Account
	err := s.repo.Do(r.Context(), func(q *storage.Queries) error {
		var err error
		created, err = q.CreateAccount(r.Context(), a)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var a core.Account
	err = s.repo.Do(r.Context(), func(q *storage.Queries) error {
		var err error
		a, err = q.GetAccount(r.Context(), id)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	var accounts []core.Account
	err := s.repo.Do(r.Context(), func(q *storage.Queries) error {
		var err error
		accounts, err = q.ListAccounts(r.Context(), activeOnly)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var a core.Account
	if err := decodeJSON(r, &a); err != nil {
		writeError(w, err)
		return
	}

	var updated core.Account
	err = s.repo.Do(r.Context(), func(q *storage.Queries) error {
		var err error
		updated, err = q.UpdateAccount(r.Context(), id, a)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	err = s.repo.Do(r.Context(), func(q *storage.Queries) error {
		return q.SoftDeleteAccount(r.Context(), id)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type balanceResponse struct {
	AccountID    int64      `json:"account_id"`
	BalanceCents core.Money `json:"balance"`
}

type setBalanceRequest struct {
	BalanceCents core.Money `json:"balance"`
}

// handleAccountBalance reads or overwrites an account balance. PUT is the
// manual correction path: it rewrites both stored balances so the account
// behaves as if it started at the given value.
func (s *Server) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		var balance core.Money
		err = s.repo.Do(r.Context(), func(q *storage.Queries) error {
			var err error
			balance, err = q.GetBalance(r.Context(), id)
			return err
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, balanceResponse{AccountID: id, BalanceCents: balance})
	case http.MethodPut:
		var req setBalanceRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		err = s.repo.Do(r.Context(), func(q *storage.Queries) error {
			return q.SetBalance(r.Context(), id, req.BalanceCents)
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, balanceResponse{AccountID: id, BalanceCents: req.BalanceCents})
	default:
		methodNotAllowed(w, "GET", "PUT")
	}
}
