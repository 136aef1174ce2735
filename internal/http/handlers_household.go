package http

import (
	"fmt"
	"net/http"

	"kasa/internal/core"
	"kasa/internal/storage"
)

// The handlers below are thin CRUD passthroughs for the configuration
// tables that make up the backup graph.

func (s *Server) handleBanks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		activeOnly := r.URL.Query().Get("active") == "true"
		var banks []core.Bank
		err := s.repo.Do(r.Context(), func(q *storage.Queries) error {
			var err error
			banks, err = q.ListBanks(r.Context(), activeOnly)
			return err
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, banks)
	case http.MethodPost:
		var b core.Bank
		if err := decodeJSON(r, &b); err != nil {
			writeError(w, err)
			return
		}
		var created core.Bank
		err := s.repo.Do(r.Context(), func(q *storage.Queries) error {
			var err error
			created, err = q.CreateBank(r.Context(), b)
			return err
		})
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
		var b core.Bank
		if err := decodeJSON(r, &b); err != nil {
			writeError(w, err)
			return
		}
		var updated core.Bank
		err = s.repo.Do(r.Context(), func(q *storage.Queries) error {
			var err error
			updated, err = q.UpdateBank(r.Context(), id, b)
			return err
		})
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
		err = s.repo.Do(r.Context(), func(q *storage.Queries) error {
			return q.DeleteBank(r.Context(), id)
		})
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "GET", "POST", "PUT", "DELETE")
	}
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var members []core.HouseholdMember
		err := s.repo.Do(r.Context(), func(q *storage.Queries) error {
			var err error
			members, err = q.ListMembers(r.Context())
			return err
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, members)
	case http.MethodPost:
		var m core.HouseholdMember
		if err := decodeJSON(r, &m); err != nil {
			writeError(w, err)
			return
		}
		var created core.HouseholdMember
		err := s.repo.Do(r.Context(), func(q *storage.Queries) error {
			var err error
			created, err = q.CreateMember(r.Context(), m)
			return err
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodDelete:
		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, err)
			return
		}
		err = s.repo.Do(r.Context(), func(q *storage.Queries) error {
			return q.DeleteMember(r.Context(), id)
		})
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "GET", "POST", "DELETE")
	}
}

func (s *Server) handleMemberIncomes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		memberID, err := parseID(r, "member_id")
		if err != nil {
			writeError(w, err)
			return
		}
		var incomes []core.MemberIncome
		err = s.repo.Do(r.Context(), func(q *storage.Queries) error {
			var err error
			incomes, err = q.ListMemberIncomes(r.Context(), memberID)
			return err
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, incomes)
	case http.MethodPost:
		var in core.MemberIncome
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, err)
			return
		}
		var created core.MemberIncome
		err := s.repo.Do(r.Context(), func(q *storage.Queries) error {
			var err error
			created, err = q.CreateMemberIncome(r.Context(), in)
			return err
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodDelete:
		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, err)
			return
		}
		err = s.repo.Do(r.Context(), func(q *storage.Queries) error {
			return q.DeleteMemberIncome(r.Context(), id)
		})
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "GET", "POST", "DELETE")
	}
}

func (s *Server) handleScheduledTransfers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var transfers []core.ScheduledTransfer
		err := s.repo.Do(r.Context(), func(q *storage.Queries) error {
			var err error
			transfers, err = q.ListScheduledTransfers(r.Context())
			return err
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, transfers)
	case http.MethodPost:
		var t core.ScheduledTransfer
		if err := decodeJSON(r, &t); err != nil {
			writeError(w, err)
			return
		}
		var created core.ScheduledTransfer
		err := s.repo.Do(r.Context(), func(q *storage.Queries) error {
			var err error
			created, err = q.CreateScheduledTransfer(r.Context(), t)
			return err
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodDelete:
		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, err)
			return
		}
		err = s.repo.Do(r.Context(), func(q *storage.Queries) error {
			return q.DeleteScheduledTransfer(r.Context(), id)
		})
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "GET", "POST", "DELETE")
	}
}

func (s *Server) handleFixedExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var expenses []core.FixedExpense
		err := s.repo.Do(r.Context(), func(q *storage.Queries) error {
			var err error
			expenses, err = q.ListFixedExpenses(r.Context())
			return err
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, expenses)
	case http.MethodPost:
		var e core.FixedExpense
		if err := decodeJSON(r, &e); err != nil {
			writeError(w, err)
			return
		}
		var created core.FixedExpense
		err := s.repo.Do(r.Context(), func(q *storage.Queries) error {
			var err error
			created, err = q.CreateFixedExpense(r.Context(), e)
			return err
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodDelete:
		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, err)
			return
		}
		err = s.repo.Do(r.Context(), func(q *storage.Queries) error {
			return q.DeleteFixedExpense(r.Context(), id)
		})
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "GET", "POST", "DELETE")
	}
}

func (s *Server) handleBudgetCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var categories []core.BudgetCategory
		err := s.repo.Do(r.Context(), func(q *storage.Queries) error {
			var err error
			categories, err = q.ListBudgetCategories(r.Context())
			return err
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, categories)
	case http.MethodPost:
		var b core.BudgetCategory
		if err := decodeJSON(r, &b); err != nil {
			writeError(w, err)
			return
		}
		var created core.BudgetCategory
		err := s.repo.Do(r.Context(), func(q *storage.Queries) error {
			var err error
			created, err = q.CreateBudgetCategory(r.Context(), b)
			return err
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodDelete:
		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, err)
			return
		}
		err = s.repo.Do(r.Context(), func(q *storage.Queries) error {
			return q.DeleteBudgetCategory(r.Context(), id)
		})
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "GET", "POST", "DELETE")
	}
}

func (s *Server) handleFlowGroups(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var groups []core.FlowGroup
		err := s.repo.Do(r.Context(), func(q *storage.Queries) error {
			var err error
			groups, err = q.ListFlowGroups(r.Context())
			return err
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, groups)
	case http.MethodPost:
		var g core.FlowGroup
		if err := decodeJSON(r, &g); err != nil {
			writeError(w, err)
			return
		}
		var created core.FlowGroup
		err := s.repo.Do(r.Context(), func(q *storage.Queries) error {
			var err error
			created, err = q.CreateFlowGroup(r.Context(), g)
			return err
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodDelete:
		id, err := parseID(r, "id")
		if err != nil {
			writeError(w, err)
			return
		}
		err = s.repo.Do(r.Context(), func(q *storage.Queries) error {
			return q.DeleteFlowGroup(r.Context(), id)
		})
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "GET", "POST", "DELETE")
	}
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var categories []core.Category
		err := s.repo.Do(r.Context(), func(q *storage.Queries) error {
			var err error
			categories, err = q.ListCategories(r.Context())
			return err
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, categories)
	case http.MethodPost:
		var c core.Category
		if err := decodeJSON(r, &c); err != nil {
			writeError(w, err)
			return
		}
		if err := c.Validate(); err != nil {
			writeError(w, fmt.Errorf("%w: %v", core.ErrInvalidInput, err))
			return
		}
		var created core.Category
		err := s.repo.Do(r.Context(), func(q *storage.Queries) error {
			var err error
			created, err = q.CreateCategory(r.Context(), c)
			return err
		})
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
		var c core.Category
		if err := decodeJSON(r, &c); err != nil {
			writeError(w, err)
			return
		}
		if err := c.Validate(); err != nil {
			writeError(w, fmt.Errorf("%w: %v", core.ErrInvalidInput, err))
			return
		}
		var updated core.Category
		err = s.repo.Do(r.Context(), func(q *storage.Queries) error {
			var err error
			updated, err = q.UpdateCategory(r.Context(), id, c)
			return err
		})
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
		err = s.repo.Do(r.Context(), func(q *storage.Queries) error {
			return q.DeleteCategory(r.Context(), id)
		})
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "GET", "POST", "PUT", "DELETE")
	}
}
