package http

import (
	"fmt"
	"net/http"
	"time"

	"kasa/internal/core"
	"kasa/internal/storage"
)

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if r.URL.Query().Get("id") != "" {
			id, err := parseID(r, "id")
			if err != nil {
				writeError(w, err)
				return
			}
			var g core.SavingsGoal
			err = s.repo.Do(r.Context(), func(q *storage.Queries) error {
				var err error
				g, err = q.GetSavingsGoal(r.Context(), id)
				return err
			})
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, g)
			return
		}

		var goals []core.SavingsGoal
		err := s.repo.Do(r.Context(), func(q *storage.Queries) error {
			var err error
			goals, err = q.ListSavingsGoals(r.Context())
			return err
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, goals)
	case http.MethodPost:
		var g core.SavingsGoal
		if err := decodeJSON(r, &g); err != nil {
			writeError(w, err)
			return
		}
		if g.Currency == "" {
			g.Currency = core.DefaultCurrency
		}
		var created core.SavingsGoal
		err := s.repo.Do(r.Context(), func(q *storage.Queries) error {
			var err error
			created, err = q.CreateSavingsGoal(r.Context(), g)
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
			return q.DeleteSavingsGoal(r.Context(), id)
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

type goalAmountRequest struct {
	GoalID      int64      `json:"goal_id"`
	Amount      core.Money `json:"amount"`
	Description string     `json:"description,omitempty"`
	Date        *core.Date `json:"date,omitempty"`
}

func (req goalAmountRequest) validate() error {
	if req.GoalID <= 0 {
		return fmt.Errorf("%w: missing goal_id", core.ErrInvalidInput)
	}
	if req.Amount.Cents <= 0 {
		return fmt.Errorf("%w: amount must be positive", core.ErrInvalidAmount)
	}
	return nil
}

// handleGoalContribute adds to a goal's running amount.
func (s *Server) handleGoalContribute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req goalAmountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	var g core.SavingsGoal
	err := s.repo.Do(r.Context(), func(q *storage.Queries) error {
		if err := q.AdjustGoalAmount(r.Context(), req.GoalID, req.Amount); err != nil {
			return err
		}
		var err error
		g, err = q.GetSavingsGoal(r.Context(), req.GoalID)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// handleGoalWithdraw records a fund withdrawal and decrements the goal's
// running amount in one store transaction.
func (s *Server) handleGoalWithdraw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req goalAmountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	day := core.Today(time.Now())
	if req.Date != nil {
		day = *req.Date
	}

	var g core.SavingsGoal
	err := s.repo.InTx(r.Context(), func(q *storage.Queries) error {
		if err := q.AdjustGoalAmount(r.Context(), req.GoalID, req.Amount.Neg()); err != nil {
			return err
		}
		_, err := q.CreateFundWithdrawal(r.Context(), core.FundWithdrawal{
			GoalID:      req.GoalID,
			Amount:      req.Amount,
			Description: req.Description,
			Date:        day,
		})
		if err != nil {
			return err
		}
		g, err = q.GetSavingsGoal(r.Context(), req.GoalID)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleGoalWithdrawals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	goalID, err := parseID(r, "goal_id")
	if err != nil {
		writeError(w, err)
		return
	}

	var withdrawals []core.FundWithdrawal
	err = s.repo.Do(r.Context(), func(q *storage.Queries) error {
		var err error
		withdrawals, err = q.ListFundWithdrawals(r.Context(), goalID)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawals)
}
