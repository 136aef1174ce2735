package http

import (
	"net/http"

	"kasa/internal/services"
)

// handleSnapshot serves the full graph snapshot (GET) or restores one from
// the request body (POST).
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		snap, err := s.backup.ExportFullGraph(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	case http.MethodPost:
		var snap services.Snapshot
		if err := decodeJSON(r, &snap); err != nil {
			writeError(w, err)
			return
		}
		if err := s.backup.Restore(r.Context(), snap); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, "GET", "POST")
	}
}

type fileRequest struct {
	Path    string `json:"path"`
	Restore bool   `json:"restore,omitempty"`
}

// handleSnapshotFile writes a snapshot to a file on the host, or restores
// from one when restore is set. The store runs next to its user, so file
// paths in requests are the normal way to reach backup locations.
func (s *Server) handleSnapshotFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req fileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Path == "" {
		writeError(w, errMissingPath)
		return
	}

	if req.Restore {
		if err := s.backup.RestoreFromFile(r.Context(), req.Path); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	snap, err := s.backup.WriteSnapshotToFile(r.Context(), req.Path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": snap.ID, "path": req.Path})
}

// handleCSVExport streams the transaction list as CSV, honoring the same
// filter parameters as the transaction list endpoint.
func (s *Server) handleCSVExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	filters, _, err := transactionFilters(r)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	if _, err := s.backup.ExportTransactionsCSV(r.Context(), w, filters); err != nil {
		// Headers are already out; the truncated body is the best signal left.
		return
	}
}

// handleDatabaseCopy copies the raw database file to (POST) or from
// (POST with restore) a path on the host.
func (s *Server) handleDatabaseCopy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req fileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Path == "" {
		writeError(w, errMissingPath)
		return
	}

	if req.Restore {
		if err := s.backup.ImportDatabase(r.Context(), req.Path); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := s.backup.ExportDatabase(r.Context(), req.Path); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": req.Path})
}
