package httpapi

import (
	"net/http"
	"strings"

	"concertdesk/internal/models"
)

func (s *Server) handleTrackingStatus(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	status, err := s.worktime.Status(r.Context(), principal.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleTrackingStart(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	status, err := s.worktime.Start(r.Context(), principal.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleTrackingStop(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	session, err := s.worktime.Stop(r.Context(), principal.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleTrackingTotals(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	totals, err := s.worktime.Totals(r.Context(), principal.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleTrackingSessions(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date is required"})
		return
	}

	sessions, err := s.worktime.SessionsForDay(r.Context(), principal.UserID, date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []models.WorkSession{}
	}
	writeJSON(w, http.StatusOK, struct {
		Sessions []models.WorkSession `json:"sessions"`
	}{Sessions: sessions})
}
