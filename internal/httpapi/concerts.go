package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"concertdesk/internal/models"
)

func (s *Server) handleListConcerts(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date is required"})
		return
	}

	list, err := s.concerts.ListForDate(r.Context(), date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Concert{}
	}
	writeJSON(w, http.StatusOK, struct {
		Date     string           `json:"date"`
		Concerts []models.Concert `json:"concerts"`
	}{Date: date, Concerts: list})
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	start, ok := monthParam(w, r, "from")
	if !ok {
		return
	}
	end, ok := monthParam(w, r, "to")
	if !ok {
		return
	}

	days, err := s.concerts.ListForMonthRange(r.Context(), start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Days map[string][]models.Concert `json:"days"`
	}{Days: days})
}

func monthParam(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, true
	}
	m, err := models.ParseMonth(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + name + " parameter"})
		return nil, false
	}
	return &m, true
}

func (s *Server) handleGetConcert(w http.ResponseWriter, r *http.Request) {
	concert, err := s.concerts.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, concert)
}

func (s *Server) handleCreateConcert(w http.ResponseWriter, r *http.Request) {
	s.saveConcert(w, r, "", http.StatusCreated)
}

func (s *Server) handleUpdateConcert(w http.ResponseWriter, r *http.Request) {
	s.saveConcert(w, r, mux.Vars(r)["id"], http.StatusOK)
}

func (s *Server) saveConcert(w http.ResponseWriter, r *http.Request, id string, status int) {
	principal, _ := PrincipalFrom(r.Context())
	if err := models.RequireAdmin(principal); err != nil {
		s.writeError(w, r, err)
		return
	}

	var draft models.ConcertDraft
	if !decodeJSON(w, r, &draft) {
		return
	}

	saved, err := s.concerts.Save(r.Context(), principal, id, draft)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, saved)
}

func (s *Server) handleDeleteConcert(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	if err := s.concerts.Delete(r.Context(), principal, mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type nameRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	var req nameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	concert, err := s.concerts.AddMember(r.Context(), principal, mux.Vars(r)["id"], req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, concert)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid member index"})
		return
	}

	concert, err := s.concerts.RemoveMember(r.Context(), principal, vars["id"], index)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, concert)
}

func seatParams(w http.ResponseWriter, r *http.Request) (row, index int, ok bool) {
	vars := mux.Vars(r)
	row, err := strconv.Atoi(vars["row"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid seat row"})
		return 0, 0, false
	}
	index, err = strconv.Atoi(vars["index"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid seat index"})
		return 0, 0, false
	}
	return row, index, true
}

func (s *Server) handleAssignSeat(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	row, index, ok := seatParams(w, r)
	if !ok {
		return
	}
	var req struct {
		Member string `json:"member"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	concert, err := s.concerts.AssignSeat(r.Context(), principal, mux.Vars(r)["id"], row, index, req.Member)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, concert)
}

func (s *Server) handleClearSeat(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	row, index, ok := seatParams(w, r)
	if !ok {
		return
	}

	concert, err := s.concerts.ClearSeat(r.Context(), principal, mux.Vars(r)["id"], row, index)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, concert)
}

func (s *Server) handleSetDriver(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())
	var req nameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	concert, err := s.concerts.SetDriver(r.Context(), principal, mux.Vars(r)["id"], req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, concert)
}
