package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mattjoyce/mortar/internal/events"
	"github.com/mattjoyce/mortar/internal/storage"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) handleListPebbles(w http.ResponseWriter, r *http.Request) {
	s.listDefinitions(w, r, s.store.ListPebbles)
}

func (s *Server) handleListCements(w http.ResponseWriter, r *http.Request) {
	s.listDefinitions(w, r, s.store.ListCements)
}

func (s *Server) handleListConstructs(w http.ResponseWriter, r *http.Request) {
	s.listDefinitions(w, r, s.store.ListConstructs)
}

func (s *Server) listDefinitions(w http.ResponseWriter, r *http.Request, list func(context.Context) ([]storage.Definition, error)) {
	defs, err := list(r.Context())
	if err != nil {
		s.logger.Error("failed to list definitions", "error", err)
		s.writeError(w, http.StatusInternalServerError, "store query failed")
		return
	}

	out := make([]definitionResponse, 0, len(defs))
	for _, d := range defs {
		out = append(out, definitionResponse{
			Name:        d.Name,
			Description: d.Description,
			Tags:        d.Tags,
			Steps:       d.Steps,
			UpdatedAt:   timeS(d.UpdatedAt),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListPasses(w http.ResponseWriter, r *http.Request) {
	passes, err := s.store.ListPasses(r.Context(), queryLimit(r))
	if err != nil {
		s.logger.Error("failed to list passes", "error", err)
		s.writeError(w, http.StatusInternalServerError, "store query failed")
		return
	}

	out := make([]passResponse, 0, len(passes))
	for _, p := range passes {
		out = append(out, passResponse{
			ID:        p.ID,
			Construct: p.Construct,
			Kind:      string(p.Kind),
			Schedule:  p.Schedule,
			CreatedAt: timeS(p.CreatedAt),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePassLogs(w http.ResponseWriter, r *http.Request) {
	passID := chi.URLParam(r, "id")
	s.listLogs(w, r, passID)
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	s.listLogs(w, r, "")
}

func (s *Server) listLogs(w http.ResponseWriter, r *http.Request, passID string) {
	logs, err := s.store.ListExecutionLogs(r.Context(), passID, queryLimit(r))
	if err != nil {
		s.logger.Error("failed to list execution logs", "error", err)
		s.writeError(w, http.StatusInternalServerError, "store query failed")
		return
	}

	out := make([]executionLogResponse, 0, len(logs))
	for _, l := range logs {
		resp := executionLogResponse{
			ID:        l.ID,
			Pebble:    l.Pebble,
			Construct: l.Construct,
			PassID:    l.PassID,
			Status:    string(l.Status),
			Result:    l.Result,
			Error:     l.Error,
			StartTime: timeS(l.StartTime),
		}
		if l.EndTime != nil {
			resp.EndTime = timeS(*l.EndTime)
		}
		out = append(out, resp)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		s.writeJSON(w, http.StatusOK, []events.Event{})
		return
	}

	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "since must be a non-negative integer")
			return
		}
		since = n
	}
	s.writeJSON(w, http.StatusOK, s.hub.SnapshotSince(since))
}

func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
