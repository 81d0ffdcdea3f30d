package web

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hugo-lorenzo-mato/autorun/internal/control"
	"github.com/hugo-lorenzo-mato/autorun/internal/diagnostics"
)

const maxCommandBody = 4 << 10

type commandRequest struct {
	Command string `json:"command"`
}

type commandResponse struct {
	Accepted bool   `json:"accepted"`
	Kind     string `json:"kind"`
	Command  string `json:"command"`
}

type systemResponse struct {
	Host      diagnostics.SystemMetrics     `json:"host"`
	Resources *diagnostics.ResourceSnapshot `json:"resources,omitempty"`
	Warnings  []diagnostics.HealthWarning   `json:"warnings,omitempty"`
	Trend     *diagnostics.ResourceTrend    `json:"trend,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]interface{}{"status": "healthy"}
	if s.status != nil {
		if st := s.status.Status(); st != nil {
			body["tick"] = st.Tick
			body["updated_at"] = st.UpdatedAt
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleTopics(w http.ResponseWriter, _ *http.Request) {
	if s.status == nil {
		writeError(w, http.StatusServiceUnavailable, "status not available")
		return
	}
	st := s.status.Status()
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "no status published yet")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleTopic(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		writeError(w, http.StatusServiceUnavailable, "status not available")
		return
	}
	id := chi.URLParam(r, "topicID")
	view, ok := s.status.Status().Topic(id)
	if !ok {
		writeError(w, http.StatusNotFound, "topic "+id+" is not in the task list")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSystem(w http.ResponseWriter, _ *http.Request) {
	if s.system == nil {
		writeError(w, http.StatusServiceUnavailable, "system metrics not available")
		return
	}
	resp := systemResponse{Host: s.system.Collect()}
	if s.monitor != nil {
		snap, ok := s.monitor.GetLatest()
		if !ok {
			snap = s.monitor.TakeSnapshot()
		}
		resp.Resources = &snap
		resp.Warnings = s.monitor.CheckHealth()
		trend := s.monitor.GetTrend()
		resp.Trend = &trend
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCommand accepts {"command": "..."} or a text/plain body. The command
// runs on a later tick; acceptance says nothing about its outcome.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if s.commands == nil {
		writeError(w, http.StatusServiceUnavailable, "commands not available")
		return
	}

	if !s.limiter.TryAcquire() {
		writeError(w, http.StatusTooManyRequests, "too many commands")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read body")
		return
	}

	line := string(body)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req commandRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		line = req.Command
	}

	cmd, ok := control.Parse(line)
	if !ok {
		writeError(w, http.StatusBadRequest, "empty command")
		return
	}
	if cmd.Kind == control.CmdUnknown {
		writeError(w, http.StatusBadRequest, "unrecognized command: "+cmd.Raw)
		return
	}

	s.commands.Push(control.SourceHTTP, cmd.Raw)
	writeJSON(w, http.StatusAccepted, commandResponse{
		Accepted: true,
		Kind:     string(cmd.Kind),
		Command:  cmd.Raw,
	})
}
