package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"

	"github.com/flyvpn/flyvpn-tui/internal/connlog"
	"github.com/flyvpn/flyvpn-tui/internal/intel"
	"github.com/flyvpn/flyvpn-tui/internal/state"
	"github.com/flyvpn/flyvpn-tui/internal/vpn"
)

type statusResponse struct {
	Status        state.ConnectionStatus `json:"status"`
	Busy          bool                   `json:"busy"`
	CurrentServer state.Server           `json:"currentServer"`
	User          state.UserStatus       `json:"user"`
	Config        state.VPNConfig        `json:"config"`
	Privacy       state.PrivacyReport    `json:"privacy"`
}

type progressionResponse struct {
	Level          int            `json:"level"`
	XP             int            `json:"xp"`
	XPForNextLevel int            `json:"xpForNextLevel"`
	Stats          state.Stats    `json:"stats"`
	UnlockedBadges []string       `json:"unlockedBadges"`
	Threats        []threatDigest `json:"threats"`
}

type threatDigest struct {
	ID       string           `json:"id"`
	Kind     state.ThreatKind `json:"kind"`
	Category string           `json:"category"`
	Nearby   bool             `json:"nearby"`
}

type badgeResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Unlocked    bool   `json:"unlocked"`
}

func (s *Server) status() statusResponse {
	snap := s.opts.Store.Snapshot()
	return statusResponse{
		Status:        snap.Status,
		Busy:          snap.Busy,
		CurrentServer: snap.CurrentServer,
		User:          snap.User,
		Config:        snap.Config,
		Privacy:       state.PrivacyAudit(snap.Status, snap.Config),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleToggle(w http.ResponseWriter, _ *http.Request) {
	if err := s.opts.Connection.Toggle(s.lifetime); err != nil {
		writeError(w, connectionErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleServers(w http.ResponseWriter, _ *http.Request) {
	servers := s.opts.Store.Servers()
	if servers == nil {
		servers = []state.Server{}
	}
	writeJSON(w, http.StatusOK, servers)
}

func (s *Server) handleSelectServer(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if err := s.opts.Connection.SelectServerByID(s.lifetime, id); err != nil {
		writeError(w, connectionErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var value any
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&value); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode value: %w", err))
		return
	}
	cfg, err := s.opts.Config.Update(key, value)
	switch {
	case errors.Is(err, state.ErrUnknownConfigKey):
		writeError(w, http.StatusNotFound, err)
		return
	case errors.Is(err, state.ErrConfigType):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleProgression(w http.ResponseWriter, _ *http.Request) {
	snap := s.opts.Store.Snapshot()
	p := snap.Progression
	resp := progressionResponse{
		Level:          p.Level,
		XP:             p.XP,
		XPForNextLevel: state.XPForNextLevel(p.Level),
		Stats:          p.Stats,
		UnlockedBadges: p.UnlockedBadges,
		Threats:        make([]threatDigest, 0, len(snap.Threats)),
	}
	for _, t := range snap.Threats {
		resp.Threats = append(resp.Threats, threatDigest{ID: t.ID, Kind: t.Kind, Category: t.Category, Nearby: t.Nearby})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBadges(w http.ResponseWriter, _ *http.Request) {
	unlocked := make(map[string]struct{})
	for _, id := range s.opts.Store.Snapshot().Progression.UnlockedBadges {
		unlocked[id] = struct{}{}
	}
	all := s.opts.Catalog.All()
	out := make([]badgeResponse, 0, len(all))
	for _, b := range all {
		_, ok := unlocked[b.ID]
		out = append(out, badgeResponse{
			ID:          b.ID,
			Name:        b.Name,
			Description: b.Description,
			Color:       b.ColorHex(),
			Unlocked:    ok,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleNeutralize(w http.ResponseWriter, r *http.Request) {
	res, err := s.opts.Intel.Neutralize(chi.URLParam(r, "id"))
	if errors.Is(err, intel.ErrEmptyCategory) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLogs(w http.ResponseWriter, _ *http.Request) {
	entries := s.opts.Logs.Entries()
	if entries == nil {
		entries = []state.LogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleExportLogs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", connlog.ExportFileName(s.opts.Now())))
	w.WriteHeader(http.StatusOK)
	if err := s.opts.Logs.Export(w); err != nil {
		s.log.Warn("log export interrupted", "err", err)
	}
}

func (s *Server) handleClearLogs(w http.ResponseWriter, _ *http.Request) {
	if err := s.opts.Logs.Clear(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	metrics.WritePrometheus(w, true)
}

func connectionErrorStatus(err error) int {
	switch {
	case errors.Is(err, vpn.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, vpn.ErrUnknownServer):
		return http.StatusNotFound
	case errors.Is(err, vpn.ErrNoServer):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
