package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/skobkin/serialwifi/internal/app"
	"github.com/skobkin/serialwifi/internal/console"
	"github.com/skobkin/serialwifi/internal/domain"
	"github.com/skobkin/serialwifi/internal/events"
	"github.com/skobkin/serialwifi/internal/transport"
)

const (
	maxRequestBytes        = 64 * 1024
	defaultTranscriptLimit = 200
)

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	Rev    uint64                  `json:"rev"`
	Status events.ConnectionStatus `json:"status"`
	Device domain.DeviceInfo       `json:"device"`
}

type logResponse struct {
	Rev     uint64            `json:"rev"`
	Entries []domain.LogEntry `json:"entries"`
}

// sendRequest keeps Text nullable: an empty line is a valid send, a missing
// field is not.
type sendRequest struct {
	Text *string `json:"text"`
}

type wifiCredsRequest struct {
	SSID string `json:"ssid"`
	Pass string `json:"pass"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type clearResponse struct {
	Removed int64 `json:"removed"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.deps.Session.Snapshot()
	writeJSON(w, http.StatusOK, statusResponse{Rev: snap.Rev, Status: snap.Status, Device: snap.Device})
}

func (s *Server) handleLog(w http.ResponseWriter, _ *http.Request) {
	snap := s.deps.Session.Snapshot()
	entries := snap.Entries
	if entries == nil {
		entries = []domain.LogEntry{}
	}
	writeJSON(w, http.StatusOK, logResponse{Rev: snap.Rev, Entries: entries})
}

func (s *Server) handlePorts(w http.ResponseWriter, _ *http.Request) {
	ports, err := s.deps.ListPorts()
	if err != nil {
		s.logger.Warn("list ports failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)

		return
	}
	if ports == nil {
		ports = []transport.PortInfo{}
	}
	writeJSON(w, http.StatusOK, ports)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var opts console.ConnectOptions
	if err := decodeJSON(r, &opts, true); err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}
	if opts.Baud < 0 {
		writeError(w, http.StatusBadRequest, errors.New("baud must be positive"))

		return
	}

	s.respond(w, s.deps.Controller.Connect(r.Context(), opts))
}

func (s *Server) handleDisconnect(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, s.deps.Controller.Disconnect())
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}
	if req.Text == nil {
		writeError(w, http.StatusBadRequest, errors.New("text is required"))

		return
	}

	s.respond(w, s.deps.Controller.SendLine(r.Context(), *req.Text))
}

func (s *Server) handleGetIP(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.deps.Controller.QueryIP(r.Context()))
}

func (s *Server) handleGetMACAddress(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.deps.Controller.QueryMACAddress(r.Context()))
}

func (s *Server) handleSetWiFiCreds(w http.ResponseWriter, r *http.Request) {
	var req wifiCredsRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}
	if req.SSID == "" {
		writeError(w, http.StatusBadRequest, errors.New("ssid is required"))

		return
	}

	s.respond(w, s.deps.Controller.SetWiFiCredentials(r.Context(), req.SSID, req.Pass))
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if s.deps.Transcript == nil {
		writeError(w, http.StatusNotFound, app.ErrTranscriptDisabled)

		return
	}

	limit := defaultTranscriptLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit: %q", raw))

			return
		}
		limit = v
	}

	entries, err := s.deps.Transcript.RecentTranscript(r.Context(), limit)
	if err != nil {
		writeError(w, transcriptErrorStatus(err), err)

		return
	}
	if entries == nil {
		entries = []domain.TranscriptEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleClearTranscript(w http.ResponseWriter, r *http.Request) {
	if s.deps.Transcript == nil {
		writeError(w, http.StatusNotFound, app.ErrTranscriptDisabled)

		return
	}

	removed, err := s.deps.Transcript.ClearTranscript(r.Context())
	if err != nil {
		writeError(w, transcriptErrorStatus(err), err)

		return
	}
	writeJSON(w, http.StatusOK, clearResponse{Removed: removed})
}

// respond maps controller errors to HTTP statuses. The console log already
// carries the operator-facing error line.
func (s *Server) respond(w http.ResponseWriter, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, okResponse{OK: true})

		return
	}
	status := http.StatusInternalServerError
	if errors.Is(err, console.ErrNotConnected) || errors.Is(err, console.ErrAlreadyConnected) {
		status = http.StatusConflict
	}
	s.logger.Debug("api request failed", "status", status, "error", err)
	writeError(w, status, err)
}

func transcriptErrorStatus(err error) int {
	if errors.Is(err, app.ErrTranscriptDisabled) {
		return http.StatusNotFound
	}

	return http.StatusInternalServerError
}

// decodeJSON reads a JSON body. allowEmpty accepts a missing body as zero value.
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}

		return fmt.Errorf("decode request: %w", err)
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
