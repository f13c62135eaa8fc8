// Package web provides the HTTP status page and command API for the
// green-switch daemon.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/sweeney/green-switch/internal/logic"
	"github.com/sweeney/green-switch/internal/status"
)

// maxBody bounds the size of a command request body.
const maxBody = 64

// Server serves the status page and accepts signal commands over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	commands   chan<- logic.Command
}

// CommandResponse is the JSON body returned by the command endpoints.
type CommandResponse struct {
	Accepted string `json:"accepted,omitempty"`
	Error    string `json:"error,omitempty"`
}

// New creates a Server that reads state from the given tracker and queues
// commands on commands. The server never blocks on a full queue.
func New(addr string, tracker *status.Tracker, commands chan<- logic.Command) *Server {
	s := &Server{tracker: tracker, commands: commands}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /index.html", s.handleIndex)
	mux.HandleFunc("GET /index.json", s.handleJSON)
	mux.HandleFunc("POST /api/web", s.handleWeb)
	mux.HandleFunc("POST /api/signals/{name}", s.handleSignal)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the HTTP handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Serve accepts connections on ln. It blocks until the server is shut down.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// handleWeb toggles the web button. It is what the page's button posts to.
func (s *Server) handleWeb(w http.ResponseWriter, r *http.Request) {
	s.enqueue(w, logic.Command{Signal: logic.WebButton, Action: logic.ActionToggle})
}

// handleSignal sets or toggles any signal. The body is ON, OFF or TOGGLE.
func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, CommandResponse{Error: "read body: " + err.Error()})
		return
	}

	cmd, err := logic.ParseCommand(r.PathValue("name"), strings.TrimSpace(string(body)))
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, logic.ErrUnknownSignal) {
			code = http.StatusNotFound
		}
		writeJSON(w, code, CommandResponse{Error: err.Error()})
		return
	}
	s.enqueue(w, cmd)
}

func (s *Server) enqueue(w http.ResponseWriter, cmd logic.Command) {
	select {
	case s.commands <- cmd:
		writeJSON(w, http.StatusAccepted, CommandResponse{Accepted: cmd.String()})
	default:
		writeJSON(w, http.StatusServiceUnavailable, CommandResponse{Error: "command queue full"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
