// Package web serves the heart-button status page and its JSON twin.
package web

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/sweeney/heart-button/internal/status"
)

// Snapshotter supplies the state to render. *status.Tracker satisfies it.
type Snapshotter interface {
	Snapshot() status.Snapshot
}

// Server serves the status page over HTTP. It only reads state.
type Server struct {
	addr  string
	state Snapshotter
	http  *http.Server
}

// New creates a Server for addr reading from state.
func New(addr string, state Snapshotter) *Server {
	s := &Server{addr: addr, state: state}
	s.http = &http.Server{Addr: addr, Handler: s.routes()}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handlePage)
	mux.HandleFunc("/index.json", s.handleJSON)
	return mux
}

// Listen binds the configured address. The returned listener reports the
// bound address, which differs from the configured one for ":0".
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return ln, nil
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	return s.http.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// handlePage renders the HTML page for "/" and "/index.html".
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	if !readOnly(w, r) {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, s.state.Snapshot())
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	if !readOnly(w, r) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	// Counters move on every render pass.
	w.Header().Set("Cache-Control", "no-store")
	w.Write(status.FormatJSON(s.state.Snapshot()))
}

// readOnly rejects anything but GET and HEAD.
func readOnly(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}
