// Package viewer serves rendered figures over HTTP until its context is
// cancelled.
package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/banshee-data/climate.report/internal/chart"
	"github.com/banshee-data/climate.report/internal/httputil"
	"github.com/banshee-data/climate.report/internal/monitoring"
	"github.com/banshee-data/climate.report/internal/timeutil"
	"github.com/banshee-data/climate.report/internal/version"
)

// ShutdownTimeout bounds how long in-flight requests may take once the
// server is asked to stop.
const ShutdownTimeout = 5 * time.Second

// ErrNoFigures is returned when a server is built without any figure.
var ErrNoFigures = errors.New("viewer: no figures")

type page struct {
	title  string
	html   []byte
	option json.RawMessage
}

// Server holds pre-rendered figures. The first figure is the index page.
type Server struct {
	first string
	pages map[string]page
	clock timeutil.Clock
}

// NewServer renders every figure once up front so requests only copy bytes.
func NewServer(figures ...*chart.Figure) (*Server, error) {
	if len(figures) == 0 {
		return nil, ErrNoFigures
	}
	s := &Server{
		first: figures[0].Name,
		pages: make(map[string]page, len(figures)),
		clock: timeutil.RealClock{},
	}
	for _, f := range figures {
		html, err := f.HTML()
		if err != nil {
			return nil, err
		}
		option, err := f.Option()
		if err != nil {
			return nil, err
		}
		s.pages[f.Name] = page{title: f.Title, html: html, option: option}
	}
	return s, nil
}

// ServeMux mounts the viewer routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/figures/", s.handleFigure)
	mux.HandleFunc("/api/chart", s.handleChart)
	mux.HandleFunc("/api/figures", s.handleFigures)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Handler wraps the routes with request logging.
func (s *Server) Handler() http.Handler {
	return httputil.LoggingMiddleware(s.clock, s.ServeMux())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if r.URL.Path != "/" {
		httputil.NotFound(w, "not found")
		return
	}
	httputil.WriteHTML(w, s.pages[s.first].html)
}

func (s *Server) handleFigure(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	name := r.URL.Path[len("/figures/"):]
	p, ok := s.pages[name]
	if !ok {
		httputil.NotFound(w, fmt.Sprintf("unknown figure %q", name))
		return
	}
	httputil.WriteHTML(w, p.html)
}

type chartResponse struct {
	Name   string          `json:"name"`
	Title  string          `json:"title"`
	Option json.RawMessage `json:"option"`
}

// handleChart returns the initial echarts option of a figure. The name
// query parameter defaults to the index figure.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = s.first
	}
	p, ok := s.pages[name]
	if !ok {
		httputil.NotFound(w, fmt.Sprintf("unknown figure %q", name))
		return
	}
	httputil.WriteJSONOK(w, chartResponse{Name: name, Title: p.title, Option: p.option})
}

type figureSummary struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Path  string `json:"path"`
}

func (s *Server) handleFigures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	out := make([]figureSummary, 0, len(s.pages))
	for name, p := range s.pages {
		out = append(out, figureSummary{Name: name, Title: p.title, Path: "/figures/" + name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	httputil.WriteJSONOK(w, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"git_sha": version.GitSHA,
	})
}

// Run listens on addr and serves until ctx is cancelled, then shuts down
// gracefully. It returns once the listener has stopped.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		monitoring.Logf("serving figures on http://%s/", ln.Addr())
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}
	<-errc
	monitoring.Logf("HTTP server routine stopped")
	return nil
}
