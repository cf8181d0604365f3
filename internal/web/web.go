package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdash/internal/gate"
	"github.com/desertthunder/ytdash/internal/server"
	"github.com/desertthunder/ytdash/internal/services"
	"github.com/desertthunder/ytdash/internal/session"
	"github.com/desertthunder/ytdash/internal/shared"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const (
	eventsPath  = "/dashboard/events"
	refreshPath = "/dashboard/refresh"
	videosPath  = "/api/videos"
	healthPath  = "/healthz"
	startPath   = "/auth/google"
	signOutPath = "/auth/signout"
)

// Deps are the collaborators of a [Server]. Registry may be nil.
type Deps struct {
	Config   *shared.Config
	Manager  *session.Manager
	Provider session.Provider
	Content  services.ContentService
	Logger   *log.Logger
	Registry *prometheus.Registry
}

// Server is the ytdash web application.
type Server struct {
	cfg      *shared.Config
	manager  *session.Manager
	content  services.ContentService
	gate     *gate.Gate
	auth     *server.AuthHandler
	registry *prometheus.Registry
	pages    map[string]*template.Template
	logger   *log.Logger
	interval time.Duration
}

// New wires the gate, auth handlers and dashboard pages.
func New(d Deps) (*Server, error) {
	if d.Config == nil || d.Manager == nil || d.Provider == nil || d.Content == nil {
		return nil, fmt.Errorf("%w: web server dependencies", shared.ErrMissingArgument)
	}
	if d.Logger == nil {
		d.Logger = log.New(io.Discard)
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
		d.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	cfg := d.Config
	g := gate.New(d.Manager, gate.RoutesFromConfig(cfg.Gate), gate.Options{
		LoginPath: cfg.Gate.LoginPath,
		HomePath:  cfg.Gate.HomePath,
		Logger:    d.Logger,
		Metrics:   gate.NewMetrics(d.Registry),
	})

	auth := server.NewAuthHandler(d.Provider, d.Manager, server.AuthOptions{
		StartPath:    startPath,
		CallbackPath: cfg.Gate.CallbackPath,
		SignOutPath:  signOutPath,
		LoginPath:    g.LoginPath(),
		HomePath:     g.HomePath(),
		Secure:       cfg.Session.Secure,
		Logger:       d.Logger,
	})

	return &Server{
		cfg:      cfg,
		manager:  d.Manager,
		content:  d.Content,
		gate:     g,
		auth:     auth,
		registry: d.Registry,
		pages:    pages,
		logger:   shared.WithLogger(d.Logger, "component", "web"),
		interval: cfg.RefreshInterval(),
	}, nil
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template)
	for _, name := range []string{"login", "dashboard"} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// Handler returns the application with logging and the access gate in front
// of every route.
func (s *Server) Handler() http.Handler {
	static, _ := fs.Sub(staticFS, "static")

	r := server.NewBasicRouter()
	r.Handler(s.auth)
	r.HandleFunc(http.MethodGet, s.gate.LoginPath(), s.Login)
	r.HandleFunc(http.MethodGet, s.gate.HomePath(), s.Dashboard)
	r.HandleFunc(http.MethodGet, eventsPath, s.Events)
	r.HandleFunc(http.MethodPost, refreshPath, s.Refresh)
	r.HandleFunc(http.MethodGet, videosPath, s.Videos)
	r.HandleFunc(http.MethodGet, healthPath, s.Health)
	r.Handle(http.MethodGet, "/static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	r.HandleFunc(http.MethodGet, "/", s.Root)

	return server.Chain(r, server.Logging(s.logger), s.gate.Handle)
}

// MetricsHandler serves the prometheus registry.
func (s *Server) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

// ListenAndServe serves until ctx is done, then shuts down gracefully. The
// metrics listener runs only when server.metrics_addr is set.
func (s *Server) ListenAndServe(ctx context.Context) error {
	base := func(net.Listener) context.Context { return ctx }
	servers := []*http.Server{{
		Addr:              s.cfg.Server.Addr(),
		Handler:           s.Handler(),
		BaseContext:       base,
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if addr := s.cfg.Server.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.MetricsHandler())
		servers = append(servers, &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second})
	}

	errc := make(chan error, len(servers))
	for _, srv := range servers {
		s.logger.Info("listening", "addr", srv.Addr)
		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}(srv)
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("error shutting down server", "addr", srv.Addr, "error", err)
		}
	}
	return serveErr
}
