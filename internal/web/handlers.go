package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/desertthunder/ytdash/internal/dashboard"
	"github.com/desertthunder/ytdash/internal/gate"
	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/services"
	"github.com/desertthunder/ytdash/internal/session"
)

type loginPage struct {
	StartPath string
}

type dashboardPage struct {
	Channel     models.Channel
	Videos      []models.Video
	Email       string
	Err         string
	UpdatedAt   time.Time
	HomePath    string
	EventsPath  string
	RefreshPath string
	SignOutPath string
}

// Login renders the sign-in page. Signed-in callers never get here; the gate
// sends them home.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	s.render(w, "login", loginPage{StartPath: startPath})
}

// Root sends the bare origin to the dashboard.
func (s *Server) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, s.gate.HomePath(), http.StatusFound)
}

// Health reports liveness. It is excluded from the gate.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

// Dashboard renders the feed of the request's session.
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, ok := s.open(w, r)
	if !ok {
		return
	}
	defer d.Close()

	st := d.Load(r.Context())
	if st.SignedOut {
		s.signedOut(w, r, st)
		return
	}

	page := dashboardPage{
		UpdatedAt:   st.UpdatedAt,
		HomePath:    s.gate.HomePath(),
		EventsPath:  eventsPath,
		RefreshPath: refreshPath,
		SignOutPath: signOutPath,
	}
	if sess := d.Session(); sess != nil {
		page.Email = sess.Email
	}
	if st.Feed != nil {
		page.Channel = st.Feed.Channel
		page.Videos = st.Feed.Videos
	}
	if page.Channel.Title == "" {
		page.Channel.Title = models.DefaultChannelTitle
	}
	if st.Err != nil {
		page.Err = describe(st.Err)
	}

	s.render(w, "dashboard", page)
}

// Refresh forces a token refresh and returns to the dashboard.
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	d, ok := s.open(w, r)
	if !ok {
		return
	}
	defer d.Close()

	if st := d.RefreshSession(r.Context()); st.SignedOut {
		s.signedOut(w, r, st)
		return
	}
	http.Redirect(w, r, s.gate.HomePath(), http.StatusSeeOther)
}

// open builds a dashboard for the session the gate attached to r.
func (s *Server) open(w http.ResponseWriter, r *http.Request) (*dashboard.Dashboard, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, s.gate.LoginPath(), http.StatusFound)
		return nil, false
	}
	return dashboard.New(s.manager, s.content, sess, dashboard.Options{
		LoginPath:       s.gate.LoginPath(),
		RefreshInterval: s.interval,
		Logger:          s.logger,
	}), true
}

// signedOut clears the cookie and navigates to the state's redirect.
func (s *Server) signedOut(w http.ResponseWriter, r *http.Request, st dashboard.State) {
	s.manager.ClearCookie(w)
	gate.NoCache(w.Header())
	http.Redirect(w, r, st.Redirect, http.StatusFound)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error("failed to render template", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func describe(err error) string {
	if errors.Is(err, services.ErrChannelNotFound) {
		return "No YouTube channel found for this account."
	}
	return "Could not load your videos. Please try again."
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
