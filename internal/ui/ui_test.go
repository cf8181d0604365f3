package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytdash/internal/dashboard"
	"github.com/desertthunder/ytdash/internal/models"
)

type fakeDashboard struct {
	mu        sync.Mutex
	load      dashboard.State
	refreshed dashboard.State
	pushed    []dashboard.State
	refreshes int
	closed    int
}

func (f *fakeDashboard) Load(context.Context) dashboard.State { return f.load }

func (f *fakeDashboard) RefreshSession(context.Context) dashboard.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return f.refreshed
}

func (f *fakeDashboard) Run(ctx context.Context, updates chan<- dashboard.State) error {
	for _, s := range f.pushed {
		select {
		case updates <- s:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *fakeDashboard) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

func feedState() dashboard.State {
	return dashboard.State{
		Feed: &models.Feed{
			Channel: models.Channel{ID: "UC1", Title: "Test Channel"},
			Videos: []models.Video{
				{ID: "vid1", Title: "First Upload"},
				{ID: "vid2", Title: "Second Upload"},
			},
		},
		UpdatedAt: time.Date(2024, 1, 1, 15, 4, 5, 0, time.UTC),
	}
}

func newTestModel(d *fakeDashboard) *Model {
	m := NewModel(context.Background(), d)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func keyRune(r string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r)}
}

func TestModel(t *testing.T) {
	t.Run("loading", func(t *testing.T) {
		m := newTestModel(&fakeDashboard{})
		if !strings.Contains(m.View(), "Loading") {
			t.Error("expected loading view before the first state")
		}
	})

	t.Run("feed loaded", func(t *testing.T) {
		m := newTestModel(&fakeDashboard{})
		m.Update(stateLoadedMsg(feedState()))

		if m.view != FeedView {
			t.Fatalf("expected FeedView, got %v", m.view)
		}
		if got := len(m.videos.Items()); got != 2 {
			t.Errorf("expected 2 items, got %d", got)
		}
		view := m.View()
		if !strings.Contains(view, "First Upload") || !strings.Contains(view, "Last updated 3:04:05 PM") {
			t.Errorf("unexpected view:\n%s", view)
		}
	})

	t.Run("retryable error keeps feed", func(t *testing.T) {
		m := newTestModel(&fakeDashboard{})
		m.Update(stateLoadedMsg(feedState()))

		st := feedState()
		st.Err = errors.New("quota exceeded")
		m.Update(stateLoadedMsg(st))

		view := m.View()
		if !strings.Contains(view, "quota exceeded") || !strings.Contains(view, "Press r to retry") {
			t.Errorf("expected retry prompt, got:\n%s", view)
		}
		if m.view != FeedView {
			t.Error("a content failure must not leave the feed view")
		}
	})

	t.Run("signed out", func(t *testing.T) {
		d := &fakeDashboard{}
		m := newTestModel(d)
		m.Update(stateLoadedMsg(dashboard.State{SignedOut: true, Redirect: "/login"}))

		if !m.SignedOut() {
			t.Fatalf("expected SignedOutView, got %v", m.view)
		}
		if !strings.Contains(m.View(), "ytdash auth login") {
			t.Error("expected sign-in hint")
		}
		if d.closed == 0 {
			t.Error("expected dashboard to be closed")
		}
		if m.ctx.Err() == nil {
			t.Error("expected background context to be cancelled")
		}

		if _, cmd := m.Update(keyRune("r")); cmd != nil {
			t.Error("refresh must be ignored once signed out")
		}
	})

	t.Run("refresh key", func(t *testing.T) {
		d := &fakeDashboard{refreshed: feedState()}
		m := newTestModel(d)
		m.Update(stateLoadedMsg(feedState()))

		_, cmd := m.Update(keyRune("r"))
		if cmd == nil {
			t.Fatal("expected refresh command")
		}
		msg, ok := cmd().(Msg)
		if !ok || msg.kind != MsgStateLoaded {
			t.Fatalf("expected state loaded message, got %v", msg)
		}
		if d.refreshes != 1 {
			t.Errorf("expected one refresh, got %d", d.refreshes)
		}
	})

	t.Run("open selected video", func(t *testing.T) {
		m := newTestModel(&fakeDashboard{})
		m.Update(stateLoadedMsg(feedState()))

		var opened string
		m.open = func(url string) error {
			opened = url
			return nil
		}

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if cmd == nil {
			t.Fatal("expected open command")
		}
		cmd()
		if opened != "https://www.youtube.com/watch?v=vid1" {
			t.Errorf("expected first video URL, got %q", opened)
		}
	})

	t.Run("open failure", func(t *testing.T) {
		m := newTestModel(&fakeDashboard{})
		m.Update(stateLoadedMsg(feedState()))
		m.open = func(string) error { return errors.New("no browser") }

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m.Update(cmd())
		if !strings.Contains(m.View(), "no browser") {
			t.Error("expected browser error in view")
		}
	})

	t.Run("quit", func(t *testing.T) {
		d := &fakeDashboard{}
		m := newTestModel(d)

		_, cmd := m.Update(keyRune("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
		if d.closed == 0 {
			t.Error("expected dashboard to be closed on quit")
		}
	})
}

func TestRunLoop(t *testing.T) {
	signedOut := dashboard.State{SignedOut: true, Redirect: "/login"}
	d := &fakeDashboard{pushed: []dashboard.State{feedState(), signedOut}}
	m := newTestModel(d)

	cmd := m.startRun()
	msg := cmd().(Msg)
	if msg.kind != MsgStatePushed {
		t.Fatalf("expected pushed state, got %v", msg.kind)
	}

	_, next := m.Update(msg)
	if m.view != FeedView || next == nil {
		t.Fatal("expected feed view and another wait")
	}

	msg = next().(Msg)
	_, next = m.Update(msg)
	if m.view != SignedOutView {
		t.Errorf("expected pushed sign out to switch views, got %v", m.view)
	}
	if next != nil {
		t.Error("no further waits after sign out")
	}

	if closed := m.waitForUpdate()().(Msg); closed.kind != MsgStreamClosed {
		t.Errorf("expected stream closed, got %v", closed.kind)
	}
}
