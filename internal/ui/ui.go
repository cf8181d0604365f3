package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytdash/internal/dashboard"
	"github.com/desertthunder/ytdash/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoadingView ViewState = iota
	FeedView
	SignedOutView
)

// Dashboard is what the TUI drives. [dashboard.Dashboard] satisfies it.
type Dashboard interface {
	Load(ctx context.Context) dashboard.State
	RefreshSession(ctx context.Context) dashboard.State
	Run(ctx context.Context, updates chan<- dashboard.State) error
	Close()
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	view    ViewState
	dash    Dashboard
	open    func(url string) error
	width   int
	height  int
	videos  list.Model
	state   dashboard.State
	updates chan dashboard.State
	err     error
	help    help.Model
	keys    keyMap
}

// NewModel creates a new TUI model around d.
func NewModel(ctx context.Context, d Dashboard) *Model {
	ctx, cancel := context.WithCancel(ctx)
	videos := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	videos.SetShowHelp(false)

	return &Model{
		ctx:     ctx,
		cancel:  cancel,
		view:    LoadingView,
		dash:    d,
		open:    shared.OpenBrowser,
		videos:  videos,
		updates: make(chan dashboard.State),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init loads the feed and starts the background run loop.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.startRun())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.videos.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		switch msg.kind {
		case MsgStateLoaded:
			m.apply(msg.data.(dashboard.State))
			return m, nil
		case MsgStatePushed:
			m.apply(msg.data.(dashboard.State))
			if m.view == SignedOutView {
				return m, nil
			}
			return m, m.waitForUpdate()
		case MsgStreamClosed:
			return m, nil
		case MsgOpenFailed:
			m.err = msg.data.(error)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.videos, cmd = m.videos.Update(msg)
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case LoadingView:
		return styles.status(levelInfo, "Loading your uploads...")
	case SignedOutView:
		return m.renderSignedOut()
	default:
		return m.renderFeed()
	}
}

// SignedOut reports whether the session ended while the UI was running.
func (m *Model) SignedOut() bool {
	return m.view == SignedOutView
}

// Close stops the background loop and releases the dashboard.
func (m *Model) Close() {
	m.cancel()
	m.dash.Close()
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.Close()
		return m, tea.Quit
	case m.view == SignedOutView:
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		m.err = nil
		return m, m.refresh()
	case key.Matches(msg, m.keys.open):
		if item, ok := m.videos.SelectedItem().(videoItem); ok {
			return m, m.openVideo(item.video.URL())
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.videos, cmd = m.videos.Update(msg)
	return m, cmd
}

func (m *Model) apply(state dashboard.State) {
	m.state = state
	if state.SignedOut {
		m.view = SignedOutView
		m.Close()
		return
	}

	m.view = FeedView
	if state.Feed != nil {
		m.videos.Title = state.Feed.Channel.Title
		m.videos.SetItems(videoItems(state.Feed.Videos))
	}
}

func (m *Model) load() tea.Cmd {
	return func() tea.Msg {
		return stateLoadedMsg(m.dash.Load(m.ctx))
	}
}

func (m *Model) refresh() tea.Cmd {
	return func() tea.Msg {
		return stateLoadedMsg(m.dash.RefreshSession(m.ctx))
	}
}

func (m *Model) startRun() tea.Cmd {
	go func() {
		_ = m.dash.Run(m.ctx, m.updates)
		close(m.updates)
	}()
	return m.waitForUpdate()
}

func (m *Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		state, ok := <-m.updates
		if !ok {
			return streamClosedMsg()
		}
		return statePushedMsg(state)
	}
}

func (m *Model) openVideo(url string) tea.Cmd {
	return func() tea.Msg {
		if err := m.open(url); err != nil {
			return openFailedMsg(err)
		}
		return nil
	}
}

func (m *Model) renderFeed() string {
	var status string
	switch {
	case m.state.Retryable():
		status = styles.status(levelErr, fmt.Sprintf("Could not load your videos: %v", m.state.Err)) +
			"\n" + styles.status(levelWarn, "Press r to retry")
	case m.err != nil:
		status = styles.status(levelWarn, fmt.Sprintf("Could not open browser: %v", m.err))
	case !m.state.UpdatedAt.IsZero():
		status = styles.status(levelOK, "Last updated "+m.state.UpdatedAt.Format("3:04:05 PM"))
	}

	body := m.videos.View()
	if m.state.Feed != nil && len(m.state.Feed.Videos) == 0 {
		body = styles.title.Render(m.state.Feed.Channel.Title) + "\n" + styles.help.Render("No uploads yet.")
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", body, status, m.help.ShortHelpView(m.keys.ShortHelp()))
}

func (m *Model) renderSignedOut() string {
	title := styles.title.Render("Signed out")
	info := "Your session has ended. Run `ytdash auth login` to sign in again."
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", styles.panel.Render(title+"\n"+info), helpView)
}
