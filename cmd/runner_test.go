package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/services"
	"github.com/desertthunder/ytdash/internal/session"
	"github.com/desertthunder/ytdash/internal/shared"
	tu "github.com/desertthunder/ytdash/internal/testing"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

type fakeProvider struct{}

func (fakeProvider) AuthCodeURL(state string) string { return "https://accounts.example.com/auth?state=" + state }

func (fakeProvider) Exchange(context.Context, string) (*oauth2.Token, error) {
	return nil, errors.New("not used")
}

func (fakeProvider) UserInfo(context.Context, *oauth2.Token) (*session.UserInfo, error) {
	return nil, errors.New("not used")
}

func (fakeProvider) Refresh(context.Context, *oauth2.Token) (*oauth2.Token, error) {
	return nil, errors.New("not used")
}

type testRunner struct {
	*Runner
	out     *bytes.Buffer
	backend *tu.MemoryBackend
	content *tu.FakeContent
}

func newTestRunner(t *testing.T) *testRunner {
	t.Helper()

	config := shared.DefaultConfig()
	config.Session.Secret = strings.Repeat("s", 32)

	out := &bytes.Buffer{}
	backend := tu.NewMemoryBackend()
	content := &tu.FakeContent{Feeds: []*models.Feed{{
		Channel: models.Channel{ID: "UC123", Title: "Test Channel"},
		Videos: []models.Video{
			{ID: "vid1", Title: "First Upload"},
			{ID: "vid2", Title: "Second Upload"},
		},
		FetchedAt: time.Now(),
	}}}

	r := NewRunner(RunnerOpts{
		Config:      config,
		SessionFile: filepath.Join(t.TempDir(), "session"),
		Provider:    fakeProvider{},
		Content:     content,
		Backend:     backend,
		Logger:      log.New(io.Discard),
		Output:      out,
	})
	t.Cleanup(r.Close)

	return &testRunner{Runner: r, out: out, backend: backend, content: content}
}

// signIn stores a session with a valid access token and saves its id.
func (tr *testRunner) signIn(t *testing.T) *models.Session {
	t.Helper()

	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour)}
	s := models.NewSession("subject-1", "me@example.com", token, time.Hour)
	if err := tr.backend.Create(context.Background(), s); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if err := tr.writeSessionID(s.ID); err != nil {
		t.Fatalf("failed to save session id: %v", err)
	}
	return s
}

func (tr *testRunner) run(args ...string) error {
	app := &cli.Command{
		Name:     "ytdash",
		Flags:    []cli.Flag{verboseFlag()},
		Commands: tr.register(),
		Writer:   io.Discard,
	}
	return app.Run(context.Background(), append([]string{"ytdash"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			backend := tu.NewMemoryBackend()
			content := &tu.FakeContent{}

			runner := NewRunner(RunnerOpts{
				Config:      config,
				ConfigPath:  "/test/path/config.toml",
				SessionFile: "/tmp/session",
				Provider:    fakeProvider{},
				Content:     content,
				Backend:     backend,
				Logger:      logger,
				Output:      output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.content != content {
				t.Error("expected content to be set")
			}
			if runner.backend != backend {
				t.Error("expected backend to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.sessionFile != "/tmp/session" {
				t.Errorf("expected sessionFile to be set, got %s", runner.sessionFile)
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient == nil || runner.httpClient.Timeout == 0 {
				t.Error("expected httpClient with a timeout")
			}
			if !strings.HasSuffix(runner.sessionFile, filepath.Join(".ytdash", "session")) {
				t.Errorf("unexpected default session file %s", runner.sessionFile)
			}
		})

		t.Run("services are built lazily", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.manager != nil || runner.content != nil || runner.provider != nil {
				t.Fatal("expected no services before first use")
			}
			if _, ok := runner.contentService().(*services.YouTubeService); !ok {
				t.Error("expected YouTube content service")
			}
			if _, ok := runner.oauthProvider().(*session.OAuthProvider); !ok {
				t.Error("expected Google OAuth provider")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("writePlainln pads with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			runner.writePlainln("Next steps:")
			if result := output.String(); result != "\nNext steps:\n" {
				t.Errorf("unexpected output %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"serve", "setup", "auth", "videos", "tui"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, cmd := range commands {
			if cmd == nil || cmd.Name != want[i] {
				t.Errorf("command at index %d: expected %s, got %v", i, want[i], cmd)
			}
		}
	})

	t.Run("session file", func(t *testing.T) {
		tr := newTestRunner(t)

		sid, err := tr.readSessionID()
		if err != nil || sid != "" {
			t.Fatalf("expected no saved session, got %q, %v", sid, err)
		}

		if err := tr.writeSessionID("abc"); err != nil {
			t.Fatalf("writeSessionID failed: %v", err)
		}
		info, err := os.Stat(tr.sessionFile)
		if err != nil {
			t.Fatalf("stat failed: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("expected mode 0600, got %v", perm)
		}
		if sid, _ := tr.readSessionID(); sid != "abc" {
			t.Errorf("expected abc, got %q", sid)
		}

		tr.removeSessionID()
		tr.removeSessionID()
		if sid, _ := tr.readSessionID(); sid != "" {
			t.Errorf("expected session id to be removed, got %q", sid)
		}
	})
}

func TestAuthCommands(t *testing.T) {
	t.Run("status without a saved session", func(t *testing.T) {
		tr := newTestRunner(t)

		if err := tr.run("auth", "status"); err != nil {
			t.Fatalf("auth status failed: %v", err)
		}
		if !strings.Contains(tr.out.String(), "Not signed in: no saved session") {
			t.Errorf("unexpected output %q", tr.out.String())
		}
	})

	t.Run("status signed in", func(t *testing.T) {
		tr := newTestRunner(t)
		tr.signIn(t)

		if err := tr.run("auth", "status"); err != nil {
			t.Fatalf("auth status failed: %v", err)
		}
		if !strings.Contains(tr.out.String(), "✓ Signed in as me@example.com") {
			t.Errorf("unexpected output %q", tr.out.String())
		}
	})

	t.Run("status as JSON", func(t *testing.T) {
		tr := newTestRunner(t)
		tr.signIn(t)

		if err := tr.run("auth", "status", "--json"); err != nil {
			t.Fatalf("auth status failed: %v", err)
		}

		var status authStatus
		if err := json.Unmarshal(tr.out.Bytes(), &status); err != nil {
			t.Fatalf("invalid JSON %q: %v", tr.out.String(), err)
		}
		if !status.SignedIn || !status.HasToken || status.Email != "me@example.com" {
			t.Errorf("unexpected status %+v", status)
		}
	})

	t.Run("status with revoked token", func(t *testing.T) {
		tr := newTestRunner(t)
		s := tr.signIn(t)
		s.ClearProviderToken()
		tr.backend.Put(s)

		if err := tr.run("auth", "status"); err != nil {
			t.Fatalf("auth status failed: %v", err)
		}
		if !strings.Contains(tr.out.String(), "Google access was revoked") {
			t.Errorf("unexpected output %q", tr.out.String())
		}
	})

	t.Run("status forgets a deleted session", func(t *testing.T) {
		tr := newTestRunner(t)
		if err := tr.writeSessionID("gone"); err != nil {
			t.Fatal(err)
		}

		if err := tr.run("auth", "status"); err != nil {
			t.Fatalf("auth status failed: %v", err)
		}
		if !strings.Contains(tr.out.String(), "session expired or signed out") {
			t.Errorf("unexpected output %q", tr.out.String())
		}
		if sid, _ := tr.readSessionID(); sid != "" {
			t.Error("expected session file to be removed")
		}
	})

	t.Run("status fails closed on lookup error", func(t *testing.T) {
		tr := newTestRunner(t)
		tr.signIn(t)
		tr.backend.Err = errors.New("disk on fire")

		if err := tr.run("auth", "status"); !errors.Is(err, shared.ErrSessionLookup) {
			t.Errorf("expected ErrSessionLookup, got %v", err)
		}
	})

	t.Run("logout", func(t *testing.T) {
		tr := newTestRunner(t)
		s := tr.signIn(t)

		if err := tr.run("auth", "logout"); err != nil {
			t.Fatalf("auth logout failed: %v", err)
		}
		if tr.backend.Stored(s.ID) != nil {
			t.Error("expected session to be deleted")
		}
		if sid, _ := tr.readSessionID(); sid != "" {
			t.Error("expected session file to be removed")
		}
		if !strings.Contains(tr.out.String(), "✓ Signed out") {
			t.Errorf("unexpected output %q", tr.out.String())
		}
	})

	t.Run("logout without a session", func(t *testing.T) {
		tr := newTestRunner(t)

		if err := tr.run("auth", "logout"); err != nil {
			t.Fatalf("auth logout failed: %v", err)
		}
		if !strings.Contains(tr.out.String(), "Not signed in") {
			t.Errorf("unexpected output %q", tr.out.String())
		}
	})

	t.Run("login requires credentials", func(t *testing.T) {
		tr := newTestRunner(t)
		tr.config.Credentials.Google.ClientID = ""

		if err := tr.run("auth", "login"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("login rejects a redirect without host", func(t *testing.T) {
		tr := newTestRunner(t)

		_, err := tr.doOAuth(context.Background(), fakeProvider{}, "/auth/callback", time.Second)
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestVideosCommand(t *testing.T) {
	t.Run("prints the feed", func(t *testing.T) {
		tr := newTestRunner(t)
		tr.signIn(t)

		if err := tr.run("videos"); err != nil {
			t.Fatalf("videos failed: %v", err)
		}

		output := tr.out.String()
		if !strings.Contains(output, "Channel: Test Channel") || !strings.Contains(output, "1. First Upload") {
			t.Errorf("unexpected output %q", output)
		}
		if tokens := tr.content.Tokens(); len(tokens) != 1 || tokens[0] != "access" {
			t.Errorf("expected one fetch with the session token, got %v", tokens)
		}
	})

	t.Run("exports to a file", func(t *testing.T) {
		tr := newTestRunner(t)
		tr.signIn(t)
		path := filepath.Join(t.TempDir(), "videos.csv")

		if err := tr.run("videos", "--format", "csv", "--output", path); err != nil {
			t.Fatalf("videos failed: %v", err)
		}
		tu.AssertFileExists(t, path)
		if content := tu.MustReadFile(t, path); !strings.Contains(content, "ID,Title,URL,Published,Thumbnail") {
			t.Errorf("unexpected CSV %q", content)
		}
		if !strings.Contains(tr.out.String(), "✓ Exported 2 videos") {
			t.Errorf("unexpected output %q", tr.out.String())
		}
	})

	t.Run("rejected token signs out", func(t *testing.T) {
		tr := newTestRunner(t)
		s := tr.signIn(t)
		tr.content.Errs = []error{services.ErrUnauthorized}

		if err := tr.run("videos"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
		if tr.backend.Stored(s.ID) != nil {
			t.Error("expected session to be deleted")
		}
		if sid, _ := tr.readSessionID(); sid != "" {
			t.Error("expected session file to be removed")
		}
	})

	t.Run("retryable failure", func(t *testing.T) {
		tr := newTestRunner(t)
		s := tr.signIn(t)
		tr.content.Errs = []error{errors.New("quota exceeded")}

		err := tr.run("videos")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if tr.backend.Stored(s.ID) == nil {
			t.Error("a content failure must not sign out")
		}
	})

	t.Run("not signed in", func(t *testing.T) {
		tr := newTestRunner(t)

		if err := tr.run("videos"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if tr.content.Calls() != 0 {
			t.Error("expected no fetch without a session")
		}
	})

	t.Run("invalid flags", func(t *testing.T) {
		tr := newTestRunner(t)
		tr.signIn(t)

		if err := tr.run("videos", "--format", "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for format, got %v", err)
		}
		if err := tr.run("videos", "--thumbnails"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for thumbnails, got %v", err)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("config", func(t *testing.T) {
		tr := newTestRunner(t)
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := tr.run("setup", "config", "--config", path); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		tu.AssertFileExists(t, path)

		if _, err := shared.LoadConfig(path); err != nil {
			t.Errorf("written config does not load: %v", err)
		}
		if err := tr.run("setup", "config", "--config", path); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected existing config to be refused, got %v", err)
		}
	})

	t.Run("database", func(t *testing.T) {
		tr := newTestRunner(t)
		dir := t.TempDir()
		dbPath := filepath.Join(dir, "ytdash.db")
		configPath := filepath.Join(dir, "config.toml")

		conf := "[database]\npath = \"" + filepath.ToSlash(dbPath) + "\"\nmax_open_conns = 1\nmax_idle_conns = 1\n"
		if err := os.WriteFile(configPath, []byte(conf), 0600); err != nil {
			t.Fatal(err)
		}

		if err := tr.run("setup", "database", "--config", configPath); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}
		tu.AssertFileExists(t, dbPath)
		if !strings.Contains(tr.out.String(), "✓ Database ready") {
			t.Errorf("unexpected output %q", tr.out.String())
		}
		if tr.config.Database.Path != filepath.ToSlash(dbPath) {
			t.Errorf("expected --config to be loaded, got %s", tr.config.Database.Path)
		}

		if err := tr.run("setup", "database", "--config", configPath, "--rollback"); err != nil {
			t.Fatalf("rollback failed: %v", err)
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		tr := newTestRunner(t)

		err := tr.run("setup", "database", "--config", filepath.Join(t.TempDir(), "nope.toml"))
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

func TestOpenBackend(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Database.Path = filepath.Join(t.TempDir(), "sessions.db")

		backend, closer, err := openBackend(context.Background(), config, log.New(io.Discard))
		if err != nil {
			t.Fatalf("openBackend failed: %v", err)
		}
		defer closer.Close()

		token := &oauth2.Token{AccessToken: "access", Expiry: time.Now().Add(time.Hour)}
		s := models.NewSession("subject-1", "me@example.com", token, time.Hour)
		if err := backend.Create(context.Background(), s); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if got, err := backend.Get(context.Background(), s.ID); err != nil || got.Email != "me@example.com" {
			t.Errorf("Get returned %+v, %v", got, err)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Session.Backend = "memcached"

		if _, _, err := openBackend(context.Background(), config, log.New(io.Discard)); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
