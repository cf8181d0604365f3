package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdash/internal/repositories"
	"github.com/desertthunder/ytdash/internal/services"
	"github.com/desertthunder/ytdash/internal/session"
	"github.com/desertthunder/ytdash/internal/shared"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The session backend, manager and content client are built on first use so
// that commands like setup work without credentials.
type Runner struct {
	config      *shared.Config
	configPath  string
	sessionFile string
	provider    session.Provider
	content     services.ContentService
	backend     session.Backend
	manager     *session.Manager
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	closers     []io.Closer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	SessionFile string
	Provider    session.Provider
	Content     services.ContentService
	Backend     session.Backend
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.SessionFile == "" {
		opts.SessionFile = defaultSessionFile()
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		sessionFile: opts.SessionFile,
		provider:    opts.Provider,
		content:     opts.Content,
		backend:     opts.Backend,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, authCommand, videosCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by the runner and the services it builds afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Close releases the session backend connection, if one was opened.
func (r *Runner) Close() {
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			r.logger.Warn("failed to close resource", "error", err)
		}
	}
	r.closers = nil
}

// prepare applies the --config and --verbose flags of cmd.
//
// An explicitly passed config must load; the default path is optional and was
// already read by main.
func (r *Runner) prepare(cmd *cli.Command) error {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if !cmd.IsSet("config") {
		return nil
	}

	path := cmd.String("config")
	if path == r.configPath {
		return nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrMissingConfig, err)
	}
	r.config = config
	r.configPath = path
	return nil
}

func (r *Runner) oauthProvider() session.Provider {
	if r.provider == nil {
		r.provider = session.NewGoogleProvider(r.config.Credentials.Google)
	}
	return r.provider
}

func (r *Runner) contentService() services.ContentService {
	if r.content == nil {
		opts := services.YouTubeOptionsFromConfig(r.config.Credentials.YouTube)
		opts.HTTPClient = r.httpClient
		r.content = services.NewYouTubeService(opts)
	}
	return r.content
}

// sessions returns the session manager, opening the configured backend on first use.
func (r *Runner) sessions(ctx context.Context) (*session.Manager, error) {
	if r.manager != nil {
		return r.manager, nil
	}

	if r.backend == nil {
		backend, closer, err := openBackend(ctx, r.config, r.logger)
		if err != nil {
			return nil, err
		}
		r.backend = backend
		r.closers = append(r.closers, closer)
	}

	r.manager = session.NewManager(r.backend, r.oauthProvider(), session.OptionsFromConfig(r.config, r.logger))
	return r.manager, nil
}

// openBackend connects the session store named by [session] backend.
func openBackend(ctx context.Context, config *shared.Config, logger *log.Logger) (session.Backend, io.Closer, error) {
	switch config.Session.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("%w: redis at %s: %w", shared.ErrServiceUnavailable, config.Redis.Addr, err)
		}
		logger.Debug("using redis session backend", "addr", config.Redis.Addr)
		return repositories.NewRedisSessionStore(client, config.Redis.Prefix), client, nil

	case "", "sqlite":
		db, err := shared.OpenDatabase(ctx, config.Database)
		if err != nil {
			return nil, nil, err
		}

		if err := shared.RunMigrationsContext(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Debug("using sqlite session backend", "path", config.Database.Path)
		return repositories.NewSessionRepository(db), db, nil
	}

	return nil, nil, fmt.Errorf("%w: unknown session backend %q", shared.ErrInvalidConfig, config.Session.Backend)
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".ytdash", "session")
	}
	return filepath.Join(home, ".ytdash", "session")
}

// readSessionID returns the id saved by auth login, or "" when there is none.
func (r *Runner) readSessionID() (string, error) {
	data, err := os.ReadFile(r.sessionFile)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (r *Runner) writeSessionID(sid string) error {
	if err := os.MkdirAll(filepath.Dir(r.sessionFile), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(r.sessionFile, []byte(sid+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

func (r *Runner) removeSessionID() {
	if err := os.Remove(r.sessionFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.logger.Warn("failed to remove session file", "path", r.sessionFile, "error", err)
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
