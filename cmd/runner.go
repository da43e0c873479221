package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sp2yt/internal/auth"
	"github.com/desertthunder/sp2yt/internal/repositories"
	"github.com/desertthunder/sp2yt/internal/services"
	"github.com/desertthunder/sp2yt/internal/shared"
	"github.com/desertthunder/sp2yt/internal/tasks"
	"github.com/urfave/cli/v3"
)

// cliSession is the grant key used by every terminal command.
const cliSession = "cli"

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services are built lazily by [Runner.init] so that commands like setup run without credentials.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	open       func(string) error

	db        *sql.DB
	grants    auth.GrantStore
	manager   *auth.Manager
	converter *tasks.Converter
	history   *repositories.ConversionRepository
	closers   []func() error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	// DB and Grants replace the stores named in Config when set.
	DB     *sql.DB
	Grants auth.GrantStore
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
		opts.HTTPClient = shared.NewHTTPClient(opts.Config.HTTP.Timeout())
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		open:       shared.OpenBrowser,
		db:         opts.DB,
		grants:     opts.Grants,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, searchCommand, convertCommand, authCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig replaces the runner config with the file named by --config, if it exists.
func (r *Runner) loadConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	r.configPath = path

	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else {
		r.config.ApplyEnv()
	}

	level := r.config.Log.Level
	if cmd.Bool("verbose") {
		level = "debug"
	}
	shared.SetLogLevel(r.logger, shared.ParseLevel(level))
	r.httpClient.Timeout = r.config.HTTP.Timeout()
	return ctx, nil
}

// openStore opens the SQLite store once, applying migrations.
func (r *Runner) openStore() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenStore(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	r.db = db
	r.closers = append(r.closers, db.Close)
	return db, nil
}

// grantStore builds the grant store selected by store.driver.
func (r *Runner) grantStore(ctx context.Context) (auth.GrantStore, error) {
	if r.grants != nil {
		return r.grants, nil
	}

	switch r.config.Store.Driver {
	case "memory":
		r.grants = auth.NewMemoryStore()
	case "redis":
		client, err := repositories.NewRedisClient(ctx, r.config.Redis)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, client.Close)
		r.grants = repositories.NewRedisGrantStore(client, r.config.Redis.KeyPrefix)
	default:
		db, err := r.openStore()
		if err != nil {
			return nil, err
		}
		r.grants = repositories.NewGrantRepository(db)
	}

	r.logger.Debug("grant store ready", "driver", r.config.Store.Driver)
	return r.grants, nil
}

// init wires the services, the session manager and the converter.
func (r *Runner) init(ctx context.Context) error {
	if r.converter != nil {
		return nil
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	db, err := r.openStore()
	if err != nil {
		return err
	}
	grants, err := r.grantStore(ctx)
	if err != nil {
		return err
	}

	manager, err := auth.NewManager(auth.NewConfig(r.config.Credentials.YouTube), grants, auth.Options{
		RefreshAttempts: r.config.Auth.RefreshAttempts,
		HTTPClient:      r.httpClient,
		Logger:          r.logger,
	})
	if err != nil {
		return err
	}

	spotify, err := services.NewSpotifyService(r.config.Credentials.Spotify, r.httpClient, r.logger)
	if err != nil {
		return err
	}
	youtube := services.NewYouTubeService(r.config.Credentials.YouTube, r.httpClient, r.logger)
	matcher := tasks.NewMatcher(youtube, tasks.MatcherOpts{
		Workers:   r.config.Matcher.Workers,
		RateLimit: r.config.Matcher.RateLimit,
	}, r.logger)

	r.manager = manager
	r.history = repositories.NewConversionRepository(db)
	r.converter = tasks.NewConverter(spotify, matcher, youtube, manager, r.logger).WithRecorder(r.history)
	return nil
}

// Close releases the stores opened by the runner.
func (r *Runner) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
