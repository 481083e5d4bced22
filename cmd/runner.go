package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playlist-etl/internal/formatter"
	"github.com/desertthunder/playlist-etl/internal/queue"
	"github.com/desertthunder/playlist-etl/internal/repositories"
	"github.com/desertthunder/playlist-etl/internal/services"
	"github.com/desertthunder/playlist-etl/internal/shared"
	"github.com/desertthunder/playlist-etl/internal/storage"
	"github.com/desertthunder/playlist-etl/internal/tasks"
	"github.com/go-redis/redis/v8"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Connections are opened on first use so commands that do not need Redis or the ledger never touch them.
type Runner struct {
	config     *shared.Config
	configPath string
	getenv     func(string) string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	sink       storage.Sink
	redis      *redis.Client
	db         *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Getenv     func(string) string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Sink       storage.Sink
	Redis      *redis.Client
	DB         *sql.DB
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
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		getenv:     opts.Getenv,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		sink:       opts.Sink,
		redis:      opts.Redis,
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, runCommand, workerCommand, queueCommand, inspectCommand, runsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// LoadConfig is the root Before hook: it reads --config when the file exists, applies environment overrides,
// and sets the log level.
func (r *Runner) LoadConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return ctx, err
			}
			r.config = config
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}
	}

	r.config.ApplyEnv(r.getenv)

	level := r.config.Log.Level
	if cmd.Bool("debug") {
		level = "debug"
	}
	if err := shared.SetLogLevel(r.logger, level); err != nil {
		r.logger.Warn("unknown log level, keeping default", "level", level)
	}
	return ctx, nil
}

// Close releases any connections opened by commands.
func (r *Runner) Close() {
	if r.redis != nil {
		r.redis.Close()
	}
	if r.db != nil {
		r.db.Close()
	}
}

func (r *Runner) redisClient(ctx context.Context) (*redis.Client, error) {
	if r.redis != nil {
		return r.redis, nil
	}
	client, err := shared.NewRedisClient(ctx, r.config.Queue.RedisAddr)
	if err != nil {
		return nil, err
	}
	r.redis = client
	return client, nil
}

func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	r.db = db
	return db, nil
}

func (r *Runner) ledger() (*repositories.RunRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewRunRepository(db), nil
}

func (r *Runner) tokenCache(ctx context.Context) (services.TokenCache, error) {
	if err := r.config.Validate(); err != nil {
		return nil, err
	}
	creds := r.config.Credentials.Spotify
	exchanger, err := services.NewClientCredentials(creds.ClientID, creds.ClientSecret, r.config.API.TokenURL, r.httpClient)
	if err != nil {
		return nil, err
	}

	switch r.config.Tokens.Backend {
	case "redis":
		client, err := r.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		return services.NewRedisTokenCache(client, exchanger, r.config.Tokens.Scope), nil
	default:
		return services.NewMemoryTokenCache(exchanger), nil
	}
}

func (r *Runner) openSink(ctx context.Context) (storage.Sink, error) {
	if r.sink != nil {
		return r.sink, nil
	}
	switch r.config.Storage.Backend {
	case "local":
		r.sink = storage.NewLocalSink(r.config.Storage.LocalDir)
	default:
		sink, err := storage.NewS3SinkFromConfig(ctx, r.config.Storage.Region)
		if err != nil {
			return nil, err
		}
		r.sink = sink
	}
	return r.sink, nil
}

// catalog builds the zmb3 client used for artist lookups and playlist metadata.
func (r *Runner) catalog(ctx context.Context, tokens services.TokenCache) *services.Catalog {
	client := services.NewTokenClient(ctx, tokens, r.httpClient.Transport)
	return services.NewCatalog(client, r.config.API.BaseURL)
}

// pipeline wires the fetcher, enricher, sink and ledger from config.
//
// enrich and format override the config when set.
func (r *Runner) pipeline(ctx context.Context, enrich bool, format string) (*tasks.Pipeline, error) {
	tokens, err := r.tokenCache(ctx)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = r.config.Storage.Format
	}
	f, err := formatter.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	sink, err := r.openSink(ctx)
	if err != nil {
		return nil, err
	}

	opts := tasks.PipelineOpts{
		BaseURL: r.config.API.BaseURL,
		Fields:  r.config.API.Fields,
		Format:  f,
		Logger:  r.logger,
	}
	if r.config.Database.Path != "" {
		ledger, err := r.ledger()
		if err != nil {
			return nil, err
		}
		opts.Ledger = ledger
	}
	if enrich || r.config.Enrich.Artists {
		opts.Enricher = services.NewArtistEnricher(r.catalog(ctx, tokens).Artists())
	}

	fetcher := services.NewPagedFetcher(r.httpClient, tokens).WithRateLimit(r.config.API.RateLimit)
	return tasks.NewPipeline(fetcher, sink, opts), nil
}

func (r *Runner) openQueue(ctx context.Context, name string) (*queue.RedisQueue, error) {
	client, err := r.redisClient(ctx)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = r.config.Queue.Name
	}
	return queue.New(client, name), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
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
