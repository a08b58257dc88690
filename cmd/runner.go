package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/cloudmirror/sharesync/internal/filters"
	"github.com/cloudmirror/sharesync/internal/pipeline"
	"github.com/cloudmirror/sharesync/internal/repositories"
	"github.com/cloudmirror/sharesync/internal/services"
	"github.com/cloudmirror/sharesync/internal/shared"
	"github.com/cloudmirror/sharesync/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	// providers overrides the default provider binding in tests.
	providers services.ProviderFactory
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Providers  services.ProviderFactory
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

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		providers:  opts.Providers,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, tasksCommand, accountsCommand, sweepCommand, serveCommand, filterCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reloads configuration from the path given by the command's
// --config flag, falling back to the runner's current config.
func (r *Runner) loadConfig(cmd *cli.Command) *shared.Config {
	path := cmd.String("config")
	if path == "" {
		return r.config
	}

	if _, err := os.Stat(path); err != nil {
		return r.config
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using current settings", "path", path, "error", err)
		return r.config
	}

	r.config = config
	return config
}

// providerFactory binds provider clients to account credentials using the
// configured pan endpoint.
func (r *Runner) providerFactory(config *shared.Config) services.ProviderFactory {
	if r.providers != nil {
		return r.providers
	}

	client := r.httpClient
	if config.Provider.TimeoutSecs > 0 {
		client = &http.Client{
			Transport: r.httpClient.Transport,
			Timeout:   config.Provider.Timeout(),
		}
	}

	return func(credential string) services.Provider {
		return services.NewPanService(config.Provider.BaseURL, credential, client)
	}
}

// stack bundles the database-backed collaborators a command needs.
type stack struct {
	db         *sql.DB
	tasks      *repositories.TaskRepository
	accounts   *repositories.AccountRepository
	harmonized *filters.HarmonizedFilter
	queue      *pipeline.Queue
	engine     *tasks.Engine
}

func (s *stack) Close() error {
	return s.db.Close()
}

// buildStack opens the database and wires the repositories, harmonized
// filter, completion queue, and sync engine from config.
func (r *Runner) buildStack(config *shared.Config) (*stack, error) {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	taskRepo := repositories.NewTaskRepository(db)
	accountRepo := repositories.NewAccountRepository(db)

	harmonized, err := filters.NewHarmonizedFilter(config.Filter.Path, config.Filter.Bits, config.Filter.HashCount, r.logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open harmonized filter: %w", err)
	}

	queue, err := pipeline.NewQueue(config.Pipeline.QueuePath, config.Pipeline.QueueCapacity)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open completion queue: %w", err)
	}

	var ai services.AIClient
	if config.AI.Enabled {
		ai = services.NewOpenAIService(config.AI.BaseURL, config.AI.APIKey, config.AI.Model, config.AI.BatchSize, r.httpClient)
	}

	engine := tasks.NewEngine(tasks.EngineOpts{
		Tasks:      taskRepo,
		Accounts:   accountRepo,
		Providers:  r.providerFactory(config),
		AI:         ai,
		Harmonized: harmonized,
		Queue:      queue,
		Sync:       config.Sync,
		Provider:   config.Provider,
		AIEnabled:  config.AI.Enabled,
		Logger:     r.logger,
	})

	return &stack{
		db:         db,
		tasks:      taskRepo,
		accounts:   accountRepo,
		harmonized: harmonized,
		queue:      queue,
		engine:     engine,
	}, nil
}

// stages builds the completion pipeline stage chain in execution order.
func (r *Runner) stages(config *shared.Config) []pipeline.Stage {
	return []pipeline.Stage{
		pipeline.NewRenameStage(r.providerFactory(config), r.logger),
		pipeline.NewPointerStage(nil, r.logger),
		pipeline.NewCacheStage(nil, r.logger),
		pipeline.NewScrapeStage(nil, r.logger),
		pipeline.NewNotifyStage(nil, r.logger),
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
