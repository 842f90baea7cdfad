package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/driveclone/internal/metrics"
	"github.com/desertthunder/driveclone/internal/repositories"
	"github.com/desertthunder/driveclone/internal/services"
	"github.com/desertthunder/driveclone/internal/shared"
	"github.com/desertthunder/driveclone/internal/store"
	"github.com/desertthunder/driveclone/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	drive      services.Drive
	api        *services.APIService
	transfer   tasks.Transfer
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	store *store.Store
	repo  *repositories.JobRepository
	db    *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Drive      services.Drive       // Optional; commands needing Drive fail without it
	API        *services.APIService // Defaults to a client for config api.base_url
	Store      *store.Store         // Optional; opened from the configured database on first use
	Transfer   tasks.Transfer       // Defaults to a simulated transfer tuned by config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
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
	if opts.API == nil {
		opts.API = services.NewAPIService(opts.Config.API.BaseURL, opts.HTTPClient)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		drive:      opts.Drive,
		api:        opts.API,
		transfer:   opts.Transfer,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		store:      opts.Store,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, cloneCommand, serveCommand, remoteCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by the runner and everything it builds afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the job database, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// openStore returns the job store, restoring persisted jobs from the journal the first time it is needed.
func (r *Runner) openStore() (*store.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := repositories.NewJobRepository(db)
	persisted, err := repo.List("")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}

	st := store.New(store.Opts{Journal: repo, Logger: r.logger})
	if n := st.Restore(persisted); n > 0 {
		r.logger.Debug("restored jobs", "count", n, "path", r.config.Database.Path)
	}

	r.db = db
	r.repo = repo
	r.store = st
	return st, nil
}

// newOrchestrator wires a driver and orchestrator over st. Recorder may be nil.
func (r *Runner) newOrchestrator(st *store.Store, recorder *metrics.Collector) *tasks.Orchestrator {
	transfer := r.transfer
	if transfer == nil {
		transfer = tasks.SimulatedTransfer{
			Step:     r.config.Transfer.Step,
			Interval: r.config.Transfer.StepInterval(),
		}
	}

	driver := tasks.NewDriver(st, tasks.DriverOpts{
		Transfer:     transfer,
		PhaseTimeout: r.config.Transfer.PhaseTimeout(),
		Logger:       r.logger,
	})

	opts := tasks.OrchestratorOpts{Logger: r.logger}
	if recorder != nil {
		opts.Recorder = recorder
	}
	return tasks.NewOrchestrator(st, driver, opts)
}

// saveTokens stores token in the config and writes it back to configPath when one is set.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}

	if err := r.config.Credentials.Google.Update(token); err != nil {
		return fmt.Errorf("failed to update google configuration: %w", err)
	}

	if r.configPath == "" {
		return nil
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (r *Runner) requireDrive() (services.Drive, error) {
	if r.drive == nil {
		return nil, fmt.Errorf("%w: google client_id and client_secret must be set in config.toml", shared.ErrMissingCredentials)
	}
	return r.drive, nil
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
