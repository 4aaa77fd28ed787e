package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songbridge/internal/auth"
	"github.com/desertthunder/songbridge/internal/models"
	"github.com/desertthunder/songbridge/internal/services"
	"github.com/desertthunder/songbridge/internal/shared"
	"github.com/desertthunder/songbridge/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	factory    services.Factory
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A nil Config means each command loads its --config file. A nil HTTPClient means one is built from
// server.upstream_timeout.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Factory    services.Factory
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		factory:    opts.Factory,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, accountsCommand, transferCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig returns the injected config or the one named by --config, and applies --debug or
// server.log_level to the logger.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	config := r.config
	if config == nil {
		loaded, err := shared.LoadConfigOrDefault(cmd.String("config"))
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	} else {
		shared.SetLogLevel(r.logger, shared.ParseLogLevel(config.Server.LogLevel))
	}
	return config, nil
}

// upstreamClient is the HTTP client shared by the provider clients and the token endpoints.
func (r *Runner) upstreamClient(config *shared.Config) *http.Client {
	if r.httpClient != nil {
		return r.httpClient
	}
	return &http.Client{Timeout: config.Server.UpstreamTimeout.Duration}
}

func (r *Runner) newFactory(client *http.Client) services.Factory {
	f := r.factory
	if f.HTTPClient == nil {
		f.HTTPClient = client
	}
	return f
}

// oauthConfigs builds the OAuth2 configs of every provider with credentials.
func (r *Runner) oauthConfigs(config *shared.Config) (map[models.Provider]*oauth2.Config, error) {
	creds := map[models.Provider]shared.OAuthClientConfig{
		models.Spotify: config.Credentials.Spotify,
		models.Google:  config.Credentials.Google,
	}

	configs := make(map[models.Provider]*oauth2.Config)
	for _, p := range models.Providers() {
		if !creds[p].Configured() {
			r.logger.Debug("provider not configured", "provider", p)
			continue
		}
		conf, err := auth.OAuthConfig(p, creds[p])
		if err != nil {
			return nil, err
		}
		configs[p] = conf
	}
	return configs, nil
}

func (r *Runner) newManager(config *shared.Config, store auth.AccountStore, configs map[models.Provider]*oauth2.Config, client *http.Client) *auth.Manager {
	opts := []auth.ManagerOption{auth.WithPersistRefreshed(config.Auth.PersistRefreshed)}
	for p, conf := range configs {
		opts = append(opts, auth.WithRefresher(p, auth.NewOAuthRefresher(conf, client)))
	}
	return auth.NewManager(store, shared.WithLogger(r.logger, "component", "credentials"), opts...)
}

func (r *Runner) newPipeline(config *shared.Config) *tasks.Pipeline {
	return tasks.NewPipeline(
		r.logger,
		tasks.WithGate(tasks.NewGate(config.Transfer.WritesPerSecond, config.Transfer.Burst)),
		tasks.WithReverseMaxItems(config.Transfer.ReverseMaxItems),
	)
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
	r.writePlain("%v\n", styles.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}
