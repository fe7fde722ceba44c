package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/chainforge/devnode/framework/types"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

const (
	DefaultPollInterval    = time.Second
	DefaultMaxPollAttempts = 60
)

// Prober reports the status of the container running an image.
type Prober interface {
	Probe(ctx context.Context, imagePrefix string) (types.ContainerStatus, error)
}

// Launcher starts and stops container groups.
type Launcher interface {
	StartGroup(ctx context.Context, composeFiles ...string) (types.ProcessGroup, error)
	StopGroup(ctx context.Context, composeFiles ...string) (types.SpawnResult, error)
}

// Validator checks the descriptor files before any container is touched.
type Validator interface {
	Validate() error
}

// Funder funds the development wallets once the node is live.
type Funder interface {
	Fund(ctx context.Context) ([]types.WalletBalance, error)
}

// Janitor removes project resources through the container API when the launcher cannot.
type Janitor interface {
	DumpLogs(ctx context.Context) error
	RemoveProject(ctx context.Context) error
}

// Target is a container group managed by the orchestrator.
type Target struct {
	// Name is used in user-facing messages, e.g. "node".
	Name string

	// ImagePrefix identifies the group's main container when probing.
	ImagePrefix  string
	ComposeFiles []string
}

// Config holds the collaborators and bounds of an Orchestrator.
type Config struct {
	Logger    *zap.Logger
	Prober    Prober
	Launcher  Launcher
	Validator Validator
	Funder    Funder
	Reporter  types.Reporter

	// Janitor is optional.
	Janitor Janitor

	Node     Target
	Compiler Target

	PollInterval    time.Duration
	MaxPollAttempts uint
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ConfigOption {
	return func(cfg *Config) {
		cfg.Logger = logger
	}
}

// WithJanitor sets the fallback used when the launcher fails to tear a group down.
func WithJanitor(j Janitor) ConfigOption {
	return func(cfg *Config) {
		cfg.Janitor = j
	}
}

// WithPolling overrides the health poll interval and bound.
func WithPolling(interval time.Duration, attempts uint) ConfigOption {
	return func(cfg *Config) {
		cfg.PollInterval = interval
		cfg.MaxPollAttempts = attempts
	}
}

// WithNode sets the node target.
func WithNode(t Target) ConfigOption {
	return func(cfg *Config) {
		cfg.Node = t
	}
}

// WithCompiler sets the compiler target.
func WithCompiler(t Target) ConfigOption {
	return func(cfg *Config) {
		cfg.Compiler = t
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxPollAttempts == 0 {
		cfg.MaxPollAttempts = DefaultMaxPollAttempts
	}
	if cfg.Node.Name == "" {
		cfg.Node.Name = "node"
	}
	if cfg.Compiler.Name == "" {
		cfg.Compiler.Name = "compiler"
	}
}

func (cfg *Config) validate() error {
	var result *multierror.Error
	if cfg.Prober == nil {
		result = multierror.Append(result, errors.New("prober is required"))
	}
	if cfg.Launcher == nil {
		result = multierror.Append(result, errors.New("launcher is required"))
	}
	if cfg.Validator == nil {
		result = multierror.Append(result, errors.New("validator is required"))
	}
	if cfg.Funder == nil {
		result = multierror.Append(result, errors.New("funder is required"))
	}
	if cfg.Reporter == nil {
		result = multierror.Append(result, errors.New("reporter is required"))
	}
	if cfg.Node.ImagePrefix == "" {
		result = multierror.Append(result, errors.New("node image prefix is required"))
	}
	if len(cfg.Node.ComposeFiles) == 0 {
		result = multierror.Append(result, errors.New("node compose files are required"))
	}
	if len(cfg.Compiler.ComposeFiles) == 0 {
		result = multierror.Append(result, errors.New("compiler compose files are required"))
	}
	return result.ErrorOrNil()
}
