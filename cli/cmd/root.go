package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainforge/devnode/cli/style"
	"github.com/chainforge/devnode/framework/config"
	"github.com/chainforge/devnode/framework/docker"
	"github.com/chainforge/devnode/framework/docker/compose"
	"github.com/chainforge/devnode/framework/evm"
	"github.com/chainforge/devnode/framework/lifecycle"
	"github.com/chainforge/devnode/framework/preflight"
	"github.com/chainforge/devnode/framework/types"
	"github.com/chainforge/devnode/framework/wallet"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath string
	logLevel   string
	logDir     string
	strict     bool
	runOpts    types.RunOptions
)

// errReported marks an error that has already been shown to the user.
var errReported = errors.New("devnet failed")

var rootCmd = &cobra.Command{
	Use:   "devnode",
	Short: "Run a local blockchain devnet",
	Long: `devnode starts a local blockchain node and its contract compiler with docker compose,
waits for the node to become healthy and funds the development wallets from the miner account.

Run it again with --stop to tear everything down.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runNode,
}

// Execute runs the root command until it completes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := rootCmd.ExecuteContextC(ctx)
	if err != nil && !errors.Is(err, errReported) {
		style.NewConsole(c.ErrOrStderr()).Error(err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: devnode.toml, devnode.yaml or devnode.yml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.Flags().BoolVar(&runOpts.Stop, "stop", false, "stop the node and the compiler")
	rootCmd.Flags().BoolVar(&runOpts.Only, "only", false, "start the node only, without the compiler and wallet funding")
	rootCmd.Flags().StringVar(&logDir, "log-dir", "", "write container logs to this directory when a start fails")
	rootCmd.Flags().BoolVar(&strict, "strict", false, "exit with a non-zero code when the devnet could not be started or stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// loadConfig loads and validates the configuration selected by the flags.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if logDir != "" {
		cfg.LogDir = logDir
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runNode(cmd *cobra.Command, _ []string) error {
	reporter := style.NewConsole(cmd.OutOrStdout())
	err := runDevnet(cmd.Context(), reporter)
	if err == nil {
		return nil
	}

	reporter.Error(err)
	if strict {
		return fmt.Errorf("%w: %w", errReported, err)
	}
	return nil
}

func runDevnet(ctx context.Context, reporter types.Reporter) error {
	logger, err := newLogger(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	funding, err := cfg.FundingConfig()
	if err != nil {
		return err
	}

	dockerClient, err := docker.NewClient(cfg.Project)
	if err != nil {
		return err
	}
	defer dockerClient.Close()

	funder := wallet.NewSequencer(wallet.SequencerConfig{
		Logger: logger,
		Dial: func(ctx context.Context) (wallet.Client, error) {
			c, err := evm.Dial(ctx, cfg.Network.RPCURL, logger,
				evm.WithReceiptPolling(cfg.Funding.ReceiptInterval, cfg.Funding.ReceiptAttempts))
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		Reporter: reporter,
		Wallets:  cfg.Wallets,
		Miner:    cfg.Miner,
		Funding:  funding,
	})

	orchestrator, err := lifecycle.New(lifecycle.Config{
		Logger:    logger,
		Prober:    docker.NewHealthProber(logger, dockerClient),
		Launcher:  compose.NewLauncher(logger, compose.Options{Project: cfg.Project}),
		Validator: preflight.Validator{Dir: ".", Descriptors: cfg.Descriptors()},
		Funder:    funder,
		Reporter:  reporter,
		Node: lifecycle.Target{
			Name:         "node",
			ImagePrefix:  cfg.Node.Image,
			ComposeFiles: cfg.Node.ComposeFiles,
		},
		Compiler: lifecycle.Target{
			Name:         "compiler",
			ImagePrefix:  cfg.Compiler.Image,
			ComposeFiles: cfg.Compiler.ComposeFiles,
		},
	},
		lifecycle.WithPolling(cfg.Polling.HealthInterval, cfg.Polling.HealthAttempts),
		lifecycle.WithJanitor(docker.NewJanitor(logger, dockerClient, cfg.LogDir)),
	)
	if err != nil {
		return err
	}

	out, err := orchestrator.Run(ctx, runOpts)
	if err != nil {
		return err
	}
	if len(out.Balances) > 0 {
		reporter.Success(fmt.Sprintf("%d development wallets funded", len(out.Balances)))
	}
	return nil
}
