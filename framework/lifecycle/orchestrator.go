// Package lifecycle brings a local devnet up and down: it starts the node, waits for it to become
// healthy, starts the compiler next to it and funds the development wallets.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/chainforge/devnode/framework/types"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// teardownTimeout bounds a compensating teardown, which runs even when the caller's context is done.
const teardownTimeout = 2 * time.Minute

// Outcome is the result of a single Run.
type Outcome struct {
	State    State
	Balances []types.WalletBalance
}

// Orchestrator runs one start or stop sequence of the devnet. It is not safe for concurrent use
// and can only be run once.
type Orchestrator struct {
	cfg    Config
	logger *zap.Logger
	state  State
}

// New returns an Orchestrator in the Idle state.
func New(cfg Config, opts ...ConfigOption) (*Orchestrator, error) {
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid orchestrator config: %w", err)
	}
	return &Orchestrator{
		cfg:    cfg,
		logger: cfg.Logger.With(zap.String("component", "orchestrator")),
		state:  Idle,
	}, nil
}

// State returns the current state.
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) transition(to State) {
	o.logger.Debug("state transition", zap.Stringer("from", o.state), zap.Stringer("to", to))
	o.state = to
	if to.Terminal() {
		o.logger.Info("run finished", zap.Stringer("state", to))
	}
}

func (o *Orchestrator) fail(err error) (Outcome, error) {
	o.transition(Failed)
	return Outcome{State: Failed}, err
}

// Run executes the stop path when opts.Stop is set and the start path otherwise.
func (o *Orchestrator) Run(ctx context.Context, opts types.RunOptions) (Outcome, error) {
	if o.state != Idle {
		return Outcome{State: o.state}, ErrNotIdle
	}

	o.transition(Probing)
	status, err := o.cfg.Prober.Probe(ctx, o.cfg.Node.ImagePrefix)
	if err != nil {
		return o.fail(err)
	}

	if opts.Stop {
		return o.stop(ctx, status)
	}
	return o.start(ctx, status, opts)
}

func (o *Orchestrator) stop(ctx context.Context, status types.ContainerStatus) (Outcome, error) {
	if !status.Present {
		o.cfg.Reporter.Step(fmt.Sprintf("%s is not running", o.cfg.Node.Name))
		o.transition(Done)
		return Outcome{State: Done}, nil
	}

	o.transition(Stopping)
	o.cfg.Reporter.Step(fmt.Sprintf("Stopping %s and %s", o.cfg.Node.Name, o.cfg.Compiler.Name))
	files := append(append([]string{}, o.cfg.Node.ComposeFiles...), o.cfg.Compiler.ComposeFiles...)
	if err := o.teardown(ctx, files); err != nil {
		return o.fail(fmt.Errorf("stopping devnet: %w", err))
	}

	o.cfg.Reporter.Success(fmt.Sprintf("%s stopped", o.cfg.Node.Name))
	o.cfg.Reporter.Success(fmt.Sprintf("%s stopped", o.cfg.Compiler.Name))
	o.transition(Done)
	return Outcome{State: Done}, nil
}

func (o *Orchestrator) start(ctx context.Context, status types.ContainerStatus, opts types.RunOptions) (Outcome, error) {
	if err := o.cfg.Validator.Validate(); err != nil {
		return o.fail(err)
	}

	if status.Healthy {
		o.cfg.Reporter.Success(fmt.Sprintf("%s already started", o.cfg.Node.Name))
		o.transition(Done)
		return Outcome{State: Done}, nil
	}

	o.transition(Starting)
	o.cfg.Reporter.Step(fmt.Sprintf("Starting %s", o.cfg.Node.Name))
	groupCtx, cancelGroup := context.WithCancel(ctx)
	defer cancelGroup()

	group, err := o.cfg.Launcher.StartGroup(groupCtx, o.cfg.Node.ComposeFiles...)
	if err != nil {
		return o.fail(fmt.Errorf("starting %s: %w", o.cfg.Node.Name, err))
	}

	o.transition(PollingHealth)
	if err := o.awaitHealthy(ctx, group); err != nil {
		cancelGroup()
		o.reap(ctx, group)
		o.compensate(ctx, o.cfg.Node.ComposeFiles)
		return o.fail(err)
	}
	o.reap(ctx, group)
	o.cfg.Reporter.Success(fmt.Sprintf("%s started", o.cfg.Node.Name))

	if opts.Only {
		o.transition(Done)
		return Outcome{State: Done}, nil
	}

	o.transition(CompilerStarting)
	if err := o.startCompiler(ctx); err != nil {
		o.compensate(ctx, o.cfg.Node.ComposeFiles)
		return o.fail(err)
	}
	o.cfg.Reporter.Success(fmt.Sprintf("%s started", o.cfg.Compiler.Name))

	o.transition(FundingWallets)
	balances, err := o.cfg.Funder.Fund(ctx)
	if err != nil {
		o.transition(Failed)
		return Outcome{State: Failed, Balances: balances}, err
	}

	o.transition(Done)
	return Outcome{State: Done, Balances: balances}, nil
}

// awaitHealthy polls the node until it is healthy. Before every probe it drains the output the
// node group produced so far; a port conflict in its stderr ends the poll immediately.
func (o *Orchestrator) awaitHealthy(ctx context.Context, group types.ProcessGroup) error {
	var (
		stderr  strings.Builder
		output  = group.Output()
		attempt uint
	)

	drain := func() {
		for {
			select {
			case line, ok := <-output:
				if !ok {
					output = nil
					return
				}
				o.cfg.Reporter.Output(line)
				if line.Stream == types.Stderr {
					stderr.WriteString(line.Text)
					stderr.WriteByte('\n')
				}
			default:
				return
			}
		}
	}

	err := retry.Do(
		func() error {
			attempt++
			drain()
			if IsPortConflict(NodeGroup, stderr.String()) {
				return retry.Unrecoverable(&PortConflictError{Stderr: stderr.String()})
			}

			status, err := o.cfg.Prober.Probe(ctx, o.cfg.Node.ImagePrefix)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			if !status.Healthy {
				o.logger.Debug("node not healthy yet", zap.Uint("attempt", attempt), zap.String("status", status.Status))
				o.cfg.Reporter.Progress()
				return errNotHealthy
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(o.cfg.MaxPollAttempts),
		retry.Delay(o.cfg.PollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err == nil {
		return nil
	}
	if errors.Is(err, errNotHealthy) {
		return &NodeStartTimeoutError{Attempts: attempt, Interval: o.cfg.PollInterval}
	}
	return err
}

func (o *Orchestrator) startCompiler(ctx context.Context) error {
	o.cfg.Reporter.Step(fmt.Sprintf("Starting %s", o.cfg.Compiler.Name))
	group, err := o.cfg.Launcher.StartGroup(ctx, o.cfg.Compiler.ComposeFiles...)
	if err != nil {
		return &CompilerStartError{Err: err}
	}

	res, err := group.Wait(ctx)
	for _, line := range res.StdoutLines {
		o.cfg.Reporter.Output(types.OutputLine{Stream: types.Stdout, Text: line})
	}
	if err == nil {
		return nil
	}
	if IsPortConflict(CompilerGroup, res.Stderr) {
		return &CompilerPortConflictError{Stderr: res.Stderr}
	}
	return &CompilerStartError{Err: err}
}

// reap waits for a node group command to exit so no child process outlives the orchestrator.
func (o *Orchestrator) reap(ctx context.Context, group types.ProcessGroup) {
	if _, err := group.Wait(ctx); err != nil {
		o.logger.Debug("node group command exited abnormally", zap.Error(err))
	}
}

// compensate tears the given groups down after a failed start. Teardown failures are logged and
// never replace the error that caused them.
func (o *Orchestrator) compensate(ctx context.Context, composeFiles []string) {
	o.cfg.Reporter.Step("Cleaning up")
	if o.cfg.Janitor != nil {
		if err := o.cfg.Janitor.DumpLogs(ctx); err != nil {
			o.logger.Warn("failed to write container logs", zap.Error(err))
		}
	}
	if err := o.teardown(ctx, composeFiles); err != nil {
		o.logger.Error("failed to tear down after a failed start", zap.Error(err))
	}
}

// teardown stops the groups described by composeFiles, falling back to the Janitor when the
// launcher fails. It runs even when ctx has already been cancelled.
func (o *Orchestrator) teardown(ctx context.Context, composeFiles []string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()

	res, err := o.cfg.Launcher.StopGroup(ctx, composeFiles...)
	if err == nil {
		return nil
	}
	o.logger.Warn("compose teardown failed", zap.Error(err), zap.String("stderr", res.Stderr))

	result := multierror.Append(nil, err)
	if o.cfg.Janitor == nil {
		return result.ErrorOrNil()
	}
	if jerr := o.cfg.Janitor.RemoveProject(ctx); jerr != nil {
		result = multierror.Append(result, jerr)
		return result.ErrorOrNil()
	}
	o.logger.Info("removed project resources through the container API")
	return nil
}
