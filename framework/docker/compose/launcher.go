package compose

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/chainforge/devnode/framework/types"
	"go.uber.org/zap"
)

// Launcher starts and stops container groups described by compose files.
type Launcher struct {
	opts   Options
	logger *zap.Logger
}

// NewLauncher returns a Launcher running docker compose with the given options.
func NewLauncher(logger *zap.Logger, opts Options) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &Launcher{
		opts:   opts,
		logger: logger.With(zap.String("component", "launcher"), zap.String("project", opts.Project)),
	}
}

// StartGroup runs "up -d" for the given compose files in the background.
// Output of the command is streamed through the returned group as it arrives.
func (l *Launcher) StartGroup(ctx context.Context, composeFiles ...string) (types.ProcessGroup, error) {
	return l.start(ctx, l.args(composeFiles, "up", "-d"))
}

// StopGroup runs "down -v --remove-orphans" for the given compose files and blocks until
// the command has exited. The captured output is returned even when the command fails.
func (l *Launcher) StopGroup(ctx context.Context, composeFiles ...string) (types.SpawnResult, error) {
	g, err := l.start(ctx, l.args(composeFiles, "down", "-v", "--remove-orphans"))
	if err != nil {
		return types.SpawnResult{}, err
	}
	return g.Wait(ctx)
}

// args builds the argument list, e.g. compose -p devnode -f a.yml -f b.yml up -d.
func (l *Launcher) args(composeFiles []string, command ...string) []string {
	args := append([]string{}, l.opts.BaseArgs...)
	if l.opts.Project != "" {
		args = append(args, "-p", l.opts.Project)
	}
	for _, f := range composeFiles {
		args = append(args, "-f", f)
	}
	return append(args, command...)
}

func (l *Launcher) start(ctx context.Context, args []string) (*Group, error) {
	cmd := exec.Command(l.opts.Binary, args...)
	cmd.Dir = l.opts.Dir
	if len(l.opts.Env) > 0 {
		cmd.Env = append(os.Environ(), l.opts.Env...)
	}
	configureCommandProcess(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	fullArgs := append([]string{l.opts.Binary}, args...)
	log := l.logger.With(zap.String("cmd", strings.Join(fullArgs, " ")))
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", strings.Join(fullArgs, " "), err)
	}
	log.Debug("started compose command", zap.Int("pid", cmd.Process.Pid))

	g := newGroup(cmd, fullArgs, l.opts.OutputBuffer, log)
	go g.run(ctx, stdout, stderr)
	return g, nil
}
