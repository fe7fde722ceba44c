package compose

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/chainforge/devnode/framework/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxLineSize = 1024 * 1024

// Group is a running compose command. Its stdout and stderr are read line by line into a
// bounded channel; the full output is also retained for the SpawnResult.
type Group struct {
	cmd    *exec.Cmd
	args   []string
	logger *zap.Logger

	lines chan types.OutputLine
	done  chan struct{}

	// set before lines is closed.
	result types.SpawnResult
	err    error
}

var _ types.ProcessGroup = (*Group)(nil)

func newGroup(cmd *exec.Cmd, args []string, buffer int, logger *zap.Logger) *Group {
	return &Group{
		cmd:    cmd,
		args:   args,
		logger: logger,
		lines:  make(chan types.OutputLine, buffer),
		done:   make(chan struct{}),
	}
}

// Output returns the lines of the command as they are produced. The channel is closed once
// the command has exited and both pipes are drained.
func (g *Group) Output() <-chan types.OutputLine {
	return g.lines
}

// Wait discards any output not yet read, waits for the command to exit and returns its result.
// If ctx is cancelled first, the whole process group is killed.
func (g *Group) Wait(ctx context.Context) (types.SpawnResult, error) {
	cancelled := ctx.Done()
	for {
		select {
		case _, ok := <-g.lines:
			if !ok {
				<-g.done
				return g.result, g.err
			}
		case <-cancelled:
			terminateCommandProcess(g.cmd)
			cancelled = nil
		}
	}
}

func (g *Group) run(ctx context.Context, stdout, stderr io.Reader) {
	defer close(g.done)

	stop := context.AfterFunc(ctx, func() {
		g.logger.Warn("context done, killing compose command")
		terminateCommandProcess(g.cmd)
	})
	defer stop()

	// each reader owns its buffer, errgroup.Wait orders the writes before the merge below.
	var (
		stdoutLines []string
		stderrText  strings.Builder
	)
	var eg errgroup.Group
	eg.Go(func() error {
		return g.scan(stdout, types.Stdout, func(line string) {
			stdoutLines = append(stdoutLines, line)
		})
	})
	eg.Go(func() error {
		return g.scan(stderr, types.Stderr, func(line string) {
			stderrText.WriteString(line)
			stderrText.WriteByte('\n')
		})
	})
	scanErr := eg.Wait()
	waitErr := g.cmd.Wait()

	g.result = types.SpawnResult{
		ExitOccurred: g.cmd.ProcessState != nil,
		ExitCode:     g.cmd.ProcessState.ExitCode(),
		StdoutLines:  stdoutLines,
		Stderr:       stderrText.String(),
	}
	g.err = g.exitError(waitErr, scanErr)

	g.logger.Debug("compose command exited", zap.Int("code", g.result.ExitCode), zap.Error(g.err))
	close(g.lines)
}

func (g *Group) scan(r io.Reader, stream types.Stream, record func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		record(line)
		g.logger.Debug("compose output", zap.String("stream", string(stream)), zap.String("line", line))
		g.lines <- types.OutputLine{Stream: stream, Text: line}
	}
	if err := scanner.Err(); err != nil {
		// keep draining so the command never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, r)
		return fmt.Errorf("reading %s: %w", stream, err)
	}
	return nil
}

func (g *Group) exitError(waitErr, scanErr error) error {
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return &ExitError{Args: g.args, Code: exitErr.ExitCode(), Stderr: g.result.Stderr}
		}
		return fmt.Errorf("waiting for %s: %w", strings.Join(g.args, " "), waitErr)
	}
	return scanErr
}
