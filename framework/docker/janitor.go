package docker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/avast/retry-go/v4"
	"github.com/chainforge/devnode/framework/docker/internal"
	"github.com/chainforge/devnode/framework/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/hashicorp/go-multierror"
	"github.com/moby/moby/errdefs"
	"go.uber.org/zap"
)

// stopTimeoutSeconds is how long a container gets to exit before it is killed.
const stopTimeoutSeconds = 10

// Janitor removes the resources of a compose project through the Docker API and captures
// the logs of its containers. It is the fallback when docker compose cannot tear a project down.
type Janitor struct {
	client types.DockerClient
	logger *zap.Logger
	logDir string
}

// NewJanitor returns a Janitor for the compose project of client. When logDir is empty,
// DumpLogs does nothing.
func NewJanitor(logger *zap.Logger, client types.DockerClient, logDir string) *Janitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{
		client: client,
		logger: logger.With(zap.String("component", "janitor"), zap.String("project", client.ComposeProject())),
		logDir: logDir,
	}
}

func (j *Janitor) projectFilter() filters.Args {
	return filters.NewArgs(filters.Arg("label", ComposeProjectLabel+"="+j.client.ComposeProject()))
}

// DumpLogs writes the logs of every container of the project to <logDir>/<container>.log.
func (j *Janitor) DumpLogs(ctx context.Context) error {
	if j.logDir == "" {
		return nil
	}

	cs, err := j.client.ContainerList(ctx, container.ListOptions{All: true, Filters: j.projectFilter()})
	if err != nil {
		return fmt.Errorf("listing project containers: %w", err)
	}

	var result *multierror.Error
	for _, c := range cs {
		containerName := internal.ContainerName(c.Names, c.ID)
		rc, err := j.client.ContainerLogs(ctx, c.ID, container.LogsOptions{
			ShowStdout: true,
			ShowStderr: true,
			Tail:       "all",
		})
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("reading logs of %s: %w", containerName, err))
			continue
		}
		if err := writeToFile(rc, j.logDir, fmt.Sprintf("%s.log", containerName)); err != nil {
			result = multierror.Append(result, fmt.Errorf("writing logs of %s: %w", containerName, err))
			continue
		}
		j.logger.Info("wrote container logs", zap.String("container", containerName), zap.String("dir", j.logDir))
	}
	return result.ErrorOrNil()
}

// RemoveProject stops and removes every container of the project, then prunes its volumes
// and networks. All failures are collected and returned together.
func (j *Janitor) RemoveProject(ctx context.Context) error {
	var result *multierror.Error
	if err := j.removeContainers(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := j.pruneVolumesWithRetry(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := j.pruneNetworksWithRetry(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func (j *Janitor) removeContainers(ctx context.Context) error {
	cs, err := j.client.ContainerList(ctx, container.ListOptions{All: true, Filters: j.projectFilter()})
	if err != nil {
		return fmt.Errorf("listing project containers: %w", err)
	}

	var result *multierror.Error
	for _, c := range cs {
		timeout := stopTimeoutSeconds
		if err := j.client.ContainerStop(ctx, c.ID, container.StopOptions{Timeout: &timeout}); IsLoggableStopError(err) {
			j.logger.Warn("failed to stop container", zap.String("container", c.ID), zap.Error(err))
		}

		if err := j.client.ContainerRemove(ctx, c.ID, container.RemoveOptions{
			// volumes are pruned separately, including named ones.
			Force: true,
		}); err != nil && !errdefs.IsNotFound(err) {
			result = multierror.Append(result, fmt.Errorf("removing container %s: %w", c.ID, err))
			continue
		}
		j.logger.Debug("removed container", zap.String("container", c.ID))
	}
	return result.ErrorOrNil()
}

func (j *Janitor) pruneVolumesWithRetry(ctx context.Context) error {
	var msg string
	err := retry.Do(
		func() error {
			args := j.projectFilter()
			args.Add("all", "true")
			res, err := j.client.VolumesPrune(ctx, args)
			if err != nil {
				if errdefs.IsConflict(err) {
					// Prune is already in progress; try again.
					return err
				}

				// Give up on any other error.
				return retry.Unrecoverable(err)
			}

			if len(res.VolumesDeleted) > 0 {
				msg = fmt.Sprintf("Pruned %d volumes, reclaiming approximately %.1f MB", len(res.VolumesDeleted), float64(res.SpaceReclaimed)/(1024*1024))
			}

			return nil
		},
		retry.Context(ctx),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("pruning volumes: %w", err)
	}

	if msg != "" {
		j.logger.Info(msg)
	}
	return nil
}

func (j *Janitor) pruneNetworksWithRetry(ctx context.Context) error {
	var deleted []string
	err := retry.Do(
		func() error {
			res, err := j.client.NetworksPrune(ctx, j.projectFilter())
			if err != nil {
				if errdefs.IsConflict(err) {
					// Prune is already in progress; try again.
					return err
				}

				// Give up on any other error.
				return retry.Unrecoverable(err)
			}

			deleted = res.NetworksDeleted
			return nil
		},
		retry.Context(ctx),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("pruning networks: %w", err)
	}

	if len(deleted) > 0 {
		j.logger.Info("pruned networks", zap.Strings("networks", deleted))
	}
	return nil
}

// IsLoggableStopError reports whether err is worth reporting after stopping a container.
// Stopping a container that is already stopped or gone is not.
func IsLoggableStopError(err error) bool {
	if err == nil {
		return false
	}
	return !(errdefs.IsNotModified(err) || errdefs.IsNotFound(err))
}

// writeToFile writes the contents of an io.ReadCloser to a specified file in the given directory.
// It ensures the directory exists before creating and writing to the file.
// Returns an error if directory creation, file creation, or content copy fails.
func writeToFile(r io.ReadCloser, dir, filename string) error {
	defer r.Close()

	// ensure the directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// create the output file.
	outPath := filepath.Join(dir, filename)
	outFile, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer outFile.Close()

	// copy the contents
	_, err = io.Copy(outFile, r)
	return err
}
