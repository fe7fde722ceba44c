package docker

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/chainforge/devnode/framework/types"
	"github.com/docker/docker/api/types/container"
)

// fakeDockerClient implements the parts of types.DockerClient exercised by the prober and
// janitor. Any other method panics through the nil embedded interface.
type fakeDockerClient struct {
	types.DockerClient

	project    string
	containers []container.Summary
	listErr    error
	logs       map[string]string
	stopErrs   map[string]error
	removeErrs map[string]error

	listCalls   []container.ListOptions
	stopped     []string
	removed     []string
	stopTimeout []int
}

func (f *fakeDockerClient) ComposeProject() string {
	return f.project
}

func (f *fakeDockerClient) ContainerList(_ context.Context, options container.ListOptions) ([]container.Summary, error) {
	f.listCalls = append(f.listCalls, options)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.containers, nil
}

func (f *fakeDockerClient) ContainerLogs(_ context.Context, id string, _ container.LogsOptions) (io.ReadCloser, error) {
	out, ok := f.logs[id]
	if !ok {
		return nil, errors.New("no such container: " + id)
	}
	return io.NopCloser(strings.NewReader(out)), nil
}

func (f *fakeDockerClient) ContainerStop(_ context.Context, id string, options container.StopOptions) error {
	f.stopped = append(f.stopped, id)
	if options.Timeout != nil {
		f.stopTimeout = append(f.stopTimeout, *options.Timeout)
	}
	return f.stopErrs[id]
}

func (f *fakeDockerClient) ContainerRemove(_ context.Context, id string, _ container.RemoveOptions) error {
	if err := f.removeErrs[id]; err != nil {
		return err
	}
	f.removed = append(f.removed, id)
	return nil
}
