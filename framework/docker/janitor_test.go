package docker

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/moby/moby/errdefs"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestJanitor_DumpLogs(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")
	client := &fakeDockerClient{
		project: "devnode",
		containers: []container.Summary{
			{ID: "aaa", Names: []string{"/devnode-node-1"}},
			{ID: "bbb", Names: []string{"/devnode-compiler-1"}},
		},
		logs: map[string]string{
			"aaa": "node booting\nnode ready\n",
			"bbb": "compiler listening on :3080\n",
		},
	}

	err := NewJanitor(zaptest.NewLogger(t), client, logDir).DumpLogs(context.Background())
	require.NoError(t, err)

	require.Len(t, client.listCalls, 1)
	require.True(t, client.listCalls[0].All)
	require.Equal(t, []string{ComposeProjectLabel + "=devnode"}, client.listCalls[0].Filters.Get("label"))

	content, err := os.ReadFile(filepath.Join(logDir, "devnode-node-1.log"))
	require.NoError(t, err)
	require.Equal(t, "node booting\nnode ready\n", string(content))

	content, err = os.ReadFile(filepath.Join(logDir, "devnode-compiler-1.log"))
	require.NoError(t, err)
	require.Equal(t, "compiler listening on :3080\n", string(content))
}

func TestJanitor_DumpLogsWithoutDirIsNoop(t *testing.T) {
	client := &fakeDockerClient{project: "devnode"}
	require.NoError(t, NewJanitor(nil, client, "").DumpLogs(context.Background()))
	require.Empty(t, client.listCalls)
}

func TestJanitor_DumpLogsCollectsErrors(t *testing.T) {
	client := &fakeDockerClient{
		project: "devnode",
		containers: []container.Summary{
			{ID: "aaa", Names: []string{"/devnode-node-1"}},
			{ID: "gone"},
		},
		logs: map[string]string{"aaa": "ok\n"},
	}
	logDir := t.TempDir()

	err := NewJanitor(nil, client, logDir).DumpLogs(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "reading logs of gone")

	_, statErr := os.Stat(filepath.Join(logDir, "devnode-node-1.log"))
	require.NoError(t, statErr, "logs of healthy containers are still written")
}

func TestJanitor_RemoveContainers(t *testing.T) {
	client := &fakeDockerClient{
		project: "devnode",
		containers: []container.Summary{
			{ID: "aaa"},
			{ID: "bbb"},
			{ID: "ccc"},
		},
		stopErrs: map[string]error{
			"bbb": errdefs.NotModified(errors.New("container already stopped")),
		},
		removeErrs: map[string]error{
			"ccc": errdefs.NotFound(errors.New("no such container")),
		},
	}

	err := NewJanitor(zaptest.NewLogger(t), client, "").removeContainers(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"aaa", "bbb", "ccc"}, client.stopped)
	require.Equal(t, []string{"aaa", "bbb"}, client.removed)
	require.Equal(t, []int{stopTimeoutSeconds, stopTimeoutSeconds, stopTimeoutSeconds}, client.stopTimeout)
}

func TestJanitor_RemoveContainersReportsFailures(t *testing.T) {
	client := &fakeDockerClient{
		project:    "devnode",
		containers: []container.Summary{{ID: "aaa"}, {ID: "bbb"}},
		removeErrs: map[string]error{"aaa": errors.New("device busy")},
	}

	err := NewJanitor(nil, client, "").removeContainers(context.Background())
	require.ErrorContains(t, err, "removing container aaa")
	require.Equal(t, []string{"bbb"}, client.removed)
}

func TestIsLoggableStopError(t *testing.T) {
	require.False(t, IsLoggableStopError(nil))
	require.False(t, IsLoggableStopError(errdefs.NotModified(errors.New("stopped"))))
	require.False(t, IsLoggableStopError(errdefs.NotFound(errors.New("gone"))))
	require.True(t, IsLoggableStopError(errors.New("daemon unavailable")))
}

func TestWriteToFile(t *testing.T) {
	testCases := []struct {
		name       string
		content    string
		subDir     string
		filename   string
		tempPrefix string
	}{
		{
			name:       "flat directory",
			content:    "This is test content for writeToFile function",
			filename:   "test-file.txt",
			tempPrefix: "writetofile-test",
		},
		{
			name:       "nested directory",
			content:    "This is test content for nested directory",
			subDir:     filepath.Join("nested", "directory", "structure"),
			filename:   "nested-file.txt",
			tempPrefix: "writetofile-nested-test",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// create a temporary directory for testing.
			tempDir, err := os.MkdirTemp("", tc.tempPrefix)
			require.NoError(t, err)
			defer os.RemoveAll(tempDir)

			r := io.NopCloser(strings.NewReader(tc.content))

			targetDir := tempDir
			if tc.subDir != "" {
				targetDir = filepath.Join(tempDir, tc.subDir)
			}

			err = writeToFile(r, targetDir, tc.filename)
			require.NoError(t, err)

			expectedPath := filepath.Join(targetDir, tc.filename)
			_, err = os.Stat(expectedPath)
			require.NoError(t, err, "file should exist at the expected path")

			content, err := os.ReadFile(expectedPath)
			require.NoError(t, err)
			require.Equal(t, tc.content, string(content), "file content should match the input content")
		})
	}
}
