package docker

import (
	"fmt"

	"github.com/chainforge/devnode/framework/docker/internal"
	"github.com/chainforge/devnode/framework/types"
	"github.com/moby/moby/client"
)

// ComposeProjectLabel is the label docker compose puts on every container, volume and
// network it creates.
const ComposeProjectLabel = "com.docker.compose.project"

// Client wraps a Docker client with the compose project it manages.
// the project is used to find exactly the resources (containers, volumes, networks)
// created by a devnode invocation, enabling cleanup when docker compose itself fails.
//
// Client implements types.DockerClient.
type Client struct {
	*client.Client
	project string
}

var _ types.DockerClient = (*Client)(nil)

// NewClient creates a Client from the environment (DOCKER_HOST, DOCKER_CERT_PATH, ...)
// for the given compose project.
func NewClient(project string) (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return WrapClient(cli, project), nil
}

// WrapClient creates a Client with the given Docker client and compose project.
// The project name is normalized the way docker compose normalizes it.
func WrapClient(c *client.Client, project string) *Client {
	return &Client{
		Client:  c,
		project: internal.SanitizeProjectName(project),
	}
}

// ComposeProject returns the compose project associated with this client.
func (c *Client) ComposeProject() string {
	return c.project
}
