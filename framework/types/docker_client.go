package types

import (
	"github.com/moby/moby/client"
)

// DockerClient extends the Docker client.CommonAPIClient interface
// with the name of the compose project whose resources it manages.
type DockerClient interface {
	client.CommonAPIClient
	ComposeProject() string
}
