package docker

import (
	"context"
	"errors"
	"strings"

	"github.com/chainforge/devnode/framework/docker/internal"
	"github.com/chainforge/devnode/framework/types"
	"github.com/docker/docker/api/types/container"
	"go.uber.org/zap"
)

const (
	healthyMarker   = "healthy"
	unhealthyMarker = "unhealthy"
)

// ContainerLister is the part of the Docker API the prober needs.
type ContainerLister interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
}

// HealthProber classifies the container of an image as absent, running or healthy.
type HealthProber struct {
	client ContainerLister
	logger *zap.Logger
}

// NewHealthProber returns a prober that queries the given client.
func NewHealthProber(logger *zap.Logger, client ContainerLister) *HealthProber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthProber{
		client: client,
		logger: logger.With(zap.String("component", "prober")),
	}
}

// Probe lists the running containers and reports the status of the first one whose image
// starts with imagePrefix, preferring a healthy container over one that is only running.
// The runtime is queried on every call; failures are returned as *ProbeError and never retried.
func (p *HealthProber) Probe(ctx context.Context, imagePrefix string) (types.ContainerStatus, error) {
	status := types.ContainerStatus{ImageName: imagePrefix}
	if imagePrefix == "" {
		return status, &ProbeError{Image: imagePrefix, Err: errors.New("image prefix must not be empty")}
	}

	containers, err := p.client.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return status, &ProbeError{Image: imagePrefix, Err: err}
	}

	for _, c := range containers {
		if !strings.HasPrefix(c.Image, imagePrefix) {
			continue
		}

		healthy := IsHealthy(c.Status)
		if status.Present && (status.Healthy || !healthy) {
			continue
		}

		status.Present = true
		status.Healthy = healthy
		status.ID = c.ID
		status.Name = internal.ContainerName(c.Names, c.ID)
		status.Status = c.Status
		status.Ports = publishedPorts(c)
	}

	p.logger.Debug("probed image",
		zap.String("image", imagePrefix),
		zap.Bool("present", status.Present),
		zap.Bool("healthy", status.Healthy),
		zap.String("status", status.Status),
	)
	return status, nil
}

// IsHealthy reports whether a runtime status text such as "Up 3 minutes (healthy)" marks the
// container healthy. A container that is merely running, still in its health start period
// or reported "(unhealthy)" is not healthy.
func IsHealthy(status string) bool {
	return strings.Contains(status, healthyMarker) && !strings.Contains(status, unhealthyMarker)
}
