package compose

import "github.com/chainforge/devnode/framework/docker/internal"

const (
	defaultBinary       = "docker"
	defaultOutputBuffer = 256
)

// Options contains configuration for docker compose execution
type Options struct {
	// Binary is the executable to run. If blank, defaults to "docker" with the "compose" sub command.
	Binary string
	// BaseArgs precede the compose flags of every invocation, e.g. "compose".
	BaseArgs []string
	// Project is passed as -p so every resource created carries the same project label.
	Project string
	// Dir is the working directory compose files are resolved against.
	Dir string
	// Environment variables added to the current environment
	Env []string
	// OutputBuffer is the number of output lines a started group buffers for its reader.
	OutputBuffer int
}

func (o Options) withDefaults() Options {
	if o.Binary == "" {
		o.Binary = defaultBinary
		if len(o.BaseArgs) == 0 {
			o.BaseArgs = []string{"compose"}
		}
	}
	o.Project = internal.SanitizeProjectName(o.Project)
	if o.OutputBuffer <= 0 {
		o.OutputBuffer = defaultOutputBuffer
	}
	return o
}
