package cmd

import (
	"fmt"
	"strings"

	"github.com/chainforge/devnode/cli/style"
	"github.com/chainforge/devnode/framework/docker"
	"github.com/chainforge/devnode/framework/types"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show whether the node and the compiler are running",
	Aliases: []string{"s"},
	Args:    cobra.NoArgs,
	RunE:    runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dockerClient, err := docker.NewClient(cfg.Project)
	if err != nil {
		return err
	}
	defer dockerClient.Close()

	prober := docker.NewHealthProber(logger, dockerClient)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, style.Banner.Render("devnode")+style.DimText.Render("  project "+cfg.Project))
	for _, svc := range []struct {
		name  string
		image string
		url   string
	}{
		{"node", cfg.Node.Image, cfg.Network.RPCURL},
		{"compiler", cfg.Compiler.Image, cfg.Network.CompilerURL},
	} {
		status, err := prober.Probe(cmd.Context(), svc.image)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, statusLine(svc.name, svc.url, status))
	}
	return nil
}

func statusLine(name, url string, status types.ContainerStatus) string {
	state := "not running"
	switch {
	case status.Healthy:
		state = "healthy"
	case status.Present:
		state = "starting"
	}

	line := fmt.Sprintf("  %s %s %s", style.StatusDot(status.Present, status.Healthy), style.Key.Render(name), style.Val.Render(state))
	if !status.Present {
		return line
	}
	details := []string{status.Name, url}
	details = append(details, docker.Endpoints(status.Ports)...)
	return line + "  " + style.DimText.Render(strings.Join(details, "  "))
}
