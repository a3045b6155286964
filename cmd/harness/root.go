package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/opsharness/harness/internal/config"
	"github.com/opsharness/harness/internal/docker"
	"github.com/opsharness/harness/internal/search"
	"github.com/opsharness/harness/internal/session"
	"github.com/opsharness/harness/internal/shell"
	"github.com/opsharness/harness/internal/telemetry"
)

var version = "0.1.0"

// app holds what the commands share for one invocation. The zero-valued
// hooks are filled with real implementations; tests replace them.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string

	cfg       *config.Config
	telemetry *telemetry.Provider

	sessions     search.Enumerator
	runner       shell.Runner
	dockerClient docker.API
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "harness",
		Short: "AWS resource search and ops task runner",
		Long: `harness - AWS resource search and ops task runner

Search EC2 instances, network interfaces, load balancers and images across
AWS profiles and regions, and run the Ansible, Docker and git chores that
go with them.`,
		Version:           version,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.SetVersionTemplate("harness {{.Version}}\n")

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultPath, "Path to the config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides log.level")

	root.AddCommand(
		newSearchCmd(a),
		newDockerCmd(a),
		newAnsibleCmd(a),
		newGitCmd(a),
	)
	return root
}

// setup loads the configuration, applies the log level and starts telemetry.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var err error
	if cmd.Flags().Changed("config") {
		a.cfg, err = config.Load(a.configPath)
	} else {
		a.cfg, err = config.LoadOptional(a.configPath)
	}
	if err != nil {
		return err
	}

	level := a.cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	zerolog.SetGlobalLevel(lvl)

	log.Debug().Str("config", a.cfg.Source).Str("workdir", a.cfg.WorkDir).Msg("configuration loaded")

	a.telemetry, err = telemetry.NewProvider(cmd.Context(), a.cfg.OTEL)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	return nil
}

// close flushes telemetry and releases the docker client.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if c, ok := a.dockerClient.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if a.telemetry != nil {
		errs = append(errs, a.telemetry.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func (a *app) enumerator() search.Enumerator {
	if a.sessions != nil {
		return a.sessions
	}
	return session.New()
}

func (a *app) shellRunner(dryRun bool) shell.Runner {
	if a.runner != nil {
		return a.runner
	}
	return shell.NewExecRunner(dryRun)
}
