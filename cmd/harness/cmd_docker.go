package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/opsharness/harness/internal/config"
	"github.com/opsharness/harness/internal/docker"
)

func newDockerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docker",
		Short: "Build, run and clean up the ops container",
		Long: `Build, run and clean up the ops container.

Uses docker.image_name, docker.image_tag, docker.container_name and
docker.container_workdir from the config file.`,
	}

	var opts docker.RunOptions
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start an interactive shell in the container",
		Example: `  harness docker run                 # AWS keys and SSH key forwarded
  harness docker run --local         # also mount the working directory
  harness docker run --aws=false     # no AWS keys`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.dockerTasks(false).Run(cmd.Context(), opts)
		},
	}
	runCmd.Flags().BoolVar(&opts.Local, "local", false, "Mount the working directory at "+docker.LocalMount)
	runCmd.Flags().BoolVar(&opts.AWS, "aws", true, "Forward AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY")
	runCmd.Flags().BoolVar(&opts.SSH, "ssh", true, "Mount ssh_private_key at "+docker.SSHKeyMount)

	cmd.AddCommand(
		&cobra.Command{
			Use:   "build",
			Short: "Build the image from the working directory",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.dockerTasks(false).Build(cmd.Context())
			},
		},
		runCmd,
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the container",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				tasks, err := a.dockerEngineTasks()
				if err != nil {
					return err
				}
				return tasks.Stop(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "rm",
			Short: "Force-remove the container",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				tasks, err := a.dockerEngineTasks()
				if err != nil {
					return err
				}
				return tasks.Remove(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "rmi",
			Short: "Force-remove the image",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				tasks, err := a.dockerEngineTasks()
				if err != nil {
					return err
				}
				return tasks.RemoveImage(cmd.Context())
			},
		},
	)
	return cmd
}

func (a *app) dockerTasks(dryRun bool) *docker.Tasks {
	return &docker.Tasks{
		Config:      a.cfg,
		Credentials: config.LoadCredentials(config.SharedCredentialsFile()),
		Runner:      a.shellRunner(dryRun),
		Client:      a.dockerClient,
	}
}

// dockerEngineTasks is dockerTasks with an Engine API client attached.
func (a *app) dockerEngineTasks() (*docker.Tasks, error) {
	if a.dockerClient == nil {
		cli, err := docker.NewClient()
		if err != nil {
			return nil, err
		}
		a.dockerClient = cli
		log.Debug().Str("host", cli.DaemonHost()).Msg("docker client ready")
	}
	return a.dockerTasks(false), nil
}
