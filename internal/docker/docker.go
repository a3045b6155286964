// Package docker implements the container lifecycle tasks.
//
// Build and run go through the docker CLI so output and the interactive
// terminal reach the user unchanged. Stop and removal talk to the daemon
// through the Engine API.
package docker

import (
	"context"
	"fmt"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/rs/zerolog/log"

	"github.com/opsharness/harness/internal/config"
	"github.com/opsharness/harness/internal/shell"
)

// Mount points inside the container.
const (
	LocalMount  = "/ansible"
	SSHKeyMount = "/root/.ssh/id_rsa"
)

// API is the subset of the Engine API used by the tasks.
type API interface {
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ImageRemove(ctx context.Context, imageID string, options image.RemoveOptions) ([]image.DeleteResponse, error)
}

// NewClient connects to the daemon named by the DOCKER_* environment.
func NewClient() (*client.Client, error) {
	cli, err := client.NewClientWithOpts(
		client.WithAPIVersionNegotiation(),
		client.WithHostFromEnv(),
	)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return cli, nil
}

// Tasks runs the docker tasks for one configuration.
type Tasks struct {
	Config      *config.Config
	Credentials config.Credentials
	Runner      shell.Runner

	// Client is required by Stop, Remove and RemoveImage only.
	Client API
}

// RunOptions selects what is passed into the container.
type RunOptions struct {
	// Local mounts the working directory at LocalMount.
	Local bool
	// AWS forwards the AWS key pair as environment variables.
	AWS bool
	// SSH mounts the configured private key at SSHKeyMount.
	SSH bool
}

// Build builds the configured image from the working directory.
func (t *Tasks) Build(ctx context.Context) error {
	ref, err := t.Config.ImageRef()
	if err != nil {
		return err
	}
	log.Info().Str("image", ref).Msg("building docker image")

	return t.Runner.Run(ctx, shell.Command{
		Name: "docker",
		Args: []string{"build", "-t", ref, "."},
		Dir:  t.Config.WorkDir,
	})
}

// Run starts an interactive shell in a throwaway container.
func (t *Tasks) Run(ctx context.Context, opts RunOptions) error {
	cmd, err := t.RunCommand(opts)
	if err != nil {
		return err
	}
	ref, _ := t.Config.ImageRef()
	log.Info().Str("image", ref).Msg("running docker image")
	return t.Runner.Run(ctx, cmd)
}

// RunCommand builds the docker run invocation for opts. AWS keys are
// forwarded by name so their values never appear on the command line.
func (t *Tasks) RunCommand(opts RunOptions) (shell.Command, error) {
	ref, err := t.Config.ImageRef()
	if err != nil {
		return shell.Command{}, err
	}
	name, err := t.Config.ContainerName()
	if err != nil {
		return shell.Command{}, err
	}

	cmd := shell.Command{Name: "docker", Args: []string{"run", "--rm"}}

	if opts.AWS {
		if t.Credentials.IsZero() {
			log.Warn().Msg("no AWS credentials found in the environment or shared credentials file")
		}
		cmd.Args = append(cmd.Args, "-e", "AWS_ACCESS_KEY_ID", "-e", "AWS_SECRET_ACCESS_KEY")
		cmd.Env = append(cmd.Env,
			"AWS_ACCESS_KEY_ID="+t.Credentials.AccessKeyID,
			"AWS_SECRET_ACCESS_KEY="+t.Credentials.SecretAccessKey,
		)
	}
	if opts.Local {
		cmd.Args = append(cmd.Args, "-v", t.Config.WorkDir+":"+LocalMount)
	}
	if opts.SSH {
		cmd.Args = append(cmd.Args, "-v", t.Config.SSHPrivateKeyPath()+":"+SSHKeyMount)
	}

	cmd.Args = append(cmd.Args,
		"-w", t.Config.Docker.ContainerWorkdir,
		"--name", name,
		"-it", ref, "sh",
	)
	return cmd, nil
}

// Stop stops the configured container.
func (t *Tasks) Stop(ctx context.Context) error {
	name, err := t.Config.ContainerName()
	if err != nil {
		return err
	}
	log.Info().Str("container", name).Msg("stopping docker container")

	if err := t.Client.ContainerStop(ctx, name, container.StopOptions{}); err != nil {
		if cerrdefs.IsNotFound(err) {
			return fmt.Errorf("container %q not found", name)
		}
		return fmt.Errorf("stop container %s: %w", name, err)
	}
	return nil
}

// Remove force-removes the configured container. A missing container is not an error.
func (t *Tasks) Remove(ctx context.Context) error {
	name, err := t.Config.ContainerName()
	if err != nil {
		return err
	}
	log.Info().Str("container", name).Msg("removing docker container")

	err = t.Client.ContainerRemove(ctx, name, container.RemoveOptions{Force: true})
	if err != nil && !cerrdefs.IsNotFound(err) {
		return fmt.Errorf("remove container %s: %w", name, err)
	}
	return nil
}

// RemoveImage force-removes the configured image. A missing image is not an error.
func (t *Tasks) RemoveImage(ctx context.Context) error {
	ref, err := t.Config.ImageRef()
	if err != nil {
		return err
	}
	log.Info().Str("image", ref).Msg("removing docker image")

	deleted, err := t.Client.ImageRemove(ctx, ref, image.RemoveOptions{Force: true, PruneChildren: true})
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("remove image %s: %w", ref, err)
	}
	for _, d := range deleted {
		log.Debug().Str("untagged", d.Untagged).Str("deleted", d.Deleted).Msg("image removed")
	}
	return nil
}
