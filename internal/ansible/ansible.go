// Package ansible builds and runs ansible-playbook invocations.
package ansible

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/opsharness/harness/internal/config"
	"github.com/opsharness/harness/internal/shell"
)

const (
	// DeployPlaybook is the deploy playbook, relative to the playbooks directory.
	DeployPlaybook = "deploy_apps.yml"
	// DeployVars is the extra-vars file passed to every deploy.
	DeployVars = "examples/deploy.yml"
)

// ErrUnknownEnvironment is returned by Deploy for an environment outside Environments.
var ErrUnknownEnvironment = errors.New("unknown environment")

// Environments lists the deploy targets.
var Environments = []string{"stag", "prod"}

// Tasks runs playbooks for one configuration.
type Tasks struct {
	Config *config.Config
	Runner shell.Runner
}

// PlayOptions describes one playbook run.
type PlayOptions struct {
	Playbook string
	// Inventory overrides ansible.inventory_file.
	Inventory string
	// Extra is appended to the ansible-playbook arguments.
	Extra []string
	// Secrets are masked when the command is printed.
	Secrets []string
}

// PlayCommand builds the ansible-playbook invocation for opts.
func (t *Tasks) PlayCommand(opts PlayOptions) (shell.Command, error) {
	if opts.Playbook == "" {
		return shell.Command{}, errors.New("playbook is required")
	}
	inventory, err := t.Config.InventoryFile(opts.Inventory)
	if err != nil {
		return shell.Command{}, err
	}

	args := []string{
		"-i", inventory,
		"-e", "ansible_ssh_private_key_file=" + t.Config.SSHPrivateKeyPath(),
		t.resolvePlaybook(opts.Playbook),
	}
	args = append(args, opts.Extra...)

	return shell.Command{
		Name:    "ansible-playbook",
		Args:    args,
		Dir:     t.Config.WorkDir,
		Secrets: opts.Secrets,
	}, nil
}

// Play runs a playbook.
func (t *Tasks) Play(ctx context.Context, opts PlayOptions) error {
	cmd, err := t.PlayCommand(opts)
	if err != nil {
		return err
	}
	return t.Runner.Run(ctx, cmd)
}

// Deploy runs the deploy playbook against env.
func (t *Tasks) Deploy(ctx context.Context, env, inventory string) error {
	opts, err := t.DeployOptions(env, inventory)
	if err != nil {
		return err
	}
	log.Info().Str("env", env).Str("playbook", opts.Playbook).Msg("deploying")
	return t.Play(ctx, opts)
}

// DeployOptions returns the playbook run that deploys env.
func (t *Tasks) DeployOptions(env, inventory string) (PlayOptions, error) {
	if !slices.Contains(Environments, env) {
		return PlayOptions{}, fmt.Errorf("%w %q (want one of %v)", ErrUnknownEnvironment, env, Environments)
	}

	opts := PlayOptions{
		Playbook:  filepath.Join(t.Config.Ansible.PlaybooksDir, DeployPlaybook),
		Inventory: inventory,
		Extra: []string{
			"-e", "@" + DeployVars,
			"-e", "env=" + env,
		},
	}
	if pw := t.Config.RegistryPassword; pw != "" {
		opts.Extra = append(opts.Extra, "-e", "registry_password="+pw)
		opts.Secrets = append(opts.Secrets, pw)
	} else {
		log.Warn().Str("file", config.RegistryPasswordFile).Msg("no registry password found")
	}
	return opts, nil
}

// resolvePlaybook looks a bare playbook name up in the playbooks directory
// when it does not exist in the working directory.
func (t *Tasks) resolvePlaybook(name string) string {
	if filepath.IsAbs(name) || filepath.Dir(name) != "." || t.Config.Ansible.PlaybooksDir == "" {
		return name
	}
	if _, err := os.Stat(filepath.Join(t.Config.WorkDir, name)); err == nil {
		return name
	}
	candidate := filepath.Join(t.Config.Ansible.PlaybooksDir, name)
	if _, err := os.Stat(filepath.Join(t.Config.WorkDir, candidate)); err == nil {
		return candidate
	}
	return name
}
