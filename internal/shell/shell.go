// Package shell runs external commands with the terminal attached.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"
)

const redacted = "REDACTED"

// Command is one external command invocation.
type Command struct {
	Name string
	Args []string

	// Env holds KEY=VALUE pairs added to the parent environment.
	Env []string
	Dir string

	// Secrets are argument values masked when the command is printed.
	Secrets []string
}

// String renders the command as a shell-quoted line with secrets masked.
func (c Command) String() string {
	words := make([]string, 0, len(c.Args)+1)
	words = append(words, c.Name)
	for _, a := range c.Args {
		words = append(words, c.mask(a))
	}
	return shellquote.Join(words...)
}

func (c Command) mask(arg string) string {
	for _, s := range c.Secrets {
		if s == "" {
			continue
		}
		if arg == s {
			return redacted
		}
		if k, v, ok := strings.Cut(arg, "="); ok && v == s {
			return k + "=" + redacted
		}
	}
	return arg
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands as child processes.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// DryRun prints commands without running them.
	DryRun bool
}

// NewExecRunner creates a runner wired to the process's standard streams.
func NewExecRunner(dryRun bool) *ExecRunner {
	return &ExecRunner{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		DryRun: dryRun,
	}
}

// Run starts cmd and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	line := cmd.String()
	if r.DryRun {
		log.Info().Str("command", line).Msg("dry run")
		return nil
	}
	log.Info().Str("command", line).Msg("running")

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...) // #nosec G204 -- commands are built by harness, not the shell
	c.Stdin = r.Stdin
	c.Stdout = r.Stdout
	c.Stderr = r.Stderr
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	if err := c.Run(); err != nil {
		return fmt.Errorf("%s: %w", cmd.Name, err)
	}
	return nil
}

// ExitCode returns the child's exit status carried by err, or 1.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}
	return 1
}

// SplitArgs splits a shell-style argument string.
func SplitArgs(s string) ([]string, error) {
	args, err := shellquote.Split(s)
	if err != nil {
		return nil, fmt.Errorf("split arguments: %w", err)
	}
	return args, nil
}
