// Package git wraps the git housekeeping tasks.
package git

import (
	"context"

	"github.com/opsharness/harness/internal/shell"
)

// UpdateSubmodulesCommand initializes and updates all submodules recursively.
func UpdateSubmodulesCommand(dir string) shell.Command {
	return shell.Command{
		Name: "git",
		Args: []string{"submodule", "update", "--init", "--recursive"},
		Dir:  dir,
	}
}

// UpdateSubmodules runs UpdateSubmodulesCommand in dir.
func UpdateSubmodules(ctx context.Context, r shell.Runner, dir string) error {
	return r.Run(ctx, UpdateSubmodulesCommand(dir))
}
