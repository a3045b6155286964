package main

import (
	"github.com/spf13/cobra"

	"github.com/opsharness/harness/internal/git"
)

func newGitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "git",
		Short: "Repository housekeeping",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "update",
		Short: "Initialize and update all submodules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return git.UpdateSubmodules(cmd.Context(), a.shellRunner(false), a.cfg.WorkDir)
		},
	})
	return cmd
}
