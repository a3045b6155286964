package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/opsharness/harness/internal/ansible"
	"github.com/opsharness/harness/internal/shell"
)

func newAnsibleCmd(a *app) *cobra.Command {
	var (
		inventory string
		dryRun    bool
		extraArgs string
	)

	cmd := &cobra.Command{
		Use:   "ansible",
		Short: "Run Ansible playbooks",
	}
	cmd.PersistentFlags().StringVarP(&inventory, "inventory", "i", "", "Inventory file (default ansible.inventory_file from config)")
	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Print the ansible-playbook command without running it")

	playCmd := &cobra.Command{
		Use:   "play <playbook> [-- ansible-playbook args]",
		Short: "Run a playbook",
		Example: `  harness ansible play site.yml
  harness ansible play site.yml -i staging.ini -- --tags web --check
  harness ansible play site.yml --extra-args "--limit 'web*'"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			extra := args[1:]
			if extraArgs != "" {
				split, err := shell.SplitArgs(extraArgs)
				if err != nil {
					return err
				}
				extra = append(extra, split...)
			}
			return a.ansibleTasks(dryRun).Play(cmd.Context(), ansible.PlayOptions{
				Playbook:  args[0],
				Inventory: inventory,
				Extra:     extra,
			})
		},
	}
	playCmd.Flags().StringVar(&extraArgs, "extra-args", "", "Extra ansible-playbook arguments as one shell-quoted string")

	deployCmd := &cobra.Command{
		Use:       "deploy <" + strings.Join(ansible.Environments, "|") + ">",
		Short:     "Deploy the apps to an environment",
		Long:      "Run " + ansible.DeployPlaybook + " from the playbooks directory with the deploy vars, the environment and the registry password.",
		ValidArgs: ansible.Environments,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ansibleTasks(dryRun).Deploy(cmd.Context(), args[0], inventory)
		},
	}

	cmd.AddCommand(playCmd, deployCmd)
	return cmd
}

func (a *app) ansibleTasks(dryRun bool) *ansible.Tasks {
	return &ansible.Tasks{
		Config: a.cfg,
		Runner: a.shellRunner(dryRun),
	}
}
