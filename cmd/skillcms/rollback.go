package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillcms/pkg/presenter"
	"github.com/jingkaihe/skillcms/pkg/rollback"
)

// RollbackConfig holds the rollback command flags
type RollbackConfig struct {
	Latest string
	Yes    bool
	DryRun bool
}

// NewRollbackConfig creates a RollbackConfig with default values
func NewRollbackConfig() *RollbackConfig {
	return &RollbackConfig{}
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback <target-commit>",
	Short: "Restore an earlier commit of a skill as its newest revision",
	Long: `Publish the content of an earlier commit as a new commit. History is never
rewritten: the rollback is itself a commit whose changelog names the target.

The diff from the current head to the target is shown before anything is sent.

Examples:
  skillcms rollback -g weather -l en -n Hello_Bot 3f2a
  skillcms rollback -g weather -l en -n Hello_Bot 3f2a --latest 9c1d --yes`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := getIdentityFlags(cmd).Identity()
		if err != nil {
			return err
		}
		config := getRollbackConfigFromFlags(cmd)

		gw, err := newGateway()
		if err != nil {
			return err
		}
		svc := rollback.NewService(gw, cfg.Model)

		plan, err := svc.Prepare(ctx, id, config.Latest, args[0])
		if err != nil {
			return err
		}

		target := plan.Target()
		presenter.Section(fmt.Sprintf("Rollback %s", plan.Identity))
		presenter.Info(fmt.Sprintf("Target commit: %s", target.Commit.ID))
		presenter.Info(fmt.Sprintf("Author:        %s", target.Commit.Author))
		presenter.Info(fmt.Sprintf("Date:          %s", formatDate(target.Commit.Date)))
		presenter.Info(fmt.Sprintf("Changelog:     %s", plan.Changelog()))
		presenter.Separator()
		presenter.Diff(plan.Diff())

		if config.DryRun {
			return nil
		}
		if !config.Yes && !confirm(presenter.Prompt("Roll back to this commit?", "y", "N")) {
			presenter.Warning("Rollback cancelled")
			return nil
		}

		result, err := svc.Submit(ctx, plan)
		if err != nil {
			return err
		}
		presenter.Success(fmt.Sprintf("Rolled back to commit %s", result.TargetID))
		fmt.Fprintln(os.Stdout, result.CanonicalPath)
		return nil
	},
}

func init() {
	defaults := NewRollbackConfig()
	addIdentityFlags(rollbackCmd)
	rollbackCmd.Flags().String("latest", defaults.Latest, "Commit expected to be the head (defaults to the current head)")
	rollbackCmd.Flags().BoolP("yes", "y", defaults.Yes, "Do not ask for confirmation")
	rollbackCmd.Flags().Bool("dry-run", defaults.DryRun, "Show the plan without submitting it")
}

func getRollbackConfigFromFlags(cmd *cobra.Command) *RollbackConfig {
	config := NewRollbackConfig()
	if v, err := cmd.Flags().GetString("latest"); err == nil {
		config.Latest = v
	}
	if v, err := cmd.Flags().GetBool("yes"); err == nil {
		config.Yes = v
	}
	if v, err := cmd.Flags().GetBool("dry-run"); err == nil {
		config.DryRun = v
	}
	return config
}

func confirm(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
