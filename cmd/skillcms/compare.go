package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillcms/pkg/history"
	"github.com/jingkaihe/skillcms/pkg/presenter"
	"github.com/jingkaihe/skillcms/pkg/types/skills"
)

var compareCmd = &cobra.Command{
	Use:   "compare <commit> <commit>",
	Short: "Show the difference between two commits of a skill",
	Long: `Fetch two commits of a skill and print a unified diff. The older commit is
always shown on the left, whatever order the commits are given in.

Examples:
  skillcms compare -g weather -l en -n Hello_Bot 3f2a 9c1d`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := getIdentityFlags(cmd).Identity()
		if err != nil {
			return err
		}

		gw, err := newGateway()
		if err != nil {
			return err
		}
		view := history.NewView(history.NewComparator(gw, cfg.Model))
		pair, err := view.Load(cmd.Context(), history.Request{Identity: id, A: args[0], B: args[1]})
		if err != nil {
			return err
		}

		presenter.Info(describeRevision("-", pair.Left()))
		presenter.Info(describeRevision("+", pair.Right()))
		presenter.Separator()
		presenter.Diff(pair.Unified())
		return nil
	},
}

func init() {
	addIdentityFlags(compareCmd)
}

func describeRevision(side string, r skills.Revision) string {
	return fmt.Sprintf("%s commit %s by %s at %s", side, r.Commit.ID, r.Commit.Author, formatDate(r.Commit.Date))
}
