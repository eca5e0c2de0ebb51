package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillcms/pkg/history"
	"github.com/jingkaihe/skillcms/pkg/presenter"
	"github.com/jingkaihe/skillcms/pkg/types/skills"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the commit history of a skill",
	Long: `List every commit of a skill, newest first. The newest commit is marked as latest.

Examples:
  skillcms history -g weather -l en -n "Hello Bot"
  skillcms history -g weather -l en -n Hello_Bot --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, err := getIdentityFlags(cmd).Identity()
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		gw, err := newGateway()
		if err != nil {
			return err
		}
		commits, err := history.NewComparator(gw, cfg.Model).ListHistory(cmd.Context(), id)
		if err != nil {
			return errors.Wrap(err, "failed to list history")
		}

		if asJSON {
			return printJSON(os.Stdout, commits)
		}
		if len(commits) == 0 {
			presenter.Info("No commits found")
			return nil
		}
		presenter.Section(fmt.Sprintf("History of %s", id))
		printCommits(os.Stdout, commits)
		if history.AvailabilityOf(commits) != history.AvailabilityComparable {
			presenter.Info("Only one commit: nothing to compare or roll back to")
		}
		return nil
	},
}

func init() {
	addIdentityFlags(historyCmd)
	historyCmd.Flags().Bool("json", false, "Print the history as JSON")
}

func printCommits(w io.Writer, commits []skills.Commit) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COMMIT\tDATE\tAUTHOR\t")
	for _, c := range commits {
		marker := ""
		if c.IsLatest {
			marker = "(latest)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, formatDate(c.Date), c.Author, marker)
	}
	tw.Flush()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "failed to encode JSON")
}
