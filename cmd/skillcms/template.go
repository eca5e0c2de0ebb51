package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillcms/pkg/presenter"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Browse bot templates",
	Long: `List and show the templates new bots can start from. Templates are TEMPLATE.md
files found under ./.skillcms/templates, ~/.skillcms/templates or the configured
template_dirs.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var templateListCmd = &cobra.Command{
	Use:   "list [pattern]",
	Short: "List templates, optionally filtered by a glob on the id",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		pattern := ""
		if len(args) == 1 {
			pattern = args[0]
		}

		discovery, err := newTemplateDiscovery()
		if err != nil {
			return err
		}
		found, err := discovery.List(pattern)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			presenter.Info("No templates found")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tLANGUAGE\tDESCRIPTION")
		for _, t := range found {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Category, t.Language, t.Description)
		}
		return tw.Flush()
	},
}

var templateShowCmd = &cobra.Command{
	Use:   "show <template-id>",
	Short: "Show a template as a draft file",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		discovery, err := newTemplateDiscovery()
		if err != nil {
			return err
		}
		t, err := discovery.Get(args[0])
		if err != nil {
			return err
		}

		presenter.Info(fmt.Sprintf("# %s (%s)", t.Name, t.Directory))
		f := &DraftFile{}
		f.Category = t.Category
		f.Language = t.Language
		f.BuildCode = t.Code
		return writeDraftFile(os.Stdout, f)
	},
}

func init() {
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateShowCmd)
}
