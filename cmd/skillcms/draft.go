package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillcms/pkg/presenter"
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Manage locally saved drafts",
	Long:  `Save, list, show and delete unpublished drafts kept in the local database.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var draftSaveCmd = &cobra.Command{
	Use:   "save <draft-file>",
	Short: "Save a draft file to the local database",
	Long: `Save a YAML draft file as a local draft. A category is required; design code
is stored without '#' characters and the image is stored under images/.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireOwner(); err != nil {
			return err
		}
		file, err := readDraftFile(args[0])
		if err != nil {
			return err
		}

		wizard, closeStore, err := newWizard(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		s := wizard.NewSession(ctx)
		s.Edit(file.apply)
		id, err := wizard.SaveDraft(ctx, s)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, id)
		return nil
	},
}

var draftListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved drafts, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := requireOwner(); err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		store, err := openDraftStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		summaries, err := store.List(ctx, cfg.Owner)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(os.Stdout, summaries)
		}
		if len(summaries) == 0 {
			presenter.Info("No drafts found")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tLANGUAGE\tCREATED")
		for _, s := range summaries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Category, s.Language, formatDate(s.CreatedAt))
		}
		return tw.Flush()
	},
}

var draftShowCmd = &cobra.Command{
	Use:   "show <draft-id>",
	Short: "Print a saved draft as a YAML draft file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireOwner(); err != nil {
			return err
		}

		store, err := openDraftStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		d, err := store.Load(ctx, cfg.Owner, args[0])
		if err != nil {
			return err
		}
		return writeDraftFile(os.Stdout, &DraftFile{Draft: d})
	},
}

var draftDeleteCmd = &cobra.Command{
	Use:   "delete <draft-id>",
	Short: "Delete a saved draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireOwner(); err != nil {
			return err
		}

		store, err := openDraftStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(ctx, cfg.Owner, args[0]); err != nil {
			return err
		}
		presenter.Success(fmt.Sprintf("Draft %s deleted", args[0]))
		return nil
	},
}

var draftSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of draft files",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		out, err := json.MarshalIndent(draftFileSchema(), "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal schema")
		}
		fmt.Fprintln(os.Stdout, string(out))
		return nil
	},
}

func init() {
	draftListCmd.Flags().Bool("json", false, "Print drafts as JSON")

	draftCmd.AddCommand(draftSaveCmd)
	draftCmd.AddCommand(draftListCmd)
	draftCmd.AddCommand(draftShowCmd)
	draftCmd.AddCommand(draftDeleteCmd)
	draftCmd.AddCommand(draftSchemaCmd)
}

func requireOwner() error {
	if cfg.Owner == "" {
		return errors.New("drafts need an owner: set --owner or SKILLCMS_OWNER")
	}
	return nil
}
