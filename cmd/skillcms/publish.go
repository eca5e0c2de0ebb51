package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillcms/pkg/lifecycle"
	"github.com/jingkaihe/skillcms/pkg/logger"
	"github.com/jingkaihe/skillcms/pkg/presenter"
	"github.com/jingkaihe/skillcms/pkg/types/skills"
)

// PublishConfig holds the publish command flags
type PublishConfig struct {
	Existing bool
	DraftID  string
	Template string
	Image    string
	Message  string
}

// NewPublishConfig creates a PublishConfig with default values
func NewPublishConfig() *PublishConfig {
	return &PublishConfig{}
}

var publishCmd = &cobra.Command{
	Use:   "publish [draft-file]",
	Short: "Publish a bot to the content store",
	Long: `Walk a bot through Build, Design and Configure, save it to the content store
and open Deploy. The working copy comes from one source, optionally overlaid with a
YAML draft file (see 'skillcms draft schema'):

  - a draft file alone creates a new bot
  - --existing edits the published bot named by --group/--language/--name
  - --draft resumes a locally saved draft
  - --template starts a new bot from a template

Changing the name, group, language or image of an existing bot renames it.

Examples:
  skillcms publish hello.yaml
  skillcms publish --existing -g weather -l en -n Hello_Bot changes.yaml
  skillcms publish --draft 3b0c6c1e-... --message "First release"
  skillcms publish --template greeter hello.yaml --image ./bot.png`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		config := getPublishConfigFromFlags(cmd)

		var file *DraftFile
		if len(args) == 1 {
			f, err := readDraftFile(args[0])
			if err != nil {
				return err
			}
			file = f
		}

		wizard, closeStore, err := newWizard(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		s, err := openSession(ctx, cmd, wizard, config, file)
		if err != nil {
			return err
		}

		result, err := publishSession(ctx, wizard, s, config)
		if err != nil {
			return err
		}

		if result.Resolution.IdentityChanged {
			presenter.Info(fmt.Sprintf("Renamed to %s", result.Identity))
		}
		fmt.Fprintln(os.Stdout, result.CanonicalPath)
		return nil
	},
}

func init() {
	defaults := NewPublishConfig()
	addIdentityFlags(publishCmd)
	publishCmd.Flags().Bool("existing", defaults.Existing, "Edit the published bot named by --group/--language/--name")
	publishCmd.Flags().String("draft", defaults.DraftID, "Resume a saved draft by id")
	publishCmd.Flags().String("template", defaults.Template, "Start from a template by id")
	publishCmd.Flags().String("image", defaults.Image, "Image file to upload with the bot")
	publishCmd.Flags().StringP("message", "m", defaults.Message, "Commit message")
	publishCmd.MarkFlagsMutuallyExclusive("existing", "draft", "template")
}

func getPublishConfigFromFlags(cmd *cobra.Command) *PublishConfig {
	config := NewPublishConfig()
	if v, err := cmd.Flags().GetBool("existing"); err == nil {
		config.Existing = v
	}
	if v, err := cmd.Flags().GetString("draft"); err == nil {
		config.DraftID = v
	}
	if v, err := cmd.Flags().GetString("template"); err == nil {
		config.Template = v
	}
	if v, err := cmd.Flags().GetString("image"); err == nil {
		config.Image = v
	}
	if v, err := cmd.Flags().GetString("message"); err == nil {
		config.Message = v
	}
	return config
}

func openSession(ctx context.Context, cmd *cobra.Command, w *lifecycle.Wizard, config *PublishConfig, file *DraftFile) (*lifecycle.Session, error) {
	var (
		s   *lifecycle.Session
		err error
	)
	switch {
	case config.Existing:
		id, idErr := getIdentityFlags(cmd).Identity()
		if idErr != nil {
			return nil, idErr
		}
		s, err = w.LoadExisting(ctx, id)
	case config.DraftID != "":
		s, err = w.LoadDraft(ctx, config.DraftID)
	case config.Template != "":
		discovery, discErr := newTemplateDiscovery()
		if discErr != nil {
			return nil, discErr
		}
		tmpl, tmplErr := discovery.Get(config.Template)
		if tmplErr != nil {
			return nil, tmplErr
		}
		s, err = w.LoadTemplate(ctx, tmpl)
	default:
		if file == nil {
			return nil, errors.New("a draft file is required to publish a new bot")
		}
		s = w.NewSession(ctx)
	}
	if err != nil {
		return nil, err
	}

	if file != nil {
		s.Edit(file.apply)
		if file.CommitMessage != "" && config.Message == "" {
			config.Message = file.CommitMessage
		}
		if file.ImageFile != "" && config.Image == "" {
			config.Image = file.ImageFile
		}
	}
	if config.Image != "" {
		data, err := os.ReadFile(config.Image)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read image %s", config.Image)
		}
		s.AttachImage(filepath.Base(config.Image), data)
	}
	return s, nil
}

// publishSession walks the session to Configure, saves it and opens Deploy
func publishSession(ctx context.Context, w *lifecycle.Wizard, s *lifecycle.Session, config *PublishConfig) (*lifecycle.SaveResult, error) {
	log := logger.G(ctx)
	for s.Stage() < lifecycle.StageConfigure {
		if err := w.Next(ctx, s); err != nil {
			return nil, err
		}
		log.WithField("stage", s.Stage().String()).Debug("stage entered")
	}

	if config.Message != "" {
		s.SetCommitMessage(config.Message)
	}
	presenter.Info(fmt.Sprintf("Saving %s: %s", skills.NormalizeName(s.Draft().Name), s.CommitMessage()))

	result, err := w.Save(ctx, s)
	if err != nil {
		return nil, err
	}
	if err := w.JumpTo(ctx, s, lifecycle.StageDeploy); err != nil {
		return nil, err
	}
	return result, nil
}
