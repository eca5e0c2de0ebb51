package main

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillcms/pkg/drafts"
	"github.com/jingkaihe/skillcms/pkg/gateway"
	"github.com/jingkaihe/skillcms/pkg/lifecycle"
	"github.com/jingkaihe/skillcms/pkg/presenter"
	"github.com/jingkaihe/skillcms/pkg/templates"
	"github.com/jingkaihe/skillcms/pkg/types/skills"
)

// IdentityFlags addresses one skill in the store
type IdentityFlags struct {
	Group    string
	Language string
	Name     string
}

func addIdentityFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("group", "g", "", "Skill group (category)")
	cmd.Flags().StringP("language", "l", "", "Skill language code")
	cmd.Flags().StringP("name", "n", "", "Skill name")
}

func getIdentityFlags(cmd *cobra.Command) IdentityFlags {
	var f IdentityFlags
	if v, err := cmd.Flags().GetString("group"); err == nil {
		f.Group = v
	}
	if v, err := cmd.Flags().GetString("language"); err == nil {
		f.Language = v
	}
	if v, err := cmd.Flags().GetString("name"); err == nil {
		f.Name = v
	}
	return f
}

// Identity validates the flags and returns the normalized identity
func (f IdentityFlags) Identity() (skills.Identity, error) {
	switch {
	case f.Group == "":
		return skills.Identity{}, errors.New("--group is required")
	case f.Language == "":
		return skills.Identity{}, errors.New("--language is required")
	case f.Name == "":
		return skills.Identity{}, errors.New("--name is required")
	}
	return skills.NewIdentity(f.Group, f.Language, f.Name, ""), nil
}

func newGateway() (*gateway.Client, error) {
	return gateway.NewClient(cfg.BaseURL,
		gateway.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		gateway.WithAccessToken(cfg.AccessToken),
	)
}

func openDraftStore(ctx context.Context) (*drafts.SQLiteStore, error) {
	return drafts.Open(ctx, cfg.DBPath)
}

func newTemplateDiscovery() (*templates.Discovery, error) {
	if len(cfg.TemplateDirs) > 0 {
		return templates.NewDiscovery(templates.WithDirs(cfg.TemplateDirs...))
	}
	return templates.NewDiscovery()
}

// newWizard wires a lifecycle wizard to the store, the draft database and the terminal
func newWizard(ctx context.Context) (*lifecycle.Wizard, func() error, error) {
	gw, err := newGateway()
	if err != nil {
		return nil, nil, err
	}
	store, err := openDraftStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	return lifecycle.NewWizard(gw, store, presenter.Default(), cfg.Lifecycle()), store.Close, nil
}
