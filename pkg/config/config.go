// Package config loads skillcms settings from viper: config file, SKILLCMS_*
// environment variables and bound CLI flags, with optional named profiles
// layered over the base settings.
package config

import (
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillcms/pkg/db"
	"github.com/jingkaihe/skillcms/pkg/lifecycle"
	"github.com/jingkaihe/skillcms/pkg/types/skills"
)

// EnvPrefix is the prefix of every environment variable skillcms reads
const EnvPrefix = "SKILLCMS"

// Defaults
const (
	DefaultBaseURL = "http://localhost:8090"
	DefaultModel   = skills.DefaultModel
	DefaultTimeout = 30 * time.Second
)

// Config is the resolved skillcms configuration
type Config struct {
	BaseURL          string                   `mapstructure:"base_url"`
	AccessToken      string                   `mapstructure:"access_token"`
	Model            string                   `mapstructure:"model"`
	Owner            string                   `mapstructure:"owner"`
	AuthorEmail      string                   `mapstructure:"author_email"`
	Private          bool                     `mapstructure:"private"`
	Timeout          time.Duration            `mapstructure:"timeout"`
	DraftsAsExisting bool                     `mapstructure:"drafts_as_existing"`
	DBPath           string                   `mapstructure:"db_path"`
	TemplateDirs     []string                 `mapstructure:"template_dirs"`
	Profile          string                   `mapstructure:"profile"`
	Profiles         map[string]ProfileConfig `mapstructure:"profiles"`
}

// ProfileConfig holds the keys a named profile may override
type ProfileConfig map[string]any

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("model", DefaultModel)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("drafts_as_existing", false)
	v.SetDefault("private", false)

	// keys need a registered default for AutomaticEnv to reach Unmarshal
	for _, key := range []string{"access_token", "owner", "author_email", "db_path", "profile"} {
		v.SetDefault(key, "")
	}
	v.SetDefault("template_dirs", []string{})
}

// Init points v at the config file locations and the environment
func Init(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.skillcms")
	v.AddConfigPath(".")

	SetDefaults(v)
}

// Load unmarshals v, applies the active profile and validates the result
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to unmarshal configuration")
	}

	delete(cfg.Profiles, "default")
	if name := activeProfile(cfg.Profile); name != "" {
		profile, ok := cfg.Profiles[name]
		if !ok {
			return cfg, errors.Errorf("profile %q not found", name)
		}
		if err := applyProfile(&cfg, profile); err != nil {
			return cfg, err
		}
	}

	if cfg.DBPath == "" {
		path, err := db.DefaultDBPath()
		if err != nil {
			return cfg, err
		}
		cfg.DBPath = path
	}

	return cfg, cfg.Validate()
}

func activeProfile(name string) string {
	if name == "default" {
		return ""
	}
	return name
}

func applyProfile(cfg *Config, profile ProfileConfig) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ZeroFields:       false,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create profile decoder")
	}

	if err := decoder.Decode(map[string]any(profile)); err != nil {
		return errors.Wrap(err, "failed to apply profile configuration")
	}
	return nil
}

// Validate rejects configurations no command can work with. Every problem is reported.
func (c Config) Validate() error {
	var result *multierror.Error
	if c.BaseURL == "" {
		result = multierror.Append(result, errors.New("base_url cannot be empty"))
	}
	if c.Timeout <= 0 {
		result = multierror.Append(result, errors.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.Model == "" {
		result = multierror.Append(result, errors.New("model cannot be empty"))
	}
	return result.ErrorOrNil()
}

// Lifecycle returns the settings a lifecycle.Wizard needs
func (c Config) Lifecycle() lifecycle.Config {
	return lifecycle.Config{
		Model:            c.Model,
		Owner:            c.Owner,
		AuthorEmail:      c.AuthorEmail,
		Private:          c.Private,
		DraftsAsExisting: c.DraftsAsExisting,
	}
}
