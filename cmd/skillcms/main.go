package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillcms/pkg/config"
	"github.com/jingkaihe/skillcms/pkg/logger"
	"github.com/jingkaihe/skillcms/pkg/presenter"
)

var (
	// cfg is resolved once per invocation in the root pre-run hook
	cfg config.Config

	shutdownTracing = func(context.Context) error { return nil }
)

func init() {
	config.Init(viper.GetViper())

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()
}

var rootCmd = &cobra.Command{
	Use:   "skillcms",
	Short: "Manage chatbot skills in the skill content store",
	Long: `skillcms authors, publishes and rolls back chatbot skills kept in a versioned
content store. Drafts are kept locally until published.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.SetLogLevel(viper.GetString("log_level")); err != nil {
			return err
		}
		logger.SetLogFormat(viper.GetString("log_format"))
		presenter.SetQuiet(viper.GetBool("quiet"))

		loaded, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		cfg = loaded

		shutdown, err := initTracing(cmd.Context())
		if err != nil {
			logger.G(cmd.Context()).WithError(err).Warn("failed to initialize tracing")
			return nil
		}
		shutdownTracing = shutdown
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "info", "Log level (panic, fatal, error, warn, info, debug, trace)")
	flags.String("log-format", "fmt", "Log format (fmt or json)")
	flags.BoolP("quiet", "q", false, "Only print errors")
	flags.String("base-url", config.DefaultBaseURL, "Content store base URL")
	flags.String("access-token", "", "Content store access token")
	flags.String("model", config.DefaultModel, "Content store model skills live under")
	flags.String("owner", "", "Owner of local drafts")
	flags.String("profile", "", "Named configuration profile to apply")
	flags.Duration("timeout", config.DefaultTimeout, "Content store request timeout")

	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("log_format", flags.Lookup("log-format"))
	viper.BindPFlag("quiet", flags.Lookup("quiet"))
	viper.BindPFlag("base_url", flags.Lookup("base-url"))
	viper.BindPFlag("access_token", flags.Lookup("access-token"))
	viper.BindPFlag("model", flags.Lookup("model"))
	viper.BindPFlag("owner", flags.Lookup("owner"))
	viper.BindPFlag("profile", flags.Lookup("profile"))
	viper.BindPFlag("timeout", flags.Lookup("timeout"))

	rootCmd.AddCommand(withTracing(historyCmd))
	rootCmd.AddCommand(withTracing(compareCmd))
	rootCmd.AddCommand(withTracing(rollbackCmd))
	rootCmd.AddCommand(withTracing(publishCmd))
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	if shutdownErr := shutdownTracing(context.Background()); shutdownErr != nil {
		logger.G(ctx).WithError(shutdownErr).Warn("failed to shut down tracing")
	}
	if err != nil {
		presenter.Error(err, "")
		return 1
	}
	return 0
}
