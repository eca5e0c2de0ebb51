package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillcms/pkg/contentstore"
	"github.com/jingkaihe/skillcms/pkg/logger"
	"github.com/jingkaihe/skillcms/pkg/presenter"
)

// StoreServeConfig holds configuration for the store serve command
type StoreServeConfig struct {
	Host     string
	Port     int
	Snapshot string
	Tokens   []string
}

// NewStoreServeConfig creates a StoreServeConfig with default values
func NewStoreServeConfig() *StoreServeConfig {
	return &StoreServeConfig{
		Host: "localhost",
		Port: 8090,
	}
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Run a local content store",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var storeServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve an in-memory content store for local development",
	Long: `Start a content store speaking the same HTTP API as the production store.
Skills live in memory unless --snapshot names a file to persist them to.

Examples:
  skillcms store serve
  skillcms store serve --port 9000 --snapshot ./store.json --token secret=alice`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		config := getStoreServeConfigFromFlags(cmd)

		tokens, err := parseTokens(config.Tokens)
		if err != nil {
			return err
		}

		opts := []contentstore.Option{}
		if len(tokens) > 0 {
			opts = append(opts, contentstore.WithTokens(tokens))
		}
		if config.Snapshot != "" {
			opts = append(opts, contentstore.WithSnapshot(config.Snapshot))
		}
		store, err := contentstore.New(opts...)
		if err != nil {
			return err
		}

		server, err := contentstore.NewServer(store, &contentstore.ServerConfig{
			Host: config.Host,
			Port: config.Port,
		})
		if err != nil {
			return err
		}

		logger.G(ctx).WithField("host", config.Host).WithField("port", config.Port).Info("starting content store")
		presenter.Success(fmt.Sprintf("Content store listening on http://%s:%d", config.Host, config.Port))
		presenter.Info("Press Ctrl+C to stop the server")

		return server.Start(ctx)
	},
}

func init() {
	defaults := NewStoreServeConfig()
	storeServeCmd.Flags().String("host", defaults.Host, "Host to bind the store to")
	storeServeCmd.Flags().Int("port", defaults.Port, "Port to bind the store to")
	storeServeCmd.Flags().String("snapshot", defaults.Snapshot, "JSON file the store is persisted to")
	storeServeCmd.Flags().StringArray("token", defaults.Tokens, "Accepted access token as token=author (repeatable)")

	storeCmd.AddCommand(storeServeCmd)
}

func getStoreServeConfigFromFlags(cmd *cobra.Command) *StoreServeConfig {
	config := NewStoreServeConfig()
	if v, err := cmd.Flags().GetString("host"); err == nil {
		config.Host = v
	}
	if v, err := cmd.Flags().GetInt("port"); err == nil {
		config.Port = v
	}
	if v, err := cmd.Flags().GetString("snapshot"); err == nil {
		config.Snapshot = v
	}
	if v, err := cmd.Flags().GetStringArray("token"); err == nil {
		config.Tokens = v
	}
	return config
}

func parseTokens(pairs []string) (map[string]string, error) {
	tokens := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		token, author, ok := strings.Cut(pair, "=")
		if !ok || token == "" || author == "" {
			return nil, errors.Errorf("invalid token %q, expected token=author", pair)
		}
		tokens[token] = author
	}
	return tokens, nil
}
