// Package cmd implements the CLI commands.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/apimgr/idealista/src/cache"
	"github.com/apimgr/idealista/src/client/api"
	"github.com/apimgr/idealista/src/client/paths"
	"github.com/apimgr/idealista/src/config"
)

var (
	// Build info - set via -ldflags at build time.
	ProjectName = "idealista"
	Version     = "dev"
	CommitID    = "unknown"
	BuildDate   = "unknown"

	cfgFile string
	timeout int
	retries int

	apiClient *api.Client
)

var rootCmd = &cobra.Command{
	Use:   getBinaryName(),
	Short: "CLI client for the idealista listings API",
	Long: `idealista is a command-line client for the idealista real-estate
listings API: OAuth token management, resilient paginated search, and
grouped price statistics.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Commands that never talk to the API skip client setup.
		switch cmd.Name() {
		case "config", "version", "help", "completion":
			return nil
		}
		if cmd.Parent() != nil && cmd.Parent().Name() == "config" {
			return nil
		}
		return initClient()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().IntVar(&timeout, "timeout", 0, "request timeout in seconds")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", 0, "attempts for rate limits / transient errors")

	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(avgCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configDir := paths.ConfigDir()
		os.MkdirAll(configDir, 0700)
		viper.AddConfigPath(configDir)
		viper.SetConfigName("cli")
		viper.SetConfigType("yaml")
	}

	// Defaults
	viper.SetDefault("api.base_url", api.DefaultBaseURL)
	viper.SetDefault("api.timeout", 30)
	viper.SetDefault("api.retries", 3)
	viper.SetDefault("api.scope", "read")
	viper.SetDefault("cache.backend", "file")
	viper.SetDefault("logging.level", "warn")

	viper.ReadInConfig()

	// Logging comes up only after the config is read, so the logging.*
	// settings from cli.yml (level, file, rotation) take effect.
	if err := initLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not initialize log file: %v\n", err)
	}
}

// initClient resolves credentials and wires the API client from flags and
// config.
func initClient() error {
	creds, err := config.Resolve(paths.CredentialsFile())
	if err != nil {
		return err
	}

	cacheCfg := cache.DefaultConfig()
	if err := viper.UnmarshalKey("cache", &cacheCfg); err != nil {
		return fmt.Errorf("invalid cache config: %w", err)
	}
	store, err := cache.New(cacheCfg, paths.TokenCacheFile())
	if err != nil {
		return err
	}

	timeoutVal := viper.GetInt("api.timeout")
	if timeout > 0 {
		timeoutVal = timeout
	}
	retriesVal := viper.GetInt("api.retries")
	if retries > 0 {
		retriesVal = retries
	}

	api.ProjectName = ProjectName
	api.Version = Version
	apiClient = api.NewClient(creds, store,
		api.WithBaseURL(viper.GetString("api.base_url")),
		api.WithTimeout(time.Duration(timeoutVal)*time.Second),
		api.WithRetryPolicy(api.DefaultRetryPolicy().WithAttempts(retriesVal)),
		api.WithScope(viper.GetString("api.scope")),
	)
	return nil
}

func getBinaryName() string {
	return filepath.Base(os.Args[0])
}
