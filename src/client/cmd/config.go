package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/apimgr/idealista/src/client/paths"
	"github.com/apimgr/idealista/src/config"
)

var (
	configAPIKey    string
	configAPISecret string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage API credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigShow()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the stored credentials (secret masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigShow()
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store API credentials",
	Long: `Store the API key and secret in the per-user credentials file.

The secret can be passed with --api-secret or, on a terminal, entered
interactively without echo.

Examples:
  ` + getBinaryName() + ` config set --api-key KEY --api-secret SECRET
  ` + getBinaryName() + ` config set --api-key KEY`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigSet()
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the credentials file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(paths.CredentialsFile())
		return nil
	},
}

func init() {
	configSetCmd.Flags().StringVar(&configAPIKey, "api-key", "", "API key")
	configSetCmd.Flags().StringVar(&configAPISecret, "api-secret", "", "API secret")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow() error {
	path := paths.CredentialsFile()
	f, err := config.Load(path)
	if err != nil {
		return err
	}

	apiKey := f.APIKey
	if apiKey == "" {
		apiKey = "(missing)"
	}
	apiSecret := "(missing)"
	if f.APISecret != "" {
		apiSecret = "***"
	}

	out, err := yaml.Marshal(map[string]string{
		"path":       path,
		"api_key":    apiKey,
		"api_secret": apiSecret,
	})
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}

func runConfigSet() error {
	if configAPIKey == "" {
		return fmt.Errorf("--api-key is required")
	}

	secret := configAPISecret
	if secret == "" {
		var err error
		secret, err = promptSecret("Enter API secret: ")
		if err != nil {
			return err
		}
	}
	if secret == "" {
		return fmt.Errorf("API secret cannot be empty")
	}

	path := paths.CredentialsFile()
	if err := config.Save(path, configAPIKey, secret); err != nil {
		return err
	}
	fmt.Printf("Saved credentials to %s\n", path)
	return nil
}

// promptSecret reads a secret without echo on a terminal, or a plain line
// when stdin is a pipe.
func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)

	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		fmt.Println()
		return strings.TrimSpace(string(raw)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}
