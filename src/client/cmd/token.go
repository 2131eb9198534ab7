package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var tokenRefresh bool

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print an OAuth access token",
	Long: `Print a valid bearer token for the API, reusing the cached one when it
has not expired. --refresh forces a new token from the token endpoint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tok, err := apiClient.Token(cmd.Context(), tokenRefresh)
		if err != nil {
			return err
		}
		fmt.Println(tok.AccessToken)
		return nil
	},
}

func init() {
	tokenCmd.Flags().BoolVar(&tokenRefresh, "refresh", false, "force a token refresh")
	tokenCmd.Flags().String("scope", "read", "OAuth scope to request")
	viper.BindPFlag("api.scope", tokenCmd.Flags().Lookup("scope"))
}
