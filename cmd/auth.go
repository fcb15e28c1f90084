package cmd

import (
	"errors"

	"github.com/AlecAivazis/survey/v2"
	"github.com/aniplay-cli/aniplay/auth"
	"github.com/aniplay-cli/aniplay/icon"
	"github.com/aniplay-cli/aniplay/style"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
}

// authCmd manages the catalog API token stored in the system keyring.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the catalog API token",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a catalog API token in the system keyring",
	Run: func(cmd *cobra.Command, args []string) {
		var token string
		prompt := survey.Password{
			Message: "Catalog API token:",
		}
		handleErr(survey.AskOne(&prompt, &token, survey.WithValidator(survey.Required)))

		handleErr(auth.SetToken(token))
		cmd.Printf("%s Token stored\n", icon.Get(icon.Success))
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored catalog API token",
	Run: func(cmd *cobra.Command, args []string) {
		err := auth.DeleteToken()
		if err != nil {
			handleErr(errors.New("no stored token to remove"))
		}
		cmd.Printf("%s Token removed\n", icon.Get(icon.Success))
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a catalog API token is stored",
	Run: func(cmd *cobra.Command, args []string) {
		if auth.Token() == "" {
			cmd.Println(style.Faint("no token stored"))
			return
		}
		cmd.Printf("%s Token present\n", icon.Get(icon.Success))
	},
}
