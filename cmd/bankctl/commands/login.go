package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [username] [password]",
		Short: "Log in and print a session token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Token string `json:"token"`
				User  struct {
					AccountNumber string `json:"account_number"`
				} `json:"user"`
			}
			err := api.postJSON("/api/login", map[string]string{
				"username": args[0],
				"password": args[1],
			}, &out)
			if err != nil {
				return err
			}
			fmt.Printf("Account: %s\nToken: %s\n", out.User.AccountNumber, out.Token)
			return nil
		},
	}
}
