package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func registerCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "register [username] [password]",
		Short: "Create a demo user with a fresh account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				User struct {
					Username      string `json:"username"`
					AccountNumber string `json:"account_number"`
				} `json:"user"`
			}
			err := api.postJSON("/api/register", map[string]string{
				"username": args[0],
				"password": args[1],
				"email":    email,
			}, &out)
			if err != nil {
				return err
			}
			fmt.Printf("Registered %s with account %s\n", out.User.Username, out.User.AccountNumber)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	return cmd
}
