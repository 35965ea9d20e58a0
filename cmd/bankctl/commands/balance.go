package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [account]",
		Short: "Show an account's owner and balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Account struct {
					Number  string `json:"account_number"`
					Owner   string `json:"owner"`
					Balance string `json:"balance"`
				} `json:"account"`
			}
			if err := api.getJSON("/api/account/"+args[0], &out); err != nil {
				return err
			}
			fmt.Printf("Account %s (%s): $%s\n", out.Account.Number, out.Account.Owner, out.Account.Balance)
			return nil
		},
	}
}
