package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [account]",
		Short: "List recent transactions for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Transactions []struct {
					ID          int64  `json:"id"`
					FromAccount string `json:"from_account"`
					ToAccount   string `json:"to_account"`
					Amount      string `json:"amount"`
					Kind        string `json:"type"`
					Description string `json:"description"`
				} `json:"transactions"`
			}
			path := fmt.Sprintf("/api/transactions/%s?limit=%d", args[0], limit)
			if err := api.getJSON(path, &out); err != nil {
				return err
			}

			if len(out.Transactions) == 0 {
				fmt.Println("No transactions")
				return nil
			}
			for _, tx := range out.Transactions {
				dest := ""
				if tx.ToAccount != "" {
					dest = " -> " + tx.ToAccount
				}
				fmt.Printf("#%d %s%s $%s %s %s\n", tx.ID, tx.FromAccount, dest, tx.Amount, tx.Kind, tx.Description)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "number of transactions to show")
	return cmd
}
