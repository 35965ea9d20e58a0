// Package commands implements the bankctl CLI, a thin JSON client for
// the sandbox API. It exists so exercises can be driven from a shell
// without hand-writing curl payloads.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	serverURL string
	api       *client
)

func Execute() error {
	root := &cobra.Command{
		Use:   "bankctl",
		Short: "Command line client for the sandbox bank API",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			api = newClient(serverURL)
		},
	}

	root.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:8080", "base URL of the bank API")

	root.AddCommand(registerCmd(), loginCmd(), chatCmd(), balanceCmd(), historyCmd())
	return root.Execute()
}
