package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func chatCmd() *cobra.Command {
	var (
		account   string
		assistant bool
	)

	cmd := &cobra.Command{
		Use:   "chat [message...]",
		Short: "Send a message to the banking chatbot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/chat"
			if assistant {
				path = "/api/assistant/chat"
			}

			var out struct {
				Success     bool    `json:"success"`
				Response    string  `json:"response"`
				ActionTaken *string `json:"action_taken"`
			}
			err := api.postJSON(path, map[string]string{
				"message":      strings.Join(args, " "),
				"user_account": account,
			}, &out)
			if err != nil {
				return err
			}

			fmt.Println(out.Response)
			if out.ActionTaken != nil {
				fmt.Printf("(action: %s)\n", *out.ActionTaken)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "1001", "caller account number")
	cmd.Flags().BoolVar(&assistant, "assistant", false, "use the LLM assistant instead of the keyword bot")
	return cmd
}
