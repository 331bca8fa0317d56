package command

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewSendCmd creates the send command.
func NewSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <counterpart> <text...>",
		Short: "Send a message to a counterpart",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd.Context(), cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			message, err := ctx.Store.Send(cmd.Context(), ctx.SelfID, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return writeCommandError(cmd, err)
			}

			out := cmd.OutOrStdout()
			if message == nil {
				if ctx.JSONMode {
					return writeJSON(out, map[string]bool{"dropped": true})
				}
				fmt.Fprintln(out, "Nothing sent: message is blank")
				return nil
			}

			if ctx.JSONMode {
				return writeJSON(out, message)
			}
			fmt.Fprintf(out, "Sent %s to %s in %s\n", message.ID, message.RecipientID, message.ChatID)
			return nil
		},
	}

	return cmd
}
