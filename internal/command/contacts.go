package command

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewContactsCmd creates the contacts command.
func NewContactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "List registered users other than yourself",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd.Context(), cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			contacts, err := ctx.Users.ListContacts(cmd.Context(), ctx.SelfID)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			out := cmd.OutOrStdout()
			if ctx.JSONMode {
				return writeJSON(out, contacts)
			}
			for _, user := range contacts {
				presence := "offline"
				if user.Online {
					presence = "online"
				}
				fmt.Fprintf(out, "%-24s %-32s %s\n", user.ID, user.Email, presence)
			}
			return nil
		},
	}

	return cmd
}
